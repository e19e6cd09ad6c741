package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decoaromas/decoaromas-admin/internal/backend"
	jobmetrics "github.com/decoaromas/decoaromas-admin/internal/jobs"
	"github.com/decoaromas/decoaromas-admin/internal/reports"
)

type countingSource struct {
	calls   atomic.Int32
	lowFail error
}

func (s *countingSource) SalesSummary(context.Context, backend.Params) (backend.SalesSummary, error) {
	s.calls.Add(1)
	return backend.SalesSummary{TotalVentas: 10}, nil
}

func (s *countingSource) DailySales(context.Context, backend.Params) ([]backend.SeriesPoint, error) {
	s.calls.Add(1)
	return nil, nil
}

func (s *countingSource) MonthlySales(context.Context, backend.Params) ([]backend.SeriesPoint, error) {
	s.calls.Add(1)
	return []backend.SeriesPoint{{Periodo: "2024-01"}}, nil
}

func (s *countingSource) ListSales(_ context.Context, req backend.PageRequest, _ backend.Params) (backend.Page[backend.Sale], error) {
	s.calls.Add(1)
	return backend.NewPage[backend.Sale](nil, req.Page, req.Size, 0), nil
}

func (s *countingSource) BestSellers(_ context.Context, req backend.PageRequest, _ backend.Params) (backend.Page[backend.ProductRanking], error) {
	s.calls.Add(1)
	return backend.NewPage[backend.ProductRanking](nil, req.Page, req.Size, 0), nil
}

func (s *countingSource) AromaRankings(context.Context, backend.Params) ([]backend.AromaRanking, error) {
	s.calls.Add(1)
	return nil, nil
}

func (s *countingSource) SalesByCustomerType(context.Context, backend.Params) ([]backend.CustomerTypeBreakdown, error) {
	s.calls.Add(1)
	return nil, nil
}

func (s *countingSource) InactiveCustomers(_ context.Context, req backend.PageRequest, _ backend.Params) (backend.Page[backend.InactiveCustomer], error) {
	s.calls.Add(1)
	return backend.NewPage[backend.InactiveCustomer](nil, req.Page, req.Size, 0), nil
}

func (s *countingSource) LowStock(_ context.Context, req backend.PageRequest, _ backend.Params) (backend.Page[backend.LowStockItem], error) {
	s.calls.Add(1)
	if s.lowFail != nil {
		return backend.Page[backend.LowStockItem]{}, s.lowFail
	}
	return backend.NewPage([]backend.LowStockItem{{ProductoID: 1}}, req.Page, req.Size, 1), nil
}

func newWarmupJob(t *testing.T, src reports.Source) (*ReportWarmupJob, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	job := NewReportWarmupJob(src, reports.NewCache(rdb, time.Hour), nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return time.Date(2024, time.May, 2, 8, 0, 0, 0, time.UTC) }
	return job, mr
}

func warmupTask(t *testing.T, views ...string) *asynq.Task {
	t.Helper()
	task, err := NewReportWarmupTask(ReportWarmupPayload{Views: views})
	require.NoError(t, err)
	return task
}

func TestReportWarmupFillsCacheOnce(t *testing.T) {
	src := &countingSource{}
	job, mr := newWarmupJob(t, src)

	require.NoError(t, job.Handle(context.Background(), warmupTask(t)))
	first := src.calls.Load()
	assert.Equal(t, int32(8), first, "one backend call per catalog slice")
	assert.NotEmpty(t, mr.Keys())

	require.NoError(t, job.Handle(context.Background(), warmupTask(t)))
	assert.Equal(t, first, src.calls.Load(), "a second run is served from the cache")
}

func TestReportWarmupSingleView(t *testing.T) {
	src := &countingSource{}
	job, _ := newWarmupJob(t, src)

	require.NoError(t, job.Handle(context.Background(), warmupTask(t, "inventario")))
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestReportWarmupReportsFailedSlices(t *testing.T) {
	src := &countingSource{lowFail: errors.New("backend down")}
	job, _ := newWarmupJob(t, src)

	err := job.Handle(context.Background(), warmupTask(t, "inventario"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 slices failed")
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestReportWarmupRejectsBadPayloads(t *testing.T) {
	job, _ := newWarmupJob(t, &countingSource{})

	err := job.Handle(context.Background(), warmupTask(t, "finanzas"))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskReportWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	var unconfigured *ReportWarmupJob
	assert.Error(t, unconfigured.Handle(context.Background(), warmupTask(t)))
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestJobsHealth(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		pending   int
	}{
		{name: "no inspector", status: http.StatusOK},
		{name: "queue info", inspector: stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, status: http.StatusOK, pending: 3},
		{name: "redis down", inspector: stubInspector{err: errors.New("dial tcp")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(tc.inspector, nil).MountRoutes(r)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tc.status, rr.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body queueHealth
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, QueueDefault, body.Queue)
			assert.Equal(t, tc.pending, body.Pending)
		})
	}
}
