package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/decoaromas/decoaromas-admin/internal/backend"
)

// NoDataMessage is what a failed slice shows in place of its chart or table.
const NoDataMessage = "No hay datos disponibles."

var (
	// ErrUnknownSlice is returned by SetPage for ids outside the catalog.
	ErrUnknownSlice = errors.New("reports: unknown slice")
	// ErrNotPaginated is returned by SetPage for slices without pagination.
	ErrNotPaginated = errors.New("reports: slice is not paginated")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("reports: orchestrator closed")
)

// Slice is the render state of one descriptor.
type Slice struct {
	ID      string               `json:"id"`
	Loading bool                 `json:"loading"`
	Data    any                  `json:"data"`
	Error   string               `json:"error,omitempty"`
	Page    *backend.PageRequest `json:"page,omitempty"`
	// Generation increases with every fetch started for the slice.
	Generation uint64 `json:"generation"`
}

// FetchObserver receives one notification per settled fetch.
type FetchObserver interface {
	ObserveFetch(slice string, err error, took time.Duration)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithListener registers fn for every slice transition. Listeners run serially
// and must not call back into the orchestrator.
func WithListener(fn func(Slice)) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.listeners = append(o.listeners, fn)
		}
	}
}

// WithObserver reports settled fetches, typically to metrics.
func WithObserver(obs FetchObserver) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithClock overrides the clock used for default filters.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithMaxConcurrency bounds the fetches in flight per refresh cycle.
func WithMaxConcurrency(n int) Option {
	return func(o *Orchestrator) { o.maxConcurrency = n }
}

// Orchestrator re-runs the fetches of the active view whenever filters, view or pagination change.
type Orchestrator struct {
	descriptors    []Descriptor
	byID           map[string]Descriptor
	logger         *slog.Logger
	observer       FetchObserver
	listeners      []func(Slice)
	now            func() time.Time
	maxConcurrency int

	mu      sync.Mutex
	view    View
	filters FilterState
	pages   map[string]backend.PageRequest
	slices  map[string]Slice
	version uint64
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	notifyMu sync.Mutex
	emitted  map[string]uint64
}

// New builds an Orchestrator over descriptors. No fetch runs until a view is selected.
func New(descriptors []Descriptor, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		byID:    make(map[string]Descriptor, len(descriptors)),
		logger:  slog.Default(),
		now:     time.Now,
		pages:   make(map[string]backend.PageRequest),
		slices:  make(map[string]Slice),
		emitted: make(map[string]uint64),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(slog.String("component", "reports"))
	for _, d := range descriptors {
		if d.ID == "" || d.Fetch == nil {
			continue
		}
		if _, dup := o.byID[d.ID]; dup {
			continue
		}
		o.descriptors = append(o.descriptors, d)
		o.byID[d.ID] = d
		if d.Paginated {
			o.pages[d.ID] = backend.PageRequest{Size: d.DefaultSize}.Normalize()
		}
	}
	o.filters = NewFilterState(func() Filters { return DefaultFilters(o.now()) })
	return o
}

// View returns the active view tag.
func (o *Orchestrator) View() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.view
}

// Pending returns the filters being edited.
func (o *Orchestrator) Pending() Filters {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.filters.Pending()
}

// Active returns the applied filters.
func (o *Orchestrator) Active() Filters {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.filters.Active()
}

// SetView switches tabs and fetches every slice of the new view.
func (o *Orchestrator) SetView(view View) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.view = view
	b := o.prepare(o.applicable())
	o.mu.Unlock()
	o.launch(b)
	return nil
}

// EditFilters replaces the pending filters. Nothing is fetched.
func (o *Orchestrator) EditFilters(f Filters) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.filters.Edit(f)
}

// Apply activates the pending filters, resets every table to its first page and refetches the view.
func (o *Orchestrator) Apply() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if err := o.filters.Apply(); err != nil {
		o.mu.Unlock()
		return err
	}
	o.resetPages()
	b := o.prepare(o.applicable())
	o.mu.Unlock()
	o.launch(b)
	return nil
}

// Clear restores default filters and refetches the view.
func (o *Orchestrator) Clear() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.filters.Clear()
	o.resetPages()
	b := o.prepare(o.applicable())
	o.mu.Unlock()
	o.launch(b)
	return nil
}

// SetPage changes one table's page and size and refetches that table only.
func (o *Orchestrator) SetPage(id string, page, size int) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	d, ok := o.byID[id]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSlice, id)
	}
	if !d.Paginated {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotPaginated, id)
	}
	req := o.pages[id]
	req.Page = page
	if size > 0 {
		req.Size = size
	}
	o.pages[id] = req.Normalize()
	var b batch
	if d.AppliesTo(o.view) {
		b = o.prepare([]Descriptor{d})
	}
	o.mu.Unlock()
	o.launch(b)
	return nil
}

// Refresh refetches the active view with unchanged filters and pages.
func (o *Orchestrator) Refresh() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	b := o.prepare(o.applicable())
	o.mu.Unlock()
	o.launch(b)
	return nil
}

// Slice returns the state of one slice.
func (o *Orchestrator) Slice(id string) (Slice, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.slices[id]
	return s, ok
}

// PageOf returns the page request of a paginated table.
func (o *Orchestrator) PageOf(id string) (backend.PageRequest, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.pages[id]
	return p, ok
}

// Snapshot returns the slices of the active view in catalog order.
func (o *Orchestrator) Snapshot() []Slice {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Slice, 0, len(o.descriptors))
	for _, d := range o.applicable() {
		if s, ok := o.slices[d.ID]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Wait blocks until every launched fetch has settled.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close cancels in-flight fetches and waits for them to return.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.cancel()
	o.mu.Unlock()
	o.wg.Wait()
}

type job struct {
	desc  Descriptor
	query Query
	gen   uint64
}

// applicable must be called with mu held.
func (o *Orchestrator) applicable() []Descriptor {
	out := make([]Descriptor, 0, len(o.descriptors))
	for _, d := range o.descriptors {
		if d.AppliesTo(o.view) {
			out = append(out, d)
		}
	}
	return out
}

// resetPages must be called with mu held.
func (o *Orchestrator) resetPages() {
	for id, req := range o.pages {
		req.Page = 0
		o.pages[id] = req
	}
}

type versionedSlice struct {
	slice   Slice
	version uint64
}

type batch struct {
	ctx    context.Context
	jobs   []job
	states []versionedSlice
}

// prepare marks descriptors loading and builds their jobs. Must be called with mu held.
func (o *Orchestrator) prepare(descs []Descriptor) batch {
	if len(descs) == 0 {
		return batch{}
	}
	active := o.filters.Active()
	b := batch{ctx: o.ctx, jobs: make([]job, 0, len(descs)), states: make([]versionedSlice, 0, len(descs))}
	for _, d := range descs {
		s := o.slices[d.ID]
		s.ID = d.ID
		s.Loading = true
		s.Error = ""
		s.Generation++
		q := Query{Filters: active}
		if d.Paginated {
			req := o.pages[d.ID]
			q.Page = req
			s.Page = &req
		}
		o.slices[d.ID] = s
		b.jobs = append(b.jobs, job{desc: d, query: q, gen: s.Generation})
		b.states = append(b.states, o.commitLocked(s))
	}
	o.wg.Add(1)
	return b
}

// launch publishes the loading states and fans the fetches out.
func (o *Orchestrator) launch(b batch) {
	if len(b.jobs) == 0 {
		return
	}
	for _, s := range b.states {
		o.notify(s)
	}

	go func() {
		defer o.wg.Done()
		var g errgroup.Group
		if o.maxConcurrency > 0 {
			g.SetLimit(o.maxConcurrency)
		}
		for _, j := range b.jobs {
			g.Go(func() error {
				o.run(b.ctx, j)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

// run executes one fetch; failures stay local to the slice.
func (o *Orchestrator) run(ctx context.Context, j job) {
	start := time.Now()
	data, err := j.desc.Fetch(ctx, j.query)
	took := time.Since(start)
	if o.observer != nil {
		o.observer.ObserveFetch(j.desc.ID, err, took)
	}

	o.mu.Lock()
	cur := o.slices[j.desc.ID]
	if o.closed || cur.Generation != j.gen {
		o.mu.Unlock()
		o.logger.Debug("discard superseded report fetch", slog.String("slice", j.desc.ID), slog.Uint64("generation", j.gen))
		return
	}
	cur.Loading = false
	if err != nil {
		cur.Data = nil
		cur.Error = NoDataMessage
		o.logger.Warn("report fetch failed", slog.String("slice", j.desc.ID), slog.Any("error", err), slog.Duration("took", took))
	} else {
		cur.Data = data
		cur.Error = ""
	}
	o.slices[j.desc.ID] = cur
	s := o.commitLocked(cur)
	o.mu.Unlock()
	o.notify(s)
}

func (o *Orchestrator) commitLocked(s Slice) versionedSlice {
	o.version++
	return versionedSlice{slice: s, version: o.version}
}

// notify delivers slice states per id in commit order.
func (o *Orchestrator) notify(s versionedSlice) {
	if len(o.listeners) == 0 {
		return
	}
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()
	if s.version <= o.emitted[s.slice.ID] {
		return
	}
	o.emitted[s.slice.ID] = s.version
	for _, fn := range o.listeners {
		fn(s.slice)
	}
}
