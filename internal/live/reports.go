package live

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/decoaromas/decoaromas-admin/internal/platform/httpx"
	"github.com/decoaromas/decoaromas-admin/internal/reports"
)

var errUnknownView = errors.New("vista de reporte desconocida")

type filtersFrame struct {
	Pending reports.Filters `json:"pending"`
	Active  reports.Filters `json:"active"`
}

func knownView(v reports.View) bool {
	return slices.Contains(reports.Views, v)
}

func (h *Handler) handleReports(w http.ResponseWriter, r *http.Request) {
	view := reports.View(r.URL.Query().Get("view"))
	if view == "" {
		view = reports.ViewVentas
	}
	if !knownView(view) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", errUnknownView.Error())
		return
	}
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("live upgrade failed", slog.Any("error", err))
		return
	}
	c := newConn(ws, h.logger.With(slog.String("screen", "reports")))
	defer h.metrics.SessionOpened("reports")()

	o := h.newOrchestrator(reports.WithListener(func(s reports.Slice) { c.push("slice", s) }))
	h.mu.Lock()
	h.reports[c.id] = o
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.reports, c.id)
		h.mu.Unlock()
		o.Close()
	}()

	c.push("filters", filtersFrame{Pending: o.Pending(), Active: o.Active()})
	if err := o.SetView(view); err != nil {
		c.pushError(err)
	}
	c.serve(func(msg Inbound) { h.handleReportMessage(c, o, msg) })
}

func (h *Handler) handleReportMessage(c *conn, o *reports.Orchestrator, msg Inbound) {
	var err error
	switch msg.Type {
	case "view":
		v := reports.View(msg.View)
		if !knownView(v) {
			err = errUnknownView
			break
		}
		err = o.SetView(v)
	case "filters":
		if msg.Filters == nil {
			err = errors.New("faltan los filtros")
			break
		}
		o.EditFilters(*msg.Filters)
	case "apply":
		err = o.Apply()
	case "clear":
		err = o.Clear()
	case "page":
		err = o.SetPage(msg.Table, msg.Page, msg.Size)
	case "refresh":
		err = o.Refresh()
	default:
		err = errors.New("tipo de mensaje desconocido: " + msg.Type)
	}
	if err != nil {
		c.pushError(err)
	}
	switch msg.Type {
	case "filters", "apply", "clear":
		c.push("filters", filtersFrame{Pending: o.Pending(), Active: o.Active()})
	}
}

// handleReportSnapshot renders every slice of one view as a single JSON document.
func (h *Handler) handleReportSnapshot(w http.ResponseWriter, r *http.Request) {
	view := reports.View(chi.URLParam(r, "view"))
	if !knownView(view) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", errUnknownView.Error())
		return
	}
	f, err := filtersFromQuery(r, reports.DefaultFilters(h.now()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	o := h.newOrchestrator()
	defer o.Close()
	o.EditFilters(f)
	if err := o.Apply(); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if err := o.SetView(view); err != nil {
		httpx.RespondError(w, err)
		return
	}
	o.Wait()
	httpx.JSON(w, http.StatusOK, map[string]any{
		"view":    view,
		"filters": o.Active(),
		"slices":  o.Snapshot(),
	})
}

func filtersFromQuery(r *http.Request, base reports.Filters) (reports.Filters, error) {
	q := r.URL.Query()
	set := func(dst *string, key string) {
		if q.Has(key) {
			*dst = q.Get(key)
		}
	}
	set(&base.Anio, "anio")
	set(&base.Mes, "mes")
	set(&base.TipoCliente, "tipoCliente")
	set(&base.FamiliaID, "familiaId")
	set(&base.AromaID, "aromaId")
	set(&base.FechaInicio, "fechaInicio")
	set(&base.FechaFin, "fechaFin")
	if raw := q.Get("diasInactividad"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return base, fmt.Errorf("%w: diasInactividad %q", httpx.ErrValidation, raw)
		}
		base.DiasInactividad = n
	}
	return base, nil
}
