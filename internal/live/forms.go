package live

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/decoaromas/decoaromas-admin/internal/availability"
	"github.com/decoaromas/decoaromas-admin/internal/backend"
	"github.com/decoaromas/decoaromas-admin/internal/forms"
	"github.com/decoaromas/decoaromas-admin/internal/platform/httpx"
)

const notReadyMessage = "Revisa los campos marcados antes de guardar."

type fieldFrame struct {
	Field string             `json:"field"`
	State availability.Field `json:"state"`
}

type formFrame struct {
	Kind   forms.Kind                    `json:"kind"`
	ID     int64                         `json:"id,omitempty"`
	Fields map[string]availability.Field `json:"fields"`
	Gate   forms.Gate                    `json:"gate"`
}

func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	kind := forms.Kind(chi.URLParam(r, "kind"))
	if _, ok := forms.Lookup(kind); !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown form "+string(kind))
		return
	}
	var id int64
	if raw := r.URL.Query().Get("id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "id must be a positive integer")
			return
		}
		id = parsed
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var current atomic.Pointer[forms.Editor]
	var c *conn
	editor, err := forms.Open(r.Context(), h.backend, kind, id, func(name string, field availability.Field) {
		ed := current.Load()
		if ed == nil {
			return
		}
		c.push("field", fieldFrame{Field: name, State: field})
		c.push("gate", ed.Gate())
	}, h.validatorOptions()...)
	if err != nil {
		h.logger.Warn("open live form", slog.String("kind", string(kind)), slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	defer editor.Close()

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("live upgrade failed", slog.Any("error", err))
		return
	}
	c = newConn(ws, h.logger.With(slog.String("form", string(kind))))
	defer h.metrics.SessionOpened("form")()

	c.push("form", snapshotForm(editor, id))
	current.Store(editor)
	c.serve(func(msg Inbound) { h.handleFormMessage(ctx, c, editor, msg) })
}

func snapshotForm(ed *forms.Editor, id int64) formFrame {
	out := formFrame{Kind: ed.Kind(), ID: id, Fields: map[string]availability.Field{}, Gate: ed.Gate()}
	for _, name := range ed.Names() {
		if st, err := ed.Field(name); err == nil {
			out.Fields[name] = st
		}
	}
	return out
}

func (h *Handler) handleFormMessage(ctx context.Context, c *conn, ed *forms.Editor, msg Inbound) {
	switch msg.Type {
	case "input":
		if err := ed.Input(msg.Field, msg.Value); err != nil {
			c.pushError(err)
		}
	case "ack":
		if err := ed.Acknowledge(msg.Field); err != nil {
			c.pushError(err)
			return
		}
		c.push("gate", ed.Gate())
	case "submit":
		h.submit(ctx, c, ed, msg)
	default:
		c.pushError(errors.New("tipo de mensaje desconocido: " + msg.Type))
	}
}

func (h *Handler) submit(ctx context.Context, c *conn, ed *forms.Editor, msg Inbound) {
	err := ed.Save(ctx, msg.Payload)
	var serr *forms.SubmitError
	switch {
	case err == nil:
		if berr := h.cache.Bump(ctx); berr != nil {
			c.logger.Warn("report cache bump", slog.Any("error", berr))
		}
		c.push("submitted", map[string]string{"kind": string(ed.Kind())})
	case errors.As(err, &serr):
		c.push("submit_error", serr)
	case errors.Is(err, forms.ErrNotReady):
		c.push("submit_error", &forms.SubmitError{General: notReadyMessage})
		c.push("gate", ed.Gate())
	case errors.Is(err, forms.ErrBadPayload):
		c.pushError(err)
	default:
		c.logger.Error("live form submit", slog.String("kind", string(ed.Kind())), slog.Any("error", err))
		c.pushMessage(publicMessage(err))
	}
}

func publicMessage(err error) string {
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		return "Sesión expirada o sin permisos."
	case errors.Is(err, backend.ErrNotFound):
		return "El registro ya no existe."
	default:
		return "No se pudo guardar. Intenta nuevamente."
	}
}
