package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decoaromas/decoaromas-admin/internal/availability"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Token: "secret"}, nil)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestCheckAvailabilityMapsResponses(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/aromas/check-nombre", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.URL.Query().Get("nombre") {
		case "Menta":
			writeJSON(w, http.StatusOK, map[string]any{"available": true, "message": "Nombre disponible"})
		case "Lavanda":
			writeJSON(w, http.StatusConflict, map[string]any{"available": false, "message": "Ya existe"})
		case "Rosa":
			writeJSON(w, http.StatusOK, map[string]any{"available": false, "message": "En uso"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "boom"})
		}
	})
	ctx := context.Background()

	res := client.CheckAvailability(ctx, availability.EntityAromaName, "Menta")
	assert.Equal(t, availability.OutcomeAvailable, res.Outcome)
	assert.Equal(t, "Nombre disponible", res.Message)

	res = client.CheckAvailability(ctx, availability.EntityAromaName, "Lavanda")
	assert.Equal(t, availability.OutcomeTaken, res.Outcome)
	assert.Equal(t, "Ya existe", res.Message)

	res = client.Checker(availability.EntityAromaName).Check(ctx, "Rosa")
	assert.Equal(t, availability.OutcomeTaken, res.Outcome)
	assert.Equal(t, "En uso", res.Message)

	res = client.CheckAvailability(ctx, availability.EntityAromaName, "Canela")
	assert.Equal(t, availability.OutcomeTransient, res.Outcome)
	var statusErr *StatusError
	require.ErrorAs(t, res.Err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
}

func TestCheckAvailabilityUsesEntityEndpoint(t *testing.T) {
	var gotPath, gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, map[string]any{"available": true})
	})

	res := client.CheckAvailability(context.Background(), availability.EntityEmail, "ana@decoaromas.cl")
	assert.Equal(t, availability.OutcomeAvailable, res.Outcome)
	assert.Equal(t, "/api/usuarios/check-email", gotPath)
	assert.Equal(t, "email=ana%40decoaromas.cl", gotQuery)

	res = client.CheckAvailability(context.Background(), "desconocido", "x")
	assert.Equal(t, availability.OutcomeTransient, res.Outcome)
}

func TestCheckAvailabilityNetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(Config{BaseURL: srv.URL}, nil)

	res := client.CheckAvailability(context.Background(), availability.EntityUsername, "ana")
	assert.Equal(t, availability.OutcomeTransient, res.Outcome)
	assert.Error(t, res.Err)
}

func TestMutationErrorTaxonomy(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/productos":
			writeJSON(w, http.StatusBadRequest, map[string]any{"details": map[string]string{"nombre": "es obligatorio"}})
		case "/api/productos/7":
			writeJSON(w, http.StatusConflict, map[string]any{"error": "El SKU ya existe"})
		case "/api/productos/8":
			writeJSON(w, http.StatusOK, map[string]any{"id": 8, "nombre": "Vela Coco", "sku": "VC-01"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	_, err := client.CreateProduct(ctx, ProductInput{})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "es obligatorio", vErr.Details["nombre"])

	_, err = client.UpdateProduct(ctx, 7, ProductInput{Nombre: "x"})
	var cErr *ConflictError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, "El SKU ya existe", cErr.Message)

	p, err := client.UpdateProduct(ctx, 8, ProductInput{Nombre: "Vela Coco"})
	require.NoError(t, err)
	assert.Equal(t, int64(8), p.ID)

	_, err = client.GetAroma(ctx, 99)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListSendsPaginationAndFilters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/reportes/clientes/inactivos", r.URL.Path)
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "25", q.Get("size"))
		assert.Equal(t, "60", q.Get("diasInactividad"))
		assert.False(t, q.Has("tipoCliente"), "empty filters are dropped")
		writeJSON(w, http.StatusOK, NewPage([]InactiveCustomer{{ClienteID: 1, Nombre: "Ana"}}, 2, 25, 51))
	})

	page, err := client.InactiveCustomers(context.Background(), PageRequest{Page: 2, Size: 25}, Params{"diasInactividad": "60", "tipoCliente": ""})
	require.NoError(t, err)
	assert.Equal(t, 2, page.PageNumber)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "Ana", page.Content[0].Nombre)
}

func TestListSalesSendsSortAndFilters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/ventas", r.URL.Path)
		assert.Equal(t, "0", q.Get("page"))
		assert.Equal(t, "10", q.Get("size"))
		assert.Equal(t, "fecha", q.Get("sortBy"))
		assert.Equal(t, "2024", q.Get("anio"))
		writeJSON(w, http.StatusOK, NewPage([]Sale{{ID: 5, Cliente: "Ana", Total: 12990}}, 0, 10, 1))
	})

	page, err := client.ListSales(context.Background(), PageRequest{SortBy: "fecha"}, Params{"anio": "2024"})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, int64(5), page.Content[0].ID)
	assert.Equal(t, 1, page.TotalPages)
}

func TestPageRequestNormalize(t *testing.T) {
	req := PageRequest{Page: -3, Size: 0}.Normalize()
	assert.Equal(t, 0, req.Page)
	assert.Equal(t, DefaultPageSize, req.Size)

	page := NewPage[int](nil, 0, 10, 0)
	assert.Zero(t, page.TotalPages)
}
