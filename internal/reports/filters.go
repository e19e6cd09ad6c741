// Package reports coordinates the filtered, paginated data fetches behind the report screens.
package reports

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/decoaromas/decoaromas-admin/internal/backend"
)

const dateLayout = "2006-01-02"

// DefaultInactivityDays is the inactivity threshold of a fresh filter set.
const DefaultInactivityDays = 90

// ErrInvalidFilters wraps every filter validation failure.
var ErrInvalidFilters = errors.New("reports: invalid filters")

// ErrNoDateRange is returned by fetches that need a range when filters carry none.
var ErrNoDateRange = errors.New("reports: no date range")

// Filters are the report query parameters as edited in the filter bar.
type Filters struct {
	Anio            string `json:"anio" validate:"omitempty,len=4,numeric"`
	Mes             string `json:"mes" validate:"omitempty,oneof=1 2 3 4 5 6 7 8 9 10 11 12"`
	TipoCliente     string `json:"tipoCliente" validate:"omitempty,max=40"`
	FamiliaID       string `json:"familiaId" validate:"omitempty,numeric"`
	AromaID         string `json:"aromaId" validate:"omitempty,numeric"`
	FechaInicio     string `json:"fechaInicio" validate:"omitempty,datetime=2006-01-02"`
	FechaFin        string `json:"fechaFin" validate:"omitempty,datetime=2006-01-02"`
	DiasInactividad int    `json:"diasInactividad" validate:"gte=0,lte=3650"`
}

// DefaultFilters is the current year with no month and no date range.
func DefaultFilters(now time.Time) Filters {
	return Filters{
		Anio:            strconv.Itoa(now.Year()),
		DiasInactividad: DefaultInactivityDays,
	}
}

var validate = validator.New()

// Validate checks field formats and that the range is not inverted.
func (f Filters) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFilters, err)
	}
	if (f.FechaInicio == "") != (f.FechaFin == "") {
		return fmt.Errorf("%w: fechaInicio and fechaFin go together", ErrInvalidFilters)
	}
	if f.FechaInicio != "" && f.FechaFin < f.FechaInicio {
		return fmt.Errorf("%w: fechaFin before fechaInicio", ErrInvalidFilters)
	}
	return nil
}

// Params renders the named filters as backend query parameters. With no names, all are rendered.
func (f Filters) Params(names ...string) backend.Params {
	all := backend.Params{
		"anio":        f.Anio,
		"mes":         f.Mes,
		"tipoCliente": f.TipoCliente,
		"familiaId":   f.FamiliaID,
		"aromaId":     f.AromaID,
		"fechaInicio": f.FechaInicio,
		"fechaFin":    f.FechaFin,
	}
	if f.DiasInactividad > 0 {
		all["diasInactividad"] = strconv.Itoa(f.DiasInactividad)
	}
	if len(names) == 0 {
		return all.Clone()
	}
	out := backend.Params{}
	for _, name := range names {
		if v := all[name]; v != "" {
			out[name] = v
		}
	}
	return out
}

// DateRange resolves the explicit range, else the selected month, else the selected year.
func (f Filters) DateRange() (from, to time.Time, err error) {
	if f.FechaInicio != "" && f.FechaFin != "" {
		if from, err = time.Parse(dateLayout, f.FechaInicio); err != nil {
			return from, to, fmt.Errorf("%w: %v", ErrInvalidFilters, err)
		}
		if to, err = time.Parse(dateLayout, f.FechaFin); err != nil {
			return from, to, fmt.Errorf("%w: %v", ErrInvalidFilters, err)
		}
		return from, to, nil
	}
	if f.Anio == "" {
		return from, to, ErrNoDateRange
	}
	year, err := strconv.Atoi(f.Anio)
	if err != nil {
		return from, to, fmt.Errorf("%w: anio %q", ErrInvalidFilters, f.Anio)
	}
	if f.Mes == "" {
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC), nil
	}
	month, err := strconv.Atoi(f.Mes)
	if err != nil || month < 1 || month > 12 {
		return from, to, fmt.Errorf("%w: mes %q", ErrInvalidFilters, f.Mes)
	}
	from = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, -1), nil
}

// Query is what one fetch receives: the active filters and, for tables, its own page.
type Query struct {
	Filters Filters             `json:"filters"`
	Page    backend.PageRequest `json:"page"`
}

// Key is a stable encoding of the query, used for cache keys.
func (q Query) Key() string {
	vals := url.Values{}
	for k, v := range q.Filters.Params() {
		vals.Set(k, v)
	}
	page := q.Page.Normalize()
	vals.Set("page", strconv.Itoa(page.Page))
	vals.Set("size", strconv.Itoa(page.Size))
	if page.SortBy != "" {
		vals.Set("sortBy", page.SortBy)
	}
	return vals.Encode()
}

// FilterState splits the filter bar's in-progress edits from the set last applied.
type FilterState struct {
	pending  Filters
	active   Filters
	defaults func() Filters
}

// NewFilterState starts both sets at defaults().
func NewFilterState(defaults func() Filters) FilterState {
	d := defaults()
	return FilterState{pending: d, active: d, defaults: defaults}
}

// Pending returns the edited filters.
func (s *FilterState) Pending() Filters { return s.pending }

// Active returns the applied filters.
func (s *FilterState) Active() Filters { return s.active }

// Edit replaces the pending filters only.
func (s *FilterState) Edit(f Filters) { s.pending = f }

// Apply validates the pending filters and makes them active.
func (s *FilterState) Apply() error {
	if err := s.pending.Validate(); err != nil {
		return err
	}
	s.active = s.pending
	return nil
}

// Clear resets both sets to defaults.
func (s *FilterState) Clear() {
	d := s.defaults()
	s.pending = d
	s.active = d
}
