package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decoaromas/decoaromas-admin/internal/backend"
)

func TestDefaultFilters(t *testing.T) {
	f := DefaultFilters(time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, Filters{Anio: "2025", DiasInactividad: DefaultInactivityDays}, f)
	require.NoError(t, f.Validate())
}

func TestFiltersValidate(t *testing.T) {
	cases := []struct {
		name    string
		filters Filters
		wantErr bool
	}{
		{name: "year and month", filters: Filters{Anio: "2024", Mes: "3"}},
		{name: "range", filters: Filters{FechaInicio: "2024-01-01", FechaFin: "2024-02-01"}},
		{name: "bad month", filters: Filters{Anio: "2024", Mes: "0"}, wantErr: true},
		{name: "bad year", filters: Filters{Anio: "24"}, wantErr: true},
		{name: "bad date", filters: Filters{FechaInicio: "2024-13-01", FechaFin: "2024-12-01"}, wantErr: true},
		{name: "half range", filters: Filters{FechaInicio: "2024-01-01"}, wantErr: true},
		{name: "inverted range", filters: Filters{FechaInicio: "2024-03-01", FechaFin: "2024-02-01"}, wantErr: true},
		{name: "negative inactivity", filters: Filters{DiasInactividad: -1}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.filters.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFilters)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFiltersParamsSelectsNonEmptyNames(t *testing.T) {
	f := Filters{Anio: "2024", Mes: "", FamiliaID: "4", DiasInactividad: 30}

	assert.Equal(t, backend.Params{"anio": "2024", "familiaId": "4"}, f.Params("anio", "mes", "familiaId"))
	assert.Equal(t, backend.Params{"anio": "2024", "familiaId": "4", "diasInactividad": "30"}, f.Params())
}

func TestDateRange(t *testing.T) {
	from, to, err := Filters{Anio: "2024", Mes: "2"}.DateRange()
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", from.Format(dateLayout))
	assert.Equal(t, "2024-02-29", to.Format(dateLayout))

	from, to, err = Filters{Anio: "2023"}.DateRange()
	require.NoError(t, err)
	assert.Equal(t, "2023-01-01", from.Format(dateLayout))
	assert.Equal(t, "2023-12-31", to.Format(dateLayout))

	from, to, err = Filters{Anio: "2023", FechaInicio: "2023-05-01", FechaFin: "2023-05-20"}.DateRange()
	require.NoError(t, err)
	assert.Equal(t, "2023-05-01", from.Format(dateLayout))
	assert.Equal(t, "2023-05-20", to.Format(dateLayout))

	_, _, err = Filters{}.DateRange()
	assert.ErrorIs(t, err, ErrNoDateRange)
}

func TestQueryKeyIsStable(t *testing.T) {
	q := Query{Filters: Filters{Anio: "2024", Mes: "3"}, Page: backend.PageRequest{Page: 1, Size: 5}}
	assert.Equal(t, "anio=2024&mes=3&page=1&size=5", q.Key())

	other := Query{Filters: Filters{Anio: "2024", Mes: "4"}, Page: q.Page}
	assert.NotEqual(t, q.Key(), other.Key())
}

func TestFilterStateApplyAndClear(t *testing.T) {
	state := NewFilterState(func() Filters { return Filters{Anio: "2024"} })

	state.Edit(Filters{Anio: "2024", Mes: "3"})
	assert.Equal(t, "", state.Active().Mes)
	require.NoError(t, state.Apply())
	assert.Equal(t, "3", state.Active().Mes)

	state.Edit(Filters{Mes: "99"})
	assert.Error(t, state.Apply())
	assert.Equal(t, "3", state.Active().Mes)

	state.Clear()
	assert.Equal(t, Filters{Anio: "2024"}, state.Active())
	assert.Equal(t, Filters{Anio: "2024"}, state.Pending())
}

func TestChooseGranularity(t *testing.T) {
	day := func(s string) time.Time {
		d, err := time.Parse(dateLayout, s)
		require.NoError(t, err)
		return d
	}
	assert.Equal(t, Daily, ChooseGranularity(day("2024-01-01"), day("2024-03-31")))
	assert.Equal(t, Daily, ChooseGranularity(day("2024-01-01"), day("2024-01-01")))
	assert.Equal(t, Monthly, ChooseGranularity(day("2024-01-01"), day("2024-04-01")))
	assert.Equal(t, Monthly, ChooseGranularity(day("2024-12-31"), day("2024-01-01")))
}
