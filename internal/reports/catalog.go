package reports

import (
	"context"

	"github.com/decoaromas/decoaromas-admin/internal/backend"
)

// Report tabs.
const (
	ViewVentas     View = "ventas"
	ViewProductos  View = "productos"
	ViewClientes   View = "clientes"
	ViewInventario View = "inventario"
)

// Slice ids of the catalog.
const (
	SliceSalesSummary   = "ventas_resumen"
	SliceSalesTrend     = "ventas_tendencia"
	SliceSalesList      = "ventas_listado"
	SliceBestSellers    = "productos_mas_vendidos"
	SliceAromaRanking   = "aromas_ranking"
	SliceCustomerTypes  = "clientes_por_tipo"
	SliceInactive       = "clientes_inactivos"
	SliceLowStock       = "inventario_stock_bajo"
	defaultTableSize    = 10
	defaultRankingsSize = 5
)

// Views lists every report tab in display order.
var Views = []View{ViewVentas, ViewProductos, ViewClientes, ViewInventario}

// Source is the subset of the backend client the report catalog reads from.
type Source interface {
	SalesSummary(ctx context.Context, filters backend.Params) (backend.SalesSummary, error)
	DailySales(ctx context.Context, filters backend.Params) ([]backend.SeriesPoint, error)
	MonthlySales(ctx context.Context, filters backend.Params) ([]backend.SeriesPoint, error)
	ListSales(ctx context.Context, req backend.PageRequest, filters backend.Params) (backend.Page[backend.Sale], error)
	BestSellers(ctx context.Context, req backend.PageRequest, filters backend.Params) (backend.Page[backend.ProductRanking], error)
	AromaRankings(ctx context.Context, filters backend.Params) ([]backend.AromaRanking, error)
	SalesByCustomerType(ctx context.Context, filters backend.Params) ([]backend.CustomerTypeBreakdown, error)
	InactiveCustomers(ctx context.Context, req backend.PageRequest, filters backend.Params) (backend.Page[backend.InactiveCustomer], error)
	LowStock(ctx context.Context, req backend.PageRequest, filters backend.Params) (backend.Page[backend.LowStockItem], error)
}

// Trend is a sales series with the bucket size chosen for its range.
type Trend struct {
	Granularity Granularity           `json:"granularidad"`
	Desde       string                `json:"desde"`
	Hasta       string                `json:"hasta"`
	Points      []backend.SeriesPoint `json:"puntos"`
}

// SalesTrend fetches daily points for short ranges and monthly points for long ones.
func SalesTrend(ctx context.Context, src Source, f Filters) (Trend, error) {
	from, to, err := f.DateRange()
	if err != nil {
		return Trend{}, err
	}
	tr := Trend{
		Granularity: ChooseGranularity(from, to),
		Desde:       from.Format(dateLayout),
		Hasta:       to.Format(dateLayout),
	}
	params := f.Params("tipoCliente", "familiaId", "aromaId")
	params["fechaInicio"] = tr.Desde
	params["fechaFin"] = tr.Hasta
	if tr.Granularity == Monthly {
		tr.Points, err = src.MonthlySales(ctx, params)
	} else {
		tr.Points, err = src.DailySales(ctx, params)
	}
	return tr, err
}

// Catalog declares every report slice of the admin.
func Catalog(src Source) []Descriptor {
	return []Descriptor{
		{
			ID:    SliceSalesSummary,
			Views: []View{ViewVentas},
			Fetch: func(ctx context.Context, q Query) (any, error) {
				return src.SalesSummary(ctx, q.Filters.Params("anio", "mes", "tipoCliente", "fechaInicio", "fechaFin"))
			},
		},
		{
			ID:    SliceSalesTrend,
			Views: []View{ViewVentas},
			Fetch: func(ctx context.Context, q Query) (any, error) {
				return SalesTrend(ctx, src, q.Filters)
			},
		},
		{
			ID:          SliceSalesList,
			Views:       []View{ViewVentas},
			Paginated:   true,
			DefaultSize: defaultTableSize,
			Fetch: func(ctx context.Context, q Query) (any, error) {
				return src.ListSales(ctx, q.Page, q.Filters.Params("anio", "mes", "tipoCliente", "fechaInicio", "fechaFin"))
			},
		},
		{
			ID:          SliceBestSellers,
			Views:       []View{ViewVentas, ViewProductos},
			Paginated:   true,
			DefaultSize: defaultRankingsSize,
			Fetch: func(ctx context.Context, q Query) (any, error) {
				return src.BestSellers(ctx, q.Page, q.Filters.Params("anio", "mes", "familiaId", "aromaId", "fechaInicio", "fechaFin"))
			},
		},
		{
			ID:    SliceAromaRanking,
			Views: []View{ViewProductos},
			Fetch: func(ctx context.Context, q Query) (any, error) {
				return src.AromaRankings(ctx, q.Filters.Params("anio", "mes", "familiaId"))
			},
		},
		{
			ID:    SliceCustomerTypes,
			Views: []View{ViewClientes},
			Fetch: func(ctx context.Context, q Query) (any, error) {
				return src.SalesByCustomerType(ctx, q.Filters.Params("anio", "mes"))
			},
		},
		{
			ID:          SliceInactive,
			Views:       []View{ViewClientes},
			Paginated:   true,
			DefaultSize: defaultTableSize,
			Fetch: func(ctx context.Context, q Query) (any, error) {
				return src.InactiveCustomers(ctx, q.Page, q.Filters.Params("diasInactividad", "tipoCliente"))
			},
		},
		{
			ID:          SliceLowStock,
			Views:       []View{ViewInventario},
			Paginated:   true,
			DefaultSize: defaultTableSize,
			Fetch: func(ctx context.Context, q Query) (any, error) {
				return src.LowStock(ctx, q.Page, q.Filters.Params("familiaId", "aromaId"))
			},
		},
	}
}
