package backend

import "context"

const pathReports = "/api/reportes"

// SalesSummary aggregates sales of a period.
type SalesSummary struct {
	TotalVentas      float64 `json:"totalVentas"`
	CantidadVentas   int     `json:"cantidadVentas"`
	TicketPromedio   float64 `json:"ticketPromedio"`
	UnidadesVendidas int     `json:"unidadesVendidas"`
}

// SeriesPoint is one bucket of a sales time series.
type SeriesPoint struct {
	Periodo  string  `json:"periodo"`
	Total    float64 `json:"total"`
	Cantidad int     `json:"cantidad"`
}

// ProductRanking is a best-seller row.
type ProductRanking struct {
	ProductoID int64   `json:"productoId"`
	Nombre     string  `json:"nombre"`
	SKU        string  `json:"sku"`
	Unidades   int     `json:"unidades"`
	Total      float64 `json:"total"`
}

// AromaRanking aggregates units sold per aroma.
type AromaRanking struct {
	AromaID  int64   `json:"aromaId"`
	Nombre   string  `json:"nombre"`
	Unidades int     `json:"unidades"`
	Total    float64 `json:"total"`
}

// CustomerTypeBreakdown splits sales by customer type (minorista, mayorista, ...).
type CustomerTypeBreakdown struct {
	TipoCliente string  `json:"tipoCliente"`
	Cantidad    int     `json:"cantidad"`
	Total       float64 `json:"total"`
}

// InactiveCustomer is a customer without purchases for a while.
type InactiveCustomer struct {
	ClienteID    int64  `json:"clienteId"`
	Nombre       string `json:"nombre"`
	Email        string `json:"email"`
	TipoCliente  string `json:"tipoCliente"`
	UltimaCompra string `json:"ultimaCompra"`
	DiasInactivo int    `json:"diasInactivo"`
}

// LowStockItem is a product under its minimum stock.
type LowStockItem struct {
	ProductoID  int64  `json:"productoId"`
	Nombre      string `json:"nombre"`
	SKU         string `json:"sku"`
	Stock       int    `json:"stock"`
	StockMinimo int    `json:"stockMinimo"`
}

// SalesSummary returns totals for anio/mes/tipoCliente.
func (c *Client) SalesSummary(ctx context.Context, filters Params) (SalesSummary, error) {
	var out SalesSummary
	err := c.getJSON(ctx, pathReports+"/ventas/resumen", filters, &out)
	return out, err
}

// DailySales returns one point per day between fechaInicio and fechaFin.
func (c *Client) DailySales(ctx context.Context, filters Params) ([]SeriesPoint, error) {
	var out []SeriesPoint
	err := c.getJSON(ctx, pathReports+"/ventas/diarias", filters, &out)
	return out, err
}

// MonthlySales returns one point per month between fechaInicio and fechaFin.
func (c *Client) MonthlySales(ctx context.Context, filters Params) ([]SeriesPoint, error) {
	var out []SeriesPoint
	err := c.getJSON(ctx, pathReports+"/ventas/mensuales", filters, &out)
	return out, err
}

// BestSellers pages through the product ranking.
func (c *Client) BestSellers(ctx context.Context, req PageRequest, filters Params) (Page[ProductRanking], error) {
	return list[ProductRanking](ctx, c, pathReports+"/productos/mas-vendidos", req, filters)
}

// AromaRankings returns units sold per aroma, optionally within a family.
func (c *Client) AromaRankings(ctx context.Context, filters Params) ([]AromaRanking, error) {
	var out []AromaRanking
	err := c.getJSON(ctx, pathReports+"/aromas/ranking", filters, &out)
	return out, err
}

// SalesByCustomerType returns the customer type breakdown.
func (c *Client) SalesByCustomerType(ctx context.Context, filters Params) ([]CustomerTypeBreakdown, error) {
	var out []CustomerTypeBreakdown
	err := c.getJSON(ctx, pathReports+"/clientes/por-tipo", filters, &out)
	return out, err
}

// InactiveCustomers pages through customers inactive for at least diasInactividad days.
func (c *Client) InactiveCustomers(ctx context.Context, req PageRequest, filters Params) (Page[InactiveCustomer], error) {
	return list[InactiveCustomer](ctx, c, pathReports+"/clientes/inactivos", req, filters)
}

// LowStock pages through products under minimum stock.
func (c *Client) LowStock(ctx context.Context, req PageRequest, filters Params) (Page[LowStockItem], error) {
	return list[LowStockItem](ctx, c, pathReports+"/inventario/stock-bajo", req, filters)
}
