package backend

import (
	"context"
	"net/http"
	"strconv"
)

const (
	pathProducts = "/api/productos"
	pathAromas   = "/api/aromas"
	pathFamilies = "/api/familias"
	pathUsers    = "/api/usuarios"
	pathSales    = "/api/ventas"
)

func itemPath(base string, id int64) string {
	return base + "/" + strconv.FormatInt(id, 10)
}

func get[T any](ctx context.Context, c *Client, path string) (T, error) {
	var out T
	err := c.getJSON(ctx, path, nil, &out)
	return out, err
}

func list[T any](ctx context.Context, c *Client, path string, req PageRequest, filters Params) (Page[T], error) {
	var out Page[T]
	err := c.getJSON(ctx, path, req.Params(filters), &out)
	return out, err
}

func send[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var out T
	err := c.sendJSON(ctx, method, path, body, &out)
	return out, err
}

// GetProduct loads one product.
func (c *Client) GetProduct(ctx context.Context, id int64) (Product, error) {
	return get[Product](ctx, c, itemPath(pathProducts, id))
}

// CreateProduct creates a product.
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	return send[Product](ctx, c, http.MethodPost, pathProducts, in)
}

// UpdateProduct replaces a product.
func (c *Client) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	return send[Product](ctx, c, http.MethodPut, itemPath(pathProducts, id), in)
}

// GetAroma loads one aroma.
func (c *Client) GetAroma(ctx context.Context, id int64) (Aroma, error) {
	return get[Aroma](ctx, c, itemPath(pathAromas, id))
}

// CreateAroma creates an aroma.
func (c *Client) CreateAroma(ctx context.Context, in NameInput) (Aroma, error) {
	return send[Aroma](ctx, c, http.MethodPost, pathAromas, in)
}

// UpdateAroma renames an aroma.
func (c *Client) UpdateAroma(ctx context.Context, id int64, in NameInput) (Aroma, error) {
	return send[Aroma](ctx, c, http.MethodPut, itemPath(pathAromas, id), in)
}

// GetFamily loads one family.
func (c *Client) GetFamily(ctx context.Context, id int64) (Family, error) {
	return get[Family](ctx, c, itemPath(pathFamilies, id))
}

// CreateFamily creates a family.
func (c *Client) CreateFamily(ctx context.Context, in NameInput) (Family, error) {
	return send[Family](ctx, c, http.MethodPost, pathFamilies, in)
}

// UpdateFamily updates a family.
func (c *Client) UpdateFamily(ctx context.Context, id int64, in NameInput) (Family, error) {
	return send[Family](ctx, c, http.MethodPut, itemPath(pathFamilies, id), in)
}

// GetUser loads one user.
func (c *Client) GetUser(ctx context.Context, id int64) (User, error) {
	return get[User](ctx, c, itemPath(pathUsers, id))
}

// GetProfile loads the account the client token belongs to.
func (c *Client) GetProfile(ctx context.Context) (User, error) {
	return get[User](ctx, c, pathUsers+"/perfil")
}

// CreateUser creates a user as an admin.
func (c *Client) CreateUser(ctx context.Context, in UserInput) (User, error) {
	return send[User](ctx, c, http.MethodPost, pathUsers, in)
}

// UpdateUser updates a user as an admin.
func (c *Client) UpdateUser(ctx context.Context, id int64, in UserInput) (User, error) {
	return send[User](ctx, c, http.MethodPut, itemPath(pathUsers, id), in)
}

// UpdateProfile updates the caller's own account.
func (c *Client) UpdateProfile(ctx context.Context, in ProfileInput) (User, error) {
	return send[User](ctx, c, http.MethodPut, pathUsers+"/perfil", in)
}

// Register creates an account through the public registration endpoint.
func (c *Client) Register(ctx context.Context, in RegistrationInput) (User, error) {
	return send[User](ctx, c, http.MethodPost, "/api/auth/register", in)
}

// ListSales pages through sales; filters may carry anio, mes, tipoCliente, fechaInicio, fechaFin.
func (c *Client) ListSales(ctx context.Context, req PageRequest, filters Params) (Page[Sale], error) {
	return list[Sale](ctx, c, pathSales, req, filters)
}
