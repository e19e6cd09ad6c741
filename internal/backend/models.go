package backend

// Product is a sellable item.
type Product struct {
	ID          int64   `json:"id"`
	Nombre      string  `json:"nombre"`
	SKU         string  `json:"sku"`
	Descripcion string  `json:"descripcion,omitempty"`
	PrecioVenta float64 `json:"precioVenta"`
	Stock       int     `json:"stock"`
	StockMinimo int     `json:"stockMinimo"`
	FamiliaID   int64   `json:"familiaId"`
	AromaID     int64   `json:"aromaId"`
	Activo      bool    `json:"activo"`
}

// ProductInput is the create/update payload of a product.
type ProductInput struct {
	Nombre      string  `json:"nombre" validate:"required,max=120"`
	SKU         string  `json:"sku" validate:"required,max=40"`
	Descripcion string  `json:"descripcion,omitempty" validate:"max=500"`
	PrecioVenta float64 `json:"precioVenta" validate:"gt=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	StockMinimo int     `json:"stockMinimo" validate:"gte=0"`
	FamiliaID   int64   `json:"familiaId" validate:"required,gt=0"`
	AromaID     int64   `json:"aromaId" validate:"required,gt=0"`
	Activo      bool    `json:"activo"`
}

// Aroma is a fragrance.
type Aroma struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
}

// Family groups products (velas, difusores, ...).
type Family struct {
	ID          int64  `json:"id"`
	Nombre      string `json:"nombre"`
	Descripcion string `json:"descripcion,omitempty"`
}

// NameInput is the payload of entities that only carry a name.
type NameInput struct {
	Nombre      string `json:"nombre" validate:"required,max=80"`
	Descripcion string `json:"descripcion,omitempty" validate:"max=300"`
}

// User is an admin or seller account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Rol      string `json:"rol"`
	Activo   bool   `json:"activo"`
}

// UserInput is the admin create/update payload of a user.
type UserInput struct {
	Username string `json:"username" validate:"required,min=3,max=40"`
	Email    string `json:"email" validate:"required,email"`
	Nombre   string `json:"nombre" validate:"required,max=80"`
	Apellido string `json:"apellido" validate:"max=80"`
	Rol      string `json:"rol" validate:"required,oneof=ADMIN VENDEDOR"`
	Password string `json:"password,omitempty" validate:"omitempty,min=8"`
	Activo   bool   `json:"activo"`
}

// ProfileInput is what a user may change on their own account.
type ProfileInput struct {
	Username string `json:"username" validate:"required,min=3,max=40"`
	Email    string `json:"email" validate:"required,email"`
	Nombre   string `json:"nombre" validate:"required,max=80"`
	Apellido string `json:"apellido" validate:"max=80"`
}

// RegistrationInput creates a new account.
type RegistrationInput struct {
	Username string `json:"username" validate:"required,min=3,max=40"`
	Email    string `json:"email" validate:"required,email"`
	Nombre   string `json:"nombre" validate:"required,max=80"`
	Apellido string `json:"apellido" validate:"max=80"`
	Password string `json:"password" validate:"required,min=8"`
}

// Sale is one point-of-sale ticket.
type Sale struct {
	ID          int64   `json:"id"`
	Fecha       string  `json:"fecha"`
	Cliente     string  `json:"cliente"`
	TipoCliente string  `json:"tipoCliente"`
	MedioPago   string  `json:"medioPago"`
	Total       float64 `json:"total"`
	Vendedor    string  `json:"vendedor"`
}
