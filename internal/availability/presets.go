package availability

import (
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Entities with a uniqueness check on the backend.
const (
	EntityProductName = "producto_nombre"
	EntityProductSKU  = "producto_sku"
	EntityAromaName   = "aroma_nombre"
	EntityFamilyName  = "familia_nombre"
	EntityUsername    = "usuario_username"
	EntityEmail       = "usuario_email"
)

// Preset bundles the per-entity configuration shared by every form validating that entity.
type Preset struct {
	Entity   string
	Required bool
	Messages Messages
	Precheck func(string) error
}

// Options returns the validator options described by p.
func (p Preset) Options() []Option {
	opts := []Option{WithEntity(p.Entity), WithMessages(p.Messages)}
	if p.Required {
		opts = append(opts, WithRequired())
	}
	if p.Precheck != nil {
		opts = append(opts, WithPrecheck(p.Precheck))
	}
	return opts
}

// New builds a validator from the preset; extra options are applied last.
func (p Preset) New(checker Checker, extra ...Option) *Validator {
	return New(checker, append(p.Options(), extra...)...)
}

var (
	ProductName = Preset{
		Entity:   EntityProductName,
		Required: true,
		Messages: Messages{
			Original:    "Nombre original del producto",
			CheckFailed: "Error al verificar el nombre.",
		},
	}
	ProductSKU = Preset{
		Entity:   EntityProductSKU,
		Required: true,
		Messages: Messages{
			Original:    "SKU original del producto",
			CheckFailed: "Error al verificar el SKU.",
		},
		Precheck: NoWhitespace("El SKU no puede contener espacios."),
	}
	AromaName = Preset{
		Entity:   EntityAromaName,
		Required: true,
		Messages: Messages{
			Original:    "Nombre original del aroma",
			CheckFailed: "Error al verificar el nombre.",
		},
	}
	FamilyName = Preset{
		Entity:   EntityFamilyName,
		Required: true,
		Messages: Messages{
			Original:    "Nombre original de la familia",
			CheckFailed: "Error al verificar el nombre.",
		},
	}
	Username = Preset{
		Entity:   EntityUsername,
		Required: true,
		Messages: Messages{
			Original:    "Nombre de usuario original",
			CheckFailed: "Error al verificar el nombre de usuario.",
		},
		Precheck: NoWhitespace("El nombre de usuario no puede contener espacios."),
	}
	Email = Preset{
		Entity:   EntityEmail,
		Required: true,
		Messages: Messages{
			Original:    "Email original",
			CheckFailed: "Error al verificar el email.",
		},
		Precheck: EmailFormat("El formato del email no es válido."),
	}
)

// ErrMalformed marks values rejected before reaching the network.
var ErrMalformed = errors.New("availability: malformed value")

type malformedError struct {
	msg string
}

func (e *malformedError) Error() string { return e.msg }

func (e *malformedError) Unwrap() error { return ErrMalformed }

// NoWhitespace rejects values with embedded whitespace.
func NoWhitespace(message string) func(string) error {
	return func(value string) error {
		if strings.IndexFunc(value, unicode.IsSpace) >= 0 {
			return &malformedError{msg: message}
		}
		return nil
	}
}

var validate = validator.New()

// EmailFormat rejects values that are not a syntactically valid address.
func EmailFormat(message string) func(string) error {
	return func(value string) error {
		if err := validate.Var(value, "email"); err != nil {
			return &malformedError{msg: message}
		}
		return nil
	}
}
