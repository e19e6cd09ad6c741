package forms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/decoaromas/decoaromas-admin/internal/availability"
	"github.com/decoaromas/decoaromas-admin/internal/backend"
)

// Kind names an admin form.
type Kind string

const (
	KindProduct      Kind = "producto"
	KindAroma        Kind = "aroma"
	KindFamily       Kind = "familia"
	KindUser         Kind = "usuario"
	KindProfile      Kind = "perfil"
	KindRegistration Kind = "registro"
)

var (
	// ErrUnknownKind is returned by Open for kinds missing from the catalog.
	ErrUnknownKind = errors.New("forms: unknown kind")
	// ErrBadPayload wraps payloads that do not decode into the kind's input type.
	ErrBadPayload = errors.New("forms: malformed payload")
)

// Backend is the part of the REST client that admin forms use.
type Backend interface {
	Checker(entity string) availability.Checker

	GetProduct(ctx context.Context, id int64) (backend.Product, error)
	CreateProduct(ctx context.Context, in backend.ProductInput) (backend.Product, error)
	UpdateProduct(ctx context.Context, id int64, in backend.ProductInput) (backend.Product, error)

	GetAroma(ctx context.Context, id int64) (backend.Aroma, error)
	CreateAroma(ctx context.Context, in backend.NameInput) (backend.Aroma, error)
	UpdateAroma(ctx context.Context, id int64, in backend.NameInput) (backend.Aroma, error)

	GetFamily(ctx context.Context, id int64) (backend.Family, error)
	CreateFamily(ctx context.Context, in backend.NameInput) (backend.Family, error)
	UpdateFamily(ctx context.Context, id int64, in backend.NameInput) (backend.Family, error)

	GetUser(ctx context.Context, id int64) (backend.User, error)
	CreateUser(ctx context.Context, in backend.UserInput) (backend.User, error)
	UpdateUser(ctx context.Context, id int64, in backend.UserInput) (backend.User, error)

	GetProfile(ctx context.Context) (backend.User, error)
	UpdateProfile(ctx context.Context, in backend.ProfileInput) (backend.User, error)
	Register(ctx context.Context, in backend.RegistrationInput) (backend.User, error)
}

// FieldSpec binds a payload field to the availability preset validating it.
type FieldSpec struct {
	Name   string
	Preset availability.Preset
}

// Definition describes one admin form.
type Definition struct {
	Kind   Kind
	Fields []FieldSpec

	load   func(ctx context.Context, b Backend, id int64) (map[string]string, error)
	decode func(raw json.RawMessage) (any, error)
	save   func(ctx context.Context, b Backend, id int64, payload any) error
}

func define[T any](
	kind Kind,
	fields []FieldSpec,
	load func(ctx context.Context, b Backend, id int64) (map[string]string, error),
	save func(ctx context.Context, b Backend, id int64, in T) error,
) Definition {
	return Definition{
		Kind:   kind,
		Fields: fields,
		load:   load,
		decode: func(raw json.RawMessage) (any, error) {
			in := new(T)
			if err := json.Unmarshal(raw, in); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
			}
			return in, nil
		},
		save: func(ctx context.Context, b Backend, id int64, payload any) error {
			in, ok := payload.(*T)
			if !ok {
				return fmt.Errorf("%w: unexpected %T", ErrBadPayload, payload)
			}
			return save(ctx, b, id, *in)
		},
	}
}

var catalog = map[Kind]Definition{
	KindProduct: define(KindProduct,
		[]FieldSpec{{"nombre", availability.ProductName}, {"sku", availability.ProductSKU}},
		func(ctx context.Context, b Backend, id int64) (map[string]string, error) {
			p, err := b.GetProduct(ctx, id)
			return map[string]string{"nombre": p.Nombre, "sku": p.SKU}, err
		},
		func(ctx context.Context, b Backend, id int64, in backend.ProductInput) error {
			var err error
			if id > 0 {
				_, err = b.UpdateProduct(ctx, id, in)
			} else {
				_, err = b.CreateProduct(ctx, in)
			}
			return err
		}),
	KindAroma: define(KindAroma,
		[]FieldSpec{{"nombre", availability.AromaName}},
		func(ctx context.Context, b Backend, id int64) (map[string]string, error) {
			a, err := b.GetAroma(ctx, id)
			return map[string]string{"nombre": a.Nombre}, err
		},
		func(ctx context.Context, b Backend, id int64, in backend.NameInput) error {
			var err error
			if id > 0 {
				_, err = b.UpdateAroma(ctx, id, in)
			} else {
				_, err = b.CreateAroma(ctx, in)
			}
			return err
		}),
	KindFamily: define(KindFamily,
		[]FieldSpec{{"nombre", availability.FamilyName}},
		func(ctx context.Context, b Backend, id int64) (map[string]string, error) {
			f, err := b.GetFamily(ctx, id)
			return map[string]string{"nombre": f.Nombre}, err
		},
		func(ctx context.Context, b Backend, id int64, in backend.NameInput) error {
			var err error
			if id > 0 {
				_, err = b.UpdateFamily(ctx, id, in)
			} else {
				_, err = b.CreateFamily(ctx, in)
			}
			return err
		}),
	KindUser: define(KindUser,
		[]FieldSpec{{"username", availability.Username}, {"email", availability.Email}},
		func(ctx context.Context, b Backend, id int64) (map[string]string, error) {
			u, err := b.GetUser(ctx, id)
			return map[string]string{"username": u.Username, "email": u.Email}, err
		},
		func(ctx context.Context, b Backend, id int64, in backend.UserInput) error {
			var err error
			if id > 0 {
				_, err = b.UpdateUser(ctx, id, in)
			} else {
				_, err = b.CreateUser(ctx, in)
			}
			return err
		}),
	KindProfile: define(KindProfile,
		[]FieldSpec{{"username", availability.Username}, {"email", availability.Email}},
		func(ctx context.Context, b Backend, _ int64) (map[string]string, error) {
			u, err := b.GetProfile(ctx)
			return map[string]string{"username": u.Username, "email": u.Email}, err
		},
		func(ctx context.Context, b Backend, _ int64, in backend.ProfileInput) error {
			_, err := b.UpdateProfile(ctx, in)
			return err
		}),
	KindRegistration: define(KindRegistration,
		[]FieldSpec{{"username", availability.Username}, {"email", availability.Email}},
		nil,
		func(ctx context.Context, b Backend, _ int64, in backend.RegistrationInput) error {
			_, err := b.Register(ctx, in)
			return err
		}),
}

// fieldValues extracts the checked fields from a payload. Absent or null
// fields read as empty.
func (d Definition) fieldValues(raw json.RawMessage) (map[string]string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	values := make(map[string]string, len(d.Fields))
	for _, fs := range d.Fields {
		var v *string
		if field, ok := doc[fs.Name]; ok {
			if err := json.Unmarshal(field, &v); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrBadPayload, fs.Name, err)
			}
		}
		if v != nil {
			values[fs.Name] = *v
		} else {
			values[fs.Name] = ""
		}
	}
	return values, nil
}

// Lookup returns the definition of kind.
func Lookup(kind Kind) (Definition, bool) {
	def, ok := catalog[kind]
	return def, ok
}

// Editing reports whether opening kind with id edits an existing record.
func (d Definition) Editing(id int64) bool {
	if d.load == nil {
		return false
	}
	return id > 0 || d.Kind == KindProfile
}

// Editor is an open form: its fields plus the save call of its kind.
type Editor struct {
	*Form
	def     Definition
	id      int64
	backend Backend
}

// Open loads originals for edit flows and binds one validator per field.
// extra options apply to every validator, after the preset's own.
func Open(ctx context.Context, b Backend, kind Kind, id int64, onChange func(string, availability.Field), extra ...availability.Option) (*Editor, error) {
	def, ok := Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	originals := map[string]string{}
	if def.Editing(id) {
		loaded, err := def.load(ctx, b, id)
		if err != nil {
			return nil, fmt.Errorf("forms: load %s %d: %w", kind, id, err)
		}
		originals = loaded
	}

	form := New(onChange)
	for _, fs := range def.Fields {
		opts := append([]availability.Option{form.Listener(fs.Name)}, extra...)
		if orig := originals[fs.Name]; orig != "" {
			opts = append(opts, availability.WithOriginalValue(orig))
		}
		v := fs.Preset.New(b.Checker(fs.Preset.Entity), opts...)
		form.Bind(fs.Name, v, fs.Preset.Required)
		if orig := originals[fs.Name]; orig != "" {
			v.OnValueChange(orig)
		}
	}
	return &Editor{Form: form, def: def, id: id, backend: b}, nil
}

// Kind returns the kind the editor was opened with.
func (e *Editor) Kind() Kind { return e.def.Kind }

// Save decodes raw into the kind's input type and submits it through the gate.
// Checked fields are first synced to the payload, so a value the fields never
// validated closes the gate until its check settles.
func (e *Editor) Save(ctx context.Context, raw json.RawMessage) error {
	payload, err := e.def.decode(raw)
	if err != nil {
		return err
	}
	values, err := e.def.fieldValues(raw)
	if err != nil {
		return err
	}
	e.Sync(values)
	return e.Submit(ctx, payload, func(ctx context.Context) error {
		return e.def.save(ctx, e.backend, e.id, payload)
	})
}
