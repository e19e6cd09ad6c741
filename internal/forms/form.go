package forms

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/decoaromas/decoaromas-admin/internal/availability"
	"github.com/decoaromas/decoaromas-admin/internal/backend"
)

var (
	// ErrNotReady is returned by Submit while the gate is closed.
	ErrNotReady = errors.New("forms: not ready to submit")
	// ErrUnknownField is returned for names that were never bound.
	ErrUnknownField = errors.New("forms: unknown field")
)

// Gate summarises whether the form may be submitted. Unchecked lists required
// fields that never received a value.
type Gate struct {
	Disabled  bool     `json:"disabled"`
	Blocked   []string `json:"blocked,omitempty"`
	Unchecked []string `json:"unchecked,omitempty"`
	NeedsAck  []string `json:"needsAck,omitempty"`
	CanSubmit bool     `json:"canSubmit"`
}

// SubmitError carries per-field and general messages of a refused submission.
type SubmitError struct {
	Fields  map[string]string `json:"fields,omitempty"`
	General string            `json:"general,omitempty"`
}

func (e *SubmitError) Error() string {
	if e.General != "" {
		return "forms: " + e.General
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "forms: invalid fields: " + strings.Join(keys, ", ")
}

type binding struct {
	validator *availability.Validator
	required  bool
}

// Form aggregates the availability-checked fields of one edit or create screen.
type Form struct {
	mu       sync.Mutex
	order    []string
	fields   map[string]binding
	acked    map[string]uint64
	validate *validator.Validate
	onChange func(name string, field availability.Field)
}

// New returns an empty form. onChange, when set, receives every field transition.
func New(onChange func(name string, field availability.Field)) *Form {
	return &Form{
		fields:   map[string]binding{},
		acked:    map[string]uint64{},
		validate: newStructValidator(),
		onChange: onChange,
	}
}

func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Listener returns the callback to install on the validator bound under name.
func (f *Form) Listener(name string) availability.Option {
	return availability.WithListener(func(field availability.Field) {
		if f.onChange != nil {
			f.onChange(name, field)
		}
	})
}

// Bind registers a validated field. Rebinding a name replaces the previous validator.
func (f *Form) Bind(name string, v *availability.Validator, required bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if prev, ok := f.fields[name]; ok {
		prev.validator.Close()
	} else {
		f.order = append(f.order, name)
	}
	f.fields[name] = binding{validator: v, required: required}
}

// Names lists bound fields in bind order.
func (f *Form) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

// Input forwards a keystroke to the named field.
func (f *Form) Input(name, value string) error {
	b, err := f.lookup(name)
	if err != nil {
		return err
	}
	b.validator.OnValueChange(value)
	return nil
}

// Field returns the current state of the named field.
func (f *Form) Field(name string) (availability.Field, error) {
	b, err := f.lookup(name)
	if err != nil {
		return availability.Field{}, err
	}
	return b.validator.State(), nil
}

// Acknowledge dismisses the check error currently shown on the field.
func (f *Form) Acknowledge(name string) error {
	b, err := f.lookup(name)
	if err != nil {
		return err
	}
	st := b.validator.State()
	f.mu.Lock()
	f.acked[name] = st.Revision
	f.mu.Unlock()
	return nil
}

// Gate evaluates the submit gate from the current field states.
func (f *Form) Gate() Gate {
	f.mu.Lock()
	defer f.mu.Unlock()
	var g Gate
	for _, name := range f.order {
		b := f.fields[name]
		st := b.validator.State()
		switch st.Status {
		case availability.StatusIdle:
			if b.required {
				g.Unchecked = append(g.Unchecked, name)
			}
		case availability.StatusChecking:
			g.Disabled = true
		case availability.StatusUnavailable:
			if b.required {
				g.Blocked = append(g.Blocked, name)
			}
		case availability.StatusError:
			if ack, ok := f.acked[name]; !ok || ack != st.Revision {
				g.NeedsAck = append(g.NeedsAck, name)
			}
		}
	}
	g.CanSubmit = !g.Disabled && len(g.Blocked) == 0 && len(g.Unchecked) == 0 && len(g.NeedsAck) == 0
	return g
}

// Sync feeds every value that differs from what its field last saw into that
// field, so the gate judges the values about to be submitted. Names that are
// not bound are ignored.
func (f *Form) Sync(values map[string]string) {
	for _, name := range f.Names() {
		value, ok := values[name]
		if !ok {
			continue
		}
		b, err := f.lookup(name)
		if err != nil {
			continue
		}
		if strings.TrimSpace(b.validator.State().RawValue) != strings.TrimSpace(value) {
			b.validator.OnValueChange(value)
		}
	}
}

// Submit validates payload and runs fn when the gate is open.
// Backend validation and conflict answers come back as *SubmitError.
func (f *Form) Submit(ctx context.Context, payload any, fn func(ctx context.Context) error) error {
	if g := f.Gate(); !g.CanSubmit {
		return ErrNotReady
	}
	if payload != nil {
		if err := f.validate.Struct(payload); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return fmt.Errorf("forms: validate payload: %w", err)
			}
			out := &SubmitError{Fields: map[string]string{}}
			for _, fe := range verrs {
				out.Fields[fe.Field()] = fieldMessage(fe)
			}
			return out
		}
	}
	err := fn(ctx)
	if err == nil {
		return nil
	}
	var verr *backend.ValidationError
	if errors.As(err, &verr) {
		fields := make(map[string]string, len(verr.Details))
		for k, v := range verr.Details {
			fields[k] = v
		}
		return &SubmitError{Fields: fields}
	}
	var conflict *backend.ConflictError
	if errors.As(err, &conflict) {
		return &SubmitError{General: conflict.Message}
	}
	return err
}

// Close stops every bound validator.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.fields {
		b.validator.Close()
	}
}

func (f *Form) lookup(name string) (binding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.fields[name]
	if !ok {
		return binding{}, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return b, nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Este campo es obligatorio."
	case "email":
		return "El formato del email no es válido."
	case "min":
		return fmt.Sprintf("Debe tener al menos %s caracteres.", fe.Param())
	case "max":
		return fmt.Sprintf("Debe tener como máximo %s caracteres.", fe.Param())
	case "gt", "gte":
		return "El valor debe ser positivo."
	case "oneof":
		return "Valor no permitido."
	default:
		return "Valor inválido."
	}
}
