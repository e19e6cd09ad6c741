package availability

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
)

// DefaultDebounce is the idle window before a check fires.
const DefaultDebounce = 500 * time.Millisecond

// Messages holds the user-facing texts a validator produces on its own.
type Messages struct {
	// Original is shown when the value equals the original value of an edit flow.
	Original string
	// CheckFailed is shown when the check could not be completed.
	CheckFailed string
	// Taken is used when the backend reports a taken value without a message.
	Taken string
}

var defaultMessages = Messages{
	Original:    "Valor original",
	CheckFailed: "Error al verificar el valor.",
	Taken:       "El valor ya está en uso.",
}

// Option configures a Validator.
type Option func(*Validator)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.deb.delay = d
		}
	}
}

// WithOriginal sets the getter for the value considered unchanged in edit flows.
func WithOriginal(get func() string) Option {
	return func(v *Validator) { v.original = get }
}

// WithOriginalValue is WithOriginal for a fixed value.
func WithOriginalValue(value string) Option {
	return WithOriginal(func() string { return value })
}

// WithRequired makes empty values Unavailable instead of Idle.
func WithRequired() Option {
	return func(v *Validator) { v.required = true }
}

// WithPrecheck rejects malformed values before any network call.
// A non-nil error makes the field Unavailable with the error text as message.
func WithPrecheck(fn func(string) error) Option {
	return func(v *Validator) { v.precheck = fn }
}

// WithMessages overrides the non-empty texts of m.
func WithMessages(m Messages) Option {
	return func(v *Validator) {
		if m.Original != "" {
			v.messages.Original = m.Original
		}
		if m.CheckFailed != "" {
			v.messages.CheckFailed = m.CheckFailed
		}
		if m.Taken != "" {
			v.messages.Taken = m.Taken
		}
	}
}

// WithEntity names the validated entity for logs and metrics.
func WithEntity(entity string) Option {
	return func(v *Validator) { v.entity = entity }
}

// WithScheduler replaces the runtime timer, mainly for tests.
func WithScheduler(s Scheduler) Option {
	return func(v *Validator) {
		if s != nil {
			v.deb.scheduler = s
		}
	}
}

// WithListener registers fn to receive every state transition. Listeners run
// serially and must not call OnValueChange on the same validator.
func WithListener(fn func(Field)) Option {
	return func(v *Validator) {
		if fn != nil {
			v.listeners = append(v.listeners, fn)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithObserver reports settled checks, typically to metrics.
func WithObserver(o Observer) Option {
	return func(v *Validator) { v.observer = o }
}

// Validator produces a debounced, race-safe availability signal for one field.
type Validator struct {
	checker   Checker
	entity    string
	required  bool
	original  func() string
	precheck  func(string) error
	messages  Messages
	logger    *slog.Logger
	observer  Observer
	listeners []func(Field)

	mu      sync.Mutex
	deb     debouncer
	state   Field
	seq     uint64
	version uint64
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc

	notifyMu sync.Mutex
	emitted  uint64
}

// New builds a Validator around checker.
func New(checker Checker, opts ...Option) *Validator {
	ctx, cancel := context.WithCancel(context.Background())
	v := &Validator{
		checker:  checker,
		entity:   "value",
		messages: defaultMessages,
		logger:   slog.Default(),
		deb:      debouncer{scheduler: RealScheduler, delay: DefaultDebounce},
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With(slog.String("component", "availability"), slog.String("entity", v.entity))
	return v
}

// Entity returns the configured entity name.
func (v *Validator) Entity() string {
	return v.entity
}

// Required reports whether empty values are rejected.
func (v *Validator) Required() bool {
	return v.required
}

// State returns the latest settled or in-flight state.
func (v *Validator) State() Field {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// OnValueChange records a new candidate value and schedules a check for it.
func (v *Validator) OnValueChange(value string) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.seq++
	seq := v.seq
	v.deb.cancel()

	original := v.originalValue()
	trimmed := strings.TrimSpace(value)
	next := Field{RawValue: value, OriginalValue: original, Revision: seq}

	switch {
	case trimmed == "":
		next.Status = StatusIdle
		if v.required {
			next.Status = StatusUnavailable
		}
	case original != "" && sameValue(trimmed, original):
		next.Status = StatusAvailable
		next.Message = v.messages.Original
	default:
		if err := v.runPrecheck(trimmed); err != nil {
			next.Status = StatusUnavailable
			next.Message = err.Error()
			break
		}
		next.Status = StatusChecking
		v.deb.schedule(func() { v.fire(seq, trimmed) })
	}

	snapshot := v.commit(next)
	v.mu.Unlock()
	v.notify(snapshot)
}

// Close stops the pending timer and drops any in-flight result.
func (v *Validator) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	v.deb.cancel()
	v.cancel()
}

func (v *Validator) fire(seq uint64, value string) {
	v.mu.Lock()
	if v.closed || seq != v.seq {
		v.mu.Unlock()
		return
	}
	ctx := v.ctx
	v.mu.Unlock()

	res := v.checker.Check(ctx, value)
	if v.observer != nil {
		v.observer.ObserveCheck(v.entity, res.Outcome.String())
	}
	v.settle(seq, value, res)
}

func (v *Validator) settle(seq uint64, value string, res Result) {
	v.mu.Lock()
	if v.closed || seq != v.seq {
		v.mu.Unlock()
		v.logger.Debug("discard stale availability result", slog.String("value", value), slog.Uint64("revision", seq))
		return
	}
	next := v.state
	switch res.Outcome {
	case OutcomeAvailable:
		next.Status = StatusAvailable
		next.Message = res.Message
	case OutcomeTaken:
		next.Status = StatusUnavailable
		next.Message = res.Message
		if next.Message == "" {
			next.Message = v.messages.Taken
		}
	default:
		next.Status = StatusError
		next.Message = v.messages.CheckFailed
		v.logger.Warn("availability check failed", slog.String("value", value), slog.Any("error", res.Err))
	}
	snapshot := v.commit(next)
	v.mu.Unlock()
	v.notify(snapshot)
}

type versioned struct {
	field   Field
	version uint64
}

// commit must be called with mu held.
func (v *Validator) commit(next Field) versioned {
	v.state = next
	v.version++
	return versioned{field: next, version: v.version}
}

// notify delivers snapshots in commit order, dropping ones overtaken by a newer delivery.
func (v *Validator) notify(s versioned) {
	if len(v.listeners) == 0 {
		return
	}
	v.notifyMu.Lock()
	defer v.notifyMu.Unlock()
	if s.version <= v.emitted {
		return
	}
	v.emitted = s.version
	for _, fn := range v.listeners {
		fn(s.field)
	}
}

func (v *Validator) originalValue() string {
	if v.original == nil {
		return ""
	}
	return strings.TrimSpace(v.original())
}

func (v *Validator) runPrecheck(value string) error {
	if v.precheck == nil {
		return nil
	}
	return v.precheck(value)
}

// sameValue compares trimmed values ignoring case.
func sameValue(a, b string) bool {
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}
