package availability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	s       *manualScheduler
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	pending := !t.stopped && !t.fired
	t.stopped = true
	return pending
}

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, at: s.now + d, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []*manualTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired && t.at <= s.now {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
}

func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type recordingChecker struct {
	mu      sync.Mutex
	calls   []string
	respond func(ctx context.Context, value string) Result
}

func (c *recordingChecker) Check(ctx context.Context, value string) Result {
	c.mu.Lock()
	c.calls = append(c.calls, value)
	respond := c.respond
	c.mu.Unlock()
	if respond == nil {
		return Available("Disponible")
	}
	return respond(ctx, value)
}

func (c *recordingChecker) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func TestRapidKeystrokesFireSingleCheckWithLastValue(t *testing.T) {
	sched := &manualScheduler{}
	checker := &recordingChecker{respond: func(_ context.Context, value string) Result {
		return Taken("Ya existe")
	}}
	v := AromaName.New(checker, WithScheduler(sched))
	defer v.Close()

	for _, typed := range []string{"L", "La", "Lav", "Lavan", "Lavanda"} {
		v.OnValueChange(typed)
		assert.Equal(t, StatusChecking, v.State().Status)
		sched.Advance(100 * time.Millisecond)
	}
	require.Empty(t, checker.Calls())

	sched.Advance(DefaultDebounce)

	assert.Equal(t, []string{"Lavanda"}, checker.Calls())
	state := v.State()
	assert.Equal(t, StatusUnavailable, state.Status)
	assert.Equal(t, "Ya existe", state.Message)
	assert.Equal(t, "Lavanda", state.RawValue)
}

func TestCheckUsesTrimmedValue(t *testing.T) {
	sched := &manualScheduler{}
	checker := &recordingChecker{}
	v := ProductName.New(checker, WithScheduler(sched))
	defer v.Close()

	v.OnValueChange("  Difusor Bambú ")
	sched.Advance(DefaultDebounce)

	assert.Equal(t, []string{"Difusor Bambú"}, checker.Calls())
	assert.Equal(t, StatusAvailable, v.State().Status)
	assert.Equal(t, "Disponible", v.State().Message)
}

func TestOriginalValueShortCircuits(t *testing.T) {
	sched := &manualScheduler{}
	checker := &recordingChecker{}
	v := AromaName.New(checker, WithScheduler(sched), WithOriginalValue("Vainilla"))
	defer v.Close()

	v.OnValueChange(" vainilla ")

	state := v.State()
	assert.Equal(t, StatusAvailable, state.Status)
	assert.Equal(t, "Nombre original del aroma", state.Message)
	assert.Equal(t, "Vainilla", state.OriginalValue)
	assert.Zero(t, sched.Pending())

	sched.Advance(time.Second)
	assert.Empty(t, checker.Calls())
}

func TestOriginalValueCancelsPendingCheck(t *testing.T) {
	sched := &manualScheduler{}
	checker := &recordingChecker{}
	v := AromaName.New(checker, WithScheduler(sched), WithOriginalValue("Vainilla"))
	defer v.Close()

	v.OnValueChange("Vainillas")
	require.Equal(t, 1, sched.Pending())
	v.OnValueChange("VAINILLA")

	assert.Zero(t, sched.Pending())
	sched.Advance(time.Second)
	assert.Empty(t, checker.Calls())
	assert.Equal(t, StatusAvailable, v.State().Status)
}

func TestOriginalValueWinsOverInflightCheck(t *testing.T) {
	sched := &manualScheduler{}
	started := make(chan struct{})
	release := make(chan struct{})
	checker := &recordingChecker{respond: func(_ context.Context, value string) Result {
		close(started)
		<-release
		return Taken("Ya existe")
	}}
	v := AromaName.New(checker, WithScheduler(sched), WithOriginalValue("Vainilla"))
	defer v.Close()

	v.OnValueChange("Vainillas")
	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Advance(DefaultDebounce)
	}()
	<-started

	v.OnValueChange("vainilla")
	assert.Equal(t, StatusAvailable, v.State().Status)

	close(release)
	<-done

	state := v.State()
	assert.Equal(t, StatusAvailable, state.Status)
	assert.Equal(t, "Nombre original del aroma", state.Message)
}

func TestEmptyValueSkipsNetwork(t *testing.T) {
	sched := &manualScheduler{}
	checker := &recordingChecker{}

	required := New(checker, WithScheduler(sched), WithRequired())
	defer required.Close()
	optional := New(checker, WithScheduler(sched))
	defer optional.Close()

	required.OnValueChange("Lavanda")
	required.OnValueChange("   ")
	optional.OnValueChange("")

	assert.Equal(t, StatusUnavailable, required.State().Status)
	assert.Empty(t, required.State().Message)
	assert.Equal(t, StatusIdle, optional.State().Status)
	assert.Empty(t, optional.State().Message)

	sched.Advance(time.Second)
	assert.Empty(t, checker.Calls())
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	sched := &manualScheduler{}
	started := make(chan string, 2)
	releaseFirst := make(chan struct{})
	checker := &recordingChecker{respond: func(_ context.Context, value string) Result {
		started <- value
		if value == "Rosa" {
			<-releaseFirst
			return Available("Disponible: Rosa")
		}
		return Taken("Ya existe: Rosas")
	}}
	v := FamilyName.New(checker, WithScheduler(sched))
	defer v.Close()

	v.OnValueChange("Rosa")
	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Advance(DefaultDebounce)
	}()
	require.Equal(t, "Rosa", <-started)

	v.OnValueChange("Rosas")
	close(releaseFirst)
	<-done

	state := v.State()
	assert.Equal(t, StatusChecking, state.Status, "result for an older value must not land")
	assert.Empty(t, state.Message)

	sched.Advance(DefaultDebounce)
	require.Equal(t, "Rosas", <-started)
	state = v.State()
	assert.Equal(t, StatusUnavailable, state.Status)
	assert.Equal(t, "Ya existe: Rosas", state.Message)
}

func TestTransientFailureIsRetryable(t *testing.T) {
	sched := &manualScheduler{}
	fail := true
	checker := &recordingChecker{respond: func(_ context.Context, value string) Result {
		if fail {
			return Transient(errors.New("connection refused"))
		}
		return Available("Disponible")
	}}
	v := ProductName.New(checker, WithScheduler(sched))
	defer v.Close()

	v.OnValueChange("Vela Coco")
	sched.Advance(DefaultDebounce)
	assert.Equal(t, StatusError, v.State().Status)
	assert.Equal(t, "Error al verificar el nombre.", v.State().Message)

	fail = false
	v.OnValueChange("Vela Coco ")
	assert.Equal(t, StatusChecking, v.State().Status)
	assert.Empty(t, v.State().Message)
	sched.Advance(DefaultDebounce)
	assert.Equal(t, StatusAvailable, v.State().Status)
}

func TestTakenWithoutMessageUsesDefault(t *testing.T) {
	sched := &manualScheduler{}
	checker := &recordingChecker{respond: func(context.Context, string) Result { return Taken("") }}
	v := New(checker, WithScheduler(sched))
	defer v.Close()

	v.OnValueChange("x")
	sched.Advance(DefaultDebounce)
	assert.Equal(t, StatusUnavailable, v.State().Status)
	assert.Equal(t, "El valor ya está en uso.", v.State().Message)
}

func TestMalformedValuesNeverReachNetwork(t *testing.T) {
	sched := &manualScheduler{}
	checker := &recordingChecker{}
	sku := ProductSKU.New(checker, WithScheduler(sched))
	defer sku.Close()
	email := Email.New(checker, WithScheduler(sched))
	defer email.Close()

	sku.OnValueChange("AR 001")
	email.OnValueChange("ana@")

	assert.Equal(t, StatusUnavailable, sku.State().Status)
	assert.Equal(t, "El SKU no puede contener espacios.", sku.State().Message)
	assert.Equal(t, StatusUnavailable, email.State().Status)
	assert.Equal(t, "El formato del email no es válido.", email.State().Message)

	sched.Advance(time.Second)
	assert.Empty(t, checker.Calls())

	email.OnValueChange("ana@decoaromas.cl")
	sched.Advance(DefaultDebounce)
	assert.Equal(t, []string{"ana@decoaromas.cl"}, checker.Calls())
}

func TestListenerSeesTransitionsInOrder(t *testing.T) {
	sched := &manualScheduler{}
	var mu sync.Mutex
	var seen []Status
	v := New(&recordingChecker{}, WithScheduler(sched), WithListener(func(f Field) {
		mu.Lock()
		seen = append(seen, f.Status)
		mu.Unlock()
	}))
	defer v.Close()

	v.OnValueChange("Canela")
	sched.Advance(DefaultDebounce)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{StatusChecking, StatusAvailable}, seen)
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) ObserveCheck(entity, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = map[string]int{}
	}
	o.counts[entity+"/"+outcome]++
}

func TestObserverCountsSettledChecks(t *testing.T) {
	sched := &manualScheduler{}
	obs := &countingObserver{}
	v := Username.New(&recordingChecker{}, WithScheduler(sched), WithObserver(obs))
	defer v.Close()

	v.OnValueChange("ana")
	sched.Advance(DefaultDebounce)

	assert.Equal(t, 1, obs.counts[EntityUsername+"/available"])
}

func TestCloseDropsPendingAndInflightWork(t *testing.T) {
	sched := &manualScheduler{}
	checker := &recordingChecker{}
	v := New(checker, WithScheduler(sched))

	v.OnValueChange("Menta")
	v.Close()
	sched.Advance(time.Second)
	assert.Empty(t, checker.Calls())

	v.OnValueChange("Otra")
	assert.Equal(t, "Menta", v.State().RawValue)
}

func TestRealSchedulerDebounces(t *testing.T) {
	checker := &recordingChecker{}
	v := New(checker, WithDebounce(20*time.Millisecond))
	defer v.Close()

	v.OnValueChange("M")
	v.OnValueChange("Me")
	v.OnValueChange("Menta")

	require.Eventually(t, func() bool {
		return v.State().Status == StatusAvailable
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"Menta"}, checker.Calls())
}
