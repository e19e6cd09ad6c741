package availability

import "context"

// Outcome tags the result of an availability check.
type Outcome int

const (
	// OutcomeAvailable means the backend reported the value as free.
	OutcomeAvailable Outcome = iota
	// OutcomeTaken means the value already exists.
	OutcomeTaken
	// OutcomeTransient means the check itself failed (network, 5xx, decoding).
	OutcomeTransient
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAvailable:
		return "available"
	case OutcomeTaken:
		return "taken"
	case OutcomeTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Result is what a Checker reports for one candidate value.
type Result struct {
	Outcome Outcome
	Message string
	// Err carries the underlying failure for OutcomeTransient, for logging only.
	Err error
}

// Available builds an OutcomeAvailable result.
func Available(message string) Result {
	return Result{Outcome: OutcomeAvailable, Message: message}
}

// Taken builds an OutcomeTaken result.
func Taken(message string) Result {
	return Result{Outcome: OutcomeTaken, Message: message}
}

// Transient builds an OutcomeTransient result.
func Transient(err error) Result {
	return Result{Outcome: OutcomeTransient, Err: err}
}

// Checker asks the backend whether a trimmed candidate value is free.
// Implementations translate transport failures into OutcomeTransient instead of returning errors.
type Checker interface {
	Check(ctx context.Context, value string) Result
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, value string) Result

// Check calls f.
func (f CheckerFunc) Check(ctx context.Context, value string) Result {
	return f(ctx, value)
}

// Observer receives one notification per settled check.
type Observer interface {
	ObserveCheck(entity string, outcome string)
}
