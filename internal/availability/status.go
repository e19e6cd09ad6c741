// Package availability validates user-edited unique values (names, SKUs, usernames, emails)
// against the backend while the user types.
package availability

// Status is the lifecycle state of a validated field.
type Status int

const (
	// StatusIdle means there is nothing to validate yet.
	StatusIdle Status = iota
	// StatusChecking means a check is scheduled or in flight.
	StatusChecking
	// StatusAvailable means the value is free (or unchanged from the original).
	StatusAvailable
	// StatusUnavailable means the value is taken or malformed.
	StatusUnavailable
	// StatusError means the last check could not be completed.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusChecking:
		return "checking"
	case StatusAvailable:
		return "available"
	case StatusUnavailable:
		return "unavailable"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText renders the status as its lowercase name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Field is the live validation state of one unique-constraint field.
type Field struct {
	RawValue      string `json:"raw_value"`
	OriginalValue string `json:"original_value,omitempty"`
	Status        Status `json:"status"`
	Message       string `json:"message"`
	// Revision increases with every value change; settled checks carry the revision they ran for.
	Revision uint64 `json:"revision"`
}
