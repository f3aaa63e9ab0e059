package engine

import "fmt"

// PermissionError indicates the permission oracle rejected an operation for
// the chart's current lifecycle status.
type PermissionError struct {
	Kind      string
	Operation string
	Status    string
	Field     string
}

func (e PermissionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("chart status %s forbids updating %s.%s", e.Status, e.Kind, e.Field)
	}
	return fmt.Sprintf("chart status %s forbids %s %s", e.Status, e.Kind, e.Operation)
}

// ValidationError indicates invalid input, rejected before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
	}
	return "validation failed: " + e.Reason
}

// DerivationError indicates code or version derivation kept colliding after
// the bounded retries.
type DerivationError struct {
	What     string
	Attempts int
}

func (e DerivationError) Error() string {
	return fmt.Sprintf("%s derivation collided after %d attempts", e.What, e.Attempts)
}

// CascadeError indicates a cascade delete could not finish even after
// retrying the remaining steps. Remaining lists node ids still present.
type CascadeError struct {
	RootID    string
	Remaining []string
	Err       error
}

func (e CascadeError) Error() string {
	return fmt.Sprintf("cascade delete of %s incomplete, %d nodes remaining: %v", e.RootID, len(e.Remaining), e.Err)
}

func (e CascadeError) Unwrap() error { return e.Err }
