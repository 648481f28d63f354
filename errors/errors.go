package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common error conditions
var (
	// ErrConfiguration indicates a missing or invalid setting, such as an absent API credential.
	ErrConfiguration = errors.New("configuration error")

	// ErrSchemaValidation indicates that model output could not be coerced to the declared schema.
	ErrSchemaValidation = errors.New("schema validation failed")

	// ErrAmbiguousVerdict indicates that a forced-choice reply matched none of the accepted answers.
	ErrAmbiguousVerdict = errors.New("ambiguous verdict")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrCallBudgetExceeded indicates a client made more backend calls than it is allowed.
	ErrCallBudgetExceeded = errors.New("call budget exceeded")
)

// SchemaValidationError carries the raw model output that failed to parse.
type SchemaValidationError struct {
	Raw string
	Err error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("%v: %v (raw output %q)", ErrSchemaValidation, e.Err, truncate(e.Raw, 200))
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *SchemaValidationError) Unwrap() []error {
	return []error{ErrSchemaValidation, e.Err}
}

// AmbiguousVerdictError is returned when a reply does not decode to any accepted answer.
// It is treated as a data quality problem and is never retried.
type AmbiguousVerdictError struct {
	Step     string
	Got      string
	Expected []string
}

func (e *AmbiguousVerdictError) Error() string {
	return fmt.Sprintf("%v in %s: expected one of [%s], got %q",
		ErrAmbiguousVerdict, e.Step, strings.Join(e.Expected, ", "), truncate(e.Got, 200))
}

func (e *AmbiguousVerdictError) Unwrap() error {
	return ErrAmbiguousVerdict
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
