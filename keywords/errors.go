package keywords

import (
	"fmt"
	"strings"
)

// ValidationError means a keyword argument was rejected before any
// engine interaction took place.
type ValidationError struct {
	Value     string
	Supported []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is not supported, it should be one of: %s",
		e.Value, strings.Join(e.Supported, ", "))
}

// AssertionError means an observed value differed from the expected
// one. Both values are carried verbatim so callers can do more than
// string matching on the message.
type AssertionError struct {
	Expected string
	Actual   string
	message  string
}

func (e *AssertionError) Error() string { return e.message }
