package engine

import "fmt"

// StartupError means the engine process never became ready within the
// probe attempt budget. It is fatal for the supervisor: recovery
// requires building a new one.
type StartupError struct {
	Port     int
	Attempts int
	Err      error
}

func (e *StartupError) Error() string {
	msg := fmt.Sprintf("could not connect to the playwright process at port %d after %d attempts", e.Port, e.Attempts)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StartupError) Unwrap() error { return e.Err }
