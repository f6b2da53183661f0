package rpc

import "fmt"

// ConnectionError means the engine process could not be reached: it is
// either not running or not accepting connections on its port.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("playwright process at %s is not reachable", e.Addr)
	}
	return fmt.Sprintf("connecting to playwright process at %s: %s", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CallError means the channel was established but the call itself
// failed, either in transit or because the engine reported an error.
type CallError struct {
	Method string
	Remote string
	Err    error
}

func (e *CallError) Error() string {
	if e.Remote != "" {
		return fmt.Sprintf("engine call %s failed: %s", e.Method, e.Remote)
	}
	return fmt.Sprintf("engine call %s failed: %s", e.Method, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }
