package reporter

import "fmt"

// IOError is returned when a reporter's output channel fails.
// The reporter does not retry; the run's verdict is unaffected.
type IOError struct {
	Reporter string
	Op       string // write, flush, close, migrate, save
	Err      error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s reporter: %s: %v", e.Reporter, e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
