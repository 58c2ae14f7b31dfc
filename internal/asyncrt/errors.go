package asyncrt

import (
	"errors"
	"fmt"
)

// PanicCode identifies a runtime contract violation.
type PanicCode int

// Stable codes - do not change values.
const (
	PanicPollAfterDone PanicCode = 2001 // RT2001: computation driven after completion
	PanicEmptySelect   PanicCode = 2002 // RT2002: select without branches
	PanicDeadlock      PanicCode = 2101 // RT2101: nothing runnable, entry task not done
	PanicPollBudget    PanicCode = 2102 // RT2102: Config.MaxPolls exceeded
	PanicInvalidHandle PanicCode = 2201 // RT2201: unknown or foreign task handle
)

// String returns the code as "RT2001" format.
func (c PanicCode) String() string {
	return fmt.Sprintf("RT%d", c)
}

// RuntimeError reports a logic or liveness error. Logic errors are raised as
// panics inside Poll and converted into a returned RuntimeError by Run.
type RuntimeError struct {
	Code     PanicCode
	TaskID   TaskID
	TaskName string
	Message  string
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.TaskID != 0 {
		return fmt.Sprintf("panic %s in task %d (%s): %s", e.Code, e.TaskID, e.TaskName, e.Message)
	}
	return fmt.Sprintf("panic %s: %s", e.Code, e.Message)
}

// HasCode reports whether err wraps a RuntimeError with the given code.
func HasCode(err error, code PanicCode) bool {
	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) {
		return false
	}
	return rtErr.Code == code
}
