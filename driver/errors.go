package driver

import "fmt"

// ProcessEndedError is yielded by Driver iteration when a member child
// exits naturally while it is being watched.
type ProcessEndedError struct {
	Pid int
}

func (e *ProcessEndedError) Error() string {
	return fmt.Sprintf("driver: pid %d ended", e.Pid)
}

// WrongMemberError is returned by the Any-typed set-algebra helpers when
// an operand is not a *child.Child.
type WrongMemberError struct {
	Value any
}

func (e *WrongMemberError) Error() string {
	return fmt.Sprintf("driver: %T is not a *child.Child", e.Value)
}

// DontCallDuringIterationError guards Union/Difference while an Iterate
// call is in progress; Intersect is read-only and is never guarded.
type DontCallDuringIterationError struct {
	Op string
}

func (e *DontCallDuringIterationError) Error() string {
	return fmt.Sprintf("driver: %s: cannot mutate member set during iteration", e.Op)
}

// NotAMemberError is returned by ReturnBack when the given child is not
// (or is no longer) a member of the Driver.
type NotAMemberError struct{}

func (e *NotAMemberError) Error() string {
	return "driver: child is not a member of this driver"
}
