package domain

import "errors"

// ErrAlreadyExists reports a unique key collision in the store.
var ErrAlreadyExists = errors.New("already exists")

// ErrIllegalTransition is the parent of every state machine precondition failure.
var ErrIllegalTransition = errors.New("illegal ticket transition")

var (
	ErrTicketLocked          = illegalTransition("ticket is locked")
	ErrMustAssignFirst       = illegalTransition("ticket must be assigned before transfer to technical")
	ErrCompleteNotInProgress = illegalTransition("ticket can only be completed while in progress")
	ErrCloseNotNew           = illegalTransition("ticket can only be closed while new")
)

type transitionError struct {
	msg string
}

func illegalTransition(msg string) error {
	return &transitionError{msg: msg}
}

func (e *transitionError) Error() string { return e.msg }

func (e *transitionError) Unwrap() error { return ErrIllegalTransition }
