package avssm

import "errors"

var (
	ErrEventOutOfRange = errors.New("event out of range")
	ErrInvalidState    = errors.New("invalid stream state")
	ErrUnknownAction   = errors.New("unknown action")
	ErrMissingHandler  = errors.New("no handler for action")
	ErrIncompleteTable = errors.New("transition table incomplete")
)
