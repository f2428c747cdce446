package play

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation  Kind = "VALIDATION"
	KindNotFound    Kind = "NOT_FOUND"
	KindIneligible  Kind = "INELIGIBLE"
	KindExhausted   Kind = "EXHAUSTED"
	KindSoftFailure Kind = "EXTERNAL_SOFT_FAILURE"
	KindStorage     Kind = "STORAGE_FAILURE"
)

// Store sentinels. Implementations wrap or return these directly.
var (
	ErrNotFound       = errors.New("not found")
	ErrStockConflict  = errors.New("prize stock exhausted")
	ErrDuplicateEntry = errors.New("entry already recorded")
)

// Error is a play failure surfaced to the caller. Message is player-facing.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func notFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func ineligible(msg string) *Error {
	return &Error{Kind: KindIneligible, Message: msg}
}

func exhausted() *Error {
	return &Error{Kind: KindExhausted, Message: "No prizes are available for this campaign"}
}

func storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Message: "Unable to record play, please retry", Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf returns the taxonomy kind of err, or STORAGE_FAILURE for anything unclassified.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindStorage
}
