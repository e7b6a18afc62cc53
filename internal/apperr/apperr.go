// Package apperr carries the error classification shared by the cart and
// catalog domains and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInternal        Kind = "internal"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindUnavailable     Kind = "unavailable"
	KindUnauthenticated Kind = "unauthenticated"
	KindEmptyResult     Kind = "empty_result"
	KindInvalid         Kind = "invalid"
)

// Error describes a failed operation with enough context to render a
// user-facing message: the entity involved, the offending field and value.
type Error struct {
	Kind   Kind
	Entity string
	Field  string
	Value  any
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := string(e.Kind)
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Entity == "" {
		return msg
	}
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Entity, msg)
	}
	return fmt.Sprintf("%s %s=%v: %s", e.Entity, e.Field, e.Value, msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, entity, field string, value any, err error) *Error {
	return &Error{Kind: kind, Entity: entity, Field: field, Value: value, Err: err}
}

func NotFound(entity, field string, value any, err error) *Error {
	return New(KindNotFound, entity, field, value, err)
}

func Conflict(entity, field string, value any, err error) *Error {
	return New(KindConflict, entity, field, value, err)
}

func Unavailable(entity, field string, value any, err error) *Error {
	return New(KindUnavailable, entity, field, value, err)
}

func Invalid(entity, field string, value any, err error) *Error {
	return New(KindInvalid, entity, field, value, err)
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
