// Package apperr carries domain failures with an HTTP-style status code so
// both surfaces translate them uniformly: HTTP controllers to JSON envelopes,
// the socket controller to in-band error frames.
package apperr

import (
	"errors"
	"net/http"
)

type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

func NotFound(message string) *Error {
	return &Error{Code: http.StatusNotFound, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Code: http.StatusForbidden, Message: message}
}

func BadRequest(message string) *Error {
	return &Error{Code: http.StatusBadRequest, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Code: http.StatusConflict, Message: message}
}

// As unwraps err into *Error when it is one.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
