package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthenticated = errors.New("not signed in")
	ErrInvalidURL       = errors.New("please enter a valid URL")
	ErrEmptyTitle       = errors.New("please enter a title")
	ErrEmptyURL         = errors.New("please enter a URL")
)

// BackendError is a non-2xx response from the hosted backend.
type BackendError struct {
	Status  int
	Code    string
	Message string
}

func (e *BackendError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend %d [%s]: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a backend rejection of the user's token.
func IsUnauthorized(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Status == 401 || be.Status == 403
	}
	return false
}
