package services

import (
	"errors"
	"fmt"

	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/models"
)

// ErrNoMessages is returned when the backend has no messages for the requested number
var ErrNoMessages = errors.New("no messages found for this number")

// GenericFetchErrorMessage is shown when the backend gives no message of its own
const GenericFetchErrorMessage = "failed to fetch messages"

// FetchErrorKind tells apart the ways a message fetch can fail
type FetchErrorKind int

const (
	// FetchErrorNotFound means the backend returned no records
	FetchErrorNotFound FetchErrorKind = iota + 1
	// FetchErrorBackend means the backend answered with an error status or an unreadable body
	FetchErrorBackend
	// FetchErrorNetwork means the request never got an answer
	FetchErrorNetwork
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchErrorNotFound:
		return "not_found"
	case FetchErrorBackend:
		return "backend"
	case FetchErrorNetwork:
		return "network"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// FetchError is the failure of a message fetch.
// Message carries the backend's own error text when it sent one.
type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int
	Message    string
	Err        error
}

// Error returns the user-facing message of the failure
func (e *FetchError) Error() string {
	switch {
	case e.Kind == FetchErrorNotFound:
		return ErrNoMessages.Error()
	case e.Message != "":
		return e.Message
	default:
		return GenericFetchErrorMessage
	}
}

func (e *FetchError) Unwrap() error {
	if e.Kind == FetchErrorNotFound {
		return ErrNoMessages
	}
	return e.Err
}

func newNotFoundError() *FetchError {
	return &FetchError{Kind: FetchErrorNotFound}
}

func newBackendError(statusCode int, message string, err error) *FetchError {
	return &FetchError{
		Kind:       FetchErrorBackend,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

func newNetworkError(err error) *FetchError {
	return &FetchError{
		Kind: FetchErrorNetwork,
		Err:  err,
	}
}

// UserMessage returns the operator-facing message of an analysis failure
func UserMessage(err error) string {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Error()
	}
	if errors.Is(err, models.ErrInvalidDateRange) {
		return models.ErrInvalidDateRange.Error()
	}
	return GenericFetchErrorMessage
}
