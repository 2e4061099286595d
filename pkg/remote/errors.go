package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a remote failure by how the caller must recover from it.
type Kind string

const (
	// KindAuth: missing or rejected credential. Fatal for the attempted operation.
	KindAuth Kind = "auth"
	// KindNetwork: transport failure or timeout.
	KindNetwork Kind = "network"
	// KindConflict: the store rejected the request (validation, stale status, unknown id).
	KindConflict Kind = "conflict"
	// KindShape: the response did not match the envelope contract.
	KindShape Kind = "shape"
	// KindServer: the store answered 5xx.
	KindServer Kind = "server"
)

type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("remote store %s error: status=%d: %s", e.Kind, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("remote store %s error: status=%d", e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("remote store %s error: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("remote store %s error: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or "" when err is not a remote error.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// MessageOf returns the operator-facing message carried by err. Store messages
// are returned verbatim.
func MessageOf(err error) string {
	var re *Error
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status >= 500:
		return KindServer
	default:
		return KindConflict
	}
}

func transportError(err error) *Error {
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		return &Error{Kind: KindNetwork, Message: "request timed out", Err: err}
	default:
		return &Error{Kind: KindNetwork, Err: err}
	}
}
