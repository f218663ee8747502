package auth

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

type ErrorKind string

const (
	KindConnectivity       ErrorKind = "connectivity"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindUnexpected         ErrorKind = "unexpected"
)

// Classify tells connectivity problems from bad credentials by inspecting
// the error chain.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrNoCredentials) {
		return KindInvalidCredentials
	}
	var (
		netErr  net.Error
		connErr *pgconn.ConnectError
	)
	switch {
	case errors.As(err, &connErr),
		errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET):
		return KindConnectivity
	}
	return KindUnexpected
}

func UserMessage(k ErrorKind) string {
	switch k {
	case KindConnectivity:
		return "Connection failed. Please check your internet connection and try again."
	case KindInvalidCredentials:
		return "Authentication failed. Please contact support."
	default:
		return "An unexpected error occurred. Please try again."
	}
}
