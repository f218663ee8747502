package auth

import (
	"context"
	"errors"
)

var ErrNoCredentials = errors.New("no operator credentials configured")

type Credentials struct {
	Email    string
	Password string
}

// CredentialProvider supplies the service account the terminal signs in
// with. Credentials come from configuration, never from source.
type CredentialProvider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

type StaticCredentials Credentials

func (c StaticCredentials) Credentials(context.Context) (Credentials, error) {
	if c.Email == "" || c.Password == "" {
		return Credentials{}, ErrNoCredentials
	}
	return Credentials(c), nil
}
