package auth

import (
	"context"
	"fmt"
	"time"

	"restaurant-system/internal/common/logger"
	"restaurant-system/internal/common/retry"
)

// TokenVerifier checks a stored session token. *TokenIssuer implements it.
type TokenVerifier interface {
	Verify(raw string) (*Claims, error)
}

// Bootstrap makes sure a session exists before any data call. When Tokens
// is set, a stored session is reused only if its token verifies and names
// the same account.
type Bootstrap struct {
	Sessions SessionStore
	Auth     Authenticator
	Creds    CredentialProvider
	Tokens   TokenVerifier
	Policy   retry.Policy
	Log      *logger.Logger
	Now      func() time.Time
}

// Ensure returns the stored session when it is still valid and signs in
// otherwise. The whole attempt runs under one retry policy; the last
// failure is returned unchanged.
func (b *Bootstrap) Ensure(ctx context.Context) (*Session, error) {
	now := b.Now
	if now == nil {
		now = time.Now
	}
	lg := b.Log
	if lg == nil {
		lg = logger.Nop()
	}

	s, err := retry.Value(ctx, b.Policy, func(ctx context.Context) (*Session, error) {
		s, err := b.Sessions.Load(ctx)
		if err != nil {
			return nil, err
		}
		if s.Valid(now()) {
			verr := b.verify(s)
			if verr == nil {
				return s, nil
			}
			lg.Warn("stored_session_rejected", verr, map[string]any{"account_id": s.AccountID})
		}
		creds, err := b.Creds.Credentials(ctx)
		if err != nil {
			return nil, err
		}
		s, err = b.Auth.SignInWithPassword(ctx, creds)
		if err != nil {
			return nil, err
		}
		if err := b.Sessions.Save(ctx, s); err != nil {
			return nil, err
		}
		lg.Info("signed_in", map[string]any{"account_id": s.AccountID, "expires_at": s.ExpiresAt})
		return s, nil
	})
	if err != nil {
		lg.Error("authentication_failed", err, map[string]any{"kind": string(Classify(err))})
		return nil, err
	}
	return s, nil
}

func (b *Bootstrap) verify(s *Session) error {
	if b.Tokens == nil {
		return nil
	}
	claims, err := b.Tokens.Verify(s.AccessToken)
	if err != nil {
		return err
	}
	if claims.Subject != s.AccountID {
		return fmt.Errorf("session token belongs to %q, not %q", claims.Subject, s.AccountID)
	}
	return nil
}
