package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"restaurant-system/internal/common/retry"
	"restaurant-system/internal/store/storetest"
)

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type fakeAuth struct {
	calls int
	errs  []error
}

func (f *fakeAuth) SignInWithPassword(_ context.Context, c Credentials) (*Session, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &Session{AccessToken: "tok", AccountID: "acc-1", Email: c.Email, ExpiresAt: now.Add(time.Hour)}, nil
}

func recordingPolicy(delays *[]time.Duration) retry.Policy {
	return retry.Policy{
		Attempts: 3,
		Base:     time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			*delays = append(*delays, d)
			return nil
		},
	}
}

func newBootstrap(a Authenticator, delays *[]time.Duration) (*Bootstrap, *MemorySessionStore) {
	sessions := NewMemorySessionStore()
	return &Bootstrap{
		Sessions: sessions,
		Auth:     a,
		Creds:    StaticCredentials{Email: "ops@example.com", Password: "secret-pass"},
		Policy:   recordingPolicy(delays),
		Now:      func() time.Time { return now },
	}, sessions
}

func TestEnsure_ReusesValidSession(t *testing.T) {
	fa := &fakeAuth{}
	var delays []time.Duration
	b, sessions := newBootstrap(fa, &delays)
	require.NoError(t, sessions.Save(context.Background(), &Session{AccessToken: "cached", ExpiresAt: now.Add(time.Minute)}))

	s, err := b.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached", s.AccessToken)
	assert.Zero(t, fa.calls)
}

func TestEnsure_VerifiesStoredToken(t *testing.T) {
	issuer := NewTokenIssuer("store-key", time.Hour)
	good, _, err := issuer.Issue("acc-7", "ops@example.com", time.Now())
	require.NoError(t, err)
	foreign, _, err := NewTokenIssuer("old-key", time.Hour).Issue("acc-7", "ops@example.com", time.Now())
	require.NoError(t, err)

	tests := []struct {
		name       string
		session    Session
		wantSignIn bool
	}{
		{"verified", Session{AccessToken: good, AccountID: "acc-7"}, false},
		{"other key", Session{AccessToken: foreign, AccountID: "acc-7"}, true},
		{"other account", Session{AccessToken: good, AccountID: "acc-8"}, true},
		{"garbage", Session{AccessToken: "not-a-jwt", AccountID: "acc-7"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa := &fakeAuth{}
			var delays []time.Duration
			b, sessions := newBootstrap(fa, &delays)
			b.Tokens = issuer
			stored := tt.session
			stored.ExpiresAt = now.Add(time.Minute)
			require.NoError(t, sessions.Save(context.Background(), &stored))

			s, err := b.Ensure(context.Background())
			require.NoError(t, err)
			if tt.wantSignIn {
				assert.Equal(t, 1, fa.calls)
				assert.Equal(t, "tok", s.AccessToken)
			} else {
				assert.Zero(t, fa.calls)
				assert.Equal(t, good, s.AccessToken)
			}
			assert.Empty(t, delays)
		})
	}
}

func TestEnsure_SignsInWhenSessionExpired(t *testing.T) {
	fa := &fakeAuth{}
	var delays []time.Duration
	b, sessions := newBootstrap(fa, &delays)
	require.NoError(t, sessions.Save(context.Background(), &Session{AccessToken: "old", ExpiresAt: now.Add(-time.Minute)}))

	s, err := b.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", s.AccessToken)
	assert.Equal(t, 1, fa.calls)

	saved, err := sessions.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", saved.AccessToken)
}

func TestEnsure_RetriesThenSucceeds(t *testing.T) {
	down := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	fa := &fakeAuth{errs: []error{down, down}}
	var delays []time.Duration
	b, _ := newBootstrap(fa, &delays)

	_, err := b.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, fa.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestEnsure_ReturnsLastError(t *testing.T) {
	fa := &fakeAuth{errs: []error{ErrInvalidCredentials, ErrInvalidCredentials, ErrInvalidCredentials}}
	var delays []time.Duration
	b, _ := newBootstrap(fa, &delays)

	_, err := b.Ensure(context.Background())
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 3, fa.calls)
	assert.Len(t, delays, 2)
	assert.Equal(t, KindInvalidCredentials, Classify(err))
}

func TestEnsure_MissingCredentials(t *testing.T) {
	fa := &fakeAuth{}
	var delays []time.Duration
	b, _ := newBootstrap(fa, &delays)
	b.Creds = StaticCredentials{}

	_, err := b.Ensure(context.Background())
	require.ErrorIs(t, err, ErrNoCredentials)
	assert.Zero(t, fa.calls)
}

func TestPasswordAuthenticator(t *testing.T) {
	st := storetest.New()
	ctx := context.Background()
	id, err := CreateAccount(ctx, st, " Ops@Example.com ", "correct-horse", bcrypt.MinCost)
	require.NoError(t, err)

	issuer := NewTokenIssuer("store-key", time.Hour)
	a := NewPasswordAuthenticator(st, issuer)
	a.now = func() time.Time { return time.Now() }

	s, err := a.SignInWithPassword(ctx, Credentials{Email: "ops@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, id, s.AccountID)

	claims, err := issuer.Verify(s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id, claims.Subject)
	assert.Equal(t, "ops@example.com", claims.Email)

	_, err = a.SignInWithPassword(ctx, Credentials{Email: "ops@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.SignInWithPassword(ctx, Credentials{Email: "nobody@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordAuthenticator_InactiveAccount(t *testing.T) {
	st := storetest.New()
	ctx := context.Background()
	id, err := CreateAccount(ctx, st, "ops@example.com", "correct-horse", bcrypt.MinCost)
	require.NoError(t, err)
	_, err = st.Update(ctx, accountsTable, id, map[string]any{"active": false})
	require.NoError(t, err)

	a := NewPasswordAuthenticator(st, NewTokenIssuer("k", time.Hour))
	_, err = a.SignInWithPassword(ctx, Credentials{Email: "ops@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateAccount_RejectsShortPassword(t *testing.T) {
	_, err := CreateAccount(context.Background(), storetest.New(), "a@b.c", "short", bcrypt.MinCost)
	assert.Error(t, err)
}

func TestTokenIssuer_RejectsForeignKey(t *testing.T) {
	tok, _, err := NewTokenIssuer("a", time.Hour).Issue("id", "e", time.Now())
	require.NoError(t, err)
	_, err = NewTokenIssuer("b", time.Hour).Verify(tok)
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"invalid", fmt.Errorf("sign in: %w", ErrInvalidCredentials), KindInvalidCredentials},
		{"no creds", ErrNoCredentials, KindInvalidCredentials},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("refused")}, KindConnectivity},
		{"deadline", context.DeadlineExceeded, KindConnectivity},
		{"other", errors.New("boom"), KindUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
	assert.Contains(t, UserMessage(KindConnectivity), "internet connection")
}
