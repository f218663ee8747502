package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"restaurant-system/internal/store"
)

const accountsTable = "staff_accounts"

var ErrInvalidCredentials = errors.New("invalid credentials")

type Authenticator interface {
	SignInWithPassword(ctx context.Context, c Credentials) (*Session, error)
}

// PasswordAuthenticator checks credentials against staff_accounts and
// issues a signed session.
type PasswordAuthenticator struct {
	store  store.Store
	issuer *TokenIssuer
	now    func() time.Time
}

func NewPasswordAuthenticator(st store.Store, issuer *TokenIssuer) *PasswordAuthenticator {
	return &PasswordAuthenticator{store: st, issuer: issuer, now: time.Now}
}

func (a *PasswordAuthenticator) SignInWithPassword(ctx context.Context, c Credentials) (*Session, error) {
	rows, err := a.store.Select(ctx, store.Query{
		Table: accountsTable,
		Where: []store.Cond{store.Eq("email", normalizeEmail(c.Email))},
	})
	if err != nil {
		return nil, fmt.Errorf("look up account: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrInvalidCredentials
	}
	acc := rows[0]
	if active, ok := acc["active"].(bool); ok && !active {
		return nil, ErrInvalidCredentials
	}
	hash, _ := acc["password_hash"].(string)
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(c.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	id, _ := acc["id"].(string)
	email, _ := acc["email"].(string)
	token, exp, err := a.issuer.Issue(id, email, a.now())
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: token, AccountID: id, Email: email, ExpiresAt: exp}, nil
}

// CreateAccount stores a staff account with a bcrypt hash of password.
func CreateAccount(ctx context.Context, st store.Store, email, password string, cost int) (string, error) {
	if email == "" || len(password) < 8 {
		return "", errors.New("email and a password of at least 8 characters are required")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	id := uuid.NewString()
	if _, err := st.Insert(ctx, accountsTable, store.Record{
		"id":            id,
		"email":         normalizeEmail(email),
		"password_hash": string(hash),
		"active":        true,
	}); err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}
	return id, nil
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }
