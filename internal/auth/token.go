package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer signs HS256 session tokens with the store key.
type TokenIssuer struct {
	key []byte
	ttl time.Duration
}

func NewTokenIssuer(key string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{key: []byte(key), ttl: ttl}
}

func (t *TokenIssuer) Issue(accountID, email string, now time.Time) (string, time.Time, error) {
	exp := now.Add(t.ttl)
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Issuer:    "restaurant-system",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, exp, nil
}

func (t *TokenIssuer) Verify(raw string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(tk *jwt.Token) (interface{}, error) {
		if tk.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return t.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify session token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("verify session token: invalid")
	}
	return &claims, nil
}
