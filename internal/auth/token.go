package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a session token is malformed, has a bad
// signature, or has expired.
var ErrInvalidToken = errors.New("auth: invalid token")

const defaultTokenTTL = 24 * time.Hour

// TokenManagerOption is a functional option for configuring a TokenManager.
type TokenManagerOption func(*TokenManager)

// WithTokenTTL sets how long issued tokens stay valid. Defaults to 24 h.
func WithTokenTTL(d time.Duration) TokenManagerOption {
	return func(m *TokenManager) {
		m.ttl = d
	}
}

// TokenManager issues and validates HS256-signed session tokens. Tokens
// carry the username as their subject claim. The manager is stateless and
// safe for concurrent use.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager constructs a TokenManager over the given signing secret.
func NewTokenManager(secret string, opts ...TokenManagerOption) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret must not be empty")
	}
	m := &TokenManager{
		secret: []byte(secret),
		ttl:    defaultTokenTTL,
		now:    time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// Issue creates a signed token for username, valid for the configured TTL.
func (m *TokenManager) Issue(username string) (string, error) {
	if username == "" {
		return "", errors.New("auth: username must not be empty")
	}
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Parse validates tokenString and returns the username it was issued for.
// Only HS256 signatures are accepted.
func (m *TokenManager) Parse(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(t *jwt.Token) (any, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
