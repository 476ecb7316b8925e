package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hray3182/calfeed/internal/apperr"
)

// SessionTTL is the lifetime of a session token.
const SessionTTL = 7 * 24 * time.Hour

// MinSecretLen is the shortest accepted signing secret, in bytes.
const MinSecretLen = 32

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Sessions signs and checks stateless session tokens with a symmetric key.
type Sessions struct {
	secret []byte
	now    func() time.Time
}

func NewSessions(secret []byte) (*Sessions, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("session secret must be at least %d bytes", MinSecretLen)
	}
	return &Sessions{secret: secret, now: time.Now}, nil
}

// Issue returns a token for email valid for SessionTTL, and its expiry.
func (s *Sessions) Issue(email string) (string, time.Time, error) {
	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(SessionTTL)

	claims := sessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and expiry of token and returns its email.
// It never touches storage.
func (s *Sessions) Verify(token string) (string, error) {
	if token == "" {
		return "", apperr.New(apperr.KindUnauthenticated, "missing session token")
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", apperr.Wrap(apperr.KindExpired, "session expired", err)
	case err != nil:
		return "", apperr.Wrap(apperr.KindInvalidToken, "invalid session token", err)
	case claims.Email == "":
		return "", apperr.New(apperr.KindInvalidToken, "invalid session token")
	}

	return claims.Email, nil
}
