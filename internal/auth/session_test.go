package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hray3182/calfeed/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestSessions(t *testing.T, now time.Time) *Sessions {
	t.Helper()
	s, err := NewSessions(testSecret)
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	return s
}

func TestNewSessionsRejectsShortSecret(t *testing.T) {
	_, err := NewSessions([]byte("short"))
	assert.Error(t, err)
}

func TestSessionRoundTrip(t *testing.T) {
	issued := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSessions(t, issued)

	token, expires, err := s.Issue("a@b.com")
	require.NoError(t, err)
	assert.Equal(t, issued.Add(SessionTTL), expires)

	email, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", email)
}

func TestSessionVerifyErrors(t *testing.T) {
	issued := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	token, _, err := newTestSessions(t, issued).Issue("a@b.com")
	require.NoError(t, err)

	otherKey, err := NewSessions([]byte(strings.Repeat("z", 32)))
	require.NoError(t, err)
	otherKey.now = func() time.Time { return issued }
	forged, _, err := otherKey.Issue("a@b.com")
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, sessionClaims{
		Email: "a@b.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noEmail, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
	}).SignedString(testSecret)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{Email: "a@b.com"}).
		SignedString(testSecret)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		now   time.Time
		want  *apperr.Error
	}{
		{"missing", "", issued, apperr.ErrUnauthenticated},
		{"garbage", "not-a-token", issued, apperr.ErrInvalidToken},
		{"wrong key", forged, issued, apperr.ErrInvalidToken},
		{"alg none", noneToken, issued, apperr.ErrInvalidToken},
		{"no email", noEmail, issued, apperr.ErrInvalidToken},
		{"no expiry", noExpiry, issued, apperr.ErrInvalidToken},
		{"expired", token, issued.Add(SessionTTL + time.Second), apperr.ErrExpired},
		{"at expiry", token, issued.Add(SessionTTL), apperr.ErrExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestSessions(t, tt.now).Verify(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSessionValidJustBeforeExpiry(t *testing.T) {
	issued := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	token, _, err := newTestSessions(t, issued).Issue("a@b.com")
	require.NoError(t, err)

	email, err := newTestSessions(t, issued.Add(SessionTTL-time.Second)).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", email)
}
