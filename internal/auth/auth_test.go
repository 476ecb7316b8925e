package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hray3182/calfeed/internal/apperr"
	"github.com/hray3182/calfeed/internal/mail"
	"github.com/hray3182/calfeed/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	links    *memLinks
	users    *memUsers
	mailer   *mockMailer
	issuer   *Issuer
	verifier *Verifier
	logs     *bytes.Buffer
	now      time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		links:  newMemLinks(),
		users:  newMemUsers(),
		mailer: &mockMailer{},
		logs:   &bytes.Buffer{},
		now:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	logger := slog.New(slog.NewTextHandler(f.logs, nil))
	sessions := newTestSessions(t, f.now)

	f.issuer = NewIssuer(f.links, f.users, f.mailer, sessions,
		IssuerConfig{BackendBaseURL: "https://api.example.com/", MailTimeout: time.Second}, logger)
	f.issuer.now = func() time.Time { return f.now }
	f.verifier = NewVerifier(f.links, f.users, sessions, logger)
	f.verifier.now = func() time.Time { return f.now }
	return f
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"a@b.com", "a@b.com", false},
		{"  A@B.Com ", "a@b.com", false},
		{"", "", true},
		{"   ", "", true},
		{"not an email", "", true},
		{"Alice <a@b.com>", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeEmail(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestMagicLink(t *testing.T) {
	f := newAuthFixture(t)
	var sent mail.Message
	f.mailer.On("Send", mock.Anything, mock.AnythingOfType("mail.Message")).
		Run(func(args mock.Arguments) { sent = args.Get(1).(mail.Message) }).
		Return(nil).Once()

	link, err := f.issuer.RequestMagicLink(context.Background(), " A@B.com ")
	require.NoError(t, err)

	assert.Equal(t, "a@b.com", link.Email)
	assert.Len(t, link.Token, 64)
	assert.Equal(t, f.now.Add(15*time.Minute), link.ExpiresAt)
	assert.False(t, link.Used)

	stored := f.links.only()
	require.NotNil(t, stored)
	assert.Equal(t, link.Token, stored.Token)
	assert.Contains(t, f.users.users, "a@b.com")

	assert.Equal(t, "a@b.com", sent.To)
	assert.Contains(t, sent.HTMLBody, "https://api.example.com/auth/verify/"+link.Token)
	f.mailer.AssertExpectations(t)
}

func TestRequestMagicLinkTokensAreUnique(t *testing.T) {
	f := newAuthFixture(t)
	f.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)

	first, err := f.issuer.RequestMagicLink(context.Background(), "a@b.com")
	require.NoError(t, err)
	second, err := f.issuer.RequestMagicLink(context.Background(), "a@b.com")
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
	assert.Len(t, f.users.users, 1)
}

func TestRequestMagicLinkMissingEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.issuer.RequestMagicLink(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Nil(t, f.links.only())
	f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestRequestMagicLinkStorageFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.links.createErr = apperr.Storage("failed to store magic link", errors.New("db down"))

	_, err := f.issuer.RequestMagicLink(context.Background(), "a@b.com")
	assert.ErrorIs(t, err, apperr.ErrStorage)
	f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestRequestMagicLinkDeliveryFailureKeepsLink(t *testing.T) {
	f := newAuthFixture(t)
	f.mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp 550")).Once()

	_, err := f.issuer.RequestMagicLink(context.Background(), "a@b.com")
	assert.ErrorIs(t, err, apperr.ErrDelivery)
	assert.NotErrorIs(t, err, apperr.ErrStorage)
	assert.Contains(t, f.logs.String(), "magic link delivery failed")

	stored := f.links.only()
	require.NotNil(t, stored)
	email, err := f.verifier.ConsumeMagicLink(context.Background(), stored.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", email)
}

func TestConsumeMagicLink(t *testing.T) {
	f := newAuthFixture(t)
	f.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	link, err := f.issuer.RequestMagicLink(ctx, "a@b.com")
	require.NoError(t, err)

	f.now = f.now.Add(5 * time.Minute)
	email, err := f.verifier.ConsumeMagicLink(ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", email)

	user := f.users.users["a@b.com"]
	require.NotNil(t, user.LastLoginAt)
	assert.Equal(t, f.now, *user.LastLoginAt)

	_, err = f.verifier.ConsumeMagicLink(ctx, link.Token)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConsumeMagicLinkUnknown(t *testing.T) {
	f := newAuthFixture(t)

	for _, token := range []string{"", "deadbeef"} {
		_, err := f.verifier.ConsumeMagicLink(context.Background(), token)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	}
}

func TestConsumeMagicLinkExpired(t *testing.T) {
	f := newAuthFixture(t)
	require.NoError(t, f.links.Create(context.Background(), &models.MagicLink{
		Token:     "old",
		Email:     "a@b.com",
		ExpiresAt: f.now.Add(-time.Second),
	}))

	_, err := f.verifier.ConsumeMagicLink(context.Background(), "old")
	assert.ErrorIs(t, err, apperr.ErrExpired)
	assert.False(t, f.links.only().Used)
}

func TestConsumeMagicLinkConcurrent(t *testing.T) {
	f := newAuthFixture(t)
	require.NoError(t, f.links.Create(context.Background(), &models.MagicLink{
		Token:     "once",
		Email:     "a@b.com",
		ExpiresAt: f.now.Add(time.Minute),
	}))

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.verifier.ConsumeMagicLink(context.Background(), "once")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	require.Len(t, failures, callers-1)
	for _, err := range failures {
		kind := apperr.KindOf(err)
		assert.True(t, kind == apperr.KindNotFound || kind == apperr.KindAlreadyUsed, "unexpected kind %s", kind)
	}
}

func TestConsumeMagicLinkTouchFailureIsWarning(t *testing.T) {
	f := newAuthFixture(t)
	f.users.touchErr = errors.New("db down")
	require.NoError(t, f.links.Create(context.Background(), &models.MagicLink{
		Token:     "tok",
		Email:     "a@b.com",
		ExpiresAt: f.now.Add(time.Minute),
	}))

	email, err := f.verifier.ConsumeMagicLink(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", email)
	assert.Contains(t, f.logs.String(), "failed to record login")
}

func TestIssueAndVerifySession(t *testing.T) {
	f := newAuthFixture(t)

	token, expires, err := f.issuer.IssueSession("a@b.com")
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(7*24*time.Hour), expires)

	email, err := f.verifier.VerifySession(token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", email)
}
