package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/hray3182/calfeed/internal/apperr"
	"github.com/hray3182/calfeed/internal/mail"
	"github.com/hray3182/calfeed/internal/models"
)

// tokenBytes gives magic-link tokens 256 bits of entropy.
const tokenBytes = 32

type MagicLinkStore interface {
	Create(ctx context.Context, link *models.MagicLink) error
	FindUnused(ctx context.Context, token string) (*models.MagicLink, error)
	MarkUsed(ctx context.Context, token string, now time.Time) (bool, error)
}

type UserStore interface {
	Upsert(ctx context.Context, email string) (*models.User, error)
	TouchLogin(ctx context.Context, email string, at time.Time) error
}

type IssuerConfig struct {
	// BackendBaseURL prefixes the verification path in emailed links.
	BackendBaseURL string
	MailTimeout    time.Duration
}

type Issuer struct {
	links    MagicLinkStore
	users    UserStore
	mailer   mail.Mailer
	sessions *Sessions
	cfg      IssuerConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewIssuer(links MagicLinkStore, users UserStore, mailer mail.Mailer, sessions *Sessions, cfg IssuerConfig, logger *slog.Logger) *Issuer {
	cfg.BackendBaseURL = strings.TrimRight(cfg.BackendBaseURL, "/")
	return &Issuer{
		links:    links,
		users:    users,
		mailer:   mailer,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// NormalizeEmail trims and lowercases email and rejects anything that is not
// a bare address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperr.Validation("email is required")
	}
	addr, err := netmail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.Validation("email is not a valid address")
	}
	return email, nil
}

// VerifyURL is the address a user follows to redeem token.
func (i *Issuer) VerifyURL(token string) string {
	return i.cfg.BackendBaseURL + "/auth/verify/" + token
}

// RequestMagicLink persists a fresh single-use link for email, makes sure
// the user exists and mails the link. When delivery fails the link stays
// stored and a DeliveryError is returned; a retry issues a new token.
func (i *Issuer) RequestMagicLink(ctx context.Context, email string) (*models.MagicLink, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	token, err := newToken()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to generate token", err)
	}

	link := &models.MagicLink{
		Token:     token,
		Email:     email,
		ExpiresAt: i.now().UTC().Add(models.MagicLinkTTL),
	}
	if err := i.links.Create(ctx, link); err != nil {
		return nil, err
	}

	if _, err := i.users.Upsert(ctx, email); err != nil {
		return nil, err
	}

	msg, err := mail.VerificationMessage(email, i.VerifyURL(token), int(models.MagicLinkTTL/time.Minute))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDelivery, "failed to send sign-in email", err)
	}

	sendCtx := ctx
	if i.cfg.MailTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, i.cfg.MailTimeout)
		defer cancel()
	}
	if err := i.mailer.Send(sendCtx, msg); err != nil {
		i.logger.ErrorContext(ctx, "magic link delivery failed", "email", email, "error", err)
		return nil, apperr.Wrap(apperr.KindDelivery, "failed to send sign-in email", err)
	}

	i.logger.InfoContext(ctx, "magic link issued", "email", email, "expires_at", link.ExpiresAt)
	return link, nil
}

// IssueSession mints a session token for email.
func (i *Issuer) IssueSession(email string) (string, time.Time, error) {
	return i.sessions.Issue(email)
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
