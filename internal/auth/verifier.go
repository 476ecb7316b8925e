package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hray3182/calfeed/internal/apperr"
)

type Verifier struct {
	links    MagicLinkStore
	users    UserStore
	sessions *Sessions
	logger   *slog.Logger
	now      func() time.Time
}

func NewVerifier(links MagicLinkStore, users UserStore, sessions *Sessions, logger *slog.Logger) *Verifier {
	return &Verifier{
		links:    links,
		users:    users,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// ConsumeMagicLink redeems token and returns the email it was issued to.
// Of several concurrent calls with the same token at most one succeeds; the
// rest fail with NotFound or AlreadyUsed.
func (v *Verifier) ConsumeMagicLink(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperr.NotFound("sign-in link not found")
	}

	link, err := v.links.FindUnused(ctx, token)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return "", apperr.NotFound("sign-in link not found")
		}
		return "", err
	}

	now := v.now().UTC()
	if link.IsExpired(now) {
		return "", apperr.New(apperr.KindExpired, "sign-in link expired")
	}

	ok, err := v.links.MarkUsed(ctx, token, now)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.New(apperr.KindAlreadyUsed, "sign-in link already used")
	}

	// The link is spent at this point, so a failed bookkeeping write must
	// not cost the user their session.
	if err := v.users.TouchLogin(ctx, link.Email, now); err != nil {
		v.logger.WarnContext(ctx, "failed to record login", "email", link.Email, "error", err)
	}

	return link.Email, nil
}

// VerifySession validates a session token without touching storage.
func (v *Verifier) VerifySession(token string) (string, error) {
	return v.sessions.Verify(token)
}
