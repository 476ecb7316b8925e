package server

import (
	"net/http"
	"net/url"

	"github.com/hray3182/calfeed/internal/apperr"
	"github.com/hray3182/calfeed/internal/models"
)

type magicLinkRequest struct {
	Email string `json:"email"`
}

type magicLinkResponse struct {
	Message   string `json:"message"`
	ExpiresAt string `json:"expires_at"`
}

func (s *Server) handleRequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req magicLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	link, err := s.Issuer.RequestMagicLink(r.Context(), req.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, magicLinkResponse{
		Message:   "sign-in link sent",
		ExpiresAt: link.ExpiresAt.Format(timeLayout),
	})
}

// handleVerifyMagicLink redeems the emailed token and sends the browser to
// the frontend with a session token.
func (s *Server) handleVerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	email, err := s.Verifier.ConsumeMagicLink(r.Context(), r.PathValue("token"))
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindNotFound, apperr.KindAlreadyUsed, apperr.KindExpired:
			http.Error(w, "This sign-in link is no longer valid. Request a new one.", http.StatusBadRequest)
		default:
			s.Logger.ErrorContext(r.Context(), "magic link verification failed", "error", err)
			http.Error(w, "Sign-in failed, please try again.", http.StatusInternalServerError)
		}
		return
	}

	token, _, err := s.Issuer.IssueSession(email)
	if err != nil {
		s.Logger.ErrorContext(r.Context(), "failed to issue session", "error", err)
		http.Error(w, "Sign-in failed, please try again.", http.StatusInternalServerError)
		return
	}

	s.Logger.InfoContext(r.Context(), "user signed in", "email", email)
	target := s.cfg.FrontendURL + "/auth/callback?token=" + url.QueryEscape(token)
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	email := owner(r)
	if s.Users == nil {
		writeJSON(w, http.StatusOK, models.User{Email: email})
		return
	}

	user, err := s.Users.GetByEmail(r.Context(), email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
