package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/conjurecontent/backend/api/middleware"
	"github.com/conjurecontent/backend/api/responses"
	"github.com/conjurecontent/backend/api/validators"
	"github.com/conjurecontent/backend/internal/jobstore"
	"github.com/conjurecontent/backend/pkg/db/models"
	pkgerrors "github.com/conjurecontent/backend/pkg/errors"
	"github.com/conjurecontent/backend/pkg/logger"
)

type linkSessionRequest struct {
	AccessToken    string    `json:"access_token" validate:"required"`
	RefreshToken   string    `json:"refresh_token"`
	ExpiresAt      time.Time `json:"expires_at" validate:"required"`
	ExternalUserID string    `json:"external_user_id" validate:"required"`
	Username       string    `json:"username"`
	AvatarURL      string    `json:"avatar_url"`
}

// sessionResponse deliberately omits the tokens; they never leave the server
// once stored.
type sessionResponse struct {
	ID             uuid.UUID `json:"id"`
	ExternalUserID string    `json:"external_user_id"`
	Username       string    `json:"username"`
	AvatarURL      string    `json:"avatar_url"`
	Status         string    `json:"status"`
	ExpiresAt      time.Time `json:"expires_at"`
	CreatedAt      time.Time `json:"created_at"`
}

func toSessionResponse(session models.PlatformSession) sessionResponse {
	return sessionResponse{
		ID:             session.ID,
		ExternalUserID: session.ExternalUserID,
		Username:       session.Username,
		AvatarURL:      session.AvatarURL,
		Status:         session.Status.String(),
		ExpiresAt:      session.ExpiresAt,
		CreatedAt:      session.CreatedAt,
	}
}

// LinkPlatformSession stores a credential set from the platform's account
// link flow.
func LinkPlatformSession(svc jobstore.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := middleware.OwnerIDFromContext(r.Context())
		if ownerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		var req linkSessionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.LinkSession(r.Context(), jobstore.LinkSessionInput{
			OwnerID:        ownerID,
			AccessToken:    req.AccessToken,
			RefreshToken:   req.RefreshToken,
			ExpiresAt:      req.ExpiresAt,
			ExternalUserID: req.ExternalUserID,
			Username:       req.Username,
			AvatarURL:      req.AvatarURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toSessionResponse(*session))
	}
}

// ListPlatformSessions returns the caller's linked and unlinked sessions.
func ListPlatformSessions(svc jobstore.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := middleware.OwnerIDFromContext(r.Context())
		if ownerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		sessions, err := svc.ListSessions(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]sessionResponse, 0, len(sessions))
		for _, session := range sessions {
			out = append(out, toSessionResponse(session))
		}
		responses.WriteSuccess(w, out)
	}
}

// UnlinkPlatformSession revokes a session and soft-deletes its jobs.
func UnlinkPlatformSession(svc jobstore.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := middleware.OwnerIDFromContext(r.Context())
		if ownerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid session id"))
			return
		}

		if err := svc.UnlinkSession(r.Context(), ownerID, sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "unlinked"})
	}
}
