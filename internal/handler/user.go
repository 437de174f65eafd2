package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rumora/website/internal/apperror"
	"github.com/rumora/website/internal/auth"
	"github.com/rumora/website/internal/model"
)

// CapeClaimer grants the one-time free cape.
type CapeClaimer interface {
	ClaimCape(ctx context.Context, userID string) (*model.User, error)
}

// ClaimCapeResponse is the body of a successful claim.
type ClaimCapeResponse struct {
	Success   bool   `json:"success"`
	CapeCount int    `json:"capeCount"`
	Message   string `json:"message"`
}

// UserHandler serves the signed-in user's JSON API.
type UserHandler struct {
	capes  CapeClaimer
	logger *slog.Logger
}

func NewUserHandler(capes CapeClaimer, logger *slog.Logger) *UserHandler {
	return &UserHandler{capes: capes, logger: logger}
}

// HandleProfile returns the caller's profile.
//
// HTTP: GET /api/user/profile (RequireUserAPI)
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	if id.IsGuest() {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}
	writeJSON(w, http.StatusOK, id.User)
}

// HandleClaimCape grants the free cape once per account. A repeat claim is
// 409 already_claimed and changes nothing.
//
// HTTP: POST /api/user/claim-cape (RequireUserAPI)
func (h *UserHandler) HandleClaimCape(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	if id.IsGuest() {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	user, err := h.capes.ClaimCape(r.Context(), id.User.ID)
	if err != nil {
		h.logger.Info("cape claim rejected",
			slog.String("userID", id.User.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ClaimCapeResponse{
		Success:   true,
		CapeCount: user.CapeCount,
		Message:   "Your free magical cape has been claimed!",
	})
}
