package handler

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"

	"github.com/rumora/website/internal/apperror"
	"github.com/rumora/website/internal/model"
	"github.com/rumora/website/internal/service"
)

// maxSignupBody bounds the signup request body.
const maxSignupBody = 16 << 10

// Catalog is the read side of the marketing catalog plus signups.
type Catalog interface {
	Plans() []model.Plan
	Offerings() []model.Offering
	Signup(req service.SignupRequest) (*service.SignupResult, error)
}

// CatalogHandler serves the public catalog API.
type CatalogHandler struct {
	catalog Catalog
	logger  *slog.Logger
}

func NewCatalogHandler(catalog Catalog, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// HandlePlans lists the subscription plans.
//
// HTTP: GET /api/plans
func (h *CatalogHandler) HandlePlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Plans())
}

// HandleServices lists the services on offer.
//
// HTTP: GET /api/services
func (h *CatalogHandler) HandleServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Offerings())
}

// HandleSignup accepts a JSON or form-encoded signup.
//
// HTTP: POST /api/signup
func (h *CatalogHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSignupBody)

	var req service.SignupRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Warn("invalid signup JSON", slog.String("error", err.Error()))
			writeError(w, apperror.ValidationFailed("", "request body must be valid JSON"))
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, apperror.ValidationFailed("", "request body could not be parsed"))
			return
		}
		req.Email = r.PostForm.Get("email")
		req.Name = r.PostForm.Get("name")
	}

	res, err := h.catalog.Signup(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
