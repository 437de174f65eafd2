package handler

import (
	"net/http"
	"time"

	"github.com/rumora/website/internal/config"
)

const (
	serviceName    = "rumora-website"
	serviceVersion = "1.0.0"
)

// HealthResponse reports liveness and which settings are present. It carries
// presence flags only, never configured values.
type HealthResponse struct {
	Status        string        `json:"status"`
	Service       string        `json:"service"`
	Version       string        `json:"version"`
	Environment   string        `json:"environment"`
	Timestamp     string        `json:"timestamp"`
	Discord       DiscordHealth `json:"discord"`
	SessionSecret bool          `json:"sessionSecret"`
}

type DiscordHealth struct {
	Configured      bool   `json:"configured"`
	ClientIDPreview string `json:"clientIdPreview,omitempty"`
	RedirectURI     bool   `json:"redirectUri"`
}

type HealthHandler struct {
	cfg config.Config
	now func() time.Time
}

func NewHealthHandler(cfg config.Config) *HealthHandler {
	return &HealthHandler{cfg: cfg, now: time.Now}
}

// HandleHealth reports liveness and which settings are present.
//
// HTTP: GET /health
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	discord := DiscordHealth{
		Configured:  h.cfg.DiscordConfigured(),
		RedirectURI: h.cfg.DiscordRedirectURI != "",
	}
	if discord.Configured {
		discord.ClientIDPreview = preview(h.cfg.DiscordClientID, 4)
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		Service:       serviceName,
		Version:       serviceVersion,
		Environment:   h.cfg.Environment,
		Timestamp:     h.now().UTC().Format(time.RFC3339),
		Discord:       discord,
		SessionSecret: h.cfg.SessionSecret != "",
	})
}

// preview keeps the first n runes of s and marks the cut.
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r) + "…"
}
