// Package handler contains the HTTP handlers of the site.
//
// Handlers parse the request, call a service and write the response. They
// hold no business rules and never touch the stores directly.
package handler

import (
	"html"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rumora/website/internal/auth"
	"github.com/rumora/website/internal/model"
	"github.com/rumora/website/internal/render"
)

// Page names, matching the documents in web/templates.
const (
	PageHome      = "index"
	PageSignIn    = "signin"
	PageSignUp    = "signup"
	PageDashboard = "dashboard"
	PageNotFound  = "404"
)

// Site paths shared by the page and auth handlers.
const (
	HomePath      = "/testing"
	SignInPath    = "/testing/signin"
	SignUpPath    = "/testing/signup"
	DashboardPath = "/testing/dashboard"
	LoginPath     = "/auth/discord"
)

const dateLayout = "Jan 2, 2006"

// authErrorMessages are the sign-in errors the auth handler redirects with.
// Any other ?error value is ignored rather than reflected into the page.
var authErrorMessages = map[string]string{
	"oauth_failed":      "Discord sign-in failed. Please try again.",
	"oauth_unavailable": "Discord sign-in is not available right now.",
	"unknown_provider":  "That sign-in method is not supported.",
}

// PageHandler serves the HTML pages.
type PageHandler struct {
	pages  *render.Set
	logger *slog.Logger
}

// NewPageHandler creates a PageHandler over documents loaded at startup.
func NewPageHandler(pages *render.Set, logger *slog.Logger) *PageHandler {
	return &PageHandler{pages: pages, logger: logger}
}

// HandleHome serves the landing page for guests and signed-in users.
//
// HTTP: GET /testing (OptionalUser)
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())

	vars := identityVars(id)
	if id.IsGuest() {
		vars["NAV_LINK"] = SignInPath
		vars["NAV_LABEL"] = "Sign in"
	} else {
		vars["NAV_LINK"] = DashboardPath
		vars["NAV_LABEL"] = "Dashboard"
	}

	h.render(w, http.StatusOK, PageHome, vars)
}

// HandleSignIn serves the sign-in page.
//
// HTTP: GET /testing/signin[?error=code]
func (h *PageHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, PageSignIn, authPageVars(r))
}

// HandleSignUp serves the sign-up page. Both pages start the same Discord
// login; a first login creates the account.
//
// HTTP: GET /testing/signup
func (h *PageHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, PageSignUp, authPageVars(r))
}

// HandleDashboard serves the signed-in user's dashboard.
//
// HTTP: GET /testing/dashboard (RequireUser)
func (h *PageHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	if id.IsGuest() {
		http.Redirect(w, r, SignInPath, http.StatusSeeOther)
		return
	}
	h.render(w, http.StatusOK, PageDashboard, identityVars(id))
}

// HandleNotFound serves the 404 page for every unmatched route.
func (h *PageHandler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusNotFound, PageNotFound, render.Vars{})
}

func (h *PageHandler) render(w http.ResponseWriter, status int, page string, vars render.Vars) {
	body, err := h.pages.Render(page, vars)
	if err != nil {
		h.logger.Error("failed to render page",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, status, body)
}

// authPageVars injects the login entry point and a known error code, if any.
func authPageVars(r *http.Request) render.Vars {
	vars := render.Vars{
		"DISCORD_AUTH_URL":   LoginPath,
		"AUTH_ERROR":         "",
		"AUTH_ERROR_MESSAGE": "",
	}
	code := r.URL.Query().Get("error")
	if msg, ok := authErrorMessages[code]; ok {
		vars["AUTH_ERROR"] = code
		vars["AUTH_ERROR_MESSAGE"] = msg
	}
	return vars
}

// identityVars builds the user placeholders. Provider-supplied strings are
// HTML-escaped here because render inserts values verbatim.
func identityVars(id auth.Identity) render.Vars {
	if id.IsGuest() {
		return render.Vars{
			"IS_LOGGED_IN": "false",
			"USER_NAME":    "Guest",
			"USER_AVATAR":  auth.AvatarURL("", "", "0"),
		}
	}
	return userVars(id.User)
}

func userVars(u *model.User) render.Vars {
	email := u.Email
	if email == "" {
		email = "Not shared"
	}
	return render.Vars{
		"IS_LOGGED_IN":      "true",
		"USER_ID":           html.EscapeString(u.ID),
		"USER_NAME":         html.EscapeString(u.Name()),
		"USER_USERNAME":     html.EscapeString(u.Username),
		"USER_EMAIL":        html.EscapeString(email),
		"USER_AVATAR":       html.EscapeString(u.AvatarURL),
		"USER_PLAN":         html.EscapeString(u.Plan),
		"CAPE_COUNT":        strconv.Itoa(u.CapeCount),
		"FREE_CAPE_CLAIMED": strconv.FormatBool(u.FreeCapeClaimed),
		"IS_ADMIN":          strconv.FormatBool(u.IsAdmin),
		"TRIAL_ENDS":        formatDate(u.TrialEndsAt),
		"JOINED_AT":         formatDate(u.JoinedAt),
		"LAST_LOGIN":        formatDate(u.LastLoginAt),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return t.UTC().Format(dateLayout)
}
