package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rumora/website/internal/auth"
)

// Routes is the site's route table. The server mounts it on its router
// after the global middleware.
type Routes struct {
	Pages    *PageHandler
	Auth     *AuthHandler
	User     *UserHandler
	Catalog  *CatalogHandler
	Health   *HealthHandler
	Sessions auth.SessionResolver
}

// Mount registers every page, auth and API route on r:
//
// GET  /                          → redirect to /testing
// GET  /testing                   → home page (optional user)
// GET  /testing/signin, /signup   → auth pages
// GET  /testing/dashboard         → dashboard (user required, redirect)
// GET  /auth/logout               → end session
// GET  /auth/{provider}           → start OAuth
// GET  /auth/{provider}/callback  → finish OAuth
// GET  /api/plans, /api/services  → catalog
// POST /api/signup                → signup
// GET  /api/user/profile          → profile (user required, 401)
// POST /api/user/claim-cape       → claim free cape (user required, 401)
// GET  /health
//
// Anything else gets the 404 page.
func (rt Routes) Mount(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, HomePath, http.StatusFound)
	})

	r.Route("/testing", func(r chi.Router) {
		r.With(auth.OptionalUser(rt.Sessions)).Get("/", rt.Pages.HandleHome)
		r.Get("/signin", rt.Pages.HandleSignIn)
		r.Get("/signup", rt.Pages.HandleSignUp)
		r.With(auth.RequireUser(rt.Sessions, SignInPath)).Get("/dashboard", rt.Pages.HandleDashboard)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/logout", rt.Auth.HandleLogout)
		r.Get("/{provider}", rt.Auth.HandleLogin)
		r.Get("/{provider}/callback", rt.Auth.HandleCallback)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/plans", rt.Catalog.HandlePlans)
		r.Get("/services", rt.Catalog.HandleServices)
		r.Post("/signup", rt.Catalog.HandleSignup)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUserAPI(rt.Sessions))
			r.Get("/user/profile", rt.User.HandleProfile)
			r.Post("/user/claim-cape", rt.User.HandleClaimCape)
		})
	})

	r.Get("/health", rt.Health.HandleHealth)

	r.NotFound(rt.Pages.HandleNotFound)
}
