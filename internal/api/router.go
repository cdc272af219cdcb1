package api

import (
	"net/http"

	"github.com/gatherguru/server/internal/api/handlers"
	"github.com/gatherguru/server/internal/api/middleware"
	"github.com/gatherguru/server/internal/api/respond"
	"github.com/gatherguru/server/internal/auth"
	"github.com/gatherguru/server/internal/config"
	"github.com/gatherguru/server/internal/domain/events"
	"github.com/gatherguru/server/internal/domain/principals"
	"github.com/gatherguru/server/internal/metrics"
	"github.com/gatherguru/server/internal/upload"
	"github.com/rs/zerolog"
)

// multipartHeadroom is the body-cap allowance above the file size cap for
// multipart boundaries, part headers, and the field name.
const multipartHeadroom = 1 << 20

// Deps carries everything the router needs. Services and stores are
// injected so tests can run the full HTTP surface against fakes.
type Deps struct {
	Config     config.Config
	Logger     zerolog.Logger
	Principals *principals.Service
	Events     *events.Service
	Tokens     *auth.JWTManager
	Store      middleware.PrincipalStore
	Uploader   upload.Uploader

	// UploadsDir enables the /uploads static file route when non-empty.
	UploadsDir string
}

// NewRouter assembles the full HTTP surface behind the middleware chain:
// correlation, logging, metrics, security headers, gzip, rate limiting,
// body cap, CORS.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	env := cfg.Environment

	cookieSecure := env == "production"
	authHandler := handlers.NewAuthHandler(deps.Principals, deps.Tokens, deps.Uploader, cfg.Auth.CookieName, cookieSecure, env)
	eventsHandler := handlers.NewEventsHandler(deps.Events, deps.Uploader, env)
	healthHandler := handlers.NewHealthHandler(env, deps.UploadsDir)

	authenticate := middleware.Authenticate(deps.Tokens, deps.Store, cfg.Auth.CookieName, env)
	protect := func(role principals.Role, h http.HandlerFunc) http.Handler {
		return authenticate(middleware.RequireRoles(env, role)(h))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /api/test", healthHandler.Test)
	mux.Handle("GET /metrics", metrics.Handler())

	if deps.UploadsDir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.UploadsDir))))
	}

	// One auth surface per role, mounted under its own prefix.
	for prefix, role := range map[string]principals.Role{
		"/api":           principals.RoleUser,
		"/api/admin":     principals.RoleAdmin,
		"/api/organizer": principals.RoleOrganizer,
	} {
		mux.Handle("POST "+prefix+"/register", authHandler.Register(role))
		mux.Handle("POST "+prefix+"/login", authHandler.Login(role))
		mux.Handle("POST "+prefix+"/logout", protect(role, authHandler.Logout))
		mux.Handle("GET "+prefix+"/profile", protect(role, authHandler.GetProfile))
		mux.Handle("PUT "+prefix+"/profile", protect(role, authHandler.UpdateProfile))
		mux.Handle("POST "+prefix+"/profile/image", protect(role, authHandler.UploadProfileImage))
	}

	// Public event discovery. Literal segments win over the {id} wildcard.
	mux.HandleFunc("GET /api/events/categories", eventsHandler.Categories)
	mux.HandleFunc("GET /api/events/popular", eventsHandler.Popular)
	mux.HandleFunc("GET /api/events/category/{category}", eventsHandler.ByCategory)
	mux.HandleFunc("GET /api/events/search", eventsHandler.Search)
	mux.HandleFunc("GET /api/events/all", eventsHandler.All)
	mux.HandleFunc("GET /api/events/{id}", eventsHandler.Get)

	// Organizer lifecycle.
	mux.Handle("POST /api/events", protect(principals.RoleOrganizer, eventsHandler.Create))
	mux.Handle("PATCH /api/events/{id}/banner", protect(principals.RoleOrganizer, eventsHandler.UpdateBanner))
	mux.Handle("PATCH /api/events/{id}/ticketing", protect(principals.RoleOrganizer, eventsHandler.UpdateTicketing))
	mux.Handle("PATCH /api/events/{id}/publish", protect(principals.RoleOrganizer, eventsHandler.Publish))
	mux.Handle("GET /api/events/organizer/events", protect(principals.RoleOrganizer, eventsHandler.OrganizerEvents))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, http.StatusNotFound, "Route not found", nil, env)
	})

	var handler http.Handler = mux
	handler = middleware.CORS(cfg.CORS, env, deps.Logger)(handler)
	handler = middleware.RequestSize(cfg.Server.MaxBodySize, upload.MaxFileSize+multipartHeadroom)(handler)
	handler = middleware.RateLimit(cfg.RateLimit, env)(handler)
	handler = middleware.Compress()(handler)
	handler = middleware.SecurityHeaders(env == "production")(handler)
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.RequestLogging()(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)
	return handler
}
