package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/rewear/internal/exchange"
	"github.com/erazemk/rewear/internal/model"
)

// DefaultAllowedOrigins are used for CORS when none are configured.
var DefaultAllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// Options configures the API router.
type Options struct {
	DB             *sqlx.DB
	JWTSecret      string
	TokenTTL       time.Duration
	StartingPoints int
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = DefaultAllowedOrigins
	}

	authHandler := &AuthHandler{
		DB:             opts.DB,
		JWTSecret:      opts.JWTSecret,
		TokenTTL:       opts.TokenTTL,
		StartingPoints: opts.StartingPoints,
		Logger:         logger,
	}
	itemsHandler := &ItemsHandler{DB: opts.DB, Logger: logger}
	exchangeHandler := &ExchangeHandler{Coordinator: exchange.New(opts.DB, logger)}
	meHandler := &MeHandler{DB: opts.DB}
	adminHandler := &AdminHandler{DB: opts.DB, Logger: logger}
	usersHandler := &UsersHandler{DB: opts.DB, Logger: logger}

	authMW := AuthMiddleware(opts.JWTSecret, opts.DB)
	optionalAuth := OptionalAuth(opts.JWTSecret, opts.DB)
	requireAdmin := RequireRole(model.RoleAdmin)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, http.StatusNotFound, model.KindNotFound, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, http.StatusMethodNotAllowed, model.KindInvalidInput, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(authMW)
				r.Get("/profile", authHandler.Profile)
				r.Put("/password", authHandler.ChangePassword)
				r.Post("/logout", authHandler.Logout)
			})
		})

		r.Route("/items", func(r chi.Router) {
			// Browsing is public; a token only widens what the caller can see.
			r.Group(func(r chi.Router) {
				r.Use(optionalAuth)
				r.Get("/", itemsHandler.List)
				r.Get("/available", itemsHandler.Available)
				r.Get("/featured", itemsHandler.Featured)
				r.Get("/suggest", itemsHandler.Suggest)
				r.Get("/{id}", itemsHandler.Get)
				r.Get("/{id}/image", itemsHandler.GetImage)
			})

			r.Group(func(r chi.Router) {
				r.Use(authMW)
				r.Get("/me", itemsHandler.Mine)
				r.Post("/", itemsHandler.Create)
				r.Delete("/{id}", itemsHandler.Delete)
				r.Put("/{id}/image", itemsHandler.UploadImage)
				r.Post("/{id}/redeem", exchangeHandler.Redeem)
				r.Post("/{id}/swap", exchangeHandler.Swap)
			})
		})

		r.Route("/me", func(r chi.Router) {
			r.Use(authMW)
			r.Get("/points", meHandler.Points)
			r.Get("/swaps", meHandler.Swaps)
			r.Get("/transactions", meHandler.Transactions)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authMW, requireAdmin)
			r.Get("/pending", adminHandler.Pending)
			r.Post("/items/{id}/approve", adminHandler.Approve)
			r.Post("/items/{id}/feature", adminHandler.Feature)
			r.Delete("/items/{id}", adminHandler.Reject)
			r.Get("/items/{id}/events", adminHandler.Events)

			r.Get("/users", usersHandler.List)
			r.Put("/users/{id}", usersHandler.Update)
			r.Put("/users/{id}/password", usersHandler.ResetPassword)
			r.Delete("/users/{id}", usersHandler.Delete)
		})
	})

	return r
}
