package api

import (
	"fmt"
	"net/http"

	"github.com/chronoplan-io/chronoplan/internal/auth"
	"github.com/chronoplan-io/chronoplan/internal/calendar"
	"github.com/chronoplan-io/chronoplan/internal/config"
	"github.com/chronoplan-io/chronoplan/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"
)

type Api struct {
	Config      *config.Config
	Store       *database.Store
	Credentials *auth.Service
	Tokens      *auth.TokenManager
	Monitor     *calendar.Monitor
	Connector   *calendar.Connector
	Gateway     *calendar.Gateway
	Router      *chi.Mux
}

// NewApi wires the service graph and the router.
func NewApi(cfg *config.Config, store *database.Store, mailer auth.Mailer) (*Api, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwtSecret must be configured")
	}

	connector := calendar.NewConnector(cfg, store)
	api := &Api{
		Config:      cfg,
		Store:       store,
		Credentials: auth.NewService(store, mailer, cfg.FrontendURL),
		Tokens:      auth.NewTokenManager(cfg.Auth.JWTSecret),
		Monitor:     calendar.NewMonitor(store),
		Connector:   connector,
		Gateway:     calendar.NewGateway(store, connector),
		Router:      chi.NewRouter(),
	}

	api.setupRoutes()
	return api, nil
}

func (api *Api) setupRoutes() {
	r := api.Router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{api.Config.FrontendURL, "http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/heartbeat"))

	// Public routes
	r.Post("/auth/register", api.RegisterHandler)
	r.Post("/auth/login", api.LoginHandler)
	r.Post("/auth/logout", api.LogoutHandler)
	r.Post("/auth/verify/resend", api.ResendVerificationHandler)
	r.Post("/auth/verify", api.ConfirmVerificationHandler)
	r.Post("/auth/verify-code", api.ConfirmVerificationCodeHandler)
	r.Post("/auth/password/forgot", api.ForgotPasswordHandler)
	r.Post("/auth/password/confirm-code", api.ConfirmResetCodeHandler)
	r.Post("/auth/password/reset", api.ResetPasswordHandler)

	// The provider redirects here; auth is carried in the signed state.
	r.Get("/calendar/callback", api.CalendarCallbackHandler)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(api.AuthMiddleware)

		r.Post("/auth/password/change", api.ChangePasswordHandler)
		r.Get("/profile", api.GetProfileHandler)
		r.Put("/profile", api.UpdateProfileHandler)
		r.Post("/tokens", api.CreateTokenHandler)

		r.Get("/calendar/connect", api.ConnectCalendarHandler)
		r.Get("/calendar/status", api.ConnectionStatusHandler)
		r.Delete("/calendar/connection", api.DisconnectCalendarHandler)
		r.Get("/calendar/calendars", api.ListCalendarsHandler)
		r.Post("/calendar/events", api.CreateEventHandler)
		r.Put("/calendar/events/{eventID}", api.UpdateEventHandler)
		r.Delete("/calendar/events/{eventID}", api.DeleteEventHandler)

		r.Post("/timeblocks", api.CreateTimeBlockHandler)
		r.Get("/timeblocks", api.ListTimeBlocksHandler)
		r.Get("/timeblocks/{blockID}", api.GetTimeBlockHandler)
		r.Put("/timeblocks/{blockID}", api.UpdateTimeBlockHandler)
		r.Delete("/timeblocks/{blockID}", api.DeleteTimeBlockHandler)
	})
}

// Serve starts the HTTP listener and blocks.
func (api *Api) Serve() error {
	addr := fmt.Sprintf(":%d", api.Config.APIPort)
	log.Printf("API listening on %s", addr)
	return http.ListenAndServe(addr, api.Router)
}
