package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pollwave/pollwave/internal/auth"
	"github.com/pollwave/pollwave/internal/handlers"
	"github.com/pollwave/pollwave/internal/logger"
	"github.com/pollwave/pollwave/internal/repository"
	"github.com/pollwave/pollwave/internal/services"
	"github.com/pollwave/pollwave/internal/websocket"
)

// Config carries the application settings
type Config struct {
	DBPath  string
	BaseURL string
}

// App holds all application dependencies
type App struct {
	log      logger.Logger
	handlers *handlers.Handlers
	repo     *repository.Repository
}

// New creates and initializes a new application instance
func New(log logger.Logger, cfg Config) (*App, error) {
	repo, err := repository.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	// Initialize services with component-scoped loggers
	fingerprintService := services.NewFingerprintService(log.With("component", "fingerprint"), repo)
	pollService := services.NewPollService(log.With("component", "poll"), repo, cfg.BaseURL)
	statsService := services.NewStatsService(log.With("component", "stats"), repo)
	votingService := services.NewVotingService(log.With("component", "voting"), repo, statsService)
	iotService := services.NewIotService(log.With("component", "iot"), repo)

	// Wire the live broadcast channel into the services that publish
	hub := websocket.New(log.With("component", "websocket"))
	pollService.SetBroadcaster(hub)
	votingService.SetBroadcaster(hub)

	adminAuth := auth.New(repo)

	h := handlers.New(
		fingerprintService,
		pollService,
		votingService,
		iotService,
		statsService,
		adminAuth,
		hub,
		log,
	)

	return &App{
		log:      log,
		handlers: h,
		repo:     repo,
	}, nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Close releases app resources
func (a *App) Close() error {
	return a.repo.Close()
}

// Run starts the HTTP server
func (a *App) Run(addr string) error {
	a.log.Info("server starting", "addr", addr)
	return http.ListenAndServe(addr, a.Router())
}
