package config

import (
	"fmt"
	"time"

	"reader-annotations/internal/domain"
	"reader-annotations/internal/ratelimit"
	"reader-annotations/internal/repository"
	"reader-annotations/internal/service"
	"reader-annotations/internal/tracker"
	"reader-annotations/internal/validation"
	"reader-annotations/pkg/logger"
)

// rateLimitIdleTTL is how long an idle user's bucket is kept.
const rateLimitIdleTTL = 10 * time.Minute

// Container holds all application dependencies
type Container struct {
	Config         domain.Config
	Logger         domain.Logger
	Store          *repository.Store
	SupabaseClient domain.SupabaseClient

	BookRepository       domain.BookRepository
	AnnotationRepository domain.AnnotationRepository
	GoalRepository       domain.GoalRepository

	AuthService       domain.AuthService
	BookService       domain.BookService
	AnnotationService domain.AnnotationService
	GoalService       domain.GoalService
	TrackerService    domain.TrackerService

	RateLimiter *ratelimit.KeyedRateLimiter
}

// NewContainer creates a new dependency injection container
func NewContainer() (*Container, error) {
	return NewContainerWithConfig(NewConfig())
}

// NewContainerWithConfig wires every dependency from cfg. The caller owns
// the returned container and must Close it.
func NewContainerWithConfig(cfg domain.Config) (*Container, error) {
	appLogger := logger.NewLogger(cfg.GetLogLevel(), cfg.GetLogFormat())

	dsn := cfg.GetDatabasePath()
	if cfg.GetDatabaseDriver() == repository.DriverPostgres {
		dsn = cfg.GetDatabaseURL()
	}
	store, err := repository.Open(cfg.GetDatabaseDriver(), dsn, appLogger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// Initialize Supabase client
	supabaseClient := repository.NewSupabaseClient(cfg, appLogger)
	if err := supabaseClient.Initialize(); err != nil {
		appLogger.Warn("Supabase client not initialized, authenticated routes will reject every token", "error", err)
	}

	// Initialize repositories
	bookRepo := repository.NewBookRepository(store, appLogger)
	annotationRepo := repository.NewAnnotationRepository(store, appLogger)
	goalRepo := repository.NewGoalRepository(store, appLogger)

	validator := validation.New()
	timeout := cfg.GetPersistenceTimeout()
	maxLength := cfg.GetSanitizeMaxLength()

	goalService := service.NewGoalService(goalRepo, validator, appLogger, cfg.GetGoalLocation(), timeout, cfg.GetMinSessionDuration())
	trackerService := service.NewTrackerService(
		bookRepo,
		goalService,
		tracker.SystemClock{},
		tracker.Options{
			CheckpointInterval: cfg.GetCheckpointInterval(),
			MinDuration:        cfg.GetMinSessionDuration(),
			WriteTimeout:       timeout,
		},
		appLogger,
		timeout,
	)

	return &Container{
		Config:               cfg,
		Logger:               appLogger,
		Store:                store,
		SupabaseClient:       supabaseClient,
		BookRepository:       bookRepo,
		AnnotationRepository: annotationRepo,
		GoalRepository:       goalRepo,
		AuthService:          service.NewAuthService(supabaseClient, appLogger),
		BookService:          service.NewBookService(bookRepo, validator, appLogger, maxLength, timeout),
		AnnotationService:    service.NewAnnotationService(annotationRepo, bookRepo, validator, appLogger, maxLength, timeout),
		GoalService:          goalService,
		TrackerService:       trackerService,
		RateLimiter:          ratelimit.New(cfg.GetRateLimitRPS(), cfg.GetRateLimitBurst(), rateLimitIdleTTL),
	}, nil
}

// Close stops background work and releases the store. Open reading
// sessions are dropped, not recorded.
func (c *Container) Close() error {
	c.TrackerService.Close()
	c.RateLimiter.Stop()
	return c.Store.Close()
}
