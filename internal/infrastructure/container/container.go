package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gdugdh24/geopresence/internal/config"
	deliveryhttp "github.com/gdugdh24/geopresence/internal/delivery/http"
	"github.com/gdugdh24/geopresence/internal/delivery/http/handler"
	"github.com/gdugdh24/geopresence/internal/delivery/http/middleware"
	"github.com/gdugdh24/geopresence/internal/infrastructure/database"
	"github.com/gdugdh24/geopresence/internal/infrastructure/geoip"
	"github.com/gdugdh24/geopresence/internal/infrastructure/server"
	"github.com/gdugdh24/geopresence/internal/repository"
	"github.com/gdugdh24/geopresence/internal/repository/memory"
	"github.com/gdugdh24/geopresence/internal/repository/postgres"
	redisrepo "github.com/gdugdh24/geopresence/internal/repository/redis"
	"github.com/gdugdh24/geopresence/internal/usecase/auth"
	"github.com/gdugdh24/geopresence/internal/usecase/avatar"
	"github.com/gdugdh24/geopresence/internal/usecase/presence"
	"github.com/gdugdh24/geopresence/internal/usecase/profile"
	"github.com/gdugdh24/geopresence/internal/usecase/proximity"
	"github.com/gdugdh24/geopresence/internal/usecase/session"
	"github.com/gdugdh24/geopresence/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	DB     *sqlx.DB
	Redis  *redis.Client
	Server *server.Server

	sessions *handler.WSHandler
	pgFeed   *postgres.ChangeFeed
	cancel   context.CancelFunc
}

type storage struct {
	profiles repository.ProfileRepository
	feed     repository.ChangeFeed
	cache    repository.LocationCache
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Container{Config: cfg, cancel: cancel}

	store, err := c.initStorage(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Geo.HTTPTimeout}

	// Initialize use cases
	authUseCase := auth.NewAuthUseCase(cfg.JWT)
	profileUseCase := profile.NewProfileUseCase(store.profiles, cfg.Profile)
	presenceUseCase := presence.NewPresenceUseCase(store.profiles, store.cache, cfg.Presence)
	proximityUseCase := proximity.NewProximityUseCase(
		store.profiles,
		avatar.NewResolver(cfg.Avatar, httpClient),
		cfg.Proximity,
	)
	sessionUseCase := session.NewSessionUseCase(
		profileUseCase,
		proximityUseCase,
		presenceUseCase,
		store.profiles,
		store.cache,
		store.feed,
		geoip.NewClient(cfg.Geo.IPLookupURL, httpClient),
		cfg.Sync,
		cfg.Geo,
	)

	// Initialize router
	c.sessions = handler.NewWSHandler(sessionUseCase)
	router := deliveryhttp.NewRouter(
		handler.NewProfileHandler(profileUseCase),
		handler.NewPresenceHandler(presenceUseCase),
		handler.NewNearbyHandler(proximityUseCase),
		c.sessions,
		middleware.NewAuthMiddleware(authUseCase),
	)

	c.Server = server.NewServer(&cfg.Server, router.Setup())
	return c, nil
}

func (c *Container) initStorage(ctx context.Context) (*storage, error) {
	cfg := c.Config
	store := &storage{}

	if cfg.Redis.Host != "" {
		redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		c.Redis = redisClient
		store.cache = redisrepo.NewLocationCache(redisClient, cfg.Geo.CacheTTL)
	} else {
		store.cache = memory.NewLocationCache(cfg.Geo.CacheTTL)
	}

	var hub *repository.Hub
	switch cfg.Storage.Type {
	case config.StoragePostgres:
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		c.DB = db
		if err := postgres.Migrate(ctx, db, cfg.Storage.ChangeFeedChannel); err != nil {
			return nil, err
		}
		store.profiles = postgres.NewProfileRepository(db)
	case config.StorageMemory:
		if cfg.Storage.ChangeFeed == config.StorageMemory {
			hub = repository.NewHub()
			store.feed = hub
		}
		store.profiles = memory.NewProfileRepository(hub)
	}

	switch cfg.Storage.ChangeFeed {
	case config.StoragePostgres:
		feed, err := postgres.NewChangeFeed(cfg.Database.GetDSN(), cfg.Storage.ChangeFeedChannel)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize change feed: %w", err)
		}
		c.pgFeed = feed
		go feed.Run(ctx)
		store.feed = feed
	case config.FeedRedis:
		feed := redisrepo.NewChangeFeed(c.Redis, cfg.Storage.ChangeFeedChannel)
		store.profiles = repository.WithChangePublisher(store.profiles, feed)
		store.feed = feed
	}

	logger.Info("storage=%s change_feed=%s", cfg.Storage.Type, cfg.Storage.ChangeFeed)
	return store, nil
}

// Shutdown ends open websocket sessions, waits for their offline writes and
// then stops the HTTP server. Call it before Close.
func (c *Container) Shutdown(ctx context.Context) error {
	if err := c.sessions.Shutdown(ctx); err != nil {
		logger.Warn("Error closing sessions: %v", err)
	}
	return c.Server.Shutdown(ctx)
}

// Close closes all connections
func (c *Container) Close() error {
	if c.cancel != nil {
		c.cancel()
	}

	if c.pgFeed != nil {
		if err := c.pgFeed.Close(); err != nil {
			logger.Warn("Error closing change feed: %v", err)
		}
	}

	// Close Redis
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logger.Warn("Error closing Redis: %v", err)
		}
	}

	// Close database
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}

	return nil
}
