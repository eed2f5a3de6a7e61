package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/weiawesome/avatar-service/internal/cache"
	"github.com/weiawesome/avatar-service/internal/config"
	"github.com/weiawesome/avatar-service/internal/domain"
	"github.com/weiawesome/avatar-service/internal/handler"
	"github.com/weiawesome/avatar-service/internal/imagecodec"
	"github.com/weiawesome/avatar-service/internal/repository"
	"github.com/weiawesome/avatar-service/internal/service"
	"github.com/weiawesome/avatar-service/pkg/database"
	pkglog "github.com/weiawesome/avatar-service/pkg/log"
	"github.com/weiawesome/avatar-service/pkg/pubsub"
	"github.com/weiawesome/avatar-service/pkg/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	cfg.Log.Pretty = cfg.Log.Pretty || cfg.Log.Level == "debug"
	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	ctx := context.Background()

	// Initialize repository
	avatarRepo, closeRepo, err := newRepository(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to connect to database")
	}
	defer closeRepo()

	if err := avatarRepo.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare avatar schema")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("avatar store ready")

	// Initialize object storage
	imageStore, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Str("type", cfg.Storage.Type).Msg("failed to initialize storage")
	}
	switch store := imageStore.(type) {
	case *storage.S3Storage:
		logger.Info().Str("type", cfg.Storage.Type).Str("bucket", store.Bucket()).Msg("object storage ready")
	case *storage.LocalStorage:
		logger.Info().Str("type", cfg.Storage.Type).Str("path", store.BasePath()).Msg("object storage ready")
	}

	codec, err := imagecodec.New(cfg.Image.Format, cfg.Image.Quality)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize image codec")
	}

	// Initialize Redis cache
	var avatarCache cache.AvatarCache
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisAvatarCache(cfg.Redis, cfg.Cache.Prefix)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisCache.Close()
		avatarCache = redisCache
		logger.Info().Msg("redis cache connected")
	}

	// Initialize event publisher
	var events pubsub.Publisher
	if cfg.Events.Enabled {
		psCfg := pubsub.DefaultConfig()
		psCfg.Address = cfg.Redis.Address
		psCfg.Password = cfg.Redis.Password
		psCfg.DB = cfg.Redis.DB
		redisPubSub, err := pubsub.NewRedisPubSub(psCfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect event bus")
		}
		defer redisPubSub.Close()
		events = redisPubSub
		logger.Info().Str("channel", cfg.Events.Channel).Msg("avatar events enabled")
	}

	// Initialize service
	workflow := service.NewImageWorkflow(avatarRepo, imageStore, codec, cfg.Image.KeyPrefix, domain.IsAccessible)
	avatarService := service.NewAvatarService(avatarRepo, workflow, avatarCache, service.Config{
		DefaultImages:   cfg.Avatar.DefaultImages,
		CacheTTL:        cfg.Cache.TTL,
		InvalidateDelay: cfg.Cache.InvalidateDelay,
		AccessPolicy:    domain.IsAccessible,
		Events:          events,
		EventChannel:    cfg.Events.Channel,
	})

	// Initialize HTTP handler
	httpHandler := handler.NewHandler(avatarService, cfg.Server.MaxUploadBytes)

	// Setup Gin router
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if local, ok := imageStore.(*storage.LocalStorage); ok {
		r.Static(cfg.Storage.Local.Route, local.BasePath())
	}

	// Register routes
	httpHandler.RegisterRoutes(r)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", addr).Str("storage", cfg.Storage.Type).Str("image_format", codec.Extension()).Msg("avatar-service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}

// newRepository opens the configured avatar store and returns a closer for it.
func newRepository(ctx context.Context, cfg *config.Config) (repository.AvatarRepository, func(), error) {
	if cfg.Database.Driver == database.DriverMongo {
		client, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		closer := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}
		return repository.NewMongoAvatarRepository(client.Database(cfg.Mongo.Database)), closer, nil
	}

	db, err := database.New(cfg.Database.GORM())
	if err != nil {
		return nil, nil, err
	}
	closer := func() { _ = database.Close(db) }
	return repository.NewGormAvatarRepository(db), closer, nil
}

func newStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Type {
	case "s3":
		return storage.NewS3Storage(ctx, cfg.S3)
	case "local":
		return storage.NewLocalStorage(cfg.Local)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
