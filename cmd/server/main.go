package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cliprelay/relay-server-go/internal/config"
	"github.com/cliprelay/relay-server-go/internal/database"
	"github.com/cliprelay/relay-server-go/internal/handler"
	"github.com/cliprelay/relay-server-go/internal/jobs"
	"github.com/cliprelay/relay-server-go/internal/metrics"
	"github.com/cliprelay/relay-server-go/internal/middleware"
	"github.com/cliprelay/relay-server-go/internal/model"
	"github.com/cliprelay/relay-server-go/internal/provider"
	"github.com/cliprelay/relay-server-go/internal/redis"
	"github.com/cliprelay/relay-server-go/internal/repository"
	"github.com/cliprelay/relay-server-go/internal/service"
	"github.com/cliprelay/relay-server-go/internal/sse"
	"github.com/cliprelay/relay-server-go/internal/storage"
	"github.com/cliprelay/relay-server-go/internal/util"
)

const (
	authAttemptsPerWindow = 20
	authWindow            = 10 * time.Minute
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("APP_ENV") == "production"
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	if err := db.Migrate(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	accountRepo := repository.NewAccountRepository(db.DB)
	var tokenCipher *util.TokenCipher
	if cfg.EncryptionKey != "" {
		tokenCipher, err = util.NewTokenCipher(cfg.EncryptionKey)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid ENCRYPTION_KEY")
		}
	}
	credentialRepo := repository.NewCredentialRepository(db.DB, tokenCipher)
	assetRepo := repository.NewAssetRepository(db.DB)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	providerCfg := provider.ConfigFromEnv(cfg)
	oauthClient := provider.NewOAuthClient(providerCfg)
	uploader := provider.NewYouTubeUploader(providerCfg)
	if !oauthClient.Enabled() {
		log.Warn().Msg("google oauth not configured: grants and publishing are disabled")
	}

	locations := storage.NewLocationPolicy(cfg.AssetAllowedHosts, cfg.S3AllowedBuckets)
	fetcher := storage.NewRouter(locations)
	httpFetcher := storage.NewHTTPFetcher(cfg.FetchTimeout(), locations)
	fetcher.Handle("http", httpFetcher).Handle("https", httpFetcher)
	if cfg.S3Enabled() {
		s3Fetcher, err := storage.NewS3Fetcher(context.Background(), storage.S3Options{
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure s3 fetcher")
		}
		fetcher.Handle("s3", s3Fetcher)
	}

	stagingDir := cfg.StagingDir
	if stagingDir == "" {
		stagingDir = filepath.Join(os.TempDir(), "cliprelay-staging")
	}
	stager, err := storage.NewStager(stagingDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", stagingDir).Msg("failed to prepare staging directory")
	}

	rateLimiter := service.NewRateLimiter(redisClient.Client)
	pairingService := service.NewPairingService(accountRepo)
	accountService := service.NewAccountService(accountRepo, pairingService, cfg.JWTSecret, cfg.SessionTTL())
	assetService := service.NewAssetService(assetRepo, accountRepo, locations)
	tokenService := service.NewTokenService(oauthClient, credentialRepo)
	grantService := service.NewGrantService(
		oauthClient, assetService, tokenService, broker,
		cfg.StateSecret, cfg.GrantStateTTL(),
	)
	publishService := service.NewPublishService(
		assetService, tokenService, fetcher, stager, uploader, broker,
		service.PublishOptions{
			FetchTimeout:      cfg.FetchTimeout(),
			UploadTimeout:     cfg.UploadTimeout(),
			DefaultVisibility: model.Visibility(cfg.DefaultVisibility),
		},
	)

	authMiddleware := middleware.NewAuthMiddleware(accountService)
	accountRateLimit := middleware.NewAccountRateLimitMiddleware(rateLimiter, config.DefaultRateLimitPerMin)
	authRateLimit := middleware.NewIPRateLimitMiddleware(rateLimiter, authAttemptsPerWindow, authWindow, "auth")
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	authHandler := handler.NewAuthHandler(accountService)
	pairingHandler := handler.NewPairingHandler(pairingService, rateLimiter)
	grantHandler := handler.NewGrantHandler(grantService, isProduction)
	assetHandler := handler.NewAssetHandler(assetService, publishService)
	eventsHandler := handler.NewEventsHandler(broker)
	healthHandler := handler.NewHealthHandler(db)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(securityHeadersMiddleware.Handler)
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", healthHandler.ServeHTTP)
	r.Handle("/metrics", metrics.Handler())

	r.With(authRateLimit.Handler).Get("/oauth/google/callback", grantHandler.Callback)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(authRateLimit.Handler)
			r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
			r.Mount("/", authHandler.Routes())
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Handler)
			r.Use(accountRateLimit.Handler)

			// Streams and publishes outlive the default request timeout.
			r.Get("/events", eventsHandler.ServeHTTP)
			r.With(middleware.RequireRole(model.AccountRoleOwner)).
				Post("/assets/{assetId}/publish", assetHandler.Publish)

			r.Group(func(r chi.Router) {
				r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

				r.Get("/me", authHandler.Me)
				r.Mount("/pairing", pairingHandler.Routes())
				r.Post("/assets", assetHandler.Create)
				r.Get("/assets", assetHandler.List)
				r.With(middleware.RequireRole(model.AccountRoleOwner)).
					Post("/assets/{assetId}/grant", grantHandler.Start)
			})
		})
	})

	sweepJob := jobs.NewStagingSweepJob(stager, config.StagingSweepInterval, config.StagingMaxAge)
	sweepJob.Start()
	defer sweepJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("stagingDir", stager.Dir()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
