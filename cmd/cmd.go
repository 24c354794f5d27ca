package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"birthday-mate-backend/internal/config"
	"birthday-mate-backend/internal/repository"
	"birthday-mate-backend/internal/services"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Connect to database
	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	if err := repository.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	wallRepo := repository.NewWallRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	buddyRepo := repository.NewBuddyRepository(db)
	giftRepo := repository.NewGiftRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	// External integrations
	verifier := newTokenVerifier(ctx, cfg)
	store := newObjectStore(ctx, cfg)

	var sharedRates services.SharedRateCache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, using in-process rate cache only")
		} else {
			sharedRates = services.NewRedisRateCache(client)
			log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis rate cache enabled")
		}
	}

	var gateway services.PaymentGateway
	if cfg.Payments.SecretKey != "" {
		gateway = services.NewFlutterwaveClient(cfg.Payments.BaseURL, cfg.Payments.SecretKey)
	} else {
		log.Warn().Msg("Payment provider not configured, checkout is disabled")
	}
	if cfg.Payments.AutoComplete {
		log.Warn().Msg("payments.auto_complete is on, pending gifts are treated as paid")
	}

	var generator services.TextGenerator
	if cfg.AI.GeminiAPIKey != "" {
		generator = services.NewGeminiClient(cfg.AI.GeminiAPIKey, cfg.AI.Model)
	}

	// Initialize services
	wsHub := services.NewWSHub()
	currencyService := services.NewCurrencyService(
		services.NewHTTPRateFetcher(cfg.Currency.APIURL),
		services.NewRateCache(cfg.Currency.TTL, cfg.Currency.MaxEntries),
		sharedRates,
	)
	mediaService := services.NewMediaService(store)
	userService := services.NewUserService(userRepo, verifier)
	wallService := services.NewWallService(wallRepo, photoRepo, reactionRepo, invitationRepo, userRepo, mediaService)
	roomService := services.NewRoomService(roomRepo, messageRepo, userRepo, wsHub)
	buddyService := services.NewBuddyService(buddyRepo, roomRepo, userRepo)
	giftService := services.NewGiftService(giftRepo, userRepo, wallRepo, roomRepo, currencyService, cfg.Payments.AutoComplete)
	paymentService := services.NewPaymentService(giftRepo, giftService, gateway, cfg.Payments.WebhookHash, cfg.Payments.RedirectURL)
	messageService := services.NewMessageService(generator)
	adminService := services.NewAdminService(adminRepo, userRepo, photoRepo, messageRepo, roomService)

	handler := newRouter(ctx, app{
		cfg:      cfg,
		db:       db,
		store:    store,
		hub:      wsHub,
		users:    userService,
		walls:    wallService,
		rooms:    roomService,
		buddies:  buddyService,
		gifts:    giftService,
		payments: paymentService,
		messages: messageService,
		admin:    adminService,
		media:    mediaService,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by Shutdown; they close
	// when their read loops fail after the process exits.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// newTokenVerifier prefers the identity provider's JWKS and falls back to
// the shared HMAC secret used in development
func newTokenVerifier(ctx context.Context, cfg *config.Config) services.TokenVerifier {
	switch {
	case cfg.Auth.JWKSURL != "":
		v, err := services.NewJWKSVerifier(ctx, cfg.Auth.JWKSURL, cfg.Auth.Issuer, cfg.Auth.Audience)
		if err != nil {
			log.Fatal().Err(err).Str("jwks_url", cfg.Auth.JWKSURL).Msg("Failed to initialize token verifier")
		}
		log.Info().Str("jwks_url", cfg.Auth.JWKSURL).Msg("Verifying tokens against JWKS")
		return v
	case cfg.Auth.HMACSecret != "":
		log.Warn().Msg("Verifying tokens with the HMAC secret, not for production")
		return services.NewHMACVerifier(cfg.Auth.HMACSecret)
	default:
		log.Fatal().Msg("auth.jwks_url or auth.hmac_secret must be configured")
		return nil
	}
}

func newObjectStore(ctx context.Context, cfg *config.Config) services.ObjectStore {
	if cfg.Storage.Driver == "s3" {
		s3Store, err := services.NewS3Store(ctx, services.S3Options{
			Region:    cfg.AWS.Region,
			Bucket:    cfg.AWS.S3Bucket,
			AccessKey: cfg.AWS.AccessKey,
			SecretKey: cfg.AWS.SecretKey,
			Endpoint:  cfg.AWS.Endpoint,
			PublicURL: cfg.AWS.PublicURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create S3 store")
		}
		log.Info().Str("bucket", cfg.AWS.S3Bucket).Msg("Storing uploads in S3")
		return s3Store
	}

	if err := os.MkdirAll(cfg.Storage.LocalDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Storage.LocalDir).Msg("Failed to create upload directory")
	}
	return services.NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL)
}

// setupLogger configures zerolog logger
func setupLogger(level, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

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
