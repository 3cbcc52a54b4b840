package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/layer-3/creator-ledger/adapters/events"
	"github.com/layer-3/creator-ledger/adapters/memory"
	"github.com/layer-3/creator-ledger/adapters/pg"
	"github.com/layer-3/creator-ledger/adapters/pg/migrations"
	"github.com/layer-3/creator-ledger/adapters/ratelimit"
	"github.com/layer-3/creator-ledger/adapters/store"
	"github.com/layer-3/creator-ledger/adapters/tokenizer"
	"github.com/layer-3/creator-ledger/config"
	"github.com/layer-3/creator-ledger/internal/message"
	"github.com/layer-3/creator-ledger/ports"
	"github.com/layer-3/creator-ledger/service"
	transport "github.com/layer-3/creator-ledger/transport/http"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("creator-ledger stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	signKey, err := loadSigningKey(cfg.Auth.JWTKeyFile, logger)
	if err != nil {
		return err
	}

	var (
		revocations ports.RevocationStore
		limiter     ports.RateLimitStore
		eventPub    ports.EventPublisher
	)

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client:  redisClient,
				Maxlens: streamMaxLens(cfg.Events.StreamMaxLen),
			},
			events.NewZapLoggerAdapter(logger),
		)
		if err != nil {
			return fmt.Errorf("failed to create redis publisher: %w", err)
		}
		defer publisher.Close()

		revocations = store.NewRedisStore(redisClient)
		limiter = ratelimit.NewRedisStore(redisClient)
		eventPub = events.NewWatermillPublisher(publisher)
		logger.Info("using redis for revocations, rate limits and events")
	} else {
		memLimiter := ratelimit.NewMemoryStore(cfg.RateLimit.SweepInterval)
		defer memLimiter.Close()

		revocations = store.NewMemoryStore()
		limiter = memLimiter
		eventPub = events.NewNopPublisher(logger)
		logger.Warn("redis not configured, state is kept in-process")
	}

	var (
		identities ports.IdentityStore
		claims     ports.ClaimStore
	)

	if cfg.Database.DSN != "" {
		db, err := pg.Connect(ctx, cfg.Database.DSN, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		if cfg.Database.AutoMigrate {
			if err := migrations.Migrate(ctx, db); err != nil {
				return err
			}
		}

		identities = pg.NewIdentityStore(db)
		claims = pg.NewClaimStore(db)
	} else {
		identities = memory.NewIdentityStore()
		claims = memory.NewClaimStore()
		logger.Warn("database not configured, identities and claims are kept in memory")
	}

	authService := service.NewAuthService(
		service.AuthConfig{
			AccessTTL:     cfg.Auth.AccessTTL,
			RefreshTTL:    cfg.Auth.RefreshTTL,
			MessageMaxAge: cfg.Auth.MessageMaxAge,
			ClockSkew:     cfg.Auth.ClockSkew,
			StoreTimeout:  cfg.Auth.StoreTimeout,
			Clock:         message.SystemClock{},
		},
		tokenizer.NewJWTTokenizer(signKey, cfg.Auth.Issuer),
		revocations,
		identities,
		eventPub,
		logger,
	)
	claimService := service.NewClaimService(claims, eventPub, logger, message.SystemClock{}, cfg.Server.PublicURL)

	router, err := transport.SetupRouter(transport.RouterDeps{
		AuthService:  authService,
		ClaimService: claimService,
		RateLimits:   limiter,
		Limits: transport.Limits{
			Auth:    toLimit(cfg.RateLimit.Auth),
			Claims:  toLimit(cfg.RateLimit.Claims),
			Default: toLimit(cfg.RateLimit.Default),
		},
		AdminWallets:   cfg.Admin.Wallets,
		TrustedProxies: cfg.Server.TrustedProxies,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("failed to setup router: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	return serveAndWait(ctx, srv, cfg, logger)
}

// serveAndWait runs srv until ctx is cancelled, then shuts it down gracefully
func serveAndWait(ctx context.Context, srv *http.Server, cfg *config.Config, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("address", srv.Addr), zap.String("public_url", cfg.Server.PublicURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// loadSigningKey reads the ES256 key from path, or generates an ephemeral one
func loadSigningKey(path string, logger *zap.Logger) (*ecdsa.PrivateKey, error) {
	if path == "" {
		logger.Warn("no jwt key file configured, generating an ephemeral signing key; sessions will not survive a restart")
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read jwt key file: %w", err)
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jwt key: %w", err)
	}
	return key, nil
}

func streamMaxLens(maxLen int64) map[string]int64 {
	if maxLen <= 0 {
		return nil
	}
	return map[string]int64{
		events.TopicLogout:         maxLen,
		events.TopicSignedIn:       maxLen,
		events.TopicClaimSubmitted: maxLen,
		events.TopicClaimReviewed:  maxLen,
	}
}

func toLimit(l config.LimitConfig) ports.Limit {
	return ports.Limit{Max: l.Max, Window: l.Window}
}

