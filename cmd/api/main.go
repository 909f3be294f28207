package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/reimbursement-service/internal/api/http"
	"github.com/spec-kit/reimbursement-service/internal/api/http/handlers"
	"github.com/spec-kit/reimbursement-service/internal/auth"
	"github.com/spec-kit/reimbursement-service/internal/config"
	"github.com/spec-kit/reimbursement-service/internal/events"
	"github.com/spec-kit/reimbursement-service/internal/observability"
	"github.com/spec-kit/reimbursement-service/internal/persistence"
	"github.com/spec-kit/reimbursement-service/internal/repository"
	"github.com/spec-kit/reimbursement-service/internal/repository/memory"
	"github.com/spec-kit/reimbursement-service/internal/service"
	"github.com/spec-kit/reimbursement-service/internal/storage"
	"github.com/spec-kit/reimbursement-service/internal/worker"
)

func main() {
	envFile := pflag.String("env-file", "", "path to a .env file (defaults to ./.env when present)")
	skipMigrations := pflag.Bool("skip-migrations", false, "do not apply bundled SQL migrations on boot")
	pflag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations && !*skipMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	userRepo, ticketRepo := buildRepositories(pg)
	readiness := map[string]handlers.Pinger{}
	if pg.Enabled() {
		readiness["postgres"] = pg
	}
	if redis.Enabled() {
		readiness["redis"] = redis
	}

	blobs, localBlobs, err := buildBlobStore(ctx, cfg.Blob, logger)
	if err != nil {
		logger.Fatal("failed to init blob store", zap.Error(err))
	}
	if pinger, ok := blobs.(handlers.Pinger); ok {
		readiness["blob_store"] = pinger
	}
	if redis.Enabled() {
		blobs = storage.NewCachingStore(blobs, storage.NewRedisURLCache(redis.Client), logger)
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartAuditWorker(service.NewAuditLogService(dispatcher, logger, cfg.Audit))

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	clock := func() time.Time { return time.Now().UTC() }

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		UserRepo:       userRepo,
		Blobs:          blobs,
		Dispatcher:     dispatcher,
		Logger:         logger,
		Clock:          clock,
		URLTTL:         cfg.Blob.URLTTL(),
		UploadMaxBytes: cfg.Blob.UploadMaxBytes,
	})
	accountService := service.NewAccountService(service.AccountDependencies{
		UserRepo:       userRepo,
		Blobs:          blobs,
		Tokens:         tokens,
		Hasher:         auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		Logger:         logger,
		Clock:          clock,
		URLTTL:         cfg.Blob.URLTTL(),
		UploadMaxBytes: cfg.Blob.UploadMaxBytes,
	})

	metrics := observability.NewMetrics()
	app := httptransport.NewApp(*cfg, logger, metrics)

	routes := httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness, metrics),
		Accounts:       handlers.NewAccountsHandler(accountService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, userRepo),
	}
	if localBlobs != nil {
		routes.Files = handlers.NewFilesHandler(localBlobs)
	}
	httptransport.RegisterRoutes(app, routes)

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func buildRepositories(pg *persistence.Postgres) (repository.UserRepository, repository.TicketRepository) {
	if !pg.Enabled() {
		return memory.NewUserStore(), memory.NewTicketStore()
	}
	pool := pg.PoolHandle()
	return repository.NewUserRepository(pool), repository.NewTicketRepository(pool)
}

// buildBlobStore returns the configured store, plus the local store when
// that driver is selected so the /files route can serve it.
func buildBlobStore(ctx context.Context, cfg config.BlobConfig, logger *zap.Logger) (storage.BlobStore, *storage.LocalStore, error) {
	if cfg.Driver == config.BlobDriverS3 {
		s3, err := storage.NewS3Store(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return s3, nil, nil
	}
	local, err := storage.NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL, cfg.SigningSecret)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using local blob store", zap.String("dir", cfg.LocalDir))
	return local, local, nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
