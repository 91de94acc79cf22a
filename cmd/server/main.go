package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AhmedTUD/invoice/internal/config"
	"github.com/AhmedTUD/invoice/internal/database"
	"github.com/AhmedTUD/invoice/internal/export"
	"github.com/AhmedTUD/invoice/internal/handler"
	"github.com/AhmedTUD/invoice/internal/intake"
	"github.com/AhmedTUD/invoice/internal/logging"
	"github.com/AhmedTUD/invoice/internal/queue"
	"github.com/AhmedTUD/invoice/internal/records"
	"github.com/AhmedTUD/invoice/internal/repository"
	"github.com/AhmedTUD/invoice/internal/router"
	"github.com/AhmedTUD/invoice/internal/service"
	"github.com/AhmedTUD/invoice/internal/session"
	"github.com/AhmedTUD/invoice/internal/storage"
	"github.com/AhmedTUD/invoice/internal/utils"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	log := logging.New(os.Stdout, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log logging.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	db, err := database.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		return err
	}
	seeded, err := database.Seed(ctx, db, database.SeedOptions{
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		BcryptCost:    cfg.BcryptCost,
	})
	if err != nil {
		return err
	}
	log.Info(ctx, "database ready", "driver", cfg.DBDriver, "admin_created", seeded.AdminCreated, "models_seeded", seeded.Models)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn(ctx, "redis unavailable; catalog cache and login rate limit disabled")
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()

	var audit service.AuditPublisher = service.NopPublisher{}
	if cfg.AuditEnabled {
		audit = service.Background(service.NewRabbitPublisher(cfg.RabbitMQURL), log, 5*time.Second)
		go func() {
			if err := queue.StartAuditConsumer(ctx, cfg.RabbitMQURL, cfg.AuditLogDir, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error(ctx, "audit consumer stopped", "error", err)
			}
		}()
	}

	employees := repository.NewEmployeeRepo(db)
	submissions := repository.NewSubmissionRepo(db)
	catalog := repository.NewCatalogRepo(db)

	sessions := session.NewManager(repository.NewAdminRepo(db), repository.NewSessionRepo(db), session.Options{
		TTL:        cfg.SessionTTL,
		BcryptCost: cfg.BcryptCost,
		Logger:     log,
	})
	go sessions.RunSweeper(ctx, cfg.SessionSweepInterval)

	links := utils.NewFileLinkSigner(cfg.FileLinkSecret, cfg.FileLinkTTL)
	in := intake.NewService(db, employees, submissions, store, intake.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         log,
		Audit:          audit,
	})
	rec := records.NewService(db, submissions, store, records.Options{
		Links:  links,
		Audit:  audit,
		Logger: log,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	router.RegisterRoutes(e, router.Deps{
		Health:      handler.NewHealthHandler(cfg.Version),
		Submissions: handler.NewSubmissionHandler(in, rec),
		Employees:   handler.NewEmployeeHandler(employees),
		Catalog:     handler.NewCatalogHandler(catalog, rdb, cacheCfg.Prefix, audit),
		Admin:       handler.NewAdminHandler(sessions),
		Exports:     handler.NewExportHandler(rec, export.New(store, log)),
		Files:       handler.NewFileHandler(store, links),
		TestData:    handler.NewTestDataHandler(db, employees),
		Sessions:    sessions,
		Redis:       rdb,
		Cache:       cacheCfg,
		RateLimit:   config.LoadRateLimitConfig(),
		Logger:      log,
		CORSOrigins: cfg.CORSOrigins,
	})

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", addr, "env", cfg.Env, "storage", cfg.StorageBackend)
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info(shutdownCtx, "shutting down")
	return e.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.StorageBackend != "s3" {
		local, err := storage.NewLocalStore(cfg.UploadsDir)
		if err != nil {
			return nil, err
		}
		return local, nil
	}
	client, err := storage.NewS3Client(ctx, storage.S3Options{
		Region:    cfg.S3.Region,
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
	})
	if err != nil {
		return nil, err
	}
	return storage.NewS3Store(client, cfg.S3.Bucket, "uploads"), nil
}
