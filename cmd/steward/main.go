package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/steward/cmd/steward/cli"
	"github.com/odyssey-erp/steward/internal/app"
	"github.com/odyssey-erp/steward/internal/authz"
	"github.com/odyssey-erp/steward/internal/guard"
	"github.com/odyssey-erp/steward/internal/observability"
	"github.com/odyssey-erp/steward/internal/platform/cache"
	"github.com/odyssey-erp/steward/internal/platform/db"
	"github.com/odyssey-erp/steward/internal/rbac"
	"github.com/odyssey-erp/steward/internal/roles"
	"github.com/odyssey-erp/steward/internal/session"
	"github.com/odyssey-erp/steward/internal/users"
	"github.com/odyssey-erp/steward/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	if len(os.Args) > 1 {
		if err := runCommand(ctx, cfg, os.Args[1:]); err != nil {
			logger.Error("command failed", slog.String("command", os.Args[1]), slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("steward", slog.Any("error", err))
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, cfg *app.Config, args []string) error {
	switch args[0] {
	case "hash-password":
		if len(args) != 2 {
			return errors.New("usage: steward hash-password <password>")
		}
		return cli.HashPassword(os.Stdout, args[1])
	case "jobs:stats", "jobs:trigger":
		jobsCLI := cli.NewJobsCLI(cache.AsynqOpt(cache.Options{Addr: cfg.RedisAddr}))
		defer jobsCLI.Close()
		if args[0] == "jobs:stats" {
			stats, err := jobsCLI.InspectQueue(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
				stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
			return nil
		}
		name := jobs.TaskAuthAuditDigest
		if len(args) > 1 {
			name = args[1]
		}
		info, err := jobsCLI.Trigger(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s\n", info.Type, info.ID)
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	redisOpts := cache.Options{Addr: cfg.RedisAddr}
	redisClient, err := cache.New(ctx, redisOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	catalog := roles.NewDefaultCatalog()

	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	directory := users.NewService(repo, catalog)
	added, err := users.Seed(ctx, directory, users.DefaultIdentities())
	if err != nil {
		return err
	}
	logger.Info("user directory ready", slog.String("backend", cfg.UsersBackend), slog.Int("seeded", added))

	audit := session.MultiSink{session.LogSink{Logger: logger}}
	var jobHandler *jobs.Handler
	if cfg.AuditEnabled {
		jobClient := jobs.NewClient(cache.AsynqOpt(redisOpts))
		defer jobClient.Close()
		inspector := asynq.NewInspector(cache.AsynqOpt(redisOpts))
		defer inspector.Close()
		audit = append(audit, jobs.NewAuditPublisher(jobClient, logger))
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	store := session.NewStore(directory, session.NewRedisStorage(redisClient, cfg.SessionKeyPrefix), session.Options{
		Verifier:    newVerifier(cfg),
		Logger:      logger,
		Audit:       audit,
		Metrics:     metrics,
		LogoutDelay: cfg.SessionLogoutDelay,
	})
	directory.BindSession(store)

	engine := authz.NewDefaultEngine(store, catalog)
	authzMiddleware := authz.Middleware{Engine: engine, Logger: logger}
	routeGuard := guard.New(store, engine, guard.Config{Observer: metrics, Logger: logger})

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionHandler:     session.NewHandler(logger, store),
		RolesHandler:       roles.NewHandler(catalog, authzMiddleware.RequireAction(rbac.ActionUsersView)),
		UsersHandler:       users.NewHandler(logger, directory, authzMiddleware.RequireAction),
		PermissionsHandler: authz.NewHandler(engine),
		JobHandler:         jobHandler,
		Guard:              routeGuard,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		store.Restore(gctx)
		logger.Info("session restored", slog.Bool("authenticated", store.CurrentIdentity() != nil))
		return nil
	})
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return group.Wait()
}

func newVerifier(cfg *app.Config) session.CredentialVerifier {
	if cfg.AuthVerifier == app.VerifierBcrypt {
		return session.BcryptVerifier{}
	}
	return session.PlaceholderVerifier{MinLength: session.DefaultMinPasswordLength}
}

func openRepository(ctx context.Context, cfg *app.Config, logger *slog.Logger) (users.RepositoryPort, func(), error) {
	if cfg.UsersBackend != app.BackendPostgres {
		return users.NewMemoryRepository(), func() {}, nil
	}
	pool, err := db.New(ctx, cfg.PGDSN, 0)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Apply(ctx, pool, users.SchemaStatements...); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info("postgres directory schema applied")
	return users.NewPGRepository(pool), pool.Close, nil
}
