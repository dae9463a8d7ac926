package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/zoheir79/whispey-sub004/internal/audit"
	"github.com/zoheir79/whispey-sub004/internal/auth"
	"github.com/zoheir79/whispey-sub004/internal/config"
	"github.com/zoheir79/whispey-sub004/internal/credits"
	"github.com/zoheir79/whispey-sub004/internal/httpapi"
	"github.com/zoheir79/whispey-sub004/internal/metrics"
	"github.com/zoheir79/whispey-sub004/internal/rbac"
	"github.com/zoheir79/whispey-sub004/internal/users"
	"github.com/zoheir79/whispey-sub004/internal/workspace"
	"github.com/zoheir79/whispey-sub004/pkg/logger"
	"github.com/zoheir79/whispey-sub004/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	codec, err := auth.NewCodec(cfg.JWT)
	if err != nil {
		return fmt.Errorf("auth init: %w", err)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{
		MaxOpenConns:    cfg.Postgres.MaxConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("postgres init: %w", err)
	}
	defer db.Close()

	m := metrics.New()

	var limiter users.AttemptLimiter
	if addr := cfg.RedisAddr(); addr != "" {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: addr})
		if err != nil {
			return fmt.Errorf("redis init: %w", err)
		}
		defer rdb.Close()
		limiter = users.NewRedisAttemptLimiter(rdb, cfg.Login.MaxAttempts, cfg.Login.AttemptWindow)
	} else {
		log.Warn("redis not configured, login attempts are limited per process")
		limiter = users.NewMemoryAttemptLimiter(cfg.Login.MaxAttempts, cfg.Login.AttemptWindow)
	}

	userStore := users.NewPostgresStore(db)
	workspaces := workspace.NewPostgresRepository(db)
	verifier := auth.NewVerifier(codec, userStore, m)

	h := &httpapi.Handlers{
		Codec:         codec,
		Verifier:      verifier,
		Users:         userStore,
		Workspaces:    workspaces,
		Roles:         rbac.NewResolver(userStore, workspaces, verifier),
		Credits:       credits.NewService(credits.NewPostgresRepo(db)),
		Audit:         audit.NewService(audit.NewPostgresRepo(db)),
		Limiter:       limiter,
		LoginRecorder: m,
		BcryptCost:    cfg.BcryptCost,
		SecureCookies: cfg.IsProduction(),
	}

	r := newRouter(log, m, verifier, h, func(ctx context.Context) error {
		return utils.HealthCheck(ctx, db, 2*time.Second)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}
