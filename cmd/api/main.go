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

	"ledgerbook/config"
	httpHandler "ledgerbook/internal/adapter/http/handler"
	redisStorage "ledgerbook/internal/adapter/storage/redis"
	"ledgerbook/internal/app"
	"ledgerbook/internal/core/ports"
	"ledgerbook/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Msg("Starting ledgerbook")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret is required (LEDGER_JWT_SECRET)")
	}

	ctx := context.Background()

	st, err := app.OpenStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer st.Close()

	rdb, err := app.OpenRedis(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	svc := app.NewServices(cfg, st, rdb, log)

	deps := httpHandler.RouterDeps{
		AuthSvc:        svc.Auth,
		CustomerSvc:    svc.Customer,
		LedgerSvc:      svc.Ledger,
		WalletSvc:      svc.Wallet,
		TokenSvc:       svc.Token,
		AuditSvc:       svc.Audit,
		HealthCheckers: []ports.HealthChecker{st.Health},
		Logger:         log,
	}
	if rdb != nil {
		defer rdb.Close()
		deps.RateLimitStore = redisStorage.NewRateLimitStore(rdb)
		deps.HealthCheckers = append(deps.HealthCheckers, redisStorage.NewHealthCheck(rdb))
	}

	gin.SetMode(cfg.Server.Mode)
	router := httpHandler.SetupRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
