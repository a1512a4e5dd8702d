package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/punchamoorthee/backoffice/internal/api"
	"github.com/punchamoorthee/backoffice/internal/auth"
	"github.com/punchamoorthee/backoffice/internal/config"
	"github.com/punchamoorthee/backoffice/internal/service"
	"github.com/punchamoorthee/backoffice/internal/store"
	"github.com/punchamoorthee/backoffice/internal/store/memory"
	"github.com/punchamoorthee/backoffice/internal/store/postgres"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer st.Close()

	// Initialize Layers
	ledger := service.NewLedgerEngine(st, logger)
	loans := service.NewLoanEngine(st, ledger, logger)
	handler := api.NewHandler(api.Services{
		Clients:     service.NewClientService(st, logger),
		Accounts:    service.NewAccountService(st, logger),
		Ledger:      ledger,
		Loans:       loans,
		Investments: service.NewInvestmentEngine(st, ledger, logger),
		Health:      st,
	}, logger)
	router := api.NewRouter(handler, auth.NewJWT(cfg.JWTSecret, logger))

	if cfg.OverdueSchedule != "" {
		c := cron.New()
		_, err := c.AddFunc(cfg.OverdueSchedule, overdueJob(loans, logger))
		if err != nil {
			logger.Fatalf("schedule overdue sweep: %v", err)
		}
		c.Start()
		defer c.Stop()
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":  cfg.Port,
			"env":   cfg.Env,
			"store": cfg.StoreDriver,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (store.Store, error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on exit")
		return memory.New(), nil
	}

	pg, err := postgres.New(ctx, cfg.DBSource, logger)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	return pg, nil
}

type overdueMarker interface {
	MarkOverdue(ctx context.Context) (int64, error)
}

// overdueJob wraps the sweep for cron. The engine logs the outcome itself.
func overdueJob(m overdueMarker, logger *logrus.Logger) func() {
	return func() {
		if _, err := m.MarkOverdue(context.Background()); err != nil {
			logger.WithError(err).Error("overdue sweep failed")
		}
	}
}
