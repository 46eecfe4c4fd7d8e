package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/odiabackend099/callwaiting/internal/api/dto"
	"github.com/odiabackend099/callwaiting/internal/api/handlers"
	"github.com/odiabackend099/callwaiting/internal/api/router"
	"github.com/odiabackend099/callwaiting/internal/config"
	"github.com/odiabackend099/callwaiting/internal/domain/account"
	"github.com/odiabackend099/callwaiting/internal/domain/plan"
	"github.com/odiabackend099/callwaiting/internal/domain/usage"
	"github.com/odiabackend099/callwaiting/internal/integrations"
	"github.com/odiabackend099/callwaiting/internal/pkg/clock"
	"github.com/odiabackend099/callwaiting/internal/pkg/logger"
	"github.com/odiabackend099/callwaiting/internal/repository/memory"
	"github.com/odiabackend099/callwaiting/internal/repository/postgres"
	"github.com/odiabackend099/callwaiting/internal/services"
	"github.com/odiabackend099/callwaiting/internal/worker"
	"github.com/odiabackend099/callwaiting/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.ErrorWithErr(err, "Server exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	clk := clock.System{}
	db, accounts, events, err := openStorage(ctx, cfg, clk, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	catalog, err := plan.LoadCatalog(cfg.Metering.PlanCatalogPath)
	if err != nil {
		return err
	}

	val := dto.NewValidator()

	recorder := services.NewUsageRecorder(events, clk, log)
	ledger := services.NewQuotaLedger(accounts, recorder, log)
	trials := services.NewTrialService(accounts, recorder, clk, log)
	gate := services.NewEligibilityService(accounts, ledger, trials, log)
	accountSvc := services.NewAccountService(accounts, catalog, services.AccountSettings{
		TrialCapSeconds: cfg.Metering.TrialCapSeconds,
		TrialWindow:     cfg.Metering.TrialWindow,
		BillingPeriod:   cfg.Metering.BillingPeriod,
	}, clk, log)

	h := &router.Handlers{
		Health:      handlers.NewHealthHandler(db, log),
		Account:     handlers.NewAccountHandler(accountSvc, log, val),
		Usage:       handlers.NewUsageHandler(ledger, recorder, clk, log, val),
		Trial:       handlers.NewTrialHandler(trials, log, val),
		Eligibility: handlers.NewEligibilityHandler(gate, log, val),
		Billing:     handlers.NewBillingHandler(catalog, accountSvc, log, val),
	}
	if cfg.OpenAI.Enabled() {
		ai := integrations.NewOpenAIClient(cfg.OpenAI, cfg.Metering.InferenceEstimateSeconds, gate, ledger, clk, log)
		h.AI = handlers.NewAIHandler(ai, log, val)
		log.WithFields(map[string]interface{}{"model": cfg.OpenAI.Model}).Info("OpenAI metering enabled")
	}

	resetter, err := worker.NewPeriodResetter(accountSvc, cfg.Metering.PeriodResetSchedule, log)
	if err != nil {
		return err
	}
	go resetter.Start(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(cfg, log, h, ctx.Done()),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(map[string]interface{}{
			"addr":        srv.Addr,
			"environment": cfg.Server.Environment,
			"db_driver":   cfg.Database.Driver,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStorage returns a nil *sql.DB for the memory driver
func openStorage(ctx context.Context, cfg *config.Config, clk clock.Clock, log *logger.Logger) (*sql.DB, account.Repository, usage.Repository, error) {
	if cfg.Database.Driver == "memory" {
		log.Warn("Using in-memory storage; usage will not survive a restart")
		return nil, memory.NewAccountRepository().WithClock(clk), memory.NewUsageEventRepository(), nil
	}

	db, err := postgres.New(cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	applied, err := postgres.RunMigrations(ctx, db, cfg.Database.Driver, migrations.GetFS())
	if err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.WithFields(map[string]interface{}{"applied": applied}).Info("Database migrations complete")

	return db, postgres.NewAccountRepository(db).WithClock(clk), postgres.NewUsageEventRepository(db), nil
}
