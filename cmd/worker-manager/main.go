// cmd/worker-manager/main.go
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

	"github.com/gin-gonic/gin"

	"blood-alert-workers/internal/api"
	"blood-alert-workers/internal/common/camunda"
	"blood-alert-workers/internal/common/config"
	"blood-alert-workers/internal/common/database"
	"blood-alert-workers/internal/common/logger"
	"blood-alert-workers/internal/common/observability"
	"blood-alert-workers/internal/common/validation"
	"blood-alert-workers/internal/engine/dispatch"
	"blood-alert-workers/internal/engine/matcher"
	"blood-alert-workers/internal/engine/orchestrator"
	"blood-alert-workers/internal/engine/scoring"
	"blood-alert-workers/internal/store/postgres"
	sbr "blood-alert-workers/internal/workers/bloodrequest/submit-blood-request"
	ta "blood-alert-workers/internal/workers/bloodrequest/trigger-alert"
	"blood-alert-workers/pkg/registry"
)

const shutdownTimeout = 20 * time.Second

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err,
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func fatal(log logger.Logger, msg string, err error) {
	log.Error(msg, map[string]interface{}{"error": err})
	os.Exit(1)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal(logger.NewStructured("info", "console"), "config load failed", err)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})
	log.Info("Starting blood alert service...", map[string]interface{}{"environment": cfg.App.Environment})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(cfg.App.Name, cfg.App.Version, cfg.Tracing.JaegerEndpoint, cfg.Tracing.SampleRatio)
	if err != nil {
		fatal(log, "tracing init failed", err)
	}
	obs := observability.New(cfg.App.Name, log)

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(ctx, func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pg.Ping(pingCtx); err != nil {
			_ = pg.Close()
			return err
		}
		return nil
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		fatal(log, "postgres failed after retries", err)
	}
	defer pg.Close()
	log.Info("PostgreSQL connected successfully", nil)

	if cfg.Database.Postgres.AutoMigrate {
		if err := postgres.Migrate(ctx, pg.DB); err != nil {
			fatal(log, "schema migration failed", err)
		}
		log.Info("schema migrated", nil)
	}

	// --- Engine ---
	directory, err := buildDirectory(cfg, pg, log)
	if err != nil {
		fatal(log, "patient directory init failed", err)
	}
	defer directory.Close()

	reg, err := registry.LoadRegistry(cfg.Broadcast.TemplateRegistry)
	if err != nil {
		fatal(log, "activity registry load failed", err)
	}
	templates, err := buildTemplates(reg)
	if err != nil {
		fatal(log, "alert templates invalid", err)
	}
	policy := scoring.PolicyFromConfig(cfg.Scoring)
	scorer, err := scoring.New(policy)
	if err != nil {
		fatal(log, "scoring policy invalid", err)
	}
	reg.SetRequestTypes(policy.RequestTypes())
	validator, err := validation.NewValidator(reg)
	if err != nil {
		fatal(log, "input schemas invalid", err)
	}

	channel, err := buildChannel(ctx, cfg, log)
	if err != nil {
		fatal(log, "notification channel init failed", err)
	}

	donorMatcher := matcher.New(directory, log)
	dispatcher := dispatch.New(channel, dispatch.Config{
		MaxConcurrency: cfg.Broadcast.MaxConcurrency,
		AttemptTimeout: config.GetDuration(cfg.Broadcast.AttemptTimeout),
	}, log)
	ledger := postgres.NewLedger(pg.DB)
	engine := orchestrator.New(scorer, donorMatcher, dispatcher, ledger, templates, log)

	deps := append([]database.Pinger{pg}, directory.Pingers()...)

	// --- Zeebe workers (optional) ---
	var zeebe *camunda.Client
	var workers []*camunda.CamundaWorker
	if cfg.Camunda.Enabled {
		zeebe, err = camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		if err != nil {
			fatal(log, "zeebe client failed after retries", err)
		}
		log.Info("Zeebe client connected successfully", nil)
		deps = append(deps, zeebe)

		if config.IsWorkerEnabled(cfg, sbr.TaskType) {
			wcfg := config.GetWorkerConfig(cfg, sbr.TaskType)
			handler := sbr.NewHandler(&sbr.Config{Timeout: config.GetDuration(wcfg.Timeout)}, engine, validator, obs, log)
			workers = append(workers, startWorker(zeebe, sbr.TaskType, wcfg, handler, log))
		}
		if config.IsWorkerEnabled(cfg, ta.TaskType) {
			wcfg := config.GetWorkerConfig(cfg, ta.TaskType)
			handler := ta.NewHandler(&ta.Config{Timeout: config.GetDuration(wcfg.Timeout)}, engine, validator, obs, log)
			workers = append(workers, startWorker(zeebe, ta.TaskType, wcfg, handler, log))
		}
	} else {
		log.Info("camunda disabled, serving HTTP only", nil)
	}

	// --- HTTP API ---
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.NewHandler(engine, ledger, donorMatcher, validator, log), cfg.App.Name, deps, log)
	srv := api.NewServer(cfg.HTTP.Address, router)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", map[string]interface{}{"address": cfg.HTTP.Address})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// --- Graceful Shutdown ---
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received, stopping...", nil)
	case err := <-serverErr:
		log.Error("http server failed", map[string]interface{}{"error": err})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", map[string]interface{}{"error": err})
	}
	for _, w := range workers {
		w.Stop(shutdownCtx)
	}
	if zeebe != nil {
		_ = zeebe.Close()
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Warn("metrics shutdown failed", map[string]interface{}{"error": err})
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown failed", map[string]interface{}{"error": err})
	}
	log.Info("stopped", nil)
}

func startWorker(client *camunda.Client, taskType string, wcfg config.WorkerConfig, handler camunda.JobHandler, log logger.Logger) *camunda.CamundaWorker {
	maxJobs := wcfg.MaxJobsActive
	if maxJobs <= 0 {
		maxJobs = 5
	}
	return camunda.NewWorker(client.GetClient(), taskType, maxJobs, config.GetDuration(wcfg.Timeout), handler, log)
}
