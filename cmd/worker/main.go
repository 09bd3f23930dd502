package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/alumnihub/event-mailer/internal/config"
	"github.com/alumnihub/event-mailer/internal/db"
	"github.com/alumnihub/event-mailer/internal/metrics"
	"github.com/alumnihub/event-mailer/internal/queue"
	"github.com/alumnihub/event-mailer/internal/ratelimiter"
	"github.com/alumnihub/event-mailer/internal/repository"
	"github.com/alumnihub/event-mailer/internal/transport"
	"github.com/alumnihub/event-mailer/internal/worker"
)

// Worker process: the single consumer of the durable job store. Refuses to
// start if the database or the mail provider configuration is unusable —
// a worker that starts and silently drops every job is worse than one that
// dies loudly.
func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	// ---- mail transport ----
	mailer, err := transport.New(cfg)
	if err != nil {
		logger.Fatal("failed to build mail transport", zap.Error(err))
	}
	logger.Info("mail transport ready", zap.String("provider", mailer.Name()))

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	q := queue.New()
	jobs := repository.NewPgJobRepository(pool)
	limiter := ratelimiter.New(cfg.SendRatePerSec)

	// ---- background workers ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	onSent, onFailed := m.DispatcherHooks()
	pool2 := worker.NewPool(cfg, q, jobs, mailer, limiter, logger, worker.MetricHooks{
		OnSent:   onSent,
		OnFailed: onFailed,
	})
	pool2.Start(workerCtx)

	feeder := worker.NewFeeder(jobs, q, cfg.FeederInterval, logger)
	go feeder.Run(workerCtx)

	retryW := worker.NewRetryWorker(jobs, q, cfg.RetryInterval, logger)
	go retryW.Run(workerCtx)

	requeueW := worker.NewRequeueWorker(jobs, cfg.RequeueInterval, logger)
	go requeueW.Run(workerCtx)

	// Sample the in-process queue depth for the gauge.
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				m.QueueDepth.Set(float64(q.Depth()))
			}
		}
	}()

	// ---- metrics listener ----
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	srv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: mux}
	go func() {
		logger.Info("metrics listener starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop the metrics listener.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics listener shutdown error", zap.Error(err))
	}

	// 2. Signal all workers to stop processing new queue items.
	cancelWorkers()

	// 3. Wait for in-flight dispatchers to finish their current send.
	pool2.Wait()

	logger.Info("worker stopped cleanly")
}
