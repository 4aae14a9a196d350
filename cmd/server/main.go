package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/config"
	"github.com/ErlanBelekov/campsite-scheduler/internal/admission"
	"github.com/ErlanBelekov/campsite-scheduler/internal/booking"
	"github.com/ErlanBelekov/campsite-scheduler/internal/email"
	"github.com/ErlanBelekov/campsite-scheduler/internal/health"
	"github.com/ErlanBelekov/campsite-scheduler/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/campsite-scheduler/internal/log"
	"github.com/ErlanBelekov/campsite-scheduler/internal/metrics"
	"github.com/ErlanBelekov/campsite-scheduler/internal/notify"
	"github.com/ErlanBelekov/campsite-scheduler/internal/scheduler"
	httptransport "github.com/ErlanBelekov/campsite-scheduler/internal/transport/http"
	"github.com/ErlanBelekov/campsite-scheduler/internal/transport/http/handler"
	"github.com/ErlanBelekov/campsite-scheduler/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	admissionTimeout       = 30 * time.Second
	shutdownTimeout        = 30 * time.Second
	metricsShutdownTimeout = 5 * time.Second
	day                    = 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := ctxlog.New(cfg.Env, cfg.SlogLevel(), os.Stdout)

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		stop()
		log.Fatalf("migrate: %v", err)
	}
	logger.Info("db connected")

	metrics.Register()
	checker := health.NewChecker(map[string]health.Pinger{"postgres": pool}, logger, prometheus.DefaultRegisterer)

	userRepo := postgres.NewUserRepository(pool)
	watchRepo := postgres.NewWatchRepository(pool)
	entryRepo := postgres.NewQueueEntryRepository(pool)
	jobLogRepo := postgres.NewJobLogRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)

	// Admission session
	admissionClient := admission.NewClient(
		admission.NewHTTPAPI(cfg.AdmissionURL, cfg.AdmissionQueueGroup, admissionTimeout),
		sessionRepo,
		logger,
		admission.Options{
			PollInterval:  cfg.AdmissionPollInterval(),
			RetryInterval: cfg.AdmissionRetryInterval(),
			RefreshBuffer: cfg.AdmissionRefreshBuffer(),
		},
	)
	unsubscribe := admissionClient.Subscribe(metrics.ObserveSessionEvent)
	if err := admissionClient.Restore(ctx); err != nil {
		logger.Warn("admission session not restored", "error", err)
	}

	// Notifications
	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	fanout := notify.NewFanout(notificationRepo, userRepo, sender, logger)

	// Scheduler
	bookingClient := booking.NewHTTPClient(cfg.BookingAPIURL, cfg.BookingTimeout())
	sched := scheduler.New(
		watchRepo,
		entryRepo,
		jobLogRepo,
		scheduler.Executors{
			Watch:  scheduler.NewWatchExecutor(watchRepo, bookingClient, admissionClient, fanout, logger),
			Rebook: scheduler.NewRebookExecutor(entryRepo, bookingClient, admissionClient, fanout, logger),
			Maintenance: scheduler.NewMaintenance(
				jobLogRepo,
				notificationRepo,
				watchRepo,
				time.Duration(cfg.LogRetentionDays)*day,
				time.Duration(cfg.NotificationRetentionDays)*day,
				loc,
				logger,
			),
		},
		logger,
		scheduler.Config{
			Location:        loc,
			MaintenanceSpec: cfg.MaintenanceCron,
			CatchUpOnStart:  cfg.CatchUpOnStart,
		},
	)
	if err := sched.Start(ctx); err != nil {
		stop()
		log.Fatalf("scheduler: %v", err)
	}

	// HTTP
	watchHandler := handler.NewWatchHandler(usecase.NewWatchUsecase(watchRepo, sched), logger)
	rebookingHandler := handler.NewRebookingHandler(usecase.NewRebookingUsecase(entryRepo, sched), logger)
	sessionHandler := handler.NewSessionHandler(admissionClient, logger)

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, httptransport.Handlers{
			Watch:     watchHandler,
			Rebooking: rebookingHandler,
			Session:   sessionHandler,
		}, userRepo, []byte(cfg.JWTSecret)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, map[string]http.Handler{
		"/healthz": checker.LivenessHandler(),
		"/readyz":  checker.ReadinessHandler(),
	})

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Release runs parked on the admission wait first so neither manual
	// requests nor timer firings hold the drain open.
	admissionClient.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler shutdown", "error", err)
	}
	unsubscribe()
	fanout.Wait()

	metricsCtx, metricsCancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer metricsCancel()
	if err := metricsSrv.Shutdown(metricsCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
	logger.Info("shutdown complete")
}
