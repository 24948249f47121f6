package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/errgroup"

	"homebase/location-server/internal/config"
	"homebase/location-server/internal/events"
	"homebase/location-server/internal/history"
	"homebase/location-server/internal/ingest"
	"homebase/location-server/internal/metrics"
	"homebase/location-server/internal/mqttbroker"
	"homebase/location-server/internal/notify"
	"homebase/location-server/internal/registry"
	"homebase/location-server/internal/store"
	"homebase/location-server/internal/tracking"
)

// App wires together the HomeBase services and manages their lifecycle.
type App struct {
	cfg    config.Config
	logger *slog.Logger

	store     *store.Store
	bus       *events.Bus
	registry  *registry.Registry
	metrics   *metrics.Metrics
	pipeline  *ingest.Pipeline
	history   *history.Compactor
	scheduler *tracking.Scheduler
	broker    *mqttbroker.Broker
	mdns      *zeroconf.Server
	sanitizer *bluemonday.Policy

	unsubscribe []func()
}

// New constructs a new application instance.
func New(cfg config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{cfg: cfg, logger: logger}
}

// Run starts all configured services and blocks until the context is cancelled or an error occurs.
func (a *App) Run(ctx context.Context) error {
	db, err := store.Open(a.cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			a.logger.Error("close store", "error", cerr)
		}
	}()

	if err := db.InitSchema(ctx); err != nil {
		return err
	}

	a.wire(db)
	defer a.teardown()

	brokerErrCh, err := a.broker.Start(a.cfg.MQTTBindAddress)
	if err != nil {
		return err
	}

	if a.cfg.MDNSEnabled {
		if err := a.startMDNS(a.broker.Port()); err != nil {
			a.logger.Warn("mDNS advertisement unavailable", "error", err)
		}
	}

	a.resumeTracking(ctx)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.HTTPPort),
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.MetricsPort),
		Handler:           a.metricsRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.logger.Info("metrics server started", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		select {
		case err, ok := <-brokerErrCh:
			if ok && err != nil {
				return err
			}
			return nil
		case <-gctx.Done():
			return nil
		}
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var errs []error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
		a.logger.Info("http server stopped")

		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}

		if err := a.broker.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("mqtt broker stop: %w", err))
		}
		a.logger.Info("mqtt broker stopped")
		return errors.Join(errs...)
	})

	return g.Wait()
}

// wire builds the services around an initialised store. The broker is
// created but not started.
func (a *App) wire(db *store.Store) {
	a.store = db
	a.sanitizer = bluemonday.StrictPolicy()
	a.metrics = metrics.New()
	a.bus = events.NewBus(a.logger.With("component", "bus"))
	a.registry = registry.New(a.logger.With("component", "registry"))
	a.metrics.RegisterConnectionsGauge(func() float64 { return float64(a.registry.Len()) })

	dispatcher := notify.NewDispatcher(db, a.bus, a.logger.With("component", "notify"), notify.WithMetrics(a.metrics))
	a.pipeline = ingest.New(db, dispatcher, a.bus, a.logger.With("component", "ingest"),
		ingest.WithThrottle(ingest.NewThrottle(a.cfg.MoveThrottle)),
		ingest.WithMetrics(a.metrics),
	)
	a.history = history.NewCompactor(db, a.logger.With("component", "history"), a.cfg.HistoryWindow, a.cfg.HistoryGap)

	relogger := tracking.NewRelogger(db, a.logger.With("component", "relog"), a.metrics)
	a.scheduler = tracking.NewScheduler(a.cfg.RelogInterval, relogger.Run, a.logger.With("component", "tracking"))

	a.broker = mqttbroker.New(a.logger.With("component", "mqtt"))
	a.broker.SetPublishHandler(a.handleMQTTPublish)
	a.broker.ReserveTopics(pingTopicPrefix, familyTopicPrefix)

	a.unsubscribe = append(a.unsubscribe,
		a.bus.Subscribe(a.registry.HandleEvent),
		a.bus.Subscribe(a.relayLocationUpdate),
	)
}

func (a *App) teardown() {
	a.stopMDNS()
	if a.scheduler != nil {
		a.scheduler.StopAll()
	}
	for _, unsub := range a.unsubscribe {
		unsub()
	}
	a.unsubscribe = nil
}

// resumeTracking restarts re-log tasks for every user that had sharing enabled.
func (a *App) resumeTracking(ctx context.Context) {
	loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	users, err := a.store.ListSharingUsers(loadCtx)
	if err != nil {
		a.logger.Error("load sharing users", "error", err)
		return
	}
	for _, u := range users {
		a.scheduler.Start(u.ID)
	}
	a.logger.Info("location tracking resumed", "users", len(users))
}

func (a *App) metricsRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	return mux
}
