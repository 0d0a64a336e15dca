// Package main is the entry point for the telescope operations daemon.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mk-obs/telops/internal/astro"
	"github.com/mk-obs/telops/internal/config"
	"github.com/mk-obs/telops/internal/ltcs"
	"github.com/mk-obs/telops/internal/rotcalc"
	"github.com/mk-obs/telops/internal/server"
	"github.com/mk-obs/telops/internal/site"
	"github.com/mk-obs/telops/internal/telemetry"
	"github.com/mk-obs/telops/pkg/healthcheck"
	"github.com/mk-obs/telops/pkg/mqtt"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// the logger is not up yet
		panic("failed to load configuration: " + err.Error())
	}

	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}

	var logger *zap.Logger
	switch level {
	case "debug":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Starting telescope operations daemon",
		zap.String("site", cfg.Site.Name),
		zap.String("laser", cfg.LTCS.Laser),
		zap.String("http_addr", cfg.HTTP.Addr))

	tz, err := time.LoadLocation(cfg.Site.Timezone)
	if err != nil {
		logger.Fatal("Invalid site timezone", zap.Error(err))
	}

	for name, lim := range cfg.Instruments {
		rotcalc.SetRotatorLimits(name, rotcalc.Limits{MinDeg: lim.MinDeg, MaxDeg: lim.MaxDeg})
		logger.Info("Rotator limits overridden",
			zap.String("instrument", name),
			zap.Float64("min_deg", lim.MinDeg),
			zap.Float64("max_deg", lim.MaxDeg))
	}

	observer := astro.Observer{
		Name:   cfg.Site.Name,
		LatDeg: cfg.Site.Latitude,
		LonDeg: cfg.Site.Longitude,
		ElevM:  cfg.Site.Elevation,
	}
	st := site.New(observer, tz, logger)
	solver := rotcalc.NewSolver(observer, tz, logger)
	resultLog := rotcalc.NewResultLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := cfg.LTCS.Database()
	if err := config.ResolvePassword(&db); err != nil {
		logger.Warn("No LTCS database password resolved", zap.Error(err))
	}

	store, err := ltcs.NewSQLStore(ctx, db.URL(), cfg.LTCS.QueryTimeout, logger)
	if err != nil {
		logger.Fatal("Failed to connect to LTCS database", zap.Error(err))
	}
	defer store.Close()

	monitor := ltcs.NewMonitor(store, cfg.LTCS.Laser, cfg.LTCS.StaleThreshold, logger)
	poller := ltcs.NewPoller(monitor, cfg.LTCS.PollInterval, logger)
	poller.Start(ctx)
	defer poller.Stop()

	health := healthcheck.NewEngine(logger, 30*time.Second)
	health.Register(monitor)
	health.Register(healthcheck.NamedCheckerFunc("ltcs_database", func(ctx context.Context) *healthcheck.Result {
		result := &healthcheck.Result{
			ComponentName: "ltcs_database",
			Status:        healthcheck.StatusHealthy,
			Timestamp:     time.Now(),
		}
		if err := store.Ping(ctx); err != nil {
			result.Status = healthcheck.StatusUnhealthy
			result.Message = err.Error()
		}
		return result
	}))

	go health.Start(ctx)
	defer health.Stop()

	var busClient *mqtt.Client
	var bridge *telemetry.Bridge
	if cfg.MQTT.Enabled {
		busClient, err = mqtt.NewClient(&mqtt.Config{
			BrokerURL:            cfg.MQTT.BrokerURL,
			ClientID:             cfg.MQTT.ClientID,
			Username:             cfg.MQTT.Username,
			Password:             cfg.MQTT.Password,
			KeepAlive:            30 * time.Second,
			ConnectTimeout:       10 * time.Second,
			AutoReconnect:        true,
			MaxReconnectInterval: 1 * time.Minute,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create MQTT client", zap.Error(err))
		}
		if err := busClient.Connect(); err != nil {
			logger.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		defer busClient.Disconnect()

		bridge = telemetry.NewBridge(busClient, st, logger)
		if err := bridge.Start(ctx); err != nil {
			logger.Fatal("Failed to start telemetry bridge", zap.Error(err))
		}
		defer bridge.Stop()

		health.Register(healthcheck.NamedCheckerFunc("telemetry_bridge", func(ctx context.Context) *healthcheck.Result {
			result := &healthcheck.Result{
				ComponentName: "telemetry_bridge",
				Status:        healthcheck.StatusHealthy,
				Timestamp:     time.Now(),
			}
			switch {
			case !busClient.IsConnected():
				result.Status = healthcheck.StatusDegraded
				result.Message = "broker disconnected"
			case !bridge.IsRunning():
				result.Status = healthcheck.StatusUnhealthy
				result.Message = "consumer stopped"
			}
			return result
		}))

		// republish every collision snapshot change onto the bus
		go publishSnapshots(ctx, busClient, monitor, cfg.LTCS.PollInterval, logger)

		reporter := healthcheck.NewReporter(health, func(ctx context.Context, result *healthcheck.AggregatedResult) error {
			return busClient.PublishJSON(mqtt.HealthStatusTopic(), 0, true, result)
		}, logger)
		go reporter.StartReporting(ctx, 30*time.Second)
	}

	srv, err := server.New(cfg.HTTP, st, monitor, solver, resultLog, health, logger)
	if err != nil {
		logger.Fatal("Failed to create API server", zap.Error(err))
	}
	if busClient != nil {
		srv.OnSolve(func(res rotcalc.Result) {
			msg, err := mqtt.NewMessage(mqtt.MessageTypeEvent, "telopsd", res)
			if err != nil {
				logger.Error("Failed to build rotation event message", zap.Error(err))
				return
			}
			if err := busClient.PublishJSON(mqtt.RotationEventTopic(), 0, false, msg); err != nil {
				logger.Warn("Failed to publish rotation event", zap.Error(err))
			}
		})
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Telescope operations daemon running, press Ctrl+C to stop")

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received")
	case err := <-serverErrors:
		if err != nil {
			logger.Error("API server exited", zap.Error(err))
		}
	}

	srv.Stop()
	cancel()

	logger.Info("Telescope operations daemon stopped")
}

// publishSnapshots mirrors the collision snapshot onto the bus after each
// poll so downstream displays do not need to poll the HTTP API.
func publishSnapshots(ctx context.Context, client *mqtt.Client, monitor *ltcs.Monitor,
	interval time.Duration, logger *zap.Logger) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := monitor.GetStatus()
			if !snap.Generated.After(last) {
				continue
			}
			last = snap.Generated

			msg, err := mqtt.NewMessage(mqtt.MessageTypeStatus, "telopsd", snap)
			if err != nil {
				logger.Error("Failed to build snapshot message", zap.Error(err))
				continue
			}
			if err := client.PublishJSON(mqtt.CollisionStatusTopic(), 0, true, msg); err != nil {
				logger.Warn("Failed to publish collision snapshot", zap.Error(err))
			}
		}
	}
}
