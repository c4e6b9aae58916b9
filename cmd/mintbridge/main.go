package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/mintbridge/internal/api"
	"github.com/mtlprog/mintbridge/internal/bridge"
	"github.com/mtlprog/mintbridge/internal/config"
	"github.com/mtlprog/mintbridge/internal/database"
	"github.com/mtlprog/mintbridge/internal/discovery"
	"github.com/mtlprog/mintbridge/internal/export"
	"github.com/mtlprog/mintbridge/internal/logger"
	"github.com/mtlprog/mintbridge/internal/mqtt"
	"github.com/mtlprog/mintbridge/internal/snapshot"
	"github.com/mtlprog/mintbridge/internal/upstream"
	"github.com/mtlprog/mintbridge/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "mintbridge",
		Usage: "publish aggregated account balances to Home Assistant over MQTT",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (trace, debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "info",
			},
			&cli.BoolFlag{
				Name:    "log-pretty",
				Usage:   "human-readable console logs",
				EnvVars: []string{"LOG_PRETTY"},
			},
		},
		Before: func(c *cli.Context) error {
			log := logger.New(logger.ParseLevel(c.String("log-level")), c.Bool("log-pretty"))
			c.Context = logger.WithContext(c.Context, log)
			return nil
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "refresh and publish on a schedule, serving the HTTP API if HTTP_PORT is set",
				Action: serve,
			},
			{
				Name:   "refresh",
				Usage:  "obtain a snapshot once, fetching upstream only if the cache is stale",
				Action: refreshOnce,
			},
			{
				Name:   "publish",
				Usage:  "refresh once, then publish every record to the broker",
				Action: publishOnce,
			},
			{
				Name:   "dump",
				Usage:  "print the normalized records of the cached snapshot as JSON",
				Action: dump,
			},
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		log := logger.New(zerolog.InfoLevel, false)
		log.Fatal().Err(err).Msg("mintbridge failed")
	}
}

// components holds everything built from the configuration. close releases
// whatever was opened.
type components struct {
	cfg    config.Config
	bridge *bridge.Service
	close  func()
}

// build wires the application. withBroker controls whether an MQTT
// connection is opened.
func build(ctx context.Context, withBroker bool) (*components, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	closers = append(closers, closeStore)

	client := upstream.NewClient(
		cfg.UpstreamURL,
		upstream.Credentials{Email: cfg.MintEmail, Password: cfg.MintPassword, MFASeed: cfg.MintMFAToken},
		cfg.UpstreamTimeout,
		cfg.UpstreamRetryMax,
		cfg.UpstreamRetryBaseDelay,
	)
	snapshots := snapshot.NewService(store, client, cfg.MaxAgeHours)

	hook, err := exportHook(ctx, cfg)
	if err != nil {
		closeAll()
		return nil, err
	}

	var bridgePublisher bridge.Publisher
	if withBroker {
		publisher, err := mqtt.Connect(ctx, mqtt.Options{
			BrokerURL: cfg.MQTTBrokerURL,
			ClientID:  cfg.MQTTClientID,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("connecting to broker: %w", err)
		}
		closers = append(closers, publisher.Close)
		bridgePublisher = publisher
	}

	normalizer := discovery.NewNormalizer(discovery.NewNamer(cfg.StatePrefix, cfg.DiscoveryPrefix))

	return &components{
		cfg:    cfg,
		bridge: bridge.NewService(snapshots, normalizer, bridgePublisher, hook),
		close:  closeAll,
	}, nil
}

// openStore returns the snapshot store selected by CACHE_BACKEND.
func openStore(ctx context.Context, cfg config.Config) (snapshot.Store, func(), error) {
	switch cfg.CacheBackend {
	case config.CacheBackendPostgres:
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		return snapshot.NewPgStore(pool), pool.Close, nil
	case config.CacheBackendGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("creating storage client: %w", err)
		}
		return snapshot.NewGCSStore(client, cfg.GCSBucket, cfg.GCSObject), func() { _ = client.Close() }, nil
	default:
		return snapshot.NewFileStore(cfg.CachePath), func() {}, nil
	}
}

// exportHook returns the balance export hook, or nil when no destination is configured.
func exportHook(ctx context.Context, cfg config.Config) (bridge.AfterRefreshHook, error) {
	var writers []export.Writer
	if cfg.ExportXLSXPath != "" {
		writers = append(writers, export.NewXLSXWriter(cfg.ExportXLSXPath))
	}
	if cfg.SheetsSpreadsheetID != "" {
		sw, err := export.NewSheetsWriter(ctx, cfg.SheetsSpreadsheetID, cfg.GoogleCredentialsJSON)
		if err != nil {
			return nil, fmt.Errorf("creating sheets writer: %w", err)
		}
		writers = append(writers, sw)
	}
	if len(writers) == 0 {
		return nil, nil
	}
	return export.NewService(writers...), nil
}

func serve(c *cli.Context) error {
	ctx := c.Context
	log := logger.FromContext(ctx)

	app, err := build(ctx, true)
	if err != nil {
		return err
	}
	defer app.close()

	// The first cycle runs inline so the broker sees entities right after startup.
	if err := app.bridge.Refresh(ctx); err != nil {
		log.Error().Err(err).Msg("initial refresh failed")
	} else if err := app.bridge.Publish(ctx); err != nil {
		log.Error().Err(err).Msg("initial publish failed")
	}

	go worker.NewRefreshWorker(app.bridge, app.cfg.RefreshInterval, false).Run(ctx)
	go worker.NewPublishWorker(app.bridge, app.cfg.PublishInterval, false).Run(ctx)

	var srv *http.Server
	if app.cfg.HTTPPort != "" {
		if app.cfg.AdminAPIKey == "" {
			log.Warn().Msg("ADMIN_API_KEY not set, refresh endpoint is unprotected")
		}
		srv = api.NewServer(app.cfg.HTTPPort, app.bridge, app.cfg.AdminAPIKey)
		srv.BaseContext = func(_ net.Listener) context.Context { return ctx }
		go func() {
			log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("HTTP server error")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
	}

	log.Info().Msg("shutdown complete")
	return nil
}

func refreshOnce(c *cli.Context) error {
	app, err := build(c.Context, false)
	if err != nil {
		return err
	}
	defer app.close()

	return app.bridge.Refresh(c.Context)
}

func publishOnce(c *cli.Context) error {
	app, err := build(c.Context, true)
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.bridge.Refresh(c.Context); err != nil {
		return err
	}
	return app.bridge.Publish(c.Context)
}

func dump(c *cli.Context) error {
	cfg := config.Load()
	if err := cfg.ValidateStore(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	store, closeStore, err := openStore(c.Context, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// No fetcher: dump never contacts the upstream.
	snap, err := snapshot.NewService(store, nil, cfg.MaxAgeHours).Cached(c.Context)
	if err != nil {
		return fmt.Errorf("loading cached snapshot: %w", err)
	}

	normalizer := discovery.NewNormalizer(discovery.NewNamer(cfg.StatePrefix, cfg.DiscoveryPrefix))
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(normalizer.Normalize(c.Context, snap))
}
