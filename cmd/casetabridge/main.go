// Caseta Bridge - Lutron Caseta to MQTT gateway
//
// This is the main entry point for the Caseta bridge service. It holds a
// LEAP session with one Lutron Smart Bridge and mirrors every dimmer,
// switch, fan, shade and Pico button onto MQTT:
//   - Device state is published under <root>/feedback/<name>
//   - Commands arrive on <command>/<root>/<target>
//   - Button double clicks and long presses are derived locally
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/osterwood/lutron-caseta/internal/api"
	"github.com/osterwood/lutron-caseta/internal/bridges/caseta"
	"github.com/osterwood/lutron-caseta/internal/infrastructure/config"
	"github.com/osterwood/lutron-caseta/internal/infrastructure/influxdb"
	"github.com/osterwood/lutron-caseta/internal/infrastructure/logging"
	"github.com/osterwood/lutron-caseta/internal/infrastructure/metrics"
	"github.com/osterwood/lutron-caseta/internal/infrastructure/mqtt"
	"github.com/osterwood/lutron-caseta/internal/leap"
	"github.com/osterwood/lutron-caseta/internal/loop"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	defaultEnvPath    = ".env"
)

func main() {
	if err := loadDotEnv(getEnvPath()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Caseta bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	defer log.Close()
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Device state runs on a single event loop.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	events := loop.New(loop.Options{Logger: log})
	go func() {
		if runErr := events.Run(loopCtx); runErr != nil {
			log.Error("event loop stopped", "error", runErr)
		}
	}()

	collector := metrics.New(metrics.DefaultNamespace)

	var (
		recorder caseta.StateRecorder
		history  api.HistoryReader
	)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		recorder = influxClient
		history = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	creds := credentials(cfg.Bridge.Credentials)
	bridgeClient := leap.NewClient(leap.Config{
		Host:           cfg.Bridge.Host,
		Port:           cfg.Bridge.Port,
		Credentials:    creds,
		ConnectTimeout: cfg.Bridge.ConnectTimeout,
		RequestTimeout: cfg.Bridge.RequestTimeout,
	})
	bridgeClient.SetLogger(log)

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttClient.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	facade, err := caseta.New(caseta.Options{
		ServiceName:       cfg.Bridge.Name,
		Topics:            mqtt.TopicsFromConfig(cfg.MQTT.Topics),
		QoS:               byte(cfg.MQTT.QoS), //nolint:gosec // validated to 0-2
		Retain:            cfg.MQTT.Topics.Retain,
		JSONFeedback:      cfg.MQTT.Topics.JSON,
		PairRetryInterval: cfg.Bridge.PairRetryInterval,
		CommandTimeout:    cfg.Bridge.RequestTimeout,
		MQTT:              mqttClient,
		Bridge:            bridgeClient,
		Loop:              events,
		Credentials:       creds,
		Metrics:           collector,
		Recorder:          recorder,
		Logger:            log,
	})
	if err != nil {
		_ = mqttClient.Close()
		_ = bridgeClient.Close()
		return fmt.Errorf("creating bridge facade: %w", err)
	}
	// Closes MQTT first, then the bridge session.
	defer func() {
		log.Info("stopping bridge facade")
		if closeErr := facade.Close(); closeErr != nil {
			log.Error("error stopping bridge facade", "error", closeErr)
		}
	}()

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT connected, republishing status")
		facade.BrokerConnected()
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	if err := facade.Start(ctx); err != nil {
		if ctx.Err() != nil {
			log.Info("shutdown requested before the bridge was ready")
			return nil
		}
		return fmt.Errorf("starting bridge facade: %w", err)
	}

	poller, err := caseta.NewPoller(facade, cfg.Poll.Interval, cfg.Poll.Commands)
	if err != nil {
		return fmt.Errorf("creating poller: %w", err)
	}
	poller.Start()
	defer poller.Stop()

	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log,
			Bridge:  facade,
			Metrics: collector,
			History: history,
			Version: version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if apiErr := server.Start(ctx); apiErr != nil {
			return fmt.Errorf("starting API server: %w", apiErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error stopping API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("HTTP API disabled")
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// API, poller, facade (MQTT then bridge), InfluxDB, event loop.
	return nil
}

// credentials resolves the credential file names inside the configured
// directory. Absolute file names are used as given.
func credentials(cfg config.CredentialsConfig) leap.Credentials {
	resolve := func(name, def string) string {
		if name == "" {
			name = def
		}
		if filepath.IsAbs(name) {
			return name
		}
		return filepath.Join(cfg.Dir, name)
	}
	return leap.Credentials{
		KeyFile:  resolve(cfg.KeyFile, leap.DefaultKeyFile),
		CertFile: resolve(cfg.CertFile, leap.DefaultCertFile),
		CAFile:   resolve(cfg.CAFile, leap.DefaultCAFile),
	}
}

// getConfigPath returns the configuration file path.
// Uses CASETA_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CASETA_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// getEnvPath returns the dotenv file path from CASETA_ENV_FILE or ".env".
func getEnvPath() string {
	if path := os.Getenv("CASETA_ENV_FILE"); path != "" {
		return path
	}
	return defaultEnvPath
}

// loadDotEnv loads environment variables from path. A missing file is
// ignored so .env files remain optional. Existing variables are not
// overwritten.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
