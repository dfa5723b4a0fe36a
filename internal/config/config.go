package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	SourceScenario = "scenario"
	SourceNMEA     = "nmea"
	SourceMQTT     = "mqtt"
	SourceReplay   = "replay"
	SourcePush     = "push"
	SourceProbe    = "probe"
	SourceNone     = "none"
)

type Config struct {
	ServerAddr             string
	DatabasePath           string
	LogLevel               string
	LogPath                string
	CanvasWidth            int
	CanvasHeight           int
	StopThresholdMS        int
	PositionSource         string
	ScenarioPath           string
	SerialPort             string
	SerialBaud             int
	MQTTBroker             string
	MQTTClientID           string
	MQTTTopic              string
	ReplayRunID            string
	PushSecret             string
	NetworkSource          string
	NetworkProbeURL        string
	NetworkProbeIntervalMS int
	WorkerPollIntervalMS   int
}

func Load(path string) (Config, error) {
	cfg := Config{
		ServerAddr:             ":8080",
		LogLevel:               "INFO",
		LogPath:                "logs/smartjogger.log",
		CanvasWidth:            600,
		CanvasHeight:           400,
		StopThresholdMS:        15000,
		SerialBaud:             9600,
		MQTTClientID:           "smartjogger",
		NetworkProbeIntervalMS: 10000,
		WorkerPollIntervalMS:   2000,
	}

	if path != "" {
		if err := godotenv.Overload(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	cfg.ServerAddr = getenv("SERVER_ADDR", cfg.ServerAddr)
	cfg.DatabasePath = os.Getenv("DATABASE_PATH")
	cfg.LogLevel = strings.ToUpper(getenv("LOG_LEVEL", cfg.LogLevel))
	cfg.LogPath = getenv("LOG_PATH", cfg.LogPath)
	cfg.ScenarioPath = os.Getenv("SCENARIO_PATH")
	cfg.SerialPort = os.Getenv("SERIAL_PORT")
	cfg.MQTTBroker = os.Getenv("MQTT_BROKER")
	cfg.MQTTClientID = getenv("MQTT_CLIENT_ID", cfg.MQTTClientID)
	cfg.MQTTTopic = os.Getenv("MQTT_TOPIC")
	cfg.ReplayRunID = os.Getenv("REPLAY_RUN_ID")
	cfg.PushSecret = os.Getenv("PUSH_SECRET")
	cfg.NetworkProbeURL = os.Getenv("NETWORK_PROBE_URL")

	cfg.PositionSource = strings.ToLower(getenv("POSITION_SOURCE", defaultPositionSource(cfg)))
	switch cfg.PositionSource {
	case SourceScenario, SourceNMEA, SourceMQTT, SourceReplay, SourcePush, SourceNone:
	default:
		return Config{}, fmt.Errorf("POSITION_SOURCE: unknown source %q", cfg.PositionSource)
	}
	cfg.NetworkSource = strings.ToLower(getenv("NETWORK_SOURCE", defaultNetworkSource(cfg)))
	switch cfg.NetworkSource {
	case SourceProbe, SourceScenario, SourceNone:
	default:
		return Config{}, fmt.Errorf("NETWORK_SOURCE: unknown source %q", cfg.NetworkSource)
	}

	ints := []struct {
		key    string
		target *int
	}{
		{"CANVAS_WIDTH", &cfg.CanvasWidth},
		{"CANVAS_HEIGHT", &cfg.CanvasHeight},
		{"STOP_THRESHOLD_MS", &cfg.StopThresholdMS},
		{"SERIAL_BAUD", &cfg.SerialBaud},
		{"NETWORK_PROBE_INTERVAL_MS", &cfg.NetworkProbeIntervalMS},
		{"WORKER_POLL_INTERVAL_MS", &cfg.WorkerPollIntervalMS},
	}
	for _, item := range ints {
		if v := os.Getenv(item.key); v != "" {
			if err := parsePositive(item.target, v); err != nil {
				return Config{}, fmt.Errorf("%s: %w", item.key, err)
			}
		}
	}

	if cfg.PositionSource == SourceScenario && cfg.ScenarioPath == "" {
		return Config{}, errors.New("SCENARIO_PATH: required for scenario source")
	}
	if cfg.NetworkSource == SourceScenario && cfg.ScenarioPath == "" {
		return Config{}, errors.New("SCENARIO_PATH: required for scenario network source")
	}
	if cfg.NetworkSource == SourceProbe && cfg.NetworkProbeURL == "" {
		return Config{}, errors.New("NETWORK_PROBE_URL: required for probe network source")
	}
	if cfg.PositionSource == SourceNMEA && cfg.SerialPort == "" {
		return Config{}, errors.New("SERIAL_PORT: required for nmea source")
	}
	if cfg.PositionSource == SourceMQTT && cfg.MQTTBroker == "" {
		return Config{}, errors.New("MQTT_BROKER: required for mqtt source")
	}
	if cfg.PositionSource == SourceReplay && (cfg.ReplayRunID == "" || cfg.DatabasePath == "") {
		return Config{}, errors.New("REPLAY_RUN_ID: replay needs a run id and DATABASE_PATH")
	}

	return cfg, nil
}

func defaultPositionSource(cfg Config) string {
	if cfg.ScenarioPath != "" {
		return SourceScenario
	}
	return SourcePush
}

func defaultNetworkSource(cfg Config) string {
	switch {
	case cfg.NetworkProbeURL != "":
		return SourceProbe
	case cfg.ScenarioPath != "":
		return SourceScenario
	default:
		return SourceNone
	}
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parsePositive(target *int, value string) error {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return err
	}
	if parsed <= 0 {
		return fmt.Errorf("must be positive, got %d", parsed)
	}
	*target = parsed
	return nil
}
