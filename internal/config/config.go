package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Analysis holds the tunable detection parameters. Defaults match the
// clinical review settings (140 bpm, 120s gap, 9-month window).
type Analysis struct {
	ThresholdBPM       float64
	MaxGapSeconds      float64
	MinDurationSeconds float64
	WindowMonths       int
}

// MQTT holds the live-watch broker settings. An empty BrokerURL disables
// the watch surface entirely.
type MQTT struct {
	BrokerURL string
	Topic     string
	ClientID  string
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Analysis            Analysis
	MQTT                MQTT
	DataPath            string
	LogDir              string
	CacheDir            string
	WatchListenAddr     string
	EnableMermaidCharts bool
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory (highest priority for MCP servers)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	// 3. Resolve Data Paths
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	logDir := getEnv("LOGS_FOLDER", filepath.Join(dataPath, "logs"))
	cacheDir := filepath.Join(dataPath, "cache")

	// Ensure directories exist
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", logDir).Msg("Failed to create log directory")
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", cacheDir).Msg("Failed to create cache directory")
	}

	cfg := &AppConfig{
		Analysis: Analysis{
			ThresholdBPM:       getEnvFloat("THRESHOLD_BPM", 140),
			MaxGapSeconds:      getEnvFloat("MAX_GAP_SECONDS", 120),
			MinDurationSeconds: getEnvFloat("MIN_DURATION_SECONDS", 0),
			WindowMonths:       getEnvInt("WINDOW_MONTHS", 9),
		},
		MQTT: MQTT{
			BrokerURL: getEnv("MQTT_BROKER_URL", ""),
			Topic:     getEnv("MQTT_TOPIC", "health/heartrate"),
			ClientID:  getEnv("MQTT_CLIENT_ID", "hrtriage-watch"),
		},
		DataPath:            dataPath,
		LogDir:              logDir,
		CacheDir:            cacheDir,
		WatchListenAddr:     getEnv("WATCH_LISTEN_ADDR", ":8090"),
		EnableMermaidCharts: getEnvBool("ENABLE_MERMAID_CHARTS", false),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
