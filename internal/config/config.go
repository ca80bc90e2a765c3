package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"parking-analytics/internal/backend"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Backend             backend.Config
	FacilityID          string
	Location            *time.Location
	InsightLimit        int
	DataPath            string
	LogDir              string
	CacheDir            string
	HTTPAddr            string
	EnableMermaidCharts bool
	SnapshotTTL         time.Duration
}

var defaults = map[string]any{
	"BACKEND_URL":              "",
	"BACKEND_TOKEN":            "",
	"BACKEND_REQUEST_DELAY_MS": 0,
	"BACKEND_TIMEOUT_SECONDS":  30,
	"BACKEND_CACHE_SECONDS":    60,
	"FACILITY_ID":              "",
	"TIMEZONE":                 "UTC",
	"INSIGHT_LIMIT":            6,
	"DATA_PATH":                "",
	"HTTP_ADDR":                ":8080",
	"ENABLE_MERMAID_CHARTS":    false,
	"SNAPSHOT_TTL_SECONDS":     300,
}

// Load loads the configuration from .env files, an optional CONFIG_FILE and
// environment variables. Environment variables win over the file.
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

	// 2. Fallback to current working directory
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v, exeDir)
}

func fromViper(v *viper.Viper, exeDir string) (*AppConfig, error) {
	loc, err := time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	insightLimit := v.GetInt("INSIGHT_LIMIT")
	if insightLimit <= 0 {
		insightLimit = defaults["INSIGHT_LIMIT"].(int)
	}

	// Resolve data paths
	dataPath := v.GetString("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}
	logDir := filepath.Join(dataPath, "logs")
	cacheDir := filepath.Join(dataPath, "cache")

	for _, dir := range []string{logDir, cacheDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Warn().Err(err).Str("path", dir).Msg("Failed to create directory")
		}
	}

	return &AppConfig{
		Backend: backend.Config{
			BaseURL:      v.GetString("BACKEND_URL"),
			Token:        v.GetString("BACKEND_TOKEN"),
			RequestDelay: time.Duration(v.GetInt("BACKEND_REQUEST_DELAY_MS")) * time.Millisecond,
			Timeout:      time.Duration(v.GetInt("BACKEND_TIMEOUT_SECONDS")) * time.Second,
			CacheTTL:     time.Duration(v.GetInt("BACKEND_CACHE_SECONDS")) * time.Second,
		},
		FacilityID:          v.GetString("FACILITY_ID"),
		Location:            loc,
		InsightLimit:        insightLimit,
		DataPath:            dataPath,
		LogDir:              logDir,
		CacheDir:            cacheDir,
		HTTPAddr:            v.GetString("HTTP_ADDR"),
		EnableMermaidCharts: v.GetBool("ENABLE_MERMAID_CHARTS"),
		SnapshotTTL:         time.Duration(v.GetInt("SNAPSHOT_TTL_SECONDS")) * time.Second,
	}, nil
}
