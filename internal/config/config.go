// Package config loads and validates the YAML configuration of a
// Kaleidoscope node: logging, the three advertisement tunables, telemetry
// and the persistence adapter.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"kaleidoscope/internal/logger"
)

// FileLoggerConfig configures the rotating file sink used when
// LoggerConfig.Mode == "file".
type FileLoggerConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"`
	Compress   bool   `yaml:"compress"`
}

// LoggerConfig configures the zap-backed Logger.
type LoggerConfig struct {
	Active   bool             `yaml:"active"`
	Level    string           `yaml:"level"`
	Encoding string           `yaml:"encoding"`
	Mode     string           `yaml:"mode"`
	File     FileLoggerConfig `yaml:"file"`
}

// AdvertisementConfig carries the three advertisement tunables.
type AdvertisementConfig struct {
	IdealReach     int `yaml:"idealReach"`
	MinRouteLength int `yaml:"minRouteLength"`
	MaxRouteLength int `yaml:"maxRouteLength"`
}

// TracingConfig configures the OpenTelemetry tracer provider.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "otlp"
	Endpoint string `yaml:"endpoint"`
}

// TelemetryConfig groups the telemetry-related settings.
type TelemetryConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

// PersistenceConfig selects and configures the snapshot persistence
// adapter.
type PersistenceConfig struct {
	Kind string `yaml:"kind"` // "file" or "memory"
	Path string `yaml:"path"` // used when kind == "file"
}

// NodeConfig identifies the local node.
type NodeConfig struct {
	Id string `yaml:"id"`
}

// Config is the top-level node configuration.
type Config struct {
	Logger        LoggerConfig        `yaml:"logger"`
	Node          NodeConfig          `yaml:"node"`
	Advertisement AdvertisementConfig `yaml:"advertisement"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Persistence   PersistenceConfig   `yaml:"persistence"`
}

// Default returns the configuration with recommended default tunables
// (idealReach=100, minRouteLength=7, maxRouteLength=20) and a no-op
// logger/telemetry setup.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Active:   false,
			Level:    "info",
			Encoding: "console",
			Mode:     "stdout",
		},
		Advertisement: AdvertisementConfig{
			IdealReach:     100,
			MinRouteLength: 7,
			MaxRouteLength: 20,
		},
		Persistence: PersistenceConfig{
			Kind: "memory",
		},
	}
}

// LoadConfig loads the configuration from a YAML file at path, overlaid on
// Default() so omitted sections keep sane defaults instead of zero values.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides to the
// configuration, for deployment-time tuning without editing the YAML file.
//
// Supported overrides:
//
//	NODE_ID                          -> cfg.Node.Id
//	ADVERTISEMENT_IDEAL_REACH         -> cfg.Advertisement.IdealReach
//	ADVERTISEMENT_MIN_ROUTE_LENGTH    -> cfg.Advertisement.MinRouteLength
//	ADVERTISEMENT_MAX_ROUTE_LENGTH    -> cfg.Advertisement.MaxRouteLength
//	TELEMETRY_TRACE_ENABLED           -> cfg.Telemetry.Tracing.Enabled
//	TELEMETRY_TRACE_EXPORTER          -> cfg.Telemetry.Tracing.Exporter
//	TELEMETRY_TRACE_ENDPOINT          -> cfg.Telemetry.Tracing.Endpoint
//	LOGGER_ENABLED                    -> cfg.Logger.Active
//	LOGGER_LEVEL                      -> cfg.Logger.Level
//	LOGGER_ENCODING                   -> cfg.Logger.Encoding
//	LOGGER_MODE                       -> cfg.Logger.Mode
//	LOGGER_FILE_PATH                  -> cfg.Logger.File.Path
//	PERSISTENCE_KIND                  -> cfg.Persistence.Kind
//	PERSISTENCE_PATH                  -> cfg.Persistence.Path
func (cfg *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NODE_ID"); v != "" {
		cfg.Node.Id = v
	}
	if v := os.Getenv("ADVERTISEMENT_IDEAL_REACH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Advertisement.IdealReach = n
		}
	}
	if v := os.Getenv("ADVERTISEMENT_MIN_ROUTE_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Advertisement.MinRouteLength = n
		}
	}
	if v := os.Getenv("ADVERTISEMENT_MAX_ROUTE_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Advertisement.MaxRouteLength = n
		}
	}
	if v := os.Getenv("TELEMETRY_TRACE_ENABLED"); v != "" {
		cfg.Telemetry.Tracing.Enabled = parseBool(v)
	}
	if v := os.Getenv("TELEMETRY_TRACE_EXPORTER"); v != "" {
		cfg.Telemetry.Tracing.Exporter = v
	}
	if v := os.Getenv("TELEMETRY_TRACE_ENDPOINT"); v != "" {
		cfg.Telemetry.Tracing.Endpoint = v
	}
	if v := os.Getenv("LOGGER_ENABLED"); v != "" {
		cfg.Logger.Active = parseBool(v)
	}
	if v := os.Getenv("LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("LOGGER_ENCODING"); v != "" {
		cfg.Logger.Encoding = v
	}
	if v := os.Getenv("LOGGER_MODE"); v != "" {
		cfg.Logger.Mode = v
	}
	if v := os.Getenv("LOGGER_FILE_PATH"); v != "" {
		cfg.Logger.File.Path = v
	}
	if v := os.Getenv("PERSISTENCE_KIND"); v != "" {
		cfg.Persistence.Kind = v
	}
	if v := os.Getenv("PERSISTENCE_PATH"); v != "" {
		cfg.Persistence.Path = v
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(v)
	return v == "true" || v == "1" || v == "yes"
}

// ValidateConfig performs structural validation of the loaded
// configuration, accumulating every violation into a single error.
func (cfg *Config) ValidateConfig() error {
	var errs []string

	switch cfg.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.level: %s", cfg.Logger.Level))
	}
	switch cfg.Logger.Encoding {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.encoding: %s", cfg.Logger.Encoding))
	}
	switch cfg.Logger.Mode {
	case "stdout":
	case "file":
		if cfg.Logger.File.Path == "" {
			errs = append(errs, "logger.file.path is required when mode=file")
		}
		if cfg.Logger.File.MaxSize < 0 || cfg.Logger.File.MaxBackups < 0 || cfg.Logger.File.MaxAge < 0 {
			errs = append(errs, "logger.file.* values must be non-negative")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.mode: %s", cfg.Logger.Mode))
	}

	a := cfg.Advertisement
	if a.IdealReach <= 0 {
		errs = append(errs, "advertisement.idealReach must be > 0")
	}
	if a.MinRouteLength <= 0 {
		errs = append(errs, "advertisement.minRouteLength must be > 0")
	}
	if a.MaxRouteLength <= a.MinRouteLength {
		errs = append(errs, "advertisement.maxRouteLength must be > advertisement.minRouteLength")
	}

	if cfg.Telemetry.Tracing.Enabled {
		switch cfg.Telemetry.Tracing.Exporter {
		case "stdout", "otlp":
		default:
			errs = append(errs, fmt.Sprintf("invalid telemetry.tracing.exporter: %s", cfg.Telemetry.Tracing.Exporter))
		}
		if cfg.Telemetry.Tracing.Exporter == "otlp" && cfg.Telemetry.Tracing.Endpoint == "" {
			errs = append(errs, "telemetry.tracing.endpoint is required when exporter=otlp")
		}
	}

	switch cfg.Persistence.Kind {
	case "memory":
	case "file":
		if cfg.Persistence.Path == "" {
			errs = append(errs, "persistence.path is required when persistence.kind=file")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid persistence.kind: %s", cfg.Persistence.Kind))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// LogConfig prints the loaded configuration at DEBUG level, useful for
// verifying startup parameters.
func (cfg *Config) LogConfig(lgr logger.Logger) {
	lgr.Debug("loaded configuration",
		logger.F("logger.active", cfg.Logger.Active),
		logger.F("logger.level", cfg.Logger.Level),
		logger.F("logger.encoding", cfg.Logger.Encoding),
		logger.F("logger.mode", cfg.Logger.Mode),

		logger.F("advertisement.idealReach", cfg.Advertisement.IdealReach),
		logger.F("advertisement.minRouteLength", cfg.Advertisement.MinRouteLength),
		logger.F("advertisement.maxRouteLength", cfg.Advertisement.MaxRouteLength),

		logger.F("telemetry.tracing.enabled", cfg.Telemetry.Tracing.Enabled),
		logger.F("telemetry.tracing.exporter", cfg.Telemetry.Tracing.Exporter),
		logger.F("telemetry.tracing.endpoint", cfg.Telemetry.Tracing.Endpoint),

		logger.F("persistence.kind", cfg.Persistence.Kind),
		logger.F("persistence.path", cfg.Persistence.Path),

		logger.F("node.id", cfg.Node.Id),
	)
}
