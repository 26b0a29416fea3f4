// Package config loads runtime settings from defaults, an optional config
// file and the environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"go.ngs.io/climate-indices/internal/domain"
	"go.ngs.io/climate-indices/internal/index"
)

// EnvPrefix prefixes every environment variable, e.g. CLIMIDX_LOG_LEVEL or
// CLIMIDX_CLICKHOUSE_ADDR.
const EnvPrefix = "CLIMIDX"

// Reader names.
const (
	ReaderNetCDF = "netcdf"
	ReaderNative = "native"
)

// ClickHouse holds the optional result sink settings.
type ClickHouse struct {
	Enabled  bool
	Addr     string
	Database string
	Table    string
	Username string
	Password string
}

// Config is the resolved runtime configuration.
type Config struct {
	LogLevel           string
	LogFormat          string
	DataDir            string
	Port               string
	Reader             string
	Engine             index.Engine
	Timescale          domain.CalendarUnits
	CDOCommand         string
	BaseStart          string
	BaseEnd            string
	Concurrency        int
	CORSAllowedOrigins []string
	ClickHouse         ClickHouse
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("port", "8080")
	v.SetDefault("reader", ReaderNetCDF)
	v.SetDefault("engine", string(index.EngineNative))
	v.SetDefault("timescale", "")
	v.SetDefault("cdo.command", "cdo")
	v.SetDefault("base.start", "1981-01-01")
	v.SetDefault("base.end", "2010-12-31")
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("cors_allowed_origins", "")
	v.SetDefault("clickhouse.enabled", false)
	v.SetDefault("clickhouse.addr", "localhost:9000")
	v.SetDefault("clickhouse.database", "climate")
	v.SetDefault("clickhouse.table", "indices")
	v.SetDefault("clickhouse.username", "default")
	v.SetDefault("clickhouse.password", "")

	// Unprefixed names kept for existing deployments.
	_ = v.BindEnv("port", EnvPrefix+"_PORT", "PORT")
	_ = v.BindEnv("data_dir", EnvPrefix+"_DATA_DIR", "DATA_DIR")
	_ = v.BindEnv("cors_allowed_origins", EnvPrefix+"_CORS_ALLOWED_ORIGINS", "CORS_ALLOWED_ORIGINS")
	return v
}

// Load reads the optional config file and resolves the configuration.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read configuration file %s: %w", file, err)
		}
	}

	engine, err := index.ParseEngine(v.GetString("engine"))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	// Empty leaves detection to each input's time axis.
	var timescale domain.CalendarUnits
	if s := v.GetString("timescale"); s != "" {
		if timescale, err = domain.ParseCalendarUnits(s); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	cfg := &Config{
		LogLevel:    v.GetString("log_level"),
		LogFormat:   v.GetString("log_format"),
		DataDir:     v.GetString("data_dir"),
		Port:        v.GetString("port"),
		Reader:      strings.ToLower(v.GetString("reader")),
		Engine:      engine,
		Timescale:   timescale,
		CDOCommand:  v.GetString("cdo.command"),
		BaseStart:   v.GetString("base.start"),
		BaseEnd:     v.GetString("base.end"),
		Concurrency: v.GetInt("batch.concurrency"),
		ClickHouse: ClickHouse{
			Enabled:  v.GetBool("clickhouse.enabled"),
			Addr:     v.GetString("clickhouse.addr"),
			Database: v.GetString("clickhouse.database"),
			Table:    v.GetString("clickhouse.table"),
			Username: v.GetString("clickhouse.username"),
			Password: v.GetString("clickhouse.password"),
		},
	}
	for _, origin := range strings.Split(v.GetString("cors_allowed_origins"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	switch c.Reader {
	case ReaderNetCDF, ReaderNative:
	default:
		return fmt.Errorf("reader must be %s or %s, got %q", ReaderNetCDF, ReaderNative, c.Reader)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be at least 1, got %d", c.Concurrency)
	}
	if _, err := c.BasePeriod(); err != nil {
		return err
	}
	if c.ClickHouse.Enabled && (c.ClickHouse.Addr == "" || c.ClickHouse.Table == "") {
		return fmt.Errorf("clickhouse.addr and clickhouse.table are required when clickhouse.enabled is set")
	}
	return nil
}

// BasePeriod returns the default climatology base period.
func (c *Config) BasePeriod() (domain.TimeRange, error) {
	return domain.ParseTimeRange(c.BaseStart, c.BaseEnd)
}

// Logger builds the process logger.
func (c *Config) Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
