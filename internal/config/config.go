package config

import (
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Data sources the server can load the trip table from
const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
)

// Config 应用配置
type Config struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	DataPath          string        `yaml:"data_path"`   // 清洗后的 CSV
	DataSource        string        `yaml:"data_source"` // csv | sqlite
	DBPath            string        `yaml:"db_path"`     // SQLite 快照
	JWTSecret         string        `yaml:"jwt_secret"`  // 为空时不开放管理接口
	TopStations       int           `yaml:"top_stations"`
	StationLabelWidth int           `yaml:"station_label_width"`
	WatchData         bool          `yaml:"watch_data"`
	RateLimit         int           `yaml:"rate_limit"` // 每个 IP 每分钟请求数, 0 表示不限
	RateWindow        time.Duration `yaml:"rate_window"`
	GinMode           string        `yaml:"gin_mode"`
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// AdminEnabled reports whether admin endpoints are exposed
func (c *Config) AdminEnabled() bool {
	return c.JWTSecret != ""
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Host:              "127.0.0.1",
		Port:              8055,
		DataPath:          "./data/processed/fordgobike_cleaned.csv",
		DataSource:        SourceCSV,
		DBPath:            "./data/processed/trips.db",
		TopStations:       8,
		StationLabelWidth: 30,
		RateLimit:         120,
		RateWindow:        time.Minute,
		GinMode:           "release",
	}
}

// Load 加载配置: 默认值 < YAML 文件 (CONFIG_PATH) < .env / 环境变量
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[Config] No .env file found, using environment variables")
	}

	cfg := Default()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		log.Printf("[Config] Loaded config from %s", path)
	}

	envOverride(&cfg.Host, "HOST")
	envOverride(&cfg.DataPath, "DATA_PATH")
	envOverride(&cfg.DataSource, "DATA_SOURCE")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.JWTSecret, "JWT_SECRET")
	envOverride(&cfg.GinMode, "GIN_MODE")
	if err := envOverrideInt(&cfg.Port, "PORT"); err != nil {
		return nil, err
	}
	if err := envOverrideInt(&cfg.TopStations, "TOP_STATIONS"); err != nil {
		return nil, err
	}
	if err := envOverrideInt(&cfg.StationLabelWidth, "STATION_LABEL_WIDTH"); err != nil {
		return nil, err
	}
	if err := envOverrideInt(&cfg.RateLimit, "RATE_LIMIT"); err != nil {
		return nil, err
	}
	if err := envOverrideBool(&cfg.WatchData, "WATCH_DATA"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	c.DataSource = strings.ToLower(c.DataSource)
	if c.DataSource != SourceCSV && c.DataSource != SourceSQLite {
		return fmt.Errorf("invalid DATA_SOURCE %q (want csv or sqlite)", c.DataSource)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.TopStations <= 0 {
		return fmt.Errorf("TOP_STATIONS must be positive, got %d", c.TopStations)
	}
	if c.StationLabelWidth <= 0 {
		return fmt.Errorf("STATION_LABEL_WIDTH must be positive, got %d", c.StationLabelWidth)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("RATE_LIMIT must not be negative, got %d", c.RateLimit)
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid GIN_MODE %q", c.GinMode)
	}
	if c.RateWindow <= 0 {
		c.RateWindow = time.Minute
	}
	return nil
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func envOverrideBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = b
	return nil
}
