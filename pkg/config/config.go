package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvProduction = "production"

	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"
)

// Config holds all configuration options for the media scraper
type Config struct {
	App      AppConfig      `yaml:"app" json:"app"`
	Redis    RedisConfig    `yaml:"redis" json:"redis"`
	Store    StoreConfig    `yaml:"store" json:"store"`
	HTTP     HTTPConfig     `yaml:"http" json:"http"`
	Schedule ScheduleConfig `yaml:"schedule" json:"schedule"`
	Throttle ThrottleConfig `yaml:"throttle" json:"throttle"`
	Sources  SourcesConfig  `yaml:"sources" json:"sources"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Environment string `yaml:"environment" json:"environment"`
	// Namespace prefixes every store key as "<namespace>:<key>"
	Namespace string `yaml:"namespace" json:"namespace"`
}

// IsProduction reports whether the app runs in the production environment
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Environment, EnvProduction)
}

// RedisConfig holds Redis connection settings. URL wins over Host/Port.
type RedisConfig struct {
	URL      string `yaml:"url" json:"url"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Password string `yaml:"password" json:"-"`
	DB       int    `yaml:"db" json:"db"`
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// StoreConfig selects the store backend
type StoreConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	// Tags seeds the tag set of the memory driver
	Tags []string `yaml:"tags" json:"tags"`
}

// HTTPConfig holds outbound HTTP settings
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	ProxyURL          string        `yaml:"proxy_url" json:"proxy_url"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int           `yaml:"burst" json:"burst"`
}

// ScheduleConfig holds the interval trigger settings
type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval" json:"interval"`
	Timezone string        `yaml:"timezone" json:"timezone"`
}

// ThrottleConfig is the [MinDelay, MaxDelay) jitter window between tags
type ThrottleConfig struct {
	MinDelay time.Duration `yaml:"min_delay" json:"min_delay"`
	MaxDelay time.Duration `yaml:"max_delay" json:"max_delay"`
}

// SourcesConfig holds per-platform settings
type SourcesConfig struct {
	Reddit  RedditConfig  `yaml:"reddit" json:"reddit"`
	NineGag NineGagConfig `yaml:"ninegag" json:"ninegag"`
	Imgur   ImgurConfig   `yaml:"imgur" json:"imgur"`
}

// RedditConfig configures the old Reddit HTML source
type RedditConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	BaseURL string `yaml:"base_url" json:"base_url"`
}

// NineGagConfig configures the 9GAG tag feed source
type NineGagConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	BaseURL  string `yaml:"base_url" json:"base_url"`
	MinPosts int    `yaml:"min_posts" json:"min_posts"`
	MaxPages int    `yaml:"max_pages" json:"max_pages"`
}

// ImgurConfig configures the Imgur tag-post source
type ImgurConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	BaseURL  string `yaml:"base_url" json:"base_url"`
	ClientID string `yaml:"client_id" json:"client_id"`
	Window   string `yaml:"window" json:"window"`
	Sort     string `yaml:"sort" json:"sort"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Environment: "development",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Store: StoreConfig{
			Driver: StoreDriverRedis,
		},
		HTTP: HTTPConfig{
			Timeout:           30 * time.Second,
			UserAgent:         "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/111.0",
			RequestsPerSecond: 2,
			Burst:             1,
		},
		Schedule: ScheduleConfig{
			Interval: 30 * time.Minute,
			Timezone: "UTC",
		},
		Throttle: ThrottleConfig{
			MinDelay: 1000 * time.Millisecond,
			MaxDelay: 2000 * time.Millisecond,
		},
		Sources: SourcesConfig{
			Reddit: RedditConfig{
				Enabled: true,
				BaseURL: "https://old.reddit.com",
			},
			NineGag: NineGagConfig{
				Enabled:  true,
				BaseURL:  "https://9gag.com",
				MinPosts: 25,
				MaxPages: 10,
			},
			Imgur: ImgurConfig{
				Enabled:  true,
				BaseURL:  "https://api.imgur.com",
				ClientID: "546c25a59c58ad7",
				Window:   "week",
				Sort:     "-viral",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if env := os.Getenv("MEDIASCRAPER_ENV"); env != "" {
		c.App.Environment = env
	}
	if ns, ok := os.LookupEnv("REDIS_NAMESPACE"); ok {
		c.App.Namespace = ns
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		c.Redis.Host = host
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		val, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid REDIS_PORT %q: %w", port, err)
		}
		c.Redis.Port = val
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		val, err := strconv.Atoi(db)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB %q: %w", db, err)
		}
		c.Redis.DB = val
	}
	password, err := readEnvOrFile("REDIS_PASSWORD")
	if err != nil {
		return err
	}
	if password != "" {
		c.Redis.Password = password
	}

	if proxyURL := os.Getenv("SOCKS_PROXY_URL"); proxyURL != "" {
		c.HTTP.ProxyURL = proxyURL
	}

	if driver := os.Getenv("MEDIASCRAPER_STORE"); driver != "" {
		c.Store.Driver = strings.ToLower(driver)
	}
	if tags := os.Getenv("MEDIASCRAPER_TAGS"); tags != "" {
		c.Store.Tags = splitList(tags)
	}

	if logLevel := os.Getenv("MEDIASCRAPER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// readEnvOrFile returns the contents of the file named by NAME_FILE when set,
// otherwise the value of NAME.
func readEnvOrFile(name string) (string, error) {
	if path := os.Getenv(name + "_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s_FILE: %w", name, err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
	return os.Getenv(name), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	c.Store.Driver = strings.ToLower(c.Store.Driver)

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".mediascraper.yaml",
		".mediascraper.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "mediascraper", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "mediascraper", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Store.Driver) {
	case StoreDriverRedis:
		if c.Redis.URL == "" && c.Redis.Host == "" {
			errs = append(errs, errors.New("redis url or host is required"))
		}
		if c.Redis.URL == "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
			errs = append(errs, errors.New("redis port must be between 1 and 65535"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}

	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("http timeout must be positive"))
	}
	if c.HTTP.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("requests per second cannot be negative"))
	}

	if c.Schedule.Interval <= 0 {
		errs = append(errs, errors.New("schedule interval must be positive"))
	}

	if c.Throttle.MinDelay < 0 {
		errs = append(errs, errors.New("throttle min delay cannot be negative"))
	}
	if c.Throttle.MaxDelay < c.Throttle.MinDelay {
		errs = append(errs, errors.New("throttle max delay must not be below min delay"))
	}

	if c.Sources.NineGag.Enabled {
		if c.Sources.NineGag.MinPosts <= 0 {
			errs = append(errs, errors.New("ninegag min posts must be positive"))
		}
		if c.Sources.NineGag.MaxPages <= 0 {
			errs = append(errs, errors.New("ninegag max pages must be positive"))
		}
	}
	if c.Sources.Imgur.Enabled && c.Sources.Imgur.ClientID == "" {
		errs = append(errs, errors.New("imgur client id is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, errors.New("invalid log format"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if env, ok := flags["env"].(string); ok && env != "" {
		c.App.Environment = env
	}
	if driver, ok := flags["store"].(string); ok && driver != "" {
		c.Store.Driver = strings.ToLower(driver)
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
