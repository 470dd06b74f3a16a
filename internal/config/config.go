// Package config loads event-sync configuration from YAML with environment overrides.
package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Default configuration values.
const (
	defaultServiceName    = "event-sync"
	defaultServicePort    = 8095
	defaultVersion        = "0.1.0"
	defaultCronTimeout    = 300 * time.Second
	defaultLoggingLevel   = "info"
	defaultLoggingFmt     = "json"
	defaultDBHost         = "localhost"
	defaultDBPort         = 5432
	defaultDBName         = "events"
	defaultDBUser         = "postgres"
	defaultDBSSLMode      = "disable"
	defaultRedisAddress   = "localhost:6379"
	defaultSchedule       = "0 */6 * * *"
	defaultFeaturedRatio  = 0.1
	defaultEventTime      = "19:00:00"
	defaultBrowserDriver  = DriverChrome
	defaultNavTimeout     = 60 * time.Second
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultEventbriteURL  = "https://www.eventbriteapi.com/v3"
	defaultEventbriteRate = 2.0
	defaultRef            = "quantumevents"
	defaultUTMSource      = "quantumevents"
	defaultUTMMedium      = "listing"
	defaultUTMCampaign    = "organic_discovery"
)

// Browser drivers.
const (
	DriverChrome = "chrome"
	DriverStatic = "static"
)

// defaultCities is the sync order used when none are configured.
var defaultCities = []string{"mumbai", "bangalore", "pune", "hyderabad", "delhi", "chennai", "kolkata"}

// Config holds the application configuration.
type Config struct {
	Service        ServiceConfig        `yaml:"service"`
	Database       DatabaseConfig       `yaml:"database"`
	Redis          RedisConfig          `yaml:"redis"`
	Sync           SyncConfig           `yaml:"sync"`
	Browser        BrowserConfig        `yaml:"browser"`
	Sources        SourcesConfig        `yaml:"sources"`
	Attribution    AttributionConfig    `yaml:"attribution"`
	Classification ClassificationConfig `yaml:"classification"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name        string        `yaml:"name"`
	Version     string        `yaml:"version"`
	Port        int           `env:"EVENT_SYNC_PORT" yaml:"port"`
	Debug       bool          `env:"APP_DEBUG"       yaml:"debug"`
	JWTSecret   string        `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"`
	CronSecret  string        `env:"CRON_SECRET"     yaml:"cron_secret"`
	CronTimeout time.Duration `yaml:"cron_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string `env:"POSTGRES_EVENTS_HOST"     yaml:"host"`
	Port     int    `env:"POSTGRES_EVENTS_PORT"     yaml:"port"`
	User     string `env:"POSTGRES_EVENTS_USER"     yaml:"user"`
	Password string `env:"POSTGRES_EVENTS_PASSWORD" yaml:"password"`
	Database string `env:"POSTGRES_EVENTS_DB"       yaml:"database"`
	SSLMode  string `env:"POSTGRES_EVENTS_SSLMODE"  yaml:"sslmode"`
}

// DSN returns the lib/pq connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// URL returns the postgres:// form golang-migrate expects.
func (d *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// RedisConfig holds the status store connection. Redis is optional.
type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED"  yaml:"enabled"`
	Address  string `env:"REDIS_ADDRESS"  yaml:"address"`
	Password string `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int    `env:"REDIS_DB"       yaml:"db"`
}

// SyncConfig controls the sync cycle.
type SyncConfig struct {
	Cities           []string `env:"SYNC_CITIES"   yaml:"cities"`
	Schedule         string   `env:"SYNC_SCHEDULE" yaml:"schedule"`
	FeaturedRatio    float64  `yaml:"featured_ratio"`
	DefaultEventTime string   `yaml:"default_event_time"`
}

// BrowserConfig controls the page rendering session.
type BrowserConfig struct {
	Driver     string        `env:"BROWSER_DRIVER"    yaml:"driver"`
	UserAgent  string        `yaml:"user_agent"`
	NavTimeout time.Duration `yaml:"nav_timeout"`
	Headful    bool          `env:"BROWSER_HEADFUL"   yaml:"headful"`
	ExecPath   string        `env:"BROWSER_EXEC_PATH" yaml:"exec_path"`
}

// SourcesConfig selects adapters and holds source credentials.
type SourcesConfig struct {
	Enabled    []string         `env:"SYNC_SOURCES" yaml:"enabled"`
	Eventbrite EventbriteConfig `yaml:"eventbrite"`
}

// EventbriteConfig holds the structured API settings.
type EventbriteConfig struct {
	Token       string  `env:"EVENTBRITE_PRIVATE_TOKEN" yaml:"token"`
	AffiliateID string  `env:"EVENTBRITE_AFFILIATE_ID"  yaml:"affiliate_id"`
	APIURL      string  `yaml:"api_url"`
	RatePerSec  float64 `yaml:"rate_per_sec"`
}

// AttributionConfig holds the tracking parameter values.
type AttributionConfig struct {
	Ref         string `yaml:"ref"`
	UTMSource   string `yaml:"utm_source"`
	UTMMedium   string `yaml:"utm_medium"`
	UTMCampaign string `yaml:"utm_campaign"`
}

// ClassificationConfig points at an optional keyword tables file.
type ClassificationConfig struct {
	KeywordsFile string `env:"CLASSIFICATION_KEYWORDS_FILE" yaml:"keywords_file"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from the specified path.
func Load(path string) (*Config, error) {
	return loadFile[Config](path, setDefaults)
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	setRedisDefaults(&cfg.Redis)
	setSyncDefaults(&cfg.Sync)
	setBrowserDefaults(&cfg.Browser)
	setSourcesDefaults(&cfg.Sources)
	setAttributionDefaults(&cfg.Attribution)
	setLoggingDefaults(&cfg.Logging)
}

func setServiceDefaults(svc *ServiceConfig) {
	if svc.Name == "" {
		svc.Name = defaultServiceName
	}
	if svc.Version == "" {
		svc.Version = defaultVersion
	}
	if svc.Port == 0 {
		svc.Port = defaultServicePort
	}
	if svc.CronTimeout == 0 {
		svc.CronTimeout = defaultCronTimeout
	}
}

func setDatabaseDefaults(db *DatabaseConfig) {
	if db.Host == "" {
		db.Host = defaultDBHost
	}
	if db.Port == 0 {
		db.Port = defaultDBPort
	}
	if db.User == "" {
		db.User = defaultDBUser
	}
	if db.Database == "" {
		db.Database = defaultDBName
	}
	if db.SSLMode == "" {
		db.SSLMode = defaultDBSSLMode
	}
}

func setRedisDefaults(r *RedisConfig) {
	if r.Address == "" {
		r.Address = defaultRedisAddress
	}
}

func setSyncDefaults(s *SyncConfig) {
	if len(s.Cities) == 0 {
		s.Cities = append([]string(nil), defaultCities...)
	}
	if s.Schedule == "" {
		s.Schedule = defaultSchedule
	}
	if s.FeaturedRatio == 0 {
		s.FeaturedRatio = defaultFeaturedRatio
	}
	if s.DefaultEventTime == "" {
		s.DefaultEventTime = defaultEventTime
	}
}

func setBrowserDefaults(b *BrowserConfig) {
	if b.Driver == "" {
		b.Driver = defaultBrowserDriver
	}
	if b.UserAgent == "" {
		b.UserAgent = defaultUserAgent
	}
	if b.NavTimeout == 0 {
		b.NavTimeout = defaultNavTimeout
	}
}

func setSourcesDefaults(s *SourcesConfig) {
	if s.Eventbrite.APIURL == "" {
		s.Eventbrite.APIURL = defaultEventbriteURL
	}
	if s.Eventbrite.RatePerSec == 0 {
		s.Eventbrite.RatePerSec = defaultEventbriteRate
	}
}

func setAttributionDefaults(a *AttributionConfig) {
	if a.Ref == "" {
		a.Ref = defaultRef
	}
	if a.UTMSource == "" {
		a.UTMSource = defaultUTMSource
	}
	if a.UTMMedium == "" {
		a.UTMMedium = defaultUTMMedium
	}
	if a.UTMCampaign == "" {
		a.UTMCampaign = defaultUTMCampaign
	}
}

func setLoggingDefaults(log *LoggingConfig) {
	if log.Level == "" {
		log.Level = defaultLoggingLevel
	}
	if log.Format == "" {
		log.Format = defaultLoggingFmt
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := ValidatePort("service.port", c.Service.Port); err != nil {
		return err
	}
	if c.Service.CronSecret == "" {
		return &ValidationError{Field: "service.cron_secret", Message: "is required"}
	}
	if c.Browser.Driver != DriverChrome && c.Browser.Driver != DriverStatic {
		return &ValidationError{Field: "browser.driver", Message: "must be one of: chrome, static"}
	}
	if c.Sync.FeaturedRatio < 0 || c.Sync.FeaturedRatio > 1 {
		return &ValidationError{Field: "sync.featured_ratio", Message: "must be between 0 and 1"}
	}
	if _, err := cron.ParseStandard(c.Sync.Schedule); err != nil {
		return &ValidationError{Field: "sync.schedule", Message: fmt.Sprintf("invalid cron expression: %v", err)}
	}
	return nil
}
