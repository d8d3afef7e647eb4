package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/gigmarket/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "gigmarket.json"

	// DefaultPort is the default listen port.
	DefaultPort = 8080

	// DefaultHost is the default listen host.
	DefaultHost = "localhost"

	// DefaultMaxStarred is the default limit of starred documents.
	DefaultMaxStarred = 3

	// DefaultPageSize is the default number of rows per table page.
	DefaultPageSize = 10
)

// Upload backends.
const (
	UploadDisk  = "disk"
	UploadS3    = "s3"
	UploadMinio = "minio"
)

// Config represents the complete gigmarket.json configuration.
type Config struct {
	// Name is the deployment name shown in logs and metrics labels.
	Name string `json:"name,omitempty"`

	Server  ServerConfig  `json:"server,omitempty"`
	Backend BackendConfig `json:"backend,omitempty"`
	Session SessionConfig `json:"session,omitempty"`
	Upload  UploadConfig  `json:"upload,omitempty"`
	Search  SearchConfig  `json:"search,omitempty"`
	Log     LogConfig     `json:"log,omitempty"`
	Metrics MetricsConfig `json:"metrics,omitempty"`
	Views   ViewsConfig   `json:"views,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "10s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`

	// AllowedOrigins lists origins accepted for WebSocket upgrades.
	// Empty means same-origin only.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`

	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For header
	// is believed when limiting sessions per client.
	TrustedProxies []string `json:"trustedProxies,omitempty"`
}

// BackendConfig describes the marketplace REST backend.
type BackendConfig struct {
	URL string `json:"url,omitempty"`

	// Timeout is the HTTP client timeout. Empty or "0" means no client-side
	// timeout.
	Timeout string `json:"timeout,omitempty"`
}

// SessionConfig contains UI session settings.
type SessionConfig struct {
	// RedisURL enables resumable sessions when set.
	RedisURL string `json:"redisUrl,omitempty"`

	// ResumeWindow is how long a disconnected session can be resumed.
	ResumeWindow string `json:"resumeWindow,omitempty"`

	// HeartbeatInterval is the time between WebSocket pings.
	HeartbeatInterval string `json:"heartbeatInterval,omitempty"`
}

// UploadConfig selects and configures the image hosting backend.
type UploadConfig struct {
	Backend string `json:"backend,omitempty"`

	// Dir is the local directory for the disk backend.
	Dir string `json:"dir,omitempty"`

	Bucket    string `json:"bucket,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	Region    string `json:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	AccessKey string `json:"accessKey,omitempty"`
	SecretKey string `json:"secretKey,omitempty"`
	UseSSL    bool   `json:"useSSL,omitempty"`

	// PublicURL is the base URL images are served from.
	PublicURL string `json:"publicUrl,omitempty"`

	// MaxSize is the maximum upload size in bytes.
	MaxSize int64 `json:"maxSize,omitempty"`
}

// SearchConfig points at the listing search engine.
type SearchConfig struct {
	URL    string `json:"url,omitempty"`
	APIKey string `json:"apiKey,omitempty"`
	Index  string `json:"index,omitempty"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// ViewsConfig holds business limits used by the views.
type ViewsConfig struct {
	MaxStarred int `json:"maxStarred,omitempty"`
	PageSize   int `json:"pageSize,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{
		Name: "gigmarket",
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from the specified directory.
// It looks for gigmarket.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path and applies
// environment overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E101").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Run 'gigmarket config init' to create one")
		}
		return nil, errors.New("E102").Wrap(err)
	}

	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E102").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyEnv()
	cfg.applyDefaults()

	return cfg, nil
}

// LoadOrDefault loads the config from dir, falling back to defaults plus
// environment overrides when no file exists.
func LoadOrDefault(dir string) (*Config, error) {
	if !Exists(dir) {
		cfg := &Config{Name: "gigmarket", Metrics: MetricsConfig{Enabled: true}}
		cfg.applyEnv()
		cfg.applyDefaults()
		return cfg, nil
	}
	return Load(dir)
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E102").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E102").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() {
	c.Server.Host = getenv("GIGMARKET_HOST", c.Server.Host)
	c.Server.Port = getenvInt("GIGMARKET_PORT", c.Server.Port)
	c.Backend.URL = getenv("GIGMARKET_API_URL", c.Backend.URL)
	c.Log.Level = getenv("GIGMARKET_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getenv("GIGMARKET_LOG_FORMAT", c.Log.Format)
	c.Session.RedisURL = getenv("REDIS_URL", c.Session.RedisURL)
	c.Search.URL = getenv("MEILI_URL", c.Search.URL)
	c.Search.APIKey = getenv("MEILI_API_KEY", c.Search.APIKey)
	c.Upload.Backend = getenv("UPLOAD_BACKEND", c.Upload.Backend)

	switch c.Upload.Backend {
	case UploadMinio:
		c.Upload.Endpoint = getenv("MINIO_ENDPOINT", c.Upload.Endpoint)
		c.Upload.AccessKey = getenv("MINIO_ACCESS_KEY", c.Upload.AccessKey)
		c.Upload.SecretKey = getenv("MINIO_SECRET_KEY", c.Upload.SecretKey)
	case UploadS3:
		c.Upload.Bucket = getenv("S3_BUCKET", c.Upload.Bucket)
		c.Upload.Region = getenv("S3_REGION", c.Upload.Region)
		c.Upload.Endpoint = getenv("S3_ENDPOINT", c.Upload.Endpoint)
		c.Upload.AccessKey = getenv("S3_ACCESS_KEY", c.Upload.AccessKey)
		c.Upload.SecretKey = getenv("S3_SECRET_KEY", c.Upload.SecretKey)
	}
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "gigmarket"
	}

	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}

	if c.Session.ResumeWindow == "" {
		c.Session.ResumeWindow = "30s"
	}
	if c.Session.HeartbeatInterval == "" {
		c.Session.HeartbeatInterval = "30s"
	}

	if c.Upload.Backend == "" {
		c.Upload.Backend = UploadDisk
	}
	if c.Upload.Dir == "" {
		c.Upload.Dir = "data/uploads"
	}
	if c.Upload.Prefix == "" {
		c.Upload.Prefix = "avatars/"
	}
	if c.Upload.Region == "" {
		c.Upload.Region = "us-east-1"
	}
	if c.Upload.MaxSize == 0 {
		c.Upload.MaxSize = 5 << 20
	}

	if c.Search.Index == "" {
		c.Search.Index = "gigmarket_listings"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "gigmarket"
	}

	if c.Views.MaxStarred == 0 {
		c.Views.MaxStarred = DefaultMaxStarred
	}
	if c.Views.PageSize == 0 {
		c.Views.PageSize = DefaultPageSize
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E103").
			WithDetail("Port must be between 0 and 65535, got " + strconv.Itoa(c.Server.Port))
	}
	if strings.TrimSpace(c.Backend.URL) == "" {
		return errors.New("E104").
			WithSuggestion("Set backend.url in " + ConfigFileName + " or GIGMARKET_API_URL")
	}
	switch c.Upload.Backend {
	case UploadDisk, UploadS3, UploadMinio:
	default:
		return errors.New("E105").
			WithDetail("Got upload backend " + strconv.Quote(c.Upload.Backend))
	}
	for _, d := range []string{c.Server.ShutdownTimeout, c.Backend.Timeout, c.Session.ResumeWindow, c.Session.HeartbeatInterval} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return errors.New("E102").WithDetail("Invalid duration " + strconv.Quote(d))
		}
	}
	return nil
}

// Address returns the listen address.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// ShutdownTimeout returns the parsed graceful shutdown timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

// BackendTimeout returns the parsed backend client timeout; zero means none.
func (c *Config) BackendTimeout() time.Duration {
	return parseDuration(c.Backend.Timeout, 0)
}

// ResumeWindow returns the parsed session resume window.
func (c *Config) ResumeWindow() time.Duration {
	return parseDuration(c.Session.ResumeWindow, 30*time.Second)
}

// HeartbeatInterval returns the parsed WebSocket heartbeat interval.
func (c *Config) HeartbeatInterval() time.Duration {
	return parseDuration(c.Session.HeartbeatInterval, 30*time.Second)
}

// Exists reports whether a config file exists in dir.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
