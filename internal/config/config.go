// ABOUTME: Configuration loading and parsing for orizon-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Default TTLs and timeouts applied when the config file leaves them unset.
const (
	DefaultMagicLinkTTL     = 15 * time.Minute
	DefaultSessionTTL       = 24 * time.Hour
	DefaultAuthorityTimeout = 10 * time.Second
	DefaultRedisTimeout     = 5 * time.Second
	DefaultCookieName       = "orizon_session"
	DefaultCookiePath       = "/"
)

// Config represents the complete orizon-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Authority AuthorityConfig `yaml:"authority"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// AuthorityConfig holds the connection settings for the credential authority
// (the downstream LiteLLM-compatible API that owns users and virtual keys).
type AuthorityConfig struct {
	BaseURL   string `yaml:"base_url"`
	MasterKey string `yaml:"master_key"`

	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// RedisConfig holds the key-value store connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	Timeout time.Duration `yaml:"-"`

	TimeoutRaw string `yaml:"timeout"`
}

// AuthConfig holds token, session, and cookie configuration
type AuthConfig struct {
	// BaseURL is the external URL of the gateway, used to build magic links
	BaseURL       string `yaml:"base_url"`
	CookieName    string `yaml:"cookie_name"`
	CookiePath    string `yaml:"cookie_path"`
	SecureCookies bool   `yaml:"secure_cookies"`

	MagicLinkTTL time.Duration `yaml:"-"`
	SessionTTL   time.Duration `yaml:"-"`

	MagicLinkTTLRaw string `yaml:"magic_link_ttl"`
	SessionTTLRaw   string `yaml:"session_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Authority.BaseURL == "" {
		return fmt.Errorf("authority.base_url is required")
	}

	if c.Authority.MasterKey == "" {
		return fmt.Errorf("authority.master_key is required")
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}

	return nil
}

// applyDefaults fills in defaults for optional fields left unset
func (c *Config) applyDefaults() {
	if c.Auth.MagicLinkTTL == 0 {
		c.Auth.MagicLinkTTL = DefaultMagicLinkTTL
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = DefaultSessionTTL
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = DefaultCookieName
	}
	if c.Auth.CookiePath == "" {
		c.Auth.CookiePath = DefaultCookiePath
	}
	if c.Authority.Timeout == 0 {
		c.Authority.Timeout = DefaultAuthorityTimeout
	}
	if c.Redis.Timeout == 0 {
		c.Redis.Timeout = DefaultRedisTimeout
	}
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Auth.MagicLinkTTLRaw != "" {
		cfg.Auth.MagicLinkTTL, err = time.ParseDuration(cfg.Auth.MagicLinkTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing magic_link_ttl %q: %w", cfg.Auth.MagicLinkTTLRaw, err)
		}
	}

	if cfg.Auth.SessionTTLRaw != "" {
		cfg.Auth.SessionTTL, err = time.ParseDuration(cfg.Auth.SessionTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing session_ttl %q: %w", cfg.Auth.SessionTTLRaw, err)
		}
	}

	if cfg.Authority.TimeoutRaw != "" {
		cfg.Authority.Timeout, err = time.ParseDuration(cfg.Authority.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing authority timeout %q: %w", cfg.Authority.TimeoutRaw, err)
		}
	}

	if cfg.Redis.TimeoutRaw != "" {
		cfg.Redis.Timeout, err = time.ParseDuration(cfg.Redis.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing redis timeout %q: %w", cfg.Redis.TimeoutRaw, err)
		}
	}

	return nil
}
