// ABOUTME: Configuration loading for the pngdb binaries
// ABOUTME: YAML or TOML files with environment variable expansion, defaults and validation

package config

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "PNGDB_CONFIG"

// Storage modes.
const (
	StorageLocal  = "local"
	StorageMemory = "memory"
	StorageS3     = "s3"
)

// Config represents the complete pngdb configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Storage  StorageConfig  `yaml:"storage" toml:"storage"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr" toml:"http_addr"`
	ReadTimeout     time.Duration `yaml:"-" toml:"-"`
	WriteTimeout    time.Duration `yaml:"-" toml:"-"`
	ReadTimeoutRaw  string        `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeoutRaw string        `yaml:"write_timeout" toml:"write_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" toml:"max_upload_bytes"`
	AllowOrigins    []string      `yaml:"allow_origins" toml:"allow_origins"`
}

// StorageConfig selects where exported PNG files are kept
type StorageConfig struct {
	Mode string   `yaml:"mode" toml:"mode"`
	Path string   `yaml:"path" toml:"path"`
	S3   S3Config `yaml:"s3" toml:"s3"`
}

// S3Config holds the settings of the S3 storage mode
type S3Config struct {
	Endpoint        string `yaml:"endpoint" toml:"endpoint"`
	Region          string `yaml:"region" toml:"region"`
	Bucket          string `yaml:"bucket" toml:"bucket"`
	Prefix          string `yaml:"prefix" toml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id" toml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" toml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style" toml:"use_path_style"`
}

// DatabaseConfig holds defaults for new databases
type DatabaseConfig struct {
	DefaultWidth  uint32 `yaml:"default_width" toml:"default_width"`
	DefaultHeight uint32 `yaml:"default_height" toml:"default_height"`
	// Compression is one of default, none, speed or best.
	Compression string `yaml:"compression" toml:"compression"`
	// MaxPixels bounds created and imported images. It must be positive.
	MaxPixels uint64 `yaml:"max_pixels" toml:"max_pixels"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:       ":8080",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxUploadBytes: 32 << 20,
		},
		Storage: StorageConfig{
			Mode: StorageLocal,
			Path: "data",
		},
		Database: DatabaseConfig{
			DefaultWidth:  256,
			DefaultHeight: 256,
			Compression:   "default",
			MaxPixels:     4096 * 4096,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Path returns the config file to load: the PNGDB_CONFIG environment
// variable wins over flagValue. An empty result means defaults only.
func Path(flagValue string) string {
	if envPath := os.Getenv(EnvPath); envPath != "" {
		return envPath
	}
	return flagValue
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are TOML, everything else YAML. Values missing from
// the file keep their defaults. An empty path returns the defaults.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}

	switch c.Storage.Mode {
	case StorageLocal:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for local storage")
		}
	case StorageMemory:
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for s3 storage")
		}
		if c.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required for s3 storage")
		}
	default:
		return fmt.Errorf("storage.mode %q is not one of local, memory, s3", c.Storage.Mode)
	}

	if c.Database.DefaultWidth == 0 || c.Database.DefaultHeight == 0 {
		return fmt.Errorf("database.default_width and default_height must be positive")
	}
	if c.Database.MaxPixels == 0 {
		return fmt.Errorf("database.max_pixels must be positive")
	}
	if _, err := c.Database.CompressionLevel(); err != nil {
		return err
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not text or json", c.Logging.Format)
	}

	return nil
}

// CompressionLevel maps the configured name to a png.CompressionLevel.
func (d DatabaseConfig) CompressionLevel() (png.CompressionLevel, error) {
	switch strings.ToLower(d.Compression) {
	case "", "default":
		return png.DefaultCompression, nil
	case "none":
		return png.NoCompression, nil
	case "speed":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	}
	return 0, fmt.Errorf("database.compression %q is not one of default, none, speed, best", d.Compression)
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Server.ReadTimeoutRaw != "" {
		cfg.Server.ReadTimeout, err = time.ParseDuration(cfg.Server.ReadTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing read_timeout %q: %w", cfg.Server.ReadTimeoutRaw, err)
		}
	}

	if cfg.Server.WriteTimeoutRaw != "" {
		cfg.Server.WriteTimeout, err = time.ParseDuration(cfg.Server.WriteTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing write_timeout %q: %w", cfg.Server.WriteTimeoutRaw, err)
		}
	}

	return nil
}
