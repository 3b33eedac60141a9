package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FOLDERVAULT_SERVER_PORT.
const EnvPrefix = "FOLDERVAULT"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"   yaml:"server"`
	Log      LogConfig      `mapstructure:"log"      yaml:"log"`
	Metadata MetadataConfig `mapstructure:"metadata" yaml:"metadata"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Upload   UploadConfig   `mapstructure:"upload"   yaml:"upload"`
	Auth     AuthConfig     `mapstructure:"auth"     yaml:"auth"`
	Progress ProgressConfig `mapstructure:"progress" yaml:"progress"`
}

type ServerConfig struct {
	Port            string   `mapstructure:"port"             yaml:"port"             validate:"required,numeric"`
	Environment     string   `mapstructure:"environment"      yaml:"environment"      validate:"oneof=dev test prod"`
	CORSOrigins     []string `mapstructure:"cors_origins"     yaml:"cors_origins"`
	ShutdownTimeout string   `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required"`
}

type MetadataConfig struct {
	Driver   string         `mapstructure:"driver"   yaml:"driver"   validate:"oneof=postgres sqlite memory"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"   yaml:"sqlite"`
	Cache    CacheConfig    `mapstructure:"cache"    yaml:"cache"`
}

type PostgresConfig struct {
	URL         string `mapstructure:"url"          yaml:"url"`
	TablePrefix string `mapstructure:"table_prefix" yaml:"table_prefix"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// CacheConfig sizes the folder lookup cache. Size 0 disables it.
type CacheConfig struct {
	Size int    `mapstructure:"size" yaml:"size" validate:"gte=0"`
	TTL  string `mapstructure:"ttl"  yaml:"ttl"`
}

type StorageConfig struct {
	Driver string         `mapstructure:"driver" yaml:"driver" validate:"oneof=fs s3"`
	FS     FSConfig       `mapstructure:"fs"     yaml:"fs"`
	S3     map[string]any `mapstructure:"s3"     yaml:"s3"` // decoded by the s3 backend
}

type FSConfig struct {
	Root string `mapstructure:"root" yaml:"root"`
}

type UploadConfig struct {
	ChunkSize    int      `mapstructure:"chunk_size"    yaml:"chunk_size"    validate:"gt=0"`
	MaxSize      int64    `mapstructure:"max_size"      yaml:"max_size"      validate:"gt=0"`
	AllowedTypes []string `mapstructure:"allowed_types" yaml:"allowed_types" validate:"min=1,dive,required"`
}

// AuthConfig enables bearer authentication when JWKSURL is set.
type AuthConfig struct {
	JWKSURL string `mapstructure:"jwks_url" yaml:"jwks_url" validate:"omitempty,url"`
}

type ProgressConfig struct {
	KeepAlive string `mapstructure:"keepalive" yaml:"keepalive"`
	Buffer    int    `mapstructure:"buffer"    yaml:"buffer" validate:"gt=0"`
}

// Init loads .env files and points viper at the config file. An explicit
// path must exist; otherwise a missing foldervault.yaml is fine and defaults
// plus environment apply.
func Init(path string) error {
	envFiles := []string{".env", ".env.local"}
	for _, envFile := range envFiles {
		// Missing .env files are normal in production
		_ = godotenv.Load(envFile)
	}

	if path != "" {
		viper.SetConfigFile(path)
		configDir := filepath.Dir(path)
		for _, envFile := range envFiles {
			_ = godotenv.Load(filepath.Join(configDir, envFile))
		}
	} else {
		viper.SetConfigName("foldervault")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/foldervault")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	return nil
}

// Load unmarshals the active viper state over the defaults and validates it.
func Load() (*Config, error) {
	setDefaults()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ShutdownTimeoutDuration parses Server.ShutdownTimeout.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// KeepAliveInterval parses Progress.KeepAlive.
func (c *Config) KeepAliveInterval() time.Duration {
	d, err := time.ParseDuration(c.Progress.KeepAlive)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// CacheTTL parses Metadata.Cache.TTL. Zero means entries never expire.
func (c *Config) CacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Metadata.Cache.TTL)
	if err != nil {
		return 0
	}
	return d
}

// IsProduction reports whether the server runs in prod.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "prod"
}
