package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration. It is resolved once at
// process start and threaded through constructors; nothing reads the
// environment after Load returns.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Vault    VaultConfig    `mapstructure:"vault"`
	Portal   PortalConfig   `mapstructure:"portal"`
	Venue    VenueConfig    `mapstructure:"venue"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// TrustDomain is one (kid, secret) pair. The portal↔link-service and
// bot↔trade-service domains each carry their own; a signature minted in
// one domain never validates in the other.
type TrustDomain struct {
	Kid    string `mapstructure:"kid"`
	Secret string `mapstructure:"secret"`
}

type AuthConfig struct {
	Link  TrustDomain `mapstructure:"link"`  // portal/bot ↔ link-service
	Trade TrustDomain `mapstructure:"trade"` // bot ↔ trade-service
}

type VaultConfig struct {
	Namespace string `mapstructure:"namespace"` // project scope, e.g. "tradelink"
	Env       string `mapstructure:"env"`       // deployment environment, e.g. "dev", "prod"
	AESKey    string `mapstructure:"aes_key"`   // 64-char hex (32 bytes) for AES-256-GCM at rest
}

type PortalConfig struct {
	BotToken     string `mapstructure:"bot_token"`      // chat-platform bot token, keys login payload verification
	LinkBaseURL  string `mapstructure:"link_base_url"`  // base URL of the Link Service
	CSRFMinLen   int    `mapstructure:"csrf_min_len"`   // minimum accepted x-csrf-token length
	ForwardToSec int    `mapstructure:"forward_to_sec"` // outbound request timeout in seconds
}

type VenueConfig struct {
	BaseURL string `mapstructure:"base_url"` // downstream trading venue order endpoint
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: TLK.
// Nested keys use underscore: TLK_DATABASE_HOST, TLK_AUTH_LINK_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "tradelink")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.link.kid", "portal-link-v1")
	v.SetDefault("auth.link.secret", "")
	v.SetDefault("auth.trade.kid", "bot-trade-v1")
	v.SetDefault("auth.trade.secret", "")
	v.SetDefault("vault.namespace", "tradelink")
	v.SetDefault("vault.env", "dev")
	v.SetDefault("vault.aes_key", "")
	v.SetDefault("portal.bot_token", "")
	v.SetDefault("portal.link_base_url", "http://localhost:8081")
	v.SetDefault("portal.csrf_min_len", 16)
	v.SetDefault("portal.forward_to_sec", 10)
	v.SetDefault("venue.base_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: TLK_AUTH_LINK_SECRET -> auth.link.secret
	v.SetEnvPrefix("TLK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional — env vars can supply everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
