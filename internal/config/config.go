package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type JWTConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// ClientCredential is one client_id/secret pair of the credential store.
// The secret may be stored bcrypt-hashed.
type ClientCredential struct {
	ClientID string
	Secret   string
}

type Config struct {
	Server      ServerConfig    `mapstructure:"server"`
	PrimaryDB   DatabaseConfig  `mapstructure:"primary_db"`
	SecondaryDB DatabaseConfig  `mapstructure:"secondary_db"`
	JWT         JWTConfig       `mapstructure:"jwt"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Logging     LoggingConfig   `mapstructure:"logging"`

	// Credentials are loaded from the environment only, never from file.
	Credentials []ClientCredential `mapstructure:"-"`
}

// envOverrides are environment variables taking precedence over the file.
type envOverrides struct {
	Port            int    `envconfig:"PORT"`
	JWTSecret       string `envconfig:"JWT_SECRET"`
	DBHost          string `envconfig:"DB_HOST"`
	DBPort          int    `envconfig:"DB_PORT"`
	DBUser          string `envconfig:"DB_USER"`
	DBPassword      string `envconfig:"DB_PASSWORD"`
	DBName          string `envconfig:"DB_NAME"`
	SecondaryDBHost string `envconfig:"SECONDARY_DB_HOST"`
	SecondaryDBName string `envconfig:"SECONDARY_DB_NAME"`
	LogLevel        string `envconfig:"LOG_LEVEL"`
}

const (
	defaultTokenTTL       = 2 * time.Minute
	defaultRequestTimeout = 30 * time.Second
	maxClientCredentials  = 32
)

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("/app/config")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.request_timeout", defaultRequestTimeout)
	viper.SetDefault("jwt.token_ttl", defaultTokenTTL)
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests_per_second", 50.0)
	viper.SetDefault("rate_limit.burst", 100)
	viper.SetDefault("logging.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional when everything comes from env.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	applyOverrides(&cfg, &env)

	cfg.Credentials = loadClientCredentials()
	if len(cfg.Credentials) == 0 {
		return nil, fmt.Errorf("no client credentials configured: set CLIENT_ID_1 and CLIENT_SECRET_1")
	}

	return &cfg, nil
}

func applyOverrides(cfg *Config, env *envOverrides) {
	if env.Port != 0 {
		cfg.Server.Port = env.Port
	}
	if env.JWTSecret != "" {
		cfg.JWT.Secret = env.JWTSecret
	}
	if env.DBHost != "" {
		cfg.PrimaryDB.Host = env.DBHost
	}
	if env.DBPort != 0 {
		cfg.PrimaryDB.Port = env.DBPort
	}
	if env.DBUser != "" {
		cfg.PrimaryDB.User = env.DBUser
		cfg.SecondaryDB.User = env.DBUser
	}
	if env.DBPassword != "" {
		cfg.PrimaryDB.Password = env.DBPassword
		cfg.SecondaryDB.Password = env.DBPassword
	}
	if env.DBName != "" {
		cfg.PrimaryDB.Name = env.DBName
	}
	if env.SecondaryDBHost != "" {
		cfg.SecondaryDB.Host = env.SecondaryDBHost
	}
	if env.SecondaryDBName != "" {
		cfg.SecondaryDB.Name = env.SecondaryDBName
	}
	if env.LogLevel != "" {
		cfg.Logging.Level = env.LogLevel
	}
}

// loadClientCredentials reads numbered CLIENT_ID_n / CLIENT_SECRET_n pairs.
func loadClientCredentials() []ClientCredential {
	var creds []ClientCredential
	for i := 1; i <= maxClientCredentials; i++ {
		id := os.Getenv(fmt.Sprintf("CLIENT_ID_%d", i))
		secret := os.Getenv(fmt.Sprintf("CLIENT_SECRET_%d", i))
		if id == "" || secret == "" {
			continue
		}
		creds = append(creds, ClientCredential{ClientID: id, Secret: secret})
	}
	return creds
}
