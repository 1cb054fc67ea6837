// Package config loads the gateway configuration from configs/config.yml and
// GATEWAY_* environment variables (e.g. GATEWAY_EVOHOME_PASSWORD).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "GATEWAY"

// Config is the root configuration.
type Config struct {
	Port    string        `mapstructure:"port"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"db"`
	Evohome EvohomeConfig `mapstructure:"evohome"`
	Auth    AuthConfig    `mapstructure:"auth"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	CORS    CORSConfig    `mapstructure:"cors"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

// EvohomeConfig holds the cloud account and polling settings.
type EvohomeConfig struct {
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	ApplicationID   string        `mapstructure:"application_id"`
	RefreshInterval int           `mapstructure:"refresh_interval"` // seconds
	Timezone        string        `mapstructure:"timezone"`
	BaseURL         string        `mapstructure:"base_url"`
	AuthURL         string        `mapstructure:"auth_url"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// PollInterval returns the refresh interval as a duration.
func (c EvohomeConfig) PollInterval() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Second
}

// Location resolves the configured timezone, defaulting to the local zone.
func (c EvohomeConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	QoS         int    `mapstructure:"qos"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("db.path", "gateway.db")
	v.SetDefault("evohome.username", "")
	v.SetDefault("evohome.password", "")
	v.SetDefault("evohome.application_id", "")
	v.SetDefault("evohome.refresh_interval", 15)
	v.SetDefault("evohome.timezone", "")
	v.SetDefault("evohome.base_url", "")
	v.SetDefault("evohome.auth_url", "")
	v.SetDefault("evohome.request_timeout", "10s")
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", "1h")
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "evohome-gateway")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic_prefix", "evohome")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// Load reads config.yml from dir (when present) and applies environment overrides.
// Credentials are not validated here: missing ones are reported by the gateway as a
// configuration error at runtime.
func Load(dir string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Evohome.RefreshInterval <= 0 {
		return Config{}, fmt.Errorf("evohome.refresh_interval must be a positive number of seconds, got %d", cfg.Evohome.RefreshInterval)
	}
	return cfg, nil
}
