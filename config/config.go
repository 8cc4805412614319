package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
			// Timeout bounds every store round trip; on expiry the request
			// fails with a store-unavailable error instead of hanging.
			Timeout time.Duration `mapstructure:"timeout"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Session SessionConfig `mapstructure:"session"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Images  ImagesConfig  `mapstructure:"images"`
}

// SessionConfig controls session rows and the signed cookie carrying
// their identifier.
type SessionConfig struct {
	Secret       string        `mapstructure:"secret"`
	TTL          time.Duration `mapstructure:"ttl"`
	CookieName   string        `mapstructure:"cookieName"`
	CookieSecure bool          `mapstructure:"cookieSecure"`
}

type AuthConfig struct {
	// PasswordMinLength is the strength policy applied at sign-up.
	PasswordMinLength int `mapstructure:"passwordMinLength"`
}

// ImagesConfig points at the external image host (MinIO compatible).
type ImagesConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"accessKey"`
	SecretKey string `mapstructure:"secretKey"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"useSSL"`
	// PublicBaseURL is the externally reachable prefix for uploaded
	// objects, e.g. "https://cdn.example.com/campaigns".
	PublicBaseURL string `mapstructure:"publicBaseURL"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvPrefix("WELFARE")
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	if config.Session.Secret == "" {
		return Config{}, fmt.Errorf("session secret must be configured")
	}
	if config.Session.TTL <= 0 {
		config.Session.TTL = 30 * 24 * time.Hour
	}
	if config.Auth.PasswordMinLength <= 0 {
		config.Auth.PasswordMinLength = 8
	}
	if config.Repositories.Postgres.Timeout <= 0 {
		config.Repositories.Postgres.Timeout = 5 * time.Second
	}
	return config, nil
}
