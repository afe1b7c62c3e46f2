// Package config resolves application configuration from viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/taxpadi/taxpadi/internal/llm"
)

// Config holds the resolved application configuration.
type Config struct {
	DatabasePath string
	RedisAddr    string
	RedisPass    string
	RedisDB      int
	CacheTTL     time.Duration
	ServerPort   int
	Providers    map[llm.Role]llm.Config
}

// Load resolves configuration from viper (flags, config file, TAXPADI_*
// environment variables).
func Load() (*Config, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		var err error
		dbPath, err = DefaultDatabasePath()
		if err != nil {
			return nil, err
		}
	}

	port := viper.GetInt("server.port")
	if port == 0 {
		port = 8080
	}

	ttl := viper.GetDuration("cache.ttl")
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	cfg := &Config{
		DatabasePath: dbPath,
		RedisAddr:    viper.GetString("redis.addr"),
		RedisPass:    viper.GetString("redis.password"),
		RedisDB:      viper.GetInt("redis.db"),
		CacheTTL:     ttl,
		ServerPort:   port,
		Providers: map[llm.Role]llm.Config{
			llm.RolePrimary:  providerConfig("ai.primary"),
			llm.RoleFallback: providerConfig("ai.fallback"),
		},
	}

	return cfg, nil
}

func providerConfig(key string) llm.Config {
	return llm.Config{
		Provider:    viper.GetString(key + ".provider"),
		APIKey:      viper.GetString(key + ".api_key"),
		Model:       viper.GetString(key + ".model"),
		Timeout:     viper.GetDuration(key + ".timeout"),
		Temperature: viper.GetFloat64(key + ".temperature"),
		MaxTokens:   viper.GetInt(key + ".max_tokens"),
		RateLimit:   viper.GetInt(key + ".rate_limit"),
	}
}

// DefaultDatabasePath returns the standard database location.
func DefaultDatabasePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "taxpadi", "taxpadi.db"), nil
}
