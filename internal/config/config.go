package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Portfolio PortfolioConfig
	Broker    BrokerConfig
	CORS      CORSConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// PortfolioConfig identifies the single tracked portfolio.
type PortfolioConfig struct {
	ID   string
	Name string
}

// BrokerConfig holds Zerodha Kite credentials and quote settings.
// EncryptionKey is a base64 fernet key protecting the stored access token.
type BrokerConfig struct {
	APIKey        string
	APISecret     string
	EncryptionKey string
	Exchange      string
	RefreshSpec   string // cron expression for the quote refresh job
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/stock_lot_tracker.db"),
		},
		Portfolio: PortfolioConfig{
			ID:   getEnv("PORTFOLIO_ID", "00000000-0000-0000-0000-000000000001"),
			Name: getEnv("PORTFOLIO_NAME", "Default Portfolio"),
		},
		Broker: BrokerConfig{
			APIKey:        getEnv("KITE_API_KEY", ""),
			APISecret:     getEnv("KITE_API_SECRET", ""),
			EncryptionKey: getEnv("TOKEN_ENCRYPTION_KEY", ""),
			Exchange:      getEnv("KITE_EXCHANGE", "NSE"),
			RefreshSpec:   getEnv("QUOTE_REFRESH_SPEC", "*/5 9-16 * * 1-5"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS",
				"http://localhost:3000,http://localhost")),
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// splitList splits a comma-separated environment value into trimmed entries.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
