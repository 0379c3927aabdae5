package server

import (
	"fmt"
	"time"

	"github.com/adpulse/adpulse/internal/database"
)

// Config represents the HTTP server configuration
type Config struct {
	Host string `yaml:"host" env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `yaml:"port" env:"SERVER_PORT" default:"8080"`

	// Timeouts
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" default:"30s"`

	// Request handling
	APIPrefix       string `yaml:"api_prefix" env:"API_PREFIX" default:"/api/v1"`
	RequestIDHeader string `yaml:"request_id_header" env:"REQUEST_ID_HEADER" default:"X-Request-ID"`
	TenantHeader    string `yaml:"tenant_header" env:"TENANT_HEADER" default:"X-Tenant-ID"`
	LogRequests     bool   `yaml:"log_requests" env:"LOG_REQUESTS" default:"true"`

	// Dashboard cache
	DashboardCacheTTL time.Duration `yaml:"dashboard_cache_ttl" env:"DASHBOARD_CACHE_TTL" default:"5m"`

	// Pagination defaults
	DefaultPageSize int `yaml:"default_page_size" env:"DEFAULT_PAGE_SIZE" default:"20"`
	MaxPageSize     int `yaml:"max_page_size" env:"MAX_PAGE_SIZE" default:"100"`

	// Database configuration
	Database *database.Config `yaml:"database"`
}

// GetDefaultConfig returns a default server configuration
func GetDefaultConfig() *Config {
	return &Config{
		Host:              "0.0.0.0",
		Port:              8080,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		APIPrefix:         "/api/v1",
		RequestIDHeader:   "X-Request-ID",
		TenantHeader:      "X-Tenant-ID",
		LogRequests:       true,
		DashboardCacheTTL: 5 * time.Minute,
		DefaultPageSize:   20,
		MaxPageSize:       100,
		Database:          database.GetDefaultConfig(),
	}
}

// GetAddress returns the server address
func (c *Config) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.DefaultPageSize <= 0 {
		return fmt.Errorf("default page size must be positive")
	}
	if c.MaxPageSize <= 0 || c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("max page size must be positive and >= default page size")
	}
	return nil
}
