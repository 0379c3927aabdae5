// Package database provides database connectivity, models, and tenant
// isolation for the AdPulse platform. The metrics store is the single
// writer-of-record for ingested data; the alert engine reads it and writes
// back only alert state.
package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Database represents the main database interface for the application
type Database struct {
	conn   *Connection
	tenant *TenantDatabase
	config *Config
}

// New creates a new database instance with all components
func New(config *Config) (*Database, error) {
	conn, err := NewConnection(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	tenantDB := NewTenantDatabase(conn)

	return &Database{
		conn:   conn,
		tenant: tenantDB,
		config: config,
	}, nil
}

// Connect establishes database connection and runs initial setup
func (db *Database) Connect(ctx context.Context) error {
	if err := db.conn.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	if db.config.AutoMigrate {
		if err := db.conn.AutoMigrate(); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Close closes all database connections
func (db *Database) Close() error {
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

// DB returns the underlying GORM database instance
func (db *Database) DB() *gorm.DB {
	return db.conn.DB()
}

// Connection returns the database connection
func (db *Database) Connection() *Connection {
	return db.conn
}

// Tenant returns the tenant database
func (db *Database) Tenant() *TenantDatabase {
	return db.tenant
}

// HealthCheck reports database liveness
func (db *Database) HealthCheck(ctx context.Context) error {
	if err := db.conn.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}
