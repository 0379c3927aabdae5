package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adpulse/adpulse/internal/database/models"
)

type tenantContextKey string

// defaultTenantContextKey is the context key the isolation plugin reads.
const defaultTenantContextKey tenantContextKey = "tenant_context"

// SetTenantContext returns a context carrying the tenant identity, so any
// database call made with it is scoped by the isolation plugin.
func SetTenantContext(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, defaultTenantContextKey, &TenantContext{TenantID: tenantID})
}

// TenantContext represents the tenant context for database operations
type TenantContext struct {
	TenantID   uuid.UUID
	TenantName string
	UserID     string
	RequestID  string
}

// TenantIsolationPlugin implements a GORM plugin for automatic tenant
// isolation. Every query/create/update/delete against a model carrying a
// tenant_id column is scoped to the tenant found in the statement context.
type TenantIsolationPlugin struct {
	TenantContextKey tenantContextKey
}

// Name returns the plugin name
func (p *TenantIsolationPlugin) Name() string {
	return "TenantIsolationPlugin"
}

// Initialize initializes the plugin
func (p *TenantIsolationPlugin) Initialize(db *gorm.DB) error {
	if p.TenantContextKey == "" {
		p.TenantContextKey = "tenant_context"
	}

	db.Callback().Query().Before("gorm:query").Register("tenant_isolation:before_query", p.beforeQuery)
	db.Callback().Create().Before("gorm:create").Register("tenant_isolation:before_create", p.beforeCreate)
	db.Callback().Update().Before("gorm:update").Register("tenant_isolation:before_update", p.beforeUpdate)
	db.Callback().Delete().Before("gorm:delete").Register("tenant_isolation:before_delete", p.beforeDelete)

	return nil
}

func (p *TenantIsolationPlugin) beforeQuery(db *gorm.DB) {
	if tenantCtx := p.getTenantContext(db); tenantCtx != nil {
		if p.hasTenantIDField(db) {
			db.Where("tenant_id = ?", tenantCtx.TenantID)
		}
	}
}

func (p *TenantIsolationPlugin) beforeCreate(db *gorm.DB) {
	if tenantCtx := p.getTenantContext(db); tenantCtx != nil {
		if p.hasTenantIDField(db) {
			if db.Statement.Dest != nil {
				p.setTenantIDInStruct(db.Statement.Dest, tenantCtx.TenantID)
			}
		}
	}
}

func (p *TenantIsolationPlugin) beforeUpdate(db *gorm.DB) {
	if tenantCtx := p.getTenantContext(db); tenantCtx != nil {
		if p.hasTenantIDField(db) {
			db.Where("tenant_id = ?", tenantCtx.TenantID)
		}
	}
}

func (p *TenantIsolationPlugin) beforeDelete(db *gorm.DB) {
	if tenantCtx := p.getTenantContext(db); tenantCtx != nil {
		if p.hasTenantIDField(db) {
			db.Where("tenant_id = ?", tenantCtx.TenantID)
		}
	}
}

func (p *TenantIsolationPlugin) getTenantContext(db *gorm.DB) *TenantContext {
	if db.Statement.Context == nil {
		return nil
	}

	if tenantCtx, ok := db.Statement.Context.Value(p.TenantContextKey).(*TenantContext); ok {
		return tenantCtx
	}

	return nil
}

func (p *TenantIsolationPlugin) hasTenantIDField(db *gorm.DB) bool {
	if db.Statement.Schema == nil {
		return false
	}

	_, ok := db.Statement.Schema.FieldsByDBName["tenant_id"]
	return ok
}

// setTenantIDInStruct sets the tenant_id field on records being created so a
// caller cannot insert rows into another tenant's partition.
func (p *TenantIsolationPlugin) setTenantIDInStruct(dest interface{}, tenantID uuid.UUID) {
	switch v := dest.(type) {
	case *models.AdAccount:
		v.TenantID = tenantID
	case *models.Campaign:
		v.TenantID = tenantID
	case *models.AdMetric:
		v.TenantID = tenantID
	case *models.AlertRule:
		v.TenantID = tenantID
	case []*models.AdAccount:
		for _, item := range v {
			item.TenantID = tenantID
		}
	case []*models.Campaign:
		for _, item := range v {
			item.TenantID = tenantID
		}
	case []*models.AdMetric:
		for _, item := range v {
			item.TenantID = tenantID
		}
	case []*models.AlertRule:
		for _, item := range v {
			item.TenantID = tenantID
		}
	}
}

// TenantDatabase provides tenant-isolated database operations
type TenantDatabase struct {
	conn   *Connection
	plugin *TenantIsolationPlugin
}

// NewTenantDatabase creates a new tenant-isolated database instance
func NewTenantDatabase(conn *Connection) *TenantDatabase {
	plugin := &TenantIsolationPlugin{
		TenantContextKey: defaultTenantContextKey,
	}

	conn.DB().Use(plugin)

	return &TenantDatabase{
		conn:   conn,
		plugin: plugin,
	}
}

// WithTenantContext returns a database instance with tenant context
func (td *TenantDatabase) WithTenantContext(ctx context.Context, tenantCtx *TenantContext) *gorm.DB {
	newCtx := context.WithValue(ctx, td.plugin.TenantContextKey, tenantCtx)
	return td.conn.DB().WithContext(newCtx)
}

// WithTenant returns a database instance scoped to a specific tenant
func (td *TenantDatabase) WithTenant(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	tenantCtx := &TenantContext{
		TenantID: tenantID,
	}
	return td.WithTenantContext(ctx, tenantCtx)
}

// ValidateTenantAccess validates that a record belongs to the specified tenant
func (td *TenantDatabase) ValidateTenantAccess(ctx context.Context, tenantID uuid.UUID, tableName string, recordID uuid.UUID) error {
	var count int64

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ? AND tenant_id = ?", tableName)
	err := td.conn.DB().WithContext(ctx).Raw(query, recordID, tenantID).Scan(&count).Error

	if err != nil {
		return fmt.Errorf("failed to validate tenant access: %w", err)
	}

	if count == 0 {
		return fmt.Errorf("record not found or access denied for tenant %s", tenantID)
	}

	return nil
}
