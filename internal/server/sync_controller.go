package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adpulse/adpulse/internal/database/models"
	"github.com/adpulse/adpulse/internal/sync"
	"github.com/adpulse/adpulse/pkg/platforms"
)

const (
	defaultSyncDays = 7
	maxSyncDays     = 90
)

// AccountProvider looks up ad accounts for the tenant.
type AccountProvider interface {
	GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*models.AdAccount, error)
}

// AccountSyncer runs a metrics sync for one account.
type AccountSyncer interface {
	SyncAccount(ctx context.Context, account *models.AdAccount, creds platforms.Credentials, dateRange platforms.DateRange) (*sync.Summary, error)
}

// CredentialSource resolves platform credentials for an account.
type CredentialSource interface {
	Resolve(ctx context.Context, account *models.AdAccount) (platforms.Credentials, error)
}

// SyncController triggers on-demand metric syncs.
type SyncController struct {
	accounts AccountProvider
	syncer   AccountSyncer
	creds    CredentialSource
}

// NewSyncController creates the controller.
func NewSyncController(accounts AccountProvider, syncer AccountSyncer, creds CredentialSource) *SyncController {
	return &SyncController{accounts: accounts, syncer: syncer, creds: creds}
}

// RegisterRoutes registers sync routes with the gin router.
func (sc *SyncController) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/accounts/:account_id/sync", sc.SyncAccount)
}

// SyncAccount pulls the last N days of insights for one account. The days
// query parameter defaults to 7 and is capped at 90.
func (sc *SyncController) SyncAccount(c *gin.Context) {
	accountID, ok := pathUUID(c, "account_id")
	if !ok {
		return
	}

	days := defaultSyncDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxSyncDays {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "INVALID_REQUEST",
				Details: "days must be between 1 and 90",
			})
			return
		}
		days = parsed
	}

	ctx := c.Request.Context()
	account, err := sc.accounts.GetAccount(ctx, tenantID(c), accountID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ACCOUNT_NOT_FOUND", Details: err.Error()})
		return
	}
	if !account.IsSyncable() {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "ACCOUNT_NOT_SYNCABLE",
			Details: "account status is not active",
		})
		return
	}

	creds, err := sc.creds.Resolve(ctx, account)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "CREDENTIALS_UNAVAILABLE", Details: err.Error()})
		return
	}

	summary, err := sc.syncer.SyncAccount(ctx, account, creds, platforms.LastNDays(days, time.Now()))
	if err != nil {
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "SYNC_FAILED", Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}
