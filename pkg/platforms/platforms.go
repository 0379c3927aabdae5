// Package platforms defines the common contract for outbound ad-platform
// API clients. Each platform package returns daily insight rows in a
// normalized shape; all parsing of platform-specific action structures into
// metric buckets happens downstream in the sync service.
package platforms

import (
	"context"
	"errors"
	"time"
)

// ErrCampaignNotFound is returned when the platform reports an unknown
// campaign id. The sync service archives the local campaign in response.
var ErrCampaignNotFound = errors.New("campaign not found on platform")

// Credentials carries the access material for one ad account.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// DateRange is an inclusive [Since, Until] day range.
type DateRange struct {
	Since time.Time
	Until time.Time
}

// LastNDays returns the range covering the n days ending yesterday.
func LastNDays(n int, now time.Time) DateRange {
	until := now.AddDate(0, 0, -1)
	return DateRange{
		Since: until.AddDate(0, 0, -(n - 1)),
		Until: until,
	}
}

// ActionValue is one entry of a platform action array: an action type tag
// and its numeric value (count or monetary amount depending on the array).
type ActionValue struct {
	ActionType string  `json:"action_type"`
	Value      float64 `json:"value"`
}

// InsightRow is one day of delivery data for one campaign, normalized
// across platforms. The nested arrays keep the platform's heterogeneous
// action structure; bucketing is the sync service's job.
type InsightRow struct {
	Date        time.Time
	Impressions int64
	Reach       int64
	Clicks      int64
	Spend       float64

	Actions           []ActionValue // conversion counts by action type
	ActionValues      []ActionValue // monetary values by action type
	VideoCompletions  []ActionValue // video 100%-watched actions
	CostPerActionType []ActionValue // platform cost-per-action breakdown
}

// Client is an outbound insights API client for one ad platform.
type Client interface {
	// Platform returns the platform identifier (facebook, google).
	Platform() string

	// CampaignInsights fetches daily insight rows for one campaign over the
	// date range. A transport or API error is returned to the caller; the
	// sync service decides whether it is fatal for the account.
	CampaignInsights(ctx context.Context, creds Credentials, accountID, campaignID string, dateRange DateRange) ([]InsightRow, error)
}
