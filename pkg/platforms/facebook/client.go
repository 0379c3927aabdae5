// Package facebook implements the platforms.Client contract against the
// Facebook Graph API insights endpoint.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/adpulse/adpulse/internal/database/models"
	"github.com/adpulse/adpulse/pkg/platforms"
)

const (
	defaultBaseURL = "https://graph.facebook.com/v19.0"
	defaultTimeout = 30 * time.Second
	pageLimit      = 100

	// Fixed field set requested per insight row.
	insightFields = "date_start,impressions,reach,clicks,spend,actions,action_values,video_p100_watched_actions,cost_per_action_type"
)

// Config configures the Graph API client.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Client fetches campaign insights from the Graph API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Graph API client. A nil config uses defaults.
func NewClient(config *Config) *Client {
	baseURL := defaultBaseURL
	timeout := defaultTimeout
	if config != nil {
		if config.BaseURL != "" {
			baseURL = config.BaseURL
		}
		if config.Timeout > 0 {
			timeout = config.Timeout
		}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Platform returns the platform identifier.
func (c *Client) Platform() string {
	return models.PlatformFacebook
}

// apiAction mirrors one entry of a Graph API action array. Values arrive as
// strings.
type apiAction struct {
	ActionType string `json:"action_type"`
	Value      string `json:"value"`
}

// apiInsight mirrors one row of the insights response. Numeric fields are
// strings in the Graph API.
type apiInsight struct {
	DateStart               string      `json:"date_start"`
	Impressions             string      `json:"impressions"`
	Reach                   string      `json:"reach"`
	Clicks                  string      `json:"clicks"`
	Spend                   string      `json:"spend"`
	Actions                 []apiAction `json:"actions"`
	ActionValues            []apiAction `json:"action_values"`
	VideoP100WatchedActions []apiAction `json:"video_p100_watched_actions"`
	CostPerActionType       []apiAction `json:"cost_per_action_type"`
}

type apiResponse struct {
	Data   []apiInsight `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// CampaignInsights fetches daily insight rows for the campaign over the
// date range, following pagination until exhausted.
func (c *Client) CampaignInsights(ctx context.Context, creds platforms.Credentials, accountID, campaignID string, dateRange platforms.DateRange) ([]platforms.InsightRow, error) {
	timeRange, err := json.Marshal(map[string]string{
		"since": dateRange.Since.Format("2006-01-02"),
		"until": dateRange.Until.Format("2006-01-02"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode time range: %w", err)
	}

	params := url.Values{}
	params.Set("access_token", creds.AccessToken)
	params.Set("fields", insightFields)
	params.Set("time_range", string(timeRange))
	params.Set("time_increment", "1")
	params.Set("limit", strconv.Itoa(pageLimit))

	endpoint := fmt.Sprintf("%s/%s/insights?%s", c.baseURL, campaignID, params.Encode())

	var rows []platforms.InsightRow
	for endpoint != "" {
		page, err := c.fetchPage(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		for _, insight := range page.Data {
			row, err := insight.toRow()
			if err != nil {
				return nil, fmt.Errorf("failed to parse insight row for campaign %s: %w", campaignID, err)
			}
			rows = append(rows, row)
		}
		endpoint = page.Paging.Next
	}
	return rows, nil
}

func (c *Client) fetchPage(ctx context.Context, endpoint string) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build insights request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("insights request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read insights response: %w", err)
	}

	var page apiResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to decode insights response (status %d): %w", resp.StatusCode, err)
	}

	if page.Error != nil {
		if page.Error.Code == 100 {
			return nil, fmt.Errorf("%w: %s", platforms.ErrCampaignNotFound, page.Error.Message)
		}
		return nil, fmt.Errorf("graph api error: %s", page.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph api returned status %d", resp.StatusCode)
	}
	return &page, nil
}

func (a apiAction) toValue() (platforms.ActionValue, error) {
	v, err := strconv.ParseFloat(a.Value, 64)
	if err != nil {
		return platforms.ActionValue{}, fmt.Errorf("invalid action value %q for %s: %w", a.Value, a.ActionType, err)
	}
	return platforms.ActionValue{ActionType: a.ActionType, Value: v}, nil
}

func convertActions(in []apiAction) ([]platforms.ActionValue, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]platforms.ActionValue, 0, len(in))
	for _, a := range in {
		v, err := a.toValue()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (i apiInsight) toRow() (platforms.InsightRow, error) {
	date, err := time.Parse("2006-01-02", i.DateStart)
	if err != nil {
		return platforms.InsightRow{}, fmt.Errorf("invalid date_start %q: %w", i.DateStart, err)
	}

	row := platforms.InsightRow{Date: date}
	if row.Impressions, err = parseInt(i.Impressions); err != nil {
		return platforms.InsightRow{}, err
	}
	if row.Reach, err = parseInt(i.Reach); err != nil {
		return platforms.InsightRow{}, err
	}
	if row.Clicks, err = parseInt(i.Clicks); err != nil {
		return platforms.InsightRow{}, err
	}
	if row.Spend, err = parseFloat(i.Spend); err != nil {
		return platforms.InsightRow{}, err
	}

	if row.Actions, err = convertActions(i.Actions); err != nil {
		return platforms.InsightRow{}, err
	}
	if row.ActionValues, err = convertActions(i.ActionValues); err != nil {
		return platforms.InsightRow{}, err
	}
	if row.VideoCompletions, err = convertActions(i.VideoP100WatchedActions); err != nil {
		return platforms.InsightRow{}, err
	}
	if row.CostPerActionType, err = convertActions(i.CostPerActionType); err != nil {
		return platforms.InsightRow{}, err
	}
	return row, nil
}

func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer field %q: %w", s, err)
	}
	return v, nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric field %q: %w", s, err)
	}
	return v, nil
}
