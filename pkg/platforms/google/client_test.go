package google

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse/adpulse/pkg/platforms"
)

func testRange() platforms.DateRange {
	return platforms.DateRange{
		Since: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestCampaignInsightsMapsRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers/123/campaigns/c_7/dailyMetrics", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2026-08-01", q.Get("start_date"))
		assert.Equal(t, "2026-08-02", q.Get("end_date"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		fmt.Fprint(w, `{
			"results": [{
				"date": "2026-08-01",
				"impressions": 2000,
				"reach": 1500,
				"clicks": 80,
				"cost_micros": 12500000,
				"conversions": 4.0,
				"conversions_value": 320.5,
				"video_quartile_p100_views": 9,
				"cost_per_conversion": 3.125
			}]
		}`)
	}))
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL, TokenURL: server.URL + "/token"})
	rows, err := client.CampaignInsights(context.Background(), platforms.Credentials{AccessToken: "tok"}, "123", "c_7", testRange())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), row.Date)
	assert.Equal(t, int64(2000), row.Impressions)
	assert.Equal(t, int64(1500), row.Reach)
	assert.Equal(t, int64(80), row.Clicks)
	assert.Equal(t, 12.5, row.Spend)
	assert.Equal(t, []platforms.ActionValue{{ActionType: "conversion", Value: 4}}, row.Actions)
	assert.Equal(t, []platforms.ActionValue{{ActionType: "purchase", Value: 320.5}}, row.ActionValues)
	assert.Equal(t, []platforms.ActionValue{{ActionType: "video_view", Value: 9}}, row.VideoCompletions)
	assert.Equal(t, []platforms.ActionValue{{ActionType: "conversion", Value: 3.125}}, row.CostPerActionType)
}

func TestCampaignInsightsOmitsZeroSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results": [{"date": "2026-08-01", "impressions": 10, "clicks": 0, "cost_micros": 0}]}`)
	}))
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL, TokenURL: server.URL + "/token"})
	rows, err := client.CampaignInsights(context.Background(), platforms.Credentials{AccessToken: "tok"}, "123", "c_7", testRange())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Actions)
	assert.Empty(t, rows[0].ActionValues)
}

func TestCampaignInsightsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error": {"message": "The caller does not have permission", "status": "PERMISSION_DENIED"}}`)
	}))
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL, TokenURL: server.URL + "/token"})
	_, err := client.CampaignInsights(context.Background(), platforms.Credentials{AccessToken: "tok"}, "123", "c_7", testRange())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not have permission")
}

func TestCampaignInsightsBadDate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results": [{"date": "08/01/2026", "impressions": 1}]}`)
	}))
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL, TokenURL: server.URL + "/token"})
	_, err := client.CampaignInsights(context.Background(), platforms.Credentials{AccessToken: "tok"}, "123", "c_7", testRange())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date")
}

func TestPlatform(t *testing.T) {
	assert.Equal(t, "google", NewClient(nil).Platform())
}
