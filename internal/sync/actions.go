package sync

import "github.com/adpulse/adpulse/pkg/platforms"

// bucket identifies which metric column a platform action type feeds.
type bucket int

const (
	bucketNone bucket = iota
	bucketPurchase
	bucketLead
	bucketAppInstall
	bucketAddToCart
	bucketLandingPageView
	bucketCall
	bucketConversion
)

// actionBuckets maps platform action types onto metric buckets. Overlapping
// types (omni_purchase and purchase, for example) intentionally land in the
// same bucket; a row carrying both counts both, matching how the platform
// reports them. De-duplication across overlapping types needs a business
// ruling before it can change here.
var actionBuckets = map[string]bucket{
	"purchase":                                bucketPurchase,
	"omni_purchase":                           bucketPurchase,
	"offsite_conversion.fb_pixel_purchase":    bucketPurchase,
	"lead":                                    bucketLead,
	"on_facebook_lead":                        bucketLead,
	"offsite_conversion.fb_pixel_lead":        bucketLead,
	"app_install":                             bucketAppInstall,
	"mobile_app_install":                      bucketAppInstall,
	"omni_app_install":                        bucketAppInstall,
	"add_to_cart":                             bucketAddToCart,
	"omni_add_to_cart":                        bucketAddToCart,
	"offsite_conversion.fb_pixel_add_to_cart": bucketAddToCart,
	"landing_page_view":                       bucketLandingPageView,
	"click_to_call":                           bucketCall,
	"click_to_call_call_confirm":              bucketCall,
	"conversion":                              bucketConversion,
	"offsite_conversion":                      bucketConversion,
}

// parsedActions holds the typed buckets extracted from one insight row's
// actions array.
type parsedActions struct {
	Purchases        int64
	Leads            int64
	AppInstalls      int64
	AddToCart        int64
	LandingPageViews int64
	Calls            int64
	Conversions      int64
}

// parseActions folds the heterogeneous actions array into typed buckets.
// Purchases, leads, app installs, and generic conversion actions also count
// toward the overall conversions total; add-to-cart, landing-page views,
// and calls are intermediate funnel events and do not.
func parseActions(actions []platforms.ActionValue) parsedActions {
	var out parsedActions
	for _, action := range actions {
		count := int64(action.Value)
		switch actionBuckets[action.ActionType] {
		case bucketPurchase:
			out.Purchases += count
			out.Conversions += count
		case bucketLead:
			out.Leads += count
			out.Conversions += count
		case bucketAppInstall:
			out.AppInstalls += count
			out.Conversions += count
		case bucketConversion:
			out.Conversions += count
		case bucketAddToCart:
			out.AddToCart += count
		case bucketLandingPageView:
			out.LandingPageViews += count
		case bucketCall:
			out.Calls += count
		}
	}
	return out
}

// parseRevenue sums the monetary values of purchase-type actions.
func parseRevenue(actionValues []platforms.ActionValue) float64 {
	var revenue float64
	for _, av := range actionValues {
		if actionBuckets[av.ActionType] == bucketPurchase {
			revenue += av.Value
		}
	}
	return revenue
}

// parseVideoCompletions sums the 100%-watched action values into a single
// count.
func parseVideoCompletions(actions []platforms.ActionValue) int64 {
	var total int64
	for _, a := range actions {
		total += int64(a.Value)
	}
	return total
}

// parseCostPerResult picks the first positive value from the platform
// cost-per-action breakdown. The field is approximate; which action type
// "the result" refers to varies with the campaign objective.
func parseCostPerResult(costs []platforms.ActionValue) float64 {
	for _, c := range costs {
		if c.Value > 0 {
			return c.Value
		}
	}
	return 0
}
