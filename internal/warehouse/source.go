// Package warehouse fetches the joined review/shipping rows the dashboard is
// built from, and caches them for a bounded time.
package warehouse

import (
	"context"
	"strings"
)

// ReviewsWithShippingQuery is the one query the dashboard depends on: every
// review, left-joined with its shipment when one exists.
const ReviewsWithShippingQuery = `
SELECT
    cr.product,
    cr.date,
    cr.summary,
    cr.sentiment_score,
    cr.order_id,
    sl.shipping_date,
    sl.carrier,
    sl.delivery_days,
    sl.late,
    sl.region,
    sl.status
FROM customer_reviews cr
LEFT JOIN shipping_logs sl ON cr.order_id = sl.order_id
`

// Canonical (upper-case) column names produced by every Source.
const (
	ColProduct        = "PRODUCT"
	ColDate           = "DATE"
	ColSummary        = "SUMMARY"
	ColSentimentScore = "SENTIMENT_SCORE"
	ColOrderID        = "ORDER_ID"
	ColShippingDate   = "SHIPPING_DATE"
	ColCarrier        = "CARRIER"
	ColDeliveryDays   = "DELIVERY_DAYS"
	ColLate           = "LATE"
	ColRegion         = "REGION"
	ColStatus         = "STATUS"
)

// Columns lists the canonical columns in query order.
var Columns = []string{
	ColProduct, ColDate, ColSummary, ColSentimentScore, ColOrderID,
	ColShippingDate, ColCarrier, ColDeliveryDays, ColLate, ColRegion, ColStatus,
}

// RawRow is one result row keyed by canonical column name. Values keep the
// driver's native types (string, float64, int64, bool, time.Time or nil).
type RawRow map[string]any

// Source is the data source adapter.
type Source interface {
	FetchReviewsWithShipping(ctx context.Context) ([]RawRow, error)
	// Identity distinguishes connections for cache keys.
	Identity() string
}

// CanonicalColumn folds a driver-reported column name to the canonical case.
func CanonicalColumn(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
