// Package analysis turns raw warehouse rows into typed records, applies the
// dashboard filters and computes the regional and problem-area summaries.
package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/shipsight/internal/warehouse"
)

// Record is one review, left-joined with its shipment if any. Shipment
// fields are nil when no shipment matched the order.
type Record struct {
	Product        string     `json:"product"`
	Date           *time.Time `json:"date"`
	Summary        *string    `json:"summary"`
	SentimentScore *float64   `json:"sentiment_score"`
	OrderID        string     `json:"order_id"`
	ShippingDate   *time.Time `json:"shipping_date"`
	Carrier        *string    `json:"carrier"`
	DeliveryDays   *float64   `json:"delivery_days"`
	Late           bool       `json:"late"`
	Region         *string    `json:"region"`
	Status         *string    `json:"status"`
}

// requiredColumns must be present for the pipeline to work at all.
var requiredColumns = []string{
	warehouse.ColProduct,
	warehouse.ColDate,
	warehouse.ColSentimentScore,
	warehouse.ColOrderID,
	warehouse.ColLate,
	warehouse.ColRegion,
}

// SchemaError reports columns missing from the warehouse result. It is a
// configuration problem and is not recovered.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("warehouse result is missing expected columns: %s", strings.Join(e.Missing, ", "))
}

// lateTrue is the set of string encodings that mean "late".
var lateTrue = map[string]bool{"TRUE": true, "1": true, "YES": true, "T": true}

// NormalizeLate resolves the heterogeneous LATE encodings to a boolean.
// Booleans pass through unchanged; nil is false; every other value is
// compared, upper-cased and trimmed, against TRUE, 1, YES and T.
func NormalizeLate(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case *bool:
		return t != nil && *t
	case string:
		return lateTrue[strings.ToUpper(strings.TrimSpace(t))]
	case []byte:
		return lateTrue[strings.ToUpper(strings.TrimSpace(string(t)))]
	default:
		return lateTrue[strings.ToUpper(strings.TrimSpace(fmt.Sprint(t)))]
	}
}

// Normalize coerces raw rows into records. Unparseable dates and
// non-numeric scores become nil; a missing required column is a
// *SchemaError. Zero rows is not an error.
func Normalize(rows []warehouse.RawRow) ([]Record, error) {
	if len(rows) == 0 {
		return []Record{}, nil
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := rows[0][col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, Record{
			Product:        toText(row[warehouse.ColProduct]),
			Date:           toDate(row[warehouse.ColDate]),
			Summary:        toTextPtr(row[warehouse.ColSummary]),
			SentimentScore: toFloat(row[warehouse.ColSentimentScore]),
			OrderID:        toText(row[warehouse.ColOrderID]),
			ShippingDate:   toDate(row[warehouse.ColShippingDate]),
			Carrier:        toTextPtr(row[warehouse.ColCarrier]),
			DeliveryDays:   toFloat(row[warehouse.ColDeliveryDays]),
			Late:           NormalizeLate(row[warehouse.ColLate]),
			Region:         toTextPtr(row[warehouse.ColRegion]),
			Status:         toTextPtr(row[warehouse.ColStatus]),
		})
	}
	return out, nil
}

func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func toTextPtr(v any) *string {
	if v == nil {
		return nil
	}
	s := toText(v)
	return &s
}

// toFloat parses numeric values; NaN, ±Inf and anything non-numeric become nil.
func toFloat(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case bool:
		return nil
	default:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(toText(t)), 64)
		if err != nil {
			return nil
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
}

// toDate returns the calendar date (midnight UTC) of v, or nil.
func toDate(v any) *time.Time {
	var t time.Time
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		t = x
	case *time.Time:
		if x == nil {
			return nil
		}
		t = *x
	default:
		s := strings.TrimSpace(toText(x))
		parsed, ok := parseDate(s)
		if !ok {
			return nil
		}
		t = parsed
	}
	if t.IsZero() {
		return nil
	}
	d := Day(t)
	return &d
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Day truncates t to its calendar date at midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
