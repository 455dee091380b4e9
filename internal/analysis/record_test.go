package analysis

import (
	"errors"
	"testing"
	"time"

	"github.com/KaramelBytes/shipsight/internal/warehouse"
)

func TestNormalizeLateTruthTable(t *testing.T) {
	cases := []struct {
		in   any
		want bool
	}{
		{true, true},
		{false, false},
		{"TRUE", true},
		{"true", true},
		{"1", true},
		{"YES", true},
		{"yes", true},
		{"t", true},
		{" Yes ", true},
		{[]byte("T"), true},
		{"no", false},
		{"FALSE", false},
		{"0", false},
		{"", false},
		{"late", false},
		{"Y", false},
		{nil, false},
		{int64(1), true},
		{int64(0), false},
		{int64(2), false},
		{1.0, true},
	}
	for _, c := range cases {
		if got := NormalizeLate(c.in); got != c.want {
			t.Errorf("NormalizeLate(%#v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNormalizeLateIdempotent(t *testing.T) {
	for _, in := range []any{true, false, "yes", "no", "T", nil, "1"} {
		once := NormalizeLate(in)
		if twice := NormalizeLate(once); twice != once {
			t.Errorf("NormalizeLate not idempotent for %#v: %v then %v", in, once, twice)
		}
	}
}

func fullRow(late any) warehouse.RawRow {
	return warehouse.RawRow{
		warehouse.ColProduct:        "Parka",
		warehouse.ColDate:           "2024-03-01",
		warehouse.ColSummary:        "warm enough",
		warehouse.ColSentimentScore: "0.42",
		warehouse.ColOrderID:        int64(1001),
		warehouse.ColShippingDate:   time.Date(2024, 2, 27, 13, 5, 0, 0, time.UTC),
		warehouse.ColCarrier:        "UPS",
		warehouse.ColDeliveryDays:   int64(4),
		warehouse.ColLate:           late,
		warehouse.ColRegion:         "NE",
		warehouse.ColStatus:         "delivered",
	}
}

func TestNormalizeCoercesTypes(t *testing.T) {
	recs, err := Normalize([]warehouse.RawRow{fullRow("yes"), fullRow("no")})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	r := recs[0]
	if r.Product != "Parka" || r.OrderID != "1001" {
		t.Fatalf("unexpected text fields: %+v", r)
	}
	if r.Date == nil || !r.Date.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date = %v", r.Date)
	}
	if r.ShippingDate == nil || r.ShippingDate.Hour() != 0 {
		t.Fatalf("shipping date should be truncated to the day: %v", r.ShippingDate)
	}
	if r.SentimentScore == nil || *r.SentimentScore != 0.42 {
		t.Fatalf("sentiment = %v", r.SentimentScore)
	}
	if r.DeliveryDays == nil || *r.DeliveryDays != 4 {
		t.Fatalf("delivery days = %v", r.DeliveryDays)
	}
	if !recs[0].Late || recs[1].Late {
		t.Fatalf(`late "yes"/"no" normalized to %v/%v`, recs[0].Late, recs[1].Late)
	}
}

func TestNormalizeBadValuesBecomeNil(t *testing.T) {
	row := fullRow(nil)
	row[warehouse.ColDate] = "last tuesday"
	row[warehouse.ColSentimentScore] = "great"
	row[warehouse.ColDeliveryDays] = "NaN"
	row[warehouse.ColRegion] = nil
	row[warehouse.ColSummary] = nil
	recs, err := Normalize([]warehouse.RawRow{row})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	r := recs[0]
	if r.Date != nil || r.SentimentScore != nil || r.DeliveryDays != nil || r.Region != nil || r.Summary != nil {
		t.Fatalf("expected nil fields, got %+v", r)
	}
	if r.Late {
		t.Fatalf("nil late should be false")
	}
}

func TestNormalizeMissingColumnIsSchemaError(t *testing.T) {
	row := fullRow(true)
	delete(row, warehouse.ColRegion)
	delete(row, warehouse.ColLate)
	_, err := Normalize([]warehouse.RawRow{row})
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SchemaError, got %v", err)
	}
	if len(se.Missing) != 2 {
		t.Fatalf("missing = %v", se.Missing)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	recs, err := Normalize(nil)
	if err != nil || recs == nil || len(recs) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v, %v", recs, err)
	}
}
