package analysis

import (
	"fmt"
	"strings"
	"time"
)

// All is the sentinel meaning "no restriction" for product and region.
const All = "All"

// Filters are the user-selected predicates. Empty or All product/region
// means no filtering. DateRange applies only when it holds exactly two
// bounds, both inclusive.
type Filters struct {
	Product   string      `json:"product"`
	Region    string      `json:"region"`
	DateRange []time.Time `json:"date_range,omitempty"`
}

// Predicate reports whether a record passes one filter.
type Predicate func(Record) bool

// ProductIs matches records whose product equals p. Empty or All matches
// everything.
func ProductIs(p string) Predicate {
	if isAll(p) {
		return nil
	}
	return func(r Record) bool { return r.Product == p }
}

// RegionIs matches records whose region equals region. Records without a
// shipment never match a concrete region.
func RegionIs(region string) Predicate {
	if isAll(region) {
		return nil
	}
	return func(r Record) bool { return r.Region != nil && *r.Region == region }
}

// DateBetween matches records dated within [start, end]. A record with no
// date never matches.
func DateBetween(start, end time.Time) Predicate {
	start, end = Day(start), Day(end)
	return func(r Record) bool {
		if r.Date == nil {
			return false
		}
		return !r.Date.Before(start) && !r.Date.After(end)
	}
}

// Predicates expands f into its active predicates.
func (f Filters) Predicates() []Predicate {
	var preds []Predicate
	if p := ProductIs(f.Product); p != nil {
		preds = append(preds, p)
	}
	if len(f.DateRange) == 2 {
		preds = append(preds, DateBetween(f.DateRange[0], f.DateRange[1]))
	}
	if p := RegionIs(f.Region); p != nil {
		preds = append(preds, p)
	}
	return preds
}

// IsEmpty reports whether f filters nothing.
func (f Filters) IsEmpty() bool { return len(f.Predicates()) == 0 }

// Filter returns the records passing every filter in f. The input is never
// modified; with no active filter the result holds the same records.
func Filter(records []Record, f Filters) []Record {
	return Apply(records, f.Predicates()...)
}

// Apply keeps the records matching all preds (logical AND).
func Apply(records []Record, preds ...Predicate) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if matchAll(r, preds) {
			out = append(out, r)
		}
	}
	return out
}

func matchAll(r Record, preds []Predicate) bool {
	for _, p := range preds {
		if p != nil && !p(r) {
			return false
		}
	}
	return true
}

func isAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == All
}

// ParseFilters builds Filters from request/flag values. Dates use
// YYYY-MM-DD; a single bound is kept but, like the UI, ignored.
func ParseFilters(product, region, start, end string) (Filters, error) {
	f := Filters{Product: strings.TrimSpace(product), Region: strings.TrimSpace(region)}
	for _, s := range []string{start, end} {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return Filters{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
		}
		f.DateRange = append(f.DateRange, t)
	}
	return f, nil
}
