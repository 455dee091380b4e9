package analysis

import (
	"sort"
	"time"
)

const (
	maxOverviewProducts = 5
	maxOverviewRegions  = 8
)

// Overview holds the headline metrics of a filtered set.
type Overview struct {
	TotalReviews int      `json:"total_reviews"`
	AvgSentiment *float64 `json:"avg_sentiment"`
	MinSentiment *float64 `json:"min_sentiment"`
	MaxSentiment *float64 `json:"max_sentiment"`
	LateCount    int      `json:"late_count"`
	OnTimeCount  int      `json:"on_time_count"`
	// LatePct is late/total*100 to one decimal; 0 for an empty set.
	LatePct float64 `json:"late_pct"`
	// Products and Regions list the first distinct values in record order.
	Products  []string   `json:"products"`
	Regions   []string   `json:"regions"`
	FirstDate *time.Time `json:"first_date"`
	LastDate  *time.Time `json:"last_date"`
}

// Summarize computes the Overview of records.
func Summarize(records []Record) Overview {
	ov := Overview{TotalReviews: len(records), Products: []string{}, Regions: []string{}}
	var sent mean
	seenProduct := map[string]bool{}
	seenRegion := map[string]bool{}
	for _, r := range records {
		if s := r.SentimentScore; s != nil {
			sent.add(s)
			if ov.MinSentiment == nil || *s < *ov.MinSentiment {
				ov.MinSentiment = ptr(*s)
			}
			if ov.MaxSentiment == nil || *s > *ov.MaxSentiment {
				ov.MaxSentiment = ptr(*s)
			}
		}
		if r.Late {
			ov.LateCount++
		} else {
			ov.OnTimeCount++
		}
		if !seenProduct[r.Product] {
			seenProduct[r.Product] = true
			if len(ov.Products) < maxOverviewProducts {
				ov.Products = append(ov.Products, r.Product)
			}
		}
		if r.Region != nil && !seenRegion[*r.Region] {
			seenRegion[*r.Region] = true
			if len(ov.Regions) < maxOverviewRegions {
				ov.Regions = append(ov.Regions, *r.Region)
			}
		}
		if d := r.Date; d != nil {
			if ov.FirstDate == nil || d.Before(*ov.FirstDate) {
				ov.FirstDate = ptr(*d)
			}
			if ov.LastDate == nil || d.After(*ov.LastDate) {
				ov.LastDate = ptr(*d)
			}
		}
	}
	ov.AvgSentiment = sent.value()
	ov.LatePct = percent1(ov.LateCount, ov.TotalReviews)
	return ov
}

// Choices are the selectable filter values for a record set.
type Choices struct {
	// Products and Regions are sorted and start with the All sentinel.
	Products []string   `json:"products"`
	Regions  []string   `json:"regions"`
	MinDate  *time.Time `json:"min_date"`
	MaxDate  *time.Time `json:"max_date"`
}

// FilterChoices lists the products, regions and date bounds of records.
// Records without a region contribute no region choice.
func FilterChoices(records []Record) Choices {
	products := map[string]bool{}
	regions := map[string]bool{}
	var c Choices
	for _, r := range records {
		if r.Product != "" {
			products[r.Product] = true
		}
		if r.Region != nil && *r.Region != "" {
			regions[*r.Region] = true
		}
		if d := r.Date; d != nil {
			if c.MinDate == nil || d.Before(*c.MinDate) {
				c.MinDate = ptr(*d)
			}
			if c.MaxDate == nil || d.After(*c.MaxDate) {
				c.MaxDate = ptr(*d)
			}
		}
	}
	c.Products = withAll(products)
	c.Regions = withAll(regions)
	return c
}

func withAll(set map[string]bool) []string {
	vals := make([]string, 0, len(set))
	for v := range set {
		vals = append(vals, v)
	}
	sort.Strings(vals)
	return append([]string{All}, vals...)
}

func ptr[T any](v T) *T { return &v }
