package analysis

import (
	"sort"

	"github.com/shopspring/decimal"
)

// UnknownRegion groups records with no shipment region.
const UnknownRegion = "Unknown"

// DefaultTopN is how many problem areas the dashboard highlights.
const DefaultTopN = 3

// RegionSentimentSummary aggregates one region of the filtered set.
type RegionSentimentSummary struct {
	Region string `json:"region"`
	// AvgSentiment is nil when no record in the region has a score.
	AvgSentiment *float64 `json:"avg_sentiment"`
	// OrderCount counts every record, scored or not.
	OrderCount int `json:"order_count"`
}

// ProblemAreaSummary aggregates the issue records of one (region, product).
type ProblemAreaSummary struct {
	Region       string   `json:"region"`
	Product      string   `json:"product"`
	TotalIssues  int      `json:"total_issues"`
	AvgSentiment *float64 `json:"avg_sentiment"`
	LateCount    int      `json:"late_count"`
	LatePct      float64  `json:"late_pct"`
}

// IsIssue reports whether r had negative sentiment or a late shipment.
func IsIssue(r Record) bool {
	return r.Late || (r.SentimentScore != nil && *r.SentimentScore < 0)
}

// mean accumulates an average over non-nil values.
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}

func regionKey(r Record) string {
	if r.Region == nil || *r.Region == "" {
		return UnknownRegion
	}
	return *r.Region
}

// AggregateRegions groups records by region. Regions are ordered by
// ascending average sentiment (unscored regions last), then by higher order
// count, then by name.
func AggregateRegions(records []Record) []RegionSentimentSummary {
	type acc struct {
		sent  mean
		count int
	}
	groups := map[string]*acc{}
	for _, r := range records {
		k := regionKey(r)
		g, ok := groups[k]
		if !ok {
			g = &acc{}
			groups[k] = g
		}
		g.sent.add(r.SentimentScore)
		g.count++
	}
	out := make([]RegionSentimentSummary, 0, len(groups))
	for k, g := range groups {
		out = append(out, RegionSentimentSummary{Region: k, AvgSentiment: g.sent.value(), OrderCount: g.count})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := compareAvg(out[i].AvgSentiment, out[j].AvgSentiment); c != 0 {
			return c < 0
		}
		if out[i].OrderCount != out[j].OrderCount {
			return out[i].OrderCount > out[j].OrderCount
		}
		return out[i].Region < out[j].Region
	})
	return out
}

// AggregateProblemAreas groups the issue records by (region, product).
// Ordering matches AggregateRegions with product name as a final key.
func AggregateProblemAreas(records []Record) []ProblemAreaSummary {
	type key struct{ region, product string }
	type acc struct {
		sent  mean
		total int
		late  int
	}
	groups := map[key]*acc{}
	for _, r := range records {
		if !IsIssue(r) {
			continue
		}
		k := key{regionKey(r), r.Product}
		g, ok := groups[k]
		if !ok {
			g = &acc{}
			groups[k] = g
		}
		g.sent.add(r.SentimentScore)
		g.total++
		if r.Late {
			g.late++
		}
	}
	out := make([]ProblemAreaSummary, 0, len(groups))
	for k, g := range groups {
		out = append(out, ProblemAreaSummary{
			Region:       k.region,
			Product:      k.product,
			TotalIssues:  g.total,
			AvgSentiment: g.sent.value(),
			LateCount:    g.late,
			LatePct:      percent1(g.late, g.total),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := compareAvg(out[i].AvgSentiment, out[j].AvgSentiment); c != 0 {
			return c < 0
		}
		if out[i].TotalIssues != out[j].TotalIssues {
			return out[i].TotalIssues > out[j].TotalIssues
		}
		if out[i].Region != out[j].Region {
			return out[i].Region < out[j].Region
		}
		return out[i].Product < out[j].Product
	})
	return out
}

// TopProblemAreas returns the first n areas of an already sorted slice.
func TopProblemAreas(areas []ProblemAreaSummary, n int) []ProblemAreaSummary {
	if n < 0 {
		n = 0
	}
	if n > len(areas) {
		n = len(areas)
	}
	return areas[:n:n]
}

// NegativeRegions returns the regions with a negative average, keeping the
// input order (most negative first).
func NegativeRegions(regions []RegionSentimentSummary) []RegionSentimentSummary {
	out := []RegionSentimentSummary{}
	for _, r := range regions {
		if r.AvgSentiment != nil && *r.AvgSentiment < 0 {
			out = append(out, r)
		}
	}
	return out
}

// compareAvg orders averages ascending with nil after every value.
func compareAvg(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}

// percent1 returns part/total*100 rounded half away from zero to one
// decimal, or 0 when total is 0.
func percent1(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(total)), 8).
		Round(1)
	return pct.InexactFloat64()
}
