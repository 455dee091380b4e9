package analysis

import (
	"fmt"
	"strings"
)

// Snapshot is everything one dashboard render needs, computed from scratch
// for a filter selection.
type Snapshot struct {
	Filters         Filters                  `json:"filters"`
	Overview        Overview                 `json:"overview"`
	Regions         []RegionSentimentSummary `json:"regions"`
	NegativeRegions []RegionSentimentSummary `json:"negative_regions"`
	ProblemAreas    []ProblemAreaSummary     `json:"problem_areas"`
	TopProblems     []ProblemAreaSummary     `json:"top_problems"`
	// Records is the filtered set, exposed for the data preview.
	Records []Record `json:"-"`
}

// Run filters records and computes every summary.
func Run(records []Record, f Filters) *Snapshot {
	filtered := Filter(records, f)
	regions := AggregateRegions(filtered)
	areas := AggregateProblemAreas(filtered)
	return &Snapshot{
		Filters:         f,
		Overview:        Summarize(filtered),
		Regions:         regions,
		NegativeRegions: NegativeRegions(regions),
		ProblemAreas:    areas,
		TopProblems:     TopProblemAreas(areas, DefaultTopN),
		Records:         filtered,
	}
}

// FormatScore renders an optional average with the given precision, or
// "n/a" when it is undefined.
func FormatScore(v *float64, prec int) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", prec, *v)
}

// Describe renders the filter selection for headings.
func (f Filters) Describe() string {
	product, region := f.Product, f.Region
	if isAll(product) {
		product = All
	}
	if isAll(region) {
		region = All
	}
	dates := "all dates"
	if len(f.DateRange) == 2 {
		dates = fmt.Sprintf("%s to %s", f.DateRange[0].Format("2006-01-02"), f.DateRange[1].Format("2006-01-02"))
	}
	return fmt.Sprintf("product=%s, region=%s, %s", product, region, dates)
}

// Markdown renders the snapshot as a plain-text report.
func (s *Snapshot) Markdown() string {
	var b strings.Builder
	ov := s.Overview
	b.WriteString("[CUSTOMER SENTIMENT & DELIVERY SUMMARY]\n")
	b.WriteString(fmt.Sprintf("Filters: %s\n", s.Filters.Describe()))
	b.WriteString(fmt.Sprintf("Total Reviews: %d\n", ov.TotalReviews))
	b.WriteString(fmt.Sprintf("Avg Sentiment: %s\n", FormatScore(ov.AvgSentiment, 3)))
	b.WriteString(fmt.Sprintf("Late Deliveries: %d\n", ov.LateCount))
	b.WriteString(fmt.Sprintf("Late %%: %.1f%%\n\n", ov.LatePct))

	b.WriteString("[AVERAGE SENTIMENT BY REGION]\n")
	if len(s.Regions) == 0 {
		b.WriteString("- no data\n")
	}
	for _, r := range s.Regions {
		b.WriteString(fmt.Sprintf("- %s: %s (%d orders)\n", r.Region, FormatScore(r.AvgSentiment, 3), r.OrderCount))
	}

	b.WriteString("\n[REGIONS WITH MOST NEGATIVE FEEDBACK]\n")
	if len(s.NegativeRegions) == 0 {
		b.WriteString("✅ No regions with negative sentiment!\n")
	}
	for _, r := range s.NegativeRegions {
		b.WriteString(fmt.Sprintf("- %s: %s (%d orders)\n", r.Region, FormatScore(r.AvgSentiment, 3), r.OrderCount))
	}

	b.WriteString("\n[DELIVERY ISSUES]\n")
	if len(s.ProblemAreas) == 0 {
		b.WriteString("✅ No delivery issues found in the filtered data!\n")
		return b.String()
	}
	for _, a := range s.ProblemAreas {
		b.WriteString(fmt.Sprintf("- %s / %s: %d issues, avg %s, %d late (%.1f%%)\n",
			a.Region, a.Product, a.TotalIssues, FormatScore(a.AvgSentiment, 3), a.LateCount, a.LatePct))
	}
	b.WriteString("\n[TOP 3 PROBLEM AREAS]\n")
	for i, a := range s.TopProblems {
		b.WriteString(fmt.Sprintf("#%d: %s | avg %s, %.0f%% late | 📦 %s, %d orders\n",
			i+1, a.Region, FormatScore(a.AvgSentiment, 2), a.LatePct, a.Product, a.TotalIssues))
	}
	return b.String()
}
