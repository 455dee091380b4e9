package analysis

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestRunEmptySet(t *testing.T) {
	snap := Run(nil, Filters{})
	ov := snap.Overview
	if ov.TotalReviews != 0 || ov.LateCount != 0 || ov.LatePct != 0 {
		t.Fatalf("overview = %+v", ov)
	}
	if FormatScore(ov.AvgSentiment, 3) != "n/a" {
		t.Fatalf("avg sentiment of empty set should render n/a")
	}
	if len(snap.Regions) != 0 || len(snap.ProblemAreas) != 0 || len(snap.TopProblems) != 0 {
		t.Fatalf("expected no rows, got %+v", snap)
	}
	md := snap.Markdown()
	for _, want := range []string{"Total Reviews: 0", "Avg Sentiment: n/a", "Late %: 0.0%", "No delivery issues"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestRunFiltersBeforeAggregating(t *testing.T) {
	snap := Run(sampleRecords(), Filters{Product: "Parka"})
	if snap.Overview.TotalReviews != 3 {
		t.Fatalf("total = %d, want 3", snap.Overview.TotalReviews)
	}
	if len(snap.Records) != 3 {
		t.Fatalf("records = %d", len(snap.Records))
	}
	if len(snap.ProblemAreas) != 1 || snap.ProblemAreas[0].Product != "Parka" {
		t.Fatalf("problem areas = %+v", snap.ProblemAreas)
	}
}

func TestSummarize(t *testing.T) {
	ov := Summarize(sampleRecords())
	if ov.TotalReviews != 6 || ov.LateCount != 2 || ov.OnTimeCount != 4 {
		t.Fatalf("counts = %+v", ov)
	}
	if ov.LatePct != 33.3 {
		t.Fatalf("late pct = %v", ov.LatePct)
	}
	// 0.6 - 0.4 - 0.1 + 0.2 + 0.3 over five scored records
	if !approx(*ov.AvgSentiment, 0.12) {
		t.Fatalf("avg = %v", *ov.AvgSentiment)
	}
	if *ov.MinSentiment != -0.4 || *ov.MaxSentiment != 0.6 {
		t.Fatalf("range = %v..%v", *ov.MinSentiment, *ov.MaxSentiment)
	}
	if len(ov.Products) != 2 || ov.Products[0] != "Parka" {
		t.Fatalf("products = %v", ov.Products)
	}
	if strings.Join(ov.Regions, ",") != "NE,SW,MW" {
		t.Fatalf("regions = %v", ov.Regions)
	}
	if !ov.FirstDate.Equal(*day("2024-03-01")) || !ov.LastDate.Equal(*day("2024-04-02")) {
		t.Fatalf("dates = %v..%v", ov.FirstDate, ov.LastDate)
	}
}

func TestFilterChoices(t *testing.T) {
	c := FilterChoices(sampleRecords())
	if strings.Join(c.Products, ",") != "All,Boots,Parka" {
		t.Fatalf("products = %v", c.Products)
	}
	if strings.Join(c.Regions, ",") != "All,MW,NE,SW" {
		t.Fatalf("regions = %v", c.Regions)
	}
	if !c.MinDate.Equal(*day("2024-03-01")) || !c.MaxDate.Equal(*day("2024-04-02")) {
		t.Fatalf("date bounds = %v..%v", c.MinDate, c.MaxDate)
	}
}

func TestMarkdownListsProblemAreas(t *testing.T) {
	snap := Run(sampleRecords(), Filters{DateRange: []time.Time{*day("2024-03-01"), *day("2024-04-30")}})
	md := snap.Markdown()
	for _, want := range []string{
		"Filters: product=All, region=All, 2024-03-01 to 2024-04-30",
		"- SW: -0.400 (1 orders)",
		"[TOP 3 PROBLEM AREAS]",
		"#1: SW | avg -0.40, 100% late | 📦 Parka, 1 orders",
		"avg n/a",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestRegionChart(t *testing.T) {
	regions := AggregateRegions(sampleRecords())
	c := RegionChart(regions)
	if len(c.Labels) != 4 || c.Labels[0] != "SW" {
		t.Fatalf("labels = %v", c.Labels)
	}
	if c.Colors[0] != "#d73027" {
		t.Fatalf("most negative bar should be red, got %s", c.Colors[0])
	}
	if c.Colors[2] != "#1a9850" {
		t.Fatalf("most positive bar should be green, got %s", c.Colors[2])
	}
	if c.Colors[3] != noDataColor || c.Text[3] != "n/a" {
		t.Fatalf("unscored region should be grey n/a, got %s %s", c.Colors[3], c.Text[3])
	}
	if c.Height != 300 {
		t.Fatalf("height = %d, want 300 minimum", c.Height)
	}
	if chartHeight(20) != 600 || chartHeight(8) != 400 {
		t.Fatalf("height clamp wrong")
	}
}

func TestRegionChartEmptyMarshalsArrays(t *testing.T) {
	b, err := json.Marshal(RegionChart(nil))
	if err != nil {
		t.Fatal(err)
	}
	got := string(b)
	for _, field := range []string{"labels", "values", "text", "counts", "colors"} {
		if !strings.Contains(got, `"`+field+`":[]`) {
			t.Fatalf("%s should marshal as [], got %s", field, got)
		}
	}
}
