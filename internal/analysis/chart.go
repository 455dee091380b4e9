package analysis

import (
	"fmt"
	"math"
)

// BarChart is a horizontal bar series ready for a browser charting library.
type BarChart struct {
	Labels []string   `json:"labels"`
	Values []*float64 `json:"values"`
	// Text holds the value labels drawn next to each bar.
	Text   []string `json:"text"`
	Counts []int    `json:"counts"`
	Colors []string `json:"colors"`
	Height int      `json:"height"`
	// ZeroLine marks x=0 so negative regions stand out.
	ZeroLine bool `json:"zero_line"`
}

// Colour stops of the red-yellow-green scale.
var rdYlGn = [3][3]float64{
	{215, 48, 39},
	{255, 255, 191},
	{26, 152, 80},
}

const noDataColor = "#9e9e9e"

// RegionChart lays out the regional sentiment bars in summary order.
func RegionChart(regions []RegionSentimentSummary) BarChart {
	n := len(regions)
	c := BarChart{
		Labels:   make([]string, 0, n),
		Values:   make([]*float64, 0, n),
		Text:     make([]string, 0, n),
		Counts:   make([]int, 0, n),
		Colors:   make([]string, 0, n),
		ZeroLine: true,
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range regions {
		if r.AvgSentiment != nil {
			lo = math.Min(lo, *r.AvgSentiment)
			hi = math.Max(hi, *r.AvgSentiment)
		}
	}
	for _, r := range regions {
		c.Labels = append(c.Labels, r.Region)
		c.Values = append(c.Values, r.AvgSentiment)
		c.Counts = append(c.Counts, r.OrderCount)
		c.Text = append(c.Text, FormatScore(r.AvgSentiment, 2))
		if r.AvgSentiment == nil {
			c.Colors = append(c.Colors, noDataColor)
			continue
		}
		pos := 0.5
		if hi > lo {
			pos = (*r.AvgSentiment - lo) / (hi - lo)
		}
		c.Colors = append(c.Colors, scaleColor(pos))
	}
	c.Height = chartHeight(n)
	return c
}

// chartHeight gives 50px per bar, clamped to [300, 600].
func chartHeight(bars int) int {
	h := bars * 50
	if h < 300 {
		return 300
	}
	if h > 600 {
		return 600
	}
	return h
}

// scaleColor interpolates the scale at pos in [0, 1].
func scaleColor(pos float64) string {
	pos = math.Max(0, math.Min(1, pos))
	from, to, t := rdYlGn[0], rdYlGn[1], pos*2
	if pos > 0.5 {
		from, to, t = rdYlGn[1], rdYlGn[2], (pos-0.5)*2
	}
	var rgb [3]int
	for i := range rgb {
		rgb[i] = int(math.Round(from[i] + (to[i]-from[i])*t))
	}
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}
