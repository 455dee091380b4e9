package chat

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/shipsight/internal/analysis"
	"github.com/KaramelBytes/shipsight/internal/utils"
	"github.com/olekukonko/tablewriter"
)

const (
	maxContextRegions  = 10
	maxContextProblems = 5
)

const preamble = "You are an intelligent data analyst assistant for Avalanche's product team.\n\n"

const answerRules = `FORMATTING RULES (follow the one matching the question):

1. List questions (top, best, worst, which, show me): bullet points, each
   starting with the **bold** region or product name, then the numbers.
2. Comparison questions (compare, versus, difference): a markdown table
   with one row per item and the key metrics as columns.
3. Count questions (how many, total, count): the answer first in **bold**,
   then one or two sentences of explanation.
4. Analysis questions (why, explain, what's causing): short paragraphs of
   at most three sentences, key findings in **bold**, evidence as bullets.
5. Trend questions (over time, trending, changes): a summary sentence, then
   a numbered timeline with dates and numbers.
6. Recommendation questions (what should we do, suggest, recommend):
   numbered actions formatted as **1. Action**: expected impact.
7. Always: bold region names, product names and key metrics; write 0.52
   not .52 and 27.0% not 27%; emojis are welcome (📊 📈 📉 ⚠️ ✅ ❌); stay
   under 200 words; separate sections with blank lines.

Answer the user's question now using the matching format.`

// BuildContext renders the prompt for one question: the headline metrics
// of the filtered data, the regional and problem-area tables, the question
// and the answer rules. Only the data section is trimmed when the prompt
// exceeds tokenLimit; tokenLimit <= 0 means no limit.
func BuildContext(snap *analysis.Snapshot, question string, tokenLimit int) string {
	data := dataSection(snap)
	tail := fmt.Sprintf("\nUser's Question: %q\n\n%s", question, answerRules)
	if tokenLimit > 0 {
		room := tokenLimit - utils.CountTokens(preamble) - utils.CountTokens(tail)
		if room < 0 {
			room = 0
		}
		if utils.CountTokens(data) > room {
			data = utils.TruncateToTokenLimit(data, room) + "\n[data truncated]\n"
		}
	}
	return preamble + data + tail
}

func dataSection(snap *analysis.Snapshot) string {
	ov := snap.Overview
	var b strings.Builder
	b.WriteString("Current Data Insights:\n")
	b.WriteString("━━━━━━━━━━━━━━━━━━\n")
	b.WriteString("📊 Overview:\n")
	fmt.Fprintf(&b, "- Filters: %s\n", snap.Filters.Describe())
	fmt.Fprintf(&b, "- Total Reviews: %d\n", ov.TotalReviews)
	fmt.Fprintf(&b, "- Average Sentiment: %s\n", analysis.FormatScore(ov.AvgSentiment, 3))
	fmt.Fprintf(&b, "- Sentiment Range: %s to %s\n",
		analysis.FormatScore(ov.MinSentiment, 2), analysis.FormatScore(ov.MaxSentiment, 2))
	fmt.Fprintf(&b, "- Late Deliveries: %d (%.1f%%)\n", ov.LateCount, ov.LatePct)
	fmt.Fprintf(&b, "- On-Time Deliveries: %d\n\n", ov.OnTimeCount)

	fmt.Fprintf(&b, "📦 Products: %s\n", joinOrNA(ov.Products))
	fmt.Fprintf(&b, "🗺️ Regions: %s\n", joinOrNA(ov.Regions))
	dates := "n/a"
	if ov.FirstDate != nil && ov.LastDate != nil {
		dates = ov.FirstDate.Format("2006-01-02") + " to " + ov.LastDate.Format("2006-01-02")
	}
	fmt.Fprintf(&b, "📅 Date Range: %s\n\n", dates)

	b.WriteString("🎯 Regional Performance (sorted by sentiment):\n")
	if len(snap.Regions) == 0 {
		b.WriteString("No regional data\n")
	} else {
		t := newTable(&b, "REGION", "AVG_SENTIMENT", "ORDER_COUNT")
		for i, r := range snap.Regions {
			if i == maxContextRegions {
				break
			}
			t.Append([]string{r.Region, analysis.FormatScore(r.AvgSentiment, 3), fmt.Sprint(r.OrderCount)})
		}
		t.Render()
	}

	b.WriteString("\n⚠️ Problem Areas:\n")
	if len(snap.ProblemAreas) == 0 {
		b.WriteString("No major issues detected\n")
	} else {
		t := newTable(&b, "REGION", "PRODUCT", "TOTAL_ISSUES", "AVG_SENTIMENT", "LATE_PCT")
		for i, a := range snap.ProblemAreas {
			if i == maxContextProblems {
				break
			}
			t.Append([]string{a.Region, a.Product, fmt.Sprint(a.TotalIssues),
				analysis.FormatScore(a.AvgSentiment, 3), fmt.Sprintf("%.1f", a.LatePct)})
		}
		t.Render()
	}
	return b.String()
}

// newTable returns a borderless, left-aligned plain-text table.
func newTable(b *strings.Builder, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(b)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	t.SetBorder(false)
	t.SetHeaderLine(false)
	t.SetColumnSeparator("")
	t.SetCenterSeparator("")
	t.SetRowSeparator("")
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetTablePadding("  ")
	t.SetNoWhiteSpace(true)
	return t
}

func joinOrNA(vals []string) string {
	if len(vals) == 0 {
		return "n/a"
	}
	return strings.Join(vals, ", ")
}
