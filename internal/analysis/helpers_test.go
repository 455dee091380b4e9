package analysis

import "time"

func fp(v float64) *float64 { return &v }

func sp(v string) *string { return &v }

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

// sampleRecords spans two products, three regions, a missing shipment and
// a missing date.
func sampleRecords() []Record {
	return []Record{
		{Product: "Parka", Date: day("2024-03-01"), SentimentScore: fp(0.6), OrderID: "1", Region: sp("NE")},
		{Product: "Parka", Date: day("2024-03-05"), SentimentScore: fp(-0.4), OrderID: "2", Region: sp("SW"), Late: true},
		{Product: "Boots", Date: day("2024-03-10"), SentimentScore: fp(-0.1), OrderID: "3", Region: sp("NE")},
		{Product: "Boots", Date: day("2024-04-02"), SentimentScore: nil, OrderID: "4", Region: sp("MW"), Late: true},
		{Product: "Boots", Date: nil, SentimentScore: fp(0.2), OrderID: "5", Region: sp("SW")},
		{Product: "Parka", Date: day("2024-03-15"), SentimentScore: fp(0.3), OrderID: "6"},
	}
}
