package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// demoSchema creates the two source tables on SQLite.
var demoSchema = []string{
	`CREATE TABLE IF NOT EXISTS customer_reviews (
    order_id TEXT PRIMARY KEY,
    product TEXT NOT NULL,
    date TEXT,
    summary TEXT,
    sentiment_score REAL
)`,
	`CREATE TABLE IF NOT EXISTS shipping_logs (
    order_id TEXT PRIMARY KEY,
    shipping_date TEXT,
    carrier TEXT,
    delivery_days INTEGER,
    late TEXT,
    region TEXT,
    status TEXT
)`,
}

var (
	demoProducts = []string{"Ski Boots", "Snowboard", "Parka", "Goggles", "Gloves"}
	demoRegions  = []string{"Northeast", "Southeast", "Midwest", "Southwest", "West"}
	demoCarriers = []string{"UPS", "FedEx", "USPS", "DHL"}
	// Different systems wrote LATE differently; the demo keeps that mix.
	demoLate = [][2]string{{"TRUE", "FALSE"}, {"yes", "no"}, {"1", "0"}, {"T", "F"}}
	// Chance of a late delivery per region.
	demoLateRate = map[string]float64{
		"Northeast": 0.05, "Southeast": 0.15, "Midwest": 0.2, "Southwest": 0.35, "West": 0.1,
	}
)

// SeedDemo fills db with n generated reviews and their shipments. The same
// seed always produces the same data. Roughly one order in ten has no
// shipment row. Existing rows are replaced.
func SeedDemo(ctx context.Context, db *sql.DB, n int, seed int64) error {
	for _, stmt := range demoSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create demo schema: %w", err)
		}
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, t := range []string{"customer_reviews", "shipping_logs"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("clear %s: %w", t, err)
		}
	}
	review, err := tx.PrepareContext(ctx, `INSERT INTO customer_reviews (order_id, product, date, summary, sentiment_score) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare reviews: %w", err)
	}
	defer review.Close()
	ship, err := tx.PrepareContext(ctx, `INSERT INTO shipping_logs (order_id, shipping_date, carrier, delivery_days, late, region, status) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare shipments: %w", err)
	}
	defer ship.Close()

	rng := rand.New(rand.NewSource(seed))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		orderID := fmt.Sprintf("ORD-%05d", i+1)
		product := demoProducts[rng.Intn(len(demoProducts))]
		region := demoRegions[rng.Intn(len(demoRegions))]
		shipped := start.AddDate(0, 0, rng.Intn(90))
		late := rng.Float64() < demoLateRate[region]
		days := 2 + rng.Intn(4)
		if late {
			days += 3 + rng.Intn(5)
		}
		reviewed := shipped.AddDate(0, 0, days+rng.Intn(5))
		score := rng.NormFloat64()*0.3 + 0.35
		if late {
			score -= 0.6
		}
		score = math.Round(math.Max(-1, math.Min(1, score))*100) / 100

		var sentiment any = score
		if rng.Intn(25) == 0 {
			sentiment = nil
		}
		if _, err := review.ExecContext(ctx, orderID, product, reviewed.Format("2006-01-02"), demoSummary(score), sentiment); err != nil {
			return fmt.Errorf("insert review %s: %w", orderID, err)
		}
		if rng.Intn(10) == 0 {
			continue
		}
		enc := demoLate[rng.Intn(len(demoLate))]
		lateVal := enc[1]
		if late {
			lateVal = enc[0]
		}
		status := "delivered"
		if late && rng.Intn(4) == 0 {
			status = "delayed"
		}
		if _, err := ship.ExecContext(ctx, orderID, shipped.Format("2006-01-02"),
			demoCarriers[rng.Intn(len(demoCarriers))], days, lateVal, region, status); err != nil {
			return fmt.Errorf("insert shipment %s: %w", orderID, err)
		}
	}
	return tx.Commit()
}

func demoSummary(score float64) string {
	switch {
	case score >= 0.5:
		return "Great quality and arrived quickly."
	case score >= 0:
		return "Product is fine, delivery was okay."
	case score >= -0.5:
		return "Took longer than expected to arrive."
	default:
		return "Very late delivery, disappointed."
	}
}
