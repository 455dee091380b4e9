package warehouse

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/shipsight/internal/config"
)

func TestSeedDemoRoundTripsThroughSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.db")
	db, err := sql.Open(DriverSQLite, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	if err := SeedDemo(ctx, db, 120, 7); err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}
	// reseeding replaces instead of duplicating
	if err := SeedDemo(ctx, db, 120, 7); err != nil {
		t.Fatalf("SeedDemo again: %v", err)
	}
	db.Close()

	src, err := Open(ctx, "fixed", config.Warehouse{Driver: DriverSQLite, Database: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()
	rows, err := src.FetchReviewsWithShipping(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 120 {
		t.Fatalf("rows = %d, want 120", len(rows))
	}
	var unshipped int
	for _, r := range rows {
		if len(r) != len(Columns) {
			t.Fatalf("row has %d columns: %v", len(r), r)
		}
		if r[ColRegion] == nil {
			unshipped++
		}
	}
	if unshipped == 0 || unshipped == len(rows) {
		t.Fatalf("expected some orders without a shipment, got %d", unshipped)
	}
}
