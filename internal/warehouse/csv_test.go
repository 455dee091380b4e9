package warehouse

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/shipsight/internal/config"
)

func TestCSVSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	content := strings.Join([]string{
		"\ufeffproduct,date,summary,sentiment_score,order_id,shipping_date,carrier,delivery_days,late,region,status",
		"Parka,2024-03-01,warm,0.5,o1,2024-02-27,UPS,3,FALSE,NE,delivered",
		"Boots,2024-03-02,,-0.2,o2,,,,,,",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	rows, err := NewCSVSource(path).FetchReviewsWithShipping(context.Background())
	if err != nil {
		t.Fatalf("FetchReviewsWithShipping: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0][ColProduct] != "Parka" {
		t.Fatalf("BOM not stripped from header: %v", rows[0])
	}
	if rows[1][ColSummary] != nil || rows[1][ColRegion] != nil {
		t.Fatalf("empty cells should be nil: %v", rows[1])
	}
}

func TestCSVSourceMissingFile(t *testing.T) {
	_, err := NewCSVSource(filepath.Join(t.TempDir(), "nope.csv")).FetchReviewsWithShipping(context.Background())
	if _, ok := err.(*ConnectionError); !ok {
		t.Fatalf("expected *ConnectionError, got %T", err)
	}
}

func TestCSVSourceEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tsv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rows, err := NewCSVSource(path).FetchReviewsWithShipping(context.Background())
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected no rows and no error, got %d, %v", len(rows), err)
	}
}

func TestConnectCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	if err := os.WriteFile(path, []byte("product,date\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	src, err := Connect(context.Background(), "fixed", config.Warehouse{Driver: DriverCSV, CSVPath: path})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if src.Identity() != "csv|"+path {
		t.Fatalf("identity = %q", src.Identity())
	}

	_, err = Connect(context.Background(), "fixed", config.Warehouse{Driver: DriverCSV, CSVPath: path + ".missing"})
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %T", err)
	}
}
