package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/KaramelBytes/shipsight/internal/config"
	"github.com/jknair0/beforeeach"
)

var (
	db   *sql.DB
	mock sqlmock.Sqlmock
)

func setUp() {
	db, mock, _ = sqlmock.New()
}

func tearDown() {
	db.Close()
}

var it = beforeeach.Create(setUp, tearDown)

const joinPattern = "SELECT .+ FROM customer_reviews cr LEFT JOIN shipping_logs sl ON cr.order_id = sl.order_id"

func TestFetchReviewsWithShipping(t *testing.T) {
	it(func() {
		day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		// mixed-case column names, as some drivers report them
		rows := sqlmock.NewRows([]string{"product", "Date", "summary", "SENTIMENT_SCORE", "order_id",
			"shipping_date", "carrier", "delivery_days", "late", "region", "status"}).
			AddRow("Parka", day, []byte("warm"), 0.5, "o1", day, "UPS", 3.0, false, "NE", "delivered").
			AddRow("Boots", "2024-03-02", nil, "-0.2", "o2", nil, nil, nil, nil, nil, nil)
		mock.ExpectQuery(joinPattern).WillReturnRows(rows)

		src := NewSQLSource(db, DriverSnowflake, "test")
		got, err := src.FetchReviewsWithShipping(context.Background())
		if err != nil {
			t.Fatalf("FetchReviewsWithShipping: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("rows = %d, want 2", len(got))
		}
		for _, col := range Columns {
			if _, ok := got[0][col]; !ok {
				t.Errorf("row missing canonical column %s: %v", col, got[0])
			}
		}
		if got[0][ColSummary] != "warm" {
			t.Errorf("[]byte not converted to string: %#v", got[0][ColSummary])
		}
		if got[1][ColRegion] != nil {
			t.Errorf("unmatched shipment should have nil region, got %#v", got[1][ColRegion])
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestFetchReviewsWithShippingQueryError(t *testing.T) {
	it(func() {
		mock.ExpectQuery(joinPattern).WillReturnError(errors.New("table SHIPPING_LOGS does not exist"))

		src := NewSQLSource(db, DriverSnowflake, "test")
		_, err := src.FetchReviewsWithShipping(context.Background())
		var qe *QueryError
		if !errors.As(err, &qe) {
			t.Fatalf("expected *QueryError, got %T (%v)", err, err)
		}
		if !strings.Contains(err.Error(), "SHIPPING_LOGS") {
			t.Fatalf("error lost cause: %v", err)
		}
	})
}

func TestFetchReviewsWithShippingRowError(t *testing.T) {
	it(func() {
		rows := sqlmock.NewRows([]string{"PRODUCT"}).
			AddRow("Parka").
			AddRow("Boots").
			RowError(1, errors.New("connection reset"))
		mock.ExpectQuery(joinPattern).WillReturnRows(rows)

		src := NewSQLSource(db, DriverMySQL, "test")
		if _, err := src.FetchReviewsWithShipping(context.Background()); err == nil {
			t.Fatalf("expected row iteration error")
		}
	})
}

func TestDSN(t *testing.T) {
	testCases := []struct {
		name      string
		w         config.Warehouse
		contains  string
		expectErr bool
	}{
		{
			name:      "snowflake missing credentials",
			w:         config.Warehouse{Driver: DriverSnowflake, Account: "acct"},
			expectErr: true,
		},
		{
			name:     "snowflake",
			w:        config.Warehouse{Driver: DriverSnowflake, Account: "acct", User: "bob", Password: "pw", Database: "AVALANCHE_DB", Schema: "AVALANCHE_SCHEMA", Warehouse: "COMPUTE_WH"},
			contains: "AVALANCHE_DB",
		},
		{
			name:     "mysql from fields",
			w:        config.Warehouse{Driver: DriverMySQL, Account: "db:3306", User: "bob", Password: "pw", Database: "reviews"},
			contains: "tcp(db:3306)/reviews",
		},
		{
			name:     "mysql explicit dsn",
			w:        config.Warehouse{Driver: DriverMySQL, DSN: "u:p@tcp(h:1)/d"},
			contains: "u:p@tcp(h:1)/d",
		},
		{
			name:     "sqlite path",
			w:        config.Warehouse{Driver: DriverSQLite, Database: "demo.db"},
			contains: "demo.db",
		},
		{
			name:      "unknown driver",
			w:         config.Warehouse{Driver: "oracle"},
			expectErr: true,
		},
	}
	for _, tc := range testCases {
		dsn, err := DSN(tc.w)
		if tc.expectErr != (err != nil) {
			t.Errorf("%s: expected error: %v, got error: %v", tc.name, tc.expectErr, err)
			continue
		}
		if !tc.expectErr && !strings.Contains(dsn, tc.contains) {
			t.Errorf("%s: dsn %q does not contain %q", tc.name, dsn, tc.contains)
		}
	}
}

func TestOpenMissingCredentialsIsConnectionError(t *testing.T) {
	_, err := Open(context.Background(), config.ProfileFixed, config.Warehouse{Driver: DriverSnowflake})
	var ce *ConnectionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConnectionError, got %T (%v)", err, err)
	}
}

func TestIdentityDiffersByConnection(t *testing.T) {
	a := Identity(config.ProfileFixed, config.Warehouse{Driver: DriverSnowflake, Account: "a", User: "u"})
	b := Identity(config.ProfileFixed, config.Warehouse{Driver: DriverSnowflake, Account: "b", User: "u"})
	if a == b {
		t.Fatalf("identities should differ: %q", a)
	}
	if strings.Contains(a, "pw") {
		t.Fatalf("identity must not carry passwords")
	}
}
