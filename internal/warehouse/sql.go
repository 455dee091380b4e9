package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/KaramelBytes/shipsight/internal/config"
	"github.com/go-sql-driver/mysql"
	"github.com/snowflakedb/gosnowflake"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverSnowflake = "snowflake"
	DriverMySQL     = "mysql"
	DriverSQLite    = "sqlite"
	DriverCSV       = "csv"
)

// SQLSource runs ReviewsWithShippingQuery against a database/sql handle.
type SQLSource struct {
	db       *sql.DB
	driver   string
	identity string
}

// NewSQLSource wraps an existing handle. Used directly by tests.
func NewSQLSource(db *sql.DB, driver, identity string) *SQLSource {
	return &SQLSource{db: db, driver: driver, identity: identity}
}

// DB exposes the handle so the completion runtime can share the connection.
func (s *SQLSource) DB() *sql.DB { return s.db }

// Driver returns the driver name the handle was opened with.
func (s *SQLSource) Driver() string { return s.driver }

// Identity implements Source.
func (s *SQLSource) Identity() string { return s.identity }

// Close releases the underlying handle.
func (s *SQLSource) Close() error { return s.db.Close() }

// FetchReviewsWithShipping implements Source.
func (s *SQLSource) FetchReviewsWithShipping(ctx context.Context) ([]RawRow, error) {
	rows, err := s.db.QueryContext(ctx, ReviewsWithShippingQuery)
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &QueryError{Err: fmt.Errorf("read columns: %w", err)}
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = CanonicalColumn(c)
	}

	var out []RawRow
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &QueryError{Err: fmt.Errorf("scan row %d: %w", len(out)+1, err)}
		}
		row := make(RawRow, len(cols))
		for i, v := range vals {
			// Drivers hand back text columns as []byte; the buffer is reused.
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[names[i]] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Err: fmt.Errorf("iterate rows: %w", err)}
	}
	return out, nil
}

// Identity returns the connection identity used in cache keys.
func Identity(profile string, w config.Warehouse) string {
	return strings.Join([]string{profile, w.Driver, w.Account, w.Database, w.Schema, w.User, w.DSN, w.CSVPath}, "|")
}

// DSN builds the driver-specific data source name for w.
func DSN(w config.Warehouse) (string, error) {
	switch w.Driver {
	case DriverSnowflake:
		if w.Account == "" || w.User == "" || w.Password == "" {
			return "", errors.New("missing credentials: account, user and password are required")
		}
		return gosnowflake.DSN(&gosnowflake.Config{
			Account:   w.Account,
			User:      w.User,
			Password:  w.Password,
			Warehouse: w.Warehouse,
			Database:  w.Database,
			Schema:    w.Schema,
			Role:      w.Role,
		})
	case DriverMySQL:
		if w.DSN != "" {
			return w.DSN, nil
		}
		if w.Account == "" || w.User == "" {
			return "", errors.New("missing credentials: account (host:port) and user are required")
		}
		mc := mysql.NewConfig()
		mc.User = w.User
		mc.Passwd = w.Password
		mc.Net = "tcp"
		mc.Addr = w.Account
		mc.DBName = w.Database
		mc.ParseTime = true
		return mc.FormatDSN(), nil
	case DriverSQLite:
		if w.DSN != "" {
			return w.DSN, nil
		}
		if w.Database == "" {
			return "", errors.New("missing database path")
		}
		return w.Database, nil
	default:
		return "", fmt.Errorf("unsupported driver: %q", w.Driver)
	}
}

// Open connects to the configured warehouse and verifies the connection.
func Open(ctx context.Context, profile string, w config.Warehouse) (*SQLSource, error) {
	dsn, err := DSN(w)
	if err != nil {
		return nil, &ConnectionError{Driver: w.Driver, Err: err}
	}
	db, err := sql.Open(w.Driver, dsn)
	if err != nil {
		return nil, &ConnectionError{Driver: w.Driver, Err: err}
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &ConnectionError{Driver: w.Driver, Err: err}
	}
	return NewSQLSource(db, w.Driver, Identity(profile, w)), nil
}

// Connect opens the configured source: a SQL warehouse, or a local export
// for the csv driver.
func Connect(ctx context.Context, profile string, w config.Warehouse) (Source, error) {
	if w.Driver == DriverCSV {
		if w.CSVPath == "" {
			return nil, &ConnectionError{Driver: w.Driver, Err: errors.New("missing csv_path")}
		}
		if _, err := os.Stat(w.CSVPath); err != nil {
			return nil, &ConnectionError{Driver: w.Driver, Err: err}
		}
		return NewCSVSource(w.CSVPath), nil
	}
	src, err := Open(ctx, profile, w)
	if err != nil {
		return nil, err
	}
	return src, nil
}
