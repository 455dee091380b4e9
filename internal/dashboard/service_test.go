package dashboard

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/shipsight/internal/analysis"
	"github.com/KaramelBytes/shipsight/internal/chat"
	"github.com/KaramelBytes/shipsight/internal/config"
	"github.com/KaramelBytes/shipsight/internal/warehouse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func demoDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo.db")
	db, err := sql.Open(warehouse.DriverSQLite, path)
	require.NoError(t, err)
	require.NoError(t, warehouse.SeedDemo(context.Background(), db, 200, 42))
	require.NoError(t, db.Close())
	return path
}

func fixedConfig(path string) *config.Global {
	return &config.Global{
		Profile:           config.ProfileFixed,
		Warehouse:         config.Warehouse{Driver: warehouse.DriverSQLite, Database: path},
		CacheTTLSec:       600,
		AIProvider:        "ollama",
		MaxTokens:         256,
		ContextTokenLimit: 4000,
	}
}

type countingConnector struct {
	calls int
	err   error
}

func (c *countingConnector) connect(ctx context.Context, profile string, w config.Warehouse) (warehouse.Source, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return warehouse.Connect(ctx, profile, w)
}

func TestSnapshotFromSQLite(t *testing.T) {
	svc := New(fixedConfig(demoDB(t)), nil)
	defer svc.Close()

	snap, err := svc.Snapshot(context.Background(), nil, analysis.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 200, snap.Overview.TotalReviews)

	var orders int
	for _, r := range snap.Regions {
		orders += r.OrderCount
	}
	assert.Equal(t, 200, orders)
	assert.LessOrEqual(t, len(snap.TopProblems), analysis.DefaultTopN)

	choices, err := svc.Choices(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, analysis.All, choices.Products[0])
	assert.Len(t, choices.Products, 6)

	one, err := svc.Snapshot(context.Background(), nil, analysis.Filters{Product: choices.Products[1]})
	require.NoError(t, err)
	assert.Less(t, one.Overview.TotalReviews, 200)
}

func TestFixedProfileConnectsOnce(t *testing.T) {
	cc := &countingConnector{}
	svc := New(fixedConfig(demoDB(t)), nil, WithConnector(cc.connect))
	defer svc.Close()

	for i := 0; i < 3; i++ {
		_, err := svc.Snapshot(context.Background(), nil, analysis.Filters{})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, cc.calls)
	require.NoError(t, svc.Refresh(context.Background(), nil))
}

func TestFixedProfileConnectionError(t *testing.T) {
	cc := &countingConnector{err: &warehouse.ConnectionError{Driver: "snowflake", Err: errors.New("bad password")}}
	svc := New(fixedConfig("unused"), nil, WithConnector(cc.connect))

	_, err := svc.Snapshot(context.Background(), nil, analysis.Filters{})
	var connErr *warehouse.ConnectionError
	require.ErrorAs(t, err, &connErr)

	// a later request tries again
	_, _ = svc.Snapshot(context.Background(), nil, analysis.Filters{})
	assert.Equal(t, 2, cc.calls)
}

func TestInteractiveProfileNeedsSessionConnection(t *testing.T) {
	cfg := fixedConfig("")
	cfg.Profile = config.ProfileInteractive
	cfg.Warehouse.Database = ""
	svc := New(cfg, nil)
	sess := chat.NewSession()

	_, err := svc.Snapshot(context.Background(), sess, analysis.Filters{})
	require.ErrorIs(t, err, ErrNotConnected)

	err = svc.ConnectSession(context.Background(), sess, config.Warehouse{})
	var connErr *warehouse.ConnectionError
	require.ErrorAs(t, err, &connErr, "missing database path is a connection error")
	assert.Nil(t, sess.Conn())

	require.NoError(t, svc.ConnectSession(context.Background(), sess, config.Warehouse{Database: demoDB(t)}))
	snap, err := svc.Snapshot(context.Background(), sess, analysis.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 200, snap.Overview.TotalReviews)

	// other sessions stay unconnected
	_, err = svc.Snapshot(context.Background(), chat.NewSession(), analysis.Filters{})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnectSessionRejectedInFixedProfile(t *testing.T) {
	svc := New(fixedConfig("x"), nil)
	assert.Error(t, svc.ConnectSession(context.Background(), chat.NewSession(), config.Warehouse{}))
}

func TestMergeWarehouse(t *testing.T) {
	base := config.Warehouse{Driver: "snowflake", Account: "acct", Database: "AVALANCHE_DB", Schema: "AVALANCHE_SCHEMA"}
	got := mergeWarehouse(base, config.Warehouse{User: " alice ", Password: "pw", Driver: "SNOWFLAKE"})
	assert.Equal(t, config.Warehouse{
		Driver: "snowflake", Account: "acct", User: "alice", Password: "pw",
		Database: "AVALANCHE_DB", Schema: "AVALANCHE_SCHEMA",
	}, got)
}

func TestMergeWarehouseKeepsOperatorCredentials(t *testing.T) {
	base := config.Warehouse{
		Driver: "mysql", Account: "acct", User: "operator", Password: "s3cret",
		DSN: "operator:s3cret@tcp(db:3306)/reviews", Database: "reviews",
	}
	got := mergeWarehouse(base, config.Warehouse{Driver: "mysql"})
	assert.Empty(t, got.User)
	assert.Empty(t, got.Password)
	assert.Empty(t, got.DSN)
	assert.Equal(t, "acct", got.Account)
	assert.Equal(t, "reviews", got.Database)
}

func TestConnectSessionDoesNotSendOperatorPassword(t *testing.T) {
	cfg := fixedConfig("")
	cfg.Profile = config.ProfileInteractive
	cfg.Warehouse = config.Warehouse{Driver: "snowflake", Account: "acct", User: "operator", Password: "s3cret"}
	var seen config.Warehouse
	svc := New(cfg, nil, WithConnector(func(_ context.Context, _ string, w config.Warehouse) (warehouse.Source, error) {
		seen = w
		return nil, &warehouse.ConnectionError{Driver: w.Driver, Err: errors.New("missing credentials")}
	}))

	err := svc.ConnectSession(context.Background(), chat.NewSession(), config.Warehouse{Driver: "snowflake"})
	require.Error(t, err)
	assert.Equal(t, "acct", seen.Account)
	assert.Empty(t, seen.User)
	assert.Empty(t, seen.Password)
}

func TestCompleterSelection(t *testing.T) {
	svc := New(fixedConfig(demoDB(t)), nil)
	defer svc.Close()

	c, err := svc.Completer(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, "llama3.1:8b", svc.Model())

	svc.cfg.AIProvider = "cortex"
	_, err = svc.Completer(context.Background(), nil)
	assert.ErrorContains(t, err, "needs a snowflake connection")

	svc.cfg.AIProvider = "gemini"
	_, err = svc.Completer(context.Background(), nil)
	assert.ErrorContains(t, err, "Gemini API key is missing")
}

func TestAssistantReportsSetupErrorsAsTurns(t *testing.T) {
	cfg := fixedConfig(demoDB(t))
	cfg.AIProvider = "gemini"
	svc := New(cfg, nil)
	defer svc.Close()

	sess := chat.NewSession()
	sess.SetOpen(true)
	snap, err := svc.Snapshot(context.Background(), sess, analysis.Filters{})
	require.NoError(t, err)
	msg, err := svc.Assistant(context.Background(), sess).Ask(context.Background(), sess, snap, "Which region is worst?")
	require.NoError(t, err)
	assert.Contains(t, msg.Content, "❌ Sorry, I encountered an error")
	assert.Len(t, sess.History(), 2)
}
