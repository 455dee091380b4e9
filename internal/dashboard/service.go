// Package dashboard runs the data pipeline for one request: fetch (through
// the cache), normalize, filter and aggregate. It owns the warehouse
// connections and builds the completion runtime the assistant talks to.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/shipsight/internal/ai"
	"github.com/KaramelBytes/shipsight/internal/analysis"
	"github.com/KaramelBytes/shipsight/internal/chat"
	"github.com/KaramelBytes/shipsight/internal/config"
	"github.com/KaramelBytes/shipsight/internal/warehouse"
	"go.uber.org/zap"
)

// ErrNotConnected is returned in the interactive profile before the user
// has submitted working connection parameters.
var ErrNotConnected = errors.New("not connected: submit warehouse connection parameters first")

// Connector opens a warehouse source. warehouse.Connect in production.
type Connector func(ctx context.Context, profile string, w config.Warehouse) (warehouse.Source, error)

// Service serves snapshots to the CLI and the HTTP API.
type Service struct {
	cfg     *config.Global
	logger  *zap.Logger
	connect Connector

	// shared is the fixed-profile connection, opened on first use.
	mu     sync.Mutex
	shared *warehouse.CachedSource
}

// Option customizes a Service.
type Option func(*Service)

// WithConnector replaces the warehouse connector.
func WithConnector(c Connector) Option { return func(s *Service) { s.connect = c } }

// New returns a Service for cfg.
func New(cfg *config.Global, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{cfg: cfg, logger: logger.Named("dashboard"), connect: warehouse.Connect}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Profile returns the configured profile.
func (s *Service) Profile() string { return s.cfg.Profile }

func (s *Service) ttl() time.Duration { return time.Duration(s.cfg.CacheTTLSec) * time.Second }

func (s *Service) open(ctx context.Context, w config.Warehouse) (*warehouse.CachedSource, error) {
	src, err := s.connect(ctx, s.cfg.Profile, w)
	if err != nil {
		s.logger.Warn("warehouse connection failed", zap.String("driver", w.Driver), zap.Error(err))
		return nil, err
	}
	s.logger.Info("warehouse connected", zap.String("driver", w.Driver), zap.String("database", w.Database))
	return warehouse.NewCachedSource(src, s.ttl(), s.logger), nil
}

// Source resolves the connection serving sess: the session's own in the
// interactive profile, the shared one otherwise.
func (s *Service) Source(ctx context.Context, sess *chat.Session) (*warehouse.CachedSource, error) {
	if s.cfg.Interactive() {
		if sess == nil {
			return nil, ErrNotConnected
		}
		if c := sess.Conn(); c != nil {
			return c, nil
		}
		return nil, ErrNotConnected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shared != nil {
		return s.shared, nil
	}
	c, err := s.open(ctx, s.cfg.Warehouse)
	if err != nil {
		return nil, err
	}
	s.shared = c
	return c, nil
}

// ConnectSession validates w by connecting and stores the connection on
// sess, closing any previous one. Blank location fields fall back to the
// configured warehouse; credentials never do.
func (s *Service) ConnectSession(ctx context.Context, sess *chat.Session, w config.Warehouse) error {
	if !s.cfg.Interactive() {
		return errors.New("connection parameters are only accepted in the interactive profile")
	}
	w = mergeWarehouse(s.cfg.Warehouse, w)
	c, err := s.open(ctx, w)
	if err != nil {
		return err
	}
	if prev := sess.SetConn(c); prev != nil {
		if err := prev.Close(); err != nil {
			s.logger.Warn("closing previous connection", zap.Error(err))
		}
	}
	return nil
}

// mergeWarehouse fills blank location fields of in from base. User,
// Password and DSN (which may embed both) always come from in, so a session
// cannot borrow the operator's login.
func mergeWarehouse(base, in config.Warehouse) config.Warehouse {
	pick := func(v, def string) string {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}
	return config.Warehouse{
		Driver:    strings.ToLower(pick(in.Driver, base.Driver)),
		Account:   pick(in.Account, base.Account),
		User:      strings.TrimSpace(in.User),
		Password:  in.Password,
		Warehouse: pick(in.Warehouse, base.Warehouse),
		Database:  pick(in.Database, base.Database),
		Schema:    pick(in.Schema, base.Schema),
		Role:      pick(in.Role, base.Role),
		DSN:       strings.TrimSpace(in.DSN),
		CSVPath:   pick(in.CSVPath, base.CSVPath),
	}
}

// Data is the normalized record set plus its load time.
type Data struct {
	Records  []analysis.Record
	LoadedAt time.Time
}

// Load fetches and normalizes the full record set. Failures are returned
// as is; a stale cached result is never substituted.
func (s *Service) Load(ctx context.Context, sess *chat.Session) (*Data, error) {
	src, err := s.Source(ctx, sess)
	if err != nil {
		return nil, err
	}
	rows, at, err := src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	recs, err := analysis.Normalize(rows)
	if err != nil {
		return nil, err
	}
	return &Data{Records: recs, LoadedAt: at}, nil
}

// Snapshot runs the full pipeline for f.
func (s *Service) Snapshot(ctx context.Context, sess *chat.Session, f analysis.Filters) (*analysis.Snapshot, error) {
	d, err := s.Load(ctx, sess)
	if err != nil {
		return nil, err
	}
	return analysis.Run(d.Records, f), nil
}

// Choices lists the filter values of the unfiltered data.
func (s *Service) Choices(ctx context.Context, sess *chat.Session) (analysis.Choices, error) {
	d, err := s.Load(ctx, sess)
	if err != nil {
		return analysis.Choices{}, err
	}
	return analysis.FilterChoices(d.Records), nil
}

// Refresh drops the cached rows of the connection serving sess.
func (s *Service) Refresh(ctx context.Context, sess *chat.Session) error {
	src, err := s.Source(ctx, sess)
	if err != nil {
		return err
	}
	src.Invalidate()
	return nil
}

// Completer builds the completion runtime for sess. Cortex runs on the
// session's warehouse connection and therefore needs a SQL source.
func (s *Service) Completer(ctx context.Context, sess *chat.Session) (ai.Completer, error) {
	provider := s.cfg.AIProvider
	rc := ai.RuntimeConfig{
		HTTP: ai.HTTPOptions{
			Timeout: time.Duration(s.cfg.HTTPTimeoutSec) * time.Second,
			Retry: ai.RetryPolicy{
				Attempts:  s.cfg.RetryMaxAttempts,
				BaseDelay: time.Duration(s.cfg.RetryBaseDelayMs) * time.Millisecond,
				MaxDelay:  time.Duration(s.cfg.RetryMaxDelayMs) * time.Millisecond,
			},
		},
		APIKey: s.cfg.APIKey,
		Host:   s.cfg.OllamaHost,
	}
	switch provider {
	case ai.ProviderGemini:
		rc.APIKey = s.cfg.GeminiAPIKey
	case ai.ProviderCortex:
		src, err := s.Source(ctx, sess)
		if err != nil {
			return nil, err
		}
		sqlSrc, ok := src.Source().(*warehouse.SQLSource)
		if !ok || sqlSrc.Driver() != warehouse.DriverSnowflake {
			return nil, fmt.Errorf("the cortex provider needs a snowflake connection (driver is %q)", s.cfg.Warehouse.Driver)
		}
		rc.DB = sqlSrc.DB()
	}
	rt, err := ai.GetRuntime(provider, rc)
	if err != nil {
		return nil, err
	}
	return &ai.RuntimeCompleter{
		Runtime:     rt,
		Model:       s.Model(),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}, nil
}

// Model returns the configured model or the provider's default.
func (s *Service) Model() string {
	if s.cfg.AIModel != "" {
		return s.cfg.AIModel
	}
	return ai.DefaultModel(s.cfg.AIProvider)
}

// Assistant returns an assistant for sess. When no runtime can be built the
// assistant still answers, with the reason as its error turn.
func (s *Service) Assistant(ctx context.Context, sess *chat.Session) *chat.Assistant {
	c, err := s.Completer(ctx, sess)
	if err != nil {
		c = failingCompleter{err}
	}
	budget := ai.PromptBudget(s.Model(), s.cfg.ContextTokenLimit, s.cfg.MaxTokens)
	timeout := time.Duration(s.cfg.CompletionTimeout) * time.Second
	return chat.NewAssistant(c, budget, timeout, s.logger)
}

type failingCompleter struct{ err error }

func (f failingCompleter) Complete(context.Context, string) (string, error) { return "", f.err }

// Close releases the shared connection.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shared == nil {
		return nil
	}
	err := s.shared.Close()
	s.shared = nil
	return err
}
