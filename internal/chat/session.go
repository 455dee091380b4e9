// Package chat holds the assistant conversation: per-browser sessions, the
// data context handed to the completion service and the simulated typing
// stream.
package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/KaramelBytes/shipsight/internal/warehouse"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Roles of a conversation turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrClosed is returned when a question is asked while the chat panel is
// closed.
var ErrClosed = errors.New("chat is closed")

// ErrBusy is returned when a question arrives while the previous one on the
// same session is still being answered.
var ErrBusy = errors.New("the assistant is still answering the previous question")

// Suggestions are offered while a conversation is empty.
var Suggestions = []string{
	"Which region has the worst sentiment?",
	"Show me the top 3 problem areas",
	"How many late deliveries do we have?",
	"Which product has the best reviews?",
}

// Message is one conversation turn.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the explicit per-user state: the conversation, whether the chat
// panel is open and, for the interactive profile, the user's own warehouse
// connection.
type Session struct {
	ID string

	mu      sync.Mutex
	open    bool
	pending bool
	history []Message
	conn    *warehouse.CachedSource
}

// NewSession returns a closed, empty session.
func NewSession() *Session {
	return &Session{ID: uuid.NewString()}
}

// State is a point-in-time copy of a session for rendering.
type State struct {
	ID          string    `json:"session_id"`
	Open        bool      `json:"open"`
	Pending     bool      `json:"pending"`
	History     []Message `json:"history"`
	Badge       int       `json:"badge"`
	Connected   bool      `json:"connected"`
	Suggestions []string  `json:"suggestions,omitempty"`
}

// State snapshots the session. The badge counts exchanges and is shown only
// while the panel is closed.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		ID:        s.ID,
		Open:      s.open,
		Pending:   s.pending,
		History:   append([]Message{}, s.history...),
		Connected: s.conn != nil,
	}
	if !s.open {
		st.Badge = len(s.history) / 2
	}
	if len(s.history) == 0 {
		st.Suggestions = Suggestions
	}
	return st
}

// Toggle flips the panel and reports the new state.
func (s *Session) Toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = !s.open
	return s.open
}

// SetOpen opens or closes the panel.
func (s *Session) SetOpen(open bool) {
	s.mu.Lock()
	s.open = open
	s.mu.Unlock()
}

// IsOpen reports whether the panel is open.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// begin claims the session for one question. It reports false while
// another question is pending.
func (s *Session) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		return false
	}
	s.pending = true
	return true
}

func (s *Session) end() {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
}

// Clear empties the conversation.
func (s *Session) Clear() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
}

// Append adds a turn and returns it. History only grows until Clear.
func (s *Session) Append(role, content string) Message {
	m := Message{ID: uuid.NewString(), Role: role, Content: content, CreatedAt: time.Now().UTC()}
	s.mu.Lock()
	s.history = append(s.history, m)
	s.mu.Unlock()
	return m
}

// History returns a copy of the conversation.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message{}, s.history...)
}

// Conn returns the session's own warehouse connection, if any.
func (s *Session) Conn() *warehouse.CachedSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// SetConn replaces the session's connection and returns the previous one so
// the caller can close it.
func (s *Session) SetConn(c *warehouse.CachedSource) *warehouse.CachedSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.conn
	s.conn = c
	return prev
}

// Store maps session IDs to sessions. Sessions idle for longer than the
// store's timeout are evicted and their warehouse connections closed.
type Store struct {
	mu     sync.Mutex
	cache  *cache.Cache
	logger *zap.Logger
}

// NewStore returns an empty store. idle <= 0 keeps sessions until Close.
func NewStore(idle time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	var sweep time.Duration
	if idle > 0 {
		sweep = idle
	}
	st := &Store{cache: cache.New(idle, sweep), logger: logger.Named("sessions")}
	st.cache.OnEvicted(st.evicted)
	return st
}

func (st *Store) evicted(id string, v any) {
	s, ok := v.(*Session)
	if !ok {
		return
	}
	st.logger.Debug("session expired", zap.String("session", id))
	if c := s.SetConn(nil); c != nil {
		if err := c.Close(); err != nil {
			st.logger.Warn("closing expired session connection", zap.String("session", id), zap.Error(err))
		}
	}
}

// Get returns the session for id and restarts its idle clock, creating one
// when id is empty, unknown or expired. Unknown ids that are not UUIDs are
// replaced by a fresh id.
func (st *Store) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if id != "" {
		if v, ok := st.cache.Get(id); ok {
			s := v.(*Session)
			st.cache.SetDefault(id, s)
			return s
		}
		// an expired entry the sweeper has not reached still holds its
		// connection; Delete runs the eviction hook
		st.cache.Delete(id)
	}
	s := NewSession()
	if _, err := uuid.Parse(id); err == nil {
		s.ID = id
	}
	st.cache.SetDefault(s.ID, s)
	return s
}

// Len reports the number of stored sessions, including expired ones not yet
// swept.
func (st *Store) Len() int {
	return st.cache.ItemCount()
}

// Close drops every session and closes their connections.
func (st *Store) Close() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.cache.DeleteExpired()
	items := st.cache.Items()
	st.cache.Flush()
	var errs []error
	for _, it := range items {
		s, ok := it.Object.(*Session)
		if !ok {
			continue
		}
		if c := s.SetConn(nil); c != nil {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
