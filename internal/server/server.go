// Package server exposes the dashboard pipeline and the assistant as a JSON
// API for the browser front end.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/KaramelBytes/shipsight/internal/chat"
	"github.com/KaramelBytes/shipsight/internal/dashboard"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	EndPointHealth     = "/health"
	EndPointFilters    = "/api/filters"
	EndPointSummary    = "/api/summary"
	EndPointRecords    = "/api/records"
	EndPointRefresh    = "/api/refresh"
	EndPointConnect    = "/api/connect"
	EndPointChat       = "/api/chat"
	EndPointChatToggle = "/api/chat/toggle"
	EndPointChatClear  = "/api/chat/clear"
	EndPointChatStream = "/api/chat/stream"

	// HeaderSessionID carries the browser session between requests.
	HeaderSessionID = "X-Session-ID"
)

const sessionKey = "session"

// Server is the HTTP front of a dashboard.Service.
type Server struct {
	svc      *dashboard.Service
	sessions *chat.Store
	logger   *zap.Logger
	router   *gin.Engine
}

// New builds the router.
func New(svc *dashboard.Service, sessions *chat.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, sessions: sessions, logger: logger.Named("http")}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger))

	// health checks carry no session
	router.GET(EndPointHealth, s.health)

	api := router.Group("", s.sessionMiddleware())
	api.GET(EndPointFilters, s.filters)
	api.GET(EndPointSummary, s.summary)
	api.GET(EndPointRecords, s.records)
	api.POST(EndPointRefresh, s.refresh)
	api.POST(EndPointConnect, s.connect)

	api.GET(EndPointChat, s.chatState)
	api.POST(EndPointChat, s.chatAsk)
	api.POST(EndPointChatToggle, s.chatToggle)
	api.POST(EndPointChatClear, s.chatClear)
	api.GET(EndPointChatStream, s.chatStream)

	s.router = router
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// requestLogger logs one line per request through zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// sessionMiddleware resolves the caller's session from HeaderSessionID and
// echoes the (possibly new) id back.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := s.sessions.Get(c.GetHeader(HeaderSessionID))
		c.Header(HeaderSessionID, sess.ID)
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func session(c *gin.Context) *chat.Session {
	return c.MustGet(sessionKey).(*chat.Session)
}
