package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/KaramelBytes/shipsight/internal/analysis"
	"github.com/KaramelBytes/shipsight/internal/chat"
	"github.com/KaramelBytes/shipsight/internal/config"
	"github.com/KaramelBytes/shipsight/internal/dashboard"
	"github.com/KaramelBytes/shipsight/internal/warehouse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// errorStatus maps pipeline errors to HTTP statuses.
func errorStatus(err error) int {
	var (
		connErr   *warehouse.ConnectionError
		queryErr  *warehouse.QueryError
		schemaErr *analysis.SchemaError
	)
	switch {
	case errors.As(err, &connErr), errors.Is(err, dashboard.ErrNotConnected):
		return http.StatusServiceUnavailable
	case errors.As(err, &queryErr):
		return http.StatusBadGateway
	case errors.As(err, &schemaErr):
		return http.StatusInternalServerError
	case errors.Is(err, chat.ErrClosed), errors.Is(err, chat.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, chat.ErrEmptyQuestion):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(errorStatus(err), gin.H{"error": err.Error()})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "shipsight",
		"profile": s.svc.Profile(),
	})
}

func (s *Server) filters(c *gin.Context) {
	choices, err := s.svc.Choices(c.Request.Context(), session(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, choices)
}

func parseFilters(c *gin.Context) (analysis.Filters, error) {
	return analysis.ParseFilters(c.Query("product"), c.Query("region"), c.Query("start"), c.Query("end"))
}

type summaryResponse struct {
	*analysis.Snapshot
	Chart analysis.BarChart `json:"chart"`
}

func (s *Server) summary(c *gin.Context) {
	f, err := parseFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap, err := s.svc.Snapshot(c.Request.Context(), session(c), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summaryResponse{Snapshot: snap, Chart: analysis.RegionChart(snap.Regions)})
}

func (s *Server) records(c *gin.Context) {
	f, err := parseFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
	}
	snap, err := s.svc.Snapshot(c.Request.Context(), session(c), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	recs := snap.Records
	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}
	c.JSON(http.StatusOK, gin.H{"total": len(snap.Records), "records": recs})
}

func (s *Server) refresh(c *gin.Context) {
	if err := s.svc.Refresh(c.Request.Context(), session(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "refreshed"})
}

// ConnectRequest carries the interactive profile's connection form.
type ConnectRequest struct {
	Driver    string `json:"driver"`
	Account   string `json:"account"`
	User      string `json:"user"`
	Password  string `json:"password"`
	Warehouse string `json:"warehouse"`
	Database  string `json:"database"`
	Schema    string `json:"schema"`
	Role      string `json:"role"`
	DSN       string `json:"dsn"`
}

func (s *Server) connect(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if s.svc.Profile() != config.ProfileInteractive {
		c.JSON(http.StatusConflict, gin.H{"error": "server runs the fixed profile; connection is configured on the server"})
		return
	}
	sess := session(c)
	err := s.svc.ConnectSession(c.Request.Context(), sess, config.Warehouse{
		Driver:    req.Driver,
		Account:   req.Account,
		User:      req.User,
		Password:  req.Password,
		Warehouse: req.Warehouse,
		Database:  req.Database,
		Schema:    req.Schema,
		Role:      req.Role,
		DSN:       req.DSN,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info("session connected", zap.String("session", sess.ID), zap.String("user", req.User))
	c.JSON(http.StatusOK, gin.H{"status": "connected", "session_id": sess.ID})
}

func (s *Server) chatState(c *gin.Context) {
	c.JSON(http.StatusOK, session(c).State())
}

func (s *Server) chatToggle(c *gin.Context) {
	sess := session(c)
	sess.Toggle()
	c.JSON(http.StatusOK, sess.State())
}

func (s *Server) chatClear(c *gin.Context) {
	sess := session(c)
	sess.Clear()
	c.JSON(http.StatusOK, sess.State())
}

// AskRequest is a chat question plus the filters of the page it was asked
// from, so the answer uses the data the user is looking at.
type AskRequest struct {
	Question string `json:"question"`
	Product  string `json:"product"`
	Region   string `json:"region"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

func (s *Server) chatAsk(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	f, err := analysis.ParseFilters(req.Product, req.Region, req.Start, req.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess := session(c)
	if !sess.IsOpen() {
		s.fail(c, chat.ErrClosed)
		return
	}
	ctx := c.Request.Context()
	snap, err := s.svc.Snapshot(ctx, sess, f)
	if err != nil {
		s.fail(c, err)
		return
	}
	msg, err := s.svc.Assistant(ctx, sess).Ask(ctx, sess, snap, req.Question)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "state": sess.State()})
}

// chatStream replays an assistant turn as server-sent events, one word per
// event, ending with a "done" event.
func (s *Server) chatStream(c *gin.Context) {
	sess := session(c)
	msg, ok := findAssistantTurn(sess.History(), c.Query("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no assistant message to stream"})
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	err := chat.Replay(c.Request.Context(), chat.Chunks(msg.Content), func(ch chat.Chunk) error {
		c.SSEvent("chunk", gin.H{"text": ch.Text})
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		s.logger.Debug("stream aborted", zap.String("session", sess.ID), zap.Error(err))
		return
	}
	c.SSEvent("done", gin.H{"id": msg.ID})
	c.Writer.Flush()
}

// findAssistantTurn returns the assistant turn with id, or the latest one
// when id is empty.
func findAssistantTurn(history []chat.Message, id string) (chat.Message, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.Role != chat.RoleAssistant {
			continue
		}
		if id == "" || m.ID == id {
			return m, true
		}
	}
	return chat.Message{}, false
}
