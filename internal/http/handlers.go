package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/termdock/internal/domain/links"
	"github.com/GriffinCanCode/termdock/internal/domain/multiplexer"
	"github.com/GriffinCanCode/termdock/internal/domain/tab"
	"github.com/GriffinCanCode/termdock/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termdock/internal/providers/contentstore"
	"github.com/GriffinCanCode/termdock/internal/providers/system"
	"github.com/GriffinCanCode/termdock/internal/providers/terminal"
	"github.com/GriffinCanCode/termdock/internal/shared/types"
)

// Options configures the handler set.
type Options struct {
	Mux       *multiplexer.Multiplexer
	Links     *links.Engine
	Activator *links.Activator
	Metrics   *monitoring.Metrics
	Logger    *zap.Logger
	Version   string
	StartTime time.Time
}

// Handlers contains all HTTP handlers
type Handlers struct {
	mux       *multiplexer.Multiplexer
	links     *links.Engine
	activator *links.Activator
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	version   string
	startTime time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(opts Options) *Handlers {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Links == nil {
		opts.Links = links.NewEngine(nil)
	}
	if opts.StartTime.IsZero() {
		opts.StartTime = time.Now()
	}
	return &Handlers{
		mux:       opts.Mux,
		links:     opts.Links,
		activator: opts.Activator,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		version:   opts.Version,
		startTime: opts.StartTime,
	}
}

// ResolveLinkRequest resolves a match without performing it.
type ResolveLinkRequest struct {
	Match links.Match `json:"match"`
	Dir   string      `json:"dir,omitempty"`
}

// LineLinks are the matches found on one line of submitted text.
type LineLinks struct {
	Line    int           `json:"line"`
	Matches []links.Match `json:"matches"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, multiplexer.ErrSessionNotFound),
		errors.Is(err, contentstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, multiplexer.ErrLastSession),
		errors.Is(err, multiplexer.ErrAlreadyRestored),
		errors.Is(err, tab.ErrAlreadyMounted),
		errors.Is(err, tab.ErrNotMounted),
		errors.Is(err, terminal.ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, tab.ErrNoSelection),
		errors.Is(err, contentstore.ErrOutsideRoot):
		return http.StatusBadRequest
	case errors.Is(err, multiplexer.ErrClosed),
		errors.Is(err, tab.ErrDisposed),
		errors.Is(err, tab.ErrNoStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// sessionID parses the :id route parameter.
func sessionID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return 0, false
	}
	return id, true
}

func (h *Handlers) session(c *gin.Context) (*tab.Session, bool) {
	id, ok := sessionID(c)
	if !ok {
		return nil, false
	}
	s, ok := h.mux.Get(id)
	if !ok {
		h.fail(c, multiplexer.ErrSessionNotFound)
		return nil, false
	}
	return s, true
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "termdock",
		"version": h.version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"version":  h.version,
		"sessions": h.mux.Len(),
		"system":   system.Snapshot(h.startTime),
	})
}

// MetricsJSON returns the tracked counters as JSON
func (h *Handlers) MetricsJSON(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

// ListSessions lists all open sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	infos := h.mux.Infos()
	active := 0
	if s, ok := h.mux.Active(); ok {
		active = s.ID()
	}
	c.JSON(http.StatusOK, gin.H{
		"sessions": infos,
		"active":   active,
	})
}

// CreateSession opens a session and makes it active
func (h *Handlers) CreateSession(c *gin.Context) {
	var req types.CreateSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	timer := monitoring.NewTimer(h.metrics, "multiplexer", "create")
	s, err := h.mux.CreateSession(c.Request.Context(), strings.TrimSpace(req.Cwd))
	timer.StopErr(err)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.Info())
}

// CloseSession closes a session
func (h *Handlers) CloseSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	timer := monitoring.NewTimer(h.metrics, "multiplexer", "close")
	err := h.mux.CloseSession(id)
	timer.StopErr(err)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

// ActivateSession switches the active session
func (h *Handlers) ActivateSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.mux.SwitchActive(id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

// RestartSession replaces a session's shell, optionally in another
// directory
func (h *Handlers) RestartSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req types.RestartRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	var dir *string
	if cwd := strings.TrimSpace(req.Cwd); cwd != "" {
		dir = &cwd
	}

	timer := monitoring.NewTimer(h.metrics, "multiplexer", "restart")
	err := h.mux.RestartSession(c.Request.Context(), id, dir)
	timer.StopErr(err)
	if err != nil {
		h.fail(c, err)
		return
	}
	if s, ok := h.mux.Get(id); ok {
		c.JSON(http.StatusOK, s.Info())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

// SendInput writes data to a session's shell
func (h *Handlers) SendInput(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req types.InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.WriteToShell(req.Data); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "bytes": len(req.Data)})
}

// DropFiles inserts shell-escaped paths into a session's prompt
func (h *Handlers) DropFiles(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req types.DropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var err error
	switch {
	case req.Data != "":
		err = s.DropInternal(c.Request.Context(), req.Data)
	case len(req.Paths) > 0:
		err = s.InsertPaths(req.Paths)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "paths or data required"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SendSelection creates a content entry from a session's selection
func (h *Handlers) SendSelection(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	entry, err := s.SendSelectionToNewEntry(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// AppendSelection appends a session's selection to an existing entry
func (h *Handlers) AppendSelection(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req types.AppendEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.AppendSelectionToEntry(c.Request.Context(), req.Path); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "path": req.Path})
}

// GetSnapshot returns the persisted form of the current layout
func (h *Handlers) GetSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.mux.Snapshot())
}

// FindLinks scans submitted text line by line
func (h *Handlers) FindLinks(c *gin.Context) {
	var req types.FindLinksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := make([]LineLinks, 0)
	for i, line := range strings.Split(req.Text, "\n") {
		matches := h.links.FindLinks(strings.TrimSuffix(line, "\r"))
		if len(matches) == 0 {
			continue
		}
		result = append(result, LineLinks{Line: i, Matches: matches})
	}
	c.JSON(http.StatusOK, gin.H{"links": result})
}

// ResolveLink maps a match to the action activating it would perform
func (h *Handlers) ResolveLink(c *gin.Context) {
	if h.activator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "link resolution not configured"})
		return
	}
	var req ResolveLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Match.Value == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "match value required"})
		return
	}
	c.JSON(http.StatusOK, h.activator.Resolve(c.Request.Context(), req.Match, req.Dir))
}

// Register mounts every route on r.
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/metrics/json", h.MetricsJSON)

	r.GET("/sessions", h.ListSessions)
	r.POST("/sessions", h.CreateSession)
	r.DELETE("/sessions/:id", h.CloseSession)
	r.POST("/sessions/:id/activate", h.ActivateSession)
	r.POST("/sessions/:id/restart", h.RestartSession)
	r.POST("/sessions/:id/input", h.SendInput)
	r.POST("/sessions/:id/drop", h.DropFiles)
	r.POST("/sessions/:id/entries", h.SendSelection)
	r.POST("/sessions/:id/entries/append", h.AppendSelection)
	r.GET("/snapshot", h.GetSnapshot)

	r.POST("/links/find", h.FindLinks)
	r.POST("/links/resolve", h.ResolveLink)
}
