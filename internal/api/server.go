// Package api provides the local HTTP control API of a running tray instance. It lets the CLI
// (and scripts) read the daemon state and output and ask the tray to start or stop the daemon.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/syncthingtray/syncthingtray/internal/api/middleware"
	"github.com/syncthingtray/syncthingtray/internal/controller"
	apperrors "github.com/syncthingtray/syncthingtray/internal/errors"
	"github.com/syncthingtray/syncthingtray/internal/logging"
	"github.com/syncthingtray/syncthingtray/internal/metrics"
)

// DefaultOutputLines is how many output lines /v1/output returns without ?lines=.
const DefaultOutputLines = 200

// Controller is what the API needs from the control loop.
type Controller interface {
	Snapshot() controller.Snapshot
	StartProcess(ctx context.Context) error
	StopProcess(ctx context.Context) error
	Output(n int) []logging.LogEntry
	OutputAfter(seq uint64) []logging.LogEntry
}

// StatusResponse is the body of GET /v1/status and of successful start/stop calls.
type StatusResponse struct {
	Status controller.Snapshot `json:"status"`
}

// OutputResponse is the body of GET /v1/output.
type OutputResponse struct {
	Lines   []logging.LogEntry `json:"lines"`
	LastSeq uint64             `json:"last-seq"`
}

type serverOptionConfig struct {
	debug          bool
	actionTimeout  time.Duration
	readTimeout    time.Duration
	extraMiddlware []gin.HandlerFunc
}

// ServerOption customises server construction.
type ServerOption func(*serverOptionConfig)

// WithDebug keeps gin in debug mode.
func WithDebug(debug bool) ServerOption {
	return func(cfg *serverOptionConfig) { cfg.debug = debug }
}

// WithActionTimeout bounds how long a start or stop request waits for the control loop.
func WithActionTimeout(d time.Duration) ServerOption {
	return func(cfg *serverOptionConfig) { cfg.actionTimeout = d }
}

// WithMiddleware appends middleware after the built-in chain.
func WithMiddleware(mw ...gin.HandlerFunc) ServerOption {
	return func(cfg *serverOptionConfig) { cfg.extraMiddlware = append(cfg.extraMiddlware, mw...) }
}

// Server is the control API server.
type Server struct {
	engine        *gin.Engine
	server        *http.Server
	ctl           Controller
	actionTimeout time.Duration
}

// NewServer builds the gin engine and the routes. addr is where Start listens.
func NewServer(addr string, ctl Controller, opts ...ServerOption) *Server {
	cfg := &serverOptionConfig{
		actionTimeout: 30 * time.Second,
		readTimeout:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if !cfg.debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(logging.GinLogrusLogger())
	engine.Use(logging.GinLogrusRecovery())
	engine.Use(middleware.LoopbackOnly())
	engine.Use(middleware.RequireClientHeader())
	engine.Use(middleware.PrometheusMiddleware())
	for _, mw := range cfg.extraMiddlware {
		engine.Use(mw)
	}

	s := &Server{
		engine:        engine,
		ctl:           ctl,
		actionTimeout: cfg.actionTimeout,
		server: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: cfg.readTimeout,
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Probes and scrapes arrive every few seconds; keep them out of the request log.
	s.engine.GET("/healthz", func(c *gin.Context) {
		logging.SkipGinRequestLogging(c)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	promHandler := metrics.Handler()
	s.engine.GET("/metrics", func(c *gin.Context) {
		logging.SkipGinRequestLogging(c)
		promHandler.ServeHTTP(c.Writer, c.Request)
	})

	v1 := s.engine.Group("/v1")
	v1.GET("/status", s.handleStatus)
	v1.POST("/start", s.handleAction(s.ctl.StartProcess))
	v1.POST("/stop", s.handleAction(s.ctl.StopProcess))
	v1.GET("/output", s.handleOutput)
}

// Handler exposes the engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{Status: s.ctl.Snapshot()})
}

func (s *Server) handleAction(fn func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.actionTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, StatusResponse{Status: s.ctl.Snapshot()})
	}
}

func (s *Server) handleOutput(c *gin.Context) {
	var lines []logging.LogEntry
	if after := c.Query("after"); after != "" {
		seq, err := strconv.ParseUint(after, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "after must be a sequence number"})
			return
		}
		lines = s.ctl.OutputAfter(seq)
	} else {
		n := DefaultOutputLines
		if v := c.Query("lines"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"message": "lines must be a non-negative integer"})
				return
			}
			n = parsed
		}
		lines = s.ctl.Output(n)
	}
	if lines == nil {
		lines = []logging.LogEntry{}
	}
	resp := OutputResponse{Lines: lines}
	if len(lines) > 0 {
		resp.LastSeq = lines[len(lines)-1].Seq
	}
	c.JSON(http.StatusOK, resp)
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		kind := apperrors.Kind("")
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			kind = apperrors.KindUnavailable
		}
		appErr = apperrors.New(kind, "request failed", err)
	}
	body := *appErr
	if appErr.Err != nil {
		body.Message = appErr.Error()
	}
	c.Data(apperrors.HTTPStatus(appErr.Kind), "application/json", body.ToJSON())
}

// Start listens and serves until Stop. It returns nil after a graceful stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to start control API: %w", err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	log.Debugf("control API listening on %s", ln.Addr())
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("control API: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	log.Debug("stopping control API")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown control API: %w", err)
	}
	return nil
}
