// Package transport provides the local control API the hotkey/menu layer
// calls. It is the daemon's only inbound surface besides /metrics.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"clipflow/internal/detect"
	"clipflow/internal/flow"
	"clipflow/internal/logging"
)

// Server exposes trigger, cancel, reset, status and detector controls.
type Server struct {
	echo     *echo.Echo
	orch     *flow.Orchestrator
	detector *detect.Detector
	port     int
	log      *slog.Logger
}

func NewServer(orch *flow.Orchestrator, detector *detect.Detector, port int) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		orch:     orch,
		detector: detector,
		port:     port,
		log:      logging.With("transport"),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)

	v1 := s.echo.Group("/v1")
	v1.POST("/trigger", s.handleTrigger)
	v1.POST("/cancel", s.handleCancel)
	v1.POST("/reset", s.handleReset)
	v1.GET("/status", s.handleStatus)
	v1.POST("/detector/suspend", s.handleSuspend)
	v1.POST("/detector/resume", s.handleResume)
}

func (s *Server) Start() error {
	s.log.Info("control api listening", "port", s.port)
	return s.echo.Start(fmt.Sprintf(":%d", s.port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

/*──────── handlers ───────*/

type triggerRequest struct {
	// Transformation names a single transformation; empty means run the
	// configured pipeline.
	Transformation string `json:"transformation"`
}

type triggerResponse struct {
	Accepted bool `json:"accepted"`
}

func (s *Server) handleTrigger(c echo.Context) error {
	var req triggerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	src := flow.PipelineSource()
	if req.Transformation != "" {
		src = flow.SingleSource(req.Transformation)
	}
	accepted := s.orch.HandleTrigger(c.Request().Context(), src)
	status := http.StatusAccepted
	if !accepted {
		status = http.StatusConflict
	}
	return c.JSON(status, triggerResponse{Accepted: accepted})
}

func (s *Server) handleCancel(c echo.Context) error {
	s.orch.Cancel()
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleReset(c echo.Context) error {
	s.orch.Reset()
	return c.NoContent(http.StatusNoContent)
}

type statusResponse struct {
	Phase      string `json:"phase"`
	Processing bool   `json:"processing"`
	LastError  string `json:"last_error,omitempty"`
	Category   string `json:"category,omitempty"`
}

func (s *Server) handleStatus(c echo.Context) error {
	st := s.orch.State()
	resp := statusResponse{
		Phase:      string(st.Phase),
		Processing: st.Phase == flow.PhaseProcessing,
	}
	if lastErr := s.orch.LastError(); lastErr != nil {
		resp.LastError = lastErr.Error()
		category, _ := flow.Categorize(lastErr)
		resp.Category = string(category)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSuspend(c echo.Context) error {
	if s.detector != nil {
		s.detector.Suspend()
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleResume(c echo.Context) error {
	if s.detector != nil {
		s.detector.Resume()
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
