package daemon

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"gitpulse/internal/engine"
	"gitpulse/internal/logger"
	"gitpulse/internal/repository"
)

// Server exposes the control API the client commands (and any external
// process manager) talk to.
type Server struct {
	echo     *echo.Echo
	sup      *engine.Supervisor
	histRepo *repository.HistoryRepository
	port     int
	stopCh   chan struct{}
}

func NewServer(sup *engine.Supervisor, histRepo *repository.HistoryRepository, port int) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		sup:      sup,
		histRepo: histRepo,
		port:     port,
		stopCh:   make(chan struct{}, 1),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/status", s.handleStatus)
	s.echo.POST("/sync", s.handleSync)
	s.echo.POST("/stop", s.handleStop)
	s.echo.GET("/history", s.handleHistory)
}

func (s *Server) Start() {
	go func() {
		addr := "localhost:" + strconv.Itoa(s.port)
		logger.Log.Info("daemon server started",
			zap.String("addr", addr))

		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("daemon server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) StopCh() <-chan struct{} {
	return s.stopCh
}

func (s *Server) handleStatus(c echo.Context) error {
	body := map[string]any{
		"running": s.sup.State() == engine.StateRunning,
		"stats":   s.sup.Stats(),
		"health":  s.sup.Health(),
	}

	totals, err := s.histRepo.GetStats()
	if err != nil {
		logger.Log.Warn("failed to load history totals", zap.Error(err))
	} else {
		body["totals"] = totals
	}

	return c.JSON(http.StatusOK, body)
}

func (s *Server) handleSync(c echo.Context) error {
	reason := c.QueryParam("reason")
	if reason == "" {
		reason = "manual trigger"
	}

	if err := s.sup.TriggerSync(reason); err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusAccepted, map[string]string{"status": "sync requested"})
}

func (s *Server) handleStop(c echo.Context) error {
	// A repeated stop request must not block behind the first.
	select {
	case s.stopCh <- struct{}{}:
	default:
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "stopping"})
}

func (s *Server) handleHistory(c echo.Context) error {
	if c.QueryParam("failed") == "true" {
		histories, err := s.histRepo.GetFailed()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, histories)
	}

	n := 20
	if nStr := c.QueryParam("n"); nStr != "" {
		if parsed, err := strconv.Atoi(nStr); err == nil {
			n = parsed
		}
	}

	histories, err := s.histRepo.GetRecent(n)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, histories)
}
