// Package api serves a lanes board as JSON over HTTP. Tasks and boards use
// the same field names as the manifest. Failures carry the error kind and
// map to a status code: 404 for an unknown id, 400 for invalid input, 422
// for a corrupt board and 500 for I/O failures.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/papapumpkin/lanes/internal/lifecycle"
)

// shutdownTimeout bounds how long Run waits for in-flight requests.
const shutdownTimeout = 5 * time.Second

// Server is the HTTP adapter over one lifecycle Service. Handlers take a
// lock around every service call, so concurrent clients are serialized.
type Server struct {
	svc    *lifecycle.Service
	logger log.FieldLogger
	echo   *echo.Echo
	mu     sync.Mutex
}

// New builds a server with every route registered.
func New(svc *lifecycle.Service, logger log.FieldLogger) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logger.WithFields(log.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency,
			}).Debug("http request")
			return nil
		},
	}))

	s := &Server{svc: svc, logger: logger, echo: e}
	s.register()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("http server listening")
		errc <- s.echo.Start(addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

// register wires up all routes.
func (s *Server) register() {
	e := s.echo
	e.GET("/healthz", s.healthz)

	g := e.Group("/api")
	g.GET("/board", s.getBoard)
	g.POST("/board/reconcile", s.reconcileBoard)
	g.GET("/next", s.nextTask)

	g.GET("/tasks", s.listTasks)
	g.POST("/tasks", s.createTask)
	g.GET("/tasks/:id", s.getTask)
	g.PATCH("/tasks/:id", s.updateTask)
	g.DELETE("/tasks/:id", s.deleteTask)
	g.POST("/tasks/:id/move", s.moveTask)
	g.POST("/tasks/:id/claim", s.claimTask)
	g.POST("/tasks/:id/release", s.releaseTask)
	g.POST("/tasks/:id/done", s.markDone)
	g.POST("/tasks/:id/archive", s.archiveTask)

	g.GET("/archive", s.listArchived)
	g.POST("/archive/done", s.archiveAllDone)
	g.POST("/archive/:id/restore", s.restoreTask)
}

// locked runs fn while holding the board lock.
func (s *Server) locked(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}
