package shell

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/driftwatch/console-core/internal/infrastructure/config"
	"github.com/driftwatch/console-core/internal/infrastructure/logging"
	"github.com/driftwatch/console-core/internal/session"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the shell server.
type Deps struct {
	Config  config.Shell
	Logger  *logging.Logger
	Manager *session.Manager

	// DemoRoleOverride enables the demo role endpoints. Off in
	// production builds.
	DemoRoleOverride bool

	Version string
}

// Server is the local HTTP server backing the console UI.
//
// It manages the HTTP listener, routes, middleware, and the WebSocket
// hub that fans session change events out to connected views. The server
// is created with New() and started with Start().
type Server struct {
	cfg         config.Shell
	logger      *logging.Logger
	manager     *session.Manager
	demoEnabled bool
	version     string
	server      *http.Server
	hub         *Hub
	cancel      context.CancelFunc
	unsubscribe func()
}

// New creates a new shell server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Manager == nil {
		return nil, fmt.Errorf("session manager is required")
	}

	return &Server{
		cfg:         deps.Config,
		logger:      deps.Logger,
		manager:     deps.Manager,
		demoEnabled: deps.DemoRoleOverride,
		version:     deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, subscribes to session manager transitions
// for broadcast to connected views, and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.cfg.WS, s.logger)
	go s.hub.Run(srvCtx)

	// Every manager transition is fanned out to connected views. This is
	// how an organization switch invalidates dependent screens without a
	// full reload.
	s.unsubscribe = s.manager.Subscribe(s.broadcastSessionChange)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("shell server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("shell server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the shell server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("shell server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down shell server: %w", err)
	}
	return nil
}

// HealthCheck verifies the shell server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("shell health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("shell server not started")
	}

	return nil
}
