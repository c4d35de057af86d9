package mcpserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"specrun/internal/engine"
	"specrun/internal/stepdef"
	"specrun/pkg/logging"
)

const subsystem = "MCPServer"

// Config holds the settings of the MCP facade.
type Config struct {
	// Version is advertised to clients during the MCP handshake.
	Version string
	// Host and Port locate the SSE endpoint; stdio ignores them.
	Host string
	Port int
	// Run provides the execution defaults for the run_features tool.
	// Tool arguments override individual fields per call.
	Run engine.RunConfig
}

// Server exposes the feature runner over the Model Context Protocol.
type Server struct {
	config   Config
	registry *stepdef.Registry
	factory  engine.WorldFactory

	mu  sync.Mutex
	mcp *server.MCPServer
	sse *server.SSEServer
}

// New creates the MCP server and registers the runner tools on it. factory
// may be nil, in which case scenarios run against the default map World.
func New(config Config, registry *stepdef.Registry, factory engine.WorldFactory) (*Server, error) {
	if registry == nil {
		return nil, fmt.Errorf("mcpserver: registry must not be nil")
	}
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == 0 {
		config.Port = 8585
	}
	if config.Version == "" {
		config.Version = "dev"
	}

	s := &Server{
		config:   config,
		registry: registry,
		factory:  factory,
	}

	mcpServer := server.NewMCPServer(
		"specrun",
		config.Version,
		server.WithToolCapabilities(true),
	)
	mcpServer.AddTools(s.tools()...)
	s.mcp = mcpServer

	return s, nil
}

// ServeStdio serves MCP over stdin/stdout and blocks until the client
// disconnects.
func (s *Server) ServeStdio() error {
	logging.Info(subsystem, "Serving MCP on stdio")
	return server.ServeStdio(s.mcp)
}

// StartSSE starts the HTTP/SSE transport in the background.
func (s *Server) StartSSE() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sse != nil {
		return fmt.Errorf("mcpserver: SSE transport already started")
	}

	baseURL := fmt.Sprintf("http://%s:%d", s.config.Host, s.config.Port)
	sse := server.NewSSEServer(
		s.mcp,
		server.WithBaseURL(baseURL),
		server.WithSSEEndpoint("/sse"),
		server.WithMessageEndpoint("/message"),
		server.WithKeepAlive(true),
		server.WithKeepAliveInterval(30*time.Second),
	)
	s.sse = sse

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	logging.Info(subsystem, "Serving MCP on %s/sse", baseURL)
	go func() {
		if err := sse.Start(addr); err != nil && err != http.ErrServerClosed {
			logging.Error(subsystem, err, "SSE server error")
		}
	}()

	return nil
}

// Stop shuts the SSE transport down, waiting up to five seconds for open
// connections to drain. Stdio needs no explicit stop: it ends with the
// stream.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	sse := s.sse
	s.sse = nil
	s.mu.Unlock()
	if sse == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	logging.Info(subsystem, "Stopping MCP server")
	return sse.Shutdown(shutdownCtx)
}

// Endpoint returns the SSE endpoint URL clients connect to.
func (s *Server) Endpoint() string {
	return fmt.Sprintf("http://%s:%d/sse", s.config.Host, s.config.Port)
}
