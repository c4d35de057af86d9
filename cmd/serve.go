package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"specrun/internal/config"
	"specrun/internal/mcpserver"
	"specrun/pkg/logging"
)

var (
	serveSSE       bool
	serveHost      string
	servePort      int
	serveStepPaths []string
	serveKube      bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the run engine to MCP clients",
	Long: `The serve command runs an MCP (Model Context Protocol) server that exposes
the feature run engine as tools, so MCP clients such as AI assistants can
execute and inspect behavioral tests.

It can run over two transports:

1. Stdio (default):
   - Speaks MCP over stdin/stdout for clients that spawn the server
     themselves. Configure it in your assistant's MCP settings.

2. SSE (using --sse):
   - Serves HTTP with Server-Sent Events on --host and --port for clients
     that connect over the network. Runs until interrupted.

Exposed tools:
  run_features          Execute feature files and return the JSON summary
  validate_features     Parse feature files and report syntax errors
  list_step_definitions List the registered step patterns and hooks

Step definitions come from the built-in library plus any --steps plugin
sources, matching what 'specrun run' would use.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveSSE, "sse", false, "Serve over SSE instead of stdio")
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "Host to bind the SSE server to")
	serveCmd.Flags().IntVar(&servePort, "port", 8585, "Port for the SSE server")
	serveCmd.Flags().StringSliceVar(&serveStepPaths, "steps", nil, "Step definition sources (.go files or directories), repeatable")
	serveCmd.Flags().BoolVar(&serveKube, "kube", false, "Give each scenario an isolated Kubernetes namespace as its World")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("kube") {
		cfg.Kube.Enabled = serveKube
	}
	if cmd.Flags().Changed("steps") {
		cfg.Plugins.Paths = append(cfg.Plugins.Paths, serveStepPaths...)
	}

	// Stdio transport owns stdout, so logs always go to stderr here.
	logging.InitForCLI(logging.ParseLevel(cfg.LogLevel), os.Stderr)

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	factory, err := buildWorldFactory(cfg)
	if err != nil {
		return err
	}

	server, err := mcpserver.New(mcpserver.Config{
		Version: rootCmd.Version,
		Host:    serveHost,
		Port:    servePort,
		Run:     cfg.Run,
	}, registry, factory)
	if err != nil {
		return fmt.Errorf("failed to initialize MCP server: %w", err)
	}

	if !serveSSE {
		// Blocks until the client closes the stdio stream.
		return server.ServeStdio()
	}

	if err := server.StartSSE(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "MCP server listening on %s\n", server.Endpoint())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down MCP server...")
	return server.Stop(cmd.Context())
}
