// Package mcpserver exposes the feature runner to MCP clients.
//
// Three tools are served: run_features executes feature files and returns
// the run summary as JSON, validate_features parses features without
// executing them, and list_step_definitions lists every registered step
// pattern and hook. The server speaks stdio for editor and agent
// integration, or SSE over HTTP for long-lived sessions.
package mcpserver
