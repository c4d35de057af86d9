package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"specrun/internal/engine"
	"specrun/internal/gherkin"
	"specrun/pkg/logging"
)

// tools returns the runner tools with their handlers bound to this server.
func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: runFeaturesTool(), Handler: s.handleRunFeatures},
		{Tool: validateFeaturesTool(), Handler: s.handleValidateFeatures},
		{Tool: listStepDefinitionsTool(), Handler: s.handleListStepDefinitions},
	}
}

func runFeaturesTool() mcp.Tool {
	return mcp.NewTool("run_features",
		mcp.WithDescription("Execute Gherkin feature files and return the run summary as JSON"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Feature file or directory to run (directories are walked for *.feature files)"),
		),
		mcp.WithString("tags",
			mcp.Description("Tag expression selecting scenarios, e.g. '@smoke and not @wip'"),
		),
		mcp.WithString("name",
			mcp.Description("Regular expression selecting scenarios by name"),
		),
		mcp.WithNumber("concurrency",
			mcp.Description("Maximum number of scenarios in flight at once"),
		),
		mcp.WithBoolean("fail_fast",
			mcp.Description("Stop scheduling new scenarios after the first failure"),
			mcp.DefaultBool(false),
		),
		mcp.WithString("step_timeout",
			mcp.Description("Per-step timeout as a Go duration, e.g. '30s'"),
		),
		mcp.WithBoolean("undefined_ok",
			mcp.Description("Report undefined steps without failing the run"),
			mcp.DefaultBool(false),
		),
	)
}

func validateFeaturesTool() mcp.Tool {
	return mcp.NewTool("validate_features",
		mcp.WithDescription("Parse Gherkin feature files and report syntax errors without executing anything"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Feature file or directory to validate"),
		),
	)
}

func listStepDefinitionsTool() mcp.Tool {
	return mcp.NewTool("list_step_definitions",
		mcp.WithDescription("List every registered step definition pattern and hook"),
	)
}

// handleRunFeatures loads the requested features, runs them against the
// configured registry and returns the summary as JSON. A failing run is a
// valid tool result, not a tool error; clients read the verdict from the
// summary.
func (s *Server) handleRunFeatures(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("path is required"), nil
	}

	cfg := s.config.Run
	cfg.Tags = req.GetString("tags", cfg.Tags)
	cfg.NameFilter = req.GetString("name", cfg.NameFilter)
	cfg.FailFast = req.GetBool("fail_fast", cfg.FailFast)
	cfg.UndefinedStepsOk = req.GetBool("undefined_ok", cfg.UndefinedStepsOk)
	if args, ok := req.Params.Arguments.(map[string]interface{}); ok {
		if v, ok := args["concurrency"].(float64); ok && v > 0 {
			cfg.Concurrency = int(v)
		}
	}
	if raw := req.GetString("step_timeout", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid step_timeout: %v", err)), nil
		}
		cfg.StepTimeout = d
	}

	features, err := gherkin.LoadFeatures(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load features: %v", err)), nil
	}
	if len(features) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("No feature files found under %s", path)), nil
	}

	runner, err := engine.NewRunner(s.registry, s.factory, nil, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid run configuration: %v", err)), nil
	}

	logging.Info(subsystem, "Running %d feature(s) from %s", len(features), path)
	summary, err := runner.Run(ctx, features)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Run aborted: %v", err)), nil
	}

	resultJSON, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode summary: %v", err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(resultJSON))},
	}, nil
}

// handleValidateFeatures parses the requested features and reports their
// shape, or the full list of syntax errors when parsing fails.
func (s *Server) handleValidateFeatures(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("path is required"), nil
	}

	features, err := gherkin.LoadFeatures(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Validation failed: %v", err)), nil
	}

	type featureInfo struct {
		Path      string `json:"path"`
		Name      string `json:"name"`
		Scenarios int    `json:"scenarios"`
		Steps     int    `json:"steps"`
	}
	infos := make([]featureInfo, 0, len(features))
	scenarios, steps := 0, 0
	for _, f := range features {
		info := featureInfo{Path: f.Path, Name: f.Name, Scenarios: len(f.Scenarios)}
		for _, scn := range f.Scenarios {
			info.Steps += len(scn.Steps)
		}
		scenarios += info.Scenarios
		steps += info.Steps
		infos = append(infos, info)
	}

	resultJSON, _ := json.MarshalIndent(map[string]interface{}{
		"valid":     true,
		"features":  infos,
		"scenarios": scenarios,
		"steps":     steps,
	}, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(resultJSON))},
	}, nil
}

// handleListStepDefinitions lists the registered patterns in registration
// order plus the hook counts.
func (s *Server) handleListStepDefinitions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type stepDefinition struct {
		Keywords string `json:"keywords"`
		Pattern  string `json:"pattern"`
	}
	defs := make([]stepDefinition, 0, s.registry.Len())
	for _, p := range s.registry.Patterns() {
		defs = append(defs, stepDefinition{
			Keywords: p.Keywords().String(),
			Pattern:  p.Expr(),
		})
	}

	resultJSON, _ := json.MarshalIndent(map[string]interface{}{
		"stepDefinitions": defs,
		"beforeHooks":     len(s.registry.BeforeHooks()),
		"afterHooks":      len(s.registry.AfterHooks()),
	}, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(resultJSON))},
	}, nil
}
