package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/ludo-technologies/neardup/domain"
	"github.com/ludo-technologies/neardup/internal/config"
	"github.com/ludo-technologies/neardup/service"
)

// HandlerSet exposes MCP tool handlers with shared dependencies.
type HandlerSet struct {
	deps *Dependencies
}

// NewHandlerSet constructs a handler set.
func NewHandlerSet(deps *Dependencies) *HandlerSet {
	if deps == nil {
		deps = NewDependencies("", nil)
	}
	return &HandlerSet{deps: deps}
}

// engineArgs maps tool arguments onto the flag names the merge logic knows.
var engineArgs = []struct {
	arg  string
	flag string
}{
	{"num_hashes", service.FlagNumHashes},
	{"bands", service.FlagBands},
	{"rows", service.FlagRows},
	{"seed", service.FlagSeed},
	{"shingle_size", service.FlagShingleSize},
	{"normalize", service.FlagNormalize},
}

// applyEngineArgs copies the MinHash / LSH arguments present in args onto
// req and records them in tracker so they win over configuration.
func applyEngineArgs(args map[string]interface{}, req *domain.DedupRequest, tracker *config.FlagTracker) error {
	for _, e := range engineArgs {
		if _, ok := args[e.arg]; ok {
			tracker.Set(e.flag)
		}
	}
	if v, ok := args["num_hashes"].(float64); ok {
		req.NumHashes = int(v)
	}
	if v, ok := args["bands"].(float64); ok {
		req.Bands = int(v)
	}
	if v, ok := args["rows"].(float64); ok {
		req.Rows = int(v)
	}
	switch v := args["seed"].(type) {
	case float64:
		seed := int64(v)
		req.Seed = &seed
	case string:
		// JSON numbers are doubles; seeds beyond 2^53 travel as strings
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("seed must be an integer: %q", v)
		}
		req.Seed = &seed
	}
	if v, ok := args["shingle_size"].(float64); ok {
		req.ShingleSize = int(v)
	}
	if v, ok := args["normalize"].(bool); ok {
		req.Normalize = v
	}
	return nil
}

// HandleFindDuplicates handles the find_duplicates tool
func (h *HandlerSet) HandleFindDuplicates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return mcp.NewToolResultError("path parameter is required and must be a string"), nil
	}
	if !h.deps.pathExists(path) {
		return mcp.NewToolResultError(fmt.Sprintf("path does not exist: %s", path)), nil
	}

	tracker := config.NewFlagTracker()
	req := domain.DefaultDedupRequest()
	req.Paths = []string{path}
	req.ConfigPath = h.deps.ConfigPath()
	if err := applyEngineArgs(args, req, tracker); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if v, ok := args["text_field"].(string); ok {
		req.TextField = v
		tracker.Set(service.FlagTextField)
	}
	if v, ok := args["input_format"].(string); ok {
		req.InputFormat = domain.CorpusFormat(v)
		tracker.Set(service.FlagInputFormat)
	}
	if v, ok := args["retention"].(string); ok {
		req.Retention = domain.RetentionMode(v)
		tracker.Set(service.FlagRetention)
	}
	if v, ok := args["verify_threshold"].(float64); ok {
		req.VerifyThreshold = v
		tracker.Set(service.FlagVerifyThreshold)
	}
	if v, ok := args["output_path"].(string); ok && v != "" {
		req.OutputPath = v
		tracker.Set(service.FlagOutput)
	}

	// The report is always JSON and always returned inline
	var report bytes.Buffer
	req.ReportFormat = domain.OutputFormatJSON
	req.ReportWriter = &report
	tracker.Set(service.FlagReportFormat)

	startDir := path
	if !isDir(h.deps, path) {
		startDir = filepath.Dir(path)
	}
	useCase, err := h.deps.BuildDedupUseCase(tracker, startDir)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create dedup use case: %v", err)), nil
	}

	result, err := useCase.Execute(ctx, *req)
	if err != nil {
		h.deps.Logger().Warn("find_duplicates failed", zap.String("path", path), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("deduplication failed: %v", err)), nil
	}

	outputMode := "summary"
	if om, ok := args["output_mode"].(string); ok {
		outputMode = om
	}
	maxResults := 0
	if mr, ok := args["max_results"].(float64); ok {
		maxResults = int(mr)
	}

	if outputMode == "full" {
		return mcp.NewToolResultText(report.String()), nil
	}

	jsonData, err := json.Marshal(formatDedupSummary(result, maxResults))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// HandleEstimateSimilarity handles the estimate_similarity tool
func (h *HandlerSet) HandleEstimateSimilarity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	text1, ok1 := args["text1"].(string)
	text2, ok2 := args["text2"].(string)
	if !ok1 || !ok2 {
		return mcp.NewToolResultError("text1 and text2 parameters are required and must be strings"), nil
	}

	tracker := config.NewFlagTracker()
	req := domain.DefaultDedupRequest()
	req.ConfigPath = h.deps.ConfigPath()
	if err := applyEngineArgs(args, req, tracker); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	useCase, err := h.deps.BuildDedupUseCase(tracker, ".")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create dedup use case: %v", err)), nil
	}

	estimate, err := useCase.EstimateSimilarity(ctx, text1, text2, *req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("estimation failed: %v", err)), nil
	}

	jsonData, err := json.Marshal(estimate)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func isDir(deps *Dependencies, path string) bool {
	info, err := deps.fs.Stat(path)
	return err == nil && info.IsDir()
}

// formatDedupSummary keeps statistics and parameters and trims the group
// list to maxResults (0 keeps every group).
func formatDedupSummary(result *domain.DedupResponse, maxResults int) map[string]interface{} {
	groups := make([]map[string]interface{}, 0, len(result.Groups))
	for _, g := range result.Groups {
		if maxResults > 0 && len(groups) >= maxResults {
			break
		}
		groups = append(groups, map[string]interface{}{
			"kept":            g.Kept,
			"kept_source":     g.KeptSource,
			"dropped":         g.Dropped,
			"dropped_sources": g.DroppedSources,
			"similarity":      g.Similarity,
		})
	}

	return map[string]interface{}{
		"run_id":       result.RunID,
		"statistics":   result.Statistics,
		"parameters":   result.Parameters,
		"groups":       groups,
		"total_groups": len(result.Groups),
		"truncated":    len(groups) < len(result.Groups),
		"output_path":  outputPathOf(result),
	}
}

func outputPathOf(result *domain.DedupResponse) string {
	if result.Request == nil {
		return ""
	}
	return result.Request.OutputPath
}
