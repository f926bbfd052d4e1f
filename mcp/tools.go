package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// engineOptions are the MinHash / LSH parameters shared by both tools
func engineOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("num_hashes",
			mcp.Description("Signature length, must equal bands * rows (default: 100)")),
		mcp.WithNumber("bands",
			mcp.Description("Number of LSH bands (default: 10)")),
		mcp.WithNumber("rows",
			mcp.Description("Rows per LSH band (default: 10)")),
		mcp.WithString("seed",
			mcp.Description("Seed for a reproducible hash family, as an integer string; plain numbers are accepted but lose precision above 2^53 (default: random)")),
		mcp.WithNumber("shingle_size",
			mcp.Description("Character shingle width (default: 2)")),
		mcp.WithBoolean("normalize",
			mcp.Description("Fold Unicode, case and whitespace before shingling (default: false)")),
	}
}

// RegisterTools registers the neardup MCP tools with the server
func RegisterTools(s *server.MCPServer, h *HandlerSet) {
	if h == nil {
		h = NewHandlerSet(nil)
	}

	// Tool 1: find_duplicates - corpus deduplication
	findOpts := []mcp.ToolOption{
		mcp.WithDescription("Find near-duplicate records in a text corpus using MinHash signatures and banded LSH"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Corpus file or directory (JSONL, JSON array or plain text)")),
		mcp.WithString("text_field",
			mcp.Description("JSON path of the field to compare, e.g. text or doc.body (default: text)")),
		mcp.WithString("input_format",
			mcp.Enum("auto", "jsonl", "json", "text"),
			mcp.Description("Corpus format (default: auto)")),
		mcp.WithString("retention",
			mcp.Enum("keep_first", "keep_longest", "union"),
			mcp.Description("Which record of each duplicate cluster survives (default: keep_first)")),
		mcp.WithNumber("verify_threshold",
			mcp.Description("Ignore candidates with estimated similarity below this value, 0 disables (default: 0)")),
		mcp.WithString("output_path",
			mcp.Description("Optional file to write the kept records to")),
		mcp.WithString("output_mode",
			mcp.Enum("summary", "full"),
			mcp.Description("summary trims groups to max_results, full returns the whole JSON report (default: summary)")),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of groups in summary mode, 0 = all (default: 0)")),
	}
	s.AddTool(mcp.NewTool("find_duplicates", append(findOpts, engineOptions()...)...), h.HandleFindDuplicates)

	// Tool 2: estimate_similarity - pairwise comparison
	estimateOpts := []mcp.ToolOption{
		mcp.WithDescription("Compare two texts: exact shingle Jaccard, MinHash estimate, shared LSH bands and candidate probability"),
		mcp.WithString("text1",
			mcp.Required(),
			mcp.Description("First text")),
		mcp.WithString("text2",
			mcp.Required(),
			mcp.Description("Second text")),
	}
	s.AddTool(mcp.NewTool("estimate_similarity", append(estimateOpts, engineOptions()...)...), h.HandleEstimateSimilarity)
}
