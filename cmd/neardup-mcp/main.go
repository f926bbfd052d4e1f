package main

import (
	"fmt"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ludo-technologies/neardup/internal/logging"
	"github.com/ludo-technologies/neardup/internal/version"
	"github.com/ludo-technologies/neardup/mcp"
)

const serverName = "neardup"

func main() {
	configPath := pflag.StringP("config", "c", "", "Path to configuration file (default: discover .neardup.toml)")
	verbose := pflag.BoolP("verbose", "v", false, "Enable debug logging")
	pflag.Parse()

	// Logs go to stderr; stdout carries JSON-RPC
	logger := logging.Must(*verbose)
	defer func() { _ = logger.Sync() }()

	server := mcpserver.NewMCPServer(
		serverName,
		version.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
	)

	mcp.RegisterTools(server, mcp.NewHandlerSet(mcp.NewDependencies(*configPath, logger)))

	logger.Info("starting MCP server",
		zap.String("name", serverName),
		zap.String("version", version.Version),
		zap.Strings("tools", []string{"find_duplicates", "estimate_similarity"}))

	// Blocks until the client disconnects
	if err := mcpserver.ServeStdio(server); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
