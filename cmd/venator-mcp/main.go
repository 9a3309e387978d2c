package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/storage/badger"
)

func main() {
	// Load configuration
	configPath := os.Getenv("VENATOR_CONFIG")
	if configPath == "" {
		configPath = "venator.toml"
	}

	config, err := common.LoadFromFiles(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Minimal console logger so stdio stays clean for the MCP protocol
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn")

	// Open the same badger store the server writes to
	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer db.Close()

	storage := badger.NewRunStorage(db, config.Storage.EventAuditLimit, logger)

	// Create MCP server
	mcpServer := server.NewMCPServer(
		"venator",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	// Register lead and run tools
	mcpServer.AddTool(createSearchLeadsTool(), handleSearchLeads(storage, logger))
	mcpServer.AddTool(createGetRunTool(), handleGetRun(storage, logger))
	mcpServer.AddTool(createGetRunLeadsTool(), handleGetRunLeads(storage, logger))
	mcpServer.AddTool(createListRecentRunsTool(), handleListRecentRuns(storage, logger))

	// Start server (blocks on stdio)
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
