package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/placefinder/internal/app"
	"github.com/ternarybob/placefinder/internal/common"
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("PLACEFINDER_CONFIG")
	if configPath == "" {
		configPath = "placefinder.toml"
	}
	if _, err := os.Stat(configPath); err != nil {
		configPath = ""
	}

	config, err := common.LoadFromFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Minimal logging to avoid cluttering MCP stdio
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn")

	// The MCP server serves whatever indices the HTTP server last persisted and never rebuilds
	application, err := app.New(config, logger, app.ModeReadOnly)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load persisted indices")
	}
	defer application.Close()

	mcpServer := server.NewMCPServer(
		"placefinder",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(createSearchPlacesTool(), handleSearchPlaces(application.RetrievalService, application.Classifier, config.Search.FacilityTopK, logger))
	mcpServer.AddTool(createClassifyQueryTool(), handleClassifyQuery(application.Classifier))
	mcpServer.AddTool(createGetDirectionsTool(), handleGetDirections(application.Assistant, config.Naver.StartName, logger))

	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
