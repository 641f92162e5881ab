package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/models"
	"github.com/ternarybob/placefinder/internal/services/assistant"
	"github.com/ternarybob/placefinder/internal/services/intent"
)

const maxTopK = 20

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

// handleSearchPlaces implements the search_places tool
func handleSearchPlaces(retrieval interfaces.RetrievalService, classifier *intent.Classifier, defaultTopK int, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return textResult("Error: query parameter is required"), nil
		}

		topK := request.GetInt("top_k", defaultTopK)
		if topK <= 0 {
			topK = defaultTopK
		}
		if topK > maxTopK {
			topK = maxTopK
		}

		var category models.Category
		if raw := request.GetString("category", ""); raw != "" {
			c, ok := models.ParseCategory(raw)
			if !ok {
				return textResult(fmt.Sprintf("Error: unknown category %q", raw)), nil
			}
			category = c
		} else {
			match := classifier.Categorize(query)
			if match.Category == models.CategoryNone {
				return textResult("Error: no category could be inferred from the query; pass category explicitly"), nil
			}
			category = match.Category
		}

		results := retrieval.Search(ctx, query, category, topK)
		logger.Debug().
			Str("query", query).
			Str("category", category.String()).
			Int("results", len(results)).
			Msg("MCP search_places")

		return textResult(formatPlaces(query, category, results)), nil
	}
}

// handleClassifyQuery implements the classify_query tool
func handleClassifyQuery(classifier *intent.Classifier) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return textResult("Error: query parameter is required"), nil
		}

		return textResult(formatClassification(classifier.Classify(query), classifier.Categorize(query))), nil
	}
}

// handleGetDirections implements the get_directions tool
func handleGetDirections(svc *assistant.Service, origin string, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target, err := request.RequireString("target")
		if err != nil || target == "" {
			return textResult("Error: target parameter is required"), nil
		}

		answer, err := svc.Directions(ctx, target, origin)
		if err != nil {
			logger.Error().Err(err).Str("target", target).Msg("MCP get_directions failed")
			return textResult(fmt.Sprintf("Directions error: %v", err)), nil
		}

		return textResult(formatDirections(answer)), nil
	}
}
