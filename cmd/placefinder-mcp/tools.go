package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createSearchPlacesTool returns the search_places tool definition
func createSearchPlacesTool() mcp.Tool {
	return mcp.NewTool("search_places",
		mcp.WithDescription("Find catalog places (병원, 음식점, 카페, 약국) semantically similar to a Korean query"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text query, e.g. \"근처 이비인후과\""),
		),
		mcp.WithString("category",
			mcp.Description("병원, 음식점, 카페, 약국 or hospital, restaurant, cafe, pharmacy (default: classified from the query)"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum results to return (default: 3, max: 20)"),
		),
	)
}

// createClassifyQueryTool returns the classify_query tool definition
func createClassifyQueryTool() mcp.Tool {
	return mcp.NewTool("classify_query",
		mcp.WithDescription("Show how a query is routed: directions, facility_search or unknown, with the category score"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text query"),
		),
	)
}

// createGetDirectionsTool returns the get_directions tool definition
func createGetDirectionsTool() mcp.Tool {
	return mcp.NewTool("get_directions",
		mcp.WithDescription("Resolve a named hospital against the catalog and compute a driving route from the configured origin"),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("Destination name, e.g. \"강남세브란스\""),
		),
	)
}
