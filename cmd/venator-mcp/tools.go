package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createSearchLeadsTool returns the search_leads tool definition
func createSearchLeadsTool() mcp.Tool {
	return mcp.NewTool("search_leads",
		mcp.WithDescription("Search qualified leads across all stored runs by name, company, or intent signal"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Case-insensitive substring matched against lead name, company, and intent signal"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results to return (default: 20, max: 100)"),
		),
	)
}

// createGetRunTool returns the get_run tool definition
func createGetRunTool() mcp.Tool {
	return mcp.NewTool("get_run",
		mcp.WithDescription("Retrieve a lead generation run by ID, including its result summary"),
		mcp.WithString("run_id",
			mcp.Required(),
			mcp.Description("Run ID (format: run_{uuid})"),
		),
	)
}

// createGetRunLeadsTool returns the get_run_leads tool definition
func createGetRunLeadsTool() mcp.Tool {
	return mcp.NewTool("get_run_leads",
		mcp.WithDescription("List the qualified leads produced by a completed run"),
		mcp.WithString("run_id",
			mcp.Required(),
			mcp.Description("Run ID (format: run_{uuid})"),
		),
	)
}

// createListRecentRunsTool returns the list_recent_runs tool definition
func createListRecentRunsTool() mcp.Tool {
	return mcp.NewTool("list_recent_runs",
		mcp.WithDescription("List recent lead generation runs, newest first"),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10)"),
		),
	)
}
