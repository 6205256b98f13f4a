// noesis-tools is the reference tool server for the noesis pipeline. It
// speaks MCP over stdio and exposes the four tools the planner can request:
// search, time, weather, and memory_search.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const version = "0.3.0"

func main() {
	s := server.NewMCPServer("noesis-tools", version, server.WithToolCapabilities(true))

	s.AddTool(mcp.NewTool("search",
		mcp.WithDescription("Search the local document index for relevant snippets"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithNumber("max_results", mcp.Description("Maximum number of results (default 5)")),
	), handleSearch)

	s.AddTool(mcp.NewTool("time",
		mcp.WithDescription("Get the current date and time"),
		mcp.WithString("timezone", mcp.Description("IANA timezone name, e.g. Europe/Lisbon (default local)")),
	), handleTime)

	s.AddTool(mcp.NewTool("weather",
		mcp.WithDescription("Get current weather for a location"),
		mcp.WithString("location", mcp.Required(), mcp.Description("City or place name")),
	), handleWeather)

	s.AddTool(mcp.NewTool("memory_search",
		mcp.WithDescription("Search saved notes from earlier conversations"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithNumber("k", mcp.Description("Number of notes to return (default 3)")),
		mcp.WithString("scope", mcp.Description("Note scope filter (default all)")),
	), handleMemorySearch)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "noesis-tools: %v\n", err)
		os.Exit(1)
	}
}
