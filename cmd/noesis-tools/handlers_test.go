package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no text content in result")
	return ""
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestSearchRanksByTermOverlap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	writeJSON(t, path, []indexEntry{
		{Title: "Go concurrency", Snippet: "goroutines and channels"},
		{Title: "Rust ownership", Snippet: "borrow checker"},
		{Title: "Go channels in depth", Snippet: "select and channels in go"},
	})
	t.Setenv("NOESIS_SEARCH_INDEX", path)

	res, err := handleSearch(context.Background(), callRequest("search", map[string]any{
		"query":       "go channels",
		"max_results": float64(2),
	}))
	require.NoError(t, err)

	text := resultText(t, res)
	assert.Contains(t, text, "Go channels in depth")
	assert.Contains(t, text, "Go concurrency")
	assert.NotContains(t, text, "Rust")
}

func TestSearchMissingIndexIsToolError(t *testing.T) {
	t.Setenv("NOESIS_SEARCH_INDEX", filepath.Join(t.TempDir(), "absent.json"))

	res, err := handleSearch(context.Background(), callRequest("search", map[string]any{"query": "anything"}))
	require.NoError(t, err, "tool failures travel as tool errors, not transport errors")
	assert.True(t, res.IsError)
}

func TestSearchRequiresQuery(t *testing.T) {
	res, err := handleSearch(context.Background(), callRequest("search", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestTimeRejectsUnknownTimezone(t *testing.T) {
	res, err := handleTime(context.Background(), callRequest("time", map[string]any{"timezone": "Mars/Olympus"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestTimeDefaultsToLocal(t *testing.T) {
	res, err := handleTime(context.Background(), callRequest("time", map[string]any{}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.NotEmpty(t, resultText(t, res))
}

func TestMemorySearchScopeFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.json")
	writeJSON(t, path, []note{
		{Text: "user prefers metric units", Scope: "conversation"},
		{Text: "metric system conversion table", Scope: "archive"},
	})
	t.Setenv("NOESIS_NOTES_FILE", path)

	res, err := handleMemorySearch(context.Background(), callRequest("memory_search", map[string]any{
		"query": "metric",
		"scope": "conversation",
	}))
	require.NoError(t, err)

	text := resultText(t, res)
	assert.Contains(t, text, "prefers metric units")
	assert.NotContains(t, text, "conversion table")
}

func TestMemorySearchNoNotesFile(t *testing.T) {
	t.Setenv("NOESIS_NOTES_FILE", filepath.Join(t.TempDir(), "none.json"))

	res, err := handleMemorySearch(context.Background(), callRequest("memory_search", map[string]any{"query": "x"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "no saved notes", resultText(t, res))
}
