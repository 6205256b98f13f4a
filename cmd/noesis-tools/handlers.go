package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// indexEntry is one searchable document in the local index file.
type indexEntry struct {
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet"`
}

// note is one saved conversation note.
type note struct {
	Text  string `json:"text"`
	Scope string `json:"scope,omitempty"`
}

func dataPath(envKey, fallback string) string {
	if p := os.Getenv(envKey); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fallback
	}
	return filepath.Join(home, ".noesis", fallback)
}

func handleSearch(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	max := 5
	if v, ok := req.GetArguments()["max_results"].(float64); ok && v > 0 {
		max = int(v)
	}

	path := dataPath("NOESIS_SEARCH_INDEX", "index.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search index unavailable: %v", err)), nil
	}
	var entries []indexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search index corrupt: %v", err)), nil
	}

	terms := strings.Fields(strings.ToLower(query))
	type scored struct {
		entry indexEntry
		score int
	}
	var hits []scored
	for _, e := range entries {
		haystack := strings.ToLower(e.Title + " " + e.Snippet)
		score := 0
		for _, t := range terms {
			if strings.Contains(haystack, t) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{e, score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > max {
		hits = hits[:max]
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("no results for: " + query), nil
	}

	var b strings.Builder
	for i, h := range hits {
		fmt.Fprintf(&b, "%d. %s", i+1, h.entry.Title)
		if h.entry.URL != "" {
			fmt.Fprintf(&b, " (%s)", h.entry.URL)
		}
		fmt.Fprintf(&b, "\n   %s\n", h.entry.Snippet)
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

func handleTime(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	now := time.Now()
	if tz := req.GetString("timezone", ""); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("unknown timezone %q", tz)), nil
		}
		now = now.In(loc)
	}
	return mcp.NewToolResultText(now.Format("Monday, 2 January 2006 15:04:05 MST")), nil
}

var weatherClient = &http.Client{Timeout: 10 * time.Second}

func handleWeather(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	location := req.GetString("location", "")
	if location == "" {
		return mcp.NewToolResultError("location is required"), nil
	}

	u := "https://wttr.in/" + url.PathEscape(location) + "?format=3"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := weatherClient.Do(httpReq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("weather lookup failed: %v", err)), nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return mcp.NewToolResultError(fmt.Sprintf("weather lookup failed: status %d", resp.StatusCode)), nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("weather lookup failed: %v", err)), nil
	}
	return mcp.NewToolResultText(strings.TrimSpace(string(body))), nil
}

func handleMemorySearch(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	k := 3
	if v, ok := req.GetArguments()["k"].(float64); ok && v > 0 {
		k = int(v)
	}
	scope := req.GetString("scope", "")

	path := dataPath("NOESIS_NOTES_FILE", "notes.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return mcp.NewToolResultText("no saved notes"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("notes unavailable: %v", err)), nil
	}
	var notes []note
	if err := json.Unmarshal(data, &notes); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("notes corrupt: %v", err)), nil
	}

	terms := strings.Fields(strings.ToLower(query))
	type scored struct {
		text  string
		score int
	}
	var hits []scored
	for _, n := range notes {
		if scope != "" && n.Scope != "" && n.Scope != scope {
			continue
		}
		lower := strings.ToLower(n.Text)
		score := 0
		for _, t := range terms {
			if strings.Contains(lower, t) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{n.Text, score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > k {
		hits = hits[:k]
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("no matching notes"), nil
	}

	lines := make([]string, len(hits))
	for i, h := range hits {
		lines[i] = "- " + h.text
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}
