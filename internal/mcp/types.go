package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// request is a JSON-RPC 2.0 request line sent to the tool server.
type request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id,omitempty"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// callParams is the payload for tools/call.
type callParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// response is a JSON-RPC 2.0 response or server notification line.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *responseError  `json:"error,omitempty"`
	Method  string          `json:"method,omitempty"`
}

type responseError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}

// ToolDescriptor describes one tool offered by the server.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// ErrUnavailable is returned when the child process is not running.
var ErrUnavailable = errors.New("tool client: process not running")

// TimeoutError is returned when no matching response arrived within the
// deadline. It carries the most recent unmatched lines for diagnosis.
type TimeoutError struct {
	Tool          string
	Timeout       time.Duration
	UnmatchedTail []string
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("tool call %q timed out after %s", e.Tool, e.Timeout)
	if len(e.UnmatchedTail) > 0 {
		msg += "; recent unmatched lines: " + strings.Join(e.UnmatchedTail, " | ")
	}
	return msg
}

// ToolError is a failure reported by the tool server itself.
type ToolError struct {
	Message string
}

func (e *ToolError) Error() string {
	return "tool error: " + e.Message
}
