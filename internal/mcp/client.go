// Package mcp implements the subprocess tool client: a persistent child
// process spoken to over newline-delimited JSON-RPC 2.0 with explicit
// id-based request correlation.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"noesis/internal/logging"
)

// unmatchedKeep bounds the diagnostic ring of unclaimed response lines.
const unmatchedKeep = 5

// Client manages one long-lived tool server child process. All turns share
// the same client; dispatch is serialized by a write lock and responses are
// claimed by id, so concurrent callers each consume only their own line.
type Client struct {
	command string
	args    []string

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	started   bool
	alive     bool
	closing   bool
	pending   map[string]chan *response
	unmatched []string
	wg        sync.WaitGroup
}

// NewClient creates a client for the given server command. The process is
// not launched until Start.
func NewClient(command string, args ...string) *Client {
	return &Client{
		command: command,
		args:    args,
		pending: make(map[string]chan *response),
	}
}

// Start launches the child process. A second call while the process is
// alive is a no-op. On launch failure the client stays not-alive and the
// error is returned; callers should check Alive before invoking.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.alive {
		return nil
	}
	if c.command == "" {
		return fmt.Errorf("empty tool server command")
	}

	cmd := exec.Command(c.command, c.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to get stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", c.command, err)
	}

	c.cmd = cmd
	c.stdin = stdin
	c.started = true
	c.alive = true
	c.closing = false

	c.wg.Add(2)
	go c.readStdout(stdout)
	go c.readStderr(stderr)

	logging.Get(logging.CategoryTools).Info("tool server started: %s", c.command)
	return nil
}

// startWithPipes wires the client to caller-supplied streams instead of a
// subprocess. Tests use this to script exact protocol exchanges.
func (c *Client) startWithPipes(stdin io.WriteCloser, stdout, stderr io.Reader) {
	c.mu.Lock()
	c.stdin = stdin
	c.started = true
	c.alive = true
	c.closing = false
	c.mu.Unlock()

	c.wg.Add(2)
	go c.readStdout(stdout)
	go c.readStderr(stderr)
}

// Alive reports whether the child process is running and its output stream
// is still open.
func (c *Client) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive
}

// Invoke calls a named tool and waits up to timeout for the correlated
// response. A dead client fails fast with ErrUnavailable. Remote failures
// surface as *ToolError; missed deadlines as *TimeoutError.
func (c *Client) Invoke(ctx context.Context, tool string, arguments map[string]interface{}, timeout time.Duration) (json.RawMessage, error) {
	resp, err := c.call(ctx, tool, "tools/call", callParams{Name: tool, Arguments: arguments}, timeout)
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// ListTools asks the server for its tool catalog.
func (c *Client) ListTools(ctx context.Context, timeout time.Duration) ([]ToolDescriptor, error) {
	resp, err := c.call(ctx, "tools/list", "tools/list", nil, timeout)
	if err != nil {
		return nil, err
	}
	var result struct {
		Tools []ToolDescriptor `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to parse tools/list response: %w", err)
	}
	return result.Tools, nil
}

// call dispatches one request line and waits for the response with a
// matching id.
func (c *Client) call(ctx context.Context, label, method string, params interface{}, timeout time.Duration) (*response, error) {
	id := uuid.NewString()
	req := request{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ch := make(chan *response, 1)

	c.mu.Lock()
	if !c.alive {
		c.mu.Unlock()
		return nil, ErrUnavailable
	}
	c.pending[id] = ch
	// The write happens under the same lock so concurrent callers cannot
	// interleave mid-line.
	if _, err := c.stdin.Write(append(data, '\n')); err != nil {
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("failed to write to tool server: %w", err)
	}
	c.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp == nil {
			return nil, ErrUnavailable
		}
		if resp.Error != nil {
			return nil, &ToolError{Message: resp.Error.Message}
		}
		return resp, nil
	case <-timer.C:
		c.mu.Lock()
		delete(c.pending, id)
		tail := make([]string, len(c.unmatched))
		copy(tail, c.unmatched)
		c.mu.Unlock()
		return nil, &TimeoutError{Tool: label, Timeout: timeout, UnmatchedTail: tail}
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// readStdout drains the child's output stream, delivering each response to
// the waiter whose id matches. Lines that match no pending call (server
// notifications, late responses) are retained in a bounded ring for
// timeout diagnostics.
func (c *Client) readStdout(stdout io.Reader) {
	defer c.wg.Done()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var resp response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			logging.Get(logging.CategoryTools).Warn("unparseable line from tool server: %v", err)
			continue
		}

		if resp.ID == "" {
			// Unsolicited notification, e.g. {"method":"status"} on startup.
			logging.Get(logging.CategoryTools).Debug("tool server notification: %s", resp.Method)
			continue
		}

		c.mu.Lock()
		if ch, ok := c.pending[resp.ID]; ok {
			delete(c.pending, resp.ID)
			ch <- &resp
		} else {
			c.unmatched = append(c.unmatched, line)
			if len(c.unmatched) > unmatchedKeep {
				c.unmatched = c.unmatched[len(c.unmatched)-unmatchedKeep:]
			}
			logging.Get(logging.CategoryTools).Warn("response for unknown id %s retained", resp.ID)
		}
		c.mu.Unlock()
	}

	// Output stream closed: the client is no longer usable. Release every
	// waiter so nothing blocks on a dead process.
	c.mu.Lock()
	closing := c.closing
	c.alive = false
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !closing {
		logging.Get(logging.CategoryTools).Warn("tool server output stream closed")
	}
}

// readStderr forwards the child's stderr into the log sink.
func (c *Client) readStderr(stderr io.Reader) {
	defer c.wg.Done()
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		logging.Get(logging.CategoryTools).Info("[tool server] %s", scanner.Text())
	}
}

// Close requests child termination and marks the client not-alive. It is
// idempotent and safe to call when already stopped.
func (c *Client) Close() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	c.closing = true
	c.alive = false
	if c.stdin != nil {
		_ = c.stdin.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		if c.cmd != nil {
			_ = c.cmd.Wait()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		logging.Get(logging.CategoryTools).Warn("timeout waiting for tool client readers to exit")
	}

	logging.Get(logging.CategoryTools).Info("tool client closed")
	return nil
}
