package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"noesis/internal/cache"
	"noesis/internal/llm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClient is a scripted llm.Client. respond produces the full text;
// chunks, when set, overrides how CompleteStream slices that text.
type fakeClient struct {
	mu      sync.Mutex
	id      string
	respond func(system, user string) (string, error)
	chunks  []string
	calls   int
	lastSys string
	lastUsr string
}

func staticClient(id, text string) *fakeClient {
	return &fakeClient{id: id, respond: func(_, _ string) (string, error) { return text, nil }}
}

func (f *fakeClient) Complete(_ context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastSys, f.lastUsr = system, user
	f.mu.Unlock()
	return f.respond(system, user)
}

func (f *fakeClient) CompleteStream(_ context.Context, system, user string, onDelta func(string) error) error {
	f.mu.Lock()
	f.calls++
	f.lastSys, f.lastUsr = system, user
	chunks := f.chunks
	f.mu.Unlock()

	text, err := f.respond(system, user)
	if err != nil {
		return err
	}
	if chunks == nil {
		chunks = []string{text}
	}
	for _, c := range chunks {
		if err := onDelta(c); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeClient) Model() string { return f.id }

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeClient) lastUser() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastUsr
}

// fakeTools is a scripted ToolInvoker recording which tools were called.
type fakeTools struct {
	mu     sync.Mutex
	down   bool
	result json.RawMessage
	err    error
	called []string
}

func (f *fakeTools) Alive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.down
}

func (f *fakeTools) Invoke(_ context.Context, tool string, _ map[string]interface{}, _ time.Duration) (json.RawMessage, error) {
	f.mu.Lock()
	f.called = append(f.called, tool)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeTools) tools() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.called...)
}

// fakeUsage collects turn records.
type fakeUsage struct {
	mu      sync.Mutex
	records []TurnRecord
}

func (f *fakeUsage) Record(turn TurnRecord) {
	f.mu.Lock()
	f.records = append(f.records, turn)
	f.mu.Unlock()
}

func (f *fakeUsage) all() []TurnRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]TurnRecord(nil), f.records...)
}

func testOptions() Options {
	return Options{
		Adaptive:               true,
		AdaptiveStream:         true,
		RoutingConfidenceFloor: 0.6,
		VerifyConfidenceCeil:   0.7,
		MathVerifySet:          map[string]bool{"medium": true, "hard": true},
		CodeVerifySet:          map[string]bool{"hard": true},
		ToolTimeout:            time.Second,
	}
}

func testRoles(planner, verifier, math, code, general *fakeClient) *llm.RoleSet {
	return llm.NewStaticRoleSet(planner, verifier, map[string]llm.Client{
		"math":    math,
		"code":    code,
		"general": general,
	})
}

func testOrchestrator(roles *llm.RoleSet, tools ToolInvoker, usage UsageSink) *Orchestrator {
	return NewOrchestrator(roles, tools, cache.New(16, time.Minute), usage, testOptions())
}
