package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"noesis/internal/cache"
	"noesis/internal/config"
	"noesis/internal/llm"
	"noesis/internal/logging"
)

// ToolInvoker is the slice of the tool client the pipeline depends on.
type ToolInvoker interface {
	Alive() bool
	Invoke(ctx context.Context, tool string, arguments map[string]interface{}, timeout time.Duration) (json.RawMessage, error)
}

// UsageSink receives per-turn telemetry. Optional; nil disables recording.
type UsageSink interface {
	Record(turn TurnRecord)
}

// TurnRecord summarizes one completed turn for telemetry.
type TurnRecord struct {
	Route         Route
	Difficulty    Difficulty
	UseSpecialist bool
	UseVerifier   bool
	CacheHit      bool
	ToolsUsed     bool
	Streamed      bool
	Latency       time.Duration
}

// Options are the pipeline tunables distilled from configuration.
type Options struct {
	Adaptive               bool
	AdaptiveStream         bool
	RoutingConfidenceFloor float64
	VerifyConfidenceCeil   float64
	MathVerifySet          map[string]bool
	CodeVerifySet          map[string]bool
	ToolTimeout            time.Duration
	PlannerTemplate        string // optional override; metadata directives are appended if missing
}

// OptionsFromConfig maps the environment configuration onto pipeline options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Adaptive:               cfg.Adaptive,
		AdaptiveStream:         cfg.AdaptiveStream,
		RoutingConfidenceFloor: cfg.RoutingConfidenceFloor,
		VerifyConfidenceCeil:   cfg.VerifyConfidenceCeil,
		MathVerifySet:          cfg.MathVerifySet,
		CodeVerifySet:          cfg.CodeVerifySet,
		ToolTimeout:            cfg.ToolTimeout,
	}
}

func (o Options) decisionConfig(streaming bool) DecisionConfig {
	enabled := o.Adaptive
	if streaming {
		enabled = o.AdaptiveStream
	}
	return DecisionConfig{
		Enabled:                enabled,
		RoutingConfidenceFloor: o.RoutingConfidenceFloor,
		VerifyConfidenceCeil:   o.VerifyConfidenceCeil,
		MathVerifySet:          o.MathVerifySet,
		CodeVerifySet:          o.CodeVerifySet,
	}
}

// Orchestrator runs the PLAN → (TOOLS | ∅) → SOLVE → VERIFY state machine.
// It owns the tool client and answer cache for its lifetime; model-role
// clients are safe for concurrent turns, and each turn threads its own
// TurnContext, so Run may be called from independent goroutines.
type Orchestrator struct {
	roles *llm.RoleSet
	tools ToolInvoker
	cache *cache.AnswerCache
	usage UsageSink
	opts  Options
}

// NewOrchestrator wires the pipeline. tools and usage may be nil.
func NewOrchestrator(roles *llm.RoleSet, tools ToolInvoker, answers *cache.AnswerCache, usage UsageSink, opts Options) *Orchestrator {
	return &Orchestrator{roles: roles, tools: tools, cache: answers, usage: usage, opts: opts}
}

// Run executes one blocking turn and returns the final answer text.
func (o *Orchestrator) Run(ctx context.Context, question string, history []Message, intent *IntentSignal) (string, error) {
	start := time.Now()
	tc := TurnContext{Question: question, History: history, Intent: intent}

	tc, err := o.planStage(ctx, tc)
	if err != nil {
		return "", err
	}

	if planNeedsTools(tc.Plan) {
		tc = o.toolsStage(ctx, tc)
	}

	tc, done, err := o.solveStage(ctx, tc, false)
	if err != nil {
		return "", err
	}
	if !done {
		tc, err = o.verifyStage(ctx, tc)
		if err != nil {
			return "", err
		}
	}

	o.record(tc, done, false, time.Since(start))
	return tc.FinalAnswer, nil
}

// planStage invokes the planner role and resolves route.
func (o *Orchestrator) planStage(ctx context.Context, tc TurnContext) (TurnContext, error) {
	template := o.opts.PlannerTemplate
	if template == "" {
		template = plannerSystemPrompt
	}
	template = ensureMetadataDirectives(template)

	plan, err := o.roles.Planner.Complete(ctx, template, buildPlannerPayload(tc.History, tc.Question))
	if err != nil {
		return tc, &RoleError{Role: "planner", Err: err}
	}

	tc.Plan = plan
	tc.Route = ResolveRoute(plan, tc.Question, tc.Intent)
	tc.Difficulty = DifficultyFromPlan(plan)
	logging.Get(logging.CategoryPipeline).Info("plan ready: route=%s difficulty=%s", tc.Route, tc.Difficulty)
	return tc, nil
}

// toolNeeds maps plan trailer tags onto tool names.
var toolNeeds = []struct {
	tag  string
	tool string
}{
	{"NEED_SEARCH", "search"},
	{"NEED_TIME", "time"},
	{"NEED_WEATHER", "weather"},
	{"NEED_MEMORY", "memory_search"},
}

func planNeedsTools(plan string) bool {
	for _, n := range toolNeeds {
		if planSaysYes(plan, n.tag) {
			return true
		}
	}
	return false
}

// toolsStage gathers external facts. Failures degrade into inline error
// markers inside the context block; they never abort the turn.
func (o *Orchestrator) toolsStage(ctx context.Context, tc TurnContext) TurnContext {
	query := planTag(tc.Plan, "SEARCH_QUERY")
	if query == "" {
		query = latestUserMessage(tc)
	}

	var b strings.Builder
	b.WriteString("TOOL CONTEXT:\n")
	for _, n := range toolNeeds {
		if !planSaysYes(tc.Plan, n.tag) {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", n.tool, o.invokeTool(ctx, n.tool, query))
	}
	tc.ToolContext = strings.TrimRight(b.String(), "\n")
	return tc
}

// invokeTool runs one tool call and renders the outcome as context text.
func (o *Orchestrator) invokeTool(ctx context.Context, tool, query string) string {
	if o.tools == nil || !o.tools.Alive() {
		logging.Get(logging.CategoryTools).Warn("tool %s requested but client unavailable", tool)
		return "[error: tool client unavailable]"
	}

	args := toolArguments(tool, query)
	raw, err := o.tools.Invoke(ctx, tool, args, o.opts.ToolTimeout)
	if err != nil {
		logging.Get(logging.CategoryTools).Warn("tool %s failed: %v", tool, err)
		return fmt.Sprintf("[error: %v]", err)
	}
	return resultText(raw)
}

func toolArguments(tool, query string) map[string]interface{} {
	switch tool {
	case "search":
		return map[string]interface{}{"query": query, "max_results": 5}
	case "time":
		return map[string]interface{}{}
	case "weather":
		return map[string]interface{}{"location": query}
	case "memory_search":
		return map[string]interface{}{"query": query, "k": 3, "scope": "conversation"}
	default:
		return map[string]interface{}{"query": query}
	}
}

// resultText renders a tool result for inclusion in the context block. It
// understands plain JSON strings and MCP-style content lists; anything else
// is passed through raw.
func resultText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var content struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &content); err == nil && len(content.Content) > 0 {
		parts := make([]string, 0, len(content.Content))
		for _, c := range content.Content {
			if c.Text != "" {
				parts = append(parts, c.Text)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}
	return string(raw)
}

func latestUserMessage(tc TurnContext) string {
	for i := len(tc.History) - 1; i >= 0; i-- {
		if tc.History[i].Role == "user" {
			return tc.History[i].Content
		}
	}
	return tc.Question
}

// solveStage consults the decision engine and cache, then invokes the
// specialist for the effective route. done=true means a cache hit ended the
// turn early.
func (o *Orchestrator) solveStage(ctx context.Context, tc TurnContext, streaming bool) (TurnContext, bool, error) {
	tc.Decision = Decide(tc.Route, tc.Difficulty, tc.Intent, tc.Plan, o.opts.decisionConfig(streaming))

	tc.EffectiveRoute = tc.Route
	if !tc.Decision.UseSpecialist {
		tc.EffectiveRoute = RouteGeneral
	}
	tc.CacheKey = cache.Key(tc.Question, string(tc.EffectiveRoute))
	logging.Get(logging.CategoryRouting).Info("decision: specialist=%v verifier=%v rationale=%v",
		tc.Decision.UseSpecialist, tc.Decision.UseVerifier, tc.Decision.Rationale)

	if !tc.Decision.UseVerifier {
		if answer, ok := o.cache.Get(tc.CacheKey); ok {
			logging.Get(logging.CategoryCache).Info("cache hit: %s", tc.CacheKey)
			tc.FinalAnswer = answer
			return tc, true, nil
		}
	}

	client := o.roles.Specialist(string(tc.EffectiveRoute))
	output, err := client.Complete(ctx, specialistPrompt(tc.EffectiveRoute), buildSolverPayload(tc))
	if err != nil {
		return tc, false, &RoleError{Role: "specialist", Err: err}
	}
	tc.SpecialistOutput = output
	tc.SpecialistID = client.Model()
	return tc, false, nil
}

// verifyStage optionally runs the verifier, then finalizes and caches the
// answer.
func (o *Orchestrator) verifyStage(ctx context.Context, tc TurnContext) (TurnContext, error) {
	if !tc.Decision.UseVerifier {
		tc.FinalAnswer = tc.SpecialistOutput
		o.cache.Put(tc.CacheKey, tc.FinalAnswer)
		return tc, nil
	}

	response, err := o.roles.Verifier.Complete(ctx, verifierSystemPrompt, buildVerifierPayload(tc))
	if err != nil {
		return tc, &RoleError{Role: "verifier", Err: err}
	}

	answer, ok := extractTagged(response, "FINAL_ANSWER")
	if !ok {
		answer = strings.TrimSpace(response)
	}
	tc.FinalAnswer = answer
	o.cache.Put(tc.CacheKey, tc.FinalAnswer)
	return tc, nil
}

func (o *Orchestrator) record(tc TurnContext, cacheHit, streamed bool, latency time.Duration) {
	if o.usage == nil {
		return
	}
	o.usage.Record(TurnRecord{
		Route:         tc.Route,
		Difficulty:    tc.Difficulty,
		UseSpecialist: tc.Decision.UseSpecialist,
		UseVerifier:   tc.Decision.UseVerifier,
		CacheHit:      cacheHit,
		ToolsUsed:     tc.ToolContext != "",
		Streamed:      streamed,
		Latency:       latency,
	})
}
