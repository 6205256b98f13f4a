package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveRoutePlanTagsWin(t *testing.T) {
	plan := "1. Work it out.\nDOMAIN: general\nROUTE_MODEL: mathstral"
	route := ResolveRoute(plan, "what is the capital of France", nil)
	if route != RouteMath {
		t.Fatalf("ROUTE_MODEL should win over DOMAIN, got %s", route)
	}
}

func TestResolveRouteDomainTag(t *testing.T) {
	plan := "DOMAIN: code\nROUTE_REASON: it's about programming"
	if r := ResolveRoute(plan, "hello", nil); r != RouteCode {
		t.Fatalf("expected code, got %s", r)
	}
}

func TestResolveRouteMixedDomainUsesHeuristic(t *testing.T) {
	plan := "DOMAIN: mixed"
	if r := ResolveRoute(plan, "solve the equation 2x + 3 = 7", nil); r != RouteMath {
		t.Fatalf("mixed domain should fall through to the lexical heuristic, got %s", r)
	}
	// Nothing lexically mathy or codey: mixed collapses all the way down.
	if r := ResolveRoute(plan, "tell me about otters", nil); r != RouteGeneral {
		t.Fatalf("expected general, got %s", r)
	}
}

func TestResolveRouteIntentFallback(t *testing.T) {
	intent := &IntentSignal{Domain: "code", Confidence: 0.8}
	if r := ResolveRoute("no tags here", "tell me about otters", intent); r != RouteCode {
		t.Fatalf("expected intent domain to route, got %s", r)
	}
}

func TestResolveRouteHeuristicFallback(t *testing.T) {
	if r := ResolveRoute("", "please debug this python function", nil); r != RouteCode {
		t.Fatalf("expected code from heuristic, got %s", r)
	}
	if r := ResolveRoute("", "what should I cook tonight", nil); r != RouteGeneral {
		t.Fatalf("expected general terminal fallback, got %s", r)
	}
}

func TestRouteTokenVariants(t *testing.T) {
	cases := map[string]Route{
		"mathstral":        RouteMath,
		"applied-math-7b":  RouteMath,
		"qwen-coder":       RouteCode,
		"programming":      RouteCode,
		"general":          RouteGeneral,
		"chat":             RouteGeneral,
		"conversation":     RouteGeneral,
		"some-other-model": "",
		"":                 "",
	}
	for token, want := range cases {
		assert.Equal(t, want, routeToken(token), "token %q", token)
	}
}

func TestDifficultyExplicitTag(t *testing.T) {
	plan := "Step 1, step 2, step 3, step 4, step 5, step 6.\nDIFFICULTY: easy"
	if d := DifficultyFromPlan(plan); d != DifficultyEasy {
		t.Fatalf("explicit tag should override the step heuristic, got %s", d)
	}
}

func TestDifficultyStepHeuristic(t *testing.T) {
	cases := []struct {
		plan string
		want Difficulty
	}{
		{"step one, step two, step three, step four, step five, step six", DifficultyHard},
		{"first step, second step, third step", DifficultyMedium},
		{"one quick step", DifficultyEasy},
		{"just answer directly", DifficultyUnknown},
		{"Steps: STEP A then Step B then step C", DifficultyMedium},
	}
	for _, tc := range cases {
		if d := DifficultyFromPlan(tc.plan); d != tc.want {
			t.Fatalf("plan %q: expected %s, got %s", tc.plan, tc.want, d)
		}
	}
}

func TestPlanTagParsing(t *testing.T) {
	plan := "<THINK>reasoning</THINK>\nDOMAIN: math\n  NEED_SEARCH: YES\nSEARCH_QUERY: euler characteristic\nNEED_TIME: no"
	assert.Equal(t, "math", planTag(plan, "DOMAIN"))
	assert.Equal(t, "euler characteristic", planTag(plan, "SEARCH_QUERY"))
	assert.True(t, planSaysYes(plan, "NEED_SEARCH"))
	assert.False(t, planSaysYes(plan, "NEED_TIME"))
	assert.False(t, planSaysYes(plan, "NEED_WEATHER"))
}

func TestInferIntent(t *testing.T) {
	smalltalk := InferIntent("hello there")
	assert.Equal(t, DepthNone, smalltalk.ThinkingDepth)
	assert.Equal(t, "chat", smalltalk.Category)

	math := InferIntent("solve the integral of x squared over the unit interval please")
	assert.Equal(t, "math", math.Domain)
	assert.InDelta(t, 0.75, math.Confidence, 0.001)
	assert.Equal(t, DepthMedium, math.ThinkingDepth)
}
