package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testDecisionConfig() DecisionConfig {
	return DecisionConfig{
		Enabled:                true,
		RoutingConfidenceFloor: 0.6,
		VerifyConfidenceCeil:   0.7,
		MathVerifySet:          map[string]bool{"medium": true, "hard": true},
		CodeVerifySet:          map[string]bool{"hard": true},
	}
}

func TestDecideDisabledRunsEverything(t *testing.T) {
	cfg := testDecisionConfig()
	cfg.Enabled = false
	d := Decide(RouteGeneral, DifficultyEasy, nil, "", cfg)
	assert.True(t, d.UseSpecialist)
	assert.True(t, d.UseVerifier)
	assert.Equal(t, []string{"adaptive_disabled"}, d.Rationale)
}

func TestDecideFastPath(t *testing.T) {
	intent := &IntentSignal{Confidence: 0.9, ThinkingDepth: DepthNone}
	d := Decide(RouteMath, DifficultyEasy, intent, "", testDecisionConfig())
	if d.UseSpecialist {
		t.Fatalf("quick intent + easy + high confidence must skip the specialist: %v", d.Rationale)
	}
	if d.UseVerifier {
		t.Fatalf("verifier must never run without a specialist: %v", d.Rationale)
	}
	assert.Contains(t, d.Rationale, "fast_path")
}

func TestDecideMathMediumVerifies(t *testing.T) {
	intent := &IntentSignal{Confidence: 0.9, ThinkingDepth: DepthMedium}
	d := Decide(RouteMath, DifficultyMedium, intent, "", testDecisionConfig())
	assert.True(t, d.UseSpecialist)
	assert.True(t, d.UseVerifier)
	assert.Contains(t, d.Rationale, "specialist_difficulty")
	assert.Contains(t, d.Rationale, "verify_math_set")
}

func TestDecideCodeMediumSkipsVerifierWhenConfident(t *testing.T) {
	// medium is not in the code verify set, and confidence clears the
	// verification ceiling.
	intent := &IntentSignal{Confidence: 0.85, ThinkingDepth: DepthMedium}
	d := Decide(RouteCode, DifficultyMedium, intent, "", testDecisionConfig())
	assert.True(t, d.UseSpecialist)
	assert.False(t, d.UseVerifier)
}

func TestDecideCodeMediumVerifiesBelowCeiling(t *testing.T) {
	intent := &IntentSignal{Confidence: 0.65, ThinkingDepth: DepthMedium}
	d := Decide(RouteCode, DifficultyMedium, intent, "", testDecisionConfig())
	assert.True(t, d.UseSpecialist)
	assert.True(t, d.UseVerifier)
	assert.Contains(t, d.Rationale, "verify_low_confidence")
}

func TestDecideLowConfidenceEscalatesEasyProblem(t *testing.T) {
	intent := &IntentSignal{Confidence: 0.3, ThinkingDepth: DepthMedium}
	d := Decide(RouteMath, DifficultyEasy, intent, "", testDecisionConfig())
	assert.True(t, d.UseSpecialist)
	assert.Contains(t, d.Rationale, "specialist_low_confidence")
}

func TestDecideUnknownDifficultyDefaultsMedium(t *testing.T) {
	d := Decide(RouteMath, DifficultyUnknown, nil, "", testDecisionConfig())
	assert.Contains(t, d.Rationale, "difficulty_defaulted_medium")
	// Defaulted medium on a math route means specialist plus math-set verify.
	assert.True(t, d.UseSpecialist)
	assert.True(t, d.UseVerifier)
}

func TestDecidePlanKeywordForcesVerifier(t *testing.T) {
	intent := &IntentSignal{Confidence: 0.95, ThinkingDepth: DepthMedium}
	plan := "1. Compute the value.\n2. Double-check the arithmetic."
	d := Decide(RouteCode, DifficultyMedium, intent, plan, testDecisionConfig())
	assert.True(t, d.UseVerifier)
	assert.Contains(t, d.Rationale, "verify_plan_request")
}

func TestDecidePlanKeywordCannotResurrectVerifierWithoutSpecialist(t *testing.T) {
	intent := &IntentSignal{Confidence: 0.95, ThinkingDepth: DepthNone}
	plan := "Just say hi. Verify nothing is needed."
	d := Decide(RouteGeneral, DifficultyEasy, intent, plan, testDecisionConfig())
	assert.False(t, d.UseSpecialist)
	assert.False(t, d.UseVerifier)
}

// TestDecidePostCondition sweeps the whole input lattice and asserts the
// invariant that verification never runs without a specialist pass.
func TestDecidePostCondition(t *testing.T) {
	cfg := testDecisionConfig()
	routes := []Route{RouteMath, RouteCode, RouteGeneral}
	difficulties := []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyUnknown, ""}
	depths := []ThinkingDepth{DepthNone, DepthLow, DepthMedium, DepthHigh}
	confidences := []float64{0.0, 0.3, 0.6, 0.7, 0.95}
	plans := []string{"", "please verify the result", "a plain plan"}

	for _, r := range routes {
		for _, diff := range difficulties {
			for _, depth := range depths {
				for _, conf := range confidences {
					for _, plan := range plans {
						intent := &IntentSignal{Confidence: conf, ThinkingDepth: depth}
						d := Decide(r, diff, intent, plan, cfg)
						if d.UseVerifier && !d.UseSpecialist {
							t.Fatalf("verifier without specialist: route=%s diff=%s depth=%s conf=%.2f plan=%q rationale=%v",
								r, diff, depth, conf, plan, d.Rationale)
						}
					}
				}
			}
			// Nil intent must be safe too.
			d := Decide(r, diff, nil, "", cfg)
			if d.UseVerifier && !d.UseSpecialist {
				t.Fatalf("verifier without specialist on nil intent: route=%s diff=%s", r, diff)
			}
		}
	}
}
