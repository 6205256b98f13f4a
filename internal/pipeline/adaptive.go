package pipeline

import "strings"

// Decision is the adaptive engine's verdict for one turn. The rationale is
// an ordered list of machine-readable tags, one per branch taken.
type Decision struct {
	UseSpecialist bool
	UseVerifier   bool
	Rationale     []string
}

// DecisionConfig carries the thresholds the engine compares against. The
// routing-confidence floor and the verification-confidence ceiling are
// distinct values and must not be conflated.
type DecisionConfig struct {
	Enabled                bool
	RoutingConfidenceFloor float64
	VerifyConfidenceCeil   float64
	MathVerifySet          map[string]bool
	CodeVerifySet          map[string]bool
}

// verifyKeywords in the plan force a verification pass when a specialist
// runs at all.
var verifyKeywords = []string{"verify", "double-check", "double check", "check the result"}

// Decide maps (route, difficulty, intent, plan) to the specialist/verifier
// booleans. Pure function: no I/O, no mutation of its inputs. Later steps
// only strengthen toward doing more work, except the fast-path override and
// the final post-condition clamp.
func Decide(route Route, difficulty Difficulty, intent *IntentSignal, plan string, cfg DecisionConfig) Decision {
	d := Decision{}

	if !cfg.Enabled {
		return Decision{UseSpecialist: true, UseVerifier: true, Rationale: []string{"adaptive_disabled"}}
	}

	if difficulty == "" || difficulty == DifficultyUnknown {
		difficulty = DifficultyMedium
		d.Rationale = append(d.Rationale, "difficulty_defaulted_medium")
	}

	highConfidence := intent != nil && intent.Confidence >= cfg.RoutingConfidenceFloor
	quickIntent := intent != nil && intent.ThinkingDepth == DepthNone

	if route == RouteMath || route == RouteCode {
		if difficulty == DifficultyMedium || difficulty == DifficultyHard {
			d.UseSpecialist = true
			d.Rationale = append(d.Rationale, "specialist_difficulty")
		} else if !highConfidence {
			// Low confidence escalates to a specialist even for
			// stated-easy problems.
			d.UseSpecialist = true
			d.Rationale = append(d.Rationale, "specialist_low_confidence")
		}
	}

	// Fast path takes precedence over the escalation above, but only when
	// difficulty is exactly easy.
	if quickIntent && difficulty == DifficultyEasy && highConfidence {
		d.UseSpecialist = false
		d.Rationale = append(d.Rationale, "fast_path")
	}

	if d.UseSpecialist {
		verifyConfident := intent != nil && intent.Confidence >= cfg.VerifyConfidenceCeil
		switch {
		case route == RouteMath && cfg.MathVerifySet[string(difficulty)]:
			d.UseVerifier = true
			d.Rationale = append(d.Rationale, "verify_math_set")
		case route == RouteCode && cfg.CodeVerifySet[string(difficulty)]:
			d.UseVerifier = true
			d.Rationale = append(d.Rationale, "verify_code_set")
		case !verifyConfident && difficulty != DifficultyEasy:
			d.UseVerifier = true
			d.Rationale = append(d.Rationale, "verify_low_confidence")
		}
	}

	if d.UseSpecialist && planRequestsVerification(plan) {
		if !d.UseVerifier {
			d.Rationale = append(d.Rationale, "verify_plan_request")
		}
		d.UseVerifier = true
	}

	// Post-condition: verification never runs without a specialist pass.
	if !d.UseSpecialist && d.UseVerifier {
		d.UseVerifier = false
		d.Rationale = append(d.Rationale, "verifier_clamped")
	}

	return d
}

func planRequestsVerification(plan string) bool {
	lower := strings.ToLower(plan)
	for _, kw := range verifyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
