package pipeline

import "strings"

// ThinkingDepth is the classifier's estimate of how much deliberation a
// question needs.
type ThinkingDepth string

const (
	DepthNone   ThinkingDepth = "none"
	DepthLow    ThinkingDepth = "low"
	DepthMedium ThinkingDepth = "medium"
	DepthHigh   ThinkingDepth = "high"
)

// IntentSignal is the output of an external intent classifier, consumed
// read-only by the pipeline. Confidence is compared against two independent
// thresholds: the routing-confidence floor and the verification-confidence
// ceiling.
type IntentSignal struct {
	Category      string        `json:"category"`
	Domain        string        `json:"domain"`
	Confidence    float64       `json:"confidence"`
	ThinkingDepth ThinkingDepth `json:"thinking_depth"`
	Topic         string        `json:"topic,omitempty"`
	UserLevel     string        `json:"user_level,omitempty"`
}

// InferIntent derives a best-effort signal from a free-form question when
// no external classifier output is available. Deliberately conservative:
// moderate confidence, so the adaptive engine leans toward doing more work.
func InferIntent(question string) *IntentSignal {
	trimmed := strings.TrimSpace(question)
	lower := strings.ToLower(trimmed)

	intent := &IntentSignal{
		Category:      "question",
		Domain:        "general",
		Confidence:    0.5,
		ThinkingDepth: DepthMedium,
	}

	if r := heuristicRoute(trimmed); r != "" {
		intent.Domain = string(r)
		intent.Confidence = 0.75
	}

	if isSmallTalk(lower) || len(strings.Fields(trimmed)) <= 3 {
		intent.Category = "chat"
		intent.ThinkingDepth = DepthNone
	}

	return intent
}

func isSmallTalk(lower string) bool {
	for _, phrase := range []string{"hello", "hi ", "hey", "thanks", "thank you", "good morning", "good night", "how are you"} {
		if strings.HasPrefix(lower, phrase) {
			return true
		}
	}
	return false
}
