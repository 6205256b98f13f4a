package pipeline

import (
	"regexp"
	"strings"

	"noesis/internal/logging"
)

// Route is the coarse domain bucket selecting which specialist model and
// prompt template apply.
type Route string

const (
	RouteMath    Route = "math"
	RouteCode    Route = "code"
	RouteGeneral Route = "general"
)

// Difficulty is a three-level complexity estimate used only to gate
// specialist and verifier usage.
type Difficulty string

const (
	DifficultyEasy    Difficulty = "easy"
	DifficultyMedium  Difficulty = "medium"
	DifficultyHard    Difficulty = "hard"
	DifficultyUnknown Difficulty = "unknown"
)

// planTag extracts the value of a `NAME: value` metadata line from plan
// text. Returns "" when the tag is absent.
func planTag(plan, name string) string {
	for _, line := range strings.Split(plan, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		prefix := name + ":"
		if strings.HasPrefix(upper, prefix) {
			return strings.TrimSpace(line[len(prefix):])
		}
	}
	return ""
}

// planSaysYes reports whether a metadata tag is present with a yes value.
func planSaysYes(plan, name string) bool {
	return strings.EqualFold(planTag(plan, name), "yes")
}

// ResolveRoute determines the route for a turn. Fallback chain: explicit
// plan tags, then the lexical heuristic when the plan declared a mixed
// domain, then the external intent signal, then the heuristic again, and
// finally general. Anything that is not math or code collapses to general.
func ResolveRoute(plan, question string, intent *IntentSignal) Route {
	if r := routeToken(planTag(plan, "ROUTE_MODEL")); r != "" {
		return r
	}
	domain := planTag(plan, "DOMAIN")
	if r := routeToken(domain); r != "" {
		return r
	}
	if strings.EqualFold(domain, "mixed") {
		if r := heuristicRoute(question); r != "" {
			return r
		}
	}
	if domain == "" {
		// Plan lacked the expected routing tags; recover via heuristics,
		// never surface as an error.
		logging.Get(logging.CategoryRouting).Debug("plan missing routing tags, falling back to heuristics")
	}
	if intent != nil {
		if r := routeToken(intent.Domain); r != "" {
			return r
		}
	}
	if r := heuristicRoute(question); r != "" {
		return r
	}
	return RouteGeneral
}

// routeToken maps a free-form model/domain token onto a route. Returns ""
// when the token names no concrete route.
func routeToken(token string) Route {
	token = strings.ToLower(strings.TrimSpace(token))
	switch {
	case token == "":
		return ""
	case strings.Contains(token, "math"):
		return RouteMath
	case strings.Contains(token, "code") || strings.Contains(token, "coder") || strings.Contains(token, "program"):
		return RouteCode
	case token == "general" || token == "chat" || token == "conversation":
		return RouteGeneral
	default:
		return ""
	}
}

var (
	mathPattern = regexp.MustCompile(`\d\s*[-+*/^=]|\b(solve|equation|integral|derivative|calculate|simplify|factor|theorem|geometry|algebra|probability)\b`)
	codePattern = regexp.MustCompile(`\b(code|function|program|compile|debug|implement|algorithm|python|golang|javascript|typescript|rust|java|sql|regex|bug|stack trace|refactor)\b`)
)

// heuristicRoute classifies the raw question lexically. Returns "" when no
// pattern matches so the caller can continue the fallback chain.
func heuristicRoute(question string) Route {
	lower := strings.ToLower(question)
	if mathPattern.MatchString(lower) {
		return RouteMath
	}
	if codePattern.MatchString(lower) {
		return RouteCode
	}
	return ""
}

var stepWord = regexp.MustCompile(`(?i)\bsteps?\b`)

// DifficultyFromPlan reads an explicit DIFFICULTY tag, falling back to a
// step-count heuristic over the plan text: six or more step mentions is
// hard, three or more medium, any at all easy, none unknown.
func DifficultyFromPlan(plan string) Difficulty {
	switch strings.ToLower(planTag(plan, "DIFFICULTY")) {
	case "easy":
		return DifficultyEasy
	case "medium":
		return DifficultyMedium
	case "hard":
		return DifficultyHard
	}

	mentions := len(stepWord.FindAllString(plan, -1))
	switch {
	case mentions >= 6:
		return DifficultyHard
	case mentions >= 3:
		return DifficultyMedium
	case mentions > 0:
		return DifficultyEasy
	default:
		return DifficultyUnknown
	}
}
