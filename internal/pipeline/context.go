// Package pipeline implements the multi-stage reasoning pipeline: plan,
// optional tool-context gathering, specialist solving, and optional
// verification, with adaptive stage skipping and answer caching.
package pipeline

import "fmt"

// Message is one role-tagged entry of conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnContext is the unit of state threaded through pipeline stages for one
// turn. Stages take it by value and return an updated copy; it is owned by
// exactly one invocation and discarded when the turn finishes.
type TurnContext struct {
	Question string
	History  []Message
	Intent   *IntentSignal

	Plan       string
	Route      Route
	Difficulty Difficulty

	ToolContext string

	Decision         Decision
	EffectiveRoute   Route
	CacheKey         string
	SpecialistOutput string
	SpecialistID     string
	FinalAnswer      string
}

// RoleError is a fatal planner/specialist/verifier invocation failure. The
// caller surfaces it as a single degraded response.
type RoleError struct {
	Role string
	Err  error
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("%s role invocation failed: %v", e.Role, e.Err)
}

func (e *RoleError) Unwrap() error { return e.Err }
