package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"noesis/internal/cache"
	"noesis/internal/logging"
)

// EventType identifies one kind of streaming progress event.
type EventType string

const (
	EventIntentDetected   EventType = "intent_detected"
	EventThinkingStart    EventType = "thinking_start"
	EventThinkingDelta    EventType = "thinking_delta"
	EventThinkingComplete EventType = "thinking_complete"
	EventRoadmapTrigger   EventType = "roadmap_trigger"
	EventAnswerStart      EventType = "answer_start"
	EventAnswerDelta      EventType = "answer_delta"
	EventAnswerComplete   EventType = "answer_complete"
	EventPipelineError    EventType = "error"
)

// Event is one typed progress update from the streaming facade. Text holds
// delta content or the final/degraded message depending on Type.
type Event struct {
	Type   EventType     `json:"type"`
	Text   string        `json:"text,omitempty"`
	Route  Route         `json:"route,omitempty"`
	Intent *IntentSignal `json:"intent,omitempty"`
}

// errConsumerGone aborts in-flight role streams once the consumer stops
// iterating.
var errConsumerGone = errors.New("stream consumer gone")

// Stream re-expresses the pipeline as an ordered sequence of events:
// intent_detected, thinking_start, thinking_delta*, thinking_complete,
// optional roadmap_trigger, answer_start, answer_delta*, answer_complete.
// Structural markup is stripped from deltas, split correctly at tag edges.
// Cancelling ctx (or abandoning the channel) stops further role
// invocations; the channel is closed when the turn ends either way.
func (o *Orchestrator) Stream(ctx context.Context, question string, history []Message, intent *IntentSignal) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		start := time.Now()

		emit := func(ev Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		fail := func(stage string, err error) {
			logging.Get(logging.CategoryStream).Error("%s failed: %v", stage, err)
			emit(Event{Type: EventPipelineError, Text: degradedMessage})
		}

		if !emit(Event{Type: EventIntentDetected, Intent: intent}) {
			return
		}
		if !emit(Event{Type: EventThinkingStart}) {
			return
		}

		// Planner stream: forward <THINK> content only, keep the raw text
		// for route parsing.
		thinking := NewTagExtractor("THINK")
		var rawPlan strings.Builder
		err := o.roles.Planner.CompleteStream(ctx, ensureMetadataDirectives(o.plannerTemplate()), buildPlannerPayload(history, question),
			func(delta string) error {
				rawPlan.WriteString(delta)
				if visible := thinking.Feed(delta); visible != "" {
					if !emit(Event{Type: EventThinkingDelta, Text: visible}) {
						return errConsumerGone
					}
				}
				return nil
			})
		if errors.Is(err, errConsumerGone) {
			return
		}
		if err != nil {
			fail("planner", err)
			return
		}
		if tail := thinking.Flush(); tail != "" {
			if !emit(Event{Type: EventThinkingDelta, Text: tail}) {
				return
			}
		}

		tc := TurnContext{Question: question, History: history, Intent: intent, Plan: rawPlan.String()}
		tc.Route = ResolveRoute(tc.Plan, question, intent)
		tc.Difficulty = DifficultyFromPlan(tc.Plan)

		if !emit(Event{Type: EventThinkingComplete, Route: tc.Route}) {
			return
		}
		if planSaysYes(tc.Plan, "NEED_ROADMAP") {
			if !emit(Event{Type: EventRoadmapTrigger, Text: planTag(tc.Plan, "ROADMAP_TOPIC")}) {
				return
			}
		}

		tc.Decision = Decide(tc.Route, tc.Difficulty, tc.Intent, tc.Plan, o.opts.decisionConfig(true))
		tc.EffectiveRoute = tc.Route
		if !tc.Decision.UseSpecialist {
			tc.EffectiveRoute = RouteGeneral
		}
		tc.CacheKey = cache.Key(tc.Question, string(tc.EffectiveRoute))

		if !emit(Event{Type: EventAnswerStart, Route: tc.EffectiveRoute}) {
			return
		}

		if !tc.Decision.UseVerifier {
			if answer, ok := o.cache.Get(tc.CacheKey); ok {
				logging.Get(logging.CategoryCache).Info("cache hit: %s", tc.CacheKey)
				if emit(Event{Type: EventAnswerDelta, Text: answer}) {
					emit(Event{Type: EventAnswerComplete, Text: answer})
					o.record(tc, true, true, time.Since(start))
				}
				return
			}
		}

		final, ok := o.streamSolveAndVerify(ctx, &tc, emit)
		if !ok {
			return
		}

		o.cache.Put(tc.CacheKey, final)
		if emit(Event{Type: EventAnswerComplete, Text: final}) {
			o.record(tc, false, true, time.Since(start))
		}
	}()
	return out
}

// streamSolveAndVerify runs the solve and verify suspensions, emitting
// answer deltas. ok=false means the consumer went away or the turn failed
// (after the degraded event was emitted).
func (o *Orchestrator) streamSolveAndVerify(ctx context.Context, tc *TurnContext, emit func(Event) bool) (string, bool) {
	client := o.roles.Specialist(string(tc.EffectiveRoute))

	if tc.Decision.UseVerifier {
		// Specialist blocks, then the verifier streams the checked answer.
		output, err := client.Complete(ctx, specialistPrompt(tc.EffectiveRoute), buildSolverPayload(*tc))
		if err != nil {
			logging.Get(logging.CategoryStream).Error("specialist failed: %v", err)
			emit(Event{Type: EventPipelineError, Text: degradedMessage})
			return "", false
		}
		tc.SpecialistOutput = output
		tc.SpecialistID = client.Model()

		answer := NewTagExtractor("FINAL_ANSWER")
		var raw, visible strings.Builder
		err = o.roles.Verifier.CompleteStream(ctx, verifierSystemPrompt, buildVerifierPayload(*tc),
			func(delta string) error {
				raw.WriteString(delta)
				if v := answer.Feed(delta); v != "" {
					visible.WriteString(v)
					if !emit(Event{Type: EventAnswerDelta, Text: v}) {
						return errConsumerGone
					}
				}
				return nil
			})
		if errors.Is(err, errConsumerGone) {
			return "", false
		}
		if err != nil {
			logging.Get(logging.CategoryStream).Error("verifier failed: %v", err)
			emit(Event{Type: EventPipelineError, Text: degradedMessage})
			return "", false
		}
		if tail := answer.Flush(); tail != "" {
			visible.WriteString(tail)
			if !emit(Event{Type: EventAnswerDelta, Text: tail}) {
				return "", false
			}
		}
		if !answer.SawTag() {
			// Verifier ignored the result tag; surface its full response.
			full := strings.TrimSpace(raw.String())
			if !emit(Event{Type: EventAnswerDelta, Text: full}) {
				return "", false
			}
			return full, true
		}
		return strings.TrimSpace(visible.String()), true
	}

	// No verification: stream the solver directly, stripping any stray
	// structural markup.
	strip := NewTagStripper("FINAL_ANSWER")
	var visible strings.Builder
	err := client.CompleteStream(ctx, specialistPrompt(tc.EffectiveRoute), buildSolverPayload(*tc),
		func(delta string) error {
			if v := strip.Feed(delta); v != "" {
				visible.WriteString(v)
				if !emit(Event{Type: EventAnswerDelta, Text: v}) {
					return errConsumerGone
				}
			}
			return nil
		})
	if errors.Is(err, errConsumerGone) {
		return "", false
	}
	if err != nil {
		logging.Get(logging.CategoryStream).Error("specialist failed: %v", err)
		emit(Event{Type: EventPipelineError, Text: degradedMessage})
		return "", false
	}
	if tail := strip.Flush(); tail != "" {
		visible.WriteString(tail)
		if !emit(Event{Type: EventAnswerDelta, Text: tail}) {
			return "", false
		}
	}
	tc.SpecialistID = client.Model()
	return strings.TrimSpace(visible.String()), true
}

// degradedMessage is the single user-facing text for fatal role failures.
const degradedMessage = "I ran into a problem while working on this. Please try again in a moment."

func (o *Orchestrator) plannerTemplate() string {
	if o.opts.PlannerTemplate != "" {
		return o.opts.PlannerTemplate
	}
	return plannerSystemPrompt
}
