package pipeline

import (
	"fmt"
	"strings"
)

// metadataDirectives is appended to any planner template that does not
// already request the structured trailer the router parses.
const metadataDirectives = `
End your plan with these metadata lines, one per line:
DOMAIN: <math|code|general|mixed>
ROUTE_MODEL: <model family best suited to answer>
ROUTE_REASON: <one short sentence>
NEED_SEARCH: <yes|no>
SEARCH_QUERY: <query, only when NEED_SEARCH is yes>
NEED_TIME: <yes|no>
NEED_WEATHER: <yes|no>
NEED_MEMORY: <yes|no>
NEED_ROADMAP: <yes|no>
ROADMAP_TOPIC: <topic, only when NEED_ROADMAP is yes>`

// plannerSystemPrompt drives the PLAN stage. The <THINK> envelope lets the
// streaming facade forward reasoning deltas without leaking markup.
const plannerSystemPrompt = `You are the planning stage of a reasoning pipeline.
Given the conversation so far and the latest question, write a short
numbered plan for answering it. Wrap your reasoning in <THINK> and
</THINK> tags. Estimate DIFFICULTY: <easy|medium|hard> when you can.` + metadataDirectives

const mathSpecialistPrompt = `You are a mathematics specialist. Solve the problem
rigorously, showing the key steps. State the final result clearly on its own line.`

const codeSpecialistPrompt = `You are a programming specialist. Produce correct,
idiomatic code with a brief explanation. Prefer complete runnable snippets.`

const generalSpecialistPrompt = `You are a helpful assistant. Answer clearly and
concisely, using the provided plan and context when relevant.`

// verifierSystemPrompt drives the VERIFY stage. The answer must come back
// inside the result tag so it can be extracted (and streamed) cleanly.
const verifierSystemPrompt = `You are a verification stage. Check the draft answer
against the question, plan, and tool context. Correct any errors you find.
Return the final user-facing answer wrapped in <FINAL_ANSWER> and
</FINAL_ANSWER> tags and nothing else outside them.`

// ensureMetadataDirectives appends the metadata trailer request to a
// custom planner template that lacks it.
func ensureMetadataDirectives(template string) string {
	if strings.Contains(template, "DOMAIN:") {
		return template
	}
	return template + "\n" + metadataDirectives
}

func specialistPrompt(route Route) string {
	switch route {
	case RouteMath:
		return mathSpecialistPrompt
	case RouteCode:
		return codeSpecialistPrompt
	default:
		return generalSpecialistPrompt
	}
}

// buildPlannerPayload renders the running history plus the new question.
func buildPlannerPayload(history []Message, question string) string {
	var b strings.Builder
	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}

// buildSolverPayload is the structured payload for the specialist role.
func buildSolverPayload(tc TurnContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", tc.Question)
	if tc.Plan != "" {
		fmt.Fprintf(&b, "\nPlan:\n%s\n", tc.Plan)
	}
	if tc.ToolContext != "" {
		fmt.Fprintf(&b, "\n%s\n", tc.ToolContext)
	}
	if len(tc.History) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, m := range tc.History {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}
	return b.String()
}

// buildVerifierPayload hands the verifier the draft plus everything it
// needs to judge it.
func buildVerifierPayload(tc TurnContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", tc.Question)
	if tc.Plan != "" {
		fmt.Fprintf(&b, "\nPlan:\n%s\n", tc.Plan)
	}
	if tc.ToolContext != "" {
		fmt.Fprintf(&b, "\n%s\n", tc.ToolContext)
	}
	fmt.Fprintf(&b, "\nDraft answer:\n%s\n", tc.SpecialistOutput)
	return b.String()
}
