package llm

import (
	"context"
	"fmt"

	"noesis/internal/config"
)

// RoleSet maps the three logical pipeline roles to configured clients.
// The specialist role carries one client per route.
type RoleSet struct {
	Planner     Client
	Verifier    Client
	specialists map[string]Client
}

// NewRoleSet builds the role registry from configuration. Each role can be
// independently targeted at an OpenAI-compatible endpoint or Gemini.
func NewRoleSet(ctx context.Context, cfg *config.Config) (*RoleSet, error) {
	planner, err := newRoleClient(ctx, cfg, cfg.PlannerProvider, cfg.PlannerModel)
	if err != nil {
		return nil, fmt.Errorf("planner role: %w", err)
	}
	verifier, err := newRoleClient(ctx, cfg, cfg.VerifierProvider, cfg.VerifierModel)
	if err != nil {
		return nil, fmt.Errorf("verifier role: %w", err)
	}

	specialists := make(map[string]Client, 3)
	for route, model := range map[string]string{
		"math":    cfg.MathModel,
		"code":    cfg.CodeModel,
		"general": cfg.GeneralModel,
	} {
		client, err := newRoleClient(ctx, cfg, cfg.SolverProvider, model)
		if err != nil {
			return nil, fmt.Errorf("%s specialist role: %w", route, err)
		}
		specialists[route] = client
	}

	return &RoleSet{Planner: planner, Verifier: verifier, specialists: specialists}, nil
}

// NewStaticRoleSet assembles a role set from pre-built clients. Intended
// for tests and custom wiring; NewRoleSet is the configuration-driven path.
func NewStaticRoleSet(planner, verifier Client, specialists map[string]Client) *RoleSet {
	return &RoleSet{Planner: planner, Verifier: verifier, specialists: specialists}
}

// Specialist returns the client for a route, falling back to general for
// anything unrecognized.
func (r *RoleSet) Specialist(route string) Client {
	if c, ok := r.specialists[route]; ok {
		return c
	}
	return r.specialists["general"]
}

func newRoleClient(ctx context.Context, cfg *config.Config, provider, model string) (Client, error) {
	switch provider {
	case "gemini":
		return NewGeminiClient(ctx, cfg.GeminiKey, model)
	case "openai", "":
		oc := DefaultOpenAIConfig(cfg.OpenAIKey, model)
		oc.BaseURL = cfg.OpenAIBaseURL
		return NewOpenAIClient(oc)
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}
