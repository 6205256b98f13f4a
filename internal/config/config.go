// Package config centralizes environment-sourced configuration for noesis.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all tunables for the reasoning pipeline.
type Config struct {
	// Adaptive decision engine
	Adaptive               bool    // blocking path
	AdaptiveStream         bool    // streaming path
	RoutingConfidenceFloor float64 // intent confidence at or above this is "high"
	VerifyConfidenceCeil   float64 // intent confidence below this forces verification
	MathVerifySet          map[string]bool
	CodeVerifySet          map[string]bool

	// Answer cache
	CacheTTL      time.Duration
	CacheCapacity int

	// Tool client
	ToolServerCmd string
	ToolTimeout   time.Duration

	// Model roles
	OpenAIKey        string
	OpenAIBaseURL    string
	GeminiKey        string
	PlannerModel     string
	MathModel        string
	CodeModel        string
	GeneralModel     string
	VerifierModel    string
	PlannerProvider  string // openai | gemini
	SolverProvider   string
	VerifierProvider string

	// Telemetry
	UsageDBPath string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Adaptive:               getEnvBool("NOESIS_ADAPTIVE", true),
		AdaptiveStream:         getEnvBool("NOESIS_ADAPTIVE_STREAM", true),
		RoutingConfidenceFloor: getEnvFloat("NOESIS_ROUTING_CONFIDENCE_FLOOR", 0.6),
		VerifyConfidenceCeil:   getEnvFloat("NOESIS_VERIFY_CONFIDENCE_CEILING", 0.7),
		MathVerifySet:          getEnvSet("NOESIS_MATH_VERIFY_SET", "medium,hard"),
		CodeVerifySet:          getEnvSet("NOESIS_CODE_VERIFY_SET", "hard"),

		CacheTTL:      getEnvDuration("NOESIS_CACHE_TTL", 120*time.Second),
		CacheCapacity: getEnvInt("NOESIS_CACHE_CAPACITY", 64),

		ToolServerCmd: getEnv("NOESIS_TOOL_SERVER_CMD", "noesis-tools"),
		ToolTimeout:   getEnvDuration("NOESIS_TOOL_TIMEOUT", 20*time.Second),

		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		GeminiKey:        os.Getenv("GEMINI_API_KEY"),
		PlannerModel:     getEnv("NOESIS_PLANNER_MODEL", "gpt-4o-mini"),
		MathModel:        getEnv("NOESIS_MATH_MODEL", "mathstral"),
		CodeModel:        getEnv("NOESIS_CODE_MODEL", "gpt-4o"),
		GeneralModel:     getEnv("NOESIS_GENERAL_MODEL", "gpt-4o-mini"),
		VerifierModel:    getEnv("NOESIS_VERIFIER_MODEL", "gpt-4o"),
		PlannerProvider:  getEnv("NOESIS_PLANNER_PROVIDER", "openai"),
		SolverProvider:   getEnv("NOESIS_SOLVER_PROVIDER", "openai"),
		VerifierProvider: getEnv("NOESIS_VERIFIER_PROVIDER", "openai"),

		UsageDBPath: getEnv("NOESIS_USAGE_DB", defaultUsagePath()),
	}

	return cfg, cfg.Validate()
}

// Validate rejects configurations that would silently misbehave.
func (c *Config) Validate() error {
	if c.RoutingConfidenceFloor < 0 || c.RoutingConfidenceFloor > 1 {
		return fmt.Errorf("NOESIS_ROUTING_CONFIDENCE_FLOOR must be 0-1, got %f", c.RoutingConfidenceFloor)
	}
	if c.VerifyConfidenceCeil < 0 || c.VerifyConfidenceCeil > 1 {
		return fmt.Errorf("NOESIS_VERIFY_CONFIDENCE_CEILING must be 0-1, got %f", c.VerifyConfidenceCeil)
	}
	if c.CacheCapacity <= 0 {
		return fmt.Errorf("NOESIS_CACHE_CAPACITY must be positive, got %d", c.CacheCapacity)
	}
	if c.ToolTimeout <= 0 {
		return fmt.Errorf("NOESIS_TOOL_TIMEOUT must be positive, got %s", c.ToolTimeout)
	}
	for name, set := range map[string]map[string]bool{
		"NOESIS_MATH_VERIFY_SET": c.MathVerifySet,
		"NOESIS_CODE_VERIFY_SET": c.CodeVerifySet,
	} {
		for d := range set {
			switch d {
			case "easy", "medium", "hard":
			default:
				return fmt.Errorf("%s contains unknown difficulty %q", name, d)
			}
		}
	}
	return nil
}

func defaultUsagePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".noesis/usage.db"
	}
	return home + "/.noesis/usage.db"
}

// Helper functions

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// Bare numbers are treated as seconds.
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}

func getEnvSet(key, defaultVal string) map[string]bool {
	v := os.Getenv(key)
	if v == "" {
		v = defaultVal
	}
	set := make(map[string]bool)
	for _, item := range strings.Split(v, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			set[item] = true
		}
	}
	return set
}
