package config

import "testing"

func TestDefaultResearchConfigIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Research.Validate(); err != nil {
		t.Fatalf("default research config invalid: %v", err)
	}
	if cfg.Research.StepLimit != 10 {
		t.Fatalf("expected step limit 10, got %d", cfg.Research.StepLimit)
	}
	if len(cfg.Research.BlockedDomains) == 0 {
		t.Fatalf("expected default blocked domains")
	}
}

func TestResearchConfigValidation(t *testing.T) {
	bad := ResearchConfig{StepLimit: 0, MaxQueries: 5, MaxConcurrentFetches: 8}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for zero step limit")
	}
	bad = ResearchConfig{StepLimit: 10, MaxQueries: 11, MaxConcurrentFetches: 8}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for max_queries out of range")
	}
	bad = ResearchConfig{StepLimit: 10, MaxQueries: 5, MaxConcurrentFetches: 0}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for zero fetch concurrency")
	}
}

func TestModelForFallsBack(t *testing.T) {
	r := LLMRoutingConfig{Planning: "gpt-4o", Fallback: "gpt-4o-mini"}
	if got := r.ModelFor("planning"); got != "gpt-4o" {
		t.Fatalf("expected planning model, got %s", got)
	}
	if got := r.ModelFor("decision"); got != "gpt-4o-mini" {
		t.Fatalf("expected fallback model, got %s", got)
	}
}
