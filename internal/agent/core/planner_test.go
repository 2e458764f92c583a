package core

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestPlannerParsesResponse(t *testing.T) {
	llm := (&scriptedLLM{}).on("strategic research planner",
		"Here is the plan:\n```json\n{\"plan\": \"start broad\", \"queries\": [\"go garbage collector design\", \"go pacer algorithm\"]}\n```")
	planner := NewQueryPlanner(llm, "gpt-4o-mini", 5)
	store := NewEvidenceStore([]Message{{Role: RoleUser, Content: "how does the Go GC work?"}}, 10)

	plan, err := planner.Plan(context.Background(), store)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Plan != "start broad" {
		t.Fatalf("plan text = %q", plan.Plan)
	}
	if len(plan.Queries) != 2 || plan.Queries[0] != "go garbage collector design" {
		t.Fatalf("queries = %v", plan.Queries)
	}
}

func TestPlannerDedupesAndClamps(t *testing.T) {
	llm := (&scriptedLLM{}).on("strategic research planner",
		`{"plan": "p", "queries": ["a", "A", "  b ", "", "c", "d"]}`)
	planner := NewQueryPlanner(llm, "gpt-4o-mini", 3)
	store := NewEvidenceStore([]Message{{Role: RoleUser, Content: "q"}}, 10)

	plan, err := planner.Plan(context.Background(), store)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(plan.Queries) != len(want) {
		t.Fatalf("queries = %v, want %v", plan.Queries, want)
	}
	for i := range want {
		if plan.Queries[i] != want[i] {
			t.Fatalf("queries = %v, want %v", plan.Queries, want)
		}
	}
}

func TestPlannerRejectsEmptyQueries(t *testing.T) {
	llm := (&scriptedLLM{}).on("strategic research planner", `{"plan": "p", "queries": ["", "   "]}`)
	planner := NewQueryPlanner(llm, "gpt-4o-mini", 5)
	store := NewEvidenceStore([]Message{{Role: RoleUser, Content: "q"}}, 10)

	if _, err := planner.Plan(context.Background(), store); err == nil {
		t.Fatal("expected error for plan with no usable queries")
	}
}

func TestPlannerPropagatesLLMError(t *testing.T) {
	llmErr := errors.New("rate limited")
	llm := (&scriptedLLM{}).onErr("strategic research planner", llmErr)
	planner := NewQueryPlanner(llm, "gpt-4o-mini", 5)
	store := NewEvidenceStore([]Message{{Role: RoleUser, Content: "q"}}, 10)

	if _, err := planner.Plan(context.Background(), store); !errors.Is(err, llmErr) {
		t.Fatalf("err = %v, want wrapped %v", err, llmErr)
	}
}

func TestPlanningPromptCarriesFeedbackAndEvidence(t *testing.T) {
	llm := (&scriptedLLM{}).on("strategic research planner", `{"plan": "p", "queries": ["x"]}`)
	planner := NewQueryPlanner(llm, "gpt-4o-mini", 5)
	store := NewEvidenceStore([]Message{{Role: RoleUser, Content: "q"}}, 10)
	store.SetEvaluatorFeedback("missing benchmark numbers")
	if err := store.AppendSearchRecord(SearchRecord{Query: "earlier query"}); err != nil {
		t.Fatalf("AppendSearchRecord: %v", err)
	}

	if _, err := planner.Plan(context.Background(), store); err != nil {
		t.Fatalf("Plan: %v", err)
	}
	prompts := llm.prompts()
	if len(prompts) != 1 {
		t.Fatalf("got %d LLM calls, want 1", len(prompts))
	}
	if !strings.Contains(prompts[0], "missing benchmark numbers") {
		t.Fatal("planning prompt missing evaluator feedback")
	}
	if !strings.Contains(prompts[0], `## Search: "earlier query"`) {
		t.Fatal("planning prompt missing prior search evidence")
	}
}
