package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// QueryPlanner produces a research plan and a small batch of search queries
// from the current evidence state. A single query rarely covers a
// multi-faceted question; decomposing up front reduces round trips and gives
// the evaluator a coherent evidence set per iteration.
type QueryPlanner struct {
	llm        LLM
	model      string
	maxQueries int
	logger     *log.Logger
}

// NewQueryPlanner creates a planner. maxQueries caps the batch size (1..10).
func NewQueryPlanner(llm LLM, model string, maxQueries int) *QueryPlanner {
	if maxQueries <= 0 {
		maxQueries = 5
	}
	return &QueryPlanner{
		llm:        llm,
		model:      model,
		maxQueries: maxQueries,
		logger:     log.New(log.Writer(), "[PLANNER] ", log.LstdFlags),
	}
}

// Plan reads the store and returns the next batch of queries. The model may
// return fewer queries than configured; the minimum is one.
func (p *QueryPlanner) Plan(ctx context.Context, store *EvidenceStore) (QueryPlan, error) {
	prompt := planningPrompt(store, p.maxQueries)

	response, err := p.llm.Generate(ctx, prompt, p.model, map[string]interface{}{
		"temperature": 0.3,
		"json":        true,
	})
	if err != nil {
		return QueryPlan{}, fmt.Errorf("failed to generate plan: %w", err)
	}

	jsonStr, err := extractJSON(response)
	if err != nil {
		return QueryPlan{}, fmt.Errorf("failed to parse planning response: %w", err)
	}

	var plan QueryPlan
	if err := json.Unmarshal([]byte(jsonStr), &plan); err != nil {
		return QueryPlan{}, fmt.Errorf("failed to parse planning response: %w", err)
	}

	plan.Queries = dedupeQueries(plan.Queries)
	if len(plan.Queries) == 0 {
		return QueryPlan{}, fmt.Errorf("planner returned no usable queries")
	}
	if len(plan.Queries) > p.maxQueries {
		plan.Queries = plan.Queries[:p.maxQueries]
	}

	p.logger.Printf("planned %d queries", len(plan.Queries))
	return plan, nil
}
