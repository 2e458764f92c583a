package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
)

// ErrMalformedDecision marks a structured decision that failed schema
// validation. There is no safe default action to assume, so the request
// fails.
var ErrMalformedDecision = errors.New("malformed action decision")

// ActionSelector evaluates accumulated evidence against the question and
// decides whether to keep researching or answer. It evaluates sufficiency
// only; it never re-decides what to search — that is the planner's job.
type ActionSelector struct {
	llm    LLM
	model  string
	logger *log.Logger
}

// NewActionSelector creates a selector using the given model key.
func NewActionSelector(llm LLM, model string) *ActionSelector {
	return &ActionSelector{
		llm:    llm,
		model:  model,
		logger: log.New(log.Writer(), "[SELECTOR] ", log.LstdFlags),
	}
}

// Decide reads the store and returns exactly one of continue or answer.
func (s *ActionSelector) Decide(ctx context.Context, store *EvidenceStore) (Action, error) {
	prompt := decisionPrompt(store)

	response, err := s.llm.Generate(ctx, prompt, s.model, map[string]interface{}{
		"temperature": 0.2,
		"json":        true,
	})
	if err != nil {
		return Action{}, fmt.Errorf("failed to generate decision: %w", err)
	}

	return parseAction(response)
}

// parseAction validates the raw model response into a closed Action.
func parseAction(response string) (Action, error) {
	jsonStr, err := extractJSON(response)
	if err != nil {
		return Action{}, fmt.Errorf("%w: %v", ErrMalformedDecision, err)
	}

	var raw struct {
		Type      string `json:"type"`
		Action    string `json:"action"` // some models answer with this key
		Title     string `json:"title"`
		Reasoning string `json:"reasoning"`
		Feedback  string `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return Action{}, fmt.Errorf("%w: %v", ErrMalformedDecision, err)
	}

	kind := strings.ToLower(strings.TrimSpace(raw.Type))
	if kind == "" {
		kind = strings.ToLower(strings.TrimSpace(raw.Action))
	}

	switch ActionType(kind) {
	case ActionContinue:
		return Action{
			Type:      ActionContinue,
			Title:     raw.Title,
			Reasoning: raw.Reasoning,
			Feedback:  raw.Feedback,
		}, nil
	case ActionAnswer:
		return Action{
			Type:      ActionAnswer,
			Title:     raw.Title,
			Reasoning: raw.Reasoning,
		}, nil
	default:
		return Action{}, fmt.Errorf("%w: unknown action type %q", ErrMalformedDecision, kind)
	}
}
