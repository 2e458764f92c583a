package core

import (
	"context"
	"fmt"
)

// generateAnswer produces the final answer from the full evidence render.
// With final=true the research budget ran out first; the prompt instructs the
// model to answer best-effort and flag uncertainty — budget exhaustion is a
// degraded success, never an error.
func (o *Orchestrator) generateAnswer(ctx context.Context, store *EvidenceStore, final bool) (string, error) {
	prompt := answerPrompt(store, final)
	model := o.answerModel

	text, promptTokens, completionTokens, err := o.llm.GenerateWithTokens(ctx, prompt, model, map[string]interface{}{
		"temperature": 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	if o.telemetry != nil {
		o.telemetry.RecordLLMEvent(model, "answer", promptTokens, completionTokens, o.cost(promptTokens, completionTokens, model))
	}
	return text, nil
}

func (o *Orchestrator) cost(promptTokens, completionTokens int64, model string) float64 {
	if o.costFn == nil {
		return 0
	}
	return o.costFn(promptTokens, completionTokens, model)
}
