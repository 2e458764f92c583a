package core

import (
	"errors"
	"fmt"
	"strings"
)

// EvidenceStore accumulates search evidence and conversation state across loop
// iterations for a single research run. It is owned exclusively by that run,
// threaded by reference through every component, and discarded afterwards —
// never shared across concurrent requests.
type EvidenceStore struct {
	stepLimit int
	step      int
	messages  []Message
	records   []SearchRecord
	feedback  string
}

// NewEvidenceStore creates the store for one run. messages is the immutable
// conversation history ending with the current user question.
func NewEvidenceStore(messages []Message, stepLimit int) *EvidenceStore {
	if stepLimit <= 0 {
		stepLimit = 10
	}
	return &EvidenceStore{
		stepLimit: stepLimit,
		messages:  append([]Message(nil), messages...),
	}
}

// AppendSearchRecord appends one query's evidence set. Records are never
// merged or removed; multiple records for the same query stay separate
// sections in chronological order.
func (s *EvidenceStore) AppendSearchRecord(record SearchRecord) error {
	if strings.TrimSpace(record.Query) == "" {
		return errors.New("search record requires a query")
	}
	s.records = append(s.records, record)
	return nil
}

// Records returns the append-only search log in chronological order.
func (s *EvidenceStore) Records() []SearchRecord {
	return s.records
}

// ShouldStop reports whether the step budget is exhausted.
func (s *EvidenceStore) ShouldStop() bool {
	return s.step >= s.stepLimit
}

// IncrementStep marks one completed plan→retrieve→evaluate iteration.
func (s *EvidenceStore) IncrementStep() {
	s.step++
}

// Step returns the number of completed iterations.
func (s *EvidenceStore) Step() int {
	return s.step
}

// SetEvaluatorFeedback overwrites the latest sufficiency-gap description from
// the action selector; it is consumed by the next iteration's planning and
// evaluation prompts.
func (s *EvidenceStore) SetEvaluatorFeedback(feedback string) {
	s.feedback = feedback
}

// EvaluatorFeedback returns the latest feedback, or "".
func (s *EvidenceStore) EvaluatorFeedback() string {
	return s.feedback
}

// InitialQuestion returns the last user turn verbatim.
func (s *EvidenceStore) InitialQuestion() string {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == RoleUser {
			return s.messages[i].Content
		}
	}
	return ""
}

// CurrentQuestion returns the question the run is answering. When the
// conversation holds more than one user turn the latest turn is usually a
// follow-up ("that's not working") that is meaningless without the prior
// question, so both are returned as a two-part string.
func (s *EvidenceStore) CurrentQuestion() string {
	var userTurns []string
	for _, m := range s.messages {
		if m.Role == RoleUser {
			userTurns = append(userTurns, m.Content)
		}
	}
	if len(userTurns) == 0 {
		return ""
	}
	if len(userTurns) > 1 {
		previous := userTurns[len(userTurns)-2]
		current := userTurns[len(userTurns)-1]
		return fmt.Sprintf("Previous question: %s\n\nCurrent follow-up: %s", previous, current)
	}
	return userTurns[len(userTurns)-1]
}

// ConversationHistory renders all conversation turns as role-prefixed lines.
func (s *EvidenceStore) ConversationHistory() string {
	parts := make([]string, 0, len(s.messages))
	for _, m := range s.messages {
		role := "Assistant"
		if m.Role == RoleUser {
			role = "User"
		}
		parts = append(parts, role+": "+m.Content)
	}
	return strings.Join(parts, "\n\n")
}

// RenderHistory renders the conversation followed by every search record in
// append order. It is a pure function of current state and is the single
// source of truth for what the model sees: planning, evaluation and the final
// answer all consume this exact render.
func (s *EvidenceStore) RenderHistory() string {
	var b strings.Builder
	b.WriteString("Conversation History:\n\n")
	b.WriteString(s.ConversationHistory())
	b.WriteString("\n\nSearch Results:\n")
	if len(s.records) == 0 {
		b.WriteString("\n(no searches performed yet)\n")
		return b.String()
	}
	for _, record := range s.records {
		b.WriteString(fmt.Sprintf("\n## Search: %q\n", record.Query))
		if len(record.Results) == 0 {
			b.WriteString("\n(no results found)\n")
			continue
		}
		for _, item := range record.Results {
			b.WriteString(fmt.Sprintf("\n### %s - %s\n\n%s\n\n%s\n\n%s\n",
				item.PublishedDate, item.Title, item.URL, item.Snippet, item.Summary))
		}
	}
	return b.String()
}
