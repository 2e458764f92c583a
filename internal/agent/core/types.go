package core

import (
	"context"
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation the research question came from.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// EvidenceItem is one retrieved-and-summarized web page tied to a specific
// query. Summary is a model synthesis scoped to the originating query and the
// conversation at retrieval time, not a generic page summary.
type EvidenceItem struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	Snippet       string `json:"snippet"`
	PublishedDate string `json:"published_date"`
	Summary       string `json:"summary"`
}

// SearchRecord is the full evidence set produced by one query. Results may be
// empty when every candidate URL was filtered out.
type SearchRecord struct {
	Query   string         `json:"query"`
	Results []EvidenceItem `json:"results"`
}

// ActionType discriminates the sufficiency decision.
type ActionType string

const (
	ActionContinue ActionType = "continue"
	ActionAnswer   ActionType = "answer"
)

// Action is the ActionSelector's decision. Feedback is set for continue
// actions only and names the specific information gap; it may be empty.
type Action struct {
	Type      ActionType `json:"type"`
	Title     string     `json:"title"`
	Reasoning string     `json:"reasoning"`
	Feedback  string     `json:"feedback,omitempty"`
}

// QueryPlan is the QueryPlanner's output: a research plan and 1..N distinct
// natural-language queries progressing from foundational to specific.
type QueryPlan struct {
	Plan    string   `json:"plan"`
	Queries []string `json:"queries"`
}

// ResearchResult is the outcome of one full research run.
type ResearchResult struct {
	RunID   string         `json:"run_id"`
	Answer  string         `json:"answer"`
	Final   bool           `json:"final"` // true when the step budget forced the answer
	Steps   int            `json:"steps"`
	Records []SearchRecord `json:"records"`
	Elapsed time.Duration  `json:"elapsed"`
}

// ProgressKind identifies a progress event emitted during a run.
type ProgressKind string

const (
	ProgressPlanning ProgressKind = "planning"
	ProgressSources  ProgressKind = "sources"
	ProgressDecision ProgressKind = "decision"
)

// SourceRef is a deduplicated source surfaced to observers after retrieval.
type SourceRef struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Favicon string `json:"favicon,omitempty"`
}

// ProgressEvent is a fire-and-forget notification of loop activity.
type ProgressEvent struct {
	ID    string       `json:"id"`
	RunID string       `json:"run_id"`
	Kind  ProgressKind `json:"kind"`
	Time  time.Time    `json:"time"`

	Plan       string      `json:"plan,omitempty"`    // planning events
	Queries    []string    `json:"queries,omitempty"` // planning events
	Action     *Action     `json:"action,omitempty"`  // decision events
	Query      string      `json:"query,omitempty"`   // sources events
	SourceRefs []SourceRef `json:"sources,omitempty"` // sources events
}

// ProgressSink consumes progress events. Implementations must not block; the
// loop never branches on whether a consumer is attached.
type ProgressSink interface {
	Emit(event ProgressEvent)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(ProgressEvent) {}

// LLM is the narrow model-call capability the core consumes. Satisfied by
// provider.Provider.
type LLM interface {
	Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error)
	GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error)
}
