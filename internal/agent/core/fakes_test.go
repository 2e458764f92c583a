package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	fetchmodels "github.com/mohammad-safakhou/deepsearch/tools/web_fetch/models"
	searchmodels "github.com/mohammad-safakhou/deepsearch/tools/web_search/models"
)

// scriptedLLM answers prompts by matching a substring marker embedded in each
// stage's prompt, so one fake can serve planner, selector, summarizer and
// answer generation in the same run.
type scriptedLLM struct {
	mu    sync.Mutex
	rules []llmRule
	calls []string
}

type llmRule struct {
	match    string
	response string
	err      error
}

func (f *scriptedLLM) on(match, response string) *scriptedLLM {
	f.rules = append(f.rules, llmRule{match: match, response: response})
	return f
}

func (f *scriptedLLM) onErr(match string, err error) *scriptedLLM {
	f.rules = append(f.rules, llmRule{match: match, err: err})
	return f
}

func (f *scriptedLLM) Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error) {
	text, _, _, err := f.GenerateWithTokens(ctx, prompt, model, options)
	return text, err
}

func (f *scriptedLLM) GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, prompt)
	for _, rule := range f.rules {
		if strings.Contains(prompt, rule.match) {
			if rule.err != nil {
				return "", 0, 0, rule.err
			}
			return rule.response, 10, 5, nil
		}
	}
	return "", 0, 0, fmt.Errorf("no scripted response for prompt: %.80s", prompt)
}

func (f *scriptedLLM) prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// stubSearcher returns canned hits per query string.
type stubSearcher struct {
	mu      sync.Mutex
	results map[string][]searchmodels.Result
	errs    map[string]error
	queries []string
}

func newStubSearcher() *stubSearcher {
	return &stubSearcher{
		results: make(map[string][]searchmodels.Result),
		errs:    make(map[string]error),
	}
}

func (s *stubSearcher) Search(ctx context.Context, query string, maxResults int) ([]searchmodels.Result, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if err := s.errs[query]; err != nil {
		return nil, err
	}
	hits := s.results[query]
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	return hits, nil
}

// stubFetcher returns page text per URL, erroring on URLs listed in fail.
type stubFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	fail    map[string]bool
	fetched []string
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		pages: make(map[string]string),
		fail:  make(map[string]bool),
	}
}

func (f *stubFetcher) Exec(ctx context.Context, url string) (fetchmodels.Result, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()
	if f.fail[url] {
		return fetchmodels.Result{}, fmt.Errorf("fetch %s: connection refused", url)
	}
	return fetchmodels.Result{URL: url, Text: f.pages[url], Status: 200}, nil
}

func (f *stubFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

// recordingSink captures emitted progress events.
type recordingSink struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (s *recordingSink) Emit(event ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) byKind(kind ProgressKind) []ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ProgressEvent
	for _, ev := range s.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}
