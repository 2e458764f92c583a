package core

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mohammad-safakhou/deepsearch/internal/agent/telemetry"
	"github.com/mohammad-safakhou/deepsearch/internal/cache"
	"github.com/mohammad-safakhou/deepsearch/internal/helpers"
	"github.com/mohammad-safakhou/deepsearch/tools/web_fetch"
	"github.com/mohammad-safakhou/deepsearch/tools/web_search"
)

// Placeholder values for absorbed partial failures. One bad page must never
// sink the batch.
const (
	ScrapeFailedPlaceholder  = "Failed to scrape content"
	SummaryFailedPlaceholder = "Failed to generate summary"
)

// RetrieverOptions tunes one retriever instance.
type RetrieverOptions struct {
	SearchProvider  string
	SummaryModel    string
	ResultsPerQuery int
	MaxConcurrent   int
	BlockedDomains  []string
	CacheTTL        time.Duration
}

// Retriever executes a planning batch of queries against the search provider
// and the scraper/summarizer, producing one SearchRecord per query.
type Retriever struct {
	searcher  web_search.WebSearcher
	fetcher   web_fetch.WebFetcher
	llm       LLM
	cache     cache.SummaryCache
	telemetry *telemetry.Telemetry
	opts      RetrieverOptions
	logger    *log.Logger
}

// NewRetriever wires a retriever from its collaborators.
func NewRetriever(searcher web_search.WebSearcher, fetcher web_fetch.WebFetcher, llm LLM, summaryCache cache.SummaryCache, tel *telemetry.Telemetry, opts RetrieverOptions) *Retriever {
	if opts.ResultsPerQuery <= 0 {
		opts.ResultsPerQuery = 5
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 8
	}
	if summaryCache == nil {
		summaryCache = cache.NopCache{}
	}
	return &Retriever{
		searcher:  searcher,
		fetcher:   fetcher,
		llm:       llm,
		cache:     summaryCache,
		telemetry: tel,
		opts:      opts,
		logger:    log.New(log.Writer(), "[RETRIEVER] ", log.LstdFlags),
	}
}

// candidate is one post-filter, post-dedup URL awaiting scrape+summary.
type candidate struct {
	queryIdx int
	item     EvidenceItem
}

// Retrieve executes a single query. Equivalent to a one-element batch.
func (r *Retriever) Retrieve(ctx context.Context, store *EvidenceStore, query string) (SearchRecord, error) {
	records, err := r.RetrieveBatch(ctx, store, []string{query})
	if err != nil {
		return SearchRecord{}, err
	}
	return records[0], nil
}

// RetrieveBatch executes every query of one planning batch with bounded
// parallelism and returns exactly one SearchRecord per input query, in input
// order. URLs appearing under multiple queries are retrieved once, credited
// to the first query that returned them. A query whose candidates were all
// filtered out yields an empty record, not an error. Per-URL scrape and
// summary failures are absorbed as placeholder values; provider search
// failures abort the batch.
func (r *Retriever) RetrieveBatch(ctx context.Context, store *EvidenceStore, queries []string) ([]SearchRecord, error) {
	rawResults, err := r.searchAll(ctx, queries)
	if err != nil {
		return nil, err
	}

	candidates := r.collectCandidates(queries, rawResults)

	if err := r.scrapeAndSummarize(ctx, store, queries, candidates); err != nil {
		return nil, err
	}

	records := make([]SearchRecord, len(queries))
	for i, q := range queries {
		records[i] = SearchRecord{Query: q}
	}
	for _, c := range candidates {
		records[c.queryIdx].Results = append(records[c.queryIdx].Results, c.item)
	}
	return records, nil
}

// searchAll fires every query concurrently, capped by MaxConcurrent.
func (r *Retriever) searchAll(ctx context.Context, queries []string) ([][]searchHit, error) {
	out := make([][]searchHit, len(queries))
	errs := make([]error, len(queries))
	sem := make(chan struct{}, r.opts.MaxConcurrent)
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			if err := acquire(ctx, sem); err != nil {
				errs[i] = err
				return
			}
			defer release(sem)
			results, err := r.searcher.Search(ctx, q, r.opts.ResultsPerQuery)
			if r.telemetry != nil {
				r.telemetry.RecordSearchEvent(r.opts.SearchProvider, len(results), err)
			}
			if err != nil {
				errs[i] = fmt.Errorf("search %q: %w", q, err)
				return
			}
			hits := make([]searchHit, 0, len(results))
			for _, res := range results {
				hits = append(hits, searchHit{
					Title:         res.Title,
					URL:           res.URL,
					Snippet:       res.Snippet,
					PublishedDate: res.PublishedDate,
				})
			}
			out[i] = hits
		}(i, q)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

type searchHit struct {
	Title         string
	URL           string
	Snippet       string
	PublishedDate string
}

// collectCandidates applies the blocked-domain policy and deduplicates by
// canonical URL across the whole batch, preserving query order and
// per-query provider ranking.
func (r *Retriever) collectCandidates(queries []string, rawResults [][]searchHit) []*candidate {
	seen := make(map[string]struct{})
	now := time.Now().UTC().Format(time.RFC3339)
	var candidates []*candidate
	for i := range queries {
		for _, hit := range rawResults[i] {
			if r.blocked(hit.URL) {
				continue
			}
			key, err := helpers.CanonicalURL(hit.URL)
			if err != nil {
				key = hit.URL
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			date := hit.PublishedDate
			if date == "" {
				date = now
			}
			candidates = append(candidates, &candidate{
				queryIdx: i,
				item: EvidenceItem{
					URL:           hit.URL,
					Title:         hit.Title,
					Snippet:       hit.Snippet,
					PublishedDate: date,
				},
			})
		}
	}
	return candidates
}

func (r *Retriever) blocked(rawURL string) bool {
	host := helpers.Domain(rawURL)
	for _, domain := range r.opts.BlockedDomains {
		if helpers.DomainMatches(host, domain) {
			return true
		}
	}
	return false
}

// scrapeAndSummarize fills in each candidate's Summary. Scraping and
// summarization both run concurrently per URL with per-item failures
// isolated; only request cancellation aborts the batch.
func (r *Retriever) scrapeAndSummarize(ctx context.Context, store *EvidenceStore, queries []string, candidates []*candidate) error {
	if len(candidates) == 0 {
		return ctx.Err()
	}

	contents := make([]string, len(candidates))
	sem := make(chan struct{}, r.opts.MaxConcurrent)
	var wg sync.WaitGroup
	for j, c := range candidates {
		wg.Add(1)
		go func(j int, c *candidate) {
			defer wg.Done()
			if err := acquire(ctx, sem); err != nil {
				contents[j] = ScrapeFailedPlaceholder
				return
			}
			defer release(sem)
			page, err := r.fetcher.Exec(ctx, c.item.URL)
			ok := err == nil && page.Text != ""
			if r.telemetry != nil {
				r.telemetry.RecordScrapeEvent(ok)
			}
			if !ok {
				if err != nil {
					r.logger.Printf("scrape %s failed: %v", c.item.URL, err)
				}
				contents[j] = ScrapeFailedPlaceholder
				return
			}
			contents[j] = page.Text
		}(j, c)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	conversation := store.ConversationHistory()
	ctxHash := cache.ContextHash(conversation)
	for j, c := range candidates {
		if contents[j] == ScrapeFailedPlaceholder {
			c.item.Summary = ScrapeFailedPlaceholder
			continue
		}
		wg.Add(1)
		go func(j int, c *candidate) {
			defer wg.Done()
			if err := acquire(ctx, sem); err != nil {
				c.item.Summary = SummaryFailedPlaceholder
				return
			}
			defer release(sem)
			query := queries[c.queryIdx]
			c.item.Summary = r.summarize(ctx, query, conversation, ctxHash, c.item, contents[j])
		}(j, c)
	}
	wg.Wait()
	return ctx.Err()
}

// summarize produces the query-scoped synthesis for one page, consulting the
// summary cache first. Cache failures are logged and ignored.
func (r *Retriever) summarize(ctx context.Context, query, conversation, ctxHash string, item EvidenceItem, content string) string {
	key := cache.SummaryKey(item.URL, query, ctxHash)
	if val, ok, err := r.cache.Get(ctx, key); err == nil && ok {
		if r.telemetry != nil {
			r.telemetry.RecordCacheEvent(true)
		}
		return val
	} else if err != nil {
		r.logger.Printf("summary cache get failed: %v", err)
	}
	if r.telemetry != nil {
		r.telemetry.RecordCacheEvent(false)
	}

	prompt := summaryPrompt(query, conversation, item, content)
	summary, err := r.llm.Generate(ctx, prompt, r.opts.SummaryModel, map[string]interface{}{
		"temperature": 0.2,
	})
	if err != nil {
		r.logger.Printf("summarize %s failed: %v", item.URL, err)
		return SummaryFailedPlaceholder
	}
	if err := r.cache.Set(ctx, key, summary, r.opts.CacheTTL); err != nil {
		r.logger.Printf("summary cache set failed: %v", err)
	}
	return summary
}

func acquire(ctx context.Context, sem chan struct{}) error {
	select {
	case sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func release(sem chan struct{}) {
	<-sem
}
