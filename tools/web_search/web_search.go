package web_search

import (
	"context"
	"time"

	"github.com/mohammad-safakhou/deepsearch/tools/web_search/brave"
	"github.com/mohammad-safakhou/deepsearch/tools/web_search/models"
	"github.com/mohammad-safakhou/deepsearch/tools/web_search/serper"
)

// WebSearcher executes one query against a search provider and returns up to
// k raw results in provider ranking order.
type WebSearcher interface {
	Search(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

// Error is a provider-level search failure (transport, quota, bad response).
type Error struct {
	Msg string
}

func (e *Error) Error() string { return "web_search: " + e.Msg }

var ErrUnsupportedProvider = &Error{"unsupported provider"}

func NewWebSearcher(provider Provider, apiKey string, timeout time.Duration) (WebSearcher, error) {
	switch provider {
	case SerperProvider:
		return serper.Search{ApiKey: apiKey, Timeout: timeout}, nil
	case BraveProvider:
		return brave.Search{ApiKey: apiKey, Timeout: timeout}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
