package cache

import (
	"context"
	"testing"
)

func TestSummaryKeyDeterministic(t *testing.T) {
	a := SummaryKey("https://example.com/a", "capital of france", "ctx1")
	b := SummaryKey("https://example.com/a", "capital of france", "ctx1")
	if a != b {
		t.Fatalf("expected identical keys, got %s vs %s", a, b)
	}
}

func TestSummaryKeyVariesByInput(t *testing.T) {
	base := SummaryKey("https://example.com/a", "capital of france", "ctx1")
	if SummaryKey("https://example.com/b", "capital of france", "ctx1") == base {
		t.Fatalf("expected different key for different url")
	}
	if SummaryKey("https://example.com/a", "largest city in france", "ctx1") == base {
		t.Fatalf("expected different key for different query")
	}
	if SummaryKey("https://example.com/a", "capital of france", "ctx2") == base {
		t.Fatalf("expected different key for different context")
	}
}

func TestNopCacheAlwaysMisses(t *testing.T) {
	c := NopCache{}
	if err := c.Set(context.Background(), "k", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_, ok, err := c.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("expected miss from nop cache")
	}
}
