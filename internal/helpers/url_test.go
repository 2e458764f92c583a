package helpers

import "testing"

func TestCanonicalURLStripsTrackingAndSortsQuery(t *testing.T) {
	got, err := CanonicalURL("HTTPS://WWW.Example.com:443/a/b/../c?b=2&a=1&utm_source=x&fbclid=y#frag")
	if err != nil {
		t.Fatalf("CanonicalURL: %v", err)
	}
	want := "https://www.example.com/a/c?a=1&b=2"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestCanonicalURLSchemeless(t *testing.T) {
	got, err := CanonicalURL("example.com/path")
	if err != nil {
		t.Fatalf("CanonicalURL: %v", err)
	}
	if got != "https://example.com/path" {
		t.Fatalf("unexpected canonical url: %s", got)
	}
}

func TestCanonicalURLRejectsEmpty(t *testing.T) {
	if _, err := CanonicalURL("   "); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestDomain(t *testing.T) {
	if d := Domain("https://www.reddit.com/r/golang"); d != "reddit.com" {
		t.Fatalf("expected reddit.com, got %s", d)
	}
	if d := Domain("http://example.com:8080/x"); d != "example.com" {
		t.Fatalf("expected example.com, got %s", d)
	}
}

func TestDomainMatches(t *testing.T) {
	if !DomainMatches("old.reddit.com", "reddit.com") {
		t.Fatalf("expected subdomain match")
	}
	if DomainMatches("notreddit.com", "reddit.com") {
		t.Fatalf("did not expect suffix-only match")
	}
}

func TestFaviconURL(t *testing.T) {
	if got := FaviconURL("https://example.com/a/b"); got != "https://example.com/favicon.ico" {
		t.Fatalf("unexpected favicon url: %s", got)
	}
	if got := FaviconURL("::bad::"); got != "" {
		t.Fatalf("expected empty favicon for bad url, got %s", got)
	}
}
