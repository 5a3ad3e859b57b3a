package retrieval

import (
	"strings"
	"testing"
)

func TestExpandSynonyms_AppendsKnownSynonyms(t *testing.T) {
	got := ExpandSynonyms("find the function")
	if !strings.Contains(got, "func") {
		t.Fatalf("expected func synonym in %q", got)
	}
	if !strings.HasPrefix(got, "find the function") {
		t.Fatalf("expected original query preserved first in %q", got)
	}
}

func TestExpandSynonyms_ExpandsAcronyms(t *testing.T) {
	got := ExpandSynonyms("the api design")
	if !strings.Contains(got, "application programming interface") {
		t.Fatalf("expected acronym expansion in %q", got)
	}
}

func TestExpandSynonyms_NoMatchReturnsUnchanged(t *testing.T) {
	got := ExpandSynonyms("xyzzy plugh")
	if got != "xyzzy plugh" {
		t.Fatalf("expected unchanged, got %q", got)
	}
}
