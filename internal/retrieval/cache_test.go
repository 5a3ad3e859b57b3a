package retrieval

import "testing"

func TestResultCache_RoundTrip(t *testing.T) {
	c := newResultCache(8)
	in := cacheKeyInputs{NormalizedQuery: "find the parser", Intent: IntentGeneral, MaxTokens: 10}
	want := &Result{Intent: IntentGeneral}

	if _, ok := c.Get(in); ok {
		t.Fatal("expected cache miss before any Put")
	}
	c.Put(in, want)
	got, ok := c.Get(in)
	if !ok || got != want {
		t.Fatalf("expected cache hit returning the same pointer, got %v ok=%v", got, ok)
	}
}

func TestResultCache_KeyVariesWithInputs(t *testing.T) {
	c := newResultCache(8)
	base := cacheKeyInputs{NormalizedQuery: "find the parser", Intent: IntentGeneral, MaxTokens: 10}
	c.Put(base, &Result{})

	variants := []cacheKeyInputs{
		{NormalizedQuery: "find the lexer", Intent: IntentGeneral, MaxTokens: 10},
		{NormalizedQuery: "find the parser", Intent: IntentTest, MaxTokens: 10},
		{NormalizedQuery: "find the parser", Intent: IntentGeneral, MaxTokens: 20},
		{NormalizedQuery: "find the parser", Intent: IntentGeneral, MaxTokens: 10, ControlPackage: "internal/x"},
	}
	for _, v := range variants {
		if _, ok := c.Get(v); ok {
			t.Errorf("expected miss for varied input %+v", v)
		}
	}
}

func TestQueryHashForTruncation_DeterministicAndSensitive(t *testing.T) {
	a := queryHashForTruncation("find the parser")
	b := queryHashForTruncation("find the parser")
	c := queryHashForTruncation("find the lexer")
	if a != b {
		t.Fatal("expected deterministic hash")
	}
	if a == c {
		t.Fatal("expected different queries to hash differently")
	}
}
