package retrieval

import "strings"

// codeSynonyms maps natural-language vocabulary to code vocabulary
// equivalents, the same cross-language-keyword idea the teacher's
// CodeSynonyms dictionary uses, trimmed to the handful of terms that
// actually move recall for this engine's symbol-level (not chunk-level)
// search.
var codeSynonyms = map[string][]string{
	"function":  {"func", "method", "fn", "def"},
	"method":    {"func", "fn", "function"},
	"class":     {"type", "struct", "interface"},
	"type":      {"class", "struct", "interface"},
	"interface": {"protocol", "trait", "contract"},
	"error":     {"err", "exception", "failure"},
	"exception": {"error", "err"},
	"config":    {"configuration", "settings", "options"},
	"ctx":       {"context"},
	"db":        {"database"},
	"auth":      {"authentication", "authorization"},
	"req":       {"request"},
	"resp":      {"response"},
	"param":     {"parameter", "arg", "argument"},
}

// commonAcronyms expands well-known acronyms to their spelled-out form
// alongside the original token, so a query for "api" also reaches symbols
// documented as "application programming interface" and vice versa isn't
// needed since code rarely spells acronyms out.
var commonAcronyms = map[string]string{
	"api":  "application programming interface",
	"http": "hypertext transfer protocol",
	"url":  "uniform resource locator",
	"json": "javascript object notation",
	"sql":  "structured query language",
	"crud": "create read update delete",
}

// ExpandSynonyms appends synonym and acronym expansions for each token in a
// normalized query, both enabled by default per spec.md §4.7 step 1. The
// original query is always first so exact-match scoring still favors it.
func ExpandSynonyms(normalized string) string {
	tokens := strings.Fields(normalized)
	var extra []string

	for _, tok := range tokens {
		if syns, ok := codeSynonyms[tok]; ok {
			extra = append(extra, syns...)
		}
		if expansion, ok := commonAcronyms[tok]; ok {
			extra = append(extra, expansion)
		}
	}

	if len(extra) == 0 {
		return normalized
	}
	return normalized + " " + strings.Join(extra, " ")
}
