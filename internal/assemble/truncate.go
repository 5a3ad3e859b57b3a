package assemble

import (
	"sort"
	"strings"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

// headLines/tailLines are the header/footer line counts spec.md §4.8 always
// preserves regardless of score.
const (
	headLines = 5
	tailLines = 3
)

// structuralKeywords get a small bonus in line scoring: they mark the
// shape of the code (declarations, control flow, visibility) rather than
// incidental text, so they tend to anchor a reader's understanding even
// when they don't literally match the query.
var structuralKeywords = map[string]bool{
	"func": true, "function": true, "class": true, "interface": true,
	"struct": true, "type": true, "return": true, "export": true,
	"public": true, "private": true, "const": true, "def": true,
	"implements": true, "extends": true, "import": true,
}

// scoreLine is a BM25-like relevance score of one source line against a
// tokenized query: each query token present in the line contributes 1, or 2
// if it appears as a whole word (word-boundary match), plus a flat bonus
// per structural keyword the line contains.
func scoreLine(queryTokens []string, line string) float64 {
	lineTokens := store.TokenizeCode(line)
	if len(lineTokens) == 0 {
		return 0
	}
	lineWords := make(map[string]bool, len(lineTokens))
	for _, t := range lineTokens {
		lineWords[t] = true
	}

	var score float64
	lowerLine := strings.ToLower(line)
	for _, qt := range queryTokens {
		if !strings.Contains(lowerLine, qt) {
			continue
		}
		if lineWords[qt] {
			score += 2 // word-boundary match
		} else {
			score += 1 // substring-only match
		}
	}
	for _, t := range lineTokens {
		if structuralKeywords[t] {
			score += 0.25
		}
	}
	return score
}

// truncateLines applies spec.md §4.8's query-aware truncation: the first
// headLines and last tailLines are kept when budget allows; remaining lines
// are scored against the query and greedily retained, highest score first,
// until adding another would exceed budgetTokens (measured via count, the
// caller's token counter). Dropped spans collapse to a single ellipsis
// marker. If budgetTokens is too small to hold even the head/tail span, the
// head/tail counts themselves shrink (tail first, then head) until it fits —
// the budget invariant always wins over the "always keep head/tail" default.
// Returns the possibly-truncated text and whether truncation occurred.
func truncateLines(lines []string, query string, budgetTokens int, count func(string) (int, error)) (string, bool, error) {
	full := strings.Join(lines, "\n")
	fullTokens, err := count(full)
	if err != nil {
		return "", false, err
	}
	if fullTokens <= budgetTokens {
		return full, false, nil
	}

	build := func(kept map[int]bool) string {
		var b strings.Builder
		prevKept := true
		for i, line := range lines {
			if kept[i] {
				if !prevKept {
					b.WriteString("// ...\n")
				}
				b.WriteString(line)
				b.WriteByte('\n')
				prevKept = true
			} else {
				prevKept = false
			}
		}
		return strings.TrimRight(b.String(), "\n")
	}

	// Shrink the tail, then the head, until the forced minimum fits the
	// budget, down to nothing (an all-ellipsis, possibly empty, result).
	head, tail := headLines, tailLines
	if head+tail > len(lines) {
		head, tail = len(lines), 0
	}
	forcedKept := func(h, t int) map[int]bool {
		kept := make(map[int]bool, h+t)
		for i := 0; i < h; i++ {
			kept[i] = true
		}
		for i := len(lines) - t; i < len(lines); i++ {
			kept[i] = true
		}
		return kept
	}
	minimal := forcedKept(head, tail)
	minimalText := build(minimal)
	minimalTokens, err := count(minimalText)
	if err != nil {
		return "", false, err
	}
	for minimalTokens > budgetTokens && (head > 0 || tail > 0) {
		if tail > 0 {
			tail--
		} else {
			head--
		}
		minimal = forcedKept(head, tail)
		minimalText = build(minimal)
		minimalTokens, err = count(minimalText)
		if err != nil {
			return "", false, err
		}
	}
	if minimalTokens > budgetTokens {
		return "", true, nil
	}

	queryTokens := store.TokenizeCode(query)

	type scored struct {
		idx   int
		score float64
	}
	middleStart, middleEnd := head, len(lines)-tail
	candidates := make([]scored, 0, middleEnd-middleStart)
	for i := middleStart; i < middleEnd; i++ {
		if minimal[i] {
			continue
		}
		candidates = append(candidates, scored{idx: i, score: scoreLine(queryTokens, lines[i])})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	kept := minimal
	for _, c := range candidates {
		kept[c.idx] = true
		candidate := build(kept)
		n, err := count(candidate)
		if err != nil {
			return "", false, err
		}
		if n > budgetTokens {
			kept[c.idx] = false
			break
		}
	}

	return build(kept), true, nil
}
