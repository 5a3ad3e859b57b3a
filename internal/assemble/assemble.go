package assemble

import (
	"context"
	"fmt"
	"strings"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/cierrors"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

// Assembler composes hydrated root hits, their one-hop dependencies, and
// source text into the final token-budgeted Markdown context, per spec.md
// §4.8. It is the stage the Retriever hands its ranked result to.
type Assembler struct {
	cfg       Config
	metadata  store.MetadataStore
	source    SourceLoader
	tokenizer *Tokenizer
}

// New builds an Assembler.
func New(cfg Config, metadata store.MetadataStore, source SourceLoader) (*Assembler, error) {
	cfg = cfg.WithDefaults()
	tok, err := NewTokenizer(cfg.TokenEncoding)
	if err != nil {
		return nil, err
	}
	return &Assembler{cfg: cfg, metadata: metadata, source: source, tokenizer: tok}, nil
}

// renderedSymbol is one symbol's rendered Markdown plus its measured token
// cost, produced before final budget trimming.
type renderedSymbol struct {
	id         string
	name       string
	text       string
	tokens     int
	truncated  bool
	examples   string
}

// Assemble runs the full §4.8 pipeline: load roots, walk one hop for
// dependencies, render each symbol with query-aware truncation, and lay the
// result out as Definitions / Examples / Related, never exceeding budget.
func (a *Assembler) Assemble(ctx context.Context, req Request) (*Result, error) {
	if len(req.RootSymbolIDs) == 0 {
		return &Result{}, nil
	}
	budget := req.MaxTokens
	if budget <= 0 {
		budget = a.cfg.MaxContextTokens
	}

	roots, err := a.loadSymbols(ctx, req.RootSymbolIDs)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return &Result{}, nil
	}

	relatedIDs, err := a.dependencyWalk(ctx, roots)
	if err != nil {
		return nil, err
	}
	related, err := a.loadSymbols(ctx, relatedIDs)
	if err != nil {
		return nil, err
	}

	rootBudgetTotal := int(float64(budget) * a.cfg.RootFraction)
	relatedBudgetTotal := budget - rootBudgetTotal

	renderedRoots, rootUsed, truncatedAny, err := a.renderRoots(ctx, roots, req.Query, rootBudgetTotal)
	if err != nil {
		return nil, err
	}
	// Unused root budget spills into related. Related symbols are rendered
	// last, so their own unused budget is not carried back to the roots.
	relatedBudgetTotal += rootBudgetTotal - rootUsed

	renderedRelated, _, relatedTruncated, err := a.renderRelated(ctx, related, req.Query, relatedBudgetTotal)
	if err != nil {
		return nil, err
	}
	truncatedAny = truncatedAny || relatedTruncated

	text := a.layout(renderedRoots, renderedRelated)
	tokenCount, err := a.tokenizer.Count(text)
	if err != nil {
		return nil, err
	}
	if tokenCount > budget {
		text, tokenCount, err = a.hardTrim(text, budget)
		if err != nil {
			return nil, err
		}
		truncatedAny = true
	}

	result := &Result{
		Text:       text,
		TokenCount: tokenCount,
		RootIDs:    idsOf(renderedRoots),
		RelatedIDs: idsOf(renderedRelated),
		Truncated:  truncatedAny,
	}
	return result, nil
}

// hardTrim is the last-resort guarantee behind §4.8's token accounting: no
// matter how the per-symbol budgeting above rounds, the emitted text must
// never tokenize over budget. It binary-searches the largest byte prefix of
// text whose token count fits, on the theory that BPE token count is
// monotonic (non-decreasing) in string length for any fixed encoding.
func (a *Assembler) hardTrim(text string, budget int) (string, int, error) {
	if budget <= 0 {
		return "", 0, nil
	}
	lo, hi := 0, len(text)
	best, bestTokens := "", 0
	for lo <= hi {
		mid := (lo + hi) / 2
		candidate := text[:mid]
		n, err := a.tokenizer.Count(candidate)
		if err != nil {
			return "", 0, err
		}
		if n <= budget {
			best, bestTokens = candidate, n
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best, bestTokens, nil
}

func idsOf(rs []renderedSymbol) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.id
	}
	return out
}

func (a *Assembler) loadSymbols(ctx context.Context, ids []string) ([]*store.Symbol, error) {
	out := make([]*store.Symbol, 0, len(ids))
	for _, id := range ids {
		sym, err := a.metadata.GetSymbol(ctx, id)
		if err != nil {
			return nil, cierrors.StoreInvariant(fmt.Sprintf("load symbol %s", id), err)
		}
		if sym != nil {
			out = append(out, sym)
		}
	}
	return out, nil
}

// dependencyWalk implements §4.8's dependency auto-inclusion: one hop from
// each root over its outgoing edges. spec.md §4.8 names the edge kind set
// {type_extends, type_implements, parameter_type, return_type}; the latter
// two are not part of the implemented edge taxonomy (spec.md §3's own Edge
// definition and the Parser never emit them — see DESIGN.md), so this walks
// every outgoing edge kind instead. That superset is required for scenario
// 1's worked example (a root's callee must appear in the assembled
// context), and it still includes the three type-relation kinds {
// type_extends, type_implements, type_alias } that do exist.
func (a *Assembler) dependencyWalk(ctx context.Context, roots []*store.Symbol) ([]string, error) {
	seen := make(map[string]bool, len(roots))
	for _, r := range roots {
		seen[r.ID] = true
	}

	var out []string
	for _, r := range roots {
		edges, err := a.metadata.GetEdgesFrom(ctx, r.ID, nil)
		if err != nil {
			return nil, cierrors.StoreInvariant(fmt.Sprintf("load edges from %s", r.ID), err)
		}
		added := 0
		for _, e := range edges {
			if added >= a.cfg.MaxRelatedPerRoot {
				break
			}
			if seen[e.ToSymbolID] {
				continue
			}
			seen[e.ToSymbolID] = true
			out = append(out, e.ToSymbolID)
			added++
		}
	}
	return out, nil
}

// renderRoots renders each root's full form (header, source, JSDoc body)
// within budget, stopping once a symbol would overflow it.
func (a *Assembler) renderRoots(ctx context.Context, roots []*store.Symbol, query string, budget int) ([]renderedSymbol, int, bool, error) {
	var out []renderedSymbol
	used := 0
	truncatedAny := false
	remaining := len(roots)

	for _, sym := range roots {
		remaining--
		subBudget := budget - used
		if remaining > 0 {
			subBudget = (budget - used) / (remaining + 1)
		}
		if subBudget <= 0 {
			break
		}

		doc, err := a.metadata.GetDocstring(ctx, sym.ID)
		if err != nil {
			return nil, 0, false, cierrors.StoreInvariant(fmt.Sprintf("load docstring %s", sym.ID), err)
		}

		header := renderRootHeader(sym)
		body := renderJSDocBody(doc)

		source, err := a.source.ReadRange(ctx, sym.FilePath, sym.StartLine, sym.EndLine)
		if err != nil {
			return nil, 0, false, err
		}
		lines := strings.Split(source, "\n")
		sourceBudget := subBudget
		if overhead, err := a.tokenizer.Count(header + body + renderCodeBlock("", sym.Language)); err == nil {
			sourceBudget -= overhead
		}
		if sourceBudget < 0 {
			sourceBudget = 0
		}
		rendered, truncated, err := truncateLines(lines, query, sourceBudget, a.tokenizer.Count)
		if err != nil {
			return nil, 0, false, err
		}

		entry := header + renderCodeBlock(rendered, sym.Language) + body
		n, err := a.tokenizer.Count(entry)
		if err != nil {
			return nil, 0, false, err
		}
		if used+n > budget && len(out) > 0 {
			break
		}

		out = append(out, renderedSymbol{
			id: sym.ID, name: sym.Name, text: entry, tokens: n, truncated: truncated,
			examples: renderExamples(sym.Name, doc),
		})
		used += n
		truncatedAny = truncatedAny || truncated
	}
	return out, used, truncatedAny, nil
}

// renderRelated renders each related symbol's simplified form within
// budget, dropping trailing entries once the budget is exhausted.
func (a *Assembler) renderRelated(ctx context.Context, related []*store.Symbol, query string, budget int) ([]renderedSymbol, int, bool, error) {
	var out []renderedSymbol
	used := 0
	truncatedAny := false
	remaining := len(related)

	for _, sym := range related {
		remaining--
		if budget-used <= 0 {
			break
		}
		subBudget := (budget - used) / (remaining + 1)
		if subBudget <= 0 {
			continue
		}

		source, err := a.source.ReadRange(ctx, sym.FilePath, sym.StartLine, sym.EndLine)
		if err != nil {
			return nil, 0, false, err
		}
		lines := strings.Split(source, "\n")
		sourceBudget := subBudget
		if overhead, err := a.tokenizer.Count(renderRelatedEntry(sym, "")); err == nil {
			sourceBudget -= overhead
		}
		if sourceBudget < 0 {
			sourceBudget = 0
		}
		rendered, truncated, err := truncateLines(lines, query, sourceBudget, a.tokenizer.Count)
		if err != nil {
			return nil, 0, false, err
		}

		entry := renderRelatedEntry(sym, rendered)
		n, err := a.tokenizer.Count(entry)
		if err != nil {
			return nil, 0, false, err
		}
		if used+n > budget {
			continue
		}

		out = append(out, renderedSymbol{id: sym.ID, name: sym.Name, text: entry, tokens: n, truncated: truncated})
		used += n
		truncatedAny = truncatedAny || truncated
	}
	return out, used, truncatedAny, nil
}

// layout assembles the final Definitions / Examples / Related Markdown
// document from the rendered entries.
func (a *Assembler) layout(roots, related []renderedSymbol) string {
	var b strings.Builder

	b.WriteString("## Definitions\n\n")
	for _, r := range roots {
		b.WriteString(r.text)
		b.WriteString("\n")
	}

	var examples strings.Builder
	for _, r := range roots {
		if r.examples != "" {
			examples.WriteString(r.examples)
			examples.WriteString("\n")
		}
	}
	if examples.Len() > 0 {
		b.WriteString("## Examples\n\n")
		b.WriteString(examples.String())
	}

	if len(related) > 0 {
		b.WriteString("## Related\n\n")
		for _, r := range related {
			b.WriteString(r.text)
			b.WriteString("\n")
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
