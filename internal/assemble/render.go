package assemble

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

// docParam is one entry of a Docstring's JSON-encoded Params field.
type docParam struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// languageFence maps a symbol's language to a Markdown fenced-code-block tag.
func languageFence(language string) string {
	switch strings.ToLower(language) {
	case "typescript", "ts":
		return "typescript"
	case "javascript", "js":
		return "javascript"
	case "python", "py":
		return "python"
	case "go":
		return "go"
	case "rust", "rs":
		return "rust"
	case "java":
		return "java"
	default:
		return ""
	}
}

// renderRootHeader renders a root symbol's `### <name>` heading plus
// metadata line, ahead of its source body.
func renderRootHeader(sym *store.Symbol) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n", sym.Name)
	fmt.Fprintf(&b, "`%s` (%s), lines %d-%d\n\n", sym.FilePath, sym.Kind, sym.StartLine, sym.EndLine)
	return b.String()
}

// renderCodeBlock wraps body in a fenced code block for the symbol's language.
func renderCodeBlock(body, language string) string {
	fence := languageFence(language)
	var b strings.Builder
	fmt.Fprintf(&b, "```%s\n%s\n```\n", fence, body)
	return b.String()
}

// renderRelatedEntry renders a related symbol's simplified form: a one-line
// header and its (possibly truncated) source, with no JSDoc expansion.
func renderRelatedEntry(sym *store.Symbol, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- **%s** (`%s`, %s, lines %d-%d)\n\n", sym.Name, sym.FilePath, sym.Kind, sym.StartLine, sym.EndLine)
	b.WriteString(renderCodeBlock(body, sym.Language))
	return b.String()
}

// renderJSDocBody renders a root symbol's summary, parameter table, and
// return description. Examples render separately into the top-level
// Examples section via renderExamples. Returns "" if doc is nil or carries
// no renderable content.
func renderJSDocBody(doc *store.Docstring) string {
	if doc == nil {
		return ""
	}
	var b strings.Builder
	wrote := false

	if strings.TrimSpace(doc.Summary) != "" {
		b.WriteString(doc.Summary)
		b.WriteString("\n\n")
		wrote = true
	}

	var params []docParam
	if doc.Params != "" {
		_ = json.Unmarshal([]byte(doc.Params), &params)
	}
	if len(params) > 0 {
		b.WriteString("| Parameter | Description |\n|---|---|\n")
		for _, p := range params {
			fmt.Fprintf(&b, "| %s | %s |\n", p.Name, p.Description)
		}
		b.WriteString("\n")
		wrote = true
	}

	if strings.TrimSpace(doc.Returns) != "" {
		fmt.Fprintf(&b, "Returns: %s\n\n", doc.Returns)
		wrote = true
	}

	if !wrote {
		return ""
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// renderExamples renders a root symbol's docstring examples as fenced code
// blocks under a named subheading. Returns "" if there are none.
func renderExamples(name string, doc *store.Docstring) string {
	if doc == nil || doc.Examples == "" {
		return ""
	}
	var examples []string
	_ = json.Unmarshal([]byte(doc.Examples), &examples)
	if len(examples) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "#### %s\n\n", name)
	for _, ex := range examples {
		if strings.TrimSpace(ex) == "" {
			continue
		}
		b.WriteString("```\n")
		b.WriteString(ex)
		b.WriteString("\n```\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
