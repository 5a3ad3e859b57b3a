package parse

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

// LanguageConfig maps a grammar's node-type vocabulary onto the engine's
// SymbolKind taxonomy, so the extractor (extract.go) stays one
// language-agnostic walk driven by table lookups rather than N bespoke
// per-language walkers.
type LanguageConfig struct {
	Name       string
	Extensions []string

	FunctionTypes  []string
	MethodTypes    []string
	ClassTypes     []string
	InterfaceTypes []string
	TypeDefTypes   []string
	ConstantTypes  []string
	VariableTypes  []string

	CallTypes   []string // call-expression node types, for EdgeCall
	ImportTypes []string // import-statement node types, for EdgeImport

	NameField     string // field name holding a declaration's identifier
	CommentType   string // node type used for both docstrings and TODOs
	DecoratorType string // node type for annotations/decorators, if the grammar has one
}

func (c *LanguageConfig) kindOf(nodeType string) (store.SymbolKind, bool) {
	switch {
	case contains(c.FunctionTypes, nodeType):
		return store.KindFunction, true
	case contains(c.MethodTypes, nodeType):
		return store.KindMethod, true
	case contains(c.ClassTypes, nodeType):
		return store.KindClass, true
	case contains(c.InterfaceTypes, nodeType):
		return store.KindInterface, true
	case contains(c.TypeDefTypes, nodeType):
		return store.KindTypeAlias, true
	case contains(c.ConstantTypes, nodeType):
		return store.KindConstant, true
	case contains(c.VariableTypes, nodeType):
		return store.KindVariable, true
	default:
		return "", false
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// LanguageRegistry resolves file extensions and language names to their
// LanguageConfig and tree-sitter grammar.
type LanguageRegistry struct {
	mu          sync.RWMutex
	configs     map[string]*LanguageConfig
	extToLang   map[string]string
	tsLanguages map[string]*sitter.Language
}

// NewLanguageRegistry builds a registry carrying the engine's default
// language set (go, typescript, tsx, javascript, jsx, python).
func NewLanguageRegistry() *LanguageRegistry {
	r := &LanguageRegistry{
		configs:     make(map[string]*LanguageConfig),
		extToLang:   make(map[string]string),
		tsLanguages: make(map[string]*sitter.Language),
	}
	r.registerGo()
	r.registerTypeScript()
	r.registerJavaScript()
	r.registerPython()
	return r
}

func (r *LanguageRegistry) register(config *LanguageConfig, tsLang *sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[config.Name] = config
	r.tsLanguages[config.Name] = tsLang
	for _, ext := range config.Extensions {
		r.extToLang[ext] = config.Name
	}
}

// GetByExtension resolves a file extension (with or without leading dot) to
// its LanguageConfig.
func (r *LanguageRegistry) GetByExtension(ext string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	config, ok := r.configs[name]
	return config, ok
}

// GetByName resolves a language name to its LanguageConfig.
func (r *LanguageRegistry) GetByName(name string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	config, ok := r.configs[name]
	return config, ok
}

// GetTreeSitterLanguage resolves a language name to its grammar.
func (r *LanguageRegistry) GetTreeSitterLanguage(name string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lang, ok := r.tsLanguages[name]
	return lang, ok
}

// SupportedExtensions lists every registered file extension.
func (r *LanguageRegistry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	return exts
}

func (r *LanguageRegistry) registerGo() {
	config := &LanguageConfig{
		Name:          "go",
		Extensions:    []string{".go"},
		FunctionTypes: []string{"function_declaration"},
		MethodTypes:   []string{"method_declaration"},
		TypeDefTypes:  []string{"type_declaration"},
		ConstantTypes: []string{"const_declaration"},
		VariableTypes: []string{"var_declaration"},
		CallTypes:     []string{"call_expression"},
		ImportTypes:   []string{"import_declaration", "import_spec"},
		NameField:     "name",
		CommentType:   "comment",
	}
	r.register(config, golang.GetLanguage())
}

func (r *LanguageRegistry) registerTypeScript() {
	tsConfig := &LanguageConfig{
		Name:           "typescript",
		Extensions:     []string{".ts"},
		FunctionTypes:  []string{"function_declaration"},
		MethodTypes:    []string{"method_definition"},
		ClassTypes:     []string{"class_declaration"},
		InterfaceTypes: []string{"interface_declaration"},
		TypeDefTypes:   []string{"type_alias_declaration"},
		ConstantTypes:  []string{"lexical_declaration"},
		VariableTypes:  []string{"variable_declaration"},
		CallTypes:      []string{"call_expression"},
		ImportTypes:    []string{"import_statement"},
		NameField:      "name",
		CommentType:    "comment",
		DecoratorType:  "decorator",
	}
	r.register(tsConfig, typescript.GetLanguage())

	tsxConfig := &LanguageConfig{
		Name:           "tsx",
		Extensions:     []string{".tsx"},
		FunctionTypes:  tsConfig.FunctionTypes,
		MethodTypes:    tsConfig.MethodTypes,
		ClassTypes:     tsConfig.ClassTypes,
		InterfaceTypes: tsConfig.InterfaceTypes,
		TypeDefTypes:   tsConfig.TypeDefTypes,
		ConstantTypes:  tsConfig.ConstantTypes,
		VariableTypes:  tsConfig.VariableTypes,
		CallTypes:      tsConfig.CallTypes,
		ImportTypes:    tsConfig.ImportTypes,
		NameField:      tsConfig.NameField,
		CommentType:    tsConfig.CommentType,
		DecoratorType:  tsConfig.DecoratorType,
	}
	r.register(tsxConfig, tsx.GetLanguage())
}

func (r *LanguageRegistry) registerJavaScript() {
	jsConfig := &LanguageConfig{
		Name:          "javascript",
		Extensions:    []string{".js", ".mjs"},
		FunctionTypes: []string{"function_declaration", "function"},
		MethodTypes:   []string{"method_definition"},
		ClassTypes:    []string{"class_declaration"},
		ConstantTypes: []string{"lexical_declaration"},
		VariableTypes: []string{"variable_declaration"},
		CallTypes:     []string{"call_expression"},
		ImportTypes:   []string{"import_statement"},
		NameField:     "name",
		CommentType:   "comment",
	}
	r.register(jsConfig, javascript.GetLanguage())

	jsxConfig := &LanguageConfig{
		Name:          "jsx",
		Extensions:    []string{".jsx"},
		FunctionTypes: jsConfig.FunctionTypes,
		MethodTypes:   jsConfig.MethodTypes,
		ClassTypes:    jsConfig.ClassTypes,
		ConstantTypes: jsConfig.ConstantTypes,
		VariableTypes: jsConfig.VariableTypes,
		CallTypes:     jsConfig.CallTypes,
		ImportTypes:   jsConfig.ImportTypes,
		NameField:     jsConfig.NameField,
		CommentType:   jsConfig.CommentType,
	}
	r.register(jsxConfig, javascript.GetLanguage())
}

func (r *LanguageRegistry) registerPython() {
	config := &LanguageConfig{
		Name:          "python",
		Extensions:    []string{".py"},
		FunctionTypes: []string{"function_definition"},
		ClassTypes:    []string{"class_definition"},
		VariableTypes: []string{"assignment"},
		CallTypes:     []string{"call"},
		ImportTypes:   []string{"import_statement", "import_from_statement"},
		NameField:     "name",
		CommentType:   "comment",
		DecoratorType: "decorator",
	}
	r.register(config, python.GetLanguage())
}

var defaultRegistry = NewLanguageRegistry()

// DefaultRegistry returns the process-wide language registry.
func DefaultRegistry() *LanguageRegistry {
	return defaultRegistry
}
