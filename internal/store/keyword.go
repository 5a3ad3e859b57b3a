package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"
)

const (
	// codeTokenizerName splits identifiers on camelCase/snake_case boundaries.
	codeTokenizerName = "cie_code_tokenizer"
	// codeStopFilterName drops filler tokens after tokenization.
	codeStopFilterName = "cie_code_stop"
	// ngramFilterName expands each token into left-anchored prefixes.
	ngramFilterName = "cie_edge_ngram"

	// codeAnalyzerName is used for name, file_path, body: full identifier terms.
	codeAnalyzerName = "cie_code_analyzer"
	// ngramAnalyzerName is used for name_ngram, body_ngram: prefix-matchable terms.
	ngramAnalyzerName = "cie_ngram_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(codeTokenizerName, codeTokenizerConstructor)
	_ = registry.RegisterTokenFilter(codeStopFilterName, codeStopFilterConstructor)
	_ = registry.RegisterTokenFilter(ngramFilterName, ngramFilterConstructor)
}

// BleveKeywordIndex implements KeywordIndex (C2) with a multi-field bleve
// document mapping: name/name_ngram/file_path/kind/exported/body/body_ngram.
type BleveKeywordIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ KeywordIndex = (*BleveKeywordIndex)(nil)

// keywordDocument is the concrete struct bleve indexes; field names drive
// the document mapping lookups below.
type keywordDocument struct {
	Name      string `json:"name"`
	NameNgram string `json:"name_ngram"`
	FilePath  string `json:"file_path"`
	Kind      string `json:"kind"`
	Exported  bool   `json:"exported"`
	Body      string `json:"body"`
	BodyNgram string `json:"body_ngram"`
}

func validateBleveIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}
	return nil
}

func isBleveCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "unexpected end of JSON") ||
		strings.Contains(errStr, "error parsing mapping JSON") ||
		strings.Contains(errStr, "failed to load segment") ||
		strings.Contains(errStr, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// NewBleveKeywordIndex opens (or creates) the keyword index at path. An
// empty path creates an in-memory index, used for tests. A corrupted
// on-disk index is detected and rebuilt from scratch rather than failing
// startup outright.
func NewBleveKeywordIndex(path string) (*BleveKeywordIndex, error) {
	indexMapping, err := createKeywordMapping()
	if err != nil {
		return nil, fmt.Errorf("build keyword index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		dir := filepath.Dir(path)
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return nil, fmt.Errorf("create keyword index dir: %w", mkErr)
		}

		if validErr := validateBleveIntegrity(path); validErr != nil {
			slog.Warn("keyword_index_corrupted", slog.String("path", path), slog.String("error", validErr.Error()))
			if rmErr := os.RemoveAll(path); rmErr != nil {
				return nil, fmt.Errorf("keyword index corrupted at %s and cannot remove: %w (original: %v)", path, rmErr, validErr)
			}
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		} else if err != nil && isBleveCorruptionError(err) {
			slog.Warn("keyword_index_open_failed", slog.String("path", path), slog.String("error", err.Error()))
			if rmErr := os.RemoveAll(path); rmErr != nil {
				return nil, fmt.Errorf("keyword index corrupted, cannot clear: %w (original: %v)", rmErr, err)
			}
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create/open keyword index: %w", err)
	}

	return &BleveKeywordIndex{index: idx, path: path}, nil
}

func createKeywordMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	if err := im.AddCustomAnalyzer(codeAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": codeTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			codeStopFilterName,
		},
	}); err != nil {
		return nil, fmt.Errorf("add code analyzer: %w", err)
	}

	if err := im.AddCustomAnalyzer(ngramAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": codeTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			codeStopFilterName,
			ngramFilterName,
		},
	}); err != nil {
		return nil, fmt.Errorf("add ngram analyzer: %w", err)
	}

	codeField := bleve.NewTextFieldMapping()
	codeField.Analyzer = codeAnalyzerName

	ngramField := bleve.NewTextFieldMapping()
	ngramField.Analyzer = ngramAnalyzerName

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = keyword.Name

	boolField := bleve.NewBooleanFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("name", codeField)
	doc.AddFieldMappingsAt("name_ngram", ngramField)
	doc.AddFieldMappingsAt("file_path", codeField)
	doc.AddFieldMappingsAt("kind", keywordField)
	doc.AddFieldMappingsAt("exported", boolField)
	doc.AddFieldMappingsAt("body", codeField)
	doc.AddFieldMappingsAt("body_ngram", ngramField)

	im.DefaultMapping = doc
	im.DefaultAnalyzer = codeAnalyzerName
	return im, nil
}

func (b *BleveKeywordIndex) Index(ctx context.Context, docs []*KeywordDoc) error {
	if len(docs) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("keyword index is closed")
	}

	batch := b.index.NewBatch()
	for _, d := range docs {
		kd := keywordDocument{
			Name:      d.Name,
			NameNgram: d.Name,
			FilePath:  d.FilePath,
			Kind:      d.Kind,
			Exported:  d.Exported,
			Body:      d.Body,
			BodyNgram: d.Body,
		}
		if err := batch.Index(d.SymbolID, kd); err != nil {
			return fmt.Errorf("index document %s: %w", d.SymbolID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("execute keyword batch: %w", err)
	}
	return nil
}

func (b *BleveKeywordIndex) Search(ctx context.Context, queryStr string, k int) ([]*KeywordResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("keyword index is closed")
	}
	if strings.TrimSpace(queryStr) == "" {
		return []*KeywordResult{}, nil
	}

	nameQ := bleve.NewMatchQuery(queryStr)
	nameQ.SetField("name")
	nameQ.SetBoost(3)

	bodyQ := bleve.NewMatchQuery(queryStr)
	bodyQ.SetField("body")

	nameNgramQ := bleve.NewMatchQuery(queryStr)
	nameNgramQ.SetField("name_ngram")
	nameNgramQ.SetBoost(1.5)

	disjunction := bleve.NewDisjunctionQuery(nameQ, bodyQ, nameNgramQ)

	req := bleve.NewSearchRequest(disjunction)
	req.Size = k
	req.IncludeLocations = true

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	out := make([]*KeywordResult, 0, len(result.Hits))
	for _, hit := range result.Hits {
		out = append(out, &KeywordResult{
			SymbolID:     hit.ID,
			Score:        hit.Score,
			MatchedTerms: extractKeywordMatchedTerms(hit),
		})
	}
	return out, nil
}

func (b *BleveKeywordIndex) Delete(ctx context.Context, symbolIDs []string) error {
	if len(symbolIDs) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("keyword index is closed")
	}
	batch := b.index.NewBatch()
	for _, id := range symbolIDs {
		batch.Delete(id)
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("delete from keyword index: %w", err)
	}
	return nil
}

func (b *BleveKeywordIndex) AllIDs(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("keyword index is closed")
	}
	docCount, _ := b.index.DocCount()
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(docCount)
	req.Fields = nil

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list keyword index ids: %w", err)
	}
	ids := make([]string, len(result.Hits))
	for i, hit := range result.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

func (b *BleveKeywordIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

func extractKeywordMatchedTerms(hit *search.DocumentMatch) []string {
	terms := make(map[string]struct{})
	for field, locations := range hit.Locations {
		if field == "name" || field == "body" {
			for term := range locations {
				terms[term] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(terms))
	for t := range terms {
		out = append(out, t)
	}
	return out
}

func codeTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &codeTokenizer{}, nil
}

type codeTokenizer struct{}

func (t *codeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := TokenizeCode(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0

	for _, token := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), strings.ToLower(token))
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)

		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}
	return result
}

func codeStopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &codeStopFilter{stopWords: BuildStopWordMap(DefaultCodeStopWords)}, nil
}

type codeStopFilter struct {
	stopWords map[string]struct{}
}

func (f *codeStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		term := strings.ToLower(string(token.Term))
		if _, isStop := f.stopWords[term]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

func ngramFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &ngramTokenFilter{}, nil
}

// ngramTokenFilter expands each incoming token into its left-anchored
// prefixes so a partial identifier like "getUs" matches "getUserById".
type ngramTokenFilter struct{}

func (f *ngramTokenFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input)*3)
	pos := 1
	for _, token := range input {
		grams := EdgeNGrams(string(token.Term))
		for _, g := range grams {
			result = append(result, &analysis.Token{
				Term:     []byte(g),
				Start:    token.Start,
				End:      token.End,
				Position: pos,
				Type:     token.Type,
			})
			pos++
		}
	}
	return result
}
