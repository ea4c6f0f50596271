// Package schema declares the fields of the post index and their storage and
// search semantics, and translates that declaration into the engine's index
// mapping. The schema is built once at index-creation time and is immutable
// for the life of the index; changing it requires a full rebuild.
package schema

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/whitespace"
	"github.com/blevesearch/bleve/v2/analysis/tokenmap"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/forumbase/postsearch/internal/indexer/tokenizer"
	pserrors "github.com/forumbase/postsearch/pkg/errors"
)

// FieldType is the value type of a schema field.
type FieldType int

const (
	// Text is tokenized free text, analyzed with the stop-word pipeline.
	Text FieldType = iota
	// Keyword is a whitespace-separated list matched exactly per entry.
	Keyword
	// Identifier is a single opaque token matched verbatim.
	Identifier
	// Boolean is a true/false flag.
	Boolean
	// Numeric is a number, optionally sortable.
	Numeric
)

// Field is a named, typed slot in the schema.
type Field struct {
	Name     string
	Type     FieldType
	Stored   bool
	Sortable bool
}

// Searchable reports whether the field is a valid target for free-text
// queries. Identifier, boolean, and numeric fields are matched only through
// exact lookups, never through the query string.
func (f Field) Searchable() bool {
	return f.Type == Text || f.Type == Keyword
}

// Schema is the ordered, immutable set of field definitions shared by the
// document mapper, index writer, and query engine.
type Schema struct {
	fields []Field
	byName map[string]Field
}

// DocType classifies post documents inside the engine.
const DocType = "post"

// Names of the analyzers registered on the index mapping.
const (
	TextAnalyzer = "post_text"
	TagsAnalyzer = "post_tags"

	stopTokenMap = "post_stop_words"
	stopFilter   = "post_stop_filter"
)

// UIDField is the application-level primary key used for
// delete-before-reindex lookups. It is enforced by the writer protocol, not
// by the engine.
const UIDField = "uid"

// Define returns the post schema. It is pure and deterministic: every call
// yields a structurally identical schema.
func Define() *Schema {
	fields := []Field{
		{Name: "title", Type: Text, Stored: true},
		{Name: "url", Type: Identifier, Stored: true},
		{Name: "content", Type: Text, Stored: true},
		{Name: "tags", Type: Keyword, Stored: true},
		{Name: "is_toplevel", Type: Boolean, Stored: true},
		{Name: "lastedit_date", Type: Numeric, Stored: true},
		{Name: "author_uid", Type: Identifier, Stored: true},
		{Name: "rank", Type: Numeric, Stored: true, Sortable: true},
		{Name: "author", Type: Text, Stored: true},
		{Name: "author_url", Type: Identifier, Stored: true},
		{Name: UIDField, Type: Identifier, Stored: true},
		{Name: "type", Type: Text, Stored: true},
	}
	byName := make(map[string]Field, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}
	return &Schema{fields: fields, byName: byName}
}

// Fields returns the field definitions in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the definition for name.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Searchable reports whether the named field exists and can be queried.
func (s *Schema) Searchable(name string) bool {
	f, ok := s.byName[name]
	return ok && f.Searchable()
}

// ValidateFields checks that every name refers to a searchable field.
// A field that is unknown or not searchable is a caller error.
func (s *Schema) ValidateFields(names []string) error {
	if len(names) == 0 {
		return pserrors.Wrapf(pserrors.ErrInvalidFieldSet, "no fields given")
	}
	var bad []string
	for _, name := range names {
		f, ok := s.byName[name]
		if !ok || !f.Searchable() {
			bad = append(bad, name)
		}
	}
	if len(bad) > 0 {
		return pserrors.Wrapf(pserrors.ErrInvalidFieldSet, "not searchable: %s", strings.Join(bad, ", "))
	}
	return nil
}

// IndexMapping builds the engine mapping for the schema, registering the
// whitespace+stop-word analyzer from the tokenizer package's stop list so
// index-side and query-side analysis stay identical.
func (s *Schema) IndexMapping() (mapping.IndexMapping, error) {
	im := mapping.NewIndexMapping()

	tokens := make([]interface{}, 0, len(tokenizer.StopWords()))
	for _, w := range tokenizer.StopWords() {
		tokens = append(tokens, w)
	}
	if err := im.AddCustomTokenMap(stopTokenMap, map[string]interface{}{
		"type":   tokenmap.Name,
		"tokens": tokens,
	}); err != nil {
		return nil, fmt.Errorf("registering stop-word token map: %w", err)
	}
	if err := im.AddCustomTokenFilter(stopFilter, map[string]interface{}{
		"type":           stop.Name,
		"stop_token_map": stopTokenMap,
	}); err != nil {
		return nil, fmt.Errorf("registering stop-word filter: %w", err)
	}
	if err := im.AddCustomAnalyzer(TextAnalyzer, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": whitespace.Name,
		"token_filters": []interface{}{
			lowercase.Name,
			stopFilter,
		},
	}); err != nil {
		return nil, fmt.Errorf("registering text analyzer: %w", err)
	}
	if err := im.AddCustomAnalyzer(TagsAnalyzer, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": whitespace.Name,
		"token_filters": []interface{}{
			lowercase.Name,
		},
	}); err != nil {
		return nil, fmt.Errorf("registering tags analyzer: %w", err)
	}

	dm := mapping.NewDocumentMapping()
	for _, f := range s.fields {
		dm.AddFieldMappingsAt(f.Name, s.fieldMapping(f))
	}
	im.AddDocumentMapping(DocType, dm)
	im.DefaultType = DocType
	im.DefaultAnalyzer = TextAnalyzer
	return im, nil
}

func (s *Schema) fieldMapping(f Field) *mapping.FieldMapping {
	var fm *mapping.FieldMapping
	switch f.Type {
	case Text:
		fm = mapping.NewTextFieldMapping()
		fm.Analyzer = TextAnalyzer
		fm.IncludeTermVectors = true
	case Keyword:
		fm = mapping.NewTextFieldMapping()
		fm.Analyzer = TagsAnalyzer
		fm.IncludeTermVectors = true
	case Identifier:
		fm = mapping.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.IncludeInAll = false
	case Boolean:
		fm = mapping.NewBooleanFieldMapping()
	case Numeric:
		fm = mapping.NewNumericFieldMapping()
		fm.DocValues = f.Sortable
	}
	fm.Store = f.Stored
	fm.Index = true
	return fm
}
