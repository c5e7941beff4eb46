package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/ar"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the mapping for entry documents.
//
// Terms are analyzed as Arabic (normalization and light stemming), meanings
// as English, transliterations with the simple analyzer. Filters use the
// keyword analyzer for exact matches.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = simple.Name

	docMapping := bleve.NewDocumentMapping()

	termField := bleve.NewTextFieldMapping()
	termField.Analyzer = ar.AnalyzerName
	termField.Store = true
	docMapping.AddFieldMappingsAt("term", termField)

	translationField := bleve.NewTextFieldMapping()
	translationField.Analyzer = en.AnalyzerName
	translationField.Store = true
	docMapping.AddFieldMappingsAt("translation", translationField)

	transliterationField := bleve.NewTextFieldMapping()
	transliterationField.Analyzer = simple.Name
	docMapping.AddFieldMappingsAt("transliteration", transliterationField)

	for _, field := range []string{
		"id", "term_raw", "translation_raw", "transliteration_raw",
		"tags", "dialect", "category", "type", "concept", "owner_id",
	} {
		kw := bleve.NewTextFieldMapping()
		kw.Analyzer = keyword.Name
		docMapping.AddFieldMappingsAt(field, kw)
	}

	for _, field := range []string{"upvotes", "created_at"} {
		num := bleve.NewNumericFieldMapping()
		num.Store = true
		docMapping.AddFieldMappingsAt(field, num)
	}

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
