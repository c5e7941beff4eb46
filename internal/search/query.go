package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/normalize"
)

// Sort orders.
const (
	SortRelevance = "relevance"
	SortRecent    = "recent"
	SortVotes     = "votes"
	SortTerm      = "term"
)

// Query describes an Explore search. Empty fields do not filter.
type Query struct {
	Text     string           `json:"text,omitempty"`
	Dialect  string           `json:"dialect,omitempty"`
	Category string           `json:"category,omitempty"`
	Type     domain.EntryType `json:"type,omitempty"`
	// Concept matches entries whose normalized translation equals the
	// normalized value.
	Concept string `json:"concept,omitempty"`

	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
	SortBy string `json:"sort_by,omitempty"`
}

// Result lists matching entry ids in rank order.
type Result struct {
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit is one matching entry.
type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// IDs returns the hit ids in order.
func (r *Result) IDs() []string {
	ids := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		ids[i] = h.ID
	}
	return ids
}

const defaultLimit = 50

// Search executes a query against the index.
func (s *SearchIndex) Search(ctx context.Context, q Query) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	req := bleve.NewSearchRequestOptions(buildQuery(q), limit, q.Offset, false)
	addSorting(req, q.SortBy)

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		result.Hits = append(result.Hits, Hit{ID: hit.ID, Score: hit.Score})
	}
	return result, nil
}

func buildQuery(q Query) query.Query {
	var queries []query.Query

	if text := strings.TrimSpace(q.Text); text != "" {
		lower := strings.ToLower(text)
		pattern := "*" + escapeWildcard(lower) + "*"

		termMatch := bleve.NewMatchQuery(text)
		termMatch.SetField("term")
		termMatch.SetBoost(3.0)

		translationMatch := bleve.NewMatchQuery(text)
		translationMatch.SetField("translation")
		translationMatch.SetBoost(2.0)

		transliterationMatch := bleve.NewMatchQuery(text)
		transliterationMatch.SetField("transliteration")
		transliterationMatch.SetBoost(1.5)

		textQueries := []query.Query{termMatch, translationMatch, transliterationMatch}
		for _, field := range []string{"term_raw", "translation_raw", "transliteration_raw", "tags"} {
			wq := bleve.NewWildcardQuery(pattern)
			wq.SetField(field)
			wq.SetBoost(0.5)
			textQueries = append(textQueries, wq)
		}
		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	addTerm := func(field, value string) {
		if value == "" {
			return
		}
		tq := bleve.NewTermQuery(value)
		tq.SetField(field)
		queries = append(queries, tq)
	}
	addTerm("dialect", q.Dialect)
	addTerm("category", q.Category)
	addTerm("type", string(q.Type))
	addTerm("concept", normalize.ConceptName(q.Concept))

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}

func escapeWildcard(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)
	return r.Replace(s)
}

func addSorting(req *bleve.SearchRequest, sortBy string) {
	switch sortBy {
	case SortRecent:
		req.SortBy([]string{"-created_at", "id"})
	case SortVotes:
		req.SortBy([]string{"-upvotes", "-created_at", "id"})
	case SortTerm:
		req.SortBy([]string{"term_raw", "id"})
	default:
		req.SortBy([]string{"-_score", "-created_at", "id"})
	}
}

// Match reports whether e satisfies q. It is the in-memory counterpart of
// the index: substring text matching, exact filters.
func Match(q Query, e *domain.Entry) bool {
	if q.Dialect != "" && e.Dialect != q.Dialect {
		return false
	}
	if q.Category != "" && e.Category != q.Category {
		return false
	}
	if q.Type != "" && e.Type != q.Type {
		return false
	}
	if q.Concept != "" && normalize.ConceptName(e.Translation) != normalize.ConceptName(q.Concept) {
		return false
	}

	text := strings.TrimSpace(q.Text)
	if text == "" {
		return true
	}
	lower := strings.ToLower(text)
	if strings.Contains(e.Term, text) ||
		strings.Contains(strings.ToLower(e.Translation), lower) ||
		strings.Contains(strings.ToLower(e.Transliteration), lower) {
		return true
	}
	for _, tag := range e.Tags {
		if strings.Contains(strings.ToLower(tag), lower) {
			return true
		}
	}
	return false
}

// Filter returns the entries matching q, preserving order and applying
// Offset and Limit.
func Filter(entries []*domain.Entry, q Query) []*domain.Entry {
	var out []*domain.Entry
	skipped := 0
	for _, e := range entries {
		if !Match(q, e) {
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out
}
