package search

import (
	"context"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a page search.
type SearchParams struct {
	Query  string // User's search query
	BookID string // Restrict to one book (empty = all)
	Tag    string // Restrict to one tag label (empty = all)
	Status string // Restrict to one status (empty = all)

	Limit  int
	Offset int
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{Limit: 20}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit represents a single matched page.
type SearchHit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	URL        string            `json:"url"`
	BookID     string            `json:"book_id,omitempty"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Search executes a page search.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = 20
	}

	searchRequest := bleve.NewSearchRequestOptions(
		buildSearchQuery(params), params.Limit, params.Offset, false)
	searchRequest.Fields = []string{"title", "url", "book_id"}
	searchRequest.Highlight = bleve.NewHighlight()
	searchRequest.Highlight.AddField("title")
	searchRequest.Highlight.AddField("description")

	result, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, err
	}

	out := &SearchResult{
		Query:  params.Query,
		Total:  result.Total,
		TookMs: result.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(result.Hits)),
	}
	for _, hit := range result.Hits {
		h := SearchHit{
			ID:     hit.ID,
			Score:  hit.Score,
			Title:  stringField(hit.Fields, "title"),
			URL:    stringField(hit.Fields, "url"),
			BookID: stringField(hit.Fields, "book_id"),
		}
		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string, len(hit.Fragments))
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}
		out.Hits = append(out.Hits, h)
	}
	return out, nil
}

// buildSearchQuery combines the text query with the exact-match filters.
func buildSearchQuery(params SearchParams) query.Query {
	var textQuery query.Query
	if params.Query == "" {
		textQuery = bleve.NewMatchAllQuery()
	} else {
		match := bleve.NewMatchQuery(params.Query)
		match.SetFuzziness(1) // Tolerate small typos
		textQuery = match
	}

	filters := []query.Query{textQuery}
	if params.BookID != "" {
		q := bleve.NewTermQuery(params.BookID)
		q.SetField("book_id")
		filters = append(filters, q)
	}
	if params.Tag != "" {
		q := bleve.NewTermQuery(params.Tag)
		q.SetField("tags")
		filters = append(filters, q)
	}
	if params.Status != "" {
		q := bleve.NewTermQuery(params.Status)
		q.SetField("status")
		filters = append(filters, q)
	}

	if len(filters) == 1 {
		return textQuery
	}
	return bleve.NewConjunctionQuery(filters...)
}

func stringField(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}
