package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driving"
	"github.com/RookieRunboy/contract-search-system/internal/runtime"
)

// Ensure searchService implements SearchService
var _ driving.SearchService = (*searchService)(nil)

// Lexical boost coefficients for the metadata fields, relative to the
// requested metadata weight. Party names carry full weight; the longer
// descriptive fields are progressively discounted.
const (
	projectDescriptionFactor = 0.8
	contractTypeFactor       = 0.7
	positionsFactor          = 0.6
	personnelListFactor      = 0.6
)

// neutralVectorScore is what a document scores on the vector clause
// when it has no stored vector, keeping it comparable with documents
// that do.
const neutralVectorScore = 1.0

// searchService implements the SearchService interface
type searchService struct {
	backend  driven.SearchBackend
	services *runtime.Services
}

// NewSearchService creates a new SearchService.
// The embedding service is accessed dynamically via runtime.Services.
func NewSearchService(backend driven.SearchBackend, services *runtime.Services) driving.SearchService {
	return &searchService{
		backend:  backend,
		services: services,
	}
}

// Search validates the parameters and dispatches to the requested mode.
func (s *searchService) Search(ctx context.Context, params domain.SearchParams) (*domain.SearchResult, error) {
	start := time.Now()

	if err := params.Validate(); err != nil {
		return nil, err
	}

	result := &domain.SearchResult{Mode: params.Mode}

	switch params.Mode {
	case domain.SearchModeContent:
		hits, err := s.searchContent(ctx, params, params.TopK)
		if err != nil {
			return nil, err
		}
		result.Pages = hits
	case domain.SearchModeMetadata:
		hits, err := s.searchMetadata(ctx, params, params.TopK)
		if err != nil {
			return nil, err
		}
		result.Pages = hits
	case domain.SearchModeHybrid:
		merged, err := s.searchHybrid(ctx, params)
		if err != nil {
			return nil, err
		}
		result.Merged = merged
	}

	result.Took = time.Since(start)
	return result, nil
}

// searchContent runs the page-text retrieval pass.
func (s *searchService) searchContent(ctx context.Context, params domain.SearchParams, size int) ([]*domain.PageHit, error) {
	fields := contentFields(params)

	q := driven.Query{
		MatchText:       params.QueryText,
		MatchFields:     fields,
		Fuzziness:       params.Fuzziness,
		Vector:          s.vectorBoost(ctx, params.QueryText, "text_vector", params.VectorWeight),
		HighlightFields: []string{"text"},
		Size:            size,
	}
	q.RangeFilters = rangeFilters(params)

	hits, err := s.backend.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return contentHits(hits), nil
}

// searchMetadata runs the structured-field retrieval pass. Only first
// pages carry metadata, so the query is pinned to page 1 and the
// structured filters apply here.
func (s *searchService) searchMetadata(ctx context.Context, params domain.SearchParams, size int) ([]*domain.PageHit, error) {
	w := params.MetadataWeight
	fields := []driven.WeightedField{
		{Name: "document_metadata.party_a", Boost: w},
		{Name: "document_metadata.party_b", Boost: w},
		{Name: "document_metadata.project_description", Boost: projectDescriptionFactor * w},
		{Name: "document_metadata.contract_type", Boost: contractTypeFactor * w},
		{Name: "document_metadata.positions", Boost: positionsFactor * w},
		{Name: "document_metadata.personnel_list", Boost: personnelListFactor * w},
	}

	q := driven.Query{
		MatchText:   params.QueryMetadata,
		MatchFields: fields,
		Fuzziness:   params.Fuzziness,
		TermFilters: []driven.TermFilter{{Field: "page_id", Value: 1}},
		Vector:      s.vectorBoost(ctx, params.QueryMetadata, "document_metadata.metadata_vector", params.MetadataWeight),
		HighlightFields: []string{
			"document_metadata.party_a",
			"document_metadata.party_b",
			"document_metadata.project_description",
			"document_metadata.contract_type",
			"document_metadata.positions",
			"document_metadata.personnel_list",
		},
		Size: size,
	}
	q.RangeFilters = rangeFilters(params)

	hits, err := s.backend.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return metadataHits(hits), nil
}

// searchHybrid runs the passes whose queries are present, concurrently
// and over-fetched, then merges per contract. With only one query the
// merge wraps that single side.
func (s *searchService) searchHybrid(ctx context.Context, params domain.SearchParams) ([]*domain.MergedResult, error) {
	fetch := params.TopK * 2

	var contentSide, metadataSide []*domain.PageHit
	g, gctx := errgroup.WithContext(ctx)
	if strings.TrimSpace(params.QueryText) != "" {
		g.Go(func() error {
			hits, err := s.searchContent(gctx, params, fetch)
			if err != nil {
				return err
			}
			contentSide = hits
			return nil
		})
	}
	if strings.TrimSpace(params.QueryMetadata) != "" {
		g.Go(func() error {
			hits, err := s.searchMetadata(gctx, params, fetch)
			if err != nil {
				return err
			}
			metadataSide = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergeResults(contentSide, metadataSide, params.TopK), nil
}

// contentFields returns the weighted lexical fields for content search.
// When both text weights are zero the query falls back to unboosted
// full text so it still matches something.
func contentFields(params domain.SearchParams) []driven.WeightedField {
	var fields []driven.WeightedField
	if params.TextStandardWeight > 0 {
		fields = append(fields, driven.WeightedField{Name: "text", Boost: params.TextStandardWeight})
	}
	if params.TextNgramWeight > 0 {
		fields = append(fields, driven.WeightedField{Name: "text.ngram", Boost: params.TextNgramWeight})
	}
	if len(fields) == 0 {
		fields = []driven.WeightedField{{Name: "text", Boost: 1}}
	}
	return fields
}

// vectorBoost embeds the query text for semantic scoring. A missing or
// failing embedding service degrades the pass to lexical-only rather
// than failing the search.
func (s *searchService) vectorBoost(ctx context.Context, query, field string, weight float64) *driven.VectorBoost {
	if weight <= 0 {
		return nil
	}
	embeddingService := s.services.EmbeddingService()
	if embeddingService == nil {
		return nil
	}
	vec, err := embeddingService.EmbedQuery(ctx, query)
	if err != nil {
		return nil
	}
	return &driven.VectorBoost{
		Field:   field,
		Vector:  vec,
		Weight:  weight,
		Neutral: neutralVectorScore,
	}
}

func rangeFilters(params domain.SearchParams) []driven.RangeFilter {
	var filters []driven.RangeFilter
	if params.AmountMin != nil || params.AmountMax != nil {
		f := driven.RangeFilter{Field: "document_metadata.contract_amount"}
		if params.AmountMin != nil {
			f.GTE = *params.AmountMin
		}
		if params.AmountMax != nil {
			f.LTE = *params.AmountMax
		}
		filters = append(filters, f)
	}
	if params.DateStart != "" || params.DateEnd != "" {
		f := driven.RangeFilter{Field: "document_metadata.signing_date"}
		if params.DateStart != "" {
			f.GTE = params.DateStart
		}
		if params.DateEnd != "" {
			f.LTE = params.DateEnd
		}
		filters = append(filters, f)
	}
	return filters
}

func contentHits(hits []driven.Hit) []*domain.PageHit {
	out := make([]*domain.PageHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, &domain.PageHit{
			Score:        h.Score,
			ContractName: h.Page.ContractName,
			PageID:       h.Page.PageID,
			Text:         h.Page.Text,
			Highlights:   h.Highlights,
		})
	}
	return out
}

func metadataHits(hits []driven.Hit) []*domain.PageHit {
	out := make([]*domain.PageHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, &domain.PageHit{
			Score:        h.Score,
			ContractName: h.Page.ContractName,
			PageID:       h.Page.PageID,
			Highlights:   h.Highlights,
			MetadataInfo: h.Page.Metadata,
		})
	}
	return out
}

// mergeResults combines the two retrieval passes per contract.
//
// Content hits are keyed by contract name. The first hit for a contract
// sets its content and combined scores; further pages of the same
// contract only extend its page list. Metadata hits then overwrite the
// metadata score and add into the combined score, so contracts matched
// by both passes rank above single-pass matches. Ties keep the order in
// which contracts first appeared.
func mergeResults(content, metadata []*domain.PageHit, topK int) []*domain.MergedResult {
	byContract := make(map[string]*domain.MergedResult)
	var order []*domain.MergedResult

	for _, hit := range content {
		m, ok := byContract[hit.ContractName]
		if !ok {
			m = &domain.MergedResult{
				ContractName:  hit.ContractName,
				ContentScore:  hit.Score,
				CombinedScore: hit.Score,
				Highlights:    copyHighlights(hit.Highlights),
			}
			byContract[hit.ContractName] = m
			order = append(order, m)
		}
		m.ContentPages = append(m.ContentPages, domain.ContentPage{
			PageID: hit.PageID,
			Text:   hit.Text,
			Score:  hit.Score,
		})
	}

	for _, hit := range metadata {
		m, ok := byContract[hit.ContractName]
		if !ok {
			m = &domain.MergedResult{ContractName: hit.ContractName}
			byContract[hit.ContractName] = m
			order = append(order, m)
		}
		m.MetadataScore = hit.Score
		m.CombinedScore += hit.Score
		if hit.MetadataInfo != nil {
			m.MetadataInfo = hit.MetadataInfo
		}
		if m.Highlights == nil && len(hit.Highlights) > 0 {
			m.Highlights = make(map[string][]string, len(hit.Highlights))
		}
		for field, fragments := range hit.Highlights {
			m.Highlights[field] = fragments
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].CombinedScore > order[j].CombinedScore
	})
	if len(order) > topK {
		order = order[:topK]
	}
	return order
}

func copyHighlights(src map[string][]string) map[string][]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string][]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
