package domain

import (
	"fmt"
	"strings"
	"time"
)

// SearchMode selects which retrieval pipeline a query runs through.
type SearchMode string

const (
	// SearchModeContent searches page text with lexical scoring plus a
	// text-vector boost.
	SearchModeContent SearchMode = "content"
	// SearchModeMetadata searches the structured metadata fields of
	// first pages, with a metadata-vector boost and structured filters.
	SearchModeMetadata SearchMode = "metadata"
	// SearchModeHybrid runs both pipelines and merges the results per
	// contract.
	SearchModeHybrid SearchMode = "hybrid"
)

// Valid reports whether the mode is one of the supported values.
func (m SearchMode) Valid() bool {
	switch m {
	case SearchModeContent, SearchModeMetadata, SearchModeHybrid:
		return true
	}
	return false
}

// Fuzziness is the lexical edit-distance setting passed to the backend.
type Fuzziness string

const (
	FuzzinessAuto Fuzziness = "AUTO"
	FuzzinessZero Fuzziness = "0"
	FuzzinessOne  Fuzziness = "1"
	FuzzinessTwo  Fuzziness = "2"
)

// Valid reports whether the fuzziness is a supported value.
func (f Fuzziness) Valid() bool {
	switch f {
	case FuzzinessAuto, FuzzinessZero, FuzzinessOne, FuzzinessTwo:
		return true
	}
	return false
}

// SearchParams carries a single search request through the engine.
type SearchParams struct {
	Mode          SearchMode `json:"search_mode"`
	QueryText     string     `json:"query_content,omitempty"`
	QueryMetadata string     `json:"query_metadata,omitempty"`
	TopK          int        `json:"top_k"`

	TextStandardWeight float64   `json:"text_standard"`
	TextNgramWeight    float64   `json:"text_ngram"`
	VectorWeight       float64   `json:"vector_weight"`
	MetadataWeight     float64   `json:"metadata_weight"`
	Fuzziness          Fuzziness `json:"fuzziness"`

	AmountMin *float64 `json:"min_amount,omitempty"`
	AmountMax *float64 `json:"max_amount,omitempty"`
	DateStart string   `json:"date_start,omitempty"`
	DateEnd   string   `json:"date_end,omitempty"`
}

// DefaultSearchParams returns a params value populated with the engine
// defaults. Callers overwrite only what the request supplies.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Mode:               SearchModeContent,
		TopK:               3,
		TextStandardWeight: 3,
		TextNgramWeight:    1,
		VectorWeight:       5.0,
		MetadataWeight:     3.0,
		Fuzziness:          FuzzinessAuto,
	}
}

// Validate checks every parameter against the engine limits. All
// violations wrap ErrInvalidInput so callers can classify them without
// matching message text.
func (p *SearchParams) Validate() error {
	if !p.Mode.Valid() {
		return fmt.Errorf("%w: search_mode must be content, metadata or hybrid, got %q", ErrInvalidInput, p.Mode)
	}
	if p.Mode == SearchModeContent && strings.TrimSpace(p.QueryText) == "" {
		return fmt.Errorf("%w: query_content is required for content search", ErrInvalidInput)
	}
	if p.Mode == SearchModeMetadata && strings.TrimSpace(p.QueryMetadata) == "" {
		return fmt.Errorf("%w: query_metadata is required for metadata search", ErrInvalidInput)
	}
	// Hybrid runs whichever side has a query and degrades to one side
	// when only one is supplied.
	if p.Mode == SearchModeHybrid &&
		strings.TrimSpace(p.QueryText) == "" && strings.TrimSpace(p.QueryMetadata) == "" {
		return fmt.Errorf("%w: hybrid search requires query_content or query_metadata", ErrInvalidInput)
	}
	if p.TopK < 1 || p.TopK > 100 {
		return fmt.Errorf("%w: top_k must be between 1 and 100, got %d", ErrInvalidInput, p.TopK)
	}
	if p.TextStandardWeight < 0 || p.TextStandardWeight > 10 {
		return fmt.Errorf("%w: text_standard must be between 0 and 10, got %g", ErrInvalidInput, p.TextStandardWeight)
	}
	if p.TextNgramWeight < 0 || p.TextNgramWeight > 10 {
		return fmt.Errorf("%w: text_ngram must be between 0 and 10, got %g", ErrInvalidInput, p.TextNgramWeight)
	}
	if p.VectorWeight < 0 || p.VectorWeight > 10 {
		return fmt.Errorf("%w: vector_weight must be between 0 and 10, got %g", ErrInvalidInput, p.VectorWeight)
	}
	if p.MetadataWeight < 0 || p.MetadataWeight > 10 {
		return fmt.Errorf("%w: metadata_weight must be between 0 and 10, got %g", ErrInvalidInput, p.MetadataWeight)
	}
	if !p.Fuzziness.Valid() {
		return fmt.Errorf("%w: fuzziness must be AUTO, 0, 1 or 2, got %q", ErrInvalidInput, p.Fuzziness)
	}
	if p.AmountMin != nil && *p.AmountMin < 0 {
		return fmt.Errorf("%w: min_amount must not be negative", ErrInvalidInput)
	}
	if p.AmountMax != nil && *p.AmountMax < 0 {
		return fmt.Errorf("%w: max_amount must not be negative", ErrInvalidInput)
	}
	if p.AmountMin != nil && p.AmountMax != nil && *p.AmountMin > *p.AmountMax {
		return fmt.Errorf("%w: min_amount exceeds max_amount", ErrInvalidInput)
	}
	if err := validateDate(p.DateStart, "date_start"); err != nil {
		return err
	}
	if err := validateDate(p.DateEnd, "date_end"); err != nil {
		return err
	}
	if p.DateStart != "" && p.DateEnd != "" && p.DateStart > p.DateEnd {
		return fmt.Errorf("%w: date_start exceeds date_end", ErrInvalidInput)
	}
	return nil
}

func validateDate(value, field string) error {
	if value == "" {
		return nil
	}
	if len(value) != 10 || value[4] != '-' || value[7] != '-' {
		return fmt.Errorf("%w: %s must be YYYY-MM-DD, got %q", ErrInvalidInput, field, value)
	}
	for i, r := range value {
		if i == 4 || i == 7 {
			continue
		}
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: %s must be YYYY-MM-DD, got %q", ErrInvalidInput, field, value)
		}
	}
	return nil
}

// PageHit is a single backend match before merging.
type PageHit struct {
	Score        float64             `json:"score"`
	ContractName string              `json:"contract_name"`
	PageID       int                 `json:"page_id"`
	Text         string              `json:"text,omitempty"`
	Highlights   map[string][]string `json:"highlight,omitempty"`
	MetadataInfo *ContractMetadata   `json:"metadata_info,omitempty"`
}

// ContentPage is one matching page inside a merged contract result.
type ContentPage struct {
	PageID int     `json:"page_id"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}

// MergedResult is a per-contract row of a hybrid search response.
type MergedResult struct {
	ContractName  string              `json:"contract_name"`
	ContentScore  float64             `json:"content_score"`
	MetadataScore float64             `json:"metadata_score"`
	CombinedScore float64             `json:"combined_score"`
	ContentPages  []ContentPage       `json:"content_pages,omitempty"`
	MetadataInfo  *ContractMetadata   `json:"metadata_info,omitempty"`
	Highlights    map[string][]string `json:"highlight,omitempty"`
}

// SearchResult is the outcome of any search mode. Content and metadata
// searches populate Pages; hybrid searches populate Merged.
type SearchResult struct {
	Mode   SearchMode      `json:"search_mode"`
	Pages  []*PageHit      `json:"results,omitempty"`
	Merged []*MergedResult `json:"merged_results,omitempty"`
	Took   time.Duration   `json:"-"`
}
