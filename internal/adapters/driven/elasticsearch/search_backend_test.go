package elasticsearch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven"
)

// roundTrip forces the body through JSON so assertions see exactly what
// the cluster would receive.
func roundTrip(t *testing.T, q driven.Query) map[string]any {
	t.Helper()
	raw, err := json.Marshal(buildSearchBody(q))
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func dig(t *testing.T, m map[string]any, keys ...string) map[string]any {
	t.Helper()
	for _, k := range keys {
		next, ok := m[k].(map[string]any)
		require.True(t, ok, "missing key %q", k)
		m = next
	}
	return m
}

func TestBuildSearchBody_LexicalQuery(t *testing.T) {
	body := roundTrip(t, driven.Query{
		MatchText: "运维服务",
		MatchFields: []driven.WeightedField{
			{Name: "text", Boost: 3},
			{Name: "text.ngram", Boost: 1},
		},
		Fuzziness:       domain.FuzzinessAuto,
		HighlightFields: []string{"text"},
		Size:            5,
	})

	assert.Equal(t, float64(5), body["size"])

	boolQuery := dig(t, body, "query", "bool")
	must, ok := boolQuery["must"].([]any)
	require.True(t, ok)
	require.Len(t, must, 1)

	mm := dig(t, must[0].(map[string]any), "multi_match")
	assert.Equal(t, "运维服务", mm["query"])
	assert.Equal(t, "best_fields", mm["type"])
	assert.Equal(t, "or", mm["operator"])
	assert.Equal(t, "AUTO", mm["fuzziness"])
	assert.Equal(t, []any{"text^3", "text.ngram^1"}, mm["fields"])

	_, hasFilter := boolQuery["filter"]
	assert.False(t, hasFilter)

	highlight := dig(t, body, "highlight", "fields")
	assert.Contains(t, highlight, "text")
}

func TestBuildSearchBody_VectorBoost(t *testing.T) {
	body := roundTrip(t, driven.Query{
		MatchText:   "运维",
		MatchFields: []driven.WeightedField{{Name: "text", Boost: 1}},
		Fuzziness:   domain.FuzzinessAuto,
		Vector: &driven.VectorBoost{
			Field:   "text_vector",
			Vector:  []float32{0.1, 0.2},
			Weight:  5.0,
			Neutral: 1.0,
		},
		Size: 3,
	})

	fs := dig(t, body, "query", "function_score")
	assert.Equal(t, "sum", fs["boost_mode"])
	assert.Equal(t, "sum", fs["score_mode"])

	functions, ok := fs["functions"].([]any)
	require.True(t, ok)
	require.Len(t, functions, 1)
	fn := functions[0].(map[string]any)
	assert.Equal(t, float64(5), fn["weight"])

	script := dig(t, fn, "script_score", "script")
	source, _ := script["source"].(string)
	assert.Contains(t, source, "cosineSimilarity(params.query_vector, 'text_vector')")
	assert.Contains(t, source, "doc['text_vector'].size() == 0 ? 1")

	params := dig(t, script, "params")
	assert.Len(t, params["query_vector"], 2)

	// The lexical clause survives inside the function_score.
	dig(t, fs, "query", "bool")
}

func TestBuildSearchBody_Filters(t *testing.T) {
	body := roundTrip(t, driven.Query{
		MatchText:   "银行",
		MatchFields: []driven.WeightedField{{Name: "document_metadata.party_a", Boost: 3}},
		Fuzziness:   domain.FuzzinessZero,
		TermFilters: []driven.TermFilter{{Field: "page_id", Value: 1}},
		RangeFilters: []driven.RangeFilter{
			{Field: "document_metadata.contract_amount", GTE: 10000.0, LTE: 500000.0},
			{Field: "document_metadata.signing_date", GTE: "2023-01-01"},
		},
		Size: 10,
	})

	boolQuery := dig(t, body, "query", "bool")
	filter, ok := boolQuery["filter"].([]any)
	require.True(t, ok)
	require.Len(t, filter, 3)

	term := dig(t, filter[0].(map[string]any), "term")
	assert.Equal(t, float64(1), term["page_id"])

	amount := dig(t, filter[1].(map[string]any), "range", "document_metadata.contract_amount")
	assert.Equal(t, float64(10000), amount["gte"])
	assert.Equal(t, float64(500000), amount["lte"])

	date := dig(t, filter[2].(map[string]any), "range", "document_metadata.signing_date")
	assert.Equal(t, "2023-01-01", date["gte"])
	_, hasLTE := date["lte"]
	assert.False(t, hasLTE)
}

func TestBuildSearchBody_NoMatchTextFallsBackToMatchAll(t *testing.T) {
	body := roundTrip(t, driven.Query{Size: 1})

	boolQuery := dig(t, body, "query", "bool")
	must := boolQuery["must"].([]any)
	require.Len(t, must, 1)
	_, ok := must[0].(map[string]any)["match_all"]
	assert.True(t, ok)
}

func TestDocID(t *testing.T) {
	assert.Equal(t, "运维合同_3", docID("运维合同", 3))
}

func TestPageDocRoundTrip(t *testing.T) {
	amount := 120000.0
	page := domain.Page{
		ContractName: "运维合同",
		PageID:       1,
		Text:         "第一页",
		TextVector:   []float32{0.1, 0.2},
		Metadata: &domain.ContractMetadata{
			PartyA:         "中国银行",
			ContractAmount: &amount,
			MetadataVector: []float32{0.3},
		},
	}

	got := toDoc(page).toPage()
	assert.Equal(t, page.ContractName, got.ContractName)
	assert.Equal(t, page.Text, got.Text)
	require.NotNil(t, got.Metadata)
	assert.Equal(t, "中国银行", got.Metadata.PartyA)
	require.NotNil(t, got.Metadata.ContractAmount)
	assert.Equal(t, amount, *got.Metadata.ContractAmount)
	// The stored form keeps the vector even though API responses drop it.
	assert.Equal(t, []float32{0.3}, got.Metadata.MetadataVector)
}
