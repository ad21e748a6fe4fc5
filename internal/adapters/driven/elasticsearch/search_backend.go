package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SearchBackend = (*SearchBackend)(nil)

// SearchBackend implements driven.SearchBackend using Elasticsearch.
type SearchBackend struct {
	client *elasticsearch.Client
	index  string
}

// Config holds Elasticsearch connection configuration.
type Config struct {
	// Addresses are the cluster endpoints (e.g. http://localhost:9200).
	Addresses []string

	// Index is the page index name.
	Index string

	Username string
	Password string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(address string) Config {
	return Config{
		Addresses: []string{address},
		Index:     "contracts_unified",
	}
}

// NewSearchBackend creates an Elasticsearch-backed SearchBackend.
func NewSearchBackend(cfg Config) (*SearchBackend, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, &domain.BackendError{Op: "connect", Err: err}
	}
	return &SearchBackend{client: client, index: cfg.Index}, nil
}

// pageDoc is the index representation of a page. It differs from the
// domain type in that the metadata vector is stored.
type pageDoc struct {
	ContractName string       `json:"contract_name"`
	PageID       int          `json:"page_id"`
	Text         string       `json:"text"`
	TextVector   []float32    `json:"text_vector,omitempty"`
	Metadata     *metadataDoc `json:"document_metadata,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type metadataDoc struct {
	PartyA             string    `json:"party_a,omitempty"`
	PartyB             string    `json:"party_b,omitempty"`
	ContractType       string    `json:"contract_type,omitempty"`
	ContractAmount     *float64  `json:"contract_amount,omitempty"`
	SigningDate        string    `json:"signing_date,omitempty"`
	ProjectDescription string    `json:"project_description,omitempty"`
	Positions          string    `json:"positions,omitempty"`
	PersonnelList      string    `json:"personnel_list,omitempty"`
	ExtractedAt        time.Time `json:"extracted_at,omitempty"`
	MetadataVector     []float32 `json:"metadata_vector,omitempty"`
}

func toDoc(p domain.Page) pageDoc {
	doc := pageDoc{
		ContractName: p.ContractName,
		PageID:       p.PageID,
		Text:         p.Text,
		TextVector:   p.TextVector,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.Metadata != nil {
		doc.Metadata = toMetadataDoc(p.Metadata)
	}
	return doc
}

func toMetadataDoc(m *domain.ContractMetadata) *metadataDoc {
	return &metadataDoc{
		PartyA:             m.PartyA,
		PartyB:             m.PartyB,
		ContractType:       m.ContractType,
		ContractAmount:     m.ContractAmount,
		SigningDate:        m.SigningDate,
		ProjectDescription: m.ProjectDescription,
		Positions:          m.Positions,
		PersonnelList:      m.PersonnelList,
		ExtractedAt:        m.ExtractedAt,
		MetadataVector:     m.MetadataVector,
	}
}

func (d pageDoc) toPage() domain.Page {
	p := domain.Page{
		ContractName: d.ContractName,
		PageID:       d.PageID,
		Text:         d.Text,
		TextVector:   d.TextVector,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.Metadata != nil {
		p.Metadata = &domain.ContractMetadata{
			PartyA:             d.Metadata.PartyA,
			PartyB:             d.Metadata.PartyB,
			ContractType:       d.Metadata.ContractType,
			ContractAmount:     d.Metadata.ContractAmount,
			SigningDate:        d.Metadata.SigningDate,
			ProjectDescription: d.Metadata.ProjectDescription,
			Positions:          d.Metadata.Positions,
			PersonnelList:      d.Metadata.PersonnelList,
			ExtractedAt:        d.Metadata.ExtractedAt,
			MetadataVector:     d.Metadata.MetadataVector,
		}
	}
	return p
}

func docID(contractName string, pageID int) string {
	return fmt.Sprintf("%s_%d", contractName, pageID)
}

// indexMapping defines the page index: keyword contract identity,
// full text with an ngram subfield for partial matches, and cosine
// dense vectors on both the page text and the metadata record.
const indexMapping = `{
  "settings": {
    "analysis": {
      "tokenizer": {
        "ngram_tokenizer": {
          "type": "ngram",
          "min_gram": 2,
          "max_gram": 3,
          "token_chars": ["letter", "digit"]
        }
      },
      "analyzer": {
        "ngram_analyzer": {
          "type": "custom",
          "tokenizer": "ngram_tokenizer",
          "filter": ["lowercase"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "contract_name": {"type": "keyword"},
      "page_id": {"type": "integer"},
      "text": {
        "type": "text",
        "fields": {
          "ngram": {
            "type": "text",
            "analyzer": "ngram_analyzer",
            "search_analyzer": "standard"
          }
        }
      },
      "text_vector": {
        "type": "dense_vector",
        "dims": 768,
        "index": true,
        "similarity": "cosine"
      },
      "document_metadata": {
        "properties": {
          "party_a": {"type": "text"},
          "party_b": {"type": "text"},
          "contract_type": {"type": "text"},
          "contract_amount": {"type": "double"},
          "signing_date": {"type": "date", "format": "yyyy-MM-dd"},
          "project_description": {"type": "text"},
          "positions": {"type": "text"},
          "personnel_list": {"type": "text"},
          "extracted_at": {"type": "date"},
          "metadata_vector": {
            "type": "dense_vector",
            "dims": 768,
            "index": true,
            "similarity": "cosine"
          }
        }
      },
      "created_at": {"type": "date"},
      "updated_at": {"type": "date"}
    }
  }
}`

// EnsureIndex creates the page index if it does not exist.
func (s *SearchBackend) EnsureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return &domain.BackendError{Op: "index exists", Err: err}
	}
	defer res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = s.client.Indices.Create(
		s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return &domain.BackendError{Op: "create index", Err: err}
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res)
	}
	return nil
}

// buildSearchBody translates a backend-independent query into the
// Elasticsearch DSL. The lexical clause and optional filters form a
// bool query; the vector clause is a function_score script so that
// lexical and semantic scores add up.
func buildSearchBody(q driven.Query) map[string]any {
	var must []any
	if q.MatchText != "" && len(q.MatchFields) > 0 {
		fields := make([]string, 0, len(q.MatchFields))
		for _, f := range q.MatchFields {
			fields = append(fields, fmt.Sprintf("%s^%g", f.Name, f.Boost))
		}
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":     q.MatchText,
				"fields":    fields,
				"type":      "best_fields",
				"operator":  "or",
				"fuzziness": string(q.Fuzziness),
			},
		})
	} else {
		must = append(must, map[string]any{"match_all": map[string]any{}})
	}

	var filter []any
	for _, t := range q.TermFilters {
		filter = append(filter, map[string]any{
			"term": map[string]any{t.Field: t.Value},
		})
	}
	for _, r := range q.RangeFilters {
		bounds := map[string]any{}
		if r.GTE != nil {
			bounds["gte"] = r.GTE
		}
		if r.LTE != nil {
			bounds["lte"] = r.LTE
		}
		filter = append(filter, map[string]any{
			"range": map[string]any{r.Field: bounds},
		})
	}

	boolQuery := map[string]any{"must": must}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	query := map[string]any{"bool": boolQuery}

	if q.Vector != nil {
		script := fmt.Sprintf(
			"doc['%s'].size() == 0 ? %g : cosineSimilarity(params.query_vector, '%s') + 1.0",
			q.Vector.Field, q.Vector.Neutral, q.Vector.Field,
		)
		query = map[string]any{
			"function_score": map[string]any{
				"query": query,
				"functions": []any{
					map[string]any{
						"script_score": map[string]any{
							"script": map[string]any{
								"source": script,
								"params": map[string]any{"query_vector": q.Vector.Vector},
							},
						},
						"weight": q.Vector.Weight,
					},
				},
				"score_mode": "sum",
				"boost_mode": "sum",
			},
		}
	}

	body := map[string]any{
		"size":  q.Size,
		"query": query,
	}
	if len(q.HighlightFields) > 0 {
		fields := map[string]any{}
		for _, f := range q.HighlightFields {
			fields[f] = map[string]any{}
		}
		body["highlight"] = map[string]any{"fields": fields}
	}
	return body
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score     float64             `json:"_score"`
			Source    pageDoc             `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a query and returns hits ordered by descending score.
func (s *SearchBackend) Search(ctx context.Context, q driven.Query) ([]driven.Hit, error) {
	body, err := json.Marshal(buildSearchBody(q))
	if err != nil {
		return nil, &domain.BackendError{Op: "encode query", Err: err}
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, &domain.BackendError{Op: "search", Err: err}
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("search", res)
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, &domain.BackendError{Op: "decode search response", Err: err}
	}

	hits := make([]driven.Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, driven.Hit{
			Score:      h.Score,
			Page:       h.Source.toPage(),
			Highlights: h.Highlight,
		})
	}
	return hits, nil
}

// IndexPages stores the pages of one contract, replacing any previous
// pages for the same contract name.
func (s *SearchBackend) IndexPages(ctx context.Context, pages []domain.Page) error {
	if len(pages) == 0 {
		return nil
	}
	contractName := pages[0].ContractName

	if _, err := s.deleteByContract(ctx, contractName); err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, p := range pages {
		action := map[string]any{
			"index": map[string]any{"_id": docID(p.ContractName, p.PageID)},
		}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return &domain.BackendError{Op: "encode bulk action", Err: err}
		}
		if err := json.NewEncoder(&buf).Encode(toDoc(p)); err != nil {
			return &domain.BackendError{Op: "encode bulk document", Err: err}
		}
	}

	res, err := s.client.Bulk(
		&buf,
		s.client.Bulk.WithContext(ctx),
		s.client.Bulk.WithIndex(s.index),
		s.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return &domain.BackendError{Op: "bulk index", Err: err}
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("bulk index", res)
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return &domain.BackendError{Op: "decode bulk response", Err: err}
	}
	if bulkResp.Errors {
		return &domain.BackendError{Op: "bulk index", Err: fmt.Errorf("one or more pages failed to index")}
	}
	return nil
}

// UpdateMetadata attaches extracted metadata to the first page of a
// contract.
func (s *SearchBackend) UpdateMetadata(ctx context.Context, contractName string, meta *domain.ContractMetadata) error {
	update := map[string]any{
		"doc": map[string]any{
			"document_metadata": toMetadataDoc(meta),
			"updated_at":        time.Now(),
		},
	}
	body, err := json.Marshal(update)
	if err != nil {
		return &domain.BackendError{Op: "encode metadata update", Err: err}
	}

	res, err := s.client.Update(
		s.index,
		docID(contractName, 1),
		bytes.NewReader(body),
		s.client.Update.WithContext(ctx),
		s.client.Update.WithRefresh("true"),
	)
	if err != nil {
		return &domain.BackendError{Op: "update metadata", Err: err}
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return domain.ErrNotFound
	}
	if res.IsError() {
		return responseError("update metadata", res)
	}
	return nil
}

// DeleteByContract removes every page of a contract and reports how
// many were deleted.
func (s *SearchBackend) DeleteByContract(ctx context.Context, contractName string) (int, error) {
	deleted, err := s.deleteByContract(ctx, contractName)
	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, domain.ErrNotFound
	}
	return deleted, nil
}

func (s *SearchBackend) deleteByContract(ctx context.Context, contractName string) (int, error) {
	query := map[string]any{
		"query": map[string]any{
			"term": map[string]any{"contract_name": contractName},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return 0, &domain.BackendError{Op: "encode delete query", Err: err}
	}

	res, err := s.client.DeleteByQuery(
		[]string{s.index},
		bytes.NewReader(body),
		s.client.DeleteByQuery.WithContext(ctx),
		s.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return 0, &domain.BackendError{Op: "delete by contract", Err: err}
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, responseError("delete by contract", res)
	}

	var parsed struct {
		Deleted int `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, &domain.BackendError{Op: "decode delete response", Err: err}
	}
	return parsed.Deleted, nil
}

// DeleteAll wipes the index.
func (s *SearchBackend) DeleteAll(ctx context.Context) error {
	body := strings.NewReader(`{"query": {"match_all": {}}}`)
	res, err := s.client.DeleteByQuery(
		[]string{s.index},
		body,
		s.client.DeleteByQuery.WithContext(ctx),
		s.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return &domain.BackendError{Op: "clear index", Err: err}
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("clear index", res)
	}
	return nil
}

// ListContracts aggregates one summary per contract: page counts from
// the bucket sizes, metadata from each contract's first page.
func (s *SearchBackend) ListContracts(ctx context.Context) ([]domain.ContractSummary, error) {
	body := strings.NewReader(`{
		"size": 0,
		"aggs": {
			"contracts": {
				"terms": {"field": "contract_name", "size": 1000},
				"aggs": {
					"first_page": {
						"top_hits": {
							"size": 1,
							"sort": [{"page_id": {"order": "asc"}}],
							"_source": ["contract_name", "page_id", "document_metadata", "created_at"]
						}
					}
				}
			}
		}
	}`)

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(body),
	)
	if err != nil {
		return nil, &domain.BackendError{Op: "list contracts", Err: err}
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("list contracts", res)
	}

	var parsed struct {
		Aggregations struct {
			Contracts struct {
				Buckets []struct {
					Key       string `json:"key"`
					DocCount  int    `json:"doc_count"`
					FirstPage struct {
						Hits struct {
							Hits []struct {
								Source pageDoc `json:"_source"`
							} `json:"hits"`
						} `json:"hits"`
					} `json:"first_page"`
				} `json:"buckets"`
			} `json:"contracts"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, &domain.BackendError{Op: "decode contract list", Err: err}
	}

	summaries := make([]domain.ContractSummary, 0, len(parsed.Aggregations.Contracts.Buckets))
	for _, b := range parsed.Aggregations.Contracts.Buckets {
		summary := domain.ContractSummary{
			ContractName:   b.Key,
			PageCount:      b.DocCount,
			MetadataStatus: domain.MetadataStatusNotFound,
		}
		if hits := b.FirstPage.Hits.Hits; len(hits) > 0 {
			page := hits[0].Source.toPage()
			summary.UploadTime = page.CreatedAt
			summary.HasMetadata = page.Metadata.HasContent()
			summary.MetadataStatus = page.Metadata.Status()
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ContractName < summaries[j].ContractName
	})
	return summaries, nil
}

// GetContractPages returns every page of a contract in page order.
func (s *SearchBackend) GetContractPages(ctx context.Context, contractName string) ([]domain.Page, error) {
	query := map[string]any{
		"size": 1000,
		"query": map[string]any{
			"term": map[string]any{"contract_name": contractName},
		},
		"sort": []any{map[string]any{"page_id": map[string]any{"order": "asc"}}},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, &domain.BackendError{Op: "encode pages query", Err: err}
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, &domain.BackendError{Op: "get contract pages", Err: err}
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("get contract pages", res)
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, &domain.BackendError{Op: "decode contract pages", Err: err}
	}
	if len(parsed.Hits.Hits) == 0 {
		return nil, domain.ErrNotFound
	}

	pages := make([]domain.Page, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		pages = append(pages, h.Source.toPage())
	}
	return pages, nil
}

// HealthCheck verifies the cluster is reachable.
func (s *SearchBackend) HealthCheck(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return &domain.BackendError{Op: "ping", Err: err}
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("ping", res)
	}
	return nil
}

// Info reports cluster state for status endpoints.
func (s *SearchBackend) Info(ctx context.Context) (domain.BackendInfo, error) {
	res, err := s.client.Cluster.Health(s.client.Cluster.Health.WithContext(ctx))
	if err != nil {
		return domain.BackendInfo{}, &domain.BackendError{Op: "cluster health", Err: err}
	}
	defer res.Body.Close()
	if res.IsError() {
		return domain.BackendInfo{}, responseError("cluster health", res)
	}

	var health struct {
		ClusterName   string `json:"cluster_name"`
		Status        string `json:"status"`
		NumberOfNodes int    `json:"number_of_nodes"`
		ActiveShards  int    `json:"active_shards"`
	}
	if err := json.NewDecoder(res.Body).Decode(&health); err != nil {
		return domain.BackendInfo{}, &domain.BackendError{Op: "decode cluster health", Err: err}
	}
	return domain.BackendInfo{
		ClusterName:   health.ClusterName,
		Status:        health.Status,
		NumberOfNodes: health.NumberOfNodes,
		ActiveShards:  health.ActiveShards,
		IndexName:     s.index,
	}, nil
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(res.Body)
	return &domain.BackendError{Op: op, Err: fmt.Errorf("%s: %s", res.Status(), string(body))}
}
