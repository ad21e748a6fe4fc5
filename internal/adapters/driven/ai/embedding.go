package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven"
)

// Ensure BGEEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*BGEEmbedding)(nil)

// embeddingBatchSize caps how many texts go into one API call.
const embeddingBatchSize = 32

// BGEEmbedding implements EmbeddingService against an OpenAI-compatible
// embeddings endpoint serving a bge-m3 class model.
type BGEEmbedding struct {
	apiKey     string
	model      string
	baseURL    string
	dimensions int
	client     *http.Client
}

// EmbeddingConfig holds embedding endpoint configuration.
type EmbeddingConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// DefaultEmbeddingConfig returns sensible defaults for a local bge-m3
// deployment.
func DefaultEmbeddingConfig(baseURL string) EmbeddingConfig {
	return EmbeddingConfig{
		BaseURL:    baseURL,
		Model:      "bge-m3",
		Dimensions: 768,
		Timeout:    60 * time.Second,
	}
}

// NewBGEEmbedding creates a new embedding service.
func NewBGEEmbedding(cfg EmbeddingConfig) (*BGEEmbedding, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("embedding base URL is required")
	}
	if cfg.Model == "" {
		cfg.Model = "bge-m3"
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 768
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &BGEEmbedding{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Embed generates embeddings for a batch of texts, one vector per
// input in order. Large batches are split to keep requests bounded.
func (e *BGEEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embeddingBatchSize {
		end := start + embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (e *BGEEmbedding) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.doRequest(ctx, embeddingRequest{Input: texts, Model: e.model})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, &domain.EmbeddingError{
			Model: e.model,
			Err:   fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts)),
		}
	}

	// Order by index so results match the inputs.
	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(embeddings) {
			return nil, &domain.EmbeddingError{
				Model: e.model,
				Err:   fmt.Errorf("embedding index %d out of range", d.Index),
			}
		}
		embeddings[d.Index] = d.Embedding
	}
	return embeddings, nil
}

// EmbedQuery generates a single embedding for a search query.
func (e *BGEEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, &domain.EmbeddingError{Model: e.model, Err: fmt.Errorf("no embedding returned")}
	}
	return embeddings[0], nil
}

// Dimensions returns the vector size this service produces.
func (e *BGEEmbedding) Dimensions() int {
	return e.dimensions
}

// Model returns the model identifier in use.
func (e *BGEEmbedding) Model() string {
	return e.model
}

// HealthCheck verifies the endpoint answers embedding requests.
func (e *BGEEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "health check")
	return err
}

// Close releases idle connections.
func (e *BGEEmbedding) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

func (e *BGEEmbedding) doRequest(ctx context.Context, reqBody embeddingRequest) (*embeddingResponse, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &domain.EmbeddingError{Model: e.model, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, &domain.EmbeddingError{Model: e.model, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &domain.EmbeddingError{Model: e.model, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.EmbeddingError{Model: e.model, Err: err}
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &domain.EmbeddingError{Model: e.model, Err: fmt.Errorf("parse response: %w", err)}
	}
	if parsed.Error != nil {
		return nil, &domain.EmbeddingError{
			Model: e.model,
			Err:   fmt.Errorf("%s (%s)", parsed.Error.Message, parsed.Error.Type),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.EmbeddingError{Model: e.model, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return &parsed, nil
}
