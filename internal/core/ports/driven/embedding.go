package driven

import "context"

// EmbeddingService generates dense vectors for indexing and querying.
type EmbeddingService interface {
	// Embed generates embeddings for a batch of texts, one vector per
	// input in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery generates a single embedding for a search query.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	// Dimensions returns the vector size this service produces.
	Dimensions() int
	// Model returns the model identifier in use.
	Model() string
	// HealthCheck verifies the service is reachable.
	HealthCheck(ctx context.Context) error
	// Close releases any resources held by the service.
	Close() error
}
