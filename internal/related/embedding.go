package related

import (
	"context"
	"fmt"

	"github.com/TobiSchelling/newsdigest/internal/llm"
)

// EmbeddingModel vectorizes text with a remote embedding model.
type EmbeddingModel struct {
	embedder llm.Embedder
}

// NewEmbeddingModel wraps an embedder as a Model.
func NewEmbeddingModel(embedder llm.Embedder) *EmbeddingModel {
	return &EmbeddingModel{embedder: embedder}
}

func (m *EmbeddingModel) DocVector(ctx context.Context, text string) ([]float64, error) {
	vecs, err := m.DocVectors(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// DocVectors embeds all texts in one request.
func (m *EmbeddingModel) DocVectors(ctx context.Context, texts []string) ([][]float64, error) {
	vecs, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
	}
	return vecs, nil
}
