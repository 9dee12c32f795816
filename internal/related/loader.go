package related

import (
	"context"
	"fmt"

	"github.com/TobiSchelling/newsdigest/internal/config"
	"github.com/TobiSchelling/newsdigest/internal/langdetect"
	"github.com/TobiSchelling/newsdigest/internal/llm"
)

// ConfigLoader loads models as described by the related.models config
// section: a .vec file when one is set, otherwise an Ollama embedding model.
type ConfigLoader struct {
	models    map[string]config.LanguageModel
	ollamaURL string
}

// NewConfigLoader creates a loader over the per-language model settings.
func NewConfigLoader(models map[string]config.LanguageModel, ollamaURL string) *ConfigLoader {
	return &ConfigLoader{models: models, ollamaURL: ollamaURL}
}

func (l *ConfigLoader) Load(_ context.Context, lang langdetect.Language) (Model, error) {
	mc, ok := l.models[string(lang)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", lang, ErrNoModel)
	}
	switch {
	case mc.Vectors != "":
		return LoadVectorFile(mc.Vectors, mc.MaxWords)
	case mc.EmbeddingModel != "":
		return NewEmbeddingModel(llm.NewOllamaEmbedder(mc.EmbeddingModel, l.ollamaURL)), nil
	default:
		return nil, fmt.Errorf("%s: %w", lang, ErrNoModel)
	}
}
