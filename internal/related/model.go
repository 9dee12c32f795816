// Package related finds stored news items that talk about the same thing as
// a pivot text, comparing document vectors from one per-language model.
package related

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/TobiSchelling/newsdigest/internal/langdetect"
)

// ErrNoModel is returned by a Loader when no model is configured for a
// language.
var ErrNoModel = errors.New("no vector model for language")

// Model maps text to a document vector. Vectors from one Model are
// comparable with each other only.
type Model interface {
	DocVector(ctx context.Context, text string) ([]float64, error)
}

// BatchModel is implemented by models that vectorize many texts in one call.
type BatchModel interface {
	Model
	DocVectors(ctx context.Context, texts []string) ([][]float64, error)
}

// Loader produces the model for one language.
type Loader interface {
	Load(ctx context.Context, lang langdetect.Language) (Model, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, lang langdetect.Language) (Model, error)

func (f LoaderFunc) Load(ctx context.Context, lang langdetect.Language) (Model, error) {
	return f(ctx, lang)
}

// ModelCache loads each language's model at most once per process and keeps
// it for the process lifetime. Concurrent first requests for one language
// wait for a single load. Failed loads are not cached: the next request
// tries again.
type ModelCache struct {
	loader Loader
	log    *slog.Logger

	mu    sync.Mutex
	slots map[langdetect.Language]*slot
}

type slot struct {
	mu    sync.Mutex
	model Model
}

// NewModelCache creates an empty cache over loader.
func NewModelCache(loader Loader, log *slog.Logger) *ModelCache {
	return &ModelCache{
		loader: loader,
		log:    log.With("component", "related"),
		slots:  make(map[langdetect.Language]*slot),
	}
}

// Get returns the model for lang, loading it on first use. The boolean is
// false when no model could be obtained.
func (c *ModelCache) Get(ctx context.Context, lang langdetect.Language) (Model, bool) {
	c.mu.Lock()
	s, ok := c.slots[lang]
	if !ok {
		s = &slot{}
		c.slots[lang] = s
	}
	c.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model != nil {
		return s.model, true
	}

	m, err := c.loader.Load(ctx, lang)
	if err != nil {
		if errors.Is(err, ErrNoModel) {
			c.log.Debug("no model configured", "lang", lang)
		} else {
			c.log.Warn("model load failed", "lang", lang, "err", err)
		}
		return nil, false
	}
	c.log.Info("model loaded", "lang", lang)
	s.model = m
	return m, true
}

// Loaded reports the languages whose model is resident.
func (c *ModelCache) Loaded() []langdetect.Language {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []langdetect.Language
	for lang, s := range c.slots {
		s.mu.Lock()
		if s.model != nil {
			out = append(out, lang)
		}
		s.mu.Unlock()
	}
	return out
}
