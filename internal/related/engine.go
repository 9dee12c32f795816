package related

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/TobiSchelling/newsdigest/internal/database"
	"github.com/TobiSchelling/newsdigest/internal/langdetect"
	"github.com/TobiSchelling/newsdigest/internal/textproc"
)

const (
	DefaultThreshold  = 0.7
	DefaultLimit      = 3
	DefaultCandidates = 50
)

// DefaultFields are the item fields compared against the pivot.
var DefaultFields = []string{"title", "description"}

// Options bound one FindRelated call. A non-positive Limit means DefaultLimit.
type Options struct {
	Threshold float64
	Limit     int
}

// Match is a candidate that cleared the threshold.
type Match struct {
	Item  database.NewsItem
	Score float64
}

// Engine scores candidates against a pivot text within the pivot's language
// model. It holds no per-call state and is safe for concurrent use.
type Engine struct {
	detector *langdetect.Detector
	models   *ModelCache
	fields   []string
	log      *slog.Logger
}

// NewEngine creates an engine. Empty fields means DefaultFields.
func NewEngine(detector *langdetect.Detector, models *ModelCache, fields []string, log *slog.Logger) *Engine {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	return &Engine{detector: detector, models: models, fields: fields, log: log.With("component", "related")}
}

// FindRelated returns the candidates whose similarity to pivot is at least
// opts.Threshold, best first, at most opts.Limit. Equal scores keep the
// candidates' input order. It never fails: an empty pivot, a language
// without a model or a vectorization error all yield no matches. The caller
// excludes the pivot's own item from candidates.
func (e *Engine) FindRelated(ctx context.Context, pivot string, candidates []database.NewsItem, opts Options) []Match {
	if strings.TrimSpace(pivot) == "" || len(candidates) == 0 {
		return nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	lang := e.detector.Detect(pivot)
	model, ok := e.models.Get(ctx, lang)
	if !ok {
		return nil
	}

	pivotVec, err := model.DocVector(ctx, pivot)
	if err != nil {
		e.log.Warn("pivot vectorization failed", "lang", lang, "err", err)
		return nil
	}

	kept := make([]database.NewsItem, 0, len(candidates))
	texts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		text := e.comparisonText(c)
		if text == "" {
			continue
		}
		kept = append(kept, c)
		texts = append(texts, text)
	}
	if len(kept) == 0 {
		return nil
	}

	vecs, err := docVectors(ctx, model, texts)
	if err != nil {
		e.log.Warn("candidate vectorization failed", "lang", lang, "err", err)
		return nil
	}

	var matches []Match
	for i, v := range vecs {
		score := Similarity(pivotVec, v)
		if score >= opts.Threshold {
			matches = append(matches, Match{Item: kept[i], Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// HasModel reports whether a model is available for text's language,
// loading it if needed.
func (e *Engine) HasModel(ctx context.Context, text string) bool {
	_, ok := e.models.Get(ctx, e.detector.Detect(text))
	return ok
}

func (e *Engine) comparisonText(item database.NewsItem) string {
	parts := make([]string, 0, len(e.fields))
	for _, f := range e.fields {
		switch f {
		case "title":
			parts = append(parts, item.Title)
		case "description":
			parts = append(parts, item.Description)
		case "content":
			parts = append(parts, item.Content)
		}
	}
	return textproc.Join(parts...)
}

func docVectors(ctx context.Context, model Model, texts []string) ([][]float64, error) {
	if bm, ok := model.(BatchModel); ok {
		return bm.DocVectors(ctx, texts)
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := model.DocVector(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Similarity is the cosine of a and b clamped to [0,1]. Zero vectors and
// mismatched dimensions score 0.
func Similarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	s := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(0, math.Min(1, s))
}

// Items projects matches to their items.
func Items(matches []Match) []database.NewsItem {
	out := make([]database.NewsItem, len(matches))
	for i, m := range matches {
		out[i] = m.Item
	}
	return out
}

// Candidates drops the item with excludeID and caps the pool at max.
func Candidates(items []database.NewsItem, excludeID string, max int) []database.NewsItem {
	out := make([]database.NewsItem, 0, len(items))
	for _, it := range items {
		if it.ID == excludeID {
			continue
		}
		if max > 0 && len(out) >= max {
			break
		}
		out = append(out, it)
	}
	return out
}
