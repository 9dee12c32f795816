// Package server renders the reading surface: the day's news, one article
// with its related articles, an on-demand translation and a daily summary.
// It reads storage through the Store query operations only.
package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/newsdigest/internal/database"
	"github.com/TobiSchelling/newsdigest/internal/fetch"
	"github.com/TobiSchelling/newsdigest/internal/llm"
	"github.com/TobiSchelling/newsdigest/internal/related"
	"github.com/TobiSchelling/newsdigest/internal/textproc"
)

//go:embed templates/*.html
var templateFS embed.FS

var md = goldmark.New()

// Options wires the optional collaborators. A nil Related, Assistant or
// Extractor turns the matching feature into an "unavailable" message.
type Options struct {
	Related        *related.Engine
	RelatedOptions related.Options
	CandidatePool  int
	Assistant      *llm.Assistant
	Extractor      *fetch.Extractor
	TargetLanguage string
	Logger         *slog.Logger
}

// Server is the HTTP server for the digest pages.
type Server struct {
	store  database.Store
	opts   Options
	pages  map[string]*template.Template
	router chi.Router
	log    *slog.Logger
}

// New creates a new Server over store.
func New(store database.Store, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CandidatePool <= 0 {
		opts.CandidatePool = related.DefaultCandidates
	}
	if opts.TargetLanguage == "" {
		opts.TargetLanguage = "pt"
	}

	funcMap := template.FuncMap{
		"markdown":   renderMarkdown,
		"formatTime": func(t *time.Time) string { return t.UTC().Format("Jan 02, 2006 15:04 UTC") },
		"percent":    func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so "title" and "content" can be
	// redefined per page.
	pageNames := []string{"index.html", "article.html", "translate.html", "summary.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		store: store,
		opts:  opts,
		pages: pages,
		log:   opts.Logger.With("component", "server"),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/summary", s.handleSummary)
	r.Get("/article/{id}", s.handleArticle)
	r.Get("/article/{id}/translate", s.handleTranslate)
	s.router = r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	day, _ := database.ParseDay(r.URL.Query().Get("date"))

	data := dayData(day)
	items, err := s.store.ByDate(r.Context(), day)
	if err != nil {
		s.log.Error("listing news by date", "date", data["Date"], "err", err)
		data["Error"] = "News is temporarily unavailable."
	}
	data["Items"] = items

	s.render(w, "index.html", data)
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	item, ok := s.lookup(w, r)
	if !ok {
		return
	}

	matches, available := s.findRelated(r.Context(), *item)
	s.render(w, "article.html", map[string]any{
		"Item":               item,
		"Related":            matches,
		"RelatedUnavailable": !available,
	})
}

// findRelated compares the item against the recent pool. The second result
// is false when relatedness cannot be computed at all.
func (s *Server) findRelated(ctx context.Context, item database.NewsItem) ([]related.Match, bool) {
	if s.opts.Related == nil {
		return nil, false
	}
	pivot := textproc.Join(item.Title, item.Description, item.Content)
	if pivot == "" || !s.opts.Related.HasModel(ctx, pivot) {
		return nil, false
	}

	recent, err := s.store.Recent(ctx, s.opts.CandidatePool+1)
	if err != nil {
		s.log.Error("loading related candidates", "id", item.ID, "err", err)
		return nil, false
	}
	candidates := related.Candidates(recent, item.ID, s.opts.CandidatePool)
	return s.opts.Related.FindRelated(ctx, pivot, candidates, s.opts.RelatedOptions), true
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	item, ok := s.lookup(w, r)
	if !ok {
		return
	}

	data := map[string]any{"Item": item, "Language": s.opts.TargetLanguage}
	switch {
	case !s.opts.Assistant.Available():
		data["Unavailable"] = true
	default:
		text := textproc.Join(item.Description, item.Content)
		if s.opts.Extractor != nil {
			text = s.opts.Extractor.BestText(r.Context(), *item)
		}
		translation := s.opts.Assistant.Translate(r.Context(), text, s.opts.TargetLanguage)
		if llm.IsError(translation) || translation == "" {
			data["Unavailable"] = true
			data["Error"] = translation
		} else {
			data["Translation"] = translation
		}
	}

	s.render(w, "translate.html", data)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	day, _ := database.ParseDay(r.URL.Query().Get("date"))
	data := dayData(day)
	data["Count"] = 0

	items, err := s.store.ByDate(r.Context(), day)
	if err != nil {
		s.log.Error("listing news for summary", "date", data["Date"], "err", err)
		data["Unavailable"] = true
		s.render(w, "summary.html", data)
		return
	}
	data["Count"] = len(items)

	if len(items) > 0 {
		texts := make([]string, 0, len(items))
		for _, it := range items {
			texts = append(texts, textproc.Join(it.Title+".", it.Description))
		}
		summary := s.opts.Assistant.Summarize(r.Context(), texts, s.opts.TargetLanguage)
		if llm.IsError(summary) {
			data["Unavailable"] = true
			data["Error"] = summary
		} else {
			data["Summary"] = summary
		}
	}

	s.render(w, "summary.html", data)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*database.NewsItem, bool) {
	id := chi.URLParam(r, "id")
	item, err := s.store.ByID(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		http.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		s.log.Error("loading article", "id", id, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return item, true
}

func dayData(day time.Time) map[string]any {
	return map[string]any{
		"Date":    day.Format(database.DayLayout),
		"Display": database.FormatDayDisplay(day),
		"Prev":    day.AddDate(0, 0, -1).Format(database.DayLayout),
		"Next":    day.AddDate(0, 0, 1).Format(database.DayLayout),
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.log.Error("template not found", "name", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.log.Error("rendering template", "name", name, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve listens on port until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, handler http.Handler, port int, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "component", "server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
