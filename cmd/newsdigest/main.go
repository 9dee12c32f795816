package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/newsdigest/internal/collect"
	"github.com/TobiSchelling/newsdigest/internal/config"
	"github.com/TobiSchelling/newsdigest/internal/database"
	"github.com/TobiSchelling/newsdigest/internal/fetch"
	"github.com/TobiSchelling/newsdigest/internal/langdetect"
	"github.com/TobiSchelling/newsdigest/internal/llm"
	"github.com/TobiSchelling/newsdigest/internal/logging"
	"github.com/TobiSchelling/newsdigest/internal/related"
	"github.com/TobiSchelling/newsdigest/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "newsdigest",
	Short:   "Collect news from several providers and read it by day",
	Long:    "newsdigest polls news APIs and feeds, stores deduplicated items and serves a daily digest with related articles, translations and summaries.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			logger = logging.New("info")
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger = logging.New(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(relatedCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("newsdigest", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/newsdigest/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds, storage and models; API keys come from the environment.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show storage engine and item counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := newSelector().Connect(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		total, err := store.Count(ctx)
		if err != nil {
			return fmt.Errorf("counting items: %w", err)
		}
		today, _ := database.ParseDay("")
		todays, err := store.ByDate(ctx, today)
		if err != nil {
			return fmt.Errorf("listing today's items: %w", err)
		}

		fmt.Printf("Today: %s\n\n", database.GetToday())
		fmt.Println("Storage:")
		fmt.Printf("  Engine: %s\n", store.Kind())
		if lite, ok := store.(*database.SQLite); ok {
			fmt.Printf("  Path: %s\n", lite.Path())
		}
		fmt.Println("\nItems:")
		fmt.Printf("  Total stored: %d\n", total)
		fmt.Printf("  Published today (first page): %d\n", len(todays))
		fmt.Println("\nProviders:")
		for _, src := range collect.BuildSources(cfg, logging.Discard()) {
			fmt.Printf("  %s: enabled\n", src.Tag())
		}
		return nil
	},
}

// --- collect command ---

var collectOnce bool

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run the collectors (one cycle with --once, else until interrupted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		sup := newSupervisor()
		if !collectOnce {
			return sup.Run(ctx)
		}

		results, err := sup.CollectOnce(ctx)
		fmt.Println("Collection complete:")
		for _, r := range results {
			if r == nil {
				continue
			}
			fmt.Printf("  %s: %d found, %d new, %d duplicates, %d failed\n",
				r.Provider, r.TotalFound, r.NewArticles, r.Duplicates, r.Failed)
		}
		return err
	},
}

func init() {
	collectCmd.Flags().BoolVar(&collectOnce, "once", false, "Run a single cycle per provider and exit")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the digest web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()
		return serve(ctx, newSelector())
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// --- run command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the collectors and the web server together",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		selector := newSelector()
		sources := collect.BuildSources(cfg, logger)

		g, ctx := errgroup.WithContext(ctx)
		if len(sources) > 0 {
			g.Go(func() error {
				return collect.NewSupervisor(selector, sources, cfg.Collection.Interval, logger).Run(ctx)
			})
		} else {
			logger.Warn("no news sources enabled; serving stored items only")
		}
		g.Go(func() error { return serve(ctx, selector) })
		return g.Wait()
	},
}

func init() {
	runCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// --- related command ---

var (
	relatedThreshold float64
	relatedLimit     int
)

var relatedCmd = &cobra.Command{
	Use:   "related <text>",
	Short: "List stored items related to a text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := newSelector().Connect(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		candidates, err := store.Recent(ctx, cfg.Related.Candidates)
		if err != nil {
			return fmt.Errorf("loading candidates: %w", err)
		}

		opts := relatedOptions()
		if cmd.Flags().Changed("threshold") {
			opts.Threshold = relatedThreshold
		}
		if cmd.Flags().Changed("limit") {
			opts.Limit = relatedLimit
		}

		pivot := strings.Join(args, " ")
		engine := newRelatedEngine()
		if !engine.HasModel(ctx, pivot) {
			fmt.Println("Related articles unavailable: no model for this language.")
			return nil
		}

		matches := engine.FindRelated(ctx, pivot, candidates, opts)
		if len(matches) == 0 {
			fmt.Println("No related articles found.")
			return nil
		}
		for _, m := range matches {
			fmt.Printf("  %.3f  %s\n         %s\n", m.Score, m.Item.Title, m.Item.URL)
		}
		return nil
	},
}

func init() {
	relatedCmd.Flags().Float64Var(&relatedThreshold, "threshold", related.DefaultThreshold, "Minimum similarity in [0,1]")
	relatedCmd.Flags().IntVar(&relatedLimit, "limit", related.DefaultLimit, "Maximum number of results")
}

// --- wiring ---

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newSelector() *database.Selector {
	return database.NewSelector(cfg.DatabaseConfig(), logger)
}

func newSupervisor() *collect.Supervisor {
	return collect.NewSupervisor(newSelector(), collect.BuildSources(cfg, logger), cfg.Collection.Interval, logger)
}

func newRelatedEngine() *related.Engine {
	detector := langdetect.New(langdetect.Language(cfg.Related.DefaultLanguage))
	loader := related.NewConfigLoader(cfg.Related.Models, cfg.Summarization.OllamaURL)
	return related.NewEngine(detector, related.NewModelCache(loader, logger), cfg.Related.Fields, logger)
}

func relatedOptions() related.Options {
	return related.Options{Threshold: cfg.Related.Threshold, Limit: cfg.Related.Limit}
}

func serve(ctx context.Context, selector *database.Selector) error {
	store, err := selector.Connect(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	srv, err := server.New(store, server.Options{
		Related:        newRelatedEngine(),
		RelatedOptions: relatedOptions(),
		CandidatePool:  cfg.Related.Candidates,
		Assistant:      llm.NewAssistant(llm.CreateProvider(cfg.Summarization, logger), cfg.Summarization.MaxTokens, logger),
		Extractor:      fetch.NewExtractor(cfg.Collection.Timeout, logger),
		TargetLanguage: cfg.Summarization.TargetLanguage,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}
	fmt.Printf("Starting server at http://localhost:%d\n", port)
	fmt.Println("Press Ctrl+C to stop")
	if err := server.Serve(ctx, srv.Handler(), port, logger); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
