package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/newsgen/internal/config"
	"github.com/TobiSchelling/newsgen/internal/database"
	"github.com/TobiSchelling/newsgen/internal/keywords"
	"github.com/TobiSchelling/newsgen/internal/llm"
	"github.com/TobiSchelling/newsgen/internal/news"
	"github.com/TobiSchelling/newsgen/internal/pipeline"
	"github.com/TobiSchelling/newsgen/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	var be *llm.BackendError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, pipeline.ErrExtractionEmpty):
		return 2
	case errors.Is(err, news.ErrWrite):
		return 3
	case errors.As(err, &be) && be.Kind == llm.KindUnavailable:
		return 4
	case errors.As(err, &be) && be.Kind == llm.KindMalformed:
		return 5
	default:
		return 1
	}
}

var rootCmd = &cobra.Command{
	Use:          "newsgen",
	Short:        "Keyword-grounded news generation",
	Long:         "newsgen turns short event descriptions into a news article and a headline that covers the event's keywords.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging("info")

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		// API keys may live in a local .env file
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Msg("Could not read .env")
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		setupLogging(cfg.Logging.Level)
		if path != "" {
			log.Debug().Str("path", path).Msg("Config loaded")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("newsgen", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/newsgen/",
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
		fmt.Println("Edit it to configure the model backends, feeds, and publishing.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend and history status",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := newProvider()
		ready := "not reachable"
		if provider.IsConfigured() {
			ready = "ready"
		}

		fmt.Printf("Today: %s\n\n", database.GetToday())
		fmt.Println("Backends:")
		fmt.Printf("  Generation: %s (%s, %s)\n", cfg.Generation.Provider, provider.DefaultModel(), ready)
		fmt.Printf("  Summarization: %s (%s)\n", cfg.Summarization.Backend, cfg.Summarization.Model)
		fmt.Println("\nKeywords:")
		fmt.Printf("  Language: %s, count: %d\n", cfg.Keywords.Language, cfg.Keywords.Count)
		fmt.Printf("  Stopword lists: %s\n", strings.Join(keywords.Languages(), ", "))
		fmt.Printf("  Coverage threshold: %.2f\n", cfg.Quality.Threshold)

		if !cfg.Storage.Enabled {
			fmt.Println("\nHistory: disabled")
			return nil
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}
		fmt.Println("\nHistory:")
		fmt.Printf("  Items: %d\n", stats.Items)
		fmt.Printf("  Repaired titles: %d\n", stats.Repaired)
		fmt.Printf("  Keyword fallback titles: %d\n", stats.FallbackTitles)
		fmt.Printf("  Average title coverage: %.2f\n", stats.AvgCoverage)
		fmt.Printf("  Failed runs: %d\n", stats.FailedRuns)
		fmt.Printf("  Published: %d\n", stats.Published)
		fmt.Printf("  Days with items: %d\n", stats.Days)
		return nil
	},
}

// --- history command ---

var (
	historyLimit  int
	historyFailed bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if historyFailed {
			runs, err := db.ListFailedRuns(historyLimit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No failed runs.")
				return nil
			}
			for _, r := range runs {
				fmt.Printf("  %s  %-20s %s\n", shortID(r.RunID), r.State, r.Reason)
			}
			return nil
		}

		items, err := db.ListItems(historyLimit)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No items yet. Generate one with: newsgen generate --input event.txt --output news.json")
			return nil
		}
		for _, it := range items {
			mark := " "
			if it.Repaired {
				mark = "*"
			}
			fmt.Printf("  [%d] %s %s %3.0f%% %s\n", it.ID, it.Day, mark, it.Coverage*100, it.Title)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to list")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "List aborted runs instead of items")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local archive web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(cmd.Context(), db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

func openDB() (*database.DB, error) {
	return database.Open(database.DefaultPath(cfg.GetDataDir()))
}

// openHistory opens the database when storage is enabled. A nil DB disables
// history for the caller; generation still runs when the store is unusable.
func openHistory() *database.DB {
	if !cfg.Storage.Enabled {
		return nil
	}
	db, err := openDB()
	if err != nil {
		log.Warn().Err(err).Msg("Run history unavailable, continuing without it")
		return nil
	}
	return db
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
