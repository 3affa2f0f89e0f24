package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/newsgen/internal/batch"
	"github.com/TobiSchelling/newsgen/internal/collect"
	"github.com/TobiSchelling/newsgen/internal/config"
	"github.com/TobiSchelling/newsgen/internal/fetch"
	"github.com/TobiSchelling/newsgen/internal/keywords"
	"github.com/TobiSchelling/newsgen/internal/llm"
	"github.com/TobiSchelling/newsgen/internal/news"
	"github.com/TobiSchelling/newsgen/internal/pipeline"
	"github.com/TobiSchelling/newsgen/internal/publish"
	"github.com/TobiSchelling/newsgen/internal/scheduler"
)

// Headlines are sampled cooler than articles.
const titleTemperature = 0.3

type genFlags struct {
	lang         string
	numKeywords  int
	genModel     string
	temperature  float64
	numPredict   int
	threshold    float64
	withKeywords bool
	publish      bool
}

func (f *genFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.lang, "lang", "ru", "Language of analysis and generation")
	cmd.Flags().IntVar(&f.numKeywords, "num-keywords", 6, "Number of keywords")
	cmd.Flags().StringVar(&f.genModel, "gen-model", "", "Model for article generation (default from config)")
	cmd.Flags().Float64Var(&f.temperature, "temperature", 0.7, "Article sampling temperature, 0.0 - 1.0")
	cmd.Flags().IntVar(&f.numPredict, "num-predict", 1000, "Maximum article length (tokens)")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0.8, "Title keyword coverage below which the title is repaired")
	cmd.Flags().BoolVar(&f.withKeywords, "with-keywords", false, "Include the keywords in the output JSON")
	cmd.Flags().BoolVar(&f.publish, "publish", false, "Send the result to the configured Telegram chat")
}

// options applies the flags the user set on top of the config values.
func (f *genFlags) options(cmd *cobra.Command) pipeline.Options {
	opts := pipeline.OptionsFromConfig(cfg)
	changed := cmd.Flags().Changed
	if changed("lang") {
		opts.Language = f.lang
	}
	if changed("num-keywords") {
		opts.KeywordCount = f.numKeywords
	}
	if changed("temperature") {
		opts.Temperature = f.temperature
	}
	if changed("num-predict") {
		opts.MaxTokens = f.numPredict
	}
	if changed("threshold") {
		opts.Threshold = f.threshold
	}
	if f.withKeywords {
		opts.IncludeKeywords = true
	}
	return opts
}

// newPipeline builds the backends and the pipeline for opts.
func (f *genFlags) newPipeline(opts pipeline.Options) (*pipeline.Pipeline, error) {
	provider := newProvider()
	opts.ArticleModel = provider.DefaultModel()
	if f.genModel != "" {
		opts.ArticleModel = f.genModel
	}

	summ, summaryModel, err := newSummarizer(provider)
	if err != nil {
		return nil, err
	}
	opts.SummaryModel = summaryModel

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return pipeline.New(opts, keywords.New(), provider, summ), nil
}

func (f *genFlags) publisher() (publish.Publisher, error) {
	tg := cfg.Publish.Telegram
	if !f.publish && !tg.Enabled {
		return nil, nil
	}
	return publish.NewTelegram(tg.TokenEnv, tg.ChatID)
}

func newProvider() llm.Provider {
	g := cfg.Generation
	return llm.CreateProvider(g.Provider, g.Model, g.OllamaURL, g.OpenAIModel, g.OpenAIBaseURL, g.APIKeyEnv, g.Timeout)
}

// newSummarizer returns the headline backend and the model name to request
// from it. The Hugging Face backend keeps its own model.
func newSummarizer(gen llm.Provider) (llm.Summarizer, string, error) {
	s := cfg.Summarization
	switch strings.ToLower(s.Backend) {
	case "", "huggingface":
		return llm.NewHFSummarizer(s.Model, s.BaseURL, s.TokenEnv, cfg.Generation.Timeout), "", nil
	case "ollama", "generator":
		return llm.NewGeneratorSummarizer(gen, titleTemperature), gen.DefaultModel(), nil
	default:
		return nil, "", fmt.Errorf("unknown summarization backend %q", s.Backend)
	}
}

// --- generate command ---

var (
	gen       genFlags
	inputPath string
	inputURL  string
	output    string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a news item from one event description",
	Example: `  newsgen generate --input event.txt --output news.json
  newsgen generate --url https://example.com/story --output news.json --lang en`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		text, sourceURL, err := readEvent(ctx, inputPath, inputURL)
		if err != nil {
			return err
		}

		opts := gen.options(cmd)
		pipe, err := gen.newPipeline(opts)
		if err != nil {
			return err
		}
		pub, err := gen.publisher()
		if err != nil {
			return err
		}

		db := openHistory()
		if db != nil {
			defer db.Close()
		}

		res, err := pipe.Run(ctx, pipeline.Event{Text: text, SourceURL: sourceURL})
		if err != nil {
			if serr := batch.SaveFailure(db, res, err); serr != nil {
				log.Warn().Err(serr).Msg("Failed to store aborted run")
			}
			return err
		}

		if err := news.WriteFile(output, *res.Record); err != nil {
			return err
		}

		itemID, err := batch.SaveResult(db, res, pipe.Options().ArticleModel, absPath(output))
		if err != nil {
			log.Warn().Err(err).Msg("Failed to store item")
		}

		if pub != nil {
			msgID, err := pub.Publish(ctx, *res.Record)
			if err != nil {
				log.Warn().Err(err).Msg("Publishing failed")
			} else if db != nil && itemID != 0 {
				if err := db.MarkPublished(itemID, publish.ChannelTelegram, msgID); err != nil {
					log.Warn().Err(err).Msg("Failed to mark published")
				}
			}
		}

		fmt.Printf("Keywords: %s\n", strings.Join(res.Keywords, ", "))
		fmt.Printf("Title: %s\n", res.Record.Title)
		if res.Repaired {
			fmt.Printf("  (repaired, coverage was %.0f%%)\n", res.Coverage.Score*100)
		}
		fmt.Printf("News saved to %s\n", output)
		return nil
	},
}

func init() {
	gen.register(generateCmd)
	generateCmd.Flags().StringVarP(&inputPath, "input", "i", "", "Path to the event description file (- for stdin)")
	generateCmd.Flags().StringVar(&inputURL, "url", "", "Page whose main text is the event description")
	generateCmd.Flags().StringVarP(&output, "output", "o", "", "Path of the JSON file to write")
	generateCmd.MarkFlagsOneRequired("input", "url")
	generateCmd.MarkFlagsMutuallyExclusive("input", "url")
	_ = generateCmd.MarkFlagRequired("output")
}

// readEvent loads the event text from a file, stdin or a web page.
func readEvent(ctx context.Context, path, pageURL string) (text, sourceURL string, err error) {
	if pageURL != "" {
		text, err = fetch.NewFetcher(0, 0).FetchText(ctx, pageURL)
		if err != nil {
			return "", "", fmt.Errorf("reading event from %s: %w", pageURL, err)
		}
		return text, pageURL, nil
	}

	var data []byte
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", "", fmt.Errorf("reading event: %w", err)
	}
	text = strings.TrimSpace(string(data))
	if text == "" {
		return "", "", errors.New("event description is empty")
	}
	return text, "", nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// --- batch and watch commands ---

var (
	batchGen genFlags
	batchOut string
)

func newRunner(cmd *cobra.Command) (*batch.Runner, func(), error) {
	pipe, err := batchGen.newPipeline(batchGen.options(cmd))
	if err != nil {
		return nil, nil, err
	}
	pub, err := batchGen.publisher()
	if err != nil {
		return nil, nil, err
	}
	db := openHistory()

	outDir := batchOut
	if outDir == "" {
		outDir = filepath.Join(cfg.GetDataDir(), "news")
	}

	r := &batch.Runner{
		Source:    collect.NewCollector(cfg),
		Generator: pipe,
		OutputDir: outDir,
		Model:     pipe.Options().ArticleModel,
		DB:        db,
		Fetcher:   fetch.NewFetcher(0, 0),
		Publisher: pub,
	}
	closeFn := func() {
		if db != nil {
			db.Close()
		}
	}
	return r, closeFn, nil
}

func printSummary(s *batch.Summary) {
	fmt.Println("\nBatch complete:")
	fmt.Printf("  Events found: %d\n", s.Found)
	fmt.Printf("  Already generated: %d\n", s.Skipped)
	fmt.Printf("  Generated: %d\n", s.Generated)
	fmt.Printf("  Failed: %d\n", s.Failed)
	if s.Published > 0 {
		fmt.Printf("  Published: %d\n", s.Published)
	}
	for _, p := range s.Paths {
		fmt.Printf("  %s\n", p)
	}
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Generate news items for events from the configured feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, closeFn, err := newRunner(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		fmt.Println("Collecting events from sources...")
		s, err := r.Run(cmd.Context())
		if s != nil {
			printSummary(s)
		}
		return err
	},
}

var watchNow bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run batch on the configured schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		r, closeFn, err := newRunner(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		job := func() {
			s, err := r.Run(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("Batch interrupted")
				return
			}
			log.Info().Int("generated", s.Generated).Int("failed", s.Failed).Msg("Scheduled batch done")
		}

		sched, err := scheduler.New(cfg.Watch.Schedule, cfg.Watch.Timezone, job)
		if err != nil {
			return fmt.Errorf("watch.schedule: %w", err)
		}
		if watchNow {
			job()
		}
		sched.Start()
		defer sched.Stop()

		log.Info().
			Str("schedule", sched.Spec()).
			Str("timezone", sched.Location().String()).
			Time("next", sched.Next()).
			Msg("Watching sources, press Ctrl+C to stop, send SIGHUP to reload the schedule")

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Stopping")
				return nil
			case <-hup:
				if err := reloadSchedule(sched, configPath); err != nil {
					log.Warn().Err(err).Msg("Keeping previous schedule")
				}
			}
		}
	},
}

// reloadSchedule re-reads the config and applies its watch.schedule. A
// changed timezone only takes effect on restart.
func reloadSchedule(sched *scheduler.Scheduler, explicitPath string) error {
	path, err := config.ResolveConfigPath(explicitPath)
	if err != nil {
		return err
	}
	fresh, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if tz := fresh.Watch.Timezone; tz != "" && tz != sched.Location().String() {
		log.Warn().Str("timezone", tz).Msg("Timezone change needs a restart")
	}
	if err := sched.Update(fresh.Watch.Schedule); err != nil {
		return fmt.Errorf("watch.schedule: %w", err)
	}
	log.Info().Str("schedule", sched.Spec()).Time("next", sched.Next()).Msg("Schedule reloaded")
	return nil
}

func init() {
	for _, c := range []*cobra.Command{batchCmd, watchCmd} {
		batchGen.register(c)
		c.Flags().StringVarP(&batchOut, "output-dir", "o", "", "Directory for the JSON files (default <data dir>/news)")
	}
	watchCmd.Flags().BoolVar(&watchNow, "now", false, "Run a batch immediately before waiting for the schedule")
}
