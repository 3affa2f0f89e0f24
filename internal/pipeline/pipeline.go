package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/newsgen/internal/config"
	"github.com/TobiSchelling/newsgen/internal/coverage"
	"github.com/TobiSchelling/newsgen/internal/llm"
	"github.com/TobiSchelling/newsgen/internal/news"
	"github.com/TobiSchelling/newsgen/internal/prompt"
)

// ErrExtractionEmpty means the event text yielded no keywords.
var ErrExtractionEmpty = errors.New("no keywords could be extracted from the event text")

// State names a step of a run.
type State string

const (
	StateExtractKeywords    State = "extract_keywords"
	StateBuildArticlePrompt State = "build_article_prompt"
	StateGenerateArticle    State = "generate_article"
	StateBuildTitlePrompt   State = "build_title_prompt"
	StateGenerateTitle      State = "generate_title"
	StateScoreCoverage      State = "score_coverage"
	StateAccept             State = "accept"
	StateRepair             State = "repair"
	StateAssemble           State = "assemble"
	StateAborted            State = "aborted"
)

// Title sources recorded in Result.TitleSource.
const (
	TitleFromSummarizer = "summarizer"
	TitleFromKeywords   = "keywords"
)

// Event is the input of one run.
type Event struct {
	Text      string
	Language  string
	SourceURL string
}

// Options are the per-pipeline generation settings.
type Options struct {
	Language         string
	KeywordCount     int
	ArticleModel     string
	Temperature      float64
	MaxTokens        int
	SummaryModel     string
	TitleMinTokens   int
	TitleMaxTokens   int
	Threshold        float64
	FallbackKeywords int
	IncludeKeywords  bool
	Timeout          time.Duration
}

// DefaultOptions mirrors config.Default.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// OptionsFromConfig maps the config sections onto pipeline options. Model
// names are left empty so each backend uses its own default.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Language:         cfg.Keywords.Language,
		KeywordCount:     cfg.Keywords.Count,
		Temperature:      cfg.Generation.Temperature,
		MaxTokens:        cfg.Generation.MaxTokens,
		TitleMinTokens:   cfg.Summarization.MinTokens,
		TitleMaxTokens:   cfg.Summarization.MaxTokens,
		Threshold:        cfg.Quality.Threshold,
		FallbackKeywords: cfg.Quality.FallbackKeywords,
		IncludeKeywords:  cfg.Quality.IncludeKeywords,
		Timeout:          cfg.Generation.Timeout,
	}
}

// Validate checks the option ranges.
func (o Options) Validate() error {
	var errs []error
	if o.KeywordCount < 1 {
		errs = append(errs, fmt.Errorf("keyword count must be at least 1, got %d", o.KeywordCount))
	}
	if o.Temperature < 0 || o.Temperature > 1 {
		errs = append(errs, fmt.Errorf("temperature must be in [0, 1], got %g", o.Temperature))
	}
	if o.MaxTokens < 1 {
		errs = append(errs, fmt.Errorf("max tokens must be positive, got %d", o.MaxTokens))
	}
	if o.Threshold < 0 || o.Threshold > 1 {
		errs = append(errs, fmt.Errorf("threshold must be in [0, 1], got %g", o.Threshold))
	}
	if o.TitleMinTokens > o.TitleMaxTokens {
		errs = append(errs, fmt.Errorf("title min tokens (%d) exceed max tokens (%d)", o.TitleMinTokens, o.TitleMaxTokens))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", o.Timeout))
	}
	return errors.Join(errs...)
}

// Extractor picks the keywords of an event.
type Extractor interface {
	Extract(text, lang string, count int) []string
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    State
	Summary string
	Err     error
}

// Result describes one run. Record is nil when the run was aborted.
type Result struct {
	RunID           string
	Event           Event
	Record          *news.Record
	Keywords        []string
	Coverage        coverage.Result
	ArticleCoverage float64
	Repaired        bool
	TitleSource     string
	Steps           []StepResult
	FinalState      State
	Err             error
}

// Failed returns the step that aborted the run, if any.
func (r *Result) Failed() *StepResult {
	if r.FinalState != StateAborted || len(r.Steps) == 0 {
		return nil
	}
	return &r.Steps[len(r.Steps)-1]
}

// Pipeline turns events into news records. It holds no per-run state and
// may be reused across runs and goroutines.
type Pipeline struct {
	opts      Options
	extractor Extractor
	gen       llm.Generator
	summ      llm.Summarizer
}

// New creates a new pipeline.
func New(opts Options, extractor Extractor, gen llm.Generator, summ llm.Summarizer) *Pipeline {
	return &Pipeline{
		opts:      opts,
		extractor: extractor,
		gen:       gen,
		summ:      summ,
	}
}

// Options returns the settings the pipeline was built with.
func (p *Pipeline) Options() Options { return p.opts }

// Run executes one run. On abort the returned error is ErrExtractionEmpty
// or wraps the *llm.BackendError of the article stage, and the Result
// still describes the steps taken.
func (p *Pipeline) Run(ctx context.Context, ev Event) (*Result, error) {
	if ev.Language == "" {
		ev.Language = p.opts.Language
	}
	r := &Result{RunID: uuid.NewString(), Event: ev}
	logger := log.With().Str("run_id", r.RunID).Logger()

	// Step 1: Extract keywords
	r.Keywords = p.extractor.Extract(ev.Text, ev.Language, p.opts.KeywordCount)
	if len(r.Keywords) == 0 {
		return p.abort(r, StateExtractKeywords, ErrExtractionEmpty)
	}
	r.step(StateExtractKeywords, fmt.Sprintf("%d keywords: %s", len(r.Keywords), strings.Join(r.Keywords, ", ")), nil)
	logger.Debug().Strs("keywords", r.Keywords).Msg("Keywords extracted")

	// Step 2: Article
	articlePrompt := prompt.Article(ev.Text, r.Keywords, ev.Language)
	r.step(StateBuildArticlePrompt, fmt.Sprintf("%d chars", len(articlePrompt)), nil)

	logger.Info().Str("model", p.opts.ArticleModel).Msg("Generating article")
	article, err := p.generateArticle(ctx, articlePrompt, ev.Language)
	if err != nil {
		return p.abort(r, StateGenerateArticle, fmt.Errorf("generating article: %w", err))
	}
	r.step(StateGenerateArticle, fmt.Sprintf("%d chars", len(article)), nil)

	if ac, err := coverage.Score(article, r.Keywords); err == nil {
		r.ArticleCoverage = ac.Score
		if !ac.Covered() {
			logger.Debug().Strs("missing", ac.Missing).Msg("Article misses keywords")
		}
	}

	// Step 3: Title
	titlePrompt := prompt.Title(r.Keywords, ev.Language)
	r.step(StateBuildTitlePrompt, fmt.Sprintf("%d chars", len(titlePrompt)), nil)

	title, err := p.summarize(ctx, article, titlePrompt)
	switch {
	case err != nil && ctx.Err() != nil:
		return p.abort(r, StateGenerateTitle, fmt.Errorf("generating title: %w", err))
	case err != nil:
		title = fallbackTitle(r.Keywords, p.opts.FallbackKeywords)
		r.TitleSource = TitleFromKeywords
		r.step(StateGenerateTitle, "fallback title from keywords", err)
		logger.Warn().Err(err).Str("title", title).Msg("Title generation failed, using keywords")
	default:
		r.TitleSource = TitleFromSummarizer
		r.step(StateGenerateTitle, title, nil)
	}

	// Step 4: Coverage gate
	r.Coverage, err = coverage.Score(title, r.Keywords)
	if err != nil {
		return p.abort(r, StateScoreCoverage, err)
	}
	r.step(StateScoreCoverage, fmt.Sprintf("%.2f (threshold %.2f)", r.Coverage.Score, p.opts.Threshold), nil)
	logger.Info().Float64("score", r.Coverage.Score).Strs("missing", r.Coverage.Missing).Msg("Title coverage")

	if r.Coverage.Score < p.opts.Threshold {
		title = coverage.Repair(title, r.Coverage.Missing)
		r.Repaired = true
		r.step(StateRepair, title, nil)
	} else {
		r.step(StateAccept, title, nil)
	}

	// Step 5: Assemble
	rec := &news.Record{Event: ev.Text, Title: title, Article: article}
	if p.opts.IncludeKeywords {
		rec.Keywords = r.Keywords
	}
	r.Record = rec
	r.FinalState = StateAssemble
	r.step(StateAssemble, title, nil)
	logger.Info().Str("title", title).Bool("repaired", r.Repaired).Msg("News item assembled")

	return r, nil
}

func (p *Pipeline) generateArticle(ctx context.Context, promptText, lang string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	article, err := p.gen.Generate(ctx, llm.Request{
		Prompt:      promptText,
		Model:       p.opts.ArticleModel,
		Temperature: p.opts.Temperature,
		MaxTokens:   p.opts.MaxTokens,
		Language:    lang,
	})
	if err != nil {
		return "", err
	}
	article = strings.TrimSpace(article)
	if article == "" {
		return "", &llm.BackendError{Backend: "generator", Kind: llm.KindMalformed, Err: errors.New("empty article")}
	}
	return article, nil
}

func (p *Pipeline) summarize(ctx context.Context, article, titlePrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	return p.summ.Summarize(ctx, llm.SummaryRequest{
		Text:      article,
		Prompt:    titlePrompt,
		Model:     p.opts.SummaryModel,
		MinTokens: p.opts.TitleMinTokens,
		MaxTokens: p.opts.TitleMaxTokens,
	})
}

func (p *Pipeline) abort(r *Result, state State, err error) (*Result, error) {
	r.step(state, "aborted", err)
	r.FinalState = StateAborted
	r.Err = err
	log.Error().Str("run_id", r.RunID).Str("state", string(state)).Err(err).Msg("Run aborted")
	return r, err
}

func (r *Result) step(state State, summary string, err error) {
	r.Steps = append(r.Steps, StepResult{Name: state, Summary: summary, Err: err})
	if err == nil {
		log.Debug().Str("run_id", r.RunID).Str("state", string(state)).Msg(summary)
	}
}

// fallbackTitle joins the first n keywords.
func fallbackTitle(keywords []string, n int) string {
	if n < 1 || n > len(keywords) {
		n = len(keywords)
	}
	return strings.Join(keywords[:n], ", ")
}
