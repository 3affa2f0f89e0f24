// Package batch generates one news item per collected event and records the
// outcome of every run.
package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/newsgen/internal/collect"
	"github.com/TobiSchelling/newsgen/internal/database"
	"github.com/TobiSchelling/newsgen/internal/news"
	"github.com/TobiSchelling/newsgen/internal/pipeline"
	"github.com/TobiSchelling/newsgen/internal/publish"
)

// DefaultMinEventChars is the event length below which the source page is
// fetched to enrich the event.
const DefaultMinEventChars = 200

// Source yields candidate events.
type Source interface {
	Collect(ctx context.Context) *collect.Result
}

// Generator runs the pipeline for one event.
type Generator interface {
	Run(ctx context.Context, ev pipeline.Event) (*pipeline.Result, error)
}

// PageFetcher returns the readable text of a page.
type PageFetcher interface {
	FetchText(ctx context.Context, pageURL string) (string, error)
}

// Runner processes collected events sequentially. DB, Fetcher and Publisher
// are optional.
type Runner struct {
	Source        Source
	Generator     Generator
	OutputDir     string
	Model         string
	DB            *database.DB
	Fetcher       PageFetcher
	Publisher     publish.Publisher
	MinEventChars int
}

// Summary counts the outcome of a batch.
type Summary struct {
	Found     int
	Skipped   int
	Generated int
	Failed    int
	Published int
	Paths     []string
}

// Run collects events and generates an item for each one not seen before.
// Per-event failures are logged and counted; only cancellation stops the
// batch early.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	collected := r.Source.Collect(ctx)
	s := &Summary{Found: len(collected.Events)}
	log.Info().Int("events", s.Found).Int("duplicates", collected.Duplicates).Msg("Events collected")

	for _, ev := range collected.Events {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		if r.seen(ev.URL) {
			s.Skipped++
			continue
		}

		path, err := r.process(ctx, ev, s)
		if err != nil {
			s.Failed++
			log.Warn().Err(err).Str("url", ev.URL).Msg("Event failed")
			if ctx.Err() != nil {
				return s, ctx.Err()
			}
			continue
		}
		s.Generated++
		s.Paths = append(s.Paths, path)
	}

	log.Info().
		Int("generated", s.Generated).
		Int("skipped", s.Skipped).
		Int("failed", s.Failed).
		Int("published", s.Published).
		Msg("Batch complete")
	return s, nil
}

func (r *Runner) process(ctx context.Context, ev collect.Event, s *Summary) (string, error) {
	text := r.enrich(ctx, ev)
	res, err := r.Generator.Run(ctx, pipeline.Event{Text: text, SourceURL: ev.URL})
	if err != nil {
		r.saveFailure(res, err)
		return "", err
	}

	path := filepath.Join(r.OutputDir, FileName(res))
	if err := news.WriteFile(path, *res.Record); err != nil {
		return "", err
	}

	itemID, err := SaveResult(r.DB, res, r.Model, path)
	if err != nil {
		log.Warn().Err(err).Str("run_id", res.RunID).Msg("Failed to store item")
	}

	if r.Publisher != nil {
		msgID, err := r.Publisher.Publish(ctx, *res.Record)
		if err != nil {
			log.Warn().Err(err).Str("run_id", res.RunID).Msg("Publishing failed")
			return path, nil
		}
		s.Published++
		if r.DB != nil && itemID != 0 {
			if err := r.DB.MarkPublished(itemID, publish.ChannelTelegram, msgID); err != nil {
				log.Warn().Err(err).Int64("item_id", itemID).Msg("Failed to mark published")
			}
		}
	}
	return path, nil
}

// enrich replaces a short feed description with the page text when the page
// yields more.
func (r *Runner) enrich(ctx context.Context, ev collect.Event) string {
	minChars := r.MinEventChars
	if minChars == 0 {
		minChars = DefaultMinEventChars
	}
	if r.Fetcher == nil || ev.URL == "" || utf8.RuneCountInString(ev.Text) >= minChars {
		return ev.Text
	}
	text, err := r.Fetcher.FetchText(ctx, ev.URL)
	if err != nil {
		log.Debug().Err(err).Str("url", ev.URL).Msg("Keeping feed text")
		return ev.Text
	}
	if utf8.RuneCountInString(text) <= utf8.RuneCountInString(ev.Text) {
		return ev.Text
	}
	return text
}

func (r *Runner) seen(url string) bool {
	if r.DB == nil || url == "" {
		return false
	}
	ok, err := r.DB.HasSourceURL(url)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("History lookup failed")
		return false
	}
	return ok
}

func (r *Runner) saveFailure(res *pipeline.Result, runErr error) {
	if r.DB == nil || res == nil {
		return
	}
	if err := SaveFailure(r.DB, res, runErr); err != nil {
		log.Warn().Err(err).Str("run_id", res.RunID).Msg("Failed to store aborted run")
	}
}

// FileName names the output file of a run: day prefix plus the short run ID.
func FileName(res *pipeline.Result) string {
	id := res.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s-%s.json", database.GetToday(), id)
}

// SaveResult stores a successful run. A nil db is a no-op.
func SaveResult(db *database.DB, res *pipeline.Result, model, outputPath string) (int64, error) {
	if db == nil || res.Record == nil {
		return 0, nil
	}
	item := &database.NewsItem{
		RunID:           res.RunID,
		EventText:       res.Event.Text,
		Language:        res.Event.Language,
		Title:           res.Record.Title,
		Article:         res.Record.Article,
		Keywords:        res.Keywords,
		Coverage:        res.Coverage.Score,
		ArticleCoverage: res.ArticleCoverage,
		Repaired:        res.Repaired,
		TitleSource:     res.TitleSource,
		SourceURL:       optional(res.Event.SourceURL),
		Model:           optional(model),
		OutputPath:      optional(outputPath),
	}
	return db.InsertItem(item)
}

// SaveFailure stores an aborted run with its last state and reason.
func SaveFailure(db *database.DB, res *pipeline.Result, runErr error) error {
	if db == nil {
		return nil
	}
	state := string(pipeline.StateAborted)
	if step := res.Failed(); step != nil {
		state = string(step.Name)
	}
	_, err := db.InsertFailedRun(&database.FailedRun{
		RunID:     res.RunID,
		EventText: res.Event.Text,
		Language:  res.Event.Language,
		State:     state,
		Reason:    reason(runErr),
		SourceURL: optional(res.Event.SourceURL),
	})
	return err
}

func reason(err error) string {
	if errors.Is(err, pipeline.ErrExtractionEmpty) {
		return "no keywords"
	}
	return strings.TrimSpace(err.Error())
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
