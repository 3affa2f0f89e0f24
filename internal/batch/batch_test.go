package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/newsgen/internal/collect"
	"github.com/TobiSchelling/newsgen/internal/database"
	"github.com/TobiSchelling/newsgen/internal/llm"
	"github.com/TobiSchelling/newsgen/internal/news"
	"github.com/TobiSchelling/newsgen/internal/pipeline"
)

type staticSource []collect.Event

func (s staticSource) Collect(context.Context) *collect.Result {
	return &collect.Result{Events: s, TotalFound: len(s)}
}

// wordExtractor returns the first words of the text; "EMPTY" yields nothing.
type wordExtractor struct{}

func (wordExtractor) Extract(text, _ string, count int) []string {
	if strings.Contains(text, "EMPTY") {
		return nil
	}
	words := strings.Fields(strings.ToLower(text))
	if len(words) > count {
		words = words[:count]
	}
	return words
}

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, r llm.Request) (string, error) {
	return "Article about " + r.Prompt, nil
}

type fixedSummarizer string

func (f fixedSummarizer) Summarize(context.Context, llm.SummaryRequest) (string, error) {
	return string(f), nil
}

type fakeFetcher struct {
	text  string
	err   error
	calls int
}

func (f *fakeFetcher) FetchText(context.Context, string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakePublisher struct {
	got []news.Record
	err error
}

func (f *fakePublisher) Publish(_ context.Context, rec news.Record) (string, error) {
	f.got = append(f.got, rec)
	return "7", f.err
}

func newPipeline() *pipeline.Pipeline {
	opts := pipeline.DefaultOptions()
	opts.KeywordCount = 2
	opts.Timeout = time.Second
	return pipeline.New(opts, wordExtractor{}, echoGenerator{}, fixedSummarizer("Headline"))
}

func openDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunWritesAndStores(t *testing.T) {
	db := openDB(t)
	out := t.TempDir()
	r := &Runner{
		Source: staticSource{
			{URL: "https://example.com/a", Text: "Park opens near river"},
			{URL: "https://example.com/b", Text: "EMPTY event"},
		},
		Generator: newPipeline(),
		OutputDir: out,
		Model:     "llama3.1",
		DB:        db,
	}

	s, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Found)
	assert.Equal(t, 1, s.Generated)
	assert.Equal(t, 1, s.Failed)
	require.Len(t, s.Paths, 1)

	rec, err := news.ReadFile(s.Paths[0])
	require.NoError(t, err)
	assert.Equal(t, "Park opens near river", rec.Event)
	assert.Equal(t, "Headline: park, opens", rec.Title)

	items, err := db.ListItems(10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "llama3.1", *items[0].Model)
	assert.Equal(t, s.Paths[0], *items[0].OutputPath)
	assert.True(t, items[0].Repaired)

	failed, err := db.ListFailedRuns(10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, string(pipeline.StateExtractKeywords), failed[0].State)
	assert.Equal(t, "no keywords", failed[0].Reason)
	assert.Equal(t, "https://example.com/b", *failed[0].SourceURL)
}

func TestRunSkipsKnownURLs(t *testing.T) {
	db := openDB(t)
	r := &Runner{
		Source:    staticSource{{URL: "https://example.com/a", Text: "Park opens near river"}},
		Generator: newPipeline(),
		OutputDir: t.TempDir(),
		DB:        db,
	}

	first, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Generated)

	second, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Generated)
	assert.Equal(t, 1, second.Skipped)
}

func TestRunWithoutDB(t *testing.T) {
	out := t.TempDir()
	r := &Runner{
		Source:    staticSource{{Text: "Park opens near river"}, {Text: "Bridge closes for repairs"}},
		Generator: newPipeline(),
		OutputDir: out,
	}
	s, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Generated)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRunEnrichesShortEvents(t *testing.T) {
	long := "Council approved the park. " + strings.Repeat("Details follow. ", 20)
	f := &fakeFetcher{text: long}
	r := &Runner{
		Source: staticSource{
			{URL: "https://example.com/short", Text: "Park news"},
			{URL: "", Text: "No url here"},
		},
		Generator: newPipeline(),
		OutputDir: t.TempDir(),
		Fetcher:   f,
	}
	s, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls)

	rec, err := news.ReadFile(s.Paths[0])
	require.NoError(t, err)
	assert.Equal(t, long, rec.Event)
}

func TestEnrichKeepsFeedTextOnError(t *testing.T) {
	r := &Runner{Fetcher: &fakeFetcher{err: errors.New("404")}}
	assert.Equal(t, "Park news", r.enrich(context.Background(), collect.Event{URL: "https://x", Text: "Park news"}))

	r = &Runner{Fetcher: &fakeFetcher{text: "tiny"}}
	assert.Equal(t, "Park news", r.enrich(context.Background(), collect.Event{URL: "https://x", Text: "Park news"}))
}

func TestRunPublishes(t *testing.T) {
	db := openDB(t)
	pub := &fakePublisher{}
	r := &Runner{
		Source:    staticSource{{URL: "https://example.com/a", Text: "Park opens near river"}},
		Generator: newPipeline(),
		OutputDir: t.TempDir(),
		DB:        db,
		Publisher: pub,
	}
	s, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Published)
	require.Len(t, pub.got, 1)

	items, err := db.ListItems(1)
	require.NoError(t, err)
	ok, err := db.IsPublished(items[0].ID, "telegram")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunPublishFailureKeepsItem(t *testing.T) {
	pub := &fakePublisher{err: errors.New("chat not found")}
	r := &Runner{
		Source:    staticSource{{Text: "Park opens near river"}},
		Generator: newPipeline(),
		OutputDir: t.TempDir(),
		Publisher: pub,
	}
	s, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Generated)
	assert.Equal(t, 0, s.Published)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Runner{
		Source:    staticSource{{Text: "Park opens near river"}},
		Generator: newPipeline(),
		OutputDir: t.TempDir(),
	}
	s, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.Generated)
}

func TestFileName(t *testing.T) {
	name := FileName(&pipeline.Result{RunID: "0123456789abcdef"})
	assert.Equal(t, database.GetToday()+"-01234567.json", name)
}
