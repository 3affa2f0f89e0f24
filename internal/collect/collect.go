// Package collect gathers candidate events from RSS/Atom feeds and NewsAPI.
package collect

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/newsgen/internal/config"
)

// Event is a short description of something that happened, with its origin.
type Event struct {
	URL           string
	Title         string
	Text          string
	Source        string
	PublishedDate string // YYYY-MM-DD or empty
}

// Result holds the results of a collection run.
type Result struct {
	Events     []Event
	TotalFound int
	Duplicates int
	Sources    map[string]int
}

// Collector orchestrates event collection from RSS feeds and NewsAPI.
type Collector struct {
	feedReader *FeedReader
	newsClient *NewsAPIClient
	newsQuery  string
	language   string
	daysBack   int
	limit      int
}

// NewCollector creates a collector for the configured sources.
func NewCollector(cfg *config.Config) *Collector {
	c := &Collector{
		language: cfg.Keywords.Language,
		daysBack: cfg.Sources.DaysBack,
		limit:    cfg.Sources.Limit,
	}

	if len(cfg.Sources.Feeds) > 0 {
		feeds := make([]FeedConfig, len(cfg.Sources.Feeds))
		for i, f := range cfg.Sources.Feeds {
			feeds[i] = FeedConfig{URL: f.URL, Name: f.Name}
		}
		c.feedReader = NewFeedReader(feeds)
	}

	apiCfg := cfg.Sources.NewsAPI
	if apiCfg.Enabled {
		c.newsClient = NewNewsAPIClient(apiCfg.APIKeyEnv)
		c.newsQuery = apiCfg.Query
	}

	return c
}

// Collect returns events from all configured sources, unique by URL and
// capped at the configured limit (0 means no cap).
func (c *Collector) Collect(ctx context.Context) *Result {
	r := &Result{Sources: make(map[string]int)}
	seen := make(map[string]struct{})

	add := func(ev Event) {
		r.TotalFound++
		if _, dup := seen[ev.URL]; dup {
			r.Duplicates++
			return
		}
		seen[ev.URL] = struct{}{}
		if c.limit > 0 && len(r.Events) >= c.limit {
			return
		}
		r.Events = append(r.Events, ev)
		r.Sources[ev.Source]++
	}

	if c.feedReader != nil {
		log.Info().Msg("Collecting from RSS feeds...")
		for _, ev := range c.feedReader.ReadAll(ctx, c.daysBack) {
			add(ev)
		}
	}

	if c.newsClient != nil && c.newsClient.IsConfigured() && c.newsQuery != "" {
		log.Info().Msg("Collecting from NewsAPI...")
		articles, err := c.newsClient.Search(ctx, c.newsQuery, c.language, c.daysBack, 100)
		if err != nil {
			log.Warn().Err(err).Msg("NewsAPI search failed")
		}
		for _, ev := range articles {
			add(ev)
		}
	}

	log.Info().
		Int("found", r.TotalFound).
		Int("kept", len(r.Events)).
		Int("duplicates", r.Duplicates).
		Msg("Collection complete")
	return r
}

// eventText joins a headline and its description into one event sentence.
func eventText(title, description string) string {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	switch {
	case description == "" || strings.HasPrefix(description, title):
		if description != "" {
			return description
		}
		return title
	case strings.ContainsAny(title[len(title)-1:], ".!?"):
		return title + " " + description
	default:
		return title + ". " + description
	}
}
