package collect

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"
)

const maxPerFeed = 20

// FeedConfig represents a single feed configuration.
type FeedConfig struct {
	URL  string
	Name string
}

// FeedReader turns RSS/Atom entries into events.
type FeedReader struct {
	feeds  []FeedConfig
	parser *gofeed.Parser
}

// NewFeedReader creates a new FeedReader.
func NewFeedReader(feeds []FeedConfig) *FeedReader {
	return &FeedReader{feeds: feeds, parser: gofeed.NewParser()}
}

// ReadAll parses every configured feed and returns entries within daysBack.
// A failing feed is logged and skipped.
func (fr *FeedReader) ReadAll(ctx context.Context, daysBack int) []Event {
	cutoff := time.Now().AddDate(0, 0, -daysBack)
	var all []Event

	for _, fc := range fr.feeds {
		name := fc.Name
		if name == "" {
			name = extractSourceName(fc.URL)
		}

		events, err := fr.readFeed(ctx, fc.URL, name, cutoff)
		if err != nil {
			log.Warn().Err(err).Str("feed", fc.URL).Msg("Failed to parse feed")
			continue
		}
		all = append(all, events...)
		log.Debug().Str("source", name).Int("entries", len(events)).Int("days", daysBack).Msg("Parsed feed")
	}

	return all
}

func (fr *FeedReader) readFeed(ctx context.Context, feedURL, sourceName string, cutoff time.Time) ([]Event, error) {
	feed, err := fr.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}
	return feedEvents(feed, sourceName, cutoff), nil
}

func feedEvents(feed *gofeed.Feed, sourceName string, cutoff time.Time) []Event {
	var events []Event
	for _, item := range feed.Items {
		if len(events) >= maxPerFeed {
			break
		}

		ev := parseItem(item, sourceName)
		if ev == nil {
			continue
		}
		if isWithinWindow(ev.PublishedDate, cutoff) {
			events = append(events, *ev)
		}
	}
	return events
}

func parseItem(item *gofeed.Item, source string) *Event {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return nil
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}

	var publishedDate string
	if item.PublishedParsed != nil {
		publishedDate = item.PublishedParsed.Format("2006-01-02")
	} else if item.UpdatedParsed != nil {
		publishedDate = item.UpdatedParsed.Format("2006-01-02")
	}

	description := stripHTML(item.Description)
	if description == "" {
		description = stripHTML(item.Content)
	}

	return &Event{
		URL:           itemURL,
		Title:         title,
		Text:          eventText(title, description),
		Source:        source,
		PublishedDate: publishedDate,
	}
}

// isWithinWindow keeps undated entries.
func isWithinWindow(publishedDate string, cutoff time.Time) bool {
	if publishedDate == "" {
		return true
	}
	pub, err := time.Parse("2006-01-02", publishedDate)
	if err != nil {
		return true
	}
	return !pub.Before(cutoff.Truncate(24 * time.Hour))
}

// stripHTML returns the text content of an HTML fragment with whitespace collapsed.
func stripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
