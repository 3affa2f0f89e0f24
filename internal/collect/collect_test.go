package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/newsgen/internal/config"
)

func rssFeed(items ...string) string {
	body := ""
	for _, it := range items {
		body += it
	}
	return `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Городские новости</title><link>https://city.example</link>` + body + `</channel></rss>`
}

func rssItem(link, title, description string, published time.Time) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><description><![CDATA[%s]]></description><pubDate>%s</pubDate></item>`,
		title, link, description, published.Format(time.RFC1123Z))
}

func TestFeedReaderReadAll(t *testing.T) {
	now := time.Now()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFeed(
			rssItem("https://city.example/1", "Совет одобрил парк", "<p>Городской совет одобрил новый парк <b>у реки</b>.</p>", now),
			rssItem("https://city.example/2", "Старая новость", "Давно", now.AddDate(0, 0, -10)),
		)))
	}))
	defer srv.Close()

	fr := NewFeedReader([]FeedConfig{{URL: srv.URL, Name: "City"}})
	events := fr.ReadAll(context.Background(), 1)

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "https://city.example/1", ev.URL)
	assert.Equal(t, "City", ev.Source)
	assert.Equal(t, "Совет одобрил парк. Городской совет одобрил новый парк у реки.", ev.Text)
	assert.Equal(t, now.Format("2006-01-02"), ev.PublishedDate)
}

func TestFeedReaderSkipsBrokenFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not a feed"))
	}))
	defer srv.Close()

	fr := NewFeedReader([]FeedConfig{{URL: srv.URL}})
	assert.Empty(t, fr.ReadAll(context.Background(), 1))
}

func TestEventText(t *testing.T) {
	tests := []struct {
		title, description, want string
	}{
		{"Совет одобрил парк", "", "Совет одобрил парк"},
		{"Совет одобрил парк", "Работы начнутся весной.", "Совет одобрил парк. Работы начнутся весной."},
		{"Парк откроется?", "Решение примут завтра.", "Парк откроется? Решение примут завтра."},
		{"Совет одобрил парк", "Совет одобрил парк у реки.", "Совет одобрил парк у реки."},
		{"", "Только описание.", "Только описание."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, eventText(tt.title, tt.description))
	}
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Парк & набережная", stripHTML("<p>Парк &amp; <i>набережная</i></p>"))
	assert.Equal(t, "plain text", stripHTML("  plain \n text "))
	assert.Equal(t, "visible", stripHTML("<script>var x = 1;</script><span>visible</span>"))
	assert.Equal(t, "", stripHTML(""))
}

func TestExtractSourceName(t *testing.T) {
	assert.Equal(t, "Lenta", extractSourceName("https://lenta.ru/rss/news"))
	assert.Equal(t, "Example", extractSourceName("https://feeds.example.com/rss"))
	assert.Equal(t, "not a url", extractSourceName("not a url"))
}

func TestIsWithinWindow(t *testing.T) {
	cutoff := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)
	assert.True(t, isWithinWindow("", cutoff))
	assert.True(t, isWithinWindow("garbage", cutoff))
	assert.True(t, isWithinWindow("2026-10-18", cutoff))
	assert.False(t, isWithinWindow("2026-10-17", cutoff))
}

func newsAPIServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *NewsAPIClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return &NewsAPIClient{apiKey: "k", baseURL: srv.URL, client: srv.Client()}
}

func TestNewsAPISearch(t *testing.T) {
	c := newsAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "ru", r.URL.Query().Get("language"))
		assert.Equal(t, "парк", r.URL.Query().Get("q"))
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"articles": []map[string]any{
				{
					"url":         "https://news.example/1",
					"title":       "Совет одобрил парк",
					"description": "Строительство начнётся весной.",
					"publishedAt": "2026-10-19T08:00:00Z",
					"source":      map[string]string{"name": "Example"},
				},
				{"url": "https://removed.com", "title": "[Removed]"},
				{
					"url":     "https://news.example/2",
					"title":   "Река вышла из берегов",
					"content": "Уровень воды поднялся на метр… [+1200 chars]",
				},
			},
		})
	})

	events, err := c.Search(context.Background(), "парк", "ru-RU", 1, 50)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "Совет одобрил парк. Строительство начнётся весной.", events[0].Text)
	assert.Equal(t, "Example", events[0].Source)
	assert.Equal(t, "2026-10-19", events[0].PublishedDate)

	assert.Equal(t, "Река вышла из берегов. Уровень воды поднялся на метр…", events[1].Text)
	assert.Equal(t, "NewsAPI", events[1].Source)
}

func TestNewsAPISearchErrors(t *testing.T) {
	c := newsAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","message":"apiKeyInvalid"}`))
	})
	_, err := c.Search(context.Background(), "q", "ru", 1, 10)
	assert.ErrorContains(t, err, "apiKeyInvalid")

	c = newsAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err = c.Search(context.Background(), "q", "ru", 1, 10)
	assert.ErrorContains(t, err, "429")

	_, err = (&NewsAPIClient{}).Search(context.Background(), "q", "ru", 1, 10)
	assert.Error(t, err)
}

func TestCollectorDeduplicatesAndLimits(t *testing.T) {
	now := time.Now()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssFeed(
			rssItem("https://city.example/1", "Первая", "Один", now),
			rssItem("https://city.example/2", "Вторая", "Два", now),
			rssItem("https://city.example/3", "Третья", "Три", now),
		)))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Sources.Feeds = []config.Feed{{URL: srv.URL, Name: "A"}, {URL: srv.URL, Name: "B"}}
	cfg.Sources.Limit = 2

	res := NewCollector(cfg).Collect(context.Background())
	assert.Equal(t, 6, res.TotalFound)
	assert.Equal(t, 3, res.Duplicates)
	require.Len(t, res.Events, 2)
	assert.Equal(t, "https://city.example/1", res.Events[0].URL)
	assert.Equal(t, 2, res.Sources["A"])
}
