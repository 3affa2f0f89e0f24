// Package fetch turns web pages into plain event text.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog/log"
)

// DefaultMaxChars bounds the text taken from a page; events are short
// descriptions, not full articles.
const DefaultMaxChars = 1200

const minTextLength = 100

// ErrNoContent means the page had no extractable article text.
var ErrNoContent = errors.New("no extractable content")

// HTTPError is a non-success status from the page server.
type HTTPError struct {
	URL  string
	Code int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetching %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Page is the readable part of a fetched page.
type Page struct {
	URL   string
	Title string
	Text  string
}

// Fetcher fetches pages over HTTP and extracts their main text with readability.
type Fetcher struct {
	client   *http.Client
	maxChars int
}

// NewFetcher creates a new fetcher. Zero values select the defaults.
func NewFetcher(timeout time.Duration, maxChars int) *Fetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Fetcher{
		maxChars: maxChars,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Fetch downloads pageURL and returns its title and leading text.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "newsgen/1.0 (+event extraction)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &HTTPError{URL: pageURL, Code: resp.StatusCode}
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", pageURL, ErrNoContent, err)
	}

	text := normalizeSpace(article.TextContent)
	if len(text) < minTextLength {
		return nil, fmt.Errorf("%s: %w", pageURL, ErrNoContent)
	}

	log.Debug().Str("url", pageURL).Int("chars", len(text)).Msg("Extracted page text")
	return &Page{
		URL:   pageURL,
		Title: strings.TrimSpace(article.Title),
		Text:  Truncate(text, f.maxChars),
	}, nil
}

// FetchText returns only the leading text of the page.
func (f *Fetcher) FetchText(ctx context.Context, pageURL string) (string, error) {
	page, err := f.Fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}
	return page.Text, nil
}

// Truncate cuts text to at most maxChars runes, preferring the end of a
// sentence, then a word boundary.
func Truncate(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	cut := string(runes[:maxChars])

	if i := strings.LastIndexAny(cut, ".!?…"); i > len(cut)/2 {
		_, size := utf8.DecodeRuneInString(cut[i:])
		return cut[:i+size]
	}
	if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > 0 {
		return strings.TrimSpace(cut[:i])
	}
	return cut
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
