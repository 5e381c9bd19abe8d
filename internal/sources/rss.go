package sources

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/deusflow/newscurator/internal/news"
	"github.com/deusflow/newscurator/internal/sanitize"
)

const maxEntriesPerFeed = 30

var (
	awareLayouts = []string{time.RFC1123Z, time.RFC1123, time.RFC3339, time.RFC822Z, time.RFC822}
	naiveLayouts = []string{"2006-01-02T15:04:05", "2006-01-02", "Mon, 02 Jan 2006 15:04:05"}
)

// RSSFeed reads one RSS/Atom feed.
type RSSFeed struct {
	httpSource
	url  string
	zone *time.Location
	hint string
}

// NewRSSFeed creates an adapter for a single feed URL. Timestamps without a
// zone are read as UTC.
func NewRSSFeed(feedURL string, opts ...Option) *RSSFeed {
	return &RSSFeed{
		httpSource: newHTTPSource(feedURL, opts),
		url:        feedURL,
		zone:       time.UTC,
	}
}

// NewRSSFeeds creates one adapter per URL, in order.
func NewRSSFeeds(urls []string, opts ...Option) []Adapter {
	out := make([]Adapter, 0, len(urls))
	for _, u := range urls {
		out = append(out, NewRSSFeed(u, opts...))
	}
	return out
}

// WithCategoryHint tags every item of the feed with a category hint.
func (f *RSSFeed) WithCategoryHint(category string) *RSSFeed {
	f.hint = category
	return f
}

func (f *RSSFeed) Name() string { return f.url }

func (f *RSSFeed) Fetch(ctx context.Context, _ time.Duration) ([]news.Candidate, error) {
	body, err := f.get(ctx, f.baseURL, 0)
	if err != nil {
		return nil, &FetchError{Source: f.url, Err: err}
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{Source: f.url, Err: err}
	}

	label := strings.TrimSpace(feed.Title)
	if label == "" {
		label = f.url
	}

	entries := feed.Items
	if len(entries) > maxEntriesPerFeed {
		entries = entries[:maxEntriesPerFeed]
	}

	out := make([]news.Candidate, 0, len(entries))
	for _, it := range entries {
		if it == nil {
			continue
		}
		published, ok := f.published(it)
		if !ok {
			continue
		}
		link := strings.TrimSpace(it.Link)
		title := strings.TrimSpace(it.Title)
		if title == "" || !news.IsHTTPURL(link) {
			continue
		}
		out = append(out, news.Candidate{
			Title:        title,
			URL:          link,
			Source:       label,
			Published:    published,
			Description:  sanitize.Text(it.Description),
			CategoryHint: f.hint,
		})
	}

	f.log.Debug("rss feed loaded", "feed", f.url, "source", label, "items", len(out))
	return out, nil
}

func (f *RSSFeed) published(it *gofeed.Item) (time.Time, bool) {
	if it.PublishedParsed != nil {
		return news.NormalizeTime(*it.PublishedParsed), true
	}
	if it.UpdatedParsed != nil {
		return news.NormalizeTime(*it.UpdatedParsed), true
	}
	raw := it.Published
	if raw == "" {
		raw = it.Updated
	}
	return parseFeedDate(raw, f.zone)
}

// parseFeedDate tries zone-aware layouts first, then naive ones in zone.
func parseFeedDate(raw string, zone *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range awareLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return news.NormalizeTime(t), true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := news.ParseNaive(layout, raw, zone); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
