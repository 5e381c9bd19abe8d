package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deusflow/newscurator/internal/news"
	"github.com/deusflow/newscurator/internal/sanitize"
)

const (
	hnBaseURL      = "https://hacker-news.firebaseio.com"
	hnTopStories   = 20
	hnItemTimeout  = 5 * time.Second
	hnSourceLabel  = "Hacker News"
	maxDescription = 500
)

// HackerNews reads the top stories of Hacker News.
type HackerNews struct {
	httpSource
	limit int
}

func NewHackerNews(opts ...Option) *HackerNews {
	return &HackerNews{
		httpSource: newHTTPSource(hnBaseURL, opts),
		limit:      hnTopStories,
	}
}

func (h *HackerNews) Name() string { return "hackernews" }

type hnItem struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
	Time  int64  `json:"time"`
}

func (h *HackerNews) Fetch(ctx context.Context, _ time.Duration) ([]news.Candidate, error) {
	base := strings.TrimRight(h.baseURL, "/")

	var ids []int64
	if err := h.getJSON(ctx, base+"/v0/topstories.json", 0, &ids); err != nil {
		return nil, &FetchError{Source: h.Name(), Err: err}
	}
	if len(ids) > h.limit {
		ids = ids[:h.limit]
	}

	out := make([]news.Candidate, 0, len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		var it hnItem
		if err := h.getJSON(ctx, fmt.Sprintf("%s/v0/item/%d.json", base, id), hnItemTimeout, &it); err != nil {
			h.log.Debug("hacker news item skipped", "id", id, "error", err)
			continue
		}
		if it.Type != "story" || !news.IsHTTPURL(it.URL) || strings.TrimSpace(it.Title) == "" || it.Time <= 0 {
			continue
		}
		out = append(out, news.Candidate{
			Title:       strings.TrimSpace(it.Title),
			URL:         it.URL,
			Source:      hnSourceLabel,
			Published:   time.Unix(it.Time, 0).UTC(),
			Description: sanitize.Truncate(sanitize.Text(it.Text), maxDescription),
		})
	}
	return out, nil
}
