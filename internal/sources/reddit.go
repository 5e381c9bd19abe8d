package sources

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/deusflow/newscurator/internal/news"
	"github.com/deusflow/newscurator/internal/sanitize"
)

const (
	redditBaseURL   = "https://www.reddit.com"
	redditUserAgent = "PersonalizedNews/1.0"
	redditHotLimit  = 10
)

// Reddit reads the hot listing of one subreddit.
type Reddit struct {
	httpSource
	subreddit string
}

func NewReddit(subreddit string, opts ...Option) *Reddit {
	opts = append([]Option{WithUserAgent(redditUserAgent)}, opts...)
	return &Reddit{
		httpSource: newHTTPSource(redditBaseURL, opts),
		subreddit:  strings.TrimPrefix(strings.TrimSpace(subreddit), "r/"),
	}
}

// NewSubreddits creates one adapter per subreddit, in order.
func NewSubreddits(subs []string, opts ...Option) []Adapter {
	out := make([]Adapter, 0, len(subs))
	for _, s := range subs {
		out = append(out, NewReddit(s, opts...))
	}
	return out
}

func (r *Reddit) Name() string { return "r/" + r.subreddit }

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title               string  `json:"title"`
				URL                 string  `json:"url"`
				URLOverriddenByDest string  `json:"url_overridden_by_dest"`
				IsSelf              bool    `json:"is_self"`
				Selftext            string  `json:"selftext"`
				CreatedUTC          float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (r *Reddit) Fetch(ctx context.Context, _ time.Duration) ([]news.Candidate, error) {
	endpoint := fmt.Sprintf("%s/r/%s/hot.json?limit=%d",
		strings.TrimRight(r.baseURL, "/"), url.PathEscape(r.subreddit), redditHotLimit)

	var listing redditListing
	if err := r.getJSON(ctx, endpoint, 0, &listing); err != nil {
		return nil, &FetchError{Source: r.Name(), Err: err}
	}

	out := make([]news.Candidate, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		p := child.Data
		if p.IsSelf && p.URLOverriddenByDest == "" {
			continue
		}
		link := strings.TrimSpace(p.URL)
		if link == "" {
			link = strings.TrimSpace(p.URLOverriddenByDest)
		}
		if !news.IsHTTPURL(link) || strings.TrimSpace(p.Title) == "" || p.CreatedUTC <= 0 {
			continue
		}
		sec, frac := math.Modf(p.CreatedUTC)
		out = append(out, news.Candidate{
			Title:       strings.TrimSpace(p.Title),
			URL:         link,
			Source:      r.Name(),
			Published:   time.Unix(int64(sec), int64(frac*1e9)).UTC(),
			Description: sanitize.Truncate(strings.TrimSpace(p.Selftext), maxDescription),
		})
	}
	return out, nil
}
