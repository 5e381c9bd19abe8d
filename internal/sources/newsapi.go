package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deusflow/newscurator/internal/news"
	"github.com/deusflow/newscurator/internal/sanitize"
)

const (
	newsAPIBaseURL       = "https://newsapi.org"
	newsAPIQueriesPerCat = 2
	newsAPIMaxQueries    = 10
	newsAPIPageSize      = 5
	newsAPIDefaultSource = "NewsAPI"
)

// CategoryQueries lists search queries whose results are hinted as Category.
type CategoryQueries struct {
	Category string   `yaml:"category"`
	Queries  []string `yaml:"queries"`
}

// NewsAPI searches the NewsAPI /v2/everything endpoint.
type NewsAPI struct {
	httpSource
	apiKey  string
	queries []CategoryQueries
	now     func() time.Time
}

// NewNewsAPI creates the adapter. The key travels in the X-Api-Key header so
// it never shows up in request URLs or transport errors.
func NewNewsAPI(apiKey string, queries []CategoryQueries, opts ...Option) *NewsAPI {
	n := &NewsAPI{
		httpSource: newHTTPSource(newsAPIBaseURL, opts),
		apiKey:     apiKey,
		queries:    queries,
		now:        time.Now,
	}
	n.header = http.Header{}
	n.header.Set("X-Api-Key", apiKey)
	return n
}

func (n *NewsAPI) Name() string { return "newsapi" }

type newsAPIResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

type hintedQuery struct {
	query    string
	category string
}

// plan flattens the category queries, at most two per category and ten overall.
func (n *NewsAPI) plan() []hintedQuery {
	var out []hintedQuery
	for _, cq := range n.queries {
		for i, q := range cq.Queries {
			if i >= newsAPIQueriesPerCat {
				break
			}
			q = strings.TrimSpace(q)
			if q == "" {
				continue
			}
			out = append(out, hintedQuery{query: q, category: cq.Category})
		}
	}
	if len(out) > newsAPIMaxQueries {
		out = out[:newsAPIMaxQueries]
	}
	return out
}

func (n *NewsAPI) Fetch(ctx context.Context, window time.Duration) ([]news.Candidate, error) {
	if n.apiKey == "" {
		n.log.Warn("NewsAPI key not configured, skipping")
		return nil, nil
	}

	from := n.now().UTC().Add(-window).Format("2006-01-02T15:04:05")
	plan := n.plan()

	var (
		out  []news.Candidate
		errs []error
	)
	for _, hq := range plan {
		items, err := n.search(ctx, hq, from)
		if err != nil {
			n.log.Warn("NewsAPI query failed", "query", hq.query, "error", err)
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		out = append(out, items...)
	}

	if len(plan) > 0 && len(errs) == len(plan) {
		return nil, &FetchError{Source: n.Name(), Err: errors.Join(errs...)}
	}
	return out, nil
}

func (n *NewsAPI) search(ctx context.Context, hq hintedQuery, from string) ([]news.Candidate, error) {
	params := url.Values{}
	params.Set("q", hq.query)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("from", from)
	params.Set("pageSize", fmt.Sprint(newsAPIPageSize))

	endpoint := strings.TrimRight(n.baseURL, "/") + "/v2/everything?" + params.Encode()

	var resp newsAPIResponse
	if err := n.getJSON(ctx, endpoint, 0, &resp); err != nil {
		return nil, err
	}

	out := make([]news.Candidate, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		published, err := time.Parse(time.RFC3339, strings.TrimSpace(a.PublishedAt))
		if err != nil {
			continue
		}
		link := strings.TrimSpace(a.URL)
		title := strings.TrimSpace(a.Title)
		if title == "" || !news.IsHTTPURL(link) {
			continue
		}
		source := strings.TrimSpace(a.Source.Name)
		if source == "" {
			source = newsAPIDefaultSource
		}
		out = append(out, news.Candidate{
			Title:        title,
			URL:          link,
			Source:       source,
			Published:    news.NormalizeTime(published),
			Description:  sanitize.Text(a.Description),
			CategoryHint: hq.category,
		})
	}
	return out, nil
}
