// Package scraper fills in missing candidate descriptions from the article page.
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/newscurator/internal/news"
	"github.com/deusflow/newscurator/internal/sanitize"
)

const (
	defaultTimeout     = 8 * time.Second
	defaultConcurrency = 4
	maxPageBytes       = 2 << 20
	maxDescription     = 500
	minParagraph       = 40
)

// Doer sends HTTP requests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Enricher fetches article pages for candidates without a description.
type Enricher struct {
	Client      Doer
	Limit       int // max pages per call, 0 disables enrichment
	Concurrency int
	Timeout     time.Duration
	UserAgent   string
	Log         *slog.Logger
}

// metaSelectors are tried in order before falling back to body paragraphs.
var metaSelectors = []string{
	`meta[property="og:description"]`,
	`meta[name="description"]`,
	`meta[name="twitter:description"]`,
}

var paragraphSelectors = []string{
	"article p",
	".article-body p",
	".article-content p",
	".post-content p",
	".entry-content p",
	"main p",
}

// Enrich fills Description in place for up to Limit candidates that have none
// and returns how many were filled. Page failures leave the candidate as is.
func (e *Enricher) Enrich(ctx context.Context, cands []news.Candidate) int {
	if e == nil || e.Limit <= 0 {
		return 0
	}
	log := e.Log
	if log == nil {
		log = slog.Default()
	}

	var todo []int
	for i, c := range cands {
		if strings.TrimSpace(c.Description) == "" {
			todo = append(todo, i)
			if len(todo) == e.Limit {
				break
			}
		}
	}
	if len(todo) == 0 {
		return 0
	}

	var (
		g      errgroup.Group
		filled atomic.Int64
	)
	limit := e.Concurrency
	if limit < 1 {
		limit = defaultConcurrency
	}
	g.SetLimit(limit)

	for _, i := range todo {
		g.Go(func() error {
			desc, err := e.Describe(ctx, cands[i].URL)
			if err != nil {
				log.Debug("description not found", "url", cands[i].URL, "error", err)
				return nil
			}
			cands[i].Description = desc
			filled.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	n := int(filled.Load())
	log.Info("descriptions enriched", "attempted", len(todo), "filled", n)
	return n
}

// Describe returns a short plain-text summary of the page at url.
func (e *Enricher) Describe(ctx context.Context, url string) (string, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if e.UserAgent != "" {
		req.Header.Set("User-Agent", e.UserAgent)
	}

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error loading page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("error parsing HTML: %w", err)
	}

	desc := extract(doc)
	if desc == "" {
		return "", fmt.Errorf("no description on page")
	}
	return desc, nil
}

func extract(doc *goquery.Document) string {
	for _, sel := range metaSelectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if text := sanitize.Text(content); text != "" {
				return sanitize.Truncate(text, maxDescription)
			}
		}
	}

	for _, sel := range paragraphSelectors {
		var parts []string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := sanitize.Text(s.Text())
			if len(text) >= minParagraph {
				parts = append(parts, text)
			}
			return len(parts) < 2
		})
		if len(parts) > 0 {
			return sanitize.Truncate(strings.Join(parts, " "), maxDescription)
		}
	}
	return ""
}
