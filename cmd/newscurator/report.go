package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"time"

	"github.com/deusflow/newscurator/internal/app"
	"github.com/deusflow/newscurator/internal/news"
	"github.com/deusflow/newscurator/internal/storage"
)

func printReport(w io.Writer, rep app.Report) {
	fmt.Fprintf(w, "Run %s finished in %s\n", rep.RunID, rep.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Fetched %d candidates, %d duplicates, %d source failures\n",
		rep.Fetched, rep.Duplicates, len(rep.Failures))
	if rep.Enriched > 0 {
		fmt.Fprintf(w, "Enriched %d descriptions\n", rep.Enriched)
	}
	if len(rep.Rejected) > 0 {
		reasons := make([]string, 0, len(rep.Rejected))
		for r := range rep.Rejected {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Fprintf(w, "  rejected %s: %d\n", r, rep.Rejected[r])
		}
	}

	for _, f := range rep.Feeds {
		sel := f.Selection
		fmt.Fprintf(w, "\n== %s: %d of %d (pool %d, excluded %d)\n",
			f.Name, len(sel.Articles), sel.Requested, f.Pool, f.Excluded)
		if sel.Fallback {
			fmt.Fprintf(w, "   classifier fallback: %s\n", sel.FallbackReason)
		}
		for i, a := range sel.Articles {
			fmt.Fprintf(w, "%3d. [%s] %s\n", i+1, a.Category, a.Title)
			fmt.Fprintf(w, "     %s | %s | score %.2f\n", a.Source, a.URL, a.EffectiveScore())
		}
	}

	fmt.Fprintf(w, "\nSaved %d new articles (%d already stored)\n", rep.Saved, rep.Conflicts)
	for _, warn := range rep.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

type jsonArticle struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Source    string    `json:"source"`
	Category  string    `json:"category"`
	Score     float64   `json:"score"`
	Boost     float64   `json:"boost"`
	Published time.Time `json:"published"`
}

type jsonFeed struct {
	Name     string        `json:"name"`
	Fallback bool          `json:"fallback"`
	Articles []jsonArticle `json:"articles"`
}

type jsonReport struct {
	RunID      string         `json:"run_id"`
	Fetched    int            `json:"fetched"`
	Duplicates int            `json:"duplicates"`
	Enriched   int            `json:"enriched"`
	Rejected   map[string]int `json:"rejected"`
	Feeds      []jsonFeed     `json:"feeds"`
	Saved      int            `json:"saved"`
	Conflicts  int            `json:"conflicts"`
	Warnings   []string       `json:"warnings"`
	ElapsedMS  int64          `json:"elapsed_ms"`
}

func toJSONArticles(cands []news.Candidate) []jsonArticle {
	out := make([]jsonArticle, 0, len(cands))
	for _, c := range cands {
		out = append(out, jsonArticle{
			Title:     c.Title,
			URL:       c.URL,
			Source:    c.Source,
			Category:  c.Category,
			Score:     c.Score,
			Boost:     c.Boost,
			Published: c.Published,
		})
	}
	return out
}

func writeReportJSON(w io.Writer, rep app.Report) error {
	out := jsonReport{
		RunID:      rep.RunID,
		Fetched:    rep.Fetched,
		Duplicates: rep.Duplicates,
		Enriched:   rep.Enriched,
		Rejected:   rep.Rejected,
		Saved:      rep.Saved,
		Conflicts:  rep.Conflicts,
		Warnings:   rep.Warnings,
		ElapsedMS:  rep.Elapsed.Milliseconds(),
	}
	for _, f := range rep.Feeds {
		out.Feeds = append(out.Feeds, jsonFeed{
			Name:     f.Name,
			Fallback: f.Selection.Fallback,
			Articles: toJSONArticles(f.Selection.Articles),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printDBCheck(w io.Writer, stats storage.Stats, recent []news.PersistedArticle) {
	fmt.Fprintln(w, "Store is reachable")
	fmt.Fprintf(w, "  Total articles: %d\n", stats.Total)
	fmt.Fprintf(w, "  Rated: %d (%d up, %d down)\n", stats.Rated, stats.ThumbsUp, stats.ThumbsDown)

	cats := make([]string, 0, len(stats.ByCategory))
	for c := range stats.ByCategory {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		fmt.Fprintf(w, "  %s: %d\n", c, stats.ByCategory[c])
	}

	fmt.Fprintf(w, "\nRecent articles (last %d):\n", len(recent))
	if len(recent) == 0 {
		fmt.Fprintln(w, "  (nothing stored yet)")
		return
	}
	for i, a := range recent {
		fmt.Fprintf(w, "  %d. %s\n", i+1, a.Title)
		fmt.Fprintf(w, "     Category: %s | Fetched: %s | Feedback: %+d\n",
			a.Category, a.FetchedAt.Format("2006-01-02 15:04:05"), a.UserFeedback)
	}
}

// maskPassword hides the password of a connection URL.
func maskPassword(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
