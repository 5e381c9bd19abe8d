package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newscurator/internal/news"
)

const rssFixture = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>TechCrunch</title>
<item><title>Aware date</title><link>https://tc.example/a</link>
  <description>&lt;p&gt;Hello &lt;b&gt;there&lt;/b&gt;&lt;/p&gt;</description>
  <pubDate>Mon, 10 Mar 2025 10:00:00 +0200</pubDate></item>
<item><title>No date</title><link>https://tc.example/b</link></item>
<item><title>Relative link</title><link>/c</link><pubDate>Mon, 10 Mar 2025 10:00:00 +0000</pubDate></item>
<item><title></title><link>https://tc.example/d</link><pubDate>Mon, 10 Mar 2025 10:00:00 +0000</pubDate></item>
</channel></rss>`

func TestRSSFeed_ParsesAndNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	items, err := NewRSSFeed(srv.URL).Fetch(context.Background(), time.Hour)
	require.NoError(t, err)
	require.Len(t, items, 1)

	got := items[0]
	assert.Equal(t, "TechCrunch", got.Source)
	assert.Equal(t, "Hello there", got.Description)
	assert.Equal(t, time.UTC, got.Published.Location())
	assert.Equal(t, time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), got.Published)
}

func TestRSSFeed_LabelFallsBackToURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<rss version="2.0"><channel><item><title>x</title><link>https://e.example/x</link><pubDate>Mon, 10 Mar 2025 10:00:00 GMT</pubDate></item></channel></rss>`))
	}))
	defer srv.Close()

	items, err := NewRSSFeed(srv.URL).Fetch(context.Background(), time.Hour)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, srv.URL, items[0].Source)
}

func TestRSSFeed_CapsEntries(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<rss version="2.0"><channel><title>Big</title>`)
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, `<item><title>t%d</title><link>https://big.example/%d</link><pubDate>Mon, 10 Mar 2025 10:00:00 +0000</pubDate></item>`, i, i)
	}
	b.WriteString(`</channel></rss>`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(b.String()))
	}))
	defer srv.Close()

	items, err := NewRSSFeed(srv.URL).Fetch(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Len(t, items, maxEntriesPerFeed)
}

func TestRSSFeed_UnreachableAndMalformed(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a feed at all"))
	}))
	defer garbage.Close()

	for _, u := range []string{down.URL, garbage.URL} {
		items, err := NewRSSFeed(u).Fetch(context.Background(), time.Hour)
		assert.Empty(t, items)
		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, u, fe.Source)
	}
}

func TestParseFeedDate_Fallbacks(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Time
	}{
		{raw: "2025-03-10T09:30:00", want: time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)},
		{raw: "2025-03-10", want: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{raw: "Mon, 10 Mar 2025 09:30:00", want: time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)},
		{raw: "2025-03-10T09:30:00+01:00", want: time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)},
		{raw: "Mon, 10 Mar 2025 09:30:00 -0500", want: time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, ok := parseFeedDate(tc.raw, time.UTC)
		require.True(t, ok, tc.raw)
		assert.True(t, tc.want.Equal(got), "%s: got %v", tc.raw, got)
		assert.Equal(t, time.UTC, got.Location(), tc.raw)
	}
	_, ok := parseFeedDate("last tuesday", time.UTC)
	assert.False(t, ok)
}

func TestNewsAPI_NoKeyIsEmptyNotError(t *testing.T) {
	items, err := NewNewsAPI("", []CategoryQueries{{Category: "AI_TECH", Queries: []string{"ai"}}}).
		Fetch(context.Background(), time.Hour)
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestNewsAPI_QueryPlanAndHints(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/v2/everything", r.URL.Path)
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "publishedAt", q.Get("sortBy"))
		assert.Equal(t, "5", q.Get("pageSize"))
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))
		assert.Empty(t, q.Get("apiKey"))
		queries = append(queries, q.Get("q"))
		fmt.Fprintf(w, `{"status":"ok","articles":[
			{"source":{"name":""},"title":"About %[1]s","url":"https://n.example/%[1]s","publishedAt":"2025-03-10T10:00:00Z","description":"d"},
			{"source":{"name":"X"},"title":"no url","url":"","publishedAt":"2025-03-10T10:00:00Z"},
			{"source":{"name":"X"},"title":"bad date","url":"https://n.example/bad","publishedAt":"soon"}]}`, q.Get("q"))
	}))
	defer srv.Close()

	var cq []CategoryQueries
	for c := 0; c < 6; c++ {
		cq = append(cq, CategoryQueries{Category: fmt.Sprintf("C%d", c), Queries: []string{"q1", "q2", "q3"}})
	}
	items, err := NewNewsAPI("key", cq, WithBaseURL(srv.URL)).Fetch(context.Background(), 24*time.Hour)
	require.NoError(t, err)

	assert.Len(t, queries, 10)
	require.Len(t, items, 10)
	assert.Equal(t, "C0", items[0].CategoryHint)
	assert.Equal(t, "C4", items[9].CategoryHint)
	assert.Equal(t, "NewsAPI", items[0].Source)
}

func TestNewsAPI_AllQueriesFailing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewNewsAPI("key", []CategoryQueries{{Category: "A", Queries: []string{"x"}}}, WithBaseURL(srv.URL)).
		Fetch(context.Background(), time.Hour)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "newsapi", fe.Source)
}

func TestNewsAPI_KeyNeverInErrors(t *testing.T) {
	const secret = "SECRET-KEY-123"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	closed := srv.URL
	srv.Close()

	_, err := NewNewsAPI(secret, []CategoryQueries{{Category: "A", Queries: []string{"x", "y"}}}, WithBaseURL(closed)).
		Fetch(context.Background(), time.Hour)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, err.Error(), "/v2/everything")
	assert.NotContains(t, err.Error(), secret)
}

func TestHackerNews_FiltersStories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v0/topstories.json":
			_, _ = w.Write([]byte(`[1,2,3,4]`))
		case "/v0/item/1.json":
			_, _ = w.Write([]byte(`{"id":1,"type":"story","title":"Show HN","url":"https://hn.example/1","time":1741600800,"text":"<p>` + strings.Repeat("x", 600) + `</p>","extra":{"nested":true}}`))
		case "/v0/item/2.json":
			_, _ = w.Write([]byte(`{"id":2,"type":"story","title":"Ask HN","time":1741600800}`))
		case "/v0/item/3.json":
			_, _ = w.Write([]byte(`{"id":3,"type":"job","title":"Hiring","url":"https://hn.example/3","time":1741600800}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	items, err := NewHackerNews(WithBaseURL(srv.URL)).Fetch(context.Background(), time.Hour)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Hacker News", items[0].Source)
	assert.Equal(t, time.Unix(1741600800, 0).UTC(), items[0].Published)
	assert.Len(t, []rune(items[0].Description), 500)
}

func TestHackerNews_ListFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"oops":`))
	}))
	defer srv.Close()

	_, err := NewHackerNews(WithBaseURL(srv.URL)).Fetch(context.Background(), time.Hour)
	var fe *FetchError
	assert.ErrorAs(t, err, &fe)
}

func TestReddit_SkipsSelfPostsAndSetsUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/artificial/hot.json", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "PersonalizedNews/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"data":{"children":[
			{"data":{"title":"Link post","url":"https://ext.example/a","is_self":false,"selftext":"","created_utc":1741600800.5}},
			{"data":{"title":"Self post","url":"https://reddit.example/self","is_self":true,"selftext":"musings","created_utc":1741600800}},
			{"data":{"title":"Crosslinked","url":"https://ext.example/b","url_overridden_by_dest":"https://ext.example/b","is_self":true,"created_utc":1741600800}}
		]}}`))
	}))
	defer srv.Close()

	r := NewReddit("artificial", WithBaseURL(srv.URL))
	assert.Equal(t, "r/artificial", r.Name())
	items, err := r.Fetch(context.Background(), time.Hour)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "r/artificial", items[0].Source)
	assert.Equal(t, "https://ext.example/b", items[1].URL)
	assert.Equal(t, int64(1741600800), items[0].Published.Unix())
}

type stubAdapter struct {
	name  string
	items []news.Candidate
	err   error
	delay time.Duration
	calls *atomic.Int32
	// deaf adapters sleep through cancellation.
	deaf bool
}

func (s stubAdapter) Name() string { return s.name }

func (s stubAdapter) Fetch(ctx context.Context, _ time.Duration) ([]news.Candidate, error) {
	if s.calls != nil {
		s.calls.Add(1)
	}
	if s.delay > 0 && s.deaf {
		time.Sleep(s.delay)
	} else if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.items, s.err
}

func items(prefix string, n int) []news.Candidate {
	out := make([]news.Candidate, n)
	for i := range out {
		out[i] = news.Candidate{Title: fmt.Sprintf("%s%d", prefix, i), URL: fmt.Sprintf("https://%s.example/%d", prefix, i)}
	}
	return out
}

func TestCollector_DeterministicOrderAndIsolation(t *testing.T) {
	adapters := []Adapter{
		stubAdapter{name: "slow", items: items("slow", 2), delay: 30 * time.Millisecond},
		stubAdapter{name: "broken", err: fmt.Errorf("dns failure")},
		stubAdapter{name: "fast", items: items("fast", 1)},
	}
	c := &Collector{Concurrency: 3, Window: time.Hour}
	col := c.Collect(context.Background(), adapters)

	require.Len(t, col.Results, 3)
	assert.Equal(t, "slow", col.Results[0].Adapter)
	assert.Equal(t, "fast", col.Results[2].Adapter)

	cands := col.Candidates()
	require.Len(t, cands, 3)
	assert.Equal(t, "slow0", cands[0].Title)
	assert.Equal(t, "fast0", cands[2].Title)

	failures := col.Failures()
	require.Len(t, failures, 1)
	var fe *FetchError
	require.ErrorAs(t, failures[0].Err, &fe)
	assert.Equal(t, "broken", fe.Source)
}

func TestCollector_EarlyStopSkipsRemaining(t *testing.T) {
	var late atomic.Int32
	adapters := []Adapter{
		stubAdapter{name: "a", items: items("a", 5)},
		stubAdapter{name: "b", items: items("b", 5), calls: &late},
		stubAdapter{name: "c", items: items("c", 5), calls: &late},
	}
	c := &Collector{Concurrency: 1, EnoughCandidates: 5}
	col := c.Collect(context.Background(), adapters)

	assert.Len(t, col.Candidates(), 5)
	assert.Equal(t, int32(0), late.Load())
	assert.True(t, col.Results[1].Skipped)
	assert.True(t, col.Results[2].Skipped)
	assert.Empty(t, col.Failures())
}

func TestCollector_EarlyStopKeepsRealFailures(t *testing.T) {
	adapters := []Adapter{
		stubAdapter{name: "a", items: items("a", 5)},
		stubAdapter{name: "dns", err: fmt.Errorf("dns failure"), delay: 50 * time.Millisecond, deaf: true},
		stubAdapter{name: "slow", items: items("slow", 1), delay: time.Second},
	}
	c := &Collector{Concurrency: 3, EnoughCandidates: 5}
	col := c.Collect(context.Background(), adapters)

	assert.False(t, col.Results[1].Skipped)
	assert.True(t, col.Results[1].Unavailable())
	assert.ErrorContains(t, col.Results[1].Err, "dns failure")
	assert.True(t, col.Results[2].Skipped, "cancelled by the early stop")

	failures := col.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "dns", failures[0].Adapter)
}

func TestCollector_RunDeadline(t *testing.T) {
	adapters := []Adapter{
		stubAdapter{name: "hang", delay: time.Second},
		stubAdapter{name: "ok", items: items("ok", 1)},
	}
	c := &Collector{Concurrency: 2, RunDeadline: 30 * time.Millisecond}
	start := time.Now()
	col := c.Collect(context.Background(), adapters)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.True(t, col.Results[0].Unavailable())
	assert.Len(t, col.Candidates(), 1)
}
