package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/newscurator/internal/classifier"
	"github.com/deusflow/newscurator/internal/config"
	"github.com/deusflow/newscurator/internal/ranker"
	"github.com/deusflow/newscurator/internal/ratelimit"
	"github.com/deusflow/newscurator/internal/scraper"
	"github.com/deusflow/newscurator/internal/sources"
)

// Request pacing per API.
const (
	newsAPIInterval    = time.Second
	redditInterval     = 2 * time.Second
	hackerNewsInterval = 50 * time.Millisecond
	classifierInterval = 4 * time.Second
)

const enricherUserAgent = "Mozilla/5.0 (compatible; newscurator/1.0)"

// BuildAdapters creates the configured adapters in a fixed order: tech RSS,
// sports RSS, NewsAPI, Hacker News, Reddit.
func BuildAdapters(cfg *config.Config, log *slog.Logger) []sources.Adapter {
	if log == nil {
		log = slog.Default()
	}
	src := cfg.Sources
	withLog := sources.WithLogger(log.With("component", "sources"))

	adapters := sources.NewRSSFeeds(src.RSS, withLog)
	for _, u := range src.SportsRSS {
		adapters = append(adapters, sources.NewRSSFeed(u, withLog).WithCategoryHint("SPORTS"))
	}

	if cfg.NewsAPIKey != "" {
		adapters = append(adapters, sources.NewNewsAPI(cfg.NewsAPIKey, src.NewsAPIQueries,
			withLog,
			sources.WithLimiter(ratelimit.New("newsapi", newsAPIInterval, 1, 0)),
		))
	} else {
		log.Info("NEWSAPI_KEY not set, skipping NewsAPI")
	}

	if src.HackerNewsEnabled() {
		adapters = append(adapters, sources.NewHackerNews(
			withLog,
			sources.WithLimiter(ratelimit.New("hackernews", hackerNewsInterval, 5, 0)),
		))
	}

	reddit := ratelimit.New("reddit", redditInterval, 1, 0)
	adapters = append(adapters, sources.NewSubreddits(src.Subreddits, withLog, sources.WithLimiter(reddit))...)
	return adapters
}

// BuildEnricher returns the description enricher, or nil when ENRICH_LIMIT is 0.
func BuildEnricher(cfg *config.Config, log *slog.Logger) *scraper.Enricher {
	if cfg.EnrichLimit <= 0 {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	return &scraper.Enricher{
		Limit:       cfg.EnrichLimit,
		Concurrency: cfg.FetchConcurrency,
		UserAgent:   enricherUserAgent,
		Log:         log.With("component", "scraper"),
	}
}

// BuildClassifier returns the configured classifier, or nil for provider
// "none". The returned close function is never nil.
func BuildClassifier(ctx context.Context, cfg *config.Config, log *slog.Logger) (ranker.Classifier, func() error, error) {
	noop := func() error { return nil }
	limiter := ratelimit.New(cfg.ClassifierProvider, classifierInterval, 1, cfg.MaxClassifierRequests)

	switch cfg.ClassifierProvider {
	case config.ProviderGemini:
		model, err := classifier.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.ClassifierModel, limiter)
		if err != nil {
			return nil, noop, err
		}
		return classifier.New(model, log), model.Close, nil
	case config.ProviderOpenAI:
		model := classifier.NewOpenAIModel(cfg.OpenAIAPIKey, cfg.ClassifierModel, cfg.OpenAIBaseURL, limiter)
		return classifier.New(model, log), noop, nil
	case config.ProviderNone, "":
		return nil, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown classifier provider %q", cfg.ClassifierProvider)
	}
}
