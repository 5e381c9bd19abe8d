package config

import (
	"fmt"

	"github.com/deusflow/newscurator/internal/news"
	"github.com/deusflow/newscurator/internal/sources"
)

// FeedProfile describes one output feed.
type FeedProfile struct {
	Name           string           `yaml:"name"`
	TargetCategory string           `yaml:"target_category"` // key for exclusion rules
	Count          int              `yaml:"count"`
	Categories     []string         `yaml:"categories"`
	ForceCategory  string           `yaml:"force_category"`
	Routed         bool             `yaml:"routed"` // receives candidates matched by routing
	SourceCaps     *news.SourceCaps `yaml:"source_caps"`
	Brief          string           `yaml:"brief"`
	Rules          []string         `yaml:"rules"`
}

// Sources is the content of the sources file.
type Sources struct {
	RSS            []string                  `yaml:"rss"`
	SportsRSS      []string                  `yaml:"sports_rss"`
	Subreddits     []string                  `yaml:"subreddits"`
	HackerNews     *bool                     `yaml:"hackernews"`
	NewsAPIQueries []sources.CategoryQueries `yaml:"newsapi_queries"`
	Categories     []news.Category           `yaml:"categories"`
	SourceCaps     news.SourceCaps           `yaml:"source_caps"`
	Exclusion      news.ExclusionFilter      `yaml:"exclusion"`
	Routing        news.Router               `yaml:"routing"`
	Feeds          []FeedProfile             `yaml:"feeds"`
}

// HackerNewsEnabled defaults to true.
func (s Sources) HackerNewsEnabled() bool {
	return s.HackerNews == nil || *s.HackerNews
}

func (s Sources) withDefaults(def Sources) Sources {
	if len(s.RSS) == 0 {
		s.RSS = def.RSS
	}
	if len(s.SportsRSS) == 0 {
		s.SportsRSS = def.SportsRSS
	}
	if len(s.Subreddits) == 0 {
		s.Subreddits = def.Subreddits
	}
	if len(s.NewsAPIQueries) == 0 {
		s.NewsAPIQueries = def.NewsAPIQueries
	}
	if len(s.Categories) == 0 {
		s.Categories = def.Categories
	}
	if s.SourceCaps.Default == 0 && len(s.SourceCaps.Caps) == 0 && len(s.SourceCaps.Groups) == 0 {
		s.SourceCaps = def.SourceCaps
	}
	if len(s.Exclusion.Global) == 0 && len(s.Exclusion.Rules) == 0 {
		s.Exclusion = def.Exclusion
	}
	if len(s.Routing.Markers) == 0 && len(s.Routing.Hints) == 0 {
		s.Routing = def.Routing
	}
	if len(s.Feeds) == 0 {
		s.Feeds = def.Feeds
	}
	return s
}

func (s Sources) category(name string) (news.Category, bool) {
	for _, c := range s.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return news.Category{}, false
}

func (s Sources) Validate() error {
	if len(s.Feeds) == 0 {
		return fmt.Errorf("no feeds configured")
	}
	names := map[string]struct{}{}
	for _, f := range s.Feeds {
		if f.Name == "" {
			return fmt.Errorf("feed with empty name")
		}
		if _, dup := names[f.Name]; dup {
			return fmt.Errorf("duplicate feed %q", f.Name)
		}
		names[f.Name] = struct{}{}
		for _, c := range f.Categories {
			if _, ok := s.category(c); !ok {
				return fmt.Errorf("feed %q references unknown category %q", f.Name, c)
			}
		}
	}
	return nil
}

// DefaultSources is the curated setup the project ships with.
func DefaultSources() Sources {
	return Sources{
		RSS: []string{
			"https://hnrss.org/frontpage",
			"https://techcrunch.com/feed/",
			"https://www.theverge.com/rss/index.xml",
			"https://feeds.arstechnica.com/arstechnica/technology-lab",
			"https://www.artificialintelligence-news.com/feed/",
			"https://blog.google/technology/ai/rss/",
			"https://rss.nytimes.com/services/xml/rss/nyt/Technology.xml",
			"https://rss.nytimes.com/services/xml/rss/nyt/Business.xml",
			"https://www.techmeme.com/feed.xml",
			"https://www.wired.com/feed/rss",
			"https://www.axios.com/feeds/feed.rss",
			"https://venturebeat.com/feed/",
			"https://www.theinformation.com/feed",
			"https://www.technologyreview.com/feed/",
		},
		SportsRSS: []string{
			"https://www.espn.com/espn/rss/tennis/news",
			"https://www.theguardian.com/sport/tennis/rss",
			"https://www.bbc.com/sport/tennis/rss.xml",
			"https://www.espn.com/espn/rss/soccer/news",
			"https://www.theguardian.com/football/rss",
			"https://www.bbc.com/sport/football/rss.xml",
			"https://www.espn.com/espn/rss/nba/news",
			"https://www.theguardian.com/sport/nba/rss",
			"https://www.bbc.com/sport/basketball/rss.xml",
			"https://www.cbssports.com/rss/headlines/",
			"https://sports.yahoo.com/rss/",
		},
		Subreddits: []string{
			"artificial", "MachineLearning", "singularity", "ChatGPT", "ChatGPTPro",
			"ClaudeAI", "LocalLLaMA", "OpenAI", "AutomateYourself", "productivity",
			"Oobabooga", "StableDiffusion", "tennis", "nba", "soccer", "hyrox",
		},
		NewsAPIQueries: []sources.CategoryQueries{
			{Category: "AI_PRODUCTIVITY", Queries: []string{"AI automation", "AI productivity tools", "AI workflow"}},
			{Category: "AI_TECH", Queries: []string{"artificial intelligence", "new AI model", "OpenAI", "Anthropic"}},
			{Category: "BUSINESS_TECH", Queries: []string{"tech startup funding", "tech acquisition", "tech valuation"}},
			{Category: "SPORTS", Queries: []string{"tennis ATP", "tennis WTA", "NBA", "NFL"}},
			{Category: "WEARABLES", Queries: []string{"Oura ring", "fitness wearable"}},
			{Category: "LANGUAGE_LEARNING", Queries: []string{"AI language learning"}},
		},
		Categories: []news.Category{
			{
				Name:     "AI_PRODUCTIVITY",
				Priority: 1,
				Required: true,
				Keywords: []string{
					"ai productivity", "automation tools", "ai agents", "workflow automation",
					"personal ai", "ai assistant", "ai workflows", "zapier", "n8n",
					"cursor", "copilot", "claude projects", "chatgpt plugins",
				},
			},
			{
				Name:     "AI_PRODUCTIVITY_PERSONAL",
				Priority: 1,
				Required: true,
				Minimum:  5,
				Keywords: []string{
					"built with ai", "ai workflow", "how i use ai", "ai automation",
					"productivity hack", "my ai setup", "ai tools i use", "show hn",
					"i made", "automated with ai", "ai project", "personal automation",
				},
				Description: "Personal posts from people sharing AI productivity hacks and workflows",
			},
			{
				Name:     "AI_TECH",
				Priority: 2,
				Required: true,
				Keywords: []string{
					"artificial intelligence", "machine learning", "new ai model",
					"openai", "anthropic", "google ai", "llm", "gpt", "claude",
					"ai breakthrough", "ai research", "neural network",
				},
			},
			{
				Name:     "BUSINESS_TECH",
				Priority: 3,
				Required: true,
				Keywords: []string{
					"startup", "funding", "valuation", "acquisition", "ipo",
					"venture capital", "tech company", "strategy", "market shift",
					"big tech", "meta", "apple", "google", "amazon", "microsoft",
				},
			},
			{
				Name:     "SPORTS",
				Priority: 4,
				Required: true,
				Minimum:  2,
				Keywords: []string{
					"tennis", "atp", "wta", "grand slam", "wimbledon", "us open", "french open", "australian open",
					"olympics", "olympic", "hyrox", "fitness racing", "crossfit",
					"world cup soccer", "fifa", "premier league", "la liga", "champions league",
					"nba", "basketball", "football", "soccer", "messi", "ronaldo",
				},
			},
			{
				Name:     "WEARABLES",
				Priority: 5,
				Keywords: []string{"oura ring", "whoop", "wearable", "fitness tracker", "health tech"},
			},
			{
				Name:     "LANGUAGE_LEARNING",
				Priority: 6,
				Keywords: []string{"language learning", "duolingo", "ai language", "language ai"},
			},
		},
		SourceCaps: news.SourceCaps{
			Caps: map[string]int{
				"TechCrunch":        8,
				"r/singularity":     3,
				"r/artificial":      3,
				"r/ChatGPT":         3,
				"r/ClaudeAI":        3,
				"r/MachineLearning": 3,
			},
			Default: 5,
			Groups: []news.SourceGroup{
				{Name: "hackernews", Members: []string{"Hacker News: Front Page", "Hacker News"}, Cap: 5},
			},
		},
		Exclusion: news.ExclusionFilter{
			Rules: []news.ExclusionRule{
				{
					ExemptCategory: "SPORTS",
					Sources: []string{
						"Times of India", "The Times of India", "MensHealth.com", "Men's Health",
						"Fitnessista", "The Fitnessista", "r/tennis", "r/nba", "r/nfl",
						"ESPN", "Fitness", "Health",
					},
				},
			},
		},
		Routing: news.Router{
			Markers: []string{
				"espn", "marca", "si.com", "tennis", "guardian", "bbc", "cnn",
				"nyt > sports", "ringer", "r/tennis", "r/nba", "r/soccer", "r/hyrox",
			},
			Hints: []string{"SPORTS"},
		},
		Feeds: []FeedProfile{
			{
				Name:           "tech",
				TargetCategory: "AI_TECH",
				Count:          30,
				Categories:     []string{"AI_PRODUCTIVITY", "AI_PRODUCTIVITY_PERSONAL", "AI_TECH", "BUSINESS_TECH", "WEARABLES", "LANGUAGE_LEARNING"},
				Brief:          "You are selecting articles for a personalized AI & Tech news digest.",
				Rules: []string{
					"NO SPORTS articles - this is an AI & Tech feed only",
					"Prioritize AI_PRODUCTIVITY, AI_PRODUCTIVITY_PERSONAL and AI_TECH articles highest",
					"Ensure category diversity across all categories",
				},
			},
			{
				Name:           "sports",
				TargetCategory: "SPORTS",
				Count:          30,
				Categories:     []string{"SPORTS"},
				ForceCategory:  "SPORTS",
				Routed:         true,
				SourceCaps:     &news.SourceCaps{Default: 3},
				Brief:          "You are selecting SPORTS articles for a personalized news digest.",
				Rules: []string{
					"All articles MUST be about SPORTS",
					"Prioritize: Tennis > Olympic Sports > Hyrox > Soccer/Football > NBA",
					"AVOID NFL content (user dislikes American football)",
					"Focus on actual sports news, matches, tournaments, player news",
					"Ensure diversity across different sports",
				},
			},
		},
	}
}
