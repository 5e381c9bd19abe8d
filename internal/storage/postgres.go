package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/deusflow/newscurator/internal/feedback"
	"github.com/deusflow/newscurator/internal/news"
)

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id SERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	url TEXT UNIQUE NOT NULL,
	source TEXT NOT NULL,
	published_date TIMESTAMPTZ,
	description TEXT,
	category TEXT,
	relevance_score DOUBLE PRECISION,
	user_feedback SMALLINT NOT NULL DEFAULT 0 CHECK (user_feedback IN (-1, 0, 1)),
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	read BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_date);
CREATE INDEX IF NOT EXISTS idx_articles_score ON articles(relevance_score);
CREATE INDEX IF NOT EXISTS idx_articles_feedback ON articles(user_feedback);
`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore keeps articles in PostgreSQL.
type PostgresStore struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects, pings and creates the schema.
func NewPostgresStore(ctx context.Context, dsn string, log *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := NewPostgresStoreFromDB(db, log)
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.log.Info("postgres store connected")
	return s, nil
}

// NewPostgresStoreFromDB wraps an open handle without touching the schema.
func NewPostgresStoreFromDB(db *sql.DB, log *slog.Logger) *PostgresStore {
	if log == nil {
		log = slog.Default()
	}
	return &PostgresStore{db: db, log: log.With("component", "storage"), now: time.Now}
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func insertArticle(c news.Candidate, fetchedAt time.Time) sq.InsertBuilder {
	var published sql.NullTime
	if !c.Published.IsZero() {
		published = sql.NullTime{Time: c.Published, Valid: true}
	}
	return psql.Insert("articles").
		Columns("title", "url", "source", "published_date", "description", "category", "relevance_score", "fetched_at").
		Values(c.Title, c.URL, c.Source, published, c.Description, c.Category, c.EffectiveScore(), fetchedAt).
		Suffix("ON CONFLICT (url) DO NOTHING")
}

// SaveSelected inserts all articles in one transaction. Conflicting URLs are
// skipped; the returned count only includes new rows.
func (s *PostgresStore) SaveSelected(ctx context.Context, cands []news.Candidate) (int, error) {
	if len(cands) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	fetchedAt := s.now().UTC()
	saved := 0
	for _, c := range cands {
		query, args, err := insertArticle(c, fetchedAt).ToSql()
		if err != nil {
			return 0, fmt.Errorf("build insert: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", c.URL, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			saved++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	if skipped := len(cands) - saved; skipped > 0 {
		s.log.Debug("skipped already stored articles", "count", skipped)
	}
	return saved, nil
}

func feedbackStatsQuery(dim feedback.Dimension) (sq.SelectBuilder, error) {
	var col string
	switch dim {
	case feedback.ByCategory:
		col = "category"
	case feedback.BySource:
		col = "source"
	default:
		return sq.SelectBuilder{}, fmt.Errorf("unknown feedback dimension %q", dim)
	}
	return psql.Select(
		col,
		"SUM(CASE WHEN user_feedback = 1 THEN 1 ELSE 0 END)",
		"SUM(CASE WHEN user_feedback = -1 THEN 1 ELSE 0 END)",
		"COUNT(*)",
	).
		From("articles").
		Where(sq.NotEq{"user_feedback": 0}).
		GroupBy(col).
		OrderBy(col), nil
}

func (s *PostgresStore) FeedbackStats(ctx context.Context, dim feedback.Dimension) ([]feedback.GroupStats, error) {
	b, err := feedbackStatsQuery(dim)
	if err != nil {
		return nil, err
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build feedback query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query feedback by %s: %w", dim, err)
	}
	defer rows.Close()

	var out []feedback.GroupStats
	for rows.Next() {
		var (
			key sql.NullString
			g   feedback.GroupStats
		)
		if err := rows.Scan(&key, &g.ThumbsUp, &g.ThumbsDown, &g.Total); err != nil {
			return nil, fmt.Errorf("scan feedback row: %w", err)
		}
		g.Key = key.String
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) RecentFeedback(ctx context.Context, limit int) ([]feedback.Rated, error) {
	if limit <= 0 {
		limit = feedback.DefaultRecentLimit
	}
	query, args, err := psql.Select("title", "category", "user_feedback").
		From("articles").
		Where(sq.NotEq{"user_feedback": 0}).
		OrderBy("fetched_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent feedback query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent feedback: %w", err)
	}
	defer rows.Close()

	var out []feedback.Rated
	for rows.Next() {
		var (
			r   feedback.Rated
			cat sql.NullString
		)
		if err := rows.Scan(&r.Title, &cat, &r.Feedback); err != nil {
			return nil, fmt.Errorf("scan rated row: %w", err)
		}
		r.Category = cat.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// SetFeedback records a thumbs up (1), down (-1) or clears it (0).
func (s *PostgresStore) SetFeedback(ctx context.Context, url string, rating int) error {
	if err := checkRating(rating); err != nil {
		return err
	}
	query, args, err := psql.Update("articles").
		Set("user_feedback", rating).
		Where(sq.Eq{"url": url}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build feedback update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update feedback: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	return nil
}

// Recent returns the most recently fetched articles.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]news.PersistedArticle, error) {
	if limit <= 0 {
		limit = 10
	}
	query, args, err := psql.Select(
		"id", "title", "url", "source", "published_date", "description",
		"category", "relevance_score", "user_feedback", "fetched_at", "read",
	).
		From("articles").
		OrderBy("fetched_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var out []news.PersistedArticle
	for rows.Next() {
		var (
			a         news.PersistedArticle
			published sql.NullTime
			desc, cat sql.NullString
			score     sql.NullFloat64
		)
		if err := rows.Scan(&a.ID, &a.Title, &a.URL, &a.Source, &published, &desc,
			&cat, &score, &a.UserFeedback, &a.FetchedAt, &a.Read); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		a.Published = published.Time
		a.Description = desc.String
		a.Category = cat.String
		a.RelevanceScore = score.Float64
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByCategory: map[string]int{}}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE user_feedback <> 0),
		       COUNT(*) FILTER (WHERE user_feedback = 1),
		       COUNT(*) FILTER (WHERE user_feedback = -1)
		FROM articles`).Scan(&st.Total, &st.Rated, &st.ThumbsUp, &st.ThumbsDown)
	if err != nil {
		return Stats{}, fmt.Errorf("query totals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT COALESCE(category, ''), COUNT(*) FROM articles GROUP BY 1`)
	if err != nil {
		return Stats{}, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cat string
			n   int
		)
		if err := rows.Scan(&cat, &n); err != nil {
			return Stats{}, fmt.Errorf("scan category: %w", err)
		}
		st.ByCategory[cat] = n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("rows iteration: %w", err)
	}
	return st, nil
}

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
