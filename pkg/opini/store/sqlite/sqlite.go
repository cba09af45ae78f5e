package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/opini/pkg/opini/internalerr"
	"github.com/cognicore/opini/pkg/opini/label"
	"github.com/cognicore/opini/pkg/opini/store"
)

// MemoryDSN keeps the database for the lifetime of the store only.
const MemoryDSN = ":memory:"

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// Open opens a SQLite-backed store. An empty dsn or MemoryDSN gives a
// run-scoped in-memory database; a file path enables WAL mode.
func Open(ctx context.Context, dsn string) (store.Store, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if dsn != MemoryDSN {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, err
		}
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// OpenFresh opens dsn like Open and deletes any results left by an earlier
// run, so a file database only ever holds the latest run.
func OpenFresh(ctx context.Context, dsn string) (store.Store, error) {
	st, err := Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := st.(*sqliteStore).db.ExecContext(ctx, "DELETE FROM results"); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS results (
	seq INTEGER PRIMARY KEY,
	post_id TEXT NOT NULL,
	user_name TEXT NOT NULL DEFAULT '',
	posted_at TEXT NOT NULL DEFAULT '',
	day TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	clean_text TEXT NOT NULL DEFAULT '',
	raw_label TEXT NOT NULL DEFAULT '',
	sentiment TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	error_text TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_results_sentiment ON results(status, sentiment);
CREATE INDEX IF NOT EXISTS idx_results_day ON results(day);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// PutResult inserts or replaces a result keyed by its sequence number
func (s *sqliteStore) PutResult(ctx context.Context, r store.Result) error {
	const stmt = `
INSERT INTO results (seq, post_id, user_name, posted_at, day, content, clean_text, raw_label, sentiment, status, error_text)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(seq) DO UPDATE SET
	post_id=excluded.post_id,
	user_name=excluded.user_name,
	posted_at=excluded.posted_at,
	day=excluded.day,
	content=excluded.content,
	clean_text=excluded.clean_text,
	raw_label=excluded.raw_label,
	sentiment=excluded.sentiment,
	status=excluded.status,
	error_text=excluded.error_text;
`
	postedAt := ""
	if !r.Date.IsZero() {
		postedAt = r.Date.Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx, stmt,
		r.Seq,
		r.ID,
		r.User,
		postedAt,
		r.Day(),
		r.Content,
		r.CleanText,
		r.RawLabel,
		string(r.Sentiment),
		string(r.Status),
		r.Error,
	)
	return wrapClosed(err)
}

// Results returns all rows ordered by input position
func (s *sqliteStore) Results(ctx context.Context) ([]store.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT seq, post_id, user_name, posted_at, content, clean_text, raw_label, sentiment, status, error_text
FROM results
ORDER BY seq`)
	if err != nil {
		return nil, wrapClosed(err)
	}
	defer rows.Close()

	var out []store.Result
	for rows.Next() {
		var (
			r                 store.Result
			postedAt          string
			sentiment, status string
		)
		if err := rows.Scan(&r.Seq, &r.ID, &r.User, &postedAt, &r.Content, &r.CleanText,
			&r.RawLabel, &sentiment, &status, &r.Error); err != nil {
			return nil, err
		}
		if postedAt != "" {
			if t, err := time.Parse(time.RFC3339Nano, postedAt); err == nil {
				r.Date = t
			}
		}
		r.Sentiment = label.Sentiment(sentiment)
		r.Status = store.Status(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// TextsByLabel returns the cleaned texts of successful rows with the label
func (s *sqliteStore) TextsByLabel(ctx context.Context, sentiment label.Sentiment) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT clean_text FROM results
WHERE status = ? AND sentiment = ?
ORDER BY seq`, string(store.StatusOK), string(sentiment))
	if err != nil {
		return nil, wrapClosed(err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		texts = append(texts, t)
	}
	return texts, rows.Err()
}

// Distribution counts successful rows per label
func (s *sqliteStore) Distribution(ctx context.Context) (map[label.Sentiment]int, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT sentiment, COUNT(*) FROM results
WHERE status = ?
GROUP BY sentiment`, string(store.StatusOK))
	if err != nil {
		return nil, wrapClosed(err)
	}
	defer rows.Close()

	dist := store.NewDistribution()
	for rows.Next() {
		var (
			sentiment string
			n         int
		)
		if err := rows.Scan(&sentiment, &n); err != nil {
			return nil, err
		}
		dist[label.Sentiment(sentiment)] += n
	}
	return dist, rows.Err()
}

// DailyCounts returns the per-day label counts of dated successful rows
func (s *sqliteStore) DailyCounts(ctx context.Context) ([]store.DailyCount, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT day, sentiment, COUNT(*) FROM results
WHERE status = ? AND day != ''
GROUP BY day, sentiment
ORDER BY day`, string(store.StatusOK))
	if err != nil {
		return nil, wrapClosed(err)
	}
	defer rows.Close()

	byDay := make(map[string]map[label.Sentiment]int)
	for rows.Next() {
		var (
			day, sentiment string
			n              int
		)
		if err := rows.Scan(&day, &sentiment, &n); err != nil {
			return nil, err
		}
		if byDay[day] == nil {
			byDay[day] = make(map[label.Sentiment]int)
		}
		byDay[day][label.Sentiment(sentiment)] += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return store.DailySeries(byDay), nil
}

func wrapClosed(err error) error {
	if errors.Is(err, sql.ErrConnDone) || (err != nil && err.Error() == "sql: database is closed") {
		return errors.Join(internalerr.ErrStoreClosed, err)
	}
	return err
}
