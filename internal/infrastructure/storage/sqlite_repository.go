package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // SQLite driver

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/enrich/linking"
	"ArticleEnricher/internal/ports"
)

const enrichedTable = "enriched_documents"

const schema = `CREATE TABLE IF NOT EXISTS enriched_documents (
	slug         TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	category     TEXT NOT NULL DEFAULT '',
	keywords     TEXT NOT NULL DEFAULT '[]',
	url          TEXT NOT NULL,
	body         TEXT NOT NULL,
	payload      TEXT NOT NULL,
	published_at TEXT NOT NULL DEFAULT '',
	enriched_at  TEXT NOT NULL
)`

// SQLiteRepository persists enriched documents into SQLite and serves the
// corpus snapshot from the same table.
type SQLiteRepository struct {
	db         *sql.DB
	urlPattern string
}

var (
	_ ports.DocumentStore = (*SQLiteRepository)(nil)
	_ ports.CorpusSource  = (*SQLiteRepository)(nil)
)

// OpenSQLite opens the database behind dsn with WAL and a busy timeout.
func OpenSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return db, nil
}

// NewSQLiteRepository wires a sql.DB implementation. urlPattern builds
// corpus URLs from slugs (see linking.DocumentURL).
func NewSQLiteRepository(db *sql.DB, urlPattern string) *SQLiteRepository {
	return &SQLiteRepository{db: db, urlPattern: urlPattern}
}

// Migrate creates the table when missing.
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create %s: %w", enrichedTable, err)
	}
	return nil
}

// AlreadyEnriched returns the slugs whose stored body carries the marker.
func (r *SQLiteRepository) AlreadyEnriched(ctx context.Context, slugs []string) (map[string]bool, error) {
	if r.db == nil || len(slugs) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := squirrel.Select("slug").
		From(enrichedTable).
		Where(squirrel.Eq{"slug": slugs}).
		Where(squirrel.Like{"body": "%" + domain.EnrichedMarker + "%"}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build enriched query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query enriched: %w", err)
	}

	result := make(map[string]bool)
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan slug: %w", err)
		}
		result[slug] = true
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// SaveEnriched upserts the enriched document snapshot.
func (r *SQLiteRepository) SaveEnriched(ctx context.Context, doc domain.EnrichedDocument) error {
	if r.db == nil {
		return nil
	}

	keywords, err := json.Marshal(doc.Document.Keywords)
	if err != nil {
		return fmt.Errorf("encode keywords: %w", err)
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	published := doc.Document.PublishedAt
	if published.IsZero() {
		published = doc.EnrichedAt
	}

	query, args, err := squirrel.Insert(enrichedTable).
		Columns("slug", "title", "category", "keywords", "url", "body", "payload", "published_at", "enriched_at").
		Values(
			doc.Document.Slug,
			doc.Document.Title,
			doc.Document.Category,
			string(keywords),
			linking.DocumentURL(r.urlPattern, doc.Document.Slug),
			doc.Document.Body,
			string(payload),
			formatTime(published),
			formatTime(doc.EnrichedAt),
		).
		Suffix(`ON CONFLICT (slug) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			keywords = excluded.keywords,
			url = excluded.url,
			body = excluded.body,
			payload = excluded.payload,
			published_at = excluded.published_at,
			enriched_at = excluded.enriched_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert enriched: %w", err)
	}

	return nil
}

// LoadEnriched returns the full stored snapshot of one document.
func (r *SQLiteRepository) LoadEnriched(ctx context.Context, slug string) (domain.EnrichedDocument, bool, error) {
	query, args, err := squirrel.Select("payload").
		From(enrichedTable).
		Where(squirrel.Eq{"slug": slug}).
		ToSql()
	if err != nil {
		return domain.EnrichedDocument{}, false, fmt.Errorf("build payload query: %w", err)
	}

	var payload string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.EnrichedDocument{}, false, nil
	}
	if err != nil {
		return domain.EnrichedDocument{}, false, fmt.Errorf("query payload: %w", err)
	}

	var doc domain.EnrichedDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return domain.EnrichedDocument{}, false, fmt.Errorf("decode payload %s: %w", slug, err)
	}
	return doc, true, nil
}

// LoadCorpus returns every stored document, oldest slug first.
func (r *SQLiteRepository) LoadCorpus(ctx context.Context) (domain.Corpus, error) {
	if r.db == nil {
		return domain.NewCorpus(nil), nil
	}

	query, args, err := squirrel.Select("slug", "title", "category", "keywords", "url", "published_at").
		From(enrichedTable).
		OrderBy("slug").
		ToSql()
	if err != nil {
		return domain.Corpus{}, fmt.Errorf("build corpus query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Corpus{}, fmt.Errorf("query corpus: %w", err)
	}
	defer rows.Close()

	var entries []domain.CorpusEntry
	for rows.Next() {
		var (
			entry     domain.CorpusEntry
			keywords  string
			published string
		)
		if err := rows.Scan(&entry.Slug, &entry.Title, &entry.Category, &keywords, &entry.URL, &published); err != nil {
			return domain.Corpus{}, fmt.Errorf("scan corpus row: %w", err)
		}
		if err := json.Unmarshal([]byte(keywords), &entry.Keywords); err != nil {
			return domain.Corpus{}, fmt.Errorf("decode keywords of %s: %w", entry.Slug, err)
		}
		entry.PublishedAt = parseTime(published)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return domain.Corpus{}, fmt.Errorf("rows iteration: %w", err)
	}

	return domain.NewCorpus(entries), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
