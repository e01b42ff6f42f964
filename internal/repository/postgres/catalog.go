package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sathyapriyan07/metamovies-sub001/internal/domain"
)

// DB is the subset of *pgxpool.Pool the catalog repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, batch *pgx.Batch) pgx.BatchResults
}

const schemaSQL = `CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL,
    title TEXT NOT NULL,
    overview TEXT NOT NULL DEFAULT '',
    image_url TEXT NOT NULL DEFAULT '',
    release_date DATE,
    rating DOUBLE PRECISION NOT NULL DEFAULT 0,
    role TEXT NOT NULL DEFAULT '',
    platform TEXT NOT NULL DEFAULT '',
    content_type TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL DEFAULT '',
    external_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS items_category_title_idx ON items (category, lower(title));
CREATE INDEX IF NOT EXISTS items_platform_idx ON items (lower(platform));
CREATE INDEX IF NOT EXISTS items_category_slug_idx ON items (category, slug);`

const itemColumns = `id, slug, category, title, overview, image_url, release_date, rating,
	role, platform, content_type, source, external_id`

const upsertItemSQL = `INSERT INTO items (` + itemColumns + `, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
	ON CONFLICT (id) DO UPDATE SET
		slug = EXCLUDED.slug,
		category = EXCLUDED.category,
		title = EXCLUDED.title,
		overview = EXCLUDED.overview,
		image_url = EXCLUDED.image_url,
		release_date = EXCLUDED.release_date,
		rating = EXCLUDED.rating,
		role = EXCLUDED.role,
		platform = EXCLUDED.platform,
		content_type = EXCLUDED.content_type,
		source = EXCLUDED.source,
		external_id = EXCLUDED.external_id,
		updated_at = NOW()`

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// CatalogRepository stores catalog items in a single table. People, tracks
// and videos are items with their own category.
type CatalogRepository struct {
	db DB
}

func NewCatalogRepository(db DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// EnsureSchema creates the items table and indexes. Safe to call repeatedly.
func (r *CatalogRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

func (r *CatalogRepository) SearchText(ctx context.Context, category domain.Category, text string, limit, offset int) ([]domain.Item, error) {
	pattern := likePattern(text)
	if pattern == "" {
		return []domain.Item{}, nil
	}
	limit, offset = clampPage(limit, offset)
	rows, err := r.db.Query(ctx,
		`SELECT `+itemColumns+`
		 FROM items
		 WHERE category = $1 AND title ILIKE $2 ESCAPE '\'
		 ORDER BY rating DESC, title ASC
		 LIMIT $3 OFFSET $4`,
		string(category), pattern, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: search %s: %w", category, err)
	}
	return collectItems(rows)
}

// ListByPlatform lists one platform (all items when platform is empty).
func (r *CatalogRepository) ListByPlatform(ctx context.Context, platform string, limit, offset int) ([]domain.Item, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := r.db.Query(ctx,
		`SELECT `+itemColumns+`
		 FROM items
		 WHERE category IN ('movie', 'series') AND ($1 = '' OR lower(platform) = $1)
		 ORDER BY release_date DESC NULLS LAST, rating DESC
		 LIMIT $2 OFFSET $3`,
		strings.ToLower(strings.TrimSpace(platform)), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list platform %q: %w", platform, err)
	}
	return collectItems(rows)
}

func (r *CatalogRepository) GetByID(ctx context.Context, id string) (domain.Item, error) {
	row := r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Item{}, domain.ErrNotFound
		}
		return domain.Item{}, fmt.Errorf("postgres: get item %q: %w", id, err)
	}
	return item, nil
}

// ListSlugs returns every non-empty slug of a category in stable order.
func (r *CatalogRepository) ListSlugs(ctx context.Context, category domain.Category) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT slug FROM items WHERE category = $1 AND slug <> '' ORDER BY slug`,
		string(category),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list slugs %s: %w", category, err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		out = append(out, slug)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertItems writes items in one batch and returns how many were stored.
func (r *CatalogRepository) UpsertItems(ctx context.Context, items []domain.Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			return 0, fmt.Errorf("postgres: upsert item %q: %w", item.Title, domain.ErrInvalidArgument)
		}
		batch.Queue(upsertItemSQL, itemArgs(item)...)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	stored := 0
	for range items {
		if _, err := results.Exec(); err != nil {
			return stored, fmt.Errorf("postgres: upsert items: %w", err)
		}
		stored++
	}
	return stored, nil
}

func collectItems(rows pgx.Rows) ([]domain.Item, error) {
	defer rows.Close()
	out := make([]domain.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanItem(row pgx.Row) (domain.Item, error) {
	var (
		item     domain.Item
		category string
		release  pgtype.Date
	)
	err := row.Scan(
		&item.ID, &item.Slug, &category, &item.Title, &item.Overview, &item.ImageURL,
		&release, &item.Rating, &item.Role, &item.Platform, &item.RawContentType,
		&item.Source, &item.ExternalID,
	)
	if err != nil {
		return domain.Item{}, err
	}
	item.Category = domain.Category(category)
	if release.Valid {
		value := release.Time.UTC()
		item.ReleaseDate = &value
	}
	return item, nil
}

func itemArgs(item domain.Item) []any {
	release := pgtype.Date{}
	if item.ReleaseDate != nil {
		release = pgtype.Date{Time: dateOnly(*item.ReleaseDate), Valid: true}
	}
	contentType := item.RawContentType
	for _, candidate := range []string{item.MediaType, item.Type} {
		if contentType == "" {
			contentType = strings.TrimSpace(candidate)
		}
	}
	return []any{
		item.ID,
		item.Slug,
		string(item.Category),
		item.Title,
		item.Overview,
		item.ImageURL,
		release,
		item.Rating,
		item.Role,
		strings.ToLower(strings.TrimSpace(item.Platform)),
		contentType,
		item.Source,
		item.ExternalID,
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a contains-pattern with LIKE wildcards escaped.
func likePattern(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return ""
	}
	return "%" + likeEscaper.Replace(normalized) + "%"
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
