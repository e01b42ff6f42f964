package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/sathyapriyan07/metamovies-sub001/internal/domain"
	"github.com/sathyapriyan07/metamovies-sub001/internal/metrics"
	"github.com/sathyapriyan07/metamovies-sub001/internal/providers/deezer"
)

const (
	defaultMaxAlbums    = 25
	maxConcurrentAlbums = 4
	sourceDeezer        = "deezer"
	sourceTMDB          = "tmdb"
	statusOK            = "ok"
	statusError         = "error"
)

var (
	ErrInvalidQuery   = errors.New("import query is required")
	ErrSourceDisabled = errors.New("import source is not configured")
)

type AlbumSource interface {
	SearchAlbums(ctx context.Context, query string, limit int) ([]deezer.Album, error)
	Album(ctx context.Context, id int64) (deezer.Album, error)
}

type MovieSource interface {
	Enabled() bool
	SearchMulti(ctx context.Context, query string) ([]domain.Item, error)
}

// Store receives imported items.
type Store interface {
	UpsertItems(ctx context.Context, items []domain.Item) (int, error)
}

// CacheInvalidator drops cached search results once new items are stored.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context) error
}

type ImportError struct {
	ExternalID string `json:"externalId"`
	Title      string `json:"title,omitempty"`
	Error      string `json:"error"`
}

type ImportReport struct {
	Source   string        `json:"source"`
	Query    string        `json:"query"`
	Found    int           `json:"found"`
	Imported int           `json:"imported"`
	Failed   int           `json:"failed"`
	Errors   []ImportError `json:"errors"`
}

type Importer struct {
	albums    AlbumSource
	movies    MovieSource
	store     Store
	maxAlbums int
	cache     CacheInvalidator
	logger    *slog.Logger
}

type Option func(*Importer)

func WithAlbumSource(source AlbumSource) Option {
	return func(i *Importer) {
		i.albums = source
	}
}

func WithMovieSource(source MovieSource) Option {
	return func(i *Importer) {
		i.movies = source
	}
}

func WithMaxAlbums(limit int) Option {
	return func(i *Importer) {
		if limit > 0 {
			i.maxAlbums = limit
		}
	}
}

func WithCacheInvalidator(cache CacheInvalidator) Option {
	return func(i *Importer) {
		i.cache = cache
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(i *Importer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

func New(store Store, opts ...Option) *Importer {
	imp := &Importer{
		store:     store,
		maxAlbums: defaultMaxAlbums,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// ImportAlbums searches Deezer, loads each album with its tracks and stores
// one music item per album and per track. Albums that fail are reported and
// skipped.
func (i *Importer) ImportAlbums(ctx context.Context, query string, limit int) (ImportReport, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return ImportReport{}, ErrInvalidQuery
	}
	if i.albums == nil || i.store == nil {
		return ImportReport{}, ErrSourceDisabled
	}
	if limit <= 0 || limit > i.maxAlbums {
		limit = i.maxAlbums
	}

	found, err := i.albums.SearchAlbums(ctx, query, limit)
	if err != nil {
		return ImportReport{}, fmt.Errorf("search albums: %w", err)
	}
	report := ImportReport{Source: sourceDeezer, Query: query, Found: len(found), Errors: []ImportError{}}

	sem := semaphore.NewWeighted(maxConcurrentAlbums)
	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		items []domain.Item
	)
	for _, summary := range found {
		wg.Add(1)
		go func(summary deezer.Album) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				report.Errors = append(report.Errors, albumError(summary, err))
				mu.Unlock()
				return
			}
			defer sem.Release(1)

			album, err := i.albums.Album(ctx, summary.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Errors = append(report.Errors, albumError(summary, err))
				return
			}
			items = append(items, AlbumItems(album)...)
		}(summary)
	}
	wg.Wait()

	return i.upsert(ctx, report, items)
}

// ImportMovies stores TMDB movie and series matches for a title query.
func (i *Importer) ImportMovies(ctx context.Context, query string) (ImportReport, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return ImportReport{}, ErrInvalidQuery
	}
	if i.movies == nil || !i.movies.Enabled() || i.store == nil {
		return ImportReport{}, ErrSourceDisabled
	}
	found, err := i.movies.SearchMulti(ctx, query)
	if err != nil {
		return ImportReport{}, fmt.Errorf("search tmdb: %w", err)
	}
	items := make([]domain.Item, 0, len(found))
	for _, item := range found {
		if item.Slug == "" {
			item.Slug = slugWithYear(item.Year(), item.Title)
		}
		items = append(items, item)
	}
	report := ImportReport{Source: sourceTMDB, Query: query, Found: len(found), Errors: []ImportError{}}
	return i.upsert(ctx, report, items)
}

func (i *Importer) upsert(ctx context.Context, report ImportReport, items []domain.Item) (ImportReport, error) {
	report.Failed = len(report.Errors)
	if len(items) > 0 {
		stored, err := i.store.UpsertItems(ctx, items)
		report.Imported = stored
		metrics.ImportedItemsTotal.WithLabelValues(report.Source, statusOK).Add(float64(stored))
		if err != nil {
			metrics.ImportedItemsTotal.WithLabelValues(report.Source, statusError).Add(float64(len(items) - stored))
			return report, fmt.Errorf("store items: %w", err)
		}
	}
	if report.Failed > 0 {
		metrics.ImportedItemsTotal.WithLabelValues(report.Source, statusError).Add(float64(report.Failed))
	}
	if report.Imported > 0 && i.cache != nil {
		if err := i.cache.InvalidateCache(ctx); err != nil {
			i.logger.Warn("search cache invalidation failed",
				slog.String("source", report.Source),
				slog.String("error", err.Error()),
			)
		}
	}
	i.logger.Info("catalog import finished",
		slog.String("source", report.Source),
		slog.String("query", report.Query),
		slog.Int("found", report.Found),
		slog.Int("imported", report.Imported),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

// AlbumItems maps an album and its tracks to catalog items.
func AlbumItems(album deezer.Album) []domain.Item {
	albumID := strconv.FormatInt(album.ID, 10)
	released := album.Released()
	year := 0
	if released != nil {
		year = released.Year()
	}
	items := make([]domain.Item, 0, len(album.Tracks.Data)+1)
	items = append(items, domain.Item{
		ID:          "deezer-album-" + albumID,
		Slug:        slugWithYear(year, album.Artist.Name, album.Title),
		Category:    domain.CategoryMusic,
		Title:       album.Title,
		Overview:    albumOverview(album),
		ImageURL:    album.Cover(),
		ReleaseDate: released,
		Role:        album.Artist.Name,
		Type:        "album",
		Source:      sourceDeezer,
		ExternalID:  albumID,
	})
	for _, track := range album.Tracks.Data {
		trackID := strconv.FormatInt(track.ID, 10)
		items = append(items, domain.Item{
			ID:          "deezer-track-" + trackID,
			Slug:        Slugify(album.Artist.Name, track.Title, trackID),
			Category:    domain.CategoryMusic,
			Title:       track.Title,
			Overview:    "From " + album.Title,
			ImageURL:    album.Cover(),
			ReleaseDate: released,
			Role:        album.Artist.Name,
			Type:        "track",
			Source:      sourceDeezer,
			ExternalID:  trackID,
		})
	}
	return items
}

func albumOverview(album deezer.Album) string {
	kind := album.RecordType
	if kind == "" {
		kind = "album"
	}
	overview := strings.ToUpper(kind[:1]) + kind[1:]
	if album.Artist.Name != "" {
		overview += " by " + album.Artist.Name
	}
	if n := len(album.Tracks.Data); n > 0 {
		overview += ", " + strconv.Itoa(n) + " tracks"
	}
	return overview
}

func albumError(album deezer.Album, err error) ImportError {
	return ImportError{
		ExternalID: strconv.FormatInt(album.ID, 10),
		Title:      album.Title,
		Error:      err.Error(),
	}
}
