package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/sathyapriyan07/metamovies-sub001/internal/domain"
	"github.com/sathyapriyan07/metamovies-sub001/internal/telemetry"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	maxRowLimit        = 48
	rowFetchFactor     = 4
	maxRowPages        = 25
)

var defaultSearchCategories = []domain.Category{domain.CategoryMovie, domain.CategoryPerson}

// Service is the server-side aggregation entry point shared by HTTP handlers
// and live sessions.
type Service struct {
	source        Source
	trending      TrendingSource
	timeout       time.Duration
	cacheDisabled bool
	cache         *ResultCache
	backend       CacheBackend
	debounce      time.Duration
	logger        *slog.Logger
}

type ServiceOption func(*Service)

func WithRedisCache(backend CacheBackend) ServiceOption {
	return func(s *Service) {
		s.backend = backend
	}
}

func WithCacheDisabled(disabled bool) ServiceOption {
	return func(s *Service) {
		s.cacheDisabled = disabled
	}
}

func WithTrending(source TrendingSource) ServiceOption {
	return func(s *Service) {
		s.trending = source
	}
}

func WithSessionDebounce(delay time.Duration) ServiceOption {
	return func(s *Service) {
		if delay > 0 {
			s.debounce = delay
		}
	}
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(source Source, timeout time.Duration, opts ...ServiceOption) *Service {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	svc := &Service{
		source:   source,
		timeout:  timeout,
		debounce: DefaultDebounceDelay,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	var cacheOpts []CacheOption
	if svc.backend != nil {
		cacheOpts = append(cacheOpts, WithCacheBackend(svc.backend))
	}
	svc.cache = NewResultCache(cacheOpts...)
	return svc
}

// NewSession opens a live search session over this service's source. Each
// session owns a private cache; platform rows go through the service cache.
func (s *Service) NewSession(opts ...SessionOption) *Session {
	base := []SessionOption{
		WithDebounceDelay(s.debounce),
		WithFetchTimeout(s.timeout),
		WithSessionLogger(s.logger),
		WithRowLoader(s),
	}
	return NewSession(s.source, append(base, opts...)...)
}

func (s *Service) Search(ctx context.Context, request domain.SearchRequest) (domain.SearchResponse, error) {
	if s.source == nil {
		return domain.SearchResponse{}, ErrNoSource
	}
	query := strings.TrimSpace(request.Query)
	if NormalizeQuery(query) == "" {
		return domain.SearchResponse{}, ErrInvalidQuery
	}
	if request.Offset < 0 {
		return domain.SearchResponse{}, ErrInvalidOffset
	}
	limit := request.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	categories := normalizeCategories(request.Categories)
	if len(categories) == 0 {
		categories = defaultSearchCategories
	}

	ctx, span := telemetry.Tracer().Start(ctx, "search.Service.Search")
	span.SetAttributes(
		attribute.Int("search.categories", len(categories)),
		attribute.Int("search.limit", limit),
	)
	defer span.End()

	runCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	startedAt := time.Now()
	statuses := make([]domain.CategoryStatus, len(categories))
	results := make(map[domain.Category][]domain.Item, len(categories))
	var mu sync.Mutex
	var group errgroup.Group
	for i, category := range categories {
		group.Go(func() error {
			key := CacheKey(query, pagedCategory(category, limit, request.Offset))
			useCache := !s.cacheDisabled && !request.NoCache
			if useCache {
				if items, ok := s.cache.Get(runCtx, key); ok {
					mu.Lock()
					results[category] = items
					statuses[i] = domain.CategoryStatus{Category: category, OK: true, Count: len(items), Cached: true}
					mu.Unlock()
					return nil
				}
			}

			fetchedAt := time.Now()
			items, err := s.source.SearchText(runCtx, category, query, limit, request.Offset)
			observeSource("search_text", fetchedAt, err)
			if err != nil {
				s.logger.Warn("category search failed",
					slog.String("query", truncateForLog(query, 80)),
					slog.String("category", string(category)),
					slog.String("error", err.Error()),
				)
				mu.Lock()
				statuses[i] = domain.CategoryStatus{Category: category, OK: false, Error: err.Error()}
				mu.Unlock()
				return nil
			}
			if !s.cacheDisabled {
				s.cache.Put(runCtx, key, items)
			}
			mu.Lock()
			results[category] = items
			statuses[i] = domain.CategoryStatus{Category: category, OK: true, Count: len(items)}
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	return domain.SearchResponse{
		Query:      query,
		Sections:   NewAggregator(limit).Merge(results),
		Categories: statuses,
		ElapsedMS:  time.Since(startedAt).Milliseconds(),
		Limit:      limit,
		Offset:     request.Offset,
	}, nil
}

// Suggest returns at most SuggestLimit items per category.
func (s *Service) Suggest(ctx context.Context, query string, categories []domain.Category) (domain.SearchResponse, error) {
	response, err := s.Search(ctx, domain.SearchRequest{
		Query:      query,
		Categories: categories,
		Limit:      defaultSearchLimit,
	})
	if err != nil {
		return domain.SearchResponse{}, err
	}
	for i := range response.Sections {
		response.Sections[i].Items = Truncate(response.Sections[i].Items, SuggestLimit)
	}
	response.Limit = SuggestLimit
	return response, nil
}

// PlatformRow lists one platform filtered by content type and ordered by
// release date then rating. The cache key covers platform, type and limit.
func (s *Service) PlatformRow(ctx context.Context, platform string, contentType domain.ContentType, limit int) ([]domain.Item, error) {
	limit = clampRowLimit(limit)
	platform = strings.ToLower(strings.TrimSpace(platform))
	return s.loadRow(ctx, rowCacheKey(platform, contentType, limit), platform, contentType, limit, SortTrending)
}

// PopularRow ranks the catalog by rating then release date.
func (s *Service) PopularRow(ctx context.Context, limit int) ([]domain.Item, error) {
	limit = clampRowLimit(limit)
	return s.loadRow(ctx, "popular|"+rowCacheKey("", "", limit), "", "", limit, SortPopular)
}

func clampRowLimit(limit int) int {
	if limit <= 0 {
		return SectionLimit
	}
	if limit > maxRowLimit {
		return maxRowLimit
	}
	return limit
}

func (s *Service) loadRow(ctx context.Context, key, platform string, contentType domain.ContentType, limit int, order func([]domain.Item) []domain.Item) ([]domain.Item, error) {
	if s.source == nil {
		return nil, ErrNoSource
	}
	if !s.cacheDisabled {
		if items, ok := s.cache.Get(ctx, key); ok {
			return items, nil
		}
	}

	runCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	matches, err := s.collectRow(runCtx, platform, contentType, limit)
	if err != nil {
		return nil, err
	}
	row := Truncate(order(matches), limit)
	if !s.cacheDisabled {
		s.cache.Put(ctx, key, row)
	}
	return row, nil
}

// collectRow pages through the platform listing until limit items of the
// requested content type are found or the source runs out.
func (s *Service) collectRow(ctx context.Context, platform string, contentType domain.ContentType, limit int) ([]domain.Item, error) {
	window := limit * rowFetchFactor
	matches := make([]domain.Item, 0, limit)
	for page, offset := 0, 0; page < maxRowPages; page, offset = page+1, offset+window {
		startedAt := time.Now()
		raw, err := s.source.ListByPlatform(ctx, platform, window, offset)
		observeSource("list_by_platform", startedAt, err)
		if err != nil {
			return nil, err
		}
		if contentType == "" {
			matches = append(matches, raw...)
		} else {
			matches = append(matches, FilterByContentType(raw, contentType)...)
		}
		if len(matches) >= limit || len(raw) < window {
			break
		}
	}
	return matches, nil
}

// HeroBanner builds the homepage trending and popular sections. Trending
// comes from the external feed when configured and degrades to the newest
// catalog items; popular is always ranked by rating.
func (s *Service) HeroBanner(ctx context.Context) (domain.HeroBanner, error) {
	if s.source == nil {
		return domain.HeroBanner{}, ErrNoSource
	}
	var (
		banner   = domain.HeroBanner{Trending: []domain.Item{}, Popular: []domain.Item{}}
		popular  []domain.Item
		trending []domain.Item
		group    errgroup.Group
	)
	group.Go(func() error {
		items, err := s.PopularRow(ctx, SectionLimit)
		if err != nil {
			s.logger.Warn("popular row failed", slog.String("error", err.Error()))
			return nil
		}
		popular = items
		return nil
	})
	group.Go(func() error {
		trending = s.trendingItems(ctx)
		return nil
	})
	_ = group.Wait()

	if len(trending) == 0 {
		items, err := s.PlatformRow(ctx, "", "", SectionLimit)
		if err != nil {
			s.logger.Warn("catalog trending row failed", slog.String("error", err.Error()))
		}
		trending = items
	}
	if len(popular) > 0 {
		banner.Popular = popular
	}
	if len(trending) > 0 {
		banner.Trending = trending
	}
	return banner, nil
}

func (s *Service) trendingItems(ctx context.Context) []domain.Item {
	if s.trending == nil || !s.trending.Enabled() {
		return nil
	}
	key := "trending|" + pagedCategory("all", SectionLimit, 0)
	if !s.cacheDisabled {
		if items, ok := s.cache.Get(ctx, key); ok {
			return items
		}
	}
	runCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	startedAt := time.Now()
	items, err := s.trending.Trending(runCtx, SectionLimit*rowFetchFactor)
	observeSource("trending", startedAt, err)
	if err != nil {
		s.logger.Warn("trending feed failed", slog.String("error", err.Error()))
		return nil
	}
	row := NewAggregator(SectionLimit).Row(items, "")
	if !s.cacheDisabled {
		s.cache.Put(ctx, key, row)
	}
	return row
}

// InvalidateCache forgets every cached search result and row. It is called
// after the catalog changes; live sessions keep their private caches.
func (s *Service) InvalidateCache(ctx context.Context) error {
	if err := s.cache.Reset(ctx); err != nil {
		return fmt.Errorf("reset result cache: %w", err)
	}
	return nil
}

func (s *Service) Item(ctx context.Context, id string) (domain.Item, error) {
	if s.source == nil {
		return domain.Item{}, ErrNoSource
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Item{}, domain.ErrNotFound
	}
	runCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	startedAt := time.Now()
	item, err := s.source.GetByID(runCtx, id)
	if errors.Is(err, domain.ErrNotFound) {
		observeSource("get_by_id", startedAt, nil)
		return domain.Item{}, err
	}
	observeSource("get_by_id", startedAt, err)
	return item, err
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline || s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
