package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sathyapriyan07/metamovies-sub001/internal/domain"
	"github.com/sathyapriyan07/metamovies-sub001/internal/metrics"
)

const (
	DefaultDebounceDelay = 300 * time.Millisecond
	defaultFetchTimeout  = 10 * time.Second
	defaultFetchLimit    = 20
)

type UpdateKind string

const (
	UpdateResults UpdateKind = "results"
	UpdateCleared UpdateKind = "cleared"
	UpdateRow     UpdateKind = "row"
)

type DisplayState struct {
	Query     string           `json:"query"`
	Sections  []domain.Section `json:"sections"`
	Cached    bool             `json:"cached"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type RowState struct {
	Platform    string             `json:"platform"`
	ContentType domain.ContentType `json:"contentType,omitempty"`
	Items       []domain.Item      `json:"items"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

type Update struct {
	Kind    UpdateKind    `json:"type"`
	Results *DisplayState `json:"results,omitempty"`
	Row     *RowState     `json:"row,omitempty"`
}

// Session is the incremental search state of one client: keystrokes go
// through the debouncer, lookups through the session cache, and every
// response passes the request guard before it reaches the display state.
type Session struct {
	source       Source
	rows         RowLoader
	categories   []domain.Category
	delay        time.Duration
	fetchTimeout time.Duration
	clock        Clock
	cache        *ResultCache
	agg          Aggregator
	fetchLimit   int
	rowLimit     int
	logger       *slog.Logger
	onUpdate     func(Update)

	debouncer  *Debouncer
	queryGuard Guard
	rowGuard   Guard
	// flights collapses concurrent lookups of the same normalized query.
	flights singleflight.Group

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup

	// emitMu serializes guard checks with state writes and callbacks so
	// updates reach the handler in the order they were applied.
	emitMu sync.Mutex
	mu     sync.Mutex
	closed bool
	state  DisplayState
	row    RowState
}

type SessionOption func(*Session)

func WithSessionClock(clock Clock) SessionOption {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithDebounceDelay(delay time.Duration) SessionOption {
	return func(s *Session) {
		if delay > 0 {
			s.delay = delay
		}
	}
}

func WithSessionCategories(categories ...domain.Category) SessionOption {
	return func(s *Session) {
		if normalized := normalizeCategories(categories); len(normalized) > 0 {
			s.categories = normalized
		}
	}
}

func WithDisplayLimit(limit int) SessionOption {
	return func(s *Session) {
		if limit > 0 {
			s.agg = NewAggregator(limit)
			if s.fetchLimit < limit {
				s.fetchLimit = limit
			}
		}
	}
}

func WithSessionCache(cache *ResultCache) SessionOption {
	return func(s *Session) {
		if cache != nil {
			s.cache = cache
		}
	}
}

func WithRowLoader(rows RowLoader) SessionOption {
	return func(s *Session) {
		s.rows = rows
	}
}

func WithFetchTimeout(timeout time.Duration) SessionOption {
	return func(s *Session) {
		if timeout > 0 {
			s.fetchTimeout = timeout
		}
	}
}

func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithUpdateHandler(fn func(Update)) SessionOption {
	return func(s *Session) {
		s.onUpdate = fn
	}
}

func NewSession(source Source, opts ...SessionOption) *Session {
	s := &Session{
		source:       source,
		categories:   []domain.Category{domain.CategoryMovie, domain.CategoryPerson},
		delay:        DefaultDebounceDelay,
		fetchTimeout: defaultFetchTimeout,
		clock:        SystemClock(),
		agg:          NewAggregator(SuggestLimit),
		fetchLimit:   defaultFetchLimit,
		rowLimit:     SectionLimit,
		logger:       slog.Default(),
		state:        DisplayState{Sections: []domain.Section{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = NewResultCache(WithCacheClock(s.clock))
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.debouncer = NewDebouncer(s.clock, s.fire)
	return s
}

// Input records a keystroke. A blank query clears the display without any
// remote call; anything else re-arms the debounce timer.
func (s *Session) Input(text string) {
	if s.isClosed() {
		return
	}
	trimmed := strings.TrimSpace(text)
	key := NormalizeQuery(trimmed)
	if key == "" {
		s.debouncer.Cancel()
		s.queryGuard.Clear()

		s.emitMu.Lock()
		defer s.emitMu.Unlock()
		s.mu.Lock()
		s.state = DisplayState{Sections: []domain.Section{}, UpdatedAt: s.clock.Now()}
		state := s.state
		s.mu.Unlock()
		s.emit(Update{Kind: UpdateCleared, Results: &state})
		return
	}

	s.queryGuard.Activate(key)
	s.debouncer.Schedule(trimmed, s.delay)
}

// SelectPlatform loads a platform row. Only the most recently selected
// platform/type/limit combination may update the row state.
func (s *Session) SelectPlatform(platform string, contentType domain.ContentType) {
	if s.rows == nil || !s.begin() {
		return
	}
	platform = strings.ToLower(strings.TrimSpace(platform))
	tag := rowCacheKey(platform, contentType, s.rowLimit)
	s.rowGuard.Activate(tag)

	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(s.ctx, s.fetchTimeout)
		defer cancel()
		items, err := s.rows.PlatformRow(ctx, platform, contentType, s.rowLimit)
		if err != nil {
			s.logger.Warn("platform row fetch failed",
				slog.String("platform", platform),
				slog.String("contentType", string(contentType)),
				slog.String("error", err.Error()),
			)
			return
		}

		s.emitMu.Lock()
		defer s.emitMu.Unlock()
		if !s.rowGuard.Accept(tag) {
			metrics.StaleResponsesTotal.WithLabelValues("row").Inc()
			return
		}
		s.mu.Lock()
		s.row = RowState{
			Platform:    platform,
			ContentType: contentType,
			Items:       cloneItems(items),
			UpdatedAt:   s.clock.Now(),
		}
		row := s.row
		s.mu.Unlock()
		s.emit(Update{Kind: UpdateRow, Row: &row})
	}()
}

func (s *Session) Snapshot() DisplayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state
	state.Sections = append([]domain.Section(nil), s.state.Sections...)
	return state
}

func (s *Session) Row() RowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.row
	row.Items = cloneItems(s.row.Items)
	return row
}

// Wait blocks until every fetch started so far has settled.
func (s *Session) Wait() {
	s.inflight.Wait()
}

// Close cancels pending and in-flight work. Late responses are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.debouncer.Cancel()
	s.queryGuard.Clear()
	s.rowGuard.Clear()
	s.cancel()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.inflight.Add(1)
	return true
}

func (s *Session) fire(query string) {
	key := NormalizeQuery(query)
	// The query may have been cleared or replaced after the timer was armed.
	if !s.queryGuard.Accept(key) {
		return
	}
	if !s.begin() {
		return
	}
	go func() {
		defer s.inflight.Done()
		s.runQuery(query, key)
	}()
}

type queryResult struct {
	results map[domain.Category][]domain.Item
	cached  bool
}

func (s *Session) runQuery(query, key string) {
	value, _, _ := s.flights.Do(key, func() (interface{}, error) {
		return s.lookup(query, key), nil
	})
	outcome := value.(queryResult)
	if len(outcome.results) == 0 {
		return
	}

	sections := s.agg.Merge(outcome.results)

	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if !s.queryGuard.Accept(key) {
		metrics.StaleResponsesTotal.WithLabelValues("query").Inc()
		s.logger.Debug("stale search response dropped", slog.String("query", truncateForLog(query, 80)))
		return
	}
	s.mu.Lock()
	s.state = DisplayState{
		Query:     query,
		Sections:  sections,
		Cached:    outcome.cached,
		UpdatedAt: s.clock.Now(),
	}
	state := s.state
	s.mu.Unlock()
	s.emit(Update{Kind: UpdateResults, Results: &state})
}

// lookup serves each category from the session cache and fetches the rest.
// Fetched results are cached before the flight ends so a later lookup of the
// same key never reaches the source again.
func (s *Session) lookup(query, key string) queryResult {
	ctx, cancel := context.WithTimeout(s.ctx, s.fetchTimeout)
	defer cancel()

	results := make(map[domain.Category][]domain.Item, len(s.categories))
	missing := make([]domain.Category, 0, len(s.categories))
	for _, category := range s.categories {
		if items, ok := s.cache.Get(ctx, CacheKey(key, string(category))); ok {
			results[category] = items
			continue
		}
		missing = append(missing, category)
	}

	if len(missing) == 0 {
		return queryResult{results: results, cached: true}
	}
	for category, items := range s.fetchCategories(ctx, query, missing) {
		s.cache.Put(ctx, CacheKey(key, string(category)), items)
		results[category] = items
	}
	return queryResult{results: results}
}

// fetchCategories issues one remote call per category. Failed categories are
// logged and left out so they are neither displayed nor cached.
func (s *Session) fetchCategories(ctx context.Context, query string, categories []domain.Category) map[domain.Category][]domain.Item {
	if s.source == nil {
		return nil
	}
	var (
		mu      sync.Mutex
		fetched = make(map[domain.Category][]domain.Item, len(categories))
		group   errgroup.Group
	)
	for _, category := range categories {
		group.Go(func() error {
			startedAt := time.Now()
			items, err := s.source.SearchText(ctx, category, query, s.fetchLimit, 0)
			observeSource("search_text", startedAt, err)
			if err != nil {
				s.logger.Warn("live search fetch failed",
					slog.String("query", truncateForLog(query, 80)),
					slog.String("category", string(category)),
					slog.String("error", err.Error()),
				)
				return nil
			}
			mu.Lock()
			fetched[category] = items
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return fetched
}

func (s *Session) emit(update Update) {
	if s.onUpdate != nil {
		s.onUpdate(update)
	}
}

// truncateForLog shortens value to at most limit runes.
func truncateForLog(value string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
