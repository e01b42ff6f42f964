package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sathyapriyan07/metamovies-sub001/internal/domain"
	"github.com/sathyapriyan07/metamovies-sub001/internal/importer"
	"github.com/sathyapriyan07/metamovies-sub001/internal/search"
)

type SearchService interface {
	Search(ctx context.Context, request domain.SearchRequest) (domain.SearchResponse, error)
	Suggest(ctx context.Context, query string, categories []domain.Category) (domain.SearchResponse, error)
	PlatformRow(ctx context.Context, platform string, contentType domain.ContentType, limit int) ([]domain.Item, error)
	HeroBanner(ctx context.Context) (domain.HeroBanner, error)
	Item(ctx context.Context, id string) (domain.Item, error)
	NewSession(opts ...search.SessionOption) *search.Session
}

type WatchlistService interface {
	Add(ctx context.Context, user *domain.User, itemID string) (domain.WatchlistEntry, error)
	Remove(ctx context.Context, user *domain.User, itemID string) error
	Contains(ctx context.Context, user *domain.User, itemID string) (bool, error)
	List(ctx context.Context, user *domain.User, limit int) ([]domain.WatchlistEntry, error)
}

type PreferencesStore interface {
	GetActivePlatform(ctx context.Context, userID uuid.UUID) (string, bool, error)
	SetActivePlatform(ctx context.Context, userID uuid.UUID, platform string) error
}

type Authenticator interface {
	Enabled() bool
	Authenticate(ctx context.Context, raw string) (*domain.User, error)
	SignOut(ctx context.Context, raw string) error
}

type CatalogImporter interface {
	ImportAlbums(ctx context.Context, query string, limit int) (importer.ImportReport, error)
	ImportMovies(ctx context.Context, query string) (importer.ImportReport, error)
}

type Server struct {
	search      SearchService
	watchlist   WatchlistService
	preferences PreferencesStore
	auth        Authenticator
	importer    CatalogImporter
	live        *liveHub
	rateRPS     float64
	rateBurst   int
	logger      *slog.Logger
}

const (
	maxQueryLength   = 500
	defaultRowLimit  = search.SectionLimit
	defaultListLimit = 50
)

var queryTooLongMessage = fmt.Sprintf("query too long (max %d characters)", maxQueryLength)

func queryTooLong(query string) bool {
	return utf8.RuneCountInString(query) > maxQueryLength
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithWatchlist(watchlist WatchlistService) ServerOption {
	return func(s *Server) {
		s.watchlist = watchlist
	}
}

func WithPreferences(preferences PreferencesStore) ServerOption {
	return func(s *Server) {
		s.preferences = preferences
	}
}

func WithAuth(auth Authenticator) ServerOption {
	return func(s *Server) {
		s.auth = auth
	}
}

func WithImporter(imp CatalogImporter) ServerOption {
	return func(s *Server) {
		s.importer = imp
	}
}

func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps > 0 && burst > 0 {
			s.rateRPS = rps
			s.rateBurst = burst
		}
	}
}

func NewServer(searchService SearchService, options ...ServerOption) *Server {
	server := &Server{
		search:    searchService,
		rateRPS:   50,
		rateBurst: 100,
		logger:    slog.Default(),
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	server.live = newLiveHub(server.logger)
	go server.live.run()
	return server
}

// Close disconnects live search clients.
func (s *Server) Close() {
	s.live.Close()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/search/suggest", s.handleSearchSuggest)
	mux.HandleFunc("/search/live", s.handleSearchLive)
	mux.HandleFunc("/catalog/hero", s.handleHeroBanner)
	mux.HandleFunc("/catalog/rows/", s.handlePlatformRow)
	mux.HandleFunc("/catalog/items/", s.handleItem)
	mux.HandleFunc("/watchlist", s.handleWatchlist)
	mux.HandleFunc("/watchlist/", s.handleWatchlistItem)
	mux.HandleFunc("/preferences/platform", s.handlePlatformPreference)
	mux.HandleFunc("/auth/signout", s.handleSignOut)
	mux.HandleFunc("/admin/import/deezer", s.handleImportDeezer)
	mux.HandleFunc("/admin/import/tmdb", s.handleImportTMDB)
	traced := otelhttp.NewHandler(authMiddleware(s.auth, s.logger, loggingMiddleware(s.logger, mux)), "metamovies-catalog",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(s.rateRPS, s.rateBurst, metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"timestamp":   time.Now().UTC(),
		"liveClients": s.live.clientCount(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}

	query, ok := readQuery(w, r)
	if !ok {
		return
	}
	limit, err := parsePositiveInt(r, "limit", 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}
	offset, err := parseNonNegativeInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid offset")
		return
	}
	categories, err := parseCategories(r.URL.Query().Get("categories"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	noCache := parseOptionalBool(r.URL.Query().Get("nocache")) || parseOptionalBool(r.URL.Query().Get("noCache"))

	response, err := s.search.Search(r.Context(), domain.SearchRequest{
		Query:      query,
		Categories: categories,
		Limit:      limit,
		Offset:     offset,
		NoCache:    noCache,
	})
	if err != nil {
		s.logger.Warn("search request failed",
			slog.String("query", truncate(query, 80)),
			slog.String("error", err.Error()),
		)
		writeServiceError(w, err, "search failed")
		return
	}

	failed := make([]string, 0, len(response.Categories))
	for _, status := range response.Categories {
		if !status.OK {
			failed = append(failed, string(status.Category))
		}
	}
	s.logger.Info("search completed",
		slog.String("query", truncate(query, 80)),
		slog.Int("sections", len(response.Sections)),
		slog.Int64("elapsedMs", response.ElapsedMS),
		slog.Int("failedCategories", len(failed)),
	)
	if len(failed) > 0 {
		s.logger.Warn("search categories partially failed",
			slog.String("query", truncate(query, 80)),
			slog.Any("failedCategories", failed),
		)
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleSearchSuggest(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/suggest" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	query, ok := readQuery(w, r)
	if !ok {
		return
	}
	categories, err := parseCategories(r.URL.Query().Get("categories"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	response, err := s.search.Suggest(r.Context(), query, categories)
	if err != nil {
		writeServiceError(w, err, "suggest failed")
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleHeroBanner(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/catalog/hero" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	banner, err := s.search.HeroBanner(r.Context())
	if err != nil {
		writeServiceError(w, err, "hero banner failed")
		return
	}
	writeJSON(w, http.StatusOK, banner)
}

// handlePlatformRow serves /catalog/rows/{platform}; "all" lists every platform.
func (s *Server) handlePlatformRow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	platform, ok := pathParam(r.URL.Path, "/catalog/rows/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if strings.EqualFold(platform, "all") {
		platform = ""
	}
	contentType, err := parseContentType(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	limit, err := parsePositiveInt(r, "limit", defaultRowLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}

	items, err := s.search.PlatformRow(r.Context(), platform, contentType, limit)
	if err != nil {
		s.logger.Warn("platform row failed",
			slog.String("platform", platform),
			slog.String("error", err.Error()),
		)
		writeServiceError(w, err, "platform row failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"platform":    platform,
		"contentType": contentType,
		"items":       items,
	})
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	id, ok := pathParam(r.URL.Path, "/catalog/items/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	item, err := s.search.Item(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "item lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func readQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return "", false
	}
	if queryTooLong(query) {
		writeError(w, http.StatusBadRequest, "invalid_request", queryTooLongMessage)
		return "", false
	}
	return query, true
}

// pathParam returns the single path segment after prefix.
func pathParam(path, prefix string) (string, bool) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

func parseCategories(raw string) ([]domain.Category, error) {
	values := parseCSV(raw)
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]domain.Category, 0, len(values))
	for _, value := range values {
		category, ok := domain.ParseCategory(value)
		if !ok {
			return nil, fmt.Errorf("%w: %s", search.ErrUnknownCategory, value)
		}
		out = append(out, category)
	}
	return out, nil
}

func parseContentType(raw string) (domain.ContentType, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "all") {
		return "", nil
	}
	switch strings.ToLower(raw) {
	case "movie", "movies", "film":
		return domain.ContentMovie, nil
	case "tv", "series", "show", "shows", "tv_show", "tvshow", "tv-show":
		return domain.ContentSeries, nil
	default:
		return "", fmt.Errorf("invalid type %q", raw)
	}
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		value := strings.ToLower(strings.TrimSpace(part))
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func decodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func parsePositiveInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid value")
	}
	return parsed, nil
}

func parseNonNegativeInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return 0, errors.New("invalid value")
	}
	return parsed, nil
}

func parseOptionalBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// writeServiceError maps domain and service errors to HTTP responses.
// Unrecognised errors are reported with the generic fallback message.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated", "sign in required")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "admin role required")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, search.ErrInvalidQuery),
		errors.Is(err, search.ErrInvalidOffset),
		errors.Is(err, search.ErrUnknownCategory),
		errors.Is(err, importer.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, search.ErrNoSource),
		errors.Is(err, importer.ErrSourceDisabled):
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", fallback)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}
