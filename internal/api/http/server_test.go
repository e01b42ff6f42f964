package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sathyapriyan07/metamovies-sub001/internal/auth"
	"github.com/sathyapriyan07/metamovies-sub001/internal/domain"
	"github.com/sathyapriyan07/metamovies-sub001/internal/importer"
	"github.com/sathyapriyan07/metamovies-sub001/internal/search"
)

var (
	testUserID  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testAdminID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

type fakeSearchService struct {
	mu          sync.Mutex
	lastRequest domain.SearchRequest
	response    domain.SearchResponse
	err         error
	rowPlatform string
	rowType     domain.ContentType
	rowLimit    int
	row         []domain.Item
	items       map[string]domain.Item
	hero        domain.HeroBanner
	sessions    *search.Service
}

func (f *fakeSearchService) Search(_ context.Context, request domain.SearchRequest) (domain.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRequest = request
	return f.response, f.err
}

func (f *fakeSearchService) Suggest(_ context.Context, query string, categories []domain.Category) (domain.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRequest = domain.SearchRequest{Query: query, Categories: categories}
	return f.response, f.err
}

func (f *fakeSearchService) PlatformRow(_ context.Context, platform string, contentType domain.ContentType, limit int) ([]domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rowPlatform, f.rowType, f.rowLimit = platform, contentType, limit
	return f.row, f.err
}

func (f *fakeSearchService) HeroBanner(context.Context) (domain.HeroBanner, error) {
	return f.hero, f.err
}

func (f *fakeSearchService) Item(_ context.Context, id string) (domain.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return domain.Item{}, domain.ErrNotFound
	}
	return item, nil
}

func (f *fakeSearchService) NewSession(opts ...search.SessionOption) *search.Session {
	if f.sessions != nil {
		return f.sessions.NewSession(opts...)
	}
	return search.NewSession(nil, opts...)
}

type fakeAuth struct {
	signedOut []string
}

func (f *fakeAuth) Enabled() bool { return true }

func (f *fakeAuth) Authenticate(_ context.Context, raw string) (*domain.User, error) {
	switch raw {
	case "user-token":
		return &domain.User{ID: testUserID, Email: "user@example.com"}, nil
	case "admin-token":
		return &domain.User{ID: testAdminID, Email: "admin@example.com", Role: domain.RoleAdmin}, nil
	case "expired-token":
		return nil, auth.ErrTokenExpired
	default:
		return nil, auth.ErrTokenInvalid
	}
}

func (f *fakeAuth) SignOut(_ context.Context, raw string) error {
	if raw == "garbage" {
		return auth.ErrTokenInvalid
	}
	f.signedOut = append(f.signedOut, raw)
	return nil
}

type fakeWatchlist struct {
	entries map[string]domain.WatchlistEntry
}

func newFakeWatchlist() *fakeWatchlist {
	return &fakeWatchlist{entries: make(map[string]domain.WatchlistEntry)}
}

func (f *fakeWatchlist) Add(_ context.Context, user *domain.User, itemID string) (domain.WatchlistEntry, error) {
	if strings.TrimSpace(itemID) == "" {
		return domain.WatchlistEntry{}, domain.ErrInvalidArgument
	}
	if itemID == "missing" {
		return domain.WatchlistEntry{}, domain.ErrNotFound
	}
	entry := domain.WatchlistEntry{UserID: user.ID, ItemID: itemID, Title: "Title " + itemID, AddedAt: time.Unix(100, 0).UTC()}
	f.entries[itemID] = entry
	return entry, nil
}

func (f *fakeWatchlist) Remove(_ context.Context, _ *domain.User, itemID string) error {
	if _, ok := f.entries[itemID]; !ok {
		return domain.ErrNotFound
	}
	delete(f.entries, itemID)
	return nil
}

func (f *fakeWatchlist) Contains(_ context.Context, _ *domain.User, itemID string) (bool, error) {
	_, ok := f.entries[itemID]
	return ok, nil
}

func (f *fakeWatchlist) List(_ context.Context, _ *domain.User, _ int) ([]domain.WatchlistEntry, error) {
	out := make([]domain.WatchlistEntry, 0, len(f.entries))
	for _, entry := range f.entries {
		out = append(out, entry)
	}
	return out, nil
}

type fakePreferences struct {
	platforms map[uuid.UUID]string
}

func (f *fakePreferences) GetActivePlatform(_ context.Context, userID uuid.UUID) (string, bool, error) {
	platform, ok := f.platforms[userID]
	return platform, ok, nil
}

func (f *fakePreferences) SetActivePlatform(_ context.Context, userID uuid.UUID, platform string) error {
	f.platforms[userID] = platform
	return nil
}

type fakeImporter struct {
	albumQuery string
	albumLimit int
	movieQuery string
	report     importer.ImportReport
	err        error
}

func (f *fakeImporter) ImportAlbums(_ context.Context, query string, limit int) (importer.ImportReport, error) {
	f.albumQuery, f.albumLimit = query, limit
	return f.report, f.err
}

func (f *fakeImporter) ImportMovies(_ context.Context, query string) (importer.ImportReport, error) {
	f.movieQuery = query
	return f.report, f.err
}

type testDeps struct {
	search      *fakeSearchService
	auth        *fakeAuth
	watchlist   *fakeWatchlist
	preferences *fakePreferences
	importer    *fakeImporter
}

func newTestServer(t *testing.T) (*Server, *testDeps) {
	t.Helper()
	deps := &testDeps{
		search:      &fakeSearchService{items: map[string]domain.Item{}},
		auth:        &fakeAuth{},
		watchlist:   newFakeWatchlist(),
		preferences: &fakePreferences{platforms: map[uuid.UUID]string{}},
		importer:    &fakeImporter{},
	}
	server := NewServer(deps.search,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuth(deps.auth),
		WithWatchlist(deps.watchlist),
		WithPreferences(deps.preferences),
		WithImporter(deps.importer),
		WithRateLimit(1000, 1000),
	)
	t.Cleanup(server.Close)
	return server, deps
}

func do(t *testing.T, handler http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return payload.Error.Code
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)
	w := do(t, server.Handler(), http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestSearchPassesParameters(t *testing.T) {
	server, deps := newTestServer(t)
	deps.search.response = domain.SearchResponse{
		Query:    "batman",
		Sections: []domain.Section{{Category: domain.CategoryMovie, Items: []domain.Item{{ID: "m1", Title: "Batman"}}, Total: 1}},
	}

	w := do(t, server.Handler(), http.MethodGet, "/search?q=batman&categories=movies,people&limit=5&offset=10&nocache=1", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	got := deps.search.lastRequest
	if got.Query != "batman" || got.Limit != 5 || got.Offset != 10 || !got.NoCache {
		t.Fatalf("unexpected request %+v", got)
	}
	if len(got.Categories) != 2 || got.Categories[0] != domain.CategoryMovie || got.Categories[1] != domain.CategoryPerson {
		t.Fatalf("unexpected categories %v", got.Categories)
	}
	var response domain.SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatal(err)
	}
	if len(response.Sections) != 1 || response.Sections[0].Items[0].ID != "m1" {
		t.Fatalf("unexpected response %+v", response)
	}
}

func TestSearchValidation(t *testing.T) {
	server, _ := newTestServer(t)
	cases := []struct {
		name   string
		target string
	}{
		{"missing query", "/search"},
		{"blank query", "/search?q=%20%20"},
		{"too long", "/search?q=" + strings.Repeat("a", maxQueryLength+1)},
		{"bad limit", "/search?q=x&limit=0"},
		{"bad offset", "/search?q=x&offset=-1"},
		{"unknown category", "/search?q=x&categories=podcasts"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, server.Handler(), http.MethodGet, tc.target, "", "")
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
			}
			if code := errorCode(t, w); code != "invalid_request" {
				t.Fatalf("code = %q", code)
			}
		})
	}
}

func TestSearchCountsQueryLengthInRunes(t *testing.T) {
	server, deps := newTestServer(t)
	query := strings.Repeat("é", maxQueryLength)

	w := do(t, server.Handler(), http.MethodGet, "/search?q="+url.QueryEscape(query), "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if deps.search.lastRequest.Query != query {
		t.Fatal("query was not passed through intact")
	}

	w = do(t, server.Handler(), http.MethodGet, "/search?q="+url.QueryEscape(query+"é"), "", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
}

func TestSearchMethodNotAllowed(t *testing.T) {
	server, _ := newTestServer(t)
	w := do(t, server.Handler(), http.MethodPost, "/search?q=x", "", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSearchServiceErrorsAreMapped(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{search.ErrInvalidQuery, http.StatusBadRequest},
		{search.ErrNoSource, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		server, deps := newTestServer(t)
		deps.search.err = tc.err
		w := do(t, server.Handler(), http.MethodGet, "/search?q=x", "", "")
		if w.Code != tc.status {
			t.Fatalf("%v: status = %d, want %d", tc.err, w.Code, tc.status)
		}
	}
}

func TestSuggest(t *testing.T) {
	server, deps := newTestServer(t)
	deps.search.response = domain.SearchResponse{Query: "dune", Limit: search.SuggestLimit}
	w := do(t, server.Handler(), http.MethodGet, "/search/suggest?q=dune&categories=movie", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if deps.search.lastRequest.Query != "dune" || len(deps.search.lastRequest.Categories) != 1 {
		t.Fatalf("unexpected request %+v", deps.search.lastRequest)
	}
}

func TestPlatformRow(t *testing.T) {
	server, deps := newTestServer(t)
	deps.search.row = []domain.Item{{ID: "s1", Title: "Stranger Things"}}

	w := do(t, server.Handler(), http.MethodGet, "/catalog/rows/Netflix?type=tv&limit=8", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if deps.search.rowPlatform != "Netflix" || deps.search.rowType != domain.ContentSeries || deps.search.rowLimit != 8 {
		t.Fatalf("unexpected row call %q %q %d", deps.search.rowPlatform, deps.search.rowType, deps.search.rowLimit)
	}

	w = do(t, server.Handler(), http.MethodGet, "/catalog/rows/all", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if deps.search.rowPlatform != "" || deps.search.rowType != "" || deps.search.rowLimit != defaultRowLimit {
		t.Fatalf("unexpected row call %q %q %d", deps.search.rowPlatform, deps.search.rowType, deps.search.rowLimit)
	}

	if w := do(t, server.Handler(), http.MethodGet, "/catalog/rows/netflix?type=podcast", "", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad type status = %d", w.Code)
	}
	if w := do(t, server.Handler(), http.MethodGet, "/catalog/rows/", "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing platform status = %d", w.Code)
	}
}

func TestHeroAndItem(t *testing.T) {
	server, deps := newTestServer(t)
	deps.search.hero = domain.HeroBanner{Trending: []domain.Item{{ID: "t1"}}, Popular: []domain.Item{}}
	deps.search.items["m1"] = domain.Item{ID: "m1", Title: "Alien"}

	w := do(t, server.Handler(), http.MethodGet, "/catalog/hero", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"t1"`) {
		t.Fatalf("hero status = %d body=%s", w.Code, w.Body.String())
	}
	w = do(t, server.Handler(), http.MethodGet, "/catalog/items/m1", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Alien") {
		t.Fatalf("item status = %d body=%s", w.Code, w.Body.String())
	}
	w = do(t, server.Handler(), http.MethodGet, "/catalog/items/nope", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing item status = %d", w.Code)
	}
}

func TestWatchlistRequiresUser(t *testing.T) {
	server, _ := newTestServer(t)
	for _, token := range []string{"", "expired-token", "garbage"} {
		w := do(t, server.Handler(), http.MethodGet, "/watchlist", token, "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: status = %d", token, w.Code)
		}
	}
}

func TestAccountRoutesRejectAnonymousBeforeConfiguration(t *testing.T) {
	server := NewServer(&fakeSearchService{},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuth(&fakeAuth{}),
	)
	t.Cleanup(server.Close)
	handler := server.Handler()

	for _, target := range []string{"/watchlist", "/watchlist/m1", "/preferences/platform"} {
		w := do(t, handler, http.MethodGet, target, "", "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s anonymous status = %d", target, w.Code)
		}
		if code := errorCode(t, w); code != "unauthenticated" {
			t.Fatalf("%s anonymous code = %q", target, code)
		}
		w = do(t, handler, http.MethodGet, target, "user-token", "")
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s signed-in status = %d", target, w.Code)
		}
	}
}

func TestWatchlistFlow(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.Handler()

	w := do(t, handler, http.MethodPost, "/watchlist", "user-token", `{"itemId":"m1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("add status = %d body=%s", w.Code, w.Body.String())
	}
	var entry domain.WatchlistEntry
	if err := json.Unmarshal(w.Body.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	if entry.UserID != testUserID || entry.ItemID != "m1" {
		t.Fatalf("unexpected entry %+v", entry)
	}

	w = do(t, handler, http.MethodGet, "/watchlist/m1", "user-token", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"inWatchlist":true`) {
		t.Fatalf("contains status = %d body=%s", w.Code, w.Body.String())
	}
	w = do(t, handler, http.MethodGet, "/watchlist", "user-token", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"count":1`) {
		t.Fatalf("list status = %d body=%s", w.Code, w.Body.String())
	}
	w = do(t, handler, http.MethodDelete, "/watchlist/m1", "user-token", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = do(t, handler, http.MethodDelete, "/watchlist/m1", "user-token", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", w.Code)
	}
}

func TestWatchlistAddErrors(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.Handler()
	if w := do(t, handler, http.MethodPost, "/watchlist", "user-token", `{"itemId":""}`); w.Code != http.StatusBadRequest {
		t.Fatalf("blank id status = %d", w.Code)
	}
	if w := do(t, handler, http.MethodPost, "/watchlist", "user-token", `{"itemId":"missing"}`); w.Code != http.StatusNotFound {
		t.Fatalf("missing item status = %d", w.Code)
	}
	if w := do(t, handler, http.MethodPost, "/watchlist", "user-token", `{"item":"m1"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d", w.Code)
	}
}

func TestPlatformPreference(t *testing.T) {
	server, deps := newTestServer(t)
	handler := server.Handler()

	w := do(t, handler, http.MethodGet, "/preferences/platform", "user-token", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"saved":false`) {
		t.Fatalf("get status = %d body=%s", w.Code, w.Body.String())
	}
	w = do(t, handler, http.MethodPut, "/preferences/platform", "user-token", `{"platform":" Netflix "}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d", w.Code)
	}
	if got := deps.preferences.platforms[testUserID]; got != "netflix" {
		t.Fatalf("stored platform = %q", got)
	}
	if w := do(t, handler, http.MethodPut, "/preferences/platform", "", `{"platform":"hulu"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous put status = %d", w.Code)
	}
}

func TestSignOut(t *testing.T) {
	server, deps := newTestServer(t)
	handler := server.Handler()

	if w := do(t, handler, http.MethodPost, "/auth/signout", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", w.Code)
	}
	if w := do(t, handler, http.MethodPost, "/auth/signout", "garbage", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d", w.Code)
	}
	if w := do(t, handler, http.MethodPost, "/auth/signout", "user-token", ""); w.Code != http.StatusNoContent {
		t.Fatalf("sign out status = %d", w.Code)
	}
	if len(deps.auth.signedOut) != 1 || deps.auth.signedOut[0] != "user-token" {
		t.Fatalf("signed out = %v", deps.auth.signedOut)
	}
}

func TestAdminImportRequiresAdmin(t *testing.T) {
	server, deps := newTestServer(t)
	handler := server.Handler()

	if w := do(t, handler, http.MethodPost, "/admin/import/deezer", "", `{"query":"daft punk"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", w.Code)
	}
	if w := do(t, handler, http.MethodPost, "/admin/import/deezer", "user-token", `{"query":"daft punk"}`); w.Code != http.StatusForbidden {
		t.Fatalf("user status = %d", w.Code)
	}
	if deps.importer.albumQuery != "" {
		t.Fatal("importer called without admin role")
	}
}

func TestAdminImport(t *testing.T) {
	server, deps := newTestServer(t)
	handler := server.Handler()
	deps.importer.report = importer.ImportReport{Source: "deezer", Query: "daft punk", Found: 2, Imported: 5}

	w := do(t, handler, http.MethodPost, "/admin/import/deezer", "admin-token", `{"query":"daft punk","limit":3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("deezer status = %d body=%s", w.Code, w.Body.String())
	}
	if deps.importer.albumQuery != "daft punk" || deps.importer.albumLimit != 3 {
		t.Fatalf("unexpected import call %q %d", deps.importer.albumQuery, deps.importer.albumLimit)
	}

	w = do(t, handler, http.MethodPost, "/admin/import/tmdb", "admin-token", `{"query":"alien"}`)
	if w.Code != http.StatusOK || deps.importer.movieQuery != "alien" {
		t.Fatalf("tmdb status = %d query=%q", w.Code, deps.importer.movieQuery)
	}

	deps.importer.err = importer.ErrSourceDisabled
	if w := do(t, handler, http.MethodPost, "/admin/import/tmdb", "admin-token", `{"query":"alien"}`); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("disabled source status = %d", w.Code)
	}
	deps.importer.err = importer.ErrInvalidQuery
	if w := do(t, handler, http.MethodPost, "/admin/import/deezer", "admin-token", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("empty query status = %d", w.Code)
	}
}

func TestAdminImportAllFailedIsBadGateway(t *testing.T) {
	server, deps := newTestServer(t)
	deps.importer.report = importer.ImportReport{Source: "deezer", Found: 2, Failed: 2}
	w := do(t, server.Handler(), http.MethodPost, "/admin/import/deezer", "admin-token", `{"query":"x"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", w.Code)
	}
}

type importStore struct{}

func (importStore) UpsertItems(_ context.Context, items []domain.Item) (int, error) {
	return len(items), nil
}

type importMovies struct{}

func (importMovies) Enabled() bool { return true }

func (importMovies) SearchMulti(context.Context, string) ([]domain.Item, error) {
	return []domain.Item{{ID: "tmdb-movie-1", Title: "Alien", Category: domain.CategoryMovie}}, nil
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAdminImportLogsCompletionOnce(t *testing.T) {
	var out lockedBuffer
	logger := slog.New(slog.NewTextHandler(&out, nil))
	server := NewServer(&fakeSearchService{},
		WithLogger(logger),
		WithAuth(&fakeAuth{}),
		WithImporter(importer.New(importStore{}, importer.WithMovieSource(importMovies{}), importer.WithLogger(logger))),
	)
	t.Cleanup(server.Close)

	w := do(t, server.Handler(), http.MethodPost, "/admin/import/tmdb", "admin-token", `{"query":"alien"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if n := strings.Count(out.String(), "catalog import finished"); n != 1 {
		t.Fatalf("expected one completion log line, got %d:\n%s", n, out.String())
	}
}

func TestParseContentType(t *testing.T) {
	cases := map[string]domain.ContentType{
		"":       "",
		"all":    "",
		"Movie":  domain.ContentMovie,
		"movies": domain.ContentMovie,
		"tv":     domain.ContentSeries,
		"series": domain.ContentSeries,
		"show":   domain.ContentSeries,
	}
	for raw, want := range cases {
		got, err := parseContentType(raw)
		if err != nil || got != want {
			t.Fatalf("parseContentType(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := parseContentType("podcast"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestParseCSVDedupes(t *testing.T) {
	got := parseCSV(" Movie, ,movie,PERSON ")
	if len(got) != 2 || got[0] != "movie" || got[1] != "person" {
		t.Fatalf("parseCSV = %v", got)
	}
	if parseCSV("  ") != nil {
		t.Fatal("expected nil for blank input")
	}
}

func TestPathParam(t *testing.T) {
	if got, ok := pathParam("/watchlist/m1", "/watchlist/"); !ok || got != "m1" {
		t.Fatalf("pathParam = %q, %v", got, ok)
	}
	if _, ok := pathParam("/watchlist/a/b", "/watchlist/"); ok {
		t.Fatal("nested path accepted")
	}
	if _, ok := pathParam("/watchlist/", "/watchlist/"); ok {
		t.Fatal("empty segment accepted")
	}
}
