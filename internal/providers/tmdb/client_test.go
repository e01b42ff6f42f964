package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sathyapriyan07/metamovies-sub001/internal/domain"
)

func TestTrendingMapsAndFilters(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("api_key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"id":27205,"title":"Inception","media_type":"movie","release_date":"2010-07-15","vote_average":8.4,"poster_path":"/inc.jpg"},
			{"id":1399,"name":"Game of Thrones","media_type":"tv","first_air_date":"2011-04-17","vote_average":8.5},
			{"id":525,"name":"Christopher Nolan","media_type":"person","profile_path":"/cn.jpg"},
			{"id":99,"title":"Undated","media_type":"movie","release_date":""}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: srv.URL + "/"})
	items, err := client.Trending(context.Background(), 0)
	if err != nil {
		t.Fatalf("Trending: %v", err)
	}
	if gotPath != "/trending/all/week" || gotKey != "secret" {
		t.Fatalf("unexpected request path=%q key=%q", gotPath, gotKey)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items without the person, got %d", len(items))
	}

	inception := items[0]
	if inception.ID != "tmdb-movie-27205" || inception.Category != domain.CategoryMovie {
		t.Errorf("unexpected movie item %+v", inception)
	}
	if inception.Year() != 2010 || inception.Rating != 8.4 {
		t.Errorf("unexpected date/rating %v %v", inception.ReleaseDate, inception.Rating)
	}
	if !strings.HasSuffix(inception.ImageURL, "/inc.jpg") {
		t.Errorf("unexpected image %q", inception.ImageURL)
	}
	if items[1].Category != domain.CategorySeries || items[1].Year() != 2011 {
		t.Errorf("unexpected series item %+v", items[1])
	}
	if items[2].ReleaseDate != nil {
		t.Errorf("empty date should map to nil, got %v", items[2].ReleaseDate)
	}
}

func TestTrendingLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"id":1,"title":"A","media_type":"movie"},{"id":2,"title":"B","media_type":"movie"}]}`))
	}))
	defer srv.Close()

	items, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}).Trending(context.Background(), 1)
	if err != nil {
		t.Fatalf("Trending: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
}

func TestDisabledClientMakesNoRequests(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	if client.Enabled() {
		t.Fatal("client without api key must be disabled")
	}
	items, err := client.Trending(context.Background(), 5)
	if err != nil || items != nil {
		t.Fatalf("expected nil, nil; got %v, %v", items, err)
	}
	if called {
		t.Fatal("disabled client issued a request")
	}
}

func TestHTTPErrorIsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status_message":"Invalid API key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(Config{APIKey: "bad", BaseURL: srv.URL}).SearchMulti(context.Background(), "dune")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected HTTP 401 error, got %v", err)
	}
}

func TestSearchMultiSendsQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		_, _ = w.Write([]byte(`{"results":[{"id":438631,"title":"Dune","media_type":"movie"}]}`))
	}))
	defer srv.Close()

	items, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}).SearchMulti(context.Background(), "  dune ")
	if err != nil {
		t.Fatalf("SearchMulti: %v", err)
	}
	if gotQuery != "dune" {
		t.Fatalf("expected trimmed query, got %q", gotQuery)
	}
	if len(items) != 1 || items[0].Title != "Dune" {
		t.Fatalf("unexpected items %+v", items)
	}
}
