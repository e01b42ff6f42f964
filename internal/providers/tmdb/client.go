package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sathyapriyan07/metamovies-sub001/internal/domain"
)

const (
	defaultBaseURL  = "https://api.themoviedb.org/3"
	posterBaseURL   = "https://image.tmdb.org/t/p/w500"
	defaultLanguage = "en-US"
	redisCacheKey   = "catalog:tmdb:"
	maxBodyBytes    = 512 * 1024
)

type Client struct {
	apiKey   string
	baseURL  string
	language string
	http     *http.Client
	redis    redis.Cmdable
	cacheTTL time.Duration
}

type Config struct {
	APIKey   string
	BaseURL  string
	Language string
	Client   *http.Client
	Redis    redis.Cmdable
	CacheTTL time.Duration
}

type Result struct {
	ID           int     `json:"id"`
	Title        string  `json:"title,omitempty"`
	Name         string  `json:"name,omitempty"`
	Overview     string  `json:"overview,omitempty"`
	PosterPath   string  `json:"poster_path,omitempty"`
	ProfilePath  string  `json:"profile_path,omitempty"`
	VoteAverage  float64 `json:"vote_average,omitempty"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	FirstAirDate string  `json:"first_air_date,omitempty"`
	MediaType    string  `json:"media_type,omitempty"`
}

func (r Result) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// Released parses release_date, falling back to first_air_date.
func (r Result) Released() *time.Time {
	raw := r.ReleaseDate
	if raw == "" {
		raw = r.FirstAirDate
	}
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &parsed
}

func (r Result) ImageURL() string {
	path := r.PosterPath
	if path == "" {
		path = r.ProfilePath
	}
	if path == "" {
		return ""
	}
	return posterBaseURL + path
}

// Item maps a TMDB record to a catalog item. People and unknown media types
// return false.
func (r Result) Item() (domain.Item, bool) {
	var category domain.Category
	switch r.MediaType {
	case "movie":
		category = domain.CategoryMovie
	case "tv":
		category = domain.CategorySeries
	default:
		return domain.Item{}, false
	}
	externalID := strconv.Itoa(r.ID)
	return domain.Item{
		ID:          "tmdb-" + r.MediaType + "-" + externalID,
		Category:    category,
		Title:       r.DisplayTitle(),
		Overview:    r.Overview,
		ImageURL:    r.ImageURL(),
		ReleaseDate: r.Released(),
		Rating:      r.VoteAverage,
		MediaType:   r.MediaType,
		Source:      "tmdb",
		ExternalID:  externalID,
	}, true
}

type pagedResponse struct {
	Results []Result `json:"results"`
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = defaultLanguage
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 6 * time.Hour
	}
	return &Client{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		http:     httpClient,
		redis:    cfg.Redis,
		cacheTTL: cacheTTL,
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Trending returns this week's trending movies and series. A disabled client
// returns no items and no error.
func (c *Client) Trending(ctx context.Context, limit int) ([]domain.Item, error) {
	if !c.Enabled() {
		return nil, nil
	}
	results, err := c.results(ctx, "/trending/all/week", url.Values{}, "trending:week:"+c.language)
	if err != nil {
		return nil, err
	}
	items := toItems(results)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// SearchMulti searches movies and series by title.
func (c *Client) SearchMulti(ctx context.Context, query string) ([]domain.Item, error) {
	query = strings.TrimSpace(query)
	if !c.Enabled() || query == "" {
		return nil, nil
	}
	cacheKey := fmt.Sprintf("multi:%s:%s", strings.ToLower(query), c.language)
	results, err := c.results(ctx, "/search/multi", url.Values{"query": {query}}, cacheKey)
	if err != nil {
		return nil, err
	}
	return toItems(results), nil
}

func (c *Client) results(ctx context.Context, path string, params url.Values, cacheKey string) ([]Result, error) {
	if c.redis != nil {
		data, err := c.redis.Get(ctx, redisCacheKey+cacheKey).Bytes()
		if err == nil {
			var cached []Result
			if json.Unmarshal(data, &cached) == nil {
				return cached, nil
			}
		}
	}

	params.Set("api_key", c.apiKey)
	params.Set("language", c.language)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("tmdb HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	var response pagedResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}

	if c.redis != nil {
		if data, err := json.Marshal(response.Results); err == nil {
			_ = c.redis.Set(ctx, redisCacheKey+cacheKey, data, c.cacheTTL).Err()
		}
	}
	return response.Results, nil
}

func toItems(results []Result) []domain.Item {
	items := make([]domain.Item, 0, len(results))
	for _, r := range results {
		if item, ok := r.Item(); ok {
			items = append(items, item)
		}
	}
	return items
}
