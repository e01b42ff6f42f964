package deezer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.deezer.com"
	redisCacheKey  = "catalog:deezer:"
	maxBodyBytes   = 1 << 20

	// Deezer allows 50 requests per 5 seconds per client.
	requestsPerSecond = 10
	requestBurst      = 50
)

var ErrNotFound = errors.New("deezer: not found")

// APIError is the error envelope Deezer returns with HTTP 200.
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("deezer %s (%d): %s", e.Type, e.Code, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Code == 800
}

type Artist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Track struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Duration int    `json:"duration"`
	Preview  string `json:"preview,omitempty"`
	Rank     int    `json:"rank,omitempty"`
}

type Album struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	CoverMedium string `json:"cover_medium,omitempty"`
	CoverXL     string `json:"cover_xl,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	RecordType  string `json:"record_type,omitempty"`
	Fans        int    `json:"fans,omitempty"`
	Artist      Artist `json:"artist"`
	Tracks      struct {
		Data []Track `json:"data"`
	} `json:"tracks"`
}

// Cover returns the largest available cover image.
func (a Album) Cover() string {
	if a.CoverXL != "" {
		return a.CoverXL
	}
	return a.CoverMedium
}

func (a Album) Released() *time.Time {
	if a.ReleaseDate == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", a.ReleaseDate)
	if err != nil {
		return nil
	}
	return &parsed
}

type Config struct {
	BaseURL  string
	Client   *http.Client
	Redis    redis.Cmdable
	CacheTTL time.Duration
	Limiter  *rate.Limiter
}

type Client struct {
	baseURL  string
	http     *http.Client
	redis    redis.Cmdable
	cacheTTL time.Duration
	limiter  *rate.Limiter
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst)
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     httpClient,
		redis:    cfg.Redis,
		cacheTTL: cacheTTL,
		limiter:  limiter,
	}
}

type albumSearchResponse struct {
	Data  []Album   `json:"data"`
	Total int       `json:"total"`
	Error *APIError `json:"error,omitempty"`
}

type albumResponse struct {
	Album
	Error *APIError `json:"error,omitempty"`
}

func (c *Client) SearchAlbums(ctx context.Context, query string, limit int) ([]Album, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Album{}, nil
	}
	if limit <= 0 {
		limit = 25
	}
	params := url.Values{
		"q":     {query},
		"limit": {strconv.Itoa(limit)},
	}
	cacheKey := fmt.Sprintf("search:album:%s:%d", strings.ToLower(query), limit)

	var response albumSearchResponse
	if err := c.get(ctx, "/search/album", params, cacheKey, &response); err != nil {
		return nil, err
	}
	if response.Error != nil {
		return nil, response.Error
	}
	if response.Data == nil {
		return []Album{}, nil
	}
	return response.Data, nil
}

// Album fetches one album including its track list.
func (c *Client) Album(ctx context.Context, id int64) (Album, error) {
	var response albumResponse
	path := "/album/" + strconv.FormatInt(id, 10)
	if err := c.get(ctx, path, nil, "album:"+strconv.FormatInt(id, 10), &response); err != nil {
		return Album{}, err
	}
	if response.Error != nil {
		return Album{}, response.Error
	}
	return response.Album, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, cacheKey string, out any) error {
	if c.redis != nil {
		data, err := c.redis.Get(ctx, redisCacheKey+cacheKey).Bytes()
		if err == nil && json.Unmarshal(data, out) == nil {
			return nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("deezer HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return err
	}

	// Error envelopes arrive with HTTP 200 and must not be cached.
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
		return nil
	}
	if c.redis != nil {
		_ = c.redis.Set(ctx, redisCacheKey+cacheKey, body, c.cacheTTL).Err()
	}
	return nil
}
