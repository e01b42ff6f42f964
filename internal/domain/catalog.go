package domain

import (
	"strings"
	"time"
)

type Category string

const (
	CategoryMovie  Category = "movie"
	CategorySeries Category = "series"
	CategoryPerson Category = "person"
	CategoryMusic  Category = "music"
	CategoryNews   Category = "news"
	CategoryVideo  Category = "video"
)

// CategoryPriority is the fixed display order of result sections.
var CategoryPriority = []Category{
	CategoryMovie,
	CategorySeries,
	CategoryPerson,
	CategoryMusic,
	CategoryNews,
	CategoryVideo,
}

func ParseCategory(raw string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "movie", "movies", "film":
		return CategoryMovie, true
	case "series", "tv", "show", "shows":
		return CategorySeries, true
	case "person", "people", "cast":
		return CategoryPerson, true
	case "music", "track", "tracks", "album", "albums":
		return CategoryMusic, true
	case "news":
		return CategoryNews, true
	case "video", "videos":
		return CategoryVideo, true
	default:
		return "", false
	}
}

type ContentType string

const (
	ContentMovie  ContentType = "movie"
	ContentSeries ContentType = "series"
)

// Item is one displayable catalog record. MediaType, Type and RawContentType
// carry the type field under whichever name the upstream record used.
type Item struct {
	ID             string     `json:"id"`
	Slug           string     `json:"slug,omitempty"`
	Category       Category   `json:"category"`
	Title          string     `json:"title"`
	Overview       string     `json:"overview,omitempty"`
	ImageURL       string     `json:"imageUrl,omitempty"`
	ReleaseDate    *time.Time `json:"releaseDate,omitempty"`
	Rating         float64    `json:"rating,omitempty"`
	Role           string     `json:"role,omitempty"`
	Platform       string     `json:"platform,omitempty"`
	MediaType      string     `json:"media_type,omitempty"`
	Type           string     `json:"type,omitempty"`
	RawContentType string     `json:"content_type,omitempty"`
	Source         string     `json:"source,omitempty"`
	ExternalID     string     `json:"externalId,omitempty"`
}

func (i Item) Year() int {
	if i.ReleaseDate == nil {
		return 0
	}
	return i.ReleaseDate.Year()
}

type Section struct {
	Category Category `json:"category"`
	Items    []Item   `json:"items"`
	Total    int      `json:"total"`
}

type SearchRequest struct {
	Query      string
	Categories []Category
	Limit      int
	Offset     int
	NoCache    bool
}

type CategoryStatus struct {
	Category Category `json:"category"`
	OK       bool     `json:"ok"`
	Count    int      `json:"count"`
	Cached   bool     `json:"cached,omitempty"`
	Error    string   `json:"error,omitempty"`
}

type SearchResponse struct {
	Query      string           `json:"query"`
	Sections   []Section        `json:"sections"`
	Categories []CategoryStatus `json:"categories"`
	ElapsedMS  int64            `json:"elapsedMs"`
	Limit      int              `json:"limit"`
	Offset     int              `json:"offset"`
}

type HeroBanner struct {
	Trending []Item `json:"trending"`
	Popular  []Item `json:"popular"`
}
