package search

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sathyapriyan07/metamovies-sub001/internal/domain"
)

var queryFolder = cases.Lower(language.Und)

// NormalizeQuery is the identity form of a query: lower-cased, trimmed,
// internal whitespace collapsed to single spaces.
func NormalizeQuery(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	return queryFolder.String(strings.Join(fields, " "))
}

// CacheKey identifies a cached result list by normalized query and category.
func CacheKey(query, category string) string {
	return strings.ToLower(strings.TrimSpace(category)) + "|" + NormalizeQuery(query)
}

func pagedCategory(category domain.Category, limit, offset int) string {
	return string(category) + ":" + strconv.Itoa(limit) + ":" + strconv.Itoa(offset)
}

func rowCacheKey(platform string, contentType domain.ContentType, limit int) string {
	return strings.Join([]string{
		"row",
		"p=" + strings.ToLower(strings.TrimSpace(platform)),
		"t=" + string(contentType),
		"l=" + strconv.Itoa(limit),
	}, "|")
}

// ContentTypeOf reads the item's type from media_type, type or content_type,
// in that order, defaulting to movie for empty or unknown values.
func ContentTypeOf(item domain.Item) domain.ContentType {
	raw := firstNonEmpty(item.MediaType, item.Type, item.RawContentType)
	return ParseContentType(raw)
}

func ParseContentType(raw string) domain.ContentType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "tv", "series", "show", "tv_show", "tvshow", "tv-show":
		return domain.ContentSeries
	default:
		return domain.ContentMovie
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func normalizeCategories(categories []domain.Category) []domain.Category {
	if len(categories) == 0 {
		return nil
	}
	seen := make(map[domain.Category]struct{}, len(categories))
	out := make([]domain.Category, 0, len(categories))
	for _, category := range categories {
		if category == "" {
			continue
		}
		if _, ok := seen[category]; ok {
			continue
		}
		seen[category] = struct{}{}
		out = append(out, category)
	}
	return orderByPriority(out)
}
