package search

import (
	"sort"
	"time"

	"github.com/sathyapriyan07/metamovies-sub001/internal/domain"
)

const (
	// SuggestLimit caps each category in inline suggestions.
	SuggestLimit = 4
	// SectionLimit caps each homepage section.
	SectionLimit = 6
)

// Aggregator merges per-category result lists into display sections.
type Aggregator struct {
	Limit int
}

func NewAggregator(limit int) Aggregator {
	return Aggregator{Limit: limit}
}

// Merge returns one section per non-empty category, in CategoryPriority order,
// each truncated to the aggregator limit. Categories are never interleaved.
func (a Aggregator) Merge(results map[domain.Category][]domain.Item) []domain.Section {
	if len(results) == 0 {
		return []domain.Section{}
	}
	categories := make([]domain.Category, 0, len(results))
	for category := range results {
		categories = append(categories, category)
	}
	categories = orderByPriority(categories)

	sections := make([]domain.Section, 0, len(categories))
	for _, category := range categories {
		items := results[category]
		if len(items) == 0 {
			continue
		}
		sections = append(sections, domain.Section{
			Category: category,
			Items:    Truncate(items, a.Limit),
			Total:    len(items),
		})
	}
	return sections
}

// Row applies the trending/platform policy: content type filter, date then
// rating ordering, truncation. An empty contentType keeps every item.
func (a Aggregator) Row(items []domain.Item, contentType domain.ContentType) []domain.Item {
	filtered := items
	if contentType != "" {
		filtered = FilterByContentType(items, contentType)
	}
	return Truncate(SortTrending(filtered), a.Limit)
}

// Truncate returns a copy of at most limit leading items. limit <= 0 keeps all.
func Truncate(items []domain.Item, limit int) []domain.Item {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return append([]domain.Item{}, items...)
}

func FilterByContentType(items []domain.Item, contentType domain.ContentType) []domain.Item {
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if ContentTypeOf(item) == contentType {
			out = append(out, item)
		}
	}
	return out
}

// SortTrending orders by release date descending, then rating descending.
// Missing dates sort below every real date and missing ratings as zero.
func SortTrending(items []domain.Item) []domain.Item {
	out := append([]domain.Item{}, items...)
	sort.SliceStable(out, func(i, j int) bool {
		left, right := releaseTime(out[i]), releaseTime(out[j])
		if !left.Equal(right) {
			return left.After(right)
		}
		return out[i].Rating > out[j].Rating
	})
	return out
}

// SortPopular orders by rating descending, then release date descending.
func SortPopular(items []domain.Item) []domain.Item {
	out := append([]domain.Item{}, items...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return releaseTime(out[i]).After(releaseTime(out[j]))
	})
	return out
}

func releaseTime(item domain.Item) time.Time {
	if item.ReleaseDate == nil {
		return time.Time{}
	}
	return *item.ReleaseDate
}

func orderByPriority(categories []domain.Category) []domain.Category {
	rank := make(map[domain.Category]int, len(domain.CategoryPriority))
	for i, category := range domain.CategoryPriority {
		rank[category] = i
	}
	out := append([]domain.Category(nil), categories...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, iKnown := rank[out[i]]
		rj, jKnown := rank[out[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		default:
			return out[i] < out[j]
		}
	})
	return out
}
