package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sathyapriyan07/metamovies-sub001/internal/domain"
)

type fakeSource struct {
	mu       sync.Mutex
	calls    []string
	byText   map[string][]domain.Item
	errFor   map[string]error
	gates    map[string]chan struct{}
	platform []domain.Item
	rowCalls int
	byID     map[string]domain.Item
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		byText: make(map[string][]domain.Item),
		errFor: make(map[string]error),
		gates:  make(map[string]chan struct{}),
		byID:   make(map[string]domain.Item),
	}
}

func (f *fakeSource) set(text string, items ...domain.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byText[strings.ToLower(text)] = items
}

func (f *fakeSource) fail(text string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errFor[strings.ToLower(text)] = err
}

func (f *fakeSource) hold(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gates[strings.ToLower(text)] = make(chan struct{})
}

func (f *fakeSource) release(text string) {
	f.mu.Lock()
	gate := f.gates[strings.ToLower(text)]
	delete(f.gates, strings.ToLower(text))
	f.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

func (f *fakeSource) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSource) SearchText(ctx context.Context, category domain.Category, text string, limit, offset int) ([]domain.Item, error) {
	key := strings.ToLower(text)
	f.mu.Lock()
	f.calls = append(f.calls, string(category)+"|"+key)
	gate := f.gates[key]
	items := f.byText[key]
	err := f.errFor[key]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if item.Category == category {
			out = append(out, item)
		}
	}
	if offset > len(out) {
		return []domain.Item{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSource) ListByPlatform(ctx context.Context, platform string, limit, offset int) ([]domain.Item, error) {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rowCalls++
	out := make([]domain.Item, 0, len(f.platform))
	for _, item := range f.platform {
		if platform == "" || item.Platform == platform {
			out = append(out, item)
		}
	}
	if offset >= len(out) {
		return []domain.Item{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSource) GetByID(ctx context.Context, id string) (domain.Item, error) {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.byID[id]
	if !ok {
		return domain.Item{}, domain.ErrNotFound
	}
	return item, nil
}

func movie(id, title string) domain.Item {
	return domain.Item{ID: id, Title: title, Category: domain.CategoryMovie}
}

func person(id, name string) domain.Item {
	return domain.Item{ID: id, Title: name, Category: domain.CategoryPerson}
}

func dated(item domain.Item, year int, rating float64) domain.Item {
	if year > 0 {
		value := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		item.ReleaseDate = &value
	}
	item.Rating = rating
	return item
}
