package watchlist

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sathyapriyan07/metamovies-sub001/internal/domain"
)

type fakeRepo struct {
	entries map[string]domain.WatchlistEntry
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{entries: make(map[string]domain.WatchlistEntry)}
}

func key(userID uuid.UUID, itemID string) string { return userID.String() + ":" + itemID }

func (f *fakeRepo) Upsert(_ context.Context, entry domain.WatchlistEntry) error {
	k := key(entry.UserID, entry.ItemID)
	if existing, ok := f.entries[k]; ok {
		entry.AddedAt = existing.AddedAt
	}
	f.entries[k] = entry
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, userID uuid.UUID, itemID string) error {
	k := key(userID, itemID)
	if _, ok := f.entries[k]; !ok {
		return domain.ErrNotFound
	}
	delete(f.entries, k)
	return nil
}

func (f *fakeRepo) Exists(_ context.Context, userID uuid.UUID, itemID string) (bool, error) {
	_, ok := f.entries[key(userID, itemID)]
	return ok, nil
}

func (f *fakeRepo) List(_ context.Context, userID uuid.UUID, limit int) ([]domain.WatchlistEntry, error) {
	var out []domain.WatchlistEntry
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.After(out[j].AddedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeCatalog map[string]domain.Item

func (f fakeCatalog) Item(_ context.Context, id string) (domain.Item, error) {
	item, ok := f[id]
	if !ok {
		return domain.Item{}, domain.ErrNotFound
	}
	return item, nil
}

func TestMutationsRequireUser(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, nil, "m1"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("Add: expected ErrUnauthenticated, got %v", err)
	}
	if err := svc.Remove(ctx, nil, "m1"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("Remove: expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.List(ctx, nil, 10); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("List: expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.Contains(ctx, nil, "m1"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("Contains: expected ErrUnauthenticated, got %v", err)
	}
}

func TestAddListRemove(t *testing.T) {
	repo := newFakeRepo()
	catalog := fakeCatalog{
		"m1": {ID: "m1", Title: "Heat", Category: domain.CategoryMovie, ImageURL: "https://img/heat.jpg"},
		"m2": {ID: "m2", Title: "Ronin", Category: domain.CategoryMovie},
	}
	svc := NewService(repo, catalog)
	clock := time.Unix(1000, 0)
	svc.now = func() time.Time { clock = clock.Add(time.Minute); return clock }
	user := &domain.User{ID: uuid.New()}
	ctx := context.Background()

	entry, err := svc.Add(ctx, user, " m1 ")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if entry.Title != "Heat" || entry.ImageURL != "https://img/heat.jpg" {
		t.Fatalf("entry should carry catalog fields, got %+v", entry)
	}
	if _, err := svc.Add(ctx, user, "m2"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	entries, err := svc.List(ctx, user, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].ItemID != "m2" {
		t.Fatalf("expected newest first, got %+v", entries)
	}

	if ok, _ := svc.Contains(ctx, user, "m1"); !ok {
		t.Fatal("expected m1 in watchlist")
	}
	if err := svc.Remove(ctx, user, "m1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if ok, _ := svc.Contains(ctx, user, "m1"); ok {
		t.Fatal("m1 should be gone")
	}
	if err := svc.Remove(ctx, user, "m1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddUnknownItem(t *testing.T) {
	svc := NewService(newFakeRepo(), fakeCatalog{})
	_, err := svc.Add(context.Background(), &domain.User{ID: uuid.New()}, "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddBlankItem(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	_, err := svc.Add(context.Background(), &domain.User{ID: uuid.New()}, "  ")
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestListIsolatesUsers(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	alice := &domain.User{ID: uuid.New()}
	bob := &domain.User{ID: uuid.New()}

	if _, err := svc.Add(ctx, alice, "m1"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	entries, err := svc.List(ctx, bob, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", entries)
	}
}
