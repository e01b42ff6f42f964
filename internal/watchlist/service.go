package watchlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sathyapriyan07/metamovies-sub001/internal/domain"
)

const maxListLimit = 200

type Repository interface {
	Upsert(ctx context.Context, entry domain.WatchlistEntry) error
	Delete(ctx context.Context, userID uuid.UUID, itemID string) error
	Exists(ctx context.Context, userID uuid.UUID, itemID string) (bool, error)
	List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.WatchlistEntry, error)
}

// Catalog resolves item ids so entries carry a title and image.
type Catalog interface {
	Item(ctx context.Context, id string) (domain.Item, error)
}

// Service gates watchlist access on a signed-in user. Every operation
// returns domain.ErrUnauthenticated when user is nil.
type Service struct {
	repo    Repository
	catalog Catalog
	now     func() time.Time
}

func NewService(repo Repository, catalog Catalog) *Service {
	return &Service{repo: repo, catalog: catalog, now: time.Now}
}

func (s *Service) Add(ctx context.Context, user *domain.User, itemID string) (domain.WatchlistEntry, error) {
	if user == nil {
		return domain.WatchlistEntry{}, domain.ErrUnauthenticated
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return domain.WatchlistEntry{}, fmt.Errorf("item id is required: %w", domain.ErrInvalidArgument)
	}
	entry := domain.WatchlistEntry{UserID: user.ID, ItemID: itemID, AddedAt: s.now().UTC()}
	if s.catalog != nil {
		item, err := s.catalog.Item(ctx, itemID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.WatchlistEntry{}, err
			}
			return domain.WatchlistEntry{}, fmt.Errorf("resolve item: %w", err)
		}
		entry.Title = item.Title
		entry.Category = item.Category
		entry.ImageURL = item.ImageURL
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return domain.WatchlistEntry{}, err
	}
	return entry, nil
}

func (s *Service) Remove(ctx context.Context, user *domain.User, itemID string) error {
	if user == nil {
		return domain.ErrUnauthenticated
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return fmt.Errorf("item id is required: %w", domain.ErrInvalidArgument)
	}
	return s.repo.Delete(ctx, user.ID, itemID)
}

func (s *Service) Contains(ctx context.Context, user *domain.User, itemID string) (bool, error) {
	if user == nil {
		return false, domain.ErrUnauthenticated
	}
	return s.repo.Exists(ctx, user.ID, strings.TrimSpace(itemID))
}

func (s *Service) List(ctx context.Context, user *domain.User, limit int) ([]domain.WatchlistEntry, error) {
	if user == nil {
		return nil, domain.ErrUnauthenticated
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	entries, err := s.repo.List(ctx, user.ID, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.WatchlistEntry{}
	}
	return entries, nil
}
