package search

import (
	"context"
	"errors"
	"time"

	"github.com/sathyapriyan07/metamovies-sub001/internal/domain"
	"github.com/sathyapriyan07/metamovies-sub001/internal/metrics"
)

var (
	ErrInvalidQuery    = errors.New("query is required")
	ErrInvalidOffset   = errors.New("offset must be >= 0")
	ErrUnknownCategory = errors.New("unknown category")
	ErrNoSource        = errors.New("no catalog source configured")
)

// Source is the remote data collaborator. Results are eventually-consistent
// snapshots; GetByID returns domain.ErrNotFound for unknown ids.
type Source interface {
	SearchText(ctx context.Context, category domain.Category, text string, limit, offset int) ([]domain.Item, error)
	ListByPlatform(ctx context.Context, platform string, limit, offset int) ([]domain.Item, error)
	GetByID(ctx context.Context, id string) (domain.Item, error)
}

// TrendingSource is an optional external feed for the hero banner.
type TrendingSource interface {
	Enabled() bool
	Trending(ctx context.Context, limit int) ([]domain.Item, error)
}

// RowLoader serves platform rows to live sessions.
type RowLoader interface {
	PlatformRow(ctx context.Context, platform string, contentType domain.ContentType, limit int) ([]domain.Item, error)
}

func observeSource(operation string, startedAt time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
	}
	metrics.SourceRequestsTotal.WithLabelValues(operation, status).Inc()
	metrics.SourceRequestDuration.WithLabelValues(operation).Observe(time.Since(startedAt).Seconds())
}
