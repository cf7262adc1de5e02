package reports

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

const summaryCacheKey = "reports:summary"

// Service builds dashboard reports, caching results and collapsing
// concurrent rebuilds of the same report into one query run.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	cache  *Cache
	group  singleflight.Group
}

// NewService constructs the reports service.
func NewService(logger *slog.Logger, repo RepositoryPort, cache *Cache) *Service {
	return &Service{logger: logger, repo: repo, cache: cache}
}

// Summary returns the dashboard summary, from cache when fresh.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	resultChan := s.group.DoChan(summaryCacheKey, func() (any, error) {
		var summary Summary
		err := s.cache.FetchJSON(context.WithoutCancel(ctx), summaryCacheKey, &summary, func(ctx context.Context) (any, error) {
			s.logger.Debug("building report summary")
			return s.repo.BuildSummary(ctx)
		})
		return summary, err
	})
	select {
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Summary{}, res.Err
		}
		return res.Val.(Summary), nil
	}
}

// InvalidateSummary drops the cached summary so the next read rebuilds it.
func (s *Service) InvalidateSummary(ctx context.Context) error {
	return s.cache.Invalidate(ctx, summaryCacheKey)
}
