package analytics

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Totals holds the headline dashboard counters.
type Totals struct {
	Properties  int `json:"properties"`
	Clients     int `json:"clients"`
	Leads       int `json:"leads"`
	Requests    int `json:"requests"`
	ActiveUsers int `json:"active_users"`
}

// Dashboard is the aggregate payload served to the dashboard landing page.
type Dashboard struct {
	Totals             Totals         `json:"totals"`
	PropertiesByStatus map[string]int `json:"properties_by_status"`
	LeadsByStage       map[string]int `json:"leads_by_stage"`
	RequestsPerWeek    map[string]int `json:"requests_per_week"`
}

// Service computes dashboard aggregates behind the versioned cache.
// Concurrent cold-cache requests collapse into one database pass.
type Service struct {
	repo  Repository
	cache *Cache
	group singleflight.Group
}

// NewService constructs a Service.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Dashboard returns the cached aggregate payload.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	key, err := s.cache.BuildKey(ctx, "analytics", "dashboard")
	if err != nil {
		return nil, err
	}
	var dash Dashboard
	err = s.cache.FetchJSON(ctx, key, &dash, func(ctx context.Context) (interface{}, error) {
		v, err, _ := s.group.Do(key, func() (interface{}, error) {
			return s.compute(ctx)
		})
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return &dash, nil
}

// Invalidate bumps the cache version after domain mutations.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) compute(ctx context.Context) (*Dashboard, error) {
	totals, err := s.repo.Totals(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.repo.PropertyCountsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byStage, err := s.repo.LeadCountsByStage(ctx)
	if err != nil {
		return nil, err
	}
	perWeek, err := s.repo.RequestsPerWeek(ctx, 8)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Totals:             totals,
		PropertiesByStatus: byStatus,
		LeadsByStage:       byStage,
		RequestsPerWeek:    perWeek,
	}, nil
}
