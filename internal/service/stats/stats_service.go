package stats

import (
	"context"

	"github.com/avlobanov/aerobook/internal/domain"
	"github.com/avlobanov/aerobook/internal/repository"
)

type StatsUseCase interface {
	Dashboard(ctx context.Context) (*domain.DashboardStats, error)
}

type StatsService struct {
	repo repository.StatsRepository
}

func NewStatsService(repo repository.StatsRepository) *StatsService {
	return &StatsService{repo: repo}
}

func (s *StatsService) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	return s.repo.Dashboard(ctx)
}

var _ StatsUseCase = (*StatsService)(nil)
