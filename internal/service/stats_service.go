package service

import (
	"github.com/balkarbucket/backend/internal/models"
	"github.com/balkarbucket/backend/internal/repository"
)

const dashboardListSize = 5

type StatsService struct {
	statsRepo *repository.StatsRepository
	fileRepo  *repository.FileRepository
	logRepo   *repository.LogRepository
}

func NewStatsService(
	statsRepo *repository.StatsRepository,
	fileRepo *repository.FileRepository,
	logRepo *repository.LogRepository,
) *StatsService {
	return &StatsService{statsRepo: statsRepo, fileRepo: fileRepo, logRepo: logRepo}
}

// Dashboard aggregates the overview numbers plus short recent-activity
// lists. Counters are read as stored; no reconciliation happens here.
func (s *StatsService) Dashboard() (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	storage, err := s.statsRepo.StorageTotals()
	if err != nil {
		return nil, err
	}
	stats.Storage.Total = storage.QuotaTotal
	stats.Storage.Used = storage.UsedTotal
	if storage.QuotaTotal > 0 {
		stats.Storage.Percentage = int(storage.UsedTotal * 100 / storage.QuotaTotal)
	}

	files, err := s.statsRepo.FileTotals()
	if err != nil {
		return nil, err
	}
	stats.Files.Total = files.Live
	stats.Files.InTrash = files.Trashed

	buckets, err := s.statsRepo.BucketTotals()
	if err != nil {
		return nil, err
	}
	stats.Buckets.Total = buckets.Total
	stats.Buckets.Public = buckets.Public
	stats.Buckets.Private = buckets.Private

	keys, err := s.statsRepo.APIKeyTotals()
	if err != nil {
		return nil, err
	}
	stats.APIKeys.Active = keys.Active
	stats.APIKeys.Total = keys.Total

	if stats.RecentUploads, err = s.fileRepo.RecentUploads(dashboardListSize); err != nil {
		return nil, err
	}
	if stats.RecentErrors, err = s.logRepo.RecentErrors(dashboardListSize); err != nil {
		return nil, err
	}
	if stats.TopBuckets, err = s.statsRepo.TopBuckets(dashboardListSize); err != nil {
		return nil, err
	}
	if stats.TopAPIKeys, err = s.statsRepo.TopAPIKeys(dashboardListSize); err != nil {
		return nil, err
	}

	return stats, nil
}
