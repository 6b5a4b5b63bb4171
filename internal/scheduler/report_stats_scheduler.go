package scheduler

import (
	"github.com/nidaro/nidaro-backend/internal/app/repository"
	"github.com/nidaro/nidaro-backend/internal/metrics"
	"github.com/nidaro/nidaro-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

const defaultStatsSpec = "*/5 * * * *"

// ReportStatsScheduler periodically publishes the number of reports per status.
type ReportStatsScheduler struct {
	cron    *cron.Cron
	spec    string
	reports repository.ReportRepository
	metrics *metrics.Metrics
}

func NewReportStatsScheduler(reports repository.ReportRepository, m *metrics.Metrics, spec string) *ReportStatsScheduler {
	if spec == "" {
		spec = defaultStatsSpec
	}
	return &ReportStatsScheduler{
		cron:    cron.New(),
		spec:    spec,
		reports: reports,
		metrics: m,
	}
}

// Start refreshes the gauge once and then on every tick of the cron spec.
func (s *ReportStatsScheduler) Start() error {
	s.Refresh()

	if _, err := s.cron.AddFunc(s.spec, s.Refresh); err != nil {
		logger.Error("Failed to add cron job for report stats", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Report stats scheduler started", map[string]interface{}{
		"spec": s.spec,
	})
	return nil
}

func (s *ReportStatsScheduler) Refresh() {
	counts, err := s.reports.CountByStatus()
	if err != nil {
		logger.Error("Failed to refresh report stats", err)
		return
	}

	byStatus := make(map[string]int64, len(counts))
	for _, c := range counts {
		byStatus[string(c.Status)] = c.Count
	}
	s.metrics.SetReportsByStatus(byStatus)

	logger.Debug("Report stats refreshed", map[string]interface{}{
		"statuses": len(byStatus),
	})
}

func (s *ReportStatsScheduler) Stop() {
	logger.Info("Stopping report stats scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Report stats scheduler stopped", nil)
}
