// Package reports handles community abuse reports: validation against the
// configured category weights, persistence, escalation of repeat targets
// and admin notification.
package reports

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"whobible/backend/internal/config"
	"whobible/backend/internal/models"
	"whobible/backend/internal/storage"
)

var ErrUnknownCategory = errors.New("unknown report category")

// Notifier delivers a report to whoever moderates; see internal/notify.
type Notifier interface {
	NotifyReport(report *models.Report) error
}

type Service struct {
	Storage  storage.Storage
	Notifier Notifier
	Log      *zap.Logger

	now func() time.Time
}

func NewService(s storage.Storage, n Notifier, log *zap.Logger) *Service {
	return &Service{Storage: s, Notifier: n, Log: log, now: time.Now}
}

// Submit validates and persists a report, escalating when the same target
// keeps getting reported inside the escalation window. Notification
// failures are logged, never surfaced — the report is already saved.
func (s *Service) Submit(report *models.Report) error {
	if _, ok := config.ReportCategoryWeights[report.Category]; !ok {
		return ErrUnknownCategory
	}
	report.Status = models.ReportStatusNew

	if err := s.Storage.SaveReport(report); err != nil {
		return err
	}

	since := s.now().Add(-config.ReportEscalationWindow)
	count, err := s.Storage.CountRecentReports(report.TargetName, since)
	if err != nil {
		s.Log.Warn("counting recent reports", zap.Error(err))
	} else if count >= config.ReportEscalationThreshold {
		if err := s.Storage.EscalateReport(report.ID); err != nil {
			s.Log.Warn("escalating report", zap.String("id", report.ID), zap.Error(err))
		} else {
			report.Status = models.ReportStatusEscalated
		}
	}

	if s.Notifier != nil {
		if err := s.Notifier.NotifyReport(report); err != nil {
			s.Log.Warn("notifying report", zap.String("id", report.ID), zap.Error(err))
		}
	}
	return nil
}

// Weight returns the severity weight for a category, 0 when unknown.
func Weight(category string) int {
	return config.ReportCategoryWeights[category]
}
