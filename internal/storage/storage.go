package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"whobible/backend/internal/models"
)

// Storage is the persistence boundary for community abuse reports. Room
// state never lands here — rooms are ephemeral and live in the remote
// store until swept.
type Storage interface {
	SaveReport(report *models.Report) error
	GetReportByID(id string) (*models.Report, error)
	ListOpenReports() ([]models.Report, error)
	ResolveReport(id string) error
	EscalateReport(id string) error
	CountRecentReports(targetName string, since time.Time) (int64, error)
}

type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

func (s *Service) SaveReport(report *models.Report) error {
	if report.Status == "" {
		report.Status = models.ReportStatusNew
	}
	return s.DB.Create(report).Error
}

func (s *Service) GetReportByID(id string) (*models.Report, error) {
	var report models.Report
	err := s.DB.Where("id = ?", id).First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *Service) ListOpenReports() ([]models.Report, error) {
	var reports []models.Report
	err := s.DB.
		Where("status IN ?", []string{models.ReportStatusNew, models.ReportStatusEscalated}).
		Order("created_at asc").
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *Service) ResolveReport(id string) error {
	return s.setStatus(id, models.ReportStatusResolved)
}

func (s *Service) EscalateReport(id string) error {
	return s.setStatus(id, models.ReportStatusEscalated)
}

func (s *Service) setStatus(id, status string) error {
	return s.DB.Model(&models.Report{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// CountRecentReports counts reports filed against one display name inside
// the escalation window.
func (s *Service) CountRecentReports(targetName string, since time.Time) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Report{}).
		Where("target_name = ? AND created_at >= ?", targetName, since).
		Count(&count).Error
	return count, err
}
