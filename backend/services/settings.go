package services

import (
	stderrors "errors"

	"gorm.io/gorm"

	"cwatch-dashboard/backend/errors"
	"cwatch-dashboard/backend/models"
	"cwatch-dashboard/backend/system"
)

// SettingsService stores the detection settings form in the local database.
// The values are never sent to the CWatch API.
type SettingsService struct {
	db *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

// Get returns the settings row, creating it with defaults when missing.
func (s *SettingsService) Get() (models.DashboardSettings, error) {
	var settings models.DashboardSettings
	err := s.db.First(&settings, 1).Error
	if err == nil {
		return settings, nil
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return settings, errors.Wrap(err, errors.KindInternal, "load settings")
	}

	settings = models.DefaultDashboardSettings()
	if err := s.db.Create(&settings).Error; err != nil {
		return settings, errors.Wrap(err, errors.KindInternal, "create default settings")
	}
	return settings, nil
}

// Update validates and saves settings.
func (s *SettingsService) Update(settings models.DashboardSettings) (models.DashboardSettings, error) {
	if err := settings.Validate(); err != nil {
		return settings, errors.Wrap(err, errors.KindValidation, "invalid settings")
	}
	settings.ID = 1
	if err := s.db.Save(&settings).Error; err != nil {
		return settings, errors.Wrap(err, errors.KindInternal, "save settings")
	}
	system.Info("Dashboard settings updated (level=%s, auto_block=%t)", settings.DDoSProtectionLevel, settings.AutoBlock)
	return settings, nil
}

// Reset restores the defaults.
func (s *SettingsService) Reset() (models.DashboardSettings, error) {
	return s.Update(models.DefaultDashboardSettings())
}
