package repository

import (
	"errors"
	"time"

	"rota-engine/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type RosterRepository interface {
	Create(period *models.RosterPeriod) error
	GetByRunID(runID string) (*models.RosterPeriod, error)
	GetByStartDate(start time.Time) (*models.RosterPeriod, error)
	GetLatest() (*models.RosterPeriod, error)
	GetAll() ([]*models.RosterPeriod, error)
	Delete(id uint) error
}

type GormRosterRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormRosterRepository(db *gorm.DB, logger *logrus.Logger) (*GormRosterRepository, error) {
	if err := db.AutoMigrate(&models.RosterPeriod{}, &models.RosterAssignment{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate roster tables")
		return nil, err
	}

	logger.Info("Roster repository initialized")

	return &GormRosterRepository{
		db:     db,
		logger: logger,
	}, nil
}

func (r *GormRosterRepository) Create(period *models.RosterPeriod) error {
	r.logger.WithFields(logrus.Fields{
		"run_id":     period.RunID,
		"start_date": period.StartDate.Format("2006-01-02"),
		"weeks":      period.Weeks,
	}).Info("Storing roster period")

	if !period.IsValid() {
		r.logger.WithField("run_id", period.RunID).Warn("Invalid roster period data")
		return errors.New("invalid roster period data")
	}

	existing, err := r.GetByStartDate(period.StartDate)
	if err != nil {
		r.logger.WithError(err).Error("Failed to check roster period existence")
		return err
	}
	if existing != nil {
		r.logger.WithFields(logrus.Fields{
			"run_id":   period.RunID,
			"existing": existing.RunID,
		}).Warn("Roster period for this start date already exists")
		return errors.New("roster period for this start date already exists")
	}

	if result := r.db.Create(period); result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to store roster period")
		return result.Error
	}

	r.logger.WithFields(logrus.Fields{
		"id":          period.ID,
		"run_id":      period.RunID,
		"assignments": len(period.Assignments),
	}).Info("Roster period stored successfully")

	return nil
}

func (r *GormRosterRepository) GetByRunID(runID string) (*models.RosterPeriod, error) {
	var period models.RosterPeriod
	result := r.db.Preload("Assignments").Where("run_id = ?", runID).First(&period)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.WithError(result.Error).Error("Failed to get roster period by run ID")
		return nil, result.Error
	}
	return &period, nil
}

func (r *GormRosterRepository) GetByStartDate(start time.Time) (*models.RosterPeriod, error) {
	var period models.RosterPeriod
	result := r.db.Preload("Assignments").Where("start_date = ?", start).First(&period)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.WithError(result.Error).Error("Failed to get roster period by start date")
		return nil, result.Error
	}
	return &period, nil
}

func (r *GormRosterRepository) GetLatest() (*models.RosterPeriod, error) {
	var period models.RosterPeriod
	result := r.db.Preload("Assignments").Order("start_date DESC").First(&period)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.WithError(result.Error).Error("Failed to get latest roster period")
		return nil, result.Error
	}
	return &period, nil
}

func (r *GormRosterRepository) GetAll() ([]*models.RosterPeriod, error) {
	var periods []*models.RosterPeriod
	result := r.db.Order("start_date DESC").Find(&periods)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to list roster periods")
		return nil, result.Error
	}
	return periods, nil
}

func (r *GormRosterRepository) Delete(id uint) error {
	r.logger.WithField("id", id).Info("Deleting roster period")

	result := r.db.Select("Assignments").Delete(&models.RosterPeriod{ID: id})
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to delete roster period")
		return result.Error
	}
	if result.RowsAffected == 0 {
		r.logger.WithField("id", id).Warn("Roster period not found for deletion")
		return errors.New("roster period not found")
	}

	return nil
}
