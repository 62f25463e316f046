package store

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/dashmail/internal/models"
)

// Store reads schedule records. The schedule lifecycle is owned by the web
// application; this service never writes schedule rows.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetDashboardSchedule(id uint) (*models.DashboardEmailSchedule, error) {
	var schedule models.DashboardEmailSchedule
	if err := s.db.Preload("Dashboard").First(&schedule, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load dashboard schedule %d: %v", id, err)
	}
	return &schedule, nil
}

func (s *Store) GetSliceSchedule(id uint) (*models.SliceEmailSchedule, error) {
	var schedule models.SliceEmailSchedule
	if err := s.db.Preload("Slice").First(&schedule, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load slice schedule %d: %v", id, err)
	}
	return &schedule, nil
}

func (s *Store) ActiveDashboardSchedules() ([]models.DashboardEmailSchedule, error) {
	var schedules []models.DashboardEmailSchedule
	if err := s.db.Preload("Dashboard").Where("active = ?", true).Find(&schedules).Error; err != nil {
		return nil, fmt.Errorf("failed to list active dashboard schedules: %v", err)
	}
	return schedules, nil
}

func (s *Store) ActiveSliceSchedules() ([]models.SliceEmailSchedule, error) {
	var schedules []models.SliceEmailSchedule
	if err := s.db.Preload("Slice").Where("active = ?", true).Find(&schedules).Error; err != nil {
		return nil, fmt.Errorf("failed to list active slice schedules: %v", err)
	}
	return schedules, nil
}

func (s *Store) GetUser(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to load user %s: %v", username, err)
	}
	return &user, nil
}

func (s *Store) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load user %d: %v", id, err)
	}
	return &user, nil
}
