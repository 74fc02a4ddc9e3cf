package models

import (
	"time"
)

// RosterPeriod is one generated rota run: the solve outcome plus the
// exported file location. Assignments hold the full grid so a period can
// be reloaded without re-parsing the CSV.
type RosterPeriod struct {
	ID          uint               `gorm:"primarykey" json:"id"`
	RunID       string             `gorm:"not null;uniqueIndex;size:36" json:"run_id"`
	StartDate   time.Time          `gorm:"not null;index" json:"start_date"`
	Weeks       int                `gorm:"not null" json:"weeks"`
	Status      string             `gorm:"not null" json:"status"`
	Objective   int64              `gorm:"not null;default:0" json:"objective"`
	SlackDays   int                `gorm:"not null;default:0" json:"slack_days"`
	SolveMillis int64              `gorm:"not null;default:0" json:"solve_millis"`
	FilePath    string             `json:"file_path"`
	Assignments []RosterAssignment `gorm:"foreignKey:PeriodID;constraint:OnDelete:CASCADE" json:"assignments"`
	CreatedAt   time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (RosterPeriod) TableName() string {
	return "roster_periods"
}

// IsValid reports whether the period record is complete enough to store.
func (rp *RosterPeriod) IsValid() bool {
	if rp.RunID == "" {
		return false
	}
	if rp.Weeks <= 0 || rp.Weeks > 52 {
		return false
	}
	if rp.StartDate.IsZero() {
		return false
	}
	return rp.Status != ""
}

// RosterAssignment is one cell of the rota grid.
type RosterAssignment struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	PeriodID uint   `gorm:"not null;index" json:"period_id"`
	Employee string `gorm:"not null;index" json:"employee"`
	Role     string `gorm:"not null" json:"role"`
	Week     int    `gorm:"not null" json:"week"`
	Day      int    `gorm:"not null" json:"day"`
	Shift    string `gorm:"not null;size:4" json:"shift"`
}

func (RosterAssignment) TableName() string {
	return "roster_assignments"
}
