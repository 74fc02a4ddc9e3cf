package roster

import (
	"fmt"
	"time"
)

// Schedule is a solved rota: one ShiftType per (week, day, employee).
type Schedule struct {
	Horizon   Horizon
	StartDate time.Time
	Employees []Employee
	cells     []ShiftType
}

// NewSchedule allocates an empty schedule grid (all cells DayOff).
func NewSchedule(h Horizon, start time.Time, employees []Employee) *Schedule {
	cells := make([]ShiftType, h.TotalDays()*len(employees))
	for i := range cells {
		cells[i] = DayOff
	}
	return &Schedule{
		Horizon:   h,
		StartDate: start,
		Employees: employees,
		cells:     cells,
	}
}

func (s *Schedule) idx(week, day, emp int) int {
	if week < 0 || week >= s.Horizon.Weeks ||
		day < 0 || day >= s.Horizon.DaysPerWeek ||
		emp < 0 || emp >= len(s.Employees) {
		panic(fmt.Sprintf("schedule index out of range: week=%d day=%d emp=%d", week, day, emp))
	}
	return s.Horizon.DayIndex(week, day)*len(s.Employees) + emp
}

// At returns the assigned shift for (week, day, employee index).
func (s *Schedule) At(week, day, emp int) ShiftType {
	return s.cells[s.idx(week, day, emp)]
}

// Set records an assignment.
func (s *Schedule) Set(week, day, emp int, shift ShiftType) {
	s.cells[s.idx(week, day, emp)] = shift
}

// Date returns the calendar date of (week, day).
func (s *Schedule) Date(week, day int) time.Time {
	return s.StartDate.AddDate(0, 0, s.Horizon.DayIndex(week, day))
}

// WorkedDays counts the worked days for one employee across the horizon.
func (s *Schedule) WorkedDays(emp int) int {
	total := 0
	for w := 0; w < s.Horizon.Weeks; w++ {
		for d := 0; d < s.Horizon.DaysPerWeek; d++ {
			if s.At(w, d, emp).Working() {
				total++
			}
		}
	}
	return total
}

// WorkedDaysInWeek counts the worked days for one employee in one week.
func (s *Schedule) WorkedDaysInWeek(week, emp int) int {
	total := 0
	for d := 0; d < s.Horizon.DaysPerWeek; d++ {
		if s.At(week, d, emp).Working() {
			total++
		}
	}
	return total
}
