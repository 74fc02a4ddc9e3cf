package engine

import (
	"fmt"

	"rota-engine/internal/cp"
	"rota-engine/internal/roster"
)

// ScheduleModel owns the assignment-variable arena for one solve: a dense
// (week, day, employee) grid of shift variables plus memoized boolean
// indicators derived from them. Requesting an index outside the horizon or
// roster is a programming error and panics.
type ScheduleModel struct {
	CP        *cp.Model
	Horizon   roster.Horizon
	Employees []roster.Employee

	vars       []cp.IntVar
	indicators map[indicatorKey]cp.Literal
}

type indicatorKey struct {
	week, day, emp int
	kind           int8
}

// Indicator kinds: 0..int(roster.Holiday) are "assignment == shift";
// kindWorking is "assignment counts as a worked day".
const kindWorking int8 = int8(roster.Holiday) + 1

// NewScheduleModel allocates the variable grid. Every assignment variable
// spans the full shift domain; rule-dependent restrictions are installed as
// constraints, not domain surgery, so installers stay order-insensitive.
func NewScheduleModel(h roster.Horizon, employees []roster.Employee) *ScheduleModel {
	m := &ScheduleModel{
		CP:         cp.NewModel(),
		Horizon:    h,
		Employees:  employees,
		indicators: make(map[indicatorKey]cp.Literal),
	}
	m.vars = make([]cp.IntVar, h.TotalDays()*len(employees))
	for w := 0; w < h.Weeks; w++ {
		for d := 0; d < h.DaysPerWeek; d++ {
			for e := range employees {
				v := m.CP.NewIntVar(0, int(roster.Holiday), fmt.Sprintf("x[%d,%d,%d]", w, d, e))
				m.vars[m.slot(w, d, e)] = v
				m.CP.MarkDecision(v)
			}
		}
	}
	return m
}

func (m *ScheduleModel) slot(week, day, emp int) int {
	if week < 0 || week >= m.Horizon.Weeks ||
		day < 0 || day >= m.Horizon.DaysPerWeek ||
		emp < 0 || emp >= len(m.Employees) {
		panic(fmt.Sprintf("schedule model index out of range: week=%d day=%d emp=%d", week, day, emp))
	}
	return m.Horizon.DayIndex(week, day)*len(m.Employees) + emp
}

// Assignment returns the shift variable for (week, day, employee index).
func (m *ScheduleModel) Assignment(week, day, emp int) cp.IntVar {
	return m.vars[m.slot(week, day, emp)]
}

// Is returns the memoized indicator literal for "assignment == shift".
// Repeated calls for the same triple return the same literal.
func (m *ScheduleModel) Is(week, day, emp int, shift roster.ShiftType) cp.Literal {
	key := indicatorKey{week: week, day: day, emp: emp, kind: int8(shift)}
	if lit, ok := m.indicators[key]; ok {
		return lit
	}
	x := m.Assignment(week, day, emp)
	b := m.CP.NewBoolVar(fmt.Sprintf("is_%s[%d,%d,%d]", shift, week, day, emp))
	m.CP.AddVarEquals(x, int(shift)).OnlyEnforceIf(b)
	m.CP.AddVarNotEquals(x, int(shift)).OnlyEnforceIf(b.Not())
	m.indicators[key] = b
	return b
}

// Working returns the memoized indicator literal for "assignment is a
// working shift" (Early, Middle or Late).
func (m *ScheduleModel) Working(week, day, emp int) cp.Literal {
	key := indicatorKey{week: week, day: day, emp: emp, kind: kindWorking}
	if lit, ok := m.indicators[key]; ok {
		return lit
	}
	x := m.Assignment(week, day, emp)
	b := m.CP.NewBoolVar(fmt.Sprintf("working[%d,%d,%d]", week, day, emp))
	m.CP.AddVarAtMost(x, int(roster.Late)).OnlyEnforceIf(b)
	m.CP.AddVarAtLeast(x, int(roster.Late)+1).OnlyEnforceIf(b.Not())
	m.indicators[key] = b
	return b
}

// ExtractSchedule reads a solved assignment back into a Schedule grid.
func (m *ScheduleModel) ExtractSchedule(value func(cp.IntVar) int, sched *roster.Schedule) {
	for w := 0; w < m.Horizon.Weeks; w++ {
		for d := 0; d < m.Horizon.DaysPerWeek; d++ {
			for e := range m.Employees {
				sched.Set(w, d, e, roster.ShiftType(value(m.Assignment(w, d, e))))
			}
		}
	}
}
