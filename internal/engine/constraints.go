package engine

import (
	"fmt"

	"rota-engine/internal/cp"
	"rota-engine/internal/roster"
)

// Hard-rule installers. Each one is independent and order-insensitive; all
// installed constraints are conjunctive over the final model. Installers
// only read the context (plus AddSlack) and only extend the model.

// installCoverage requires at least one Early and one Late assignment every
// day, optionally caps the daily working headcount, and applies the
// boundary-day Middle policy.
func installCoverage(m *ScheduleModel, ctx *BuildContext) {
	h := m.Horizon
	for w := 0; w < h.Weeks; w++ {
		for d := 0; d < h.DaysPerWeek; d++ {
			var early, late []cp.Literal
			var working cp.LinearExpr
			for e := range m.Employees {
				early = append(early, m.Is(w, d, e, roster.Early))
				late = append(late, m.Is(w, d, e, roster.Late))
				working.AddLiteral(m.Working(w, d, e), 1)
			}
			m.CP.AddAtLeast(cp.Sum(early...), 1)
			m.CP.AddAtLeast(cp.Sum(late...), 1)
			if ctx.Policy.MaxDailyHeadcount > 0 {
				m.CP.AddAtMost(working, int64(ctx.Policy.MaxDailyHeadcount))
			}

			if d != 0 && d != h.DaysPerWeek-1 {
				continue
			}
			switch ctx.Policy.WeekendMiddle {
			case MiddleBannedForAll:
				for e := range m.Employees {
					m.CP.AddVarNotEquals(m.Assignment(w, d, e), int(roster.Middle))
				}
			case MiddleBannedForLeads:
				for e, emp := range m.Employees {
					if emp.Role == roster.RoleLead {
						m.CP.AddVarNotEquals(m.Assignment(w, d, e), int(roster.Middle))
					}
				}
			}
		}
	}
}

// installWorkload pins weekly worked-day counts: Leads hit their quota
// exactly, up to a slack that the objective's dominant tier punishes;
// Reserve caps are plain upper bounds and never need relaxing.
func installWorkload(m *ScheduleModel, ctx *BuildContext) {
	h := m.Horizon
	for e, emp := range m.Employees {
		quota, ok := ctx.Rules.Quota[emp.Name]
		if !ok {
			continue
		}
		for w := 0; w < h.Weeks; w++ {
			var worked cp.LinearExpr
			for d := 0; d < h.DaysPerWeek; d++ {
				worked.AddLiteral(m.Working(w, d, e), 1)
			}
			if emp.Role == roster.RoleReserve {
				m.CP.AddAtMost(worked, int64(quota))
				continue
			}
			slack := m.CP.NewIntVar(0, quota, fmt.Sprintf("quota_slack[%d,%d]", w, e))
			worked.AddTerm(slack, 1)
			m.CP.AddEquality(worked, int64(quota))
			ctx.AddSlack(SlackRecord{Employee: emp.Name, Week: w, Target: quota, Var: slack})
		}
	}
}

// installEligibility forbids working shift types an employee is not listed
// for. DayOff is always allowed; Holiday is always allowed except for
// Reserves when the policy withholds it (an override holiday still wins).
func installEligibility(m *ScheduleModel, ctx *BuildContext) {
	h := m.Horizon
	for e, emp := range m.Employees {
		banHoliday := !ctx.Policy.ReserveHoliday && emp.Role == roster.RoleReserve
		var holidayOverride func(week, day int) bool
		if banHoliday {
			if eo, ok := ctx.Overrides.ByEmployee[emp.Name]; ok && eo.Holiday != nil {
				rng := *eo.Holiday
				holidayOverride = func(week, day int) bool {
					return rng.Contains(ctx.StartDate.AddDate(0, 0, h.DayIndex(week, day)))
				}
			}
		}
		for w := 0; w < h.Weeks; w++ {
			for d := 0; d < h.DaysPerWeek; d++ {
				for _, shift := range roster.WorkingShifts {
					if !ctx.Rules.IsEligible(emp.Name, shift) {
						m.CP.AddVarNotEquals(m.Assignment(w, d, e), int(shift))
					}
				}
				if banHoliday && (holidayOverride == nil || !holidayOverride(w, d)) {
					m.CP.AddVarNotEquals(m.Assignment(w, d, e), int(roster.Holiday))
				}
			}
		}
	}
}

// installLateToEarly forbids an Early shift on the day after a Late one,
// across week boundaries too. Always hard: it is a rest rule.
func installLateToEarly(m *ScheduleModel, ctx *BuildContext) {
	h := m.Horizon
	for e := range m.Employees {
		for t := 0; t < h.TotalDays()-1; t++ {
			w, d := h.Split(t)
			nw, nd := h.Split(t + 1)
			wasLate := m.Is(w, d, e, roster.Late)
			m.CP.AddVarNotEquals(m.Assignment(nw, nd, e), int(roster.Early)).OnlyEnforceIf(wasLate)
		}
	}
}

// installConsecutiveCap bounds every run of working days by the policy cap
// using sliding windows of cap+1 days. Windows that reach back before the
// period start count the employee's carried-in trailing days as constants,
// so a streak cannot hide across the boundary.
func installConsecutiveCap(m *ScheduleModel, ctx *BuildContext) {
	h := m.Horizon
	cap := ctx.Policy.ConsecutiveCap
	total := h.TotalDays()
	for e, emp := range m.Employees {
		carry := ctx.Carry.For(emp.Name).Consecutive
		if carry > cap {
			carry = cap
		}
		for start := -carry; start <= total-1-cap; start++ {
			carried := 0
			if start < 0 {
				carried = -start
			}
			var worked cp.LinearExpr
			for t := start + carried; t <= start+cap; t++ {
				w, d := h.Split(t)
				worked.AddLiteral(m.Working(w, d, e), 1)
			}
			m.CP.AddAtMost(worked, int64(cap-carried))
		}
	}
}

// installRolePriority keeps Reserves out of any (day, shift type) slot that
// a Lead already covers. One-directional: a slot covered by nobody is a
// coverage problem, not a priority one.
func installRolePriority(m *ScheduleModel, ctx *BuildContext) {
	h := m.Horizon
	if len(ctx.Rules.Reserves()) == 0 {
		return
	}
	for w := 0; w < h.Weeks; w++ {
		for d := 0; d < h.DaysPerWeek; d++ {
			for _, shift := range roster.WorkingShifts {
				var leads, reserves cp.LinearExpr
				for e, emp := range m.Employees {
					if emp.Role == roster.RoleLead {
						leads.AddLiteral(m.Is(w, d, e, shift), 1)
					} else {
						reserves.AddLiteral(m.Is(w, d, e, shift), 1)
					}
				}
				if len(leads.Terms) == 0 || len(reserves.Terms) == 0 {
					continue
				}
				present := m.CP.NewBoolVar(fmt.Sprintf("lead_covers_%s[%d,%d]", shift, w, d))
				m.CP.AddAtLeast(leads, 1).OnlyEnforceIf(present)
				m.CP.AddEquality(leads, 0).OnlyEnforceIf(present.Not())
				m.CP.AddEquality(reserves, 0).OnlyEnforceIf(present)
			}
		}
	}
}

// installAlternatingWeekends enforces strict every-other-weekend-off
// alternation. A weekend pair is (Saturday of week w, Sunday of week w+1);
// the first pair's phase inverts the carried weekend-off flag so the new
// period continues the rhythm instead of restarting it.
func installAlternatingWeekends(m *ScheduleModel, ctx *BuildContext) {
	h := m.Horizon
	last := h.DaysPerWeek - 1
	for name := range ctx.Rules.Alternating {
		e, ok := ctx.Rules.EmployeeIndex(name)
		if !ok {
			continue
		}
		offset := 0
		if ctx.Carry.For(name).WeekendOff {
			offset = 1
		}
		for w := 0; w < h.Weeks-1; w++ {
			if (w+offset)%2 == 0 {
				m.CP.AddVarEquals(m.Assignment(w, last, e), int(roster.DayOff))
				m.CP.AddVarEquals(m.Assignment(w+1, 0, e), int(roster.DayOff))
			} else {
				m.CP.AddVarNotEquals(m.Assignment(w, last, e), int(roster.DayOff))
				m.CP.AddVarNotEquals(m.Assignment(w+1, 0, e), int(roster.DayOff))
			}
		}
	}
}

// installForbiddenWeekdays pins standing "won't work" weekdays to days off
// in every week.
func installForbiddenWeekdays(m *ScheduleModel, ctx *BuildContext) {
	h := m.Horizon
	for name, day := range ctx.Rules.ForbiddenWeekday {
		e, ok := ctx.Rules.EmployeeIndex(name)
		if !ok || day >= h.DaysPerWeek {
			continue
		}
		for w := 0; w < h.Weeks; w++ {
			m.CP.AddVarEquals(m.Assignment(w, day, e), int(roster.DayOff))
		}
	}
}

// installOverrides applies the temporary pins. They fix assignment
// variables directly and therefore take precedence over every other rule
// for the dates they cover. Dates outside the horizon are ignored.
func installOverrides(m *ScheduleModel, ctx *BuildContext) {
	h := m.Horizon
	total := h.TotalDays()
	for name, eo := range ctx.Overrides.ByEmployee {
		e, ok := ctx.Rules.EmployeeIndex(name)
		if !ok {
			continue
		}
		for _, date := range eo.DaysOff {
			if t, ok := ctx.DayOffset(date); ok && t < total {
				w, d := h.Split(t)
				m.CP.AddVarEquals(m.Assignment(w, d, e), int(roster.DayOff))
			}
		}
		for _, forced := range eo.Forced {
			if t, ok := ctx.DayOffset(forced.Date); ok && t < total {
				w, d := h.Split(t)
				m.CP.AddVarEquals(m.Assignment(w, d, e), int(forced.Shift))
			}
		}
		if eo.Holiday == nil {
			continue
		}
		for t := 0; t < total; t++ {
			if eo.Holiday.Contains(ctx.StartDate.AddDate(0, 0, t)) {
				w, d := h.Split(t)
				m.CP.AddVarEquals(m.Assignment(w, d, e), int(roster.Holiday))
			}
		}
	}
}
