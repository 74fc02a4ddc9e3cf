package engine

import (
	"fmt"

	"rota-engine/internal/cp"
	"rota-engine/internal/roster"
)

// Soft-term installers. They add reified indicators to the model and
// register rewards or penalties on the objective tiers; they never add a
// constraint that could make the model infeasible on its own.

// and reifies v <=> conjunction of lits.
func and(m *ScheduleModel, name string, lits ...cp.Literal) cp.Literal {
	v := m.CP.NewBoolVar(name)
	m.CP.AddBoolAnd(lits...).OnlyEnforceIf(v)
	negs := make([]cp.Literal, len(lits))
	for i, l := range lits {
		negs[i] = l.Not()
	}
	m.CP.AddBoolOr(negs...).OnlyEnforceIf(v.Not())
	return v
}

// installWeekendRewards rewards Leads who are not on the alternating
// pattern for free weekends: a full weekend pair off pays double a single
// free Saturday or Sunday.
func installWeekendRewards(m *ScheduleModel, ctx *BuildContext) {
	h := m.Horizon
	last := h.DaysPerWeek - 1
	var reward cp.LinearExpr
	for e, emp := range m.Employees {
		if emp.Role != roster.RoleLead || ctx.Rules.Alternating[emp.Name] {
			continue
		}
		for w := 0; w < h.Weeks-1; w++ {
			sat := m.Is(w, last, e, roster.DayOff)
			sun := m.Is(w+1, 0, e, roster.DayOff)
			full := and(m, fmt.Sprintf("weekend_full[%d,%d]", w, e), sat, sun)
			satOnly := and(m, fmt.Sprintf("weekend_sat[%d,%d]", w, e), sat, sun.Not())
			sunOnly := and(m, fmt.Sprintf("weekend_sun[%d,%d]", w, e), sat.Not(), sun)
			reward.AddLiteral(full, 2)
			reward.AddLiteral(satOnly, 1)
			reward.AddLiteral(sunOnly, 1)
		}
	}
	ctx.Objective.AddReward(TierWeekend, reward)
}

// installPreferenceRewards pays one unit for every assignment that lands on
// a preferred shift type or a preferred working weekday.
func installPreferenceRewards(m *ScheduleModel, ctx *BuildContext) {
	h := m.Horizon
	var reward cp.LinearExpr
	for e, emp := range m.Employees {
		likedDay := make(map[int]bool, len(ctx.Rules.PreferredDays[emp.Name]))
		for _, d := range ctx.Rules.PreferredDays[emp.Name] {
			likedDay[d] = true
		}
		for w := 0; w < h.Weeks; w++ {
			for d := 0; d < h.DaysPerWeek; d++ {
				for _, shift := range roster.WorkingShifts {
					if ctx.Rules.PreferredShift[shift][emp.Name] {
						reward.AddLiteral(m.Is(w, d, e, shift), 1)
					}
				}
				if likedDay[d] {
					reward.AddLiteral(m.Working(w, d, e), 1)
				}
			}
		}
	}
	ctx.Objective.AddReward(TierPreference, reward)
}

// installReservePenalties discourages spending Reserve staff at all, and
// charges Leads for isolated single days off sandwiched between working
// days.
func installReservePenalties(m *ScheduleModel, ctx *BuildContext) {
	h := m.Horizon
	var penalty cp.LinearExpr
	for e, emp := range m.Employees {
		if emp.Role == roster.RoleReserve {
			for w := 0; w < h.Weeks; w++ {
				for d := 0; d < h.DaysPerWeek; d++ {
					penalty.AddLiteral(m.Working(w, d, e), 1)
				}
			}
			continue
		}
		for t := 1; t < h.TotalDays()-1; t++ {
			pw, pd := h.Split(t - 1)
			w, d := h.Split(t)
			nw, nd := h.Split(t + 1)
			gap := and(m, fmt.Sprintf("isolated_off[%d,%d]", t, e),
				m.Working(pw, pd, e), m.Working(w, d, e).Not(), m.Working(nw, nd, e))
			penalty.AddLiteral(gap, 1)
		}
	}
	ctx.Objective.AddPenalty(TierReserveUse, penalty)
}

// installPatternPenalties charges for exhausting runs at the consecutive
// cap and for stacking more than one Lead on the same (day, shift type)
// slot when a single Lead would cover it.
func installPatternPenalties(m *ScheduleModel, ctx *BuildContext) {
	h := m.Horizon
	run := ctx.Policy.ConsecutiveCap
	var penalty cp.LinearExpr
	for e := range m.Employees {
		for start := 0; start+run <= h.TotalDays(); start++ {
			lits := make([]cp.Literal, run)
			for j := 0; j < run; j++ {
				w, d := h.Split(start + j)
				lits[j] = m.Working(w, d, e)
			}
			penalty.AddLiteral(and(m, fmt.Sprintf("max_run[%d,%d]", start, e), lits...), 1)
		}
	}

	leads := ctx.Rules.Leads()
	if len(leads) > 1 {
		for w := 0; w < h.Weeks; w++ {
			for d := 0; d < h.DaysPerWeek; d++ {
				for _, shift := range roster.WorkingShifts {
					var onShift cp.LinearExpr
					for e, emp := range m.Employees {
						if emp.Role == roster.RoleLead {
							onShift.AddLiteral(m.Is(w, d, e, shift), 1)
						}
					}
					dup := m.CP.NewIntVar(0, len(leads)-1, fmt.Sprintf("extra_%s[%d,%d]", shift, w, d))
					onShift.AddTerm(dup, -1)
					m.CP.AddAtMost(onShift, 1)
					penalty.AddTerm(dup, 1)
				}
			}
		}
	}
	ctx.Objective.AddPenalty(TierPattern, penalty)
}

// installSlackPenalty charges the dominant tier for every relaxed quota
// day. Runs after installWorkload has registered the slack records.
func installSlackPenalty(m *ScheduleModel, ctx *BuildContext) {
	var penalty cp.LinearExpr
	for _, rec := range ctx.Slacks {
		penalty.AddTerm(rec.Var, 1)
	}
	ctx.Objective.AddPenalty(TierSlack, penalty)
}
