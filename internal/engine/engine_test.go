package engine

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rota-engine/internal/carryover"
	"rota-engine/internal/roster"
	"rota-engine/internal/rules"
	"rota-engine/internal/solver"
)

var testStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// ruleSetFor builds an engine-ready rule set with everyone eligible for
// every working shift. Tests tighten individual fields afterwards.
func ruleSetFor(employees []roster.Employee, quota map[string]int) *rules.RuleSet {
	rs := &rules.RuleSet{
		Employees:        employees,
		Quota:            quota,
		ForbiddenWeekday: map[string]int{},
		Eligible: map[roster.ShiftType]map[string]bool{
			roster.Early:  {},
			roster.Middle: {},
			roster.Late:   {},
		},
		Alternating: map[string]bool{},
		PreferredShift: map[roster.ShiftType]map[string]bool{
			roster.Early:  {},
			roster.Middle: {},
			roster.Late:   {},
		},
		PreferredDays: map[string][]int{},
	}
	for _, emp := range employees {
		for _, s := range roster.WorkingShifts {
			rs.Eligible[s][emp.Name] = true
		}
	}
	return rs
}

func relaxedPolicy() Policy {
	p := DefaultPolicy()
	p.ConsecutiveCap = 7
	return p
}

func solveBuilder(t *testing.T, b *Builder) (*solver.Result, *ScheduleModel, *BuildContext, *roster.Schedule) {
	t.Helper()
	b.Logger = quietLogger()
	m, ctx, err := b.Build()
	require.NoError(t, err)

	res := solver.Solve(context.Background(), m.CP, solver.Options{TimeLimit: 30 * time.Second})
	require.True(t, res.Status.HasSolution(), "solver status %s", res.Status)

	sched := roster.NewSchedule(b.Horizon, b.StartDate, b.Rules.Employees)
	m.ExtractSchedule(res.Value, sched)
	return res, m, ctx, sched
}

func countShift(sched *roster.Schedule, week, day int, shift roster.ShiftType) int {
	n := 0
	for e := range sched.Employees {
		if sched.At(week, day, e) == shift {
			n++
		}
	}
	return n
}

func TestTwoLeadsCoverFullWeek(t *testing.T) {
	employees := []roster.Employee{
		{Name: "Alice", Role: roster.RoleLead},
		{Name: "Bob", Role: roster.RoleLead},
	}
	b := &Builder{
		Horizon:   roster.Horizon{Weeks: 1, DaysPerWeek: 7},
		StartDate: testStart,
		Rules:     ruleSetFor(employees, map[string]int{"Alice": 7, "Bob": 7}),
		Policy:    relaxedPolicy(),
	}

	res, _, ctx, sched := solveBuilder(t, b)
	assert.Equal(t, solver.StatusOptimal, res.Status)

	for d := 0; d < 7; d++ {
		assert.Equal(t, 1, countShift(sched, 0, d, roster.Early), "day %d", d)
		assert.Equal(t, 1, countShift(sched, 0, d, roster.Late), "day %d", d)
	}
	// No Early the day after a Late.
	for e := range sched.Employees {
		for d := 0; d < 6; d++ {
			if sched.At(0, d, e) == roster.Late {
				assert.NotEqual(t, roster.Early, sched.At(0, d+1, e))
			}
		}
	}
	// Quotas hold exactly, so no slack was spent.
	for _, rec := range ctx.Slacks {
		assert.Equal(t, 0, res.Value(rec.Var))
	}
	assert.Equal(t, 7, sched.WorkedDaysInWeek(0, 0))
	assert.Equal(t, 7, sched.WorkedDaysInWeek(0, 1))
}

func TestObjectiveIsStableAcrossSeeds(t *testing.T) {
	employees := []roster.Employee{
		{Name: "Alice", Role: roster.RoleLead},
		{Name: "Bob", Role: roster.RoleLead},
	}
	var objectives []int64
	for _, seed := range []int64{1, 2} {
		b := &Builder{
			Horizon:   roster.Horizon{Weeks: 1, DaysPerWeek: 7},
			StartDate: testStart,
			Rules:     ruleSetFor(employees, map[string]int{"Alice": 7, "Bob": 7}),
			Policy:    relaxedPolicy(),
			Logger:    quietLogger(),
		}
		m, _, err := b.Build()
		require.NoError(t, err)
		res := solver.Solve(context.Background(), m.CP, solver.Options{Seed: seed, TimeLimit: 30 * time.Second})
		require.Equal(t, solver.StatusOptimal, res.Status)
		objectives = append(objectives, res.Objective)
	}
	assert.Equal(t, objectives[0], objectives[1])
}

func TestForbiddenWeekdayForcesQuotaSlack(t *testing.T) {
	employees := []roster.Employee{
		{Name: "Alice", Role: roster.RoleLead},
		{Name: "Bob", Role: roster.RoleLead},
		{Name: "Ryan", Role: roster.RoleReserve},
	}
	rs := ruleSetFor(employees, map[string]int{"Alice": 7, "Bob": 7, "Ryan": 7})
	rs.ForbiddenWeekday["Alice"] = 0 // Sundays off, every week

	b := &Builder{
		Horizon:   roster.Horizon{Weeks: 1, DaysPerWeek: 7},
		StartDate: testStart,
		Rules:     rs,
		Policy:    relaxedPolicy(),
	}

	res, _, ctx, sched := solveBuilder(t, b)

	assert.Equal(t, roster.DayOff, sched.At(0, 0, 0))
	for d := 0; d < 7; d++ {
		assert.GreaterOrEqual(t, countShift(sched, 0, d, roster.Early), 1)
		assert.GreaterOrEqual(t, countShift(sched, 0, d, roster.Late), 1)
	}

	// Alice can reach at most 6 working days, so her quota must bend.
	slack := 0
	for _, rec := range ctx.Slacks {
		slack += res.Value(rec.Var)
	}
	assert.GreaterOrEqual(t, slack, 1)
}

func TestAlternatingWeekendPhase(t *testing.T) {
	employees := []roster.Employee{
		{Name: "Alice", Role: roster.RoleLead},
		{Name: "Bob", Role: roster.RoleLead},
		{Name: "Ryan", Role: roster.RoleReserve},
	}
	quota := map[string]int{"Alice": 2, "Bob": 3, "Ryan": 3}

	build := func(carry carryover.State) *Builder {
		rs := ruleSetFor(employees, quota)
		rs.Alternating["Alice"] = true
		return &Builder{
			Horizon:   roster.Horizon{Weeks: 2, DaysPerWeek: 3},
			StartDate: testStart,
			Rules:     rs,
			Carry:     carry,
			Policy:    DefaultPolicy(),
		}
	}

	// No carry-over: the first weekend pair is off.
	_, _, _, sched := solveBuilder(t, build(nil))
	assert.Equal(t, roster.DayOff, sched.At(0, 2, 0))
	assert.Equal(t, roster.DayOff, sched.At(1, 0, 0))

	// Prior period ended on a free weekend: the phase flips.
	carry := carryover.State{"Alice": {WeekendOff: true}}
	_, _, _, sched = solveBuilder(t, build(carry))
	assert.NotEqual(t, roster.DayOff, sched.At(0, 2, 0))
	assert.NotEqual(t, roster.DayOff, sched.At(1, 0, 0))
}

func TestCarriedConsecutiveDaysBlockTheFirstDay(t *testing.T) {
	employees := []roster.Employee{
		{Name: "Alice", Role: roster.RoleLead},
		{Name: "Bob", Role: roster.RoleLead},
		{Name: "Carol", Role: roster.RoleLead},
		{Name: "Ryan", Role: roster.RoleReserve},
	}
	rs := ruleSetFor(employees, map[string]int{"Alice": 1, "Bob": 2, "Carol": 2, "Ryan": 2})

	p := DefaultPolicy()
	p.ConsecutiveCap = 2

	b := &Builder{
		Horizon:   roster.Horizon{Weeks: 1, DaysPerWeek: 3},
		StartDate: testStart,
		Rules:     rs,
		Carry:     carryover.State{"Alice": {Consecutive: 2}},
		Policy:    p,
	}

	_, _, _, sched := solveBuilder(t, b)

	// Alice arrived at the cap, so her streak must break immediately.
	assert.False(t, sched.At(0, 0, 0).Working())

	// Nobody may exceed the cap inside the period either.
	for e := range sched.Employees {
		run := 0
		for d := 0; d < 3; d++ {
			if sched.At(0, d, e).Working() {
				run++
				assert.LessOrEqual(t, run, 2)
			} else {
				run = 0
			}
		}
	}
}

func TestOverridePinsWinOverEverything(t *testing.T) {
	employees := []roster.Employee{
		{Name: "Alice", Role: roster.RoleLead},
		{Name: "Bob", Role: roster.RoleLead},
		{Name: "Ryan", Role: roster.RoleReserve},
	}
	rs := ruleSetFor(employees, map[string]int{"Alice": 2, "Bob": 3, "Ryan": 3})

	holiday := &rules.DateRange{Start: testStart.AddDate(0, 0, 2), End: testStart.AddDate(0, 0, 2)}
	overrides := &rules.Overrides{
		StartDate: testStart,
		ByEmployee: map[string]rules.EmployeeOverride{
			"Alice": {DaysOff: []time.Time{testStart.AddDate(0, 0, 1)}},
			"Bob":   {Forced: []rules.ForcedShift{{Date: testStart, Shift: roster.Late}}},
			"Ryan":  {Holiday: holiday},
		},
	}

	b := &Builder{
		Horizon:   roster.Horizon{Weeks: 1, DaysPerWeek: 3},
		StartDate: testStart,
		Rules:     rs,
		Overrides: overrides,
		Policy:    relaxedPolicy(),
	}

	_, _, _, sched := solveBuilder(t, b)
	assert.Equal(t, roster.DayOff, sched.At(0, 1, 0))
	assert.Equal(t, roster.Late, sched.At(0, 0, 1))
	assert.Equal(t, roster.Holiday, sched.At(0, 2, 2))
}

func TestIneligibleShiftIsNeverAssigned(t *testing.T) {
	employees := []roster.Employee{
		{Name: "Alice", Role: roster.RoleLead},
		{Name: "Bob", Role: roster.RoleLead},
	}
	rs := ruleSetFor(employees, map[string]int{"Alice": 3, "Bob": 3})
	delete(rs.Eligible[roster.Late], "Alice")

	b := &Builder{
		Horizon:   roster.Horizon{Weeks: 1, DaysPerWeek: 3},
		StartDate: testStart,
		Rules:     rs,
		Policy:    relaxedPolicy(),
	}

	_, _, _, sched := solveBuilder(t, b)
	for d := 0; d < 3; d++ {
		assert.NotEqual(t, roster.Late, sched.At(0, d, 0))
	}
}

func TestPreferenceSteersEqualChoices(t *testing.T) {
	employees := []roster.Employee{
		{Name: "Alice", Role: roster.RoleLead},
		{Name: "Bob", Role: roster.RoleLead},
	}

	for _, tc := range []struct {
		prefer roster.ShiftType
		want   roster.ShiftType
	}{
		{roster.Late, roster.Late},
		{roster.Early, roster.Early},
	} {
		rs := ruleSetFor(employees, map[string]int{"Alice": 1, "Bob": 1})
		rs.PreferredShift[tc.prefer]["Alice"] = true

		b := &Builder{
			Horizon:   roster.Horizon{Weeks: 1, DaysPerWeek: 1},
			StartDate: testStart,
			Rules:     rs,
			Policy:    DefaultPolicy(),
			Logger:    quietLogger(),
		}
		m, _, err := b.Build()
		require.NoError(t, err)
		res := solver.Solve(context.Background(), m.CP, solver.Options{TimeLimit: 10 * time.Second})
		require.Equal(t, solver.StatusOptimal, res.Status)

		sched := roster.NewSchedule(b.Horizon, testStart, employees)
		m.ExtractSchedule(res.Value, sched)
		assert.Equal(t, tc.want, sched.At(0, 0, 0), "preferred %s", tc.prefer)
	}
}

func TestReserveStaysHomeWhenLeadsCover(t *testing.T) {
	employees := []roster.Employee{
		{Name: "Alice", Role: roster.RoleLead},
		{Name: "Bob", Role: roster.RoleLead},
		{Name: "Ryan", Role: roster.RoleReserve},
	}
	rs := ruleSetFor(employees, map[string]int{"Alice": 1, "Bob": 1, "Ryan": 1})

	b := &Builder{
		Horizon:   roster.Horizon{Weeks: 1, DaysPerWeek: 1},
		StartDate: testStart,
		Rules:     rs,
		Policy:    DefaultPolicy(),
		Logger:    quietLogger(),
	}
	m, _, err := b.Build()
	require.NoError(t, err)
	res := solver.Solve(context.Background(), m.CP, solver.Options{TimeLimit: 10 * time.Second})
	require.Equal(t, solver.StatusOptimal, res.Status)

	sched := roster.NewSchedule(b.Horizon, testStart, employees)
	m.ExtractSchedule(res.Value, sched)
	assert.False(t, sched.At(0, 0, 2).Working())
}

func TestSingleLeadCannotCoverBothShifts(t *testing.T) {
	employees := []roster.Employee{{Name: "Solo", Role: roster.RoleLead}}
	b := &Builder{
		Horizon:   roster.Horizon{Weeks: 1, DaysPerWeek: 3},
		StartDate: testStart,
		Rules:     ruleSetFor(employees, map[string]int{"Solo": 3}),
		Policy:    DefaultPolicy(),
		Logger:    quietLogger(),
	}
	m, _, err := b.Build()
	require.NoError(t, err)

	res := solver.Solve(context.Background(), m.CP, solver.Options{TimeLimit: 10 * time.Second})
	assert.Equal(t, solver.StatusInfeasible, res.Status)
}

func TestBuildRejectsBadInputs(t *testing.T) {
	employees := []roster.Employee{{Name: "Alice", Role: roster.RoleLead}}
	rs := ruleSetFor(employees, map[string]int{"Alice": 5})

	b := &Builder{Horizon: roster.Horizon{Weeks: 1, DaysPerWeek: 7}, Policy: DefaultPolicy(), Logger: quietLogger()}
	_, _, err := b.Build()
	assert.ErrorContains(t, err, "no employees")

	b = &Builder{Rules: rs, Policy: DefaultPolicy(), Logger: quietLogger()}
	_, _, err = b.Build()
	assert.ErrorContains(t, err, "horizon")

	bad := DefaultPolicy()
	bad.WeekendMiddle = "sometimes"
	b = &Builder{Rules: rs, Horizon: roster.Horizon{Weeks: 1, DaysPerWeek: 7}, Policy: bad, Logger: quietLogger()}
	_, _, err = b.Build()
	assert.Error(t, err)
}

func TestFourLeadMonthSolvesToOptimal(t *testing.T) {
	employees := []roster.Employee{
		{Name: "Alice", Role: roster.RoleLead},
		{Name: "Bob", Role: roster.RoleLead},
		{Name: "Carol", Role: roster.RoleLead},
		{Name: "Dave", Role: roster.RoleLead},
		{Name: "Ryan", Role: roster.RoleReserve},
	}
	rs := ruleSetFor(employees, map[string]int{
		"Alice": 5, "Bob": 5, "Carol": 5, "Dave": 5, "Ryan": 2,
	})
	b := &Builder{
		Horizon:   roster.Horizon{Weeks: 4, DaysPerWeek: 7},
		StartDate: testStart,
		Rules:     rs,
		Policy:    DefaultPolicy(),
		Logger:    quietLogger(),
	}
	m, _, err := b.Build()
	require.NoError(t, err)

	res := solver.Solve(context.Background(), m.CP, solver.Options{Seed: 1, TimeLimit: 120 * time.Second})
	require.Equal(t, solver.StatusOptimal, res.Status)

	sched := roster.NewSchedule(b.Horizon, testStart, rs.Employees)
	m.ExtractSchedule(res.Value, sched)
	for w := 0; w < 4; w++ {
		for d := 0; d < 7; d++ {
			assert.GreaterOrEqual(t, countShift(sched, w, d, roster.Early), 1, "week %d day %d", w, d)
			assert.GreaterOrEqual(t, countShift(sched, w, d, roster.Late), 1, "week %d day %d", w, d)
		}
	}
	// The reserve is capped at 2 days per week.
	assert.LessOrEqual(t, sched.WorkedDays(4), 8)
}

func TestFullWeekHolidaySpendsQuotaSlack(t *testing.T) {
	employees := []roster.Employee{
		{Name: "Alice", Role: roster.RoleLead},
		{Name: "Bob", Role: roster.RoleLead},
		{Name: "Carol", Role: roster.RoleLead},
		{Name: "Dave", Role: roster.RoleLead},
		{Name: "Ryan", Role: roster.RoleReserve},
	}
	rs := ruleSetFor(employees, map[string]int{
		"Alice": 5, "Bob": 5, "Carol": 5, "Dave": 5, "Ryan": 2,
	})
	holiday := &rules.DateRange{
		Start: testStart.AddDate(0, 0, 7),
		End:   testStart.AddDate(0, 0, 13),
	}
	overrides := &rules.Overrides{
		StartDate: testStart,
		ByEmployee: map[string]rules.EmployeeOverride{
			"Alice": {Holiday: holiday},
		},
	}
	b := &Builder{
		Horizon:   roster.Horizon{Weeks: 2, DaysPerWeek: 7},
		StartDate: testStart,
		Rules:     rs,
		Overrides: overrides,
		Policy:    DefaultPolicy(),
		Logger:    quietLogger(),
	}
	m, bctx, err := b.Build()
	require.NoError(t, err)

	res := solver.Solve(context.Background(), m.CP, solver.Options{Seed: 1, TimeLimit: 120 * time.Second})
	require.True(t, res.Status.HasSolution(), "solver status %s", res.Status)

	sched := roster.NewSchedule(b.Horizon, testStart, rs.Employees)
	m.ExtractSchedule(res.Value, sched)
	for d := 0; d < 7; d++ {
		assert.Equal(t, roster.Holiday, sched.At(1, d, 0), "day %d", d)
	}
	// The whole quota of the held week turns into slack.
	dropped := -1
	for _, rec := range bctx.Slacks {
		if rec.Employee == "Alice" && rec.Week == 1 {
			dropped = res.Value(rec.Var)
		}
	}
	assert.Equal(t, 5, dropped)
}

func TestBuildRegistersSlackPerLeadWeek(t *testing.T) {
	employees := []roster.Employee{
		{Name: "Alice", Role: roster.RoleLead},
		{Name: "Bob", Role: roster.RoleLead},
		{Name: "Ryan", Role: roster.RoleReserve},
	}
	b := &Builder{
		Horizon:   roster.Horizon{Weeks: 2, DaysPerWeek: 7},
		StartDate: testStart,
		Rules:     ruleSetFor(employees, map[string]int{"Alice": 5, "Bob": 5, "Ryan": 7}),
		Policy:    DefaultPolicy(),
		Logger:    quietLogger(),
	}
	m, ctx, err := b.Build()
	require.NoError(t, err)

	// One relaxation variable per Lead per week; Reserve caps never relax.
	assert.Len(t, ctx.Slacks, 4)
	_, hasObj := m.CP.Objective()
	assert.True(t, hasObj)
	assert.NotZero(t, m.CP.NumVars())
	assert.NotEmpty(t, m.CP.Constraints())
}
