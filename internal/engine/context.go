package engine

import (
	"time"

	"rota-engine/internal/carryover"
	"rota-engine/internal/cp"
	"rota-engine/internal/rules"
)

// SlackRecord tracks one relaxation variable installed next to a required
// rule. A positive slack in a solution is a rule violation the objective
// has already paid for; it is surfaced, never silent.
type SlackRecord struct {
	Employee string
	Week     int
	Target   int
	Var      cp.IntVar
}

// BuildContext threads the read-only inputs and the accumulated build state
// through every constraint installer. It replaces any notion of shared
// module-level accumulators: one context per solve, owned by the builder.
type BuildContext struct {
	Rules     *rules.RuleSet
	Overrides *rules.Overrides
	Carry     carryover.State
	Policy    Policy

	// StartDate anchors override dates to (week, day) grid positions.
	StartDate time.Time

	// Slacks collects workload relaxation variables for the objective and
	// for post-solve violation reporting.
	Slacks []SlackRecord

	// Objective accumulates tiered terms while installers run.
	Objective *Objective
}

// AddSlack registers a relaxation variable.
func (ctx *BuildContext) AddSlack(rec SlackRecord) {
	ctx.Slacks = append(ctx.Slacks, rec)
}

// DayOffset converts a calendar date to a global day index relative to the
// rota start. The boolean is false when the date precedes the start.
func (ctx *BuildContext) DayOffset(date time.Time) (int, bool) {
	days := int(date.Sub(ctx.StartDate).Hours() / 24)
	if days < 0 {
		return 0, false
	}
	return days, true
}
