package engine

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"rota-engine/internal/carryover"
	"rota-engine/internal/roster"
	"rota-engine/internal/rules"
)

// Builder assembles a complete, ready-to-solve schedule model from the
// validated inputs. The installer order is fixed; every installer is
// order-insensitive so the sequence only matters for log readability.
type Builder struct {
	Horizon   roster.Horizon
	StartDate time.Time
	Rules     *rules.RuleSet
	Overrides *rules.Overrides
	Carry     carryover.State
	Policy    Policy
	Logger    *logrus.Logger
}

type installer struct {
	name    string
	install func(*ScheduleModel, *BuildContext)
}

var installers = []installer{
	{"coverage", installCoverage},
	{"workload", installWorkload},
	{"eligibility", installEligibility},
	{"late_to_early", installLateToEarly},
	{"consecutive_cap", installConsecutiveCap},
	{"role_priority", installRolePriority},
	{"alternating_weekends", installAlternatingWeekends},
	{"forbidden_weekdays", installForbiddenWeekdays},
	{"overrides", installOverrides},
	{"weekend_rewards", installWeekendRewards},
	{"preference_rewards", installPreferenceRewards},
	{"reserve_penalties", installReservePenalties},
	{"pattern_penalties", installPatternPenalties},
	{"slack_penalty", installSlackPenalty},
}

// Build runs every installer, composes the tiered objective and returns
// the model together with the context needed to interpret a solution.
func (b *Builder) Build() (*ScheduleModel, *BuildContext, error) {
	if b.Rules == nil || len(b.Rules.Employees) == 0 {
		return nil, nil, errors.New("engine: rule set has no employees")
	}
	if b.Horizon.Weeks <= 0 || b.Horizon.DaysPerWeek <= 0 {
		return nil, nil, errors.New("engine: horizon is empty")
	}
	if err := b.Policy.Validate(); err != nil {
		return nil, nil, err
	}
	log := b.Logger
	if log == nil {
		log = logrus.New()
	}
	overrides := b.Overrides
	if overrides == nil {
		overrides = &rules.Overrides{}
	}

	m := NewScheduleModel(b.Horizon, b.Rules.Employees)
	ctx := &BuildContext{
		Rules:     b.Rules,
		Overrides: overrides,
		Carry:     b.Carry,
		Policy:    b.Policy,
		StartDate: b.StartDate,
		Objective: NewObjective(),
	}

	for _, ins := range installers {
		before := len(m.CP.Constraints())
		ins.install(m, ctx)
		log.WithFields(logrus.Fields{
			"rule":        ins.name,
			"constraints": len(m.CP.Constraints()) - before,
		}).Debug("Installed rule")
	}

	m.CP.Maximize(ctx.Objective.Compose(m.CP))
	log.WithFields(logrus.Fields{
		"employees":   len(m.Employees),
		"weeks":       b.Horizon.Weeks,
		"variables":   m.CP.NumVars(),
		"constraints": len(m.CP.Constraints()),
		"slacks":      len(ctx.Slacks),
	}).Info("Schedule model built")
	return m, ctx, nil
}
