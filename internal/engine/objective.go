package engine

import (
	"fmt"

	"rota-engine/internal/cp"
)

// Tier identifies one priority band of the objective. Lower values dominate
// higher ones: one unit at tier k is worth strictly more than everything
// the tiers below it can add up to, so a lower band can never outbid a
// higher one no matter how many of its terms fire.
type Tier int

const (
	// TierSlack penalizes workload-rule relaxation. It sits on top so the
	// solver only relaxes a required rule when no other escape exists.
	TierSlack Tier = iota
	// TierWeekend rewards full and partial weekends off for Leads outside
	// the alternating pattern.
	TierWeekend
	// TierPreference rewards individual shift-type and weekday wishes.
	TierPreference
	// TierReserveUse penalizes Reserve working days and isolated single
	// off-days for Leads.
	TierReserveUse
	// TierPattern penalizes six-in-a-row runs and duplicate Lead coverage
	// of one slot.
	TierPattern

	numTiers
)

func (t Tier) String() string {
	switch t {
	case TierSlack:
		return "slack"
	case TierWeekend:
		return "weekend"
	case TierPreference:
		return "preference"
	case TierReserveUse:
		return "reserve-use"
	case TierPattern:
		return "pattern"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

type objTerm struct {
	expr    cp.LinearExpr
	penalty bool
}

// Objective is the tier registry the installers feed. Weights are not
// chosen by hand: Compose derives every tier's unit from the maximum
// magnitudes of the tiers below it, using the model's declared variable
// bounds.
type Objective struct {
	terms [numTiers][]objTerm
}

// NewObjective returns an empty registry.
func NewObjective() *Objective {
	return &Objective{}
}

// AddReward registers a maximized term at the given tier.
func (o *Objective) AddReward(t Tier, expr cp.LinearExpr) {
	o.terms[t] = append(o.terms[t], objTerm{expr: expr})
}

// AddPenalty registers a minimized term at the given tier.
func (o *Objective) AddPenalty(t Tier, expr cp.LinearExpr) {
	o.terms[t] = append(o.terms[t], objTerm{expr: expr, penalty: true})
}

// TierUnits computes the per-tier unit weights from the model bounds.
// Working bottom-up: the lowest tier's unit is 1; each tier above gets one
// more than the total magnitude every lower tier can reach.
func (o *Objective) TierUnits(m *cp.Model) [numTiers]int64 {
	var units [numTiers]int64
	var below int64
	for t := numTiers - 1; t >= 0; t-- {
		units[t] = below + 1
		var capacity int64
		for _, term := range o.terms[t] {
			lo, hi := m.ExprBounds(term.expr)
			span := hi
			if -lo > span {
				span = -lo
			}
			capacity += span * units[t]
		}
		below += capacity
	}
	return units
}

// Compose flattens the registry into the single scalar expression to
// maximize.
func (o *Objective) Compose(m *cp.Model) cp.LinearExpr {
	units := o.TierUnits(m)
	var out cp.LinearExpr
	for t := Tier(0); t < numTiers; t++ {
		for _, term := range o.terms[t] {
			coef := units[t]
			if term.penalty {
				coef = -coef
			}
			out.AddExpr(term.expr, coef)
		}
	}
	return out
}

// MaxTierTotal returns the largest absolute contribution tier t can make
// after weighting. Exposed so the separation property is checkable.
func (o *Objective) MaxTierTotal(m *cp.Model, t Tier) int64 {
	units := o.TierUnits(m)
	var total int64
	for _, term := range o.terms[t] {
		lo, hi := m.ExprBounds(term.expr)
		span := hi
		if -lo > span {
			span = -lo
		}
		total += span * units[t]
	}
	return total
}
