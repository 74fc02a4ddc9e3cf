package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Weekend Middle-shift policies. The rule variants in production disagreed
// on who may work Middle on the boundary days of a week, so it is a knob.
const (
	MiddleBannedForAll   = "banned"
	MiddleBannedForLeads = "leads"
	MiddleAllowed        = "allowed"
)

// Policy collects the rule details that are deliberately configurable
// rather than hard-coded: daily headcount ceilings, boundary-day Middle
// shifts, Reserve holiday handling and the consecutive-day cap.
type Policy struct {
	// MaxDailyHeadcount caps how many employees may work the same day.
	// Zero disables the ceiling.
	MaxDailyHeadcount int `yaml:"max_daily_headcount"`

	// WeekendMiddle controls Middle shifts on the first and last day of a
	// week: banned for everyone, banned for Leads only, or allowed.
	WeekendMiddle string `yaml:"weekend_middle"`

	// ReserveHoliday allows Reserve-role employees to hold the Holiday
	// shift type at all.
	ReserveHoliday bool `yaml:"reserve_holiday"`

	// ConsecutiveCap is the hard maximum run of working days, carried
	// across period boundaries.
	ConsecutiveCap int `yaml:"consecutive_cap"`
}

// DefaultPolicy matches the production rule variant.
func DefaultPolicy() Policy {
	return Policy{
		MaxDailyHeadcount: 4,
		WeekendMiddle:     MiddleBannedForAll,
		ReserveHoliday:    true,
		ConsecutiveCap:    6,
	}
}

// LoadPolicy reads a YAML policy file over the defaults. An empty path
// returns the defaults untouched.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse policy file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Validate rejects unusable knob combinations.
func (p Policy) Validate() error {
	switch p.WeekendMiddle {
	case MiddleBannedForAll, MiddleBannedForLeads, MiddleAllowed:
	default:
		return fmt.Errorf("policy: unknown weekend_middle %q", p.WeekendMiddle)
	}
	if p.MaxDailyHeadcount < 0 {
		return fmt.Errorf("policy: negative max_daily_headcount %d", p.MaxDailyHeadcount)
	}
	if p.ConsecutiveCap < 1 {
		return fmt.Errorf("policy: consecutive_cap must be at least 1, got %d", p.ConsecutiveCap)
	}
	return nil
}
