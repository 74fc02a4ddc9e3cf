// Package rules loads the declarative rule documents the engine consumes:
// the standing rule set (required + preferred rules, role lists) and the
// date-scoped temporary overrides. Documents are parsed once per solve and
// are read-only afterwards. Every cross-reference (employee names, weekday
// names, dates) is checked here so that a bad document fails before any
// model is built.
package rules

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"rota-engine/internal/roster"
)

// document mirrors the on-disk JSON key shape.
type document struct {
	Leads    []string `json:"employees-duty_manager" validate:"required,min=1"`
	Reserves []string `json:"employees-duty_manager-reserve"`
	Rules    struct {
		Required  requiredDoc  `json:"required" validate:"required"`
		Preferred preferredDoc `json:"preferred"`
	} `json:"Rules" validate:"required"`
}

type requiredDoc struct {
	WorkingDays    map[string]int    `json:"Working Days" validate:"required,min=1"`
	ForbiddenDays  map[string]string `json:"Days won't work"`
	EligibleEarly  []string          `json:"Will work Early"`
	EligibleMiddle []string          `json:"Will Work Middle"`
	EligibleLate   []string          `json:"Will Work Late"`
	Alternating    []string          `json:"Every other weekend off"`
}

type preferredDoc struct {
	LateShifts   []string            `json:"Late Shifts"`
	EarlyShifts  []string            `json:"Early Shifts"`
	MiddleShifts []string            `json:"Middle Shifts"`
	Days         map[string][]string `json:"Days"`
}

// RuleSet is the validated, engine-ready form of a rule document.
type RuleSet struct {
	Employees []roster.Employee

	// Quota is the weekly working-day target per employee: an exact count
	// for Leads, an upper cap for Reserves.
	Quota map[string]int

	// ForbiddenWeekday pins one weekday per employee to a day off, every
	// week of the horizon.
	ForbiddenWeekday map[string]int

	// Eligible lists, per working shift type, who may be assigned it.
	Eligible map[roster.ShiftType]map[string]bool

	// Alternating marks employees on the every-other-weekend-off pattern.
	Alternating map[string]bool

	// PreferredShift lists, per working shift type, who prefers it.
	PreferredShift map[roster.ShiftType]map[string]bool

	// PreferredDays maps employees to weekday indices they like to work.
	PreferredDays map[string][]int
}

// Load reads and validates a rule document.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	if err := validator.New().Struct(doc); err != nil {
		return nil, fmt.Errorf("rules file structure: %w", err)
	}
	return buildRuleSet(&doc)
}

func buildRuleSet(doc *document) (*RuleSet, error) {
	rs := &RuleSet{
		Quota:            make(map[string]int),
		ForbiddenWeekday: make(map[string]int),
		Eligible: map[roster.ShiftType]map[string]bool{
			roster.Early:  {},
			roster.Middle: {},
			roster.Late:   {},
		},
		Alternating: make(map[string]bool),
		PreferredShift: map[roster.ShiftType]map[string]bool{
			roster.Early:  {},
			roster.Middle: {},
			roster.Late:   {},
		},
		PreferredDays: make(map[string][]int),
	}

	seen := make(map[string]bool)
	for _, name := range doc.Leads {
		if seen[name] {
			return nil, fmt.Errorf("duplicate employee %q in role lists", name)
		}
		seen[name] = true
		rs.Employees = append(rs.Employees, roster.Employee{Name: name, Role: roster.RoleLead})
	}
	for _, name := range doc.Reserves {
		if seen[name] {
			logrus.WithField("employee", name).Warn("Reserve list repeats a Lead, keeping the Lead role")
			continue
		}
		seen[name] = true
		rs.Employees = append(rs.Employees, roster.Employee{Name: name, Role: roster.RoleReserve})
	}

	known := func(name string) bool { return seen[name] }

	for name, days := range doc.Rules.Required.WorkingDays {
		if !known(name) {
			return nil, fmt.Errorf("Working Days references unknown employee %q", name)
		}
		if days < 0 || days > 7 {
			return nil, fmt.Errorf("Working Days for %q out of range: %d", name, days)
		}
		rs.Quota[name] = days
	}
	for _, emp := range rs.Employees {
		if _, ok := rs.Quota[emp.Name]; !ok {
			return nil, fmt.Errorf("no Working Days entry for employee %q", emp.Name)
		}
	}

	for name, day := range doc.Rules.Required.ForbiddenDays {
		if !known(name) {
			return nil, fmt.Errorf("Days won't work references unknown employee %q", name)
		}
		idx, ok := roster.DayIndexByName(day)
		if !ok {
			return nil, fmt.Errorf("Days won't work for %q names unknown day %q", name, day)
		}
		rs.ForbiddenWeekday[name] = idx
	}

	eligibility := []struct {
		shift roster.ShiftType
		key   string
		names []string
	}{
		{roster.Early, "Will work Early", doc.Rules.Required.EligibleEarly},
		{roster.Middle, "Will Work Middle", doc.Rules.Required.EligibleMiddle},
		{roster.Late, "Will Work Late", doc.Rules.Required.EligibleLate},
	}
	for _, el := range eligibility {
		for _, name := range el.names {
			if !known(name) {
				return nil, fmt.Errorf("%s references unknown employee %q", el.key, name)
			}
			rs.Eligible[el.shift][name] = true
		}
	}

	for _, name := range doc.Rules.Required.Alternating {
		if !known(name) {
			return nil, fmt.Errorf("Every other weekend off references unknown employee %q", name)
		}
		rs.Alternating[name] = true
	}

	prefs := []struct {
		shift roster.ShiftType
		key   string
		names []string
	}{
		{roster.Late, "Late Shifts", doc.Rules.Preferred.LateShifts},
		{roster.Early, "Early Shifts", doc.Rules.Preferred.EarlyShifts},
		{roster.Middle, "Middle Shifts", doc.Rules.Preferred.MiddleShifts},
	}
	for _, p := range prefs {
		for _, name := range p.names {
			if !known(name) {
				return nil, fmt.Errorf("%s references unknown employee %q", p.key, name)
			}
			rs.PreferredShift[p.shift][name] = true
		}
	}

	for name, days := range doc.Rules.Preferred.Days {
		if !known(name) {
			return nil, fmt.Errorf("preferred Days references unknown employee %q", name)
		}
		for _, day := range days {
			idx, ok := roster.DayIndexByName(day)
			if !ok {
				return nil, fmt.Errorf("preferred Days for %q names unknown day %q", name, day)
			}
			rs.PreferredDays[name] = append(rs.PreferredDays[name], idx)
		}
	}

	return rs, nil
}

// EmployeeIndex returns the roster position of name.
func (rs *RuleSet) EmployeeIndex(name string) (int, bool) {
	for i, emp := range rs.Employees {
		if emp.Name == name {
			return i, true
		}
	}
	return 0, false
}

// IsEligible reports whether name may work the given shift type.
func (rs *RuleSet) IsEligible(name string, shift roster.ShiftType) bool {
	set, ok := rs.Eligible[shift]
	if !ok {
		return false
	}
	return set[name]
}

// Leads returns the Lead-role employees in roster order.
func (rs *RuleSet) Leads() []roster.Employee {
	var out []roster.Employee
	for _, emp := range rs.Employees {
		if emp.Role == roster.RoleLead {
			out = append(out, emp)
		}
	}
	return out
}

// Reserves returns the Reserve-role employees in roster order.
func (rs *RuleSet) Reserves() []roster.Employee {
	var out []roster.Employee
	for _, emp := range rs.Employees {
		if emp.Role == roster.RoleReserve {
			out = append(out, emp)
		}
	}
	return out
}
