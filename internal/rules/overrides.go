package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"rota-engine/internal/roster"
)

// DateFormat is the calendar-date layout used by override documents.
const DateFormat = "2006/01/02"

// everyoneKey holds document-wide facts rather than a per-employee entry.
const everyoneKey = "Everyone"

type overrideDoc struct {
	Required map[string]overrideEntry `json:"Required"`
}

type overrideEntry struct {
	StartDate string   `json:"Start Date"`
	DaysOff   []string `json:"days off"`
	Early     string   `json:"Early"`
	Middle    string   `json:"Middle"`
	Late      string   `json:"Late"`
	Holiday   struct {
		Active bool   `json:"active"`
		Start  string `json:"start"`
		End    string `json:"end"`
	} `json:"holiday"`
}

// ForcedShift pins one employee to a shift type on one calendar date.
type ForcedShift struct {
	Date  time.Time
	Shift roster.ShiftType
}

// DateRange is an inclusive calendar interval.
type DateRange struct {
	Start, End time.Time
}

// Contains reports whether t falls inside the range (date precision).
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// EmployeeOverride is every temporary pin for one employee.
type EmployeeOverride struct {
	DaysOff []time.Time
	Forced  []ForcedShift
	Holiday *DateRange
}

// Overrides are date-scoped pins with absolute precedence over both
// required and preferred rules for the dates they cover.
type Overrides struct {
	StartDate  time.Time
	ByEmployee map[string]EmployeeOverride
}

// LoadOverrides reads and validates a temporary-rules document against the
// rule set's roster. Unknown employees or malformed dates fail fast.
func LoadOverrides(path string, rs *RuleSet) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides file: %w", err)
	}

	var doc overrideDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse overrides file: %w", err)
	}

	ov := &Overrides{ByEmployee: make(map[string]EmployeeOverride)}

	for name, entry := range doc.Required {
		if name == everyoneKey {
			if entry.StartDate != "" {
				start, err := time.Parse(DateFormat, entry.StartDate)
				if err != nil {
					return nil, fmt.Errorf("overrides: bad Start Date %q: %w", entry.StartDate, err)
				}
				ov.StartDate = start
			}
			continue
		}
		if _, ok := rs.EmployeeIndex(name); !ok {
			return nil, fmt.Errorf("overrides reference unknown employee %q", name)
		}

		var eo EmployeeOverride
		for _, dayStr := range entry.DaysOff {
			if dayStr == "" {
				continue
			}
			day, err := time.Parse(DateFormat, dayStr)
			if err != nil {
				return nil, fmt.Errorf("overrides: bad day off %q for %q: %w", dayStr, name, err)
			}
			eo.DaysOff = append(eo.DaysOff, day)
		}

		forced := []struct {
			value string
			shift roster.ShiftType
		}{
			{entry.Early, roster.Early},
			{entry.Middle, roster.Middle},
			{entry.Late, roster.Late},
		}
		for _, f := range forced {
			if f.value == "" {
				continue
			}
			day, err := time.Parse(DateFormat, f.value)
			if err != nil {
				return nil, fmt.Errorf("overrides: bad %s date %q for %q: %w", f.shift, f.value, name, err)
			}
			eo.Forced = append(eo.Forced, ForcedShift{Date: day, Shift: f.shift})
		}

		if entry.Holiday.Active {
			if entry.Holiday.Start == "" || entry.Holiday.End == "" {
				return nil, fmt.Errorf("overrides: active holiday for %q is missing start or end", name)
			}
			start, err := time.Parse(DateFormat, entry.Holiday.Start)
			if err != nil {
				return nil, fmt.Errorf("overrides: bad holiday start %q for %q: %w", entry.Holiday.Start, name, err)
			}
			end, err := time.Parse(DateFormat, entry.Holiday.End)
			if err != nil {
				return nil, fmt.Errorf("overrides: bad holiday end %q for %q: %w", entry.Holiday.End, name, err)
			}
			if end.Before(start) {
				return nil, fmt.Errorf("overrides: holiday for %q ends before it starts", name)
			}
			eo.Holiday = &DateRange{Start: start, End: end}
		}

		ov.ByEmployee[name] = eo
	}

	return ov, nil
}
