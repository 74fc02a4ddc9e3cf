// Package carryover derives per-employee continuation facts from the most
// recent prior rota so a new period continues rest patterns instead of
// resetting them. The facts are read-only inputs to the model builder.
package carryover

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"rota-engine/internal/roster"
)

// Facts are the boundary facts for one employee.
type Facts struct {
	// Consecutive is the trailing count of working days at the end of the
	// prior period.
	Consecutive int
	// WeekendOff reports whether the prior period ended with both weekend
	// days (Sunday and Saturday of its final week) off.
	WeekendOff bool
}

// State maps employee name to boundary facts. A missing entry means no
// prior history: zero trailing days, no weekend off.
type State map[string]Facts

// For returns the facts for name, zero-valued when unknown.
func (s State) For(name string) Facts {
	return s[name]
}

// FromSchedule derives carry-over facts from a solved schedule. The
// trailing count scans backwards from the final day; the weekend flag reads
// the final week's Sunday and Saturday.
func FromSchedule(sched *roster.Schedule) State {
	state := make(State, len(sched.Employees))
	h := sched.Horizon
	lastWeek := h.Weeks - 1
	lastDay := h.DaysPerWeek - 1
	for e, emp := range sched.Employees {
		consec := 0
		for t := h.TotalDays() - 1; t >= 0; t-- {
			w, d := h.Split(t)
			if !sched.At(w, d, e).Working() {
				break
			}
			consec++
		}
		state[emp.Name] = Facts{
			Consecutive: consec,
			WeekendOff: sched.At(lastWeek, 0, e) == roster.DayOff &&
				sched.At(lastWeek, lastDay, e) == roster.DayOff,
		}
	}
	return state
}

var rotaFilePattern = regexp.MustCompile(`^Rota - (\d{4}-\d{2}-\d{2})\.csv$`)

// FromOutputDir scans dir for exported rota files, picks the newest by the
// date embedded in its name, and derives facts from its final week block.
// A missing or empty directory yields an empty state, not an error.
func FromOutputDir(dir string, logger *logrus.Logger) (State, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		logger.WithField("dir", dir).Debug("No prior rota directory, starting fresh")
		return State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan rota directory: %w", err)
	}

	var newest string
	var newestDate time.Time
	for _, entry := range entries {
		m := rotaFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		date, err := time.Parse("2006-01-02", m[1])
		if err != nil {
			continue
		}
		if newest == "" || date.After(newestDate) {
			newest = entry.Name()
			newestDate = date
		}
	}
	if newest == "" {
		logger.WithField("dir", dir).Debug("No prior rota files found")
		return State{}, nil
	}

	logger.WithField("file", newest).Info("Reading carry-over state from prior rota")
	return FromCSVFile(filepath.Join(dir, newest))
}

// FromCSVFile derives facts from the final week block of one exported rota.
func FromCSVFile(path string) (State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open prior rota: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read prior rota: %w", err)
	}

	block := lastBlock(records)
	if len(block) < 2 {
		return State{}, nil
	}

	state := make(State)
	for _, row := range block[1:] {
		if len(row) < 2 {
			continue
		}
		name := row[0]
		cells := row[1:]

		consec := 0
		for i := len(cells) - 1; i >= 0; i-- {
			if !cellWorking(cells[i]) {
				break
			}
			consec++
		}
		state[name] = Facts{
			Consecutive: consec,
			WeekendOff: cells[0] == roster.CodeDayOff &&
				cells[len(cells)-1] == roster.CodeDayOff,
		}
	}
	return state, nil
}

// lastBlock returns the final week block. Each block starts with a header
// row whose first cell is "Name"; blank separator rows are dropped by the
// CSV reader, so headers are the reliable block boundary.
func lastBlock(records [][]string) [][]string {
	var last, current [][]string
	for _, row := range records {
		if blankRow(row) {
			continue
		}
		if row[0] == "Name" {
			if len(current) > 0 {
				last = current
			}
			current = [][]string{row}
			continue
		}
		current = append(current, row)
	}
	if len(current) > 0 {
		last = current
	}
	return last
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

// cellWorking mirrors the export convention: day off, holiday and the blank
// Reserve off cell all break a working streak.
func cellWorking(cell string) bool {
	return cell != "" && cell != roster.CodeDayOff && cell != roster.CodeHoliday
}
