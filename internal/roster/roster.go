package roster

import "fmt"

// ShiftType is the per-day assignment outcome for one employee. The ordinal
// values are a compact encoding only: "working" means value <= Late. They
// carry no priority semantics.
type ShiftType int

const (
	Early ShiftType = iota
	Middle
	Late
	DayOff
	Holiday
)

// Shift codes as they appear in rule files and exported rotas.
const (
	CodeEarly   = "E"
	CodeMiddle  = "M"
	CodeLate    = "L"
	CodeDayOff  = "D/O"
	CodeHoliday = "H"
)

var shiftCodes = map[ShiftType]string{
	Early:   CodeEarly,
	Middle:  CodeMiddle,
	Late:    CodeLate,
	DayOff:  CodeDayOff,
	Holiday: CodeHoliday,
}

var codeToShift = map[string]ShiftType{
	CodeEarly:   Early,
	CodeMiddle:  Middle,
	CodeLate:    Late,
	CodeDayOff:  DayOff,
	CodeHoliday: Holiday,
}

// WorkingShifts are the shift types that count as a worked day.
var WorkingShifts = []ShiftType{Early, Middle, Late}

func (s ShiftType) String() string {
	if code, ok := shiftCodes[s]; ok {
		return code
	}
	return fmt.Sprintf("ShiftType(%d)", int(s))
}

// Working reports whether the shift counts as a worked day.
func (s ShiftType) Working() bool {
	return s <= Late
}

// ParseShift maps a shift code back to its ShiftType. An empty cell in an
// exported rota means a Reserve day off.
func ParseShift(code string) (ShiftType, bool) {
	s, ok := codeToShift[code]
	return s, ok
}

// Role determines workload bounds and shift priority. Leads carry a fixed
// weekly quota and cover shifts first; Reserves fill gaps up to a weekly cap.
type Role string

const (
	RoleLead    Role = "lead"
	RoleReserve Role = "reserve"
)

// Employee is immutable for the duration of a solve.
type Employee struct {
	Name string
	Role Role
}

// Horizon is the rota extent: Weeks blocks of DaysPerWeek days each.
// Day 0 of a week is Sunday, day DaysPerWeek-1 is Saturday.
type Horizon struct {
	Weeks       int
	DaysPerWeek int
}

// TotalDays is the number of days covered by the horizon.
func (h Horizon) TotalDays() int {
	return h.Weeks * h.DaysPerWeek
}

// DayIndex flattens (week, day) into a global day offset from the rota start.
func (h Horizon) DayIndex(week, day int) int {
	return week*h.DaysPerWeek + day
}

// Split is the inverse of DayIndex.
func (h Horizon) Split(dayIndex int) (week, day int) {
	return dayIndex / h.DaysPerWeek, dayIndex % h.DaysPerWeek
}

var dayNameToIndex = map[string]int{
	"Sunday":    0,
	"Monday":    1,
	"Tuesday":   2,
	"Wednesday": 3,
	"Thursday":  4,
	"Friday":    5,
	"Saturday":  6,
}

// DayIndexByName resolves a weekday name from a rule file.
func DayIndexByName(name string) (int, bool) {
	idx, ok := dayNameToIndex[name]
	return idx, ok
}
