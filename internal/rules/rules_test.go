package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rota-engine/internal/roster"
)

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validRules = `{
  "employees-duty_manager": ["Alice", "Bob"],
  "employees-duty_manager-reserve": ["Ryan"],
  "Rules": {
    "required": {
      "Working Days": {"Alice": 5, "Bob": 5, "Ryan": 7},
      "Days won't work": {"Alice": "Wednesday"},
      "Will work Early": ["Alice", "Bob", "Ryan"],
      "Will Work Middle": ["Bob"],
      "Will Work Late": ["Alice", "Bob", "Ryan"],
      "Every other weekend off": ["Bob"]
    },
    "preferred": {
      "Late Shifts": ["Alice"],
      "Early Shifts": ["Bob"],
      "Middle Shifts": [],
      "Days": {"Ryan": ["Monday", "Friday"]}
    }
  }
}`

func TestLoadValidRules(t *testing.T) {
	rs, err := Load(writeDoc(t, validRules))
	require.NoError(t, err)

	require.Len(t, rs.Employees, 3)
	assert.Equal(t, roster.Employee{Name: "Alice", Role: roster.RoleLead}, rs.Employees[0])
	assert.Equal(t, roster.Employee{Name: "Ryan", Role: roster.RoleReserve}, rs.Employees[2])

	assert.Equal(t, 5, rs.Quota["Alice"])
	assert.Equal(t, 7, rs.Quota["Ryan"])

	wed, _ := roster.DayIndexByName("Wednesday")
	assert.Equal(t, wed, rs.ForbiddenWeekday["Alice"])

	assert.True(t, rs.IsEligible("Bob", roster.Middle))
	assert.False(t, rs.IsEligible("Alice", roster.Middle))
	assert.True(t, rs.IsEligible("Ryan", roster.Late))

	assert.True(t, rs.Alternating["Bob"])
	assert.False(t, rs.Alternating["Alice"])

	assert.True(t, rs.PreferredShift[roster.Late]["Alice"])
	assert.True(t, rs.PreferredShift[roster.Early]["Bob"])
	mon, _ := roster.DayIndexByName("Monday")
	fri, _ := roster.DayIndexByName("Friday")
	assert.Equal(t, []int{mon, fri}, rs.PreferredDays["Ryan"])

	idx, ok := rs.EmployeeIndex("Bob")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	_, ok = rs.EmployeeIndex("Nobody")
	assert.False(t, ok)

	assert.Len(t, rs.Leads(), 2)
	assert.Len(t, rs.Reserves(), 1)
}

func TestLoadRejectsUnknownEmployeeReferences(t *testing.T) {
	cases := map[string]string{
		"working days": `{
  "employees-duty_manager": ["Alice"],
  "Rules": {"required": {"Working Days": {"Alice": 5, "Ghost": 3}}}
}`,
		"forbidden day": `{
  "employees-duty_manager": ["Alice"],
  "Rules": {"required": {
    "Working Days": {"Alice": 5},
    "Days won't work": {"Ghost": "Monday"}
  }}
}`,
		"eligibility": `{
  "employees-duty_manager": ["Alice"],
  "Rules": {"required": {
    "Working Days": {"Alice": 5},
    "Will work Early": ["Ghost"]
  }}
}`,
		"alternation": `{
  "employees-duty_manager": ["Alice"],
  "Rules": {"required": {
    "Working Days": {"Alice": 5},
    "Every other weekend off": ["Ghost"]
  }}
}`,
	}
	for name, doc := range cases {
		_, err := Load(writeDoc(t, doc))
		assert.ErrorContains(t, err, "Ghost", name)
	}
}

func TestLoadRejectsQuotaOutOfRange(t *testing.T) {
	doc := `{
  "employees-duty_manager": ["Alice"],
  "Rules": {"required": {"Working Days": {"Alice": 9}}}
}`
	_, err := Load(writeDoc(t, doc))
	assert.ErrorContains(t, err, "out of range")
}

func TestLoadRejectsMissingQuota(t *testing.T) {
	doc := `{
  "employees-duty_manager": ["Alice", "Bob"],
  "Rules": {"required": {"Working Days": {"Alice": 5}}}
}`
	_, err := Load(writeDoc(t, doc))
	assert.ErrorContains(t, err, "Bob")
}

func TestLoadRejectsUnknownWeekday(t *testing.T) {
	doc := `{
  "employees-duty_manager": ["Alice"],
  "Rules": {"required": {
    "Working Days": {"Alice": 5},
    "Days won't work": {"Alice": "Blursday"}
  }}
}`
	_, err := Load(writeDoc(t, doc))
	assert.ErrorContains(t, err, "Blursday")
}

func TestLoadRejectsStructurallyInvalidDocument(t *testing.T) {
	_, err := Load(writeDoc(t, `{"Rules": {"required": {"Working Days": {"A": 1}}}}`))
	assert.Error(t, err)

	_, err = Load(writeDoc(t, `not json`))
	assert.Error(t, err)
}

func TestLoadRejectsDuplicateLead(t *testing.T) {
	doc := `{
  "employees-duty_manager": ["Alice", "Alice"],
  "Rules": {"required": {"Working Days": {"Alice": 5}}}
}`
	_, err := Load(writeDoc(t, doc))
	assert.ErrorContains(t, err, "duplicate")
}

func TestLoadKeepsLeadRoleOverReserveListing(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	doc := `{
  "employees-duty_manager": ["Alice"],
  "employees-duty_manager-reserve": ["Alice", "Ryan"],
  "Rules": {"required": {"Working Days": {"Alice": 5, "Ryan": 2}}}
}`
	rs, err := Load(writeDoc(t, doc))
	require.NoError(t, err)

	require.Len(t, rs.Employees, 2)
	assert.Equal(t, roster.Employee{Name: "Alice", Role: roster.RoleLead}, rs.Employees[0])
	assert.Equal(t, roster.Employee{Name: "Ryan", Role: roster.RoleReserve}, rs.Employees[1])

	// The skipped reserve listing is logged, not silently dropped.
	found := false
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Data["employee"] == "Alice" {
			found = true
		}
	}
	assert.True(t, found)
}
