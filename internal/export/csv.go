package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"rota-engine/internal/roster"
)

// Exporter writes solved schedules as week-block CSV files. The file name
// embeds the period start date so later runs can find the newest rota and
// read carry-over facts from it.
type Exporter struct {
	outputDir string
	logger    *logrus.Logger
}

func NewExporter(outputDir string, logger *logrus.Logger) *Exporter {
	return &Exporter{outputDir: outputDir, logger: logger}
}

// FileName returns the canonical rota file name for a schedule.
func FileName(s *roster.Schedule) string {
	return fmt.Sprintf("Rota - %s.csv", s.StartDate.Format("2006-01-02"))
}

// Write renders the schedule as one block per week: a header row with the
// day dates, one row per employee, then a blank row. Reserve day-off cells
// are left blank so the printed rota only shows Reserves when they are
// actually called in.
func Write(w io.Writer, s *roster.Schedule) error {
	cw := csv.NewWriter(w)
	for week := 0; week < s.Horizon.Weeks; week++ {
		header := make([]string, 0, s.Horizon.DaysPerWeek+1)
		header = append(header, "Name")
		for day := 0; day < s.Horizon.DaysPerWeek; day++ {
			header = append(header, s.Date(week, day).Format("Mon - 02/01"))
		}
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		for e, emp := range s.Employees {
			row := make([]string, 0, s.Horizon.DaysPerWeek+1)
			row = append(row, emp.Name)
			for day := 0; day < s.Horizon.DaysPerWeek; day++ {
				shift := s.At(week, day, e)
				if emp.Role == roster.RoleReserve && shift == roster.DayOff {
					row = append(row, "")
				} else {
					row = append(row, shift.String())
				}
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
		if err := cw.Write([]string{}); err != nil {
			return fmt.Errorf("write separator: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export writes the schedule into the output directory, creating it when
// missing, and returns the absolute path of the written file.
func (ex *Exporter) Export(s *roster.Schedule) (string, error) {
	if err := os.MkdirAll(ex.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(ex.outputDir, FileName(s))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create rota file: %w", err)
	}
	defer f.Close()

	if err := Write(f, s); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if ex.logger != nil {
		ex.logger.WithFields(logrus.Fields{
			"file":  abs,
			"weeks": s.Horizon.Weeks,
		}).Info("Rota exported")
	}
	return abs, nil
}
