package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rota-engine/internal/carryover"
	"rota-engine/internal/engine"
	"rota-engine/internal/export"
	"rota-engine/internal/models"
	"rota-engine/internal/repository"
	"rota-engine/internal/roster"
	"rota-engine/internal/rules"
	"rota-engine/internal/solver"
	"rota-engine/pkg/dates"
	"rota-engine/pkg/telegram"
)

// RotaService runs the full generation pipeline: load inputs, read
// carry-over from the newest prior rota, build and solve the model, export
// the CSV and store the run.
type RotaService struct {
	repo     repository.RosterRepository
	exporter *export.Exporter
	notifier *telegram.Notifier
	logger   *logrus.Logger
}

func NewRotaService(
	repo repository.RosterRepository,
	exporter *export.Exporter,
	notifier *telegram.Notifier,
	logger *logrus.Logger,
) *RotaService {
	return &RotaService{
		repo:     repo,
		exporter: exporter,
		notifier: notifier,
		logger:   logger,
	}
}

// GenerateRequest describes one generation run.
type GenerateRequest struct {
	RulesPath     string
	OverridesPath string
	PolicyPath    string
	OutputDir     string

	// StartDate overrides the overrides file's period start when non-zero.
	StartDate time.Time
	Weeks     int

	TimeLimit time.Duration
	Seed      int64
}

// RelaxedQuota reports one workload rule the dominant slack tier had to
// bend to keep the model feasible.
type RelaxedQuota struct {
	Employee string
	Week     int
	Target   int
	Dropped  int
}

// GenerateResult is the outcome of one run.
type GenerateResult struct {
	RunID     string
	Status    solver.Status
	Objective int64
	Schedule  *roster.Schedule
	FilePath  string
	Relaxed   []RelaxedQuota
	Elapsed   time.Duration
}

// SlackDays sums the dropped quota days across all relaxed rules.
func (r *GenerateResult) SlackDays() int {
	total := 0
	for _, rq := range r.Relaxed {
		total += rq.Dropped
	}
	return total
}

// Generate runs the pipeline once. Infeasible and timed-out-empty runs
// return an error; a feasible-but-not-proven-optimal run is a success.
func (s *RotaService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	runID := uuid.NewString()
	log := s.logger.WithField("run_id", runID)

	ruleSet, err := rules.Load(req.RulesPath)
	if err != nil {
		log.WithError(err).Error("Failed to load rules")
		return nil, err
	}

	overrides := &rules.Overrides{}
	if req.OverridesPath != "" {
		overrides, err = rules.LoadOverrides(req.OverridesPath, ruleSet)
		if err != nil {
			log.WithError(err).Error("Failed to load overrides")
			return nil, err
		}
	}

	policy, err := engine.LoadPolicy(req.PolicyPath)
	if err != nil {
		log.WithError(err).Error("Failed to load policy")
		return nil, err
	}

	start := req.StartDate
	if start.IsZero() {
		start = overrides.StartDate
	}
	if start.IsZero() {
		start = dates.NextPeriodStart(time.Now())
		log.WithField("start_date", start.Format("2006-01-02")).
			Warn("No period start configured, using next Sunday")
	}

	carry, err := s.carryOver(req.OutputDir, log)
	if err != nil {
		log.WithError(err).Error("Failed to read carry-over state")
		return nil, err
	}

	horizon := roster.Horizon{Weeks: req.Weeks, DaysPerWeek: 7}
	builder := &engine.Builder{
		Horizon:   horizon,
		StartDate: start,
		Rules:     ruleSet,
		Overrides: overrides,
		Carry:     carry,
		Policy:    policy,
		Logger:    s.logger,
	}
	model, buildCtx, err := builder.Build()
	if err != nil {
		log.WithError(err).Error("Failed to build schedule model")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"time_limit": req.TimeLimit,
		"seed":       req.Seed,
	}).Info("Solving schedule model")
	res := solver.Solve(ctx, model.CP, solver.Options{TimeLimit: req.TimeLimit, Seed: req.Seed})
	log.WithFields(logrus.Fields{
		"status":    res.Status,
		"objective": res.Objective,
		"elapsed":   res.Elapsed,
	}).Info("Solve finished")

	if !res.Status.HasSolution() {
		return nil, fmt.Errorf("service: no schedule found, solver status %s", res.Status)
	}

	sched := roster.NewSchedule(horizon, start, ruleSet.Employees)
	model.ExtractSchedule(res.Value, sched)

	result := &GenerateResult{
		RunID:     runID,
		Status:    res.Status,
		Objective: res.Objective,
		Schedule:  sched,
		Elapsed:   res.Elapsed,
	}
	for _, rec := range buildCtx.Slacks {
		if dropped := res.Value(rec.Var); dropped > 0 {
			result.Relaxed = append(result.Relaxed, RelaxedQuota{
				Employee: rec.Employee,
				Week:     rec.Week,
				Target:   rec.Target,
				Dropped:  dropped,
			})
		}
	}
	for _, rq := range result.Relaxed {
		log.WithFields(logrus.Fields{
			"employee": rq.Employee,
			"week":     rq.Week,
			"target":   rq.Target,
			"dropped":  rq.Dropped,
		}).Warn("Workload quota relaxed to stay feasible")
	}

	if s.exporter != nil {
		path, err := s.exporter.Export(sched)
		if err != nil {
			log.WithError(err).Error("Failed to export rota")
			return nil, err
		}
		result.FilePath = path
	}

	if s.repo != nil {
		if err := s.repo.Create(periodRecord(result)); err != nil {
			log.WithError(err).Error("Failed to store roster period")
			return nil, err
		}
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyRun(runID, res.Status.String(), result.FilePath, result.SlackDays()); err != nil {
			log.WithError(err).Warn("Failed to send run notification")
		}
	}

	return result, nil
}

// carryOver prefers the latest archived period over the exported-CSV scan;
// the directory fallback covers runs without a repository and fresh
// databases alike.
func (s *RotaService) carryOver(outputDir string, log *logrus.Entry) (carryover.State, error) {
	if s.repo != nil {
		period, err := s.repo.GetLatest()
		if err != nil {
			return nil, err
		}
		if period != nil {
			sched, err := scheduleFromPeriod(period)
			if err != nil {
				return nil, err
			}
			log.WithFields(logrus.Fields{
				"prior_run_id": period.RunID,
				"start_date":   period.StartDate.Format("2006-01-02"),
			}).Info("Reading carry-over state from archived period")
			return carryover.FromSchedule(sched), nil
		}
	}
	return carryover.FromOutputDir(outputDir, s.logger)
}

// scheduleFromPeriod rebuilds the solved grid from its storage form.
func scheduleFromPeriod(p *models.RosterPeriod) (*roster.Schedule, error) {
	var employees []roster.Employee
	index := make(map[string]int)
	for _, a := range p.Assignments {
		if _, ok := index[a.Employee]; !ok {
			index[a.Employee] = len(employees)
			employees = append(employees, roster.Employee{Name: a.Employee, Role: roster.Role(a.Role)})
		}
	}
	horizon := roster.Horizon{Weeks: p.Weeks, DaysPerWeek: 7}
	sched := roster.NewSchedule(horizon, p.StartDate, employees)
	for _, a := range p.Assignments {
		shift, ok := roster.ParseShift(a.Shift)
		if !ok {
			return nil, fmt.Errorf("archived period %s has unknown shift code %q", p.RunID, a.Shift)
		}
		sched.Set(a.Week, a.Day, index[a.Employee], shift)
	}
	return sched, nil
}

// periodRecord flattens a result into its storage form.
func periodRecord(res *GenerateResult) *models.RosterPeriod {
	sched := res.Schedule
	period := &models.RosterPeriod{
		RunID:       res.RunID,
		StartDate:   sched.StartDate,
		Weeks:       sched.Horizon.Weeks,
		Status:      res.Status.String(),
		Objective:   res.Objective,
		SlackDays:   res.SlackDays(),
		SolveMillis: res.Elapsed.Milliseconds(),
		FilePath:    res.FilePath,
	}
	for w := 0; w < sched.Horizon.Weeks; w++ {
		for d := 0; d < sched.Horizon.DaysPerWeek; d++ {
			for e, emp := range sched.Employees {
				period.Assignments = append(period.Assignments, models.RosterAssignment{
					Employee: emp.Name,
					Role:     string(emp.Role),
					Week:     w,
					Day:      d,
					Shift:    sched.At(w, d, e).String(),
				})
			}
		}
	}
	return period
}
