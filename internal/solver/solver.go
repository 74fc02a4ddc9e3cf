// Package solver turns a finished cp.Model into an assignment. It is the
// engine's external collaborator: depth-first search with domain
// propagation, branch-and-bound on the objective, a seeded value-order
// rotation to diversify among equally-scored optima, and a time budget.
package solver

import (
	"context"
	"math/bits"
	"math/rand"
	"time"

	"rota-engine/internal/cp"
)

// Status is the outcome of a solve.
type Status int

const (
	// StatusOptimal: search exhausted, incumbent proven best.
	StatusOptimal Status = iota
	// StatusFeasible: budget hit with an incumbent in hand.
	StatusFeasible
	// StatusInfeasible: search exhausted without any solution.
	StatusInfeasible
	// StatusUnknown: budget hit before any solution was found.
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	default:
		return "unknown"
	}
}

// HasSolution reports whether the status carries an assignment.
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Options configure one solve. Seed is injectable for reproducible runs; it
// only rotates value ordering, never constraint satisfaction.
type Options struct {
	TimeLimit time.Duration
	Seed      int64
}

// Result is the solve outcome. Values are only meaningful when
// Status.HasSolution() is true.
type Result struct {
	Status    Status
	Objective int64
	Decisions int64
	Elapsed   time.Duration

	values []int
}

// Value returns the assigned value of v in the incumbent.
func (r *Result) Value(v cp.IntVar) int {
	return r.values[v]
}

// BoolValue returns the truth of a literal in the incumbent.
func (r *Result) BoolValue(l cp.Literal) bool {
	return (r.values[l.Var] == 1) != l.Negated
}

type trailEntry struct {
	v   int32
	old uint64
}

type state struct {
	model        *cp.Model
	cons         []*cp.Constraint
	watch        [][]int32
	decisionVars []cp.IntVar

	doms  []uint64
	trail []trailEntry

	queue   []int32
	inQueue []bool

	rot []int

	obj     cp.LinearExpr
	hasObj  bool
	rootMax int64

	hasBest bool
	proven  bool
	bestObj int64
	bestVal []int

	deadline  time.Time
	hasLimit  bool
	ctx       context.Context
	aborted   bool
	decisions int64
}

// Solve runs the search to completion or budget exhaustion.
func Solve(ctx context.Context, m *cp.Model, opts Options) *Result {
	start := time.Now()
	s := newState(ctx, m, opts)

	res := &Result{}
	if !s.propagateAll() {
		res.Status = StatusInfeasible
		res.Elapsed = time.Since(start)
		res.Decisions = s.decisions
		return res
	}
	if s.hasObj {
		s.rootMax = s.objectiveMax()
	}
	s.dfs()

	res.Decisions = s.decisions
	res.Elapsed = time.Since(start)
	switch {
	case s.hasBest && !s.aborted:
		res.Status = StatusOptimal
	case s.hasBest:
		res.Status = StatusFeasible
	case s.aborted:
		res.Status = StatusUnknown
	default:
		res.Status = StatusInfeasible
	}
	if s.hasBest {
		res.Objective = s.bestObj
		res.values = s.bestVal
	}
	return res
}

func newState(ctx context.Context, m *cp.Model, opts Options) *state {
	s := &state{
		model:        m,
		cons:         m.Constraints(),
		decisionVars: m.DecisionVars(),
		doms:         make([]uint64, m.NumVars()),
		inQueue:      make([]bool, m.NumVars()),
		rot:          make([]int, m.NumVars()),
		ctx:          ctx,
	}
	for v := 0; v < m.NumVars(); v++ {
		lo, hi := m.Bounds(cp.IntVar(v))
		s.doms[v] = rangeMask(lo, hi)
	}
	s.watch = make([][]int32, m.NumVars())
	for ci, c := range s.cons {
		for _, v := range constraintVars(c) {
			s.watch[v] = append(s.watch[v], int32(ci))
		}
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	for v := range s.rot {
		s.rot[v] = rng.Intn(cp.MaxDomainValue + 1)
	}
	s.obj, s.hasObj = m.Objective()
	if opts.TimeLimit > 0 {
		s.deadline = time.Now().Add(opts.TimeLimit)
		s.hasLimit = true
	}
	return s
}

func constraintVars(c *cp.Constraint) []int32 {
	var vs []int32
	for _, t := range c.Terms {
		vs = append(vs, int32(t.Var))
	}
	if c.Kind == cp.KindEqConst || c.Kind == cp.KindNeqConst {
		vs = append(vs, int32(c.Var))
	}
	for _, l := range c.Lits {
		vs = append(vs, int32(l.Var))
	}
	for _, l := range c.Enforce {
		vs = append(vs, int32(l.Var))
	}
	return vs
}

func rangeMask(lo, hi int) uint64 {
	if lo < 0 {
		lo = 0
	}
	if hi > 63 {
		hi = 63
	}
	if lo > hi {
		return 0
	}
	m := uint64(1)<<(uint(hi)+1) - 1
	if hi == 63 {
		m = ^uint64(0)
	}
	return m &^ (uint64(1)<<uint(lo) - 1)
}

func minOf(mask uint64) int { return bits.TrailingZeros64(mask) }
func maxOf(mask uint64) int { return 63 - bits.LeadingZeros64(mask) }

func isFixed(mask uint64) bool { return mask&(mask-1) == 0 }

const (
	litTrue = iota
	litFalse
	litUndecided
)

func (s *state) litState(l cp.Literal) int {
	d := s.doms[l.Var]
	if !isFixed(d) {
		return litUndecided
	}
	if (minOf(d) == 1) != l.Negated {
		return litTrue
	}
	return litFalse
}

// setDomain shrinks a variable's domain, recording the old mask on the
// trail. Returns false when the domain empties.
func (s *state) setDomain(v cp.IntVar, mask uint64) bool {
	cur := s.doms[v]
	mask &= cur
	if mask == cur {
		return true
	}
	if mask == 0 {
		return false
	}
	s.trail = append(s.trail, trailEntry{v: int32(v), old: cur})
	s.doms[v] = mask
	if !s.inQueue[v] {
		s.inQueue[v] = true
		s.queue = append(s.queue, int32(v))
	}
	return true
}

func (s *state) setLit(l cp.Literal, value bool) bool {
	bit := uint64(1)
	if value != l.Negated {
		bit = 2
	}
	return s.setDomain(l.Var, bit)
}

func (s *state) undoTo(mark int) {
	for len(s.trail) > mark {
		e := s.trail[len(s.trail)-1]
		s.trail = s.trail[:len(s.trail)-1]
		s.doms[e.v] = e.old
	}
	for _, v := range s.queue {
		s.inQueue[v] = false
	}
	s.queue = s.queue[:0]
}

// propagateAll filters every constraint once and then runs the resulting
// changes to a fixpoint. Only the root state needs this full pass; after a
// decision the search is already at a fixpoint everywhere except the
// variables the queue tracks.
func (s *state) propagateAll() bool {
	for ci := range s.cons {
		if !s.filter(ci) {
			return false
		}
	}
	return s.propagate()
}

// propagate drains the watch queue to a fixpoint, refiltering only the
// constraints that watch a changed variable. Returns false on conflict.
func (s *state) propagate() bool {
	for len(s.queue) > 0 {
		v := s.queue[0]
		s.queue = s.queue[1:]
		s.inQueue[v] = false
		for _, ci := range s.watch[v] {
			if !s.filter(int(ci)) {
				return false
			}
		}
	}
	return true
}

// filter applies one constraint under the enforcement-literal contract:
// enforce the body once all guards are true, and push a guard to false when
// the body is already impossible and that guard is the only one open.
func (s *state) filter(ci int) bool {
	c := s.cons[ci]
	open := -1
	for i, l := range c.Enforce {
		switch s.litState(l) {
		case litFalse:
			return true
		case litUndecided:
			if open >= 0 {
				open = -2
			} else {
				open = i
			}
		}
	}
	if open == -1 {
		return s.enforceBody(c)
	}
	if open >= 0 && s.bodyImpossible(c) {
		return s.setLit(c.Enforce[open], false)
	}
	return true
}

func (s *state) enforceBody(c *cp.Constraint) bool {
	switch c.Kind {
	case cp.KindEqConst:
		return s.setDomain(c.Var, uint64(1)<<uint(c.K))
	case cp.KindNeqConst:
		return s.setDomain(c.Var, ^(uint64(1) << uint(c.K)))
	case cp.KindBoolAnd:
		for _, l := range c.Lits {
			if !s.setLit(l, true) {
				return false
			}
		}
		return true
	case cp.KindBoolOr:
		openIdx := -1
		for i, l := range c.Lits {
			switch s.litState(l) {
			case litTrue:
				return true
			case litUndecided:
				if openIdx >= 0 {
					return true
				}
				openIdx = i
			}
		}
		if openIdx < 0 {
			return false
		}
		return s.setLit(c.Lits[openIdx], true)
	default:
		return s.filterLinear(c)
	}
}

func (s *state) filterLinear(c *cp.Constraint) bool {
	smin, smax := c.Offset, c.Offset
	for _, t := range c.Terms {
		d := s.doms[t.Var]
		lo, hi := int64(minOf(d)), int64(maxOf(d))
		if t.Coef >= 0 {
			smin += t.Coef * lo
			smax += t.Coef * hi
		} else {
			smin += t.Coef * hi
			smax += t.Coef * lo
		}
	}
	if smin > c.Hi || smax < c.Lo {
		return false
	}
	for _, t := range c.Terms {
		d := s.doms[t.Var]
		lo, hi := int64(minOf(d)), int64(maxOf(d))
		var cmin, cmax int64
		if t.Coef >= 0 {
			cmin, cmax = t.Coef*lo, t.Coef*hi
		} else {
			cmin, cmax = t.Coef*hi, t.Coef*lo
		}
		restMin := smin - cmin
		restMax := smax - cmax
		// c.Lo - restMax <= Coef*x <= c.Hi - restMin
		var xlo, xhi int64
		if t.Coef > 0 {
			xlo = ceilDiv(c.Lo-restMax, t.Coef)
			xhi = floorDiv(c.Hi-restMin, t.Coef)
		} else if t.Coef < 0 {
			xlo = ceilDiv(c.Hi-restMin, t.Coef)
			xhi = floorDiv(c.Lo-restMax, t.Coef)
		} else {
			continue
		}
		if xlo <= lo && xhi >= hi {
			continue
		}
		if !s.setDomain(t.Var, rangeMask(clampVal(xlo), clampVal(xhi))) {
			return false
		}
	}
	return true
}

func clampVal(v int64) int {
	if v < 0 {
		return 0
	}
	if v > 63 {
		return 63
	}
	return int(v)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) == (b < 0)) {
		q++
	}
	return q
}

func (s *state) bodyImpossible(c *cp.Constraint) bool {
	switch c.Kind {
	case cp.KindEqConst:
		return s.doms[c.Var]&(uint64(1)<<uint(c.K)) == 0
	case cp.KindNeqConst:
		return s.doms[c.Var] == uint64(1)<<uint(c.K)
	case cp.KindBoolAnd:
		for _, l := range c.Lits {
			if s.litState(l) == litFalse {
				return true
			}
		}
		return false
	case cp.KindBoolOr:
		for _, l := range c.Lits {
			if s.litState(l) != litFalse {
				return false
			}
		}
		return true
	default:
		smin, smax := c.Offset, c.Offset
		for _, t := range c.Terms {
			d := s.doms[t.Var]
			lo, hi := int64(minOf(d)), int64(maxOf(d))
			if t.Coef >= 0 {
				smin += t.Coef * lo
				smax += t.Coef * hi
			} else {
				smin += t.Coef * hi
				smax += t.Coef * lo
			}
		}
		return smin > c.Hi || smax < c.Lo
	}
}

// tightenObjective prunes objective-variable values that cannot beat the
// incumbent, turning the bound check into actual domain filtering. Returns
// false when no improving assignment remains below this node.
func (s *state) tightenObjective() bool {
	target := s.bestObj + 1
	smax := s.obj.Offset
	for _, t := range s.obj.Terms {
		d := s.doms[t.Var]
		if t.Coef >= 0 {
			smax += t.Coef * int64(maxOf(d))
		} else {
			smax += t.Coef * int64(minOf(d))
		}
	}
	if smax < target {
		return false
	}
	for _, t := range s.obj.Terms {
		if t.Coef == 0 {
			continue
		}
		d := s.doms[t.Var]
		lo, hi := int64(minOf(d)), int64(maxOf(d))
		var cmax int64
		if t.Coef > 0 {
			cmax = t.Coef * hi
		} else {
			cmax = t.Coef * lo
		}
		restMax := smax - cmax
		// Coef*x >= target - restMax
		xlo, xhi := lo, hi
		if t.Coef > 0 {
			xlo = ceilDiv(target-restMax, t.Coef)
		} else {
			xhi = floorDiv(target-restMax, t.Coef)
		}
		if xlo <= lo && xhi >= hi {
			continue
		}
		if !s.setDomain(t.Var, rangeMask(clampVal(xlo), clampVal(xhi))) {
			return false
		}
	}
	return true
}

func (s *state) objectiveMax() int64 {
	max := s.obj.Offset
	for _, t := range s.obj.Terms {
		d := s.doms[t.Var]
		if t.Coef >= 0 {
			max += t.Coef * int64(maxOf(d))
		} else {
			max += t.Coef * int64(minOf(d))
		}
	}
	return max
}

func (s *state) overBudget() bool {
	if s.aborted {
		return true
	}
	if s.hasLimit && time.Now().After(s.deadline) {
		s.aborted = true
		return true
	}
	if s.ctx != nil {
		select {
		case <-s.ctx.Done():
			s.aborted = true
			return true
		default:
		}
	}
	return false
}

// pickVar prefers unfixed decision variables (smallest domain first); only
// once every decision variable is fixed does it fall back to the remaining
// auxiliaries, which propagation usually settles on its own.
func (s *state) pickVar() (cp.IntVar, bool) {
	best := cp.IntVar(-1)
	bestSize := 65
	for _, v := range s.decisionVars {
		d := s.doms[v]
		if isFixed(d) {
			continue
		}
		size := bits.OnesCount64(d)
		if size < bestSize {
			best = v
			bestSize = size
			if size == 2 {
				break
			}
		}
	}
	if best >= 0 {
		return best, true
	}
	for v := range s.doms {
		if !isFixed(s.doms[v]) {
			return cp.IntVar(v), false
		}
	}
	return -1, false
}

func (s *state) recordSolution() {
	val := s.obj.Offset
	for _, t := range s.obj.Terms {
		val += t.Coef * int64(minOf(s.doms[t.Var]))
	}
	if s.hasBest && val <= s.bestObj {
		return
	}
	s.bestObj = val
	s.hasBest = true
	// An incumbent matching the root bound cannot be improved on.
	if s.hasObj && val >= s.rootMax {
		s.proven = true
	}
	if s.bestVal == nil {
		s.bestVal = make([]int, len(s.doms))
	}
	for v, d := range s.doms {
		s.bestVal[v] = minOf(d)
	}
}

// dfs explores the subtree below the current (already propagated) state.
func (s *state) dfs() {
	if s.proven || s.overBudget() {
		return
	}
	if s.hasObj && s.hasBest {
		if !s.tightenObjective() || !s.propagate() {
			return
		}
	}
	v, isDecision := s.pickVar()
	if v < 0 {
		s.recordSolution()
		return
	}
	rot := 0
	if isDecision {
		rot = s.rot[v]
	}
	values := domainValues(s.doms[v], rot)
	for _, val := range values {
		s.decisions++
		mark := len(s.trail)
		if s.setDomain(v, uint64(1)<<uint(val)) && s.propagate() {
			s.dfs()
		}
		s.undoTo(mark)
		if s.aborted || s.proven {
			return
		}
		// Without an objective the first solution is final.
		if s.hasBest && !s.hasObj {
			return
		}
	}
}

// domainValues lists the values of a domain mask, rotated by the seeded
// per-variable offset so repeated runs land on different equal-score optima.
func domainValues(mask uint64, rot int) []int {
	var vals []int
	for mask != 0 {
		v := bits.TrailingZeros64(mask)
		vals = append(vals, v)
		mask &^= uint64(1) << uint(v)
	}
	if len(vals) > 1 {
		r := rot % len(vals)
		vals = append(vals[r:], vals[:r]...)
	}
	return vals
}
