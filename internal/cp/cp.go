// Package cp holds the constraint-model kernel the rota engine builds and
// the solver consumes: integer variables over small finite domains, boolean
// literals, linear constraints guarded by enforcement literals, and a single
// maximization objective. A Model belongs to exactly one build/solve cycle.
package cp

import "fmt"

// MaxDomainValue bounds every variable domain. Rota models only need shift
// ordinals, day counts and slack magnitudes, all far below this.
const MaxDomainValue = 62

// IntVar is a handle into a Model's variable arena.
type IntVar int32

// Literal is a boolean variable or its negation. A boolean variable is an
// IntVar with domain {0,1}.
type Literal struct {
	Var     IntVar
	Negated bool
}

// Not returns the negation of the literal.
func (l Literal) Not() Literal {
	return Literal{Var: l.Var, Negated: !l.Negated}
}

// Term is one coefficient*variable summand of a linear expression.
type Term struct {
	Var  IntVar
	Coef int64
}

// LinearExpr is sum(Terms) + Offset.
type LinearExpr struct {
	Terms  []Term
	Offset int64
}

// AddTerm appends coef*v to the expression.
func (e *LinearExpr) AddTerm(v IntVar, coef int64) {
	e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
}

// AddLiteral appends the 0/1 value of a literal: b itself, or 1-b when
// negated.
func (e *LinearExpr) AddLiteral(l Literal, coef int64) {
	if l.Negated {
		e.Offset += coef
		e.Terms = append(e.Terms, Term{Var: l.Var, Coef: -coef})
	} else {
		e.Terms = append(e.Terms, Term{Var: l.Var, Coef: coef})
	}
}

// AddExpr appends every term of other, scaled by coef.
func (e *LinearExpr) AddExpr(other LinearExpr, coef int64) {
	for _, t := range other.Terms {
		e.Terms = append(e.Terms, Term{Var: t.Var, Coef: t.Coef * coef})
	}
	e.Offset += other.Offset * coef
}

// Sum builds an unweighted sum over literals.
func Sum(lits ...Literal) LinearExpr {
	var e LinearExpr
	for _, l := range lits {
		e.AddLiteral(l, 1)
	}
	return e
}

// ConstraintKind discriminates the propagator a constraint needs.
type ConstraintKind uint8

const (
	// KindLinear: Lo <= sum(Terms)+Offset <= Hi.
	KindLinear ConstraintKind = iota
	// KindEqConst: Var == K.
	KindEqConst
	// KindNeqConst: Var != K.
	KindNeqConst
	// KindBoolAnd: every literal in Lits is true.
	KindBoolAnd
	// KindBoolOr: at least one literal in Lits is true.
	KindBoolOr
)

// Constraint is one rule over the model. If Enforce is non-empty the body
// only has to hold when every enforcement literal is true (half-reified,
// matching the OnlyEnforceIf contract).
type Constraint struct {
	Kind    ConstraintKind
	Terms   []Term
	Offset  int64
	Lo, Hi  int64
	Var     IntVar
	K       int64
	Lits    []Literal
	Enforce []Literal
}

// OnlyEnforceIf guards the constraint by the given literals.
func (c *Constraint) OnlyEnforceIf(lits ...Literal) *Constraint {
	c.Enforce = append(c.Enforce, lits...)
	return c
}

type varData struct {
	lo, hi int
	name   string
}

// Model owns the variable arena, the constraint list and the objective.
type Model struct {
	vars        []varData
	decisions   []IntVar
	constraints []*Constraint
	objective   LinearExpr
	hasObj      bool
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{}
}

// NewIntVar creates a variable with inclusive domain [lo, hi]. Bounds
// outside [0, MaxDomainValue] are a programming error.
func (m *Model) NewIntVar(lo, hi int, name string) IntVar {
	if lo < 0 || hi > MaxDomainValue || lo > hi {
		panic(fmt.Sprintf("cp: invalid domain [%d,%d] for %s", lo, hi, name))
	}
	m.vars = append(m.vars, varData{lo: lo, hi: hi, name: name})
	return IntVar(len(m.vars) - 1)
}

// NewBoolVar creates a {0,1} variable and returns its positive literal.
func (m *Model) NewBoolVar(name string) Literal {
	return Literal{Var: m.NewIntVar(0, 1, name)}
}

// MarkDecision registers v as a search decision variable. The solver
// branches on decision variables first; everything else is functionally
// determined by them and falls out of propagation.
func (m *Model) MarkDecision(v IntVar) {
	m.decisions = append(m.decisions, v)
}

// DecisionVars returns the registered decision variables in order.
func (m *Model) DecisionVars() []IntVar {
	return m.decisions
}

// NumVars is the size of the variable arena.
func (m *Model) NumVars() int {
	return len(m.vars)
}

// Bounds returns the declared domain of v.
func (m *Model) Bounds(v IntVar) (lo, hi int) {
	d := m.vars[v]
	return d.lo, d.hi
}

// Name returns the debug name of v.
func (m *Model) Name(v IntVar) string {
	return m.vars[v].name
}

// Constraints exposes the constraint list to the solver.
func (m *Model) Constraints() []*Constraint {
	return m.constraints
}

func (m *Model) add(c *Constraint) *Constraint {
	m.constraints = append(m.constraints, c)
	return c
}

// AddLinear constrains lo <= expr <= hi.
func (m *Model) AddLinear(expr LinearExpr, lo, hi int64) *Constraint {
	return m.add(&Constraint{
		Kind:   KindLinear,
		Terms:  expr.Terms,
		Offset: expr.Offset,
		Lo:     lo,
		Hi:     hi,
	})
}

// AddEquality constrains expr == value.
func (m *Model) AddEquality(expr LinearExpr, value int64) *Constraint {
	return m.AddLinear(expr, value, value)
}

// AddAtLeast constrains expr >= value.
func (m *Model) AddAtLeast(expr LinearExpr, value int64) *Constraint {
	return m.AddLinear(expr, value, boundMax)
}

// AddAtMost constrains expr <= value.
func (m *Model) AddAtMost(expr LinearExpr, value int64) *Constraint {
	return m.AddLinear(expr, boundMin, value)
}

// Sentinel bounds for one-sided linear constraints. Wide enough that no
// reachable expression sum can cross them.
const (
	boundMin int64 = -1 << 40
	boundMax int64 = 1 << 40
)

// AddVarEquals constrains v == k.
func (m *Model) AddVarEquals(v IntVar, k int) *Constraint {
	return m.add(&Constraint{Kind: KindEqConst, Var: v, K: int64(k)})
}

// AddVarNotEquals constrains v != k.
func (m *Model) AddVarNotEquals(v IntVar, k int) *Constraint {
	return m.add(&Constraint{Kind: KindNeqConst, Var: v, K: int64(k)})
}

// AddVarAtMost constrains v <= k.
func (m *Model) AddVarAtMost(v IntVar, k int) *Constraint {
	var e LinearExpr
	e.AddTerm(v, 1)
	return m.AddAtMost(e, int64(k))
}

// AddVarAtLeast constrains v >= k.
func (m *Model) AddVarAtLeast(v IntVar, k int) *Constraint {
	var e LinearExpr
	e.AddTerm(v, 1)
	return m.AddAtLeast(e, int64(k))
}

// AddBoolAnd constrains every literal to be true.
func (m *Model) AddBoolAnd(lits ...Literal) *Constraint {
	return m.add(&Constraint{Kind: KindBoolAnd, Lits: lits})
}

// AddBoolOr constrains at least one literal to be true.
func (m *Model) AddBoolOr(lits ...Literal) *Constraint {
	return m.add(&Constraint{Kind: KindBoolOr, Lits: lits})
}

// Maximize installs the objective. Calling it twice is a programming error.
func (m *Model) Maximize(expr LinearExpr) {
	if m.hasObj {
		panic("cp: objective already set")
	}
	m.objective = expr
	m.hasObj = true
}

// Objective returns the installed objective and whether one exists.
func (m *Model) Objective() (LinearExpr, bool) {
	return m.objective, m.hasObj
}

// ObjectiveBounds computes the interval of the objective over the declared
// domains. Used by the objective composer to prove tier separation.
func (m *Model) ObjectiveBounds() (lo, hi int64) {
	return m.ExprBounds(m.objective)
}

// ExprBounds computes the interval of expr over the declared domains.
func (m *Model) ExprBounds(expr LinearExpr) (lo, hi int64) {
	lo, hi = expr.Offset, expr.Offset
	for _, t := range expr.Terms {
		vlo, vhi := m.Bounds(t.Var)
		if t.Coef >= 0 {
			lo += t.Coef * int64(vlo)
			hi += t.Coef * int64(vhi)
		} else {
			lo += t.Coef * int64(vhi)
			hi += t.Coef * int64(vlo)
		}
	}
	return lo, hi
}
