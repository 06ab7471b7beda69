package layout

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// TierRule maps an overlay layer index to the tier that unlocks it.
type TierRule interface {
	Tier(index, maxTier int) (int, error)
}

// Linear is index*Stride + Offset.
type Linear struct {
	Stride int
	Offset int
}

func (l Linear) Tier(index, _ int) (int, error) { return index*l.Stride + l.Offset, nil }

// Expr is a rule written as an expr-lang expression over `index` and
// `max_tier`, for example `[3, 4, 6][index]` or `min(index * 2 + 3, max_tier)`.
type Expr struct {
	src  string
	prog *vm.Program
}

type exprEnv struct {
	Index   int `expr:"index"`
	MaxTier int `expr:"max_tier"`
}

func CompileExpr(src string) (*Expr, error) {
	prog, err := expr.Compile(src, expr.Env(exprEnv{}), expr.AsInt())
	if err != nil {
		return nil, fmt.Errorf("tier rule %q: %w", src, err)
	}
	return &Expr{src: src, prog: prog}, nil
}

func (e *Expr) String() string { return e.src }

func (e *Expr) Tier(index, maxTier int) (int, error) {
	out, err := expr.Run(e.prog, exprEnv{Index: index, MaxTier: maxTier})
	if err != nil {
		return 0, fmt.Errorf("tier rule %q at index %d: %w", e.src, index, err)
	}
	v, ok := out.(int)
	if !ok {
		return 0, fmt.Errorf("tier rule %q returned %T", e.src, out)
	}
	return v, nil
}

// RuleFrom builds an Expr when src is set, otherwise a Linear rule.
func RuleFrom(src string, stride, offset int) (TierRule, error) {
	if src == "" {
		return Linear{Stride: stride, Offset: offset}, nil
	}
	return CompileExpr(src)
}

// assignTier caps the rule result to [1, maxTier].
func assignTier(r TierRule, index, maxTier int) (int, error) {
	t, err := r.Tier(index, maxTier)
	if err != nil {
		return 0, err
	}
	if t > maxTier {
		t = maxTier
	}
	if t < 1 {
		t = 1
	}
	return t, nil
}
