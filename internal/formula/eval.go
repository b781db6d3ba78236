package formula

import (
	"context"
	"fmt"
	"math"

	"github.com/vk/datamixer/internal/dataset"
)

// Evaluate rewrites, parses and evaluates one formula line against b.
func Evaluate(ctx context.Context, formula string, b *dataset.Bundle) (Value, error) {
	rewritten, _ := ReplaceNamesInFormula(formula)
	expr, err := Parse(rewritten)
	if err != nil {
		return Value{}, err
	}
	return expr.Eval(ctx, b)
}

// Eval evaluates the expression against b. Inputs are never modified.
// Cancellation of ctx is observed between nodes.
func (e *Expr) Eval(ctx context.Context, b *dataset.Bundle) (Value, error) {
	ev := &evaluator{ctx: ctx, bundle: b}
	return ev.eval(e.root)
}

type evaluator struct {
	ctx    context.Context
	bundle *dataset.Bundle
}

func (ev *evaluator) eval(n node) (Value, error) {
	if err := ev.ctx.Err(); err != nil {
		return Value{}, fmt.Errorf("%w: %w", ErrEvaluation, err)
	}
	switch n := n.(type) {
	case *numberNode:
		return Scalar(n.value), nil
	case *nameNode:
		v, ok := constants[n.name]
		if !ok {
			return Value{}, fmt.Errorf("%w: unknown name %q at %d", ErrEvaluation, n.name, n.at)
		}
		return Scalar(v), nil
	case *unaryNode:
		x, err := ev.eval(n.x)
		if err != nil {
			return Value{}, err
		}
		if n.op == tokMinus {
			return mapValue(x, func(f float64) float64 { return -f }), nil
		}
		return x, nil
	case *binaryNode:
		return ev.binary(n)
	case *callNode:
		return ev.call(n)
	}
	return Value{}, fmt.Errorf("%w: unsupported expression at %d", ErrEvaluation, n.pos())
}

func (ev *evaluator) binary(n *binaryNode) (Value, error) {
	left, err := ev.eval(n.left)
	if err != nil {
		return Value{}, err
	}
	right, err := ev.eval(n.right)
	if err != nil {
		return Value{}, err
	}
	switch n.op {
	case tokPlus:
		return broadcast(left, right, func(x, y float64) float64 { return x + y }, vecAdd)
	case tokMinus:
		return broadcast(left, right, func(x, y float64) float64 { return x - y }, vecSub)
	case tokStar:
		return broadcast(left, right, func(x, y float64) float64 { return x * y }, vecMul)
	case tokSlash:
		return broadcast(left, right, func(x, y float64) float64 { return x / y }, vecDiv)
	case tokPercent:
		return broadcast(left, right, mod, nil)
	case tokPow:
		return broadcast(left, right, math.Pow, nil)
	}
	return Value{}, fmt.Errorf("%w: unsupported operator %s at %d", ErrEvaluation, n.op, n.at)
}

func (ev *evaluator) call(n *callNode) (Value, error) {
	if n.fn == LookupFunc {
		return ev.lookup(n)
	}
	args := make([]Value, len(n.args))
	for i, a := range n.args {
		v, err := ev.eval(a)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	if f, ok := unaryFuncs[n.fn]; ok {
		if err := arity(n, 1); err != nil {
			return Value{}, err
		}
		return mapValue(args[0], f), nil
	}
	if f, ok := binaryFuncs[n.fn]; ok {
		if err := arity(n, 2); err != nil {
			return Value{}, err
		}
		return broadcast(args[0], args[1], f, nil)
	}
	if f, ok := reductions[n.fn]; ok {
		if err := arity(n, 1); err != nil {
			return Value{}, err
		}
		return reduce(args[0], f)
	}
	return Value{}, fmt.Errorf("%w: unknown function %q at %d", ErrEvaluation, n.fn, n.at)
}

func (ev *evaluator) lookup(n *callNode) (Value, error) {
	if err := arity(n, 1); err != nil {
		return Value{}, err
	}
	s, ok := n.args[0].(*stringNode)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s() takes a quoted full name at %d", ErrEvaluation, LookupFunc, n.at)
	}
	if ev.bundle == nil {
		return Value{}, fmt.Errorf("%w: %w: no bundle for %q", ErrEvaluation, dataset.ErrChannelNotFound, s.value)
	}
	d, err := ev.bundle.Get(s.value)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %w", ErrEvaluation, err)
	}
	return Value{data: d}, nil
}

func arity(n *callNode, want int) error {
	if len(n.args) != want {
		return fmt.Errorf("%w: %s() takes %d argument(s), got %d at %d", ErrEvaluation, n.fn, want, len(n.args), n.at)
	}
	return nil
}
