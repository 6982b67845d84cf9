package symex

import (
	"go.uber.org/zap"
)

// arrayTheory rewrites an access chain containing a symbolic index into a
// bounded array as a case split over every element position. The outermost
// such index is split; the arms are split further when instantiated. Any
// other expression is returned unchanged.
func (s *ExecutionState) arrayTheory(src Expr, propagate bool, depth int) (Expr, error) {
	for cur := src; ; {
		switch expr := cur.(type) {
		case *MemberExpr:
			cur = expr.X
			continue
		case *IndexExpr:
			split, err := s.splitIndex(src, expr, propagate, depth)
			if err != nil || split != nil {
				return split, err
			}
			cur = expr.X
			continue
		}
		return src, nil
	}
}

// splitIndex returns a case split of chain over the positions of expr.
// Returns nil if the index is constant or the array is unbounded.
func (s *ExecutionState) splitIndex(chain Expr, expr *IndexExpr, propagate bool, depth int) (Expr, error) {
	if s.session.isUnbounded(expr.X.Type()) {
		return nil, nil
	}

	var n uint64
	switch typ := expr.X.Type().(type) {
	case *ArrayType:
		n, _ = typ.ConstLen()
	case *VectorType:
		var ok bool
		if n, ok = constLen(typ.Len); !ok {
			return nil, invariantf("arrayTheory", expr, "vector with non-constant size")
		}
	default:
		return nil, invariantf("arrayTheory", expr, "index into non-array type")
	}

	// The index is read once so every guard tests the same value. A side
	// effect in the index is minted a single time.
	index, err := s.Read(expr.Index, propagate, depth)
	if err != nil {
		return nil, err
	} else if IsConstantExpr(index) {
		return nil, nil
	}

	indexType := expr.Index.Type()
	cases := make([]Case, n)
	for i := uint64(0); i < n; i++ {
		c := NewConstantExpr(i, indexType)
		elem := &IndexExpr{X: expr.X, Index: c, Typ: expr.Typ}
		cases[i] = Case{
			Guard: NewBinaryExpr(EQ, index, c),
			Value: replaceInChain(chain, expr, elem),
		}
	}

	s.session.stats.CaseSplitN++
	s.session.Logger.Debug("case split", zap.Stringer("src", expr), zap.Uint64("arms", n))
	return &CaseExpr{Cases: cases, Typ: chain.Type()}, nil
}

// replaceInChain returns a copy of the access chain with target replaced by
// repl. Nodes below target are shared.
func replaceInChain(chain, target, repl Expr) Expr {
	if chain == target {
		return repl
	}
	switch expr := chain.(type) {
	case *MemberExpr:
		return &MemberExpr{X: replaceInChain(expr.X, target, repl), Field: expr.Field, Typ: expr.Typ}
	case *IndexExpr:
		return &IndexExpr{X: replaceInChain(expr.X, target, repl), Index: expr.Index, Typ: expr.Typ}
	default:
		return chain
	}
}
