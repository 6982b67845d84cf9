package symex

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Read returns expr rewritten in terms of the versioned scalar symbols of
// the current state. Dereferences are resolved, bounded aggregate accesses
// are reduced to scalar case analysis and the result is simplified.
//
// If propagate is true then variables with a known constant value are
// replaced by that value. Pointers are always propagated while
// dereferencing. A depth of DepthCurrent derives the recursion depth of
// procedure-local variables from the call stack; a non-negative depth is
// used for the locals of the currently executing function.
func (s *ExecutionState) Read(expr Expr, propagate bool, depth int) (Expr, error) {
	t := time.Now()
	defer func() {
		s.session.stats.ReadN++
		s.session.stats.ReadTime += time.Since(t)
	}()

	// Dereferencing, including propagation of pointers.
	tmp, err := s.dereference(expr, depth)
	if err != nil {
		return nil, err
	}

	// Rewriting to SSA symbols.
	if tmp, err = s.instantiate(tmp, propagate, depth); err != nil {
		return nil, err
	}

	result := s.session.Simplifier.Simplify(tmp)
	s.session.Logger.Debug("read", zap.Stringer("src", expr), zap.Stringer("result", result))
	return result, nil
}

// instantiate rewrites every variable access chain and synthetic node of
// expr. Nodes are visited from an explicit stack so tree depth is not
// limited by the goroutine stack. Visited nodes are copied before their
// operand slots are written.
func (s *ExecutionState) instantiate(expr Expr, propagate bool, depth int) (Expr, error) {
	root := expr
	stack := []*Expr{&root}

	for len(stack) > 0 {
		slot := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		other, ok, err := s.instantiateNode(*slot, propagate, depth)
		if err != nil {
			return nil, err
		} else if ok {
			*slot = other
			continue
		}

		if len(operandSlots(*slot)) == 0 {
			continue
		}
		node := shallowCopy(*slot)
		*slot = node

		// Push in reverse so operands are processed left to right.
		ops := operandSlots(node)
		for i := len(ops) - 1; i >= 0; i-- {
			stack = append(stack, ops[i])
		}
	}
	return root, nil
}

// instantiateNode returns the rewrite of a single node. Returns false if
// the node is left as-is and its operands should be visited.
func (s *ExecutionState) instantiateNode(expr Expr, propagate bool, depth int) (Expr, bool, error) {
	if s.isChain(expr) {
		return s.resolveChain(expr, propagate, depth)
	}

	switch expr := expr.(type) {
	case *AddressOfExpr:
		// Already canonicalized while dereferencing.
		return expr, true, nil

	case *SideEffectExpr:
		if expr.Kind != SideEffectNondet {
			return nil, false, invariantf("instantiate", expr, "unexpected side effect %s", expr.Kind)
		}
		return s.session.mintSymbol(NondetPrefix, expr.Typ), true, nil

	case *IntegerDerefExpr:
		return s.session.mintSymbol(DerefPrefix, expr.Typ), true, nil

	case *DerefFailureExpr:
		return s.session.mintSymbol(DerefPrefix, expr.Typ), true, nil

	case *MemberExpr:
		switch expr.X.Type().(type) {
		case *StructType:
		case *UnionType:
			return nil, false, invariantf("instantiate", expr, "unexpected union member")
		default:
			return nil, false, invariantf("instantiate", expr, "member expects struct or union type")
		}

	case *SymbolExpr:
		if !expr.SSA && !IsFunctionType(expr.Typ) {
			return nil, false, invariantf("instantiate", expr, "unexpected symbol")
		}
	}
	return nil, false, nil
}

// isChain returns true if expr is a run of struct member and index
// accesses rooted at a non-SSA symbol.
func (s *ExecutionState) isChain(expr Expr) bool {
	if IsFunctionType(expr.Type()) {
		return false
	}
	for {
		switch e := expr.(type) {
		case *SymbolExpr:
			return !e.SSA
		case *MemberExpr:
			if _, ok := e.X.Type().(*StructType); !ok {
				return false // includes unions
			}
			expr = e.X
		case *IndexExpr:
			expr = e.X
		default:
			return false
		}
	}
}

// resolveChain rewrites a variable access chain into SSA form. Returns
// false if the chain has no SSA identity and must be left as-is.
//
// Reads normally only observe the run-wide version. The exception is the
// first sight of a variable in this state after another thread or path has
// advanced it: the read then advances the version itself so it does not
// alias that writer's symbol.
func (s *ExecutionState) resolveChain(src Expr, propagate bool, depth int) (Expr, bool, error) {
	if IsFunctionType(src.Type()) {
		return nil, false, nil
	}

	// Unbounded arrays stay symbolic; only the index is instantiated.
	if expr, ok := src.(*IndexExpr); ok && s.session.isUnbounded(expr.X.Type()) {
		array, ok, err := s.resolveChain(expr.X, propagate, depth)
		if err != nil {
			return nil, false, err
		} else if !ok {
			array = expr.X
		}
		index, err := s.instantiate(expr.Index, propagate, depth)
		if err != nil {
			return nil, false, err
		}
		return &IndexExpr{X: array, Index: index, Typ: expr.Typ}, true, nil
	}

	// Expand structs, arrays and vectors into their components.
	final, err := s.session.expand(src)
	if err != nil {
		return nil, false, err
	} else if composite, ok := final.(*CompositeExpr); ok {
		for i, elem := range composite.Elems {
			if composite.Elems[i], err = s.instantiate(elem, propagate, depth); err != nil {
				return nil, false, err
			}
		}
		return composite, true, nil
	}

	if final, err = s.arrayTheory(final, propagate, depth); err != nil {
		return nil, false, err
	}
	switch final.(type) {
	case *IfExpr, *CaseExpr:
		other, err := s.instantiate(final, propagate, depth)
		return other, err == nil, err
	}

	root, suffix, ok, err := s.chainSuffix(src, propagate, depth)
	if err != nil || !ok {
		return nil, false, err
	} else if root.SSA {
		return nil, false, nil
	}

	// Nondeterministic values are already fresh unknowns.
	if strings.HasPrefix(root.Name, NondetPrefix) {
		return src, true, nil
	}

	var sym *Symbol
	var loc Location
	if !s.session.Filter.IsSynthetic(root.Name) {
		if sym, ok = s.session.Namespace.Lookup(root.Name); !ok {
			return nil, false, invariantWrap("resolveChain", src, ErrSymbolNotFound, root.Name)
		}
		loc = sym.Location
	}
	if s.session.Filter.IsInternal(root.Name, loc) {
		return nil, false, nil
	}

	info, err := s.session.VarMap.Resolve(root.Name, suffix, src.Type(), s.depthOf(sym, depth))
	if err != nil {
		return nil, false, err
	}

	vs, _ := s.VarState(info)
	if propagate && vs.Value != nil {
		return vs.Value, true, nil
	} else if vs.SSA != nil {
		return vs.SSA, true, nil
	}

	// First sight of the variable in this state. A version already advanced
	// by another thread or path denotes that writer's value, so a fresh one
	// is minted.
	ssa := info.SSASymbol()
	if info.Version > 0 {
		ssa = s.session.VarMap.Advance(info)
	}
	if array, ok := ssa.Typ.(*ArrayType); ok && array.Len != nil && !IsConstantExpr(array.Len) {
		n, err := s.Read(array.Len, true, depth)
		if err != nil {
			return nil, false, err
		}
		ssa.Typ = &ArrayType{Elem: array.Elem, Len: n}
	}
	vs.SSA = ssa
	s.setVarState(vs)

	s.session.Logger.Debug("ssa", zap.String("symbol", ssa.Name), zap.String("kind", info.Kind.String()))
	return ssa, true, nil
}

// Lvalue returns the identity of the variable denoted by expr, such as the
// target of an assignment. Indices are read with propagation and must
// resolve to constants.
func (s *ExecutionState) Lvalue(expr Expr, depth int) (*VarInfo, error) {
	if !s.isChain(expr) {
		return nil, invariantf("Lvalue", expr, "not a variable")
	}

	root, suffix, ok, err := s.chainSuffix(expr, true, depth)
	if err != nil {
		return nil, err
	} else if !ok || strings.Contains(suffix, "[*]") {
		return nil, invariantf("Lvalue", expr, "variable has no identity")
	}

	var sym *Symbol
	if !s.session.Filter.IsSynthetic(root.Name) {
		if sym, ok = s.session.Namespace.Lookup(root.Name); !ok {
			return nil, invariantWrap("Lvalue", expr, ErrSymbolNotFound, root.Name)
		}
	}
	return s.session.VarMap.Resolve(root.Name, suffix, expr.Type(), s.depthOf(sym, depth))
}

// chainSuffix walks from the outermost access to the root symbol and
// returns the root and the textual access path, e.g. ".b[2]" or "[*]".
// Returns false for member accesses into unions.
func (s *ExecutionState) chainSuffix(src Expr, propagate bool, depth int) (*SymbolExpr, string, bool, error) {
	var parts []string
	for cur := src; ; {
		switch expr := cur.(type) {
		case *SymbolExpr:
			var suffix strings.Builder
			for i := len(parts) - 1; i >= 0; i-- {
				suffix.WriteString(parts[i])
			}
			return expr, suffix.String(), true, nil

		case *MemberExpr:
			if _, ok := expr.X.Type().(*StructType); !ok {
				return nil, "", false, nil
			}
			parts = append(parts, "."+expr.Field)
			cur = expr.X

		case *IndexExpr:
			index, err := s.Read(expr.Index, propagate, depth)
			if err != nil {
				return nil, "", false, err
			}
			parts = append(parts, indexString(s.session.Simplifier.Simplify(index)))
			cur = expr.X

		default:
			return nil, "", false, nil
		}
	}
}

// indexString returns the suffix component of a resolved index.
func indexString(index Expr) string {
	c, ok := index.(*ConstantExpr)
	if !ok {
		return "[*]"
	} else if IsSigned(c.Typ) {
		return "[" + strconv.FormatInt(c.Int64(), 10) + "]"
	}
	return "[" + strconv.FormatUint(c.Value, 10) + "]"
}

// depthOf returns the recursion depth used to identify a variable. Locals
// of a function other than the executing one use that function's recorded
// depth so a pointer into a caller's frame resolves to the caller's
// instance.
func (s *ExecutionState) depthOf(sym *Symbol, depth int) int {
	var current string
	if frame := s.Frame(); frame != nil {
		current = frame.Function
	}

	if sym != nil && !sym.Location.BuiltIn && sym.Location.Function != "" && sym.Location.Function != current {
		d, _ := s.RecursionDepth(sym.Location.Function)
		return d
	} else if depth >= 0 {
		return depth
	}

	d, _ := s.RecursionDepth(current)
	return d
}
