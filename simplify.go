package symex

// Simplifier normalizes expressions. Implementations must be pure.
type Simplifier interface {
	Simplify(expr Expr) Expr
}

var _ Simplifier = DefaultSimplifier{}

// DefaultSimplifier folds constants and removes trivial structure.
type DefaultSimplifier struct{}

// Simplify returns a simplified copy of expr.
func (DefaultSimplifier) Simplify(expr Expr) Expr {
	other, _ := RewriteExpr(expr, func(expr Expr) (Expr, error) {
		return simplifyNode(expr), nil
	})
	return other
}

func simplifyNode(expr Expr) Expr {
	switch expr := expr.(type) {
	case *BinaryExpr:
		return simplifyBinaryExpr(expr)
	case *NotExpr:
		return simplifyNotExpr(expr)
	case *CastExpr:
		return simplifyCastExpr(expr)
	case *IfExpr:
		return simplifyIfExpr(expr)
	case *CaseExpr:
		return simplifyCaseExpr(expr)
	case *IndexExpr:
		return simplifyIndexExpr(expr)
	case *MemberExpr:
		return simplifyMemberExpr(expr)
	default:
		return expr
	}
}

func simplifyBinaryExpr(expr *BinaryExpr) Expr {
	lhs, lok := expr.LHS.(*ConstantExpr)
	rhs, rok := expr.RHS.(*ConstantExpr)

	// Compute constant if both sides are constant.
	if lok && rok {
		if value, ok := foldBinary(expr.Op, lhs, rhs, expr.Typ); ok {
			return value
		}
		return expr
	}

	switch expr.Op {
	case ADD:
		if rok && rhs.Value == 0 {
			return expr.LHS
		} else if lok && lhs.Value == 0 && IdenticalTypes(expr.RHS.Type(), expr.Typ) {
			return expr.RHS
		}
	case SUB:
		if rok && rhs.Value == 0 {
			return expr.LHS
		} else if CompareExpr(expr.LHS, expr.RHS) == 0 && !isPointer(expr.Typ) {
			return NewConstantExpr(0, expr.Typ)
		}
	case MUL:
		if rok && rhs.Value == 1 {
			return expr.LHS
		} else if lok && lhs.Value == 1 {
			return expr.RHS
		} else if (rok && rhs.Value == 0) || (lok && lhs.Value == 0) {
			return NewConstantExpr(0, expr.Typ)
		}
	case EQ, LE, GE:
		if CompareExpr(expr.LHS, expr.RHS) == 0 {
			return NewBoolConstantExpr(true)
		}
	case NE, LT, GT:
		if CompareExpr(expr.LHS, expr.RHS) == 0 {
			return NewBoolConstantExpr(false)
		}
	case AND:
		if lok {
			return selectLogical(lhs.Value != 0, expr.RHS, false)
		} else if rok {
			return selectLogical(rhs.Value != 0, expr.LHS, false)
		}
	case OR:
		if lok {
			return selectLogical(lhs.Value == 0, expr.RHS, true)
		} else if rok {
			return selectLogical(rhs.Value == 0, expr.LHS, true)
		}
	}
	return expr
}

// selectLogical returns other if keep is true. Otherwise returns the
// absorbing constant of the connective.
func selectLogical(keep bool, other Expr, absorb bool) Expr {
	if keep {
		return other
	}
	return NewBoolConstantExpr(absorb)
}

func simplifyNotExpr(expr *NotExpr) Expr {
	switch x := expr.X.(type) {
	case *ConstantExpr:
		return NewBoolConstantExpr(x.Value == 0)
	case *NotExpr:
		return x.X
	}
	return expr
}

func simplifyCastExpr(expr *CastExpr) Expr {
	if IdenticalTypes(expr.X.Type(), expr.Typ) {
		return expr.X
	}
	switch x := expr.X.(type) {
	case *ConstantExpr:
		return foldCast(x, expr.Typ)
	case *CastExpr:
		// Pointer-to-pointer casts compose.
		if isPointer(x.Typ) && isPointer(expr.Typ) && isPointer(x.X.Type()) {
			return simplifyCastExpr(NewCastExpr(x.X, expr.Typ))
		}
	}
	return expr
}

func simplifyIfExpr(expr *IfExpr) Expr {
	if cond, ok := expr.Cond.(*ConstantExpr); ok {
		if cond.Value != 0 {
			return expr.Then
		}
		return expr.Else
	} else if CompareExpr(expr.Then, expr.Else) == 0 {
		return expr.Then
	}
	return expr
}

func simplifyCaseExpr(expr *CaseExpr) Expr {
	cases := make([]Case, 0, len(expr.Cases))
	for _, c := range expr.Cases {
		if IsConstantFalse(c.Guard) {
			continue
		} else if IsConstantTrue(c.Guard) && len(cases) == 0 {
			return c.Value
		}
		cases = append(cases, c)
	}
	if len(cases) == 0 {
		return expr
	}

	// Arms are exhaustive so a single remaining value is the result.
	same := true
	for _, c := range cases[1:] {
		if CompareExpr(c.Value, cases[0].Value) != 0 {
			same = false
			break
		}
	}
	if same {
		return cases[0].Value
	}

	if len(cases) == len(expr.Cases) {
		return expr
	}
	return &CaseExpr{Cases: cases, Typ: expr.Typ}
}

func simplifyIndexExpr(expr *IndexExpr) Expr {
	composite, ok := expr.X.(*CompositeExpr)
	if !ok || composite.Kind == CompositeStruct {
		return expr
	}
	index, ok := expr.Index.(*ConstantExpr)
	if !ok || index.Value >= uint64(len(composite.Elems)) {
		return expr
	}
	return composite.Elems[index.Value]
}

func simplifyMemberExpr(expr *MemberExpr) Expr {
	composite, ok := expr.X.(*CompositeExpr)
	if !ok || composite.Kind != CompositeStruct {
		return expr
	}
	typ, ok := composite.Typ.(*StructType)
	if !ok {
		return expr
	}
	if _, i, ok := typ.Field(expr.Field); ok && i < len(composite.Elems) {
		return composite.Elems[i]
	}
	return expr
}

// foldBinary computes the constant result of op on two constants.
// Returns false if the operation cannot be folded.
func foldBinary(op BinaryOp, lhs, rhs *ConstantExpr, typ Type) (*ConstantExpr, bool) {
	switch op {
	case ADD:
		if isPointer(lhs.Typ) && rhs.Value != 0 {
			return nil, false // scaled by element size
		}
		return NewConstantExpr(lhs.Value+rhs.Value, typ), true
	case SUB:
		if isPointer(lhs.Typ) && rhs.Value != 0 {
			return nil, false
		}
		return NewConstantExpr(lhs.Value-rhs.Value, typ), true
	case MUL:
		return NewConstantExpr(lhs.Value*rhs.Value, typ), true
	case EQ:
		return NewBoolConstantExpr(lhs.Value == rhs.Value), true
	case NE:
		return NewBoolConstantExpr(lhs.Value != rhs.Value), true
	case AND:
		return NewBoolConstantExpr(lhs.Value != 0 && rhs.Value != 0), true
	case OR:
		return NewBoolConstantExpr(lhs.Value != 0 || rhs.Value != 0), true
	}

	// Ordered comparisons honor the signedness of the operands.
	var cmp int
	if IsSigned(lhs.Typ) {
		x, y := lhs.Int64(), rhs.Int64()
		if x < y {
			cmp = -1
		} else if x > y {
			cmp = 1
		}
	} else {
		cmp = compareUint64(lhs.Value, rhs.Value)
	}

	switch op {
	case LT:
		return NewBoolConstantExpr(cmp < 0), true
	case LE:
		return NewBoolConstantExpr(cmp <= 0), true
	case GT:
		return NewBoolConstantExpr(cmp > 0), true
	case GE:
		return NewBoolConstantExpr(cmp >= 0), true
	default:
		return nil, false
	}
}

// foldCast converts a constant to typ, sign-extending signed sources.
func foldCast(c *ConstantExpr, typ Type) *ConstantExpr {
	if _, ok := typ.(*BoolType); ok {
		return NewBoolConstantExpr(c.Value != 0)
	}
	return NewConstantExpr(uint64(c.Int64()), typ)
}

func isPointer(typ Type) bool {
	_, ok := typ.(*PointerType)
	return ok
}
