package symex

// dereference resolves every dereference and address-of node in expr.
// Pointers are read with propagation forced on so the memory model sees the
// most concrete address available.
func (s *ExecutionState) dereference(expr Expr, depth int) (Expr, error) {
	switch expr := expr.(type) {
	case *DerefExpr:
		addr, err := s.Read(expr.Pointer, true, depth)
		if err != nil {
			return nil, err
		}
		return s.session.Memory.Dereference(addr, expr.Typ)

	case *AddressOfExpr:
		return NewAddressResolver(s.session.Layout).Resolve(expr), nil
	}

	ops := Operands(expr)
	if len(ops) == 0 {
		return expr, nil
	}
	for i := range ops {
		other, err := s.dereference(ops[i], depth)
		if err != nil {
			return nil, err
		}
		ops[i] = other
	}
	return WithOperands(expr, ops), nil
}
