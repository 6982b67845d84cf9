package symex

// expand rewrites a struct, bounded array or vector typed expression into
// a constructor of its scalar-reachable components. Scalars and unbounded
// arrays, including variable-length arrays, are returned unchanged.
func (s *Session) expand(src Expr) (Expr, error) {
	switch typ := src.Type().(type) {
	case *StructType:
		elems := make([]Expr, len(typ.Fields))
		for i, f := range typ.Fields {
			var elem Expr
			if composite, ok := src.(*CompositeExpr); ok && composite.Kind == CompositeStruct {
				assert(len(composite.Elems) == len(typ.Fields), "struct constructor arity: %d != %d", len(composite.Elems), len(typ.Fields))
				elem = composite.Elems[i]
			} else {
				elem = &MemberExpr{X: src, Field: f.Name, Typ: f.Type}
			}

			other, err := s.expand(elem)
			if err != nil {
				return nil, err
			}
			elems[i] = other
		}
		return NewCompositeExpr(CompositeStruct, src.Type(), elems...), nil

	case *ArrayType:
		if s.isUnbounded(typ) {
			return src, nil
		}
		n, _ := typ.ConstLen()
		return s.expandElems(src, CompositeArray, typ.Elem, n, lenType(typ.Len))

	case *VectorType:
		n, ok := constLen(typ.Len)
		if !ok {
			return nil, invariantf("expand", src, "vector with non-constant size")
		}
		return s.expandElems(src, CompositeVector, typ.Elem, n, lenType(typ.Len))

	default:
		return src, nil
	}
}

func (s *Session) expandElems(src Expr, kind CompositeKind, elem Type, n uint64, indexType Type) (Expr, error) {
	composite, literal := src.(*CompositeExpr)

	elems := make([]Expr, n)
	for i := uint64(0); i < n; i++ {
		var e Expr = &IndexExpr{X: src, Index: NewConstantExpr(i, indexType), Typ: elem}
		if literal && composite.Kind == kind {
			e = s.Simplifier.Simplify(e)
		}

		other, err := s.expand(e)
		if err != nil {
			return nil, err
		}
		elems[i] = other
	}
	return NewCompositeExpr(kind, src.Type(), elems...), nil
}

// lenType returns the type of an array length, defaulting to sizeType.
func lenType(n Expr) Type {
	if n == nil {
		return sizeType
	}
	return n.Type()
}
