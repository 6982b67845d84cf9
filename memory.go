package symex

// MemoryModel resolves an address to the object or objects it may denote.
type MemoryModel interface {
	// Returns an expression of type typ denoting the object at addr.
	// Unresolvable addresses yield a DerefFailureExpr.
	Dereference(addr Expr, typ Type) (Expr, error)
}

var _ MemoryModel = (*DefaultMemoryModel)(nil)

// DefaultMemoryModel resolves addresses of the canonical form produced by
// the AddressResolver: an address-of an object, optionally cast and offset
// by a constant number of bytes and at most one symbolic element index.
type DefaultMemoryModel struct {
	layout TypeLayout

	// Byte order used when an access does not line up with a sub-object.
	LittleEndian bool
}

// NewDefaultMemoryModel returns a new instance of DefaultMemoryModel.
func NewDefaultMemoryModel(layout TypeLayout) *DefaultMemoryModel {
	return &DefaultMemoryModel{layout: layout, LittleEndian: true}
}

// Dereference returns the object at addr.
func (m *DefaultMemoryModel) Dereference(addr Expr, typ Type) (Expr, error) {
	switch addr := addr.(type) {
	case *IfExpr:
		then, err := m.Dereference(addr.Then, typ)
		if err != nil {
			return nil, err
		}
		els, err := m.Dereference(addr.Else, typ)
		if err != nil {
			return nil, err
		}
		return &IfExpr{Cond: addr.Cond, Then: then, Else: els, Typ: typ}, nil

	case *CaseExpr:
		cases := make([]Case, len(addr.Cases))
		for i, c := range addr.Cases {
			value, err := m.Dereference(c.Value, typ)
			if err != nil {
				return nil, err
			}
			cases[i] = Case{Guard: c.Guard, Value: value}
		}
		return &CaseExpr{Cases: cases, Typ: typ}, nil

	case *ConstantExpr:
		if addr.Value == 0 {
			return &DerefFailureExpr{Typ: typ}, nil
		}
		return &IntegerDerefExpr{Pointer: addr, Typ: typ}, nil
	}

	loc, ok := m.locate(addr)
	if !ok {
		return &DerefFailureExpr{Typ: typ}, nil
	}
	if obj, ok := m.selectAt(loc.object, loc.offset, loc.index, loc.stride, typ); ok {
		return obj, nil
	}
	return &DerefFailureExpr{Typ: typ}, nil
}

// location represents a decomposed address.
type location struct {
	object Expr   // addressed object
	offset uint64 // constant byte offset into object
	index  Expr   // symbolic element index, if any
	stride Type   // element type the index is scaled by
}

// locate decomposes a pointer expression into an object and offsets.
func (m *DefaultMemoryModel) locate(addr Expr) (location, bool) {
	switch addr := addr.(type) {
	case *AddressOfExpr:
		return location{object: addr.Object}, true

	case *CastExpr:
		if !isPointer(addr.X.Type()) {
			return location{}, false
		}
		return m.locate(addr.X)

	case *BinaryExpr:
		if addr.Op != ADD || !isPointer(addr.LHS.Type()) {
			return location{}, false
		}
		loc, ok := m.locate(addr.LHS)
		if !ok {
			return location{}, false
		}
		elem := ElemType(addr.LHS.Type())
		size, err := m.layout.Sizeof(elem)
		if err != nil {
			return location{}, false
		}

		if c, ok := addr.RHS.(*ConstantExpr); ok {
			if c.Int64() < 0 {
				return location{}, false
			}
			loc.offset += uint64(c.Int64()) * size
			return loc, true
		} else if loc.index != nil {
			return location{}, false
		}
		loc.index, loc.stride = addr.RHS, elem
		return loc, true

	default:
		return location{}, false
	}
}

// selectAt returns the sub-object of obj of type typ found at offset bytes,
// applying index to the first array along the way whose elements are of
// type stride.
func (m *DefaultMemoryModel) selectAt(obj Expr, offset uint64, index Expr, stride Type, typ Type) (Expr, bool) {
	objType := obj.Type()
	if offset == 0 && index == nil && IdenticalTypes(objType, typ) {
		return obj, true
	}

	switch objType := objType.(type) {
	case *StructType:
		for _, f := range objType.Fields {
			fo, err := m.layout.FieldOffset(objType, f.Name)
			if err != nil {
				return nil, false
			}
			fs, err := m.layout.Sizeof(f.Type)
			if err != nil {
				return nil, false
			}
			if offset >= fo && (offset < fo+fs || (fs == 0 && offset == fo)) {
				if _, ok := f.Type.(*BitFieldType); ok {
					break
				}
				return m.selectAt(NewMemberExpr(obj, f.Name), offset-fo, index, stride, typ)
			}
		}

	case *ArrayType:
		esize, err := m.layout.Sizeof(objType.Elem)
		if err != nil || esize == 0 {
			break
		}
		k := offset / esize
		if index != nil && IdenticalTypes(objType.Elem, stride) && offset%esize == 0 {
			i := index
			if k != 0 {
				i = NewBinaryExpr(ADD, index, NewConstantExpr(k, index.Type()))
			}
			return m.selectAt(NewIndexExpr(obj, i), 0, nil, nil, typ)
		}
		if n, ok := objType.ConstLen(); ok && k >= n {
			return nil, false
		}
		return m.selectAt(NewIndexExpr(obj, NewConstantExpr(k, sizeType)), offset%esize, index, stride, typ)
	}

	// Misaligned or reinterpreted access of a sized object.
	if index != nil {
		return nil, false
	}
	if _, err := m.layout.Sizeof(objType); err != nil {
		return nil, false
	}
	return &ByteExtractExpr{
		X:            obj,
		Offset:       NewConstantExpr(offset, sizeType),
		LittleEndian: m.LittleEndian,
		Typ:          typ,
	}, true
}
