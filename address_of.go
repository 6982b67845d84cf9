package symex

// AddressResolver rewrites address-of expressions into pointer arithmetic
// over the enclosing object: a base address plus a byte offset or element
// index.
type AddressResolver struct {
	layout TypeLayout
}

// NewAddressResolver returns a new instance of AddressResolver.
func NewAddressResolver(layout TypeLayout) *AddressResolver {
	return &AddressResolver{layout: layout}
}

// Resolve returns an expression computing the address of expr's object,
// cast to expr's pointer type if needed.
func (r *AddressResolver) Resolve(expr *AddressOfExpr) Expr {
	switch obj := expr.Object.(type) {
	case *SymbolExpr, *StringConstantExpr, *ByteExtractExpr:
		return expr
	case *CompositeExpr:
		if obj.Kind == CompositeArray {
			return expr
		}
	case *MemberExpr:
		if _, ok := obj.Typ.(*BitFieldType); ok {
			return expr
		}
	}
	return ConditionalCast(r.resolve(expr.Object), expr.Typ)
}

func (r *AddressResolver) resolve(obj Expr) Expr {
	switch obj := obj.(type) {
	case *MemberExpr:
		if _, ok := obj.Typ.(*BitFieldType); ok {
			return NewAddressOfExpr(obj)
		}
		offset, err := r.layout.FieldOffset(obj.X.Type(), obj.Field)
		if err != nil {
			return NewAddressOfExpr(obj)
		}
		base := r.resolve(obj.X)
		return ConditionalCast(addByteOffset(base, offset), NewPointerType(obj.Typ))

	case *IndexExpr:
		base := ConditionalCast(r.resolve(obj.X), NewPointerType(obj.Typ))
		return NewBinaryExpr(ADD, base, obj.Index)

	case *DerefExpr:
		return obj.Pointer

	case *IfExpr:
		return &IfExpr{
			Cond: obj.Cond,
			Then: r.resolve(obj.Then),
			Else: r.resolve(obj.Else),
			Typ:  NewPointerType(obj.Typ),
		}

	default:
		if array, ok := obj.Type().(*ArrayType); ok {
			return NewCastExpr(NewAddressOfExpr(obj), NewPointerType(array.Elem))
		}
		return NewAddressOfExpr(obj)
	}
}

// charPointerType is the pointer type used for byte arithmetic.
var charPointerType = NewPointerType(&IntType{Width: Width8, Signed: true})

// sizeType is the type of byte offsets and object sizes.
var sizeType = &IntType{Width: Width64}

func addByteOffset(base Expr, offset uint64) Expr {
	return NewBinaryExpr(ADD, ConditionalCast(base, charPointerType), NewConstantExpr(offset, sizeType))
}
