package symex

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
)

// Type represents the type annotation attached to every expression.
type Type interface {
	typ()
	String() string
}

func (*BoolType) typ()     {}
func (*IntType) typ()      {}
func (*BitFieldType) typ() {}
func (*PointerType) typ()  {}
func (*StructType) typ()   {}
func (*UnionType) typ()    {}
func (*ArrayType) typ()    {}
func (*VectorType) typ()   {}
func (*CodeType) typ()     {}
func (*MathFuncType) typ() {}

// BoolType represents a boolean.
type BoolType struct{}

// String returns the string representation of the type.
func (t *BoolType) String() string { return "bool" }

// IntType represents a fixed-width integer.
type IntType struct {
	Width  uint
	Signed bool
}

// String returns the string representation of the type.
func (t *IntType) String() string {
	if t.Signed {
		return fmt.Sprintf("i%d", t.Width)
	}
	return fmt.Sprintf("u%d", t.Width)
}

// BitFieldType represents an integer struct member narrower than a byte
// boundary. Bit-fields are not individually addressable.
type BitFieldType struct {
	Width  uint
	Signed bool
}

// String returns the string representation of the type.
func (t *BitFieldType) String() string {
	if t.Signed {
		return fmt.Sprintf("bits(i%d)", t.Width)
	}
	return fmt.Sprintf("bits(u%d)", t.Width)
}

// PointerType represents a pointer to Elem.
type PointerType struct {
	Elem Type
}

// NewPointerType returns a pointer type to elem.
func NewPointerType(elem Type) *PointerType {
	return &PointerType{Elem: elem}
}

// String returns the string representation of the type.
func (t *PointerType) String() string { return "*" + t.Elem.String() }

// Field represents a named member of a struct or union.
type Field struct {
	Name string
	Type Type
}

// StructType represents a struct with ordered fields.
type StructType struct {
	Tag    string
	Fields []Field
}

// String returns the string representation of the type.
func (t *StructType) String() string { return "struct" + formatFields(t.Tag, t.Fields) }

// Field returns the field with the given name.
func (t *StructType) Field(name string) (Field, int, bool) {
	for i, f := range t.Fields {
		if f.Name == name {
			return f, i, true
		}
	}
	return Field{}, -1, false
}

// UnionType represents a union of overlapping fields.
type UnionType struct {
	Tag    string
	Fields []Field
}

// String returns the string representation of the type.
func (t *UnionType) String() string { return "union" + formatFields(t.Tag, t.Fields) }

func formatFields(tag string, fields []Field) string {
	if tag != "" {
		return " " + tag
	}
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, f := range fields {
		if i > 0 {
			buf.WriteString("; ")
		}
		fmt.Fprintf(&buf, "%s %s", f.Name, f.Type)
	}
	buf.WriteString("}")
	return buf.String()
}

// ArrayType represents an array of Elem. A nil Len is an infinite array; a
// non-constant Len is a variable-length array.
type ArrayType struct {
	Elem Type
	Len  Expr
}

// String returns the string representation of the type.
func (t *ArrayType) String() string {
	if t.Len == nil {
		return "[inf]" + t.Elem.String()
	}
	return fmt.Sprintf("[%s]%s", t.Len, t.Elem)
}

// ConstLen returns the length of the array if it is a compile-time constant.
func (t *ArrayType) ConstLen() (uint64, bool) {
	return constLen(t.Len)
}

// VectorType represents a fixed-size SIMD vector.
type VectorType struct {
	Elem Type
	Len  Expr
}

// String returns the string representation of the type.
func (t *VectorType) String() string { return fmt.Sprintf("vector[%s]%s", t.Len, t.Elem) }

// CodeType represents a function.
type CodeType struct {
	Params []Type
	Result Type
}

// String returns the string representation of the type.
func (t *CodeType) String() string {
	var buf bytes.Buffer
	buf.WriteString("func(")
	for i, p := range t.Params {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(p.String())
	}
	buf.WriteString(")")
	if t.Result != nil {
		buf.WriteString(" " + t.Result.String())
	}
	return buf.String()
}

// MathFuncType represents a mathematical (uninterpreted) function.
type MathFuncType struct {
	Domain   []Type
	Codomain Type
}

// String returns the string representation of the type.
func (t *MathFuncType) String() string {
	return fmt.Sprintf("mathfunc(%d) %s", len(t.Domain), t.Codomain)
}

func constLen(expr Expr) (uint64, bool) {
	if c, ok := expr.(*ConstantExpr); ok {
		return c.Value, true
	}
	return 0, false
}

// ElemType returns the element type of a pointer, array or vector type.
// Returns nil for any other type.
func ElemType(typ Type) Type {
	switch typ := typ.(type) {
	case *PointerType:
		return typ.Elem
	case *ArrayType:
		return typ.Elem
	case *VectorType:
		return typ.Elem
	default:
		return nil
	}
}

// IsFunctionType returns true for code and mathematical function types.
func IsFunctionType(typ Type) bool {
	switch typ.(type) {
	case *CodeType, *MathFuncType:
		return true
	default:
		return false
	}
}

// TypeWidth returns the bit width of a scalar type. Returns zero for
// aggregate types.
func TypeWidth(typ Type) uint {
	switch typ := typ.(type) {
	case *BoolType:
		return WidthBool
	case *IntType:
		return typ.Width
	case *BitFieldType:
		return typ.Width
	default:
		return 0
	}
}

// IsSigned returns true if typ is a signed integer or bit-field type.
func IsSigned(typ Type) bool {
	switch typ := typ.(type) {
	case *IntType:
		return typ.Signed
	case *BitFieldType:
		return typ.Signed
	default:
		return false
	}
}

// IdenticalTypes returns true if a and b are structurally identical.
func IdenticalTypes(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}

	switch a := a.(type) {
	case *BoolType:
		_, ok := b.(*BoolType)
		return ok
	case *IntType:
		b, ok := b.(*IntType)
		return ok && a.Width == b.Width && a.Signed == b.Signed
	case *BitFieldType:
		b, ok := b.(*BitFieldType)
		return ok && a.Width == b.Width && a.Signed == b.Signed
	case *PointerType:
		b, ok := b.(*PointerType)
		return ok && IdenticalTypes(a.Elem, b.Elem)
	case *StructType:
		b, ok := b.(*StructType)
		return ok && a.Tag == b.Tag && identicalFields(a.Fields, b.Fields)
	case *UnionType:
		b, ok := b.(*UnionType)
		return ok && a.Tag == b.Tag && identicalFields(a.Fields, b.Fields)
	case *ArrayType:
		b, ok := b.(*ArrayType)
		return ok && IdenticalTypes(a.Elem, b.Elem) && CompareExpr(a.Len, b.Len) == 0
	case *VectorType:
		b, ok := b.(*VectorType)
		return ok && IdenticalTypes(a.Elem, b.Elem) && CompareExpr(a.Len, b.Len) == 0
	case *CodeType:
		b, ok := b.(*CodeType)
		if !ok || len(a.Params) != len(b.Params) || !IdenticalTypes(a.Result, b.Result) {
			return false
		}
		for i := range a.Params {
			if !IdenticalTypes(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return true
	case *MathFuncType:
		b, ok := b.(*MathFuncType)
		if !ok || len(a.Domain) != len(b.Domain) || !IdenticalTypes(a.Codomain, b.Codomain) {
			return false
		}
		for i := range a.Domain {
			if !IdenticalTypes(a.Domain[i], b.Domain[i]) {
				return false
			}
		}
		return true
	default:
		panic("unreachable")
	}
}

func identicalFields(a, b []Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !IdenticalTypes(a[i].Type, b[i].Type) {
			return false
		}
	}
	return true
}

// TypeLayout answers size and offset queries about types.
type TypeLayout interface {
	// Returns the size of typ, in bytes.
	Sizeof(typ Type) (uint64, error)

	// Returns the byte offset of a named field within a struct or union.
	FieldOffset(typ Type, field string) (uint64, error)
}

var _ TypeLayout = (*DefaultLayout)(nil)

// DefaultLayout lays out types with natural alignment.
type DefaultLayout struct {
	PointerWidth uint
}

// NewDefaultLayout returns a layout for the given pointer width, in bits.
func NewDefaultLayout(pointerWidth uint) *DefaultLayout {
	return &DefaultLayout{PointerWidth: pointerWidth}
}

// Sizeof returns the size of typ, in bytes.
func (l *DefaultLayout) Sizeof(typ Type) (uint64, error) {
	size, _, err := l.sizeAlign(typ)
	return size, err
}

// FieldOffset returns the byte offset of field within a struct or union.
func (l *DefaultLayout) FieldOffset(typ Type, field string) (uint64, error) {
	switch typ := typ.(type) {
	case *UnionType:
		for _, f := range typ.Fields {
			if f.Name == field {
				return 0, nil
			}
		}
	case *StructType:
		var offset uint64
		for _, f := range typ.Fields {
			size, align, err := l.sizeAlign(f.Type)
			if err != nil {
				return 0, err
			}
			offset = alignTo(offset, align)
			if f.Name == field {
				return offset, nil
			}
			offset += size
		}
	default:
		return 0, errors.Errorf("symex.DefaultLayout: field offset of non-compound type: %s", typ)
	}
	return 0, errors.Errorf("symex.DefaultLayout: field not found: %s.%s", typ, field)
}

func (l *DefaultLayout) sizeAlign(typ Type) (size, align uint64, err error) {
	switch typ := typ.(type) {
	case *BoolType:
		return 1, 1, nil
	case *IntType:
		n := uint64(minBytes(typ.Width))
		return n, n, nil
	case *BitFieldType:
		n := uint64(minBytes(typ.Width))
		return n, 1, nil
	case *PointerType:
		n := uint64(l.PointerWidth / 8)
		return n, n, nil
	case *StructType:
		align = 1
		for _, f := range typ.Fields {
			fsize, falign, err := l.sizeAlign(f.Type)
			if err != nil {
				return 0, 0, err
			}
			size = alignTo(size, falign) + fsize
			if falign > align {
				align = falign
			}
		}
		return alignTo(size, align), align, nil
	case *UnionType:
		align = 1
		for _, f := range typ.Fields {
			fsize, falign, err := l.sizeAlign(f.Type)
			if err != nil {
				return 0, 0, err
			}
			if fsize > size {
				size = fsize
			}
			if falign > align {
				align = falign
			}
		}
		return alignTo(size, align), align, nil
	case *ArrayType:
		n, ok := typ.ConstLen()
		if !ok {
			return 0, 0, errors.Errorf("symex.DefaultLayout: size of array with non-constant length: %s", typ)
		}
		esize, ealign, err := l.sizeAlign(typ.Elem)
		return n * esize, ealign, err
	case *VectorType:
		n, ok := constLen(typ.Len)
		if !ok {
			return 0, 0, errors.Errorf("symex.DefaultLayout: size of vector with non-constant length: %s", typ)
		}
		esize, _, err := l.sizeAlign(typ.Elem)
		return n * esize, n * esize, err
	default:
		return 0, 0, errors.Errorf("symex.DefaultLayout: type has no size: %s", typ)
	}
}

func alignTo(offset, align uint64) uint64 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) / align * align
}

// minBytes returns smallest number of bytes in which the w fits.
func minBytes(bits uint) uint {
	return (bits + 7) / 8
}
