package symex

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Expr represents an immutable, typed symbolic expression.
type Expr interface {
	expr()

	// Returns the type annotation of the expression.
	Type() Type

	String() string
}

func (*SymbolExpr) expr()         {}
func (*ConstantExpr) expr()       {}
func (*StringConstantExpr) expr() {}
func (*MemberExpr) expr()         {}
func (*IndexExpr) expr()          {}
func (*DerefExpr) expr()          {}
func (*AddressOfExpr) expr()      {}
func (*IfExpr) expr()             {}
func (*CaseExpr) expr()           {}
func (*SideEffectExpr) expr()     {}
func (*ByteExtractExpr) expr()    {}
func (*CompositeExpr) expr()      {}
func (*BinaryExpr) expr()         {}
func (*NotExpr) expr()            {}
func (*CastExpr) expr()           {}
func (*DerefFailureExpr) expr()   {}
func (*IntegerDerefExpr) expr()   {}

// SymbolExpr represents a reference to a named variable. SSA symbols carry a
// version suffix in their name and are never renamed again.
type SymbolExpr struct {
	Name string
	SSA  bool
	Typ  Type
}

// NewSymbolExpr returns a non-SSA symbol reference.
func NewSymbolExpr(name string, typ Type) *SymbolExpr {
	return &SymbolExpr{Name: name, Typ: typ}
}

// NewSSASymbolExpr returns a symbol reference tagged as SSA.
func NewSSASymbolExpr(name string, typ Type) *SymbolExpr {
	return &SymbolExpr{Name: name, SSA: true, Typ: typ}
}

func (e *SymbolExpr) Type() Type     { return e.Typ }
func (e *SymbolExpr) String() string { return e.Name }

// ConstantExpr represents a fixed-width integer, boolean or pointer constant.
type ConstantExpr struct {
	Value uint64
	Typ   Type
}

// NewConstantExpr returns a new constant truncated to the width of typ.
func NewConstantExpr(value uint64, typ Type) *ConstantExpr {
	return &ConstantExpr{Value: value & bitmask(TypeWidth(typ)), Typ: typ}
}

// NewIntConstantExpr returns a constant from a signed value.
func NewIntConstantExpr(value int64, typ Type) *ConstantExpr {
	return NewConstantExpr(uint64(value), typ)
}

// NewBoolConstantExpr is an ease of use function for creating constant boolean expressions.
func NewBoolConstantExpr(value bool) *ConstantExpr {
	if value {
		return &ConstantExpr{Value: 1, Typ: &BoolType{}}
	}
	return &ConstantExpr{Value: 0, Typ: &BoolType{}}
}

func (e *ConstantExpr) Type() Type { return e.Typ }

// String returns the string representation of the expression.
func (e *ConstantExpr) String() string {
	if IsSigned(e.Typ) {
		return fmt.Sprintf("(const %d %s)", e.Int64(), e.Typ)
	}
	return fmt.Sprintf("(const %d %s)", e.Value, e.Typ)
}

// Int64 returns the value sign-extended according to the constant's type.
func (e *ConstantExpr) Int64() int64 {
	w := TypeWidth(e.Typ)
	if !IsSigned(e.Typ) || w == 0 || w >= Width64 {
		return int64(e.Value)
	}
	shift := Width64 - w
	return int64(e.Value<<shift) >> shift
}

// IsTrue returns true if this is a boolean true expression.
func (e *ConstantExpr) IsTrue() bool {
	_, ok := e.Typ.(*BoolType)
	return ok && e.Value != 0
}

// IsFalse returns true if this is a boolean false expression.
func (e *ConstantExpr) IsFalse() bool {
	_, ok := e.Typ.(*BoolType)
	return ok && e.Value == 0
}

// StringConstantExpr represents a string literal. Its type is an array of
// characters including the terminator.
type StringConstantExpr struct {
	Value string
	Typ   Type
}

// NewStringConstantExpr returns a string literal typed as a char array.
func NewStringConstantExpr(value string) *StringConstantExpr {
	return &StringConstantExpr{
		Value: value,
		Typ: &ArrayType{
			Elem: &IntType{Width: Width8, Signed: true},
			Len:  NewConstantExpr(uint64(len(value)+1), &IntType{Width: Width64}),
		},
	}
}

func (e *StringConstantExpr) Type() Type     { return e.Typ }
func (e *StringConstantExpr) String() string { return fmt.Sprintf("(string %q)", e.Value) }

// MemberExpr represents access to a named field of a struct or union.
type MemberExpr struct {
	X     Expr
	Field string
	Typ   Type
}

// NewMemberExpr returns a member access typed from the compound's field.
// Panic if x is not a struct or union with the given field.
func NewMemberExpr(x Expr, field string) *MemberExpr {
	var fields []Field
	switch typ := x.Type().(type) {
	case *StructType:
		fields = typ.Fields
	case *UnionType:
		fields = typ.Fields
	}
	for _, f := range fields {
		if f.Name == field {
			return &MemberExpr{X: x, Field: field, Typ: f.Type}
		}
	}
	panic(fmt.Sprintf("symex: member %q not found in %s", field, x.Type()))
}

func (e *MemberExpr) Type() Type     { return e.Typ }
func (e *MemberExpr) String() string { return fmt.Sprintf("(member %s %s)", e.X, e.Field) }

// IndexExpr represents an element access into an array or vector.
type IndexExpr struct {
	X     Expr
	Index Expr
	Typ   Type
}

// NewIndexExpr returns an index expression typed from the element type of x.
func NewIndexExpr(x, index Expr) *IndexExpr {
	elem := ElemType(x.Type())
	assert(elem != nil, "index into non-array type: %s", x.Type())
	return &IndexExpr{X: x, Index: index, Typ: elem}
}

func (e *IndexExpr) Type() Type     { return e.Typ }
func (e *IndexExpr) String() string { return fmt.Sprintf("(index %s %s)", e.X, e.Index) }

// DerefExpr represents a pointer dereference.
type DerefExpr struct {
	Pointer Expr
	Typ     Type
}

// NewDerefExpr returns a dereference typed from the pointer's element type.
func NewDerefExpr(pointer Expr) *DerefExpr {
	elem := ElemType(pointer.Type())
	assert(elem != nil, "dereference of non-pointer type: %s", pointer.Type())
	return &DerefExpr{Pointer: pointer, Typ: elem}
}

func (e *DerefExpr) Type() Type     { return e.Typ }
func (e *DerefExpr) String() string { return fmt.Sprintf("(deref %s)", e.Pointer) }

// AddressOfExpr represents the address of an object.
type AddressOfExpr struct {
	Object Expr
	Typ    Type
}

// NewAddressOfExpr returns the address of object typed as a pointer to it.
func NewAddressOfExpr(object Expr) *AddressOfExpr {
	return &AddressOfExpr{Object: object, Typ: NewPointerType(object.Type())}
}

func (e *AddressOfExpr) Type() Type     { return e.Typ }
func (e *AddressOfExpr) String() string { return fmt.Sprintf("(addr %s)", e.Object) }

// IfExpr represents a conditional expression.
type IfExpr struct {
	Cond Expr
	Then Expr
	Else Expr
	Typ  Type
}

// NewIfExpr returns a conditional typed from the then branch.
func NewIfExpr(cond, then, els Expr) *IfExpr {
	return &IfExpr{Cond: cond, Then: then, Else: els, Typ: then.Type()}
}

func (e *IfExpr) Type() Type { return e.Typ }
func (e *IfExpr) String() string {
	return fmt.Sprintf("(if %s %s %s)", e.Cond, e.Then, e.Else)
}

// Case represents a single guarded arm of a CaseExpr.
type Case struct {
	Guard Expr
	Value Expr
}

// CaseExpr selects the value of the arm whose guard holds. Guards are
// mutually exclusive and exhaustive.
type CaseExpr struct {
	Cases []Case
	Typ   Type
}

// NewCaseExpr returns a new case split of the given type.
func NewCaseExpr(typ Type, cases ...Case) *CaseExpr {
	return &CaseExpr{Cases: cases, Typ: typ}
}

func (e *CaseExpr) Type() Type { return e.Typ }
func (e *CaseExpr) String() string {
	var buf bytes.Buffer
	buf.WriteString("(case")
	for _, c := range e.Cases {
		fmt.Fprintf(&buf, " (%s %s)", c.Guard, c.Value)
	}
	buf.WriteString(")")
	return buf.String()
}

// SideEffectKind represents the statement of a side effect expression.
type SideEffectKind string

const (
	SideEffectNondet   = SideEffectKind("nondet")
	SideEffectAllocate = SideEffectKind("allocate")
	SideEffectCall     = SideEffectKind("function_call")
)

// SideEffectExpr represents an expression with a side effect.
type SideEffectExpr struct {
	Kind SideEffectKind
	Typ  Type
}

// NewNondetExpr returns a side effect yielding a nondeterministic value.
func NewNondetExpr(typ Type) *SideEffectExpr {
	return &SideEffectExpr{Kind: SideEffectNondet, Typ: typ}
}

func (e *SideEffectExpr) Type() Type     { return e.Typ }
func (e *SideEffectExpr) String() string { return fmt.Sprintf("(side-effect %s)", e.Kind) }

// ByteExtractExpr reinterprets the bytes of X at Offset as Typ.
type ByteExtractExpr struct {
	X            Expr
	Offset       Expr
	LittleEndian bool
	Typ          Type
}

func (e *ByteExtractExpr) Type() Type { return e.Typ }
func (e *ByteExtractExpr) String() string {
	if e.LittleEndian {
		return fmt.Sprintf("(byte-extract-le %s %s %s)", e.X, e.Offset, e.Typ)
	}
	return fmt.Sprintf("(byte-extract-be %s %s %s)", e.X, e.Offset, e.Typ)
}

// CompositeKind represents the kind of aggregate built by a CompositeExpr.
type CompositeKind int

const (
	CompositeStruct = CompositeKind(iota)
	CompositeArray
	CompositeVector
)

var compositeKinds = [...]string{
	CompositeStruct: "struct",
	CompositeArray:  "array",
	CompositeVector: "vector",
}

// String returns the string representation of the kind.
func (k CompositeKind) String() string {
	if k >= 0 && int(k) < len(compositeKinds) {
		return compositeKinds[k]
	}
	return fmt.Sprintf("CompositeKind<%d>", k)
}

// CompositeExpr represents an aggregate constructor with ordered elements.
type CompositeExpr struct {
	Kind  CompositeKind
	Elems []Expr
	Typ   Type
}

// NewCompositeExpr returns a new aggregate constructor.
func NewCompositeExpr(kind CompositeKind, typ Type, elems ...Expr) *CompositeExpr {
	return &CompositeExpr{Kind: kind, Elems: elems, Typ: typ}
}

func (e *CompositeExpr) Type() Type { return e.Typ }
func (e *CompositeExpr) String() string {
	var buf bytes.Buffer
	buf.WriteString("(" + e.Kind.String())
	for _, elem := range e.Elems {
		buf.WriteString(" " + elem.String())
	}
	buf.WriteString(")")
	return buf.String()
}

// BinaryOp represents a binary expression operation.
type BinaryOp int

// BinaryExpr operations.
const (
	arithmetic_op_begin = BinaryOp(iota)
	ADD
	SUB
	MUL
	arithmetic_op_end

	compare_op_begin
	EQ
	NE
	LT
	LE
	GT
	GE
	compare_op_end

	logical_op_begin
	AND
	OR
	logical_op_end
)

var binaryOps = [...]string{
	ADD: "add",
	SUB: "sub",
	MUL: "mul",
	EQ:  "eq",
	NE:  "ne",
	LT:  "lt",
	LE:  "le",
	GT:  "gt",
	GE:  "ge",
	AND: "and",
	OR:  "or",
}

// String returns the string representation of the operation.
func (op BinaryOp) String() string {
	if op >= 0 && op < BinaryOp(len(binaryOps)) && binaryOps[op] != "" {
		return binaryOps[op]
	}
	return fmt.Sprintf("BinaryOp<%d>", op)
}

// IsArithmetic returns true if op is an arithmetic operator.
func (op BinaryOp) IsArithmetic() bool {
	return op > arithmetic_op_begin && op < arithmetic_op_end
}

// IsCompare returns true if op is a comparison operator.
func (op BinaryOp) IsCompare() bool {
	return op > compare_op_begin && op < compare_op_end
}

// IsLogical returns true if op is a boolean connective.
func (op BinaryOp) IsLogical() bool {
	return op > logical_op_begin && op < logical_op_end
}

// BinaryExpr represents an operation on two expressions. Adding an integer
// to a pointer advances it by whole elements.
type BinaryExpr struct {
	Op  BinaryOp
	LHS Expr
	RHS Expr
	Typ Type
}

// NewBinaryExpr returns a new binary expression. Comparisons and logical
// connectives are boolean; arithmetic takes the type of lhs.
func NewBinaryExpr(op BinaryOp, lhs, rhs Expr) *BinaryExpr {
	var typ Type = &BoolType{}
	if op.IsArithmetic() {
		typ = lhs.Type()
	}
	return &BinaryExpr{Op: op, LHS: lhs, RHS: rhs, Typ: typ}
}

func (e *BinaryExpr) Type() Type { return e.Typ }
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Op, e.LHS, e.RHS)
}

// NotExpr represents a boolean negation.
type NotExpr struct {
	X Expr
}

// NewNotExpr returns a new instance of NotExpr.
func NewNotExpr(x Expr) *NotExpr {
	return &NotExpr{X: x}
}

func (e *NotExpr) Type() Type     { return &BoolType{} }
func (e *NotExpr) String() string { return fmt.Sprintf("(not %s)", e.X) }

// CastExpr represents a conversion of X to Typ.
type CastExpr struct {
	X   Expr
	Typ Type
}

// NewCastExpr returns a new instance of CastExpr.
func NewCastExpr(x Expr, typ Type) *CastExpr {
	return &CastExpr{X: x, Typ: typ}
}

// ConditionalCast returns x unchanged if it already has type typ.
// Otherwise returns a cast of x to typ.
func ConditionalCast(x Expr, typ Type) Expr {
	if IdenticalTypes(x.Type(), typ) {
		return x
	}
	return NewCastExpr(x, typ)
}

func (e *CastExpr) Type() Type     { return e.Typ }
func (e *CastExpr) String() string { return fmt.Sprintf("(cast %s %s)", e.X, e.Typ) }

// DerefFailureExpr is produced by the memory model for an address that
// cannot be resolved to any object.
type DerefFailureExpr struct {
	Typ Type
}

func (e *DerefFailureExpr) Type() Type     { return e.Typ }
func (e *DerefFailureExpr) String() string { return "(deref-failure)" }

// IntegerDerefExpr is produced by the memory model for a dereference of a
// non-null integer address such as *(T *)123.
type IntegerDerefExpr struct {
	Pointer Expr
	Typ     Type
}

func (e *IntegerDerefExpr) Type() Type     { return e.Typ }
func (e *IntegerDerefExpr) String() string { return fmt.Sprintf("(integer-deref %s)", e.Pointer) }

func bitmask(width uint) uint64 {
	if width == 0 || width >= Width64 {
		return ^uint64(0)
	}
	return (1 << width) - 1
}

// IsConstantExpr returns true if expr is an instance of ConstantExpr.
func IsConstantExpr(expr Expr) bool {
	_, ok := expr.(*ConstantExpr)
	return ok
}

// IsConstantTrue returns true if expr is an instance of ConstantExpr and is true.
func IsConstantTrue(expr Expr) bool {
	tmp, ok := expr.(*ConstantExpr)
	return ok && tmp.IsTrue()
}

// IsConstantFalse returns true if expr is an instance of ConstantExpr and is false.
func IsConstantFalse(expr Expr) bool {
	tmp, ok := expr.(*ConstantExpr)
	return ok && tmp.IsFalse()
}

// operandSlots returns pointers to the operand slots of expr in order.
// Writing through a slot mutates expr, so callers must own expr.
func operandSlots(expr Expr) []*Expr {
	switch expr := expr.(type) {
	case *MemberExpr:
		return []*Expr{&expr.X}
	case *IndexExpr:
		return []*Expr{&expr.X, &expr.Index}
	case *DerefExpr:
		return []*Expr{&expr.Pointer}
	case *AddressOfExpr:
		return []*Expr{&expr.Object}
	case *IfExpr:
		return []*Expr{&expr.Cond, &expr.Then, &expr.Else}
	case *CaseExpr:
		a := make([]*Expr, 0, len(expr.Cases)*2)
		for i := range expr.Cases {
			a = append(a, &expr.Cases[i].Guard, &expr.Cases[i].Value)
		}
		return a
	case *ByteExtractExpr:
		return []*Expr{&expr.X, &expr.Offset}
	case *CompositeExpr:
		a := make([]*Expr, len(expr.Elems))
		for i := range expr.Elems {
			a[i] = &expr.Elems[i]
		}
		return a
	case *BinaryExpr:
		return []*Expr{&expr.LHS, &expr.RHS}
	case *NotExpr:
		return []*Expr{&expr.X}
	case *CastExpr:
		return []*Expr{&expr.X}
	case *IntegerDerefExpr:
		return []*Expr{&expr.Pointer}
	case *SymbolExpr, *ConstantExpr, *StringConstantExpr, *SideEffectExpr, *DerefFailureExpr:
		return nil
	default:
		panic("unreachable")
	}
}

// shallowCopy returns a copy of expr that owns its operand slots. Operands
// themselves are shared with expr.
func shallowCopy(expr Expr) Expr {
	switch expr := expr.(type) {
	case *SymbolExpr:
		other := *expr
		return &other
	case *ConstantExpr:
		other := *expr
		return &other
	case *StringConstantExpr:
		other := *expr
		return &other
	case *MemberExpr:
		other := *expr
		return &other
	case *IndexExpr:
		other := *expr
		return &other
	case *DerefExpr:
		other := *expr
		return &other
	case *AddressOfExpr:
		other := *expr
		return &other
	case *IfExpr:
		other := *expr
		return &other
	case *CaseExpr:
		other := *expr
		other.Cases = make([]Case, len(expr.Cases))
		copy(other.Cases, expr.Cases)
		return &other
	case *SideEffectExpr:
		other := *expr
		return &other
	case *ByteExtractExpr:
		other := *expr
		return &other
	case *CompositeExpr:
		other := *expr
		other.Elems = make([]Expr, len(expr.Elems))
		copy(other.Elems, expr.Elems)
		return &other
	case *BinaryExpr:
		other := *expr
		return &other
	case *NotExpr:
		other := *expr
		return &other
	case *CastExpr:
		other := *expr
		return &other
	case *DerefFailureExpr:
		other := *expr
		return &other
	case *IntegerDerefExpr:
		other := *expr
		return &other
	default:
		panic("unreachable")
	}
}

// Operands returns the direct operands of expr in order.
func Operands(expr Expr) []Expr {
	slots := operandSlots(expr)
	if len(slots) == 0 {
		return nil
	}
	a := make([]Expr, len(slots))
	for i, slot := range slots {
		a[i] = *slot
	}
	return a
}

// WithOperands returns a copy of expr with its operands replaced by ops.
// Returns expr itself if every operand is unchanged.
func WithOperands(expr Expr, ops []Expr) Expr {
	slots := operandSlots(expr)
	assert(len(slots) == len(ops), "operand count mismatch: %d != %d", len(slots), len(ops))

	changed := false
	for i, slot := range slots {
		if *slot != ops[i] {
			changed = true
			break
		}
	}
	if !changed {
		return expr
	}

	other := shallowCopy(expr)
	for i, slot := range operandSlots(other) {
		*slot = ops[i]
	}
	return other
}

// CompareExpr returns an integer comparing two expressions.
// The result will be 0 if a==b, -1 if a < b, and +1 if a > b.
func CompareExpr(a, b Expr) int {
	if a == nil && b != nil {
		return -1
	} else if a != nil && b == nil {
		return 1
	} else if a == nil && b == nil {
		return 0
	}

	if ak, bk := exprKind(a), exprKind(b); ak < bk {
		return -1
	} else if ak > bk {
		return 1
	}

	if cmp := compareType(a.Type(), b.Type()); cmp != 0 {
		return cmp
	}

	switch a := a.(type) {
	case *SymbolExpr:
		b := b.(*SymbolExpr)
		if cmp := strings.Compare(a.Name, b.Name); cmp != 0 {
			return cmp
		}
		return compareBool(a.SSA, b.SSA)
	case *ConstantExpr:
		return compareUint64(a.Value, b.(*ConstantExpr).Value)
	case *StringConstantExpr:
		return strings.Compare(a.Value, b.(*StringConstantExpr).Value)
	case *MemberExpr:
		if cmp := strings.Compare(a.Field, b.(*MemberExpr).Field); cmp != 0 {
			return cmp
		}
	case *SideEffectExpr:
		return strings.Compare(string(a.Kind), string(b.(*SideEffectExpr).Kind))
	case *ByteExtractExpr:
		if cmp := compareBool(a.LittleEndian, b.(*ByteExtractExpr).LittleEndian); cmp != 0 {
			return cmp
		}
	case *CompositeExpr:
		b := b.(*CompositeExpr)
		if a.Kind < b.Kind {
			return -1
		} else if a.Kind > b.Kind {
			return 1
		}
	case *BinaryExpr:
		b := b.(*BinaryExpr)
		if a.Op < b.Op {
			return -1
		} else if a.Op > b.Op {
			return 1
		}
	}

	return compareExprSlice(Operands(a), Operands(b))
}

func compareExprSlice(a, b []Expr) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if cmp := CompareExpr(a[i], b[i]); cmp != 0 {
			return cmp
		}
	}
	if len(a) < len(b) {
		return -1
	} else if len(a) > len(b) {
		return 1
	}
	return 0
}

func compareType(a, b Type) int {
	if IdenticalTypes(a, b) {
		return 0
	}
	var as, bs string
	if a != nil {
		as = a.String()
	}
	if b != nil {
		bs = b.String()
	}
	if cmp := strings.Compare(as, bs); cmp != 0 {
		return cmp
	}
	return strings.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b))
}

func compareUint64(a, b uint64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

func compareBool(a, b bool) int {
	if !a && b {
		return -1
	} else if a && !b {
		return 1
	}
	return 0
}

// exprKind returns a numeric value for the type of expression.
// Only used internally for equality checks and sorting.
func exprKind(expr Expr) int {
	switch expr.(type) {
	case *ConstantExpr:
		return 1
	case *StringConstantExpr:
		return 2
	case *SymbolExpr:
		return 3
	case *MemberExpr:
		return 4
	case *IndexExpr:
		return 5
	case *DerefExpr:
		return 6
	case *AddressOfExpr:
		return 7
	case *IfExpr:
		return 8
	case *CaseExpr:
		return 9
	case *SideEffectExpr:
		return 10
	case *ByteExtractExpr:
		return 11
	case *CompositeExpr:
		return 12
	case *BinaryExpr:
		return 13
	case *NotExpr:
		return 14
	case *CastExpr:
		return 15
	case *DerefFailureExpr:
		return 16
	case *IntegerDerefExpr:
		return 17
	default:
		panic("unreachable")
	}
}

// ExprVisitor represents a visitor that can be passed to WalkExpr().
type ExprVisitor interface {
	// Executed for every visited node. Return nil to skip the node's children.
	Visit(expr Expr) ExprVisitor
}

// WalkExpr traverses expr in pre-order. It never modifies the tree.
func WalkExpr(v ExprVisitor, expr Expr) {
	if v = v.Visit(expr); v == nil {
		return
	}
	for _, op := range Operands(expr) {
		WalkExpr(v, op)
	}
}

// RewriteExpr rewrites expr bottom-up. The function is applied to every node
// after its operands have been rewritten. Shared nodes are copied, never
// mutated.
func RewriteExpr(expr Expr, fn func(Expr) (Expr, error)) (Expr, error) {
	ops := Operands(expr)
	for i := range ops {
		other, err := RewriteExpr(ops[i], fn)
		if err != nil {
			return nil, err
		}
		ops[i] = other
	}
	if ops != nil {
		expr = WithOperands(expr, ops)
	}
	return fn(expr)
}

// FindSymbols returns all symbols referenced in the expressions, in visit order.
func FindSymbols(exprs ...Expr) []*SymbolExpr {
	v := &symbolExprVisitor{}
	for _, expr := range exprs {
		WalkExpr(v, expr)
	}
	return v.a
}

type symbolExprVisitor struct {
	a []*SymbolExpr
}

func (v *symbolExprVisitor) Visit(expr Expr) ExprVisitor {
	if expr, ok := expr.(*SymbolExpr); ok {
		v.a = append(v.a, expr)
	}
	return v
}

// ExprEvaluator evaluates expressions using known symbol values.
type ExprEvaluator struct {
	m map[string]*ConstantExpr // mapping of symbol name to value
}

// NewExprEvaluator returns a new instance of ExprEvaluator with the given symbol/value mapping.
func NewExprEvaluator(m map[string]*ConstantExpr) *ExprEvaluator {
	return &ExprEvaluator{m: m}
}

// Evaluate evaluates expr to a constant expression.
// Returns an error if an unbound symbol is encountered.
func (ee *ExprEvaluator) Evaluate(expr Expr) (*ConstantExpr, error) {
	switch expr := expr.(type) {
	case *ConstantExpr:
		return expr, nil
	case *SymbolExpr:
		value, ok := ee.m[expr.Name]
		if !ok {
			return nil, errors.Errorf("symbol not bound: %s", expr.Name)
		}
		return value, nil
	case *BinaryExpr:
		lhs, err := ee.Evaluate(expr.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := ee.Evaluate(expr.RHS)
		if err != nil {
			return nil, err
		}
		if value, ok := foldBinary(expr.Op, lhs, rhs, expr.Typ); ok {
			return value, nil
		}
		return nil, errors.Errorf("cannot evaluate: %s", expr)
	case *NotExpr:
		x, err := ee.Evaluate(expr.X)
		if err != nil {
			return nil, err
		}
		return NewBoolConstantExpr(x.Value == 0), nil
	case *CastExpr:
		x, err := ee.Evaluate(expr.X)
		if err != nil {
			return nil, err
		}
		return foldCast(x, expr.Typ), nil
	case *IfExpr:
		cond, err := ee.Evaluate(expr.Cond)
		if err != nil {
			return nil, err
		} else if cond.Value != 0 {
			return ee.Evaluate(expr.Then)
		}
		return ee.Evaluate(expr.Else)
	case *CaseExpr:
		for _, c := range expr.Cases {
			guard, err := ee.Evaluate(c.Guard)
			if err != nil {
				return nil, err
			} else if guard.Value != 0 {
				return ee.Evaluate(c.Value)
			}
		}
		return nil, errors.Errorf("no case matched: %s", expr)
	case *IndexExpr:
		composite, ok := expr.X.(*CompositeExpr)
		if !ok {
			return nil, errors.Errorf("cannot evaluate: %s", expr)
		}
		index, err := ee.Evaluate(expr.Index)
		if err != nil {
			return nil, err
		} else if index.Value >= uint64(len(composite.Elems)) {
			return nil, errors.Errorf("index out of bounds: %d >= %d", index.Value, len(composite.Elems))
		}
		return ee.Evaluate(composite.Elems[index.Value])
	default:
		return nil, errors.Errorf("invalid expression type: %T", expr)
	}
}
