package frontend

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"

	"github.com/benbjohnson/symex"
	"github.com/pkg/errors"
	"golang.org/x/tools/go/ast/astutil"
)

// Basic types available by name in every scope.
var basicTypes = map[string]symex.Type{
	"bool":    &symex.BoolType{},
	"char":    &symex.IntType{Width: symex.Width8, Signed: true},
	"int8":    &symex.IntType{Width: symex.Width8, Signed: true},
	"int16":   &symex.IntType{Width: symex.Width16, Signed: true},
	"int32":   &symex.IntType{Width: symex.Width32, Signed: true},
	"int64":   &symex.IntType{Width: symex.Width64, Signed: true},
	"int":     &symex.IntType{Width: symex.Width32, Signed: true},
	"byte":    &symex.IntType{Width: symex.Width8},
	"uint8":   &symex.IntType{Width: symex.Width8},
	"uint16":  &symex.IntType{Width: symex.Width16},
	"uint32":  &symex.IntType{Width: symex.Width32},
	"uint64":  &symex.IntType{Width: symex.Width64},
	"uint":    &symex.IntType{Width: symex.Width32},
	"uintptr": &symex.IntType{Width: symex.Width64},
}

// sizeType is the type of array lengths and untyped indices.
var sizeType = &symex.IntType{Width: symex.Width64}

// defaultIntType is the type of an integer literal with no other operand.
var defaultIntType = &symex.IntType{Width: symex.Width32, Signed: true}

var binaryOps = map[token.Token]symex.BinaryOp{
	token.ADD:  symex.ADD,
	token.SUB:  symex.SUB,
	token.MUL:  symex.MUL,
	token.EQL:  symex.EQ,
	token.NEQ:  symex.NE,
	token.LSS:  symex.LT,
	token.LEQ:  symex.LE,
	token.GTR:  symex.GT,
	token.GEQ:  symex.GE,
	token.LAND: symex.AND,
	token.LOR:  symex.OR,
}

// ParseType parses a type written in Go syntax. Named types, and the
// lengths of variable-length arrays, are resolved in scope. A nil scope
// only allows basic types.
//
// Beyond Go's own syntax, union(struct{...}) declares a union, bits(n) and
// sbits(n) declare bit-fields and vector(n, T) declares a vector.
func ParseType(src string, scope *Scope) (symex.Type, error) {
	node, err := parser.ParseExpr(src)
	if err != nil {
		return nil, errors.Wrapf(err, "frontend: parse type %q", src)
	}
	return (&elaborator{scope: scope}).typ(node)
}

// ParseExpr parses an expression written in Go syntax. Identifiers are
// resolved against the locals of the scope's function, then globals, then
// functions. Integer literals adopt the type of the other operand.
//
// The builtins nondet(T), cond(c, a, b) and cast(x, T) produce a
// nondeterministic value, a conditional and a conversion.
func ParseExpr(src string, scope *Scope) (symex.Expr, error) {
	return parseExprHint(src, scope, nil)
}

func parseExprHint(src string, scope *Scope, hint symex.Type) (symex.Expr, error) {
	node, err := parser.ParseExpr(src)
	if err != nil {
		return nil, errors.Wrapf(err, "frontend: parse expression %q", src)
	}
	return (&elaborator{scope: scope}).expr(node, hint)
}

// elaborator converts Go syntax trees into symex types and expressions.
type elaborator struct {
	scope *Scope
}

func (e *elaborator) typ(node ast.Expr) (symex.Type, error) {
	switch node := astutil.Unparen(node).(type) {
	case *ast.Ident:
		if typ, ok := basicTypes[node.Name]; ok {
			return typ, nil
		} else if e.scope != nil {
			if typ, ok := e.scope.env.types[node.Name]; ok {
				return typ, nil
			}
		}
		return nil, errors.Errorf("frontend: unknown type: %s", node.Name)

	case *ast.StarExpr:
		elem, err := e.typ(node.X)
		if err != nil {
			return nil, err
		}
		return symex.NewPointerType(elem), nil

	case *ast.ArrayType:
		elem, err := e.typ(node.Elt)
		if err != nil {
			return nil, err
		} else if node.Len == nil {
			return &symex.ArrayType{Elem: elem}, nil
		}
		n, err := e.expr(node.Len, sizeType)
		if err != nil {
			return nil, err
		}
		return &symex.ArrayType{Elem: elem, Len: n}, nil

	case *ast.StructType:
		fields, err := e.fields(node.Fields)
		if err != nil {
			return nil, err
		}
		return &symex.StructType{Fields: fields}, nil

	case *ast.FuncType:
		return e.funcType(node)

	case *ast.CallExpr:
		return e.typeCall(node)

	default:
		return nil, errors.Errorf("frontend: unsupported type syntax: %T", node)
	}
}

func (e *elaborator) fields(list *ast.FieldList) ([]symex.Field, error) {
	var fields []symex.Field
	if list == nil {
		return fields, nil
	}
	for _, f := range list.List {
		if len(f.Names) == 0 {
			return nil, errors.New("frontend: embedded fields are not supported")
		}
		typ, err := e.typ(f.Type)
		if err != nil {
			return nil, err
		}
		for _, name := range f.Names {
			fields = append(fields, symex.Field{Name: name.Name, Type: typ})
		}
	}
	return fields, nil
}

func (e *elaborator) funcType(node *ast.FuncType) (symex.Type, error) {
	var typ symex.CodeType
	for _, f := range node.Params.List {
		ptyp, err := e.typ(f.Type)
		if err != nil {
			return nil, err
		}
		for i := 0; i < len(f.Names) || i == 0; i++ {
			typ.Params = append(typ.Params, ptyp)
		}
	}

	var err error
	if node.Results != nil && len(node.Results.List) > 0 {
		if len(node.Results.List) > 1 || len(node.Results.List[0].Names) > 1 {
			return nil, errors.New("frontend: multiple results are not supported")
		}
		if typ.Result, err = e.typ(node.Results.List[0].Type); err != nil {
			return nil, err
		}
	}
	return &typ, nil
}

func (e *elaborator) typeCall(node *ast.CallExpr) (symex.Type, error) {
	fn, ok := node.Fun.(*ast.Ident)
	if !ok {
		return nil, errors.New("frontend: unsupported type syntax: call")
	}

	switch fn.Name {
	case "union":
		if len(node.Args) != 1 {
			return nil, errors.New("frontend: union expects one struct argument")
		}
		st, ok := astutil.Unparen(node.Args[0]).(*ast.StructType)
		if !ok {
			return nil, errors.New("frontend: union expects one struct argument")
		}
		fields, err := e.fields(st.Fields)
		if err != nil {
			return nil, err
		}
		return &symex.UnionType{Fields: fields}, nil

	case "bits", "sbits":
		if len(node.Args) != 1 {
			return nil, errors.Errorf("frontend: %s expects a width", fn.Name)
		}
		width, err := intLit(node.Args[0])
		if err != nil {
			return nil, err
		}
		return &symex.BitFieldType{Width: uint(width), Signed: fn.Name == "sbits"}, nil

	case "vector":
		if len(node.Args) != 2 {
			return nil, errors.New("frontend: vector expects a length and an element type")
		}
		n, err := intLit(node.Args[0])
		if err != nil {
			return nil, err
		}
		elem, err := e.typ(node.Args[1])
		if err != nil {
			return nil, err
		}
		return &symex.VectorType{Elem: elem, Len: symex.NewConstantExpr(n, sizeType)}, nil

	default:
		return nil, errors.Errorf("frontend: unknown type constructor: %s", fn.Name)
	}
}

// expr elaborates node. The hint is the type given to untyped integer
// literals and may be nil.
func (e *elaborator) expr(node ast.Expr, hint symex.Type) (symex.Expr, error) {
	switch node := astutil.Unparen(node).(type) {
	case *ast.Ident:
		return e.ident(node)

	case *ast.BasicLit:
		return e.basicLit(node, hint)

	case *ast.SelectorExpr:
		x, err := e.expr(node.X, nil)
		if err != nil {
			return nil, err
		} else if !hasField(x.Type(), node.Sel.Name) {
			return nil, errors.Errorf("frontend: %s has no field %s", x.Type(), node.Sel.Name)
		}
		return symex.NewMemberExpr(x, node.Sel.Name), nil

	case *ast.IndexExpr:
		x, err := e.expr(node.X, nil)
		if err != nil {
			return nil, err
		}
		switch x.Type().(type) {
		case *symex.ArrayType, *symex.VectorType:
		default:
			return nil, errors.Errorf("frontend: cannot index %s", x.Type())
		}
		index, err := e.expr(node.Index, sizeType)
		if err != nil {
			return nil, err
		}
		return symex.NewIndexExpr(x, index), nil

	case *ast.StarExpr:
		x, err := e.expr(node.X, nil)
		if err != nil {
			return nil, err
		} else if _, ok := x.Type().(*symex.PointerType); !ok {
			return nil, errors.Errorf("frontend: cannot dereference %s", x.Type())
		}
		return symex.NewDerefExpr(x), nil

	case *ast.UnaryExpr:
		return e.unaryExpr(node, hint)

	case *ast.BinaryExpr:
		return e.binaryExpr(node, hint)

	case *ast.CallExpr:
		return e.call(node, hint)

	default:
		return nil, errors.Errorf("frontend: unsupported expression syntax: %T", node)
	}
}

func (e *elaborator) ident(node *ast.Ident) (symex.Expr, error) {
	switch node.Name {
	case "true":
		return symex.NewBoolConstantExpr(true), nil
	case "false":
		return symex.NewBoolConstantExpr(false), nil
	}

	if e.scope != nil {
		if sym, ok := e.scope.Lookup(node.Name); ok {
			return sym.Expr(), nil
		}
	}
	return nil, errors.Errorf("frontend: undefined: %s", node.Name)
}

func (e *elaborator) basicLit(node *ast.BasicLit, hint symex.Type) (symex.Expr, error) {
	switch node.Kind {
	case token.INT:
		v, err := intLit(node)
		if err != nil {
			return nil, err
		}
		return symex.NewConstantExpr(v, literalType(hint)), nil

	case token.CHAR:
		v, _, _, err := strconv.UnquoteChar(node.Value[1:len(node.Value)-1], '\'')
		if err != nil {
			return nil, errors.Wrapf(err, "frontend: invalid character literal %s", node.Value)
		}
		return symex.NewConstantExpr(uint64(v), literalType(hint)), nil

	case token.STRING:
		s, err := strconv.Unquote(node.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "frontend: invalid string literal %s", node.Value)
		}
		return symex.NewStringConstantExpr(s), nil

	default:
		return nil, errors.Errorf("frontend: unsupported literal: %s", node.Value)
	}
}

func (e *elaborator) unaryExpr(node *ast.UnaryExpr, hint symex.Type) (symex.Expr, error) {
	switch node.Op {
	case token.AND:
		x, err := e.expr(node.X, nil)
		if err != nil {
			return nil, err
		}
		return symex.NewAddressOfExpr(x), nil

	case token.NOT:
		x, err := e.expr(node.X, nil)
		if err != nil {
			return nil, err
		}
		return symex.NewNotExpr(x), nil

	case token.SUB:
		if lit, ok := astutil.Unparen(node.X).(*ast.BasicLit); ok && lit.Kind == token.INT {
			v, err := intLit(lit)
			if err != nil {
				return nil, err
			}
			return symex.NewIntConstantExpr(-int64(v), literalType(hint)), nil
		}
		x, err := e.expr(node.X, hint)
		if err != nil {
			return nil, err
		}
		return symex.NewBinaryExpr(symex.SUB, symex.NewConstantExpr(0, x.Type()), x), nil

	default:
		return nil, errors.Errorf("frontend: unsupported unary operator: %s", node.Op)
	}
}

func (e *elaborator) binaryExpr(node *ast.BinaryExpr, hint symex.Type) (symex.Expr, error) {
	op, ok := binaryOps[node.Op]
	if !ok {
		return nil, errors.Errorf("frontend: unsupported binary operator: %s", node.Op)
	} else if !op.IsArithmetic() {
		hint = nil
	}

	// Elaborate the typed operand first so a literal can adopt its type.
	var x, y symex.Expr
	var err error
	if isUntyped(node.X) && !isUntyped(node.Y) {
		if y, err = e.expr(node.Y, hint); err != nil {
			return nil, err
		} else if x, err = e.expr(node.X, y.Type()); err != nil {
			return nil, err
		}
	} else {
		if x, err = e.expr(node.X, hint); err != nil {
			return nil, err
		} else if y, err = e.expr(node.Y, operandHint(x.Type())); err != nil {
			return nil, err
		}
	}
	return symex.NewBinaryExpr(op, x, y), nil
}

func (e *elaborator) call(node *ast.CallExpr, hint symex.Type) (symex.Expr, error) {
	fn, ok := node.Fun.(*ast.Ident)
	if !ok {
		return nil, errors.New("frontend: unsupported call")
	}

	switch fn.Name {
	case "nondet":
		if len(node.Args) != 1 {
			return nil, errors.New("frontend: nondet expects a type")
		}
		typ, err := e.typ(node.Args[0])
		if err != nil {
			return nil, err
		}
		return symex.NewNondetExpr(typ), nil

	case "cond":
		if len(node.Args) != 3 {
			return nil, errors.New("frontend: cond expects a condition and two values")
		}
		cond, err := e.expr(node.Args[0], nil)
		if err != nil {
			return nil, err
		}
		then, err := e.expr(node.Args[1], hint)
		if err != nil {
			return nil, err
		}
		els, err := e.expr(node.Args[2], then.Type())
		if err != nil {
			return nil, err
		}
		return symex.NewIfExpr(cond, then, els), nil

	case "cast":
		if len(node.Args) != 2 {
			return nil, errors.New("frontend: cast expects a value and a type")
		}
		typ, err := e.typ(node.Args[1])
		if err != nil {
			return nil, err
		}
		x, err := e.expr(node.Args[0], typ)
		if err != nil {
			return nil, err
		}
		return symex.NewCastExpr(x, typ), nil

	default:
		return nil, errors.Errorf("frontend: unsupported call: %s", fn.Name)
	}
}

// isUntyped returns true if node is an integer literal, possibly negated.
func isUntyped(node ast.Expr) bool {
	switch node := astutil.Unparen(node).(type) {
	case *ast.BasicLit:
		return node.Kind == token.INT || node.Kind == token.CHAR
	case *ast.UnaryExpr:
		return node.Op == token.SUB && isUntyped(node.X)
	default:
		return false
	}
}

// operandHint returns the literal type for the right operand of an
// operation whose left operand has type typ. Pointer offsets are sizes.
func operandHint(typ symex.Type) symex.Type {
	if _, ok := typ.(*symex.PointerType); ok {
		return sizeType
	}
	return typ
}

// literalType returns the type of an integer literal given a hint.
func literalType(hint symex.Type) symex.Type {
	switch hint.(type) {
	case *symex.IntType, *symex.BitFieldType, *symex.PointerType:
		return hint
	default:
		return defaultIntType
	}
}

func intLit(node ast.Expr) (uint64, error) {
	lit, ok := astutil.Unparen(node).(*ast.BasicLit)
	if !ok || lit.Kind != token.INT {
		return 0, errors.New("frontend: integer literal expected")
	}
	v, err := strconv.ParseUint(lit.Value, 0, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "frontend: invalid integer literal %s", lit.Value)
	}
	return v, nil
}

func hasField(typ symex.Type, name string) bool {
	var fields []symex.Field
	switch typ := typ.(type) {
	case *symex.StructType:
		fields = typ.Fields
	case *symex.UnionType:
		fields = typ.Fields
	}
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}
