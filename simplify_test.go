package symex_test

import (
	"testing"

	"github.com/benbjohnson/symex"
)

func TestDefaultSimplifier_Simplify(t *testing.T) {
	var simplifier symex.DefaultSimplifier
	x, y := symex.NewSymbolExpr("x", i32), symex.NewSymbolExpr("y", i32)
	c := func(v int64) *symex.ConstantExpr { return symex.NewIntConstantExpr(v, i32) }

	for _, tt := range []struct {
		name string
		expr symex.Expr
		want symex.Expr
	}{
		{"ConstantAdd", symex.NewBinaryExpr(symex.ADD, c(6), c(4)), c(10)},
		{"ConstantOverflow", symex.NewBinaryExpr(symex.ADD, symex.NewConstantExpr(255, &symex.IntType{Width: 8}), symex.NewConstantExpr(1, &symex.IntType{Width: 8})), symex.NewConstantExpr(0, &symex.IntType{Width: 8})},
		{"SignedCompare", symex.NewBinaryExpr(symex.LT, c(-1), c(0)), symex.NewBoolConstantExpr(true)},
		{"UnsignedCompare", symex.NewBinaryExpr(symex.LT, symex.NewConstantExpr(0xFFFFFFFF, u32), symex.NewConstantExpr(0, u32)), symex.NewBoolConstantExpr(false)},
		{"AddZero", symex.NewBinaryExpr(symex.ADD, x, c(0)), x},
		{"MulOne", symex.NewBinaryExpr(symex.MUL, c(1), x), x},
		{"EqualSelf", symex.NewBinaryExpr(symex.EQ, x, x), symex.NewBoolConstantExpr(true)},
		{"NotEqualSelf", symex.NewBinaryExpr(symex.NE, x, x), symex.NewBoolConstantExpr(false)},
		{"AndTrue", symex.NewBinaryExpr(symex.AND, symex.NewBoolConstantExpr(true), symex.NewBinaryExpr(symex.LT, x, y)), symex.NewBinaryExpr(symex.LT, x, y)},
		{"OrTrue", symex.NewBinaryExpr(symex.OR, symex.NewBinaryExpr(symex.LT, x, y), symex.NewBoolConstantExpr(true)), symex.NewBoolConstantExpr(true)},
		{"NotNot", symex.NewNotExpr(symex.NewNotExpr(symex.NewBinaryExpr(symex.LT, x, y))), symex.NewBinaryExpr(symex.LT, x, y)},
		{"CastConstant", symex.NewCastExpr(symex.NewIntConstantExpr(-1, i8), i32), c(-1)},
		{"CastIdentity", symex.NewCastExpr(x, i32), x},
		{"IfConstant", symex.NewIfExpr(symex.NewBinaryExpr(symex.EQ, c(1), c(2)), x, y), y},
		{"IfSameBranches", symex.NewIfExpr(symex.NewBinaryExpr(symex.LT, x, y), x, x), x},
		{
			"CasePruneFalse",
			symex.NewCaseExpr(i32,
				symex.Case{Guard: symex.NewBinaryExpr(symex.EQ, c(0), c(1)), Value: x},
				symex.Case{Guard: symex.NewBinaryExpr(symex.EQ, y, c(1)), Value: c(5)},
				symex.Case{Guard: symex.NewBinaryExpr(symex.NE, y, c(1)), Value: c(6)},
			),
			symex.NewCaseExpr(i32,
				symex.Case{Guard: symex.NewBinaryExpr(symex.EQ, y, c(1)), Value: c(5)},
				symex.Case{Guard: symex.NewBinaryExpr(symex.NE, y, c(1)), Value: c(6)},
			),
		},
		{
			"CaseFirstTrue",
			symex.NewCaseExpr(i32,
				symex.Case{Guard: symex.NewBinaryExpr(symex.EQ, c(1), c(1)), Value: x},
				symex.Case{Guard: symex.NewBinaryExpr(symex.EQ, y, c(1)), Value: c(5)},
			),
			x,
		},
		{
			"IndexComposite",
			symex.NewIndexExpr(symex.NewCompositeExpr(symex.CompositeArray, arrayOf(i32, 2), x, y), c(1)),
			y,
		},
		{
			"MemberComposite",
			&symex.MemberExpr{X: symex.NewCompositeExpr(symex.CompositeStruct, pairType, x, y), Field: "c", Typ: i32},
			y,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assertExpr(t, simplifier.Simplify(tt.expr), tt.want)
		})
	}
}
