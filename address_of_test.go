package symex_test

import (
	"testing"

	"github.com/benbjohnson/symex"
)

func TestAddressResolver_Resolve(t *testing.T) {
	r := symex.NewAddressResolver(symex.NewDefaultLayout(64))
	s := symex.NewSymbolExpr("f::s", pairType)
	arr := symex.NewSymbolExpr("f::arr", arrayOf(i32, 3))
	i := symex.NewSymbolExpr("f::i", i32)

	t.Run("Symbol", func(t *testing.T) {
		expr := symex.NewAddressOfExpr(s)
		if other := r.Resolve(expr); other != symex.Expr(expr) {
			t.Fatalf("unexpected rewrite: %s", other)
		}
	})

	t.Run("Member", func(t *testing.T) {
		assertExpr(t, r.Resolve(symex.NewAddressOfExpr(symex.NewMemberExpr(s, "c"))),
			symex.NewCastExpr(
				symex.NewBinaryExpr(symex.ADD,
					symex.NewCastExpr(symex.NewAddressOfExpr(s), symex.NewPointerType(i8)),
					symex.NewConstantExpr(4, u64),
				),
				symex.NewPointerType(i32),
			),
		)
	})

	t.Run("Index", func(t *testing.T) {
		assertExpr(t, r.Resolve(symex.NewAddressOfExpr(symex.NewIndexExpr(arr, i))),
			symex.NewBinaryExpr(symex.ADD,
				symex.NewCastExpr(symex.NewAddressOfExpr(arr), symex.NewPointerType(i32)),
				i,
			),
		)
	})

	t.Run("Deref", func(t *testing.T) {
		p := symex.NewSymbolExpr("f::p", symex.NewPointerType(pairType))
		if other := r.Resolve(symex.NewAddressOfExpr(symex.NewDerefExpr(p))); other != symex.Expr(p) {
			t.Fatalf("unexpected rewrite: %s", other)
		}
	})

	t.Run("If", func(t *testing.T) {
		a, b := symex.NewSymbolExpr("a", arrayOf(i32, 2)), symex.NewSymbolExpr("b", arrayOf(i32, 2))
		cond := symex.NewBinaryExpr(symex.LT, i, symex.NewConstantExpr(0, i32))
		other := r.Resolve(symex.NewAddressOfExpr(symex.NewIfExpr(cond, a, b)))
		if s := other.String(); s != "(if (lt f::i (const 0 i32)) (cast (addr a) *i32) (cast (addr b) *i32))" {
			t.Fatalf("unexpected string: %s", s)
		}
	})

	t.Run("BitField", func(t *testing.T) {
		typ := &symex.StructType{Fields: []symex.Field{{Name: "flag", Type: &symex.BitFieldType{Width: 1}}}}
		expr := symex.NewAddressOfExpr(symex.NewMemberExpr(symex.NewSymbolExpr("bits", typ), "flag"))
		if other := r.Resolve(expr); other != symex.Expr(expr) {
			t.Fatalf("unexpected rewrite: %s", other)
		}
	})
}
