package frontend_test

import (
	"testing"

	"github.com/benbjohnson/symex"
	"github.com/benbjohnson/symex/frontend"
	"github.com/stretchr/testify/require"
)

var (
	i32 = &symex.IntType{Width: 32, Signed: true}
	u64 = &symex.IntType{Width: 64}
)

// NewEnv returns an environment with a pair type, a global g and a
// function f with a handful of locals.
func NewEnv(tb testing.TB) *frontend.Env {
	tb.Helper()
	env := frontend.NewEnv()
	require.NoError(tb, env.DeclareType("pair", "struct { b int32; c int32 }"))
	require.NoError(tb, env.DeclareGlobal(frontend.VarDecl{Name: "g", Type: "int32"}))
	require.NoError(tb, env.DeclareFunction(frontend.FunctionDecl{
		Name: "f",
		Locals: []frontend.VarDecl{
			{Name: "a", Type: "pair"},
			{Name: "arr", Type: "[3]int32"},
			{Name: "i", Type: "int32"},
			{Name: "p", Type: "*int32"},
			{Name: "n", Type: "uint64"},
			{Name: "vla", Type: "[n]int32"},
		},
	}))
	return env
}

func TestParseType(t *testing.T) {
	for _, tt := range []struct {
		src string
		typ symex.Type
	}{
		{"int32", i32},
		{"bool", &symex.BoolType{}},
		{"*int32", symex.NewPointerType(i32)},
		{"[3]int32", &symex.ArrayType{Elem: i32, Len: symex.NewConstantExpr(3, u64)}},
		{"[]int32", &symex.ArrayType{Elem: i32}},
		{"struct { b int32; c uint64 }", &symex.StructType{Fields: []symex.Field{{Name: "b", Type: i32}, {Name: "c", Type: u64}}}},
		{"union(struct { n uint64; m int32 })", &symex.UnionType{Fields: []symex.Field{{Name: "n", Type: u64}, {Name: "m", Type: i32}}}},
		{"bits(3)", &symex.BitFieldType{Width: 3}},
		{"sbits(5)", &symex.BitFieldType{Width: 5, Signed: true}},
		{"vector(4, int32)", &symex.VectorType{Elem: i32, Len: symex.NewConstantExpr(4, u64)}},
		{"func(int32) uint64", &symex.CodeType{Params: []symex.Type{i32}, Result: u64}},
	} {
		t.Run(tt.src, func(t *testing.T) {
			typ, err := frontend.ParseType(tt.src, nil)
			require.NoError(t, err)
			require.True(t, symex.IdenticalTypes(tt.typ, typ), "got %s, want %s", typ, tt.typ)
		})
	}

	t.Run("Named", func(t *testing.T) {
		typ, err := frontend.ParseType("[2]pair", NewEnv(t).Scope(""))
		require.NoError(t, err)
		require.Equal(t, "[(const 2 u64)]struct pair", typ.String())
	})

	t.Run("VariableLength", func(t *testing.T) {
		sym, ok := NewEnv(t).Scope("f").Lookup("vla")
		require.True(t, ok)
		require.Equal(t, &symex.ArrayType{Elem: i32, Len: symex.NewSymbolExpr("f::n", u64)}, sym.Type)
	})

	t.Run("ErrUnknown", func(t *testing.T) {
		_, err := frontend.ParseType("pair", nil)
		require.EqualError(t, err, "frontend: unknown type: pair")
	})

	t.Run("ErrUnsupported", func(t *testing.T) {
		_, err := frontend.ParseType("map[int32]int32", nil)
		require.Error(t, err)
	})
}

func TestParseExpr(t *testing.T) {
	scope := NewEnv(t).Scope("f")

	for _, tt := range []struct {
		src string
		s   string
	}{
		{"a.b", "(member f::a b)"},
		{"(a).c", "(member f::a c)"},
		{"arr[i]", "(index f::arr f::i)"},
		{"arr[2]", "(index f::arr (const 2 u64))"},
		{"*p", "(deref f::p)"},
		{"&a.c", "(addr (member f::a c))"},
		{"g + 1", "(add g (const 1 i32))"},
		{"1 + g", "(add (const 1 i32) g)"},
		{"p + 1", "(add f::p (const 1 u64))"},
		{"n * 2", "(mul f::n (const 2 u64))"},
		{"i < -1", "(lt f::i (const -1 i32))"},
		{"!(i == 0)", "(not (eq f::i (const 0 i32)))"},
		{"i >= 0 && true", "(and (ge f::i (const 0 i32)) (const 1 bool))"},
		{"cond(i < 0, g, 0)", "(if (lt f::i (const 0 i32)) g (const 0 i32))"},
		{"nondet(int32)", "(side-effect nondet)"},
		{"cast(i, uint8)", "(cast f::i u8)"},
		{`"hi"`, `(string "hi")`},
		{"'a'", "(const 97 i32)"},
		{"f", "f"},
	} {
		t.Run(tt.src, func(t *testing.T) {
			expr, err := frontend.ParseExpr(tt.src, scope)
			require.NoError(t, err)
			require.Equal(t, tt.s, expr.String())
		})
	}

	t.Run("Global", func(t *testing.T) {
		expr, err := frontend.ParseExpr("g", NewEnv(t).Scope(""))
		require.NoError(t, err)
		require.Equal(t, symex.NewSymbolExpr("g", i32), expr)
	})

	for _, tt := range []struct {
		src string
		err string
	}{
		{"missing", "frontend: undefined: missing"},
		{"a.z", "frontend: struct pair has no field z"},
		{"i[0]", "frontend: cannot index i32"},
		{"*i", "frontend: cannot dereference i32"},
		{"i % 2", "frontend: unsupported binary operator: %"},
		{"h(1)", "frontend: unsupported call: h"},
	} {
		t.Run("Err/"+tt.src, func(t *testing.T) {
			_, err := frontend.ParseExpr(tt.src, scope)
			require.EqualError(t, err, tt.err)
		})
	}
}
