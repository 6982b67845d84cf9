package symex_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/benbjohnson/symex"
	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

var (
	boolType = &symex.BoolType{}
	i8       = &symex.IntType{Width: 8, Signed: true}
	i32      = &symex.IntType{Width: 32, Signed: true}
	u32      = &symex.IntType{Width: 32}
	u64      = &symex.IntType{Width: 64}
)

// pairType is struct{b i32; c i32}.
var pairType = &symex.StructType{
	Tag: "pair",
	Fields: []symex.Field{
		{Name: "b", Type: i32},
		{Name: "c", Type: i32},
	},
}

// arrayOf returns a constant-length array type.
func arrayOf(elem symex.Type, n uint64) *symex.ArrayType {
	return &symex.ArrayType{Elem: elem, Len: symex.NewConstantExpr(n, u64)}
}

// local returns an automatic variable owned by fn.
func local(fn, name string, typ symex.Type) *symex.Symbol {
	return &symex.Symbol{
		Name:     fn + "::" + name,
		BaseName: name,
		Type:     typ,
		Location: symex.Location{File: "main.c", Function: fn, Line: 1},
	}
}

// global returns a variable with static lifetime.
func global(name string, typ symex.Type) *symex.Symbol {
	return &symex.Symbol{
		Name:           name,
		BaseName:       name,
		Type:           typ,
		StaticLifetime: true,
		Location:       symex.Location{File: "main.c", Line: 1},
	}
}

// NewSession returns a session with the default config over the given symbols.
func NewSession(tb testing.TB, symbols ...*symex.Symbol) *symex.Session {
	tb.Helper()
	ns := symex.NewNamespace()
	for _, sym := range symbols {
		if err := ns.Add(sym); err != nil {
			tb.Fatal(err)
		}
	}
	return symex.NewSession(ns, symex.DefaultConfig())
}

// MustRead reads expr in the current state. Fails on error.
func MustRead(tb testing.TB, s *symex.ExecutionState, expr symex.Expr, propagate bool, depth int) symex.Expr {
	tb.Helper()
	result, err := s.Read(expr, propagate, depth)
	if err != nil {
		tb.Fatalf("read %s: %+v", expr, err)
	}
	return result
}

// MustResolve returns the identity of a root symbol with the given suffix.
func MustResolve(tb testing.TB, s *symex.ExecutionState, sym *symex.Symbol, suffix string, typ symex.Type, depth int) *symex.VarInfo {
	tb.Helper()
	info, err := s.Session().VarMap.Resolve(sym.Name, suffix, typ, depth)
	if err != nil {
		tb.Fatal(err)
	}
	return info
}

// assertExpr fails with a structural diff if got differs from want.
func assertExpr(tb testing.TB, got, want symex.Expr) {
	tb.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		tb.Fatalf("%s\ngot: %s", diff, spew.Sdump(got))
	}
}

func ssa(name string, typ symex.Type) *symex.SymbolExpr {
	return symex.NewSSASymbolExpr(name, typ)
}

func TestDefaultConfig(t *testing.T) {
	config := symex.DefaultConfig()
	if err := config.Validate(); err != nil {
		t.Fatal(err)
	} else if config.PointerWidth != 64 {
		t.Fatalf("unexpected pointer width: %d", config.PointerWidth)
	} else if !config.LittleEndian {
		t.Fatal("expected little endian")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "symex.yaml")
		if err := os.WriteFile(path, []byte("pointer-width: 32\nmax-case-split: 8\ninternal-symbols: [__harness]\n"), 0666); err != nil {
			t.Fatal(err)
		}

		config, err := symex.LoadConfig(path)
		if err != nil {
			t.Fatal(err)
		}

		want := symex.DefaultConfig()
		want.PointerWidth = 32
		want.MaxCaseSplit = 8
		want.InternalSymbols = []string{"__harness"}
		if diff := cmp.Diff(want, config); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("ErrInvalidPointerWidth", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "symex.yaml")
		if err := os.WriteFile(path, []byte("pointer-width: 12\n"), 0666); err != nil {
			t.Fatal(err)
		}
		if _, err := symex.LoadConfig(path); err == nil || err.Error() != "symex: invalid pointer width: 12" {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("ErrZeroThreshold", func(t *testing.T) {
		config := symex.DefaultConfig()
		config.UnboundedArrayThreshold = 0
		if err := config.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("ErrNotFound", func(t *testing.T) {
		if _, err := symex.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); !os.IsNotExist(errors.Cause(err)) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestInvariantError(t *testing.T) {
	err := &symex.InvariantError{Op: "instantiate", Expr: symex.NewSymbolExpr("x", i32), Msg: "unexpected symbol"}
	if s := err.Error(); s != "symex.instantiate: unexpected symbol: x" {
		t.Fatalf("unexpected error string: %s", s)
	}
	if !symex.IsInvariantError(errors.WithStack(err)) {
		t.Fatal("expected invariant error")
	} else if symex.IsInvariantError(errors.New("other")) {
		t.Fatal("unexpected invariant error")
	}
}
