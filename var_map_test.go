package symex_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/benbjohnson/symex"
	"github.com/pkg/errors"
)

func TestVarMap_Resolve(t *testing.T) {
	ns := symex.NewNamespace()
	for _, sym := range []*symex.Symbol{
		local("f", "x", i32),
		global("g", i32),
		{Name: "tls", Type: i32, StaticLifetime: true, ThreadLocal: true},
	} {
		if err := ns.Add(sym); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("Kinds", func(t *testing.T) {
		m := symex.NewVarMap(ns)
		for _, tt := range []struct {
			symbol string
			kind   symex.VarKind
			id     string
		}{
			{"f::x", symex.ProcedureLocal, "f::x@2"},
			{"g", symex.Shared, "g"},
			{"tls", symex.ThreadLocal, "tls"},
			{"symex_dynamic::1", symex.Shared, "symex_dynamic::1"},
			{"symex::dynamic_object_size0", symex.Shared, "symex::dynamic_object_size0"},
			{"f::va_arg0", symex.ProcedureLocal, "f::va_arg0@2"},
		} {
			info, err := m.Resolve(tt.symbol, "", i32, 2)
			if err != nil {
				t.Fatal(err)
			} else if info.Kind != tt.kind {
				t.Errorf("%s: unexpected kind: %s", tt.symbol, info.Kind)
			} else if info.FullIdentifier != tt.id {
				t.Errorf("%s: unexpected identifier: %s", tt.symbol, info.FullIdentifier)
			}
		}
	})

	t.Run("Ordinals", func(t *testing.T) {
		m := symex.NewVarMap(ns)
		resolve := func(symbol, suffix string) *symex.VarInfo {
			info, err := m.Resolve(symbol, suffix, i32, 0)
			if err != nil {
				t.Fatal(err)
			}
			return info
		}

		if info := resolve("g", ""); info.Ordinal != 0 {
			t.Fatalf("unexpected shared ordinal: %d", info.Ordinal)
		} else if info := resolve("f::x", ""); info.Ordinal != 0 {
			t.Fatalf("unexpected local ordinal: %d", info.Ordinal)
		} else if info := resolve("tls", ""); info.Ordinal != 1 {
			t.Fatalf("unexpected thread-local ordinal: %d", info.Ordinal)
		} else if info := resolve("g", ".a"); info.Ordinal != 1 {
			t.Fatalf("unexpected shared ordinal: %d", info.Ordinal)
		} else if info := resolve("g", ""); info.Ordinal != 0 {
			t.Fatalf("expected existing identity: %d", info.Ordinal)
		} else if m.Len() != 4 {
			t.Fatalf("unexpected len: %d", m.Len())
		}
	})

	t.Run("RecursionIsolation", func(t *testing.T) {
		m := symex.NewVarMap(ns)
		a, _ := m.Resolve("f::x", "", i32, 0)
		b, _ := m.Resolve("f::x", "", i32, 1)
		if a == b {
			t.Fatal("expected distinct local identities")
		}

		c, _ := m.Resolve("g", "", i32, 0)
		d, _ := m.Resolve("g", "", i32, 1)
		if c != d {
			t.Fatal("expected shared identity independent of depth")
		}

		e, _ := m.Resolve("tls", "", i32, 0)
		f, _ := m.Resolve("tls", "", i32, 1)
		if e != f {
			t.Fatal("expected thread-local identity independent of depth")
		} else if s := e.SSAIdentifier(); s != "tls#0" {
			t.Fatalf("unexpected identifier: %s", s)
		}
	})

	t.Run("SSAIdentifier", func(t *testing.T) {
		m := symex.NewVarMap(ns)
		info, _ := m.Resolve("f::x", ".b[2]", i32, 0)
		if s := info.SSAIdentifier(); s != "f::x.b[2]@0#0" {
			t.Fatalf("unexpected identifier: %s", s)
		}
		if sym := m.Advance(info); sym.Name != "f::x.b[2]@0#1" || !sym.SSA {
			t.Fatalf("unexpected symbol: %#v", sym)
		}
	})

	t.Run("ErrSymbolNotFound", func(t *testing.T) {
		m := symex.NewVarMap(ns)
		_, err := m.Resolve("missing", "", i32, 0)
		if !errors.Is(err, symex.ErrSymbolNotFound) {
			t.Fatalf("unexpected error: %v", err)
		} else if !symex.IsInvariantError(err) {
			t.Fatal("expected invariant error")
		}
	})
}

func TestVarMap_Dump(t *testing.T) {
	ns := symex.NewNamespace()
	if err := ns.Add(global("g", i32)); err != nil {
		t.Fatal(err)
	}
	m := symex.NewVarMap(ns)
	if _, err := m.Resolve("g", "", i32, 0); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := m.Dump(&buf); err != nil {
		t.Fatal(err)
	} else if !strings.Contains(buf.String(), "g:\n  symbol: g\n  suffix: \n  kind: SHARED\n  number: 0\n") {
		t.Fatalf("unexpected dump: %s", buf.String())
	}
}

func TestVarKind_String(t *testing.T) {
	if s := symex.ThreadLocal.String(); s != "THREAD_LOCAL" {
		t.Fatalf("unexpected string: %s", s)
	} else if s := symex.VarKind(9).String(); s != "VarKind<9>" {
		t.Fatalf("unexpected string: %s", s)
	}
}
