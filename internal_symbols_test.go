package symex_test

import (
	"testing"

	"github.com/benbjohnson/symex"
)

func TestInternalSymbolFilter_IsInternal(t *testing.T) {
	f := symex.NewInternalSymbolFilter("__harness")

	for _, tt := range []struct {
		name     string
		file     string
		internal bool
	}{
		{"__CPROVER_rounding_mode", "", true},
		{"__func__", "", true},
		{"__PRETTY_FUNCTION__", "", true},
		{"argv'", "", true},
		{"envp_size'", "", true},
		{"main::return_value", "", true},
		{"nondet_int", "", true},
		{"__VERIFIER_assume", "", true},
		{"__builtin_va_start", "", true},
		{"__builtin_va_arg", "", true},
		{"__builtin_clz", "gcc_builtin_headers_types.h", true},
		{"__builtin_clz", "main.c", false},
		{"__harness_state", "", true},
		{"f::x", "main.c", false},
		{"argv", "", false},
		{"symex::nondet0", "", false},
	} {
		if v := f.IsInternal(tt.name, symex.Location{File: tt.file}); v != tt.internal {
			t.Errorf("IsInternal(%q, %q)=%v, want %v", tt.name, tt.file, v, tt.internal)
		}
	}
}

func TestInternalSymbolFilter_IsSynthetic(t *testing.T) {
	f := symex.NewInternalSymbolFilter()

	for _, tt := range []struct {
		name      string
		synthetic bool
	}{
		{"symex::nondet12", true},
		{"symex::deref3", true},
		{"symex_dynamic::4", true},
		{"symex::dynamic_object_size1", true},
		{"dynamic_object7", true},
		{"nondet_int", false},
		{"f::x", false},
	} {
		if v := f.IsSynthetic(tt.name); v != tt.synthetic {
			t.Errorf("IsSynthetic(%q)=%v, want %v", tt.name, v, tt.synthetic)
		}
	}
}
