package symex

import (
	"strings"
)

// Prefixes of names minted by the reader or by dynamic allocation.
const (
	NondetPrefix            = "symex::nondet"
	DerefPrefix             = "symex::deref"
	DynamicPrefix           = "symex_dynamic"
	DynamicObjectSizePrefix = "symex::dynamic_object_size"
	DynamicObjectPrefix     = "dynamic_object"
)

// matchKind represents how a pattern is compared against a name.
type matchKind int

const (
	matchExact = matchKind(iota)
	matchPrefix
	matchSuffix
	matchContains
)

// pattern represents a single entry in a filter table.
type pattern struct {
	kind  matchKind
	value string
}

func (p pattern) match(s string) bool {
	switch p.kind {
	case matchExact:
		return s == p.value
	case matchPrefix:
		return strings.HasPrefix(s, p.value)
	case matchSuffix:
		return strings.HasSuffix(s, p.value)
	case matchContains:
		return strings.Contains(s, p.value)
	default:
		panic("unreachable")
	}
}

func matchAny(patterns []pattern, s string) bool {
	for _, p := range patterns {
		if p.match(s) {
			return true
		}
	}
	return false
}

// internalNames are compiler and verifier names never given SSA identity.
var internalNames = []pattern{
	{matchPrefix, "__CPROVER"},
	{matchExact, "__func__"},
	{matchExact, "__FUNCTION__"},
	{matchExact, "__PRETTY_FUNCTION__"},
	{matchExact, "argc'"},
	{matchExact, "argv'"},
	{matchExact, "envp'"},
	{matchExact, "envp_size'"},
	{matchSuffix, "return_value"},
	{matchPrefix, "nondet"},
	{matchPrefix, "__VERIFIER"},
	{matchExact, "__builtin_va_start"},
	{matchExact, "__builtin_va_end"},
	{matchExact, "__builtin_va_arg"},
}

// syntheticNames are engine-minted names that have no symbol table entry.
var syntheticNames = []pattern{
	{matchPrefix, NondetPrefix},
	{matchPrefix, DerefPrefix},
	{matchPrefix, DynamicPrefix},
	{matchPrefix, DynamicObjectSizePrefix},
	{matchPrefix, DynamicObjectPrefix},
}

// builtinHeaderFiles are declaration files whose "__builtin_" symbols are internal.
var builtinHeaderFiles = []pattern{
	{matchPrefix, "gcc_builtin_headers_"},
}

// InternalSymbolFilter classifies names that are excluded from SSA renaming.
// The table is built once and is safe for concurrent use.
type InternalSymbolFilter struct {
	internal  []pattern
	synthetic []pattern
}

// NewInternalSymbolFilter returns a filter over the built-in table plus
// any additional name prefixes.
func NewInternalSymbolFilter(extra ...string) *InternalSymbolFilter {
	f := &InternalSymbolFilter{
		internal:  make([]pattern, 0, len(internalNames)+len(extra)),
		synthetic: syntheticNames,
	}
	f.internal = append(f.internal, internalNames...)
	for _, prefix := range extra {
		if prefix != "" {
			f.internal = append(f.internal, pattern{matchPrefix, prefix})
		}
	}
	return f
}

// IsInternal returns true if the declared symbol is a compiler or verifier
// internal. The location is used to detect builtins declared in the
// compiler's builtin headers.
func (f *InternalSymbolFilter) IsInternal(name string, loc Location) bool {
	if matchAny(f.internal, name) {
		return true
	}
	return strings.HasPrefix(name, "__builtin_") && matchAny(builtinHeaderFiles, loc.File)
}

// IsSynthetic returns true if name was minted by the engine rather than
// declared by the program.
func (f *InternalSymbolFilter) IsSynthetic(name string) bool {
	return matchAny(f.synthetic, name)
}

// isDynamic returns true for dynamic allocation names, which are always shared.
func isDynamic(name string) bool {
	return strings.HasPrefix(name, DynamicPrefix+"::") ||
		strings.HasPrefix(name, DynamicObjectSizePrefix) ||
		strings.HasPrefix(name, DynamicObjectPrefix)
}

// isVariadicSlot returns true for variadic argument slots, which are
// always procedure-local.
func isVariadicSlot(name string) bool {
	return strings.Contains(name, "::va_arg")
}
