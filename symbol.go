package symex

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// Location represents the declaration site of a symbol.
type Location struct {
	File     string
	Function string // owning function, empty for globals
	Line     int
	BuiltIn  bool
}

// String returns the string representation of the location.
func (loc Location) String() string {
	if loc.File == "" {
		return "-"
	}
	return fmt.Sprintf("%s:%d", loc.File, loc.Line)
}

// Symbol represents a program variable declaration.
type Symbol struct {
	Name           string // fully qualified identifier, e.g. "f::x"
	BaseName       string // source-level name, e.g. "x"
	Type           Type
	StaticLifetime bool
	ThreadLocal    bool
	Location       Location
}

// Expr returns a non-SSA reference to the symbol.
func (sym *Symbol) Expr() *SymbolExpr {
	return NewSymbolExpr(sym.Name, sym.Type)
}

// Namespace is the symbol table consulted when classifying variables.
// Symbols minted by the reader are registered in a separate auxiliary table.
type Namespace struct {
	symbols map[string]*Symbol
	aux     map[string]*Symbol
}

// NewNamespace returns a new, empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{
		symbols: make(map[string]*Symbol),
		aux:     make(map[string]*Symbol),
	}
}

// Add registers sym. Returns an error if the name is already declared.
func (ns *Namespace) Add(sym *Symbol) error {
	if _, ok := ns.symbols[sym.Name]; ok {
		return errors.Errorf("symex: symbol already declared: %s", sym.Name)
	}
	ns.symbols[sym.Name] = sym
	return nil
}

// AddAux registers a synthetic symbol in the auxiliary table.
func (ns *Namespace) AddAux(sym *Symbol) {
	ns.aux[sym.Name] = sym
}

// Lookup returns the symbol with the given name from either table.
func (ns *Namespace) Lookup(name string) (*Symbol, bool) {
	if sym, ok := ns.symbols[name]; ok {
		return sym, true
	}
	sym, ok := ns.aux[name]
	return sym, ok
}

// Symbols returns all declared symbols, sorted by name.
func (ns *Namespace) Symbols() []*Symbol {
	return sortedSymbols(ns.symbols)
}

// AuxSymbols returns all minted symbols, sorted by name.
func (ns *Namespace) AuxSymbols() []*Symbol {
	return sortedSymbols(ns.aux)
}

func sortedSymbols(m map[string]*Symbol) []*Symbol {
	a := make([]*Symbol, 0, len(m))
	for _, sym := range m {
		a = append(a, sym)
	}
	sort.Slice(a, func(i, j int) bool { return a[i].Name < a[j].Name })
	return a
}
