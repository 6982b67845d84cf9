package symex

import (
	"fmt"
	"io"
	"sort"
	"strconv"
)

// VarKind represents the storage class of a variable instance.
type VarKind int

const (
	ProcedureLocal = VarKind(iota)
	ThreadLocal
	Shared
)

var varKinds = [...]string{
	ProcedureLocal: "PROCEDURE_LOCAL",
	ThreadLocal:    "THREAD_LOCAL",
	Shared:         "SHARED",
}

// String returns the string representation of the kind.
func (k VarKind) String() string {
	if k >= 0 && int(k) < len(varKinds) {
		return varKinds[k]
	}
	return fmt.Sprintf("VarKind<%d>", k)
}

// VarInfo is the run-wide identity of a variable instance.
type VarInfo struct {
	FullIdentifier string
	Symbol         string // root symbol name
	Suffix         string // access path, e.g. ".b[2]"
	Depth          int    // recursion depth, procedure-local only
	Type           Type
	Kind           VarKind
	Ordinal        uint64 // unique within shared or local kinds
	Version        uint64
}

// IsShared returns true if the variable is visible to all threads.
func (info *VarInfo) IsShared() bool { return info.Kind == Shared }

// SSAIdentifier returns the name of the variable at its current version.
func (info *VarInfo) SSAIdentifier() string {
	return info.FullIdentifier + "#" + strconv.FormatUint(info.Version, 10)
}

// SSASymbol returns a new SSA symbol for the current version.
func (info *VarInfo) SSASymbol() *SymbolExpr {
	return NewSSASymbolExpr(info.SSAIdentifier(), info.Type)
}

// VarMap assigns identities to variable instances. Entries are created on
// first sight and live for the whole run.
type VarMap struct {
	ns    *Namespace
	infos map[string]*VarInfo

	sharedCount uint64
	localCount  uint64
}

// NewVarMap returns a new instance of VarMap backed by ns.
func NewVarMap(ns *Namespace) *VarMap {
	return &VarMap{
		ns:    ns,
		infos: make(map[string]*VarInfo),
	}
}

// Len returns the number of identities created so far.
func (m *VarMap) Len() int { return len(m.infos) }

// Lookup returns an existing identity by its full identifier.
func (m *VarMap) Lookup(fullIdentifier string) (*VarInfo, bool) {
	info, ok := m.infos[fullIdentifier]
	return info, ok
}

// Resolve returns the identity of symbol+suffix, creating it if needed.
// The depth only distinguishes procedure-local variables.
func (m *VarMap) Resolve(symbol, suffix string, typ Type, depth int) (*VarInfo, error) {
	assert(symbol != "", "empty symbol name")

	kind, err := m.classify(symbol)
	if err != nil {
		return nil, err
	}

	fullIdentifier := symbol + suffix
	if kind == ProcedureLocal {
		fullIdentifier += "@" + strconv.Itoa(depth)
	} else {
		depth = 0
	}

	if info, ok := m.infos[fullIdentifier]; ok {
		return info, nil
	}

	info := &VarInfo{
		FullIdentifier: fullIdentifier,
		Symbol:         symbol,
		Suffix:         suffix,
		Depth:          depth,
		Type:           typ,
		Kind:           kind,
	}
	if info.IsShared() {
		info.Ordinal, m.sharedCount = m.sharedCount, m.sharedCount+1
	} else {
		info.Ordinal, m.localCount = m.localCount, m.localCount+1
	}
	m.infos[fullIdentifier] = info
	return info, nil
}

// classify determines the storage kind of a root symbol.
func (m *VarMap) classify(symbol string) (VarKind, error) {
	if isDynamic(symbol) {
		return Shared, nil
	} else if isVariadicSlot(symbol) {
		return ProcedureLocal, nil
	}

	sym, ok := m.ns.Lookup(symbol)
	if !ok {
		return 0, invariantWrap("VarMap.Resolve", nil, ErrSymbolNotFound, symbol)
	}

	switch {
	case sym.StaticLifetime && sym.ThreadLocal:
		return ThreadLocal, nil
	case sym.StaticLifetime:
		return Shared, nil
	default:
		return ProcedureLocal, nil
	}
}

// Advance increments the version of info and returns the new SSA symbol.
func (m *VarMap) Advance(info *VarInfo) *SymbolExpr {
	info.Version++
	return info.SSASymbol()
}

// Infos returns all identities sorted by full identifier.
func (m *VarMap) Infos() []*VarInfo {
	a := make([]*VarInfo, 0, len(m.infos))
	for _, info := range m.infos {
		a = append(a, info)
	}
	sort.Slice(a, func(i, j int) bool { return a[i].FullIdentifier < a[j].FullIdentifier })
	return a
}

// Dump writes every identity to w.
func (m *VarMap) Dump(w io.Writer) error {
	for _, info := range m.Infos() {
		if _, err := fmt.Fprintf(w, "%s:\n", info.FullIdentifier); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "  symbol: %s\n  suffix: %s\n  kind: %s\n  number: %d\n  version: %d\n  type: %s\n\n",
			info.Symbol, info.Suffix, info.Kind, info.Ordinal, info.Version, info.Type); err != nil {
			return err
		}
	}
	return nil
}
