package symex

import (
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Session holds the run-wide tables and collaborators shared by every
// execution state of a verification run. A session must not be used by
// more than one reader at a time.
type Session struct {
	Namespace  *Namespace
	VarMap     *VarMap
	Layout     TypeLayout
	Memory     MemoryModel
	Simplifier Simplifier
	Filter     *InternalSymbolFilter
	Config     Config

	// Logger receives debug output for reads, minted symbols and case splits.
	Logger *zap.Logger

	nondetCount uint64 // shared by nondet and deref symbols
	stats       Stats
}

// NewSession returns a new session over ns with the default collaborators.
func NewSession(ns *Namespace, config Config) *Session {
	layout := NewDefaultLayout(config.PointerWidth)
	memory := NewDefaultMemoryModel(layout)
	memory.LittleEndian = config.LittleEndian

	return &Session{
		Namespace:  ns,
		VarMap:     NewVarMap(ns),
		Layout:     layout,
		Memory:     memory,
		Simplifier: DefaultSimplifier{},
		Filter:     NewInternalSymbolFilter(config.InternalSymbols...),
		Config:     config,
		Logger:     zap.NewNop(),
	}
}

// Stats returns statistics for the session.
func (s *Session) Stats() Stats {
	return s.stats
}

// mintSymbol returns a fresh SSA-tagged synthetic symbol of the given type
// and registers it in the auxiliary symbol table.
func (s *Session) mintSymbol(prefix string, typ Type) *SymbolExpr {
	name := prefix + strconv.FormatUint(s.nondetCount, 10)
	s.nondetCount++
	s.stats.MintN++

	s.Namespace.AddAux(&Symbol{Name: name, BaseName: name, Type: typ})
	s.Logger.Debug("mint", zap.String("symbol", name), zap.Stringer("type", typ))
	return NewSSASymbolExpr(name, typ)
}

// isUnbounded returns true if typ is an array that is kept as a native
// symbolic array instead of being expanded or case-split.
func (s *Session) isUnbounded(typ Type) bool {
	array, ok := typ.(*ArrayType)
	if !ok {
		return false
	}
	n, ok := array.ConstLen()
	if !ok {
		return true
	}
	if n >= s.Config.UnboundedArrayThreshold {
		return true
	}
	return s.Config.MaxCaseSplit > 0 && n > s.Config.MaxCaseSplit
}

// Stats represents reader statistics for a session.
type Stats struct {
	ReadN      int
	ReadTime   time.Duration
	CaseSplitN int
	MintN      int
}
