package symex

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/benbjohnson/immutable"
)

// ExecutionState represents a simulated program state along one path.
type ExecutionState struct {
	session *Session

	// Execution hierarchy.
	parent   *ExecutionState
	children []*ExecutionState

	threads []*Thread
	current int

	// Variable states of shared variables, keyed by full identifier.
	shared *immutable.SortedMap
}

// NewExecutionState returns a state with a single thread. If fn is not
// empty then an activation of fn is pushed onto the thread's stack.
func NewExecutionState(session *Session, fn string) *ExecutionState {
	s := &ExecutionState{
		session: session,
		shared:  immutable.NewSortedMap(&stringComparer{}),
	}
	s.threads = append(s.threads, newThread())
	if fn != "" {
		s.Push(fn)
	}
	return s
}

// Session returns the session the state belongs to.
func (s *ExecutionState) Session() *Session { return s.session }

// Parent returns the state this state was forked from.
func (s *ExecutionState) Parent() *ExecutionState { return s.parent }

// Children returns the states forked from this state.
func (s *ExecutionState) Children() []*ExecutionState { return s.children }

// Clone returns a copy of the state. Threads and variable tables are
// persistent so the copy never observes updates made to s, and vice versa.
func (s *ExecutionState) Clone() *ExecutionState {
	threads := make([]*Thread, len(s.threads))
	for i := range s.threads {
		threads[i] = s.threads[i].Clone()
	}

	return &ExecutionState{
		session: s.session,
		parent:  s.parent,
		threads: threads,
		current: s.current,
		shared:  s.shared,
	}
}

// Fork returns a child copy of the state.
func (s *ExecutionState) Fork() *ExecutionState {
	child := s.Clone()
	child.parent = s
	s.children = append(s.children, child)
	return child
}

// Threads returns the number of threads in the state.
func (s *ExecutionState) Threads() int { return len(s.threads) }

// Thread returns the thread at index i.
func (s *ExecutionState) Thread(i int) *Thread {
	if i < 0 || i >= len(s.threads) {
		return nil
	}
	return s.threads[i]
}

// CurrentThread returns the index of the executing thread.
func (s *ExecutionState) CurrentThread() int { return s.current }

// SetCurrentThread switches execution to thread i.
func (s *ExecutionState) SetCurrentThread(i int) error {
	if i < 0 || i >= len(s.threads) {
		return ErrNoThread
	}
	s.current = i
	return nil
}

// SpawnThread adds a new thread starting in fn and returns its index.
// The current thread is unchanged.
func (s *ExecutionState) SpawnThread(fn string) int {
	t := newThread()
	t.push(fn)
	s.threads = append(s.threads, t)
	return len(s.threads) - 1
}

// thread returns the executing thread.
func (s *ExecutionState) thread() *Thread {
	return s.threads[s.current]
}

// Frame returns the top stack frame of the current thread.
func (s *ExecutionState) Frame() *StackFrame {
	return s.thread().Frame()
}

// Push adds an activation of fn to the current thread.
func (s *ExecutionState) Push(fn string) {
	s.thread().push(fn)
}

// Pop removes the top activation from the current thread.
func (s *ExecutionState) Pop() {
	s.thread().pop()
}

// RecursionDepth returns the depth of the innermost activation of fn in
// the current thread.
func (s *ExecutionState) RecursionDepth(fn string) (int, bool) {
	return s.thread().RecursionDepth(fn)
}

// VarState returns the binding of info in the current thread.
func (s *ExecutionState) VarState(info *VarInfo) (VarState, bool) {
	m := s.varTable(info)
	if v, ok := m.Get(info.FullIdentifier); ok {
		return v.(VarState), true
	}
	return VarState{Info: info}, false
}

func (s *ExecutionState) setVarState(vs VarState) {
	if vs.Info.IsShared() {
		s.shared = s.shared.Set(vs.Info.FullIdentifier, vs)
		return
	}
	t := s.thread()
	t.vars = t.vars.Set(vs.Info.FullIdentifier, vs)
}

func (s *ExecutionState) varTable(info *VarInfo) *immutable.SortedMap {
	if info.IsShared() {
		return s.shared
	}
	return s.thread().vars
}

// Assign records a write of value to the variable. The version is advanced
// and a new SSA symbol minted. Constants and addresses are kept for
// propagation; any other value clears the propagated value.
func (s *ExecutionState) Assign(info *VarInfo, value Expr) *SymbolExpr {
	vs, _ := s.VarState(info)
	vs.SSA = s.session.VarMap.Advance(info)

	vs.Value = nil
	if isPropagatable(value) {
		vs.Value = value
	}

	s.setVarState(vs)
	return vs.SSA
}

// isPropagatable returns true for constants and for addresses computed from
// an address-of by casts and constant offsets.
func isPropagatable(expr Expr) bool {
	switch expr := expr.(type) {
	case *ConstantExpr, *AddressOfExpr:
		return true
	case *CastExpr:
		return isPropagatable(expr.X)
	case *BinaryExpr:
		return expr.Op == ADD && isPropagatable(expr.LHS) && IsConstantExpr(expr.RHS)
	default:
		return false
	}
}

// Dump returns the contents of the state and its threads as a string.
func (s *ExecutionState) Dump() string {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, "EXECUTION STATE")
	fmt.Fprintln(&buf, "===============")
	fmt.Fprintf(&buf, "current=%d\n", s.current)
	fmt.Fprintln(&buf, "")

	for i, t := range s.threads {
		fmt.Fprintf(&buf, "== THREAD #%d\n", i)
		for j := len(t.stack) - 1; j >= 0; j-- {
			fmt.Fprintf(&buf, "frame #%d: %s\n", j, t.stack[j])
		}
		fmt.Fprint(&buf, dumpVars(t.vars))
		fmt.Fprintln(&buf, "")
	}

	fmt.Fprintln(&buf, "== SHARED")
	fmt.Fprint(&buf, dumpVars(s.shared))
	return buf.String()
}

func dumpVars(m *immutable.SortedMap) string {
	var buf bytes.Buffer
	itr := m.Iterator()
	for !itr.Done() {
		_, v := itr.Next()
		fmt.Fprintln(&buf, v.(VarState).String())
	}
	return buf.String()
}

// VarState represents the binding of a variable instance within a state.
type VarState struct {
	Info  *VarInfo
	Value Expr        // propagated value, if known
	SSA   *SymbolExpr // current SSA symbol, nil until first read
}

// String returns the string representation of the binding.
func (vs VarState) String() string {
	var parts []string
	parts = append(parts, vs.Info.FullIdentifier)
	if vs.SSA != nil {
		parts = append(parts, "ssa="+vs.SSA.Name)
	}
	if vs.Value != nil {
		parts = append(parts, "value="+vs.Value.String())
	}
	return strings.Join(parts, " ")
}

// Thread represents a simulated program thread.
type Thread struct {
	stack     []StackFrame
	recursion *immutable.SortedMap // function name to depth of innermost activation
	vars      *immutable.SortedMap // full identifier to VarState
}

func newThread() *Thread {
	return &Thread{
		recursion: immutable.NewSortedMap(&stringComparer{}),
		vars:      immutable.NewSortedMap(&stringComparer{}),
	}
}

// Clone returns a copy of the thread.
func (t *Thread) Clone() *Thread {
	other := *t
	other.stack = make([]StackFrame, len(t.stack))
	copy(other.stack, t.stack)
	return &other
}

// Frame returns the top stack frame, or nil if the stack is empty.
func (t *Thread) Frame() *StackFrame {
	if len(t.stack) == 0 {
		return nil
	}
	return &t.stack[len(t.stack)-1]
}

// Stack returns the call stack, outermost frame first.
func (t *Thread) Stack() []StackFrame {
	return t.stack
}

// RecursionDepth returns the depth of the innermost activation of fn.
func (t *Thread) RecursionDepth(fn string) (int, bool) {
	if v, ok := t.recursion.Get(fn); ok {
		return v.(int), true
	}
	return 0, false
}

func (t *Thread) push(fn string) {
	depth := 0
	if d, ok := t.RecursionDepth(fn); ok {
		depth = d + 1
	}
	t.recursion = t.recursion.Set(fn, depth)
	t.stack = append(t.stack, StackFrame{Function: fn, Depth: depth})
}

func (t *Thread) pop() {
	assert(len(t.stack) > 0, "pop from empty stack")

	f := t.stack[len(t.stack)-1]
	if f.Depth == 0 {
		t.recursion = t.recursion.Delete(f.Function)
	} else {
		t.recursion = t.recursion.Set(f.Function, f.Depth-1)
	}
	t.stack = t.stack[:len(t.stack)-1]
}

// StackFrame represents an activation of a function.
type StackFrame struct {
	Function string
	Depth    int
}

// String returns the string representation of the frame.
func (f StackFrame) String() string {
	return fmt.Sprintf("%s@%d", f.Function, f.Depth)
}

// stringComparer compares two strings. Implements immutable.Comparer.
type stringComparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b, and
// returns 0 if a is equal to b. Panic if a or b is not a string.
func (c *stringComparer) Compare(a, b interface{}) int {
	return strings.Compare(a.(string), b.(string))
}
