package frontend

import (
	"os"

	"github.com/benbjohnson/symex"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Fixture represents a program model and the reads to perform on it.
type Fixture struct {
	Types     []TypeDecl     `yaml:"types"`
	Globals   []VarDecl      `yaml:"globals"`
	Functions []FunctionDecl `yaml:"functions"`

	// Call stack of each thread, outermost function first.
	Threads [][]string `yaml:"threads"`

	Assign []AssignDecl `yaml:"assign"`
	Reads  []ReadDecl   `yaml:"reads"`
}

// TypeDecl declares a named type.
type TypeDecl struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// VarDecl declares a variable.
type VarDecl struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	ThreadLocal bool   `yaml:"thread-local"`
	File        string `yaml:"file"`
	Line        int    `yaml:"line"`
}

// FunctionDecl declares a function and its variables.
type FunctionDecl struct {
	Name   string    `yaml:"name"`
	Params []VarDecl `yaml:"params"`
	Result string    `yaml:"result"`
	Locals []VarDecl `yaml:"locals"`
	File   string    `yaml:"file"`
	Line   int       `yaml:"line"`
}

// AssignDecl records a write performed before any read.
type AssignDecl struct {
	Thread int    `yaml:"thread"`
	Target string `yaml:"target"`
	Value  string `yaml:"value"`
}

// ReadDecl describes a read of an expression in a thread's current frame.
type ReadDecl struct {
	Expr      string `yaml:"expr"`
	Thread    int    `yaml:"thread"`
	Propagate bool   `yaml:"propagate"`
	Depth     *int   `yaml:"depth"`
}

// UnmarshalYAML allows a read to be written as a bare expression.
func (r *ReadDecl) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&r.Expr)
	}
	type readDecl ReadDecl
	return value.Decode((*readDecl)(r))
}

// LoadFixture reads a YAML fixture from path.
func LoadFixture(path string) (*Fixture, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "frontend: read fixture")
	}
	f, err := ParseFixture(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "frontend: %s", path)
	}
	return f, nil
}

// ParseFixture decodes a YAML fixture.
func ParseFixture(buf []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(buf, &f); err != nil {
		return nil, errors.Wrap(err, "parse fixture")
	}
	return &f, nil
}

// Build declares the fixture's symbols, creates an execution state with
// its threads and performs its assignments.
func (f *Fixture) Build(config symex.Config) (*Program, error) {
	env := NewEnv()
	for _, decl := range f.Types {
		if err := env.DeclareType(decl.Name, decl.Type); err != nil {
			return nil, err
		}
	}
	for _, decl := range f.Globals {
		if err := env.DeclareGlobal(decl); err != nil {
			return nil, err
		}
	}
	for _, decl := range f.Functions {
		if err := env.DeclareFunction(decl); err != nil {
			return nil, err
		}
	}

	p := &Program{
		Env:   env,
		State: symex.NewExecutionState(symex.NewSession(env.Namespace(), config), ""),
		Reads: f.Reads,
	}

	for i, stack := range f.Threads {
		if len(stack) == 0 {
			return nil, errors.Errorf("frontend: thread %d has an empty stack", i)
		}
		for _, fn := range stack {
			if _, ok := env.functions[fn]; !ok {
				return nil, errors.Errorf("frontend: thread %d: undefined function: %s", i, fn)
			}
		}

		if i > 0 {
			if err := p.State.SetCurrentThread(p.State.SpawnThread(stack[0])); err != nil {
				return nil, err
			}
			stack = stack[1:]
		}
		for _, fn := range stack {
			p.State.Push(fn)
		}
	}

	for _, decl := range f.Assign {
		if err := p.assign(decl); err != nil {
			return nil, errors.Wrapf(err, "assign %s", decl.Target)
		}
	}
	if err := p.State.SetCurrentThread(0); err != nil {
		return nil, err
	}
	return p, nil
}

// Program represents an elaborated fixture.
type Program struct {
	Env   *Env
	State *symex.ExecutionState
	Reads []ReadDecl
}

// Scope returns the scope of the top frame of thread i.
func (p *Program) Scope(i int) (*Scope, error) {
	t := p.State.Thread(i)
	if t == nil {
		return nil, symex.ErrNoThread
	} else if frame := t.Frame(); frame != nil {
		return p.Env.Scope(frame.Function), nil
	}
	return p.Env.Scope(""), nil
}

// Read performs a single read and returns the parsed source expression
// along with its result.
func (p *Program) Read(decl ReadDecl) (src, result symex.Expr, err error) {
	scope, err := p.Scope(decl.Thread)
	if err != nil {
		return nil, nil, err
	} else if err := p.State.SetCurrentThread(decl.Thread); err != nil {
		return nil, nil, err
	}

	if src, err = ParseExpr(decl.Expr, scope); err != nil {
		return nil, nil, err
	}

	depth := symex.DepthCurrent
	if decl.Depth != nil {
		depth = *decl.Depth
	}
	if result, err = p.State.Read(src, decl.Propagate, depth); err != nil {
		return nil, nil, err
	}
	return src, result, nil
}

func (p *Program) assign(decl AssignDecl) error {
	scope, err := p.Scope(decl.Thread)
	if err != nil {
		return err
	} else if err := p.State.SetCurrentThread(decl.Thread); err != nil {
		return err
	}

	target, err := ParseExpr(decl.Target, scope)
	if err != nil {
		return err
	}
	switch typ := target.Type().(type) {
	case *symex.StructType, *symex.UnionType, *symex.ArrayType, *symex.VectorType:
		return errors.Errorf("frontend: cannot assign to aggregate of type %s", typ)
	}
	info, err := p.State.Lvalue(target, symex.DepthCurrent)
	if err != nil {
		return err
	}

	// Values are parsed with the target's type so literals adopt it.
	node, err := parseExprHint(decl.Value, scope, target.Type())
	if err != nil {
		return err
	}
	value, err := p.State.Read(node, true, symex.DepthCurrent)
	if err != nil {
		return err
	}

	p.State.Assign(info, value)
	return nil
}
