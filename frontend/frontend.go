// Package frontend elaborates small program models written in Go syntax
// into symex symbols, expressions and execution states.
package frontend

import (
	"github.com/benbjohnson/symex"
	"github.com/pkg/errors"
)

// Env holds the declarations of a program model.
type Env struct {
	ns        *symex.Namespace
	types     map[string]symex.Type
	globals   map[string]*symex.Symbol
	functions map[string]map[string]*symex.Symbol
}

// NewEnv returns a new, empty environment.
func NewEnv() *Env {
	return &Env{
		ns:        symex.NewNamespace(),
		types:     make(map[string]symex.Type),
		globals:   make(map[string]*symex.Symbol),
		functions: make(map[string]map[string]*symex.Symbol),
	}
}

// Namespace returns the symbol table of every declared symbol.
func (env *Env) Namespace() *symex.Namespace { return env.ns }

// Scope returns the scope of fn. An empty fn returns the global scope.
func (env *Env) Scope(fn string) *Scope {
	return &Scope{env: env, fn: fn}
}

// DeclareType declares a named type. Struct and union types are tagged
// with the name.
func (env *Env) DeclareType(name, src string) error {
	if _, ok := env.types[name]; ok {
		return errors.Errorf("frontend: type already declared: %s", name)
	} else if _, ok := basicTypes[name]; ok {
		return errors.Errorf("frontend: cannot redeclare basic type: %s", name)
	}

	typ, err := ParseType(src, env.Scope(""))
	if err != nil {
		return errors.Wrapf(err, "type %s", name)
	}
	switch typ := typ.(type) {
	case *symex.StructType:
		typ.Tag = name
	case *symex.UnionType:
		typ.Tag = name
	}
	env.types[name] = typ
	return nil
}

// DeclareGlobal declares a variable with static lifetime.
func (env *Env) DeclareGlobal(decl VarDecl) error {
	typ, err := ParseType(decl.Type, env.Scope(""))
	if err != nil {
		return errors.Wrapf(err, "global %s", decl.Name)
	}

	sym := &symex.Symbol{
		Name:           decl.Name,
		BaseName:       decl.Name,
		Type:           typ,
		StaticLifetime: true,
		ThreadLocal:    decl.ThreadLocal,
		Location:       symex.Location{File: decl.File, Line: decl.Line},
	}
	if err := env.ns.Add(sym); err != nil {
		return err
	}
	env.globals[decl.Name] = sym
	return nil
}

// DeclareFunction declares a function symbol along with its parameters and
// locals. Locals are declared in order so a variable-length array may
// refer to an earlier local.
func (env *Env) DeclareFunction(decl FunctionDecl) error {
	if _, ok := env.functions[decl.Name]; ok {
		return errors.Errorf("frontend: function already declared: %s", decl.Name)
	}
	env.functions[decl.Name] = make(map[string]*symex.Symbol)
	scope := env.Scope(decl.Name)

	var typ symex.CodeType
	for _, vars := range [][]VarDecl{decl.Params, decl.Locals} {
		for _, v := range vars {
			vtyp, err := ParseType(v.Type, scope)
			if err != nil {
				return errors.Wrapf(err, "%s: local %s", decl.Name, v.Name)
			}

			sym := &symex.Symbol{
				Name:     decl.Name + "::" + v.Name,
				BaseName: v.Name,
				Type:     vtyp,
				Location: symex.Location{File: v.File, Function: decl.Name, Line: v.Line},
			}
			if err := env.ns.Add(sym); err != nil {
				return err
			}
			env.functions[decl.Name][v.Name] = sym
		}
	}

	for _, p := range decl.Params {
		typ.Params = append(typ.Params, env.functions[decl.Name][p.Name].Type)
	}
	if decl.Result != "" {
		result, err := ParseType(decl.Result, env.Scope(""))
		if err != nil {
			return errors.Wrapf(err, "function %s", decl.Name)
		}
		typ.Result = result
	}

	return env.ns.Add(&symex.Symbol{
		Name:           decl.Name,
		BaseName:       decl.Name,
		Type:           &typ,
		StaticLifetime: true,
		Location:       symex.Location{File: decl.File, Line: decl.Line},
	})
}

// Scope resolves names within a function.
type Scope struct {
	env *Env
	fn  string
}

// Function returns the name of the scope's function.
func (s *Scope) Function() string { return s.fn }

// Lookup returns the symbol named by a source identifier. Locals shadow
// globals and functions.
func (s *Scope) Lookup(name string) (*symex.Symbol, bool) {
	if locals, ok := s.env.functions[s.fn]; ok {
		if sym, ok := locals[name]; ok {
			return sym, true
		}
	}
	if sym, ok := s.env.globals[name]; ok {
		return sym, true
	}
	if _, ok := s.env.functions[name]; ok {
		return s.env.ns.Lookup(name)
	}
	return nil, false
}
