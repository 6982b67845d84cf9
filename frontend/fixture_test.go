package frontend_test

import (
	"path/filepath"
	"testing"

	"github.com/benbjohnson/symex"
	"github.com/benbjohnson/symex/frontend"
	"github.com/stretchr/testify/require"
)

func TestFixture_Build(t *testing.T) {
	for _, tt := range []struct {
		name  string
		reads []string
	}{
		{
			name: "fixture001_struct",
			reads: []string{
				"main::a.b@0#0",
				"(struct main::a.b@0#0 main::a.c@0#0)",
				"main::a.c@0#0",
				"(const 8 i32)",
			},
		},
		{
			name: "fixture002_array",
			reads: []string{
				"main::arr[2]@0#0",
				"(case ((eq main::i@0#0 (const 0 i32)) main::arr[0]@0#0) ((eq main::i@0#0 (const 1 i32)) main::arr[1]@0#0) ((eq main::i@0#0 (const 2 i32)) main::arr[2]@0#0))",
				"main::arr[1]@0#0",
				"(index main::buf@0#0 main::i@0#0)",
			},
		},
		{
			name: "fixture003_recursion",
			reads: []string{
				"fact::n@1#0",
				"fact::n@0#0",
				"symex::nondet0",
				"symex::nondet1",
			},
		},
		{
			name: "fixture004_threads",
			reads: []string{
				"(const 3 i32)",
				"counter#2",
				"main::x@0#0",
				"(const 4 i32)",
				"worker::x@0#0",
			},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f, err := frontend.LoadFixture(filepath.Join("..", "testdata", tt.name+".yaml"))
			require.NoError(t, err)

			p, err := f.Build(symex.DefaultConfig())
			require.NoError(t, err)
			require.Len(t, p.Reads, len(tt.reads))

			for i, decl := range p.Reads {
				_, result, err := p.Read(decl)
				require.NoError(t, err, decl.Expr)
				require.Equal(t, tt.reads[i], result.String(), decl.Expr)
			}
		})
	}

	t.Run("ErrEmptyStack", func(t *testing.T) {
		f, err := frontend.ParseFixture([]byte("threads:\n  - []\n"))
		require.NoError(t, err)
		_, err = f.Build(symex.DefaultConfig())
		require.EqualError(t, err, "frontend: thread 0 has an empty stack")
	})

	t.Run("ErrUndefinedFunction", func(t *testing.T) {
		f, err := frontend.ParseFixture([]byte("threads:\n  - [main]\n"))
		require.NoError(t, err)
		_, err = f.Build(symex.DefaultConfig())
		require.EqualError(t, err, "frontend: thread 0: undefined function: main")
	})

	t.Run("ErrAssignAggregate", func(t *testing.T) {
		f, err := frontend.ParseFixture([]byte(`
types:
  - name: pair
    type: "struct { b int32; c int32 }"
functions:
  - name: main
    locals:
      - name: a
        type: pair
threads:
  - [main]
assign:
  - target: a
    value: "0"
`))
		require.NoError(t, err)
		_, err = f.Build(symex.DefaultConfig())
		require.EqualError(t, err, "assign a: frontend: cannot assign to aggregate of type struct pair")
	})

	t.Run("ErrAssignTarget", func(t *testing.T) {
		f, err := frontend.ParseFixture([]byte(`
functions:
  - name: main
threads:
  - [main]
assign:
  - target: "1"
    value: "2"
`))
		require.NoError(t, err)
		_, err = f.Build(symex.DefaultConfig())
		require.Error(t, err)
		require.True(t, symex.IsInvariantError(err))
	})
}

func TestParseFixture(t *testing.T) {
	t.Run("Reads", func(t *testing.T) {
		f, err := frontend.ParseFixture([]byte(`
reads:
  - a.b
  - expr: n
    thread: 1
    propagate: true
    depth: 0
`))
		require.NoError(t, err)
		require.Len(t, f.Reads, 2)
		require.Equal(t, frontend.ReadDecl{Expr: "a.b"}, f.Reads[0])

		require.Equal(t, "n", f.Reads[1].Expr)
		require.Equal(t, 1, f.Reads[1].Thread)
		require.True(t, f.Reads[1].Propagate)
		require.NotNil(t, f.Reads[1].Depth)
		require.Equal(t, 0, *f.Reads[1].Depth)
	})

	t.Run("ErrSyntax", func(t *testing.T) {
		_, err := frontend.ParseFixture([]byte("reads: [\n"))
		require.Error(t, err)
	})

	t.Run("ErrNotFound", func(t *testing.T) {
		_, err := frontend.LoadFixture(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}

func TestProgram_Read(t *testing.T) {
	f, err := frontend.LoadFixture(filepath.Join("..", "testdata", "fixture004_threads.yaml"))
	require.NoError(t, err)
	p, err := f.Build(symex.DefaultConfig())
	require.NoError(t, err)

	t.Run("Source", func(t *testing.T) {
		src, result, err := p.Read(frontend.ReadDecl{Expr: "x + 1", Thread: 1})
		require.NoError(t, err)
		require.Equal(t, "(add worker::x (const 1 i32))", src.String())
		require.Equal(t, "(add worker::x@0#0 (const 1 i32))", result.String())
	})

	t.Run("ErrNoThread", func(t *testing.T) {
		_, _, err := p.Read(frontend.ReadDecl{Expr: "x", Thread: 2})
		require.ErrorIs(t, err, symex.ErrNoThread)
	})

	t.Run("ErrUndefined", func(t *testing.T) {
		_, _, err := p.Read(frontend.ReadDecl{Expr: "y"})
		require.EqualError(t, err, "frontend: undefined: y")
	})
}
