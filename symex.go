package symex

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Standard widths.
const (
	WidthBool = 1
	Width8    = 8
	Width16   = 16
	Width32   = 32
	Width64   = 64
)

// DepthCurrent instructs Read to derive the recursion depth of procedure-local
// variables from the call stack of the current thread.
const DepthCurrent = -1

var (
	ErrSymbolNotFound = errors.New("symex: symbol not found")
	ErrNoThread       = errors.New("symex: no thread available")
)

// InvariantError is returned when the reader encounters an expression that
// the upstream pipeline guarantees cannot occur. It is never retried.
type InvariantError struct {
	Op   string // operation that detected the violation
	Expr Expr   // offending expression, if any
	Msg  string
	Err  error // underlying cause, if any
}

// Error returns the error message.
func (e *InvariantError) Error() string {
	msg := fmt.Sprintf("symex.%s: %s", e.Op, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Expr != nil {
		msg += ": " + e.Expr.String()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *InvariantError) Unwrap() error { return e.Err }

// invariantf returns a new InvariantError annotated with a stack trace.
func invariantf(op string, expr Expr, format string, args ...interface{}) error {
	return errors.WithStack(&InvariantError{Op: op, Expr: expr, Msg: fmt.Sprintf(format, args...)})
}

// invariantWrap returns a new InvariantError caused by err.
func invariantWrap(op string, expr Expr, err error, msg string) error {
	return errors.WithStack(&InvariantError{Op: op, Expr: expr, Msg: msg, Err: err})
}

// IsInvariantError returns true if err wraps an *InvariantError.
func IsInvariantError(err error) bool {
	var e *InvariantError
	return errors.As(err, &e)
}

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}

// Config represents the tunable settings of a Session.
type Config struct {
	// Width of a pointer, in bits.
	PointerWidth uint `yaml:"pointer-width"`

	// Byte order used by the default type layout.
	LittleEndian bool `yaml:"little-endian"`

	// Arrays with a constant length at or above this threshold are treated
	// as unbounded and kept as native symbolic arrays.
	UnboundedArrayThreshold uint64 `yaml:"unbounded-array-threshold"`

	// Additional name prefixes excluded from SSA renaming.
	InternalSymbols []string `yaml:"internal-symbols"`

	// Maximum number of arms produced for a single array-theory case split.
	// Zero means no limit.
	MaxCaseSplit uint64 `yaml:"max-case-split"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		PointerWidth:            Width64,
		LittleEndian:            true,
		UnboundedArrayThreshold: 100,
	}
}

// LoadConfig reads a YAML configuration file. Unset fields keep their
// default values.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	buf, err := os.ReadFile(path)
	if err != nil {
		return config, errors.Wrap(err, "symex: read config")
	} else if err := yaml.Unmarshal(buf, &config); err != nil {
		return config, errors.Wrapf(err, "symex: parse config %s", path)
	}
	return config, config.Validate()
}

// Validate returns an error if the configuration cannot be used.
func (c *Config) Validate() error {
	switch c.PointerWidth {
	case Width16, Width32, Width64:
	default:
		return errors.Errorf("symex: invalid pointer width: %d", c.PointerWidth)
	}
	if c.UnboundedArrayThreshold == 0 {
		return errors.New("symex: unbounded array threshold must be positive")
	}
	return nil
}
