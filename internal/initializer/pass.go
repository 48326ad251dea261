package initializer

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/roach88/taffo/internal/annotation"
)

// Well-known symbol names emitted by C/C++ frontends.
const (
	DefaultGlobalAnnotations = "llvm.global.annotations"
	DefaultVarAnnotation     = "llvm.var.annotation"
	DefaultOptNoneAttr       = "optnone"
)

// Parser decodes one annotation string.
type Parser interface {
	Parse(text string) (*annotation.Directive, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(text string) (*annotation.Directive, error)

// Parse calls f(text).
func (f ParserFunc) Parse(text string) (*annotation.Directive, error) { return f(text) }

// Pass runs annotation discovery over modules.
// A Pass is not safe for concurrent use.
type Pass struct {
	parser            Parser
	logger            *slog.Logger
	diag              io.Writer
	globalAnnotations string
	varAnnotation     string
	optNoneAttr       string
}

// Option configures a Pass.
type Option func(*Pass)

// WithParser replaces the annotation parser.
func WithParser(p Parser) Option {
	return func(pass *Pass) {
		pass.parser = p
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pass) {
		p.logger = l
	}
}

// WithDiagnosticWriter sets where annotation syntax errors are reported.
// Default: os.Stderr.
func WithDiagnosticWriter(w io.Writer) Option {
	return func(p *Pass) {
		p.diag = w
	}
}

// WithGlobalAnnotations overrides the name of the module annotation table.
func WithGlobalAnnotations(name string) Option {
	return func(p *Pass) {
		p.globalAnnotations = name
	}
}

// WithVarAnnotation overrides the name of the local annotation intrinsic.
func WithVarAnnotation(name string) Option {
	return func(p *Pass) {
		p.varAnnotation = name
	}
}

// WithOptNoneAttr overrides the attribute cleared on scanned functions.
func WithOptNoneAttr(name string) Option {
	return func(p *Pass) {
		p.optNoneAttr = name
	}
}

// New creates a Pass with default symbol names and the standard parser.
func New(opts ...Option) *Pass {
	p := &Pass{
		parser:            ParserFunc(annotation.Parse),
		logger:            slog.Default(),
		diag:              os.Stderr,
		globalAnnotations: DefaultGlobalAnnotations,
		varAnnotation:     DefaultVarAnnotation,
		optNoneAttr:       DefaultOptNoneAttr,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// isVarAnnotation matches the intrinsic and its type-mangled overloads
// (llvm.var.annotation.p0.p0).
func (p *Pass) isVarAnnotation(name string) bool {
	return name == p.varAnnotation || strings.HasPrefix(name, p.varAnnotation+".")
}
