package scriptify

import (
	"context"
	"fmt"
	"runtime"
)

// DefaultNullLiteral renders absent host values. Some targets expect "null" instead.
const DefaultNullLiteral = "undefined"

// Config holds settings for a Compiler.
type Config struct {
	NullLiteral      string // literal for absent folded values
	StatePrefix      string // name prefix of hoisted state slots
	CacheMB          int    // metadata facts cache budget, used by NewRegistryFromConfig
	ConcurrencyLimit int    // maximum parallel compiles in CompileAll
}

// DefaultConfig returns the settings used for zero Config fields.
func DefaultConfig() Config {
	return Config{
		NullLiteral:      DefaultNullLiteral,
		StatePrefix:      DefaultStatePrefix,
		CacheMB:          16,
		ConcurrencyLimit: runtime.NumCPU(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.NullLiteral == "" {
		c.NullLiteral = def.NullLiteral
	}
	if c.StatePrefix == "" {
		c.StatePrefix = def.StatePrefix
	}
	if c.CacheMB <= 0 {
		c.CacheMB = def.CacheMB
	}
	if c.ConcurrencyLimit <= 0 {
		c.ConcurrencyLimit = def.ConcurrencyLimit
	}
	return c
}

// NewRegistryFromConfig creates a Registry sized by config.
func NewRegistryFromConfig(config Config, decls ...Declaration) (*Registry, error) {
	return NewRegistry(config.withDefaults().CacheMB, decls...)
}

// Compiler translates lambda expression trees into script source, folding what the host can compute.
// A Compiler holds no per-compile state and may be used concurrently.
type Compiler struct {
	config   Config
	registry *Registry
}

// NewCompiler creates a Compiler resolving metadata through registry.
func NewCompiler(registry *Registry, config Config) *Compiler {
	return &Compiler{config: config.withDefaults(), registry: registry}
}

func (c *Compiler) evaluator() *evaluator {
	return &evaluator{
		registry: c.registry,
		values:   stringifier{nullLiteral: c.config.NullLiteral},
	}
}

// Eval evaluates a single node without committing it, exposing whether it can still be folded.
func (c *Compiler) Eval(n Node) (Result, error) {
	return c.evaluator().eval(n)
}

// Stringify renders a host value as the script literal a folded expression would produce.
func (c *Compiler) Stringify(v any) (string, error) {
	return c.evaluator().values.Stringify(v)
}

// Compile translates lambda into script source. Folded sub-expressions run on the host during the compile,
// so they must be free of side effects. Any construct without a translation fails the whole compile with
// an error matching ErrUnsupportedConstruct.
func (c *Compiler) Compile(lambda *LambdaExpr) (string, error) {
	if lambda == nil {
		return "", &UnsupportedError{Kind: KindLambda, Detail: "nil lambda"}
	}
	e := c.evaluator()
	r, err := e.evalLambda(lambda)
	if err != nil {
		return "", err
	}
	return bindStates(r.script, c.config.StatePrefix), nil
}

// CompileAll compiles independent lambdas in parallel, returning the scripts in input order. The first
// failure cancels the remaining compiles.
func (c *Compiler) CompileAll(ctx context.Context, lambdas []*LambdaExpr) ([]string, error) {
	results := make([]string, len(lambdas))
	errGroup, ctx := errGroupLimit(ctx, c.config.ConcurrencyLimit)
	for i, l := range lambdas {
		errGroup.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := c.Compile(l)
			if err != nil {
				return fmt.Errorf("compile %d: %w", i, err)
			}
			results[i] = s
			return nil
		})
	}
	if err := errGroup.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
