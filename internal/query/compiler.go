// Package query compiles filter specifications into Gmail search queries.
//
// The compiler is pure: no I/O, no shared mutable state. A Compiler holds only
// read-only options (character budget, recognized fields) and may be used from
// many goroutines at once.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/solatis/gfb/internal/types"
	"golang.org/x/sync/errgroup"
)

// Options configures a Compiler. Zero values select the defaults.
type Options struct {
	Budget      int               // max query length, exclusive (default 600)
	Fields      map[string]string // recognized field -> Gmail operator (default types.DefaultFields)
	Concurrency int               // labels compiled in parallel by CompileDocument (default GOMAXPROCS)
	Logger      *slog.Logger      // default slog.Default()
}

// Compiler turns FilterSpecs into budget-compliant queries.
type Compiler struct {
	budget      int
	fields      map[string]string
	concurrency int
	logger      *slog.Logger
}

// CompiledFilter is the compiler output for one label.
type CompiledFilter struct {
	Label   string
	Queries []string // each strictly shorter than the budget, in document order
	Actions []Action
}

// NewCompiler validates options and returns a Compiler.
func NewCompiler(opts Options) (*Compiler, error) {
	c := &Compiler{
		budget:      opts.Budget,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
	}
	if c.budget == 0 {
		c.budget = types.DefaultCharBudget
	}
	if c.budget < types.MinCharBudget {
		return nil, fmt.Errorf("budget must be at least %d, got %d", types.MinCharBudget, c.budget)
	}
	if c.concurrency <= 0 {
		c.concurrency = runtime.GOMAXPROCS(0)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	fields := opts.Fields
	if len(fields) == 0 {
		fields = types.DefaultFields()
	}
	// Copy with normalized names so callers cannot mutate the compiler's view.
	c.fields = make(map[string]string, len(fields))
	for name, op := range fields {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || strings.Contains(name, "-") {
			return nil, fmt.Errorf("invalid field name %q", name)
		}
		if op == "" {
			op = name
		}
		c.fields[name] = op
	}

	return c, nil
}

// Budget returns the configured character budget.
func (c *Compiler) Budget() int {
	return c.budget
}

// Tokens compiles a criteria tree into its flat token stream.
func (c *Compiler) Tokens(data []types.Section) ([]types.Token, error) {
	return c.compileSections(data)
}

// CompileFilter compiles one label: criteria -> token stream -> split queries, plus actions.
// Errors are wrapped with the label name; no partial output is returned.
func (c *Compiler) CompileFilter(spec types.FilterSpec) (*CompiledFilter, error) {
	tokens, err := c.compileSections(spec.Data)
	if err != nil {
		return nil, fmt.Errorf("filter %q: %w", spec.Label, err)
	}

	queries, err := Split(tokens, c.budget)
	if err != nil {
		return nil, fmt.Errorf("filter %q: %w", spec.Label, err)
	}
	if len(queries) > 1 {
		c.logger.Debug("filter exceeded budget, split into several queries",
			"label", spec.Label, "length", len(types.Render(tokens)), "budget", c.budget, "queries", len(queries))
	}

	actions, err := ParseActions(spec.Actions)
	if err != nil {
		return nil, fmt.Errorf("filter %q: %w", spec.Label, err)
	}

	return &CompiledFilter{
		Label:   spec.Label,
		Queries: queries,
		Actions: actions,
	}, nil
}

// CompileDocument compiles every label of doc in parallel.
// Results keep document order; the first error cancels the rest.
func (c *Compiler) CompileDocument(ctx context.Context, doc *types.Document) ([]*CompiledFilter, error) {
	results := make([]*CompiledFilter, len(doc.Filters))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i := range doc.Filters {
		spec := doc.Filters[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			compiled, err := c.CompileFilter(spec)
			if err != nil {
				return err
			}
			results[i] = compiled
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
