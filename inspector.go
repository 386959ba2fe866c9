package inspector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/vals/anndata-design-inspector/internal/inference"
	"github.com/vals/anndata-design-inspector/internal/logging"
	"github.com/vals/anndata-design-inspector/internal/presentation/diagram"
	"github.com/vals/anndata-design-inspector/pkg/domain"
	"github.com/vals/anndata-design-inspector/pkg/grammar"
	"github.com/vals/anndata-design-inspector/pkg/nesting"
)

// FactorSource supplies categorical factors from a data file. The bundled
// implementation scrapes h5dump/h5ls output; tests and embedders can provide
// their own.
type FactorSource interface {
	ListFactors(ctx context.Context, path string) ([]string, error)
	ReadFactor(ctx context.Context, path, name string) (*domain.Factor, error)
}

// Report is the full result of inspecting a file.
type Report struct {
	File       string           `json:"h5ad_file"`
	TotalCells int              `json:"total_cells"`
	DesignType string           `json:"design_type"`
	Grammar    string           `json:"grammar"`
	Diagram    string           `json:"diagram"`
	Design     *domain.Design   `json:"design"`
	Factors    []*domain.Factor `json:"-"`
	Notes      []string         `json:"design_notes,omitempty"`
}

// Engine is the high-level entry point: it wires extraction, inference,
// grammar serialization and diagram rendering behind one call.
type Engine struct {
	source  FactorSource
	logger  *slog.Logger
	ignore  []string
	grammar grammar.Options
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger injects a logger; the default is a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithIgnoredFactors drops the named obs columns during inspection
// (barcodes, QC scores and similar non-design columns).
func WithIgnoredFactors(names ...string) Option {
	return func(e *Engine) {
		e.ignore = append(e.ignore, names...)
	}
}

// WithGrammarOptions overrides serialization options.
func WithGrammarOptions(opts grammar.Options) Option {
	return func(e *Engine) {
		e.grammar = opts
	}
}

// New creates an Engine over the given factor source.
func New(source FactorSource, opts ...Option) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("inspector: factor source must not be nil")
	}
	e := &Engine{
		source: source,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Inspect extracts all categorical factors from the file, infers the design
// and renders grammar plus diagram.
func (e *Engine) Inspect(ctx context.Context, path string) (*Report, error) {
	names, err := e.source.ListFactors(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", path, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("inspecting %s: no categorical factors found in obs", path)
	}

	var factors []*domain.Factor
	for _, name := range names {
		if slices.Contains(e.ignore, name) {
			e.logger.Debug("skipping ignored factor", "factor", name)
			continue
		}
		f, err := e.source.ReadFactor(ctx, path, name)
		if err != nil {
			return nil, fmt.Errorf("inspecting %s: %w", path, err)
		}
		factors = append(factors, f)
	}
	if len(factors) == 0 {
		return nil, fmt.Errorf("inspecting %s: all categorical factors are ignored", path)
	}

	res := inference.New(e.logger).Infer(factors)

	g, err := grammar.SerializeWith(res.Design, e.grammar)
	if err != nil {
		return nil, fmt.Errorf("serializing design of %s: %w", path, err)
	}

	report := &Report{
		File:       path,
		TotalCells: totalCells(factors),
		DesignType: designType(res.Design),
		Grammar:    g,
		Diagram:    diagram.Render(res.Design),
		Design:     res.Design,
		Factors:    factors,
		Notes:      res.Notes,
	}
	e.logger.Info("inspected design",
		"file", path, "factors", len(factors), "type", report.DesignType, "grammar", g)
	return report, nil
}

// Classify extracts the two named factors and runs the nesting classifier
// with the first as candidate parent.
func (e *Engine) Classify(ctx context.Context, path, parent, child string) (nesting.Result, error) {
	pf, err := e.source.ReadFactor(ctx, path, parent)
	if err != nil {
		return nesting.Result{}, err
	}
	cf, err := e.source.ReadFactor(ctx, path, child)
	if err != nil {
		return nesting.Result{}, err
	}
	return nesting.Classify(pf.Categories, cf.Categories), nil
}

// CacheKey derives a cache key from the file's identity, so cached reports
// are invalidated when the file changes.
func CacheKey(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d:%d", path, info.ModTime().UnixNano(), info.Size()), nil
}

// designType summarizes the relationship structure for prose and reports.
func designType(d *domain.Design) string {
	hasNested := false
	for _, rel := range d.Relationships {
		if rel.Type == domain.RelNested {
			hasNested = true
		}
	}
	roots := grammar.Roots(d)
	switch {
	case hasNested && len(roots) > 1:
		return "nested × crossed"
	case hasNested:
		return "nested"
	case len(roots) > 1:
		return "crossed"
	default:
		return "simple"
	}
}

// totalCells takes the largest factor total: every factor labels the same
// observations, but some may leave cells unlabeled.
func totalCells(factors []*domain.Factor) int {
	total := 0
	for _, f := range factors {
		if t := f.TotalCount(); t > total {
			total = t
		}
	}
	return total
}

// ParseLabels splits a comma-separated label list, trimming whitespace.
// Used by surfaces that accept raw label sets instead of a file.
func ParseLabels(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
