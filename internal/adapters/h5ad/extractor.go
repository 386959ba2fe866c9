// Package h5ad extracts categorical factors from AnnData (.h5ad) files by
// scraping the text output of the standard HDF5 command-line tools. It
// deliberately avoids linking an HDF5 library: h5dump and h5ls are treated
// as external collaborators, and everything here is plumbing plus parsers.
package h5ad

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/vals/anndata-design-inspector/internal/logging"
	"github.com/vals/anndata-design-inspector/pkg/domain"
)

// Config holds the tool locations. Zero values fall back to PATH lookup.
type Config struct {
	H5dump string
	H5ls   string
}

func (c Config) withDefaults() Config {
	if c.H5dump == "" {
		c.H5dump = "h5dump"
	}
	if c.H5ls == "" {
		c.H5ls = "h5ls"
	}
	return c
}

// Extractor reads factors from .h5ad files.
type Extractor struct {
	cfg Config
	log *slog.Logger
}

// NewExtractor creates an Extractor. A nil logger gets a no-op logger.
func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{cfg: cfg.withDefaults(), log: logger}
}

// ListFactors returns the names of categorical obs columns in the file, in
// the order h5ls reports them.
func (e *Extractor) ListFactors(ctx context.Context, path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	out, err := e.run(ctx, e.cfg.H5ls, "-r", path)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", path, err)
	}
	cols := parseObsColumns(out)
	e.log.Debug("listed categorical obs columns", "file", path, "columns", len(cols))
	return cols, nil
}

// ReadFactor extracts one named factor: its category labels from the
// categories dataset and per-category observation counts tallied from the
// codes dataset.
func (e *Extractor) ReadFactor(ctx context.Context, path, name string) (*domain.Factor, error) {
	catDump, err := e.run(ctx, e.cfg.H5dump, "-d", "/obs/"+name+"/categories", path)
	if err != nil {
		return nil, fmt.Errorf("factor %q: %w", name, domain.ErrFactorNotFound)
	}
	categories, err := parseStringData(catDump)
	if err != nil {
		return nil, fmt.Errorf("parsing categories of %q: %w", name, err)
	}

	codeDump, err := e.run(ctx, e.cfg.H5dump, "-d", "/obs/"+name+"/codes", path)
	if err != nil {
		return nil, fmt.Errorf("reading codes of %q: %w", name, err)
	}
	codes, err := parseIntData(codeDump)
	if err != nil {
		return nil, fmt.Errorf("parsing codes of %q: %w", name, err)
	}

	f := &domain.Factor{
		Name:       name,
		Categories: categories,
		Counts:     countCodes(codes, len(categories)),
	}
	e.log.Debug("extracted factor", "file", path, "factor", name, "levels", f.Levels(), "observations", f.TotalCount())
	return f, nil
}

func (e *Extractor) run(ctx context.Context, tool string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, tool, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := bytes.TrimSpace(stderr.Bytes())
		if len(msg) > 0 {
			return "", fmt.Errorf("%s: %s: %w", tool, msg, err)
		}
		return "", fmt.Errorf("%s: %w", tool, err)
	}
	return stdout.String(), nil
}
