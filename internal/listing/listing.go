package listing

import (
	"context"
	"os"
	"path/filepath"

	"dais/internal/analyze"
	"dais/internal/config"
	"dais/internal/pool"
)

// Renderer is the full pipeline: analyze → sort → format → grid. One
// Renderer is built at startup and shared; only the sort preference
// passed per call varies at runtime.
type Renderer struct {
	formatter Formatter
	analyzer  *analyze.Analyzer
	pool      *pool.Pool
	padding   int
	theme     config.Theme
}

// Options are the per-invocation knobs.
type Options struct {
	Width      int
	Sort       config.Sort
	ShowHidden bool
}

// NewRenderer wires the pipeline against the injected pool and analyzer.
func NewRenderer(cfg config.Config, an *analyze.Analyzer, p *pool.Pool) *Renderer {
	return &Renderer{
		formatter: NewFormatter(cfg.Theme, cfg.Formats),
		analyzer:  an,
		pool:      p,
		padding:   cfg.Padding,
		theme:     cfg.Theme,
	}
}

// RenderDir is the preferred, shell-free path: read the directory
// natively and render it.
func (r *Renderer) RenderDir(ctx context.Context, dir string, opts Options) (string, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(dirents))
	for _, de := range dirents {
		names = append(names, de.Name())
	}
	return r.RenderNames(ctx, dir, FilterHidden(names, opts.ShowHidden), opts), nil
}

// RenderNames analyzes names (relative to cwd) through the pool and
// renders the grid. Individual failed lookups render via the error
// template; a failed pool task drops its entry and the batch continues.
func (r *Renderer) RenderNames(ctx context.Context, cwd string, names []string, opts Options) string {
	tasks := make([]func() (Item, error), len(names))
	for i, name := range names {
		name := name
		tasks[i] = func() (Item, error) {
			return Item{Name: name, Stats: r.analyzer.Analyze(filepath.Join(cwd, name))}, nil
		}
	}
	results := pool.Collect(ctx, r.pool, tasks)
	items := make([]Item, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		items = append(items, res.Value)
	}
	return r.RenderItems(items, opts)
}

// RenderItems renders pre-analyzed items (the remote path feeds records
// straight in here).
func (r *Renderer) RenderItems(items []Item, opts Options) string {
	entries := make([]Entry, len(items))
	for i, it := range items {
		entries[i] = r.formatter.Render(it)
	}
	Sort(entries, opts.Sort)
	return Grid(entries, GridOptions{
		Width:     opts.Width,
		Padding:   r.padding,
		Flow:      opts.Sort.Flow,
		Structure: r.theme.Structure,
		Reset:     r.theme.Reset,
	})
}
