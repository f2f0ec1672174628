// Package render writes the traversal result as self-contained HTML pages:
// a collapsible tree of the forest and a force-directed graph.
//
// Templates carry four literal placeholders, %title%, %data%, %height% and
// %width%, which are replaced verbatim. The built-in templates are embedded;
// a templates directory holding tree.html and/or graph.html overrides them.
package render

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/dbrefs/internal/dag"
	"github.com/leapstack-labs/dbrefs/internal/engine"
	"github.com/leapstack-labs/dbrefs/pkg/core"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Template names.
const (
	TreeTemplate  = "tree.html"
	GraphTemplate = "graph.html"
)

const (
	graphSize       = 1000
	rowHeight       = 100
	levelWidth      = 400
	maxFileNameBase = 40
)

// Config holds renderer configuration.
type Config struct {
	// OutputDir receives the rendered pages; created if missing
	OutputDir string
	// TemplatesDir overrides the embedded templates (optional)
	TemplatesDir string
	// Now stamps file names (optional, defaults to time.Now)
	Now func() time.Time
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Renderer renders results into HTML files.
type Renderer struct {
	outputDir string
	templates fs.FS
	overrides fs.FS
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a renderer.
func New(cfg Config) (*Renderer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	sub, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded templates: %w", err)
	}

	r := &Renderer{
		outputDir: cfg.OutputDir,
		templates: sub,
		now:       now,
		logger:    logger,
	}
	if r.outputDir == "" {
		r.outputDir = "."
	}
	if cfg.TemplatesDir != "" {
		info, err := os.Stat(cfg.TemplatesDir)
		if err != nil {
			return nil, &core.ConfigurationError{Field: "templates_dir", Path: cfg.TemplatesDir, Err: err}
		}
		if !info.IsDir() {
			return nil, &core.ConfigurationError{Field: "templates_dir", Path: cfg.TemplatesDir, Err: fmt.Errorf("not a directory")}
		}
		r.overrides = os.DirFS(cfg.TemplatesDir)
	}
	return r, nil
}

// Output lists the files written for one result.
type Output struct {
	Tree  string `json:"tree"`
	Graph string `json:"graph"`
}

// WriteAll renders both the tree and the graph page.
func (r *Renderer) WriteAll(res *engine.Result, g *dag.Graph) (*Output, error) {
	tree, err := r.WriteTree(res)
	if err != nil {
		return nil, err
	}
	graph, err := r.WriteGraph(res, g)
	if err != nil {
		return nil, err
	}
	return &Output{Tree: tree, Graph: graph}, nil
}

// WriteTree renders the forest as a tree page sized by the result's shape
// metrics and returns the written path.
func (r *Renderer) WriteTree(res *engine.Result) (string, error) {
	data, err := json.Marshal(Tree(res.Roots))
	if err != nil {
		return "", fmt.Errorf("failed to encode tree: %w", err)
	}
	return r.write("tree", TreeTemplate, Title(res.Roots), data,
		res.MaxChildren*rowHeight, res.Nesting*levelWidth)
}

// WriteGraph renders g as a force graph page and returns the written path.
func (r *Renderer) WriteGraph(res *engine.Result, g *dag.Graph) (string, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("failed to encode graph: %w", err)
	}
	return r.write("graph", GraphTemplate, Title(res.Roots), data, graphSize, graphSize)
}

func (r *Renderer) write(kind, templateName, title string, data []byte, height, width int) (string, error) {
	tmpl, err := r.loadTemplate(templateName)
	if err != nil {
		return "", err
	}

	markup := strings.NewReplacer(
		"%title%", title,
		"%data%", string(data),
		"%height%", strconv.Itoa(height),
		"%width%", strconv.Itoa(width),
	).Replace(tmpl)

	if err := os.MkdirAll(r.outputDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(r.outputDir, FileName(r.now().Unix(), kind, title))
	if err := os.WriteFile(path, []byte(markup), 0600); err != nil {
		return "", fmt.Errorf("failed to write %s page: %w", kind, err)
	}

	r.logger.Debug("rendered page", "kind", kind, "path", path, "bytes", len(markup))
	return path, nil
}

func (r *Renderer) loadTemplate(name string) (string, error) {
	if r.overrides != nil {
		content, err := fs.ReadFile(r.overrides, name)
		if err == nil {
			return string(content), nil
		}
		r.logger.Debug("template override not found, using built-in", "template", name)
	}
	content, err := fs.ReadFile(r.templates, name)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", name, err)
	}
	return string(content), nil
}

// Title joins the root names with commas.
func Title(roots []*core.RefObject) string {
	return strings.Join(core.Names(roots), ",")
}

// FileName returns "{unix}_{kind}_{title}" cut to 40 characters, plus
// ".html". Path separators in the title are replaced.
func FileName(unix int64, kind, title string) string {
	base := fmt.Sprintf("%d_%s_%s", unix, kind, title)
	base = strings.NewReplacer("/", "_", "\\", "_").Replace(base)
	if runes := []rune(base); len(runes) > maxFileNameBase {
		base = string(runes[:maxFileNameBase])
	}
	return base + ".html"
}
