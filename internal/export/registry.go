// Package export renders the aggregate report views to output files. A
// registry keyed "type-format" maps the configured report type and format
// to a renderer; csv renderers stream rows, xlsx renderers build styled
// workbooks with a summary, a table of contents and per-item sheets.
package export

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/LaCapitainerie/openvasreporting/internal/report"
	"github.com/LaCapitainerie/openvasreporting/internal/severity"
	"github.com/LaCapitainerie/openvasreporting/internal/telemetry"
)

// Input bundles the views a renderer may read. Vulnerability and summary
// renderers read Vulnerabilities; host renderers read Hosts. Levels lists
// the severity bands to include, most severe first.
type Input struct {
	Vulnerabilities []*report.Vulnerability
	Hosts           report.ResultTree
	Levels          []severity.Level
}

// RenderFunc writes one view of the findings to path.
type RenderFunc func(in Input, path string) error

// Registry maps "type-format" keys to renderers.
type Registry struct {
	renderers map[string]RenderFunc
	log       *zap.Logger
}

// NewRegistry builds the registry with all built-in renderers registered.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		log: log,
		renderers: map[string]RenderFunc{
			"vulnerability-xlsx": renderVulnXLSX,
			"vulnerability-csv":  renderVulnCSV,
			"host-xlsx":          renderHostXLSX,
			"host-csv":           renderHostCSV,
			"summary-csv":        renderSummaryCSV,
		},
	}
}

// Supported reports whether a renderer is registered for the key.
func (r *Registry) Supported(key string) bool {
	_, ok := r.renderers[key]
	return ok
}

// Keys returns the registered renderer keys, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.renderers))
	for k := range r.renderers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Render dispatches to the renderer registered for key and writes the
// output file at path.
func (r *Registry) Render(ctx context.Context, key string, in Input, path string) error {
	_, span := telemetry.Tracer().Start(ctx, "Registry.Render")
	defer span.End()

	render, ok := r.renderers[key]
	if !ok {
		return fmt.Errorf("no renderer registered for %q (supported: %v)", key, r.Keys())
	}

	r.log.Info("rendering report",
		zap.String("renderer", key),
		zap.String("output", path))
	if err := render(in, path); err != nil {
		return fmt.Errorf("failed to render %s report: %w", key, err)
	}
	return nil
}
