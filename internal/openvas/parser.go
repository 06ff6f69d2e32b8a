package openvas

import (
	"bufio"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/LaCapitainerie/openvasreporting/internal/config"
	"github.com/LaCapitainerie/openvasreporting/internal/report"
	"github.com/LaCapitainerie/openvasreporting/internal/telemetry"
)

var (
	// ErrInvalidFormat marks an input file that does not look like an
	// OpenVAS report. It fails the whole batch.
	ErrInvalidFormat = errors.New("invalid report format")

	// ErrNoResults marks a by-host build whose policy + input combination
	// produced no findings at all. Deliberately fatal: an empty report
	// would silently hide a misconfigured filter.
	ErrNoResults = errors.New("no results after filtering; check level and filter settings")
)

// headerMarkers must all appear in a report's declaratory header line.
var headerMarkers = []string{"extension", "format_id", "content_type"}

// Parser reads report files and builds the aggregate views. The zero value
// is not usable; construct with NewParser.
type Parser struct {
	policy  *config.Policy
	workers int
	log     *zap.Logger
}

// NewParser compiles the config's filter policy into a Parser.
func NewParser(cfg *config.Config, log *zap.Logger) (*Parser, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter policy: %w", err)
	}
	workers := cfg.Parse.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Parser{policy: policy, workers: workers, log: log}, nil
}

// Policy returns the compiled filter policy, for renderers that need the
// included band list.
func (p *Parser) Policy() *config.Policy {
	return p.policy
}

// ByVulnerability builds the by-vulnerability view: one Vulnerability per
// unique finding id carrying every (host, port) occurrence. An empty result
// is not an error here — renderers of this view may legitimately emit an
// empty document; callers wanting a hard failure check the length.
func (p *Parser) ByVulnerability(ctx context.Context, files []string) ([]*report.Vulnerability, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "Parser.ByVulnerability")
	defer span.End()

	batches, err := p.extractAll(ctx, files)
	if err != nil {
		return nil, err
	}

	// Single-threaded reduction keeps first-seen-wins and occurrence
	// insertion order deterministic across runs.
	collector := report.NewVulnCollector(p.log)
	for _, records := range batches {
		for _, rec := range records {
			collector.Add(rec)
		}
	}

	span.SetAttributes(attribute.Int("findings", collector.Len()))
	p.log.Info("Built by-vulnerability view",
		zap.Int("files", len(files)),
		zap.Int("findings", collector.Len()),
	)
	return collector.Vulnerabilities(), nil
}

// ByHost builds the host-keyed ResultTree. Unlike ByVulnerability, an empty
// tree fails with ErrNoResults.
func (p *Parser) ByHost(ctx context.Context, files []string) (report.ResultTree, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "Parser.ByHost")
	defer span.End()

	batches, err := p.extractAll(ctx, files)
	if err != nil {
		return nil, err
	}

	tree := report.NewResultTree()
	for _, records := range batches {
		for _, rec := range records {
			tree.AddRecord(rec)
		}
	}

	if len(tree) == 0 {
		return nil, ErrNoResults
	}

	span.SetAttributes(attribute.Int("hosts", len(tree)))
	p.log.Info("Built by-host view",
		zap.Int("files", len(files)),
		zap.Int("hosts", len(tree)),
	)
	return tree, nil
}

// extractAll validates every file header up front, then runs per-file
// extraction on a bounded worker pool. Results are returned indexed by the
// input file position so the reduction step preserves file order.
func (p *Parser) extractAll(ctx context.Context, files []string) ([][]report.Record, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files given")
	}
	for _, path := range files {
		if err := validateHeader(path); err != nil {
			return nil, err
		}
	}

	batches := make([][]report.Record, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, p.workers)
	for i, path := range files {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			batches[i], errs[i] = p.parseFile(ctx, path)
		}(i, path)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return batches, nil
}

// parseFile decodes one report file and extracts its records in document
// order. Rejected records are skipped silently; they are not errors.
func (p *Parser) parseFile(ctx context.Context, path string) ([]report.Record, error) {
	_, span := telemetry.Tracer().Start(ctx, "Parser.parseFile")
	defer span.End()
	span.SetAttributes(attribute.String("file", path))

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report: %w", err)
	}
	defer f.Close()

	var doc reportXML
	if err := xml.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFormat, path, err)
	}

	results := doc.results()
	var records []report.Record
	for _, raw := range results {
		if rec, ok := extractRecord(raw, p.policy); ok {
			records = append(records, rec)
		}
	}

	span.SetAttributes(
		attribute.Int("results", len(results)),
		attribute.Int("records", len(records)),
	)
	p.log.Debug("Parsed report file",
		zap.String("file", path),
		zap.Int("results", len(results)),
		zap.Int("extracted", len(records)),
	)
	return records, nil
}

// validateHeader checks the declaratory header line before a full parse:
// the root element must be <report> and the line must carry the extension,
// format_id and content_type attributes. Failing this check fails the whole
// batch, never a single record.
func validateHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open report: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "<?xml") {
			continue
		}
		if !strings.HasPrefix(line, "<report") {
			return fmt.Errorf("%w: %s: root element is not <report>", ErrInvalidFormat, path)
		}
		for _, marker := range headerMarkers {
			if !strings.Contains(line, marker) {
				return fmt.Errorf("%w: %s: missing %s attribute", ErrInvalidFormat, path, marker)
			}
		}
		return nil
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read report header: %w", err)
	}
	return fmt.Errorf("%w: %s: empty file", ErrInvalidFormat, path)
}
