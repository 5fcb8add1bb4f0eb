package cleaning

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

type StepResult struct {
	// Position is 1-based and matches the _cln{k} suffix of Output.
	Position int
	StepID   StepID
	Name     string
	Output   string
	Metrics  StepMetrics
	Audit    AuditRecord
}

type RunResult struct {
	Input       string
	OutputDir   string
	StartedAt   time.Time
	Original    FileStats
	Steps       []StepResult
	FinalOutput string
	Totals      Totals
}

// Outputs returns the step output paths in execution order.
func (r *RunResult) Outputs() []string {
	out := make([]string, 0, len(r.Steps))
	for _, s := range r.Steps {
		out = append(out, s.Output)
	}
	return out
}

func (r *RunResult) Audits() []AuditRecord {
	out := make([]AuditRecord, 0, len(r.Steps))
	for _, s := range r.Steps {
		out = append(out, s.Audit)
	}
	return out
}

// Metrics returns each step's metrics keyed by its 1-based position, so the same
// step id may appear more than once.
func (r *RunResult) Metrics() map[int]StepMetrics {
	out := make(map[int]StepMetrics, len(r.Steps))
	for _, s := range r.Steps {
		out[s.Position] = s.Metrics
	}
	return out
}

type Pipeline struct {
	registry *Registry
	debug    bool
}

func NewPipeline(registry *Registry, debug bool) (*Pipeline, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	return &Pipeline{registry: registry, debug: debug}, nil
}

func (p *Pipeline) debugf(format string, args ...any) {
	if p == nil || !p.debug {
		return
	}
	log.Printf(format, args...)
}

// OutputPath names the file written by the step at 1-based position k.
func OutputPath(rawFile, outputDir string, k int) string {
	base := filepath.Base(rawFile)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, fmt.Sprintf("%s_cln%d.txt", stem, k))
}

// Run applies the steps named by order to rawFile, each reading the previous
// step's output. Every id is validated and the raw file checked before anything
// is written. Intermediate files are kept.
func (p *Pipeline) Run(order []string, rawFile, outputDir string) (*RunResult, error) {
	steps, err := p.registry.Resolve(order)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(outputDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	fi, err := os.Stat(rawFile)
	if err != nil {
		return nil, fmt.Errorf("raw file: %w", err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("raw file %s is a directory", rawFile)
	}
	original, err := StatFile(rawFile)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}

	res := &RunResult{
		Input:     rawFile,
		OutputDir: outputDir,
		StartedAt: time.Now().UTC(),
		Original:  original,
		Steps:     make([]StepResult, 0, len(steps)),
	}
	p.debugf("clean: input=%q size=%s lines=%d steps=%d", rawFile, humanize.IBytes(uint64(original.SizeBytes)), original.TotalLines, len(steps))

	prev := rawFile
	final := original
	for i, step := range steps {
		k := i + 1
		out := OutputPath(rawFile, outputDir, k)
		metrics, err := step.Transform(prev, out)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", k, step.ID, err)
		}
		audit, err := AuditTransformation(step.Name, prev, out)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): audit: %w", k, step.ID, err)
		}
		p.debugf("clean: step %d %s -> %s delta_bytes=%d delta_lines=%d metrics=%v", k, step.ID, filepath.Base(out), audit.DeltaBytes, audit.DeltaLines, metrics)
		res.Steps = append(res.Steps, StepResult{
			Position: k,
			StepID:   step.ID,
			Name:     step.Name,
			Output:   out,
			Metrics:  metrics,
			Audit:    audit,
		})
		prev = out
		final = audit.Output
	}

	res.FinalOutput = prev
	res.Totals = computeTotals(original, final)
	return res, nil
}
