package cleaning

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// FileStats describes one materialized file.
type FileStats struct {
	Path       string
	SizeBytes  int64
	TotalLines int
	TotalChars int
}

func (s FileStats) Name() string { return filepath.Base(s.Path) }

// AuditRecord compares the input and output of one transformation. Positive deltas
// mean the output is smaller.
type AuditRecord struct {
	StepName     string
	Input        FileStats
	Output       FileStats
	DeltaLines   int64
	DeltaBytes   int64
	DeltaChars   int64
	DeltaPercent float64
}

// Totals compares the original raw file with the final output of a run.
type Totals struct {
	OriginalBytes int64
	FinalBytes    int64
	DeltaLines    int64
	DeltaBytes    int64
	DeltaChars    int64
	DeltaPercent  float64
}

// StatFile measures path. Lines are counted the way a text reader splits them
// (\n, \r\n and lone \r all terminate a line; a trailing fragment counts) and a
// \r\n pair counts as one character.
func StatFile(path string) (FileStats, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return FileStats{}, fmt.Errorf("stat %s: %w", path, err)
	}
	content := string(b)
	return FileStats{
		Path:       path,
		SizeBytes:  int64(len(b)),
		TotalLines: countLines(content),
		TotalChars: utf8.RuneCountInString(content) - strings.Count(content, "\r\n"),
	}, nil
}

func countLines(s string) int {
	n := 0
	open := false
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch r {
		case '\r':
			if i < len(s) && s[i] == '\n' {
				i++
			}
			n++
			open = false
		case '\n', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
			n++
			open = false
		default:
			open = true
		}
	}
	if open {
		n++
	}
	return n
}

// AuditTransformation measures both files and computes the deltas between them.
func AuditTransformation(stepName, inputPath, outputPath string) (AuditRecord, error) {
	in, err := StatFile(inputPath)
	if err != nil {
		return AuditRecord{}, err
	}
	out, err := StatFile(outputPath)
	if err != nil {
		return AuditRecord{}, err
	}
	return compare(stepName, in, out), nil
}

func compare(stepName string, in, out FileStats) AuditRecord {
	deltaBytes := in.SizeBytes - out.SizeBytes
	return AuditRecord{
		StepName:     stepName,
		Input:        in,
		Output:       out,
		DeltaLines:   int64(in.TotalLines - out.TotalLines),
		DeltaBytes:   deltaBytes,
		DeltaChars:   int64(in.TotalChars - out.TotalChars),
		DeltaPercent: percentOf(deltaBytes, in.SizeBytes),
	}
}

func computeTotals(original, final FileStats) Totals {
	rec := compare("total", original, final)
	return Totals{
		OriginalBytes: original.SizeBytes,
		FinalBytes:    final.SizeBytes,
		DeltaLines:    rec.DeltaLines,
		DeltaBytes:    rec.DeltaBytes,
		DeltaChars:    rec.DeltaChars,
		DeltaPercent:  rec.DeltaPercent,
	}
}

func percentOf(delta, base int64) float64 {
	if base <= 0 {
		return 0
	}
	return float64(delta) * 100 / float64(base)
}
