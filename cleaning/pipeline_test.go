package cleaning

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const messyTranscript = "\u200e[28/11/24, 19:30:05] Marlon:\n" +
	"[28/11/24, 19:30:05] Marlon: \u200e<attached: 00000001-PHOTO-2024-11-28-19-30-05.jpg>\n" +
	"[28/11/24, 19:30:06] Marlon: \u200e<attached: 00000002-PHOTO-2024-11-28-19-30-06.jpg>\n" +
	"\n" +
	"[28/11/24, 19:31:00] Lê 🖤: primeira\t\tlinha   \n" +
	"   segunda linha\n" +
	"\n" +
	"[28/11/24, 19:32:10] Marlon: \u200e<attached: 00000003-AUDIO-2024-11-28-19-32-10.opus>\n"

func writeRaw(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "raw-data.txt")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	reg := NewRegistry(RegistryOptions{Participants: []Participant{
		{Name: "Marlon", Token: "P1"},
		{Name: "Lê 🖤", Token: "P2"},
	}})
	p, err := NewPipeline(reg, false)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func allIDs() []string {
	ids := make([]string, 0, len(DefaultOrder))
	for _, id := range DefaultOrder {
		ids = append(ids, string(id))
	}
	return ids
}

func TestPipelineRun_UnknownStepWritesNothing(t *testing.T) {
	raw := writeRaw(t, messyTranscript)
	outDir := filepath.Join(t.TempDir(), "interim")

	_, err := newTestPipeline(t).Run([]string{"u200e", "nope", "also_nope"}, raw, outDir)
	var unknown *UnknownStepError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownStepError, got %v", err)
	}
	if len(unknown.Invalid) != 2 || unknown.Invalid[0] != "nope" {
		t.Fatalf("unexpected invalid ids: %v", unknown.Invalid)
	}
	if len(unknown.Valid) != len(DefaultOrder) {
		t.Fatalf("expected every valid id listed, got %v", unknown.Valid)
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Fatalf("expected output dir not created, stat err=%v", err)
	}
}

func TestPipelineRun_MissingRawFile(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "interim")
	_, err := newTestPipeline(t).Run([]string{"u200e"}, filepath.Join(t.TempDir(), "missing.txt"), outDir)
	if err == nil {
		t.Fatalf("expected error for missing raw file")
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Fatalf("expected output dir not created, stat err=%v", err)
	}
}

func TestPipelineRun_ChainsOutputs(t *testing.T) {
	raw := writeRaw(t, messyTranscript)
	outDir := filepath.Join(t.TempDir(), "interim")

	res, err := newTestPipeline(t).Run([]string{"u200e", "timestamps"}, raw, outDir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(outDir, "raw-data_cln1.txt"), filepath.Join(outDir, "raw-data_cln2.txt")}
	got := res.Outputs()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("unexpected outputs: %v", got)
	}
	if res.FinalOutput != want[1] {
		t.Fatalf("unexpected final output: %s", res.FinalOutput)
	}
	for _, p := range want {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("intermediate file missing: %v", err)
		}
	}
	b, err := os.ReadFile(res.FinalOutput)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "\u200e") || strings.Contains(string(b), "[28/11/24,") {
		t.Fatalf("step 2 did not consume step 1 output: %q", string(b))
	}
	if res.Metrics()[1]["chars_removed"] != 4 {
		t.Fatalf("unexpected step 1 metrics: %v", res.Metrics()[1])
	}
}

func TestPipelineRun_AuditAdditivity(t *testing.T) {
	raw := writeRaw(t, messyTranscript)
	res, err := newTestPipeline(t).Run(allIDs(), raw, filepath.Join(t.TempDir(), "interim"))
	if err != nil {
		t.Fatal(err)
	}
	var bytes, lines, chars int64
	for _, a := range res.Audits() {
		bytes += a.DeltaBytes
		lines += a.DeltaLines
		chars += a.DeltaChars
	}
	if bytes != res.Totals.DeltaBytes || lines != res.Totals.DeltaLines || chars != res.Totals.DeltaChars {
		t.Fatalf("per-step deltas (%d,%d,%d) do not add up to totals %+v", bytes, lines, chars, res.Totals)
	}
	if res.Totals.OriginalBytes != int64(len(messyTranscript)) {
		t.Fatalf("unexpected original size: %d", res.Totals.OriginalBytes)
	}
	if res.Totals.DeltaBytes <= 0 || res.Totals.DeltaPercent <= 0 {
		t.Fatalf("expected the cleaning to shrink the file: %+v", res.Totals)
	}

	b, err := os.ReadFile(res.FinalOutput)
	if err != nil {
		t.Fatal(err)
	}
	want := "28/11/24 19:30:05 P1: <attached: 00000001-PHOTO-2024-11-28-19-30-05.jpg>\n" +
		"28/11/24 19:30:06 P1: <attached: 00000002-PHOTO-2024-11-28-19-30-06.jpg>\n" +
		"28/11/24 19:31:00 P2: primeira linha\n" +
		"segunda linha\n" +
		"28/11/24 19:32:10 P1: <attached: 00000003-AUDIO-2024-11-28-19-32-10.opus>\n"
	if string(b) != want {
		t.Fatalf("unexpected final output:\n%s", string(b))
	}
}

func TestPipelineRun_WorkedExample(t *testing.T) {
	raw := writeRaw(t, "[28/11/24, 19:30:05] Marlon: <attached: IMG-AUDIO-0001.opus>\n")
	res, err := newTestPipeline(t).Run([]string{"anonymize", "timestamps"}, raw, filepath.Join(t.TempDir(), "interim"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(res.FinalOutput)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "28/11/24 19:30:05 P1: <attached: IMG-AUDIO-0001.opus>\n" {
		t.Fatalf("unexpected output: %q", string(b))
	}
	if res.Steps[0].Metrics["Marlon"] != 1 || res.Steps[1].Metrics["lines_rewritten"] != 1 {
		t.Fatalf("unexpected metrics: %v %v", res.Steps[0].Metrics, res.Steps[1].Metrics)
	}
	// "Marlon" -> "P1" saves 4 bytes, dropping "[", ",", "]" saves 3.
	if res.Totals.DeltaBytes != 7 {
		t.Fatalf("unexpected byte delta: %d", res.Totals.DeltaBytes)
	}
}

func TestPipelineRun_EmptyInputHasZeroPercent(t *testing.T) {
	raw := writeRaw(t, "")
	res, err := newTestPipeline(t).Run(allIDs(), raw, filepath.Join(t.TempDir(), "interim"))
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range res.Audits() {
		if a.DeltaPercent != 0 || a.Input.SizeBytes != 0 {
			t.Fatalf("unexpected audit for empty input: %+v", a)
		}
	}
	if res.Totals.DeltaPercent != 0 {
		t.Fatalf("unexpected totals: %+v", res.Totals)
	}
}

func TestPipelineRun_EmptyOrderReturnsRawFile(t *testing.T) {
	raw := writeRaw(t, messyTranscript)
	res, err := newTestPipeline(t).Run(nil, raw, filepath.Join(t.TempDir(), "interim"))
	if err != nil {
		t.Fatal(err)
	}
	if res.FinalOutput != raw || len(res.Steps) != 0 || res.Totals.DeltaBytes != 0 {
		t.Fatalf("unexpected result for empty order: %+v", res)
	}
}

func TestPipelineRun_RepeatedStepIsAllowed(t *testing.T) {
	raw := writeRaw(t, messyTranscript)
	res, err := newTestPipeline(t).Run([]string{"whitespace", "whitespace"}, raw, filepath.Join(t.TempDir(), "interim"))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(res.Steps))
	}
	if res.Steps[1].Audit.DeltaBytes != 0 || res.Steps[1].Metrics["bytes_saved"] != 0 {
		t.Fatalf("second whitespace pass changed the file: %+v", res.Steps[1])
	}
	if !strings.Contains(res.Summary(), "2. Normalize whitespace") {
		t.Fatalf("summary missing step row:\n%s", res.Summary())
	}
}
