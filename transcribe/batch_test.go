package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type mockTranscriber struct {
	mu     sync.Mutex
	calls  []string
	failN  int
	onCall func(n int, filename string)
}

func (m *mockTranscriber) Transcribe(ctx context.Context, filename string, media []byte) (Transcription, error) {
	m.mu.Lock()
	m.calls = append(m.calls, filename)
	n := len(m.calls)
	fail := m.failN > 0
	if fail {
		m.failN--
	}
	hook := m.onCall
	m.mu.Unlock()

	if hook != nil {
		hook(n, filename)
	}
	if fail {
		return Transcription{}, errors.New("mock transcription failure")
	}
	return Transcription{Text: " texto de " + string(media) + " ", Language: "pt"}, nil
}

func (m *mockTranscriber) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func setupMedia(t *testing.T, files map[string]string) (mediaDir, outDir string) {
	t.Helper()
	tmp := t.TempDir()
	mediaDir = filepath.Join(tmp, "media")
	outDir = filepath.Join(tmp, "processed")
	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(mediaDir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return mediaDir, outDir
}

func rowByFile(t *testing.T, rows []Row, name string) Row {
	t.Helper()
	for _, r := range rows {
		if r.FilePath == name {
			return r
		}
	}
	t.Fatalf("row %s not found", name)
	return Row{}
}

func TestBatchRun_TranscribesSupportedFilesAndRetiresProgress(t *testing.T) {
	mediaDir, outDir := setupMedia(t, map[string]string{
		"00000001-AUDIO-2024-11-28.opus": "a1",
		"00000002-VIDEO-2024-11-28.mp4":  "v2",
		"00000003-PHOTO-2024-11-28.jpg":  "p3",
	})
	mock := &mockTranscriber{}
	b, err := NewBatch(BatchConfig{MediaDir: mediaDir, OutputDir: outDir}, mock)
	if err != nil {
		t.Fatal(err)
	}

	sum, err := b.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(mock.Calls()) != 2 {
		t.Fatalf("expected 2 transcriber calls, got %v", mock.Calls())
	}
	if sum.Completed != 2 || sum.Errors != 0 || sum.Pending != 0 || sum.Processed != 2 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if _, err := os.Stat(b.ProgressPath()); !os.IsNotExist(err) {
		t.Fatalf("expected progress file removed, stat err=%v", err)
	}

	rows, err := ReadTable(b.CompletePath())
	if err != nil {
		t.Fatal(err)
	}
	audio := rowByFile(t, rows, "00000001-AUDIO-2024-11-28.opus")
	if audio.Status != StatusCompleted || audio.Text != "texto de a1" || audio.Language != "pt" || audio.MediaType != "audio" {
		t.Fatalf("unexpected audio row: %+v", audio)
	}
	if audio.IsSynthetic {
		t.Fatalf("scanned rows are not synthetic")
	}
}

func TestBatchRun_CompleteFileShortCircuits(t *testing.T) {
	mediaDir, outDir := setupMedia(t, map[string]string{"x-AUDIO-1.opus": "a"})
	mock := &mockTranscriber{}
	b, err := NewBatch(BatchConfig{MediaDir: mediaDir, OutputDir: outDir}, mock)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	// A new file appears, but the complete table wins.
	if err := os.WriteFile(filepath.Join(mediaDir, "y-AUDIO-2.opus"), []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	sum, err := b.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !sum.AlreadyComplete || sum.Processed != 0 || len(sum.Rows) != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if len(mock.Calls()) != 1 {
		t.Fatalf("transcriber called again: %v", mock.Calls())
	}
}

func TestBatchRun_RecordsPerFileErrorsAndContinues(t *testing.T) {
	mediaDir, outDir := setupMedia(t, map[string]string{
		"a-AUDIO-1.opus": "small",
		"b-AUDIO-2.opus": "this one is far too large",
		"c-AUDIO-3.opus": "ok",
	})
	mock := &mockTranscriber{failN: 1}
	b, err := NewBatch(BatchConfig{MediaDir: mediaDir, OutputDir: outDir, MaxFileBytes: 10}, mock)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := b.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Completed != 1 || sum.Errors != 2 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	failed := rowByFile(t, sum.Rows, "a-AUDIO-1.opus")
	if failed.Status != StatusError || !strings.Contains(failed.ErrorMessage, "mock transcription failure") {
		t.Fatalf("unexpected failed row: %+v", failed)
	}
	large := rowByFile(t, sum.Rows, "b-AUDIO-2.opus")
	if large.Status != StatusError || !strings.HasPrefix(large.ErrorMessage, "file too large") {
		t.Fatalf("unexpected large row: %+v", large)
	}
	if got := mock.Calls(); len(got) != 2 || got[1] != "c-AUDIO-3.opus" {
		t.Fatalf("large file should not reach the transcriber: %v", got)
	}
}

func TestBatchRun_CancelSavesProgressAndResumes(t *testing.T) {
	mediaDir, outDir := setupMedia(t, map[string]string{
		"a-AUDIO-1.opus": "1",
		"b-AUDIO-2.opus": "2",
		"c-AUDIO-3.opus": "3",
		"d-AUDIO-4.opus": "4",
		"e-AUDIO-5.opus": "5",
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var b *Batch
	mock := &mockTranscriber{}
	mock.onCall = func(n int, _ string) {
		if n == 3 {
			rows, err := ReadTable(b.ProgressPath())
			if err != nil {
				t.Errorf("expected progress saved after 2 rows: %v", err)
				return
			}
			if Counts(rows)[StatusCompleted] != 2 {
				t.Errorf("unexpected progress counts: %v", Counts(rows))
			}
			cancel()
		}
	}
	var err error
	b, err = NewBatch(BatchConfig{MediaDir: mediaDir, OutputDir: outDir, SaveEvery: 2}, mock)
	if err != nil {
		t.Fatal(err)
	}

	sum, err := b.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if sum == nil || sum.Processed != 3 || sum.Pending != 2 {
		t.Fatalf("unexpected partial summary: %+v", sum)
	}
	if _, err := os.Stat(b.CompletePath()); !os.IsNotExist(err) {
		t.Fatalf("complete file must not exist after interruption")
	}
	rows, err := ReadTable(b.ProgressPath())
	if err != nil {
		t.Fatal(err)
	}
	if c := Counts(rows); c[StatusCompleted] != 3 || c[StatusPending] != 2 {
		t.Fatalf("unexpected progress counts: %v", c)
	}

	resumed := &mockTranscriber{}
	b2, err := NewBatch(BatchConfig{MediaDir: mediaDir, OutputDir: outDir, SaveEvery: 2}, resumed)
	if err != nil {
		t.Fatal(err)
	}
	sum, err = b2.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := resumed.Calls(); len(got) != 2 || got[0] != "d-AUDIO-4.opus" || got[1] != "e-AUDIO-5.opus" {
		t.Fatalf("resume should only process pending rows, got %v", got)
	}
	if sum.Completed != 5 {
		t.Fatalf("unexpected final summary: %+v", sum)
	}
	if _, err := os.Stat(b2.ProgressPath()); !os.IsNotExist(err) {
		t.Fatalf("expected progress file removed")
	}
}

func TestBatchRun_MissingFileFromProgressTable(t *testing.T) {
	mediaDir, outDir := setupMedia(t, nil)
	progress := filepath.Join(outDir, ProgressFileName)
	if err := WriteTable(progress, []Row{{FilePath: "gone-AUDIO-1.opus", Status: StatusPending}}); err != nil {
		t.Fatal(err)
	}
	mock := &mockTranscriber{}
	b, err := NewBatch(BatchConfig{MediaDir: mediaDir, OutputDir: outDir}, mock)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := b.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	row := rowByFile(t, sum.Rows, "gone-AUDIO-1.opus")
	if row.Status != StatusError || !strings.Contains(row.ErrorMessage, "file not found") {
		t.Fatalf("unexpected row: %+v", row)
	}
	if len(mock.Calls()) != 0 {
		t.Fatalf("transcriber should not be called for a missing file")
	}
}

func TestBatchRun_MissingMediaDir(t *testing.T) {
	tmp := t.TempDir()
	b, err := NewBatch(BatchConfig{MediaDir: filepath.Join(tmp, "nope"), OutputDir: tmp}, &mockTranscriber{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Run(context.Background()); err == nil {
		t.Fatalf("expected error for missing media dir")
	}
}

func TestNewBatch_Validation(t *testing.T) {
	if _, err := NewBatch(BatchConfig{OutputDir: "x"}, &mockTranscriber{}); err == nil {
		t.Fatalf("expected error for missing MediaDir")
	}
	if _, err := NewBatch(BatchConfig{MediaDir: "x"}, &mockTranscriber{}); err == nil {
		t.Fatalf("expected error for missing OutputDir")
	}
	if _, err := NewBatch(BatchConfig{MediaDir: "x", OutputDir: "y"}, nil); err == nil {
		t.Fatalf("expected error for nil transcriber")
	}
}

func TestCheckSize(t *testing.T) {
	if err := CheckSize(25<<20, DefaultMaxFileBytes); err != nil {
		t.Fatalf("size at the ceiling is allowed: %v", err)
	}
	err := CheckSize(30<<20, DefaultMaxFileBytes)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if err.Error() != "file too large: 30 MiB (max 25 MiB)" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
