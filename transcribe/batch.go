package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	ProgressFileName = "transcriptions_progress.csv"
	CompleteFileName = "transcriptions.csv"

	DefaultSaveEvery    = 10
	DefaultMaxFileBytes = 25 << 20
)

// DefaultFormats are the media extensions picked up by a scan.
var DefaultFormats = []string{".opus", ".mp3", ".wav", ".mp4", ".m4a", ".webm", ".mpeg", ".mpga"}

// ErrFileTooLarge marks a media file over the configured size ceiling.
var ErrFileTooLarge = errors.New("file too large")

type Transcription struct {
	Text     string
	Language string
}

// Transcriber turns one media file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, media []byte) (Transcription, error)
}

type BatchConfig struct {
	MediaDir string
	// OutputDir holds the progress and complete tables.
	OutputDir    string
	SaveEvery    int
	MaxFileBytes int64
	Formats      []string
	Debug        bool
}

// Batch transcribes every supported media file once. It can be stopped and rerun
// at any point: finished rows are kept in a progress table and only pending rows
// are sent to the transcriber.
type Batch struct {
	cfg         BatchConfig
	transcriber Transcriber
	formats     map[string]bool
}

type Summary struct {
	Rows []Row
	// AlreadyComplete is set when the complete table existed and nothing ran.
	AlreadyComplete bool
	Processed       int
	Completed       int
	Errors          int
	Pending         int
	OutputPath      string
}

func NewBatch(cfg BatchConfig, transcriber Transcriber) (*Batch, error) {
	if strings.TrimSpace(cfg.MediaDir) == "" {
		return nil, fmt.Errorf("MediaDir is required")
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return nil, fmt.Errorf("OutputDir is required")
	}
	if transcriber == nil {
		return nil, fmt.Errorf("transcriber is required")
	}
	if cfg.SaveEvery <= 0 {
		cfg.SaveEvery = DefaultSaveEvery
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = DefaultMaxFileBytes
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = DefaultFormats
	}
	formats := make(map[string]bool, len(cfg.Formats))
	for _, f := range cfg.Formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if !strings.HasPrefix(f, ".") {
			f = "." + f
		}
		formats[f] = true
	}
	return &Batch{cfg: cfg, transcriber: transcriber, formats: formats}, nil
}

func (b *Batch) debugf(format string, args ...any) {
	if b == nil || !b.cfg.Debug {
		return
	}
	log.Printf(format, args...)
}

func (b *Batch) ProgressPath() string { return filepath.Join(b.cfg.OutputDir, ProgressFileName) }
func (b *Batch) CompletePath() string { return filepath.Join(b.cfg.OutputDir, CompleteFileName) }

// Run processes pending rows. When ctx is cancelled between rows, progress is
// saved and ctx.Err() is returned alongside the partial summary.
func (b *Batch) Run(ctx context.Context) (*Summary, error) {
	complete := b.CompletePath()
	if _, err := os.Stat(complete); err == nil {
		rows, err := ReadTable(complete)
		if err != nil {
			return nil, err
		}
		log.Printf("transcribe: %s already complete (delete it and %s to reprocess)", complete, ProgressFileName)
		sum := summarize(rows, 0, complete)
		sum.AlreadyComplete = true
		return sum, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	rows, err := b.loadOrScan()
	if err != nil {
		return nil, err
	}

	var pending []int
	for i := range rows {
		if rows[i].Status == StatusPending {
			pending = append(pending, i)
		}
	}
	counts := Counts(rows)
	log.Printf("transcribe: rows=%d completed=%d errors=%d pending=%d", len(rows), counts[StatusCompleted], counts[StatusError], len(pending))

	processed := 0
	for _, i := range pending {
		if err := ctx.Err(); err != nil {
			return b.interrupt(rows, processed, err)
		}
		if err := b.processRow(ctx, &rows[i]); err != nil {
			return b.interrupt(rows, processed, err)
		}
		processed++
		row := rows[i]
		if row.Status == StatusError {
			log.Printf("transcribe: [%d/%d] %s: %s", processed, len(pending), row.FilePath, row.ErrorMessage)
		} else {
			b.debugf("transcribe: [%d/%d] %s ok (%d chars)", processed, len(pending), row.FilePath, len(row.Text))
		}
		if processed%b.cfg.SaveEvery == 0 {
			if err := WriteTable(b.ProgressPath(), rows); err != nil {
				return nil, err
			}
			b.debugf("transcribe: progress saved after %d rows", processed)
		}
	}

	if err := WriteTable(complete, rows); err != nil {
		return nil, err
	}
	if err := os.Remove(b.ProgressPath()); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return summarize(rows, processed, complete), nil
}

func (b *Batch) interrupt(rows []Row, processed int, cause error) (*Summary, error) {
	progress := b.ProgressPath()
	if err := WriteTable(progress, rows); err != nil {
		return nil, errors.Join(cause, err)
	}
	log.Printf("transcribe: interrupted after %d rows, progress saved to %s", processed, progress)
	return summarize(rows, processed, progress), cause
}

// loadOrScan resumes from the progress table when there is one, adding rows for
// media files that appeared since it was written.
func (b *Batch) loadOrScan() ([]Row, error) {
	scanned, err := b.Scan()
	if err != nil {
		return nil, err
	}
	progress := b.ProgressPath()
	if _, err := os.Stat(progress); os.IsNotExist(err) {
		b.debugf("transcribe: new table with %d files", len(scanned))
		return scanned, nil
	} else if err != nil {
		return nil, err
	}

	rows, err := ReadTable(progress)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(rows))
	for _, r := range rows {
		known[r.FilePath] = true
	}
	added := 0
	for _, r := range scanned {
		if !known[r.FilePath] {
			rows = append(rows, r)
			added++
		}
	}
	b.debugf("transcribe: resumed %s rows=%d new=%d", progress, len(rows), added)
	return rows, nil
}

// Scan lists the supported media files in MediaDir as pending rows.
func (b *Batch) Scan() ([]Row, error) {
	entries, err := os.ReadDir(b.cfg.MediaDir)
	if err != nil {
		return nil, fmt.Errorf("media directory: %w", err)
	}
	var rows []Row
	for _, e := range entries {
		if !e.Type().IsRegular() || !b.formats[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("media directory: %w", err)
		}
		mediaType := "unknown"
		if parts := strings.Split(e.Name(), "-"); len(parts) >= 2 {
			mediaType = strings.ToLower(parts[1])
		}
		rows = append(rows, Row{
			FilePath:  e.Name(),
			FullPath:  filepath.Join(b.cfg.MediaDir, e.Name()),
			MediaType: mediaType,
			SizeMB:    float64(info.Size()) / (1 << 20),
			Status:    StatusPending,
		})
	}
	return rows, nil
}

// CheckSize returns an ErrFileTooLarge error when size exceeds limit.
func CheckSize(size, limit int64) error {
	if size > limit {
		return fmt.Errorf("%w: %s (max %s)", ErrFileTooLarge, humanize.IBytes(uint64(size)), humanize.IBytes(uint64(limit)))
	}
	return nil
}

// processRow fills in row. Per-file failures are recorded on the row; the returned
// error is only the context error when the run was cancelled mid-call, in which
// case the row stays pending.
func (b *Batch) processRow(ctx context.Context, row *Row) error {
	path := filepath.Join(b.cfg.MediaDir, row.FilePath)
	row.FullPath = path

	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			recordError(row, fmt.Errorf("file not found: %s", row.FilePath))
		} else {
			recordError(row, err)
		}
		return nil
	}
	if err := CheckSize(fi.Size(), b.cfg.MaxFileBytes); err != nil {
		recordError(row, err)
		return nil
	}
	media, err := os.ReadFile(path)
	if err != nil {
		recordError(row, err)
		return nil
	}

	tr, err := b.transcriber.Transcribe(ctx, row.FilePath, media)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		recordError(row, err)
		return nil
	}
	row.Text = strings.TrimSpace(tr.Text)
	row.Language = tr.Language
	row.Status = StatusCompleted
	row.ErrorMessage = ""
	return nil
}

func recordError(row *Row, err error) {
	row.Text = ""
	row.Language = ""
	row.Status = StatusError
	row.ErrorMessage = err.Error()
}

func summarize(rows []Row, processed int, path string) *Summary {
	c := Counts(rows)
	return &Summary{
		Rows:       rows,
		Processed:  processed,
		Completed:  c[StatusCompleted],
		Errors:     c[StatusError],
		Pending:    c[StatusPending],
		OutputPath: path,
	}
}
