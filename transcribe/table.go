package transcribe

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"chat-wrangler/fileutil"
)

// Status of one row in the transcription table.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Columns is the header written to progress and complete files.
var Columns = []string{
	"file_path",
	"full_path",
	"media_type",
	"size_mb",
	"transcription",
	"transcription_status",
	"transcription_language",
	"is_synthetic",
	"error_message",
}

// requiredColumns must be present in any table that is read back.
var requiredColumns = []string{"file_path", "transcription", "transcription_status"}

// Row is one media file in the transcription table.
type Row struct {
	// FilePath is the media filename as it appears in attachment references.
	FilePath     string
	FullPath     string
	MediaType    string
	SizeMB       float64
	Text         string
	Status       Status
	Language     string
	IsSynthetic  bool
	ErrorMessage string
}

// ReadTable loads a transcription table. Columns are matched by header name, so
// tables with extra or reordered columns are accepted; only file_path,
// transcription and transcription_status are required.
func ReadTable(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: empty transcription table", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, name)
		}
	}
	get := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var rows []Row
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		row := Row{
			FilePath:     strings.TrimSpace(get(rec, "file_path")),
			FullPath:     get(rec, "full_path"),
			MediaType:    get(rec, "media_type"),
			Text:         get(rec, "transcription"),
			Status:       Status(strings.TrimSpace(get(rec, "transcription_status"))),
			Language:     get(rec, "transcription_language"),
			ErrorMessage: get(rec, "error_message"),
		}
		if row.FilePath == "" {
			continue
		}
		if s := strings.TrimSpace(get(rec, "size_mb")); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %s: size_mb: %w", path, row.FilePath, err)
			}
			row.SizeMB = v
		}
		if s := strings.TrimSpace(get(rec, "is_synthetic")); s != "" {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return nil, fmt.Errorf("%s: row %s: is_synthetic: %w", path, row.FilePath, err)
			}
			row.IsSynthetic = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteTable replaces path with rows.
func WriteTable(path string, rows []Row) error {
	return fileutil.Write(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(Columns); err != nil {
			return err
		}
		for _, r := range rows {
			rec := []string{
				r.FilePath,
				r.FullPath,
				r.MediaType,
				strconv.FormatFloat(r.SizeMB, 'f', 4, 64),
				r.Text,
				string(r.Status),
				r.Language,
				strconv.FormatBool(r.IsSynthetic),
				r.ErrorMessage,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// Counts tallies rows by status.
func Counts(rows []Row) map[Status]int {
	out := map[Status]int{}
	for _, r := range rows {
		out[r.Status]++
	}
	return out
}
