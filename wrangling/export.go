package wrangling

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"chat-wrangler/fileutil"
)

// ExportTimeLayout renders Message.Timestamp in exported tables.
const ExportTimeLayout = "2006-01-02 15:04:05"

var (
	ColumnsFull = []string{
		"source_line", "date", "time", "timestamp", "sender", "raw_content", "message_type",
		"media_filename", "media_exists", "media_extension", "media_kind", "media_path",
		"has_transcription", "transcription_text", "transcription_status", "is_synthetic",
		"enriched_content",
	}
	ColumnsCore = []string{
		"timestamp", "sender", "message_type", "enriched_content",
		"media_filename", "has_transcription", "transcription_text", "is_synthetic",
	}
	ColumnsMinimal = []string{"timestamp", "sender", "message_type", "enriched_content"}
)

// Export formats.
const (
	FormatCSVFull    = "csv_full"
	FormatCSVCore    = "csv_core"
	FormatCSVMinimal = "csv_minimal"
	FormatSQLite     = "sqlite"
)

// DefaultExportFormats is used when no formats are configured.
var DefaultExportFormats = []string{FormatCSVFull, FormatCSVCore, FormatSQLite}

var csvExports = map[string]struct {
	file    string
	columns []string
}{
	FormatCSVFull:    {"messages_full.csv", ColumnsFull},
	FormatCSVCore:    {"messages.csv", ColumnsCore},
	FormatCSVMinimal: {"messages_minimal.csv", ColumnsMinimal},
}

// SQLiteFileName is the database written by the sqlite format.
const SQLiteFileName = "messages.db"

type ExportedFile struct {
	Format    string
	Path      string
	SizeBytes int64
	Columns   int
}

// ValidateFormats reports every unknown export format.
func ValidateFormats(formats []string) error {
	var bad []string
	for _, f := range formats {
		if _, ok := csvExports[f]; ok || f == FormatSQLite {
			continue
		}
		bad = append(bad, f)
	}
	if len(bad) > 0 {
		return fmt.Errorf("unknown export format(s): %s (valid: %s, %s, %s, %s)",
			strings.Join(bad, ", "), FormatCSVFull, FormatCSVCore, FormatCSVMinimal, FormatSQLite)
	}
	return nil
}

// Export writes msgs to dir in each of formats. Formats are validated before any
// file is written.
func Export(msgs []Message, dir string, formats []string) ([]ExportedFile, error) {
	if err := ValidateFormats(formats); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	out := make([]ExportedFile, 0, len(formats))
	for _, f := range formats {
		var (
			path    string
			columns int
		)
		if exp, ok := csvExports[f]; ok {
			path = filepath.Join(dir, exp.file)
			columns = len(exp.columns)
			if err := writeCSV(path, msgs, exp.columns); err != nil {
				return nil, err
			}
		} else {
			path = filepath.Join(dir, SQLiteFileName)
			columns = len(ColumnsCore)
			if err := writeSQLite(path, msgs); err != nil {
				return nil, err
			}
		}
		fi, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		out = append(out, ExportedFile{Format: f, Path: path, SizeBytes: fi.Size(), Columns: columns})
	}
	return out, nil
}

func writeCSV(path string, msgs []Message, columns []string) error {
	return fileutil.Write(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(columns); err != nil {
			return err
		}
		rec := make([]string, len(columns))
		for _, m := range msgs {
			for i, c := range columns {
				rec[i] = columnValue(m, c)
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func columnValue(m Message, column string) string {
	switch column {
	case "source_line":
		return strconv.Itoa(m.SourceLine)
	case "date":
		return m.Date
	case "time":
		return m.Time
	case "timestamp":
		return m.Timestamp.Format(ExportTimeLayout)
	case "sender":
		return m.Sender
	case "raw_content":
		return m.RawContent
	case "message_type":
		return string(m.Type)
	case "media_filename":
		return m.MediaFilename
	case "media_exists":
		return strconv.FormatBool(m.MediaExists)
	case "media_extension":
		return m.MediaExtension
	case "media_kind":
		return m.MediaKind
	case "media_path":
		return m.MediaPath
	case "has_transcription":
		return strconv.FormatBool(m.HasTranscription)
	case "transcription_text":
		return m.TranscriptionText
	case "transcription_status":
		return m.TranscriptionStatus
	case "is_synthetic":
		return strconv.FormatBool(m.IsSynthetic)
	case "enriched_content":
		return m.Content()
	}
	panic(fmt.Sprintf("wrangling: unknown column %q", column))
}
