package wrangling

import (
	"path/filepath"
	"strings"

	"chat-wrangler/transcribe"
)

// TranscriptionRecord is one row of the transcription table, keyed by filename.
type TranscriptionRecord struct {
	Filename    string
	Text        string
	Status      string
	IsSynthetic bool
}

// LoadTranscriptions reads a transcription table into a map keyed by the base
// name of each row's file_path. A later row replaces an earlier one with the same
// name.
func LoadTranscriptions(path string) (map[string]TranscriptionRecord, error) {
	rows, err := transcribe.ReadTable(path)
	if err != nil {
		return nil, err
	}
	table := make(map[string]TranscriptionRecord, len(rows))
	for _, r := range rows {
		name := filepath.Base(r.FilePath)
		table[name] = TranscriptionRecord{
			Filename:    name,
			Text:        strings.TrimSpace(r.Text),
			Status:      string(r.Status),
			IsSynthetic: r.IsSynthetic,
		}
	}
	return table, nil
}

// Integrate returns a copy of msgs with transcription fields joined on the exact
// media filename. Any matched row sets HasTranscription, whatever its status or
// text; enrichment still falls back to the raw content when the text is empty.
func Integrate(msgs []Message, table map[string]TranscriptionRecord) []Message {
	out := cloneMessages(msgs)
	for i := range out {
		out[i].HasTranscription = false
		out[i].TranscriptionText = ""
		out[i].TranscriptionStatus = ""
		out[i].IsSynthetic = false
		if out[i].MediaFilename == "" {
			continue
		}
		rec, ok := table[out[i].MediaFilename]
		if !ok {
			continue
		}
		out[i].TranscriptionText = rec.Text
		out[i].TranscriptionStatus = rec.Status
		out[i].IsSynthetic = rec.IsSynthetic
		out[i].HasTranscription = true
	}
	return out
}
