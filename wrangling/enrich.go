package wrangling

import "fmt"

// EnrichContent renders the body used for export: the raw content, or for
// transcribed media a labelled transcription followed by the source filename.
func EnrichContent(m Message) string {
	if !m.HasTranscription || m.TranscriptionText == "" {
		return m.RawContent
	}
	kind := m.MediaKind
	if kind == "" {
		kind = "MEDIA"
	}
	orphan := ""
	if m.IsSynthetic {
		orphan = " - ÓRFÃO"
	}
	return fmt.Sprintf("[%s TRANSCRITO%s] %s\n[Arquivo: %s]", kind, orphan, m.TranscriptionText, m.MediaFilename)
}

// Enrich returns a copy of msgs with EnrichedContent set on every message.
func Enrich(msgs []Message) []Message {
	out := cloneMessages(msgs)
	for i := range out {
		out[i].EnrichedContent = EnrichContent(out[i])
	}
	return out
}
