package transcribe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/vertexai/genai"
)

func TestReadTable_AcceptsForeignColumnLayout(t *testing.T) {
	p := filepath.Join(t.TempDir(), "transcriptions.csv")
	body := "file_path,full_path,media_type,size_mb,transcription,transcription_status,transcription_language,transcription_confidence,is_synthetic,error_message\n" +
		"00000003-AUDIO-2024-11-28.opus,/m/00000003-AUDIO-2024-11-28.opus,audio,0.25,\"oi, tudo bem?\",completed,pt,,True,\n" +
		",,,,,pending,,,,\n" +
		"00000004-AUDIO-2024-11-28.opus,,audio,,,error,,,False,Arquivo não encontrado\n"
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	rows, err := ReadTable(p)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected the row without file_path skipped, got %d rows", len(rows))
	}
	if rows[0].Text != "oi, tudo bem?" || !rows[0].IsSynthetic || rows[0].SizeMB != 0.25 || rows[0].Status != StatusCompleted {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Status != StatusError || rows[1].ErrorMessage != "Arquivo não encontrado" {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
}

func TestReadTable_MissingRequiredColumn(t *testing.T) {
	p := filepath.Join(t.TempDir(), "t.csv")
	if err := os.WriteFile(p, []byte("file_path,transcription\nx.opus,hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadTable(p)
	if err == nil || !strings.Contains(err.Error(), "transcription_status") {
		t.Fatalf("expected missing column error, got %v", err)
	}
}

func TestWriteTable_HeaderAndRows(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out", "t.csv")
	rows := []Row{{FilePath: "a-AUDIO-1.opus", Text: "linha 1\nlinha 2", Status: StatusCompleted, IsSynthetic: true}}
	if err := WriteTable(p, rows); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), strings.Join(Columns, ",")+"\n") {
		t.Fatalf("unexpected header: %q", string(b))
	}
	got, err := ReadTable(p)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Text != "linha 1\nlinha 2" || !got[0].IsSynthetic {
		t.Fatalf("unexpected rows: %+v", got)
	}
}

func TestMimeTypeFor(t *testing.T) {
	cases := map[string]string{
		"a-AUDIO-1.opus": "audio/ogg",
		"a-AUDIO-1.MP3":  "audio/mpeg",
		"a-VIDEO-1.mp4":  "video/mp4",
		"a-AUDIO-1.m4a":  "audio/mp4",
		"a-FILE-1.bin":   "application/octet-stream",
	}
	for name, want := range cases {
		if got := mimeTypeFor(name); got != want {
			t.Fatalf("mimeTypeFor(%q)=%q want %q", name, got, want)
		}
	}
}

func TestExtractText(t *testing.T) {
	if got := extractText(nil); got != "" {
		t.Fatalf("expected empty text for nil response, got %q", got)
	}
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(" bom dia"), genai.Text(", tudo bem? ")}},
		}},
	}
	if got := extractText(resp); got != "bom dia, tudo bem?" {
		t.Fatalf("unexpected text: %q", got)
	}
}
