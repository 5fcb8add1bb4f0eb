package transcribe

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

const transcriberSystemPrompt = "You are a speech-to-text engine. You transcribe the speech in an audio or video recording verbatim, in the language it is spoken."

const transcriberUserPrompt = `Transcribe the speech in the attached recording.

Return ONLY the transcription text. Do not describe the recording, do not translate, and do not add timestamps, speaker labels or any preamble. If there is no intelligible speech, return an empty response.`

type VertexConfig struct {
	ProjectID string
	Region    string
	// Model defaults to gemini-1.5-pro.
	Model string
	// Language is reported on every transcription; it is also given to the model
	// as a hint when set.
	Language string
}

// VertexTranscriber transcribes media with a Gemini model on Vertex AI.
type VertexTranscriber struct {
	model      *genai.GenerativeModel
	baseClient *genai.Client
	language   string
}

func NewVertexTranscriber(ctx context.Context, cfg VertexConfig) (*VertexTranscriber, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("NewVertexTranscriber: project and region cannot be empty")
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}

	baseClient, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := baseClient.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(transcriberSystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}

	return &VertexTranscriber{model: model, baseClient: baseClient, language: cfg.Language}, nil
}

func (t *VertexTranscriber) Transcribe(ctx context.Context, filename string, media []byte) (Transcription, error) {
	prompt := transcriberUserPrompt
	if t.language != "" {
		prompt += "\n\nThe recording is most likely in language: " + t.language + "."
	}
	blob := genai.Blob{MIMEType: mimeTypeFor(filename), Data: media}
	resp, err := t.model.GenerateContent(ctx, blob, genai.Text(prompt))
	if err != nil {
		return Transcription{}, fmt.Errorf("GenerateContent: %w", err)
	}
	return Transcription{Text: extractText(resp), Language: t.language}, nil
}

func (t *VertexTranscriber) Close() error {
	if t.baseClient != nil {
		return t.baseClient.Close()
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}

func mimeTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".opus":
		return "audio/ogg"
	case ".mp3", ".mpeg", ".mpga":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	}
	return "application/octet-stream"
}
