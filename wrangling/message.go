package wrangling

import "time"

// MessageType is the category the classifier assigns to a message body.
type MessageType string

const (
	TypeMessageDeleted   MessageType = "message_deleted"
	TypeMessageEdited    MessageType = "message_edited"
	TypeMissedCall       MessageType = "missed_call"
	TypeVoiceCall        MessageType = "voice_call"
	TypeSystemMessage    MessageType = "system_message"
	TypeAudioOmitted     MessageType = "audio_omitted"
	TypeImageOmitted     MessageType = "image_omitted"
	TypeVideoOmitted     MessageType = "video_omitted"
	TypeVideoNoteOmitted MessageType = "video_note_omitted"
	TypeStickerOmitted   MessageType = "sticker_omitted"
	TypeGIFOmitted       MessageType = "gif_omitted"
	TypeDocumentOmitted  MessageType = "document_omitted"
	TypeAudioAttached    MessageType = "audio_attached"
	TypeImageAttached    MessageType = "image_attached"
	TypeVideoAttached    MessageType = "video_attached"
	TypeStickerAttached  MessageType = "sticker_attached"
	TypeContactAttached  MessageType = "contact_attached"
	TypeFileAttached     MessageType = "file_attached"
	TypeTextWithLink     MessageType = "text_with_link"
	TypeTextWithEmoji    MessageType = "text_with_emoji"
	TypeTextPure         MessageType = "text_pure"
)

// Message is one reconstructed chat message. Empty strings stand for missing
// values in the optional text fields.
type Message struct {
	SourceLine int
	Date       string // DD/MM/YY as written in the transcript
	Time       string // HH:MM:SS
	Timestamp  time.Time
	Sender     string
	RawContent string
	Type       MessageType

	MediaFilename  string
	MediaExists    bool
	MediaExtension string
	MediaKind      string
	MediaPath      string

	HasTranscription    bool
	TranscriptionText   string
	TranscriptionStatus string
	IsSynthetic         bool

	EnrichedContent string
}

// Content is the enriched body when present, otherwise the raw one.
func (m Message) Content() string {
	if m.EnrichedContent != "" {
		return m.EnrichedContent
	}
	return m.RawContent
}

func cloneMessages(msgs []Message) []Message {
	return append([]Message(nil), msgs...)
}
