package wrangling

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

var omittedTypes = []struct {
	marker string
	typ    MessageType
}{
	{"audio omitted", TypeAudioOmitted},
	{"image omitted", TypeImageOmitted},
	{"video omitted", TypeVideoOmitted},
	{"video note omitted", TypeVideoNoteOmitted},
	{"sticker omitted", TypeStickerOmitted},
	{"gif omitted", TypeGIFOmitted},
	{"document omitted", TypeDocumentOmitted},
}

var attachedTypes = []struct {
	markers []string
	typ     MessageType
}{
	{[]string{"audio", ".opus", ".mp3"}, TypeAudioAttached},
	{[]string{"photo", ".jpg", ".png"}, TypeImageAttached},
	{[]string{"video", ".mp4"}, TypeVideoAttached},
	{[]string{"sticker", ".webp"}, TypeStickerAttached},
	{[]string{".vcf"}, TypeContactAttached},
}

// Classify assigns a MessageType to a message body. Rules are checked in a fixed
// order and the first match wins; every input gets a type.
func Classify(content string) MessageType {
	folded := strings.TrimSpace(cases.Fold().String(content))

	switch {
	case strings.Contains(folded, "this message was deleted"):
		return TypeMessageDeleted
	case strings.Contains(folded, "<this message was edited>"):
		return TypeMessageEdited
	case strings.Contains(folded, "voice call"), strings.Contains(folded, "video call"):
		if strings.Contains(folded, "missed") {
			return TypeMissedCall
		}
		return TypeVoiceCall
	case strings.Contains(folded, "this message can't be displayed"),
		strings.Contains(folded, "this message can’t be displayed"):
		return TypeSystemMessage
	}

	for _, o := range omittedTypes {
		if strings.Contains(folded, o.marker) {
			return o.typ
		}
	}

	if strings.Contains(folded, attachedMarker) {
		token := attachmentToken(folded)
		for _, a := range attachedTypes {
			for _, m := range a.markers {
				if strings.Contains(token, m) {
					return a.typ
				}
			}
		}
		return TypeFileAttached
	}

	if urlPattern.MatchString(folded) {
		return TypeTextWithLink
	}
	if hasEmoji(content) {
		return TypeTextWithEmoji
	}
	return TypeTextPure
}

// attachmentToken is the attached filename, or everything after the marker when the
// closing '>' is missing.
func attachmentToken(folded string) string {
	if name := AttachmentFilename(folded); name != "" {
		return name
	}
	i := strings.Index(folded, attachedMarker)
	return folded[i+len(attachedMarker):]
}

// emojiThreshold is the code point above which a rune counts as an emoji. It is a
// heuristic: pictographs below it (U+2600 symbols, most of U+1F300-U+1F5FF) are
// missed, and supplementary-plane ideographs above it are counted.
const emojiThreshold = 0x1F600

func hasEmoji(s string) bool {
	for _, r := range s {
		if r > emojiThreshold {
			return true
		}
	}
	return false
}

// ClassifyAll returns a copy of msgs with Type set.
func ClassifyAll(msgs []Message) []Message {
	out := cloneMessages(msgs)
	for i := range out {
		out[i].Type = Classify(out[i].RawContent)
	}
	return out
}
