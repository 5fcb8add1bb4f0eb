package wrangling

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const attachedMarker = "<attached:"

var attachedPattern = regexp.MustCompile(`<attached:\s*(.+?)>`)

// MediaFile is a file found in the media directory. Filename is its identity.
type MediaFile struct {
	Filename  string
	Path      string
	Extension string
	SizeBytes int64
	MediaKind string
}

// AttachmentFilename extracts the filename from an "<attached: name>" reference,
// or "" when content has none.
func AttachmentFilename(content string) string {
	m := attachedPattern.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// MediaKind is the second hyphen-separated segment of a media filename, upper-cased
// (00000003-AUDIO-2024-11-28.opus -> AUDIO). It is empty when there is no hyphen.
func MediaKind(filename string) string {
	parts := strings.Split(filename, "-")
	if len(parts) < 2 {
		return ""
	}
	return strings.ToUpper(parts[1])
}

// Inventory lists the regular files directly under dir.
func Inventory(dir string) ([]MediaFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("media directory: %w", err)
	}
	files := make([]MediaFile, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("media directory: %w", err)
		}
		name := e.Name()
		files = append(files, MediaFile{
			Filename:  name,
			Path:      filepath.Join(dir, name),
			Extension: strings.ToLower(filepath.Ext(name)),
			SizeBytes: info.Size(),
			MediaKind: MediaKind(name),
		})
	}
	return files, nil
}

// Link returns a copy of msgs with the media fields filled from their attachment
// references. A referenced file that is not in dir keeps MediaExists false and an
// empty MediaPath; nothing is inferred beyond the exact filename.
func Link(msgs []Message, dir string) ([]Message, error) {
	files, err := Inventory(dir)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]MediaFile, len(files))
	for _, f := range files {
		byName[f.Filename] = f
	}

	out := cloneMessages(msgs)
	for i := range out {
		name := AttachmentFilename(out[i].RawContent)
		out[i].MediaFilename = name
		out[i].MediaExists = false
		out[i].MediaExtension = ""
		out[i].MediaKind = ""
		out[i].MediaPath = ""
		if name == "" {
			continue
		}
		out[i].MediaExtension = strings.ToLower(filepath.Ext(name))
		out[i].MediaKind = MediaKind(name)
		if f, ok := byName[name]; ok {
			out[i].MediaExists = true
			out[i].MediaPath = f.Path
		}
	}
	return out, nil
}
