package cleaning

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// FileProfile is a quick overview of a text file, logged before cleaning starts.
type FileProfile struct {
	Path            string
	SizeBytes       int64
	TotalLines      int
	EmptyLines      int
	TotalChars      int
	AvgCharsPerLine float64
}

func Profile(path string) (FileProfile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return FileProfile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	lines := splitLines(string(b))
	p := FileProfile{
		Path:       path,
		SizeBytes:  int64(len(b)),
		TotalLines: len(lines),
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			p.EmptyLines++
		}
		p.TotalChars += utf8.RuneCountInString(line)
	}
	if p.TotalLines > 0 {
		p.AvgCharsPerLine = float64(p.TotalChars) / float64(p.TotalLines)
	}
	return p, nil
}
