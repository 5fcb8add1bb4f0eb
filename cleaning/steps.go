package cleaning

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"chat-wrangler/fileutil"
)

const lrm = "\u200e"

var (
	bracketedTimestamp = regexp.MustCompile(`^\[(\d{2}/\d{2}/\d{2}), (\d{2}:\d{2}:\d{2})\]`)
	compactTimestamp   = regexp.MustCompile(`^\d{2}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}`)
	spaceRun           = regexp.MustCompile(` {2,}`)
)

var mediaMarkers = []string{
	"<attached:",
	"audio omitted",
	"image omitted",
	"video omitted",
	"sticker omitted",
	"GIF omitted",
	"document omitted",
}

// lineTransform adapts a pure line-slice function to a file transform. Lines keep
// their terminators, so joining the output reproduces the file byte for byte
// wherever the function leaves a line alone.
func lineTransform(fn func(lines []string) ([]string, StepMetrics)) TransformFunc {
	return func(inputPath, outputPath string) (StepMetrics, error) {
		b, err := os.ReadFile(inputPath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", inputPath, err)
		}
		out, metrics := fn(splitLines(string(b)))
		if err := fileutil.WriteFile(outputPath, []byte(strings.Join(out, ""))); err != nil {
			return nil, err
		}
		return metrics, nil
	}
}

// splitLines splits after every '\n'; the last element has no terminator when the
// text does not end with one.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func splitTerminator(line string) (body, eol string) {
	if strings.HasSuffix(line, "\n") {
		return line[:len(line)-1], "\n"
	}
	return line, ""
}

func stripLRM(lines []string) ([]string, StepMetrics) {
	removed := 0
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if n := strings.Count(line, lrm); n > 0 {
			removed += n
			line = strings.ReplaceAll(line, lrm, "")
		}
		out = append(out, line)
	}
	return out, StepMetrics{"chars_removed": removed}
}

func isTimestampLine(line string) bool {
	return bracketedTimestamp.MatchString(line) || compactTimestamp.MatchString(line)
}

func hasMediaMarker(line string) bool {
	for _, m := range mediaMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

func dropEmptyTimestamps(lines []string) ([]string, StepMetrics) {
	removed := 0
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		if i+2 < len(lines) {
			curr := strings.TrimSpace(line)
			next1 := strings.TrimSpace(lines[i+1])
			next2 := strings.TrimSpace(lines[i+2])
			if isTimestampLine(curr) && strings.HasSuffix(curr, ":") &&
				isTimestampLine(next1) && hasMediaMarker(next1) &&
				isTimestampLine(next2) && hasMediaMarker(next2) {
				removed++
				continue
			}
		}
		out = append(out, line)
	}
	return out, StepMetrics{"lines_removed": removed}
}

func dropEmptyLines(lines []string) ([]string, StepMetrics) {
	removed := 0
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "\n" || line == "\r\n" {
			removed++
			continue
		}
		out = append(out, line)
	}
	return out, StepMetrics{"lines_removed": removed}
}

func normalizeWhitespace(lines []string) ([]string, StepMetrics) {
	saved := 0
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		body, eol := splitTerminator(line)
		rest := strings.TrimLeftFunc(body, unicode.IsSpace)
		indent := body[:len(body)-len(rest)]
		rest = strings.TrimRightFunc(rest, unicode.IsSpace)

		var cleaned string
		if rest != "" {
			rest = strings.ReplaceAll(rest, "\t", " ")
			cleaned = indent + spaceRun.ReplaceAllString(rest, " ")
		}
		saved += len(body) - len(cleaned)
		out = append(out, cleaned+eol)
	}
	return out, StepMetrics{"bytes_saved": saved}
}

func anonymize(lines []string, participants []Participant) ([]string, StepMetrics) {
	metrics := make(StepMetrics, len(participants))
	for _, p := range participants {
		metrics[p.Name] = 0
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		for _, p := range participants {
			from := "] " + p.Name + ":"
			if strings.Contains(line, from) {
				line = strings.ReplaceAll(line, from, "] "+p.Token+":")
				metrics[p.Name]++
			}
		}
		out = append(out, line)
	}
	return out, metrics
}

func optimizeTimestamps(lines []string) ([]string, StepMetrics) {
	rewritten := 0
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if m := bracketedTimestamp.FindStringSubmatchIndex(line); m != nil {
			line = line[m[2]:m[3]] + " " + line[m[4]:m[5]] + line[m[1]:]
			rewritten++
		}
		out = append(out, line)
	}
	return out, StepMetrics{"lines_rewritten": rewritten}
}

func stripIndentation(lines []string) ([]string, StepMetrics) {
	stripped := 0
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if !compactTimestamp.MatchString(line) {
			trimmed := strings.TrimLeft(line, " \t")
			stripped += len(line) - len(trimmed)
			line = trimmed
		}
		out = append(out, line)
	}
	return out, StepMetrics{"chars_stripped": stripped}
}
