package wrangling

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"
)

// TimestampLayout is the date and time layout of a message header.
const TimestampLayout = "02/01/06 15:04:05"

var headerPattern = regexp.MustCompile(`^(\d{2}/\d{2}/\d{2}) (\d{2}:\d{2}:\d{2}) (.+?): (.*)$`)

// ParseError reports a header whose timestamp does not form a valid date.
type ParseError struct {
	Path string
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: invalid timestamp in %q: %v", e.Path, e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reconstructs messages from a cleaned transcript.
func Parse(path string) ([]Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	msgs, _, err := parseReader(f, path)
	return msgs, err
}

// parseReader also returns the number of input lines read.
func parseReader(r io.Reader, name string) ([]Message, int, error) {
	br := bufio.NewReader(r)
	var (
		msgs    []Message
		current *Message
		lineNo  int
	)
	flush := func() {
		if current != nil {
			msgs = append(msgs, *current)
			current = nil
		}
	}
	for {
		raw, err := br.ReadString('\n')
		if raw != "" {
			lineNo++
			line := strings.TrimSuffix(raw, "\n")
			if m := headerPattern.FindStringSubmatch(line); m != nil {
				ts, perr := time.Parse(TimestampLayout, m[1]+" "+m[2])
				if perr != nil {
					return nil, lineNo, &ParseError{Path: name, Line: lineNo, Text: line, Err: perr}
				}
				flush()
				current = &Message{
					SourceLine: lineNo,
					Date:       m[1],
					Time:       m[2],
					Timestamp:  ts,
					Sender:     m[3],
					RawContent: m[4],
				}
			} else if current != nil {
				current.RawContent += "\n" + line
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, lineNo, fmt.Errorf("read %s: %w", name, err)
		}
	}
	flush()
	return msgs, lineNo, nil
}

// FormatHeader renders a message back into transcript form, continuation lines
// included.
func FormatHeader(m Message) string {
	return fmt.Sprintf("%s %s %s: %s", m.Date, m.Time, m.Sender, m.RawContent)
}

// Serialize renders messages as a transcript that parses back to the same messages.
func Serialize(msgs []Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(FormatHeader(m))
		b.WriteByte('\n')
	}
	return b.String()
}
