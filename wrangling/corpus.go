package wrangling

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"chat-wrangler/fileutil"
)

type CorpusFile struct {
	// Name is the file's base name without extension, e.g. chat_p1.
	Name string
	Path string
	// Sender is empty for the whole-conversation files.
	Sender   string
	Messages int
}

// ExportCorpus writes plain-text corpora: chat_complete.txt and corpus_full.txt
// for the whole conversation, then chat_<sender>.txt and corpus_<sender>.txt per
// sender in order of first appearance. Chat files keep date, time and sender;
// corpus files hold only the message body.
func ExportCorpus(msgs []Message, dir string) ([]CorpusFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var senders []string
	bySender := map[string][]Message{}
	for _, m := range msgs {
		if _, ok := bySender[m.Sender]; !ok {
			senders = append(senders, m.Sender)
		}
		bySender[m.Sender] = append(bySender[m.Sender], m)
	}

	files := make([]CorpusFile, 0, 2+2*len(senders))
	write := func(name, sender string, subset []Message, line func(Message) string) error {
		path := filepath.Join(dir, name+".txt")
		err := fileutil.Write(path, func(w io.Writer) error {
			for _, m := range subset {
				if _, err := io.WriteString(w, line(m)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		files = append(files, CorpusFile{Name: name, Path: path, Sender: sender, Messages: len(subset)})
		return nil
	}

	if err := write("chat_complete", "", msgs, chatLine); err != nil {
		return nil, err
	}
	if err := write("corpus_full", "", msgs, corpusLine); err != nil {
		return nil, err
	}
	used := map[string]int{}
	for _, s := range senders {
		slug := senderSlug(s)
		used[slug]++
		if n := used[slug]; n > 1 {
			slug = fmt.Sprintf("%s_%d", slug, n)
		}
		if err := write("chat_"+slug, s, bySender[s], chatLine); err != nil {
			return nil, err
		}
		if err := write("corpus_"+slug, s, bySender[s], corpusLine); err != nil {
			return nil, err
		}
	}
	return files, nil
}

func chatLine(m Message) string {
	return fmt.Sprintf("%s %s %s: %s\n", m.Timestamp.Format("02/01/06"), m.Timestamp.Format("15:04:05"), m.Sender, m.Content())
}

func corpusLine(m Message) string {
	return m.Content() + "\n"
}

// senderSlug lower-cases a sender name and replaces characters that are unsafe in
// file names.
func senderSlug(sender string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(sender)) {
		switch {
		case unicode.IsSpace(r), strings.ContainsRune(`/\:*?"<>|`, r), unicode.IsControl(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
