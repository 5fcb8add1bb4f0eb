package wrangling

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
)

// Stage identifies a wrangling stage.
type Stage string

const (
	StageParse          Stage = "parse"
	StageClassify       Stage = "classify"
	StageMedia          Stage = "media"
	StageTranscriptions Stage = "transcriptions"
	StageEnrich         Stage = "enrich"
	StageExport         Stage = "export"
)

// DefaultStages is the full wrangling run in its natural order.
var DefaultStages = []Stage{StageParse, StageClassify, StageMedia, StageTranscriptions, StageEnrich, StageExport}

var stageNames = map[Stage]string{
	StageParse:          "Parse messages",
	StageClassify:       "Classify messages",
	StageMedia:          "Link media files",
	StageTranscriptions: "Integrate transcriptions",
	StageEnrich:         "Enrich content",
	StageExport:         "Export datasets",
}

// StageName is the human-readable label of s.
func StageName(s Stage) string { return stageNames[s] }

// UnknownStageError reports stage ids that do not exist.
type UnknownStageError struct {
	Invalid []string
	Valid   []string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown wrangling stage(s): %s (valid: %s)",
		strings.Join(e.Invalid, ", "), strings.Join(e.Valid, ", "))
}

type PipelineConfig struct {
	// InputFile is the final output of the cleaning pipeline.
	InputFile string
	OutputDir string
	// MediaDir is optional; the media stage is skipped without it.
	MediaDir string
	// TranscriptionFile is optional. When set but missing, the run continues
	// without transcriptions.
	TranscriptionFile string
	ExportFormats     []string
	Debug             bool
}

type Stats struct {
	InputLines            int
	Messages              int
	TypeCounts            map[MessageType]int
	AttachmentsReferenced int
	AttachmentsFound      int
	WithTranscription     int
	Enriched              int
	Exported              []ExportedFile
	Corpus                []CorpusFile
	Skipped               []Stage
}

type Result struct {
	Order    []Stage
	Messages []Message
	Stats    Stats
}

type Pipeline struct {
	cfg PipelineConfig
}

func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if strings.TrimSpace(cfg.InputFile) == "" {
		return nil, fmt.Errorf("InputFile is required")
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return nil, fmt.Errorf("OutputDir is required")
	}
	if len(cfg.ExportFormats) == 0 {
		cfg.ExportFormats = DefaultExportFormats
	}
	if err := ValidateFormats(cfg.ExportFormats); err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg}, nil
}

func (p *Pipeline) debugf(format string, args ...any) {
	if p == nil || !p.cfg.Debug {
		return
	}
	log.Printf(format, args...)
}

// ResolveStages validates order and converts it to stages.
func ResolveStages(order []string) ([]Stage, error) {
	stages := make([]Stage, 0, len(order))
	var invalid []string
	for _, id := range order {
		s := Stage(id)
		if _, ok := stageNames[s]; !ok {
			invalid = append(invalid, id)
			continue
		}
		stages = append(stages, s)
	}
	if len(invalid) > 0 {
		valid := make([]string, 0, len(DefaultStages))
		for _, s := range DefaultStages {
			valid = append(valid, string(s))
		}
		return nil, &UnknownStageError{Invalid: invalid, Valid: valid}
	}
	return stages, nil
}

// Run executes the stages named by order. Every stage after parse works on the
// messages parse produced, so parse must come first.
func (p *Pipeline) Run(order []string) (*Result, error) {
	stages, err := ResolveStages(order)
	if err != nil {
		return nil, err
	}
	if len(stages) > 0 && stages[0] != StageParse {
		return nil, fmt.Errorf("stage %q needs parsed messages: order must start with %q", stages[0], StageParse)
	}
	if p.cfg.MediaDir != "" {
		fi, err := os.Stat(p.cfg.MediaDir)
		if err != nil {
			return nil, fmt.Errorf("media directory: %w", err)
		}
		if !fi.IsDir() {
			return nil, fmt.Errorf("media directory %s is not a directory", p.cfg.MediaDir)
		}
	}

	res := &Result{Order: stages}
	var msgs []Message
	for i, stage := range stages {
		p.debugf("wrangle: %d. %s", i+1, StageName(stage))
		switch stage {
		case StageParse:
			f, err := os.Open(p.cfg.InputFile)
			if err != nil {
				return nil, err
			}
			parsed, lines, err := parseReader(f, p.cfg.InputFile)
			f.Close()
			if err != nil {
				return nil, err
			}
			msgs = parsed
			res.Stats.InputLines = lines
			res.Stats.Messages = len(msgs)
			p.debugf("wrangle: parsed %d messages from %d lines", len(msgs), lines)

		case StageClassify:
			msgs = ClassifyAll(msgs)
			res.Stats.TypeCounts = map[MessageType]int{}
			for _, m := range msgs {
				res.Stats.TypeCounts[m.Type]++
			}
			p.debugf("wrangle: %d message types", len(res.Stats.TypeCounts))

		case StageMedia:
			if p.cfg.MediaDir == "" {
				p.debugf("wrangle: no media directory configured, skipping")
				res.Stats.Skipped = append(res.Stats.Skipped, stage)
				continue
			}
			linked, err := Link(msgs, p.cfg.MediaDir)
			if err != nil {
				return nil, err
			}
			msgs = linked
			res.Stats.AttachmentsReferenced, res.Stats.AttachmentsFound = 0, 0
			for _, m := range msgs {
				if m.MediaFilename != "" {
					res.Stats.AttachmentsReferenced++
				}
				if m.MediaExists {
					res.Stats.AttachmentsFound++
				}
			}
			p.debugf("wrangle: %d attachments referenced, %d found", res.Stats.AttachmentsReferenced, res.Stats.AttachmentsFound)

		case StageTranscriptions:
			table, err := p.loadTranscriptions()
			if err != nil {
				return nil, err
			}
			msgs = Integrate(msgs, table)
			res.Stats.WithTranscription = 0
			for _, m := range msgs {
				if m.HasTranscription {
					res.Stats.WithTranscription++
				}
			}

		case StageEnrich:
			msgs = Enrich(msgs)
			res.Stats.Enriched = 0
			for _, m := range msgs {
				if m.EnrichedContent != m.RawContent {
					res.Stats.Enriched++
				}
			}

		case StageExport:
			exported, err := Export(msgs, p.cfg.OutputDir, p.cfg.ExportFormats)
			if err != nil {
				return nil, err
			}
			corpus, err := ExportCorpus(msgs, p.cfg.OutputDir)
			if err != nil {
				return nil, err
			}
			res.Stats.Exported = exported
			res.Stats.Corpus = corpus
			for _, e := range exported {
				p.debugf("wrangle: wrote %s (%s, %d cols)", e.Path, humanize.IBytes(uint64(e.SizeBytes)), e.Columns)
			}
		}
	}
	res.Messages = msgs
	return res, nil
}

func (p *Pipeline) loadTranscriptions() (map[string]TranscriptionRecord, error) {
	path := p.cfg.TranscriptionFile
	if path == "" {
		p.debugf("wrangle: no transcription file configured")
		return nil, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Printf("wrangle: transcription file %s not found; continuing without transcriptions (run `chat-wrangler transcribe` to create it)", path)
		return nil, nil
	}
	table, err := LoadTranscriptions(path)
	if err != nil {
		return nil, fmt.Errorf("transcriptions: %w", err)
	}
	p.debugf("wrangle: loaded %d transcriptions from %s", len(table), path)
	return table, nil
}
