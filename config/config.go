package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Participant maps a display name in the transcript to its anonymization token.
type Participant struct {
	Name  string `yaml:"name"`
	Token string `yaml:"token"`
}

// ParticipantsConfig accepts either:
//  1. mapping form (preferred), order preserved:
//     participants:
//     Marlon: P1
//     "Lê 🖤": P2
//  2. list form:
//     participants:
//     - name: Marlon
//     token: P1
type ParticipantsConfig struct {
	Items []Participant
}

func (p *ParticipantsConfig) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case yaml.MappingNode:
		items := make([]Participant, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			k := value.Content[i]
			v := value.Content[i+1]
			if v.Kind != yaml.ScalarNode {
				return fmt.Errorf("participants: token for %q must be a string (line %d)", k.Value, v.Line)
			}
			name := strings.TrimSpace(k.Value)
			token := strings.TrimSpace(v.Value)
			if name == "" || token == "" {
				continue
			}
			items = append(items, Participant{Name: name, Token: token})
		}
		p.Items = items
		return nil
	case yaml.SequenceNode:
		var raw []Participant
		if err := value.Decode(&raw); err != nil {
			return err
		}
		items := make([]Participant, 0, len(raw))
		for _, it := range raw {
			it.Name = strings.TrimSpace(it.Name)
			it.Token = strings.TrimSpace(it.Token)
			if it.Name == "" || it.Token == "" {
				continue
			}
			items = append(items, it)
		}
		p.Items = items
		return nil
	default:
		return nil
	}
}

type VertexConfig struct {
	Project  string `yaml:"project"`
	Region   string `yaml:"region"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

type TranscribeConfig struct {
	// OutputDir holds transcriptions_progress.csv and transcriptions.csv.
	// Defaults to processed_dir.
	OutputDir string       `yaml:"output_dir"`
	SaveEvery int          `yaml:"save_every"`
	MaxFileMB int          `yaml:"max_file_mb"`
	Formats   []string     `yaml:"formats"`
	Vertex    VertexConfig `yaml:"vertex"`
}

type FileConfig struct {
	// Input is the raw exported chat transcript.
	Input        string `yaml:"input"`
	InterimDir   string `yaml:"interim_dir"`
	ProcessedDir string `yaml:"processed_dir"`
	MediaDir     string `yaml:"media_dir"`

	// Transcriptions is the transcription table consumed by the wrangling stage.
	Transcriptions string `yaml:"transcriptions"`

	CleaningSteps  []string `yaml:"cleaning_steps"`
	WranglingSteps []string `yaml:"wrangling_steps"`
	ExportFormats  []string `yaml:"export_formats"`

	Participants ParticipantsConfig `yaml:"participants"`

	// AuditDB enables the SQLite audit ledger when set.
	AuditDB string `yaml:"audit_db"`

	Transcribe TranscribeConfig `yaml:"transcribe"`
	Debug      bool             `yaml:"debug"`
}

func LoadConfig(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}
