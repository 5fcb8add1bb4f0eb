package cleaning

import (
	"fmt"
	"strings"
)

// StepID identifies a registered cleaning step.
type StepID string

const (
	StepLRM             StepID = "u200e"
	StepEmptyTimestamps StepID = "empty_timestamps"
	StepEmptyLines      StepID = "empty_lines"
	StepWhitespace      StepID = "whitespace"
	StepAnonymize       StepID = "anonymize"
	StepTimestamps      StepID = "timestamps"
	StepIndentation     StepID = "indentation"
)

// DefaultOrder is the registration order, which is also the recommended run order.
var DefaultOrder = []StepID{
	StepLRM,
	StepEmptyTimestamps,
	StepEmptyLines,
	StepWhitespace,
	StepAnonymize,
	StepTimestamps,
	StepIndentation,
}

// StepMetrics holds the quantities a step reports about its own work.
type StepMetrics map[string]int

// TransformFunc reads inputPath and writes the cleaned result to outputPath.
type TransformFunc func(inputPath, outputPath string) (StepMetrics, error)

type Step struct {
	ID          StepID
	Name        string
	Description string
	Transform   TransformFunc
}

// Participant maps a sender name to the token that replaces it.
type Participant struct {
	Name  string
	Token string
}

type RegistryOptions struct {
	// Participants drives the anonymize step. Empty means anonymize is a no-op copy.
	Participants []Participant
}

// UnknownStepError reports ids that are not registered.
type UnknownStepError struct {
	Invalid []string
	Valid   []string
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("unknown cleaning step(s): %s (valid: %s)",
		strings.Join(e.Invalid, ", "), strings.Join(e.Valid, ", "))
}

// Registry is the fixed, ordered set of cleaning steps. It is not modified after
// NewRegistry returns.
type Registry struct {
	steps []Step
	index map[StepID]int
}

func NewRegistry(opts RegistryOptions) *Registry {
	participants := append([]Participant(nil), opts.Participants...)
	r := &Registry{index: make(map[StepID]int, len(DefaultOrder))}
	for _, id := range DefaultOrder {
		r.index[id] = len(r.steps)
		r.steps = append(r.steps, buildStep(id, participants))
	}
	return r
}

func buildStep(id StepID, participants []Participant) Step {
	switch id {
	case StepLRM:
		return Step{
			ID:          id,
			Name:        "Remove U+200E",
			Description: "Removes the invisible left-to-right mark the exporter inserts before attachments and system notices.",
			Transform:   lineTransform(stripLRM),
		}
	case StepEmptyTimestamps:
		return Step{
			ID:          id,
			Name:        "Remove empty timestamps",
			Description: "Drops the empty attribution line the exporter writes when several media files are sent at once.",
			Transform:   lineTransform(dropEmptyTimestamps),
		}
	case StepEmptyLines:
		return Step{
			ID:          id,
			Name:        "Remove empty lines",
			Description: "Drops lines that contain nothing but a line terminator.",
			Transform:   lineTransform(dropEmptyLines),
		}
	case StepWhitespace:
		return Step{
			ID:          id,
			Name:        "Normalize whitespace",
			Description: "Converts tabs to spaces, collapses repeated interior spaces and trims trailing whitespace; leading indentation is kept.",
			Transform:   lineTransform(normalizeWhitespace),
		}
	case StepAnonymize:
		return Step{
			ID:          id,
			Name:        "Anonymize participants",
			Description: "Replaces participant names in message attributions with their configured tokens.",
			Transform: lineTransform(func(lines []string) ([]string, StepMetrics) {
				return anonymize(lines, participants)
			}),
		}
	case StepTimestamps:
		return Step{
			ID:          id,
			Name:        "Optimize timestamps",
			Description: "Rewrites [DD/MM/YY, HH:MM:SS] prefixes as DD/MM/YY HH:MM:SS.",
			Transform:   lineTransform(optimizeTimestamps),
		}
	case StepIndentation:
		return Step{
			ID:          id,
			Name:        "Normalize indentation",
			Description: "Strips leading spaces and tabs from continuation lines of multi-line messages.",
			Transform:   lineTransform(stripIndentation),
		}
	}
	panic(fmt.Sprintf("cleaning: no definition for step %q", id))
}

// Steps returns the registered steps in registration order.
func (r *Registry) Steps() []Step {
	return append([]Step(nil), r.steps...)
}

// IDs returns every registered id in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.steps))
	for _, s := range r.steps {
		out = append(out, string(s.ID))
	}
	return out
}

func (r *Registry) Lookup(id string) (Step, error) {
	i, ok := r.index[StepID(id)]
	if !ok {
		return Step{}, &UnknownStepError{Invalid: []string{id}, Valid: r.IDs()}
	}
	return r.steps[i], nil
}

// Resolve validates every id in order and returns the matching steps. All unknown
// ids are reported together.
func (r *Registry) Resolve(order []string) ([]Step, error) {
	steps := make([]Step, 0, len(order))
	var invalid []string
	for _, id := range order {
		i, ok := r.index[StepID(id)]
		if !ok {
			invalid = append(invalid, id)
			continue
		}
		steps = append(steps, r.steps[i])
	}
	if len(invalid) > 0 {
		return nil, &UnknownStepError{Invalid: invalid, Valid: r.IDs()}
	}
	return steps, nil
}
