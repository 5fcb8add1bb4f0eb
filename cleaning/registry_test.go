package cleaning

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestRegistry_IDsFollowRegistrationOrder(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	got := strings.Join(r.IDs(), ",")
	if got != "u200e,empty_timestamps,empty_lines,whitespace,anonymize,timestamps,indentation" {
		t.Fatalf("unexpected ids: %s", got)
	}
	for _, s := range r.Steps() {
		if s.Name == "" || s.Description == "" || s.Transform == nil {
			t.Fatalf("incomplete step definition: %+v", s)
		}
	}
}

func TestRegistry_LookupUnknown(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	_, err := r.Lookup("timestamp")
	var unknown *UnknownStepError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownStepError, got %v", err)
	}
	if !strings.Contains(err.Error(), "timestamp") || !strings.Contains(err.Error(), "timestamps") {
		t.Fatalf("error should name the bad id and the valid ones: %v", err)
	}
}

func TestRegistry_StepsReturnsCopy(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	steps := r.Steps()
	steps[0].Name = "changed"
	s, err := r.Lookup("u200e")
	if err != nil {
		t.Fatal(err)
	}
	if s.Name == "changed" {
		t.Fatalf("registry mutated through Steps()")
	}
}

func TestRegistry_ParticipantsAreCopied(t *testing.T) {
	participants := []Participant{{Name: "Marlon", Token: "P1"}}
	r := NewRegistry(RegistryOptions{Participants: participants})
	participants[0].Token = "X"

	s, err := r.Lookup("anonymize")
	if err != nil {
		t.Fatal(err)
	}
	tmp := t.TempDir()
	in := filepath.Join(tmp, "in.txt")
	out := filepath.Join(tmp, "out.txt")
	writeFile(t, in, "[01/01/24, 10:00:00] Marlon: oi\n")
	if _, err := s.Transform(in, out); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, out); got != "[01/01/24, 10:00:00] P1: oi\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}
