package deliberate

import (
	"errors"
	"strings"
	"testing"
)

func vote(id string, d Decision, rationale string) StakeholderVote {
	return StakeholderVote{
		StakeholderID: id,
		Vote:          d,
		Rationale:     rationale,
		Confidence:    0.8,
	}
}

func TestDeliberateMajority(t *testing.T) {
	s := NewSession(nil, nil)
	s.RecordVote(vote("a", DecisionProceed, "looks fine"))
	s.RecordVote(vote("b", DecisionProceed, "agreed"))
	s.RecordVote(vote("c", DecisionPause, "too risky"))

	r, err := s.Deliberate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Decision != DecisionProceed {
		t.Fatalf("expected proceed, got %s", r.Decision)
	}
	if len(r.Votes) != 3 {
		t.Fatalf("expected 3 votes preserved, got %d", len(r.Votes))
	}
}

func TestDeliberateTieBreakEarliestVote(t *testing.T) {
	s := NewSession(nil, nil)
	s.RecordVote(vote("a", DecisionPause, ""))
	s.RecordVote(vote("b", DecisionReject, ""))
	s.RecordVote(vote("c", DecisionReject, ""))
	s.RecordVote(vote("d", DecisionPause, ""))

	r, err := s.Deliberate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Two-way tie; pause was cast first.
	if r.Decision != DecisionPause {
		t.Fatalf("expected pause to win the tie, got %s", r.Decision)
	}
}

func TestDeliberateDissentRecords(t *testing.T) {
	s := NewSession(nil, nil)
	s.RecordVote(vote("a", DecisionProceed, "go"))
	s.RecordVote(StakeholderVote{
		StakeholderID: "b",
		Vote:          DecisionPause,
		Rationale:     "needs review",
		Concerns:      []string{"no backup"},
	})
	s.RecordVote(vote("c", DecisionProceed, "go"))
	s.RecordVote(vote("d", DecisionReject, "hard no"))

	r, err := s.Deliberate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Dissents) != 2 {
		t.Fatalf("expected one dissent per non-majority vote, got %d", len(r.Dissents))
	}
	first := r.Dissents[0]
	if first.StakeholderID != "b" || first.Preferred != DecisionPause || first.DissentingFrom != DecisionProceed {
		t.Fatalf("unexpected dissent record: %+v", first)
	}
	if len(first.Concerns) != 1 || first.Concerns[0] != "no backup" {
		t.Fatalf("concerns not preserved: %v", first.Concerns)
	}
}

func TestDeliberateJoinsMajorityRationales(t *testing.T) {
	s := NewSession(nil, nil)
	s.RecordVote(vote("a", DecisionProceed, "reason one"))
	s.RecordVote(vote("b", DecisionProceed, "reason two"))
	s.RecordVote(vote("c", DecisionPause, "minority reason"))

	r, err := s.Deliberate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Rationale != "reason one | reason two" {
		t.Fatalf("unexpected rationale: %q", r.Rationale)
	}
	if strings.Contains(r.Rationale, "minority") {
		t.Fatal("minority rationale should not appear in the majority rationale")
	}
}

func TestDeliberateRationalePlaceholder(t *testing.T) {
	s := NewSession(nil, nil)
	s.RecordVote(vote("a", DecisionProceed, ""))

	r, err := s.Deliberate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Rationale != "No rationale provided" {
		t.Fatalf("expected placeholder, got %q", r.Rationale)
	}
}

func TestDeliberateProceedUpgradesToConditional(t *testing.T) {
	s := NewSession(nil, nil)
	s.RecordVote(vote("a", DecisionProceed, "go"))
	s.RecordVote(vote("b", DecisionProceed, "go"))
	s.RecordVote(StakeholderVote{
		StakeholderID: "c",
		Vote:          DecisionConditional,
		Conditions:    []string{"logging_enabled", "rollback_available"},
	})

	r, err := s.Deliberate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Decision != DecisionConditional {
		t.Fatalf("proceed with conditions should upgrade, got %s", r.Decision)
	}
	if len(r.Conditions) != 2 {
		t.Fatalf("expected 2 conditions, got %v", r.Conditions)
	}
}

func TestDeliberateDeduplicatesConditions(t *testing.T) {
	s := NewSession(nil, nil)
	s.RecordVote(StakeholderVote{
		StakeholderID: "a",
		Vote:          DecisionConditional,
		Conditions:    []string{"logging_enabled", "rollback_available"},
	})
	s.RecordVote(StakeholderVote{
		StakeholderID: "b",
		Vote:          DecisionConditional,
		Conditions:    []string{"rollback_available", "backup_verified"},
	})

	r, err := s.Deliberate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"logging_enabled", "rollback_available", "backup_verified"}
	if len(r.Conditions) != len(want) {
		t.Fatalf("expected %v, got %v", want, r.Conditions)
	}
	for i := range want {
		if r.Conditions[i] != want[i] {
			t.Fatalf("condition %d: expected %s, got %s", i, want[i], r.Conditions[i])
		}
	}
}

func TestDeliberateNoVotes(t *testing.T) {
	s := NewSession(nil, nil)

	_, err := s.Deliberate()
	if !errors.Is(err, ErrNoVotes) {
		t.Fatalf("expected ErrNoVotes, got %v", err)
	}
}

func TestDeliberateHashPresent(t *testing.T) {
	s := NewSession(nil, nil)
	s.RecordVote(vote("a", DecisionProceed, "go"))

	r, err := s.Deliberate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.AuditHash) != 16 {
		t.Fatalf("expected 16-char audit hash, got %q", r.AuditHash)
	}
	if r.computeHash() != r.AuditHash {
		t.Fatal("recomputed hash should match")
	}
}

func TestTemplateDimensionLookup(t *testing.T) {
	s := NewSession(nil, nil)
	if err := s.UseTemplate("governance_dimensions"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.EvaluateDimension("reversibility", 0.7, "mostly undoable")
	s.EvaluateDimension("unlisted", 0.5, "")

	s.RecordVote(vote("a", DecisionProceed, "go"))
	r, err := s.Deliberate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(r.Dimensions) != 2 {
		t.Fatalf("expected 2 dimensions, got %d", len(r.Dimensions))
	}
	if r.Dimensions[0].Weight != 0.25 || r.Dimensions[0].Question == "" {
		t.Fatalf("template weight/question not applied: %+v", r.Dimensions[0])
	}
	// Dimensions outside the template keep a neutral weight.
	if r.Dimensions[1].Weight != 1.0 {
		t.Fatalf("expected default weight 1.0, got %f", r.Dimensions[1].Weight)
	}
}

func TestUseTemplateUnknown(t *testing.T) {
	s := NewSession(nil, nil)
	if err := s.UseTemplate("nope"); err == nil {
		t.Fatal("expected an error for an unknown template")
	}
}
