package sim

import (
	"path/filepath"
	"testing"
)

func openTestHistory(t *testing.T) *HistoryStore {
	t.Helper()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHistoryEmpty(t *testing.T) {
	h := openTestHistory(t)

	if _, ok := h.SuccessRate(); ok {
		t.Fatal("empty history should report no data")
	}
	if refs := h.FailureSummaries(); len(refs) != 0 {
		t.Fatalf("expected no failures, got %v", refs)
	}
}

func TestHistorySuccessRate(t *testing.T) {
	h := openTestHistory(t)

	records := []OutcomeRecord{
		{Scenario: ScenarioReorganize, Target: "ws", Success: true, Summary: "applied cleanly"},
		{Scenario: ScenarioPartial, Target: "ws", Success: true, Summary: "applied cleanly"},
		{Scenario: ScenarioRollback, Target: "ws", Success: false, Summary: "backup missing"},
		{Scenario: ScenarioIncremental, Target: "ws", Success: true, Summary: "applied cleanly"},
	}
	for _, r := range records {
		if err := h.Record(r); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	rate, ok := h.SuccessRate()
	if !ok {
		t.Fatal("expected data")
	}
	// 3 successes of 4
	if rate != 0.75 {
		t.Fatalf("expected 0.75, got %f", rate)
	}
}

func TestHistoryFailureSummariesOrdered(t *testing.T) {
	h := openTestHistory(t)

	if err := h.Record(OutcomeRecord{Scenario: ScenarioRollback, Target: "ws", Success: false, Summary: "first failure"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := h.Record(OutcomeRecord{Scenario: ScenarioReorganize, Target: "ws", Success: true, Summary: "ok"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := h.Record(OutcomeRecord{Scenario: ScenarioPartial, Target: "ws", Success: false, Summary: "second failure"}); err != nil {
		t.Fatalf("record: %v", err)
	}

	refs := h.FailureSummaries()
	if len(refs) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(refs))
	}
	if refs[0] != "first failure" || refs[1] != "second failure" {
		t.Fatalf("failures out of order: %v", refs)
	}
}

func TestHistoryUnknownFailurePlaceholder(t *testing.T) {
	h := openTestHistory(t)

	if err := h.Record(OutcomeRecord{Scenario: ScenarioRollback, Target: "ws", Success: false}); err != nil {
		t.Fatalf("record: %v", err)
	}

	refs := h.FailureSummaries()
	if len(refs) != 1 || refs[0] != "unknown_failure" {
		t.Fatalf("expected unknown_failure placeholder, got %v", refs)
	}
}
