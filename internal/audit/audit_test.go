package audit

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestTrailChaining(t *testing.T) {
	trail := NewTrail()

	first, err := trail.Append("enforcement_start", "tester", map[string]any{"target": "ws"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if first.PreviousHash != "genesis" {
		t.Fatalf("first entry should chain to genesis, got %q", first.PreviousHash)
	}
	if len(first.EntryHash) != 32 {
		t.Fatalf("expected 32-char entry hash, got %q", first.EntryHash)
	}

	second, err := trail.Append("gate_check", "tester", nil)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if second.PreviousHash != first.EntryHash {
		t.Fatal("second entry should chain to the first entry's hash")
	}

	if err := trail.Verify(); err != nil {
		t.Fatalf("fresh chain should verify: %v", err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	trail := NewTrail()
	for i := 0; i < 3; i++ {
		if _, err := trail.Append("gate_check", "tester", map[string]any{"i": i}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries := trail.Entries()
	entries[1].Action = "enforcement_applied"

	err := VerifyEntries(entries)
	if !errors.Is(err, ErrChainCorrupted) {
		t.Fatalf("expected ErrChainCorrupted, got %v", err)
	}
}

func TestVerifyDetectsBrokenLink(t *testing.T) {
	trail := NewTrail()
	for i := 0; i < 3; i++ {
		if _, err := trail.Append("gate_check", "tester", nil); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries := trail.Entries()
	entries[2].PreviousHash = "0000000000000000"

	err := VerifyEntries(entries)
	if !errors.Is(err, ErrChainCorrupted) {
		t.Fatalf("expected ErrChainCorrupted, got %v", err)
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	trail := NewTrail()
	if _, err := trail.Append("enforcement_start", "tester", nil); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries := trail.Entries()
	entries[0].EntryHash = "tampered"

	if err := trail.Verify(); err != nil {
		t.Fatalf("mutating the copy must not corrupt the trail: %v", err)
	}
}

func TestExportRoundTrip(t *testing.T) {
	trail := NewTrail()
	for i := 0; i < 4; i++ {
		if _, err := trail.Append("gate_check", "tester", map[string]any{"gate": i}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	path, err := trail.Export(t.TempDir())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if filepath.Ext(path) != ".json" {
		t.Fatalf("expected a .json export, got %s", path)
	}

	entries, err := LoadExport(path)
	if err != nil {
		t.Fatalf("load export: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	if err := VerifyEntries(entries); err != nil {
		t.Fatalf("exported chain should verify: %v", err)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	trail := NewTrail()
	if _, err := trail.Append("enforcement_start", "tester", map[string]any{"target": "ws"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := trail.Append("enforcement_complete", "tester", nil); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := store.SaveTrail("run-1", trail); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := store.LoadTrail("run-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if err := VerifyEntries(entries); err != nil {
		t.Fatalf("stored chain should verify: %v", err)
	}
	if entries[0].Details["target"] != "ws" {
		t.Fatalf("details not round-tripped: %v", entries[0].Details)
	}

	runs, err := store.ListRuns(10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0] != "run-1" {
		t.Fatalf("unexpected runs: %v", runs)
	}
}
