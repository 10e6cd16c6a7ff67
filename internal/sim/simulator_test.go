package sim

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/danielpatrickdp/threshold-circuit/internal/detect"
)

func testEvent(severity detect.Severity) detect.Event {
	return detect.NewEvent(detect.MetricFileCount, 120, 100, severity, "workspace", "over limit", nil)
}

func TestModelProbabilitiesSumToOne(t *testing.T) {
	s := New("test", Config{MonteCarloRuns: 50, Workers: 4, Seed: 42}, nil)

	p, err := s.Model(context.Background(), testEvent(detect.SeverityCritical), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Outcomes) != len(DefaultScenarios()) {
		t.Fatalf("expected %d outcomes, got %d", len(DefaultScenarios()), len(p.Outcomes))
	}

	var total float64
	for _, o := range p.Outcomes {
		total += o.Probability
	}
	if math.Abs(total-1.0) > 1e-6 {
		t.Fatalf("probabilities should sum to 1, got %f", total)
	}
}

func TestModelDeterministicAcrossParallelism(t *testing.T) {
	event := testEvent(detect.SeverityCritical)
	scenarios := []Scenario{ScenarioReorganize, ScenarioPartial, ScenarioRollback}

	serial := New("test", Config{MonteCarloRuns: 40, Workers: 1, Seed: 7}, nil)
	parallel := New("test", Config{MonteCarloRuns: 40, Workers: 8, Seed: 7}, nil)

	a, err := serial.Model(context.Background(), event, scenarios)
	if err != nil {
		t.Fatalf("serial: %v", err)
	}
	b, err := parallel.Model(context.Background(), event, scenarios)
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}

	for i := range a.Outcomes {
		oa, ob := a.Outcomes[i], b.Outcomes[i]
		if oa.Reversibility != ob.Reversibility {
			t.Fatalf("%s: reversibility %f != %f", oa.Scenario, oa.Reversibility, ob.Reversibility)
		}
		if oa.StateHash != ob.StateHash {
			t.Fatalf("%s: fingerprint %s != %s", oa.Scenario, oa.StateHash, ob.StateHash)
		}
		if oa.Probability != ob.Probability {
			t.Fatalf("%s: probability %f != %f", oa.Scenario, oa.Probability, ob.Probability)
		}
	}
}

func TestModelSeedChangesResults(t *testing.T) {
	event := testEvent(detect.SeverityCritical)
	scenarios := []Scenario{ScenarioReorganize}

	a, err := New("test", Config{MonteCarloRuns: 30, Workers: 2, Seed: 1}, nil).
		Model(context.Background(), event, scenarios)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := New("test", Config{MonteCarloRuns: 30, Workers: 2, Seed: 999}, nil).
		Model(context.Background(), event, scenarios)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.Outcomes[0].StateHash == b.Outcomes[0].StateHash {
		t.Fatal("different seeds should produce different trial fingerprints")
	}
}

func TestOutcomeBounds(t *testing.T) {
	s := New("test", Config{MonteCarloRuns: 60, Workers: 3, Seed: 11}, nil)

	p, err := s.Model(context.Background(), testEvent(detect.SeverityEmergency),
		[]Scenario{ScenarioReorganize, ScenarioPartial, ScenarioDefer, ScenarioRollback, ScenarioIncremental})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, o := range p.Outcomes {
		if o.Reversibility < 0 || o.Reversibility > 1 {
			t.Fatalf("%s: reversibility out of bounds: %f", o.Scenario, o.Reversibility)
		}
		if o.ConfidenceInterval.Low > o.ConfidenceInterval.High {
			t.Fatalf("%s: CI inverted: %+v", o.Scenario, o.ConfidenceInterval)
		}
		if o.ConfidenceInterval.Low < 0 || o.ConfidenceInterval.High > 1 {
			t.Fatalf("%s: CI out of bounds: %+v", o.Scenario, o.ConfidenceInterval)
		}
	}
}

func TestDeferLeavesStructureIntact(t *testing.T) {
	event := testEvent(detect.SeverityWarning)
	initial := buildStateFromEvent(event)

	r := runTrial(initial, 42, ScenarioDefer, nil)

	if r.reversibility != 1.0 {
		t.Fatalf("defer makes no structural edits, expected reversibility 1.0, got %f", r.reversibility)
	}
	if r.fingerprint != initial.fingerprint() {
		t.Fatal("defer should not change the state fingerprint")
	}
}

func TestIncrementalAddsOneStagedNode(t *testing.T) {
	event := testEvent(detect.SeverityWarning)
	initial := buildStateFromEvent(event)

	final, effects := applyScenario(initial, ScenarioIncremental, 5, rand.New(rand.NewSource(5)), nil)

	if len(final.nodes) != len(initial.nodes)+1 {
		t.Fatalf("expected exactly one new node, got %d vs %d", len(final.nodes), len(initial.nodes))
	}
	if _, ok := final.nodeSet["staged_5"]; !ok {
		t.Fatal("expected staged node named by seed")
	}
	if len(effects) != 1 || effects[0] != "minimal_disruption" {
		t.Fatalf("unexpected effects: %v", effects)
	}
}

func TestRollbackCarriesFailureMemory(t *testing.T) {
	event := testEvent(detect.SeverityCritical)
	initial := buildStateFromEvent(event)

	_, effects := applyScenario(initial, ScenarioRollback, 3, rand.New(rand.NewSource(3)), []string{"disk full during apply"})

	foundRef := false
	for _, e := range effects {
		if e == "memory_ref: disk full during apply" {
			foundRef = true
		}
	}
	if !foundRef {
		t.Fatalf("expected a memory_ref effect, got %v", effects)
	}
}

func TestHistoryShiftsProbabilities(t *testing.T) {
	event := testEvent(detect.SeverityCritical)
	good := fixedHistory{rate: 1.0, ok: true}
	bad := fixedHistory{rate: 0.0, ok: true}

	sGood := New("test", Config{MonteCarloRuns: 30, Workers: 2, Seed: 42}, good)
	sBad := New("test", Config{MonteCarloRuns: 30, Workers: 2, Seed: 42}, bad)

	// Constructive base 0.3 scaled by (0.5 + rate): 0.45 vs 0.15, before the
	// shared severity and reversibility factors.
	pGood := sGood.estimateProbability(ScenarioReorganize, 0.8, event)
	pBad := sBad.estimateProbability(ScenarioReorganize, 0.8, event)
	if pGood <= pBad {
		t.Fatalf("successful history should favor reorganize: %f vs %f", pGood, pBad)
	}

	// Defensive base 0.1 scaled by (1.5 - rate): 0.05 vs 0.15.
	pGood = sGood.estimateProbability(ScenarioRollback, 0.8, event)
	pBad = sBad.estimateProbability(ScenarioRollback, 0.8, event)
	if pBad <= pGood {
		t.Fatalf("failing history should favor rollback: %f vs %f", pBad, pGood)
	}
}

func TestModelCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New("test", Config{MonteCarloRuns: 1000, Workers: 2, Seed: 42}, nil)
	_, err := s.Model(ctx, testEvent(detect.SeverityCritical), nil)
	if err == nil {
		t.Fatal("expected a cancellation error")
	}
}

func TestBestAndMostReversible(t *testing.T) {
	p := Prediction{Outcomes: []Outcome{
		{Scenario: ScenarioReorganize, Probability: 0.2, Reversibility: 0.9},
		{Scenario: ScenarioPartial, Probability: 0.5, Reversibility: 0.4},
		{Scenario: ScenarioDefer, Probability: 0.3, Reversibility: 0.7},
	}}

	best, ok := p.BestOutcome()
	if !ok || best.Scenario != ScenarioPartial {
		t.Fatalf("expected partial as best, got %v", best.Scenario)
	}
	rev, ok := p.MostReversible()
	if !ok || rev.Scenario != ScenarioReorganize {
		t.Fatalf("expected reorganize as most reversible, got %v", rev.Scenario)
	}

	empty := Prediction{}
	if _, ok := empty.BestOutcome(); ok {
		t.Fatal("empty prediction should report no best outcome")
	}
}

type fixedHistory struct {
	rate float64
	ok   bool
}

func (f fixedHistory) SuccessRate() (float64, bool) { return f.rate, f.ok }
func (f fixedHistory) FailureSummaries() []string   { return nil }
