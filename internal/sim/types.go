package sim

// #region imports
import (
	"time"

	"github.com/danielpatrickdp/threshold-circuit/internal/canonical"
)

// #endregion

// #region scenario
// Scenario names a candidate response whose outcome gets simulated.
type Scenario string

const (
	ScenarioReorganize  Scenario = "reorganize" // full rewire of the structure
	ScenarioPartial     Scenario = "partial"    // limited-scope modification
	ScenarioDefer       Scenario = "defer"      // no action, observe drift
	ScenarioRollback    Scenario = "rollback"   // revert toward the initial snapshot
	ScenarioIncremental Scenario = "incremental" // small staged change
)

// DefaultScenarios is the set a circuit simulates when the caller does not
// choose its own.
func DefaultScenarios() []Scenario {
	return []Scenario{ScenarioReorganize, ScenarioPartial, ScenarioDefer, ScenarioIncremental}
}

// Label returns the human-readable scenario name.
func (s Scenario) Label() string {
	switch s {
	case ScenarioReorganize:
		return "Full Reorganization"
	case ScenarioPartial:
		return "Partial Reorganization"
	case ScenarioDefer:
		return "Defer Action"
	case ScenarioRollback:
		return "Rollback to Previous"
	case ScenarioIncremental:
		return "Incremental Changes"
	}
	return string(s)
}

// #endregion scenario

// #region outcome
// ConfidenceInterval bounds a [0,1] estimate; Low <= High always.
type ConfidenceInterval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Outcome is one simulated scenario's aggregate result.
type Outcome struct {
	Scenario           Scenario           `json:"scenario"`
	Name               string             `json:"name"`
	Probability        float64            `json:"probability"`
	Reversibility      float64            `json:"reversibility"`
	SideEffects        []string           `json:"side_effects"`
	StateHash          string             `json:"state_hash"`
	ConfidenceInterval ConfidenceInterval `json:"confidence_interval"`
	Variance           float64            `json:"variance"`
}

// #endregion outcome

// #region prediction
// Prediction is the simulator's primary output: scored outcomes for every
// requested scenario, plus enough metadata to reproduce the run.
type Prediction struct {
	EventHash      string    `json:"event_hash"`
	Model          string    `json:"model"`
	Outcomes       []Outcome `json:"outcomes"`
	Timestamp      time.Time `json:"timestamp"`
	Seed           int64     `json:"seed"`
	MonteCarloRuns int       `json:"monte_carlo_runs"`
	PredictionHash string    `json:"prediction_hash"`
}

type predictionSummary struct {
	EventHash    string `json:"event_hash"`
	Model        string `json:"model"`
	OutcomeCount int    `json:"outcome_count"`
	Seed         int64  `json:"seed"`
	Timestamp    string `json:"timestamp"`
}

func (p *Prediction) computeHash() string {
	return canonical.MustHash(predictionSummary{
		EventHash:    p.EventHash,
		Model:        p.Model,
		OutcomeCount: len(p.Outcomes),
		Seed:         p.Seed,
		Timestamp:    p.Timestamp.Format(time.RFC3339Nano),
	}, 16)
}

// BestOutcome returns the highest-probability outcome, or ok=false when the
// prediction is empty.
func (p *Prediction) BestOutcome() (Outcome, bool) {
	if len(p.Outcomes) == 0 {
		return Outcome{}, false
	}
	best := p.Outcomes[0]
	for _, o := range p.Outcomes[1:] {
		if o.Probability > best.Probability {
			best = o
		}
	}
	return best, true
}

// MostReversible returns the outcome with the highest reversibility score.
func (p *Prediction) MostReversible() (Outcome, bool) {
	if len(p.Outcomes) == 0 {
		return Outcome{}, false
	}
	best := p.Outcomes[0]
	for _, o := range p.Outcomes[1:] {
		if o.Reversibility > best.Reversibility {
			best = o
		}
	}
	return best, true
}

// #endregion prediction

// #region config
// Config holds simulation tuning knobs.
type Config struct {
	MonteCarloRuns int   // trials per scenario
	Workers        int   // goroutines in the trial pool
	Seed           int64 // base seed; trial i uses Seed+i
}

// DefaultConfig returns the standard simulation settings.
func DefaultConfig() Config {
	return Config{
		MonteCarloRuns: 100,
		Workers:        4,
		Seed:           42,
	}
}

// #endregion config
