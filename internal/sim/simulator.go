package sim

// #region imports
import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/danielpatrickdp/threshold-circuit/internal/detect"
)

// #endregion

// #region simulator-struct

// Simulator models what-if scenarios over a graph-shaped snapshot of the
// governed system. All randomness is derived from Config.Seed: trial i uses
// Seed+i on its own copy of the initial state, so identical inputs always
// reproduce identical predictions regardless of worker count.
type Simulator struct {
	modelName string
	cfg       Config
	history   History
}

// New creates a Simulator. history may be nil; the probability model then
// assumes a neutral 0.5 success rate.
func New(model string, cfg Config, history History) *Simulator {
	if cfg.MonteCarloRuns <= 0 {
		cfg.MonteCarloRuns = DefaultConfig().MonteCarloRuns
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	return &Simulator{modelName: model, cfg: cfg, history: history}
}

// #endregion simulator-struct

// #region model

// Model simulates every requested scenario against the event and returns a
// Prediction whose outcome probabilities are renormalized to sum to 1.
// A detection or simulation failure aborts the run; there is no partial
// prediction.
func (s *Simulator) Model(ctx context.Context, event detect.Event, scenarios []Scenario) (Prediction, error) {
	if len(scenarios) == 0 {
		scenarios = DefaultScenarios()
	}

	initial := buildStateFromEvent(event)
	var failureRefs []string
	if s.history != nil {
		failureRefs = s.history.FailureSummaries()
	}

	outcomes := make([]Outcome, 0, len(scenarios))
	for _, scenario := range scenarios {
		outcome, err := s.simulateScenario(ctx, scenario, event, initial, failureRefs)
		if err != nil {
			return Prediction{}, fmt.Errorf("simulate %s: %w", scenario, err)
		}
		outcomes = append(outcomes, outcome)
		log.Printf("[SIM] %s: prob=%.2f reversibility=%.2f", scenario, outcome.Probability, outcome.Reversibility)
	}

	normalizeProbabilities(outcomes)

	p := Prediction{
		EventHash:      event.EventHash,
		Model:          s.modelName,
		Outcomes:       outcomes,
		Timestamp:      time.Now().UTC(),
		Seed:           s.cfg.Seed,
		MonteCarloRuns: s.cfg.MonteCarloRuns,
	}
	p.PredictionHash = p.computeHash()

	log.Printf("[SIM] prediction complete: %d outcomes", len(outcomes))
	return p, nil
}

func normalizeProbabilities(outcomes []Outcome) {
	var total float64
	for _, o := range outcomes {
		total += o.Probability
	}
	if total <= 0 {
		return
	}
	for i := range outcomes {
		outcomes[i].Probability /= total
	}
}

// #endregion model

// #region scenario-simulation

type trialResult struct {
	reversibility float64
	effects       []string
	fingerprint   string
}

// simulateScenario runs the configured number of Monte Carlo trials across
// a worker pool and aggregates them into one Outcome. Results land in a
// slice indexed by trial number, so aggregation order never depends on
// scheduling.
func (s *Simulator) simulateScenario(ctx context.Context, scenario Scenario, event detect.Event, initial *stateGraph, failureRefs []string) (Outcome, error) {
	runs := s.cfg.MonteCarloRuns
	results := make([]trialResult, runs)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = runTrial(initial, s.cfg.Seed+int64(i), scenario, failureRefs)
			}
		}()
	}

	var dispatchErr error
dispatch:
	for i := 0; i < runs; i++ {
		select {
		case <-ctx.Done():
			dispatchErr = ctx.Err()
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	if dispatchErr != nil {
		return Outcome{}, dispatchErr
	}

	// Aggregate in trial order.
	var sum float64
	reversibilities := make([]float64, runs)
	var effects []string
	seen := make(map[string]struct{})
	for i, r := range results {
		sum += r.reversibility
		reversibilities[i] = r.reversibility
		for _, e := range r.effects {
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			effects = append(effects, e)
		}
	}
	avg := sum / float64(runs)

	sorted := make([]float64, runs)
	copy(sorted, reversibilities)
	sort.Float64s(sorted)
	ci := ConfidenceInterval{
		Low:  sorted[int(float64(runs)*0.05)],
		High: sorted[min(int(float64(runs)*0.95), runs-1)],
	}

	return Outcome{
		Scenario:           scenario,
		Name:               scenario.Label(),
		Probability:        s.estimateProbability(scenario, avg, event),
		Reversibility:      avg,
		SideEffects:        effects,
		StateHash:          results[0].fingerprint,
		ConfidenceInterval: ci,
		Variance:           variance(sorted),
	}, nil
}

// runTrial is a pure function of (snapshot, seed, scenario): it copies the
// initial state, applies the scenario transform with its own RNG, and
// scores the result. Trials share nothing mutable.
func runTrial(initial *stateGraph, seed int64, scenario Scenario, failureRefs []string) trialResult {
	rng := rand.New(rand.NewSource(seed))
	final, effects := applyScenario(initial, scenario, seed, rng, failureRefs)
	return trialResult{
		reversibility: reversibility(initial, final),
		effects:       effects,
		fingerprint:   final.fingerprint(),
	}
}

// #endregion scenario-simulation

// #region transforms

// applyScenario mutates a copy of the initial state per the scenario rules
// and returns the final state plus effect tags.
func applyScenario(initial *stateGraph, scenario Scenario, seed int64, rng *rand.Rand, failureRefs []string) (*stateGraph, []string) {
	state := initial.clone()
	var effects []string

	// Failure-prone scenarios carry a reference to a recorded failure, when
	// history has one, so deliberation sees what went wrong before.
	if len(failureRefs) > 0 && (scenario == ScenarioRollback || scenario == ScenarioPartial) {
		effects = append(effects, "memory_ref: "+failureRefs[rng.Intn(len(failureRefs))])
	}

	switch scenario {
	case ScenarioReorganize:
		if len(state.nodes) > 2 {
			toRemove := make([]edge, len(state.edges)/3)
			copy(toRemove, state.edges[:len(state.edges)/3])
			for _, e := range toRemove {
				state.removeEdge(e.src, e.dst)
			}
			for range toRemove {
				src := state.nodes[rng.Intn(len(state.nodes))]
				dst := state.nodes[rng.Intn(len(state.nodes))]
				if src != dst {
					state.addEdge(src, dst)
				}
			}
			effects = append(effects, "structure_changed", "potential_path_loss")
		}

	case ScenarioPartial:
		subset := sampleNodes(state.nodes, max(1, len(state.nodes)/4), rng)
		for _, node := range subset {
			succ := state.successors(node)
			if len(succ) > 0 {
				state.removeEdge(node, succ[rng.Intn(len(succ))])
			}
		}
		effects = append(effects, "partial_modification")

	case ScenarioDefer:
		if rng.Float64() < 0.3 {
			effects = append(effects, "organic_growth_risk")
		}
		if rng.Float64() < 0.2 {
			effects = append(effects, "threshold_may_increase")
		}

	case ScenarioRollback:
		state = initial.clone()
		if len(state.nodes) > 10 {
			recent := make([]string, 5)
			copy(recent, state.nodes[len(state.nodes)-5:])
			for _, n := range recent {
				state.removeNode(n)
			}
		}
		effects = append(effects, "data_loss_risk", "requires_backup_verification")

	case ScenarioIncremental:
		if n := len(state.nodes); n > 0 {
			parent := state.nodes[rng.Intn(n)]
			staged := fmt.Sprintf("staged_%d", seed)
			state.addNode(staged, "staged")
			state.addEdge(parent, staged)
		}
		effects = append(effects, "minimal_disruption")
	}

	return state, effects
}

// sampleNodes picks k distinct nodes via a seeded permutation.
func sampleNodes(nodes []string, k int, rng *rand.Rand) []string {
	if k > len(nodes) {
		k = len(nodes)
	}
	perm := rng.Perm(len(nodes))
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = nodes[perm[i]]
	}
	return out
}

// #endregion transforms

// #region scoring

// reversibility scores how cheaply the final state could be reverted:
// 1 - min(1, structural edits / structural size) over the node and edge
// sets. The normalized edit count is a coarse proxy, not a calibrated risk
// measure.
func reversibility(initial, final *stateGraph) float64 {
	var edits int
	for n := range final.nodeSet {
		if _, ok := initial.nodeSet[n]; !ok {
			edits++
		}
	}
	for n := range initial.nodeSet {
		if _, ok := final.nodeSet[n]; !ok {
			edits++
		}
	}
	for e := range final.edgeSet {
		if _, ok := initial.edgeSet[e]; !ok {
			edits++
		}
	}
	for e := range initial.edgeSet {
		if _, ok := final.edgeSet[e]; !ok {
			edits++
		}
	}

	size := len(initial.nodeSet) + len(final.nodeSet) + len(initial.edgeSet) + len(final.edgeSet)
	if size == 0 {
		return 1.0
	}
	return 1.0 - math.Min(float64(edits)/float64(size), 1.0)
}

// estimateProbability combines a per-scenario base rate, the historical
// success rate, the event severity, and reversibility into an (uncapped
// until renormalization) likelihood estimate.
func (s *Simulator) estimateProbability(scenario Scenario, reversibility float64, event detect.Event) float64 {
	base := map[Scenario]float64{
		ScenarioReorganize:  0.3,
		ScenarioPartial:     0.25,
		ScenarioDefer:       0.2,
		ScenarioRollback:    0.1,
		ScenarioIncremental: 0.15,
	}
	prob, ok := base[scenario]
	if !ok {
		prob = 0.2
	}

	// History skewing successful favors constructive scenarios; skewing
	// toward failure favors the defensive ones.
	successRate := 0.5
	if s.history != nil {
		if rate, ok := s.history.SuccessRate(); ok {
			successRate = rate
		}
	}
	if scenario == ScenarioReorganize || scenario == ScenarioIncremental {
		prob *= 0.5 + successRate
	} else {
		prob *= 1.5 - successRate
	}

	switch event.Severity {
	case detect.SeverityWarning:
		prob *= 1.1
	case detect.SeverityCritical:
		prob *= 1.3
	case detect.SeverityEmergency:
		prob *= 1.5
	}

	prob *= 0.8 + 0.4*reversibility

	return math.Min(prob, 1.0)
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var acc float64
	for _, v := range values {
		d := v - mean
		acc += d * d
	}
	return acc / float64(len(values))
}

// #endregion scoring
