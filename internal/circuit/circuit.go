package circuit

// #region imports
import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/danielpatrickdp/threshold-circuit/internal/bus"
	"github.com/danielpatrickdp/threshold-circuit/internal/deliberate"
	"github.com/danielpatrickdp/threshold-circuit/internal/detect"
	"github.com/danielpatrickdp/threshold-circuit/internal/intervene"
	"github.com/danielpatrickdp/threshold-circuit/internal/sim"
)

// #endregion

// #region phases
// Phase labels the orchestrator's progress. Phases are informational; the
// pipeline itself is a straight-line sequence.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseDetecting        Phase = "detecting"
	PhaseSimulating       Phase = "simulating"
	PhaseDeliberating     Phase = "deliberating"
	PhaseAwaitingApproval Phase = "awaiting-approval"
	PhaseExecuting        Phase = "executing"
	PhaseCompleted        Phase = "completed"
	PhaseBlocked          Phase = "blocked"
)

// #endregion phases

// #region result

// Result is the composite outcome of one circuit run. Assembled fresh per
// run and never persisted here.
type Result struct {
	Events        []detect.Event               `json:"events"`
	Prediction    *sim.Prediction              `json:"prediction,omitempty"`
	Deliberation  *deliberate.Result           `json:"deliberation,omitempty"`
	Enforcement   *intervene.EnforcementResult `json:"enforcement,omitempty"`
	CircuitClosed bool                         `json:"circuit_closed"`
	Summary       string                       `json:"summary"`
}

// #endregion result

// #region circuit

// Circuit wires detection, simulation, deliberation, and intervention into
// one pipeline. The bus is injected so concurrent circuits never share
// subscriber state.
type Circuit struct {
	bus        *bus.Bus
	detector   detect.Detector
	simulator  *sim.Simulator
	intervenor *intervene.Intervenor

	// Votes, when non-nil, replaces the auto-generated vote set.
	Votes func(events []detect.Event, prediction sim.Prediction) []deliberate.StakeholderVote
	// Approve backs the approval gates. Nil means auto-approve.
	Approve intervene.ApprovalFunc
	// Conditions resolves condition names for CONDITIONAL decisions. Nil
	// means every condition fails closed.
	Conditions intervene.ConditionChecker

	phase Phase
}

// New assembles a circuit from its stages. All arguments are required.
func New(b *bus.Bus, detector detect.Detector, simulator *sim.Simulator, intervenor *intervene.Intervenor) *Circuit {
	return &Circuit{
		bus:        b,
		detector:   detector,
		simulator:  simulator,
		intervenor: intervenor,
		phase:      PhaseIdle,
	}
}

// Phase reports the most recent phase.
func (c *Circuit) Phase() Phase {
	return c.phase
}

func (c *Circuit) publish(topic string, payload any) {
	_, fails := c.bus.Publish(topic, payload, "circuit")
	for _, f := range fails {
		log.Printf("[CIRCUIT] subscriber failed on %s: %v", topic, f)
	}
}

// #endregion circuit

// #region run

// Run executes the full pipeline against target. Detection and simulation
// failures abort the run; rejections and blocked gates do not, they produce
// a fully populated Result instead.
func (c *Circuit) Run(ctx context.Context, target string) (Result, error) {
	log.Printf("[CIRCUIT] run starting: %s", target)

	c.phase = PhaseDetecting
	events, err := c.detector.Scan(target)
	if err != nil {
		c.phase = PhaseBlocked
		return Result{}, fmt.Errorf("detect: %w", err)
	}
	for _, e := range events {
		c.publish("threshold.detected", e)
	}

	if len(events) == 0 {
		c.phase = PhaseCompleted
		return Result{
			Events:        []detect.Event{},
			CircuitClosed: true,
			Summary:       "No thresholds detected - system within limits",
		}, nil
	}

	c.phase = PhaseSimulating
	primary, _ := detect.HighestSeverity(events)
	prediction, err := c.simulator.Model(ctx, primary, sim.DefaultScenarios())
	if err != nil {
		c.phase = PhaseBlocked
		return Result{}, fmt.Errorf("simulate: %w", err)
	}
	c.publish("simulation.complete", prediction)

	c.phase = PhaseDeliberating
	session := deliberate.NewSession(events, &prediction)
	for _, v := range c.voteSet(events, prediction) {
		session.RecordVote(v)
	}
	decision, err := session.Deliberate()
	if err != nil {
		c.phase = PhaseBlocked
		return Result{}, fmt.Errorf("deliberate: %w", err)
	}
	c.publish("deliberation.complete", decision)

	c.phase = PhaseAwaitingApproval
	gates := c.selectGates(decision)

	c.phase = PhaseExecuting
	enforcement, err := c.intervenor.Apply(ctx, decision, target, gates)
	if err != nil {
		c.phase = PhaseBlocked
		return Result{}, fmt.Errorf("intervene: %w", err)
	}
	c.publish("intervention.complete", enforcement)

	// A pause that halts is a well-formed closed outcome, not a failure.
	closed := enforcement.Applied || decision.Decision == deliberate.DecisionPause

	result := Result{
		Events:        events,
		Prediction:    &prediction,
		Deliberation:  &decision,
		Enforcement:   &enforcement,
		CircuitClosed: closed,
		Summary:       buildSummary(events, prediction, decision, enforcement, closed),
	}

	if closed {
		c.phase = PhaseCompleted
	} else {
		c.phase = PhaseBlocked
	}
	log.Printf("[CIRCUIT] run finished: closed=%v decision=%s", closed, decision.Decision)
	return result, nil
}

// #endregion run

// #region votes

func (c *Circuit) voteSet(events []detect.Event, prediction sim.Prediction) []deliberate.StakeholderVote {
	if c.Votes != nil {
		return c.Votes(events, prediction)
	}
	return autoVotes(events, prediction)
}

// autoVotes synthesizes a technical and an ethical vote from the event
// severities and the prediction, so an unattended circuit still deliberates.
func autoVotes(events []detect.Event, prediction sim.Prediction) []deliberate.StakeholderVote {
	criticalCount := detect.CountAtLeast(events, detect.SeverityCritical)

	technical := deliberate.StakeholderVote{
		StakeholderID:   "auto_technical",
		StakeholderType: "technical",
		Confidence:      0.7,
	}
	mostReversible, hasReversible := prediction.MostReversible()
	switch {
	case criticalCount > 2 || (hasReversible && mostReversible.Reversibility < 0.5):
		technical.Vote = deliberate.DecisionPause
		technical.Rationale = "High risk: multiple critical events or low reversibility"
	case criticalCount > 0:
		technical.Vote = deliberate.DecisionConditional
		technical.Rationale = "Critical threshold crossed; proceed only with safeguards"
		technical.Conditions = []string{"logging_enabled", "rollback_available"}
	default:
		technical.Vote = deliberate.DecisionProceed
		technical.Rationale = "Within acceptable risk bounds"
	}

	ethical := deliberate.StakeholderVote{
		StakeholderID:   "auto_ethical",
		StakeholderType: "ethical",
		Confidence:      0.6,
	}
	dataLoss := false
	if best, ok := prediction.BestOutcome(); ok {
		for _, effect := range best.SideEffects {
			if strings.Contains(effect, "data_loss") {
				dataLoss = true
				break
			}
		}
	}
	if criticalCount > 0 || dataLoss {
		ethical.Vote = deliberate.DecisionPause
		ethical.Rationale = "Potential for irreversible harm warrants human review"
	} else {
		ethical.Vote = deliberate.DecisionProceed
		ethical.Rationale = "No ethical concerns identified"
	}

	return []deliberate.StakeholderVote{technical, ethical}
}

// #endregion votes

// #region gates

// selectGates maps a decision to its enforcement gates. REJECT always gets
// a failing gate so a reject decision can never read as applied.
func (c *Circuit) selectGates(decision deliberate.Result) []intervene.Gate {
	approve := c.Approve
	if approve == nil {
		approve = func(intervene.GateContext) (bool, error) { return true, nil }
	}

	switch decision.Decision {
	case deliberate.DecisionReject:
		return []intervene.Gate{
			intervene.AlwaysReject("reject_enforcement", "decision was REJECT"),
		}
	case deliberate.DecisionConditional:
		checker := c.Conditions
		if checker == nil {
			checker = intervene.StaticChecker{}
		}
		return []intervene.Gate{
			&intervene.ApprovalGate{GateName: "conditional_approval", Approve: approve},
			&intervene.ConditionGate{GateName: "condition_check", Checker: checker},
		}
	case deliberate.DecisionDefer:
		return []intervene.Gate{
			&intervene.TimeoutGate{GateName: "defer_window", Timeout: 5 * time.Second, Decide: approve},
		}
	default:
		return []intervene.Gate{
			&intervene.ApprovalGate{GateName: "final_approval", Approve: approve},
		}
	}
}

// #endregion gates

// #region summary

func buildSummary(events []detect.Event, prediction sim.Prediction, decision deliberate.Result, enforcement intervene.EnforcementResult, closed bool) string {
	parts := []string{
		fmt.Sprintf("%d threshold event(s) detected", len(events)),
	}
	if best, ok := prediction.BestOutcome(); ok {
		parts = append(parts, fmt.Sprintf("most likely outcome: %s (p=%.2f)", best.Name, best.Probability))
	}
	parts = append(parts, fmt.Sprintf("decision: %s", decision.Decision))
	if len(decision.Dissents) > 0 {
		parts = append(parts, fmt.Sprintf("%d dissenting view(s) recorded", len(decision.Dissents)))
	}
	parts = append(parts, fmt.Sprintf("enforcement: %s", enforcement.Summary()))
	if closed {
		parts = append(parts, "circuit closed")
	} else {
		parts = append(parts, "circuit blocked")
	}
	return strings.Join(parts, " | ")
}

// #endregion summary
