package deliberate

// #region imports
import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/threshold-circuit/internal/detect"
	"github.com/danielpatrickdp/threshold-circuit/internal/sim"
)

// #endregion

// #region errors
// ErrNoVotes is returned when Deliberate runs on an empty vote set.
// Deliberation without input is a programming error, never a silent no-op.
var ErrNoVotes = errors.New("cannot deliberate without votes")

// #endregion errors

// #region session

// Session accumulates stakeholder votes about a set of threshold events
// and aggregates them into a single Result, preserving dissent.
type Session struct {
	id         string
	events     []detect.Event
	prediction *sim.Prediction
	template   *Template
	votes      []StakeholderVote
	dimensions []DimensionEvaluation
}

// NewSession creates a session over the triggering events. prediction may
// be nil when deliberation runs without simulation input.
func NewSession(events []detect.Event, prediction *sim.Prediction) *Session {
	id := fmt.Sprintf("delib-%s-%s",
		time.Now().UTC().Format("20060102-150405"),
		uuid.New().String()[:8])
	log.Printf("[DELIB] session created: %s", id)
	return &Session{id: id, events: events, prediction: prediction}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// UseTemplate selects a built-in template by name.
func (s *Session) UseTemplate(name string) error {
	t, ok := BuiltinTemplate(name)
	if !ok {
		return fmt.Errorf("template not found: %s", name)
	}
	s.template = &t
	return nil
}

// RecordVote appends a vote, stamping it if the caller did not.
// Submission order matters: it breaks ties during deliberation.
func (s *Session) RecordVote(v StakeholderVote) {
	if v.Timestamp.IsZero() {
		v.Timestamp = time.Now().UTC()
	}
	s.votes = append(s.votes, v)
	log.Printf("[DELIB] vote recorded: %s -> %s", v.StakeholderID, v.Vote)
}

// EvaluateDimension records a scored criterion. Weight and question come
// from the active template when the dimension is named there.
func (s *Session) EvaluateDimension(name string, score float64, notes string) {
	weight := 1.0
	question := ""
	if s.template != nil {
		for _, d := range s.template.Dimensions {
			if d.Name == name {
				weight = d.Weight
				question = d.Question
				break
			}
		}
	}
	s.dimensions = append(s.dimensions, DimensionEvaluation{
		Name:     name,
		Question: question,
		Score:    score,
		Notes:    notes,
		Weight:   weight,
	})
}

// #endregion session

// #region deliberate

// Deliberate tallies the recorded votes into a final decision.
//
// The majority is the decision value with the highest count; ties go to
// whichever tied value was cast earliest. Every non-majority vote yields
// exactly one dissent record. Conditions from CONDITIONAL votes are merged
// and deduplicated regardless of the majority; a PROCEED majority with any
// conditions is promoted to CONDITIONAL.
func (s *Session) Deliberate() (Result, error) {
	if len(s.votes) == 0 {
		return Result{}, ErrNoVotes
	}

	majority := s.tally()

	var dissents []DissentRecord
	for _, v := range s.votes {
		if v.Vote != majority {
			dissents = append(dissents, DissentRecord{
				StakeholderID:  v.StakeholderID,
				DissentingFrom: majority,
				Preferred:      v.Vote,
				Rationale:      v.Rationale,
				Concerns:       v.Concerns,
				Timestamp:      time.Now().UTC(),
			})
		}
	}

	var rationaleParts []string
	for _, v := range s.votes {
		if v.Vote == majority && v.Rationale != "" {
			rationaleParts = append(rationaleParts, v.Rationale)
		}
	}
	rationale := "No rationale provided"
	if len(rationaleParts) > 0 {
		rationale = strings.Join(rationaleParts, " | ")
	}

	var conditions []string
	seen := make(map[string]struct{})
	for _, v := range s.votes {
		if v.Vote != DecisionConditional {
			continue
		}
		for _, c := range v.Conditions {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			conditions = append(conditions, c)
		}
	}

	// Conditions always take precedence over a bare proceed.
	if majority == DecisionProceed && len(conditions) > 0 {
		majority = DecisionConditional
	}

	result := Result{
		SessionID:  s.id,
		Decision:   majority,
		Rationale:  rationale,
		Votes:      s.votes,
		Dissents:   dissents,
		Dimensions: s.dimensions,
		Conditions: conditions,
		Timestamp:  time.Now().UTC(),
	}
	result.AuditHash = result.computeHash()

	log.Printf("[DELIB] complete: %s (votes: %d, dissent: %d)",
		result.Decision, len(s.votes), len(dissents))
	return result, nil
}

// tally counts votes per decision and resolves ties by earliest
// submission. The tie-break is an explicit algorithm step, not an accident
// of map iteration order.
func (s *Session) tally() Decision {
	counts := make(map[Decision]int)
	firstCast := make(map[Decision]int)
	for i, v := range s.votes {
		if _, ok := firstCast[v.Vote]; !ok {
			firstCast[v.Vote] = i
		}
		counts[v.Vote]++
	}

	var majority Decision
	bestCount := -1
	bestFirst := len(s.votes)
	for _, v := range s.votes {
		c := counts[v.Vote]
		f := firstCast[v.Vote]
		if c > bestCount || (c == bestCount && f < bestFirst) {
			majority = v.Vote
			bestCount = c
			bestFirst = f
		}
	}
	return majority
}

// #endregion deliberate
