package deliberate

// #region imports
import (
	"time"

	"github.com/danielpatrickdp/threshold-circuit/internal/canonical"
)

// #endregion

// #region decision
// Decision enumerates the possible deliberation outcomes.
type Decision string

const (
	DecisionProceed     Decision = "proceed"
	DecisionPause       Decision = "pause"
	DecisionReject      Decision = "reject"
	DecisionDefer       Decision = "defer"
	DecisionConditional Decision = "conditional"
)

// #endregion decision

// #region vote
// StakeholderVote is a single stakeholder's input. Stakeholders are logical
// voters, human or automated, evaluated within one process.
type StakeholderVote struct {
	StakeholderID   string    `json:"stakeholder_id"`
	StakeholderType string    `json:"stakeholder_type"` // e.g. "technical", "ethical", "domain"
	Vote            Decision  `json:"vote"`
	Rationale       string    `json:"rationale"`
	Confidence      float64   `json:"confidence"`
	Concerns        []string  `json:"concerns,omitempty"`
	Conditions      []string  `json:"conditions,omitempty"` // meaningful only for CONDITIONAL
	Timestamp       time.Time `json:"timestamp"`
}

// #endregion vote

// #region dissent
// DissentRecord preserves a minority view. Dissent is signal, not failure:
// one record exists per vote that disagreed with the majority.
type DissentRecord struct {
	StakeholderID  string    `json:"stakeholder_id"`
	DissentingFrom Decision  `json:"dissenting_from"`
	Preferred      Decision  `json:"preferred"`
	Rationale      string    `json:"rationale"`
	Concerns       []string  `json:"concerns,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// #endregion dissent

// #region dimension
// DimensionEvaluation scores one criterion from the active template.
type DimensionEvaluation struct {
	Name     string  `json:"name"`
	Question string  `json:"question"`
	Score    float64 `json:"score"`
	Notes    string  `json:"notes"`
	Weight   float64 `json:"weight"`
}

// #endregion dimension

// #region result
// Result is the complete record of a deliberation: the decision, how it
// was reached, and who disagreed.
type Result struct {
	SessionID  string                `json:"session_id"`
	Decision   Decision              `json:"decision"`
	Rationale  string                `json:"rationale"`
	Votes      []StakeholderVote     `json:"votes"`
	Dissents   []DissentRecord       `json:"dissenting_views"`
	Dimensions []DimensionEvaluation `json:"dimensions,omitempty"`
	Conditions []string              `json:"conditions,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
	AuditHash  string                `json:"audit_hash"`
}

// resultSummary is the stable projection the hash derives from. Hashing
// the summary instead of the full payload keeps the hash cheap and the
// audit trail lightweight.
type resultSummary struct {
	SessionID    string `json:"session_id"`
	Decision     string `json:"decision"`
	VoteCount    int    `json:"vote_count"`
	DissentCount int    `json:"dissent_count"`
	Timestamp    string `json:"timestamp"`
}

func (r *Result) computeHash() string {
	return canonical.MustHash(resultSummary{
		SessionID:    r.SessionID,
		Decision:     string(r.Decision),
		VoteCount:    len(r.Votes),
		DissentCount: len(r.Dissents),
		Timestamp:    r.Timestamp.Format(time.RFC3339Nano),
	}, 16)
}

// #endregion result
