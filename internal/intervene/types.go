package intervene

// #region imports
import (
	"context"
	"time"

	"github.com/danielpatrickdp/threshold-circuit/internal/deliberate"
)

// #endregion

// #region status
// GateStatus is the outcome of a single gate check.
type GateStatus string

const (
	StatusApproved GateStatus = "approved"
	StatusRejected GateStatus = "rejected"
	StatusTimeout  GateStatus = "timeout"
	StatusPending  GateStatus = "pending"
	StatusError    GateStatus = "error"
)

// #endregion status

// #region gate-result
// GateResult records one gate check.
type GateResult struct {
	GateName  string     `json:"gate_name"`
	Status    GateStatus `json:"status"`
	Message   string     `json:"message"`
	Approvers []string   `json:"approvers,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// #endregion gate-result

// #region gate-context
// GateContext is what a gate sees when checked: the deliberation result
// being enforced, the enforcement target, and every gate result so far.
type GateContext struct {
	Decision      deliberate.Result
	Target        string
	PreviousGates []GateResult
}

// Gate is a checkpoint between decision and action. Gates run strictly in
// sequence; any status other than APPROVED halts enforcement.
type Gate interface {
	Name() string
	Check(ctx context.Context, gc GateContext) GateResult
}

// #endregion gate-context
