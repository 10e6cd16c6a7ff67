package intervene

// #region imports
import (
	"context"
	"fmt"
	"strings"
	"time"
)

// #endregion

// #region approval-gate

// ApprovalFunc answers whether enforcement may proceed. An error means the
// question could not be answered, which fails closed.
type ApprovalFunc func(gc GateContext) (bool, error)

// ApprovalGate asks a single approver.
type ApprovalGate struct {
	GateName string
	Approve  ApprovalFunc
}

func (g *ApprovalGate) Name() string { return g.GateName }

func (g *ApprovalGate) Check(ctx context.Context, gc GateContext) GateResult {
	res := GateResult{GateName: g.GateName, Timestamp: time.Now().UTC()}

	ok, err := g.Approve(gc)
	switch {
	case err != nil:
		res.Status = StatusError
		res.Message = fmt.Sprintf("approval check failed: %v", err)
	case ok:
		res.Status = StatusApproved
		res.Message = "approved"
	default:
		res.Status = StatusRejected
		res.Message = "approval denied"
	}
	return res
}

// AlwaysReject returns a gate that denies everything. Used to enforce
// REJECT decisions: the gate log still records that enforcement was
// attempted and refused.
func AlwaysReject(name, reason string) Gate {
	return &rejectGate{name: name, reason: reason}
}

type rejectGate struct {
	name   string
	reason string
}

func (g *rejectGate) Name() string { return g.name }

func (g *rejectGate) Check(context.Context, GateContext) GateResult {
	return GateResult{
		GateName:  g.name,
		Status:    StatusRejected,
		Message:   g.reason,
		Timestamp: time.Now().UTC(),
	}
}

// #endregion approval-gate

// #region multi-approve

// StakeholderApprover is one voter in a MultiApproveGate.
type StakeholderApprover struct {
	ID      string
	Approve ApprovalFunc
}

// MultiApproveGate requires a quorum of approvals. Approvers are polled in
// order and polling stops as soon as the quorum is met.
type MultiApproveGate struct {
	GateName  string
	Required  int
	Approvers []StakeholderApprover
}

func (g *MultiApproveGate) Name() string { return g.GateName }

func (g *MultiApproveGate) Check(ctx context.Context, gc GateContext) GateResult {
	res := GateResult{GateName: g.GateName, Timestamp: time.Now().UTC()}

	required := g.Required
	if required <= 0 {
		required = len(g.Approvers)
	}

	for _, a := range g.Approvers {
		ok, err := a.Approve(gc)
		if err != nil {
			res.Status = StatusError
			res.Message = fmt.Sprintf("approver %s failed: %v", a.ID, err)
			return res
		}
		if ok {
			res.Approvers = append(res.Approvers, a.ID)
		}
		if len(res.Approvers) >= required {
			res.Status = StatusApproved
			res.Message = fmt.Sprintf("quorum reached: %d/%d", len(res.Approvers), required)
			return res
		}
	}

	res.Status = StatusRejected
	res.Message = fmt.Sprintf("quorum not reached: %d/%d", len(res.Approvers), required)
	return res
}

// #endregion multi-approve

// #region condition-gate

// ConditionChecker answers whether one named condition currently holds.
type ConditionChecker interface {
	Holds(condition string, gc GateContext) (bool, error)
}

// ConditionGate verifies every condition attached to the decision. It
// checks all of them before answering so the result names every unmet
// condition, not just the first.
type ConditionGate struct {
	GateName string
	Checker  ConditionChecker
}

func (g *ConditionGate) Name() string { return g.GateName }

func (g *ConditionGate) Check(ctx context.Context, gc GateContext) GateResult {
	res := GateResult{GateName: g.GateName, Timestamp: time.Now().UTC()}

	conditions := gc.Decision.Conditions
	if len(conditions) == 0 {
		res.Status = StatusApproved
		res.Message = "no conditions attached"
		return res
	}

	var failed []string
	for _, c := range conditions {
		ok, err := g.Checker.Holds(c, gc)
		if err != nil {
			res.Status = StatusError
			res.Message = fmt.Sprintf("condition %q check failed: %v", c, err)
			return res
		}
		if !ok {
			failed = append(failed, c)
		}
	}

	if len(failed) > 0 {
		res.Status = StatusRejected
		res.Message = "conditions not met: " + strings.Join(failed, ", ")
		return res
	}
	res.Status = StatusApproved
	res.Message = fmt.Sprintf("all %d conditions met", len(conditions))
	return res
}

// #endregion condition-gate

// #region timeout-gate

// TimeoutGate wraps a potentially slow approval in a deadline. The decision
// function runs in its own goroutine; a context cancellation or an elapsed
// deadline resolves the gate without waiting for it.
type TimeoutGate struct {
	GateName string
	Timeout  time.Duration
	Decide   ApprovalFunc
}

func (g *TimeoutGate) Name() string { return g.GateName }

func (g *TimeoutGate) Check(ctx context.Context, gc GateContext) GateResult {
	res := GateResult{GateName: g.GateName, Timestamp: time.Now().UTC()}

	type answer struct {
		ok  bool
		err error
	}
	done := make(chan answer, 1)
	go func() {
		ok, err := g.Decide(gc)
		done <- answer{ok, err}
	}()

	timer := time.NewTimer(g.Timeout)
	defer timer.Stop()

	select {
	case a := <-done:
		switch {
		case a.err != nil:
			res.Status = StatusError
			res.Message = fmt.Sprintf("decision failed: %v", a.err)
		case a.ok:
			res.Status = StatusApproved
			res.Message = "approved within window"
		default:
			res.Status = StatusRejected
			res.Message = "rejected within window"
		}
	case <-ctx.Done():
		res.Status = StatusError
		res.Message = fmt.Sprintf("canceled: %v", ctx.Err())
	case <-timer.C:
		res.Status = StatusTimeout
		res.Message = fmt.Sprintf("no decision within %s", g.Timeout)
	}
	return res
}

// #endregion timeout-gate

// #region pause-gate

// PauseGate holds enforcement open until its resume check reports true.
// Until then every check answers PENDING, which halts the gate sequence
// without rejecting the decision.
type PauseGate struct {
	GateName string
	Resume   func(gc GateContext) bool
}

func (g *PauseGate) Name() string { return g.GateName }

func (g *PauseGate) Check(ctx context.Context, gc GateContext) GateResult {
	res := GateResult{GateName: g.GateName, Timestamp: time.Now().UTC()}
	if g.Resume != nil && g.Resume(gc) {
		res.Status = StatusApproved
		res.Message = "resumed"
		return res
	}
	res.Status = StatusPending
	res.Message = "held pending resume"
	return res
}

// #endregion pause-gate
