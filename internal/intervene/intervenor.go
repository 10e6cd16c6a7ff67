package intervene

// #region imports
import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/danielpatrickdp/threshold-circuit/internal/audit"
	"github.com/danielpatrickdp/threshold-circuit/internal/canonical"
	"github.com/danielpatrickdp/threshold-circuit/internal/deliberate"
)

// #endregion

// #region enforcement-result

// EnforcementResult is the complete record of one enforcement attempt.
type EnforcementResult struct {
	DecisionHash string        `json:"decision_hash"`
	Applied      bool          `json:"applied"`
	RolledBack   bool          `json:"rolled_back"`
	GateLog      []GateResult  `json:"gate_log"`
	AuditTrail   []audit.Entry `json:"audit_trail"`
	Timestamp    time.Time     `json:"timestamp"`
	ResultHash   string        `json:"result_hash"`
}

type enforcementSummary struct {
	DecisionHash string `json:"decision_hash"`
	Applied      bool   `json:"applied"`
	RolledBack   bool   `json:"rolled_back"`
	GateCount    int    `json:"gate_count"`
	AuditCount   int    `json:"audit_count"`
	Timestamp    string `json:"timestamp"`
}

func (r *EnforcementResult) computeHash() string {
	return canonical.MustHash(enforcementSummary{
		DecisionHash: r.DecisionHash,
		Applied:      r.Applied,
		RolledBack:   r.RolledBack,
		GateCount:    len(r.GateLog),
		AuditCount:   len(r.AuditTrail),
		Timestamp:    r.Timestamp.Format(time.RFC3339Nano),
	}, 16)
}

// #endregion enforcement-result

// #region intervenor

// Intervenor runs decisions through gates and keeps a hash-chained audit
// trail of everything it does. The mutex serializes appends: one intervenor
// may serve concurrent Apply calls without interleaving chains mid-run.
type Intervenor struct {
	actor string

	mu    sync.Mutex
	trail *audit.Trail
}

// NewIntervenor creates an intervenor whose audit entries are attributed to
// actor.
func NewIntervenor(actor string) *Intervenor {
	return &Intervenor{actor: actor, trail: audit.NewTrail()}
}

// Trail returns a snapshot of the audit chain.
func (iv *Intervenor) Trail() []audit.Entry {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return iv.trail.Entries()
}

// VerifyAuditChain walks the chain and reports corruption.
func (iv *Intervenor) VerifyAuditChain() error {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return iv.trail.Verify()
}

// ExportTrail writes the audit chain to a timestamped file under dir.
func (iv *Intervenor) ExportTrail(dir string) (string, error) {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return iv.trail.Export(dir)
}

func (iv *Intervenor) record(action string, details map[string]any) error {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	_, err := iv.trail.Append(action, iv.actor, details)
	return err
}

// #endregion intervenor

// #region apply

// Apply enforces a deliberation result on target. Gates run strictly in
// order; the first non-APPROVED result halts the sequence and the decision
// is not applied. An empty gate list approves vacuously. Every step lands
// in the audit trail.
func (iv *Intervenor) Apply(ctx context.Context, decision deliberate.Result, target string, gates []Gate) (EnforcementResult, error) {
	result := EnforcementResult{
		DecisionHash: decision.AuditHash,
		Timestamp:    time.Now().UTC(),
	}

	if err := iv.record("enforcement_start", map[string]any{
		"decision_hash": decision.AuditHash,
		"decision":      string(decision.Decision),
		"target":        target,
		"gate_count":    len(gates),
	}); err != nil {
		return EnforcementResult{}, err
	}

	allApproved := true
	for _, g := range gates {
		gr := g.Check(ctx, GateContext{
			Decision:      decision,
			Target:        target,
			PreviousGates: result.GateLog,
		})
		result.GateLog = append(result.GateLog, gr)

		if err := iv.record("gate_check", map[string]any{
			"gate":    gr.GateName,
			"status":  string(gr.Status),
			"message": gr.Message,
		}); err != nil {
			return EnforcementResult{}, err
		}
		log.Printf("[INTERVENE] gate %s: %s", gr.GateName, gr.Status)

		if gr.Status != StatusApproved {
			allApproved = false
			break
		}
	}

	if allApproved {
		result.Applied = true
		if err := iv.record("enforcement_applied", map[string]any{
			"target":       target,
			"gates_passed": len(result.GateLog),
		}); err != nil {
			return EnforcementResult{}, err
		}

		if iv.checkRollbackNeeded(result) {
			result.RolledBack = true
			if err := iv.record("rollback_triggered", map[string]any{
				"target": target,
			}); err != nil {
				return EnforcementResult{}, err
			}
		}
	}

	gatesPassed := 0
	for _, gr := range result.GateLog {
		if gr.Status == StatusApproved {
			gatesPassed++
		}
	}
	if err := iv.record("enforcement_complete", map[string]any{
		"applied":      result.Applied,
		"rolled_back":  result.RolledBack,
		"gates_passed": gatesPassed,
	}); err != nil {
		return EnforcementResult{}, err
	}

	result.AuditTrail = iv.Trail()
	result.ResultHash = result.computeHash()

	log.Printf("[INTERVENE] complete: applied=%v gates=%d", result.Applied, len(result.GateLog))
	return result, nil
}

// checkRollbackNeeded decides whether a just-applied enforcement must be
// reverted. There is no post-apply health probe yet, so it never fires.
// TODO: probe the target after apply and compare against the prediction's
// expected state hash.
func (iv *Intervenor) checkRollbackNeeded(result EnforcementResult) bool {
	_ = result
	return false
}

// #endregion apply

// #region gate-errors

// FailedGates returns the gates that did not approve, for reporting.
func (r *EnforcementResult) FailedGates() []GateResult {
	var failed []GateResult
	for _, g := range r.GateLog {
		if g.Status != StatusApproved {
			failed = append(failed, g)
		}
	}
	return failed
}

// Summary renders a one-line human description of the attempt.
func (r *EnforcementResult) Summary() string {
	if r.Applied {
		return fmt.Sprintf("applied after %d gates", len(r.GateLog))
	}
	failed := r.FailedGates()
	if len(failed) == 0 {
		return "not applied"
	}
	g := failed[0]
	return fmt.Sprintf("halted at gate %s (%s): %s", g.GateName, g.Status, g.Message)
}

// #endregion gate-errors
