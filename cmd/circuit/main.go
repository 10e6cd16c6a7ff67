package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/danielpatrickdp/threshold-circuit/internal/bus"
	"github.com/danielpatrickdp/threshold-circuit/internal/circuit"
	"github.com/danielpatrickdp/threshold-circuit/internal/detect"
	"github.com/danielpatrickdp/threshold-circuit/internal/intervene"
	"github.com/danielpatrickdp/threshold-circuit/internal/sim"
)

// #region main
func main() {
	fixturePath := flag.String("events", envOr("CIRCUIT_EVENTS", ""), "path to a threshold event fixture JSON")
	target := flag.String("target", envOr("CIRCUIT_TARGET", "."), "enforcement target")
	dbPath := flag.String("db", envOr("CIRCUIT_DB", "circuit_history.db"), "outcome history database")
	auditDir := flag.String("audit-dir", envOr("CIRCUIT_AUDIT_DIR", "audit"), "directory for audit trail exports")
	seed := flag.Int64("seed", 42, "Monte Carlo base seed")
	runs := flag.Int("runs", 100, "Monte Carlo trials per scenario")
	workers := flag.Int("workers", 4, "Monte Carlo worker count")
	autoApprove := flag.Bool("auto-approve", false, "approve all gates without prompting")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall run deadline")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: circuit --events path/to/events.json [--target path] [--auto-approve]")
		os.Exit(2)
	}

	if err := run(*fixturePath, *target, *dbPath, *auditDir, *seed, *runs, *workers, *autoApprove, *timeout); err != nil {
		log.Fatalf("circuit: %v", err)
	}
}

// #endregion main

// #region run
func run(fixturePath, target, dbPath, auditDir string, seed int64, runs, workers int, autoApprove bool, timeout time.Duration) error {
	detector, err := detect.NewFixtureDetector(fixturePath)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	history, err := sim.OpenHistory(dbPath)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer history.Close()

	cfg := sim.Config{MonteCarloRuns: runs, Workers: workers, Seed: seed}
	simulator := sim.New("monte-carlo-v1", cfg, history)
	intervenor := intervene.NewIntervenor("circuit-cli")

	b := bus.New()
	b.Subscribe("*", func(e bus.Event) error {
		log.Printf("[BUS] %s from %s", e.Topic, e.Source)
		return nil
	})

	c := circuit.New(b, detector, simulator, intervenor)
	if autoApprove {
		c.Approve = func(intervene.GateContext) (bool, error) { return true, nil }
		c.Conditions = intervene.StaticChecker{
			"logging_enabled":    true,
			"rollback_available": true,
		}
	} else {
		c.Approve = promptApproval
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := c.Run(ctx, target)
	if err != nil {
		return err
	}

	if result.Enforcement != nil {
		scenario := sim.ScenarioDefer
		if best, ok := result.Prediction.BestOutcome(); ok {
			scenario = best.Scenario
		}
		if err := history.Record(sim.OutcomeRecord{
			Scenario: scenario,
			Target:   target,
			Success:  result.Enforcement.Applied,
			Summary:  result.Summary,
		}); err != nil {
			log.Printf("record outcome: %v", err)
		}
		if path, err := intervenor.ExportTrail(auditDir); err != nil {
			log.Printf("export audit trail: %v", err)
		} else {
			log.Printf("audit trail: %s", path)
		}
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// promptApproval asks on stdin. Anything other than "y" or "yes" denies.
func promptApproval(gc intervene.GateContext) (bool, error) {
	fmt.Printf("Decision %s on %s - approve? [y/N] ", gc.Decision.Decision, gc.Target)
	var answer string
	if _, err := fmt.Scanln(&answer); err != nil {
		return false, nil
	}
	return answer == "y" || answer == "yes", nil
}

// #endregion run

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
