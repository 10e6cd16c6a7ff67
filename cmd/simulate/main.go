package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/danielpatrickdp/threshold-circuit/internal/detect"
	"github.com/danielpatrickdp/threshold-circuit/internal/sim"
)

// #region main
func main() {
	fixturePath := flag.String("events", "", "path to a threshold event fixture JSON")
	scenarioList := flag.String("scenarios", "", "comma-separated scenarios (default: standard set)")
	seed := flag.Int64("seed", 42, "Monte Carlo base seed")
	runs := flag.Int("runs", 100, "Monte Carlo trials per scenario")
	workers := flag.Int("workers", 4, "Monte Carlo worker count")
	dotOut := flag.String("dot", "", "also write the initial state graph as DOT to this path")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: simulate --events path/to/events.json [--scenarios a,b] [--dot out.dot]")
		os.Exit(2)
	}

	if err := run(*fixturePath, *scenarioList, *seed, *runs, *workers, *dotOut); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region run
func run(fixturePath, scenarioList string, seed int64, runs, workers int, dotOut string) error {
	fixture, err := detect.LoadFixture(fixturePath)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}
	events := fixture.ToEvents()
	if len(events) == 0 {
		return fmt.Errorf("fixture contains no events")
	}
	primary, _ := detect.HighestSeverity(events)

	scenarios := sim.DefaultScenarios()
	if scenarioList != "" {
		scenarios = scenarios[:0]
		for _, s := range strings.Split(scenarioList, ",") {
			scenarios = append(scenarios, sim.Scenario(strings.TrimSpace(s)))
		}
	}

	if dotOut != "" {
		dot, err := sim.StateDOT(primary)
		if err != nil {
			return fmt.Errorf("render state graph: %w", err)
		}
		if err := os.WriteFile(dotOut, []byte(dot), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", dotOut, err)
		}
	}

	cfg := sim.Config{MonteCarloRuns: runs, Workers: workers, Seed: seed}
	simulator := sim.New("monte-carlo-v1", cfg, nil)

	prediction, err := simulator.Model(context.Background(), primary, scenarios)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(prediction, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal prediction: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// #endregion run
