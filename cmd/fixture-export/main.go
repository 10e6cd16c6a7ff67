package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/threshold-circuit/internal/detect"
)

// #region main

func main() {
	outPath := flag.String("out", "", "output fixture JSON path")
	preset := flag.String("preset", "critical", "fixture preset: clean, warning, critical, mixed")
	flag.Parse()

	if *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --out path/to/events.json [--preset critical]")
		os.Exit(2)
	}

	if err := run(*preset, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region presets

func run(preset, outPath string) error {
	fixture, ok := presets[preset]
	if !ok {
		return fmt.Errorf("unknown preset %q", preset)
	}

	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote fixture to %s (%d events)\n", outPath, len(fixture.Events))
	return nil
}

var presets = map[string]detect.Fixture{
	"clean": {
		Description: "No thresholds crossed",
		Events:      []detect.FixtureEvent{},
	},
	"warning": {
		Description: "Single file-count warning",
		Events: []detect.FixtureEvent{
			{
				Metric:      string(detect.MetricFileCount),
				Value:       85,
				Threshold:   100,
				Severity:    string(detect.SeverityWarning),
				Path:        "workspace/docs",
				Description: "file count approaching limit",
			},
		},
	},
	"critical": {
		Description: "File count over limit",
		Events: []detect.FixtureEvent{
			{
				Metric:      string(detect.MetricFileCount),
				Value:       120,
				Threshold:   100,
				Severity:    string(detect.SeverityCritical),
				Path:        "workspace/docs",
				Description: "file count exceeds configured limit",
			},
		},
	},
	"mixed": {
		Description: "Critical depth plus a growth warning and a self-reference",
		Events: []detect.FixtureEvent{
			{
				Metric:      string(detect.MetricDirectoryDepth),
				Value:       14,
				Threshold:   10,
				Severity:    string(detect.SeverityCritical),
				Path:        "workspace/nested",
				Description: "directory nesting exceeds limit",
			},
			{
				Metric:      string(detect.MetricGrowthRate),
				Value:       0.4,
				Threshold:   0.5,
				Severity:    string(detect.SeverityWarning),
				Path:        "workspace",
				Description: "growth rate approaching limit",
			},
			{
				Metric:      string(detect.MetricSelfReference),
				Value:       3,
				Threshold:   2,
				Severity:    string(detect.SeverityCritical),
				Path:        "workspace/meta",
				Description: "self-referential structures detected",
				Details:     map[string]any{"cycles": 3},
			},
		},
	},
}

// #endregion presets
