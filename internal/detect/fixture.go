package detect

// #region imports
import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// #endregion

// #region errors
// ErrBadFixture marks malformed or missing detector configuration. It is
// propagated to the caller, never swallowed: a run cannot start without a
// well-formed event source.
var ErrBadFixture = errors.New("bad events fixture")

// #endregion errors

// #region schema
const fixtureSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["events"],
  "properties": {
    "description": {"type": "string"},
    "events": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["metric", "value", "threshold", "severity", "path"],
        "properties": {
          "metric": {"type": "string", "minLength": 1},
          "value": {"type": "number"},
          "threshold": {"type": "number"},
          "severity": {"enum": ["info", "warning", "critical", "emergency"]},
          "path": {"type": "string"},
          "description": {"type": "string"},
          "details": {"type": "object"}
        }
      }
    }
  }
}`

// #endregion schema

// #region fixture-types
// Fixture is the JSON shape of a recorded detector run.
type Fixture struct {
	Description string         `json:"description"`
	Events      []FixtureEvent `json:"events"`
}

// FixtureEvent mirrors Event minus the derived fields; timestamps and
// hashes are assigned when the fixture is instantiated.
type FixtureEvent struct {
	Metric      string         `json:"metric"`
	Value       float64        `json:"value"`
	Threshold   float64        `json:"threshold"`
	Severity    string         `json:"severity"`
	Path        string         `json:"path"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader
// LoadFixture reads an events fixture, validates it against the embedded
// schema, and returns it. Schema violations come back wrapped in
// ErrBadFixture.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrBadFixture, path, err)
	}

	schema, err := jsonschema.CompileString("events.schema.json", fixtureSchema)
	if err != nil {
		return nil, fmt.Errorf("compile fixture schema: %w", err)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrBadFixture, path, err)
	}
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: validate %s: %v", ErrBadFixture, path, err)
	}

	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrBadFixture, path, err)
	}
	return &f, nil
}

// ToEvents instantiates the fixture's records as hashed Events.
func (f *Fixture) ToEvents() []Event {
	events := make([]Event, 0, len(f.Events))
	for _, fe := range f.Events {
		events = append(events, NewEvent(
			MetricType(fe.Metric),
			fe.Value,
			fe.Threshold,
			Severity(fe.Severity),
			fe.Path,
			fe.Description,
			fe.Details,
		))
	}
	return events
}

// #endregion fixture-loader

// #region fixture-detector
// FixtureDetector replays a recorded fixture as a scan result. The scan
// target is informational only; the fixture decides the events.
type FixtureDetector struct {
	fixture *Fixture
}

// NewFixtureDetector loads and validates a fixture file.
func NewFixtureDetector(path string) (*FixtureDetector, error) {
	f, err := LoadFixture(path)
	if err != nil {
		return nil, err
	}
	log.Printf("[DETECT] fixture loaded: %d events", len(f.Events))
	return &FixtureDetector{fixture: f}, nil
}

// Scan returns the fixture's events, re-hashed for this run.
func (d *FixtureDetector) Scan(string) ([]Event, error) {
	return d.fixture.ToEvents(), nil
}

// #endregion fixture-detector
