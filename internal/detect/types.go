package detect

// #region imports
import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// #endregion

// #region metric-type
// MetricType enumerates the metric kinds a detector can report on.
type MetricType string

const (
	MetricFileCount      MetricType = "file_count"
	MetricDirectoryDepth MetricType = "directory_depth"
	MetricEntropy        MetricType = "entropy"
	MetricSelfReference  MetricType = "self_reference"
	MetricGrowthRate     MetricType = "growth_rate"
	MetricReflexPattern  MetricType = "reflex_pattern"
)

// #endregion metric-type

// #region severity
// Severity orders threshold events from informational to emergency.
type Severity string

const (
	SeverityInfo      Severity = "info"
	SeverityWarning   Severity = "warning"
	SeverityCritical  Severity = "critical"
	SeverityEmergency Severity = "emergency"
)

// Rank returns the numeric ordering of a severity (info=1 .. emergency=4).
// Unknown severities rank 0, below info.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityCritical:
		return 3
	case SeverityEmergency:
		return 4
	}
	return 0
}

// AtLeast reports whether s is at or above the given severity.
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() >= min.Rank()
}

// SeverityFor maps a value/limit ratio to a severity band. Returns ok=false
// when the value is far enough below the limit that no event is warranted.
// warnRatio is the fraction of the limit at which WARNING starts
// (conventionally 0.8); INFO starts at 80% of that.
func SeverityFor(value, limit, warnRatio float64) (Severity, bool) {
	if limit <= 0 {
		return "", false
	}
	ratio := value / limit
	switch {
	case ratio >= 1.5:
		return SeverityEmergency, true
	case ratio >= 1.0:
		return SeverityCritical, true
	case ratio >= warnRatio:
		return SeverityWarning, true
	case ratio >= warnRatio*0.8:
		return SeverityInfo, true
	}
	return "", false
}

// #endregion severity

// #region event
// Event is a threshold crossing reported by a detector. It is read-only
// after creation; EventHash is computed once and never mutated.
type Event struct {
	Metric      MetricType     `json:"metric"`
	Value       float64        `json:"value"`
	Threshold   float64        `json:"threshold"`
	Severity    Severity       `json:"severity"`
	Timestamp   time.Time      `json:"timestamp"`
	Path        string         `json:"path"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details,omitempty"`
	EventHash   string         `json:"event_hash"`
}

// NewEvent builds an Event with its content-derived integrity hash.
func NewEvent(metric MetricType, value, threshold float64, severity Severity, path, description string, details map[string]any) Event {
	e := Event{
		Metric:      metric,
		Value:       value,
		Threshold:   threshold,
		Severity:    severity,
		Timestamp:   time.Now().UTC(),
		Path:        path,
		Description: description,
		Details:     details,
	}
	e.EventHash = e.computeHash()
	return e
}

func (e Event) computeHash() string {
	content := fmt.Sprintf("%s:%g:%g:%s:%s",
		e.Metric, e.Value, e.Threshold, e.Timestamp.Format(time.RFC3339Nano), e.Path)
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

// #endregion event

// #region helpers
// HighestSeverity returns the event with the highest severity rank.
// Ties keep the earliest event in the slice. ok is false for an empty slice.
func HighestSeverity(events []Event) (Event, bool) {
	if len(events) == 0 {
		return Event{}, false
	}
	best := events[0]
	for _, e := range events[1:] {
		if e.Severity.Rank() > best.Severity.Rank() {
			best = e
		}
	}
	return best, true
}

// CountAtLeast counts events at or above the given severity.
func CountAtLeast(events []Event, min Severity) int {
	n := 0
	for _, e := range events {
		if e.Severity.AtLeast(min) {
			n++
		}
	}
	return n
}

// #endregion helpers
