package bus

// #region imports
import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// #endregion

// #region event
// Event is a single message on the bus.
type Event struct {
	Topic     string    `json:"topic"`
	Payload   any       `json:"payload"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	EventID   string    `json:"event_id"`
}

func newEvent(topic string, payload any, source string) Event {
	ts := time.Now().UTC()
	content := fmt.Sprintf("%s:%s:%s", topic, source, ts.Format(time.RFC3339Nano))
	sum := sha256.Sum256([]byte(content))
	return Event{
		Topic:     topic,
		Payload:   payload,
		Source:    source,
		Timestamp: ts,
		EventID:   hex.EncodeToString(sum[:])[:12],
	}
}

// #endregion event

// #region handler
// Handler consumes one event. A non-nil error is collected by Publish and
// reported back to the publisher; it never stops delivery to later handlers.
type Handler func(Event) error

// HandlerError records one failed delivery during a Publish call.
type HandlerError struct {
	Pattern string // subscription pattern that matched ("orders.*", "*", exact topic)
	Token   int    // subscription token of the failing handler
	Err     error
}

func (e HandlerError) Error() string {
	return fmt.Sprintf("handler %d on %s: %v", e.Token, e.Pattern, e.Err)
}

// #endregion handler

// #region bus-struct
type subscriber struct {
	token   int
	handler Handler
}

// Bus is a synchronous topic-based pub/sub bus. Delivery happens in the
// publishing goroutine: exact-topic handlers first, then universal
// wildcards, then prefix ("segment.*") handlers, each group in
// registration order. Not safe for concurrent use; one circuit run owns
// the bus at a time.
type Bus struct {
	exact     map[string][]subscriber
	prefix    map[string][]subscriber
	wildcards []subscriber
	eventLog  []Event
	nextToken int
}

// New creates an empty bus. Circuits receive a bus by injection so tests
// can run in isolation without cross-test event leakage.
func New() *Bus {
	return &Bus{
		exact:  make(map[string][]subscriber),
		prefix: make(map[string][]subscriber),
	}
}

// #endregion bus-struct

// #region subscribe
// Subscribe registers a handler for a topic pattern and returns a token
// usable with Unsubscribe. Patterns: an exact topic ("threshold.detected"),
// a prefix pattern ("threshold.*"), or the universal wildcard "*".
func (b *Bus) Subscribe(pattern string, h Handler) int {
	b.nextToken++
	sub := subscriber{token: b.nextToken, handler: h}

	switch {
	case pattern == "*":
		b.wildcards = append(b.wildcards, sub)
	case strings.HasSuffix(pattern, ".*"):
		b.prefix[pattern] = append(b.prefix[pattern], sub)
	default:
		b.exact[pattern] = append(b.exact[pattern], sub)
	}
	return sub.token
}

// Unsubscribe removes the handler registered under token for the given
// pattern. Returns true if a handler was found and removed.
func (b *Bus) Unsubscribe(pattern string, token int) bool {
	remove := func(subs []subscriber) ([]subscriber, bool) {
		for i, s := range subs {
			if s.token == token {
				return append(subs[:i], subs[i+1:]...), true
			}
		}
		return subs, false
	}

	switch {
	case pattern == "*":
		var ok bool
		b.wildcards, ok = remove(b.wildcards)
		return ok
	case strings.HasSuffix(pattern, ".*"):
		subs, ok := remove(b.prefix[pattern])
		b.prefix[pattern] = subs
		return ok
	default:
		subs, ok := remove(b.exact[pattern])
		b.exact[pattern] = subs
		return ok
	}
}

// #endregion subscribe

// #region publish
// Publish constructs an Event and delivers it synchronously to all matching
// handlers. The returned slice holds one entry per failing handler; an
// empty slice means every handler accepted the event. The caller decides
// whether a broken observer should halt the pipeline.
func (b *Bus) Publish(topic string, payload any, source string) (Event, []HandlerError) {
	event := newEvent(topic, payload, source)
	b.eventLog = append(b.eventLog, event)

	var failures []HandlerError

	deliver := func(pattern string, subs []subscriber) {
		for _, s := range subs {
			if err := safeCall(s.handler, event); err != nil {
				log.Printf("[BUS] handler error on %s: %v", pattern, err)
				failures = append(failures, HandlerError{Pattern: pattern, Token: s.token, Err: err})
			}
		}
	}

	deliver(topic, b.exact[topic])
	deliver("*", b.wildcards)

	if i := strings.LastIndex(topic, "."); i >= 0 {
		pattern := topic[:i] + ".*"
		deliver(pattern, b.prefix[pattern])
	}

	return event, failures
}

// safeCall invokes h, converting a panic into an error so one broken
// subscriber cannot take down the publisher.
func safeCall(h Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(event)
}

// #endregion publish

// #region event-log
// EventLog returns a copy of all published events.
func (b *Bus) EventLog() []Event {
	out := make([]Event, len(b.eventLog))
	copy(out, b.eventLog)
	return out
}

// ExportLog writes the event log to a JSON file.
func (b *Bus) ExportLog(path string) error {
	data, err := json.MarshalIndent(b.eventLog, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal event log: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write event log: %w", err)
	}
	return nil
}

// Clear drops all subscribers and the event log.
func (b *Bus) Clear() {
	b.exact = make(map[string][]subscriber)
	b.prefix = make(map[string][]subscriber)
	b.wildcards = nil
	b.eventLog = nil
}

// #endregion event-log
