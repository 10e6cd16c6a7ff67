package audit

// #region imports
import (
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/threshold-circuit/internal/canonical"
)

// #endregion

// #region errors
// ErrChainCorrupted is returned by Verify when a stored hash disagrees with
// the recomputed one or a prev_hash link does not match its predecessor.
var ErrChainCorrupted = errors.New("audit chain corrupted")

// #endregion errors

// genesisHash anchors the first entry of every trail.
const genesisHash = "genesis"

// #region entry

// Entry is one link in the audit chain. EntryHash covers every other field
// including PreviousHash, so altering any recorded entry breaks every link
// after it.
type Entry struct {
	Timestamp    time.Time      `json:"timestamp"`
	Action       string         `json:"action"`
	Actor        string         `json:"actor"`
	Details      map[string]any `json:"details,omitempty"`
	PreviousHash string         `json:"previous_hash"`
	EntryHash    string         `json:"entry_hash"`
}

// entryBody is the hashed projection of an Entry: everything except the
// hash itself.
type entryBody struct {
	Timestamp    string         `json:"timestamp"`
	Action       string         `json:"action"`
	Actor        string         `json:"actor"`
	Details      map[string]any `json:"details,omitempty"`
	PreviousHash string         `json:"previous_hash"`
}

func (e *Entry) computeHash() (string, error) {
	return canonical.Hash(entryBody{
		Timestamp:    e.Timestamp.Format(time.RFC3339Nano),
		Action:       e.Action,
		Actor:        e.Actor,
		Details:      e.Details,
		PreviousHash: e.PreviousHash,
	}, 32)
}

// #endregion entry

// #region trail

// Trail is an append-only hash-chained log. The zero value is not usable;
// construct with NewTrail.
type Trail struct {
	entries []Entry
}

// NewTrail creates an empty trail rooted at the genesis hash.
func NewTrail() *Trail {
	return &Trail{}
}

// Append records an action, linking it to the previous entry. The returned
// entry carries its computed hash.
func (t *Trail) Append(action, actor string, details map[string]any) (Entry, error) {
	prev := genesisHash
	if n := len(t.entries); n > 0 {
		prev = t.entries[n-1].EntryHash
	}

	e := Entry{
		Timestamp:    time.Now().UTC(),
		Action:       action,
		Actor:        actor,
		Details:      details,
		PreviousHash: prev,
	}
	hash, err := e.computeHash()
	if err != nil {
		return Entry{}, fmt.Errorf("hash audit entry: %w", err)
	}
	e.EntryHash = hash

	t.entries = append(t.entries, e)
	return e, nil
}

// Len reports the number of entries.
func (t *Trail) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the chain. Mutating the copy cannot corrupt
// the trail.
func (t *Trail) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Verify walks the chain from genesis, recomputing every hash and checking
// every prev_hash link. A nil return means the chain is intact.
func (t *Trail) Verify() error {
	return VerifyEntries(t.entries)
}

// VerifyEntries validates an exported chain without a Trail.
func VerifyEntries(entries []Entry) error {
	prev := genesisHash
	for i := range entries {
		e := entries[i]
		if e.PreviousHash != prev {
			return fmt.Errorf("%w: entry %d prev_hash mismatch", ErrChainCorrupted, i)
		}
		hash, err := e.computeHash()
		if err != nil {
			return fmt.Errorf("hash entry %d: %w", i, err)
		}
		if hash != e.EntryHash {
			return fmt.Errorf("%w: entry %d hash mismatch", ErrChainCorrupted, i)
		}
		prev = e.EntryHash
	}
	return nil
}

// #endregion trail
