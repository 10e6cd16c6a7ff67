package canonical

// #region imports
import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// #endregion

// #region hash
// Hash marshals v to JSON, canonicalizes it per RFC 8785, and returns the
// first n hex characters of its SHA-256 digest. Every derived hash in the
// pipeline (predictions, deliberation results, audit entries, enforcement
// results) goes through here so that hashing is stable across runs and
// across field-ordering changes in callers.
func Hash(v any, n int) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal for hashing: %w", err)
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize: %w", err)
	}
	sum := sha256.Sum256(canon)
	h := hex.EncodeToString(sum[:])
	if n > 0 && n < len(h) {
		return h[:n], nil
	}
	return h, nil
}

// MustHash is Hash for summary structs that cannot fail to marshal.
// It panics on error; callers pass only plain structs of scalars.
func MustHash(v any, n int) string {
	h, err := Hash(v, n)
	if err != nil {
		panic(err)
	}
	return h
}

// #endregion hash
