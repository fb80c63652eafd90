package persist

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/gowebpki/jcs"

	"github.com/agentstation/usagesync/pkg/session"
)

// Digest returns the sha256 of the RFC 8785 canonical form of the sessions
// array. Two runs over the same input produce the same digest regardless of
// indentation or key order on disk.
func Digest(sessions []*session.Session) (string, error) {
	if sessions == nil {
		sessions = []*session.Session{}
	}
	raw, err := json.Marshal(sessions)
	if err != nil {
		return "", err
	}
	return DigestJSON(raw)
}

// DigestJSON canonicalizes JSON input and returns its sha256 hex digest.
func DigestJSON(raw []byte) (string, error) {
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
