package access

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	jsoncanonical "github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
)

// Fingerprint returns the hex-encoded SHA-256 of the JCS (RFC 8785)
// serialization of v. Two override records with the same explicit values
// have the same fingerprint regardless of key order. nil and an empty
// record both hash the document {}; an empty nested object does not, since
// it survives a round trip.
func (v *VisibilityOverrides) Fingerprint() string {
	raw, err := v.Encode()
	if err != nil {
		// Override and NestedOverrides marshal without error.
		panic(fmt.Sprintf("access: encode overrides: %v", err))
	}
	jcs, err := jsoncanonical.Transform(raw)
	if err != nil {
		// JCS transform fails only on invalid JSON, which Encode never emits.
		panic(fmt.Sprintf("access: JCS transform: %v", err))
	}
	sum := sha256.Sum256(jcs)
	return hex.EncodeToString(sum[:])
}

// ETag returns a strong entity tag for the decisions of r. It changes
// whenever the role or any explicit override changes.
func (r Resolver) ETag() string {
	sum := sha256.Sum256([]byte(string(r.role) + "\x00" + r.overrides.Fingerprint()))
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
