package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprinter derives identity hashes for snippet sources, so the
// same code imported twice can be recognized regardless of surrounding
// whitespace or line-ending differences.
type Fingerprinter struct{}

// NewFingerprinter creates a source fingerprinter
func NewFingerprinter() *Fingerprinter {
	return &Fingerprinter{}
}

// Fingerprint hashes source text after normalizing line endings and
// trimming outer whitespace
func (f *Fingerprinter) Fingerprint(source string) string {
	normalized := strings.ReplaceAll(source, "\r\n", "\n")
	normalized = strings.TrimSpace(normalized)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
