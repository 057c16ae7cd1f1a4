package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Digest domains. The version suffix changes whenever the encoded shape
// changes.
const (
	DomainFrame    = "framegraph/frame/v1"
	DomainScenario = "framegraph/scenario/v1"
)

// Digest returns the hex SHA-256 of domain, a zero byte, and the canonical
// encoding of v.
func Digest(domain string, v any) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", domain, err)
	}
	return hashWithDomain(domain, data), nil
}

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
