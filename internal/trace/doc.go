// Package trace renders frame reports as canonical JSON and digests them.
//
// Canonical JSON is the only serialization used for digests and golden
// files:
//   - object keys sorted by UTF-16 code units
//   - no insignificant whitespace, no HTML escaping
//   - strings NFC-normalized
//   - integers only; floats and null are rejected
//
// A digest is SHA-256 over domain || 0x00 || canonical bytes, hex encoded.
// The domain prefix carries a version so the encoding can change without
// old journals silently comparing equal.
package trace
