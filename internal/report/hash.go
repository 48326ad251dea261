package report

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainScan prefixes scan identities. The version suffix allows the
// algorithm to change.
const DomainScan = "taffo/scan/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ScanID is the content-addressed identity of r. Equal reports have equal
// IDs regardless of when or where the scan ran.
func ScanID(r *Report) (string, error) {
	canonical, err := MarshalCanonical(r)
	if err != nil {
		return "", fmt.Errorf("ScanID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainScan, canonical), nil
}

// MustScanID is like ScanID but panics on error.
func MustScanID(r *Report) string {
	id, err := ScanID(r)
	if err != nil {
		panic(err)
	}
	return id
}
