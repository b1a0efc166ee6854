package ingest

import "crypto/sha256"

// ComputeEntryID computes the SHA256 of a complete MRT record, header
// included. Re-importing the same dump yields the same IDs, which the
// Postgres sink uses for dedup. Returns a 32-byte digest suitable for BYTEA.
func ComputeEntryID(record []byte) []byte {
	h := sha256.Sum256(record)
	return h[:]
}
