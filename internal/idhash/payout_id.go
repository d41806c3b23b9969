// Package idhash derives deterministic record identifiers, so replayed
// cycles produce byte-identical IDs.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputePayoutID computes a deterministic payout_id using SHA256.
// Formula: SHA256(cycle|rank|wallet)
// Returns hex-encoded hash (64 characters).
func ComputePayoutID(cycle int64, rank int, wallet string) string {
	data := fmt.Sprintf("%d|%d|%s", cycle, rank, wallet)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeEventID computes a deterministic acquisition event identifier.
// Formula: SHA256(wallet|tx_signature|event_index)
func ComputeEventID(wallet, txSignature string, eventIndex int) string {
	data := fmt.Sprintf("%s|%s|%d", wallet, txSignature, eventIndex)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
