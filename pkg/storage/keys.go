package storage

import (
	"encoding/hex"
	"fmt"
)

// Key schema:
//
//	ply:<hex(playerID)>             → PlayerRecord
//	ord:<hex(playerID)>:<seq:020d>  → OrderRecord
//
// Player IDs are hex-encoded so an ID containing ':' cannot collide with
// another player's prefix. Seq is zero-padded for lexicographic order.
const (
	prefixPlayer = "ply:"
	prefixOrder  = "ord:"
)

func playerKey(playerID string) []byte {
	return []byte(prefixPlayer + hex.EncodeToString([]byte(playerID)))
}

func orderPrefix(playerID string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixOrder, hex.EncodeToString([]byte(playerID))))
}

func orderKey(playerID string, seq int) []byte {
	return append(orderPrefix(playerID), fmt.Sprintf("%020d", seq)...)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
