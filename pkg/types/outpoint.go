package types

import "fmt"

// Outpoint references a specific output of a transaction: the coordinates of
// a spendable coin.
type Outpoint struct {
	TxDigest Digest `json:"tx_digest"`
	Index    byte   `json:"index"`
}

// String returns "digest:index" in hex.
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxDigest.Hex(), o.Index)
}
