package types

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID mints a fresh 32 byte hex identifier, the same shape as the ledger
// object addresses the engine mirrors.
func NewID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return "0x" + hex.EncodeToString(b)
}
