package ids

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/Esmakirs9082/chat-sub000/internal/constants"
)

// New generates a prefixed random identifier, e.g. "chr_a1b2...".
func New(prefix string) (string, error) {
	b := make([]byte, constants.IDRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + "_" + hex.EncodeToString(b), nil
}
