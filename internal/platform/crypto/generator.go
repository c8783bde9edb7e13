// File: internal/platform/crypto/generator.go
package crypto

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomHex returns 2n lowercase hex characters drawn from crypto/rand.
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
