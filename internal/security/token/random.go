package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// RandomHex retorna nBytes aleatorios en hexadecimal (2*nBytes caracteres).
func RandomHex(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token: read random: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// RandomString retorna n caracteres tomados uniformemente de alphabet.
func RandomString(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("token: read random: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
