package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const secretAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateTicketID produces a short human-readable pool ticket id,
// e.g. "WS-4F7K2M".
func GenerateTicketID() string {
	return "WS-" + randomString(6)
}

// GenerateTicketSecret produces the secret paired with a pool ticket id.
func GenerateTicketSecret() string {
	return randomString(10)
}

func randomString(length int) string {
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(secretAlphabet))))
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken.
			panic(fmt.Sprintf("random source unavailable: %v", err))
		}
		out[i] = secretAlphabet[n.Int64()]
	}
	return string(out)
}
