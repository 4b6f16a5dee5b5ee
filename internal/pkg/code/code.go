package code

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// New returns a 4-digit numeric code in [1000, 9999]. Codes are short-lived,
// single-use proofs delivered by email; they are not unique across users.
func New() string {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		// crypto/rand only fails when the platform entropy source is broken.
		panic("code: read random: " + err.Error())
	}
	return fmt.Sprintf("%04d", n.Int64()+1000)
}
