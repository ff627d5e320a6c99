package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// randomCode returns a uniformly random numeric code, left-padded with
// zeros, so "007421" is a valid 6-digit code.
func randomCode(digits int) string {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil) // 10^digits
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%0*d", digits, n.Int64())
}
