package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Codes are drawn from [Min, Max], so they never carry a leading zero.
const (
	Min = 100000
	Max = 999999
)

var span = big.NewInt(Max - Min + 1)

// New returns a uniformly random six-digit numeric code.
func New() (string, error) {
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+Min), nil
}
