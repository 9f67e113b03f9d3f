package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const numberSuffixLen = 9

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewOrderNumber builds the customer-facing order identifier: a millisecond
// timestamp plus a random base36 suffix. The orders table enforces uniqueness;
// the random suffix makes a same-millisecond collision vanishingly unlikely.
func NewOrderNumber() (string, error) {
	suffix := make([]byte, numberSuffixLen)
	max := big.NewInt(int64(len(base36)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("order: failed to generate order number: %w", err)
		}
		suffix[i] = base36[n.Int64()]
	}
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffix), nil
}
