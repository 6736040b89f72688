package token

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

// Address identifies an account or a deployed token instance. Addresses are
// opaque: the ledger never interprets them beyond equality and the zero check.
type Address string

// Zero is the null account. Transfers touching it skip the tax split, and
// required address parameters reject it.
const Zero Address = ""

// IsZero reports whether the address is the null account.
func (a Address) IsZero() bool {
	return a == Zero
}

// NewAddress derives a fresh 20-byte hex address from a random UUID, keccak
// style. Collisions are practically unreachable.
func NewAddress() Address {
	id := uuid.New()
	h := sha3.NewLegacyKeccak256()
	h.Write(id[:])
	sum := h.Sum(nil)
	return Address("0x" + hex.EncodeToString(sum[12:]))
}

// ParseAmount decodes a decimal string into an unsigned 256-bit amount. The
// empty string decodes to zero so optional JSON fields stay ergonomic.
func ParseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return uint256.NewInt(0), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

func uitoa(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func btoa(v bool) string {
	return strconv.FormatBool(v)
}
