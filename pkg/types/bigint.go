package types

import (
	"bytes"
	"fmt"
	"math/big"
)

// BigInt is an unsigned integer that crosses the JSON boundary as a decimal
// string. Token ids and wei amounts use it so they never pass through float64.
// Unquoted JSON numbers are accepted on input for older clients.
type BigInt struct {
	big.Int
}

// NewBigInt copies v; nil becomes zero.
func NewBigInt(v *big.Int) BigInt {
	var out BigInt
	if v != nil {
		out.Set(v)
	}
	return out
}

// Big returns a copy of the underlying value.
func (b BigInt) Big() *big.Int {
	return new(big.Int).Set(&b.Int)
}

func (b BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

func (b *BigInt) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if bytes.Equal(raw, []byte("null")) {
		b.SetInt64(0)
		return nil
	}
	raw = bytes.Trim(raw, `"`)
	if len(raw) == 0 {
		return fmt.Errorf("empty integer")
	}
	if _, ok := b.SetString(string(raw), 10); !ok {
		return fmt.Errorf("invalid integer %q", raw)
	}
	if b.Sign() < 0 {
		return fmt.Errorf("integer must not be negative")
	}
	return nil
}
