// Package transform implements the bitsum rule: even values are returned
// unchanged, odd values are added to themselves once per set bit.
package transform

import (
	"errors"
	"math/big"
	"math/bits"
	"strings"
)

var (
	// ErrNegative is returned for values below zero.
	ErrNegative = errors.New("negative value")
	// ErrOverflow is returned when the result does not fit in an int64.
	ErrOverflow = errors.New("result overflows int64")
)

// Transform returns m for even m and m*popcount(m) for odd m.
func Transform(m int64) (int64, error) {
	if m < 0 {
		return 0, ErrNegative
	}

	if m%2 == 0 {
		return m, nil
	}

	hi, lo := bits.Mul64(uint64(m), uint64(Popcount(m)))
	if hi != 0 || lo > 1<<63-1 {
		return 0, ErrOverflow
	}
	return int64(lo), nil
}

// TransformBig is Transform on arbitrary precision values. m is not modified.
func TransformBig(m *big.Int) (*big.Int, error) {
	if m.Sign() < 0 {
		return nil, ErrNegative
	}

	out := new(big.Int).Set(m)
	if m.Bit(0) == 0 {
		return out, nil
	}

	count := 0
	for _, w := range m.Bits() {
		count += bits.OnesCount(uint(w))
	}
	return out.Mul(out, big.NewInt(int64(count))), nil
}

// Popcount returns the number of set bits in m.
func Popcount(m int64) int {
	return bits.OnesCount64(uint64(m))
}

// Bits returns the base-2 digits of m, least significant first.
// Bits(0) is the empty string.
func Bits(m int64) string {
	var sb strings.Builder
	for m > 0 {
		sb.WriteByte(byte('0' + m%2))
		m /= 2
	}
	return sb.String()
}
