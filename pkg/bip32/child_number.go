package bip32

import (
	"fmt"
	"strconv"

	"hdwallet-core/pkg/errno"
)

// HardenedKeyStart 是硬化派生索引在线上编码的起点 (2^31)。
const HardenedKeyStart uint32 = 0x80000000

// ChildNumber 是子密钥索引: Normal(n) 或 Hardened(n)，0 <= n < 2^31。
// 零值是 Normal(0)，即主密钥的 child number。
type ChildNumber struct {
	index    uint32
	hardened bool
}

// Normal builds a non-hardened child number.
func Normal(index uint32) (ChildNumber, error) {
	if index >= HardenedKeyStart {
		return ChildNumber{}, fmt.Errorf("%w: %d is not below 2^31", errno.ErrInvalidChildIndex, index)
	}
	return ChildNumber{index: index}, nil
}

// Hardened builds a hardened child number. index is the logical value,
// the wire encoding adds 2^31.
func Hardened(index uint32) (ChildNumber, error) {
	if index >= HardenedKeyStart {
		return ChildNumber{}, fmt.Errorf("%w: %d is not below 2^31", errno.ErrInvalidChildIndex, index)
	}
	return ChildNumber{index: index, hardened: true}, nil
}

// ChildNumberFromWire decodes the 32-bit big-endian value found in a
// serialized key or HMAC input.
func ChildNumberFromWire(v uint32) ChildNumber {
	if v >= HardenedKeyStart {
		return ChildNumber{index: v - HardenedKeyStart, hardened: true}
	}
	return ChildNumber{index: v}
}

// Wire returns the on-the-wire encoding.
func (c ChildNumber) Wire() uint32 {
	if c.hardened {
		return c.index + HardenedKeyStart
	}
	return c.index
}

// Index returns the logical index without the hardened offset.
func (c ChildNumber) Index() uint32 { return c.index }

func (c ChildNumber) IsHardened() bool { return c.hardened }

// String 格式: 硬化索引带 ' 后缀，例如 44'。
func (c ChildNumber) String() string {
	s := strconv.FormatUint(uint64(c.index), 10)
	if c.hardened {
		return s + "'"
	}
	return s
}
