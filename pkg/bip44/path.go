package bip44

import (
	"fmt"
	"strconv"
	"strings"

	"hdwallet-core/pkg/bip32"
	"hdwallet-core/pkg/errno"
)

// MaxIndex 是账户/地址索引允许的最大值 (2^31 - 1)。
const MaxIndex = bip32.HardenedKeyStart - 1

// Path 是五层 BIP44 路径 m/purpose'/coin_type'/account'/chain/address_index，
// 前三层总是硬化。构造后不可变。
type Path struct {
	purpose  Purpose
	coinType CoinType
	account  uint32
	chain    Chain
	index    uint32
}

// NewPath validates every level and returns the path.
func NewPath(purpose Purpose, coinType CoinType, account uint32, chain Chain, index uint32) (Path, error) {
	if _, err := PurposeFromUint32(uint32(purpose)); err != nil {
		return Path{}, err
	}
	if _, err := ChainFromUint32(uint32(chain)); err != nil {
		return Path{}, err
	}
	if uint32(coinType) > MaxIndex {
		return Path{}, fmt.Errorf("%w: coin type %d exceeds %d", errno.ErrInvalidChildIndex, coinType, MaxIndex)
	}
	if account > MaxIndex {
		return Path{}, fmt.Errorf("%w: account %d exceeds %d", errno.ErrInvalidChildIndex, account, MaxIndex)
	}
	if index > MaxIndex {
		return Path{}, fmt.Errorf("%w: address index %d exceeds %d", errno.ErrInvalidChildIndex, index, MaxIndex)
	}
	return Path{purpose: purpose, coinType: coinType, account: account, chain: chain, index: index}, nil
}

// EthereumPath returns m/44'/60'/account'/0/index.
func EthereumPath(account, index uint32) (Path, error) {
	return NewPath(PurposeBIP44, CoinEthereum, account, External, index)
}

func (p Path) Purpose() Purpose   { return p.purpose }
func (p Path) CoinType() CoinType { return p.coinType }
func (p Path) Account() uint32    { return p.account }
func (p Path) Chain() Chain       { return p.chain }
func (p Path) Index() uint32      { return p.index }

// String 格式化为 m/44'/60'/0'/0/0。
func (p Path) String() string {
	return fmt.Sprintf("m/%d'/%d'/%d'/%d/%d", p.purpose, p.coinType, p.account, p.chain, p.index)
}

// AccountPath 返回账户层路径 m/44'/60'/0'。
func (p Path) AccountPath() string {
	return fmt.Sprintf("m/%d'/%d'/%d'", p.purpose, p.coinType, p.account)
}

// DerivationSequence 返回从主密钥开始依次派生的五个 ChildNumber。
func (p Path) DerivationSequence() [5]bip32.ChildNumber {
	return [5]bip32.ChildNumber{
		bip32.ChildNumberFromWire(uint32(p.purpose) + bip32.HardenedKeyStart),
		bip32.ChildNumberFromWire(uint32(p.coinType) + bip32.HardenedKeyStart),
		bip32.ChildNumberFromWire(p.account + bip32.HardenedKeyStart),
		bip32.ChildNumberFromWire(uint32(p.chain)),
		bip32.ChildNumberFromWire(p.index),
	}
}

// DerivationPath converts to the generic bip32 path.
func (p Path) DerivationPath() bip32.DerivationPath {
	seq := p.DerivationSequence()
	return bip32.DerivationPath(seq[:])
}

// WithIndex returns a copy with a different address index.
func (p Path) WithIndex(index uint32) (Path, error) {
	return NewPath(p.purpose, p.coinType, p.account, p.chain, index)
}

// WithChain returns a copy on the other chain.
func (p Path) WithChain(chain Chain) (Path, error) {
	return NewPath(p.purpose, p.coinType, p.account, chain, p.index)
}

// Next returns the path of the following address on the same chain.
func (p Path) Next() (Path, error) {
	if p.index == MaxIndex {
		return Path{}, fmt.Errorf("%w: address index overflow", errno.ErrInvalidChildIndex)
	}
	return p.WithIndex(p.index + 1)
}

// PathParseError 指出路径字符串中出错的那一段。
type PathParseError struct {
	Path      string
	Component string
	Position  int
	Reason    string
}

func (e *PathParseError) Error() string {
	return fmt.Sprintf("invalid BIP44 path %q: component %d (%q): %s", e.Path, e.Position, e.Component, e.Reason)
}

func (e *PathParseError) Unwrap() error { return errno.ErrInvalidPath }

var levelNames = [6]string{"root", "purpose", "coin type", "account", "chain", "address index"}

// ParsePath 解析 m/purpose'/coin'/account'/chain/index。
// 前三段必须带 ' 后缀 (也接受 h 和 H)，后两段不能带硬化标记。
func ParsePath(s string) (Path, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	fail := func(pos int, reason string) (Path, error) {
		comp := ""
		if pos < len(parts) {
			comp = parts[pos]
		}
		return Path{}, &PathParseError{Path: s, Component: comp, Position: pos, Reason: reason}
	}

	if len(parts) != 6 {
		return fail(min(len(parts), 5), fmt.Sprintf("expected 6 components, got %d", len(parts)))
	}
	if parts[0] != "m" {
		return fail(0, "path must start with m")
	}

	var values [5]uint32
	for i := 1; i <= 5; i++ {
		comp, hardened := bip32.TrimHardened(parts[i])
		if i <= 3 && !hardened {
			return fail(i, levelNames[i]+" must be hardened")
		}
		if i > 3 && hardened {
			return fail(i, levelNames[i]+" must not be hardened")
		}
		if comp == "" || comp[0] == '+' || comp[0] == '-' {
			return fail(i, "not a number")
		}
		v, err := strconv.ParseUint(comp, 10, 32)
		if err != nil {
			return fail(i, "not a number")
		}
		if uint32(v) > MaxIndex {
			return fail(i, "index must be below 2^31")
		}
		values[i-1] = uint32(v)
	}

	purpose, err := PurposeFromUint32(values[0])
	if err != nil {
		return fail(1, "unsupported purpose")
	}
	chain, err := ChainFromUint32(values[3])
	if err != nil {
		return fail(4, "chain must be 0 or 1")
	}
	return NewPath(purpose, CoinType(values[1]), values[2], chain, values[4])
}

// PathBuilder 逐字段构建路径，校验推迟到 Build。
type PathBuilder struct {
	purpose  Purpose
	coinType CoinType
	account  uint32
	chain    Chain
	index    uint32
	coinSet  bool
}

// NewPathBuilder starts from purpose 44, account 0, external chain, index 0.
// The coin type is required.
func NewPathBuilder() *PathBuilder {
	return &PathBuilder{purpose: PurposeBIP44}
}

func (b *PathBuilder) Purpose(p Purpose) *PathBuilder { b.purpose = p; return b }

func (b *PathBuilder) CoinType(c CoinType) *PathBuilder {
	b.coinType = c
	b.coinSet = true
	return b
}

func (b *PathBuilder) Account(a uint32) *PathBuilder { b.account = a; return b }
func (b *PathBuilder) Chain(c Chain) *PathBuilder    { b.chain = c; return b }
func (b *PathBuilder) Index(i uint32) *PathBuilder   { b.index = i; return b }

func (b *PathBuilder) Build() (Path, error) {
	if !b.coinSet {
		return Path{}, fmt.Errorf("%w: coin type", errno.ErrMissingField)
	}
	return NewPath(b.purpose, b.coinType, b.account, b.chain, b.index)
}
