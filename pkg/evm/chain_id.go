package evm

import (
	"fmt"
	"math/big"
	"strconv"

	"hdwallet-core/pkg/errno"
)

// ChainID 是 EIP-155 链 ID，签名哈希中用于防重放。0 不是合法值。
type ChainID uint64

const (
	ChainEthereum   ChainID = 1
	ChainBSC        ChainID = 56
	ChainBSCTestnet ChainID = 97
	ChainPolygon    ChainID = 137
	ChainSepolia    ChainID = 11155111
)

var chainNames = map[ChainID]string{
	ChainEthereum:   "Ethereum Mainnet",
	ChainBSC:        "BSC Mainnet",
	ChainBSCTestnet: "BSC Testnet",
	ChainPolygon:    "Polygon",
	ChainSepolia:    "Sepolia",
}

// NewChainID rejects zero.
func NewChainID(id uint64) (ChainID, error) {
	if id == 0 {
		return 0, fmt.Errorf("%w: chain id must be non-zero", errno.ErrInvalidChainID)
	}
	return ChainID(id), nil
}

func (c ChainID) Value() uint64 { return uint64(c) }

// BigInt returns the id as a new big.Int for RLP encoding.
func (c ChainID) BigInt() *big.Int { return new(big.Int).SetUint64(uint64(c)) }

// Name returns the network name, or "Custom" for ids outside the known set.
func (c ChainID) Name() string {
	if n, ok := chainNames[c]; ok {
		return n
	}
	return "Custom"
}

// IsCustom reports whether the id is outside the known set.
func (c ChainID) IsCustom() bool {
	_, ok := chainNames[c]
	return !ok
}

func (c ChainID) IsTestnet() bool {
	return c == ChainBSCTestnet || c == ChainSepolia
}

func (c ChainID) String() string {
	return c.Name() + " (" + strconv.FormatUint(uint64(c), 10) + ")"
}
