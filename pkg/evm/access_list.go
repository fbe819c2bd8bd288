package evm

import (
	"github.com/ethereum/go-ethereum/common"

	"hdwallet-core/pkg/address"
)

// AccessTuple 是 EIP-2930 访问列表中的一项: 合约地址及其预热的存储槽。
type AccessTuple struct {
	Address     address.Address `json:"address"`
	StorageKeys []common.Hash   `json:"storageKeys"`
}

// AccessList 随 EIP-1559 交易一起编码，空列表编码为 0xc0。
type AccessList []AccessTuple

// StorageKeys returns the total number of storage slots across all tuples.
func (al AccessList) StorageKeys() int {
	n := 0
	for _, t := range al {
		n += len(t.StorageKeys)
	}
	return n
}

func (al AccessList) clone() AccessList {
	if al == nil {
		return nil
	}
	out := make(AccessList, len(al))
	for i, t := range al {
		out[i] = AccessTuple{Address: t.Address, StorageKeys: append([]common.Hash(nil), t.StorageKeys...)}
	}
	return out
}

type rlpAccessTuple struct {
	Address     [address.Length]byte
	StorageKeys [][32]byte
}

func (al AccessList) toRLP() []rlpAccessTuple {
	out := make([]rlpAccessTuple, len(al))
	for i, t := range al {
		keys := make([][32]byte, len(t.StorageKeys))
		for j, k := range t.StorageKeys {
			keys[j] = k
		}
		out[i] = rlpAccessTuple{Address: t.Address, StorageKeys: keys}
	}
	return out
}

func accessListFromRLP(in []rlpAccessTuple) AccessList {
	if len(in) == 0 {
		return nil
	}
	out := make(AccessList, len(in))
	for i, t := range in {
		keys := make([]common.Hash, len(t.StorageKeys))
		for j, k := range t.StorageKeys {
			keys[j] = k
		}
		out[i] = AccessTuple{Address: t.Address, StorageKeys: keys}
	}
	return out
}
