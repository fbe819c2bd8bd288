package bip44

import (
	"hdwallet-core/pkg/address"
	"hdwallet-core/pkg/bip32"
)

// DerivedAddress 是地址层的只读视图: 路径 + 扩展公钥。不含私钥，可以安全地记录或返回给调用方。
type DerivedAddress struct {
	Path Path
	Key  *bip32.ExtendedPublicKey
}

// Address returns the keccak-based EVM address of the key.
func (d *DerivedAddress) Address() address.Address {
	return address.FromPublicKey(d.Key.ECPubKey())
}

func (d *DerivedAddress) Chain() Chain     { return d.Path.Chain() }
func (d *DerivedAddress) Index() uint32    { return d.Path.Index() }
func (d *DerivedAddress) IsExternal() bool { return d.Path.Chain() == External }
func (d *DerivedAddress) IsInternal() bool { return d.Path.Chain() == Internal }
