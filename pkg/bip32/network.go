package bip32

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"

	"hdwallet-core/pkg/errno"
)

// Network 决定序列化时使用的版本字节 (xprv/xpub 或 tprv/tpub)。
type Network uint8

const (
	MainNet Network = iota
	TestNet
)

// ParseNetwork accepts "mainnet"/"main" and "testnet"/"test"/"testnet3".
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mainnet", "main", "":
		return MainNet, nil
	case "testnet", "test", "testnet3":
		return TestNet, nil
	default:
		return 0, fmt.Errorf("%w: unknown network %q", errno.ErrInvalidValue, s)
	}
}

// Params returns the btcd chain parameters that carry the HD version ids.
func (n Network) Params() *chaincfg.Params {
	if n == TestNet {
		return &chaincfg.TestNet3Params
	}
	return &chaincfg.MainNetParams
}

func (n Network) privateVersion() [4]byte { return n.Params().HDPrivateKeyID }

func (n Network) publicVersion() [4]byte { return n.Params().HDPublicKeyID }

func (n Network) String() string {
	if n == TestNet {
		return "testnet"
	}
	return "mainnet"
}

// networkForVersion maps 4 version bytes back to (network, isPrivate).
func networkForVersion(v [4]byte) (Network, bool, error) {
	for _, n := range []Network{MainNet, TestNet} {
		switch v {
		case n.privateVersion():
			return n, true, nil
		case n.publicVersion():
			return n, false, nil
		}
	}
	return 0, false, fmt.Errorf("%w: %w: %x", errno.ErrInvalidSerialization, errno.ErrUnknownVersion, v[:])
}
