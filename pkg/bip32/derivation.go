package bip32

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"hdwallet-core/pkg/crypto_util"
	"hdwallet-core/pkg/errno"
	"hdwallet-core/pkg/logger"

	"go.uber.org/zap"
)

const (
	MinSeedBytes = 16
	MaxSeedBytes = 64
)

var masterKeySalt = []byte("Bitcoin seed")

// NewMasterKeyFromSeed 根据种子生成主扩展私钥: I = HMAC-SHA512("Bitcoin seed", seed)，
// 左 32 字节为私钥，右 32 字节为链码。种子长度必须在 16-64 字节之间。
func NewMasterKeyFromSeed(seed []byte, network Network) (*ExtendedPrivateKey, error) {
	if len(seed) < MinSeedBytes || len(seed) > MaxSeedBytes {
		return nil, fmt.Errorf("%w: %d bytes, must be %d-%d", errno.ErrInvalidSeedLength, len(seed), MinSeedBytes, MaxSeedBytes)
	}

	I := crypto_util.HMACSHA512(masterKeySalt, seed)
	defer crypto_util.Zero(I)

	key, err := NewScalar(I[:32])
	if err != nil {
		// 概率约为 2^-127，作为该种子的硬性失败返回
		return nil, fmt.Errorf("%w: master key", errno.ErrDerivationFailed)
	}
	var cc ChainCode
	copy(cc[:], I[32:])

	master := newExtendedPrivateKey(key, keyMeta{chainCode: cc, network: network})
	logger.Debug("bip32 master key created", zap.Stringer("network", network),
		zap.String("fingerprint", fpHex(master.Fingerprint())))
	return master, nil
}

// DeriveChildPrivate 从扩展私钥派生子私钥 (支持硬化与非硬化)。
// 若 IL >= n 或子私钥为 0，该索引派生失败并返回错误，不会自动尝试下一个索引。
func DeriveChildPrivate(parent *ExtendedPrivateKey, cn ChildNumber) (*ExtendedPrivateKey, error) {
	if parent.IsWiped() {
		return nil, errno.ErrKeyZeroized
	}
	if parent.depth == MaxDepth {
		return nil, fmt.Errorf("%w: parent depth %d", errno.ErrMaxDepthExceeded, parent.depth)
	}

	var data [37]byte
	defer crypto_util.Zero(data[:])
	if cn.IsHardened() {
		// 0x00 || ser256(k_par) || ser32(i)
		copy(data[1:33], parent.key.b[:])
	} else {
		// serP(K_par) || ser32(i)
		copy(data[:33], parent.pub.b[:])
	}
	binary.BigEndian.PutUint32(data[33:], cn.Wire())

	I := crypto_util.HMACSHA512(parent.chainCode[:], data[:])
	defer crypto_util.Zero(I)

	var il btcec.ModNScalar
	defer il.Zero()
	if overflow := il.SetByteSlice(I[:32]); overflow {
		return nil, fmt.Errorf("%w: index %s", errno.ErrDerivationFailed, cn)
	}
	k := parent.key.modN()
	defer k.Zero()
	il.Add(&k)
	if il.IsZero() {
		return nil, fmt.Errorf("%w: index %s", errno.ErrDerivationFailed, cn)
	}

	var cc ChainCode
	copy(cc[:], I[32:])

	child := newExtendedPrivateKey(scalarFromModN(&il), keyMeta{
		chainCode:   cc,
		depth:       parent.depth + 1,
		parentFP:    parent.Fingerprint(),
		childNumber: cn,
		network:     parent.network,
	})
	return child, nil
}

// DeriveChildPublic 从扩展公钥派生子公钥: K_i = parse256(IL)*G + K_par。
// 仅支持非硬化索引，硬化索引返回 ErrHardenedFromPublicKey。
func DeriveChildPublic(parent *ExtendedPublicKey, cn ChildNumber) (*ExtendedPublicKey, error) {
	if cn.IsHardened() {
		return nil, fmt.Errorf("%w: index %s", errno.ErrHardenedFromPublicKey, cn)
	}
	if parent.depth == MaxDepth {
		return nil, fmt.Errorf("%w: parent depth %d", errno.ErrMaxDepthExceeded, parent.depth)
	}

	var data [37]byte
	copy(data[:33], parent.key.b[:])
	binary.BigEndian.PutUint32(data[33:], cn.Wire())

	I := crypto_util.HMACSHA512(parent.chainCode[:], data[:])
	defer crypto_util.Zero(I)

	var il btcec.ModNScalar
	defer il.Zero()
	if overflow := il.SetByteSlice(I[:32]); overflow {
		return nil, fmt.Errorf("%w: index %s", errno.ErrDerivationFailed, cn)
	}

	var ilG, parentJ, sum btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(&il, &ilG)
	parent.key.PublicKey().AsJacobian(&parentJ)
	btcec.AddNonConst(&ilG, &parentJ, &sum)
	if (sum.X.IsZero() && sum.Y.IsZero()) || sum.Z.IsZero() {
		return nil, fmt.Errorf("%w: index %s yields the point at infinity", errno.ErrDerivationFailed, cn)
	}
	sum.ToAffine()

	var cc ChainCode
	copy(cc[:], I[32:])

	return &ExtendedPublicKey{
		keyMeta: keyMeta{
			chainCode:   cc,
			depth:       parent.depth + 1,
			parentFP:    parent.Fingerprint(),
			childNumber: cn,
			network:     parent.network,
		},
		key: pointFromPublicKey(btcec.NewPublicKey(&sum.X, &sum.Y)),
	}, nil
}

// ToPublic 返回扩展私钥对应的扩展公钥。源私钥不受影响，仍由调用方负责清理。
func ToPublic(k *ExtendedPrivateKey) *ExtendedPublicKey {
	pub := *k.pub
	return &ExtendedPublicKey{keyMeta: k.keyMeta, key: &pub}
}

// DerivePath walks every component of path from key. Intermediate keys are
// wiped before returning.
func DerivePath(key *ExtendedPrivateKey, path DerivationPath) (*ExtendedPrivateKey, error) {
	if key.IsWiped() {
		return nil, errno.ErrKeyZeroized
	}
	current := key
	for _, cn := range path {
		next, err := DeriveChildPrivate(current, cn)
		if current != key {
			current.Zero()
		}
		if err != nil {
			return nil, err
		}
		current = next
	}
	if current == key {
		return key.Clone(), nil
	}
	return current, nil
}

// DerivePublicPath walks a path of non-hardened components from a public key.
func DerivePublicPath(key *ExtendedPublicKey, path DerivationPath) (*ExtendedPublicKey, error) {
	current := key
	for _, cn := range path {
		next, err := DeriveChildPublic(current, cn)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// Clone returns an independent copy of the key.
func (k *ExtendedPrivateKey) Clone() *ExtendedPrivateKey {
	key := *k.key
	pub := *k.pub
	return &ExtendedPrivateKey{keyMeta: k.keyMeta, key: &key, pub: &pub}
}

func fpHex(fp [4]byte) string { return hex.EncodeToString(fp[:]) }
