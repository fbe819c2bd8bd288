package bip32

import (
	"github.com/btcsuite/btcd/btcec/v2"

	"hdwallet-core/pkg/crypto_util"
	"hdwallet-core/pkg/errno"
)

// MaxDepth 是序列化格式中 depth 字段 (1 字节) 能表示的最大深度。
const MaxDepth = 255

// ExtendedKey 是派生树上的一个节点 (私钥或公钥变体)。
type ExtendedKey interface {
	// String 返回 Base58Check 编码的密钥字符串 (xprv... / xpub...)
	String() string
	// ECPubKey 返回节点对应的 EC 公钥
	ECPubKey() *btcec.PublicKey
	// PublicPoint 返回 33 字节压缩公钥
	PublicPoint() *Point
	Depth() uint8
	ParentFingerprint() [4]byte
	ChildNumber() ChildNumber
	ChainCode() ChainCode
	Network() Network
	// Fingerprint 返回 HASH160(公钥) 的前 4 字节
	Fingerprint() [4]byte
	// IsPrivate 返回是否包含私钥
	IsPrivate() bool
	// Neuter 返回对应的扩展公钥
	Neuter() *ExtendedPublicKey
}

type keyMeta struct {
	chainCode   ChainCode
	depth       uint8
	parentFP    [4]byte
	childNumber ChildNumber
	network     Network
}

func (m *keyMeta) Depth() uint8               { return m.depth }
func (m *keyMeta) ParentFingerprint() [4]byte { return m.parentFP }
func (m *keyMeta) ChildNumber() ChildNumber   { return m.childNumber }
func (m *keyMeta) ChainCode() ChainCode       { return m.chainCode }
func (m *keyMeta) Network() Network           { return m.network }

// consistent 检查 depth==0 当且仅当 parentFP==0 且 childNumber==Normal(0)。
func (m *keyMeta) consistent() bool {
	if m.depth == 0 {
		return m.parentFP == [4]byte{} && m.childNumber == ChildNumber{}
	}
	return true
}

// ExtendedPrivateKey 持有私钥标量。派生产生的是独立的新实例，与父节点不共享可变状态。
// 用完后调用 Zero 清理私钥与链码。
type ExtendedPrivateKey struct {
	keyMeta
	key *Scalar
	pub *Point
}

func newExtendedPrivateKey(key *Scalar, meta keyMeta) *ExtendedPrivateKey {
	return &ExtendedPrivateKey{keyMeta: meta, key: key, pub: key.PublicKey()}
}

// NewExtendedPrivateKey assembles a key node from validated parts. The
// master-key invariant (depth 0 iff zero parent fingerprint and child 0) is
// enforced.
func NewExtendedPrivateKey(key *Scalar, chainCode ChainCode, depth uint8, parentFP [4]byte, child ChildNumber, network Network) (*ExtendedPrivateKey, error) {
	if key.IsZero() {
		return nil, errno.ErrInvalidScalar
	}
	meta := keyMeta{chainCode: chainCode, depth: depth, parentFP: parentFP, childNumber: child, network: network}
	if !meta.consistent() {
		return nil, errno.ErrInvalidSerialization
	}
	return newExtendedPrivateKey(key, meta), nil
}

func (k *ExtendedPrivateKey) IsPrivate() bool { return true }

func (k *ExtendedPrivateKey) PublicPoint() *Point { return k.pub }

func (k *ExtendedPrivateKey) ECPubKey() *btcec.PublicKey { return k.pub.PublicKey() }

// ECPrivKey 返回用于签名的 btcec 私钥 (新对象)，调用方用完后需调用其 Zero。
func (k *ExtendedPrivateKey) ECPrivKey() (*btcec.PrivateKey, error) {
	if k.IsWiped() {
		return nil, errno.ErrKeyZeroized
	}
	return k.key.PrivateKey(), nil
}

// Scalar exposes the private scalar. The returned value aliases the key,
// wiping it wipes this key too.
func (k *ExtendedPrivateKey) Scalar() *Scalar { return k.key }

func (k *ExtendedPrivateKey) Fingerprint() [4]byte { return Fingerprint(k) }

func (k *ExtendedPrivateKey) Neuter() *ExtendedPublicKey { return ToPublic(k) }

// String 返回 xprv/tprv 编码，已清零的私钥返回空串。
func (k *ExtendedPrivateKey) String() string {
	s, err := Serialize(k)
	if err != nil {
		return ""
	}
	return s
}

// DeriveChild derives the child at cn. See DeriveChildPrivate.
func (k *ExtendedPrivateKey) DeriveChild(cn ChildNumber) (*ExtendedPrivateKey, error) {
	return DeriveChildPrivate(k, cn)
}

// DerivePath walks path starting at this key.
func (k *ExtendedPrivateKey) DerivePath(path DerivationPath) (*ExtendedPrivateKey, error) {
	return DerivePath(k, path)
}

// IsWiped reports whether Zero has been called.
func (k *ExtendedPrivateKey) IsWiped() bool { return k == nil || k.key.IsZero() }

// Zero 清零私钥标量和链码。之后该实例不可再用于派生或签名。
func (k *ExtendedPrivateKey) Zero() {
	if k == nil {
		return
	}
	k.key.Zero()
	k.chainCode.Zero()
}

// ExtendedPublicKey 只含公钥，只能做非硬化派生 (watch-only)。
type ExtendedPublicKey struct {
	keyMeta
	key *Point
}

// NewExtendedPublicKey assembles a public node from validated parts.
func NewExtendedPublicKey(key *Point, chainCode ChainCode, depth uint8, parentFP [4]byte, child ChildNumber, network Network) (*ExtendedPublicKey, error) {
	if key == nil {
		return nil, errno.ErrInvalidPublicKey
	}
	meta := keyMeta{chainCode: chainCode, depth: depth, parentFP: parentFP, childNumber: child, network: network}
	if !meta.consistent() {
		return nil, errno.ErrInvalidSerialization
	}
	return &ExtendedPublicKey{keyMeta: meta, key: key}, nil
}

func (k *ExtendedPublicKey) IsPrivate() bool { return false }

func (k *ExtendedPublicKey) PublicPoint() *Point { return k.key }

func (k *ExtendedPublicKey) ECPubKey() *btcec.PublicKey { return k.key.PublicKey() }

func (k *ExtendedPublicKey) Fingerprint() [4]byte { return Fingerprint(k) }

func (k *ExtendedPublicKey) Neuter() *ExtendedPublicKey { return k }

func (k *ExtendedPublicKey) String() string {
	s, _ := Serialize(k)
	return s
}

// DeriveChild derives the non-hardened child at cn. See DeriveChildPublic.
func (k *ExtendedPublicKey) DeriveChild(cn ChildNumber) (*ExtendedPublicKey, error) {
	return DeriveChildPublic(k, cn)
}

// Fingerprint 计算 HASH160(压缩公钥) 的前 4 字节。
func Fingerprint(key ExtendedKey) [4]byte {
	var fp [4]byte
	copy(fp[:], crypto_util.Hash160(key.PublicPoint().b[:]))
	return fp
}
