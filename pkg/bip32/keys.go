package bip32

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"hdwallet-core/pkg/crypto_util"
	"hdwallet-core/pkg/errno"
)

const (
	ScalarSize    = 32
	PointSize     = 33
	ChainCodeSize = 32
)

// Scalar 是一个合法的 secp256k1 私钥标量: 非零且严格小于曲线阶 n。
// 只能通过 NewScalar 构造，持有者用完后必须调用 Zero。
type Scalar struct {
	b [ScalarSize]byte
}

// NewScalar 校验并拷贝 32 字节私钥。输入切片不会被修改，调用方自行清理。
func NewScalar(b []byte) (*Scalar, error) {
	if len(b) != ScalarSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", errno.ErrInvalidScalar, ScalarSize, len(b))
	}
	var k btcec.ModNScalar
	overflow := k.SetByteSlice(b)
	defer k.Zero()
	if overflow || k.IsZero() {
		return nil, fmt.Errorf("%w: not in [1, n-1]", errno.ErrInvalidScalar)
	}
	s := &Scalar{}
	copy(s.b[:], b)
	return s, nil
}

func scalarFromModN(k *btcec.ModNScalar) *Scalar {
	s := &Scalar{}
	k.PutBytes(&s.b)
	return s
}

// Bytes 返回私钥字节的拷贝，调用方负责清零。
func (s *Scalar) Bytes() []byte {
	out := make([]byte, ScalarSize)
	copy(out, s.b[:])
	return out
}

func (s *Scalar) modN() btcec.ModNScalar {
	var k btcec.ModNScalar
	k.SetBytes(&s.b)
	return k
}

// PrivateKey 返回一个新的 btcec 私钥对象。调用方用完后应调用其 Zero。
func (s *Scalar) PrivateKey() *btcec.PrivateKey {
	return &btcec.PrivateKey{Key: s.modN()}
}

// PublicKey 计算 k*G。
func (s *Scalar) PublicKey() *Point {
	priv := s.PrivateKey()
	defer priv.Zero()
	p := &Point{}
	copy(p.b[:], priv.PubKey().SerializeCompressed())
	return p
}

// IsZero reports whether the scalar has been wiped.
func (s *Scalar) IsZero() bool {
	return s == nil || s.b == [ScalarSize]byte{}
}

// Zero wipes the scalar in place.
func (s *Scalar) Zero() {
	if s == nil {
		return
	}
	crypto_util.Zero(s.b[:])
}

// Point 是一个 33 字节压缩格式、已验证在曲线上的公钥。
type Point struct {
	b [PointSize]byte
}

// NewPoint 校验 33 字节压缩公钥 (前缀 0x02/0x03 且落在曲线上)。
func NewPoint(b []byte) (*Point, error) {
	if len(b) != PointSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", errno.ErrInvalidPublicKey, PointSize, len(b))
	}
	if b[0] != 0x02 && b[0] != 0x03 {
		return nil, fmt.Errorf("%w: bad prefix 0x%02x", errno.ErrInvalidPublicKey, b[0])
	}
	if _, err := btcec.ParsePubKey(b); err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrInvalidPublicKey, err)
	}
	p := &Point{}
	copy(p.b[:], b)
	return p, nil
}

func pointFromPublicKey(pub *btcec.PublicKey) *Point {
	p := &Point{}
	copy(p.b[:], pub.SerializeCompressed())
	return p
}

// Bytes returns the compressed encoding.
func (p *Point) Bytes() []byte {
	out := make([]byte, PointSize)
	copy(out, p.b[:])
	return out
}

// PublicKey 返回 btcec 公钥。Point 构造时已经校验过，这里不会失败。
func (p *Point) PublicKey() *btcec.PublicKey {
	pub, err := btcec.ParsePubKey(p.b[:])
	if err != nil {
		panic("bip32: validated point failed to parse: " + err.Error())
	}
	return pub
}

// Uncompressed returns the 65-byte 0x04 || X || Y encoding.
func (p *Point) Uncompressed() []byte {
	return p.PublicKey().SerializeUncompressed()
}

// ChainCode 是 BIP32 链码。
type ChainCode [ChainCodeSize]byte

// NewChainCode copies a 32-byte chain code.
func NewChainCode(b []byte) (ChainCode, error) {
	var c ChainCode
	if len(b) != ChainCodeSize {
		return c, fmt.Errorf("%w: chain code must be %d bytes", errno.ErrInvalidLength, ChainCodeSize)
	}
	copy(c[:], b)
	return c, nil
}

// Zero wipes the chain code in place.
func (c *ChainCode) Zero() {
	crypto_util.Zero(c[:])
}
