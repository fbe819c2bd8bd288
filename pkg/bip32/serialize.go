package bip32

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"

	"hdwallet-core/pkg/crypto_util"
	"hdwallet-core/pkg/errno"
)

const (
	// SerializedKeyLen 是 BIP32 序列化负载长度 (不含校验和)。
	SerializedKeyLen = 78
	checksumLen      = 4
)

// Serialize 按 BIP32 格式编码扩展密钥:
// version(4) || depth(1) || parent fingerprint(4) || child number(4) || chain code(32) || key(33)
// 然后附加 4 字节双 SHA256 校验和并做 Base58 编码。私钥以 0x00 为前缀。
// 已清零的私钥返回 ErrKeyZeroized。
func Serialize(key ExtendedKey) (string, error) {
	if k, ok := key.(*ExtendedPrivateKey); ok && k.IsWiped() {
		return "", errno.ErrKeyZeroized
	}
	buf := make([]byte, 0, SerializedKeyLen+checksumLen)
	defer crypto_util.Zero(buf[:cap(buf)])

	network := key.Network()
	var version [4]byte
	if key.IsPrivate() {
		version = network.privateVersion()
	} else {
		version = network.publicVersion()
	}
	buf = append(buf, version[:]...)
	buf = append(buf, key.Depth())
	parentFP := key.ParentFingerprint()
	buf = append(buf, parentFP[:]...)
	buf = binary.BigEndian.AppendUint32(buf, key.ChildNumber().Wire())
	chainCode := key.ChainCode()
	buf = append(buf, chainCode[:]...)

	switch k := key.(type) {
	case *ExtendedPrivateKey:
		buf = append(buf, 0x00)
		buf = append(buf, k.key.b[:]...)
	default:
		buf = append(buf, key.PublicPoint().b[:]...)
	}

	checksum := crypto_util.DoubleSHA256(buf)[:checksumLen]
	buf = append(buf, checksum...)
	return base58.Encode(buf), nil
}

// Deserialize 解码 xprv/xpub/tprv/tpub 字符串，校验长度、校验和、版本字节以及密钥本身。
// 返回 *ExtendedPrivateKey 或 *ExtendedPublicKey。
func Deserialize(s string) (ExtendedKey, error) {
	decoded := base58.Decode(s)
	defer crypto_util.Zero(decoded)

	if len(decoded) != SerializedKeyLen+checksumLen {
		return nil, fmt.Errorf("%w: %w: %d bytes", errno.ErrInvalidSerialization, errno.ErrInvalidLength, len(decoded))
	}
	payload := decoded[:SerializedKeyLen]
	expected := crypto_util.DoubleSHA256(payload)[:checksumLen]
	if !bytes.Equal(expected, decoded[SerializedKeyLen:]) {
		return nil, fmt.Errorf("%w: %w", errno.ErrInvalidSerialization, errno.ErrChecksumMismatch)
	}

	var version [4]byte
	copy(version[:], payload[:4])
	network, private, err := networkForVersion(version)
	if err != nil {
		return nil, err
	}

	meta := keyMeta{
		depth:       payload[4],
		childNumber: ChildNumberFromWire(binary.BigEndian.Uint32(payload[9:13])),
		network:     network,
	}
	copy(meta.parentFP[:], payload[5:9])
	copy(meta.chainCode[:], payload[13:45])
	if !meta.consistent() {
		return nil, fmt.Errorf("%w: zero depth with non-zero parent fingerprint or index", errno.ErrInvalidSerialization)
	}

	keyData := payload[45:78]
	if private {
		if keyData[0] != 0x00 {
			return nil, fmt.Errorf("%w: private key must be prefixed with 0x00", errno.ErrInvalidSerialization)
		}
		scalar, err := NewScalar(keyData[1:])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errno.ErrInvalidSerialization, err)
		}
		return newExtendedPrivateKey(scalar, meta), nil
	}

	point, err := NewPoint(keyData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errno.ErrInvalidSerialization, err)
	}
	return &ExtendedPublicKey{keyMeta: meta, key: point}, nil
}

// ParseExtendedPrivateKey decodes an xprv/tprv string.
func ParseExtendedPrivateKey(s string) (*ExtendedPrivateKey, error) {
	key, err := Deserialize(s)
	if err != nil {
		return nil, err
	}
	priv, ok := key.(*ExtendedPrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected a private key, got a public key", errno.ErrInvalidSerialization)
	}
	return priv, nil
}

// ParseExtendedPublicKey decodes an xpub/tpub string.
func ParseExtendedPublicKey(s string) (*ExtendedPublicKey, error) {
	key, err := Deserialize(s)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(*ExtendedPublicKey)
	if !ok {
		key.(*ExtendedPrivateKey).Zero()
		return nil, fmt.Errorf("%w: expected a public key, got a private key", errno.ErrInvalidSerialization)
	}
	return pub, nil
}
