package address

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common"

	"hdwallet-core/pkg/crypto_util"
	"hdwallet-core/pkg/errno"
)

// Length 是以太坊地址字节数。
const Length = 20

// Address 以原始 20 字节保存 EVM 地址，输出时再做 EIP-55 大小写。
type Address [Length]byte

// FromHex 解析 0x 前缀 (可省略) 的 40 位十六进制地址。
// 全小写或全大写直接接受；大小写混合时必须通过 EIP-55 校验。
func FromHex(s string) (Address, error) {
	var a Address
	body := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(body) != 2*Length {
		return a, fmt.Errorf("%w: %q must be %d hex characters", errno.ErrInvalidAddress, s, 2*Length)
	}
	raw, err := hex.DecodeString(body)
	if err != nil {
		return a, fmt.Errorf("%w: %q is not hex", errno.ErrInvalidAddress, s)
	}
	copy(a[:], raw)
	if isMixedCase(body) && toChecksumAddress(body) != body {
		return Address{}, fmt.Errorf("%w: %q fails EIP-55 checksum", errno.ErrInvalidAddress, s)
	}
	return a, nil
}

// MustFromHex 用于常量地址，解析失败直接 panic。
func MustFromHex(s string) Address {
	a, err := FromHex(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromBytes copies a 20-byte slice.
func FromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != Length {
		return a, fmt.Errorf("%w: expected %d bytes, got %d", errno.ErrInvalidAddress, Length, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// FromPublicKey 取 keccak256(未压缩公钥去掉 0x04 前缀) 的后 20 字节。
func FromPublicKey(pub *btcec.PublicKey) Address {
	var a Address
	uncompressed := pub.SerializeUncompressed()
	copy(a[:], crypto_util.Keccak256(uncompressed[1:])[12:])
	return a
}

// FromPublicKeyBytes 接受 33 字节压缩、65 字节未压缩或 64 字节裸 X||Y 公钥。
func FromPublicKeyBytes(b []byte) (Address, error) {
	if len(b) == 64 {
		b = append([]byte{0x04}, b...)
	}
	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", errno.ErrInvalidPublicKey, err)
	}
	return FromPublicKey(pub), nil
}

// ValidateChecksum 仅在输入大小写混合时重新计算 EIP-55 并比较，
// 全小写 / 全大写输入视为未带校验和，直接通过。
func ValidateChecksum(s string) bool {
	body := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(body) != 2*Length {
		return false
	}
	if _, err := hex.DecodeString(body); err != nil {
		return false
	}
	if !isMixedCase(body) {
		return true
	}
	return toChecksumAddress(body) == body
}

// Hex 返回带 EIP-55 校验和的 0x 地址。
func (a Address) Hex() string {
	return "0x" + toChecksumAddress(hex.EncodeToString(a[:]))
}

func (a Address) String() string { return a.Hex() }

// Bytes returns a copy of the raw address.
func (a Address) Bytes() []byte {
	out := make([]byte, Length)
	copy(out, a[:])
	return out
}

func (a Address) IsZero() bool { return a == Address{} }

// Common converts to the go-ethereum type for RPC clients.
func (a Address) Common() common.Address { return common.Address(a) }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := FromHex(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// toChecksumAddress 实现 EIP-55 混合大小写校验: 地址第 i 位为字母且
// keccak256(小写地址) 第 i 个半字节 >= 8 时大写。
func toChecksumAddress(address string) string {
	address = strings.ToLower(address)
	hexHash := hex.EncodeToString(crypto_util.Keccak256([]byte(address)))

	var sb strings.Builder
	sb.Grow(len(address))
	for i := 0; i < len(address); i++ {
		char := address[i]
		if char >= 'a' && char <= 'f' && hexCharToInt(hexHash[i]) >= 8 {
			sb.WriteByte(char - 'a' + 'A')
		} else {
			sb.WriteByte(char)
		}
	}
	return sb.String()
}

func isMixedCase(s string) bool {
	return strings.ToLower(s) != s && strings.ToUpper(s) != s
}

func hexCharToInt(c byte) byte {
	if c >= '0' && c <= '9' {
		return c - '0'
	}
	if c >= 'a' && c <= 'f' {
		return c - 'a' + 10
	}
	return 0
}
