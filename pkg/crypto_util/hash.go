package crypto_util

import (
	"crypto/hmac"
	"crypto/sha512"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/crypto/sha3"
)

// Keccak256 计算输入的 Keccak256 哈希值 (以太坊使用的 legacy keccak, 不是 NIST SHA3)。
// 多个参数按顺序拼接后再哈希。
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		h.Write(b)
	}
	return h.Sum(nil)
}

// Keccak256Hash 与 Keccak256 相同，返回定长数组。
func Keccak256Hash(data ...[]byte) (out [32]byte) {
	copy(out[:], Keccak256(data...))
	return out
}

// Hash160 计算 RIPEMD160(SHA256(data))，用于 BIP32 指纹。
func Hash160(data []byte) []byte {
	return btcutil.Hash160(data)
}

// DoubleSHA256 计算 SHA256(SHA256(data))，用于 Base58Check 校验和。
func DoubleSHA256(data []byte) []byte {
	return chainhash.DoubleHashB(data)
}

// HMACSHA512 计算 HMAC-SHA512(key, data...)。
func HMACSHA512(key []byte, data ...[]byte) []byte {
	mac := hmac.New(sha512.New, key)
	for _, b := range data {
		mac.Write(b)
	}
	return mac.Sum(nil)
}

// Zero 将敏感缓冲区覆写为 0。调用方应在所有返回路径上 defer 调用。
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
