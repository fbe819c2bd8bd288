package crypto_util

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeccak256(t *testing.T) {
	// keccak256("") 是以太坊里常见的空哈希
	assert.Equal(t,
		"c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		hex.EncodeToString(Keccak256(nil)))

	// 分段输入与拼接输入结果一致
	whole := Keccak256([]byte("hello world"))
	parts := Keccak256([]byte("hello"), []byte(" "), []byte("world"))
	assert.Equal(t, whole, parts)

	h := Keccak256Hash([]byte("hello world"))
	assert.Equal(t, whole, h[:])
}

func TestHash160(t *testing.T) {
	// BIP32 测试向量 1 主公钥的指纹为 3442193e
	pub, _ := hex.DecodeString("0339a36013301597daef41fbe593a02cc513d0b55527ec2df1050e2e8ff49c85c2")
	assert.Equal(t, "3442193e", hex.EncodeToString(Hash160(pub)[:4]))
}

func TestDoubleSHA256(t *testing.T) {
	assert.Equal(t,
		"5df6e0e2761359d30a8275058e299fcc0381534545f55cf43e41983f5d4c9456",
		hex.EncodeToString(DoubleSHA256(nil)))
}

func TestHMACSHA512(t *testing.T) {
	// RFC 4231 test case 2
	out := HMACSHA512([]byte("Jefe"), []byte("what do ya want "), []byte("for nothing?"))
	assert.Equal(t,
		"164b7a7bfcf819e2e395fbe73b56e0a387bd64222e831fd610270cd7ea2505549758bf75c05a994a6d034f65f8f0e6fdcaeab1a34d4a6b4b636e070a38bce737",
		hex.EncodeToString(out))
}

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	Zero(b)
	assert.Equal(t, []byte{0, 0, 0, 0}, b)
	Zero(nil)
}
