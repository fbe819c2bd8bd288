package evm

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"hdwallet-core/pkg/errno"
)

// SignatureLength 是 r‖s‖v 的字节数。
const SignatureLength = 65

// Signature 是可恢复的 secp256k1 签名，s 总是 low-s 形式，V 为 recovery id (0 或 1)。
type Signature struct {
	R [32]byte
	S [32]byte
	V byte
}

// SignatureFromBytes 解析 65 字节 r‖s‖v。v 接受 0/1 以及合约侧常见的 27/28。
func SignatureFromBytes(b []byte) (*Signature, error) {
	if len(b) != SignatureLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", errno.ErrInvalidSignature, SignatureLength, len(b))
	}
	v := b[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return nil, fmt.Errorf("%w: invalid recovery id %d", errno.ErrInvalidSignature, b[64])
	}
	sig := &Signature{V: v}
	copy(sig.R[:], b[:32])
	copy(sig.S[:], b[32:64])
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	return sig, nil
}

// Validate 要求 r、s 落在 [1, n-1]，且 s <= n/2 (low-s)，拒绝可延展的签名。
func (s *Signature) Validate() error {
	if s.V > 1 {
		return fmt.Errorf("%w: invalid recovery id %d", errno.ErrInvalidSignature, s.V)
	}
	var r, sv btcec.ModNScalar
	if overflow := r.SetBytes(&s.R); overflow != 0 || r.IsZero() {
		return fmt.Errorf("%w: r not in [1, n-1]", errno.ErrInvalidSignature)
	}
	if overflow := sv.SetBytes(&s.S); overflow != 0 || sv.IsZero() {
		return fmt.Errorf("%w: s not in [1, n-1]", errno.ErrInvalidSignature)
	}
	if sv.IsOverHalfOrder() {
		return fmt.Errorf("%w: s is not in low-s form", errno.ErrInvalidSignature)
	}
	return nil
}

// ParseSignature decodes a 0x-prefixed 65-byte hex signature.
func ParseSignature(s string) (*Signature, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrInvalidHex, err)
	}
	return SignatureFromBytes(b)
}

// Bytes returns r‖s‖v with v in {0, 1}.
func (s *Signature) Bytes() []byte {
	out := make([]byte, SignatureLength)
	copy(out, s.R[:])
	copy(out[32:], s.S[:])
	out[64] = s.V
	return out
}

// LegacyBytes 返回 v 为 27/28 的 r‖s‖v，供链上 ecrecover (如 ERC-4337 账户合约) 使用。
func (s *Signature) LegacyBytes() []byte {
	out := s.Bytes()
	out[64] += 27
	return out
}

// Hex returns the 0x-prefixed hex of Bytes.
func (s *Signature) Hex() string { return hexutil.Encode(s.Bytes()) }

func (s *Signature) String() string { return s.Hex() }

// Zero wipes the signature.
func (s *Signature) Zero() {
	s.R = [32]byte{}
	s.S = [32]byte{}
	s.V = 0
}
