package evm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"hdwallet-core/pkg/address"
	"hdwallet-core/pkg/crypto_util"
)

// SignedTransaction 绑定交易与签名，构造时即完成编码。
type SignedTransaction struct {
	tx  *Transaction
	sig Signature
	raw []byte
}

// NewSignedTransaction encodes tx with sig. The signature is copied.
func NewSignedTransaction(tx *Transaction, sig *Signature) *SignedTransaction {
	return &SignedTransaction{tx: tx, sig: *sig, raw: encodeSigned(tx, sig)}
}

func (s *SignedTransaction) Transaction() *Transaction { return s.tx }
func (s *SignedTransaction) Signature() Signature      { return s.sig }

// Bytes 返回 0x02 || rlp([..., v, r, s])，即广播用的原始字节。
func (s *SignedTransaction) Bytes() []byte { return append([]byte(nil), s.raw...) }

// RawTransaction 返回可直接用于 eth_sendRawTransaction 的 "0x02..." 十六进制串。
func (s *SignedTransaction) RawTransaction() string { return hexutil.Encode(s.raw) }

// Hash 是交易哈希 keccak256(raw)。
func (s *SignedTransaction) Hash() common.Hash {
	return common.BytesToHash(crypto_util.Keccak256(s.raw))
}

// Sender recovers the signing address from the signature.
func (s *SignedTransaction) Sender() (address.Address, error) {
	hash := s.tx.SigningHash()
	return RecoverSigner(hash[:], &s.sig)
}

// VerifyTransaction 恢复签名者并与 expected 比较，恢复失败视为不匹配。
func VerifyTransaction(signed *SignedTransaction, expected address.Address) bool {
	sender, err := signed.Sender()
	if err != nil {
		return false
	}
	return sender == expected
}
