package evm

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"hdwallet-core/pkg/address"
	"hdwallet-core/pkg/bip32"
	"hdwallet-core/pkg/bip44"
	"hdwallet-core/pkg/errno"
	"hdwallet-core/pkg/monitor"
)

// compactHeader 是 btcec 紧凑签名首字节的基数 (27 + recid，压缩公钥再 +4)。
const compactHeader = 27

// Signer 持有一个地址层私钥，对任意 32 字节摘要做 RFC 6979 确定性 ECDSA 签名。
// 用完后调用 Zero。
type Signer struct {
	key     *btcec.PrivateKey
	address address.Address
}

// NewSigner 派生账户外部链上 index 处的私钥并绑定为签名者。
func NewSigner(account *bip44.Account, index uint32) (*Signer, error) {
	key, err := account.DeriveExternal(index)
	if err != nil {
		return nil, err
	}
	defer key.Zero()
	return NewSignerFromKey(key)
}

// NewSignerFromKey copies the private scalar of key. The caller still owns key.
func NewSignerFromKey(key *bip32.ExtendedPrivateKey) (*Signer, error) {
	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return &Signer{key: priv, address: address.FromPublicKey(priv.PubKey())}, nil
}

// NewSignerFromPrivateKey 从 32 字节原始私钥构造签名者。输入切片不会被保留。
func NewSignerFromPrivateKey(b []byte) (*Signer, error) {
	scalar, err := bip32.NewScalar(b)
	if err != nil {
		return nil, err
	}
	defer scalar.Zero()
	priv := scalar.PrivateKey()
	return &Signer{key: priv, address: address.FromPublicKey(priv.PubKey())}, nil
}

// Address returns keccak256(uncompressed_pubkey[1:])[12:].
func (s *Signer) Address() address.Address { return s.address }

// SignHash 对 32 字节摘要签名。btcec 输出的 s 已是 low-s 形式。
func (s *Signer) SignHash(hash []byte) (*Signature, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("%w: expected 32 bytes, got %d", errno.ErrInvalidDigestLength, len(hash))
	}
	if s.key == nil || s.key.Key.IsZero() {
		return nil, errno.ErrKeyZeroized
	}
	compact := ecdsa.SignCompact(s.key, hash, false)
	if len(compact) != SignatureLength {
		return nil, fmt.Errorf("%w: unexpected compact signature length %d", errno.ErrSigningFailed, len(compact))
	}
	sig := &Signature{V: compact[0] - compactHeader}
	copy(sig.R[:], compact[1:33])
	copy(sig.S[:], compact[33:65])
	return sig, nil
}

// SignTransaction signs the EIP-1559 signing hash of tx.
func (s *Signer) SignTransaction(tx *Transaction) (*SignedTransaction, error) {
	hash := tx.SigningHash()
	sig, err := s.SignHash(hash[:])
	if err != nil {
		return nil, err
	}
	monitor.Wallet.Signatures.WithLabelValues("eip1559").Inc()
	return NewSignedTransaction(tx, sig), nil
}

// Zero wipes the private key. The signer cannot sign afterwards.
func (s *Signer) Zero() {
	if s.key != nil {
		s.key.Zero()
	}
}

// RecoverSigner 从摘要和签名恢复签名者地址。
func RecoverSigner(hash []byte, sig *Signature) (address.Address, error) {
	if len(hash) != 32 {
		return address.Address{}, fmt.Errorf("%w: expected 32 bytes, got %d", errno.ErrInvalidDigestLength, len(hash))
	}
	if err := sig.Validate(); err != nil {
		return address.Address{}, err
	}
	compact := make([]byte, SignatureLength)
	compact[0] = compactHeader + sig.V
	copy(compact[1:33], sig.R[:])
	copy(compact[33:], sig.S[:])

	pub, _, err := ecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return address.Address{}, fmt.Errorf("%w: %v", errno.ErrRecoveryFailed, err)
	}
	return address.FromPublicKey(pub), nil
}

// VerifyHash 恢复签名者并与 expected 比较，任何恢复失败都视为不匹配。
func VerifyHash(hash []byte, sig *Signature, expected address.Address) bool {
	got, err := RecoverSigner(hash, sig)
	if err != nil {
		return false
	}
	return got == expected
}
