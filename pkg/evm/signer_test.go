package evm

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"hdwallet-core/pkg/address"
	"hdwallet-core/pkg/bip32"
	"hdwallet-core/pkg/bip44"
	"hdwallet-core/pkg/crypto_util"
	"hdwallet-core/pkg/errno"
)

const abandonMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestSignerFromPrivateKeyOne(t *testing.T) {
	key := make([]byte, 32)
	key[31] = 1
	s, err := NewSignerFromPrivateKey(key)
	require.NoError(t, err)
	assert.Equal(t, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", s.Address().Hex())
}

func TestSignerRejectsInvalidKeys(t *testing.T) {
	_, err := NewSignerFromPrivateKey(make([]byte, 32))
	assert.ErrorIs(t, err, errno.ErrInvalidScalar)

	_, err = NewSignerFromPrivateKey([]byte{1, 2, 3})
	assert.ErrorIs(t, err, errno.ErrInvalidScalar)

	order := btcec.S256().N.Bytes()
	_, err = NewSignerFromPrivateKey(order)
	assert.ErrorIs(t, err, errno.ErrInvalidScalar)
}

func TestNewSignerFromAccount(t *testing.T) {
	w, err := bip44.NewWalletFromMnemonic(abandonMnemonic, "", bip32.MainNet)
	require.NoError(t, err)
	defer w.Close()
	acc, err := w.GetAccount(bip44.PurposeBIP44, bip44.CoinEthereum, 0)
	require.NoError(t, err)

	s, err := NewSigner(acc, 0)
	require.NoError(t, err)
	defer s.Zero()
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", s.Address().Hex())

	addr, err := acc.DeriveAddress(bip44.External, 0)
	require.NoError(t, err)
	assert.Equal(t, addr.Address(), s.Address())

	watch, err := bip44.ParseWatchOnlyAccount(acc.XPub(), bip44.PurposeBIP44, bip44.CoinEthereum, 0)
	require.NoError(t, err)
	_, err = NewSigner(watch, 0)
	assert.ErrorIs(t, err, errno.ErrWatchOnly)
}

func TestSignHashDigestLength(t *testing.T) {
	s, err := NewSignerFromPrivateKey(testKey())
	require.NoError(t, err)

	_, err = s.SignHash(make([]byte, 31))
	assert.ErrorIs(t, err, errno.ErrInvalidDigestLength)
	_, err = s.SignHash(make([]byte, 33))
	assert.ErrorIs(t, err, errno.ErrInvalidDigestLength)

	_, err = RecoverSigner(make([]byte, 20), &Signature{})
	assert.ErrorIs(t, err, errno.ErrInvalidDigestLength)
}

func TestSignerZero(t *testing.T) {
	s, err := NewSignerFromPrivateKey(testKey())
	require.NoError(t, err)
	s.Zero()
	_, err = s.SignHash(make([]byte, 32))
	assert.ErrorIs(t, err, errno.ErrKeyZeroized)
}

func TestSignDeterministicLowS(t *testing.T) {
	s, err := NewSignerFromPrivateKey(testKey())
	require.NoError(t, err)
	halfOrder := new(big.Int).Rsh(btcec.S256().N, 1)

	rapid.Check(t, func(t *rapid.T) {
		digest := rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "digest")

		a, err := s.SignHash(digest)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		b, err := s.SignHash(digest)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if *a != *b {
			t.Fatalf("signature is not deterministic")
		}
		if a.V > 1 {
			t.Fatalf("v = %d", a.V)
		}
		if new(big.Int).SetBytes(a.S[:]).Cmp(halfOrder) > 0 {
			t.Fatalf("s is not in low form")
		}
		if !VerifyHash(digest, a, s.Address()) {
			t.Fatalf("signature does not verify")
		}
	})
}

func TestVerifyRejectsOtherAddresses(t *testing.T) {
	s, err := NewSignerFromPrivateKey(testKey())
	require.NoError(t, err)
	other, err := NewSignerFromPrivateKey(crypto_util.Keccak256([]byte("other")))
	require.NoError(t, err)

	digest := crypto_util.Keccak256([]byte("message"))
	sig, err := s.SignHash(digest)
	require.NoError(t, err)

	assert.True(t, VerifyHash(digest, sig, s.Address()))
	assert.False(t, VerifyHash(digest, sig, other.Address()))
	assert.False(t, VerifyHash(digest, sig, address.Address{}))

	tampered := *sig
	tampered.V ^= 1
	assert.False(t, VerifyHash(digest, &tampered, s.Address()))

	otherDigest := crypto_util.Keccak256([]byte("message2"))
	assert.False(t, VerifyHash(otherDigest, sig, s.Address()))
}

// malleate 返回 (r, n-s, v^1)，与原签名恢复出同一公钥。
func malleate(sig *Signature) *Signature {
	out := &Signature{R: sig.R, V: sig.V ^ 1}
	s := new(big.Int).SetBytes(sig.S[:])
	new(big.Int).Sub(btcec.S256().N, s).FillBytes(out.S[:])
	return out
}

func TestSignatureRejectsMalleable(t *testing.T) {
	s, err := NewSignerFromPrivateKey(testKey())
	require.NoError(t, err)
	digest := crypto_util.Keccak256([]byte("message"))
	sig, err := s.SignHash(digest)
	require.NoError(t, err)
	require.NoError(t, sig.Validate())

	high := malleate(sig)
	assert.ErrorIs(t, high.Validate(), errno.ErrInvalidSignature)
	_, err = SignatureFromBytes(high.Bytes())
	assert.ErrorIs(t, err, errno.ErrInvalidSignature)
	_, err = ParseSignature(hexutil.Encode(high.LegacyBytes()))
	assert.ErrorIs(t, err, errno.ErrInvalidSignature)
	_, err = RecoverSigner(digest, high)
	assert.ErrorIs(t, err, errno.ErrInvalidSignature)
	assert.False(t, VerifyHash(digest, high, s.Address()))

	zeroR := *sig
	zeroR.R = [32]byte{}
	_, err = SignatureFromBytes(zeroR.Bytes())
	assert.ErrorIs(t, err, errno.ErrInvalidSignature)

	zeroS := *sig
	zeroS.S = [32]byte{}
	_, err = RecoverSigner(digest, &zeroS)
	assert.ErrorIs(t, err, errno.ErrInvalidSignature)

	// r >= n
	overflowR := *sig
	btcec.S256().N.FillBytes(overflowR.R[:])
	_, err = SignatureFromBytes(overflowR.Bytes())
	assert.ErrorIs(t, err, errno.ErrInvalidSignature)

	// s == n/2 仍是 low-s
	edge := *sig
	new(big.Int).Rsh(btcec.S256().N, 1).FillBytes(edge.S[:])
	assert.NoError(t, edge.Validate())
}

func TestSignatureEncoding(t *testing.T) {
	s, err := NewSignerFromPrivateKey(testKey())
	require.NoError(t, err)
	sig, err := s.SignHash(crypto_util.Keccak256([]byte("x")))
	require.NoError(t, err)

	raw := sig.Bytes()
	require.Len(t, raw, SignatureLength)
	assert.Equal(t, sig.V, raw[64])

	parsed, err := ParseSignature(sig.Hex())
	require.NoError(t, err)
	assert.Equal(t, *sig, *parsed)

	legacy := sig.LegacyBytes()
	assert.Equal(t, sig.V+27, legacy[64])
	fromLegacy, err := SignatureFromBytes(legacy)
	require.NoError(t, err)
	assert.Equal(t, *sig, *fromLegacy)

	_, err = SignatureFromBytes(raw[:64])
	assert.ErrorIs(t, err, errno.ErrInvalidSignature)
	bad := append([]byte(nil), raw...)
	bad[64] = 5
	_, err = SignatureFromBytes(bad)
	assert.ErrorIs(t, err, errno.ErrInvalidSignature)

	sig.Zero()
	assert.Equal(t, Signature{}, *sig)
	assert.Equal(t, "0x"+hex.EncodeToString(make([]byte, 65)), sig.Hex())
}
