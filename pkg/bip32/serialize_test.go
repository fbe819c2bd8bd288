package bip32

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"hdwallet-core/pkg/errno"
)

func TestSerializeRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.SliceOfN(rapid.Byte(), MinSeedBytes, MaxSeedBytes).Draw(t, "seed")
		network := Network(rapid.IntRange(0, 1).Draw(t, "network"))
		wires := rapid.SliceOfN(rapid.Uint32(), 0, 4).Draw(t, "path")

		master, err := NewMasterKeyFromSeed(seed, network)
		if err != nil {
			t.Fatalf("master: %v", err)
		}
		path := make(DerivationPath, 0, len(wires))
		for _, w := range wires {
			path = append(path, ChildNumberFromWire(w))
		}
		key, err := master.DerivePath(path)
		if err != nil {
			t.Fatalf("derive: %v", err)
		}

		decoded, err := Deserialize(key.String())
		if err != nil {
			t.Fatalf("deserialize xprv: %v", err)
		}
		priv, ok := decoded.(*ExtendedPrivateKey)
		if !ok {
			t.Fatalf("expected private key")
		}
		assertSameKey(t, key, priv)

		pub := key.Neuter()
		decodedPub, err := ParseExtendedPublicKey(pub.String())
		if err != nil {
			t.Fatalf("deserialize xpub: %v", err)
		}
		assertSameKey(t, pub, decodedPub)
	})
}

func assertSameKey(t *rapid.T, want, got ExtendedKey) {
	if want.String() != got.String() ||
		want.Depth() != got.Depth() ||
		want.ParentFingerprint() != got.ParentFingerprint() ||
		want.ChildNumber() != got.ChildNumber() ||
		want.ChainCode() != got.ChainCode() ||
		want.Network() != got.Network() ||
		want.IsPrivate() != got.IsPrivate() ||
		*want.PublicPoint() != *got.PublicPoint() {
		t.Fatalf("round trip changed the key")
	}
}

func TestParseKindMismatch(t *testing.T) {
	master := testMaster(t)

	_, err := ParseExtendedPublicKey(master.String())
	assert.ErrorIs(t, err, errno.ErrInvalidSerialization)

	_, err = ParseExtendedPrivateKey(master.Neuter().String())
	assert.ErrorIs(t, err, errno.ErrInvalidSerialization)
}

func TestDeserializeErrors(t *testing.T) {
	_, err := Deserialize("")
	assert.ErrorIs(t, err, errno.ErrInvalidLength)

	_, err = Deserialize("not-base58-0OIl")
	assert.ErrorIs(t, err, errno.ErrInvalidSerialization)

	master := testMaster(t)
	s := []byte(master.String())
	// 修改最后一个字符破坏校验和
	if s[len(s)-1] == 'a' {
		s[len(s)-1] = 'b'
	} else {
		s[len(s)-1] = 'a'
	}
	_, err = Deserialize(string(s))
	require.Error(t, err)
	assert.ErrorIs(t, err, errno.ErrInvalidSerialization)
}
