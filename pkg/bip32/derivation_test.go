package bip32

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"hdwallet-core/pkg/errno"
)

func testMaster(t require.TestingT) *ExtendedPrivateKey {
	seed, _ := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	master, err := NewMasterKeyFromSeed(seed, MainNet)
	require.NoError(t, err)
	return master
}

func TestNewMasterKeyFromSeedLength(t *testing.T) {
	for _, n := range []int{0, 15, 65, 128} {
		_, err := NewMasterKeyFromSeed(make([]byte, n), MainNet)
		assert.ErrorIs(t, err, ErrInvalidSeed, "seed len %d", n)
	}
	for _, n := range []int{16, 32, 64} {
		seed := bytes.Repeat([]byte{0x42}, n)
		master, err := NewMasterKeyFromSeed(seed, MainNet)
		require.NoError(t, err, "seed len %d", n)
		assert.Equal(t, uint8(0), master.Depth())
		assert.Equal(t, [4]byte{}, master.ParentFingerprint())
		assert.Equal(t, ChildNumber{}, master.ChildNumber())
	}
}

func TestHardenedFromPublicKey(t *testing.T) {
	master := testMaster(t)
	pub := master.Neuter()

	for _, i := range []uint32{0, 1, 44, HardenedKeyStart - 1} {
		cn, err := Hardened(i)
		require.NoError(t, err)
		child, err := pub.DeriveChild(cn)
		assert.Nil(t, child)
		assert.ErrorIs(t, err, ErrHardenedFromPublicKey)
	}
}

func TestMaxDepth(t *testing.T) {
	master := testMaster(t)
	meta := master.keyMeta
	meta.depth = MaxDepth
	meta.parentFP = [4]byte{1, 2, 3, 4}
	deep := newExtendedPrivateKey(master.Clone().key, meta)

	cn, _ := Normal(0)
	_, err := deep.DeriveChild(cn)
	assert.ErrorIs(t, err, ErrMaxDepthExceeded)

	_, err = deep.Neuter().DeriveChild(cn)
	assert.ErrorIs(t, err, ErrMaxDepthExceeded)

	meta.depth = MaxDepth - 1
	almost := newExtendedPrivateKey(master.Clone().key, meta)
	child, err := almost.DeriveChild(cn)
	require.NoError(t, err)
	assert.Equal(t, uint8(MaxDepth), child.Depth())
}

func TestZeroizedKeyRefusesDerivation(t *testing.T) {
	master := testMaster(t)
	clone := master.Clone()
	master.Zero()

	assert.True(t, master.IsWiped())
	assert.False(t, clone.IsWiped(), "clone must not share the scalar")

	cn, _ := Normal(0)
	_, err := master.DeriveChild(cn)
	assert.ErrorIs(t, err, errno.ErrKeyZeroized)
	_, err = master.ECPrivKey()
	assert.ErrorIs(t, err, errno.ErrKeyZeroized)

	// 清零后不能再序列化出一个无法解析的 xprv
	_, err = Serialize(master)
	assert.ErrorIs(t, err, errno.ErrKeyZeroized)
	assert.Empty(t, master.String())

	xprv, err := Serialize(clone)
	require.NoError(t, err)
	_, err = Deserialize(xprv)
	assert.NoError(t, err)
}

func TestDerivePathEmptyReturnsCopy(t *testing.T) {
	master := testMaster(t)
	same, err := master.DerivePath(DerivationPath{})
	require.NoError(t, err)
	assert.Equal(t, master.String(), same.String())

	same.Zero()
	assert.False(t, master.IsWiped())
}

// 非硬化派生: Neuter(CKDpriv(k, i)) == CKDpub(Neuter(k), i)
func TestPublicDerivationMatchesPrivate(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.SliceOfN(rapid.Byte(), MinSeedBytes, MaxSeedBytes).Draw(t, "seed")
		index := rapid.Uint32Range(0, HardenedKeyStart-1).Draw(t, "index")

		master, err := NewMasterKeyFromSeed(seed, MainNet)
		if err != nil {
			t.Fatalf("master: %v", err)
		}
		cn, _ := Normal(index)

		priv, err := master.DeriveChild(cn)
		if err != nil {
			t.Fatalf("private child: %v", err)
		}
		pub, err := master.Neuter().DeriveChild(cn)
		if err != nil {
			t.Fatalf("public child: %v", err)
		}
		if priv.Neuter().String() != pub.String() {
			t.Fatalf("public derivation mismatch at %d", index)
		}
	})
}

// 与 btcutil/hdkeychain 的实现交叉验证，同时检查确定性
func TestDerivationMatchesHDKeychain(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.SliceOfN(rapid.Byte(), MinSeedBytes, MaxSeedBytes).Draw(t, "seed")
		wires := rapid.SliceOfN(rapid.Uint32(), 1, 5).Draw(t, "path")

		master, err := NewMasterKeyFromSeed(seed, MainNet)
		if err != nil {
			t.Fatalf("master: %v", err)
		}
		oracle, err := hdkeychain.NewMaster(seed, MainNet.Params())
		if err != nil {
			t.Fatalf("oracle master: %v", err)
		}

		path := make(DerivationPath, 0, len(wires))
		for _, w := range wires {
			path = append(path, ChildNumberFromWire(w))
		}
		for _, w := range wires {
			if oracle, err = oracle.Derive(w); err != nil {
				t.Fatalf("oracle derive: %v", err)
			}
		}

		first, err := master.DerivePath(path)
		if err != nil {
			t.Fatalf("derive %s: %v", path, err)
		}
		second, err := master.DerivePath(path)
		if err != nil {
			t.Fatalf("derive %s: %v", path, err)
		}
		if first.String() != second.String() {
			t.Fatalf("derivation of %s is not deterministic", path)
		}
		if first.String() != oracle.String() {
			t.Fatalf("derivation of %s differs from hdkeychain", path)
		}
	})
}

func TestSiblingKeysDiffer(t *testing.T) {
	master := testMaster(t)
	rapid.Check(t, func(t *rapid.T) {
		i := rapid.Uint32().Draw(t, "i")
		j := rapid.Uint32().Filter(func(v uint32) bool { return v != i }).Draw(t, "j")

		a, err := master.DeriveChild(ChildNumberFromWire(i))
		if err != nil {
			t.Fatalf("derive %d: %v", i, err)
		}
		b, err := master.DeriveChild(ChildNumberFromWire(j))
		if err != nil {
			t.Fatalf("derive %d: %v", j, err)
		}
		if bytes.Equal(a.Scalar().Bytes(), b.Scalar().Bytes()) {
			t.Fatalf("children %d and %d collide", i, j)
		}
		if a.ChainCode() == b.ChainCode() {
			t.Fatalf("chain codes of %d and %d collide", i, j)
		}
	})
}

func TestTestnetVersionBytes(t *testing.T) {
	seed, _ := hex.DecodeString(bip32Vectors[0].seed)
	master, err := NewMasterKeyFromSeed(seed, TestNet)
	require.NoError(t, err)

	assert.Equal(t, "tprv", master.String()[:4])
	assert.Equal(t, "tpub", master.Neuter().String()[:4])

	oracle, err := hdkeychain.NewMaster(seed, TestNet.Params())
	require.NoError(t, err)
	assert.Equal(t, oracle.String(), master.String())

	parsed, err := ParseExtendedPrivateKey(master.String())
	require.NoError(t, err)
	assert.Equal(t, TestNet, parsed.Network())
}
