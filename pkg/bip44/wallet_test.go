package bip44

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdwallet-core/pkg/bip32"
	"hdwallet-core/pkg/errno"
	"hdwallet-core/pkg/monitor"
)

const abandonMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestWalletFromMnemonicKnownAddress(t *testing.T) {
	w, err := NewWalletFromMnemonic(abandonMnemonic, "", bip32.MainNet)
	require.NoError(t, err)
	defer w.Close()

	acc, err := w.GetAccount(PurposeBIP44, CoinEthereum, 0)
	require.NoError(t, err)
	addr, err := acc.DeriveAddress(External, 0)
	require.NoError(t, err)
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", addr.Address().Hex())
	assert.Equal(t, "m/44'/60'/0'/0/0", addr.Path.String())

	p, err := ParsePath("m/44'/60'/0'/0/0")
	require.NoError(t, err)
	key, err := w.DerivePath(p)
	require.NoError(t, err)
	defer key.Zero()
	assert.Equal(t, addr.Key.String(), key.Neuter().String())
}

func TestWalletInvalidInput(t *testing.T) {
	_, err := NewWalletFromMnemonic("abandon abandon", "", bip32.MainNet)
	assert.ErrorIs(t, err, errno.ErrInvalidMnemonic)

	_, err = NewWalletFromSeed(make([]byte, 8), bip32.MainNet)
	assert.ErrorIs(t, err, errno.ErrInvalidSeedLength)

	w := testWallet(t)
	_, err = w.GetAccount(PurposeBIP44, CoinEthereum, MaxIndex+1)
	assert.ErrorIs(t, err, errno.ErrInvalidChildIndex)
	_, err = w.GetAccount(Purpose(7), CoinEthereum, 0)
	assert.ErrorIs(t, err, errno.ErrInvalidValue)
}

func TestGetAccountCaches(t *testing.T) {
	w := testWallet(t)
	assert.Equal(t, 0, w.CachedAccountCount())

	a, err := w.GetAccount(PurposeBIP44, CoinEthereum, 0)
	require.NoError(t, err)
	b, err := w.GetAccount(PurposeBIP44, CoinEthereum, 0)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, w.CachedAccountCount())

	c, err := w.GetAccount(PurposeBIP84, CoinBitcoin, 0)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, w.CachedAccountCount())
	assert.NotEqual(t, a.XPub(), c.XPub())
}

func TestGetAccountConcurrentDerivesOnce(t *testing.T) {
	w := testWallet(t)
	derived := monitor.Wallet.KeysDerived.WithLabelValues("account")
	before := testutil.ToFloat64(derived)

	const workers = 32
	results := make([]*Account, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			acc, err := w.GetAccount(PurposeBIP44, CoinEthereum, 5)
			assert.NoError(t, err)
			results[i] = acc
		}(i)
	}
	wg.Wait()

	for _, acc := range results {
		assert.Same(t, results[0], acc)
	}
	assert.Equal(t, 1, w.CachedAccountCount())
	assert.Equal(t, before+1, testutil.ToFloat64(derived))
}

func TestClearCacheZeroizes(t *testing.T) {
	w := testWallet(t)
	acc, err := w.GetAccount(PurposeBIP44, CoinEthereum, 0)
	require.NoError(t, err)
	addr, err := acc.DeriveAddress(External, 0)
	require.NoError(t, err)

	w.ClearCache()
	assert.Equal(t, 0, w.CachedAccountCount())
	_, err = acc.DeriveKey(External, 0)
	assert.ErrorIs(t, err, errno.ErrKeyZeroized)

	fresh, err := w.GetAccount(PurposeBIP44, CoinEthereum, 0)
	require.NoError(t, err)
	assert.NotSame(t, acc, fresh)
	again, err := fresh.DeriveAddress(External, 0)
	require.NoError(t, err)
	assert.Equal(t, addr.Address(), again.Address())
}

// go test -race 下 ClearCache 与派生并发: 要么拿到正确的子私钥，要么 ErrKeyZeroized。
func TestClearCacheConcurrentWithDerivation(t *testing.T) {
	w := testWallet(t)
	acc, err := w.GetAccount(PurposeBIP44, CoinEthereum, 0)
	require.NoError(t, err)
	want, err := acc.DeriveAddress(External, 1)
	require.NoError(t, err)
	wantPub := want.Key.PublicPoint().Bytes()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			acc, err := w.GetAccount(PurposeBIP44, CoinEthereum, 0)
			if !assert.NoError(t, err) {
				return
			}
			key, err := acc.DeriveExternal(1)
			if err != nil {
				assert.ErrorIs(t, err, errno.ErrKeyZeroized)
				return
			}
			defer key.Zero()
			assert.Equal(t, wantPub, key.PublicPoint().Bytes())
			assert.False(t, key.IsWiped())
		}()
		go func() {
			defer wg.Done()
			w.ClearCache()
		}()
	}
	wg.Wait()
}

func TestWalletClose(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}
	w, err := NewWalletFromSeed(seed, bip32.TestNet)
	require.NoError(t, err)
	assert.Equal(t, bip32.TestNet, w.Network())
	fp := w.MasterFingerprint()
	assert.NotEqual(t, [4]byte{}, fp)

	_, err = w.GetAccount(PurposeBIP44, CoinBitcoinTestnet, 0)
	require.NoError(t, err)

	w.Close()
	assert.Equal(t, 0, w.CachedAccountCount())
	_, err = w.GetAccount(PurposeBIP44, CoinBitcoinTestnet, 1)
	assert.ErrorIs(t, err, errno.ErrKeyZeroized)
}
