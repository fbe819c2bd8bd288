package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdwallet-core/pkg/bip32"
	"hdwallet-core/pkg/bip44"
	"hdwallet-core/pkg/keystore"
	"hdwallet-core/pkg/wallet/types"
)

const testPassword = "correct horse battery"

func run(t *testing.T, args ...string) {
	t.Helper()
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), args)
}

func TestCoinFlag(t *testing.T) {
	c, err := coinFlag("eth")
	require.NoError(t, err)
	assert.Equal(t, bip44.CoinEthereum, c)

	c, err = coinFlag("9999")
	require.NoError(t, err)
	assert.True(t, c.IsCustom())

	_, err = coinFlag("NOPE")
	assert.Error(t, err)
	_, err = coinFlag("-1")
	assert.Error(t, err)
}

// 完整离线流程: new -> build-tx -> sign，签名结果的 sender 必须是 keystore 派生的地址。
func TestOfflineSigningFlow(t *testing.T) {
	t.Setenv("WALLET_PASSWORD", testPassword)
	dir := t.TempDir()
	ks := filepath.Join(dir, "wallet.json")
	unsigned := filepath.Join(dir, "unsigned.json")
	signed := filepath.Join(dir, "signed.json")

	run(t, "new", "--light", "--words", "12", "-k", ks)

	encrypted, err := keystore.LoadFromFile(ks)
	require.NoError(t, err)
	mnemonic, err := keystore.DecryptMnemonic(encrypted, testPassword)
	require.NoError(t, err)
	w, err := bip44.NewWalletFromMnemonic(mnemonic, "", bip32.MainNet)
	require.NoError(t, err)
	defer w.Close()
	acc, err := w.GetAccount(bip44.PurposeBIP44, bip44.CoinEthereum, 0)
	require.NoError(t, err)
	from, err := acc.DeriveAddress(bip44.External, 2)
	require.NoError(t, err)

	run(t, "build-tx",
		"--from", from.Address().Hex(),
		"--to", "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
		"--value", "0.5",
		"--nonce", "4",
		"--priority-fee", "1.5",
		"--max-fee", "30",
		"--chain-id", "11155111",
		"--index", "2",
		"-o", unsigned)

	var utx types.UnsignedTransaction
	require.NoError(t, readJSON(unsigned, &utx))
	assert.Equal(t, "500000000000000000", utx.Value)
	assert.Equal(t, "1500000000", utx.MaxPriorityFeePerGas)
	assert.Equal(t, uint64(21000), utx.GasLimit)
	assert.Equal(t, "m/44'/60'/0'/0/2", utx.DerivationPath)

	run(t, "sign", "-i", unsigned, "-o", signed, "-k", ks)

	var stx types.SignedTransaction
	require.NoError(t, readJSON(signed, &stx))
	assert.Equal(t, from.Address().Hex(), stx.From)

	decoded, err := stx.Decode()
	require.NoError(t, err)
	sender, err := decoded.Sender()
	require.NoError(t, err)
	assert.Equal(t, from.Address(), sender)
	assert.Equal(t, uint64(4), decoded.Transaction().Nonce())
}

func TestSignRejectsMismatchedFrom(t *testing.T) {
	t.Setenv("WALLET_PASSWORD", testPassword)
	dir := t.TempDir()
	ks := filepath.Join(dir, "wallet.json")
	unsigned := filepath.Join(dir, "unsigned.json")

	run(t, "new", "--light", "-k", ks)
	run(t, "build-tx",
		"--from", "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
		"--nonce", "0", "--priority-fee", "1", "--max-fee", "2",
		"--chain-id", "1", "--index", "0",
		"-o", unsigned)

	rootCmd.SetArgs([]string{"sign", "-i", unsigned, "-o", filepath.Join(dir, "signed.json"), "-k", ks})
	assert.ErrorContains(t, rootCmd.Execute(), "不一致")
}
