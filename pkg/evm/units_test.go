package evm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdwallet-core/pkg/errno"
)

func TestParseUnits(t *testing.T) {
	tests := []struct {
		name  string
		parse func(string) (*big.Int, error)
		in    string
		want  string
	}{
		{"ether one", ParseEther, "1", "1000000000000000000"},
		{"ether fraction", ParseEther, "0.01", "10000000000000000"},
		{"ether smallest", ParseEther, "0.000000000000000001", "1"},
		{"gwei", ParseGwei, "1.5", "1500000000"},
		{"gwei int", ParseGwei, "30", "30000000000"},
		{"wei", ParseWei, "21000", "21000"},
		{"zero", ParseEther, "0", "0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}

	for _, bad := range []string{"", "abc", "-1", "0.0000000000000000001"} {
		_, err := ParseEther(bad)
		assert.ErrorIs(t, err, errno.ErrInvalidValue, bad)
	}
	_, err := ParseWei("1.5")
	assert.ErrorIs(t, err, errno.ErrInvalidValue)
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "1", FormatEther(Ether))
	assert.Equal(t, "1.5", FormatEther(new(big.Int).Mul(big.NewInt(15), new(big.Int).Div(Ether, big.NewInt(10)))))
	assert.Equal(t, "0.000000000000000001", FormatEther(big.NewInt(1)))
	assert.Equal(t, "5", FormatGwei(gwei(5)))
	assert.Equal(t, "0", FormatEther(nil))

	v, err := ParseEther("123.456")
	require.NoError(t, err)
	assert.Equal(t, "123.456", FormatEther(v))
}

func TestChainID(t *testing.T) {
	_, err := NewChainID(0)
	assert.ErrorIs(t, err, errno.ErrInvalidChainID)

	id, err := NewChainID(56)
	require.NoError(t, err)
	assert.Equal(t, ChainBSC, id)
	assert.Equal(t, "BSC Mainnet", id.Name())
	assert.False(t, id.IsTestnet())
	assert.False(t, id.IsCustom())
	assert.True(t, ChainBSCTestnet.IsTestnet())
	assert.True(t, ChainSepolia.IsTestnet())

	custom := ChainID(42161)
	assert.True(t, custom.IsCustom())
	assert.Equal(t, "Custom (42161)", custom.String())
	assert.Equal(t, int64(42161), custom.BigInt().Int64())
}
