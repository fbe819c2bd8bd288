package bip44

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type usageKey struct {
	account uint32
	chain   Chain
	index   uint32
}

// mockDiscovery 记录查询顺序，并按预置集合回答地址是否使用过。
type mockDiscovery struct {
	mu      sync.Mutex
	used    map[usageKey]bool
	queries []usageKey
	failAt  *usageKey
}

func newMockDiscovery() *mockDiscovery {
	return &mockDiscovery{used: make(map[usageKey]bool)}
}

func (m *mockDiscovery) markUsed(account uint32, chain Chain, indices ...uint32) {
	for _, i := range indices {
		m.used[usageKey{account, chain, i}] = true
	}
}

func (m *mockDiscovery) IsAddressUsed(_ context.Context, addr *DerivedAddress) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := usageKey{addr.Path.Account(), addr.Chain(), addr.Index()}
	m.queries = append(m.queries, k)
	if m.failAt != nil && *m.failAt == k {
		return false, errors.New("rpc unavailable")
	}
	return m.used[k], nil
}

func TestGapLimitScan(t *testing.T) {
	w := testWallet(t)
	acc, err := w.GetAccount(PurposeBIP44, CoinEthereum, 0)
	require.NoError(t, err)

	d := newMockDiscovery()
	d.markUsed(0, External, 0, 1, 5, 10)

	res, err := NewGapLimitChecker(0).Scan(context.Background(), acc, External, d)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 5, 10}, res.UsedIndices)
	assert.Equal(t, int64(10), res.LastUsedIndex)
	assert.Equal(t, 4, res.UsedCount())
	// 10 之后连续 20 个未使用: 11..30
	assert.Equal(t, uint32(31), res.Scanned)

	for i, q := range d.queries {
		assert.Equal(t, uint32(i), q.index, "queries must be sequential")
	}
}

func TestGapLimitScanEmptyChain(t *testing.T) {
	w := testWallet(t)
	acc, err := w.GetAccount(PurposeBIP44, CoinEthereum, 0)
	require.NoError(t, err)

	res, err := NewGapLimitChecker(5).Scan(context.Background(), acc, Internal, newMockDiscovery())
	require.NoError(t, err)
	assert.Empty(t, res.UsedIndices)
	assert.Equal(t, int64(-1), res.LastUsedIndex)
	assert.Equal(t, uint32(5), res.Scanned)
}

func TestGapLimitExactBoundary(t *testing.T) {
	w := testWallet(t)
	acc, err := w.GetAccount(PurposeBIP44, CoinEthereum, 0)
	require.NoError(t, err)

	d := newMockDiscovery()
	// 索引 2 之后恰好有 3 个空位 (3,4,5)，6 不会被查询
	d.markUsed(0, External, 0, 2, 6)

	res, err := NewGapLimitChecker(3).Scan(context.Background(), acc, External, d)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 2}, res.UsedIndices)
	assert.Equal(t, uint32(6), res.Scanned)
}

func TestGapLimitScanPropagatesErrors(t *testing.T) {
	w := testWallet(t)
	acc, err := w.GetAccount(PurposeBIP44, CoinEthereum, 0)
	require.NoError(t, err)

	d := newMockDiscovery()
	d.failAt = &usageKey{0, External, 2}
	_, err = NewGapLimitChecker(0).Scan(context.Background(), acc, External, d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc unavailable")
	assert.Len(t, d.queries, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewGapLimitChecker(0).Scan(ctx, acc, External, newMockDiscovery())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanAccount(t *testing.T) {
	w := testWallet(t)
	acc, err := w.GetAccount(PurposeBIP44, CoinEthereum, 0)
	require.NoError(t, err)

	d := newMockDiscovery()
	d.markUsed(0, External, 0, 2)
	d.markUsed(0, Internal, 1)

	res, err := NewAccountScanner(NewGapLimitChecker(4), 0).ScanAccount(context.Background(), acc, d)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), res.AccountIndex)
	assert.True(t, res.IsUsed())
	assert.Equal(t, 3, res.TotalUsedCount())
	assert.Equal(t, int64(2), res.External.LastUsedIndex)
	assert.Equal(t, int64(1), res.Internal.LastUsedIndex)
}

func TestDiscoverAccounts(t *testing.T) {
	w := testWallet(t)
	d := newMockDiscovery()
	d.markUsed(0, External, 0, 1)
	d.markUsed(1, Internal, 0)
	// 账户 3 被使用但账户 2 为空: 发现在 2 处停止
	d.markUsed(3, External, 0)

	scanner := NewAccountScanner(NewGapLimitChecker(5), 0)
	results, err := scanner.DiscoverAccounts(context.Background(), w, PurposeBIP44, CoinEthereum, d)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, uint32(0), results[0].AccountIndex)
	assert.Equal(t, uint32(1), results[1].AccountIndex)

	for _, q := range d.queries {
		assert.NotEqual(t, uint32(3), q.account)
	}
}

func TestDiscoverAccountsBounded(t *testing.T) {
	w := testWallet(t)
	d := AccountDiscoveryFunc(func(_ context.Context, addr *DerivedAddress) (bool, error) {
		return addr.Index() == 0 && addr.IsExternal(), nil
	})

	results, err := NewAccountScanner(NewGapLimitChecker(1), 3).
		DiscoverAccounts(context.Background(), w, PurposeBIP44, CoinEthereum, d)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}
