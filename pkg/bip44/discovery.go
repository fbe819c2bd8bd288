package bip44

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"hdwallet-core/pkg/logger"
	"hdwallet-core/pkg/monitor"
)

const (
	// DefaultGapLimit 是 BIP44 建议的连续未使用地址数。
	DefaultGapLimit = 20
	// DefaultMaxAccounts 限制账户发现的最大账户数。
	DefaultMaxAccounts = 20
)

// AccountDiscovery 由外部提供，用于查询某个地址是否在链上使用过
// (有过交易或余额)。实现通常会发起网络请求，因此接收 context。
type AccountDiscovery interface {
	IsAddressUsed(ctx context.Context, addr *DerivedAddress) (bool, error)
}

// AccountDiscoveryFunc adapts a function to AccountDiscovery.
type AccountDiscoveryFunc func(ctx context.Context, addr *DerivedAddress) (bool, error)

func (f AccountDiscoveryFunc) IsAddressUsed(ctx context.Context, addr *DerivedAddress) (bool, error) {
	return f(ctx, addr)
}

// ChainScanResult 是单条链的扫描结果。LastUsedIndex 为 -1 表示没有使用过的地址。
type ChainScanResult struct {
	Chain         Chain    `json:"chain"`
	UsedIndices   []uint32 `json:"used_indices"`
	LastUsedIndex int64    `json:"last_used_index"`
	Scanned       uint32   `json:"scanned"`
}

// UsedCount returns the number of used addresses on the chain.
func (r *ChainScanResult) UsedCount() int { return len(r.UsedIndices) }

// AccountScanResult 汇总一个账户两条链的扫描结果。
type AccountScanResult struct {
	AccountIndex uint32           `json:"account_index"`
	External     *ChainScanResult `json:"external"`
	Internal     *ChainScanResult `json:"internal"`
}

// IsUsed reports whether either chain has at least one used address.
func (r *AccountScanResult) IsUsed() bool {
	return r.External.UsedCount() > 0 || r.Internal.UsedCount() > 0
}

// TotalUsedCount sums used addresses across both chains.
func (r *AccountScanResult) TotalUsedCount() int {
	return r.External.UsedCount() + r.Internal.UsedCount()
}

// GapLimitChecker 实现间隔限制算法: 从 0 开始顺序查询，
// 连续 gapLimit 个未使用地址后停止。
type GapLimitChecker struct {
	gapLimit uint32
}

// NewGapLimitChecker falls back to DefaultGapLimit when gapLimit is 0.
func NewGapLimitChecker(gapLimit uint32) GapLimitChecker {
	if gapLimit == 0 {
		gapLimit = DefaultGapLimit
	}
	return GapLimitChecker{gapLimit: gapLimit}
}

func (g GapLimitChecker) GapLimit() uint32 { return g.gapLimit }

// Scan 按索引顺序访问地址，顺序本身是正确性要求 (计数依赖于相邻关系)，不能并发乱序查询。
func (g GapLimitChecker) Scan(ctx context.Context, account *Account, chain Chain, d AccountDiscovery) (*ChainScanResult, error) {
	result := &ChainScanResult{Chain: chain, UsedIndices: []uint32{}, LastUsedIndex: -1}
	chainLabel := chain.String()

	var consecutiveUnused uint32
	for addr, err := range account.Addresses(chain, 0) {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		used, err := d.IsAddressUsed(ctx, addr)
		if err != nil {
			monitor.Wallet.DiscoveryQueries.WithLabelValues(chainLabel, "error").Inc()
			return nil, fmt.Errorf("query %s: %w", addr.Path, err)
		}
		result.Scanned++

		if used {
			monitor.Wallet.DiscoveryQueries.WithLabelValues(chainLabel, "used").Inc()
			result.UsedIndices = append(result.UsedIndices, addr.Index())
			result.LastUsedIndex = int64(addr.Index())
			consecutiveUnused = 0
			continue
		}
		monitor.Wallet.DiscoveryQueries.WithLabelValues(chainLabel, "unused").Inc()
		consecutiveUnused++
		if consecutiveUnused >= g.gapLimit {
			break
		}
	}
	return result, nil
}

// AccountScanner 在 GapLimitChecker 之上做账户级发现。
type AccountScanner struct {
	checker     GapLimitChecker
	maxAccounts uint32
}

// NewAccountScanner bounds discovery to maxAccounts account indices
// (0 means DefaultMaxAccounts).
func NewAccountScanner(checker GapLimitChecker, maxAccounts uint32) *AccountScanner {
	if maxAccounts == 0 {
		maxAccounts = DefaultMaxAccounts
	}
	return &AccountScanner{checker: checker, maxAccounts: maxAccounts}
}

// ScanChain scans one chain of an account.
func (s *AccountScanner) ScanChain(ctx context.Context, account *Account, chain Chain, d AccountDiscovery) (*ChainScanResult, error) {
	return s.checker.Scan(ctx, account, chain, d)
}

// ScanAccount scans the external chain and then the internal chain.
func (s *AccountScanner) ScanAccount(ctx context.Context, account *Account, d AccountDiscovery) (*AccountScanResult, error) {
	external, err := s.checker.Scan(ctx, account, External, d)
	if err != nil {
		return nil, err
	}
	internal, err := s.checker.Scan(ctx, account, Internal, d)
	if err != nil {
		return nil, err
	}
	res := &AccountScanResult{AccountIndex: account.Index(), External: external, Internal: internal}
	monitor.Wallet.DiscoveryUsed.WithLabelValues(account.CoinType().Symbol(), strconv.FormatUint(uint64(account.Index()), 10)).
		Set(float64(res.TotalUsedCount()))
	return res, nil
}

// DiscoverAccounts 从账户 0 开始逐个扫描，遇到第一个两条链都没有使用记录的账户即停止，
// 该账户不包含在结果中。
//
// 已知限制: 这里假设账户是连续使用的。若用户跳过了某个账户索引，
// 其后的账户不会被发现。
func (s *AccountScanner) DiscoverAccounts(ctx context.Context, w *Wallet, purpose Purpose, coinType CoinType, d AccountDiscovery) ([]*AccountScanResult, error) {
	results := make([]*AccountScanResult, 0)
	for index := uint32(0); index < s.maxAccounts; index++ {
		account, err := w.GetAccount(purpose, coinType, index)
		if err != nil {
			return nil, err
		}
		res, err := s.ScanAccount(ctx, account, d)
		if err != nil {
			return nil, err
		}
		if !res.IsUsed() {
			logger.Debug("bip44 discovery stopped at unused account",
				zap.Stringer("coin", coinType), zap.Uint32("account", index))
			break
		}
		results = append(results, res)
	}
	return results, nil
}
