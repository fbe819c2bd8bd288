package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hdwallet-core/pkg/bip44"
	"hdwallet-core/pkg/cache"
	"hdwallet-core/pkg/config"
	"hdwallet-core/pkg/database"
	"hdwallet-core/pkg/logger"
)

const keyPrefix = "hdwallet:discovery:"

type usageEntry struct {
	Used bool `json:"used"`
}

// CachedDiscovery 缓存地址使用状态，重复扫描同一钱包时不必再次访问节点。
// 缓存故障只记录日志，查询回退到下层实现。
type CachedDiscovery struct {
	next    bip44.AccountDiscovery
	cache   cache.Cache
	ttl     time.Duration
	chainID uint64
}

var _ bip44.AccountDiscovery = (*CachedDiscovery)(nil)

func NewCachedDiscovery(next bip44.AccountDiscovery, c cache.Cache, ttl time.Duration, chainID uint64) *CachedDiscovery {
	return &CachedDiscovery{next: next, cache: c, ttl: ttl, chainID: chainID}
}

func (d *CachedDiscovery) key(addr *bip44.DerivedAddress) string {
	return fmt.Sprintf("%d:%s", d.chainID, addr.Address().Hex())
}

func (d *CachedDiscovery) IsAddressUsed(ctx context.Context, addr *bip44.DerivedAddress) (bool, error) {
	key := d.key(addr)

	var entry usageEntry
	err := d.cache.Get(ctx, key, &entry)
	switch {
	case err == nil:
		return entry.Used, nil
	case !errors.Is(err, cache.ErrCacheMiss):
		logger.Warn("discovery cache read failed", zap.String("key", key), zap.Error(err))
	}

	used, err := d.next.IsAddressUsed(ctx, addr)
	if err != nil {
		return false, err
	}
	if err := d.cache.Set(ctx, key, usageEntry{Used: used}, d.ttl); err != nil {
		logger.Warn("discovery cache write failed", zap.String("key", key), zap.Error(err))
	}
	return used, nil
}

// NewResultCache 按 discovery.cache 配置构造缓存:
// memory 为进程内缓存，redis 为内存 + Redis 两级缓存，none 不缓存。
// 返回的 cleanup 负责关闭 Redis 连接。
func NewResultCache(ctx context.Context, cfg *config.Config) (cache.Cache, func(), error) {
	noop := func() {}
	ttl := cfg.Discovery.CacheTTL

	switch cfg.Discovery.Cache {
	case "", "none":
		return cache.Nop{}, noop, nil
	case "memory":
		return cache.NewMemoryCache(ttl, 2*ttl), noop, nil
	case "redis":
		rdb, err := database.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		local := cache.NewMemoryCache(time.Minute, 5*time.Minute)
		remote := cache.NewRedisCache(rdb, keyPrefix)
		return cache.NewMultiLevelCache(local, remote), func() { _ = rdb.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown discovery.cache %q (memory / redis / none)", cfg.Discovery.Cache)
	}
}
