package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss 表示 key 不存在或已过期。
var ErrCacheMiss = errors.New("cache miss")

// Cache 定义通用缓存接口。值以 JSON 语义存取，各实现行为一致。
type Cache interface {
	// Set 设置缓存
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Get 获取缓存，并将结果 Unmarshal 到 target 中；未命中返回 ErrCacheMiss
	Get(ctx context.Context, key string, target interface{}) error
	// Delete 删除缓存
	Delete(ctx context.Context, key string) error
}

// Nop 不缓存任何内容，Get 总是返回 ErrCacheMiss。
type Nop struct{}

func (Nop) Set(context.Context, string, interface{}, time.Duration) error { return nil }
func (Nop) Get(context.Context, string, interface{}) error                { return ErrCacheMiss }
func (Nop) Delete(context.Context, string) error                          { return nil }
