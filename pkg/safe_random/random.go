package safe_random

import (
	"crypto/rand"
	"fmt"
	"io"
)

// Reader 是一个全局共享的加密安全随机数生成器实例。
// 默认为 crypto/rand.Reader，测试中可以替换为确定性的来源。
var Reader io.Reader = rand.Reader

const (
	MinSeedBytes = 16
	MaxSeedBytes = 64
)

// GenerateRandomBytes 生成指定长度的安全随机字节切片。
// 如果系统的安全随机数生成器失败，将返回错误。
func GenerateRandomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("长度必须为正数: %d", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(Reader, b); err != nil {
		return nil, fmt.Errorf("生成随机字节失败: %w", err)
	}
	return b, nil
}

// GenerateSeed 生成一个 BIP32 种子，长度必须在 [16, 64] 字节之间。
func GenerateSeed(n int) ([]byte, error) {
	if n < MinSeedBytes || n > MaxSeedBytes {
		return nil, fmt.Errorf("种子长度必须在 %d 到 %d 字节之间: %d", MinSeedBytes, MaxSeedBytes, n)
	}
	return GenerateRandomBytes(n)
}
