package bip32

import "hdwallet-core/pkg/errno"

// 常用错误别名，便于调用方 errors.Is 判断
var (
	ErrInvalidSeed           = errno.ErrInvalidSeedLength
	ErrInvalidPath           = errno.ErrInvalidPath
	ErrHardenedFromPublicKey = errno.ErrHardenedFromPublicKey
	ErrMaxDepthExceeded      = errno.ErrMaxDepthExceeded
	ErrInvalidSerialization  = errno.ErrInvalidSerialization
)
