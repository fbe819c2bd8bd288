package bip44

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"hdwallet-core/pkg/bip32"
	"hdwallet-core/pkg/bip39"
	"hdwallet-core/pkg/crypto_util"
	"hdwallet-core/pkg/errno"
	"hdwallet-core/pkg/logger"
	"hdwallet-core/pkg/monitor"
)

type accountKey struct {
	purpose  Purpose
	coinType CoinType
	index    uint32
}

func (k accountKey) String() string {
	return fmt.Sprintf("%d/%d/%d", k.purpose, k.coinType, k.index)
}

// Wallet 持有主密钥与本实例私有的账户缓存 (不使用进程级全局状态)。
// 同一个 (purpose, coin, account) 在并发调用下也只会派生一次。
type Wallet struct {
	master *bip32.ExtendedPrivateKey

	mu       sync.RWMutex
	accounts map[accountKey]*Account
	group    singleflight.Group
}

// NewWalletFromSeed 从 16-64 字节种子创建钱包。种子不会被保留，调用方负责清理。
func NewWalletFromSeed(seed []byte, network bip32.Network) (*Wallet, error) {
	master, err := bip32.NewMasterKeyFromSeed(seed, network)
	if err != nil {
		return nil, err
	}
	return &Wallet{master: master, accounts: make(map[accountKey]*Account)}, nil
}

// NewWalletFromMnemonic 通过 BIP39 助记词 + 口令 (可为空) 创建钱包。
func NewWalletFromMnemonic(mnemonic, passphrase string, network bip32.Network) (*Wallet, error) {
	seed, err := bip39.NewMnemonicService().MnemonicToSeed(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	defer crypto_util.Zero(seed)
	return NewWalletFromSeed(seed, network)
}

func (w *Wallet) Network() bip32.Network { return w.master.Network() }

// MasterFingerprint 返回主密钥指纹，常用于 PSBT / 外部钱包识别。
func (w *Wallet) MasterFingerprint() [4]byte { return w.master.Fingerprint() }

// GetAccount 返回 m/purpose'/coin'/account' 对应的账户，首次调用时派生并缓存。
func (w *Wallet) GetAccount(purpose Purpose, coinType CoinType, index uint32) (*Account, error) {
	if _, err := NewPath(purpose, coinType, index, External, 0); err != nil {
		return nil, err
	}
	key := accountKey{purpose: purpose, coinType: coinType, index: index}

	w.mu.RLock()
	acc, ok := w.accounts[key]
	w.mu.RUnlock()
	if ok {
		monitor.Wallet.AccountCache.WithLabelValues("hit").Inc()
		return acc, nil
	}

	v, err, _ := w.group.Do(key.String(), func() (interface{}, error) {
		// 等待期间可能已被其他调用写入缓存
		w.mu.RLock()
		cached, ok := w.accounts[key]
		w.mu.RUnlock()
		if ok {
			return cached, nil
		}

		acc, err := w.deriveAccount(key)
		if err != nil {
			return nil, err
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		if w.accounts == nil {
			acc.Zero()
			return nil, errno.ErrKeyZeroized
		}
		w.accounts[key] = acc
		return acc, nil
	})
	if err != nil {
		return nil, err
	}
	monitor.Wallet.AccountCache.WithLabelValues("miss").Inc()
	return v.(*Account), nil
}

func (w *Wallet) deriveAccount(key accountKey) (*Account, error) {
	path := bip32.DerivationPath{
		bip32.ChildNumberFromWire(uint32(key.purpose) + bip32.HardenedKeyStart),
		bip32.ChildNumberFromWire(uint32(key.coinType) + bip32.HardenedKeyStart),
		bip32.ChildNumberFromWire(key.index + bip32.HardenedKeyStart),
	}
	w.mu.RLock()
	accKey, err := w.master.DerivePath(path)
	w.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("derive account %s: %w", path, err)
	}
	monitor.Wallet.KeysDerived.WithLabelValues("account").Inc()
	logger.Debug("bip44 account derived",
		zap.String("path", path.String()),
		zap.Stringer("coin", key.coinType))
	return NewAccount(accKey, key.purpose, key.coinType, key.index)
}

// DerivePath 按完整 BIP44 路径派生地址层私钥，账户层走缓存。
func (w *Wallet) DerivePath(p Path) (*bip32.ExtendedPrivateKey, error) {
	acc, err := w.GetAccount(p.Purpose(), p.CoinType(), p.Account())
	if err != nil {
		return nil, err
	}
	return acc.DeriveKey(p.Chain(), p.Index())
}

// CachedAccountCount returns the number of cached accounts.
func (w *Wallet) CachedAccountCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.accounts)
}

// ClearCache 清零并丢弃所有缓存账户的私钥。之前返回的 *Account 随之失效 (只能做公钥派生)。
func (w *Wallet) ClearCache() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for key, acc := range w.accounts {
		acc.Zero()
		delete(w.accounts, key)
	}
}

// Close 清理缓存与主密钥，之后钱包不可再用。
func (w *Wallet) Close() {
	w.ClearCache()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.master.Zero()
	w.accounts = nil
}
