package bip44

import (
	"fmt"
	"iter"
	"sync"

	"hdwallet-core/pkg/bip32"
	"hdwallet-core/pkg/errno"
)

// accountDepth: m / purpose' / coin' / account'
const accountDepth = 3

// Account 封装一个账户层扩展密钥 (m/purpose'/coin'/account')，
// 链层密钥 (.../0, .../1) 第一次使用时派生并缓存，地址层密钥不缓存。
//
// 只读账户 (NewWatchOnlyAccount) 只持有 xpub，仅支持公钥派生。
type Account struct {
	purpose  Purpose
	coinType CoinType
	index    uint32

	priv *bip32.ExtendedPrivateKey
	pub  *bip32.ExtendedPublicKey

	mu         sync.Mutex
	privChains map[Chain]*bip32.ExtendedPrivateKey
	pubChains  map[Chain]*bip32.ExtendedPublicKey
}

// NewAccount takes ownership of an account-level private key.
func NewAccount(key *bip32.ExtendedPrivateKey, purpose Purpose, coinType CoinType, index uint32) (*Account, error) {
	if key == nil || key.IsWiped() {
		return nil, errno.ErrKeyZeroized
	}
	if err := checkAccountKey(key, index); err != nil {
		return nil, err
	}
	return &Account{
		purpose:    purpose,
		coinType:   coinType,
		index:      index,
		priv:       key,
		pub:        key.Neuter(),
		privChains: make(map[Chain]*bip32.ExtendedPrivateKey, 2),
		pubChains:  make(map[Chain]*bip32.ExtendedPublicKey, 2),
	}, nil
}

// NewWatchOnlyAccount wraps an account-level xpub.
func NewWatchOnlyAccount(key *bip32.ExtendedPublicKey, purpose Purpose, coinType CoinType, index uint32) (*Account, error) {
	if key == nil {
		return nil, errno.ErrInvalidPublicKey
	}
	if err := checkAccountKey(key, index); err != nil {
		return nil, err
	}
	return &Account{
		purpose:   purpose,
		coinType:  coinType,
		index:     index,
		pub:       key,
		pubChains: make(map[Chain]*bip32.ExtendedPublicKey, 2),
	}, nil
}

// ParseWatchOnlyAccount 从 xpub 字符串构建只读账户。
func ParseWatchOnlyAccount(xpub string, purpose Purpose, coinType CoinType, index uint32) (*Account, error) {
	key, err := bip32.ParseExtendedPublicKey(xpub)
	if err != nil {
		return nil, err
	}
	return NewWatchOnlyAccount(key, purpose, coinType, index)
}

func checkAccountKey(key bip32.ExtendedKey, index uint32) error {
	if key.Depth() != accountDepth {
		return fmt.Errorf("%w: account key must be at depth %d, got %d", errno.ErrInvalidValue, accountDepth, key.Depth())
	}
	cn := key.ChildNumber()
	if !cn.IsHardened() || cn.Index() != index {
		return fmt.Errorf("%w: account key child number %s does not match account %d'", errno.ErrInvalidValue, cn, index)
	}
	return nil
}

func (a *Account) Purpose() Purpose       { return a.purpose }
func (a *Account) CoinType() CoinType     { return a.coinType }
func (a *Account) Index() uint32          { return a.index }
func (a *Account) Network() bip32.Network { return a.pub.Network() }
func (a *Account) IsWatchOnly() bool      { return a.priv == nil }

// ExtendedPublicKey returns the account-level public key.
func (a *Account) ExtendedPublicKey() *bip32.ExtendedPublicKey { return a.pub }

// XPub 返回账户层 xpub，用于导出到只读服务。
func (a *Account) XPub() string { return a.pub.String() }

// Path returns the full BIP44 path of an address in this account.
func (a *Account) Path(chain Chain, index uint32) (Path, error) {
	return NewPath(a.purpose, a.coinType, a.index, chain, index)
}

// chainPrivateLocked 调用方必须持有 a.mu，Zero 在同一把锁下清零。
func (a *Account) chainPrivateLocked(chain Chain) (*bip32.ExtendedPrivateKey, error) {
	if a.priv.IsWiped() {
		return nil, errno.ErrKeyZeroized
	}
	if k, ok := a.privChains[chain]; ok {
		return k, nil
	}
	cn, err := bip32.Normal(uint32(chain))
	if err != nil {
		return nil, err
	}
	k, err := a.priv.DeriveChild(cn)
	if err != nil {
		return nil, err
	}
	a.privChains[chain] = k
	return k, nil
}

// chainPublic 总是走公钥派生，账户私钥被清零后仍然可用。
func (a *Account) chainPublic(chain Chain) (*bip32.ExtendedPublicKey, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if k, ok := a.pubChains[chain]; ok {
		return k, nil
	}
	cn, err := bip32.Normal(uint32(chain))
	if err != nil {
		return nil, err
	}
	k, err := a.pub.DeriveChild(cn)
	if err != nil {
		return nil, err
	}
	a.pubChains[chain] = k
	return k, nil
}

// DeriveKey 派生地址层私钥 (不缓存)。调用方负责 Zero。
func (a *Account) DeriveKey(chain Chain, index uint32) (*bip32.ExtendedPrivateKey, error) {
	if _, err := a.Path(chain, index); err != nil {
		return nil, err
	}
	if a.priv == nil {
		return nil, errno.ErrWatchOnly
	}
	// 整个派生过程持锁，ClearCache 不会在中途清零链层私钥
	a.mu.Lock()
	defer a.mu.Unlock()

	chainKey, err := a.chainPrivateLocked(chain)
	if err != nil {
		return nil, err
	}
	cn, _ := bip32.Normal(index)
	return chainKey.DeriveChild(cn)
}

// DeriveExternal derives the receiving key at index.
func (a *Account) DeriveExternal(index uint32) (*bip32.ExtendedPrivateKey, error) {
	return a.DeriveKey(External, index)
}

// DeriveInternal derives the change key at index.
func (a *Account) DeriveInternal(index uint32) (*bip32.ExtendedPrivateKey, error) {
	return a.DeriveKey(Internal, index)
}

// DerivePublicKey 派生地址层公钥，只读账户也可用。
func (a *Account) DerivePublicKey(chain Chain, index uint32) (*bip32.ExtendedPublicKey, error) {
	if _, err := a.Path(chain, index); err != nil {
		return nil, err
	}
	chainKey, err := a.chainPublic(chain)
	if err != nil {
		return nil, err
	}
	cn, _ := bip32.Normal(index)
	return chainKey.DeriveChild(cn)
}

// DeriveAddress returns the public view of one address.
func (a *Account) DeriveAddress(chain Chain, index uint32) (*DerivedAddress, error) {
	path, err := a.Path(chain, index)
	if err != nil {
		return nil, err
	}
	key, err := a.DerivePublicKey(chain, index)
	if err != nil {
		return nil, err
	}
	return &DerivedAddress{Path: path, Key: key}, nil
}

// DeriveAddressRange 批量派生 count 个连续地址，链层密钥只派生一次。
func (a *Account) DeriveAddressRange(chain Chain, start, count uint32) ([]*DerivedAddress, error) {
	if count == 0 {
		return []*DerivedAddress{}, nil
	}
	if start > MaxIndex || count-1 > MaxIndex-start {
		return nil, fmt.Errorf("%w: range %d+%d exceeds %d", errno.ErrInvalidChildIndex, start, count, MaxIndex)
	}
	chainKey, err := a.chainPublic(chain)
	if err != nil {
		return nil, err
	}

	out := make([]*DerivedAddress, 0, count)
	for i := uint32(0); i < count; i++ {
		index := start + i
		path, err := a.Path(chain, index)
		if err != nil {
			return nil, err
		}
		cn, _ := bip32.Normal(index)
		key, err := chainKey.DeriveChild(cn)
		if err != nil {
			return nil, err
		}
		out = append(out, &DerivedAddress{Path: path, Key: key})
	}
	return out, nil
}

// Addresses 按索引顺序从 start 开始迭代地址，直到 MaxIndex 或调用方停止。
// 派生失败时产出 (nil, err) 并结束迭代。
func (a *Account) Addresses(chain Chain, start uint32) iter.Seq2[*DerivedAddress, error] {
	return func(yield func(*DerivedAddress, error) bool) {
		for index := start; index <= MaxIndex; index++ {
			addr, err := a.DeriveAddress(chain, index)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(addr, nil) {
				return
			}
		}
	}
}

// Zero 清零账户私钥及缓存的链层私钥。之后只能做公钥派生。
func (a *Account) Zero() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for chain, k := range a.privChains {
		k.Zero()
		delete(a.privChains, chain)
	}
	if a.priv != nil {
		a.priv.Zero()
	}
}
