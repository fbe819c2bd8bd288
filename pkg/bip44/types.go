package bip44

import (
	"fmt"
	"strconv"
	"strings"

	"hdwallet-core/pkg/errno"
)

// Purpose 是 BIP43 用途层 (路径第一层)。
type Purpose uint32

const (
	PurposeBIP44 Purpose = 44 // legacy P2PKH / 多数账户模型链
	PurposeBIP49 Purpose = 49 // P2SH-P2WPKH
	PurposeBIP84 Purpose = 84 // native segwit
	PurposeBIP86 Purpose = 86 // taproot
)

// PurposeFromUint32 rejects anything outside 44/49/84/86.
func PurposeFromUint32(v uint32) (Purpose, error) {
	switch p := Purpose(v); p {
	case PurposeBIP44, PurposeBIP49, PurposeBIP84, PurposeBIP86:
		return p, nil
	default:
		return 0, fmt.Errorf("%w: unsupported purpose %d", errno.ErrInvalidValue, v)
	}
}

func (p Purpose) Value() uint32 { return uint32(p) }

func (p Purpose) String() string {
	return "BIP" + strconv.FormatUint(uint64(p), 10)
}

// Chain 区分外部 (收款) 与内部 (找零) 地址链。
type Chain uint32

const (
	External Chain = 0
	Internal Chain = 1
)

// ChainFromUint32 accepts 0 and 1 only.
func ChainFromUint32(v uint32) (Chain, error) {
	switch c := Chain(v); c {
	case External, Internal:
		return c, nil
	default:
		return 0, fmt.Errorf("%w: chain must be 0 or 1, got %d", errno.ErrInvalidValue, v)
	}
}

// ParseChain accepts "external"/"receive"/"0" and "internal"/"change"/"1".
func ParseChain(s string) (Chain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "external", "receive", "0":
		return External, nil
	case "internal", "change", "1":
		return Internal, nil
	default:
		return 0, fmt.Errorf("%w: unknown chain %q", errno.ErrInvalidValue, s)
	}
}

func (c Chain) Value() uint32 { return uint32(c) }

func (c Chain) String() string {
	if c == Internal {
		return "internal"
	}
	return "external"
}

// CoinType 是 SLIP-44 币种编号。注册表之外的编号视为自定义币种。
type CoinType uint32

const (
	CoinBitcoin         CoinType = 0
	CoinBitcoinTestnet  CoinType = 1
	CoinLitecoin        CoinType = 2
	CoinDogecoin        CoinType = 3
	CoinDash            CoinType = 5
	CoinEthereum        CoinType = 60
	CoinEthereumClassic CoinType = 61
	CoinCosmos          CoinType = 118
	CoinBitcoinCash     CoinType = 145
	CoinTron            CoinType = 195
	CoinPolkadot        CoinType = 354
	CoinSolana          CoinType = 501
	CoinBinance         CoinType = 714
	CoinCardano         CoinType = 1815
)

var coinSymbols = map[CoinType]string{
	CoinBitcoin:         "BTC",
	CoinBitcoinTestnet:  "tBTC",
	CoinLitecoin:        "LTC",
	CoinDogecoin:        "DOGE",
	CoinDash:            "DASH",
	CoinEthereum:        "ETH",
	CoinEthereumClassic: "ETC",
	CoinCosmos:          "ATOM",
	CoinBitcoinCash:     "BCH",
	CoinTron:            "TRX",
	CoinPolkadot:        "DOT",
	CoinSolana:          "SOL",
	CoinBinance:         "BNB",
	CoinCardano:         "ADA",
}

// CoinTypeFromSymbol looks up a registered coin by ticker, case-insensitive.
func CoinTypeFromSymbol(symbol string) (CoinType, error) {
	for c, s := range coinSymbols {
		if strings.EqualFold(s, symbol) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown coin %q", errno.ErrInvalidValue, symbol)
}

func (c CoinType) Index() uint32 { return uint32(c) }

// IsCustom reports whether the coin type is outside the built-in registry.
func (c CoinType) IsCustom() bool {
	_, ok := coinSymbols[c]
	return !ok
}

// Symbol returns the ticker, or "CUSTOM(n)" for unregistered coin types.
func (c CoinType) Symbol() string {
	if s, ok := coinSymbols[c]; ok {
		return s
	}
	return "CUSTOM(" + strconv.FormatUint(uint64(c), 10) + ")"
}

func (c CoinType) String() string { return c.Symbol() }

// DefaultPurpose: BTC/tBTC/LTC 默认 native segwit (BIP84)，其余为 BIP44。
func (c CoinType) DefaultPurpose() Purpose {
	switch c {
	case CoinBitcoin, CoinBitcoinTestnet, CoinLitecoin:
		return PurposeBIP84
	default:
		return PurposeBIP44
	}
}

// IsEVMCompatible reports whether addresses for this coin use the
// keccak/EIP-55 account model.
func (c CoinType) IsEVMCompatible() bool {
	switch c {
	case CoinEthereum, CoinEthereumClassic, CoinBinance, CoinTron:
		return true
	default:
		return false
	}
}
