package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"hdwallet-core/pkg/address"
	"hdwallet-core/pkg/bip44"
	"hdwallet-core/pkg/errno"
	"hdwallet-core/pkg/evm"
)

// UnsignedTransaction represents an EIP-1559 transaction waiting to be signed.
// It contains all necessary fields for a cold wallet to sign, plus metadata for the user to verify.
// 金额与费用统一使用 Wei 的十进制字符串，避免 JSON 数字精度问题。
type UnsignedTransaction struct {
	ChainID              uint64         `json:"chain_id"`
	From                 string         `json:"from"`         // Sender Address
	To                   string         `json:"to,omitempty"` // 为空表示合约创建
	Value                string         `json:"value"`
	Nonce                uint64         `json:"nonce"`
	GasLimit             uint64         `json:"gas_limit"`
	MaxPriorityFeePerGas string         `json:"max_priority_fee_per_gas"`
	MaxFeePerGas         string         `json:"max_fee_per_gas"`
	Data                 string         `json:"data,omitempty"` // Contract Data (Hex)
	AccessList           evm.AccessList `json:"access_list,omitempty"`

	// DerivationPath is crucial for the signer to know which key to use
	// e.g., "m/44'/60'/0'/0/0"
	DerivationPath string `json:"derivation_path"`
}

// NewUnsignedTransaction 把已校验的交易转换为待签名文件格式。
func NewUnsignedTransaction(tx *evm.Transaction, from address.Address, path bip44.Path) *UnsignedTransaction {
	u := &UnsignedTransaction{
		ChainID:              tx.ChainID().Value(),
		From:                 from.Hex(),
		Value:                tx.Value().String(),
		Nonce:                tx.Nonce(),
		GasLimit:             tx.GasLimit(),
		MaxPriorityFeePerGas: tx.MaxPriorityFeePerGas().String(),
		MaxFeePerGas:         tx.MaxFeePerGas().String(),
		AccessList:           tx.AccessList(),
		DerivationPath:       path.String(),
	}
	if to, ok := tx.To(); ok {
		u.To = to.Hex()
	}
	if data := tx.Data(); len(data) > 0 {
		u.Data = hexutil.Encode(data)
	}
	return u
}

// Path parses DerivationPath as a five-level BIP44 path.
func (u *UnsignedTransaction) Path() (bip44.Path, error) {
	return bip44.ParsePath(u.DerivationPath)
}

// ToTransaction 重新构造并校验交易，签名端不信任文件中的任何字段。
func (u *UnsignedTransaction) ToTransaction() (*evm.Transaction, error) {
	chainID, err := evm.NewChainID(u.ChainID)
	if err != nil {
		return nil, err
	}
	value, err := parseWeiField("value", u.Value)
	if err != nil {
		return nil, err
	}
	tip, err := parseWeiField("max_priority_fee_per_gas", u.MaxPriorityFeePerGas)
	if err != nil {
		return nil, err
	}
	feeCap, err := parseWeiField("max_fee_per_gas", u.MaxFeePerGas)
	if err != nil {
		return nil, err
	}

	b := evm.NewTransactionBuilder().
		ChainID(chainID).
		Nonce(u.Nonce).
		GasLimit(u.GasLimit).
		Value(value).
		MaxPriorityFeePerGas(tip).
		MaxFeePerGas(feeCap).
		AccessList(u.AccessList)

	if u.To != "" {
		to, err := address.FromHex(u.To)
		if err != nil {
			return nil, fmt.Errorf("to: %w", err)
		}
		b.To(to)
	}
	if u.Data != "" {
		data, err := hexutil.Decode(u.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: data: %v", errno.ErrInvalidHex, err)
		}
		b.Data(data)
	}
	return b.Build()
}

// FromAddress parses From, which may be empty for files produced by other tools.
func (u *UnsignedTransaction) FromAddress() (address.Address, bool, error) {
	if u.From == "" {
		return address.Address{}, false, nil
	}
	a, err := address.FromHex(u.From)
	if err != nil {
		return address.Address{}, false, fmt.Errorf("from: %w", err)
	}
	return a, true, nil
}

func parseWeiField(name, v string) (*big.Int, error) {
	if v == "" {
		return nil, fmt.Errorf("%w: %s", errno.ErrMissingField, name)
	}
	n, err := evm.ParseWei(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

// SignedTransaction represents the result of the signing process.
type SignedTransaction struct {
	TxHash string `json:"tx_hash"` // Transaction Hash
	RawTx  string `json:"raw_tx"`  // 0x02 || RLP, ready to broadcast
	From   string `json:"from"`
}

func NewSignedTransaction(st *evm.SignedTransaction) (*SignedTransaction, error) {
	from, err := st.Sender()
	if err != nil {
		return nil, err
	}
	return &SignedTransaction{
		TxHash: st.Hash().Hex(),
		RawTx:  st.RawTransaction(),
		From:   from.Hex(),
	}, nil
}

// Decode parses RawTx back into a signed transaction and checks it against TxHash.
func (s *SignedTransaction) Decode() (*evm.SignedTransaction, error) {
	st, err := evm.ParseRawTransaction(s.RawTx)
	if err != nil {
		return nil, err
	}
	if s.TxHash != "" && st.Hash().Hex() != s.TxHash {
		return nil, fmt.Errorf("%w: tx_hash does not match raw_tx", errno.ErrInvalidValue)
	}
	return st, nil
}
