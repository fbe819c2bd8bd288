package evm

import (
	"fmt"
	"math/big"

	"hdwallet-core/pkg/address"
	"hdwallet-core/pkg/errno"
)

const (
	// TxTypeDynamicFee 是 EIP-1559 交易的类型前缀。
	TxTypeDynamicFee byte = 0x02

	// TransferGas 是普通转账的固有 gas，也是任何交易的 gas 下限。
	TransferGas uint64 = 21_000
	// TokenTransferGas 是 ERC-20 transfer 的常用 gas 上限估计。
	TokenTransferGas uint64 = 65_000
)

// Transaction 是一笔未签名的 EIP-1559 交易。只能通过 TransactionBuilder 或解码得到，
// 构造后不可变，访问器返回拷贝。
type Transaction struct {
	chainID              ChainID
	nonce                uint64
	maxPriorityFeePerGas *big.Int
	maxFeePerGas         *big.Int
	gasLimit             uint64
	to                   *address.Address
	value                *big.Int
	data                 []byte
	accessList           AccessList
}

func (tx *Transaction) ChainID() ChainID { return tx.chainID }
func (tx *Transaction) Nonce() uint64    { return tx.nonce }
func (tx *Transaction) GasLimit() uint64 { return tx.gasLimit }

func (tx *Transaction) MaxPriorityFeePerGas() *big.Int {
	return new(big.Int).Set(tx.maxPriorityFeePerGas)
}

func (tx *Transaction) MaxFeePerGas() *big.Int { return new(big.Int).Set(tx.maxFeePerGas) }
func (tx *Transaction) Value() *big.Int        { return new(big.Int).Set(tx.value) }
func (tx *Transaction) Data() []byte           { return append([]byte(nil), tx.data...) }
func (tx *Transaction) AccessList() AccessList { return tx.accessList.clone() }

// To returns the recipient and false for contract creation.
func (tx *Transaction) To() (address.Address, bool) {
	if tx.to == nil {
		return address.Address{}, false
	}
	return *tx.to, true
}

// IsContractCreation reports whether the transaction has no recipient.
func (tx *Transaction) IsContractCreation() bool { return tx.to == nil }

// IsTransfer reports whether the transaction is a plain value transfer (recipient, no data).
func (tx *Transaction) IsTransfer() bool { return tx.to != nil && len(tx.data) == 0 }

// MaxCost 返回 gasLimit * maxFeePerGas + value，即发送方需要的最大余额。
func (tx *Transaction) MaxCost() *big.Int {
	cost := new(big.Int).Mul(new(big.Int).SetUint64(tx.gasLimit), tx.maxFeePerGas)
	return cost.Add(cost, tx.value)
}

func (tx *Transaction) validate() error {
	if tx.chainID == 0 {
		return fmt.Errorf("%w: chain id must be non-zero", errno.ErrInvalidChainID)
	}
	fields := []struct {
		name string
		v    *big.Int
	}{
		{"max_priority_fee_per_gas", tx.maxPriorityFeePerGas},
		{"max_fee_per_gas", tx.maxFeePerGas},
		{"value", tx.value},
	}
	for _, f := range fields {
		if f.v.Sign() < 0 || f.v.BitLen() > 256 {
			return fmt.Errorf("%w: %s must be a uint256", errno.ErrInvalidValue, f.name)
		}
	}
	if tx.maxFeePerGas.Cmp(tx.maxPriorityFeePerGas) < 0 {
		return fmt.Errorf("%w: max_fee_per_gas %s < max_priority_fee_per_gas %s",
			errno.ErrFeeOrdering, tx.maxFeePerGas, tx.maxPriorityFeePerGas)
	}
	if tx.gasLimit < TransferGas {
		return fmt.Errorf("%w: gas_limit must be at least %d, got %d", errno.ErrGasFloor, TransferGas, tx.gasLimit)
	}
	return nil
}

// TransactionBuilder 收集字段，所有校验推迟到 Build。
// chain id、nonce、两个费用字段和 gas limit 是必填项；value 默认为 0，to 为空表示创建合约。
type TransactionBuilder struct {
	chainID              *ChainID
	nonce                *uint64
	maxPriorityFeePerGas *big.Int
	maxFeePerGas         *big.Int
	gasLimit             *uint64
	to                   *address.Address
	value                *big.Int
	data                 []byte
	accessList           AccessList
}

func NewTransactionBuilder() *TransactionBuilder { return &TransactionBuilder{} }

func (b *TransactionBuilder) ChainID(id ChainID) *TransactionBuilder { b.chainID = &id; return b }
func (b *TransactionBuilder) Nonce(n uint64) *TransactionBuilder    { b.nonce = &n; return b }

func (b *TransactionBuilder) MaxPriorityFeePerGas(fee *big.Int) *TransactionBuilder {
	b.maxPriorityFeePerGas = copyBig(fee)
	return b
}

func (b *TransactionBuilder) MaxFeePerGas(fee *big.Int) *TransactionBuilder {
	b.maxFeePerGas = copyBig(fee)
	return b
}

func (b *TransactionBuilder) GasLimit(gas uint64) *TransactionBuilder { b.gasLimit = &gas; return b }
func (b *TransactionBuilder) To(to address.Address) *TransactionBuilder {
	b.to = &to
	return b
}

func (b *TransactionBuilder) Value(v *big.Int) *TransactionBuilder { b.value = copyBig(v); return b }

func (b *TransactionBuilder) Data(data []byte) *TransactionBuilder {
	b.data = append([]byte(nil), data...)
	return b
}

func (b *TransactionBuilder) AccessList(al AccessList) *TransactionBuilder {
	b.accessList = al.clone()
	return b
}

// AddAccessTuple appends one entry to the access list.
func (b *TransactionBuilder) AddAccessTuple(t AccessTuple) *TransactionBuilder {
	b.accessList = append(b.accessList, AccessList{t}.clone()...)
	return b
}

// Build 检查必填字段以及费用顺序 (maxFee >= maxPriorityFee) 和 gas 下限。
func (b *TransactionBuilder) Build() (*Transaction, error) {
	switch {
	case b.chainID == nil:
		return nil, fmt.Errorf("%w: chain_id", errno.ErrMissingField)
	case b.nonce == nil:
		return nil, fmt.Errorf("%w: nonce", errno.ErrMissingField)
	case b.maxPriorityFeePerGas == nil:
		return nil, fmt.Errorf("%w: max_priority_fee_per_gas", errno.ErrMissingField)
	case b.maxFeePerGas == nil:
		return nil, fmt.Errorf("%w: max_fee_per_gas", errno.ErrMissingField)
	case b.gasLimit == nil:
		return nil, fmt.Errorf("%w: gas_limit", errno.ErrMissingField)
	}

	value := b.value
	if value == nil {
		value = new(big.Int)
	}
	tx := &Transaction{
		chainID:              *b.chainID,
		nonce:                *b.nonce,
		maxPriorityFeePerGas: copyBig(b.maxPriorityFeePerGas),
		maxFeePerGas:         copyBig(b.maxFeePerGas),
		gasLimit:             *b.gasLimit,
		value:                copyBig(value),
		data:                 append([]byte(nil), b.data...),
		accessList:           b.accessList.clone(),
	}
	if b.to != nil {
		to := *b.to
		tx.to = &to
	}
	if err := tx.validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
