package evm

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/sha3"

	"hdwallet-core/pkg/address"
	"hdwallet-core/pkg/errno"
)

// rlpUnsignedTx 的字段顺序即 EIP-1559 签名负载的顺序:
// [chain_id, nonce, max_priority_fee, max_fee, gas_limit, to, value, data, access_list]
type rlpUnsignedTx struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        uint64
	To         []byte // 空串表示创建合约
	Value      *big.Int
	Data       []byte
	AccessList []rlpAccessTuple
}

// rlpSignedTx 在未签名字段之后追加 [y_parity, r, s]。
type rlpSignedTx struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        uint64
	To         []byte
	Value      *big.Int
	Data       []byte
	AccessList []rlpAccessTuple
	V          uint64
	R          *big.Int
	S          *big.Int
}

func (tx *Transaction) rlpFields() rlpUnsignedTx {
	var to []byte
	if tx.to != nil {
		to = tx.to.Bytes()
	}
	return rlpUnsignedTx{
		ChainID:    tx.chainID.BigInt(),
		Nonce:      tx.nonce,
		GasTipCap:  tx.maxPriorityFeePerGas,
		GasFeeCap:  tx.maxFeePerGas,
		Gas:        tx.gasLimit,
		To:         to,
		Value:      tx.value,
		Data:       tx.data,
		AccessList: tx.accessList.toRLP(),
	}
}

// prefixedRLPHash 计算 keccak256(prefix || rlp(x))。
// 交易字段在构造时已校验为非负 uint256，编码不会失败。
func prefixedRLPHash(prefix byte, x interface{}) (h common.Hash) {
	sha := sha3.NewLegacyKeccak256()
	sha.Write([]byte{prefix})
	_ = rlp.Encode(sha, x)
	sha.Sum(h[:0])
	return h
}

// SigningHash 返回 keccak256(0x02 || rlp([...未签名字段...]))，即签名者签的摘要。
func (tx *Transaction) SigningHash() common.Hash {
	return prefixedRLPHash(TxTypeDynamicFee, tx.rlpFields())
}

// EncodeUnsigned returns 0x02 || rlp(unsigned fields), the payload behind SigningHash.
func (tx *Transaction) EncodeUnsigned() []byte {
	var buf bytes.Buffer
	buf.WriteByte(TxTypeDynamicFee)
	_ = rlp.Encode(&buf, tx.rlpFields())
	return buf.Bytes()
}

func encodeSigned(tx *Transaction, sig *Signature) []byte {
	f := tx.rlpFields()
	payload := rlpSignedTx{
		ChainID:    f.ChainID,
		Nonce:      f.Nonce,
		GasTipCap:  f.GasTipCap,
		GasFeeCap:  f.GasFeeCap,
		Gas:        f.Gas,
		To:         f.To,
		Value:      f.Value,
		Data:       f.Data,
		AccessList: f.AccessList,
		V:          uint64(sig.V),
		R:          new(big.Int).SetBytes(sig.R[:]),
		S:          new(big.Int).SetBytes(sig.S[:]),
	}
	var buf bytes.Buffer
	buf.WriteByte(TxTypeDynamicFee)
	_ = rlp.Encode(&buf, payload)
	return buf.Bytes()
}

// DecodeRawTransaction 解析 0x02 || rlp([..., v, r, s]) 形式的已签名交易，
// 并重新执行 Build 的全部校验。
func DecodeRawTransaction(raw []byte) (*SignedTransaction, error) {
	if len(raw) == 0 || raw[0] != TxTypeDynamicFee {
		return nil, fmt.Errorf("%w: not an EIP-1559 transaction", errno.ErrInvalidRLP)
	}
	var dec rlpSignedTx
	if err := rlp.DecodeBytes(raw[1:], &dec); err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrInvalidRLP, err)
	}
	if !dec.ChainID.IsUint64() {
		return nil, fmt.Errorf("%w: chain id overflows uint64", errno.ErrInvalidChainID)
	}
	if dec.V > 1 {
		return nil, fmt.Errorf("%w: y parity must be 0 or 1, got %d", errno.ErrInvalidSignature, dec.V)
	}
	if dec.R.BitLen() > 256 || dec.S.BitLen() > 256 {
		return nil, fmt.Errorf("%w: r or s exceeds 32 bytes", errno.ErrInvalidSignature)
	}

	b := NewTransactionBuilder().
		ChainID(ChainID(dec.ChainID.Uint64())).
		Nonce(dec.Nonce).
		MaxPriorityFeePerGas(dec.GasTipCap).
		MaxFeePerGas(dec.GasFeeCap).
		GasLimit(dec.Gas).
		Value(dec.Value).
		Data(dec.Data).
		AccessList(accessListFromRLP(dec.AccessList))
	switch len(dec.To) {
	case 0:
	case address.Length:
		to, _ := address.FromBytes(dec.To)
		b.To(to)
	default:
		return nil, fmt.Errorf("%w: recipient must be %d bytes, got %d", errno.ErrInvalidRLP, address.Length, len(dec.To))
	}
	tx, err := b.Build()
	if err != nil {
		return nil, err
	}

	sig := &Signature{V: byte(dec.V)}
	dec.R.FillBytes(sig.R[:])
	dec.S.FillBytes(sig.S[:])
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	return NewSignedTransaction(tx, sig), nil
}

// ParseRawTransaction decodes a 0x-prefixed hex raw transaction.
func ParseRawTransaction(s string) (*SignedTransaction, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrInvalidHex, err)
	}
	return DecodeRawTransaction(raw)
}
