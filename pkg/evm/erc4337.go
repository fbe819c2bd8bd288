package evm

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"hdwallet-core/pkg/address"
	"hdwallet-core/pkg/crypto_util"
	"hdwallet-core/pkg/errno"
	"hdwallet-core/pkg/monitor"
)

// EntryPointV07 是 ERC-4337 v0.7 EntryPoint 的规范部署地址。
var EntryPointV07 = address.MustFromHex("0x0000000071727De22E5E9d8BAf0edAc6f37da032")

const maxUint128Bits = 128

// PackedUserOperation 是 v0.7 的打包用户操作。
// AccountGasLimits = verificationGasLimit(高 16 字节) ‖ callGasLimit(低 16 字节)，
// GasFees = maxPriorityFeePerGas ‖ maxFeePerGas。
// PaymasterAndData 为空或以 20 字节 paymaster 地址开头。
type PackedUserOperation struct {
	Sender             address.Address
	Nonce              *big.Int
	InitCode           []byte
	CallData           []byte
	AccountGasLimits   [32]byte
	PreVerificationGas *big.Int
	GasFees            [32]byte
	PaymasterAndData   []byte
	Signature          []byte
}

// PackGasLimits packs (verificationGasLimit, callGasLimit), each a uint128.
func PackGasLimits(verificationGasLimit, callGasLimit *big.Int) ([32]byte, error) {
	return packUint128Pair(verificationGasLimit, callGasLimit)
}

// UnpackGasLimits is the inverse of PackGasLimits.
func UnpackGasLimits(packed [32]byte) (verificationGasLimit, callGasLimit *big.Int) {
	return unpackUint128Pair(packed)
}

// PackGasFees packs (maxPriorityFeePerGas, maxFeePerGas), each a uint128.
func PackGasFees(maxPriorityFeePerGas, maxFeePerGas *big.Int) ([32]byte, error) {
	return packUint128Pair(maxPriorityFeePerGas, maxFeePerGas)
}

// UnpackGasFees is the inverse of PackGasFees.
func UnpackGasFees(packed [32]byte) (maxPriorityFeePerGas, maxFeePerGas *big.Int) {
	return unpackUint128Pair(packed)
}

func packUint128Pair(hi, lo *big.Int) (out [32]byte, err error) {
	for _, v := range []*big.Int{hi, lo} {
		if v == nil || v.Sign() < 0 || v.BitLen() > maxUint128Bits {
			return out, fmt.Errorf("%w: gas value must be a uint128", errno.ErrInvalidValue)
		}
	}
	hi.FillBytes(out[:16])
	lo.FillBytes(out[16:])
	return out, nil
}

func unpackUint128Pair(packed [32]byte) (*big.Int, *big.Int) {
	return new(big.Int).SetBytes(packed[:16]), new(big.Int).SetBytes(packed[16:])
}

func (op *PackedUserOperation) VerificationGasLimit() *big.Int {
	v, _ := UnpackGasLimits(op.AccountGasLimits)
	return v
}

func (op *PackedUserOperation) CallGasLimit() *big.Int {
	_, c := UnpackGasLimits(op.AccountGasLimits)
	return c
}

func (op *PackedUserOperation) MaxPriorityFeePerGas() *big.Int {
	p, _ := UnpackGasFees(op.GasFees)
	return p
}

func (op *PackedUserOperation) MaxFeePerGas() *big.Int {
	_, m := UnpackGasFees(op.GasFees)
	return m
}

// HasPaymaster reports whether PaymasterAndData carries at least a paymaster address.
func (op *PackedUserOperation) HasPaymaster() bool {
	return len(op.PaymasterAndData) >= address.Length
}

// PaymasterAddress returns the first 20 bytes of PaymasterAndData.
func (op *PackedUserOperation) PaymasterAddress() (address.Address, bool) {
	if !op.HasPaymaster() {
		return address.Address{}, false
	}
	a, _ := address.FromBytes(op.PaymasterAndData[:address.Length])
	return a, true
}

// PaymasterData returns the bytes after the paymaster address.
func (op *PackedUserOperation) PaymasterData() []byte {
	if len(op.PaymasterAndData) <= address.Length {
		return []byte{}
	}
	return op.PaymasterAndData[address.Length:]
}

// pack ABI 编码除 signature 外的所有字段，动态字段先取 keccak256:
// abi.encode(sender, nonce, keccak(initCode), keccak(callData),
//
//	accountGasLimits, preVerificationGas, gasFees, keccak(paymasterAndData))
func (op *PackedUserOperation) pack() []byte {
	return EncodeWords(
		EncodeAddress(op.Sender),
		bigWord(op.Nonce),
		EncodeBytes(op.InitCode),
		EncodeBytes(op.CallData),
		op.AccountGasLimits,
		bigWord(op.PreVerificationGas),
		op.GasFees,
		EncodeBytes(op.PaymasterAndData),
	)
}

func bigWord(v *big.Int) (w [32]byte) {
	if v != nil {
		v.FillBytes(w[:])
	}
	return w
}

// HashUserOperation 计算 v0.7 userOpHash:
// keccak256(keccak256(pack(op)) ‖ pad32(entryPoint) ‖ pad32(chainId))。
func HashUserOperation(op *PackedUserOperation, entryPoint address.Address, chainID ChainID) common.Hash {
	inner := crypto_util.Keccak256Hash(op.pack())
	ep := EncodeAddress(entryPoint)
	cid := EncodeUint64(chainID.Value())
	return common.BytesToHash(crypto_util.Keccak256(inner[:], ep[:], cid[:]))
}

// SignUserOperation signs the user operation hash. It does not modify op.Signature.
func SignUserOperation(s *Signer, op *PackedUserOperation, entryPoint address.Address, chainID ChainID) (*Signature, error) {
	hash := HashUserOperation(op, entryPoint, chainID)
	sig, err := s.SignHash(hash[:])
	if err != nil {
		return nil, err
	}
	monitor.Wallet.Signatures.WithLabelValues("erc4337").Inc()
	return sig, nil
}

// VerifyUserOperation reports whether sig over the user operation hash was produced by expected.
func VerifyUserOperation(op *PackedUserOperation, entryPoint address.Address, chainID ChainID, sig *Signature, expected address.Address) bool {
	hash := HashUserOperation(op, entryPoint, chainID)
	return VerifyHash(hash[:], sig, expected)
}

// UserOperationBuilder 收集字段，校验推迟到 Build。
// sender、nonce、两组 gas 和 preVerificationGas 为必填。
type UserOperationBuilder struct {
	op        PackedUserOperation
	senderSet bool
	limitsSet bool
	feesSet   bool
	err       error
}

func NewUserOperationBuilder() *UserOperationBuilder { return &UserOperationBuilder{} }

func (b *UserOperationBuilder) Sender(a address.Address) *UserOperationBuilder {
	b.op.Sender = a
	b.senderSet = true
	return b
}

func (b *UserOperationBuilder) Nonce(n *big.Int) *UserOperationBuilder {
	b.op.Nonce = copyBig(n)
	return b
}

func (b *UserOperationBuilder) InitCode(code []byte) *UserOperationBuilder {
	b.op.InitCode = append([]byte(nil), code...)
	return b
}

func (b *UserOperationBuilder) CallData(data []byte) *UserOperationBuilder {
	b.op.CallData = append([]byte(nil), data...)
	return b
}

// AccountGasLimits packs the two limits; a range error surfaces from Build.
func (b *UserOperationBuilder) AccountGasLimits(verificationGasLimit, callGasLimit *big.Int) *UserOperationBuilder {
	packed, err := PackGasLimits(verificationGasLimit, callGasLimit)
	if err != nil {
		b.setErr(fmt.Errorf("account gas limits: %w", err))
		return b
	}
	return b.AccountGasLimitsPacked(packed)
}

func (b *UserOperationBuilder) AccountGasLimitsPacked(packed [32]byte) *UserOperationBuilder {
	b.op.AccountGasLimits = packed
	b.limitsSet = true
	return b
}

func (b *UserOperationBuilder) PreVerificationGas(gas *big.Int) *UserOperationBuilder {
	b.op.PreVerificationGas = copyBig(gas)
	return b
}

// GasFees packs the two fees; a range error surfaces from Build.
func (b *UserOperationBuilder) GasFees(maxPriorityFeePerGas, maxFeePerGas *big.Int) *UserOperationBuilder {
	packed, err := PackGasFees(maxPriorityFeePerGas, maxFeePerGas)
	if err != nil {
		b.setErr(fmt.Errorf("gas fees: %w", err))
		return b
	}
	return b.GasFeesPacked(packed)
}

func (b *UserOperationBuilder) GasFeesPacked(packed [32]byte) *UserOperationBuilder {
	b.op.GasFees = packed
	b.feesSet = true
	return b
}

// Paymaster sets PaymasterAndData = paymaster ‖ data.
func (b *UserOperationBuilder) Paymaster(paymaster address.Address, data []byte) *UserOperationBuilder {
	pd := make([]byte, 0, address.Length+len(data))
	pd = append(pd, paymaster[:]...)
	b.op.PaymasterAndData = append(pd, data...)
	return b
}

func (b *UserOperationBuilder) PaymasterAndData(raw []byte) *UserOperationBuilder {
	b.op.PaymasterAndData = append([]byte(nil), raw...)
	return b
}

func (b *UserOperationBuilder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *UserOperationBuilder) Build() (*PackedUserOperation, error) {
	if b.err != nil {
		return nil, b.err
	}
	switch {
	case !b.senderSet:
		return nil, fmt.Errorf("%w: sender", errno.ErrMissingField)
	case b.op.Nonce == nil:
		return nil, fmt.Errorf("%w: nonce", errno.ErrMissingField)
	case !b.limitsSet:
		return nil, fmt.Errorf("%w: account_gas_limits", errno.ErrMissingField)
	case b.op.PreVerificationGas == nil:
		return nil, fmt.Errorf("%w: pre_verification_gas", errno.ErrMissingField)
	case !b.feesSet:
		return nil, fmt.Errorf("%w: gas_fees", errno.ErrMissingField)
	}
	for name, v := range map[string]*big.Int{"nonce": b.op.Nonce, "pre_verification_gas": b.op.PreVerificationGas} {
		if v.Sign() < 0 || v.BitLen() > 256 {
			return nil, fmt.Errorf("%w: %s must be a uint256", errno.ErrInvalidValue, name)
		}
	}
	if len(b.op.PaymasterAndData) > 0 && len(b.op.PaymasterAndData) < address.Length {
		return nil, fmt.Errorf("%w: paymaster_and_data shorter than an address", errno.ErrInvalidValue)
	}
	op := b.op
	op.Nonce = copyBig(b.op.Nonce)
	op.PreVerificationGas = copyBig(b.op.PreVerificationGas)
	op.InitCode = append([]byte{}, b.op.InitCode...)
	op.CallData = append([]byte{}, b.op.CallData...)
	op.PaymasterAndData = append([]byte{}, b.op.PaymasterAndData...)
	op.Signature = []byte{}
	return &op, nil
}

// userOperationJSON 是打包形式的 JSON-RPC 表示，数值与字节都用 0x 十六进制。
type userOperationJSON struct {
	Sender             address.Address `json:"sender"`
	Nonce              *hexutil.Big    `json:"nonce"`
	InitCode           hexutil.Bytes   `json:"initCode"`
	CallData           hexutil.Bytes   `json:"callData"`
	AccountGasLimits   hexutil.Bytes   `json:"accountGasLimits"`
	PreVerificationGas *hexutil.Big    `json:"preVerificationGas"`
	GasFees            hexutil.Bytes   `json:"gasFees"`
	PaymasterAndData   hexutil.Bytes   `json:"paymasterAndData"`
	Signature          hexutil.Bytes   `json:"signature"`
}

func (op PackedUserOperation) MarshalJSON() ([]byte, error) {
	return json.Marshal(userOperationJSON{
		Sender:             op.Sender,
		Nonce:              (*hexutil.Big)(bigOrZero(op.Nonce)),
		InitCode:           nonNilBytes(op.InitCode),
		CallData:           nonNilBytes(op.CallData),
		AccountGasLimits:   op.AccountGasLimits[:],
		PreVerificationGas: (*hexutil.Big)(bigOrZero(op.PreVerificationGas)),
		GasFees:            op.GasFees[:],
		PaymasterAndData:   nonNilBytes(op.PaymasterAndData),
		Signature:          nonNilBytes(op.Signature),
	})
}

func (op *PackedUserOperation) UnmarshalJSON(data []byte) error {
	var dec userOperationJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	if dec.Nonce == nil || dec.PreVerificationGas == nil {
		return fmt.Errorf("%w: nonce and preVerificationGas are required", errno.ErrMissingField)
	}
	if len(dec.AccountGasLimits) != 32 || len(dec.GasFees) != 32 {
		return fmt.Errorf("%w: accountGasLimits and gasFees must be 32 bytes", errno.ErrInvalidValue)
	}
	*op = PackedUserOperation{
		Sender:             dec.Sender,
		Nonce:              (*big.Int)(dec.Nonce),
		InitCode:           dec.InitCode,
		CallData:           dec.CallData,
		PreVerificationGas: (*big.Int)(dec.PreVerificationGas),
		PaymasterAndData:   dec.PaymasterAndData,
		Signature:          dec.Signature,
	}
	copy(op.AccountGasLimits[:], dec.AccountGasLimits)
	copy(op.GasFees[:], dec.GasFees)
	return nil
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func nonNilBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
