package evm

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"hdwallet-core/pkg/address"
	"hdwallet-core/pkg/crypto_util"
	"hdwallet-core/pkg/errno"
	"hdwallet-core/pkg/monitor"
)

// TypedMessage 是可以做 EIP-712 hashStruct 的结构体。
//
// TypeString 返回规范的 Solidity 风格类型签名，引用到的结构体类型按名字排序追加在后面，
// 例如 "Mail(Person from,Person to,string contents)Person(string name,address wallet)"。
// EncodeData 返回按字段顺序拼接的 32 字节编码，使用下面的 Encode* 辅助函数。
type TypedMessage interface {
	TypeString() string
	EncodeData() []byte
}

// TypeHash returns keccak256(TypeString()).
func TypeHash(m TypedMessage) common.Hash {
	return common.BytesToHash(crypto_util.Keccak256([]byte(m.TypeString())))
}

// HashStruct returns keccak256(typeHash ‖ encodeData).
func HashStruct(m TypedMessage) common.Hash {
	th := TypeHash(m)
	return common.BytesToHash(crypto_util.Keccak256(th[:], m.EncodeData()))
}

// HashTypedData 计算 keccak256(0x19 0x01 ‖ domainSeparator ‖ hashStruct(message))。
func HashTypedData(domain Domain, message TypedMessage) common.Hash {
	sep := domain.Separator()
	msg := HashStruct(message)
	return common.BytesToHash(crypto_util.Keccak256([]byte{0x19, 0x01}, sep[:], msg[:]))
}

// SignTypedData signs the EIP-712 digest of message under domain.
func SignTypedData(s *Signer, domain Domain, message TypedMessage) (*Signature, error) {
	hash := HashTypedData(domain, message)
	sig, err := s.SignHash(hash[:])
	if err != nil {
		return nil, err
	}
	monitor.Wallet.Signatures.WithLabelValues("eip712").Inc()
	return sig, nil
}

// VerifyTypedData reports whether sig over (domain, message) was produced by expected.
func VerifyTypedData(domain Domain, message TypedMessage, sig *Signature, expected address.Address) bool {
	hash := HashTypedData(domain, message)
	return VerifyHash(hash[:], sig, expected)
}

// Domain 是 EIP712Domain。所有字段都可选，但至少要有一个；
// 类型串只包含已设置的字段，顺序固定为 name, version, chainId, verifyingContract, salt。
type Domain struct {
	name              *string
	version           *string
	chainID           *uint64
	verifyingContract *address.Address
	salt              *common.Hash
}

// NewDomain builds the common four-field domain.
func NewDomain(name, version string, chainID uint64, verifyingContract address.Address) Domain {
	return Domain{name: &name, version: &version, chainID: &chainID, verifyingContract: &verifyingContract}
}

func (d Domain) Name() (string, bool) {
	if d.name == nil {
		return "", false
	}
	return *d.name, true
}

func (d Domain) ChainID() (uint64, bool) {
	if d.chainID == nil {
		return 0, false
	}
	return *d.chainID, true
}

func (d Domain) VerifyingContract() (address.Address, bool) {
	if d.verifyingContract == nil {
		return address.Address{}, false
	}
	return *d.verifyingContract, true
}

func (d Domain) TypeString() string {
	fields := make([]string, 0, 5)
	if d.name != nil {
		fields = append(fields, "string name")
	}
	if d.version != nil {
		fields = append(fields, "string version")
	}
	if d.chainID != nil {
		fields = append(fields, "uint256 chainId")
	}
	if d.verifyingContract != nil {
		fields = append(fields, "address verifyingContract")
	}
	if d.salt != nil {
		fields = append(fields, "bytes32 salt")
	}
	return "EIP712Domain(" + strings.Join(fields, ",") + ")"
}

func (d Domain) EncodeData() []byte {
	var buf []byte
	if d.name != nil {
		buf = appendWord(buf, EncodeString(*d.name))
	}
	if d.version != nil {
		buf = appendWord(buf, EncodeString(*d.version))
	}
	if d.chainID != nil {
		buf = appendWord(buf, EncodeUint64(*d.chainID))
	}
	if d.verifyingContract != nil {
		buf = appendWord(buf, EncodeAddress(*d.verifyingContract))
	}
	if d.salt != nil {
		buf = appendWord(buf, EncodeBytes32(*d.salt))
	}
	return buf
}

// Separator returns the domain separator hashStruct(domain).
func (d Domain) Separator() common.Hash { return HashStruct(d) }

// DomainBuilder 逐字段构造 Domain，Build 时检查至少设置了一个字段。
type DomainBuilder struct {
	d Domain
}

func NewDomainBuilder() *DomainBuilder { return &DomainBuilder{} }

func (b *DomainBuilder) Name(name string) *DomainBuilder       { b.d.name = &name; return b }
func (b *DomainBuilder) Version(version string) *DomainBuilder { b.d.version = &version; return b }
func (b *DomainBuilder) ChainID(id uint64) *DomainBuilder      { b.d.chainID = &id; return b }
func (b *DomainBuilder) Salt(salt common.Hash) *DomainBuilder  { b.d.salt = &salt; return b }

func (b *DomainBuilder) VerifyingContract(a address.Address) *DomainBuilder {
	b.d.verifyingContract = &a
	return b
}

func (b *DomainBuilder) Build() (Domain, error) {
	d := b.d
	if d.name == nil && d.version == nil && d.chainID == nil && d.verifyingContract == nil && d.salt == nil {
		return Domain{}, fmt.Errorf("%w: EIP712Domain needs at least one field", errno.ErrEmptyDomain)
	}
	return d, nil
}

// EncodeAddress left-pads the address to 32 bytes.
func EncodeAddress(a address.Address) (w [32]byte) {
	copy(w[12:], a[:])
	return w
}

// EncodeUint64 encodes v as a big-endian uint256.
func EncodeUint64(v uint64) (w [32]byte) {
	binary.BigEndian.PutUint64(w[24:], v)
	return w
}

// EncodeUint256 encodes v as a big-endian uint256.
func EncodeUint256(v *uint256.Int) [32]byte { return v.Bytes32() }

// EncodeBool encodes true as 1 and false as 0.
func EncodeBool(v bool) (w [32]byte) {
	if v {
		w[31] = 1
	}
	return w
}

// EncodeBytes32 returns the value unchanged.
func EncodeBytes32(v [32]byte) [32]byte { return v }

// EncodeBytes 动态 bytes 编码为 keccak256(value)。
func EncodeBytes(v []byte) [32]byte { return crypto_util.Keccak256Hash(v) }

// EncodeString 动态 string 编码为 keccak256(utf8 bytes)。
func EncodeString(v string) [32]byte { return crypto_util.Keccak256Hash([]byte(v)) }

// EncodeStruct 嵌套结构体字段编码为其 hashStruct。
func EncodeStruct(m TypedMessage) [32]byte { return HashStruct(m) }

func appendWord(buf []byte, w [32]byte) []byte { return append(buf, w[:]...) }

// EncodeWords concatenates 32-byte words, the usual body of EncodeData.
func EncodeWords(words ...[32]byte) []byte {
	buf := make([]byte, 0, 32*len(words))
	for _, w := range words {
		buf = append(buf, w[:]...)
	}
	return buf
}
