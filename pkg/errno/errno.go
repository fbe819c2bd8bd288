package errno

import "errors"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var typed Errno
	if errors.As(err, &typed) {
		// 保留包装链上的上下文信息 (路径、字段名等)，但不会包含密钥材料
		return typed.Code, err.Error()
	}
	var ptr *Errno
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code, err.Error()
	}
	return InternalServerError.Code, err.Error()
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrNotFound         = Errno{Code: 10003, Message: "Resource not found"}
)

// Input validation errors (20000+)
var (
	ErrInvalidSeedLength = Errno{Code: 20001, Message: "invalid seed length"}
	ErrInvalidPath       = Errno{Code: 20002, Message: "invalid derivation path"}
	ErrInvalidChildIndex = Errno{Code: 20003, Message: "invalid child index"}
	ErrInvalidChainID    = Errno{Code: 20004, Message: "invalid chain id"}
	ErrFeeOrdering       = Errno{Code: 20005, Message: "max fee per gas is below max priority fee per gas"}
	ErrGasFloor          = Errno{Code: 20006, Message: "gas limit is below the intrinsic transfer cost"}
	ErrInvalidAddress    = Errno{Code: 20007, Message: "invalid address"}
	ErrMissingField      = Errno{Code: 20008, Message: "required field missing"}
	ErrInvalidValue      = Errno{Code: 20009, Message: "value out of range"}
	ErrInvalidScalar     = Errno{Code: 20010, Message: "invalid private scalar"}
	ErrInvalidPublicKey  = Errno{Code: 20011, Message: "invalid public key"}
	ErrEmptyDomain       = Errno{Code: 20012, Message: "eip712 domain has no fields"}
	ErrInvalidMnemonic   = Errno{Code: 20013, Message: "invalid mnemonic"}
)

// Derivation errors (30000+)
var (
	ErrDerivationFailed      = Errno{Code: 30001, Message: "derived scalar is zero or not below the curve order"}
	ErrHardenedFromPublicKey = Errno{Code: 30002, Message: "hardened derivation requires a private key"}
	ErrMaxDepthExceeded      = Errno{Code: 30003, Message: "maximum derivation depth exceeded"}
	ErrWatchOnly             = Errno{Code: 30004, Message: "account is watch-only"}
	ErrKeyZeroized           = Errno{Code: 30005, Message: "key material has been wiped"}
)

// Parsing / serialization errors (40000+)
var (
	ErrInvalidSerialization = Errno{Code: 40001, Message: "invalid serialized extended key"}
	ErrChecksumMismatch     = Errno{Code: 40002, Message: "checksum mismatch"}
	ErrUnknownVersion       = Errno{Code: 40003, Message: "unknown version bytes"}
	ErrInvalidLength        = Errno{Code: 40004, Message: "wrong decoded length"}
	ErrNetworkMismatch      = Errno{Code: 40005, Message: "network mismatch"}
	ErrInvalidRLP           = Errno{Code: 40006, Message: "invalid rlp payload"}
	ErrInvalidHex           = Errno{Code: 40007, Message: "invalid hex string"}
)

// Signing errors (50000+)
var (
	ErrInvalidDigestLength = Errno{Code: 50001, Message: "digest must be 32 bytes"}
	ErrSigningFailed       = Errno{Code: 50002, Message: "signing failed"}
	ErrInvalidSignature    = Errno{Code: 50003, Message: "invalid signature"}
	ErrRecoveryFailed      = Errno{Code: 50004, Message: "public key recovery failed"}
)

// Wallet / keystore errors (60000+)
var (
	ErrPasswordIncorrect = Errno{Code: 60001, Message: "Password incorrect"}
	ErrKeystoreCorrupted = Errno{Code: 60002, Message: "keystore file corrupted"}
	ErrAccountNotFound   = Errno{Code: 60003, Message: "account not found"}
)
