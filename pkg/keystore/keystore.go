package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"golang.org/x/crypto/scrypt"

	"hdwallet-core/pkg/crypto_util"
	"hdwallet-core/pkg/errno"
	"hdwallet-core/pkg/safe_random"
)

// EncryptedKeyJSON 沿用 Ethereum Keystore V3 的结构，但加密对象是助记词而不是单个私钥。
type EncryptedKeyJSON struct {
	Crypto  CryptoJSON `json:"crypto"`
	ID      string     `json:"id"`      // UUID v4
	Version int        `json:"version"` // 3
}

type CryptoJSON struct {
	Cipher       string       `json:"cipher"`     // "aes-256-gcm"
	CipherText   string       `json:"ciphertext"` // hex
	CipherParams CipherParams `json:"cipherparams"`
	KDF          string       `json:"kdf"` // "scrypt"
	KDFParams    KDFParams    `json:"kdfparams"`
	MAC          string       `json:"mac"` // hex, SHA256(derivedKey ‖ ciphertext)
}

type CipherParams struct {
	IV string `json:"iv"` // hex GCM nonce
}

type KDFParams struct {
	DKLen int    `json:"dklen"`
	N     int    `json:"n"`
	R     int    `json:"r"`
	P     int    `json:"p"`
	Salt  string `json:"salt"` // hex
}

const (
	version     = 3
	cipherName  = "aes-256-gcm"
	kdfName     = "scrypt"
	scryptR     = 8
	scryptDKLen = 32
	saltLen     = 32

	// StandardScryptN / StandardScryptP 用于正式钱包文件 (约 1s / 256MB)。
	StandardScryptN = 1 << 18
	StandardScryptP = 1

	// LightScryptN / LightScryptP 只用于测试和低端设备。
	LightScryptN = 1 << 12
	LightScryptP = 6
)

// EncryptMnemonic 使用标准 scrypt 参数加密助记词。
func EncryptMnemonic(mnemonic, password string) (*EncryptedKeyJSON, error) {
	return EncryptMnemonicWithParams(mnemonic, password, StandardScryptN, StandardScryptP)
}

// EncryptMnemonicWithParams 允许调整 scrypt 的 N 和 p。
func EncryptMnemonicWithParams(mnemonic, password string, scryptN, scryptP int) (*EncryptedKeyJSON, error) {
	salt, err := safe_random.GenerateRandomBytes(saltLen)
	if err != nil {
		return nil, err
	}
	derivedKey, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptDKLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrInvalidValue, err)
	}
	defer crypto_util.Zero(derivedKey)

	gcm, err := newGCM(derivedKey)
	if err != nil {
		return nil, err
	}
	nonce, err := safe_random.GenerateRandomBytes(gcm.NonceSize())
	if err != nil {
		return nil, err
	}

	plaintext := []byte(mnemonic)
	defer crypto_util.Zero(plaintext)
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	return &EncryptedKeyJSON{
		Version: version,
		ID:      uuid.NewString(),
		Crypto: CryptoJSON{
			Cipher:       cipherName,
			CipherText:   hex.EncodeToString(ciphertext),
			CipherParams: CipherParams{IV: hex.EncodeToString(nonce)},
			KDF:          kdfName,
			KDFParams: KDFParams{
				DKLen: scryptDKLen,
				N:     scryptN,
				R:     scryptR,
				P:     scryptP,
				Salt:  hex.EncodeToString(salt),
			},
			MAC: hex.EncodeToString(computeMAC(derivedKey, ciphertext)),
		},
	}, nil
}

// DecryptMnemonic 校验 MAC 后解密。密码错误返回 errno.ErrPasswordIncorrect。
func DecryptMnemonic(keyJSON *EncryptedKeyJSON, password string) (string, error) {
	if keyJSON.Version != version || keyJSON.Crypto.Cipher != cipherName || keyJSON.Crypto.KDF != kdfName {
		return "", fmt.Errorf("%w: unsupported version %d / cipher %q / kdf %q",
			errno.ErrKeystoreCorrupted, keyJSON.Version, keyJSON.Crypto.Cipher, keyJSON.Crypto.KDF)
	}
	fields := map[string]string{
		"salt":       keyJSON.Crypto.KDFParams.Salt,
		"iv":         keyJSON.Crypto.CipherParams.IV,
		"ciphertext": keyJSON.Crypto.CipherText,
		"mac":        keyJSON.Crypto.MAC,
	}
	decoded := make(map[string][]byte, len(fields))
	for name, s := range fields {
		b, err := hex.DecodeString(s)
		if err != nil {
			return "", fmt.Errorf("%w: invalid %s", errno.ErrKeystoreCorrupted, name)
		}
		decoded[name] = b
	}

	p := keyJSON.Crypto.KDFParams
	derivedKey, err := scrypt.Key([]byte(password), decoded["salt"], p.N, p.R, p.P, p.DKLen)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errno.ErrKeystoreCorrupted, err)
	}
	defer crypto_util.Zero(derivedKey)

	if subtle.ConstantTimeCompare(decoded["mac"], computeMAC(derivedKey, decoded["ciphertext"])) != 1 {
		return "", errno.ErrPasswordIncorrect
	}

	gcm, err := newGCM(derivedKey)
	if err != nil {
		return "", err
	}
	if len(decoded["iv"]) != gcm.NonceSize() {
		return "", fmt.Errorf("%w: iv must be %d bytes", errno.ErrKeystoreCorrupted, gcm.NonceSize())
	}
	plaintext, err := gcm.Open(nil, decoded["iv"], decoded["ciphertext"], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errno.ErrKeystoreCorrupted, err)
	}
	defer crypto_util.Zero(plaintext)
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != scryptDKLen {
		return nil, fmt.Errorf("%w: derived key must be %d bytes", errno.ErrKeystoreCorrupted, scryptDKLen)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func computeMAC(derivedKey, ciphertext []byte) []byte {
	h := sha256.New()
	h.Write(derivedKey)
	h.Write(ciphertext)
	return h.Sum(nil)
}

// SaveToFile 以 0600 权限写入文件。
func (k *EncryptedKeyJSON) SaveToFile(filename string) error {
	data, err := json.MarshalIndent(k, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0600)
}

// LoadFromFile reads and parses a keystore file.
func LoadFromFile(filename string) (*EncryptedKeyJSON, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var k EncryptedKeyJSON
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrKeystoreCorrupted, err)
	}
	return &k, nil
}
