package bip39

import (
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"

	"hdwallet-core/pkg/crypto_util"
	"hdwallet-core/pkg/errno"
)

// MnemonicService 是种子的来源: 助记词生成、校验以及助记词 + 口令 -> 种子 (PBKDF2-HMAC-SHA512, 2048 轮)。
type MnemonicService struct{}

// NewMnemonicService 创建一个新的助记词服务实例
func NewMnemonicService() *MnemonicService {
	return &MnemonicService{}
}

// GenerateMnemonic 生成一个新的随机助记词 (BIP-39)。
// bitSize: 熵的位数，128 (12 个单词) 到 256 (24 个单词)，必须是 32 的倍数。
func (s *MnemonicService) GenerateMnemonic(bitSize int) (string, error) {
	entropy, err := bip39.NewEntropy(bitSize)
	if err != nil {
		return "", fmt.Errorf("%w: 生成熵失败: %v", errno.ErrInvalidValue, err)
	}
	defer crypto_util.Zero(entropy)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("生成助记词失败: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic 验证助记词是否有效 (单词表与校验位)。
func (s *MnemonicService) ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(normalize(mnemonic))
}

// MnemonicToSeed 将助记词转换为 64 字节种子。
// passphrase 为可选口令 ("第25个单词")，不需要时传空字符串。
// 返回的种子由调用方负责清零。
func (s *MnemonicService) MnemonicToSeed(mnemonic string, passphrase string) ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(normalize(mnemonic), passphrase)
	if err != nil {
		// 不把助记词本身放进错误信息
		return nil, errno.ErrInvalidMnemonic
	}
	return seed, nil
}

// normalize 合并多余空白，便于处理用户输入。
func normalize(mnemonic string) string {
	return strings.Join(strings.Fields(mnemonic), " ")
}
