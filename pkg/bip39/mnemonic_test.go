package bip39

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"hdwallet-core/pkg/errno"
)

func TestGenerateMnemonic(t *testing.T) {
	service := NewMnemonicService()

	for bits, words := range map[int]int{128: 12, 160: 15, 192: 18, 224: 21, 256: 24} {
		mnemonic, err := service.GenerateMnemonic(bits)
		if err != nil {
			t.Fatalf("生成 %d 位助记词失败: %v", bits, err)
		}
		if n := len(strings.Fields(mnemonic)); n != words {
			t.Errorf("%d 位熵应生成 %d 个单词, 实际 %d", bits, words, n)
		}
		if !service.ValidateMnemonic(mnemonic) {
			t.Errorf("生成的 %d 词助记词无效", words)
		}
	}

	if _, err := service.GenerateMnemonic(100); !errors.Is(err, errno.ErrInvalidValue) {
		t.Errorf("非法熵位数应返回 ErrInvalidValue, 实际: %v", err)
	}
}

func TestMnemonicToSeed(t *testing.T) {
	service := NewMnemonicService()

	// 已知的测试向量 (Test Vector)
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	expectedSeedHex := "5eb00bbddcf069084889a8ab9155568165f5c453ccb85e70811aaed6f6da5fc19a5ac40b389cd370d086206dec8aa6c43daea6690f20ad3d8d48b2d2ce9e38e4"

	seed, err := service.MnemonicToSeed(mnemonic, "")
	if err != nil {
		t.Fatalf("MnemonicToSeed 失败: %v", err)
	}
	if seedHex := hex.EncodeToString(seed); seedHex != expectedSeedHex {
		t.Errorf("Seed 生成不匹配。\n预期: %s\n实际: %s", expectedSeedHex, seedHex)
	}

	// 多余空白不影响结果
	seed2, err := service.MnemonicToSeed("  "+strings.ReplaceAll(mnemonic, " ", "   ")+"\n", "")
	if err != nil {
		t.Fatalf("带空白的助记词失败: %v", err)
	}
	if hex.EncodeToString(seed2) != expectedSeedHex {
		t.Error("空白归一化后种子应一致")
	}

	// 口令改变种子
	seed3, err := service.MnemonicToSeed(mnemonic, "TREZOR")
	if err != nil {
		t.Fatalf("MnemonicToSeed 失败: %v", err)
	}
	if hex.EncodeToString(seed3) == expectedSeedHex {
		t.Error("不同口令应得到不同种子")
	}
}

func TestValidateMnemonic_Invalid(t *testing.T) {
	service := NewMnemonicService()
	invalid := []string{
		"",
		"abandon abandon abandon",
		"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon",
		"notaword abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about",
	}
	for _, m := range invalid {
		if service.ValidateMnemonic(m) {
			t.Errorf("助记词应无效: %q", m)
		}
		if _, err := service.MnemonicToSeed(m, ""); !errors.Is(err, errno.ErrInvalidMnemonic) {
			t.Errorf("无效助记词应返回 ErrInvalidMnemonic: %q, %v", m, err)
		}
	}
}
