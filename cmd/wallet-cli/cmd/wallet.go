package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"hdwallet-core/pkg/bip44"
	"hdwallet-core/pkg/keystore"
)

// readPassword 从终端读取密码 (不回显)。配置了 WALLET_PASSWORD 时直接使用，便于脚本化。
func readPassword(prompt string) (string, error) {
	if cfg.Wallet.Password != "" {
		return cfg.Wallet.Password, nil
	}
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("读取密码失败: %w", err)
	}
	return string(b), nil
}

// readNewPassword 要求输入两次并确认一致。
func readNewPassword() (string, error) {
	pw, err := readPassword("请设置 Keystore 密码: ")
	if err != nil {
		return "", err
	}
	if cfg.Wallet.Password != "" {
		return pw, nil
	}
	if len(pw) < 8 {
		return "", errors.New("密码至少 8 位")
	}
	confirm, err := readPassword("请再次输入密码: ")
	if err != nil {
		return "", err
	}
	if pw != confirm {
		return "", errors.New("两次输入的密码不一致")
	}
	return pw, nil
}

// openWallet 加载并解密 Keystore，返回的钱包由调用方 Close。
func openWallet(path, passphrase string) (*bip44.Wallet, error) {
	fmt.Printf("正在从 %s 加载 Keystore...\n", path)
	encryptedKey, err := keystore.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("加载 Keystore 失败: %w", err)
	}

	password, err := readPassword("请输入 Keystore 密码: ")
	if err != nil {
		return nil, err
	}
	mnemonic, err := keystore.DecryptMnemonic(encryptedKey, password)
	if err != nil {
		return nil, fmt.Errorf("解密失败: %w", err)
	}

	net, err := network()
	if err != nil {
		return nil, err
	}
	return bip44.NewWalletFromMnemonic(mnemonic, passphrase, net)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取文件失败: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("解析文件 %s 失败: %w", path, err)
	}
	return nil
}

// writeJSON 写入缩进 JSON；path 为 "-" 时输出到标准输出。
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if path == "-" || path == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("保存结果失败: %w", err)
	}
	fmt.Printf("已保存到: %s\n", path)
	return nil
}

// coinFlag 解析 --coin，接受符号 (ETH) 或数字 coin type。
func coinFlag(s string) (bip44.CoinType, error) {
	s = strings.TrimSpace(s)
	if c, err := bip44.CoinTypeFromSymbol(s); err == nil {
		return c, nil
	}
	n, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		return 0, fmt.Errorf("未知币种 %q", s)
	}
	return bip44.CoinType(n), nil
}

func printLine() {
	fmt.Println("---------------------------------------------------")
}
