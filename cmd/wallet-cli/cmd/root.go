package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hdwallet-core/pkg/bip32"
	"hdwallet-core/pkg/config"
	"hdwallet-core/pkg/logger"
)

var (
	cfgFile string
	verbose bool

	// cfg 在 PersistentPreRunE 中加载，子命令的默认值从这里读取
	cfg = &config.Config{}
)

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "wallet-cli",
	Short: "HD 钱包命令行工具 (BIP32/BIP44 + EVM 签名)",
	Long: `离线 HD 钱包工具。
支持生成 BIP-39 助记词与加密 Keystore、按 BIP-44 路径派生 EVM 地址、
构造并离线签名 EIP-1559 交易、签名 ERC-4337 UserOperation，以及在线广播和账户发现。`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		*cfg = *loaded
		if verbose {
			logger.Init("development")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件 (默认 ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")
}

// network 返回配置的网络，决定 xprv/tprv 版本字节。
func network() (bip32.Network, error) {
	return bip32.ParseNetwork(cfg.Wallet.Network)
}

// keystorePath 优先使用命令行参数，其次是配置文件。
func keystorePath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("keystore"); p != "" {
		return p
	}
	return cfg.Wallet.KeystorePath
}
