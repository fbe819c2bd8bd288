package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hdwallet-core/pkg/bip39"
	"hdwallet-core/pkg/bip44"
	"hdwallet-core/pkg/keystore"
)

// newCmd 代表 new 命令
var newCmd = &cobra.Command{
	Use:   "new",
	Short: "创建一个新的钱包",
	Long:  `生成一个新的随机 BIP-39 助记词，加密保存为 Keystore 文件，并显示第一个 ETH 地址。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		words, _ := cmd.Flags().GetInt("words")
		light, _ := cmd.Flags().GetBool("light")
		force, _ := cmd.Flags().GetBool("force")
		path := keystorePath(cmd)

		bitSize := map[int]int{12: 128, 15: 160, 18: 192, 21: 224, 24: 256}[words]
		if bitSize == 0 {
			return fmt.Errorf("--words 只支持 12/15/18/21/24，收到 %d", words)
		}
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s 已存在，使用 --force 覆盖", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		fmt.Println("正在生成新钱包...")
		printLine()

		// 1. 生成助记词
		mnemonic, err := bip39.NewMnemonicService().GenerateMnemonic(bitSize)
		if err != nil {
			return fmt.Errorf("生成助记词失败: %w", err)
		}

		// 2. 派生默认地址 m/44'/60'/0'/0/0
		net, err := network()
		if err != nil {
			return err
		}
		wallet, err := bip44.NewWalletFromMnemonic(mnemonic, "", net)
		if err != nil {
			return err
		}
		defer wallet.Close()
		account, err := wallet.GetAccount(bip44.PurposeBIP44, bip44.CoinEthereum, 0)
		if err != nil {
			return err
		}
		first, err := account.DeriveAddress(bip44.External, 0)
		if err != nil {
			return err
		}

		// 3. 加密保存
		password, err := readNewPassword()
		if err != nil {
			return err
		}
		scryptN, scryptP := keystore.StandardScryptN, keystore.StandardScryptP
		if light {
			scryptN, scryptP = keystore.LightScryptN, keystore.LightScryptP
		}
		encrypted, err := keystore.EncryptMnemonicWithParams(mnemonic, password, scryptN, scryptP)
		if err != nil {
			return fmt.Errorf("加密失败: %w", err)
		}
		if err := encrypted.SaveToFile(path); err != nil {
			return fmt.Errorf("保存 Keystore 失败: %w", err)
		}

		printLine()
		fmt.Printf("助记词 (Mnemonic): \n%s\n", mnemonic)
		printLine()
		fmt.Printf("Keystore:          %s (id %s)\n", path, encrypted.ID)
		fmt.Printf("Account xpub:      %s\n", account.XPub())
		fmt.Printf("Ethereum Address [%s]: %s\n", first.Path, first.Address())
		printLine()
		fmt.Println("请妥善保管您的助记词！任何拥有助记词的人都可以控制该钱包的所有资产。")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().Int("words", 24, "助记词单词数 (12/15/18/21/24)")
	newCmd.Flags().StringP("keystore", "k", "", "Keystore 文件路径 (默认取配置 wallet.keystore_path)")
	newCmd.Flags().Bool("light", false, "使用轻量 scrypt 参数 (仅测试)")
	newCmd.Flags().Bool("force", false, "覆盖已存在的 Keystore")
}
