package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"hdwallet-core/pkg/bip44"
)

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "按 BIP-44 路径派生地址",
	Long: `从 Keystore 恢复钱包，按路径派生地址与地址层扩展公钥。
可以直接给出 --path，也可以用 --coin/--account/--chain/--index 组合，--count 连续派生多个地址。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase, _ := cmd.Flags().GetString("passphrase")
		count, _ := cmd.Flags().GetUint32("count")

		path, err := pathFromFlags(cmd)
		if err != nil {
			return err
		}

		wallet, err := openWallet(keystorePath(cmd), passphrase)
		if err != nil {
			return err
		}
		defer wallet.Close()

		account, err := wallet.GetAccount(path.Purpose(), path.CoinType(), path.Account())
		if err != nil {
			return err
		}
		addrs, err := account.DeriveAddressRange(path.Chain(), path.Index(), max(count, 1))
		if err != nil {
			return err
		}

		printLine()
		fmt.Printf("Master fingerprint: %x\n", wallet.MasterFingerprint())
		for _, d := range addrs {
			fmt.Printf("%-22s %s\n", d.Path, displayAddress(d, path.CoinType()))
			if count <= 1 {
				fmt.Printf("xpub: %s\n", d.Key)
			}
		}
		printLine()
		return nil
	},
}

var xpubCmd = &cobra.Command{
	Use:   "xpub",
	Short: "导出账户级扩展公钥 (用于只读钱包)",
	Long:  `导出 m/purpose'/coin'/account' 层的 xpub，可配置到 wallet-server 的 watch.accounts 中。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase, _ := cmd.Flags().GetString("passphrase")
		accountIndex, _ := cmd.Flags().GetUint32("account")
		coinStr, _ := cmd.Flags().GetString("coin")

		coin, err := coinFlag(coinStr)
		if err != nil {
			return err
		}
		wallet, err := openWallet(keystorePath(cmd), passphrase)
		if err != nil {
			return err
		}
		defer wallet.Close()

		account, err := wallet.GetAccount(coin.DefaultPurpose(), coin, accountIndex)
		if err != nil {
			return err
		}
		printLine()
		fmt.Printf("Path:  m/%d'/%d'/%d'\n", account.Purpose().Value(), coin.Index(), accountIndex)
		fmt.Printf("Coin:  %s\n", coin)
		fmt.Printf("XPub:  %s\n", account.XPub())
		printLine()
		return nil
	},
}

// pathFromFlags 优先使用 --path，否则用各层参数拼出路径。
func pathFromFlags(cmd *cobra.Command) (bip44.Path, error) {
	if s, _ := cmd.Flags().GetString("path"); s != "" {
		return bip44.ParsePath(s)
	}
	coinStr, _ := cmd.Flags().GetString("coin")
	accountIndex, _ := cmd.Flags().GetUint32("account")
	chainStr, _ := cmd.Flags().GetString("chain")
	index, _ := cmd.Flags().GetUint32("index")

	coin, err := coinFlag(coinStr)
	if err != nil {
		return bip44.Path{}, err
	}
	chain, err := bip44.ParseChain(chainStr)
	if err != nil {
		return bip44.Path{}, err
	}
	return bip44.NewPathBuilder().
		Purpose(coin.DefaultPurpose()).
		CoinType(coin).
		Account(accountIndex).
		Chain(chain).
		Index(index).
		Build()
}

// displayAddress 对 EVM 链输出 EIP-55 地址，其他链只输出压缩公钥。
func displayAddress(d *bip44.DerivedAddress, coin bip44.CoinType) string {
	if coin.IsEVMCompatible() {
		return d.Address().Hex()
	}
	return fmt.Sprintf("pubkey %x", d.Key.ECPubKey().SerializeCompressed())
}

func init() {
	rootCmd.AddCommand(deriveCmd, xpubCmd)

	deriveCmd.Flags().String("path", "", "完整路径，如 m/44'/60'/0'/0/0")
	deriveCmd.Flags().String("coin", "ETH", "币种符号或 coin type")
	deriveCmd.Flags().Uint32("account", 0, "账户索引")
	deriveCmd.Flags().String("chain", "external", "external / internal")
	deriveCmd.Flags().Uint32("index", 0, "地址索引")
	deriveCmd.Flags().Uint32("count", 1, "连续派生的地址数量")

	xpubCmd.Flags().String("coin", "ETH", "币种符号或 coin type")
	xpubCmd.Flags().Uint32("account", 0, "账户索引")

	for _, c := range []*cobra.Command{deriveCmd, xpubCmd} {
		c.Flags().StringP("keystore", "k", "", "Keystore 文件路径")
		c.Flags().String("passphrase", "", "BIP-39 口令 (第 25 个词)")
	}
}
