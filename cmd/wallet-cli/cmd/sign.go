package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"hdwallet-core/pkg/bip44"
	"hdwallet-core/pkg/evm"
	"hdwallet-core/pkg/wallet/types"
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "离线签名交易 (Offline Signing)",
	Long:  `读取未签名的交易 JSON 文件，使用 Keystore 进行签名，并输出已签名的交易 (Raw Tx)。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inputFile, _ := cmd.Flags().GetString("input")
		outputFile, _ := cmd.Flags().GetString("output")
		passphrase, _ := cmd.Flags().GetString("passphrase")

		// 1. 读取未签名交易
		var unsignedTx types.UnsignedTransaction
		if err := readJSON(inputFile, &unsignedTx); err != nil {
			return err
		}
		tx, err := unsignedTx.ToTransaction()
		if err != nil {
			return fmt.Errorf("交易校验失败: %w", err)
		}
		path, err := unsignedTx.Path()
		if err != nil {
			return err
		}

		// 显示交易详情供用户确认 (Verify on Screen)
		printTransaction(&unsignedTx, tx)

		// 2. 加载 Keystore 并派生私钥
		wallet, err := openWallet(keystorePath(cmd), passphrase)
		if err != nil {
			return err
		}
		defer wallet.Close()

		signer, err := signerAt(wallet, path)
		if err != nil {
			return err
		}
		defer signer.Zero()

		if from, ok, err := unsignedTx.FromAddress(); err != nil {
			return err
		} else if ok && from != signer.Address() {
			return fmt.Errorf("路径 %s 对应地址 %s，与交易 from %s 不一致", path, signer.Address(), from)
		}

		// 3. 签名
		signed, err := signer.SignTransaction(tx)
		if err != nil {
			return fmt.Errorf("签名失败: %w", err)
		}
		out, err := types.NewSignedTransaction(signed)
		if err != nil {
			return err
		}

		fmt.Printf("\n签名成功!\n")
		fmt.Printf("TxHash: %s\n", out.TxHash)
		return writeJSON(outputFile, out)
	},
}

// signerAt 派生路径上的私钥，生成签名者后立即擦除扩展私钥。
func signerAt(wallet *bip44.Wallet, path bip44.Path) (*evm.Signer, error) {
	key, err := wallet.DerivePath(path)
	if err != nil {
		return nil, fmt.Errorf("私钥派生失败: %w", err)
	}
	defer key.Zero()
	return evm.NewSignerFromKey(key)
}

func printTransaction(u *types.UnsignedTransaction, tx *evm.Transaction) {
	to := u.To
	if tx.IsContractCreation() {
		to = "(contract creation)"
	}
	fmt.Println("\n================ 待签名交易 ================")
	fmt.Printf("Chain:        %s\n", tx.ChainID())
	fmt.Printf("From:         %s\n", u.From)
	fmt.Printf("To:           %s\n", to)
	fmt.Printf("Value:        %s ETH\n", evm.FormatEther(tx.Value()))
	fmt.Printf("Nonce:        %d\n", tx.Nonce())
	fmt.Printf("Gas limit:    %d\n", tx.GasLimit())
	fmt.Printf("Priority fee: %s gwei\n", evm.FormatGwei(tx.MaxPriorityFeePerGas()))
	fmt.Printf("Max fee:      %s gwei\n", evm.FormatGwei(tx.MaxFeePerGas()))
	if data := tx.Data(); len(data) > 0 {
		fmt.Printf("Data:         %d bytes\n", len(data))
	}
	if al := tx.AccessList(); len(al) > 0 {
		fmt.Printf("Access list:  %d addresses, %d slots\n", len(al), al.StorageKeys())
	}
	fmt.Printf("Path:         %s\n", u.DerivationPath)
	fmt.Println("============================================")
}

func init() {
	rootCmd.AddCommand(signCmd)
	signCmd.Flags().StringP("input", "i", "unsigned.json", "未签名的交易文件路径")
	signCmd.Flags().StringP("output", "o", "signed.json", "签名后的输出文件路径")
	signCmd.Flags().StringP("keystore", "k", "", "Keystore 文件路径")
	signCmd.Flags().String("passphrase", "", "BIP-39 口令")
}
