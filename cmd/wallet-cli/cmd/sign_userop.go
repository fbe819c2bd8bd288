package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"hdwallet-core/pkg/evm"
	"hdwallet-core/pkg/wallet/types"
)

var signUserOpCmd = &cobra.Command{
	Use:   "sign-userop",
	Short: "离线签名 ERC-4337 UserOperation",
	Long: `读取 UserOperation 请求文件 (packed v0.7 格式)，计算 userOpHash 并用路径对应的私钥签名。
输出的 signature 使用 v=27/28，可直接填入 userOp.signature。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inputFile, _ := cmd.Flags().GetString("input")
		outputFile, _ := cmd.Flags().GetString("output")
		passphrase, _ := cmd.Flags().GetString("passphrase")

		var req types.UserOperationRequest
		if err := readJSON(inputFile, &req); err != nil {
			return err
		}
		op, entryPoint, chainID, path, err := req.Resolve()
		if err != nil {
			return err
		}

		fmt.Println("\n============= 待签名 UserOperation =============")
		fmt.Printf("Chain:       %s\n", chainID)
		fmt.Printf("EntryPoint:  %s\n", entryPoint)
		fmt.Printf("Sender:      %s\n", op.Sender)
		fmt.Printf("Nonce:       %s\n", op.Nonce)
		fmt.Printf("Call data:   %d bytes\n", len(op.CallData))
		fmt.Printf("Max fee:     %s gwei\n", evm.FormatGwei(op.MaxFeePerGas()))
		if pm, ok := op.PaymasterAddress(); ok {
			fmt.Printf("Paymaster:   %s\n", pm)
		}
		fmt.Printf("Path:        %s\n", path)
		fmt.Println("================================================")

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

		sig, err := evm.SignUserOperation(signer, op, entryPoint, chainID)
		if err != nil {
			return fmt.Errorf("签名失败: %w", err)
		}
		out := types.UserOperationSignature{
			UserOpHash: evm.HashUserOperation(op, entryPoint, chainID).Hex(),
			Signature:  hexutil.Encode(sig.LegacyBytes()),
			Signer:     signer.Address().Hex(),
		}
		fmt.Printf("\n签名成功! userOpHash: %s\n", out.UserOpHash)
		return writeJSON(outputFile, out)
	},
}

func init() {
	rootCmd.AddCommand(signUserOpCmd)
	signUserOpCmd.Flags().StringP("input", "i", "userop.json", "UserOperation 请求文件")
	signUserOpCmd.Flags().StringP("output", "o", "-", "签名结果输出文件 (- 表示标准输出)")
	signUserOpCmd.Flags().StringP("keystore", "k", "", "Keystore 文件路径")
	signUserOpCmd.Flags().String("passphrase", "", "BIP-39 口令")
}
