package cmd

import (
	"context"
	"fmt"
	"time"

	ethtypes "github.com/ethereum/go-ethereum/core/types" // Alias to avoid conflict
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"hdwallet-core/pkg/wallet/types"
)

var broadcastCmd = &cobra.Command{
	Use:   "broadcast",
	Short: "广播已签名的交易 (Online)",
	Long:  `读取已签名的交易文件 (Signed Tx)，校验后通过 eth_sendRawTransaction 广播到区块链网络。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inputFile, _ := cmd.Flags().GetString("input")
		rpcURL, _ := cmd.Flags().GetString("rpc")
		if rpcURL == "" {
			rpcURL = cfg.Chain.RpcUrl
		}

		// 1. 读取 Signed Tx 并校验哈希
		var signedTx types.SignedTransaction
		if err := readJSON(inputFile, &signedTx); err != nil {
			return err
		}
		decoded, err := signedTx.Decode()
		if err != nil {
			return fmt.Errorf("解析交易失败: %w", err)
		}
		sender, err := decoded.Sender()
		if err != nil {
			return err
		}

		// 2. 转换为节点客户端的交易类型
		tx := new(ethtypes.Transaction)
		if err := tx.UnmarshalBinary(decoded.Bytes()); err != nil {
			return fmt.Errorf("反序列化交易失败: %w", err)
		}

		// 3. 连接节点
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		fmt.Printf("正在连接 RPC: %s ...\n", rpcURL)
		client, err := ethclient.DialContext(ctx, rpcURL)
		if err != nil {
			return fmt.Errorf("连接失败: %w", err)
		}
		defer client.Close()

		// 4. 广播
		fmt.Printf("正在广播交易 Hash: %s (from %s, chain %d) ...\n", tx.Hash().Hex(), sender, tx.ChainId())
		if err := client.SendTransaction(ctx, tx); err != nil {
			return fmt.Errorf("广播失败: %w", err)
		}
		fmt.Println("广播成功!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(broadcastCmd)
	broadcastCmd.Flags().StringP("input", "i", "signed.json", "已签名的交易文件")
	broadcastCmd.Flags().String("rpc", "", "RPC 节点地址 (默认取配置 chain.rpc_url)")
}
