package cmd

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"hdwallet-core/pkg/address"
	"hdwallet-core/pkg/evm"
	"hdwallet-core/pkg/wallet/types"
)

var buildTxCmd = &cobra.Command{
	Use:   "build-tx",
	Short: "构建未签名的 EIP-1559 交易 (Online/Offline)",
	Long: `生成一个未签名的交易 JSON 文件，交给离线的 sign 命令签名。
指定 --rpc 时会从节点获取 nonce 与建议费用，否则需要手动给出 --nonce 与费用参数。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fromStr, _ := cmd.Flags().GetString("from")
		toStr, _ := cmd.Flags().GetString("to")
		valueStr, _ := cmd.Flags().GetString("value")
		dataStr, _ := cmd.Flags().GetString("data")
		nonce, _ := cmd.Flags().GetUint64("nonce")
		gasLimit, _ := cmd.Flags().GetUint64("gas-limit")
		maxFeeStr, _ := cmd.Flags().GetString("max-fee")
		tipStr, _ := cmd.Flags().GetString("priority-fee")
		chainIDFlag, _ := cmd.Flags().GetUint64("chain-id")
		rpcURL, _ := cmd.Flags().GetString("rpc")
		output, _ := cmd.Flags().GetString("output")

		path, err := pathFromFlags(cmd)
		if err != nil {
			return err
		}
		if chainIDFlag == 0 {
			chainIDFlag = cfg.Chain.ID
		}
		chainID, err := evm.NewChainID(chainIDFlag)
		if err != nil {
			return err
		}
		from, err := address.FromHex(fromStr)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		value, err := evm.ParseEther(valueStr)
		if err != nil {
			return fmt.Errorf("--value: %w", err)
		}

		var tip, maxFee *big.Int
		if tipStr != "" {
			if tip, err = evm.ParseGwei(tipStr); err != nil {
				return fmt.Errorf("--priority-fee: %w", err)
			}
		}
		if maxFeeStr != "" {
			if maxFee, err = evm.ParseGwei(maxFeeStr); err != nil {
				return fmt.Errorf("--max-fee: %w", err)
			}
		}

		if rpcURL != "" {
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			est, err := estimate(ctx, rpcURL, from, !cmd.Flags().Changed("nonce"))
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("nonce") {
				nonce = est.nonce
			}
			if tip == nil {
				tip = est.tip
			}
			if maxFee == nil {
				maxFee = est.maxFee
			}
		}
		if tip == nil || maxFee == nil {
			return fmt.Errorf("缺少费用参数: 请指定 --priority-fee 与 --max-fee，或提供 --rpc")
		}

		b := evm.NewTransactionBuilder().
			ChainID(chainID).
			Nonce(nonce).
			MaxPriorityFeePerGas(tip).
			MaxFeePerGas(maxFee).
			Value(value)
		if toStr != "" {
			to, err := address.FromHex(toStr)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			b.To(to)
		}
		var data []byte
		if dataStr != "" {
			if data, err = hexutil.Decode(dataStr); err != nil {
				return fmt.Errorf("--data: %w", err)
			}
			b.Data(data)
		}
		if gasLimit == 0 {
			gasLimit = evm.TransferGas
			if len(data) > 0 {
				gasLimit = evm.TokenTransferGas
			}
		}
		tx, err := b.GasLimit(gasLimit).Build()
		if err != nil {
			return err
		}

		unsigned := types.NewUnsignedTransaction(tx, from, path)
		fmt.Printf("Chain:    %s\n", chainID)
		fmt.Printf("To:       %s\n", unsigned.To)
		fmt.Printf("Value:    %s ETH\n", evm.FormatEther(tx.Value()))
		fmt.Printf("Fees:     tip %s gwei / cap %s gwei, gas %d\n",
			evm.FormatGwei(tx.MaxPriorityFeePerGas()), evm.FormatGwei(tx.MaxFeePerGas()), tx.GasLimit())
		fmt.Printf("Max cost: %s ETH\n", evm.FormatEther(tx.MaxCost()))
		return writeJSON(output, unsigned)
	},
}

type feeEstimate struct {
	nonce  uint64
	tip    *big.Int
	maxFee *big.Int
}

// estimate 取 pending nonce 与建议小费，费用上限按 2 * baseFee + tip 计算。
func estimate(ctx context.Context, rpcURL string, from address.Address, wantNonce bool) (*feeEstimate, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接 RPC 失败: %w", err)
	}
	defer client.Close()

	est := &feeEstimate{}
	if wantNonce {
		if est.nonce, err = client.PendingNonceAt(ctx, from.Common()); err != nil {
			return nil, fmt.Errorf("获取 nonce 失败: %w", err)
		}
	}
	if est.tip, err = client.SuggestGasTipCap(ctx); err != nil {
		return nil, fmt.Errorf("获取建议小费失败: %w", err)
	}
	head, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("获取最新区块失败: %w", err)
	}
	baseFee := new(big.Int)
	if head.BaseFee != nil {
		baseFee.Set(head.BaseFee)
	}
	est.maxFee = new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), est.tip)
	return est, nil
}

func init() {
	rootCmd.AddCommand(buildTxCmd)
	f := buildTxCmd.Flags()
	f.String("from", "", "发送方地址")
	f.String("to", "", "接收方地址 (为空表示部署合约)")
	f.String("value", "0", "转账金额 (ETH)")
	f.String("data", "", "调用数据 (hex)")
	f.Uint64("nonce", 0, "账户 nonce")
	f.Uint64("gas-limit", 0, "Gas 上限 (默认 21000，带 data 时 65000)")
	f.String("max-fee", "", "maxFeePerGas (gwei)")
	f.String("priority-fee", "", "maxPriorityFeePerGas (gwei)")
	f.Uint64("chain-id", 0, "链 ID (默认取配置 chain.id)")
	f.String("rpc", "", "RPC 节点地址，用于获取 nonce 与费用")
	f.StringP("output", "o", "unsigned.json", "输出文件 (- 表示标准输出)")

	f.String("path", "", "签名所用的完整路径")
	f.String("coin", "ETH", "币种符号或 coin type")
	f.Uint32("account", 0, "账户索引")
	f.String("chain", "external", "external / internal")
	f.Uint32("index", 0, "地址索引")
	_ = buildTxCmd.MarkFlagRequired("from")
}
