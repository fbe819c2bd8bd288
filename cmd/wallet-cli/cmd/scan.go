package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"hdwallet-core/internal/discovery"
	"hdwallet-core/pkg/bip44"
	"hdwallet-core/pkg/evm"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "按间隔限制发现已使用的账户与地址 (Online)",
	Long: `从账户 0 开始，按 BIP-44 间隔限制算法扫描外部链和找零链，
通过 RPC 查询 nonce 与余额判断地址是否使用过。查询结果按 discovery.cache 配置缓存 (memory / redis / none)。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase, _ := cmd.Flags().GetString("passphrase")
		coinStr, _ := cmd.Flags().GetString("coin")
		rpcURL, _ := cmd.Flags().GetString("rpc")
		gap, _ := cmd.Flags().GetUint32("gap")
		maxAccounts, _ := cmd.Flags().GetUint32("max-accounts")

		if rpcURL == "" {
			rpcURL = cfg.Chain.RpcUrl
		}
		if !cmd.Flags().Changed("gap") {
			gap = cfg.Discovery.GapLimit
		}
		if !cmd.Flags().Changed("max-accounts") {
			maxAccounts = cfg.Discovery.MaxAccounts
		}
		coin, err := coinFlag(coinStr)
		if err != nil {
			return err
		}
		if !coin.IsEVMCompatible() {
			return fmt.Errorf("%s 不是 EVM 链，无法通过 JSON-RPC 发现", coin)
		}
		chainID, err := evm.NewChainID(cfg.Chain.ID)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		client, err := discovery.Dial(ctx, rpcURL, chainID)
		if err != nil {
			return err
		}
		defer client.Close()

		resultCache, cleanup, err := discovery.NewResultCache(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()
		d := discovery.NewCachedDiscovery(discovery.NewRPCDiscovery(client), resultCache, cfg.Discovery.CacheTTL, chainID.Value())

		wallet, err := openWallet(keystorePath(cmd), passphrase)
		if err != nil {
			return err
		}
		defer wallet.Close()

		scanner := bip44.NewAccountScanner(bip44.NewGapLimitChecker(gap), maxAccounts)
		fmt.Printf("正在扫描 %s (gap %d, 最多 %d 个账户)...\n", coin, gap, maxAccounts)
		results, err := scanner.DiscoverAccounts(ctx, wallet, coin.DefaultPurpose(), coin, d)
		if err != nil {
			return fmt.Errorf("扫描失败: %w", err)
		}

		printLine()
		if len(results) == 0 {
			fmt.Println("未发现使用过的账户")
		}
		for _, r := range results {
			fmt.Printf("Account %d: %d 个已使用地址\n", r.AccountIndex, r.TotalUsedCount())
			account, err := wallet.GetAccount(coin.DefaultPurpose(), coin, r.AccountIndex)
			if err != nil {
				return err
			}
			for _, chain := range []*bip44.ChainScanResult{r.External, r.Internal} {
				for _, index := range chain.UsedIndices {
					addr, err := account.DeriveAddress(chain.Chain, index)
					if err != nil {
						return err
					}
					fmt.Printf("  %-22s %s\n", addr.Path, addr.Address())
				}
			}
			fmt.Printf("  下一个收款地址索引: %d\n", r.External.LastUsedIndex+1)
		}
		printLine()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().String("coin", "ETH", "币种符号或 coin type (仅 EVM 链)")
	scanCmd.Flags().String("rpc", "", "RPC 节点地址 (默认取配置 chain.rpc_url)")
	scanCmd.Flags().Uint32("gap", bip44.DefaultGapLimit, "间隔限制")
	scanCmd.Flags().Uint32("max-accounts", bip44.DefaultMaxAccounts, "最多扫描的账户数")
	scanCmd.Flags().StringP("keystore", "k", "", "Keystore 文件路径")
	scanCmd.Flags().String("passphrase", "", "BIP-39 口令")
}
