package discovery

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"hdwallet-core/pkg/bip44"
	"hdwallet-core/pkg/evm"
	"hdwallet-core/pkg/logger"
)

// ChainReader 是地址发现需要的最小链上查询接口，*ethclient.Client 满足该接口。
type ChainReader interface {
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// RPCDiscovery 通过 JSON-RPC 判断地址是否使用过: 发送过交易 (nonce > 0) 或持有余额。
// 只收到过代币的地址不会被识别。
type RPCDiscovery struct {
	client ChainReader
}

var _ bip44.AccountDiscovery = (*RPCDiscovery)(nil)

func NewRPCDiscovery(client ChainReader) *RPCDiscovery {
	return &RPCDiscovery{client: client}
}

// IsAddressUsed queries the latest block state of the derived address.
func (d *RPCDiscovery) IsAddressUsed(ctx context.Context, addr *bip44.DerivedAddress) (bool, error) {
	account := addr.Address().Common()

	nonce, err := d.client.NonceAt(ctx, account, nil)
	if err != nil {
		return false, fmt.Errorf("eth_getTransactionCount %s: %w", account.Hex(), err)
	}
	if nonce > 0 {
		return true, nil
	}

	balance, err := d.client.BalanceAt(ctx, account, nil)
	if err != nil {
		return false, fmt.Errorf("eth_getBalance %s: %w", account.Hex(), err)
	}
	return balance != nil && balance.Sign() > 0, nil
}

// Dial 连接 RPC 节点并确认其 chain id 与配置一致。
func Dial(ctx context.Context, rpcURL string, expected evm.ChainID) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}

	id, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("eth_chainId: %w", err)
	}
	if !id.IsUint64() || id.Uint64() != expected.Value() {
		client.Close()
		return nil, fmt.Errorf("rpc node reports chain id %s, expected %d", id, expected.Value())
	}

	logger.Info("已连接 RPC 节点", zap.String("url", rpcURL), zap.Stringer("chain", expected))
	return client, nil
}
