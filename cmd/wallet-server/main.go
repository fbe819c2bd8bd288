package main

import (
	"go.uber.org/zap"

	"hdwallet-core/internal/handler"
	"hdwallet-core/internal/server"
	"hdwallet-core/pkg/config"
	"hdwallet-core/pkg/logger"
)

// wallet-server 是只读地址服务: 只加载账户级 xpub，不接触助记词或私钥。
func main() {
	// 0. 初始化 Config
	config.Init()

	// 1. 初始化 Logger
	logger.Init(config.Global.App.Env)
	defer logger.Sync()

	// 2. 加载只读账户
	accounts, err := handler.LoadWatchAccounts(config.Global.Watch.Accounts)
	if err != nil {
		logger.Fatal("加载只读账户失败", zap.Error(err))
	}
	if len(accounts) == 0 {
		logger.Warn("未配置 watch.accounts，地址接口将返回空列表")
	}

	// 3. HTTP Router
	r := server.NewHTTPRouter(handler.NewWalletHandler(accounts))

	// 4. 运行 (阻塞)
	app := server.New(server.Config{HttpPort: config.Global.App.HttpPort}, r)
	app.Run()

	logger.Info("系统已退出")
}
