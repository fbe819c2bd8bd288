package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hdwallet-core/internal/handler"
	"hdwallet-core/pkg/monitor"
	"hdwallet-core/pkg/validator"
)

// NewHTTPRouter 初始化并返回一个 Gin Engine
func NewHTTPRouter(wallet *handler.WalletHandler) *gin.Engine {
	// 0. 初始化监控指标与参数校验规则
	monitor.Init()
	validator.Init()

	// 1. 创建 Engine (使用默认中间件: Logger, Recovery)
	r := gin.Default()

	// 2. 注册通用中间件
	r.Use(monitor.PrometheusMiddleware())

	// 3. 注册基础路由
	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 4. 注册 API 路由组
	api := r.Group("/api/v1")
	{
		api.GET("/accounts", wallet.ListAccounts)
		api.GET("/accounts/:name/addresses", wallet.ListAddresses)
		api.GET("/paths/parse", wallet.ParsePath)
		api.GET("/addresses/checksum", wallet.Checksum)
	}

	return r
}
