package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WalletMetrics 定义钱包引擎的业务指标。指标对象在包初始化时创建，
// 未注册时也可以安全递增，库代码无需关心 Init 是否已调用。
type WalletMetrics struct {
	KeysDerived      *prometheus.CounterVec
	AccountCache     *prometheus.CounterVec
	Signatures       *prometheus.CounterVec
	DiscoveryQueries *prometheus.CounterVec
	DiscoveryUsed    *prometheus.GaugeVec
}

// Wallet Global Metrics Instance
var Wallet = &WalletMetrics{
	KeysDerived: prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_keys_derived_total",
		Help: "Number of derived keys by tree level",
	}, []string{"level"}),
	AccountCache: prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_account_cache_total",
		Help: "Account cache lookups by result",
	}, []string{"result"}),
	Signatures: prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_signatures_total",
		Help: "Number of produced signatures by payload kind",
	}, []string{"kind"}),
	DiscoveryQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_discovery_queries_total",
		Help: "Address usage queries issued during gap-limit discovery",
	}, []string{"chain", "result"}),
	DiscoveryUsed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wallet_discovery_used_addresses",
		Help: "Used addresses found by the last discovery per account",
	}, []string{"coin", "account"}),
}

func (m *WalletMetrics) register(r prometheus.Registerer) {
	r.MustRegister(m.KeysDerived, m.AccountCache, m.Signatures, m.DiscoveryQueries, m.DiscoveryUsed)
}
