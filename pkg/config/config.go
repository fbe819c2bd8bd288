package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Watch     WatchConfig     `mapstructure:"watch"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
}

type WalletConfig struct {
	Network      string `mapstructure:"network"`       // mainnet / testnet, 决定 xprv/tprv 版本字节
	KeystorePath string `mapstructure:"keystore_path"` // 本地 Keystore 文件路径
	Password     string `mapstructure:"password"`      // Keystore 密码 (通常通过环境变量 WALLET_PASSWORD 传入)
}

type ChainConfig struct {
	ID     uint64 `mapstructure:"id"`
	RpcUrl string `mapstructure:"rpc_url"`
}

type DiscoveryConfig struct {
	GapLimit    uint32        `mapstructure:"gap_limit"`
	MaxAccounts uint32        `mapstructure:"max_accounts"`
	Cache       string        `mapstructure:"cache"` // memory / redis / none
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WatchConfig 只读账户列表，服务端只持有账户级 xpub
type WatchConfig struct {
	Accounts []WatchAccount `mapstructure:"accounts"`
}

type WatchAccount struct {
	Name     string `mapstructure:"name"`
	XPub     string `mapstructure:"xpub"`
	Purpose  uint32 `mapstructure:"purpose"`
	CoinType uint32 `mapstructure:"coin_type"`
	Account  uint32 `mapstructure:"account"`
}

var Global Config

// Init loads ./config.yaml (or ./config/config.yaml) plus environment
// overrides into Global.
func Init() {
	cfg, err := Load("")
	if err != nil {
		log.Fatalf("Fatal error config file: %s \n", err)
	}
	Global = *cfg
	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

// Load reads the configuration from file, or from the default search paths
// when file is empty. A missing config file is not an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// 环境变量设置, e.g. CHAIN_RPC_URL / WALLET_PASSWORD
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Printf("Warning: Config file not found, using defaults and environment variables")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.http_port", "8080")

	v.SetDefault("wallet.network", "mainnet")
	v.SetDefault("wallet.keystore_path", "wallet.json")
	// 显式注册, AutomaticEnv 才能在 Unmarshal 时看到 WALLET_PASSWORD
	v.SetDefault("wallet.password", "")

	v.SetDefault("chain.id", 1)
	v.SetDefault("chain.rpc_url", "http://localhost:8545")

	v.SetDefault("discovery.gap_limit", 20)
	v.SetDefault("discovery.max_accounts", 20)
	v.SetDefault("discovery.cache", "memory")
	v.SetDefault("discovery.cache_ttl", "10m")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}
