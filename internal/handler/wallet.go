package handler

import (
	"fmt"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hdwallet-core/internal/handler/request"
	"hdwallet-core/internal/handler/response"
	"hdwallet-core/pkg/address"
	"hdwallet-core/pkg/bip44"
	"hdwallet-core/pkg/config"
	"hdwallet-core/pkg/errno"
	"hdwallet-core/pkg/logger"
	"hdwallet-core/pkg/validator"
)

const defaultAddressCount = 10

// WalletHandler 只持有账户级 xpub，服务端永远不接触私钥。
type WalletHandler struct {
	accounts map[string]*bip44.Account
	names    []string
}

func NewWalletHandler(accounts map[string]*bip44.Account) *WalletHandler {
	names := make([]string, 0, len(accounts))
	for name := range accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	validator.Init()
	return &WalletHandler{accounts: accounts, names: names}
}

// LoadWatchAccounts 解析配置中的只读账户。coin_type 为空时按 ETH 处理，purpose 为空时使用币种默认值。
func LoadWatchAccounts(cfgs []config.WatchAccount) (map[string]*bip44.Account, error) {
	accounts := make(map[string]*bip44.Account, len(cfgs))
	for _, wa := range cfgs {
		if wa.Name == "" {
			return nil, fmt.Errorf("%w: watch account name", errno.ErrMissingField)
		}
		if _, dup := accounts[wa.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate watch account %q", errno.ErrInvalidValue, wa.Name)
		}

		coin := bip44.CoinType(wa.CoinType)
		if wa.CoinType == 0 {
			coin = bip44.CoinEthereum
		}
		purpose := coin.DefaultPurpose()
		if wa.Purpose != 0 {
			p, err := bip44.PurposeFromUint32(wa.Purpose)
			if err != nil {
				return nil, fmt.Errorf("watch account %q: %w", wa.Name, err)
			}
			purpose = p
		}

		acc, err := bip44.ParseWatchOnlyAccount(wa.XPub, purpose, coin, wa.Account)
		if err != nil {
			return nil, fmt.Errorf("watch account %q: %w", wa.Name, err)
		}
		accounts[wa.Name] = acc
		logger.Info("loaded watch-only account",
			zap.String("name", wa.Name), zap.Stringer("coin", coin), zap.Uint32("account", wa.Account))
	}
	return accounts, nil
}

type accountView struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Coin     string `json:"coin"`
	Purpose  uint32 `json:"purpose"`
	Account  uint32 `json:"account"`
	XPub     string `json:"xpub"`
	Network  string `json:"network"`
	Readonly bool   `json:"watch_only"`
}

type addressView struct {
	Path    string `json:"path"`
	Index   uint32 `json:"index"`
	Address string `json:"address"`
}

// ListAccounts 返回所有配置的只读账户
func (h *WalletHandler) ListAccounts(c *gin.Context) {
	out := make([]accountView, 0, len(h.names))
	for _, name := range h.names {
		acc := h.accounts[name]
		out = append(out, accountView{
			Name:     name,
			Path:     fmt.Sprintf("m/%d'/%d'/%d'", acc.Purpose().Value(), acc.CoinType().Index(), acc.Index()),
			Coin:     acc.CoinType().Symbol(),
			Purpose:  acc.Purpose().Value(),
			Account:  acc.Index(),
			XPub:     acc.XPub(),
			Network:  acc.Network().String(),
			Readonly: acc.IsWatchOnly(),
		})
	}
	response.Success(c, out)
}

// ListAddresses 派生账户下一段连续地址 (公钥派生)。
func (h *WalletHandler) ListAddresses(c *gin.Context) {
	acc, ok := h.accounts[c.Param("name")]
	if !ok {
		response.Error(c, fmt.Errorf("%w: %s", errno.ErrAccountNotFound, c.Param("name")))
		return
	}

	var req request.ListAddressesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, fmt.Errorf("%w: %s", errno.ErrBind, validator.GetErrorMsg(err)))
		return
	}
	chain := bip44.External
	if req.Chain != "" {
		parsed, err := bip44.ParseChain(req.Chain)
		if err != nil {
			response.Error(c, err)
			return
		}
		chain = parsed
	}
	if req.Count == 0 {
		req.Count = defaultAddressCount
	}

	derived, err := acc.DeriveAddressRange(chain, req.Start, req.Count)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]addressView, 0, len(derived))
	for _, d := range derived {
		out = append(out, addressView{Path: d.Path.String(), Index: d.Index(), Address: d.Address().Hex()})
	}
	response.Success(c, gin.H{
		"account": c.Param("name"),
		"chain":   chain.String(),
		"items":   out,
	})
}

// ParsePath 解析并规范化 BIP44 路径
func (h *WalletHandler) ParsePath(c *gin.Context) {
	var req request.ParsePathRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, fmt.Errorf("%w: %s", errno.ErrBind, validator.GetErrorMsg(err)))
		return
	}
	p, err := bip44.ParsePath(req.Path)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"path":         p.String(),
		"account_path": p.AccountPath(),
		"purpose":      p.Purpose().Value(),
		"coin_type":    p.CoinType().Index(),
		"coin":         p.CoinType().Symbol(),
		"account":      p.Account(),
		"chain":        p.Chain().String(),
		"index":        p.Index(),
	})
}

// Checksum 返回 EIP-55 格式地址，并告知输入本身是否带有合法校验和。
func (h *WalletHandler) Checksum(c *gin.Context) {
	var req request.ChecksumRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, fmt.Errorf("%w: %s", errno.ErrBind, validator.GetErrorMsg(err)))
		return
	}
	a, err := address.FromHex(req.Address)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"address":          a.Hex(),
		"checksum_matched": a.Hex() == req.Address,
	})
}
