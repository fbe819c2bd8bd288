package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdwallet-core/internal/handler"
	"hdwallet-core/pkg/bip32"
	"hdwallet-core/pkg/bip44"
	"hdwallet-core/pkg/config"
	"hdwallet-core/pkg/errno"
)

const abandonMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T) (*gin.Engine, *bip44.Account) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w, err := bip44.NewWalletFromMnemonic(abandonMnemonic, "", bip32.MainNet)
	require.NoError(t, err)
	t.Cleanup(w.Close)
	acc, err := w.GetAccount(bip44.PurposeBIP44, bip44.CoinEthereum, 0)
	require.NoError(t, err)

	accounts, err := handler.LoadWatchAccounts([]config.WatchAccount{
		{Name: "treasury", XPub: acc.XPub(), Account: 0},
	})
	require.NoError(t, err)
	return NewHTTPRouter(handler.NewWalletHandler(accounts)), acc
}

func get(t *testing.T, r http.Handler, url string) envelope {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHealthAndMetrics(t *testing.T) {
	r, _ := setupRouter(t)
	env := get(t, r, "/health")
	assert.Equal(t, errno.OK.Code, env.Code)
	assert.Contains(t, string(env.Data), `"UP"`)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestListAccounts(t *testing.T) {
	r, acc := setupRouter(t)
	env := get(t, r, "/api/v1/accounts")
	require.Equal(t, errno.OK.Code, env.Code)

	var accounts []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &accounts))
	require.Len(t, accounts, 1)
	assert.Equal(t, "treasury", accounts[0]["name"])
	assert.Equal(t, "m/44'/60'/0'", accounts[0]["path"])
	assert.Equal(t, acc.XPub(), accounts[0]["xpub"])
	assert.Equal(t, true, accounts[0]["watch_only"])
}

func TestListAddresses(t *testing.T) {
	r, acc := setupRouter(t)
	env := get(t, r, "/api/v1/accounts/treasury/addresses?count=3")
	require.Equal(t, errno.OK.Code, env.Code, env.Msg)

	var data struct {
		Chain string `json:"chain"`
		Items []struct {
			Path    string `json:"path"`
			Index   uint32 `json:"index"`
			Address string `json:"address"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "external", data.Chain)
	require.Len(t, data.Items, 3)
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", data.Items[0].Address)
	for i, item := range data.Items {
		want, err := acc.DeriveAddress(bip44.External, uint32(i))
		require.NoError(t, err)
		assert.Equal(t, want.Address().Hex(), item.Address)
		assert.Equal(t, want.Path.String(), item.Path)
	}

	env = get(t, r, "/api/v1/accounts/treasury/addresses?chain=change&start=5&count=1")
	require.Equal(t, errno.OK.Code, env.Code)
	assert.Contains(t, string(env.Data), `m/44'/60'/0'/1/5`)
}

func TestListAddressesErrors(t *testing.T) {
	r, _ := setupRouter(t)
	cases := []struct {
		url  string
		code int
	}{
		{"/api/v1/accounts/unknown/addresses", errno.ErrAccountNotFound.Code},
		{"/api/v1/accounts/treasury/addresses?count=101", errno.ErrBind.Code},
		{"/api/v1/accounts/treasury/addresses?chain=sideways", errno.ErrBind.Code},
		{"/api/v1/accounts/treasury/addresses?start=2147483647&count=2", errno.ErrInvalidChildIndex.Code},
	}
	for _, tc := range cases {
		env := get(t, r, tc.url)
		assert.Equal(t, tc.code, env.Code, tc.url)
		assert.JSONEq(t, `{}`, string(env.Data))
	}
}

func TestParsePathEndpoint(t *testing.T) {
	r, _ := setupRouter(t)
	env := get(t, r, "/api/v1/paths/parse?path=m/44h/60h/2h/1/7")
	require.Equal(t, errno.OK.Code, env.Code)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "m/44'/60'/2'/1/7", data["path"])
	assert.Equal(t, "ETH", data["coin"])
	assert.Equal(t, "internal", data["chain"])
	assert.EqualValues(t, 7, data["index"])

	env = get(t, r, "/api/v1/paths/parse?path=m/44'/60'")
	assert.Equal(t, errno.ErrInvalidPath.Code, env.Code)

	env = get(t, r, "/api/v1/paths/parse")
	assert.Equal(t, errno.ErrBind.Code, env.Code)
}

func TestChecksumEndpoint(t *testing.T) {
	r, _ := setupRouter(t)
	env := get(t, r, "/api/v1/addresses/checksum?address=0x9858effd232b4033e47d90003d41ec34ecaeda94")
	require.Equal(t, errno.OK.Code, env.Code)
	assert.JSONEq(t, `{"address":"0x9858EfFD232B4033E47d90003D41EC34EcaEda94","checksum_matched":false}`, string(env.Data))

	env = get(t, r, "/api/v1/addresses/checksum?address=0x9858EfFD232B4033E47d90003D41EC34EcaEda94")
	assert.Contains(t, string(env.Data), `"checksum_matched":true`)

	// 大小写混合但校验和错误
	env = get(t, r, "/api/v1/addresses/checksum?address=0x9858efFD232B4033E47d90003D41EC34EcaEda94")
	assert.Equal(t, errno.ErrInvalidAddress.Code, env.Code)
}
