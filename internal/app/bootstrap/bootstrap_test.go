package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"wallet_tracker/internal/infrastructure/configloader"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const wallet = "0x1111111111111111111111111111111111111111"

func testConfig(t *testing.T, body string) *configloader.Config {
	t.Helper()
	for _, k := range []string{"LOG_LEVEL", "SERVER_PORT", "REDIS_URL", "ETHERSCAN_API_KEY", "POLYGONSCAN_API_KEY", "ARBISCAN_API_KEY"} {
		t.Setenv(k, "")
	}
	path := t.TempDir() + "/config.yml"
	require.NoError(t, writeFile(path, body))
	cfg, err := configloader.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestBuildWiresConfiguredNetworks(t *testing.T) {
	cfg := testConfig(t, `
networks:
  - identifier: ethereum
    rpcURL: http://127.0.0.1:1
  - identifier: polygon
    rpcURL: http://127.0.0.1:1
`)
	app, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, []string{"ethereum", "polygon"}, app.Sources.Identifiers())
	assert.Len(t, app.Transactions, 2)
	require.NoError(t, app.WarmPrices(context.Background()))

	router := app.Router()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/networks", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"identifier":"polygon"`)

	// No explorer key: history is served from the sample data.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/networks/ethereum/wallets/"+wallet+"/transactions?limit=2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
}

func TestBuildWithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, `
networks:
  - identifier: arbitrum
    rpcURL: http://127.0.0.1:1
cache:
  backend: redis
  redisURL: redis://`+mr.Addr()+`/0
`)
	app, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	stats, err := app.Transactions["arbitrum"].GetCacheStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
}

func TestBuildFailsOnUnreachableRedis(t *testing.T) {
	cfg := testConfig(t, `
cache:
  backend: redis
  redisURL: redis://127.0.0.1:1/0
`)
	_, err := Build(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func writeFile(path, body string) error {
	return os.WriteFile(path, []byte(body), 0o600)
}
