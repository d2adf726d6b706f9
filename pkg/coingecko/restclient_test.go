package coingecko

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestSearch
func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/search", r.URL.Path)
		assert.Equal(t, "doge", r.URL.Query().Get("query"))
		fmt.Fprint(w, `{"coins":[{"id":"dogecoin","symbol":"DOGE","name":"Dogecoin","market_cap_rank":9}]}`)
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL, "", 5*time.Second)
	coins, err := client.Search(context.Background(), "doge")
	require.NoError(t, err)
	require.Len(t, coins, 1)
	assert.Equal(t, "dogecoin", coins[0].ID)
	assert.Equal(t, "Dogecoin", coins[0].Name)
}

// go test -v --run TestSimplePrice
func TestSimplePrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "k", r.URL.Query().Get("x_cg_demo_api_key"))
		fmt.Fprint(w, `{"bitcoin":{"usd":64123.123456789012}}`)
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL, "k", 5*time.Second)
	resp, err := client.SimplePrice(context.Background(), []string{"bitcoin"}, "usd")
	require.NoError(t, err)
	assert.Equal(t, "64123.123456789012", resp["bitcoin"]["usd"].String())
}
