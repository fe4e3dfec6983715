package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/commercekit/paygate/internal/config"
	"github.com/commercekit/paygate/internal/signing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Config{
		APIHash:          "api-hash",
		APISecret:        "secret",
		MerchantEmail:    "merchant@shop.example",
		Environment:      config.EnvSandbox,
		QuoteURLOverride: srv.URL + "/createQuote",
		RestURLOverride:  srv.URL + "/rest",
		ProviderTimeout:  timeout,
	}
	return NewClient(Params{Cfg: cfg, Log: zap.NewNop()})
}

func TestCreateQuoteReturnsToken(t *testing.T) {
	var gotForm url.Values
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Write([]byte(`{"status":"OK","token":"tok-123"}`))
	}, time.Second)

	form := url.Values{}
	form.Set("order_id", "412")
	token, err := client.CreateQuote(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
	assert.Equal(t, "412", gotForm.Get("order_id"))
}

func TestCreateQuoteNonOKStatusIsGatewayError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error"}`))
	}, time.Second)

	_, err := client.CreateQuote(context.Background(), url.Values{})
	assert.ErrorIs(t, err, ErrGateway)
}

func TestCreateQuoteMalformedBodyIsGatewayError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	}, time.Second)

	_, err := client.CreateQuote(context.Background(), url.Values{})
	assert.ErrorIs(t, err, ErrGateway)
}

func TestRefundSendsAuthorizationHeader(t *testing.T) {
	var gotAuth, gotPath, gotMethod string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.Write([]byte(`{"status":"ok"}`))
	}, time.Second)

	form := url.Values{}
	form.Set("action", "refund")
	err := client.Refund(context.Background(), "tx-9", form)
	require.NoError(t, err)

	wantAuth := "api-hash;" + signing.AuthorizationHash("api-hash", "merchant@shop.example", "secret")
	assert.Equal(t, wantAuth, gotAuth)
	assert.Equal(t, "/rest/transactions/tx-9", gotPath)
	assert.Equal(t, http.MethodPut, gotMethod)
}

func TestRefundRejectionIsGatewayError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"denied"}`))
	}, time.Second)

	err := client.Refund(context.Background(), "tx-9", url.Values{})
	assert.ErrorIs(t, err, ErrGateway)
}

func TestServerErrorsAreTransient(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, time.Second)

	_, err := client.CreateQuote(context.Background(), url.Values{})
	assert.ErrorIs(t, err, ErrTransient)
}

func TestClientErrorsAreGatewayErrors(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}, time.Second)

	_, err := client.CreateQuote(context.Background(), url.Values{})
	assert.ErrorIs(t, err, ErrGateway)
}

func TestTimeoutIsTransient(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}, 50*time.Millisecond)

	_, err := client.CreateQuote(context.Background(), url.Values{})
	assert.ErrorIs(t, err, ErrTransient)
}
