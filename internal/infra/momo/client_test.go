package momo_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ecapp/internal/config"
	"ecapp/internal/domain/model"
	"ecapp/internal/infra/momo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sandboxConfig(endpoint string) config.MoMoConfig {
	return config.MoMoConfig{
		PartnerCode:   "MOMO",
		AccessKey:     "F8BBA842ECF85",
		SecretKey:     "K951B6PE1waDMi640xX08PD3vg6EkVlz",
		Endpoint:      endpoint,
		QueryEndpoint: endpoint,
		RedirectURL:   "http://localhost:3000/payment/result",
		IPNURL:        "http://localhost:8080/payments/momo/callback",
		Timeout:       2 * time.Second,
	}
}

func fixedID(id string) momo.Option {
	return momo.WithRequestIDFunc(func() string { return id })
}

func TestCreatePayment_SignsCanonicalString(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"partnerCode": "MOMO",
			"orderId":     "ORD00000007",
			"requestId":   "req-1",
			"amount":      230000,
			"resultCode":  0,
			"message":     "Successful.",
			"payUrl":      "https://test-payment.momo.vn/pay/abc",
		})
	}))
	defer srv.Close()

	c := momo.NewClient(sandboxConfig(srv.URL), nil, fixedID("req-1"))
	res, err := c.CreatePayment(context.Background(), momo.PaymentRequest{
		OrderID:   "ORD00000007",
		Amount:    230000,
		OrderInfo: "Thanh toan don hang ORD00000007",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://test-payment.momo.vn/pay/abc", res.PayURL)
	assert.Equal(t, "req-1", res.RequestID)

	assert.Equal(t, "98963d7d2a17207aded15a181bda5848cccf0efdcd32fe276ecd3c550af83d58", got["signature"])
	assert.Equal(t, "payWithMethod", got["requestType"])
	assert.Equal(t, true, got["autoCapture"])
	assert.Equal(t, "vi", got["lang"])
	assert.Equal(t, "", got["extraData"])
	assert.Equal(t, "MomoTestStore", got["storeId"])
}

func TestCreatePayment_NonZeroResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"resultCode": 13, "message": "Merchant authentication failed"})
	}))
	defer srv.Close()

	c := momo.NewClient(sandboxConfig(srv.URL), nil)
	_, err := c.CreatePayment(context.Background(), momo.PaymentRequest{OrderID: "ORD1", Amount: 1000})

	var re *momo.ResultError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 13, re.ResultCode)
}

func TestCreatePayment_GatewayDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	c := momo.NewClient(sandboxConfig(srv.URL), nil)
	_, err := c.CreatePayment(context.Background(), momo.PaymentRequest{OrderID: "ORD1", Amount: 1000})
	assert.ErrorIs(t, err, momo.ErrGatewayUnavailable)
}

func TestCreatePayment_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := momo.NewClient(sandboxConfig(url), nil)
	_, err := c.CreatePayment(context.Background(), momo.PaymentRequest{OrderID: "ORD1", Amount: 1000})
	assert.ErrorIs(t, err, momo.ErrGatewayUnavailable)
}

func samplePayload() momo.CallbackPayload {
	return momo.CallbackPayload{
		PartnerCode:  "MOMO",
		OrderID:      "ORD00000007",
		RequestID:    "req-1",
		Amount:       230000,
		OrderInfo:    "Thanh toan don hang ORD00000007",
		OrderType:    "momo_wallet",
		TransID:      4088878653,
		ResultCode:   0,
		Message:      "Successful.",
		PayType:      "qr",
		ResponseTime: 1721720663942,
	}
}

func TestVerifyCallback(t *testing.T) {
	c := momo.NewClient(sandboxConfig("http://unused"), nil)

	p := samplePayload()
	p.Signature = c.SignCallback(p)
	assert.True(t, c.VerifyCallback(p))

	// 改ざん
	tampered := p
	tampered.Amount = 1
	assert.False(t, c.VerifyCallback(tampered))

	// 別の秘密鍵で作った署名
	forgedCfg := sandboxConfig("http://unused")
	forgedCfg.SecretKey = "wrong-secret"
	forger := momo.NewClient(forgedCfg, nil)
	forged := samplePayload()
	forged.Signature = forger.SignCallback(forged)
	assert.False(t, c.VerifyCallback(forged))

	empty := samplePayload()
	assert.False(t, c.VerifyCallback(empty))
}

func TestQueryStatus_SignsCanonicalString(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{"orderId": "ORD00000007", "resultCode": 1000, "message": "pending"})
	}))
	defer srv.Close()

	c := momo.NewClient(sandboxConfig(srv.URL), nil)
	res, err := c.QueryStatus(context.Background(), "ORD00000007", "req-2")
	require.NoError(t, err)
	assert.Equal(t, 1000, res.ResultCode)
	assert.Equal(t, "7f896bf32abe5cac9273d5173fa8bba686d03f948185bf58d2fb885ce7838167", got["signature"])
	assert.Equal(t, "req-2", got["requestId"])
}

func TestMapResultCode(t *testing.T) {
	assert.Equal(t, model.PaymentStatusCompleted, momo.MapResultCode(0))
	for _, code := range []int{1000, 7000, 7002} {
		assert.Equal(t, model.PaymentStatusPending, momo.MapResultCode(code))
	}
	for _, code := range []int{-1, 11, 1006, 9000} {
		assert.Equal(t, model.PaymentStatusFailed, momo.MapResultCode(code))
	}
}
