package momo

import (
	"bytes"
	"context"
	"crypto/hmac"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ecapp/internal/config"
	"ecapp/internal/domain/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestTypePayWithMethod = "payWithMethod"
	defaultLang              = "vi"
	defaultTimeout           = 30 * time.Second
	maxResponseBytes         = 1 << 20
)

// 接続失敗・非2xx・壊れたレスポンス
var ErrGatewayUnavailable = errors.New("momo: gateway unavailable")

// ゲートウェイが受け付けなかった（resultCode != 0）
type ResultError struct {
	ResultCode int
	Message    string
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("momo: result code %d: %s", e.ResultCode, e.Message)
}

type PaymentRequest struct {
	OrderID   string // 外部に渡す注文ID（注文コード）
	Amount    int64
	OrderInfo string
}

type PaymentResponse struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	ResponseTime int64  `json:"responseTime"`
	Message      string `json:"message"`
	ResultCode   int    `json:"resultCode"`
	PayURL       string `json:"payUrl"`
	Deeplink     string `json:"deeplink,omitempty"`
	QRCodeURL    string `json:"qrCodeUrl,omitempty"`
}

// IPNで届くJSON
type CallbackPayload struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	OrderInfo    string `json:"orderInfo"`
	OrderType    string `json:"orderType"`
	TransID      int64  `json:"transId"`
	ResultCode   int    `json:"resultCode"`
	Message      string `json:"message"`
	PayType      string `json:"payType"`
	ResponseTime int64  `json:"responseTime"`
	ExtraData    string `json:"extraData"`
	Signature    string `json:"signature"`
}

type QueryResponse struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	TransID      int64  `json:"transId"`
	ResultCode   int    `json:"resultCode"`
	Message      string `json:"message"`
	PayType      string `json:"payType"`
	ResponseTime int64  `json:"responseTime"`
}

type createBody struct {
	PartnerCode string `json:"partnerCode"`
	PartnerName string `json:"partnerName"`
	StoreID     string `json:"storeId"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IPNURL      string `json:"ipnUrl"`
	Lang        string `json:"lang"`
	RequestType string `json:"requestType"`
	AutoCapture bool   `json:"autoCapture"`
	ExtraData   string `json:"extraData"`
	Signature   string `json:"signature"`
}

type queryBody struct {
	PartnerCode string `json:"partnerCode"`
	RequestID   string `json:"requestId"`
	OrderID     string `json:"orderId"`
	Signature   string `json:"signature"`
	Lang        string `json:"lang"`
}

type Client struct {
	cfg   config.MoMoConfig
	http  *http.Client
	log   *zap.Logger
	newID func() string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithRequestIDFunc(f func() string) Option {
	return func(c *Client) { c.newID = f }
}

func NewClient(cfg config.MoMoConfig, log *zap.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: timeout},
		log:   log,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// 決済リクエストを作ってpayUrlを受け取る。再試行はしない
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (PaymentResponse, error) {
	body := createBody{
		PartnerCode: c.cfg.PartnerCode,
		PartnerName: "Test",
		StoreID:     "MomoTestStore",
		RequestID:   c.newID(),
		Amount:      req.Amount,
		OrderID:     req.OrderID,
		OrderInfo:   req.OrderInfo,
		RedirectURL: c.cfg.RedirectURL,
		IPNURL:      c.cfg.IPNURL,
		Lang:        defaultLang,
		RequestType: requestTypePayWithMethod,
		AutoCapture: true,
		ExtraData:   "",
	}
	body.Signature = sign(c.cfg.SecretKey, createRaw(c.cfg.AccessKey, body))

	var out PaymentResponse
	if err := c.post(ctx, c.cfg.Endpoint, body, &out); err != nil {
		return PaymentResponse{}, err
	}
	if out.RequestID == "" {
		out.RequestID = body.RequestID
	}

	c.log.Info("momo create payment",
		zap.String("order_id", req.OrderID),
		zap.String("request_id", body.RequestID),
		zap.Int("result_code", out.ResultCode),
	)

	if out.ResultCode != 0 {
		return out, &ResultError{ResultCode: out.ResultCode, Message: out.Message}
	}
	return out, nil
}

// コールバックの署名を作る（sandboxでの動作確認用）
func (c *Client) SignCallback(p CallbackPayload) string {
	return sign(c.cfg.SecretKey, callbackRaw(c.cfg.AccessKey, p))
}

// 同じ秘密鍵で署名を作り直して比べる
func (c *Client) VerifyCallback(p CallbackPayload) bool {
	if p.Signature == "" {
		return false
	}
	expected := c.SignCallback(p)
	return hmac.Equal([]byte(expected), []byte(p.Signature))
}

// コールバックが来ない時の照会
func (c *Client) QueryStatus(ctx context.Context, orderID, requestID string) (QueryResponse, error) {
	if requestID == "" {
		requestID = c.newID()
	}
	body := queryBody{
		PartnerCode: c.cfg.PartnerCode,
		RequestID:   requestID,
		OrderID:     orderID,
		Lang:        defaultLang,
	}
	body.Signature = sign(c.cfg.SecretKey, queryRaw(c.cfg.AccessKey, c.cfg.PartnerCode, orderID, requestID))

	var out QueryResponse
	if err := c.post(ctx, c.cfg.QueryEndpoint, body, &out); err != nil {
		return QueryResponse{}, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, url string, in any, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("momo request failed", zap.String("url", url), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrGatewayUnavailable, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		// MoMoは4xxでもJSONを返すことがある
		var partial struct {
			ResultCode *int   `json:"resultCode"`
			Message    string `json:"message"`
		}
		if json.Unmarshal(raw, &partial) == nil && partial.ResultCode != nil && *partial.ResultCode != 0 {
			return &ResultError{ResultCode: *partial.ResultCode, Message: partial.Message}
		}
		return fmt.Errorf("%w: status %d", ErrGatewayUnavailable, res.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrGatewayUnavailable, err)
	}
	return nil
}

// 0は成功、1000/7000/7002は処理中、それ以外は失敗
func MapResultCode(code int) model.PaymentStatus {
	switch code {
	case 0:
		return model.PaymentStatusCompleted
	case 1000, 7000, 7002:
		return model.PaymentStatusPending
	default:
		return model.PaymentStatusFailed
	}
}
