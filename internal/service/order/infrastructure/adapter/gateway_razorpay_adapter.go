package adapter

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"
	"net/http"

	"github.com/pkg/errors"
)

// GatewayConfig 是支付网关的接入配置。
type GatewayConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Currency  string
}

// RazorpayGatewayAdapter 实现了 port.PaymentGateway 接口。
// 网关是不透明协作方：建单拿 orderRef，回调时用共享密钥本地验签。
type RazorpayGatewayAdapter struct {
	cfg        GatewayConfig
	httpClient *http.Client
}

// NewRazorpayGatewayAdapter 创建支付网关适配器
func NewRazorpayGatewayAdapter(cfg GatewayConfig) *RazorpayGatewayAdapter {
	return &RazorpayGatewayAdapter{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
}

type gatewayOrderRequest struct {
	Amount   int64  `json:"amount"` // 最小货币单位（分）
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type gatewayOrderResponse struct {
	ID string `json:"id"`
}

// CreateGatewayOrder 为指定金额向网关申请订单号。
// 金额换算为最小货币单位后才发给网关。
func (a *RazorpayGatewayAdapter) CreateGatewayOrder(ctx context.Context, amount float64, receipt string) (string, error) {
	payload := gatewayOrderRequest{
		Amount:   int64(math.Floor(amount*100 + 0.5)),
		Currency: a.cfg.Currency,
		Receipt:  receipt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(a.cfg.KeyID, a.cfg.KeySecret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "gateway order creation failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errors.Errorf("gateway returned status %s: %s", resp.Status, string(snippet))
	}

	var orderResp gatewayOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&orderResp); err != nil {
		return "", errors.Wrap(err, "failed to decode gateway order response")
	}
	if orderResp.ID == "" {
		return "", errors.New("gateway returned empty order id")
	}
	return orderResp.ID, nil
}

// VerifySignature 校验回调签名：
// HMAC-SHA256(orderRef + "|" + paymentRef, keySecret) 与签名做恒定时间比较。
func (a *RazorpayGatewayAdapter) VerifySignature(gatewayOrderRef, gatewayPaymentRef, signature string) bool {
	mac := hmac.New(sha256.New, []byte(a.cfg.KeySecret))
	mac.Write([]byte(gatewayOrderRef + "|" + gatewayPaymentRef))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
