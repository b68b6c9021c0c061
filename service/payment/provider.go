package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"
)

// ErrProvider marks failures talking to the external payment provider. These
// never corrupt local appointment or slot state; the appointment stays in its
// pre-call status.
var ErrProvider = errors.New("payment provider request failed")

const defaultProviderBaseURL = "https://api-merchant.payos.vn"

// PayOSClient talks to the PayOS merchant API over plain HTTP.
type PayOSClient struct {
	baseURL     string
	clientID    string
	apiKey      string
	checksumKey string
	httpClient  *http.Client
}

func NewPayOSClient() *PayOSClient {
	baseURL := os.Getenv("PAYOS_BASE_URL")
	if baseURL == "" {
		baseURL = defaultProviderBaseURL
	}
	return &PayOSClient{
		baseURL:     baseURL,
		clientID:    os.Getenv("PAYOS_CLIENT_ID"),
		apiKey:      os.Getenv("PAYOS_API_KEY"),
		checksumKey: os.Getenv("PAYOS_CHECKSUM_KEY"),
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

type CheckoutResponse struct {
	PaymentLinkID string
	CheckoutURL   string
	QRCode        string
}

// signPayload produces the request signature PayOS expects: HMAC-SHA256 over
// the alphabetically ordered checkout fields.
func (c *PayOSClient) signPayload(orderCode, amount int64, description, returnURL, cancelURL string) string {
	data := fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		amount, cancelURL, description, orderCode, returnURL)
	mac := hmac.New(sha256.New, []byte(c.checksumKey))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// CreatePaymentLink opens a checkout with the provider and returns its
// reference and hosted checkout URL.
func (c *PayOSClient) CreatePaymentLink(orderCode, amount int64, description string) (*CheckoutResponse, error) {
	returnURL := os.Getenv("PAYOS_RETURN_URL")
	cancelURL := os.Getenv("PAYOS_CANCEL_URL")

	payload := map[string]interface{}{
		"orderCode":   orderCode,
		"amount":      amount,
		"description": description,
		"returnUrl":   returnURL,
		"cancelUrl":   cancelURL,
		"signature":   c.signPayload(orderCode, amount, description, returnURL, cancelURL),
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", c.baseURL+"/v2/payment-requests", bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-client-id", c.clientID)
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	var providerResp struct {
		Code string `json:"code"`
		Desc string `json:"desc"`
		Data struct {
			PaymentLinkID string `json:"paymentLinkId"`
			CheckoutURL   string `json:"checkoutUrl"`
			QRCode        string `json:"qrCode"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&providerResp); err != nil {
		return nil, fmt.Errorf("%w: invalid response body", ErrProvider)
	}

	if providerResp.Code != ResultCodeSuccess {
		return nil, fmt.Errorf("%w: %s", ErrProvider, providerResp.Desc)
	}

	return &CheckoutResponse{
		PaymentLinkID: providerResp.Data.PaymentLinkID,
		CheckoutURL:   providerResp.Data.CheckoutURL,
		QRCode:        providerResp.Data.QRCode,
	}, nil
}

// VerifyWebhookSignature checks the provider's HMAC over the raw callback body.
func (c *PayOSClient) VerifyWebhookSignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.checksumKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
