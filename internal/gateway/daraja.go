package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"smartdalali_backend/internal/config"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingCredentials = errors.New("mpesa credentials are not configured")
	ErrGatewayRejected    = errors.New("gateway rejected the request")
)

// StkPusher is what the payment initiator needs from the gateway.
type StkPusher interface {
	STKPush(ctx context.Context, req *STKPushParams) (*STKPushResponse, error)
}

// STKPushParams describes one charge attempt sent to the gateway.
type STKPushParams struct {
	Phone            string
	Amount           decimal.Decimal
	AccountReference string
	TransactionDesc  string
	CallbackURL      string
}

// STKPushResponse is the gateway's synchronous acknowledgement. Raw holds
// the response body verbatim for auditing.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`

	Raw json.RawMessage `json:"-"`
}

// DarajaClient talks to the Safaricom Daraja API: OAuth token fetch plus
// the STK push endpoint. The HTTP client carries an explicit timeout so a
// hanging gateway cannot tie up a request indefinitely.
type DarajaClient struct {
	consumerKey    string
	consumerSecret string
	shortCode      string
	passkey        string
	baseURL        string
	httpClient     *http.Client
}

// NewDarajaClient builds a client from config. It fails when any credential
// is missing; callers map that failure to "gateway unavailable", never to a
// success.
func NewDarajaClient(cfg MpesaSettings) (*DarajaClient, error) {
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" || cfg.ShortCode == "" || cfg.Passkey == "" {
		return nil, ErrMissingCredentials
	}

	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &DarajaClient{
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		shortCode:      cfg.ShortCode,
		passkey:        cfg.Passkey,
		baseURL:        cfg.BaseURL,
		httpClient:     &http.Client{Timeout: timeout},
	}, nil
}

// MpesaSettings mirrors config.MpesaConfig; a separate type keeps the
// gateway package independent of the config loader in tests.
type MpesaSettings struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	BaseURL        string
	TimeoutSecs    int
}

func SettingsFromConfig(cfg config.MpesaConfig) MpesaSettings {
	return MpesaSettings{
		ConsumerKey:    cfg.ConsumerKey,
		ConsumerSecret: cfg.ConsumerSecret,
		ShortCode:      cfg.ShortCode,
		Passkey:        cfg.Passkey,
		BaseURL:        cfg.BaseURL,
		TimeoutSecs:    cfg.TimeoutSecs,
	}
}

// Authenticate fetches an OAuth bearer token.
func (c *DarajaClient) Authenticate(ctx context.Context) (string, error) {
	url := c.baseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth request failed with status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}
	if tokenResp.AccessToken == "" {
		return "", errors.New("auth response has no access token")
	}

	return tokenResp.AccessToken, nil
}

// STKPush issues a CustomerPayBillOnline push to the given phone. Any
// transport failure, non-2xx status or response without a
// CheckoutRequestID is an error; a payment must never be persisted for a
// push the gateway did not accept.
func (c *DarajaClient) STKPush(ctx context.Context, params *STKPushParams) (*STKPushResponse, error) {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("daraja auth: %w", err)
	}

	timestamp := time.Now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(c.shortCode + c.passkey + timestamp))

	body := map[string]interface{}{
		"BusinessShortCode": c.shortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            params.Amount.String(),
		"PartyA":            params.Phone,
		"PartyB":            c.shortCode,
		"PhoneNumber":       params.Phone,
		"CallBackURL":       params.CallbackURL,
		"AccountReference":  params.AccountReference,
		"TransactionDesc":   params.TransactionDesc,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := c.baseURL + "/mpesa/stkpush/v1/processrequest"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrGatewayRejected, resp.StatusCode, string(raw))
	}

	var pushResp STKPushResponse
	if err := json.Unmarshal(raw, &pushResp); err != nil {
		return nil, fmt.Errorf("decode stk push response: %w", err)
	}
	pushResp.Raw = raw

	if pushResp.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: response has no CheckoutRequestID", ErrGatewayRejected)
	}

	return &pushResp, nil
}
