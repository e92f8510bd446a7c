// Package gateway talks to the OpenPix (Woovi) PIX charge API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tripbook/internal/domain"
	"tripbook/internal/utils"

	"go.uber.org/zap"
)

const (
	SandboxBaseURL    = "https://api.woovi-sandbox.com"
	ProductionBaseURL = "https://api.openpix.com.br"

	// ChargeExpiresIn is the fixed lifetime of every charge, in seconds.
	ChargeExpiresIn = 3600
)

// Customer is optional payer data attached to a charge.
type Customer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// ChargeRequest is the body of POST /api/v1/charge.
type ChargeRequest struct {
	CorrelationID string    `json:"correlationID"`
	Value         int64     `json:"value"`
	Comment       string    `json:"comment,omitempty"`
	Customer      *Customer `json:"customer,omitempty"`
	ExpiresIn     int       `json:"expiresIn"`
}

// Charge is the subset of the gateway's charge object the engine uses.
type Charge struct {
	CorrelationID string `json:"correlationID"`
	Value         int64  `json:"value"`
	Identifier    string `json:"identifier"`
	TransactionID string `json:"transactionID"`
	GlobalID      string `json:"globalID"`
	BrCode        string `json:"brCode"`
	QRCodeImage   string `json:"qrCodeImage"`
	ExpiresDate   string `json:"expiresDate"`
	Status        string `json:"status"`
}

// ExpiresAt parses ExpiresDate, nil when absent.
func (c Charge) ExpiresAt() *time.Time {
	return utils.ParseGatewayTime(c.ExpiresDate)
}

type chargeResponse struct {
	Charge Charge `json:"charge"`
	BrCode string `json:"brCode"`
	Error  string `json:"error"`
}

// Client calls the charge endpoint with the app id as Authorization header.
type Client struct {
	BaseURL    string
	AppID      string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewClient picks the sandbox or production base URL.
func NewClient(appID string, sandbox bool, logger *zap.Logger) *Client {
	base := ProductionBaseURL
	if sandbox {
		base = SandboxBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		BaseURL:    base,
		AppID:      strings.TrimSpace(appID),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Logger:     logger,
	}
}

// CreateCharge requests a PIX charge. Any non-2xx answer or transport failure
// is returned as domain.GatewayError carrying the provider message.
func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (Charge, error) {
	if c.AppID == "" {
		return Charge{}, domain.GatewayError{Msg: "OPENPIX_APP_ID belum dikonfigurasi"}
	}
	if req.ExpiresIn == 0 {
		req.ExpiresIn = ChargeExpiresIn
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Charge{}, domain.GatewayError{Msg: "encode charge", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.BaseURL, "/")+"/api/v1/charge", bytes.NewReader(body))
	if err != nil {
		return Charge{}, domain.GatewayError{Msg: "build charge request", Err: err}
	}
	httpReq.Header.Set("Authorization", c.AppID)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		c.Logger.Error("gateway charge request failed", zap.String("correlation_id", req.CorrelationID), zap.Error(err))
		return Charge{}, domain.GatewayError{Msg: "gateway tidak dapat dihubungi", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Charge{}, domain.GatewayError{StatusCode: resp.StatusCode, Msg: "read charge response", Err: err}
	}

	var out chargeResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(out.Error)
		if msg == "" {
			msg = fmt.Sprintf("gateway menolak charge (HTTP %d)", resp.StatusCode)
		}
		c.Logger.Warn("gateway rejected charge",
			zap.String("correlation_id", req.CorrelationID),
			zap.Int("status", resp.StatusCode),
			zap.String("provider_error", msg),
		)
		return Charge{}, domain.GatewayError{StatusCode: resp.StatusCode, Msg: msg}
	}
	if decodeErr != nil {
		return Charge{}, domain.GatewayError{StatusCode: resp.StatusCode, Msg: "respons gateway tidak valid", Err: decodeErr}
	}

	ch := out.Charge
	if ch.BrCode == "" {
		ch.BrCode = out.BrCode
	}
	if ch.CorrelationID == "" {
		ch.CorrelationID = req.CorrelationID
	}
	return ch, nil
}
