package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"raffle-service/config"
	apperrors "raffle-service/pkg/app_errors"
)

// RESTGateway Mercado Pago 風格的 JSON API 客戶端
type RESTGateway struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

func NewRESTGateway(cfg *config.GatewayConfig) *RESTGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTGateway{
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		client:      &http.Client{Timeout: timeout},
	}
}

type createPaymentBody struct {
	TransactionAmount float64      `json:"transaction_amount"`
	Description       string       `json:"description"`
	PaymentMethodID   string       `json:"payment_method_id"`
	ExternalReference string       `json:"external_reference"`
	Payer             paymentPayer `json:"payer"`
}

type paymentPayer struct {
	Email string `json:"email"`
	Name  string `json:"first_name,omitempty"`
}

type createPaymentResponse struct {
	ID                 int64  `json:"id"`
	Status             string `json:"status"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

func (g *RESTGateway) CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentIntent, error) {
	body, err := json.Marshal(createPaymentBody{
		TransactionAmount: req.Amount,
		Description:       req.Description,
		PaymentMethodID:   req.Method,
		ExternalReference: req.ReferenceID,
		Payer:             paymentPayer{Email: req.PayerEmail, Name: req.PayerName},
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/payments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.accessToken)
	// the gateway deduplicates retried creates on this key
	httpReq.Header.Set("X-Idempotency-Key", req.ReferenceID)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		// timeouts and connection errors are retryable for the buyer
		return nil, fmt.Errorf("%w: %v", apperrors.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: gateway returned %d", apperrors.ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: gateway rejected payment (%d)", apperrors.ErrInvalidInput, resp.StatusCode)
	}

	var payload createPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", apperrors.ErrGatewayUnavailable, err)
	}

	return &PaymentIntent{
		PaymentID:    fmt.Sprintf("%d", payload.ID),
		Status:       payload.Status,
		QRCode:       payload.PointOfInteraction.TransactionData.QRCode,
		QRCodeBase64: payload.PointOfInteraction.TransactionData.QRCodeBase64,
		BoletoURL:    payload.PointOfInteraction.TransactionData.TicketURL,
	}, nil
}
