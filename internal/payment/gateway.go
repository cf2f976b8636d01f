package payment

import "context"

// PaymentRequest is everything the core hands to the gateway. PIX/card/boleto
// specifics stay on the gateway side of this contract.
type PaymentRequest struct {
	Amount      float64
	Method      string // pix, credit_card, boleto
	Description string
	PayerEmail  string
	PayerName   string
	// ReferenceID correlates the gateway payment back to our purchase.
	ReferenceID string
}

// PaymentIntent 閘道建立付款後的回執
type PaymentIntent struct {
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
	QRCode       string `json:"qr_code,omitempty"`
	QRCodeBase64 string `json:"qr_code_base64,omitempty"`
	BoletoURL    string `json:"boleto_url,omitempty"`
}

// Gateway is the external payment collaborator. The outcome arrives later as
// an asynchronous succeeded/failed notification on the webhook.
type Gateway interface {
	CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentIntent, error)
}
