package payment

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockGateway 開發與測試用的假閘道
// Mirrors the real contract: CreatePayment answers pending and the outcome is
// delivered later through the webhook (tests call the coordinator directly).
type MockGateway struct {
	mu      sync.Mutex
	created []PaymentRequest
	// FailNext makes the next CreatePayment return err, then resets.
	FailNext error
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (g *MockGateway) CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.FailNext != nil {
		err := g.FailNext
		g.FailNext = nil
		return nil, err
	}

	g.created = append(g.created, req)

	paymentID := "MOCK-" + uuid.New().String()
	intent := &PaymentIntent{
		PaymentID: paymentID,
		Status:    "pending",
	}

	switch req.Method {
	case "pix":
		intent.QRCode = fmt.Sprintf("00020126MOCKPIX%s", paymentID)
		intent.QRCodeBase64 = base64.StdEncoding.EncodeToString([]byte(intent.QRCode))
	case "boleto":
		intent.BoletoURL = fmt.Sprintf("https://mock.gateway/boleto/%s", paymentID)
	}

	return intent, nil
}

// Created returns a copy of every request the gateway accepted.
func (g *MockGateway) Created() []PaymentRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]PaymentRequest, len(g.created))
	copy(out, g.created)
	return out
}
