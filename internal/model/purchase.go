package model

import (
	"time"

	"github.com/google/uuid"
)

// PurchaseStatus 訂單付款狀態類型
type PurchaseStatus string

const (
	PurchaseStatusAwaitingPayment PurchaseStatus = "awaiting_payment"
	PurchaseStatusPaid            PurchaseStatus = "paid"
	PurchaseStatusFailed          PurchaseStatus = "failed"
)

func (s PurchaseStatus) IsValid() bool {
	switch s {
	case PurchaseStatusAwaitingPayment, PurchaseStatusPaid, PurchaseStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo 檢查是否可以轉換到目標狀態
func (s PurchaseStatus) CanTransitionTo(target PurchaseStatus) bool {
	transitions := map[PurchaseStatus][]PurchaseStatus{
		PurchaseStatusAwaitingPayment: {PurchaseStatusPaid, PurchaseStatusFailed},
		PurchaseStatusPaid:            {},
		PurchaseStatusFailed:          {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// Purchase 與預約綁定的付款紀錄
// Amount = len(reservation.Numbers) × raffle.TicketPrice.
type Purchase struct {
	ID               uuid.UUID      `json:"id" db:"id"`
	ReservationID    uuid.UUID      `json:"reservation_id" db:"reservation_id"`
	Amount           float64        `json:"amount" db:"amount"`
	PaymentMethod    string         `json:"payment_method" db:"payment_method"`
	PaymentReference string         `json:"payment_reference" db:"payment_reference"`
	Status           PurchaseStatus `json:"status" db:"status"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
}

// PaymentEventType gateway callback outcome.
type PaymentEventType string

const (
	PaymentEventSucceeded PaymentEventType = "succeeded"
	PaymentEventFailed    PaymentEventType = "failed"
)

// PaymentEvent 閘道非同步通知，經由隊列投遞給 worker
// Delivery may be duplicated or out of order; handlers must stay idempotent.
type PaymentEvent struct {
	PaymentID  string           `json:"payment_id"`
	Type       PaymentEventType `json:"type"`
	Reason     string           `json:"reason,omitempty"`
	ReceivedAt time.Time        `json:"received_at"`
}
