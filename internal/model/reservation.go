package model

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus 預約狀態類型
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusReleased  ReservationStatus = "released"
	ReservationStatusExpired   ReservationStatus = "expired"
)

func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationStatusPending, ReservationStatusConfirmed,
		ReservationStatusReleased, ReservationStatusExpired:
		return true
	}
	return false
}

// IsTerminal 確認/釋放/過期後不再變動，僅保留作稽核
func (s ReservationStatus) IsTerminal() bool {
	return s != ReservationStatusPending
}

// Buyer 買家資料，核心不解讀內容
type Buyer struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone"`
}

// Reservation 一組票號的限時持有
type Reservation struct {
	ID        uuid.UUID         `json:"id" db:"id"`
	RaffleID  int               `json:"raffle_id" db:"raffle_id"`
	Buyer     Buyer             `json:"buyer" db:"-"`
	Numbers   []int             `json:"numbers" db:"numbers"`
	Status    ReservationStatus `json:"status" db:"status"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	ExpiresAt time.Time         `json:"expires_at" db:"expires_at"`
}

// IsExpired 是否超過 TTL（只對 pending 有意義）
func (r *Reservation) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// CreateReservationRequest 預約請求
type CreateReservationRequest struct {
	Buyer         Buyer  `json:"buyer" binding:"required"`
	Numbers       []int  `json:"numbers" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required,oneof=pix credit_card boleto"`
}
