package model

import "github.com/google/uuid"

// NumberState 票號狀態類型
type NumberState string

const (
	NumberStateAvailable NumberState = "available"
	NumberStateReserved  NumberState = "reserved"
	NumberStateSold      NumberState = "sold"
)

func (s NumberState) IsValid() bool {
	switch s {
	case NumberStateAvailable, NumberStateReserved, NumberStateSold:
		return true
	}
	return false
}

// TicketNumber 單一票號及其持有者
// ReservationID is set while reserved or sold; PurchaseID only once sold.
type TicketNumber struct {
	RaffleID      int         `json:"raffle_id" db:"raffle_id"`
	Number        int         `json:"number" db:"number"`
	State         NumberState `json:"state" db:"state"`
	ReservationID *uuid.UUID  `json:"reservation_id,omitempty" db:"reservation_id"`
	PurchaseID    *uuid.UUID  `json:"purchase_id,omitempty" db:"purchase_id"`
}

// NumberSnapshot is a consistent point-in-time view of one raffle's board.
// The three sets always partition [1, total_numbers].
type NumberSnapshot struct {
	RaffleID     int   `json:"raffle_id"`
	TotalNumbers int   `json:"total_numbers"`
	Available    []int `json:"available_numbers"`
	Reserved     []int `json:"reserved_numbers"`
	Sold         []int `json:"sold_numbers"`
}
