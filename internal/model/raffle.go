package model

import "time"

// RaffleStatus lifecycle: draft -> active -> closed -> drawn, with cancelled
// reachable from any state before the draw.
type RaffleStatus string

const (
	RaffleStatusDraft     RaffleStatus = "draft"
	RaffleStatusActive    RaffleStatus = "active"
	RaffleStatusClosed    RaffleStatus = "closed"
	RaffleStatusDrawn     RaffleStatus = "drawn"
	RaffleStatusCancelled RaffleStatus = "cancelled"
)

func (s RaffleStatus) IsValid() bool {
	switch s {
	case RaffleStatusDraft, RaffleStatusActive, RaffleStatusClosed, RaffleStatusDrawn, RaffleStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks whether the target status is reachable from s.
func (s RaffleStatus) CanTransitionTo(target RaffleStatus) bool {
	transitions := map[RaffleStatus][]RaffleStatus{
		RaffleStatusDraft:     {RaffleStatusActive, RaffleStatusCancelled},
		RaffleStatusActive:    {RaffleStatusClosed, RaffleStatusCancelled},
		RaffleStatusClosed:    {RaffleStatusDrawn, RaffleStatusCancelled},
		RaffleStatusDrawn:     {}, // terminal
		RaffleStatusCancelled: {}, // terminal
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

// AcceptsReservations reports whether new holds may be placed. Closed raffles
// reject new reservations but in-flight pending ones may still complete.
func (s RaffleStatus) AcceptsReservations() bool {
	return s == RaffleStatusActive
}

// Raffle 抽獎活動模型
type Raffle struct {
	ID           int          `json:"id" db:"id"`
	Title        string       `json:"title" db:"title"`
	Description  *string      `json:"description,omitempty" db:"description"`
	ImageURL     *string      `json:"image_url,omitempty" db:"image_url"`
	TicketPrice  float64      `json:"ticket_price" db:"ticket_price"`
	TotalNumbers int          `json:"total_numbers" db:"total_numbers"`
	DrawDate     *time.Time   `json:"draw_date,omitempty" db:"draw_date"`
	Status       RaffleStatus `json:"status" db:"status"`
	WinnerNumber *int         `json:"winner_number,omitempty" db:"winner_number"`
	WinnerName   *string      `json:"winner_name,omitempty" db:"winner_name"`
	WinnerEmail  *string      `json:"winner_email,omitempty" db:"winner_email"`
	DrawnAt      *time.Time   `json:"drawn_at,omitempty" db:"drawn_at"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// InRange checks a ticket number against [1, total_numbers].
func (r *Raffle) InRange(number int) bool {
	return number >= 1 && number <= r.TotalNumbers
}

type UpdateRaffleParams struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	ImageURL    *string    `json:"image_url"`
	TicketPrice *float64   `json:"ticket_price"`
	DrawDate    *time.Time `json:"draw_date"`
}

// RaffleResponse 附帶售出統計的公開響應
type RaffleResponse struct {
	*Raffle
	SoldNumbers      int `json:"sold_numbers"`
	ReservedNumbers  int `json:"reserved_numbers"`
	AvailableNumbers int `json:"available_numbers"`
}

// RaffleStats 管理端統計
type RaffleStats struct {
	TotalNumbers     int     `json:"total_numbers"`
	SoldNumbers      int     `json:"sold_numbers"`
	ReservedNumbers  int     `json:"reserved_numbers"`
	AvailableNumbers int     `json:"available_numbers"`
	TotalRevenue     float64 `json:"total_revenue"`
}

// Winner 開獎結果
type Winner struct {
	RaffleID     int        `json:"raffle_id"`
	RaffleTitle  string     `json:"raffle_title"`
	WinnerNumber int        `json:"winner_number"`
	WinnerName   string     `json:"winner_name"`
	WinnerEmail  string     `json:"winner_email,omitempty"`
	DrawnAt      *time.Time `json:"drawn_at,omitempty"`
}
