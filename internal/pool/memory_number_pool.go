package pool

import (
	"context"
	"sync"
	"time"

	"raffle-service/internal/model"
	apperrors "raffle-service/pkg/app_errors"

	"github.com/google/uuid"
)

// MemoryNumberPool 記憶體版 NumberPool
// One timed mutex per raffle; acquisition past the bound returns ErrPoolBusy
// instead of queueing callers indefinitely.
type MemoryNumberPool struct {
	mu          sync.RWMutex
	raffles     map[int]*memoryBoard
	lockTimeout time.Duration
}

type memoryBoard struct {
	sem     chan struct{} // capacity 1, the per-raffle critical section
	total   int
	entries map[int]*numberEntry
}

type numberEntry struct {
	state         model.NumberState
	reservationID uuid.UUID
	purchaseID    uuid.UUID
}

func NewMemoryNumberPool(lockTimeout time.Duration) *MemoryNumberPool {
	return &MemoryNumberPool{
		raffles:     make(map[int]*memoryBoard),
		lockTimeout: lockTimeout,
	}
}

func (p *MemoryNumberPool) board(raffleID int) (*memoryBoard, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	board, ok := p.raffles[raffleID]
	if !ok {
		return nil, apperrors.ErrRaffleNotFound
	}
	return board, nil
}

// acquire enters the raffle's critical section, giving up after the
// contention bound or when the caller's context ends.
func (b *memoryBoard) acquire(ctx context.Context, timeout time.Duration) (func(), error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
		return func() { <-b.sem }, nil
	case <-timer.C:
		return nil, apperrors.ErrPoolBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *MemoryNumberPool) InitRaffle(ctx context.Context, raffleID int, totalNumbers int) error {
	if totalNumbers < 1 {
		return apperrors.ErrInvalidInput
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.raffles[raffleID]; ok {
		return nil
	}

	entries := make(map[int]*numberEntry, totalNumbers)
	for n := 1; n <= totalNumbers; n++ {
		entries[n] = &numberEntry{state: model.NumberStateAvailable}
	}

	p.raffles[raffleID] = &memoryBoard{
		sem:     make(chan struct{}, 1),
		total:   totalNumbers,
		entries: entries,
	}

	return nil
}

func (p *MemoryNumberPool) Snapshot(ctx context.Context, raffleID int) (*model.NumberSnapshot, error) {
	board, err := p.board(raffleID)
	if err != nil {
		return nil, err
	}

	release, err := board.acquire(ctx, p.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	snapshot := &model.NumberSnapshot{
		RaffleID:     raffleID,
		TotalNumbers: board.total,
		Available:    make([]int, 0),
		Reserved:     make([]int, 0),
		Sold:         make([]int, 0),
	}

	// iterate in number order so the sets come out sorted
	for n := 1; n <= board.total; n++ {
		switch board.entries[n].state {
		case model.NumberStateAvailable:
			snapshot.Available = append(snapshot.Available, n)
		case model.NumberStateReserved:
			snapshot.Reserved = append(snapshot.Reserved, n)
		case model.NumberStateSold:
			snapshot.Sold = append(snapshot.Sold, n)
		}
	}

	return snapshot, nil
}

func (p *MemoryNumberPool) AvailableCount(ctx context.Context, raffleID int) (int, error) {
	board, err := p.board(raffleID)
	if err != nil {
		return 0, err
	}

	release, err := board.acquire(ctx, p.lockTimeout)
	if err != nil {
		return 0, err
	}
	defer release()

	count := 0
	for _, entry := range board.entries {
		if entry.state == model.NumberStateAvailable {
			count++
		}
	}

	return count, nil
}

func (p *MemoryNumberPool) TryReserve(ctx context.Context, raffleID int, numbers []int, reservationID uuid.UUID) error {
	board, err := p.board(raffleID)
	if err != nil {
		return err
	}

	release, err := board.acquire(ctx, p.lockTimeout)
	if err != nil {
		return err
	}
	defer release()

	// first pass: collect conflicts, touch nothing
	conflicting := make([]int, 0)
	for _, n := range numbers {
		entry, ok := board.entries[n]
		if !ok {
			return apperrors.ErrNumberOutOfRange
		}
		if entry.state != model.NumberStateAvailable {
			conflicting = append(conflicting, n)
		}
	}

	if len(conflicting) > 0 {
		return apperrors.NewNumbersUnavailableError(conflicting)
	}

	for _, n := range numbers {
		entry := board.entries[n]
		entry.state = model.NumberStateReserved
		entry.reservationID = reservationID
	}

	return nil
}

func (p *MemoryNumberPool) ConfirmSale(ctx context.Context, raffleID int, reservationID uuid.UUID, purchaseID uuid.UUID) error {
	board, err := p.board(raffleID)
	if err != nil {
		return err
	}

	release, err := board.acquire(ctx, p.lockTimeout)
	if err != nil {
		return err
	}
	defer release()

	reserved := make([]*numberEntry, 0)
	alreadySold := 0
	for _, entry := range board.entries {
		if entry.reservationID != reservationID {
			continue
		}
		switch entry.state {
		case model.NumberStateReserved:
			reserved = append(reserved, entry)
		case model.NumberStateSold:
			alreadySold++
		}
	}

	if len(reserved) == 0 {
		if alreadySold > 0 {
			return nil // duplicate confirmation, already applied
		}
		return apperrors.ErrInvalidState
	}

	for _, entry := range reserved {
		entry.state = model.NumberStateSold
		entry.purchaseID = purchaseID
	}

	return nil
}

func (p *MemoryNumberPool) Release(ctx context.Context, raffleID int, reservationID uuid.UUID) error {
	board, err := p.board(raffleID)
	if err != nil {
		return err
	}

	release, err := board.acquire(ctx, p.lockTimeout)
	if err != nil {
		return err
	}
	defer release()

	for _, entry := range board.entries {
		if entry.state == model.NumberStateReserved && entry.reservationID == reservationID {
			entry.state = model.NumberStateAvailable
			entry.reservationID = uuid.UUID{}
		}
	}

	return nil
}
