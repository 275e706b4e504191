package domain

import "time"

type SwapStatus string

const (
	SwapPending   SwapStatus = "pending"
	SwapAccepted  SwapStatus = "accepted"
	SwapCancelled SwapStatus = "cancelled"
	SwapExpired   SwapStatus = "expired"
)

// SwapRequest offers a held position to any guard able to take it in
// exchange for one of theirs. It expires when the position starts.
type SwapRequest struct {
	ID                int64      `json:"id"`
	RequestingGuardID int64      `json:"requesting_guard_id"`
	PositionToSwapID  int64      `json:"position_to_swap_id"`
	Status            SwapStatus `json:"status"`
	AcceptedByGuardID *int64     `json:"accepted_by_guard_id"`
	PositionOfferedID *int64     `json:"position_offered_in_return_id"`
	ExpiresAt         time.Time  `json:"expires_at"`
	AcceptedAt        *time.Time `json:"accepted_at"`
	CreatedAt         time.Time  `json:"created_at"`
	PositionToSwap    *Position  `json:"position_to_swap,omitempty"`
	RequestingGuard   *Guard     `json:"requesting_guard,omitempty"`
}

func (s *SwapRequest) Active(now time.Time) bool {
	return s.Status == SwapPending && s.ExpiresAt.After(now)
}

// SwapFilter narrows a swap request listing. Nil fields match everything.
type SwapFilter struct {
	RequestingGuardID *int64
	PositionID        *int64
	Status            *SwapStatus
	ExpiresAfter      *time.Time
	ExpiresNotAfter   *time.Time
}
