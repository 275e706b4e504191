package domain

import (
	"errors"
	"time"
)

type CastType string

const (
	CastBroadcast CastType = "broadcast"
	CastUnicast   CastType = "unicast"
	CastMulticast CastType = "multicast"
)

func (c CastType) Valid() bool {
	return c == CastBroadcast || c == CastUnicast || c == CastMulticast
}

// Notification is an announcement shown to every user (broadcast), to one
// user (unicast) or to the guards working the positions it targets (multicast).
type Notification struct {
	ID               int64      `json:"id"`
	CreatedByID      *int64     `json:"created_by_id"`
	Title            string     `json:"title"`
	Message          string     `json:"message"`
	CastType         CastType   `json:"cast_type"`
	ToUserID         *int64     `json:"to_user_id"`
	NotificationDate *Date      `json:"notification_date"`
	ShiftType        *ShiftType `json:"shift_type"`
	ExhibitionID     *int64     `json:"exhibition_id"`
	ExpiresAt        *time.Time `json:"expires_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

var (
	ErrUnicastWithoutUser    = errors.New("unicast notification must have to_user_id set")
	ErrMulticastWithoutDate  = errors.New("multicast notification must have notification_date set")
	ErrUnknownCastType       = errors.New("cast_type must be broadcast, unicast or multicast")
	ErrUnknownShiftType      = errors.New("shift_type must be morning or afternoon")
	ErrNotificationNoMessage = errors.New("title and message are required")
)

func (n *Notification) Validate() error {
	if n.Title == "" || n.Message == "" {
		return ErrNotificationNoMessage
	}
	if n.ShiftType != nil && !n.ShiftType.Valid() {
		return ErrUnknownShiftType
	}
	switch n.CastType {
	case CastBroadcast:
	case CastUnicast:
		if n.ToUserID == nil {
			return ErrUnicastWithoutUser
		}
	case CastMulticast:
		if n.NotificationDate == nil {
			return ErrMulticastWithoutDate
		}
	default:
		return ErrUnknownCastType
	}
	return nil
}

// Expired reports whether the notification is past its expiry at now.
func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && n.ExpiresAt.Before(now)
}
