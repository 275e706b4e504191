package scheduler

import (
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

const sundayMultiplier = 1.5

// RateAt returns the rate of the latest history entry effective at t, or fallback.
// history must be ordered by EffectiveFrom ascending.
func RateAt(history []*domain.HourlyRate, t time.Time, fallback float64) float64 {
	rate := fallback
	for _, h := range history {
		if h.EffectiveFrom.After(t) {
			break
		}
		rate = h.Rate
	}
	return rate
}

type Earning struct {
	DurationHours  float64
	BaseHourlyRate float64
	HourlyRate     float64
	IsSunday       bool
	Earnings       float64
}

func PositionEarnings(p *domain.Position, baseRate float64) Earning {
	e := Earning{
		DurationHours:  domain.Round2(p.DurationHours()),
		BaseHourlyRate: baseRate,
		HourlyRate:     baseRate,
		IsSunday:       p.Date.Weekday() == 6,
	}
	if e.IsSunday {
		e.HourlyRate = domain.Round2(baseRate * sundayMultiplier)
	}
	e.Earnings = domain.Round2(p.DurationHours() * e.HourlyRate)
	return e
}
