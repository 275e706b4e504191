package scheduler

import (
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

// PointsWindow is one week of the point history, [Start, End).
// Totals only holds guards that received at least one point entry that week.
type PointsWindow struct {
	Start  time.Time
	End    time.Time
	Totals map[int64]float64
}

// PriorityWeeks returns the week boundaries counted backwards from the start of today.
func PriorityWeeks(now time.Time, lifeWeeks int) []PointsWindow {
	y, m, d := now.Date()
	cycleStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	out := make([]PointsWindow, 0, lifeWeeks)
	for i := range lifeWeeks {
		end := cycleStart.AddDate(0, 0, -7*i)
		out = append(out, PointsWindow{
			Start:  end.AddDate(0, 0, -7),
			End:    end,
			Totals: map[int64]float64{},
		})
	}
	return out
}

// CalculatePriority weighs each week's points by 1/(1+0.2i), with the most recent week at full weight.
// A guard without points in a week they had not joined yet inherits the other guards' average.
func CalculatePriority(guardID int64, joined time.Time, windows []PointsWindow) float64 {
	total := 0.0
	for i, w := range windows {
		points, ok := w.Totals[guardID]
		if !ok {
			if joined.Before(w.Start) {
				points = 0
			} else {
				points = averageExcept(w.Totals, guardID)
			}
		}

		factor := 1.0
		if i > 0 {
			factor = 1 + 0.2*float64(i)
		}
		total += points / factor
	}
	return domain.Round2(total)
}

func averageExcept(totals map[int64]float64, guardID int64) float64 {
	sum, n := 0.0, 0
	for id, v := range totals {
		if id == guardID {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// InitialPriority is the average priority of existing guards, or 1.0 when there are none.
func InitialPriority(others []float64) float64 {
	if len(others) == 0 {
		return 1.0
	}
	sum := 0.0
	for _, p := range others {
		sum += p
	}
	return domain.Round2(sum / float64(len(others)))
}
