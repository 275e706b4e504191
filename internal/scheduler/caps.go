package scheduler

import (
	"slices"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

// CalculateAvailabilityCaps trims guard availability until the total fits the
// number of positions. Each round lowers the guards sitting at the highest cap;
// when several share it, only those with the lowest priority are lowered.
func CalculateAvailabilityCaps(guards []*domain.Guard, totalPositions int) (map[int64]int, bool) {
	caps := make(map[int64]int, len(guards))
	demand := 0
	for _, g := range guards {
		caps[g.ID] = g.AvailabilityValue()
		demand += caps[g.ID]
	}

	if demand <= totalPositions {
		return caps, false
	}

	for demand > totalPositions {
		top := 0
		for _, c := range caps {
			top = max(top, c)
		}
		if top == 0 {
			break
		}

		atTop := make([]*domain.Guard, 0)
		for _, g := range guards {
			if caps[g.ID] == top {
				atTop = append(atTop, g)
			}
		}

		if len(atTop) > 1 {
			lowest := slices.MinFunc(atTop, func(a, b *domain.Guard) int {
				switch {
				case a.Priority() < b.Priority():
					return -1
				case a.Priority() > b.Priority():
					return 1
				}
				return 0
			}).Priority()
			for _, g := range atTop {
				if g.Priority() == lowest {
					caps[g.ID]--
					demand--
				}
			}
			continue
		}

		caps[atTop[0].ID]--
		demand--
	}

	return caps, true
}

// CalculateMinimum raises the weekly minimum while the guards at the current
// lowest count can all be lifted by one using the remaining empty positions.
func CalculateMinimum(emptyPositions int, counts []int) int {
	if emptyPositions <= 0 || len(counts) == 0 {
		return 0
	}

	counts = slices.Clone(counts)
	minimum := slices.Min(counts)
	for emptyPositions > 0 {
		current := slices.Min(counts)
		needed := 0
		for _, c := range counts {
			if c == current {
				needed++
			}
		}
		if needed > emptyPositions {
			break
		}
		for i, c := range counts {
			if c == current {
				counts[i]++
			}
		}
		emptyPositions -= needed
		minimum = current + 1
	}

	return minimum
}
