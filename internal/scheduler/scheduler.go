package scheduler

import (
	"slices"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

type Scheduler struct {
	parameters *Parameters
	settings   *domain.SystemSettings
	candidates []*Candidate
	positions  []*domain.Position // only regular, still empty positions
}

func New(parameters *Parameters, settings *domain.SystemSettings, candidates []*Candidate, positions []*domain.Position) *Scheduler {
	if parameters == nil {
		parameters = DefaultParameters()
	}

	s := &Scheduler{
		parameters: parameters,
		settings:   settings,
		candidates: make([]*Candidate, 0, len(candidates)),
		positions:  make([]*domain.Position, 0, len(positions)),
	}

	for _, c := range candidates {
		if c.Slots > 0 {
			s.candidates = append(s.candidates, c)
		}
	}

	for _, p := range positions {
		if p.Exhibition != nil && p.Exhibition.IsSpecialEvent {
			continue
		}
		s.positions = append(s.positions, p)
	}
	sortPositions(s.positions)

	return s
}

type slot struct {
	candidate *Candidate
}

func (s *Scheduler) normalisedPriorities() map[int64]float64 {
	out := make(map[int64]float64, len(s.candidates))
	if len(s.candidates) == 0 {
		return out
	}

	lo, hi := s.candidates[0].Guard.Priority(), s.candidates[0].Guard.Priority()
	for _, c := range s.candidates[1:] {
		lo = min(lo, c.Guard.Priority())
		hi = max(hi, c.Guard.Priority())
	}

	for _, c := range s.candidates {
		if hi == lo {
			out[c.Guard.ID] = 0.5
			continue
		}
		out[c.Guard.ID] = (c.Guard.Priority() - lo) / (hi - lo)
	}
	return out
}

func (s *Scheduler) score(c *Candidate, prio float64, p *domain.Position) float64 {
	if !MatchesPeriods(s.settings, p, c.Periods) {
		return impossible
	}
	exhibitionScore := RankScore(c.ExhibitionOrder, p.ExhibitionID)
	dayScore := RankScore(c.DayOrder, p.Date.Weekday())
	return s.parameters.PriorityWeight*prio +
		s.parameters.ExhibitionWeight*exhibitionScore/2 +
		s.parameters.DayWeight*dayScore/2
}

// Schedule computes a maximum-weight matching of guard slots to positions.
func (s *Scheduler) Schedule() *Result {
	result := &Result{Assignments: make([]Assignment, 0)}

	slots := make([]slot, 0)
	for _, c := range s.candidates {
		for range c.Slots {
			slots = append(slots, slot{candidate: c})
		}
	}
	result.TotalSlots = len(slots)

	if len(slots) == 0 || len(s.positions) == 0 {
		return result
	}

	prios := s.normalisedPriorities()
	weights := make([][]float64, len(slots))
	for i, sl := range slots {
		weights[i] = make([]float64, len(s.positions))
		for j, p := range s.positions {
			weights[i][j] = s.score(sl.candidate, prios[sl.candidate.Guard.ID], p)
		}
	}

	matched := maxWeightMatching(weights)

	perGuard := make(map[int64][]Assignment)
	guardOrder := make([]int64, 0)
	for i, j := range matched {
		if j < 0 {
			continue
		}
		result.Proposed++
		if weights[i][j] <= impossible {
			result.FilteredImpossible++
			continue
		}
		guardID := slots[i].candidate.Guard.ID
		if _, ok := perGuard[guardID]; !ok {
			guardOrder = append(guardOrder, guardID)
		}
		perGuard[guardID] = append(perGuard[guardID], Assignment{
			GuardID:    guardID,
			PositionID: s.positions[j].ID,
			Score:      weights[i][j],
		})
	}

	byID := make(map[int64]*domain.Position, len(s.positions))
	for _, p := range s.positions {
		byID[p.ID] = p
	}

	for _, guardID := range guardOrder {
		proposed := perGuard[guardID]
		slices.SortStableFunc(proposed, func(a, b Assignment) int {
			switch {
			case a.Score > b.Score:
				return -1
			case a.Score < b.Score:
				return 1
			}
			return int(a.PositionID - b.PositionID)
		})

		kept := make([]*domain.Position, 0, len(proposed))
		for _, a := range proposed {
			p := byID[a.PositionID]
			if slices.ContainsFunc(kept, p.Overlaps) {
				result.FilteredOverlapping++
				continue
			}
			kept = append(kept, p)
			result.Assignments = append(result.Assignments, a)
		}
	}

	slices.SortStableFunc(result.Assignments, func(a, b Assignment) int {
		pa, pb := byID[a.PositionID], byID[b.PositionID]
		switch {
		case pa.Date.Before(pb.Date):
			return -1
		case pa.Date.After(pb.Date):
			return 1
		case pa.StartTime != pb.StartTime:
			return int(pa.StartTime - pb.StartTime)
		}
		return int(a.PositionID - b.PositionID)
	})

	return result
}
