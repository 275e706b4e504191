package scheduler

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func testSettings() *domain.SystemSettings {
	s := domain.DefaultSystemSettings()
	ShiftWeeks(s, domain.MustParseDate("2025-01-06"))
	return s
}

func guard(id int64, priority float64, availability int) *domain.Guard {
	return &domain.Guard{ID: id, PriorityNumber: ptr(priority), Availability: ptr(availability)}
}

func allPeriods() map[domain.PeriodKey]bool {
	out := map[domain.PeriodKey]bool{}
	for d := range 7 {
		out[domain.PeriodKey{Day: d, Shift: domain.ShiftMorning}] = true
		out[domain.PeriodKey{Day: d, Shift: domain.ShiftAfternoon}] = true
	}
	return out
}

func position(id int64, date string, start, end domain.Clock) *domain.Position {
	return &domain.Position{
		ID:           id,
		ExhibitionID: 1,
		Date:         domain.MustParseDate(date),
		StartTime:    start,
		EndTime:      end,
	}
}

func TestMaxWeightMatchingSquare(t *testing.T) {
	weights := [][]float64{
		{1, 9, 1},
		{9, 1, 1},
		{1, 1, 9},
	}
	assert.Equal(t, []int{1, 0, 2}, maxWeightMatching(weights))
}

func TestMaxWeightMatchingRectangular(t *testing.T) {
	// more rows than columns
	weights := [][]float64{
		{5, 1},
		{6, 2},
		{1, 7},
	}
	got := maxWeightMatching(weights)
	assert.Equal(t, []int{-1, 0, 1}, got)

	// more columns than rows
	got = maxWeightMatching([][]float64{{1, 2, 10}})
	assert.Equal(t, []int{2}, got)
}

func TestScheduleRespectsPeriodsAndOverlaps(t *testing.T) {
	s := testSettings()
	morning, morningEnd := s.WeekdayMorningStart, s.WeekdayMorningEnd
	afternoon, afternoonEnd := s.WeekdayAfternoonStart, s.WeekdayAfternoonEnd

	positions := []*domain.Position{
		position(1, "2025-01-14", morning, morningEnd),
		position(2, "2025-01-14", morning, morningEnd), // same slot, different exhibition copy
		position(3, "2025-01-14", afternoon, afternoonEnd),
		position(4, "2025-01-15", morning, morningEnd),
	}

	onlyTuesdayMorning := map[domain.PeriodKey]bool{{Day: 1, Shift: domain.ShiftMorning}: true}

	candidates := []*Candidate{
		{Guard: guard(10, 5, 3), Slots: 3, Periods: onlyTuesdayMorning},
		{Guard: guard(20, 1, 1), Slots: 1, Periods: allPeriods()},
	}

	result := New(nil, s, candidates, positions).Schedule()

	assert.Equal(t, 4, result.TotalSlots)
	for _, a := range result.Assignments {
		if a.GuardID == 10 {
			assert.Contains(t, []int64{1, 2}, a.PositionID)
		}
	}

	held := map[int64][]*domain.Position{}
	byID := map[int64]*domain.Position{}
	for _, p := range positions {
		byID[p.ID] = p
	}
	for _, a := range result.Assignments {
		p := byID[a.PositionID]
		for _, other := range held[a.GuardID] {
			assert.False(t, p.Overlaps(other), "guard %d holds overlapping positions", a.GuardID)
		}
		held[a.GuardID] = append(held[a.GuardID], p)
	}
	assert.Len(t, held[10], 1)
	assert.Greater(t, result.FilteredImpossible+result.FilteredOverlapping, 0)
}

func TestSchedulePrefersHigherPriority(t *testing.T) {
	s := testSettings()
	positions := []*domain.Position{
		position(1, "2025-01-14", s.WeekdayMorningStart, s.WeekdayMorningEnd),
	}
	candidates := []*Candidate{
		{Guard: guard(1, 1, 1), Slots: 1, Periods: allPeriods()},
		{Guard: guard(2, 9, 1), Slots: 1, Periods: allPeriods()},
	}

	result := New(nil, s, candidates, positions).Schedule()

	want := []Assignment{{GuardID: 2, PositionID: 1}}
	if diff := cmp.Diff(want, result.Assignments, cmpopts.IgnoreFields(Assignment{}, "Score")); diff != "" {
		t.Errorf("assignments mismatch (-want +got):\n%s", diff)
	}
}

func TestScheduleUsesExhibitionPreference(t *testing.T) {
	s := testSettings()
	a := position(1, "2025-01-14", s.WeekdayMorningStart, s.WeekdayMorningEnd)
	b := position(2, "2025-01-14", s.WeekdayMorningStart, s.WeekdayMorningEnd)
	b.ExhibitionID = 2

	candidates := []*Candidate{
		{Guard: guard(1, 1, 1), Slots: 1, Periods: allPeriods(), ExhibitionOrder: []int64{2, 1}},
	}

	result := New(nil, s, candidates, []*domain.Position{a, b}).Schedule()
	require.Len(t, result.Assignments, 1)
	assert.Equal(t, int64(2), result.Assignments[0].PositionID)
}

func TestScheduleSkipsSpecialEvents(t *testing.T) {
	s := testSettings()
	p := position(1, "2025-01-14", s.WeekdayMorningStart, s.WeekdayMorningEnd)
	p.Exhibition = &domain.Exhibition{ID: 1, IsSpecialEvent: true}

	result := New(nil, s, []*Candidate{{Guard: guard(1, 1, 1), Slots: 1, Periods: allPeriods()}}, []*domain.Position{p}).Schedule()
	assert.Empty(t, result.Assignments)
}

func TestRankScore(t *testing.T) {
	order := []int64{7, 8, 9}
	assert.Equal(t, 2.0, RankScore(order, 7))
	assert.Equal(t, 1.0, RankScore(order, 8))
	assert.Equal(t, 0.0, RankScore(order, 9))
	assert.Equal(t, 1.0, RankScore(order, 42))
	assert.Equal(t, 1.0, RankScore([]int64{7}, 7))
	assert.Equal(t, 1.0, RankScore[int](nil, 3))
}

func TestMatchesPeriodsBoundary(t *testing.T) {
	s := testSettings()
	afternoon := position(1, "2025-01-14", s.WeekdayAfternoonStart, s.WeekdayAfternoonEnd)
	morningOnly := map[domain.PeriodKey]bool{{Day: 1, Shift: domain.ShiftMorning}: true}

	assert.False(t, MatchesPeriods(s, afternoon, morningOnly))
	assert.True(t, MatchesPeriods(s, afternoon, allPeriods()))
}

func TestFallbackPeriods(t *testing.T) {
	s := testSettings()
	positions := []*domain.Position{
		position(1, "2025-01-14", s.WeekdayMorningStart, s.WeekdayMorningEnd),
		position(2, "2025-01-19", s.WeekendAfternoonStart, s.WeekendAfternoonEnd),
	}
	got := FallbackPeriods(s, positions)
	assert.Equal(t, map[domain.PeriodKey]bool{
		{Day: 1, Shift: domain.ShiftMorning}:   true,
		{Day: 6, Shift: domain.ShiftAfternoon}: true,
	}, got)
}

func TestMaxAvailability(t *testing.T) {
	s := testSettings()
	weekStart := *s.NextWeekStart
	morning := domain.ShiftMorning
	nonWorking := []*domain.NonWorkingDay{
		{Date: weekStart.AddDays(1), IsFullDay: true},
		{Date: weekStart.AddDays(2), NonWorkingShift: &morning},
		{Date: weekStart.AddDays(0), IsFullDay: true},  // Monday is not a workday
		{Date: weekStart.AddDays(20), IsFullDay: true}, // outside the week
	}
	assert.Equal(t, 12, MaxAvailability(s, weekStart, nil))
	assert.Equal(t, 9, MaxAvailability(s, weekStart, nonWorking))
}
