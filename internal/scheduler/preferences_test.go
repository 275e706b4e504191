package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

func TestResolveWorkPeriods(t *testing.T) {
	week := domain.MustParseDate("2025-01-13")
	old := domain.MustParseDate("2025-01-06")

	template := &domain.WorkPeriod{ID: 1, DayOfWeek: 0, ShiftType: domain.ShiftMorning, IsTemplate: true, NextWeekStart: &old}
	specific := &domain.WorkPeriod{ID: 2, DayOfWeek: 2, ShiftType: domain.ShiftAfternoon, NextWeekStart: &week}
	history := &domain.WorkPeriod{ID: 3, DayOfWeek: 4, ShiftType: domain.ShiftMorning, NextWeekStart: &old}

	assert.Equal(t, []*domain.WorkPeriod{specific}, ResolveWorkPeriods([]*domain.WorkPeriod{template, specific, history}, week))
	assert.Equal(t, []*domain.WorkPeriod{template}, ResolveWorkPeriods([]*domain.WorkPeriod{template, history}, week))
	assert.Nil(t, ResolveWorkPeriods([]*domain.WorkPeriod{history}, week))
}

func TestResolveOrders(t *testing.T) {
	week := domain.MustParseDate("2025-01-13")
	other := domain.MustParseDate("2025-01-06")

	exhibitions := []*domain.ExhibitionPreference{
		{GuardID: 1, ExhibitionOrder: domain.Int64List{3, 2, 1}, IsTemplate: true},
		{GuardID: 1, ExhibitionOrder: domain.Int64List{1, 2, 3}, NextWeekStart: &week},
		{GuardID: 2, ExhibitionOrder: domain.Int64List{2, 1}, IsTemplate: true},
		{GuardID: 3, ExhibitionOrder: domain.Int64List{2, 1}, NextWeekStart: &other},
	}
	assert.Equal(t, []int64{1, 2, 3}, ResolveExhibitionOrder(exhibitions, 1, week))
	assert.Equal(t, []int64{2, 1}, ResolveExhibitionOrder(exhibitions, 2, week))
	assert.Nil(t, ResolveExhibitionOrder(exhibitions, 3, week))

	days := []*domain.DayPreference{
		{GuardID: 1, DayOrder: domain.IntList{6, 5}, IsTemplate: true},
	}
	assert.Equal(t, []int{6, 5}, ResolveDayOrder(days, 1, week))
	assert.Nil(t, ResolveDayOrder(days, 2, week))
}

func TestPositionSets(t *testing.T) {
	positions := []*domain.Position{
		{ExhibitionID: 4, Date: domain.MustParseDate("2025-01-15")},
		{ExhibitionID: 2, Date: domain.MustParseDate("2025-01-13")},
		{ExhibitionID: 4, Date: domain.MustParseDate("2025-01-19")},
	}

	assert.Equal(t, []int64{2, 4}, ExhibitionSet(positions))
	assert.Equal(t, []int{0, 2, 6}, WeekdaySet(positions))
	assert.Empty(t, WeekdaySet(nil))
}

func TestSamePeriods(t *testing.T) {
	a := map[domain.PeriodKey]bool{{Day: 0, Shift: domain.ShiftMorning}: true}
	b := map[domain.PeriodKey]bool{{Day: 0, Shift: domain.ShiftMorning}: true}
	c := map[domain.PeriodKey]bool{{Day: 1, Shift: domain.ShiftMorning}: true}

	assert.True(t, SamePeriods(a, b))
	assert.False(t, SamePeriods(a, c))
}
