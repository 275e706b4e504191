package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGenerateUsernameIsASCII(t *testing.T) {
	re := regexp.MustCompile(`^[a-z]+[0-9]{1,3}$`)
	for range 20 {
		assert.Regexp(t, re, GenerateUsername("Šime", "Kovačević"))
	}
	assert.Regexp(t, `^skovacevic`, GenerateUsername("Šime", "Kovačević"))
}

func TestGenerateRandomGuard(t *testing.T) {
	u, err := GenerateRandomGuard("guard12345", "museum.example")
	require.NoError(t, err)

	assert.Equal(t, domain.RoleGuard, u.Role)
	assert.True(t, u.IsActive)
	assert.Equal(t, u.Username+"@museum.example", u.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("guard12345")))
}

func TestGenerateRandomPassword(t *testing.T) {
	assert.Len(t, GenerateRandomPassword(12), 12)
	assert.NotEqual(t, GenerateRandomPassword(32), GenerateRandomPassword(32))
}

func TestGenerateRandomPeriodsAreDistinct(t *testing.T) {
	periods := GenerateRandomPeriods([]int{0, 2, 4}, 4)
	require.Len(t, periods, 4)

	seen := make(map[domain.PeriodKey]bool)
	for _, p := range periods {
		assert.False(t, seen[p], "duplicate %v", p)
		seen[p] = true
		assert.Contains(t, []int{0, 2, 4}, p.Day)
	}

	assert.Len(t, GenerateRandomPeriods([]int{1}, 10), 2)
}

func TestValidateWorkdays(t *testing.T) {
	assert.NoError(t, ValidateWorkdays([]int{0, 1, 6}))
	assert.Error(t, ValidateWorkdays(nil))
	assert.Error(t, ValidateWorkdays([]int{7}))
	assert.Error(t, ValidateWorkdays([]int{1, 1}))
}

func TestValidateSettings(t *testing.T) {
	s := domain.DefaultSystemSettings()
	require.NoError(t, ValidateSettings(s))

	s.WeekdayAfternoonStart = domain.NewClock(14, 0)
	assert.ErrorContains(t, ValidateSettings(s), "weekday afternoon")

	s = domain.DefaultSystemSettings()
	s.DayForAssignments = 0
	s.TimeOfAssignments = domain.NewClock(8, 0)
	assert.Error(t, ValidateSettings(s))

	s = domain.DefaultSystemSettings()
	s.PointsLifeWeeks = 0
	assert.Error(t, ValidateSettings(s))
}

func TestValidateExhibition(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, time.October, d, 0, 0, 0, 0, time.UTC) }
	workdays := domain.IntList{1, 2, 3, 4, 5, 6}

	e := &domain.Exhibition{StartDate: day(1), EndDate: day(30), OpenOn: domain.IntList{1, 3}}
	assert.NoError(t, ValidateExhibition(e, workdays))

	e.OpenOn = domain.IntList{0}
	assert.Error(t, ValidateExhibition(e, workdays))

	e.OpenOn = nil
	e.EndDate = day(1).Add(-time.Hour)
	assert.Error(t, ValidateExhibition(e, workdays))

	start, end := domain.NewClock(20, 0), domain.NewClock(18, 0)
	e = &domain.Exhibition{StartDate: day(1), EndDate: day(1), IsSpecialEvent: true, EventStartTime: &start, EventEndTime: &end}
	assert.Error(t, ValidateExhibition(e, workdays))
}

func TestSetDiff(t *testing.T) {
	missing, extra := SetDiff([]int{3, 1, 2}, []int{2, 5, 4, 2})
	if diff := cmp.Diff([]int{1, 3}, missing); diff != "" {
		t.Errorf("missing (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{4, 5}, extra); diff != "" {
		t.Errorf("extra (-want +got):\n%s", diff)
	}

	missingNames, extraNames := SetDiff([]string{"a"}, []string{"a"})
	assert.Empty(t, missingNames)
	assert.Empty(t, extraNames)
}
