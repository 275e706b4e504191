package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnforceRole(t *testing.T) {
	tests := []struct {
		name      string
		user      User
		wantRole  Role
		wantStaff bool
	}{
		{"admin becomes staff", User{Role: RoleAdmin}, RoleAdmin, true},
		{"guard loses staff", User{Role: RoleGuard, IsStaff: true}, RoleGuard, false},
		{"superuser forced to admin", User{Role: RoleGuard, IsSuperuser: true}, RoleAdmin, true},
		{"empty role defaults to guard", User{}, RoleGuard, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			u.EnforceRole()
			assert.Equal(t, tt.wantRole, u.Role)
			assert.Equal(t, tt.wantStaff, u.IsStaff)

			// applying twice changes nothing
			u.EnforceRole()
			assert.Equal(t, tt.wantRole, u.Role)
			assert.Equal(t, tt.wantStaff, u.IsStaff)
		})
	}
}

func TestFullNameFallsBackToUsername(t *testing.T) {
	u := User{Username: "ivan"}
	assert.Equal(t, "ivan", u.FullName())

	u.FirstName, u.LastName = "Ivan", "Horvat"
	assert.Equal(t, "Ivan Horvat", u.FullName())
}

func TestDateWeekdayAndArithmetic(t *testing.T) {
	d := MustParseDate("2025-01-06") // Monday
	assert.Equal(t, 0, d.Weekday())
	assert.Equal(t, 6, d.AddDays(6).Weekday())
	assert.Equal(t, "2025-01-13", d.AddDays(7).String())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.AddDays(3).Between(d, d.AddDays(6)))
}

func TestDateAndClockJSON(t *testing.T) {
	type payload struct {
		Date  Date  `json:"date"`
		Start Clock `json:"start"`
	}

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2025-03-02","start":"11:30"}`), &p))
	assert.Equal(t, NewClock(11, 30), p.Start)
	assert.Equal(t, 6, p.Date.Weekday())

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2025-03-02","start":"11:30"}`, string(b))
}

func TestClockScan(t *testing.T) {
	var c Clock
	require.NoError(t, c.Scan("14:30:00"))
	assert.Equal(t, NewClock(14, 30), c)

	require.NoError(t, c.Scan([]byte("09:15:00.000000")))
	assert.Equal(t, NewClock(9, 15), c)

	assert.Error(t, c.Scan(3.5))
}

func TestIntListScanValue(t *testing.T) {
	var l IntList
	require.NoError(t, l.Scan([]byte("[1,2,6]")))
	assert.Equal(t, IntList{1, 2, 6}, l)
	assert.True(t, l.Contains(6))

	v, err := IntList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestExhibitionStatus(t *testing.T) {
	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	e := Exhibition{
		StartDate: now.AddDate(0, 0, -1),
		EndDate:   now.AddDate(0, 0, 1),
	}
	assert.Equal(t, ExhibitionActive, e.Status(now))
	assert.Equal(t, ExhibitionUpcoming, e.Status(now.AddDate(0, 0, -2)))
	assert.Equal(t, ExhibitionFinished, e.Status(now.AddDate(0, 0, 2)))
	assert.True(t, e.ActiveOn(DateOf(now), time.UTC))
	assert.False(t, e.ActiveOn(DateOf(now.AddDate(0, 0, 3)), time.UTC))
}

func TestActionHolds(t *testing.T) {
	assert.True(t, ActionAssigned.Holds())
	assert.True(t, ActionReplaced.Holds())
	assert.True(t, ActionSwapped.Holds())
	assert.False(t, ActionCanceled.Holds())
}

func TestPositionOverlaps(t *testing.T) {
	d := MustParseDate("2025-01-07")
	a := &Position{Date: d, StartTime: NewClock(11, 0), EndTime: NewClock(15, 0)}
	b := &Position{Date: d, StartTime: NewClock(14, 0), EndTime: NewClock(19, 0)}
	c := &Position{Date: d, StartTime: NewClock(15, 0), EndTime: NewClock(19, 0)}

	assert.True(t, a.Overlaps(b))
	assert.False(t, a.Overlaps(c))
	assert.Equal(t, 4.0, a.DurationHours())
}

func TestShiftTimesWeekend(t *testing.T) {
	s := DefaultSystemSettings()
	ms, me, as, ae := s.ShiftTimes(6)
	assert.Equal(t, NewClock(11, 0), ms)
	assert.Equal(t, NewClock(14, 30), me)
	assert.Equal(t, NewClock(14, 30), as)
	assert.Equal(t, NewClock(18, 0), ae)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.2345))
	assert.Equal(t, -2.5, Round2(-2.4999999))
}
