package repository

import (
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

var swapColumns = append(append([]string{}, positionColumns...),
	"s_id", "requesting_guard_id", "position_to_swap_id", "status", "accepted_by_guard_id",
	"position_offered_id", "expires_at", "accepted_at", "s_created_at",
)

func swapRow(id, guardID, positionID int64, status string, expires time.Time) []driver.Value {
	row := positionRow(positionID, "2025-01-08", "11:00:00", "15:00:00")
	return append(row, id, guardID, positionID, status, nil, nil, expires, nil, expires.Add(-48*time.Hour))
}

func TestBlacklistToken(t *testing.T) {
	repo, mock := newMockRepository(t)
	expires := time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO token_blacklist").
		WithArgs("jti-1", int64(7), expires).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.BlacklistToken("jti-1", 7, expires))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM token_blacklist WHERE jti = $1)")).
		WithArgs("jti-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	revoked, err := repo.IsTokenBlacklisted("jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM token_blacklist WHERE expires_at <= $1")).
		WithArgs(expires).
		WillReturnResult(sqlmock.NewResult(0, 3))
	n, err := repo.FlushExpiredTokens(expires)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSwapRequest_DefaultsToPending(t *testing.T) {
	repo, mock := newMockRepository(t)
	expires := time.Date(2025, 1, 8, 11, 0, 0, 0, time.UTC)
	created := expires.Add(-time.Hour)

	mock.ExpectQuery("INSERT INTO position_swap_requests").
		WithArgs(int64(7), int64(10), domain.SwapPending, expires).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(4, created))

	s := &domain.SwapRequest{RequestingGuardID: 7, PositionToSwapID: 10, ExpiresAt: expires}
	require.NoError(t, repo.CreateSwapRequest(s))
	assert.Equal(t, int64(4), s.ID)
	assert.Equal(t, domain.SwapPending, s.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSwapRequestByID(t *testing.T) {
	repo, mock := newMockRepository(t)
	expires := time.Date(2025, 1, 8, 11, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.id = $1")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(swapColumns).AddRow(swapRow(4, 7, 10, "pending", expires)...))

	s, err := repo.GetSwapRequestByID(4)
	require.NoError(t, err)
	assert.Equal(t, int64(7), s.RequestingGuardID)
	assert.Equal(t, domain.SwapPending, s.Status)
	assert.Nil(t, s.AcceptedByGuardID)
	require.NotNil(t, s.PositionToSwap)
	assert.Equal(t, "Impressionists", s.PositionToSwap.Exhibition.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireSwapRequest(t *testing.T) {
	expires := time.Date(2025, 1, 8, 11, 0, 0, 0, time.UTC)
	now := expires.Add(time.Hour)
	penalty := func(s *domain.SwapRequest) *domain.Point {
		return &domain.Point{GuardID: s.RequestingGuardID, Points: -5, DateAwarded: now, Explanation: "no-show"}
	}

	t.Run("requester still holds the position", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF s")).
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows(swapColumns).AddRow(swapRow(4, 7, 10, "pending", expires)...))
		mock.ExpectExec("UPDATE position_swap_requests").
			WithArgs(domain.SwapExpired, nil, nil, nil, int64(4)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM position_history").
			WithArgs(int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "position_id", "guard_id", "action", "action_time"}).
				AddRow(1, 10, 7, "ASSIGNED", expires.Add(-72*time.Hour)))
		mock.ExpectQuery("INSERT INTO position_history").
			WithArgs(int64(10), int64(7), domain.ActionCanceled, now).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
		mock.ExpectQuery("INSERT INTO points").
			WithArgs(int64(7), -5.0, now, "no-show").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
		mock.ExpectCommit()

		expired, err := repo.ExpireSwapRequest(4, now, penalty)
		require.NoError(t, err)
		assert.True(t, expired)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already settled", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF s")).
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows(swapColumns).AddRow(swapRow(4, 7, 10, "accepted", expires)...))
		mock.ExpectCommit()

		expired, err := repo.ExpireSwapRequest(4, now, penalty)
		require.NoError(t, err)
		assert.False(t, expired)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
