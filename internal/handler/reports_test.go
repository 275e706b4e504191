package handler

import (
	"net/http"
	"testing"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReportMailsReception(t *testing.T) {
	env := newTestEnv(t)
	env.h.config.Email.Reception = "reception@museum.example"
	addPosition(env.store, 10, "2026-10-16", domain.NewClock(11, 0), domain.NewClock(15, 0))

	rec, body := env.do(t, http.MethodPost, "/api/reports/", testGuard, map[string]any{
		"position_id":          10,
		"position_explanation": "Main hall",
		"report_text":          "A visitor touched the painting.",
	})
	require.Equal(t, http.StatusCreated, rec.Code, body.Message)
	require.Len(t, env.store.reports, 1)
	assert.Equal(t, int64(7), env.store.reports[0].GuardID)

	require.Len(t, env.mail.sent, 1)
	msg := env.mail.sent[0]
	assert.Equal(t, domain.MailGuardReport, msg.Type)
	assert.Equal(t, "reception@museum.example", msg.To)
	data, ok := msg.Data.(domain.GuardReportMailData)
	require.True(t, ok)
	assert.Equal(t, "Ana Horvat", data.GuardName)
	assert.Equal(t, "Impressionists", data.ExhibitionName)
	assert.Equal(t, "2026-10-16", data.Date)
}

func TestCreateReportFallsBackToAdmins(t *testing.T) {
	env := newTestEnv(t)
	addPosition(env.store, 10, "2026-10-16", domain.NewClock(11, 0), domain.NewClock(15, 0))

	rec, _ := env.do(t, http.MethodPost, "/api/reports/", testGuard, map[string]any{
		"position_id": 10,
		"report_text": "Alarm went off twice.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, env.mail.sent, 1)
	assert.Equal(t, testAdmin.Email, env.mail.sent[0].To)
}

func TestCreateReportRules(t *testing.T) {
	env := newTestEnv(t)
	addPosition(env.store, 10, "2026-10-16", domain.NewClock(11, 0), domain.NewClock(15, 0))

	rec, _ := env.do(t, http.MethodPost, "/api/reports/", testAdmin, map[string]any{"position_id": 10, "report_text": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/reports/", testGuard, map[string]any{"position_id": 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/reports/", testGuard, map[string]any{"position_id": 77, "report_text": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, env.store.reports)
	assert.Empty(t, env.mail.sent)
}

func TestReportsAreImmutable(t *testing.T) {
	env := newTestEnv(t)

	for _, method := range []string{http.MethodPut, http.MethodPatch, http.MethodDelete} {
		rec, _ := env.do(t, method, "/api/reports/1/", testAdmin, map[string]any{"report_text": "edited"})
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
	}
}
