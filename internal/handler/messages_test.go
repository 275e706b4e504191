package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagesAreRegistered(t *testing.T) {
	env := newTestEnv(t)

	for key, text := range enMessages {
		got, err := env.h.translator.T(key)
		require.NoError(t, err, key)
		assert.Equal(t, text, got)
		assert.Equal(t, text, env.h.message(key))
	}
	assert.Equal(t, "no_such_message", env.h.message("no_such_message"))
}

func TestAdminGuardFieldMessagesUseTranslator(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/guards/7/set_availability/", testAdmin, map[string]any{"available_shifts": 3})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, enMessages[msgAdminGuardConfig], body.Message)

	rec, body = env.do(t, http.MethodPatch, "/api/users/2/", testAdmin, map[string]any{"availability": 5})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, enMessages[msgAdminGuardFields], body.Message)

	// replacing the translation changes what clients see
	require.NoError(t, env.h.translator.Add(msgAdminGuardProfile, "guard profiles are read-only for administrators", true))
	rec, body = env.do(t, http.MethodPut, "/api/guards/7/", testAdmin, map[string]any{"availability": 5})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "guard profiles are read-only for administrators", body.Message)
}
