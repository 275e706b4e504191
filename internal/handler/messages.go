package handler

import (
	ut "github.com/go-playground/universal-translator"
)

// Translation keys for messages that are not validator errors.
const (
	msgAdminGuardProfile = "admin_guard_profile"
	msgAdminGuardConfig  = "admin_guard_config"
	msgAdminGuardFields  = "admin_guard_fields"
	msgAdminGuardOnly    = "admin_guard_only"
)

var enMessages = map[string]string{
	msgAdminGuardProfile: "administrators cannot modify guard profiles",
	msgAdminGuardConfig:  "administrators cannot change guard configuration, only guards can",
	msgAdminGuardFields:  "administrators cannot change guard availability, priority, work periods or preferences, only guards can",
	msgAdminGuardOnly:    "administrators cannot access guard-only endpoints",
}

func registerMessages(trans ut.Translator, messages map[string]string) error {
	for key, text := range messages {
		if err := trans.Add(key, text, false); err != nil {
			return err
		}
	}
	return nil
}

// message looks key up in the handler's translator and returns the key itself
// when no translation is registered.
func (h *Handler) message(key string) string {
	text, err := h.translator.T(key)
	if err != nil {
		return key
	}
	return text
}
