package handler

import (
	"context"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

type ContextKey string

var (
	RequestIDCtxKey  ContextKey = "requestID"
	CurrentUserCtx   ContextKey = "currentUser"
	SessionIDCtx     ContextKey = "sessionID"
	UserInfoCtx      ContextKey = "userInfo"
	GuardInfoCtx     ContextKey = "guardInfo"
	ExhibitionCtx    ContextKey = "exhibition"
	PositionCtx      ContextKey = "position"
	NonWorkingDayCtx ContextKey = "nonWorkingDay"
	SwapRequestCtx   ContextKey = "swapRequest"
	NotificationCtx  ContextKey = "notification"
)

func currentUser(ctx context.Context) *domain.User {
	u, _ := ctx.Value(CurrentUserCtx).(*domain.User)
	return u
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDCtxKey).(string)
	return id
}
