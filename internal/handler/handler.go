package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/museum-staffing/shift-manager/backend/internal/cache"
	"github.com/museum-staffing/shift-manager/backend/internal/config"
	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/museum-staffing/shift-manager/backend/internal/notify"
)

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	store      Store
	cache      cache.Store
	mail       notify.Publisher
	translator ut.Translator
	loc        *time.Location
	now        func() time.Time

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, store Store, c cache.Store, mail notify.Publisher) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	en := en.New()
	uni := ut.New(en, en)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}
	if err := registerMessages(trans, enMessages); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		store:      store,
		cache:      c,
		mail:       mail,
		translator: trans,
		loc:        cfg.Location(),
		now:        time.Now,

		Mux: chi.NewRouter(),
	}, nil
}

// RegisterRoutes mounts the API under /api. Extra middlewares run inside the
// router so they can see the matched route pattern.
func (h *Handler) RegisterRoutes(middlewares ...func(http.Handler) http.Handler) {
	h.Mux.Use(h.requestID)
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)
	for _, mw := range middlewares {
		h.Mux.Use(mw)
	}

	adminOnly := h.RequiredRole([]domain.Role{domain.RoleAdmin})

	h.Mux.Route("/api", func(r chi.Router) {
		r.Get("/health/", h.Health)

		r.With(h.throttle(scopeLogin)).Post("/login/", h.SessionLogin)
		r.Get("/auth/check/", h.SessionCheck)
		r.With(h.throttle(scopeLogin)).Post("/token/", h.ObtainTokenPair)
		r.Post("/token/refresh/", h.RefreshToken)

		// everything below needs a bearer token or a session
		r.Group(func(r chi.Router) {
			r.Use(h.auth)

			r.Post("/logout/", h.SessionLogout)
			r.Post("/token/logout/", h.TokenLogout)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.ListUsers)
				r.With(adminOnly).Post("/", h.CreateUser)
				r.Get("/me/", h.GetMe)
				r.Put("/update_profile/", h.UpdateProfile)
				r.Patch("/update_profile/", h.UpdateProfile)
				r.Post("/change_password/", h.ChangePassword)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(h.userInfo)
					r.Get("/", h.GetUser)
					r.Put("/", h.UpdateUser)
					r.Patch("/", h.UpdateUser)
					r.With(adminOnly, h.preventOperateInitialAdmin).Delete("/", h.DeactivateUser)
				})
			})

			r.Route("/guards", func(r chi.Router) {
				r.Get("/", h.ListGuards)
				r.Post("/", h.CreateGuard)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(h.guardInfo)
					r.Get("/", h.GetGuard)
					r.Put("/", h.UpdateGuard)
					r.Patch("/", h.UpdateGuard)
					r.Delete("/", h.UpdateGuard)
					for _, name := range []string{"set_availability", "set-availability"} {
						r.Post("/"+name+"/", h.SetAvailability)
					}
					for _, name := range []string{"set_work_periods", "set-work-periods"} {
						r.Post("/"+name+"/", h.SetWorkPeriods)
					}
					for _, name := range []string{"set_exhibition_preferences", "set-exhibition-preferences"} {
						r.Post("/"+name+"/", h.SetExhibitionPreferences)
					}
					for _, name := range []string{"set_day_preferences", "set-day-preferences"} {
						r.Post("/"+name+"/", h.SetDayPreferences)
					}
					for _, name := range []string{"available_days", "available-days"} {
						r.Get("/"+name+"/", h.AvailableDays)
					}
					for _, name := range []string{"available_exhibitions", "available-exhibitions"} {
						r.Get("/"+name+"/", h.AvailableExhibitions)
					}
				})
			})

			r.Route("/exhibitions", func(r chi.Router) {
				r.Get("/", h.ListExhibitions)
				r.With(adminOnly).Post("/", h.CreateExhibition)
				r.Get("/next_week/", h.NextWeekExhibitions)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(h.exhibitionInfo)
					r.Get("/", h.GetExhibition)
					r.With(adminOnly).Put("/", h.UpdateExhibition)
					r.With(adminOnly).Patch("/", h.UpdateExhibition)
					r.With(adminOnly).Delete("/", h.DeleteExhibition)
				})
			})

			r.Route("/positions", func(r chi.Router) {
				r.Get("/", h.ListPositions)
				r.With(adminOnly).Post("/", h.CreatePosition)
				r.Get("/next_week/", h.NextWeekPositions)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(h.positionInfo)
					r.Get("/", h.GetPosition)
					r.With(adminOnly).Put("/", h.UpdatePosition)
					r.With(adminOnly).Patch("/", h.UpdatePosition)
					r.With(adminOnly).Delete("/", h.DeletePosition)
					for _, name := range []string{"request_swap", "request-swap"} {
						r.With(h.throttle(scopeSwapRequest)).Post("/"+name+"/", h.RequestSwap)
					}
				})
			})

			r.Route("/position-history", func(r chi.Router) {
				r.Get("/", h.ListHistory)
				r.Get("/assigned/this-week/", h.ThisWeekSchedule)
				r.Get("/assigned/next-week/", h.NextWeekSchedule)
				r.With(h.throttle(scopeBulkCancel)).Post("/bulk-cancel/", h.BulkCancel)
				r.Get("/my-work-history/", h.MyWorkHistory)
				r.Route("/{id}", func(r chi.Router) {
					r.With(h.throttle(scopeAssign)).Post("/assign/", h.AssignPosition)
					r.With(h.throttle(scopeCancel)).Post("/cancel/", h.CancelPosition)
					r.With(h.positionInfo).Post("/report-lateness/", h.ReportLateness)
				})
			})

			r.Route("/position-swap-requests", func(r chi.Router) {
				r.Get("/", h.ListSwapRequests)
				r.Post("/", h.SwapRequestImmutable)
				r.With(adminOnly).Get("/all/", h.AllSwapRequests)
				r.With(adminOnly).Get("/all_active/", h.ActiveSwapRequests)
				r.Get("/my_requests/", h.MySwapRequests)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(h.swapRequestInfo)
					r.Get("/", h.GetSwapRequest)
					r.Put("/", h.SwapRequestImmutable)
					r.Patch("/", h.SwapRequestImmutable)
					r.Delete("/", h.DeleteSwapRequest)
					for _, name := range []string{"accept_swap", "accept-swap"} {
						r.With(h.throttle(scopeAcceptSwap)).Post("/"+name+"/", h.AcceptSwap)
					}
				})
			})

			r.Route("/admin-notifications", func(r chi.Router) {
				r.Get("/", h.ListNotifications)
				r.With(adminOnly).Post("/", h.CreateNotification)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(h.notificationInfo)
					r.Get("/", h.GetNotification)
					r.With(adminOnly).Put("/", h.UpdateNotification)
					r.With(adminOnly).Patch("/", h.UpdateNotification)
					r.With(adminOnly).Delete("/", h.DeleteNotification)
				})
			})

			r.Route("/system-settings", func(r chi.Router) {
				r.Get("/", h.GetActiveSettings)
				r.With(adminOnly).Post("/", h.CreateSettings)
				r.Get("/current/", h.GetActiveSettings)
				r.Get("/workdays/", h.GetWorkdays)
				r.Get("/history/", h.ListSettings)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetSettings)
					r.With(adminOnly).Put("/", h.UpdateSettings)
					r.With(adminOnly).Patch("/", h.UpdateSettings)
					r.Delete("/", h.DeleteSettings)
				})
			})

			r.Route("/points", func(r chi.Router) {
				r.Get("/", h.ListPoints)
				r.With(adminOnly).Post("/", h.CreatePoint)
				for _, name := range []string{"penalize_unannounced_lateness", "penalize-unannounced-lateness"} {
					r.With(adminOnly).Post("/"+name+"/", h.PenalizeUnannouncedLateness)
				}
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetPoint)
					r.With(adminOnly).Delete("/", h.DeletePoint)
				})
			})

			r.Route("/non-working-days", func(r chi.Router) {
				r.Get("/", h.ListNonWorkingDays)
				r.With(adminOnly).Post("/", h.CreateNonWorkingDay)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(h.nonWorkingDayInfo)
					r.Get("/", h.GetNonWorkingDay)
					r.With(adminOnly).Put("/", h.UpdateNonWorkingDay)
					r.With(adminOnly).Patch("/", h.UpdateNonWorkingDay)
					r.With(adminOnly).Delete("/", h.DeleteNonWorkingDay)
				})
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/", h.ListReports)
				r.Post("/", h.CreateReport)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetReport)
					r.Put("/", h.ReportImmutable)
					r.Patch("/", h.ReportImmutable)
					r.Delete("/", h.ReportImmutable)
				})
			})

			r.Route("/hourly-rates", func(r chi.Router) {
				r.Get("/", h.ListHourlyRates)
				r.Get("/{id}/", h.GetHourlyRate)
			})
		})
	})
}

// sendMail hands the message to the publisher. A failure never fails the request.
func (h *Handler) sendMail(ctx context.Context, msg domain.MailMessage) {
	if h.mail == nil || msg.To == "" {
		return
	}
	if err := h.mail.Publish(ctx, msg); err != nil {
		slog.Warn("failed to queue mail", "type", msg.Type, "to", msg.To, "error", err)
	}
}
