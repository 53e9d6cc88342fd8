package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/mmeshcher/fundvault/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware платформы.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(h.metrics.Middleware)
	if len(h.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusOK, "ok", nil)
	})
	r.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
		})

		r.Get("/prices/{fund}", h.GetPrice)
		r.Get("/settings/public", h.GetPublicSettings)

		r.Route("/user", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
			r.Get("/dashboard", h.GetDashboard)

			r.Post("/investments", h.SubmitInvestment)
			r.Get("/investments", h.ListInvestments)
			r.Get("/investments/{id}", h.GetInvestment)

			r.Get("/transactions", h.ListTransactions)

			r.Post("/withdrawals", h.CreateWithdrawal)
			r.Get("/withdrawals", h.ListWithdrawals)

			r.Get("/commissions", h.ListCommissions)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)
			r.Use(custommiddleware.RequireAdmin)

			r.Get("/stats", h.GetStats)

			r.Get("/users", h.ListUsers)
			r.Post("/users/{id}/status", h.SetUserStatus)

			r.Get("/investments", h.ListInvestmentsByStatus)
			r.Post("/investments/{id}/status", h.TransitionInvestment)

			r.Get("/withdrawals", h.ListWithdrawalsByStatus)
			r.Post("/withdrawals/{id}/status", h.TransitionWithdrawal)

			r.Get("/settings", h.GetSettings)
			r.Put("/settings", h.UpdateSettings)

			r.Post("/profits/distribute", h.DistributeProfits)
			r.Post("/bonuses/unlock", h.UnlockBonuses)
			r.Post("/lottery/draw", h.RunLotteryDraw)
			r.Get("/lottery/winners", h.ListLotteryWinners)

			r.Post("/test-data/clear", h.ClearTestData)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeFail(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeFail(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
