package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter registers every bank route. metrics, when non-nil, is served on
// /metrics; signingSecret enables request signing for mutating routes.
func NewRouter(cmds Commands, metrics http.Handler, signingSecret string) http.Handler {
	h := NewHandler(cmds)
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireSignature(signingSecret))

		r.Get("/market/quotes", h.StockDataHandler)

		r.Route("/players/{playerId}", func(r chi.Router) {
			r.Post("/account", h.CreateAccountHandler)
			r.Get("/account", h.OverviewHandler)
			r.Post("/deposit", h.DepositHandler)
			r.Post("/withdraw", h.WithdrawHandler)
			r.Post("/transfer", h.TransferHandler)
			r.Post("/cash/add", h.AddCashHandler)
			r.Post("/cash/remove", h.RemoveCashHandler)

			r.Post("/savings", h.CreateSavingsHandler)
			r.Get("/savings", h.ListSavingsHandler)
			r.Post("/savings/{savingsId}/deposit", h.DepositSavingsHandler)
			r.Post("/savings/{savingsId}/withdraw", h.WithdrawSavingsHandler)
			r.Delete("/savings/{savingsId}", h.CloseSavingsHandler)

			r.Post("/orders", h.CreateOrderHandler)
			r.Get("/orders", h.ListOrdersHandler)
			r.Post("/orders/{orderId}/pause", orderHandler(cmds.PauseOrder))
			r.Post("/orders/{orderId}/resume", orderHandler(cmds.ResumeOrder))
			r.Delete("/orders/{orderId}", orderHandler(cmds.DeleteOrder))

			r.Post("/loan", h.ApplyForLoanHandler)
			r.Post("/loan/repay", h.RepayLoanHandler)
			r.Get("/credit", h.CreditDataHandler)
		})
	})

	return r
}
