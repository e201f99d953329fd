package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pesocoin/colorgame/internal/approval"
	"github.com/pesocoin/colorgame/internal/auth"
	"github.com/pesocoin/colorgame/internal/funding"
	"github.com/pesocoin/colorgame/internal/payments"
	"github.com/pesocoin/colorgame/internal/reporting"
	"github.com/pesocoin/colorgame/internal/wallet"
)

// RegisterAuthRoutes wires the token endpoints used by the chat adapter.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler) {
	group := r.Group("/auth")
	group.Post("/token", h.Token)
	group.Post("/refresh", h.Refresh)
}

// RegisterWalletRoutes wires balance lookups.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/balance", h.Me)
	r.Get("/balance/:member", h.Of)
}

// RegisterPaymentRoutes wires gifts and the admin economy tools.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler, g Guards) {
	r.Post("/gifts", h.Gift)

	admin := r.Group("/admin", g.Owner)
	admin.Post("/give", h.Give)
	admin.Post("/giveaway", h.Giveaway)
	admin.Post("/adjust", h.Adjust)
	admin.Post("/adjust-given", h.AdjustGiven)
	admin.Post("/adjust-profits", h.AdjustProfits)
	admin.Post("/reset-balances", h.ResetBalances)
	admin.Post("/reset-profits", h.ResetProfits)
	admin.Post("/reset-history", h.ResetHistory)
}

// RegisterFundingRoutes wires withdrawals, redemptions and their approvals.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler, approvals *approval.Handler) {
	r.Get("/rewards", h.Rewards)
	r.Post("/withdrawals", h.Withdraw)
	r.Post("/redemptions", h.Redeem)

	r.Get("/approvals/:token", approvals.Get)
	r.Post("/approvals/:token/approve", approvals.Approve)
	r.Post("/approvals/:token/cancel", approvals.Cancel)
}

// RegisterReportingRoutes wires the read-only reports.
func RegisterReportingRoutes(r fiber.Router, h *reporting.Handler, g Guards) {
	r.Get("/leaderboard", h.Leaderboard)
	r.Get("/history", h.History)
	r.Get("/bets", h.ActiveBets)
	r.Get("/profits", g.Owner, h.Profits)
}
