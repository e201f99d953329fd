package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/pesocoin/colorgame/internal/approval"
	"github.com/pesocoin/colorgame/internal/audit"
	"github.com/pesocoin/colorgame/internal/auth"
	"github.com/pesocoin/colorgame/internal/config"
	"github.com/pesocoin/colorgame/internal/funding"
	"github.com/pesocoin/colorgame/internal/game"
	"github.com/pesocoin/colorgame/internal/identity"
	"github.com/pesocoin/colorgame/internal/ledger"
	"github.com/pesocoin/colorgame/internal/middleware"
	"github.com/pesocoin/colorgame/internal/notification"
	"github.com/pesocoin/colorgame/internal/payments"
	"github.com/pesocoin/colorgame/internal/reporting"
	"github.com/pesocoin/colorgame/internal/round"
	"github.com/pesocoin/colorgame/internal/wager"
	"github.com/pesocoin/colorgame/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes. DB, Cache and
// NATS are optional in development.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	NATS   *nats.Conn
	Logger *slog.Logger
}

// Services are the wired domain services behind the routes.
type Services struct {
	Ledger    ledger.Store
	Book      wager.Book
	Members   *identity.Service
	Auth      *auth.Service
	Round     *round.Controller
	Approvals *approval.Workflow
	Wallet    *wallet.Service
	Payments  *payments.Service
	Funding   *funding.Service
	Reporting *reporting.Service
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (*Services, error) {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	svc, err := Build(d)
	if err != nil {
		return nil, err
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	api := app.Group("/api/v1")
	authHandler := auth.NewHandler(svc.Auth)
	RegisterAuthRoutes(api, authHandler)

	protected := api.Group("", middleware.Bearer(svc.Auth))
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	protected.Post("/auth/revoke", authHandler.Revoke)

	guards := Guards{
		Privileged: middleware.RequirePrivileged(svc.Members),
		Owner:      middleware.RequireOwner(svc.Members),
		WagerLimit: middleware.WagerRateLimit(d.Cache, d.Cfg.WagerRateLimit),
	}
	RegisterRoundRoutes(protected, round.NewHandler(svc.Round), guards)
	RegisterWalletRoutes(protected, wallet.NewHandler(svc.Wallet))
	RegisterPaymentRoutes(protected, payments.NewHandler(svc.Payments), guards)
	RegisterFundingRoutes(protected, funding.NewHandler(svc.Funding), approval.NewHandler(svc.Approvals))
	RegisterReportingRoutes(protected, reporting.NewHandler(svc.Reporting), guards)

	return svc, nil
}

// Build constructs every domain service over the configured backends.
func Build(d Deps) (*Services, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store, err := ledgerStore(d)
	if err != nil {
		return nil, err
	}

	var (
		book        wager.Book
		history     audit.History
		events      audit.Store
		memberStore identity.Repository
	)
	if d.DB != nil {
		book = wager.NewPostgresBook(d.DB)
		history = audit.NewPostgresHistory(d.DB)
		events = audit.NewPostgresStore(d.DB)
		memberStore = identity.NewPostgresRepository(d.DB)
	} else {
		book = wager.NewMemoryBook()
		history = audit.NewMemoryHistory()
		events = audit.NewMemoryStore()
		memberStore = identity.NewMemoryRepository()
	}

	notifier := notification.Multi{notification.NewLoggerNotifier(logger)}
	if d.NATS != nil {
		notifier = append(notifier, notification.NewNATSNotifier(d.NATS))
	}

	members := identity.NewService(memberStore, identity.Options{
		AdminRole: d.Cfg.AdminRole,
		OwnerID:   d.Cfg.OwnerID,
		SystemID:  d.Cfg.SystemID,
	})

	rules := d.Cfg.Game
	colors := make([]game.Color, 0, len(rules.Colors))
	for _, c := range rules.Colors {
		colors = append(colors, game.Color(c))
	}
	ctl, err := round.NewController(round.Config{
		Palette:      game.NewPalette(colors),
		WagerCap:     rules.WagerCap,
		SessionCap:   rules.SessionCap,
		Countdown:    rules.BettingTimer,
		Tick:         rules.CountdownTick,
		AdminChannel: d.Cfg.AdminChannel,
	}, round.Deps{
		Ledger:   store,
		Book:     book,
		History:  history,
		Events:   events,
		Notifier: notifier,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	approvals, err := approval.NewWorkflow(approval.Config{
		Timeout:  d.Cfg.ApprovalTimeout,
		SystemID: d.Cfg.SystemID,
		Channel:  d.Cfg.AdminChannel,
	}, members.IsPrivileged, notifier, logger)
	if err != nil {
		return nil, err
	}

	rewards := make([]funding.Reward, 0, len(rules.Rewards))
	for _, r := range rules.Rewards {
		rewards = append(rewards, funding.Reward{Key: r.Key, Name: r.Name, Cost: r.Cost})
	}
	fundingSvc, err := funding.NewService(store, events, approvals, rewards, logger)
	if err != nil {
		return nil, err
	}

	return &Services{
		Ledger:    store,
		Book:      book,
		Members:   members,
		Auth:      auth.NewService(d.Cfg, members),
		Round:     ctl,
		Approvals: approvals,
		Wallet:    wallet.NewService(store, book),
		Payments:  payments.NewService(store, events, history, notifier, logger),
		Funding:   fundingSvc,
		Reporting: reporting.NewService(store, history, events, book),
	}, nil
}

func ledgerStore(d Deps) (ledger.Store, error) {
	switch d.Cfg.LedgerBackend {
	case config.BackendPostgres:
		if d.DB == nil {
			return nil, fmt.Errorf("ledger backend %q requires DATABASE_URL", d.Cfg.LedgerBackend)
		}
		return ledger.NewPostgresStore(d.DB), nil
	case config.BackendRedis:
		if d.Cache == nil {
			return nil, fmt.Errorf("ledger backend %q requires REDIS_URL", d.Cfg.LedgerBackend)
		}
		return ledger.NewRedisStore(d.Cache), nil
	case config.BackendMemory, "":
		return ledger.NewInMemory(), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", d.Cfg.LedgerBackend)
	}
}
