package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tokenforge/tokenforge/internal/bank"
	"github.com/tokenforge/tokenforge/internal/config"
	"github.com/tokenforge/tokenforge/internal/event"
	"github.com/tokenforge/tokenforge/internal/factory"
	"github.com/tokenforge/tokenforge/internal/middleware"
	"github.com/tokenforge/tokenforge/internal/token"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Event bus: structured-log sink always, Postgres journal when available.
	bus := event.NewBus()
	if err := event.AttachLogger(bus, d.Logger); err != nil {
		return err
	}
	if d.DB != nil {
		if err := event.NewPostgresJournal(d.DB, d.Logger).Attach(bus); err != nil {
			return err
		}
	}

	var bankBackend bank.Bank
	if d.DB != nil {
		bankBackend = bank.NewPostgresBank(d.DB)
	} else {
		bankBackend = bank.NewInMemory()
	}

	var registryRepo factory.Repository
	if d.DB != nil {
		registryRepo = factory.NewPostgresRepository(d.DB)
	} else {
		registryRepo = factory.NewMemoryRepository()
	}

	fee, err := token.ParseAmount(d.Cfg.CreationFee)
	if err != nil {
		return fmt.Errorf("parse creation fee: %w", err)
	}

	ctx := context.Background()
	treasury := token.Address(d.Cfg.FactoryTreasury)
	if err := bankBackend.EnsureAccount(ctx, treasury); err != nil {
		return fmt.Errorf("provision treasury account: %w", err)
	}

	fab, err := factory.New(ctx, factory.Config{
		Owner:       token.Address(d.Cfg.FactoryOwner),
		Treasury:    treasury,
		CreationFee: fee,
		Template:    token.Blueprint{Bus: bus},
		Bank:        bankBackend,
		Repo:        registryRepo,
		Bus:         bus,
	})
	if err != nil {
		return fmt.Errorf("build factory: %w", err)
	}

	factoryHandler := factory.NewHandler(fab)
	tokenHandler := token.NewHandler(fab)
	bankHandler := bank.NewHandler(bankBackend)

	// API routes. Ledger mutations get structured audit logs on top of the
	// plain access log.
	api := app.Group("/api/v1")
	api.Use(middleware.Audit(d.Logger))
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	createLimit := middleware.CreateRateLimit(d.Cache, 5)
	RegisterFactoryRoutes(api, factoryHandler, createLimit)
	RegisterTokenRoutes(api, tokenHandler)
	RegisterBankRoutes(api, bankHandler)

	return nil
}
