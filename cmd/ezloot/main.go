// Command ezloot is the guild gear and loot ledger Discord bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ezloot/ezloot/internal/auditlog"
	"github.com/ezloot/ezloot/internal/config"
	discordbot "github.com/ezloot/ezloot/internal/discord"
	"github.com/ezloot/ezloot/internal/discord/commands"
	"github.com/ezloot/ezloot/internal/health"
	"github.com/ezloot/ezloot/internal/ledger"
	"github.com/ezloot/ezloot/internal/ledger/pgstore"
	"github.com/ezloot/ezloot/internal/observe"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "ezloot: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "ezloot: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("ezloot starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "ezloot"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Slot catalog ──────────────────────────────────────────────────────────
	catalog, err := buildCatalog(cfg)
	if err != nil {
		slog.Error("invalid slot catalog", "err", err)
		return 1
	}

	// ── Player store ──────────────────────────────────────────────────────────
	store, storeChecker, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise store", "err", err)
		return 1
	}
	defer cleanup()

	// ── Discord bot ───────────────────────────────────────────────────────────
	bot, err := discordbot.New(ctx, discordbot.Config{
		Token:       cfg.Discord.Token,
		GuildID:     cfg.Discord.GuildID,
		AdminRoleID: cfg.Discord.AdminRoleID,
		AdminIDs:    cfg.Discord.AdminIDs,
	})
	if err != nil {
		slog.Error("failed to create Discord bot", "err", err)
		return 1
	}
	defer func() {
		if err := bot.Close(); err != nil {
			slog.Warn("discord bot close error", "err", err)
		}
	}()
	slog.Info("discord bot connected", "guild_id", cfg.Discord.GuildID)

	// ── Audit log ─────────────────────────────────────────────────────────────
	var audit *auditlog.Logger
	if cfg.Discord.LogChannelID != "" {
		audit = auditlog.New(bot.Session(), cfg.Discord.LogChannelID, auditlog.DefaultFlushInterval)
	}

	// ── Ledger engine & commands ──────────────────────────────────────────────
	engine := ledger.NewEngine(store, catalog, bot.Admins().IsAdminID)
	registerCommands(bot, engine, audit, metrics)

	// ── Run everything ────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := bot.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("discord bot: %w", err)
		}
		return nil
	})

	if audit != nil {
		g.Go(func() error {
			if err := audit.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("audit log: %w", err)
			}
			return nil
		})
	}

	if cfg.Server.ListenAddr != "" {
		srv := opsServer(cfg.Server.ListenAddr, metrics, storeChecker)
		g.Go(func() error {
			slog.Info("ops endpoint listening", "addr", cfg.Server.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("ops server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	slog.Info("ezloot ready — press Ctrl+C to shut down")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildCatalog returns the configured slot catalog, or the default when the
// config does not override it.
func buildCatalog(cfg *config.Config) (*ledger.Catalog, error) {
	if len(cfg.Catalog.Slots) == 0 {
		return ledger.MustDefaultCatalog(), nil
	}
	return ledger.NewCatalog(cfg.Catalog.Slots)
}

// buildStore selects the player store: PostgreSQL when a DSN is configured,
// otherwise an in-memory store that does not survive restarts.
func buildStore(ctx context.Context, cfg *config.Config) (ledger.Store, health.Checker, func(), error) {
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("no postgres_dsn configured — using in-memory store, records will not survive restarts")
		checker := health.Checker{Name: "store", Check: func(context.Context) error { return nil }}
		return ledger.NewMemStore(), checker, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, health.Checker{}, nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := pgstore.New(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, health.Checker{}, nil, err
	}
	slog.Info("postgres store ready")
	return store, health.StoreChecker(store), pool.Close, nil
}

// registerCommands wires every command group into the bot's router.
func registerCommands(bot *discordbot.Bot, engine *ledger.Engine, audit *auditlog.Logger, metrics *observe.Metrics) {
	var rec commands.Recorder
	if audit != nil {
		rec = audit
	}
	router := bot.Router()
	commands.NewRegisterCommand(engine, rec, metrics).Register(router)
	commands.NewGearCommands(engine, bot.Admins(), rec, metrics).Register(router)
	commands.NewLootCommands(engine, bot.Admins(), rec, metrics).Register(router)
	commands.NewPityCommands(engine, bot.Admins(), rec, metrics).Register(router)
	commands.NewRosterCommands(engine, bot.Admins(), rec, metrics).Register(router)
}

// opsServer builds the HTTP server exposing /metrics, /healthz and /readyz.
func opsServer(addr string, metrics *observe.Metrics, storeChecker health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(storeChecker).Register(mux)

	return &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
