package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/valuebot/config"
	"github.com/alejandrodnm/valuebot/internal/adapters/notify"
	"github.com/alejandrodnm/valuebot/internal/adapters/oddsapi"
	"github.com/alejandrodnm/valuebot/internal/adapters/signals"
	"github.com/alejandrodnm/valuebot/internal/adapters/snapshot"
	"github.com/alejandrodnm/valuebot/internal/adapters/storage"
	"github.com/alejandrodnm/valuebot/internal/application/engine"
	"github.com/alejandrodnm/valuebot/internal/domain/model"
	"github.com/alejandrodnm/valuebot/internal/ports"
	"github.com/redis/go-redis/v9"
)

const defaultSnapshot = "config/snapshot.json"

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one analysis pass and exit")
	dryRun := flag.Bool("dry-run", false, "use the local odds snapshot, no storage, no telegram")
	snapshotPath := flag.String("snapshot", "", "odds snapshot JSON (overrides config)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full table (default: compact 1-line)")
	explain := flag.Bool("explain", false, "print step-by-step calculation for the top 3 bets")
	favoriteTop := flag.Int("favorite-top", 0, "run one pass and save the top N bets as favorites")
	listFavorites := flag.Bool("favorites", false, "list saved favorites and exit")
	unfavorite := flag.String("unfavorite", "", "remove the favorite with this key and exit")
	history := flag.Duration("history", 0, "print candidates seen in this window (e.g. 24h) and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *snapshotPath != "" {
		cfg.API.SnapshotPath = *snapshotPath
	}
	if *dryRun && cfg.API.SnapshotPath == "" {
		cfg.API.SnapshotPath = defaultSnapshot
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	console := notify.NewConsole(*table, *explain, cfg.Notify.LabelWidth)

	var store *storage.SQLiteStorage
	if !*dryRun {
		store, err = storage.NewSQLiteStorage(cfg.Storage.DSN, time.Duration(cfg.Storage.RetentionDays)*24*time.Hour)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()
	}

	// Comandos de consulta: no arrancan el engine.
	switch {
	case *listFavorites, *unfavorite != "", *history > 0:
		if store == nil {
			slog.Error("storage is disabled in dry-run")
			os.Exit(1)
		}
		if err := runQuery(ctx, store, console, *listFavorites, *unfavorite, *history); err != nil {
			slog.Error("query failed", "err", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("valuebot starting",
		"config", *configPath,
		"interval", cfg.Interval(),
		"dry_run", *dryRun,
		"once", *once,
		"snapshot", cfg.API.SnapshotPath,
		"leagues", len(cfg.Leagues),
	)

	estimator, err := model.New(cfg.ModelConfig())
	if err != nil {
		slog.Error("invalid model config", "err", err)
		os.Exit(1)
	}

	fixtures, prices, err := buildProviders(cfg)
	if err != nil {
		slog.Error("failed to build odds provider", "err", err)
		os.Exit(1)
	}

	signalProvider, closeSignals, err := buildSignals(ctx, cfg)
	if err != nil {
		slog.Error("failed to load signals", "err", err, "path", cfg.Signals.TablePath)
		os.Exit(1)
	}
	defer closeSignals()

	notifier := buildNotifier(cfg, console, *dryRun)

	engCfg := cfg.EngineConfig()
	engCfg.Once = *once || *favoriteTop > 0

	// storage como interfaz: un *SQLiteStorage nil no debe llegar al engine.
	var sink ports.Storage
	if store != nil {
		sink = store
	}
	eng := engine.New(engCfg, fixtures, prices, signalProvider, estimator, notifier, sink)

	if *favoriteTop > 0 {
		if store == nil {
			slog.Error("storage is disabled in dry-run")
			os.Exit(1)
		}
		if err := runAndFavorite(ctx, eng, notifier, store, *favoriteTop); err != nil {
			slog.Error("favorite pass failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := eng.Run(ctx); err != nil {
		slog.Error("engine exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("valuebot stopped cleanly")
}

// buildProviders elige entre el snapshot local y The Odds API.
func buildProviders(cfg *config.Config) (ports.FixtureProvider, ports.PriceProvider, error) {
	if cfg.API.SnapshotPath != "" {
		p, err := snapshot.Load(cfg.API.SnapshotPath)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	}
	if cfg.API.OddsKey == "" {
		slog.Warn("ODDS_API_KEY is empty: requests will be rejected")
	}
	client := oddsapi.NewClient(oddsapi.Config{
		BaseURL:       cfg.API.OddsBase,
		APIKey:        cfg.API.OddsKey,
		Regions:       cfg.API.Regions,
		Markets:       cfg.API.Markets,
		RatePerSecond: cfg.API.RatePerSecond,
		Timeout:       time.Duration(cfg.API.TimeoutSeconds) * time.Second,
	})
	return client, client, nil
}

// buildSignals carga la tabla de señales y, si hay Redis, la envuelve con la caché.
func buildSignals(ctx context.Context, cfg *config.Config) (ports.SignalProvider, func(), error) {
	table, err := signals.LoadTable(cfg.Signals.TablePath)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("signals loaded", "teams", table.Len())

	if cfg.Signals.RedisAddr == "" {
		return table, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Signals.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, signal cache disabled", "addr", cfg.Signals.RedisAddr, "err", err)
		client.Close()
		return table, func() {}, nil
	}
	ttl := time.Duration(cfg.Signals.CacheTTLMinutes) * time.Minute
	return signals.NewCached(table, client, ttl), func() { client.Close() }, nil
}

// buildNotifier monta los sinks configurados. Telegram solo fuera de dry-run.
func buildNotifier(cfg *config.Config, console *notify.Console, dryRun bool) ports.Notifier {
	var sinks []ports.Notifier
	if cfg.Notify.Console {
		sinks = append(sinks, console)
	}
	if !dryRun && cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != 0 {
		tg, err := notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, cfg.Engine.MaxResults)
		if err != nil {
			slog.Warn("telegram disabled", "err", err)
		} else {
			sinks = append(sinks, tg)
		}
	}
	return notify.NewMulti(sinks...)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
