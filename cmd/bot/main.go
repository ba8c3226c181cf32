package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/KirkDiggler/effect-engine/internal/config"
	"github.com/KirkDiggler/effect-engine/internal/effects"
	"github.com/KirkDiggler/effect-engine/internal/handlers/console"
	"github.com/KirkDiggler/effect-engine/internal/handlers/discord"
	"github.com/KirkDiggler/effect-engine/internal/repositories/effectstate"
	"github.com/KirkDiggler/effect-engine/internal/scheduler"
	"github.com/KirkDiggler/effect-engine/internal/services"
)

// timerLoop is a scheduler that delivers its own fired timers
type timerLoop interface {
	effects.Scheduler
	Run(ctx context.Context, handler effects.FiredHandler) error
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found")
	} else {
		slog.Info("Loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel(),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Effect engine stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("Shut down")
}

func run(ctx context.Context, cfg *config.Config) error {
	providerConfig := &services.ProviderConfig{}

	var loop timerLoop
	if redisClient := connectRedis(ctx, cfg.Redis.URL); redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				slog.Warn("Error closing Redis connection", "error", err)
			}
		}()

		providerConfig.StateRepository = effectstate.NewRedisRepository(&effectstate.RedisConfig{
			Client:    redisClient,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		loop = scheduler.NewRedis(&scheduler.RedisConfig{
			Client:       redisClient,
			KeyPrefix:    cfg.Redis.KeyPrefix,
			PollInterval: cfg.Effects.PollInterval,
		})
		slog.Info("Using Redis for effect state and timers")
	} else {
		timer := scheduler.NewTimer()
		defer timer.Close()
		loop = timer
		slog.Info("Using in-memory effect state and timers")
	}
	providerConfig.Scheduler = loop

	provider, err := services.NewProvider(providerConfig)
	if err != nil {
		return fmt.Errorf("failed to create services: %w", err)
	}

	consoleHandler := console.NewHandler(&console.HandlerConfig{
		EffectService: provider.EffectService,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx, provider.EffectService.HandleTimer)
	})

	if cfg.DiscordEnabled() {
		g.Go(func() error {
			return runDiscord(gctx, cfg, provider, consoleHandler)
		})
	} else {
		g.Go(func() error {
			// End of input shuts the process down
			defer cancel()
			fmt.Println("Effect console ready. Type help for commands.")
			return consoleHandler.Run(gctx, "console", os.Stdin, os.Stdout)
		})
	}

	return g.Wait()
}

// connectRedis returns nil when no URL is set or Redis is unreachable, in
// which case the caller falls back to in-memory adapters
func connectRedis(ctx context.Context, redisURL string) *redis.Client {
	if redisURL == "" {
		slog.Info("No REDIS_URL found, using in-memory adapters")
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("Failed to parse Redis URL, falling back to in-memory adapters", "error", err)
		return nil
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		slog.Warn("Failed to connect to Redis, falling back to in-memory adapters", "error", err)
		_ = client.Close()
		return nil
	}

	slog.Info("Successfully connected to Redis", "addr", opts.Addr)
	return client
}

func runDiscord(ctx context.Context, cfg *config.Config, provider *services.Provider, consoleHandler *console.Handler) error {
	dg, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}

	handler := discord.NewHandler(&discord.HandlerConfig{
		Console: consoleHandler,
		Effects: provider.Registry.Names(),
	})
	dg.AddHandler(discord.RecoverMiddleware("effect", handler.HandleInteraction))

	if err := dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	defer func() {
		if err := dg.Close(); err != nil {
			slog.Warn("Failed to close Discord connection", "error", err)
		}
	}()

	// Use empty string for global commands, or set a specific guild ID for testing
	if err := handler.RegisterCommands(dg, cfg.Discord.AppID, cfg.Discord.GuildID); err != nil {
		return err
	}

	if cfg.Discord.GuildID != "" {
		slog.Info("Registered commands for guild", "guild_id", cfg.Discord.GuildID)
	} else {
		slog.Info("Registered global commands (may take up to 1 hour to propagate)")
	}

	fmt.Println("Bot is now running. Press CTRL-C to exit.")
	<-ctx.Done()
	return nil
}
