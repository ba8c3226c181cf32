package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KirkDiggler/effect-engine/internal/handlers/console"
	"github.com/KirkDiggler/effect-engine/internal/handlers/discord/utils"
	"github.com/bwmarrin/discordgo"
)

const (
	commandName     = "effect"
	responseTimeout = 10 * time.Second
	maxChoices      = 25
)

// Handler serves the /effect slash command by translating options into
// console requests
type Handler struct {
	console *console.Handler
	effects []string
}

// HandlerConfig holds configuration for the Discord handler
type HandlerConfig struct {
	Console *console.Handler // Required
	Effects []string         // Effect names offered as choices
}

// NewHandler creates a new Discord handler
func NewHandler(cfg *HandlerConfig) *Handler {
	if cfg == nil || cfg.Console == nil {
		panic("console handler is required")
	}
	return &Handler{console: cfg.Console, effects: cfg.Effects}
}

// Commands returns the slash command definitions
func (h *Handler) Commands() []*discordgo.ApplicationCommand {
	target := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "target",
		Description: "Target id",
		Required:    true,
	}
	effect := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "effect",
		Description: "Effect name, optionally with :subId (ResistDamage:fire)",
		Required:    true,
	}
	subID := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "sub_id",
		Description: "Sub id such as a damage type",
	}
	magnitude := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionNumber,
		Name:        "magnitude",
		Description: "Effect magnitude",
		Required:    true,
	}
	duration := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "duration",
		Description: "Milliseconds, a duration like 5s, or indefinite",
		Required:    true,
	}
	source := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "source",
		Description: "Independent source of a stacked effect",
		Required:    true,
	}

	// Discord caps choices, so fall back to free text for larger catalogues
	if len(h.effects) > 0 && len(h.effects) <= maxChoices {
		for _, name := range h.effects {
			effect.Choices = append(effect.Choices, &discordgo.ApplicationCommandOptionChoice{Name: name, Value: name})
		}
		effect.Description = "Effect name"
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        commandName,
			Description: "Apply and inspect timed effects",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "apply",
					Description: "Apply an effect to a target",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options:     []*discordgo.ApplicationCommandOption{target, effect, magnitude, duration, subID},
				},
				{
					Name:        "stack",
					Description: "Add an independent source to an effect",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options:     []*discordgo.ApplicationCommandOption{target, effect, source, magnitude, duration, subID},
				},
				{
					Name:        "remove",
					Description: "Remove an active effect",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options:     []*discordgo.ApplicationCommandOption{target, effect, subID},
				},
				{
					Name:        "list",
					Description: "List the active effects of a target",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options:     []*discordgo.ApplicationCommandOption{target},
				},
				{
					Name:        "kinds",
					Description: "List the known effects",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
			},
		},
	}
}

// RegisterCommands registers the slash commands with Discord
func (h *Handler) RegisterCommands(s *discordgo.Session, appID, guildID string) error {
	for _, cmd := range h.Commands() {
		if _, err := s.ApplicationCommandCreate(appID, guildID, cmd); err != nil {
			return fmt.Errorf("failed to create command %s: %w", cmd.Name, err)
		}
		slog.Info("registered command",
			"component", "discord",
			"command", cmd.Name,
			"guild_id", guildID)
	}
	return nil
}

// HandleInteraction answers /effect commands
func (h *Handler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if i.ApplicationCommandData().Name != commandName {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), responseTimeout)
	defer cancel()

	content := h.Respond(ctx, i)
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "```\n" + content + "\n```",
		},
	})
	if err != nil {
		slog.Error("failed to respond to interaction",
			"component", "discord",
			"error", err)
	}
}

// Respond runs the invoked subcommand and returns the reply text
func (h *Handler) Respond(ctx context.Context, i *discordgo.InteractionCreate) string {
	instigator := utils.GetUserID(i)
	target := utils.GetStringOption(i, "target")
	effect := utils.GetStringOption(i, "effect")
	if sub := utils.GetStringOption(i, "sub_id"); sub != "" {
		effect += ":" + sub
	}

	switch utils.GetSubcommand(i) {
	case "apply":
		return h.console.Apply(ctx, &console.ApplyRequest{
			Instigator: instigator,
			Target:     target,
			Effect:     effect,
			Magnitude:  utils.GetNumberOption(i, "magnitude"),
			Duration:   utils.GetStringOption(i, "duration"),
		})
	case "stack":
		return h.console.Stack(ctx, &console.StackRequest{
			Instigator: instigator,
			Target:     target,
			Effect:     effect,
			Source:     utils.GetStringOption(i, "source"),
			Magnitude:  utils.GetNumberOption(i, "magnitude"),
			Duration:   utils.GetStringOption(i, "duration"),
		})
	case "remove":
		return h.console.Remove(ctx, &console.RemoveRequest{
			Instigator: instigator,
			Target:     target,
			Effect:     effect,
		})
	case "list":
		return h.console.List(ctx, target)
	case "kinds":
		return h.console.Kinds()
	default:
		return "Unknown subcommand"
	}
}
