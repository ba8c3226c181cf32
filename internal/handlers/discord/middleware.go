package discord

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/bwmarrin/discordgo"

	"github.com/KirkDiggler/effect-engine/internal/handlers/discord/utils"
)

// RecoverMiddleware keeps a panicking effect command from taking the bot
// down and tells the caller which command failed
func RecoverMiddleware(handlerName string, handler func(*discordgo.Session, *discordgo.InteractionCreate)) func(*discordgo.Session, *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			slog.Error("panic in interaction handler",
				"component", "discord",
				"handler", handlerName,
				"command", commandLabel(i),
				"panic", r,
				"stack", string(debug.Stack()))

			respondWithError(s, i, FailureReply(i, r))
		}()

		handler(s, i)
	}
}

// FailureReply is the text shown when an interaction handler panics
func FailureReply(i *discordgo.InteractionCreate, cause any) string {
	return fmt.Sprintf("❌ %s failed unexpectedly: %v\nCheck the target with `/effect list` before retrying.", commandLabel(i), cause)
}

// commandLabel names the invoked command, e.g. "/effect apply"
func commandLabel(i *discordgo.InteractionCreate) string {
	if i == nil || i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return "interaction"
	}

	label := "/" + i.ApplicationCommandData().Name
	if sub := utils.GetSubcommand(i); sub != "" {
		label += " " + sub
	}
	return label
}

type replyAttempt struct {
	name string
	send func() error
}

// respondWithError tries a fresh response, then an edit of a deferred
// response, then a followup
func respondWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	attempts := []replyAttempt{
		{name: "respond", send: func() error {
			return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: message,
					Flags:   discordgo.MessageFlagsEphemeral,
				},
			})
		}},
		{name: "edit", send: func() error {
			_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &message})
			return err
		}},
		{name: "followup", send: func() error {
			_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
				Content: message,
				Flags:   discordgo.MessageFlagsEphemeral,
			})
			return err
		}},
	}

	for _, attempt := range attempts {
		err := attempt.send()
		if err == nil {
			return
		}
		slog.Debug("error reply attempt failed",
			"component", "discord",
			"attempt", attempt.name,
			"error", err)
	}

	slog.Error("failed to send error response",
		"component", "discord",
		"command", commandLabel(i),
		"message", message)
}
