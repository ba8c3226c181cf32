package utils

import "github.com/bwmarrin/discordgo"

// GetCommandOption safely retrieves a command option by name from interaction data
func GetCommandOption(i *discordgo.InteractionCreate, name string) *discordgo.ApplicationCommandInteractionDataOption {
	if i.ApplicationCommandData().Options == nil {
		return nil
	}

	// Start with the root options
	options := i.ApplicationCommandData().Options

	// Navigate through subcommand groups and subcommands
	for len(options) > 0 {
		for _, opt := range options {
			if opt.Name == name {
				return opt
			}
		}

		// Drill into the subcommand
		if len(options[0].Options) > 0 {
			options = options[0].Options
		} else {
			break
		}
	}

	return nil
}

// GetSubcommand returns the name of the invoked subcommand
func GetSubcommand(i *discordgo.InteractionCreate) string {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 || options[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		return ""
	}
	return options[0].Name
}

// GetStringOption safely retrieves a string option value by name
func GetStringOption(i *discordgo.InteractionCreate, name string) string {
	opt := GetCommandOption(i, name)
	if opt == nil || opt.Type != discordgo.ApplicationCommandOptionString {
		return ""
	}
	return opt.StringValue()
}

// GetNumberOption safely retrieves a number option value by name
func GetNumberOption(i *discordgo.InteractionCreate, name string) float64 {
	opt := GetCommandOption(i, name)
	if opt == nil || opt.Type != discordgo.ApplicationCommandOptionNumber {
		return 0
	}
	return opt.FloatValue()
}

// GetUserID returns the invoking user for guild and direct interactions
func GetUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
