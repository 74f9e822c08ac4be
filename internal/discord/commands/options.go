// Package commands implements the ezloot slash command groups. Handlers
// parse interaction options, invoke the ledger engine, and render typed
// ledger failures as precise user-facing messages. Caller-role
// authorization happens here, before any admin-only engine call.
package commands

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/ezloot/ezloot/internal/discord"
	"github.com/ezloot/ezloot/internal/ledger"
)

// opTimeout bounds a single ledger operation, store access included.
const opTimeout = 10 * time.Second

// Recorder receives one audit entry per successful mutation. Implemented by
// auditlog.Logger; nil-safe via the noopRecorder fallback.
type Recorder interface {
	Record(actor, command, details string)
}

// noopRecorder discards audit entries when no log channel is configured.
type noopRecorder struct{}

func (noopRecorder) Record(actor, command, details string) {}

// opContext returns the bounded context used for ledger calls.
func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

// callerID extracts the invoking user's ID from a guild or DM interaction.
func callerID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// mention renders an identity as a Discord mention.
func mention(identity string) string {
	return "<@" + identity + ">"
}

// subcommandOptions returns the option list of the invoked subcommand, or
// the top-level options when the command has no subcommands.
func subcommandOptions(i *discordgo.InteractionCreate) []*discordgo.ApplicationCommandInteractionDataOption {
	data := i.ApplicationCommandData()
	if len(data.Options) > 0 && data.Options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return data.Options[0].Options
	}
	return data.Options
}

// stringOption extracts a string option value, or "" when absent.
func stringOption(i *discordgo.InteractionCreate, name string) string {
	for _, opt := range subcommandOptions(i) {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return opt.StringValue()
		}
	}
	return ""
}

// intOption extracts an integer option value; ok is false when absent.
func intOption(i *discordgo.InteractionCreate, name string) (value int, ok bool) {
	for _, opt := range subcommandOptions(i) {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionInteger {
			return int(opt.IntValue()), true
		}
	}
	return 0, false
}

// userOption extracts a user option's ID, or "" when absent.
func userOption(i *discordgo.InteractionCreate, name string) string {
	for _, opt := range subcommandOptions(i) {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionUser {
			if u := opt.UserValue(nil); u != nil {
				return u.ID
			}
		}
	}
	return ""
}

// viewTarget resolves the optional "user" option on a show subcommand. Only
// administrators may view another player's record; for everyone else the
// option is ignored and the target is the caller.
func viewTarget(admins *discord.AdminChecker, i *discordgo.InteractionCreate) string {
	if id := userOption(i, "user"); id != "" && admins.IsAdmin(i) {
		return id
	}
	return callerID(i)
}

// slotAutocomplete returns an autocomplete handler that offers catalog slot
// names matching the focused prefix. Discord caps choices at 25.
func slotAutocomplete(catalog *ledger.Catalog) func(s discord.Responder, i *discordgo.InteractionCreate) {
	return func(s discord.Responder, i *discordgo.InteractionCreate) {
		partial := ""
		for _, opt := range subcommandOptions(i) {
			if opt.Focused {
				partial = strings.ToLower(opt.StringValue())
				break
			}
		}

		var choices []*discordgo.ApplicationCommandOptionChoice
		for _, slot := range catalog.Slots() {
			if partial == "" || strings.HasPrefix(strings.ToLower(slot), partial) {
				choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
					Name:  slot,
					Value: slot,
				})
			}
			if len(choices) >= 25 {
				break
			}
		}

		_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionApplicationCommandAutocompleteResult,
			Data: &discordgo.InteractionResponseData{Choices: choices},
		})
	}
}

// slotOpt builds the standard autocompleted slot option.
func slotOpt(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:         "slot",
		Description:  "Gear slot name",
		Type:         discordgo.ApplicationCommandOptionString,
		Required:     required,
		Autocomplete: true,
	}
}

// userOpt builds the standard target-user option.
func userOpt(description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        "user",
		Description: description,
		Type:        discordgo.ApplicationCommandOptionUser,
		Required:    required,
	}
}
