package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/ezloot/ezloot/internal/discord"
	"github.com/ezloot/ezloot/internal/ledger"
	"github.com/ezloot/ezloot/internal/observe"
)

// RosterCommands handles the /roster command group. Both subcommands are
// admin-only.
type RosterCommands struct {
	engine  *ledger.Engine
	admins  *discord.AdminChecker
	audit   Recorder
	metrics *observe.Metrics
}

// NewRosterCommands creates the /roster handler group.
func NewRosterCommands(engine *ledger.Engine, admins *discord.AdminChecker, audit Recorder, metrics *observe.Metrics) *RosterCommands {
	if audit == nil {
		audit = noopRecorder{}
	}
	return &RosterCommands{engine: engine, admins: admins, audit: audit, metrics: metrics}
}

// Register registers the /roster subcommands with the router.
func (rc *RosterCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("roster", rc.Definition(), nil)
	router.RegisterHandler("roster/list", rc.handleList)
	router.RegisterHandler("roster/remove", rc.handleRemove)
}

// Definition returns the /roster ApplicationCommand with all subcommands.
func (rc *RosterCommands) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "roster",
		Description: "Manage registered players",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "list",
				Description: "Admin: list all registered players",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
			{
				Name:        "remove",
				Description: "Admin: remove a player and their entire record",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options:     []*discordgo.ApplicationCommandOption{userOpt("Player to remove", true)},
			},
		},
	}
}

func (rc *RosterCommands) handleList(s discord.Responder, i *discordgo.InteractionCreate) {
	if !rc.admins.IsAdmin(i) {
		discord.RespondEphemeral(s, i, "Only administrators can list the roster.")
		return
	}
	start := time.Now()

	ctx, cancel := opContext()
	defer cancel()

	recs, err := rc.engine.ListPlayers(ctx)
	observeCommand(ctx, rc.metrics, "roster_list", start, err)
	if err != nil {
		discord.RespondEphemeral(s, i, userMessage(err))
		return
	}
	if len(recs) == 0 {
		discord.RespondEphemeral(s, i, "Nobody is registered yet.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Registered players (%d):\n", len(recs))
	for _, rec := range recs {
		fmt.Fprintf(&b, "- %s — %d loot pieces, pity %d\n", mention(rec.Identity), rec.LootCount(), rec.Pity)
	}
	discord.RespondEphemeral(s, i, discord.Truncate(b.String()))
}

func (rc *RosterCommands) handleRemove(s discord.Responder, i *discordgo.InteractionCreate) {
	if !rc.admins.IsAdmin(i) {
		discord.RespondEphemeral(s, i, "Only administrators can remove players.")
		return
	}
	start := time.Now()
	target := userOption(i, "user")

	ctx, cancel := opContext()
	defer cancel()

	err := rc.engine.RemoveUser(ctx, target)
	observeCommand(ctx, rc.metrics, "roster_remove", start, err)
	if err != nil {
		discord.RespondEphemeral(s, i, userMessage(err))
		return
	}

	if rc.metrics != nil {
		rc.metrics.PlayersRegistered.Add(ctx, -1)
	}
	rc.audit.Record(callerID(i), "roster remove", fmt.Sprintf("removed %s", target))
	discord.RespondEphemeral(s, i, fmt.Sprintf("Removed %s and their entire record.", mention(target)))
}
