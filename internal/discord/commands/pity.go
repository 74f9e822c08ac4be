package commands

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/ezloot/ezloot/internal/discord"
	"github.com/ezloot/ezloot/internal/ledger"
	"github.com/ezloot/ezloot/internal/observe"
)

// PityCommands handles the /pity command group. show is self-service (only
// an administrator may target another player); add and set require an
// administrator.
type PityCommands struct {
	engine  *ledger.Engine
	admins  *discord.AdminChecker
	audit   Recorder
	metrics *observe.Metrics
}

// NewPityCommands creates the /pity handler group.
func NewPityCommands(engine *ledger.Engine, admins *discord.AdminChecker, audit Recorder, metrics *observe.Metrics) *PityCommands {
	if audit == nil {
		audit = noopRecorder{}
	}
	return &PityCommands{engine: engine, admins: admins, audit: audit, metrics: metrics}
}

// Register registers the /pity subcommands with the router.
func (pc *PityCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("pity", pc.Definition(), nil)
	router.RegisterHandler("pity/show", pc.handleShow)
	router.RegisterHandler("pity/add", pc.handleAdd)
	router.RegisterHandler("pity/set", pc.handleSet)
}

// Definition returns the /pity ApplicationCommand with all subcommands.
func (pc *PityCommands) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "pity",
		Description: "Track unlucky-roll pity counters",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "show",
				Description: "Show a player's pity counter",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options:     []*discordgo.ApplicationCommandOption{userOpt("Player to show (admins only; defaults to you)", false)},
			},
			{
				Name:        "add",
				Description: "Admin: bump a player's pity counter by one",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options:     []*discordgo.ApplicationCommandOption{userOpt("Player to bump", true)},
			},
			{
				Name:        "set",
				Description: "Admin: set a player's pity counter",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					userOpt("Player to set", true),
					{
						Name:        "value",
						Description: "New pity value (0 or more)",
						Type:        discordgo.ApplicationCommandOptionInteger,
						Required:    true,
						MinValue:    float64Ptr(0),
					},
				},
			},
		},
	}
}

func (pc *PityCommands) handleShow(s discord.Responder, i *discordgo.InteractionCreate) {
	start := time.Now()
	target := viewTarget(pc.admins, i)

	ctx, cancel := opContext()
	defer cancel()

	pity, err := pc.engine.Pity(ctx, target)
	observeCommand(ctx, pc.metrics, "pity_show", start, err)
	if err != nil {
		discord.RespondEphemeral(s, i, userMessage(err))
		return
	}

	discord.RespondEphemeral(s, i, fmt.Sprintf("%s's pity counter is **%d**.", mention(target), pity))
}

func (pc *PityCommands) handleAdd(s discord.Responder, i *discordgo.InteractionCreate) {
	if !pc.admins.IsAdmin(i) {
		discord.RespondEphemeral(s, i, "Only administrators can change pity counters.")
		return
	}
	start := time.Now()
	target := userOption(i, "user")

	ctx, cancel := opContext()
	defer cancel()

	pity, err := pc.engine.AddPity(ctx, target)
	observeCommand(ctx, pc.metrics, "pity_add", start, err)
	if err != nil {
		discord.RespondEphemeral(s, i, userMessage(err))
		return
	}

	pc.audit.Record(callerID(i), "pity add", fmt.Sprintf("%s: pity now %d", target, pity))
	discord.Respond(s, i, fmt.Sprintf("%s's pity counter is now **%d**.", mention(target), pity))
}

func (pc *PityCommands) handleSet(s discord.Responder, i *discordgo.InteractionCreate) {
	if !pc.admins.IsAdmin(i) {
		discord.RespondEphemeral(s, i, "Only administrators can change pity counters.")
		return
	}
	start := time.Now()
	target := userOption(i, "user")
	value, ok := intOption(i, "value")
	if !ok {
		discord.RespondEphemeral(s, i, "A pity value is required.")
		return
	}

	ctx, cancel := opContext()
	defer cancel()

	err := pc.engine.SetPity(ctx, target, value)
	observeCommand(ctx, pc.metrics, "pity_set", start, err)
	if err != nil {
		discord.RespondEphemeral(s, i, userMessage(err))
		return
	}

	pc.audit.Record(callerID(i), "pity set", fmt.Sprintf("%s: pity = %d", target, value))
	discord.RespondEphemeral(s, i, fmt.Sprintf("%s's pity counter set to **%d**.", mention(target), value))
}

func float64Ptr(v float64) *float64 { return &v }
