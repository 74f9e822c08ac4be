package commands

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/ezloot/ezloot/internal/discord"
	"github.com/ezloot/ezloot/internal/ledger"
	"github.com/ezloot/ezloot/internal/observe"
)

// RegisterCommand handles the top-level /register command.
type RegisterCommand struct {
	engine  *ledger.Engine
	audit   Recorder
	metrics *observe.Metrics
}

// NewRegisterCommand creates the /register handler.
func NewRegisterCommand(engine *ledger.Engine, audit Recorder, metrics *observe.Metrics) *RegisterCommand {
	if audit == nil {
		audit = noopRecorder{}
	}
	return &RegisterCommand{engine: engine, audit: audit, metrics: metrics}
}

// Register registers /register with the router.
func (rc *RegisterCommand) Register(router *discord.CommandRouter) {
	router.RegisterCommand("register", rc.Definition(), rc.handle)
}

// Definition returns the /register ApplicationCommand.
func (rc *RegisterCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "register",
		Description: "Register yourself in the guild loot ledger",
	}
}

func (rc *RegisterCommand) handle(s discord.Responder, i *discordgo.InteractionCreate) {
	start := time.Now()
	caller := callerID(i)
	if caller == "" {
		discord.RespondEphemeral(s, i, "Could not determine who you are.")
		return
	}

	ctx, cancel := opContext()
	defer cancel()

	_, err := rc.engine.Register(ctx, caller)
	observeCommand(ctx, rc.metrics, "register", start, err)
	if err != nil {
		discord.RespondEphemeral(s, i, userMessage(err))
		return
	}

	if rc.metrics != nil {
		rc.metrics.PlayersRegistered.Add(ctx, 1)
	}
	rc.audit.Record(caller, "register", "registered")
	discord.Respond(s, i, fmt.Sprintf(
		"%s, you are registered! Record your gear with `/gear set` — one slot at a time.",
		mention(caller),
	))
}
