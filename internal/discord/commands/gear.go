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

// GearCommands handles the /gear command group. set and edit act on the
// caller's own record; show is self-service unless the caller is an
// administrator; override, remove and unlock require an administrator.
type GearCommands struct {
	engine  *ledger.Engine
	admins  *discord.AdminChecker
	audit   Recorder
	metrics *observe.Metrics
}

// NewGearCommands creates the /gear handler group.
func NewGearCommands(engine *ledger.Engine, admins *discord.AdminChecker, audit Recorder, metrics *observe.Metrics) *GearCommands {
	if audit == nil {
		audit = noopRecorder{}
	}
	return &GearCommands{engine: engine, admins: admins, audit: audit, metrics: metrics}
}

// Register registers the /gear subcommands with the router.
func (gc *GearCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("gear", gc.Definition(), nil)
	router.RegisterHandler("gear/set", gc.handleSet)
	router.RegisterHandler("gear/edit", gc.handleEdit)
	router.RegisterHandler("gear/show", gc.handleShow)
	router.RegisterHandler("gear/override", gc.handleOverride)
	router.RegisterHandler("gear/remove", gc.handleRemove)
	router.RegisterHandler("gear/unlock", gc.handleUnlock)

	auto := slotAutocomplete(gc.engine.Catalog())
	for _, sub := range []string{"set", "edit", "override", "remove", "unlock"} {
		router.RegisterAutocomplete("gear/"+sub, auto)
	}
}

// Definition returns the /gear ApplicationCommand with all subcommands.
func (gc *GearCommands) Definition() *discordgo.ApplicationCommand {
	itemOpt := &discordgo.ApplicationCommandOption{
		Name:        "item",
		Description: "Item name",
		Type:        discordgo.ApplicationCommandOptionString,
		Required:    true,
	}
	return &discordgo.ApplicationCommand{
		Name:        "gear",
		Description: "Record and inspect gear slots",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "set",
				Description: "Record an item in an empty gear slot",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options:     []*discordgo.ApplicationCommandOption{slotOpt(true), itemOpt},
			},
			{
				Name:        "edit",
				Description: "Change the item in one of your unlocked slots",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options:     []*discordgo.ApplicationCommandOption{slotOpt(true), itemOpt},
			},
			{
				Name:        "show",
				Description: "Show a player's recorded gear",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options:     []*discordgo.ApplicationCommandOption{userOpt("Player to show (admins only; defaults to you)", false)},
			},
			{
				Name:        "override",
				Description: "Admin: overwrite a slot's item, lock state unchanged",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options:     []*discordgo.ApplicationCommandOption{userOpt("Player to edit", true), slotOpt(true), itemOpt},
			},
			{
				Name:        "remove",
				Description: "Admin: clear a slot and drop its lock",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options:     []*discordgo.ApplicationCommandOption{userOpt("Player to edit", true), slotOpt(true)},
			},
			{
				Name:        "unlock",
				Description: "Admin: unlock a slot so its owner can edit again",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options:     []*discordgo.ApplicationCommandOption{userOpt("Player to unlock", true), slotOpt(true)},
			},
		},
	}
}

func (gc *GearCommands) handleSet(s discord.Responder, i *discordgo.InteractionCreate) {
	start := time.Now()
	caller := callerID(i)
	slot := stringOption(i, "slot")
	item := stringOption(i, "item")

	ctx, cancel := opContext()
	defer cancel()

	err := gc.engine.SetGear(ctx, caller, slot, item)
	observeCommand(ctx, gc.metrics, "gear_set", start, err)
	if err != nil {
		discord.RespondEphemeral(s, i, userMessage(err))
		return
	}

	gc.audit.Record(caller, "gear set", fmt.Sprintf("%s = %q", slot, item))
	discord.RespondEphemeral(s, i, fmt.Sprintf("Recorded **%s** in %s.", item, slot))
}

func (gc *GearCommands) handleEdit(s discord.Responder, i *discordgo.InteractionCreate) {
	start := time.Now()
	caller := callerID(i)
	slot := stringOption(i, "slot")
	item := stringOption(i, "item")

	ctx, cancel := opContext()
	defer cancel()

	err := gc.engine.EditGear(ctx, caller, slot, item)
	observeCommand(ctx, gc.metrics, "gear_edit", start, err)
	if err != nil {
		discord.RespondEphemeral(s, i, userMessage(err))
		return
	}

	gc.audit.Record(caller, "gear edit", fmt.Sprintf("%s = %q", slot, item))
	discord.RespondEphemeral(s, i, fmt.Sprintf("Updated %s to **%s**.", slot, item))
}

func (gc *GearCommands) handleShow(s discord.Responder, i *discordgo.InteractionCreate) {
	start := time.Now()
	target := viewTarget(gc.admins, i)

	ctx, cancel := opContext()
	defer cancel()

	rec, err := gc.engine.Record(ctx, target)
	observeCommand(ctx, gc.metrics, "gear_show", start, err)
	if err != nil {
		discord.RespondEphemeral(s, i, userMessage(err))
		return
	}

	discord.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Gear",
		Description: fmt.Sprintf("Recorded gear for %s", mention(target)),
		Fields: []*discordgo.MessageEmbedField{{
			Name:  "Slots",
			Value: discord.Truncate(renderGear(gc.engine.Catalog(), rec)),
		}},
	})
}

func (gc *GearCommands) handleOverride(s discord.Responder, i *discordgo.InteractionCreate) {
	if !gc.admins.IsAdmin(i) {
		discord.RespondEphemeral(s, i, "Only administrators can override gear.")
		return
	}
	start := time.Now()
	target := userOption(i, "user")
	slot := stringOption(i, "slot")
	item := stringOption(i, "item")

	ctx, cancel := opContext()
	defer cancel()

	err := gc.engine.AdminEditGear(ctx, target, slot, item)
	observeCommand(ctx, gc.metrics, "gear_override", start, err)
	if err != nil {
		discord.RespondEphemeral(s, i, userMessage(err))
		return
	}

	gc.audit.Record(callerID(i), "gear override", fmt.Sprintf("%s: %s = %q", target, slot, item))
	discord.RespondEphemeral(s, i, fmt.Sprintf("Set %s's %s to **%s**.", mention(target), slot, item))
}

func (gc *GearCommands) handleRemove(s discord.Responder, i *discordgo.InteractionCreate) {
	if !gc.admins.IsAdmin(i) {
		discord.RespondEphemeral(s, i, "Only administrators can remove gear.")
		return
	}
	start := time.Now()
	target := userOption(i, "user")
	slot := stringOption(i, "slot")

	ctx, cancel := opContext()
	defer cancel()

	err := gc.engine.RemoveGear(ctx, target, slot)
	observeCommand(ctx, gc.metrics, "gear_remove", start, err)
	if err != nil {
		discord.RespondEphemeral(s, i, userMessage(err))
		return
	}

	gc.audit.Record(callerID(i), "gear remove", fmt.Sprintf("%s: cleared %s", target, slot))
	discord.RespondEphemeral(s, i, fmt.Sprintf("Cleared %s's %s slot.", mention(target), slot))
}

func (gc *GearCommands) handleUnlock(s discord.Responder, i *discordgo.InteractionCreate) {
	if !gc.admins.IsAdmin(i) {
		discord.RespondEphemeral(s, i, "Only administrators can unlock slots.")
		return
	}
	start := time.Now()
	target := userOption(i, "user")
	slot := stringOption(i, "slot")

	ctx, cancel := opContext()
	defer cancel()

	err := gc.engine.Unlock(ctx, target, slot)
	observeCommand(ctx, gc.metrics, "gear_unlock", start, err)
	if err != nil {
		discord.RespondEphemeral(s, i, userMessage(err))
		return
	}

	gc.audit.Record(callerID(i), "gear unlock", fmt.Sprintf("%s: unlocked %s", target, slot))
	discord.RespondEphemeral(s, i, fmt.Sprintf("Unlocked %s's %s slot.", mention(target), slot))
}

// renderGear lists every catalog slot in order, one line per slot. 🔴 marks
// a locked slot, 🟢 an editable one, and empty slots read "empty".
func renderGear(catalog *ledger.Catalog, rec *ledger.PlayerRecord) string {
	var b strings.Builder
	for _, slot := range catalog.Slots() {
		entry := rec.GearAt(slot)
		switch {
		case entry == nil:
			fmt.Fprintf(&b, "⚪ %s: *empty*\n", slot)
		case entry.Locked:
			fmt.Fprintf(&b, "🔴 %s: %s\n", slot, entry.Item)
		default:
			fmt.Fprintf(&b, "🟢 %s: %s\n", slot, entry.Item)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
