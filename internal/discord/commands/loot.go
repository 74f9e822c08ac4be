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

// LootCommands handles the /loot command group. show is self-service (only
// an administrator may target another player); every other subcommand
// requires an administrator.
type LootCommands struct {
	engine  *ledger.Engine
	admins  *discord.AdminChecker
	audit   Recorder
	metrics *observe.Metrics
}

// NewLootCommands creates the /loot handler group.
func NewLootCommands(engine *ledger.Engine, admins *discord.AdminChecker, audit Recorder, metrics *observe.Metrics) *LootCommands {
	if audit == nil {
		audit = noopRecorder{}
	}
	return &LootCommands{engine: engine, admins: admins, audit: audit, metrics: metrics}
}

// Register registers the /loot subcommands with the router.
func (lc *LootCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("loot", lc.Definition(), nil)
	router.RegisterHandler("loot/assign", lc.handleAssign)
	router.RegisterHandler("loot/bonus", lc.handleBonus)
	router.RegisterHandler("loot/show", lc.handleShow)
	router.RegisterHandler("loot/remove", lc.handleRemove)
	router.RegisterHandler("loot/removebonus", lc.handleRemoveBonus)
	router.RegisterHandler("loot/find", lc.handleFind)
	router.RegisterHandler("loot/findbonus", lc.handleFindBonus)
	router.RegisterHandler("loot/total", lc.handleTotal)

	auto := slotAutocomplete(lc.engine.Catalog())
	for _, sub := range []string{"assign", "bonus", "remove", "removebonus"} {
		router.RegisterAutocomplete("loot/"+sub, auto)
	}
}

// Definition returns the /loot ApplicationCommand with all subcommands.
func (lc *LootCommands) Definition() *discordgo.ApplicationCommand {
	itemOpt := &discordgo.ApplicationCommandOption{
		Name:        "item",
		Description: "Awarded item name",
		Type:        discordgo.ApplicationCommandOptionString,
		Required:    true,
	}
	sourceOpt := &discordgo.ApplicationCommandOption{
		Name:        "source",
		Description: "Where the drop came from (boss, chest, ...)",
		Type:        discordgo.ApplicationCommandOptionString,
	}
	return &discordgo.ApplicationCommand{
		Name:        "loot",
		Description: "Assign and inspect awarded loot",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "assign",
				Description: "Admin: award an item to a slot and lock it",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options:     []*discordgo.ApplicationCommandOption{userOpt("Player receiving the item", true), slotOpt(true), itemOpt, sourceOpt},
			},
			{
				Name:        "bonus",
				Description: "Admin: record bonus loot for a slot without locking it",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					userOpt("Player receiving the bonus", true),
					slotOpt(true),
					{
						Name:        "loot",
						Description: "Bonus loot text",
						Type:        discordgo.ApplicationCommandOptionString,
						Required:    true,
					},
				},
			},
			{
				Name:        "show",
				Description: "Show a player's loot history and bonus loot",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options:     []*discordgo.ApplicationCommandOption{userOpt("Player to show (admins only; defaults to you)", false)},
			},
			{
				Name:        "remove",
				Description: "Admin: remove the most recent loot entry for a slot",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options:     []*discordgo.ApplicationCommandOption{userOpt("Player to edit", true), slotOpt(true)},
			},
			{
				Name:        "removebonus",
				Description: "Admin: clear all bonus loot for a slot",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options:     []*discordgo.ApplicationCommandOption{userOpt("Player to edit", true), slotOpt(true)},
			},
			{
				Name:        "find",
				Description: "Admin: find everyone whose gear holds an item (exact name)",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{{
					Name:        "item",
					Description: "Exact item name, case does not matter",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    true,
				}},
			},
			{
				Name:        "findbonus",
				Description: "Admin: find bonus loot entries containing a text fragment",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{{
					Name:        "text",
					Description: "Fragment to search for",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    true,
				}},
			},
			{
				Name:        "total",
				Description: "Admin: total loot pieces awarded across the guild",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
		},
	}
}

func (lc *LootCommands) handleAssign(s discord.Responder, i *discordgo.InteractionCreate) {
	if !lc.admins.IsAdmin(i) {
		discord.RespondEphemeral(s, i, "Only administrators can assign loot.")
		return
	}
	start := time.Now()
	target := userOption(i, "user")
	slot := stringOption(i, "slot")
	item := stringOption(i, "item")
	source := stringOption(i, "source")

	ctx, cancel := opContext()
	defer cancel()

	err := lc.engine.AssignLoot(ctx, target, slot, item, source)
	observeCommand(ctx, lc.metrics, "loot_assign", start, err)
	if err != nil {
		discord.RespondEphemeral(s, i, userMessage(err))
		return
	}

	if lc.metrics != nil {
		lc.metrics.LootAssigned.Add(ctx, 1)
	}
	lc.audit.Record(callerID(i), "loot assign", fmt.Sprintf("%s: %s = %q (source %q)", target, slot, item, source))
	discord.Respond(s, i, fmt.Sprintf("🎉 %s received **%s** (%s). The slot is now locked.", mention(target), item, slot))
}

func (lc *LootCommands) handleBonus(s discord.Responder, i *discordgo.InteractionCreate) {
	if !lc.admins.IsAdmin(i) {
		discord.RespondEphemeral(s, i, "Only administrators can assign bonus loot.")
		return
	}
	start := time.Now()
	target := userOption(i, "user")
	slot := stringOption(i, "slot")
	loot := stringOption(i, "loot")

	ctx, cancel := opContext()
	defer cancel()

	err := lc.engine.AssignBonusLoot(ctx, target, slot, loot)
	observeCommand(ctx, lc.metrics, "loot_bonus", start, err)
	if err != nil {
		discord.RespondEphemeral(s, i, userMessage(err))
		return
	}

	lc.audit.Record(callerID(i), "loot bonus", fmt.Sprintf("%s: %s += %q", target, slot, loot))
	discord.Respond(s, i, fmt.Sprintf("🎁 %s received bonus loot for %s: **%s**", mention(target), slot, loot))
}

func (lc *LootCommands) handleShow(s discord.Responder, i *discordgo.InteractionCreate) {
	start := time.Now()
	target := viewTarget(lc.admins, i)

	ctx, cancel := opContext()
	defer cancel()

	rec, err := lc.engine.Record(ctx, target)
	observeCommand(ctx, lc.metrics, "loot_show", start, err)
	if err != nil {
		discord.RespondEphemeral(s, i, userMessage(err))
		return
	}

	discord.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Loot",
		Description: fmt.Sprintf("Loot record for %s", mention(target)),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "History", Value: discord.Truncate(renderLoot(rec))},
			{Name: "Bonus loot", Value: discord.Truncate(renderBonusLoot(lc.engine.Catalog(), rec))},
		},
	})
}

func (lc *LootCommands) handleRemove(s discord.Responder, i *discordgo.InteractionCreate) {
	if !lc.admins.IsAdmin(i) {
		discord.RespondEphemeral(s, i, "Only administrators can remove loot.")
		return
	}
	start := time.Now()
	target := userOption(i, "user")
	slot := stringOption(i, "slot")

	ctx, cancel := opContext()
	defer cancel()

	err := lc.engine.RemoveLoot(ctx, target, slot)
	observeCommand(ctx, lc.metrics, "loot_remove", start, err)
	if err != nil {
		discord.RespondEphemeral(s, i, userMessage(err))
		return
	}

	lc.audit.Record(callerID(i), "loot remove", fmt.Sprintf("%s: dropped newest entry for %s", target, slot))
	discord.RespondEphemeral(s, i, fmt.Sprintf(
		"Removed the most recent loot entry for %s's %s. Gear and lock are untouched; use `/gear remove` or `/gear unlock` for those.",
		mention(target), slot,
	))
}

func (lc *LootCommands) handleRemoveBonus(s discord.Responder, i *discordgo.InteractionCreate) {
	if !lc.admins.IsAdmin(i) {
		discord.RespondEphemeral(s, i, "Only administrators can remove bonus loot.")
		return
	}
	start := time.Now()
	target := userOption(i, "user")
	slot := stringOption(i, "slot")

	ctx, cancel := opContext()
	defer cancel()

	err := lc.engine.RemoveBonusLoot(ctx, target, slot)
	observeCommand(ctx, lc.metrics, "loot_removebonus", start, err)
	if err != nil {
		discord.RespondEphemeral(s, i, userMessage(err))
		return
	}

	lc.audit.Record(callerID(i), "loot removebonus", fmt.Sprintf("%s: cleared bonus loot for %s", target, slot))
	discord.RespondEphemeral(s, i, fmt.Sprintf("Cleared all bonus loot for %s's %s.", mention(target), slot))
}

func (lc *LootCommands) handleFind(s discord.Responder, i *discordgo.InteractionCreate) {
	if !lc.admins.IsAdmin(i) {
		discord.RespondEphemeral(s, i, "Only administrators can search the ledger.")
		return
	}
	start := time.Now()
	item := stringOption(i, "item")

	ctx, cancel := opContext()
	defer cancel()

	matches, err := lc.engine.FindItem(ctx, item)
	observeCommand(ctx, lc.metrics, "loot_find", start, err)
	if err != nil {
		discord.RespondEphemeral(s, i, userMessage(err))
		return
	}
	if len(matches) == 0 {
		discord.RespondEphemeral(s, i, fmt.Sprintf("Nobody has **%s** recorded.", item))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Players with **%s**:\n", item)
	for _, m := range matches {
		for _, sm := range m.Slots {
			state := "unlocked"
			if sm.Locked {
				state = "locked"
			}
			fmt.Fprintf(&b, "- %s — %s (%s)\n", mention(m.Identity), sm.Slot, state)
		}
	}
	discord.RespondEphemeral(s, i, discord.Truncate(b.String()))
}

func (lc *LootCommands) handleFindBonus(s discord.Responder, i *discordgo.InteractionCreate) {
	if !lc.admins.IsAdmin(i) {
		discord.RespondEphemeral(s, i, "Only administrators can search the ledger.")
		return
	}
	start := time.Now()
	text := stringOption(i, "text")

	ctx, cancel := opContext()
	defer cancel()

	matches, err := lc.engine.FindBonusLoot(ctx, text)
	observeCommand(ctx, lc.metrics, "loot_findbonus", start, err)
	if err != nil {
		discord.RespondEphemeral(s, i, userMessage(err))
		return
	}
	if len(matches) == 0 {
		discord.RespondEphemeral(s, i, fmt.Sprintf("No bonus loot matches %q.", text))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Bonus loot matching %q:\n", text)
	for _, m := range matches {
		for _, e := range m.Entries {
			fmt.Fprintf(&b, "- %s — %s: %s\n", mention(m.Identity), e.Slot, e.Text)
		}
	}
	discord.RespondEphemeral(s, i, discord.Truncate(b.String()))
}

func (lc *LootCommands) handleTotal(s discord.Responder, i *discordgo.InteractionCreate) {
	if !lc.admins.IsAdmin(i) {
		discord.RespondEphemeral(s, i, "Only administrators can view the guild total.")
		return
	}
	start := time.Now()

	ctx, cancel := opContext()
	defer cancel()

	total, err := lc.engine.GuildTotal(ctx)
	observeCommand(ctx, lc.metrics, "loot_total", start, err)
	if err != nil {
		discord.RespondEphemeral(s, i, userMessage(err))
		return
	}

	discord.Respond(s, i, fmt.Sprintf("The guild has been awarded **%d** loot pieces in total.", total))
}

// renderLoot lists the loot history in award order.
func renderLoot(rec *ledger.PlayerRecord) string {
	if len(rec.Loot) == 0 {
		return "*no loot awarded yet*"
	}
	var b strings.Builder
	for _, entry := range rec.Loot {
		fmt.Fprintf(&b, "- %s: %s", entry.Slot, entry.Item)
		if entry.Source != "" {
			fmt.Fprintf(&b, " (from %s)", entry.Source)
		}
		fmt.Fprintf(&b, " — %s\n", entry.AwardedAt.Format("2006-01-02"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderBonusLoot lists bonus loot notes grouped by slot in catalog order.
func renderBonusLoot(catalog *ledger.Catalog, rec *ledger.PlayerRecord) string {
	var b strings.Builder
	for _, slot := range catalog.Slots() {
		for _, text := range rec.BonusLoot[slot] {
			fmt.Fprintf(&b, "- %s: %s\n", slot, text)
		}
	}
	if b.Len() == 0 {
		return "*no bonus loot*"
	}
	return strings.TrimRight(b.String(), "\n")
}
