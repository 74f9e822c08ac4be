package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/ezloot/ezloot/internal/discord"
	"github.com/ezloot/ezloot/internal/discord/mock"
	"github.com/ezloot/ezloot/internal/ledger"
)

func newTestEngine(t *testing.T) *ledger.Engine {
	t.Helper()
	return ledger.NewEngine(ledger.NewMemStore(), ledger.MustDefaultCatalog(), func(string) bool { return false })
}

// subInteraction builds a guild interaction for "command subcommand" with
// the given subcommand options.
func subInteraction(sub string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionApplicationCommand,
			Member: &discordgo.Member{
				User: &discordgo.User{ID: "caller-1"},
			},
			Data: discordgo.ApplicationCommandInteractionData{
				Name: "gear",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{
						Name:    sub,
						Type:    discordgo.ApplicationCommandOptionSubCommand,
						Options: opts,
					},
				},
			},
		},
	}
}

// adminInteraction is subInteraction with the guild Administrator bit set.
func adminInteraction(sub string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	i := subInteraction(sub, opts...)
	i.Member.Permissions = discordgo.PermissionAdministrator
	return i
}

// targetOpt builds a "user" option carrying the given user ID.
func targetOpt(id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  "user",
		Type:  discordgo.ApplicationCommandOptionUser,
		Value: id,
	}
}

// strOpt builds a string option.
func strOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

func responseContent(t *testing.T, resp *mock.InteractionResponder) string {
	t.Helper()
	last := resp.LastResponse()
	if last == nil || last.Data == nil {
		t.Fatal("no response recorded")
	}
	return last.Data.Content
}

func responseEmbed(t *testing.T, resp *mock.InteractionResponder) *discordgo.MessageEmbed {
	t.Helper()
	last := resp.LastResponse()
	if last == nil || last.Data == nil || len(last.Data.Embeds) == 0 {
		t.Fatal("no embed response recorded")
	}
	return last.Data.Embeds[0]
}

func TestOptionHelpers(t *testing.T) {
	t.Parallel()

	i := subInteraction("set",
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  "slot",
			Type:  discordgo.ApplicationCommandOptionString,
			Value: "Head",
		},
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  "amount",
			Type:  discordgo.ApplicationCommandOptionInteger,
			Value: float64(3),
		},
	)

	if got := stringOption(i, "slot"); got != "Head" {
		t.Errorf("stringOption(slot) = %q", got)
	}
	if got := stringOption(i, "missing"); got != "" {
		t.Errorf("stringOption(missing) = %q, want empty", got)
	}

	v, ok := intOption(i, "amount")
	if !ok || v != 3 {
		t.Errorf("intOption(amount) = %d, %v", v, ok)
	}
	if _, ok := intOption(i, "missing"); ok {
		t.Error("intOption(missing) reported ok")
	}
}

func TestCallerID(t *testing.T) {
	t.Parallel()

	guild := subInteraction("show")
	if got := callerID(guild); got != "caller-1" {
		t.Errorf("callerID(guild) = %q", got)
	}

	dm := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{User: &discordgo.User{ID: "dm-user"}},
	}
	if got := callerID(dm); got != "dm-user" {
		t.Errorf("callerID(dm) = %q", got)
	}

	empty := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}
	if got := callerID(empty); got != "" {
		t.Errorf("callerID(empty) = %q, want empty", got)
	}
}

func TestViewTarget(t *testing.T) {
	t.Parallel()

	admins := discord.NewAdminChecker("", nil)

	// A non-admin passing the user option is still scoped to themself.
	if got := viewTarget(admins, subInteraction("show", targetOpt("target-9"))); got != "caller-1" {
		t.Errorf("viewTarget(non-admin, user option) = %q, want caller-1", got)
	}
	if got := viewTarget(admins, subInteraction("show")); got != "caller-1" {
		t.Errorf("viewTarget(no user option) = %q, want caller-1", got)
	}

	// Administrators may target anyone.
	if got := viewTarget(admins, adminInteraction("show", targetOpt("target-9"))); got != "target-9" {
		t.Errorf("viewTarget(admin, user option) = %q, want target-9", got)
	}
	if got := viewTarget(admins, adminInteraction("show")); got != "caller-1" {
		t.Errorf("viewTarget(admin, no user option) = %q, want caller-1", got)
	}
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{ledger.ErrNotRegistered, "not registered"},
		{ledger.ErrAlreadyRegistered, "already registered"},
		{fmt.Errorf("%w: %q", ledger.ErrInvalidSlot, "Hed"), "Not a valid gear slot"},
		{ledger.ErrSlotOccupied, "already holds an item"},
		{ledger.ErrSlotLocked, "locked"},
		{ledger.ErrEntryNotFound, "Nothing to act on"},
		{ledger.ErrInvalidValue, "Invalid value"},
		{ledger.ErrForbidden, "cannot be removed"},
		{ledger.ErrStoreUnavailable, "temporarily unavailable"},
		{errors.New("boom"), "Error: boom"},
	}

	for _, tc := range tests {
		if got := userMessage(tc.err); !strings.Contains(got, tc.want) {
			t.Errorf("userMessage(%v) = %q, want substring %q", tc.err, got, tc.want)
		}
	}
}

func TestUserMessage_WrappedErrors(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("gear set: %w", fmt.Errorf("%w: slot Head", ledger.ErrSlotLocked))
	if got := userMessage(wrapped); !strings.Contains(got, "locked") {
		t.Errorf("userMessage(wrapped) = %q", got)
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{ledger.ErrNotRegistered, "not_registered"},
		{ledger.ErrAlreadyRegistered, "already_registered"},
		{ledger.ErrInvalidSlot, "invalid_slot"},
		{ledger.ErrSlotOccupied, "slot_occupied"},
		{ledger.ErrSlotLocked, "slot_locked"},
		{ledger.ErrEntryNotFound, "entry_not_found"},
		{ledger.ErrInvalidValue, "invalid_value"},
		{ledger.ErrForbidden, "forbidden"},
		{ledger.ErrStoreUnavailable, "store_unavailable"},
		{errors.New("boom"), "internal"},
	}

	for _, tc := range tests {
		if got := errorKind(tc.err); got != tc.want {
			t.Errorf("errorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestObserveCommand_NilMetrics(t *testing.T) {
	t.Parallel()

	// Must not panic without a metrics sink.
	observeCommand(context.Background(), nil, "register", time.Now(), nil)
	observeCommand(context.Background(), nil, "register", time.Now(), ledger.ErrNotRegistered)
}

func TestDefinitions(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)
	admins := discord.NewAdminChecker("", nil)

	tests := []struct {
		name string
		def  *discordgo.ApplicationCommand
		subs []string
	}{
		{
			name: "register",
			def:  NewRegisterCommand(engine, nil, nil).Definition(),
		},
		{
			name: "gear",
			def:  NewGearCommands(engine, admins, nil, nil).Definition(),
			subs: []string{"set", "edit", "show", "override", "remove", "unlock"},
		},
		{
			name: "loot",
			def:  NewLootCommands(engine, admins, nil, nil).Definition(),
			subs: []string{"assign", "bonus", "show", "remove", "removebonus", "find", "findbonus", "total"},
		},
		{
			name: "pity",
			def:  NewPityCommands(engine, admins, nil, nil).Definition(),
			subs: []string{"show", "add", "set"},
		},
		{
			name: "roster",
			def:  NewRosterCommands(engine, admins, nil, nil).Definition(),
			subs: []string{"list", "remove"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if tc.def.Name != tc.name {
				t.Errorf("Name = %q, want %q", tc.def.Name, tc.name)
			}
			if tc.def.Description == "" {
				t.Error("missing description")
			}
			if len(tc.def.Options) != len(tc.subs) {
				t.Fatalf("got %d subcommands, want %d", len(tc.def.Options), len(tc.subs))
			}
			for idx, want := range tc.subs {
				sub := tc.def.Options[idx]
				if sub.Name != want {
					t.Errorf("subcommand[%d] = %q, want %q", idx, sub.Name, want)
				}
				if sub.Type != discordgo.ApplicationCommandOptionSubCommand {
					t.Errorf("subcommand %q has type %v", sub.Name, sub.Type)
				}
				if sub.Description == "" {
					t.Errorf("subcommand %q missing description", sub.Name)
				}
			}
		})
	}
}

func TestDefinitions_OptionOrdering(t *testing.T) {
	t.Parallel()

	// Discord rejects commands where a required option follows an optional
	// one, so check every subcommand's option list.
	engine := newTestEngine(t)
	admins := discord.NewAdminChecker("", nil)

	defs := []*discordgo.ApplicationCommand{
		NewRegisterCommand(engine, nil, nil).Definition(),
		NewGearCommands(engine, admins, nil, nil).Definition(),
		NewLootCommands(engine, admins, nil, nil).Definition(),
		NewPityCommands(engine, admins, nil, nil).Definition(),
		NewRosterCommands(engine, admins, nil, nil).Definition(),
	}

	for _, def := range defs {
		for _, sub := range def.Options {
			seenOptional := false
			for _, opt := range sub.Options {
				if opt.Required && seenOptional {
					t.Errorf("/%s %s: required option %q follows an optional one", def.Name, sub.Name, opt.Name)
				}
				if !opt.Required {
					seenOptional = true
				}
			}
		}
	}
}

func TestRouterWiring(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)
	admins := discord.NewAdminChecker("", nil)
	router := discord.NewCommandRouter()

	NewRegisterCommand(engine, nil, nil).Register(router)
	NewGearCommands(engine, admins, nil, nil).Register(router)
	NewLootCommands(engine, admins, nil, nil).Register(router)
	NewPityCommands(engine, admins, nil, nil).Register(router)
	NewRosterCommands(engine, admins, nil, nil).Register(router)

	cmds := router.ApplicationCommands()
	if len(cmds) != 5 {
		t.Fatalf("registered %d top-level commands, want 5", len(cmds))
	}
	names := make(map[string]bool, len(cmds))
	for _, cmd := range cmds {
		names[cmd.Name] = true
	}
	for _, want := range []string{"register", "gear", "loot", "pity", "roster"} {
		if !names[want] {
			t.Errorf("command %q not registered", want)
		}
	}
}

func TestRenderGear(t *testing.T) {
	t.Parallel()

	catalog := ledger.MustDefaultCatalog()
	rec := ledger.NewPlayerRecord("alice", catalog)
	rec.Gear["Head"] = &ledger.GearEntry{Item: "Iron Helm", Locked: true}
	rec.Gear["Chest"] = &ledger.GearEntry{Item: "Mail Hauberk"}

	out := renderGear(catalog, rec)
	lines := strings.Split(out, "\n")
	if len(lines) != len(catalog.Slots()) {
		t.Fatalf("renderGear produced %d lines, want %d", len(lines), len(catalog.Slots()))
	}
	if lines[0] != "🔴 Head: Iron Helm" {
		t.Errorf("locked line = %q", lines[0])
	}
	if !strings.Contains(out, "🟢 Chest: Mail Hauberk") {
		t.Errorf("unlocked entry missing: %q", out)
	}
	if !strings.Contains(out, "⚪ Belt: *empty*") {
		t.Errorf("empty slot missing: %q", out)
	}
}

func TestRenderLoot(t *testing.T) {
	t.Parallel()

	rec := ledger.NewPlayerRecord("alice", ledger.MustDefaultCatalog())
	if got := renderLoot(rec); got != "*no loot awarded yet*" {
		t.Errorf("empty history = %q", got)
	}

	awarded := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	rec.Loot = append(rec.Loot,
		ledger.LootEntry{Slot: "Head", Item: "Iron Helm", AwardedAt: awarded},
		ledger.LootEntry{Slot: "Chest", Item: "Mail Hauberk", Source: "Raid Boss", AwardedAt: awarded},
	)

	out := renderLoot(rec)
	if !strings.Contains(out, "- Head: Iron Helm — 2026-03-01") {
		t.Errorf("plain entry missing: %q", out)
	}
	if !strings.Contains(out, "- Chest: Mail Hauberk (from Raid Boss) — 2026-03-01") {
		t.Errorf("sourced entry missing: %q", out)
	}
}

func TestRenderBonusLoot(t *testing.T) {
	t.Parallel()

	catalog := ledger.MustDefaultCatalog()
	rec := ledger.NewPlayerRecord("alice", catalog)
	if got := renderBonusLoot(catalog, rec); got != "*no bonus loot*" {
		t.Errorf("empty bonus loot = %q", got)
	}

	rec.BonusLoot = map[string][]string{
		"Belt": {"Spare Buckle"},
		"Head": {"Crest Fragment", "Second Fragment"},
	}

	out := renderBonusLoot(catalog, rec)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), out)
	}
	// Head precedes Belt in catalog order.
	if lines[0] != "- Head: Crest Fragment" || lines[2] != "- Belt: Spare Buckle" {
		t.Errorf("catalog ordering broken: %q", out)
	}
}

func TestMention(t *testing.T) {
	t.Parallel()

	if got := mention("42"); got != "<@42>" {
		t.Errorf("mention(42) = %q", got)
	}
}

func seedPlayer(t *testing.T, engine *ledger.Engine, identity string) {
	t.Helper()
	if _, err := engine.Register(context.Background(), identity); err != nil {
		t.Fatalf("Register(%q): %v", identity, err)
	}
}

func TestGearShow_NonAdminIsScopedToSelf(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, engine, "caller-1")
	seedPlayer(t, engine, "victim-2")
	if err := engine.SetGear(ctx, "victim-2", "Head", "Secret Helm"); err != nil {
		t.Fatal(err)
	}

	gc := NewGearCommands(engine, discord.NewAdminChecker("", nil), nil, nil)
	resp := &mock.InteractionResponder{}

	// A non-admin naming another player still sees their own gear.
	gc.handleShow(resp, subInteraction("show", targetOpt("victim-2")))

	embed := responseEmbed(t, resp)
	if !strings.Contains(embed.Description, "<@caller-1>") {
		t.Errorf("embed shows %q, want the caller's own record", embed.Description)
	}
	if strings.Contains(embed.Fields[0].Value, "Secret Helm") {
		t.Error("another player's gear leaked to a non-admin caller")
	}
}

func TestGearShow_AdminViewsTarget(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, engine, "caller-1")
	seedPlayer(t, engine, "victim-2")
	if err := engine.SetGear(ctx, "victim-2", "Head", "Secret Helm"); err != nil {
		t.Fatal(err)
	}

	gc := NewGearCommands(engine, discord.NewAdminChecker("", nil), nil, nil)
	resp := &mock.InteractionResponder{}

	gc.handleShow(resp, adminInteraction("show", targetOpt("victim-2")))

	embed := responseEmbed(t, resp)
	if !strings.Contains(embed.Description, "<@victim-2>") {
		t.Errorf("embed shows %q, want the targeted record", embed.Description)
	}
	if !strings.Contains(embed.Fields[0].Value, "Secret Helm") {
		t.Error("admin view missing the target's gear")
	}
}

func TestLootShow_NonAdminIsScopedToSelf(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, engine, "caller-1")
	seedPlayer(t, engine, "victim-2")
	if err := engine.AssignLoot(ctx, "victim-2", "Head", "Secret Helm", ""); err != nil {
		t.Fatal(err)
	}

	lc := NewLootCommands(engine, discord.NewAdminChecker("", nil), nil, nil)
	resp := &mock.InteractionResponder{}

	lc.handleShow(resp, subInteraction("show", targetOpt("victim-2")))

	embed := responseEmbed(t, resp)
	if !strings.Contains(embed.Description, "<@caller-1>") {
		t.Errorf("embed shows %q, want the caller's own record", embed.Description)
	}
	if embed.Fields[0].Value != "*no loot awarded yet*" {
		t.Errorf("history = %q, want the caller's empty history", embed.Fields[0].Value)
	}
}

func TestPityShow_TargetingRules(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, engine, "caller-1")
	seedPlayer(t, engine, "victim-2")
	if err := engine.SetPity(ctx, "victim-2", 7); err != nil {
		t.Fatal(err)
	}

	pc := NewPityCommands(engine, discord.NewAdminChecker("", nil), nil, nil)

	resp := &mock.InteractionResponder{}
	pc.handleShow(resp, subInteraction("show", targetOpt("victim-2")))
	if got := responseContent(t, resp); !strings.Contains(got, "<@caller-1>") || !strings.Contains(got, "**0**") {
		t.Errorf("non-admin show = %q, want the caller's own counter", got)
	}

	resp.Reset()
	pc.handleShow(resp, adminInteraction("show", targetOpt("victim-2")))
	if got := responseContent(t, resp); !strings.Contains(got, "<@victim-2>") || !strings.Contains(got, "**7**") {
		t.Errorf("admin show = %q, want the target's counter", got)
	}
}

func TestLootQueries_RequireAdmin(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)
	seedPlayer(t, engine, "caller-1")
	lc := NewLootCommands(engine, discord.NewAdminChecker("", nil), nil, nil)

	tests := []struct {
		name   string
		invoke func(resp *mock.InteractionResponder)
	}{
		{"find", func(resp *mock.InteractionResponder) {
			lc.handleFind(resp, subInteraction("find", strOpt("item", "Iron Helm")))
		}},
		{"findbonus", func(resp *mock.InteractionResponder) {
			lc.handleFindBonus(resp, subInteraction("findbonus", strOpt("text", "crest")))
		}},
		{"total", func(resp *mock.InteractionResponder) {
			lc.handleTotal(resp, subInteraction("total"))
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			resp := &mock.InteractionResponder{}
			tc.invoke(resp)

			if got := responseContent(t, resp); !strings.Contains(got, "Only administrators") {
				t.Errorf("response = %q, want an admin refusal", got)
			}
			if resp.LastResponse().Data.Flags != discordgo.MessageFlagsEphemeral {
				t.Error("refusal should be ephemeral")
			}
		})
	}
}

func TestLootQueries_AdminAllowed(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, engine, "caller-1")
	seedPlayer(t, engine, "victim-2")
	if err := engine.AssignLoot(ctx, "victim-2", "Head", "Iron Helm", ""); err != nil {
		t.Fatal(err)
	}

	lc := NewLootCommands(engine, discord.NewAdminChecker("", nil), nil, nil)

	resp := &mock.InteractionResponder{}
	lc.handleFind(resp, adminInteraction("find", strOpt("item", "iron helm")))
	if got := responseContent(t, resp); !strings.Contains(got, "<@victim-2>") {
		t.Errorf("find = %q, want the holder listed", got)
	}

	resp.Reset()
	lc.handleTotal(resp, adminInteraction("total"))
	if got := responseContent(t, resp); !strings.Contains(got, "**1**") {
		t.Errorf("total = %q, want 1 loot piece", got)
	}
}
