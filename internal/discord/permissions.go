package discord

import (
	"slices"

	"github.com/bwmarrin/discordgo"
)

// AdminChecker validates that a Discord user may run privileged commands.
// A user qualifies by configured user ID, by holding the configured admin
// role, or by the guild Administrator permission bit.
type AdminChecker struct {
	adminRoleID string
	adminIDs    map[string]struct{}
}

// NewAdminChecker creates an AdminChecker with the given role ID and
// explicit admin user IDs.
func NewAdminChecker(adminRoleID string, adminIDs []string) *AdminChecker {
	ids := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		ids[id] = struct{}{}
	}
	return &AdminChecker{adminRoleID: adminRoleID, adminIDs: ids}
}

// IsAdmin checks whether the interaction author is an administrator.
// Returns false for interactions without a Member (DM channels).
func (a *AdminChecker) IsAdmin(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	if i.Member.User != nil {
		if _, ok := a.adminIDs[i.Member.User.ID]; ok {
			return true
		}
	}
	if i.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return a.adminRoleID != "" && slices.Contains(i.Member.Roles, a.adminRoleID)
}

// IsAdminID reports whether the identity is in the configured admin ID
// list. The ledger engine uses this to refuse removing administrators;
// role-based admins are not visible here, so guard sensitive identities by
// listing them explicitly.
func (a *AdminChecker) IsAdminID(identity string) bool {
	_, ok := a.adminIDs[identity]
	return ok
}
