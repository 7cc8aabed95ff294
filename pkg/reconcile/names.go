package reconcile

import (
	"strings"

	"github.com/iota-uz/clockify-sync/pkg/clockify"
)

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DisplayName is the user's trimmed name, then email, then "".
func DisplayName(u clockify.User) string {
	if u.Name != "" {
		return strings.TrimSpace(u.Name)
	}
	return strings.TrimSpace(u.Email)
}

// IsActive prefers the membership record for workspaceID and falls back to
// the top-level status.
func IsActive(u clockify.User, workspaceID string) bool {
	for _, m := range u.Memberships {
		if m.TargetID == workspaceID {
			return m.MembershipStatus == clockify.StatusActive
		}
	}
	return u.Status == clockify.StatusActive
}
