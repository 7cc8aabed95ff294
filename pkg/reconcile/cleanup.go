package reconcile

import (
	"context"

	"github.com/iota-uz/clockify-sync/pkg/clockify"
)

const ghostLabel = "Ghost"

// Cleanup removes every TEAM_MANAGER assignment pointing at a managed group
// or at nothing, then empties every managed group.
func (e *Engine) Cleanup(ctx context.Context, s *Snapshot, c *GroupClassification) {
	ctx, span := tracer.Start(ctx, "reconcile.Cleanup")
	defer span.End()

	e.log.WithField("managed_groups", len(c.ManagedIDs)).Info("cleanup started")

	for _, u := range s.Users {
		for _, role := range u.Roles {
			if role.Role != clockify.RoleTeamManager {
				continue
			}
			for _, ent := range role.Entities {
				if ent.ID != "" && !c.IsManaged(ent.ID) {
					continue
				}
				req := clockify.RoleRequest{Role: clockify.RoleTeamManager}
				label := ghostLabel
				if ent.ID != "" {
					id := ent.ID
					req.EntityID = &id
					label = id
				}
				resp, err := e.ws.RemoveRole(ctx, u.ID, req)
				e.record(u.Email, ActionWipeRole, "Unassigned from "+label, resp, err)
			}
		}
	}

	for _, g := range s.Groups.All() {
		if !c.IsManaged(g.ID) {
			continue
		}
		for _, uid := range g.UserIDs {
			resp, err := e.ws.RemoveGroupMember(ctx, g.ID, uid)
			e.record(s.emailOf(uid), ActionRemoveMember, "From "+g.Name, resp, err)
		}
		g.UserIDs = nil
	}
}
