package reconcile

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/clockify-sync/pkg/clockify"
	"github.com/iota-uz/clockify-sync/pkg/rowsource"
)

// AutoFixFallbackGroup gives the fallback manager TEAM_MANAGER over the
// fallback group, which cleanup stripped and no row may have restored.
func (e *Engine) AutoFixFallbackGroup(ctx context.Context, s *Snapshot, c *GroupClassification) {
	ctx, span := tracer.Start(ctx, "reconcile.AutoFixFallbackGroup")
	defer span.End()

	g, ok := s.Groups.ByName(e.opts.FallbackGroupName)
	if !ok || c.IsProtected(g.ID) {
		return
	}
	mgr, ok := s.UserByEmail(e.opts.FallbackManagerEmail)
	if !ok {
		e.log.WithField("fallback_manager", e.opts.FallbackManagerEmail).Warn("fallback manager not found; fallback group left unmanaged")
		return
	}
	gid := g.ID
	resp, err := e.ws.AssignRole(ctx, mgr.ID, clockify.RoleRequest{
		EntityID:   &gid,
		Role:       clockify.RoleTeamManager,
		SourceType: clockify.SourceTypeUserGroup,
	})
	e.record(e.opts.FallbackManagerEmail, ActionAutoFixGroupMgr, g.Name, resp, err)
}

// PurgeForeignGroups deletes every group seen in the snapshot that is
// neither protected nor managed.
func (e *Engine) PurgeForeignGroups(ctx context.Context, s *Snapshot, c *GroupClassification) {
	ctx, span := tracer.Start(ctx, "reconcile.PurgeForeignGroups")
	defer span.End()

	for _, g := range s.Groups.All() {
		if !c.IsForeign(g.ID) {
			continue
		}
		// Groups created in this run are named after managers and are not foreign.
		if _, managed := c.ManagedNames[g.Name]; managed {
			continue
		}
		resp, err := e.ws.DeleteGroup(ctx, g.ID)
		e.record("", ActionRemoveGroup, g.Name, resp, err)
	}
}

// DeactivateAbsent deactivates every active user named in neither the email
// nor the manager column of the table, except the fallback manager. Group manager roles they hold are first handed
// to the fallback manager.
func (e *Engine) DeactivateAbsent(ctx context.Context, s *Snapshot, c *GroupClassification, tbl *rowsource.Table) {
	ctx, span := tracer.Start(ctx, "reconcile.DeactivateAbsent")
	defer span.End()

	present := make(map[string]struct{}, len(tbl.Rows))
	for _, row := range tbl.Rows {
		for _, col := range []string{rowsource.ColumnEmail, rowsource.ColumnManagerEmail} {
			if v, ok := row.Get(col); ok {
				if email := NormalizeEmail(v); email != "" {
					present[email] = struct{}{}
				}
			}
		}
	}
	fallback, hasFallback := s.UserByEmail(e.opts.FallbackManagerEmail)

	for i := range s.Users {
		u := &s.Users[i]
		email := NormalizeEmail(u.Email)
		if email == "" || !IsActive(*u, s.WorkspaceID) {
			continue
		}
		if _, ok := present[email]; ok {
			continue
		}
		if hasFallback && u.ID == fallback.ID {
			continue
		}

		for _, gid := range managedGroupIDs(*u, s) {
			if c.IsManaged(gid) {
				continue
			}
			g, _ := s.Groups.ByID(gid)
			if !hasFallback {
				e.warn("no fallback manager; group role not reassigned", logrus.Fields{"email": email, "group": g.Name})
				continue
			}
			id := gid
			resp, err := e.ws.AssignRole(ctx, fallback.ID, clockify.RoleRequest{
				EntityID:   &id,
				Role:       clockify.RoleTeamManager,
				SourceType: clockify.SourceTypeUserGroup,
			})
			e.record(email, ActionPreDeactivation, g.Name+" to "+e.opts.FallbackManagerEmail, resp, err)
		}

		resp, err := e.ws.DeactivateUser(ctx, u.ID)
		e.record(email, ActionDeactivateUser, "Not in source table", resp, err)
	}
}

// managedGroupIDs lists known groups the user holds TEAM_MANAGER over.
func managedGroupIDs(u clockify.User, s *Snapshot) []string {
	var out []string
	for _, role := range u.Roles {
		if role.Role != clockify.RoleTeamManager {
			continue
		}
		for _, ent := range role.Entities {
			if ent.ID == "" {
				continue
			}
			if _, ok := s.Groups.ByID(ent.ID); ok && !containsString(out, ent.ID) {
				out = append(out, ent.ID)
			}
		}
	}
	return out
}
