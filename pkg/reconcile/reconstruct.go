package reconcile

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/clockify-sync/pkg/clockify"
	"github.com/iota-uz/clockify-sync/pkg/rowsource"
)

// target is the desired manager and group of one row. managerID is empty
// when neither the row's manager nor the fallback manager resolves.
type target struct {
	managerID    string
	managerEmail string
	groupName    string
	fallback     bool
}

// Reconstruct applies every row in order. Protected groups are never joined
// or handed a manager, even when a manager's display name matches one.
func (e *Engine) Reconstruct(ctx context.Context, s *Snapshot, c *GroupClassification, tbl *rowsource.Table) {
	ctx, span := tracer.Start(ctx, "reconcile.Reconstruct")
	defer span.End()

	e.log.WithField("rows", len(tbl.Rows)).Info("reconstruction started")
	for i, row := range tbl.Rows {
		e.reconstructRow(ctx, s, c, i+1, row)
	}
}

func (e *Engine) reconstructRow(ctx context.Context, s *Snapshot, c *GroupClassification, line int, row rowsource.Row) {
	raw, _ := row.Get(rowsource.ColumnEmail)
	email := NormalizeEmail(raw)
	user, ok := s.UserByEmail(email)
	if !ok {
		e.result.SkippedRows++
		e.metrics.skippedRowsTotal.Inc()
		fields := logrus.Fields{"row": line, "email": email}
		if hint := suggestEmail(email, s.Emails()); hint != "" {
			fields["did_you_mean"] = hint
		}
		e.log.WithFields(fields).Debug("row skipped: email matches no workspace user")
		return
	}
	e.result.Processed++

	capacity := rowCapacity(row)
	cfs := e.customFieldValues(s, row)
	resp, err := e.ws.UpdateMemberProfile(ctx, user.ID, clockify.ProfileUpdate{
		WorkCapacity:     capacity,
		UserCustomFields: cfs,
	})
	e.record(email, ActionUpdateProfile, fmt.Sprintf("Capacity %s, %d custom field(s)", capacity, len(cfs)), resp, err)

	t := e.resolveTarget(s, email, row)
	if c.IsProtectedName(t.groupName) {
		e.warn(fmt.Sprintf("group %s is protected; %s not added to it", t.groupName, email),
			logrus.Fields{"email": email, "group": t.groupName})
		e.assignDirectManager(ctx, email, user.ID, t)
		return
	}

	g, ok := s.Groups.ByName(t.groupName)
	if !ok {
		g, ok = e.createGroup(ctx, s, email, t.groupName)
	}
	if !ok {
		return
	}

	resp, err = e.ws.AddGroupMember(ctx, g.ID, user.ID)
	e.record(email, ActionAddToGroup, g.Name, resp, err)
	if !containsString(g.UserIDs, user.ID) {
		g.UserIDs = append(g.UserIDs, user.ID)
	}

	if t.managerID == "" {
		e.warn("no manager resolvable; roles not assigned", logrus.Fields{"email": email, "group": g.Name})
		return
	}
	e.assignDirectManager(ctx, email, user.ID, t)

	groupID := g.ID
	resp, err = e.ws.AssignRole(ctx, t.managerID, clockify.RoleRequest{
		EntityID:   &groupID,
		Role:       clockify.RoleTeamManager,
		SourceType: clockify.SourceTypeUserGroup,
	})
	e.record(email, ActionAssignGroupMgr, fmt.Sprintf("%s over %s", t.managerEmail, g.Name), resp, err)
}

func (e *Engine) assignDirectManager(ctx context.Context, email, userID string, t target) {
	if t.managerID == "" {
		return
	}
	resp, err := e.ws.AssignRole(ctx, t.managerID, clockify.RoleRequest{
		EntityID: &userID,
		Role:     clockify.RoleTeamManager,
	})
	e.record(email, ActionAssignDirectMgr, "Manager "+t.managerEmail, resp, err)
}

// resolveTarget picks the row's manager when active, else the fallback
// manager and group. A present but unusable manager email is a warning.
func (e *Engine) resolveTarget(s *Snapshot, email string, row rowsource.Row) target {
	rawMgr, _ := row.Get(rowsource.ColumnManagerEmail)
	mgrEmail := NormalizeEmail(rawMgr)
	if mgr, ok := s.ActiveUserByEmail(mgrEmail); ok && mgrEmail != "" {
		return target{managerID: mgr.ID, managerEmail: mgrEmail, groupName: DisplayName(*mgr)}
	}

	t := target{groupName: e.opts.FallbackGroupName, fallback: true}
	if fb, ok := s.UserByEmail(e.opts.FallbackManagerEmail); ok && e.opts.FallbackManagerEmail != "" {
		t.managerID = fb.ID
		t.managerEmail = e.opts.FallbackManagerEmail
	}
	if mgrEmail != "" {
		fields := logrus.Fields{"email": email, "manager": mgrEmail}
		if hint := suggestEmail(mgrEmail, s.Emails()); hint != "" {
			fields["did_you_mean"] = hint
		}
		e.warn(fmt.Sprintf("manager %s invalid or inactive for %s; falling back", mgrEmail, email), fields)
		e.record(email, ActionFallbackAssign, fmt.Sprintf("Manager %s invalid/inactive, using %s", mgrEmail, t.groupName), nil, nil)
	}
	return t
}

// createGroup creates a group and adds it to the cache. Under dry-run nothing
// is sent and the group stays unknown.
func (e *Engine) createGroup(ctx context.Context, s *Snapshot, email, name string) (*clockify.Group, bool) {
	if name == "" {
		return nil, false
	}
	if e.opts.DryRun {
		e.note(email, ActionCreateGroup, "Skipped in dry-run: "+name)
		return nil, false
	}
	resp, err := e.ws.CreateGroup(ctx, name)
	e.record(email, ActionCreateGroup, name, resp, err)
	if resp == nil || (resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK) {
		return nil, false
	}
	var created clockify.Group
	if err := resp.Decode(&created); err != nil || created.ID == "" {
		e.log.WithField("group", name).Warn("created group has no id")
		return nil, false
	}
	if strings.TrimSpace(created.Name) == "" {
		created.Name = name
	}
	s.Groups.Add(created)
	return s.Groups.ByID(created.ID)
}

func rowCapacity(row rowsource.Row) string {
	raw, ok := row.Get(rowsource.ColumnWeeklyHours)
	if !ok {
		return DailyCapacity(defaultWeeklyHours)
	}
	return DailyCapacity(ParseHours(raw))
}

// customFieldValues includes a mapping only when the row has the column and
// the field id is known.
func (e *Engine) customFieldValues(s *Snapshot, row rowsource.Row) []clockify.CustomFieldValue {
	out := []clockify.CustomFieldValue{}
	for _, fm := range e.opts.FieldMapping {
		v, ok := row.Get(fm.Column)
		if !ok {
			continue
		}
		id, ok := s.CustomFieldID(fm.Field)
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(v), "nan") {
			v = ""
		}
		out = append(out, clockify.CustomFieldValue{CustomFieldID: id, Value: v})
	}
	return out
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
