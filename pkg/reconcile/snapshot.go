package reconcile

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/clockify-sync/pkg/clockify"
)

// GroupCache indexes groups by trimmed name and by id. Groups created during
// reconstruction are added here so later rows reuse them.
type GroupCache struct {
	ordered []string
	byName  map[string]*clockify.Group
	byID    map[string]*clockify.Group
}

func NewGroupCache(groups []clockify.Group) *GroupCache {
	c := &GroupCache{
		byName: make(map[string]*clockify.Group, len(groups)),
		byID:   make(map[string]*clockify.Group, len(groups)),
	}
	for _, g := range groups {
		c.Add(g)
	}
	return c
}

// Add stores g; a later group with the same name replaces the earlier one in
// the name index.
func (c *GroupCache) Add(g clockify.Group) {
	g.Name = strings.TrimSpace(g.Name)
	stored := &g
	if _, ok := c.byID[g.ID]; !ok {
		c.ordered = append(c.ordered, g.ID)
	}
	c.byName[g.Name] = stored
	c.byID[g.ID] = stored
}

func (c *GroupCache) ByName(name string) (*clockify.Group, bool) {
	g, ok := c.byName[strings.TrimSpace(name)]
	return g, ok
}

func (c *GroupCache) ByID(id string) (*clockify.Group, bool) {
	g, ok := c.byID[id]
	return g, ok
}

// All returns groups in the order they were first seen.
func (c *GroupCache) All() []*clockify.Group {
	out := make([]*clockify.Group, 0, len(c.ordered))
	for _, id := range c.ordered {
		out = append(out, c.byID[id])
	}
	return out
}

// Snapshot is the remote state read at the start of a run.
type Snapshot struct {
	WorkspaceID string
	Users       []clockify.User
	Groups      *GroupCache

	usersByEmail map[string]*clockify.User
	usersByID    map[string]*clockify.User

	// customFields maps USER-scoped custom field names to ids.
	customFields map[string]string
}

func NewSnapshot(workspaceID string, users []clockify.User, groups []clockify.Group, fields []clockify.CustomField) *Snapshot {
	s := &Snapshot{
		WorkspaceID:  workspaceID,
		Users:        users,
		Groups:       NewGroupCache(groups),
		usersByEmail: make(map[string]*clockify.User, len(users)),
		usersByID:    make(map[string]*clockify.User, len(users)),
		customFields: make(map[string]string, len(fields)),
	}
	for i := range s.Users {
		u := &s.Users[i]
		s.usersByID[u.ID] = u
		if key := NormalizeEmail(u.Email); key != "" {
			s.usersByEmail[key] = u
		}
	}
	for _, f := range fields {
		if f.EntityType == clockify.EntityTypeUser {
			s.customFields[f.Name] = f.ID
		}
	}
	return s
}

func (s *Snapshot) UserByEmail(email string) (*clockify.User, bool) {
	u, ok := s.usersByEmail[NormalizeEmail(email)]
	return u, ok
}

func (s *Snapshot) UserByID(id string) (*clockify.User, bool) {
	u, ok := s.usersByID[id]
	return u, ok
}

// ActiveUserByEmail resolves an email to a user that is active in this
// workspace.
func (s *Snapshot) ActiveUserByEmail(email string) (*clockify.User, bool) {
	u, ok := s.UserByEmail(email)
	if !ok || !IsActive(*u, s.WorkspaceID) {
		return nil, false
	}
	return u, true
}

func (s *Snapshot) Emails() []string {
	out := make([]string, 0, len(s.usersByEmail))
	for e := range s.usersByEmail {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

func (s *Snapshot) CustomFieldID(name string) (string, bool) {
	id, ok := s.customFields[name]
	return id, ok
}

// emailOf names a user id for journal entries.
func (s *Snapshot) emailOf(userID string) string {
	if u, ok := s.usersByID[userID]; ok && u.Email != "" {
		return u.Email
	}
	return userID
}

// LoadSnapshot reads users, groups and USER custom fields. Users and groups
// are required; a custom-field listing failure is logged and tolerated.
func (e *Engine) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	ctx, span := tracer.Start(ctx, "reconcile.LoadSnapshot")
	defer span.End()

	users, err := e.ws.ListUsers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	groups, err := e.ws.ListGroups(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list groups")
	}
	fields, err := e.ws.ListCustomFields(ctx)
	if err != nil {
		e.log.WithError(err).Warn("custom fields could not be listed fully")
	}

	s := NewSnapshot(e.ws.ID(), users, groups, fields)
	e.log.WithFields(logrus.Fields{
		"users":         len(users),
		"groups":        len(groups),
		"custom_fields": len(s.customFields),
	}).Info("workspace snapshot loaded")
	return s, nil
}

// EnsureCustomFields creates every required USER custom field that is not
// present yet. A failed creation leaves the field absent and the run goes on.
func (e *Engine) EnsureCustomFields(ctx context.Context, s *Snapshot, required []string) {
	ctx, span := tracer.Start(ctx, "reconcile.EnsureCustomFields")
	defer span.End()

	for _, name := range required {
		if _, ok := s.customFields[name]; ok {
			continue
		}
		resp, err := e.ws.CreateCustomField(ctx, name)
		e.record("", ActionCreateCustomField, name, resp, err)
		if resp == nil || (resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated) {
			continue
		}
		var created clockify.CustomField
		if err := resp.Decode(&created); err != nil || created.ID == "" {
			continue
		}
		s.customFields[name] = created.ID
	}
}
