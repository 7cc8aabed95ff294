package reconcile

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/iota-uz/clockify-sync/pkg/clockify"
)

const (
	fakeWorkspaceID = "ws1"
	fakePrefix      = "/api/v1/workspaces/" + fakeWorkspaceID
)

// fakeClockify is an in-memory workspace served over HTTP. Every non-GET
// request is recorded in mutations; applied reports whether it changed state.
type fakeClockify struct {
	mu sync.Mutex

	users  []clockify.User
	groups []*clockify.Group
	fields []clockify.CustomField

	profiles  map[string]clockify.ProfileUpdate
	mutations []string
	nextID    int

	denyGroupWrites bool
	denyFieldCreate bool
	// dropGroupAdds closes the connection on that many member additions.
	dropGroupAdds int
}

func newFakeClockify() *fakeClockify {
	return &fakeClockify{profiles: map[string]clockify.ProfileUpdate{}}
}

func (f *fakeClockify) addUser(id, email, name string, active bool) *fakeClockify {
	status := clockify.StatusActive
	if !active {
		status = clockify.StatusInactive
	}
	f.users = append(f.users, clockify.User{
		ID:          id,
		Email:       email,
		Name:        name,
		Status:      clockify.StatusActive,
		Memberships: []clockify.Membership{{TargetID: fakeWorkspaceID, MembershipStatus: status}},
	})
	return f
}

func (f *fakeClockify) addGroup(id, name string, members ...string) *fakeClockify {
	f.groups = append(f.groups, &clockify.Group{ID: id, Name: name, UserIDs: members})
	return f
}

func (f *fakeClockify) addField(id, name string) *fakeClockify {
	f.fields = append(f.fields, clockify.CustomField{ID: id, Name: name, EntityType: clockify.EntityTypeUser})
	return f
}

func (f *fakeClockify) grantRole(managerID, entityID, sourceType string) *fakeClockify {
	u := f.user(managerID)
	for i := range u.Roles {
		if u.Roles[i].Role == clockify.RoleTeamManager {
			u.Roles[i].Entities = append(u.Roles[i].Entities, clockify.RoleEntity{ID: entityID, SourceType: sourceType})
			return f
		}
	}
	u.Roles = append(u.Roles, clockify.Role{
		Role:     clockify.RoleTeamManager,
		Entities: []clockify.RoleEntity{{ID: entityID, SourceType: sourceType}},
	})
	return f
}

func (f *fakeClockify) user(id string) *clockify.User {
	for i := range f.users {
		if f.users[i].ID == id {
			return &f.users[i]
		}
	}
	return nil
}

func (f *fakeClockify) group(id string) *clockify.Group {
	for _, g := range f.groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

func (f *fakeClockify) groupByName(name string) *clockify.Group {
	for _, g := range f.groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

func (f *fakeClockify) hasRole(managerID, entityID string) bool {
	u := f.user(managerID)
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r.Role != clockify.RoleTeamManager {
			continue
		}
		for _, e := range r.Entities {
			if e.ID == entityID {
				return true
			}
		}
	}
	return false
}

func (f *fakeClockify) removeRole(userID, entityID string) bool {
	u := f.user(userID)
	if u == nil {
		return false
	}
	removed := false
	for i := range u.Roles {
		if u.Roles[i].Role != clockify.RoleTeamManager {
			continue
		}
		kept := u.Roles[i].Entities[:0]
		for _, e := range u.Roles[i].Entities {
			if e.ID == entityID {
				removed = true
				continue
			}
			kept = append(kept, e)
		}
		u.Roles[i].Entities = kept
	}
	return removed
}

func (f *fakeClockify) Mutations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.mutations...)
}

func (f *fakeClockify) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func paginate[T any](r *http.Request, items []T) []T {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page-size"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 50
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func (f *fakeClockify) serveHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("X-Api-Key") == "" {
		writeMessage(w, http.StatusUnauthorized, "missing api key")
		return
	}
	if !strings.HasPrefix(r.URL.Path, fakePrefix) {
		writeMessage(w, http.StatusNotFound, "unknown workspace")
		return
	}
	path := strings.TrimPrefix(r.URL.Path, fakePrefix)
	parts := strings.Split(strings.Trim(path, "/"), "/")

	var body map[string]any
	if r.Method != http.MethodGet {
		f.mutations = append(f.mutations, r.Method+" "+path)
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	if r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "user-groups" && parts[2] == "users" && f.dropGroupAdds > 0 {
		f.dropGroupAdds--
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				_ = conn.Close()
				return
			}
		}
	}
	str := func(k string) string {
		s, _ := body[k].(string)
		return s
	}

	switch {
	case r.Method == http.MethodGet && path == "/users":
		writeJSON(w, http.StatusOK, paginate(r, f.users))

	case r.Method == http.MethodGet && path == "/user-groups":
		out := make([]clockify.Group, 0, len(f.groups))
		for _, g := range f.groups {
			out = append(out, *g)
		}
		writeJSON(w, http.StatusOK, paginate(r, out))

	case r.Method == http.MethodGet && path == "/custom-fields":
		writeJSON(w, http.StatusOK, paginate(r, f.fields))

	case r.Method == http.MethodPost && path == "/custom-fields":
		if f.denyFieldCreate {
			writeMessage(w, http.StatusForbidden, "forbidden")
			return
		}
		f.nextID++
		cf := clockify.CustomField{ID: fmt.Sprintf("cf-new-%d", f.nextID), Name: str("name"), EntityType: str("entityType")}
		f.fields = append(f.fields, cf)
		writeJSON(w, http.StatusCreated, cf)

	case r.Method == http.MethodPatch && len(parts) == 2 && parts[0] == "member-profile":
		raw, _ := json.Marshal(body)
		var p clockify.ProfileUpdate
		_ = json.Unmarshal(raw, &p)
		f.profiles[parts[1]] = p
		writeJSON(w, http.StatusOK, map[string]string{"userId": parts[1]})

	case r.Method == http.MethodPost && path == "/user-groups":
		if f.denyGroupWrites {
			writeMessage(w, http.StatusForbidden, "forbidden")
			return
		}
		if f.groupByName(str("name")) != nil {
			writeMessage(w, http.StatusBadRequest, "Group with that name already exists")
			return
		}
		f.nextID++
		g := &clockify.Group{ID: fmt.Sprintf("g-new-%d", f.nextID), Name: str("name"), UserIDs: []string{}}
		f.groups = append(f.groups, g)
		writeJSON(w, http.StatusCreated, g)

	case r.Method == http.MethodDelete && len(parts) == 2 && parts[0] == "user-groups":
		for i, g := range f.groups {
			if g.ID == parts[1] {
				f.groups = append(f.groups[:i], f.groups[i+1:]...)
				writeJSON(w, http.StatusOK, g)
				return
			}
		}
		writeMessage(w, http.StatusNotFound, "group not found")

	case r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "user-groups" && parts[2] == "users":
		if f.denyGroupWrites {
			writeMessage(w, http.StatusForbidden, "forbidden")
			return
		}
		g := f.group(parts[1])
		if g == nil {
			writeMessage(w, http.StatusNotFound, "group not found")
			return
		}
		uid := str("userId")
		for _, m := range g.UserIDs {
			if m == uid {
				writeMessage(w, http.StatusBadRequest, "User is already a member of this group")
				return
			}
		}
		g.UserIDs = append(g.UserIDs, uid)
		writeJSON(w, http.StatusOK, g)

	case r.Method == http.MethodDelete && len(parts) == 4 && parts[0] == "user-groups" && parts[2] == "users":
		g := f.group(parts[1])
		if g == nil {
			writeMessage(w, http.StatusNotFound, "group not found")
			return
		}
		for i, m := range g.UserIDs {
			if m == parts[3] {
				g.UserIDs = append(g.UserIDs[:i], g.UserIDs[i+1:]...)
				writeJSON(w, http.StatusOK, g)
				return
			}
		}
		writeMessage(w, http.StatusBadRequest, "user is not a member")

	case r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "users" && parts[2] == "roles":
		if f.user(parts[1]) == nil {
			writeMessage(w, http.StatusNotFound, "user not found")
			return
		}
		entity := str("entityId")
		if f.hasRole(parts[1], entity) {
			writeMessage(w, http.StatusBadRequest, "User already has this role")
			return
		}
		f.grantRole(parts[1], entity, str("sourceType"))
		writeJSON(w, http.StatusCreated, map[string]string{"entityId": entity})

	case r.Method == http.MethodDelete && len(parts) == 3 && parts[0] == "users" && parts[2] == "roles":
		if !f.removeRole(parts[1], str("entityId")) {
			writeMessage(w, http.StatusNotFound, "role not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodPut && len(parts) == 2 && parts[0] == "users":
		u := f.user(parts[1])
		if u == nil {
			writeMessage(w, http.StatusNotFound, "user not found")
			return
		}
		for i := range u.Memberships {
			if u.Memberships[i].TargetID == fakeWorkspaceID {
				u.Memberships[i].MembershipStatus = str("status")
			}
		}
		u.Status = str("status")
		writeJSON(w, http.StatusOK, u)

	default:
		writeMessage(w, http.StatusNotFound, "no route "+r.Method+" "+path)
	}
}
