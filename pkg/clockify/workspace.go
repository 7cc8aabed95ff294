package clockify

import (
	"context"
	"net/http"
	"net/url"
)

// Workspace binds a Sender to one workspace id. Mutating calls return the raw
// response so the caller can classify it; a nil response means the call never
// completed.
type Workspace struct {
	sender Sender
	id     string
}

func NewWorkspace(s Sender, workspaceID string) *Workspace {
	return &Workspace{sender: s, id: workspaceID}
}

func (w *Workspace) ID() string {
	return w.id
}

func (w *Workspace) path(p string) string {
	return "/workspaces/" + url.PathEscape(w.id) + p
}

func (w *Workspace) ListUsers(ctx context.Context) ([]User, error) {
	return FetchAll[User](ctx, w.sender, w.path("/users"))
}

func (w *Workspace) ListGroups(ctx context.Context) ([]Group, error) {
	return FetchAll[Group](ctx, w.sender, w.path("/user-groups"))
}

func (w *Workspace) ListCustomFields(ctx context.Context) ([]CustomField, error) {
	return FetchAll[CustomField](ctx, w.sender, w.path("/custom-fields?entity-type="+EntityTypeUser))
}

func (w *Workspace) CreateCustomField(ctx context.Context, name string) (*Response, error) {
	return w.sender.Send(ctx, http.MethodPost, w.path("/custom-fields"), createCustomFieldRequest{
		Name:       name,
		Type:       CustomFieldTypeText,
		EntityType: EntityTypeUser,
		Status:     CustomFieldVisible,
	})
}

func (w *Workspace) UpdateMemberProfile(ctx context.Context, userID string, p ProfileUpdate) (*Response, error) {
	if p.UserCustomFields == nil {
		p.UserCustomFields = []CustomFieldValue{}
	}
	return w.sender.Send(ctx, http.MethodPatch, w.path("/member-profile/"+url.PathEscape(userID)), p)
}

func (w *Workspace) CreateGroup(ctx context.Context, name string) (*Response, error) {
	return w.sender.Send(ctx, http.MethodPost, w.path("/user-groups"), createGroupRequest{Name: name})
}

func (w *Workspace) DeleteGroup(ctx context.Context, groupID string) (*Response, error) {
	return w.sender.Send(ctx, http.MethodDelete, w.path("/user-groups/"+url.PathEscape(groupID)), nil)
}

func (w *Workspace) AddGroupMember(ctx context.Context, groupID, userID string) (*Response, error) {
	return w.sender.Send(ctx, http.MethodPost,
		w.path("/user-groups/"+url.PathEscape(groupID)+"/users"),
		groupMemberRequest{UserID: userID})
}

func (w *Workspace) RemoveGroupMember(ctx context.Context, groupID, userID string) (*Response, error) {
	return w.sender.Send(ctx, http.MethodDelete,
		w.path("/user-groups/"+url.PathEscape(groupID)+"/users/"+url.PathEscape(userID)), nil)
}

func (w *Workspace) AssignRole(ctx context.Context, managerID string, r RoleRequest) (*Response, error) {
	return w.sender.Send(ctx, http.MethodPost, w.path("/users/"+url.PathEscape(managerID)+"/roles"), r)
}

func (w *Workspace) RemoveRole(ctx context.Context, userID string, r RoleRequest) (*Response, error) {
	return w.sender.Send(ctx, http.MethodDelete, w.path("/users/"+url.PathEscape(userID)+"/roles"), r)
}

func (w *Workspace) DeactivateUser(ctx context.Context, userID string) (*Response, error) {
	return w.sender.Send(ctx, http.MethodPut, w.path("/users/"+url.PathEscape(userID)),
		userStatusRequest{Status: StatusInactive})
}
