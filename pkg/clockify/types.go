package clockify

const (
	RoleTeamManager     = "TEAM_MANAGER"
	SourceTypeUserGroup = "USER_GROUP"
	StatusActive        = "ACTIVE"
	StatusInactive      = "INACTIVE"
	EntityTypeUser      = "USER"
	CustomFieldTypeText = "TXT"
	CustomFieldVisible  = "VISIBLE"
)

type Membership struct {
	TargetID         string `json:"targetId"`
	MembershipStatus string `json:"membershipStatus"`
	MembershipType   string `json:"membershipType,omitempty"`
}

type RoleEntity struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	SourceType string `json:"sourceType,omitempty"`
}

type Role struct {
	Role     string       `json:"role"`
	Entities []RoleEntity `json:"entities"`
}

type User struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	Name        string       `json:"name"`
	Status      string       `json:"status"`
	Memberships []Membership `json:"memberships"`
	Roles       []Role       `json:"roles"`
}

type Group struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	UserIDs []string `json:"userIds"`
}

type CustomField struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	EntityType string `json:"entityType"`
	Type       string `json:"type,omitempty"`
	Status     string `json:"status,omitempty"`
}

// RoleRequest targets one role assignment. A nil EntityID is sent as null,
// which is how ghost assignments are addressed.
type RoleRequest struct {
	EntityID   *string `json:"entityId"`
	Role       string  `json:"role"`
	SourceType string  `json:"sourceType,omitempty"`
}

type CustomFieldValue struct {
	CustomFieldID string `json:"customFieldId"`
	Value         string `json:"value"`
}

type ProfileUpdate struct {
	WorkCapacity     string             `json:"workCapacity"`
	UserCustomFields []CustomFieldValue `json:"userCustomFields"`
}

type createCustomFieldRequest struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	EntityType string `json:"entityType"`
	Status     string `json:"status"`
}

type createGroupRequest struct {
	Name string `json:"name"`
}

type groupMemberRequest struct {
	UserID string `json:"userId"`
}

type userStatusRequest struct {
	Status string `json:"status"`
}
