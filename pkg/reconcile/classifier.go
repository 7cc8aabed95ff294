package reconcile

import (
	"net/http"
	"strings"

	"github.com/iota-uz/clockify-sync/pkg/clockify"
	"github.com/iota-uz/clockify-sync/pkg/journal"
)

const (
	ActionUpdateProfile     = "Update Profile"
	ActionFallbackAssign    = "Fallback Assignment"
	ActionCreateGroup       = "Create Group"
	ActionCreateCustomField = "Create Custom Field"
	ActionAddToGroup        = "Add to Group"
	ActionAssignDirectMgr   = "Assign Direct Mgr"
	ActionAssignGroupMgr    = "Assign Group Mgr"
	ActionAutoFixGroupMgr   = "Auto-Fix Group Mgr"
	ActionWipeRole          = "Wipe Role"
	ActionRemoveMember      = "Remove Member"
	ActionRemoveGroup       = "Remove Group"
	ActionPreDeactivation   = "Pre-Deactivation Reassign"
	ActionDeactivateUser    = "Deactivate User"

	statusNoResponse = 599
	noResponseText   = "No Response"
	diagnosticLen    = 200

	annotationAlreadyClean = " (Already clean)"
	annotationAlreadySet   = " (Already set)"
)

var cleanupPrefixes = []string{"Wipe", "Remove", "Deactivate"}

var idempotentActions = map[string]struct{}{
	ActionAddToGroup:        {},
	ActionAssignDirectMgr:   {},
	ActionAssignGroupMgr:    {},
	ActionCreateGroup:       {},
	ActionCreateCustomField: {},
	ActionAutoFixGroupMgr:   {},
	ActionPreDeactivation:   {},
}

var conflictMarkers = []string{"already", "exists", "duplicate"}

// ConflictPredicate reports whether an error body means the desired state
// already holds.
type ConflictPredicate func(body string) bool

// BodyMentionsConflict matches the markers the Clockify API uses for
// conflicts, case-insensitively.
func BodyMentionsConflict(body string) bool {
	lower := strings.ToLower(body)
	for _, m := range conflictMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Verdict is a classified attempt plus the diagnostic to surface, if any.
type Verdict struct {
	Entry      journal.Entry
	Diagnostic string
}

type Classifier struct {
	Conflict ConflictPredicate
}

func NewClassifier(conflict ConflictPredicate) Classifier {
	if conflict == nil {
		conflict = BodyMentionsConflict
	}
	return Classifier{Conflict: conflict}
}

// Classify turns one API attempt into a journal entry. A nil response with
// an empty errMsg means the call never completed.
func (c Classifier) Classify(email, action, details string, resp *clockify.Response, errMsg string) Verdict {
	conflict := c.Conflict
	if conflict == nil {
		conflict = BodyMentionsConflict
	}

	status := 0
	text := errMsg
	if resp != nil {
		status = resp.StatusCode
		text = resp.Text()
	} else if errMsg == "" {
		text = noResponseText
		if action == ActionFallbackAssign {
			status = http.StatusNoContent
		} else {
			status = statusNoResponse
			errMsg = noResponseText
		}
	}

	cleanupOK := isCleanupAction(action) && (status == http.StatusBadRequest || status == http.StatusNotFound)
	_, idempotent := idempotentActions[action]
	conflictOK := idempotent &&
		(status == http.StatusBadRequest || status == http.StatusConflict) &&
		conflict(text)

	e := journal.Entry{
		Email:    email,
		Action:   action,
		Details:  details,
		Status:   status,
		Response: text,
	}
	switch {
	case status >= 200 && status < 300:
		e.Outcome = journal.OutcomeSuccess
	case cleanupOK:
		e.Outcome = journal.OutcomeSuccess
		e.Details += annotationAlreadyClean
	case conflictOK:
		e.Outcome = journal.OutcomeSuccess
		e.Details += annotationAlreadySet
	case status == 0 && errMsg == "":
		e.Outcome = journal.OutcomeInfo
	default:
		e.Outcome = journal.OutcomeFailure
	}

	v := Verdict{Entry: e}
	if e.Outcome == journal.OutcomeFailure {
		v.Diagnostic = truncateString(text, diagnosticLen)
	}
	return v
}

func isCleanupAction(action string) bool {
	for _, p := range cleanupPrefixes {
		if strings.HasPrefix(action, p) {
			return true
		}
	}
	return false
}
