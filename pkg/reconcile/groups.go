package reconcile

import (
	"strings"

	"github.com/iota-uz/clockify-sync/pkg/rowsource"
)

type idSet map[string]struct{}

func (s idSet) has(id string) bool {
	_, ok := s[id]
	return ok
}

// GroupClassification partitions remote groups. A group id is never in both
// ProtectedIDs and ManagedIDs; foreign groups are those in neither.
type GroupClassification struct {
	ProtectedNames map[string]struct{}
	ProtectedIDs   idSet
	ManagedNames   map[string]struct{}
	ManagedIDs     idSet
}

func (c *GroupClassification) IsProtected(id string) bool { return c.ProtectedIDs.has(id) }

func (c *GroupClassification) IsManaged(id string) bool { return c.ManagedIDs.has(id) }

// IsProtectedName reports whether a group with this name is protected,
// whether or not it exists remotely.
func (c *GroupClassification) IsProtectedName(name string) bool {
	_, ok := c.ProtectedNames[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

func (c *GroupClassification) IsForeign(id string) bool {
	return !c.IsProtected(id) && !c.IsManaged(id)
}

// ClassifyGroups derives protected groups from the country-label column and
// managed groups from the fallback group plus every active CSV manager's
// display name. Protection wins ties.
func ClassifyGroups(s *Snapshot, tbl *rowsource.Table, fallbackGroup string) *GroupClassification {
	c := &GroupClassification{
		ProtectedNames: map[string]struct{}{},
		ProtectedIDs:   idSet{},
		ManagedNames:   map[string]struct{}{strings.TrimSpace(fallbackGroup): {}},
		ManagedIDs:     idSet{},
	}

	for _, row := range tbl.Rows {
		if label, ok := row.Get(rowsource.ColumnCountryLabel); ok {
			if v := strings.ToLower(strings.TrimSpace(label)); v != "" {
				c.ProtectedNames[v] = struct{}{}
			}
		}
		if mgr, ok := row.Get(rowsource.ColumnManagerEmail); ok {
			if u, ok := s.ActiveUserByEmail(mgr); ok {
				c.ManagedNames[DisplayName(*u)] = struct{}{}
			}
		}
	}

	groups := s.Groups.All()
	for _, g := range groups {
		if _, ok := c.ProtectedNames[strings.ToLower(g.Name)]; ok {
			c.ProtectedIDs[g.ID] = struct{}{}
		}
	}
	for _, g := range groups {
		if _, ok := c.ManagedNames[g.Name]; ok && !c.ProtectedIDs.has(g.ID) {
			c.ManagedIDs[g.ID] = struct{}{}
		}
	}
	return c
}
