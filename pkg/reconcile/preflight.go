package reconcile

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
)

// Preflight re-adds an existing member to the first unprotected non-empty
// group. A 401 or 403 aborts the run before anything is mutated. Without a
// suitable group the check is skipped.
func (e *Engine) Preflight(ctx context.Context, s *Snapshot, c *GroupClassification) error {
	ctx, span := tracer.Start(ctx, "reconcile.Preflight")
	defer span.End()

	for _, g := range s.Groups.All() {
		if c.IsProtected(g.ID) || len(g.UserIDs) == 0 {
			continue
		}
		log := e.log.WithFields(logrus.Fields{"group": g.Name, "group_id": g.ID})
		log.Info("probing write permission")

		resp, err := e.ws.AddGroupMember(ctx, g.ID, g.UserIDs[0])
		if err != nil {
			log.WithError(err).Warn("preflight check got no response")
			return nil
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return errors.Wrapf(ErrPreflightDenied, "status %d: %s", resp.StatusCode, truncateString(resp.Text(), diagnosticLen))
		}
		return nil
	}
	e.log.Warn("preflight skipped: no unprotected group with members")
	return nil
}
