// Package reconcile rebuilds a Clockify workspace's manager and group
// topology from a desired-state table.
//
// A run reads a snapshot of the workspace, classifies its groups, checks for
// write permission, wipes every managed group and manager role, then rebuilds
// them row by row. Every API attempt is classified and appended to a journal;
// a single failed call never stops the run.
package reconcile

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/iota-uz/clockify-sync/pkg/clockify"
	"github.com/iota-uz/clockify-sync/pkg/configuration"
	"github.com/iota-uz/clockify-sync/pkg/journal"
	"github.com/iota-uz/clockify-sync/pkg/rowsource"
)

var tracer = otel.Tracer("clockify-sync/reconcile")

var ErrPreflightDenied = errors.New("preflight: insufficient permissions")

// Workspace is the remote API surface a run consumes.
type Workspace interface {
	ID() string
	ListUsers(ctx context.Context) ([]clockify.User, error)
	ListGroups(ctx context.Context) ([]clockify.Group, error)
	ListCustomFields(ctx context.Context) ([]clockify.CustomField, error)
	CreateCustomField(ctx context.Context, name string) (*clockify.Response, error)
	UpdateMemberProfile(ctx context.Context, userID string, p clockify.ProfileUpdate) (*clockify.Response, error)
	CreateGroup(ctx context.Context, name string) (*clockify.Response, error)
	DeleteGroup(ctx context.Context, groupID string) (*clockify.Response, error)
	AddGroupMember(ctx context.Context, groupID, userID string) (*clockify.Response, error)
	RemoveGroupMember(ctx context.Context, groupID, userID string) (*clockify.Response, error)
	AssignRole(ctx context.Context, managerID string, r clockify.RoleRequest) (*clockify.Response, error)
	RemoveRole(ctx context.Context, userID string, r clockify.RoleRequest) (*clockify.Response, error)
	DeactivateUser(ctx context.Context, userID string) (*clockify.Response, error)
}

var _ Workspace = (*clockify.Workspace)(nil)

type Options struct {
	// RunID labels logs and the result; generated when empty.
	RunID string
	// DryRun must match the transport's mode; it additionally suppresses
	// group creation so no phantom ids enter the cache.
	DryRun bool
	// PurgeForeign deletes groups that are neither protected nor managed.
	PurgeForeign bool
	Deactivate   bool

	FallbackManagerEmail string
	FallbackGroupName    string
	FieldMapping         configuration.FieldMapping

	Conflict ConflictPredicate
	Logger   *logrus.Entry
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = logrusNop()
	}
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	o.FallbackManagerEmail = NormalizeEmail(o.FallbackManagerEmail)
	o.FallbackGroupName = strings.TrimSpace(o.FallbackGroupName)
}

// Result summarizes a finished run.
type Result struct {
	RunID       string
	DryRun      bool
	Rows        int
	Processed   int
	SkippedRows int
	Warnings    []string
	Successes   int
	Infos       int
	Errors      int
}

type Engine struct {
	ws         Workspace
	opts       Options
	log        *logrus.Entry
	classifier Classifier
	metrics    *runMetrics

	journal *journal.Journal
	result  *Result
}

func New(ws Workspace, opts Options) *Engine {
	opts.setDefaults()
	return &Engine{
		ws:         ws,
		opts:       opts,
		log:        opts.Logger,
		classifier: NewClassifier(opts.Conflict),
		metrics:    getMetrics(),
	}
}

// Run executes one full reconciliation against tbl, recording every attempt
// into j. It returns an error only for aborts: snapshot failure or a denied
// preflight. Individual failed calls are visible in j.
func (e *Engine) Run(ctx context.Context, tbl *rowsource.Table, j *journal.Journal) (*Result, error) {
	ctx, span := tracer.Start(ctx, "reconcile.Run")
	defer span.End()

	e.journal = j
	e.result = &Result{
		RunID:  e.opts.RunID,
		DryRun: e.opts.DryRun,
		Rows:   len(tbl.Rows),
	}
	e.log = e.opts.Logger.WithField("run_id", e.result.RunID)
	span.SetAttributes(
		attribute.String("run.id", e.result.RunID),
		attribute.Bool("run.dry_run", e.opts.DryRun),
		attribute.Int("run.rows", len(tbl.Rows)),
	)

	err := e.run(ctx, tbl)
	e.result.Successes = len(j.Successes())
	e.result.Errors = len(j.Errors())
	e.result.Infos = j.Infos()

	e.metrics.lastRunTimestamp.SetToCurrentTime()
	if err == nil && !j.HasErrors() {
		e.metrics.lastRunSuccess.Set(1)
	} else {
		e.metrics.lastRunSuccess.Set(0)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return e.result, err
}

func (e *Engine) run(ctx context.Context, tbl *rowsource.Table) error {
	var snap *Snapshot
	if err := e.phase("snapshot", func() (err error) {
		snap, err = e.LoadSnapshot(ctx)
		return err
	}); err != nil {
		return err
	}

	groups := ClassifyGroups(snap, tbl, e.opts.FallbackGroupName)
	e.log.WithFields(logrus.Fields{
		"protected": len(groups.ProtectedIDs),
		"managed":   len(groups.ManagedIDs),
	}).Info("groups classified")

	if err := e.phase("preflight", func() error { return e.Preflight(ctx, snap, groups) }); err != nil {
		return err
	}

	_ = e.phase("custom_fields", func() error {
		e.EnsureCustomFields(ctx, snap, e.opts.FieldMapping.Fields())
		return nil
	})
	_ = e.phase("cleanup", func() error {
		e.Cleanup(ctx, snap, groups)
		return nil
	})
	_ = e.phase("reconstruct", func() error {
		e.Reconstruct(ctx, snap, groups, tbl)
		return nil
	})
	_ = e.phase("autofix", func() error {
		e.AutoFixFallbackGroup(ctx, snap, groups)
		return nil
	})
	if e.opts.PurgeForeign {
		_ = e.phase("purge", func() error {
			e.PurgeForeignGroups(ctx, snap, groups)
			return nil
		})
	}
	if e.opts.Deactivate {
		_ = e.phase("deactivate", func() error {
			e.DeactivateAbsent(ctx, snap, groups, tbl)
			return nil
		})
	}
	return nil
}

func (e *Engine) phase(name string, fn func() error) error {
	start := time.Now()
	e.log.WithField("phase", name).Debug("phase started")
	err := fn()
	e.metrics.phaseDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	entry := e.log.WithFields(logrus.Fields{"phase": name, "took": time.Since(start).Round(time.Millisecond)})
	if err != nil {
		entry.WithError(err).Error("phase aborted")
		return err
	}
	entry.Debug("phase finished")
	return nil
}

// record classifies one attempt, journals it and logs it.
func (e *Engine) record(email, action, details string, resp *clockify.Response, err error) journal.Entry {
	if err != nil {
		e.log.WithError(err).WithField("action", action).Warn("no response")
	}
	v := e.classifier.Classify(email, action, details, resp, "")
	e.journal.Append(v.Entry)
	e.metrics.outcomesTotal.WithLabelValues(action, v.Entry.Outcome.String()).Inc()

	fields := logrus.Fields{"email": email, "action": action, "status": v.Entry.Status}
	switch v.Entry.Outcome {
	case journal.OutcomeSuccess:
		e.log.WithFields(fields).Info(v.Entry.Details)
	case journal.OutcomeInfo:
		e.log.WithFields(fields).Warn(v.Entry.Details)
	default:
		e.log.WithFields(fields).WithField("response", v.Diagnostic).Error(v.Entry.Details)
	}
	return v.Entry
}

// note records an attempt that was deliberately not sent.
func (e *Engine) note(email, action, details string) {
	e.journal.Append(e.classifier.Classify(email, action, details, &clockify.Response{}, "").Entry)
	e.metrics.outcomesTotal.WithLabelValues(action, journal.OutcomeInfo.String()).Inc()
	e.log.WithFields(logrus.Fields{"email": email, "action": action}).Warn(details)
}

func (e *Engine) warn(msg string, fields logrus.Fields) {
	e.result.Warnings = append(e.result.Warnings, msg)
	e.metrics.warningsTotal.Inc()
	e.log.WithFields(fields).Warn(msg)
}
