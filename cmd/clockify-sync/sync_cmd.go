package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/clockify-sync/pkg/clockify"
	"github.com/iota-uz/clockify-sync/pkg/configuration"
	"github.com/iota-uz/clockify-sync/pkg/journal"
	"github.com/iota-uz/clockify-sync/pkg/metrics"
	"github.com/iota-uz/clockify-sync/pkg/reconcile"
	"github.com/iota-uz/clockify-sync/pkg/rowsource"
	"github.com/iota-uz/clockify-sync/pkg/tracing"
)

const confirmPhrase = "I UNDERSTAND"

type syncOptions struct {
	configPath    string
	inputPath     string
	dryRun        bool
	cleanup       bool
	deactivate    bool
	apiKey        string
	workspaceID   string
	yes           bool
	journalDir    string
	journalFormat string
}

type syncSummary struct {
	RunID       string   `json:"run_id"`
	DryRun      bool     `json:"dry_run"`
	Rows        int      `json:"rows"`
	Processed   int      `json:"processed"`
	SkippedRows int      `json:"skipped_rows"`
	Warnings    int      `json:"warnings"`
	Successes   int      `json:"successes"`
	Infos       int      `json:"infos"`
	Errors      int      `json:"errors"`
	SuccessLog  string   `json:"success_log"`
	ErrorLog    string   `json:"error_log"`
	Aborted     string   `json:"aborted,omitempty"`
	Notes       []string `json:"notes,omitempty"`
}

func newSyncCmd() *cobra.Command {
	var opts syncOptions

	cmd := &cobra.Command{
		Use:   "sync <input.csv|input.xlsx>",
		Short: "Wipe managed groups and manager roles, then rebuild them from the input table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.inputPath = args[0]
			return runSync(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "config.yaml", "Path to the YAML configuration")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Read remote state but send no mutating request")
	cmd.Flags().BoolVar(&opts.cleanup, "cleanup", false, "Delete groups that are neither protected nor managed")
	cmd.Flags().BoolVar(&opts.deactivate, "deactivate", false, "Deactivate active users missing from the input")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "Clockify API key (default: $CLOCKIFY_API_KEY)")
	cmd.Flags().StringVar(&opts.workspaceID, "workspace", "", "Clockify workspace id (default: $CLOCKIFY_WORKSPACE_ID)")
	cmd.Flags().BoolVar(&opts.yes, "yes", false, "Skip the confirmation prompt for destructive phases")
	cmd.Flags().StringVar(&opts.journalDir, "journal-dir", "", "Directory for the success/error logs (overrides config)")
	cmd.Flags().StringVar(&opts.journalFormat, "journal-format", "", "Log format: csv or xlsx (overrides config)")
	return cmd
}

func runSync(ctx context.Context, opts syncOptions, in io.Reader, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := configuration.Load(opts.configPath)
	if err != nil {
		return withCode(exitValidation, err)
	}
	if v := strings.TrimSpace(opts.apiKey); v != "" {
		cfg.Credentials.APIKey = v
	}
	if v := strings.TrimSpace(opts.workspaceID); v != "" {
		cfg.Credentials.WorkspaceID = v
	}
	if err := cfg.Credentials.Validate(); err != nil {
		return withCode(exitUsage, err)
	}
	if v := strings.TrimSpace(opts.journalDir); v != "" {
		cfg.Journal.Dir = v
	}
	if v := strings.TrimSpace(opts.journalFormat); v != "" {
		cfg.Journal.Format = v
	}
	sink, err := journal.NewSink(cfg.Journal.Format)
	if err != nil {
		return withCode(exitUsage, err)
	}

	tbl, err := rowsource.Load(opts.inputPath)
	if err != nil {
		return withCode(exitValidation, errors.Wrapf(err, "read input %s", opts.inputPath))
	}
	if err := tbl.RequireColumns(rowsource.RequiredColumns...); err != nil {
		return withCode(exitValidation, errors.Wrapf(err, "input %s", opts.inputPath))
	}

	if (opts.cleanup || opts.deactivate) && !opts.yes {
		if err := confirm(in, errOut, opts); err != nil {
			return withCode(exitUsage, err)
		}
	}

	logger := cfg.Logger()
	logger.SetOutput(errOut)
	runID := uuid.NewString()
	log := logrus.NewEntry(logger).WithFields(logrus.Fields{
		"workspace": cfg.Credentials.WorkspaceID,
		"dry_run":   opts.dryRun,
	})

	shutdown, err := tracing.Setup(ctx, cfg.Tracing, runID)
	if err != nil {
		log.WithError(err).Warn("tracing disabled")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			log.WithError(err).Warn("tracing shutdown")
		}
	}()

	tr, err := clockify.NewTransport(clockify.Options{
		BaseURL:    cfg.API.BaseURL,
		APIKey:     cfg.Credentials.APIKey,
		Delay:      cfg.API.Delay(),
		MaxRetries: cfg.API.MaxRetries,
		Timeout:    cfg.API.Timeout,
		DryRun:     opts.dryRun,
		Logger:     log,
	})
	if err != nil {
		return withCode(exitValidation, err)
	}

	eng := reconcile.New(clockify.NewWorkspace(tr, cfg.Credentials.WorkspaceID), reconcile.Options{
		RunID:                runID,
		DryRun:               opts.dryRun,
		PurgeForeign:         opts.cleanup,
		Deactivate:           opts.deactivate,
		FallbackManagerEmail: cfg.Workspace.FallbackManagerEmail,
		FallbackGroupName:    cfg.Workspace.FallbackGroupName,
		FieldMapping:         cfg.FieldMapping,
		Logger:               log,
	})

	j := journal.New()
	res, runErr := eng.Run(ctx, tbl, j)

	summary := syncSummary{}
	if res != nil {
		summary = syncSummary{
			RunID:       res.RunID,
			DryRun:      res.DryRun,
			Rows:        res.Rows,
			Processed:   res.Processed,
			SkippedRows: res.SkippedRows,
			Warnings:    len(res.Warnings),
			Successes:   res.Successes,
			Infos:       res.Infos,
			Errors:      res.Errors,
			Notes:       res.Warnings,
		}
	}
	if runErr != nil {
		summary.Aborted = runErr.Error()
	}

	paths, flushErr := journal.Flush(j, cfg.Journal.Dir, sink)
	if flushErr != nil {
		log.WithError(flushErr).Error("journal not written")
	}
	summary.SuccessLog = paths.Success
	summary.ErrorLog = paths.Error

	if err := metrics.Export(metrics.Registry, metrics.ExportOptions{
		Textfile:       cfg.Metrics.Textfile,
		PushgatewayURL: cfg.Metrics.PushgatewayURL,
		Job:            cfg.Metrics.Job,
		Grouping:       map[string]string{"workspace": cfg.Credentials.WorkspaceID},
	}); err != nil {
		log.WithError(err).Warn("metrics export failed")
	}

	if err := writeSummary(out, summary); err != nil {
		return withCode(exitUnexpected, err)
	}

	switch {
	case runErr != nil && errors.Is(runErr, reconcile.ErrPreflightDenied):
		return withCode(exitPreflight, runErr)
	case runErr != nil:
		return withCode(exitUnexpected, runErr)
	case flushErr != nil:
		return withCode(exitUnexpected, errors.Wrap(flushErr, "write journal"))
	case j.HasErrors():
		return withCode(exitRunErrors, errors.Errorf("run finished with %d error(s); see %s", len(j.Errors()), paths.Error))
	}
	return nil
}

// confirm asks for the exact phrase before destructive optional phases.
func confirm(in io.Reader, out io.Writer, opts syncOptions) error {
	var phases []string
	if opts.cleanup {
		phases = append(phases, "delete foreign groups")
	}
	if opts.deactivate {
		phases = append(phases, "deactivate users missing from the input")
	}
	fmt.Fprintf(out, "This run will %s.\nType %q to continue: ", strings.Join(phases, ", "), confirmPhrase)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return errors.Wrap(err, "read confirmation")
	}
	if strings.TrimSpace(line) != confirmPhrase {
		return errors.New("aborted: confirmation phrase not entered")
	}
	return nil
}

func writeSummary(w io.Writer, v syncSummary) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "json encode")
	}
	return nil
}
