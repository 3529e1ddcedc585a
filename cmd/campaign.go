package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/metrics"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/store"
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Launch and inspect outreach campaigns",
	Long:  "Commands for starting campaigns, running the reply poll loop, and viewing status, metrics and dead letters.",
}

// -- campaign start --

var campaignStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a campaign from a target profile and run the poll loop",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		profilePath, _ := cmd.Flags().GetString("profile")
		clientID, _ := cmd.Flags().GetString("client")
		detach, _ := cmd.Flags().GetBool("detach")
		if csv, _ := cmd.Flags().GetString("source-csv"); csv != "" {
			cfg.Campaign.SourceCSV = csv
		}

		profile, err := loadProfile(profilePath)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "campaign")
		if err != nil {
			return err
		}
		defer closeEnv(env)

		id, err := env.Orchestrator.StartCampaign(ctx, clientID, profile)
		if err != nil {
			if id != "" {
				fmt.Fprintf(os.Stderr, "campaign %s failed; see `outreach-cli campaign status %s`\n", id, id)
			}
			return eris.Wrap(err, "campaign start")
		}
		fmt.Fprintln(os.Stdout, id)

		if detach {
			return nil
		}
		return runUntilSignal(ctx, env.Orchestrator)
	},
}

// -- campaign run --

var campaignRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reply poll loop for every running campaign",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "campaign")
		if err != nil {
			return err
		}
		defer closeEnv(env)

		if once, _ := cmd.Flags().GetBool("once"); once {
			return tickRunning(ctx, env)
		}
		return runUntilSignal(ctx, env.Orchestrator)
	},
}

// -- campaign list --

var campaignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List campaigns",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		kv, repo, err := openRepo(ctx, "report")
		if err != nil {
			return err
		}
		defer kv.Close() //nolint:errcheck

		campaigns, err := repo.ListCampaigns(ctx)
		if err != nil {
			return eris.Wrap(err, "campaign list")
		}
		if len(campaigns) == 0 {
			fmt.Fprintln(os.Stderr, "No campaigns found.")
			return nil
		}
		formatCampaignList(os.Stdout, campaigns)
		return nil
	},
}

// -- campaign status --

var campaignStatusCmd = &cobra.Command{
	Use:   "status <campaign-id>",
	Short: "Show the workflow stage, progress and errors of a campaign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kv, o, err := readOnlyOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer kv.Close() //nolint:errcheck

		st, err := o.GetStatus(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "campaign status")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}
		formatStatus(os.Stdout, st)
		return nil
	},
}

// -- campaign report --

var campaignReportCmd = &cobra.Command{
	Use:   "report <campaign-id>",
	Short: "Compute campaign KPIs and write them as a table, CSV or XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")
		write, err := reportWriter(format)
		if err != nil {
			return err
		}

		kv, o, err := readOnlyOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer kv.Close() //nolint:errcheck

		r, err := o.Metrics(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "campaign report")
		}

		var out io.Writer = os.Stdout
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return eris.Wrapf(err, "create %s", outPath)
			}
			defer f.Close() //nolint:errcheck
			out = f
		} else if format == "xlsx" {
			return eris.New("--out is required for xlsx reports")
		}

		if err := write(out, r); err != nil {
			return eris.Wrap(err, "write report")
		}
		if outPath != "" {
			fmt.Fprintf(os.Stderr, "Report written to %s\n", outPath)
		}
		return nil
	},
}

// -- campaign dlq --

var campaignDLQCmd = &cobra.Command{
	Use:   "dlq <campaign-id>",
	Short: "List dead-lettered replies for a campaign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kv, repo, err := openRepo(ctx, "report")
		if err != nil {
			return err
		}
		defer kv.Close() //nolint:errcheck

		reason, _ := cmd.Flags().GetString("reason")
		errType, _ := cmd.Flags().GetString("error-type")
		limit, _ := cmd.Flags().GetInt("limit")

		entries, err := repo.ListDLQ(ctx, args[0], resilience.DLQFilter{
			ErrorType: errType,
			Reason:    reason,
			Limit:     limit,
		})
		if err != nil {
			return eris.Wrap(err, "campaign dlq")
		}
		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "No dead letters found.")
			return nil
		}
		formatDLQ(os.Stdout, entries)
		return nil
	},
}

// -- campaign pause / resume --

var campaignPauseCmd = &cobra.Command{
	Use:   "pause <campaign-id> <lead-id>",
	Short: "Pause a lead's outbound sequence",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return controlSequence(cmd.Context(), args[0], args[1], (*pipeline.Orchestrator).PauseSequence)
	},
}

var campaignResumeCmd = &cobra.Command{
	Use:   "resume <campaign-id> <lead-id>",
	Short: "Resume a paused outbound sequence",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return controlSequence(cmd.Context(), args[0], args[1], (*pipeline.Orchestrator).ResumeSequence)
	},
}

func init() {
	campaignStartCmd.Flags().String("profile", "", "path to the target profile YAML")
	campaignStartCmd.Flags().String("client", "", "client identifier the campaign runs for")
	campaignStartCmd.Flags().String("source-csv", "", "lead file (CSV, XLSX or JSON) overriding campaign.source_csv")
	campaignStartCmd.Flags().Bool("detach", false, "launch the campaign and exit without running the poll loop")
	_ = campaignStartCmd.MarkFlagRequired("profile")
	_ = campaignStartCmd.MarkFlagRequired("client")

	campaignRunCmd.Flags().Bool("once", false, "process pending replies once and exit")

	campaignStatusCmd.Flags().Bool("json", false, "print the workflow state as JSON")

	campaignReportCmd.Flags().String("format", "table", "output format (table, csv, xlsx)")
	campaignReportCmd.Flags().String("out", "", "write the report to a file instead of stdout")

	campaignDLQCmd.Flags().String("reason", "", "filter by reason (failed, abandoned)")
	campaignDLQCmd.Flags().String("error-type", "", "filter by error type (transient, permanent)")
	campaignDLQCmd.Flags().Int("limit", 50, "max number of entries to display")

	campaignCmd.AddCommand(campaignStartCmd)
	campaignCmd.AddCommand(campaignRunCmd)
	campaignCmd.AddCommand(campaignListCmd)
	campaignCmd.AddCommand(campaignStatusCmd)
	campaignCmd.AddCommand(campaignReportCmd)
	campaignCmd.AddCommand(campaignDLQCmd)
	campaignCmd.AddCommand(campaignPauseCmd)
	campaignCmd.AddCommand(campaignResumeCmd)
	rootCmd.AddCommand(campaignCmd)
}

func closeEnv(env *outreachEnv) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout())
	defer cancel()
	env.Close(ctx)
}

// readOnlyOrchestrator opens the store for status and metrics queries, which
// need no outbound collaborators.
func readOnlyOrchestrator(ctx context.Context) (store.KV, *pipeline.Orchestrator, error) {
	kv, repo, err := openRepo(ctx, "report")
	if err != nil {
		return nil, nil, err
	}
	return kv, pipeline.New(cfg, pipeline.Deps{Repo: repo}), nil
}

// runUntilSignal runs the poll loop until ctx ends, then drains it within the
// shutdown timeout and reports abandoned replies.
func runUntilSignal(ctx context.Context, o *pipeline.Orchestrator) error {
	if err := o.Run(ctx); err != nil {
		return err
	}
	zap.L().Info("poll loop running, press Ctrl+C to stop")
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout())
	defer cancel()
	err := o.Stop(stopCtx)
	var ae *pipeline.AbandonedError
	if errors.As(err, &ae) {
		fmt.Fprintf(os.Stderr, "Abandoned %d in-flight replies: %s\n", len(ae.ReplyIDs), strings.Join(ae.ReplyIDs, ", "))
		return nil
	}
	return err
}

// tickRunning processes one poll cycle for every running campaign.
func tickRunning(ctx context.Context, env *outreachEnv) error {
	campaigns, err := env.Repo.ListCampaigns(ctx)
	if err != nil {
		return eris.Wrap(err, "list campaigns")
	}
	for _, c := range campaigns {
		if c.Status != model.CampaignRunning {
			continue
		}
		if err := env.Orchestrator.Tick(ctx, c.ID); err != nil {
			return eris.Wrapf(err, "tick campaign %s", c.ID)
		}
	}
	return nil
}

type sequenceOp func(*pipeline.Orchestrator, context.Context, string, string) (model.OutboundSequence, error)

func controlSequence(ctx context.Context, campaignID, leadID string, op sequenceOp) error {
	env, err := initEnv(ctx, "campaign")
	if err != nil {
		return err
	}
	defer closeEnv(env)

	seq, err := op(env.Orchestrator, ctx, campaignID, leadID)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Sequence for lead %s is %s at step %d of %d\n", leadID, seq.Status, seq.CurrentStep, len(seq.Steps))
	return nil
}

func reportWriter(format string) (func(io.Writer, metrics.Report) error, error) {
	switch format {
	case "table", "":
		return metrics.WriteTable, nil
	case "csv":
		return metrics.WriteCSV, nil
	case "xlsx":
		return metrics.WriteXLSX, nil
	default:
		return nil, eris.Errorf("unsupported report format %q (want table, csv or xlsx)", format)
	}
}

// formatCampaignList writes a tabular list of campaigns to out.
func formatCampaignList(out io.Writer, campaigns []model.Campaign) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCLIENT\tPROFILE\tSTATUS\tCREATED")
	for _, c := range campaigns {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.ClientID, c.Profile.Name, c.Status, c.CreatedAt.Format(time.RFC3339))
	}
	_ = w.Flush()
}

// formatStatus writes a campaign's workflow state to out.
func formatStatus(out io.Writer, st model.WorkflowState) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Campaign:\t%s\n", st.CampaignID)
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", st.Status)
	_, _ = fmt.Fprintf(w, "Stage:\t%s\n", st.Stage)
	_, _ = fmt.Fprintf(w, "Progress:\t%d%%\n", st.Progress)
	_, _ = fmt.Fprintf(w, "Leads:\t%d\n", st.CurrentLeadCount)
	_, _ = fmt.Fprintf(w, "Updated:\t%s\n", st.UpdatedAt.Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "Errors:\t%d\n", len(st.Errors))
	_ = w.Flush()

	if len(st.Errors) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STAGE\tLEAD\tREPLY\tMESSAGE")
	for _, e := range st.Errors {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Stage, dash(e.LeadID), dash(e.ReplyID), truncate(e.Message, 80))
	}
	_ = w.Flush()
}

// formatDLQ writes dead-letter entries to out.
func formatDLQ(out io.Writer, entries []resilience.DLQEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "REPLY\tLEAD\tSTAGE\tREASON\tTYPE\tFAILED\tERROR")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ReplyID, e.LeadID, e.Stage, e.Reason, e.ErrorType,
			e.LastFailedAt.Format(time.RFC3339), truncate(e.Error, 60))
	}
	_ = w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
