package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/metrics"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"campaign", "reply", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "outreach-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestCampaignCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range campaignCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"start", "run", "list", "status", "report", "dlq", "pause", "resume"}
	for _, name := range expected {
		assert.True(t, names[name], "campaign should have subcommand %q", name)
	}
}

func TestCampaignStartCommand_Flags(t *testing.T) {
	for _, name := range []string{"profile", "client", "source-csv", "detach"} {
		assert.NotNil(t, campaignStartCmd.Flags().Lookup(name), "campaign start should have --%s flag", name)
	}
	assert.Equal(t, "false", campaignStartCmd.Flags().Lookup("detach").DefValue)
}

func TestCampaignReportCommand_Flags(t *testing.T) {
	flag := campaignReportCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "table", flag.DefValue)
	assert.NotNil(t, campaignReportCmd.Flags().Lookup("out"))
}

func TestCampaignDLQCommand_Flags(t *testing.T) {
	flag := campaignDLQCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)
}

func TestReplyAddCommand_Flags(t *testing.T) {
	flag := replyAddCmd.Flags().Lookup("channel")
	require.NotNil(t, flag)
	assert.Equal(t, "email", flag.DefValue)
	assert.NotNil(t, replyAddCmd.Flags().Lookup("lead"))
	assert.NotNil(t, replyAddCmd.Flags().Lookup("text"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestReportWriter(t *testing.T) {
	for _, format := range []string{"", "table", "csv", "xlsx"} {
		w, err := reportWriter(format)
		require.NoError(t, err, format)
		assert.NotNil(t, w)
	}
	_, err := reportWriter("pdf")
	assert.Error(t, err)

	w, err := reportWriter("csv")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, w(&buf, metrics.Report{CampaignID: "c1", TotalLeads: 3}))
	assert.Contains(t, buf.String(), "Total Leads")
}

func TestFormatStatus(t *testing.T) {
	var buf bytes.Buffer
	formatStatus(&buf, model.WorkflowState{
		CampaignID:       "c1",
		Status:           model.CampaignRunning,
		Stage:            model.StageOutbound,
		Progress:         55,
		CurrentLeadCount: 12,
		Errors: []model.StageError{
			{Stage: model.StageEnrichment, LeadID: "l1", Message: "enrichment: upstream timeout"},
		},
		UpdatedAt: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
	})

	out := buf.String()
	assert.Contains(t, out, "c1")
	assert.Contains(t, out, string(model.StageOutbound))
	assert.Contains(t, out, "55%")
	assert.Contains(t, out, "STAGE")
	assert.Contains(t, out, "upstream timeout")
	assert.Contains(t, out, "l1")
}

func TestFormatStatus_NoErrors(t *testing.T) {
	var buf bytes.Buffer
	formatStatus(&buf, model.WorkflowState{CampaignID: "c1", Status: model.CampaignRunning})
	assert.NotContains(t, buf.String(), "MESSAGE")
}

func TestFormatCampaignList(t *testing.T) {
	var buf bytes.Buffer
	formatCampaignList(&buf, []model.Campaign{
		{ID: "c1", ClientID: "acme", Profile: model.TargetProfile{Name: "SaaS"}, Status: model.CampaignRunning},
		{ID: "c2", ClientID: "globex", Profile: model.TargetProfile{Name: "Retail"}, Status: model.CampaignFailed},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "CLIENT")
	assert.Contains(t, lines[1], "acme")
	assert.Contains(t, lines[2], string(model.CampaignFailed))
}

func TestFormatDLQ(t *testing.T) {
	var buf bytes.Buffer
	formatDLQ(&buf, []resilience.DLQEntry{{
		ReplyID:   "r1",
		LeadID:    "l1",
		Stage:     model.StageQualification,
		Reason:    resilience.DLQReasonFailed,
		ErrorType: "permanent",
		Error:     strings.Repeat("x", 100),
	}})

	out := buf.String()
	assert.Contains(t, out, "r1")
	assert.Contains(t, out, "permanent")
	assert.Contains(t, out, "...")
}

func TestTruncateAndDash(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "-", dash(""))
	assert.Equal(t, "x", dash("x"))
}
