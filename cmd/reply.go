package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/model"
)

var replyCmd = &cobra.Command{
	Use:   "reply",
	Short: "Record and classify inbound replies",
}

// -- reply add --

var replyAddCmd = &cobra.Command{
	Use:   "add <campaign-id>",
	Short: "Queue an inbound reply for the next poll cycle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		leadID, _ := cmd.Flags().GetString("lead")
		ch, _ := cmd.Flags().GetString("channel")
		text, _ := cmd.Flags().GetString("text")

		kv, o, err := readOnlyOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer kv.Close() //nolint:errcheck

		id, err := o.EnqueueReply(ctx, model.InboundReply{
			CampaignID: args[0],
			LeadID:     leadID,
			Channel:    model.Channel(strings.ToLower(ch)),
			Text:       text,
			ReceivedAt: time.Now().UTC(),
		})
		if err != nil {
			return eris.Wrap(err, "reply add")
		}
		fmt.Fprintln(os.Stdout, id)
		return nil
	},
}

// -- reply classify --

var replyClassifyCmd = &cobra.Command{
	Use:   "classify <text>",
	Short: "Show the intent and next action for a reply text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		res := classify.Classify(strings.Join(args, " "))
		fmt.Fprintf(os.Stdout, "intent=%s confidence=%d next_action=%s\n", res.Intent, res.Confidence, res.NextAction)
		return nil
	},
}

func init() {
	replyAddCmd.Flags().String("lead", "", "lead ID the reply came from")
	replyAddCmd.Flags().String("channel", "email", "channel the reply arrived on (email, linkedin, sms, phone)")
	replyAddCmd.Flags().String("text", "", "reply text")
	_ = replyAddCmd.MarkFlagRequired("lead")
	_ = replyAddCmd.MarkFlagRequired("text")

	replyCmd.AddCommand(replyAddCmd)
	replyCmd.AddCommand(replyClassifyCmd)
	rootCmd.AddCommand(replyCmd)
}
