package drafting

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
)

// Request describes the reply to draft.
type Request struct {
	Lead           model.Lead
	Playbook       model.Playbook
	ReplyText      string
	Classification model.ClassificationResult
}

// Drafter produces the body of a reply message.
type Drafter interface {
	Draft(ctx context.Context, req Request) (string, error)
}

// TemplateDrafter renders the classifier's suggested response.
type TemplateDrafter struct{}

// Draft implements Drafter.
func (TemplateDrafter) Draft(_ context.Context, req Request) (string, error) {
	if req.Classification.SuggestedResponse == "" {
		return "", eris.Errorf("drafting: no suggested response for intent %q", req.Classification.Intent)
	}
	return Render(req.Classification.SuggestedResponse, LeadVars(req.Lead, req.Playbook)), nil
}

const systemPrompt = `You are a senior sales development representative writing short, warm,
professional replies to prospects. Write plain text only, at most 120 words, no subject line,
no placeholders, and sign off as "The team". Never invent facts about the prospect.`

// ClaudeDrafter drafts replies with Claude, falling back to the template
// drafter when the call fails or returns nothing.
type ClaudeDrafter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	guard     *resilience.Guard
	fallback  Drafter
}

// NewClaudeDrafter creates a ClaudeDrafter.
func NewClaudeDrafter(client anthropic.Client, cfg config.AnthropicConfig, guard *resilience.Guard) *ClaudeDrafter {
	return &ClaudeDrafter{
		client:    client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		guard:     guard,
		fallback:  TemplateDrafter{},
	}
}

// Draft implements Drafter.
func (d *ClaudeDrafter) Draft(ctx context.Context, req Request) (string, error) {
	prompt := buildPrompt(req)

	resp, err := resilience.GuardVal(ctx, d.guard, "anthropic", "draft_reply", func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return d.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     d.model,
			MaxTokens: d.maxTokens,
			System:    anthropic.CachedSystem(systemPrompt),
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
	})
	if err != nil {
		zap.L().Warn("drafting: claude draft failed, using template",
			zap.String("lead_id", req.Lead.ID),
			zap.Error(err),
		)
		return d.fallback.Draft(ctx, req)
	}

	resp.Usage.LogCost(d.model, string(req.Classification.Intent))
	text := resp.Text()
	if text == "" {
		return d.fallback.Draft(ctx, req)
	}
	return text, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	c := req.Lead.Contact
	fmt.Fprintf(&b, "Prospect: %s, %s at %s.\n", c.FullName(), c.Title, c.Company)
	if req.Lead.Enrichment != nil && req.Lead.Enrichment.Company.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s.\n", req.Lead.Enrichment.Company.Industry)
	}
	if len(req.Playbook.ValuePropositions) > 0 {
		fmt.Fprintf(&b, "Our value proposition: %s\n", strings.Join(req.Playbook.ValuePropositions, "; "))
	}
	fmt.Fprintf(&b, "Their reply was classified as %s (%s).\n", req.Classification.Intent, req.Classification.Reasoning)
	fmt.Fprintf(&b, "Their reply:\n%q\n", req.ReplyText)
	if req.Classification.SuggestedResponse != "" {
		fmt.Fprintf(&b, "Start from this draft and personalise it:\n%s\n",
			Render(req.Classification.SuggestedResponse, LeadVars(req.Lead, req.Playbook)))
	}
	b.WriteString("Write the reply.")
	return b.String()
}
