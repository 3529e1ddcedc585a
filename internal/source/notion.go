package source

import (
	"context"

	"github.com/jomei/notionapi"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/notion"
)

// notionProps maps contact field keys to Notion property names.
var notionProps = map[string]string{
	"name":     "Name",
	"first":    "First Name",
	"last":     "Last Name",
	"email":    "Email",
	"phone":    "Phone",
	"title":    "Title",
	"company":  "Company",
	"domain":   "Website",
	"linkedin": "LinkedIn",
	"location": "Location",
}

// LeadBoard is a lead database with a status column, as notion.LeadDB
// provides.
type LeadBoard interface {
	ByStatus(ctx context.Context, status string) ([]notionapi.Page, error)
	SetStatus(ctx context.Context, pageID, status string) error
}

// Notion reads queued leads from a Notion database and marks each fetched
// page as sourced.
type Notion struct {
	board LeadBoard
	guard *resilience.Guard
}

// NewNotion creates a Notion-backed Source.
func NewNotion(board LeadBoard, guard *resilience.Guard) *Notion {
	return &Notion{board: board, guard: guard}
}

// Name implements Source.
func (n *Notion) Name() string { return "notion" }

// Fetch returns the contacts of every queued page.
func (n *Notion) Fetch(ctx context.Context, _ model.Playbook) ([]model.Contact, error) {
	pages, err := resilience.GuardVal(ctx, n.guard, "notion", "query_leads", func(ctx context.Context) ([]notionapi.Page, error) {
		return n.board.ByStatus(ctx, notion.StatusQueued)
	})
	if err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("component", "source.notion"))
	contacts := make([]model.Contact, 0, len(pages))
	for _, p := range pages {
		contacts = append(contacts, pageContact(p))

		pageID := string(p.ID)
		if err := n.guard.Do(ctx, "notion", "set_status", func(ctx context.Context) error {
			return n.board.SetStatus(ctx, pageID, notion.StatusSourced)
		}); err != nil {
			log.Warn("source: failed to mark notion page sourced",
				zap.String("page_id", pageID),
				zap.Error(err),
			)
		}
	}
	log.Info("source: fetched notion leads", zap.Int("count", len(contacts)))
	return contacts, nil
}

func pageContact(p notionapi.Page) model.Contact {
	vals := make(map[string]string, len(notionProps))
	for key, prop := range notionProps {
		if v := notion.Text(p, prop); v != "" {
			vals[key] = v
		}
	}
	return fromValues(vals)
}
