// Package notion reads and updates a Notion database of leads that carries a
// status column.
package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Lead page statuses.
const (
	StatusQueued   = "Queued"
	StatusSourced  = "Sourced"
	StatusRejected = "Rejected"
)

// Databases is the part of the Notion database API a LeadDB queries.
type Databases interface {
	Query(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// Pages is the part of the Notion page API a LeadDB updates.
type Pages interface {
	Update(ctx context.Context, id notionapi.PageID, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

// Option configures a LeadDB.
type Option func(*LeadDB)

// WithRateLimit overrides the 3 req/s Notion limit. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(d *LeadDB) {
		if rps <= 0 {
			d.limiter = nil
			return
		}
		d.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
}

// WithPageSize sets how many pages each query returns, up to Notion's 100.
func WithPageSize(n int) Option {
	return func(d *LeadDB) {
		if n > 0 && n <= 100 {
			d.pageSize = n
		}
	}
}

// WithStatusProperty names the status column. The default is "Status".
func WithStatusProperty(name string) Option {
	return func(d *LeadDB) {
		if name != "" {
			d.statusProp = name
		}
	}
}

// LeadDB is one Notion lead database. Every API call waits on a shared
// limiter.
type LeadDB struct {
	dbs        Databases
	pages      Pages
	dbID       notionapi.DatabaseID
	statusProp string
	pageSize   int
	limiter    *rate.Limiter
}

// New connects to the lead database dbID with an integration token.
func New(token, dbID string, opts ...Option) *LeadDB {
	c := notionapi.NewClient(notionapi.Token(token))
	return NewWithAPI(c.Database, c.Page, dbID, opts...)
}

// NewWithAPI builds a LeadDB over explicit API services.
func NewWithAPI(dbs Databases, pages Pages, dbID string, opts ...Option) *LeadDB {
	d := &LeadDB{
		dbs:        dbs,
		pages:      pages,
		dbID:       notionapi.DatabaseID(dbID),
		statusProp: "Status",
		pageSize:   100,
		limiter:    rate.NewLimiter(3, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *LeadDB) wait(ctx context.Context) error {
	if d.limiter == nil {
		return nil
	}
	return eris.Wrap(d.limiter.Wait(ctx), "notion: rate limit")
}

// ByStatus returns every lead page whose status column equals status,
// following pagination cursors until the database is exhausted.
func (d *LeadDB) ByStatus(ctx context.Context, status string) ([]notionapi.Page, error) {
	var (
		out    []notionapi.Page
		cursor notionapi.Cursor
	)
	for {
		if err := d.wait(ctx); err != nil {
			return nil, err
		}
		resp, err := d.dbs.Query(ctx, d.dbID, &notionapi.DatabaseQueryRequest{
			Filter: notionapi.PropertyFilter{
				Property: d.statusProp,
				Status:   &notionapi.StatusFilterCondition{Equals: status},
			},
			StartCursor: cursor,
			PageSize:    d.pageSize,
		})
		if err != nil {
			return nil, eris.Wrapf(err, "notion: query %s leads in %s", status, d.dbID)
		}
		out = append(out, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			return out, nil
		}
		cursor = resp.NextCursor
	}
}

// SetStatus moves a lead page to status.
func (d *LeadDB) SetStatus(ctx context.Context, pageID, status string) error {
	if err := d.wait(ctx); err != nil {
		return err
	}
	_, err := d.pages.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			d.statusProp: notionapi.StatusProperty{
				Type:   notionapi.PropertyTypeStatus,
				Status: notionapi.Status{Name: status},
			},
		},
	})
	return eris.Wrapf(err, "notion: set lead %s to %s", pageID, status)
}
