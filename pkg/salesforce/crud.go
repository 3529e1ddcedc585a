package salesforce

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
)

// CreateLead creates a new Lead record and returns the new Salesforce ID.
func CreateLead(ctx context.Context, c Client, fields map[string]any) (string, error) {
	if fields["LastName"] == nil || fields["LastName"] == "" {
		return "", eris.New("sf: lead LastName is required")
	}
	if fields["Company"] == nil || fields["Company"] == "" {
		return "", eris.New("sf: lead Company is required")
	}
	id, err := c.InsertOne(ctx, "Lead", fields)
	if err != nil {
		return "", eris.Wrap(err, "sf: create lead")
	}
	return id, nil
}

// UpdateLead updates a Lead record with the given fields.
func UpdateLead(ctx context.Context, c Client, leadID string, fields map[string]any) error {
	if leadID == "" {
		return eris.New("sf: lead id is required")
	}
	if len(fields) == 0 {
		return eris.New("sf: no fields to update")
	}
	if err := c.UpdateOne(ctx, "Lead", leadID, fields); err != nil {
		return eris.Wrap(err, fmt.Sprintf("sf: update lead %s", leadID))
	}
	return nil
}

// CreateTask logs an activity against the record whoID and returns the new
// Task ID.
func CreateTask(ctx context.Context, c Client, whoID string, fields map[string]any) (string, error) {
	if whoID == "" {
		return "", eris.New("sf: who id is required for task")
	}
	if fields == nil {
		fields = make(map[string]any)
	}
	fields["WhoId"] = whoID
	id, err := c.InsertOne(ctx, "Task", fields)
	if err != nil {
		return "", eris.Wrap(err, fmt.Sprintf("sf: create task for %s", whoID))
	}
	return id, nil
}
