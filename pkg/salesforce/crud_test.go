package salesforce

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLead(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var capturedObject string
		mc := &mockClient{
			insertOneFn: func(_ context.Context, sObject string, _ map[string]any) (string, error) {
				capturedObject = sObject
				return "00QNEW", nil
			},
		}

		id, err := CreateLead(context.Background(), mc, map[string]any{"LastName": "Doe", "Company": "Acme"})
		require.NoError(t, err)
		assert.Equal(t, "00QNEW", id)
		assert.Equal(t, "Lead", capturedObject)
	})

	t.Run("missing last name", func(t *testing.T) {
		_, err := CreateLead(context.Background(), &mockClient{}, map[string]any{"Company": "Acme"})
		assert.ErrorContains(t, err, "LastName is required")
	})

	t.Run("missing company", func(t *testing.T) {
		_, err := CreateLead(context.Background(), &mockClient{}, map[string]any{"LastName": "Doe"})
		assert.ErrorContains(t, err, "Company is required")
	})

	t.Run("insert error", func(t *testing.T) {
		mc := &mockClient{
			insertOneFn: func(context.Context, string, map[string]any) (string, error) {
				return "", errors.New("boom")
			},
		}
		_, err := CreateLead(context.Background(), mc, map[string]any{"LastName": "Doe", "Company": "Acme"})
		assert.ErrorContains(t, err, "sf: create lead")
	})
}

func TestUpdateLead(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var capturedID string
		mc := &mockClient{
			updateOneFn: func(_ context.Context, sObject, id string, _ map[string]any) error {
				assert.Equal(t, "Lead", sObject)
				capturedID = id
				return nil
			},
		}
		require.NoError(t, UpdateLead(context.Background(), mc, "00Qxx", map[string]any{"Status": "Qualified"}))
		assert.Equal(t, "00Qxx", capturedID)
	})

	t.Run("empty id", func(t *testing.T) {
		assert.ErrorContains(t, UpdateLead(context.Background(), &mockClient{}, "", map[string]any{"A": 1}), "lead id is required")
	})

	t.Run("no fields", func(t *testing.T) {
		assert.ErrorContains(t, UpdateLead(context.Background(), &mockClient{}, "00Qxx", nil), "no fields to update")
	})
}

func TestCreateTask(t *testing.T) {
	t.Run("sets WhoId", func(t *testing.T) {
		var captured map[string]any
		mc := &mockClient{
			insertOneFn: func(_ context.Context, sObject string, record map[string]any) (string, error) {
				assert.Equal(t, "Task", sObject)
				captured = record
				return "00TNEW", nil
			},
		}
		id, err := CreateTask(context.Background(), mc, "00Qxx", map[string]any{"Subject": "Meeting"})
		require.NoError(t, err)
		assert.Equal(t, "00TNEW", id)
		assert.Equal(t, "00Qxx", captured["WhoId"])
		assert.Equal(t, "Meeting", captured["Subject"])
	})

	t.Run("nil fields", func(t *testing.T) {
		_, err := CreateTask(context.Background(), &mockClient{}, "00Qxx", nil)
		require.NoError(t, err)
	})

	t.Run("empty who id", func(t *testing.T) {
		_, err := CreateTask(context.Background(), &mockClient{}, "", nil)
		assert.ErrorContains(t, err, "who id is required")
	})
}
