package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
)

// stageError tags an error with the stage it happened in.
type stageError struct {
	stage model.Stage
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func atStage(stage model.Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *stageError
	if errors.As(err, &se) {
		return err
	}
	return &stageError{stage: stage, err: err}
}

// stageOf returns the stage err is tagged with, or def.
func stageOf(err error, def model.Stage) model.Stage {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage
	}
	return def
}

// AbandonedError reports replies that were still in flight when a stop
// deadline expired. They are recorded in the dead-letter store and stay in
// the inbox for the next run.
type AbandonedError struct {
	ReplyIDs []string
}

func (e *AbandonedError) Error() string {
	return fmt.Sprintf("pipeline: stop deadline exceeded, abandoned %d in-flight replies: %s",
		len(e.ReplyIDs), strings.Join(e.ReplyIDs, ", "))
}

// IsAbandoned reports whether err contains an AbandonedError.
func IsAbandoned(err error) bool {
	var ae *AbandonedError
	return errors.As(err, &ae)
}
