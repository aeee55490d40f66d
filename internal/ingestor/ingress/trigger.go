package ingress

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/models"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/validate"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/workflow"
	"github.com/dmitrijs2005/ingestpipe/internal/logging"
)

// WorkflowStarter is the trigger's view of the orchestrator.
type WorkflowStarter interface {
	Run(ctx context.Context, in workflow.Input) *models.WorkflowExecution
}

// Result summarizes the handling of one notification payload.
type Result struct {
	Executions []*models.WorkflowExecution
	Rejected   int
}

// Trigger turns upload events into workflow executions.
type Trigger struct {
	workflows WorkflowStarter
	logger    logging.Logger
	now       func() time.Time
}

func NewTrigger(workflows WorkflowStarter, logger logging.Logger) *Trigger {
	return &Trigger{workflows: workflows, logger: logger, now: time.Now}
}

// Handle processes one notification payload. Each valid record starts its
// own workflow execution; executions for different records run
// concurrently since they share no state. An invalid record is rejected
// gracefully (logged and counted) and never stops the remaining records.
//
// Only a payload that cannot be decoded at all returns an error.
func (t *Trigger) Handle(ctx context.Context, payload []byte) (*Result, error) {

	events, err := ParseNotification(payload)
	if err != nil {
		return nil, err
	}

	result := &Result{}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, event := range events {
		if _, err := validate.Key(event.Key, event.EventTime); err != nil {
			// Expected, input-driven rejection: halt this record
			// gracefully, keep going with the rest.
			t.logger.Warn(ctx, "upload event rejected",
				"bucket", event.Bucket, "key", event.Key, "error", err.Error())
			result.Rejected++
			continue
		}

		in := t.buildInput(event)

		wg.Add(1)
		go func() {
			defer wg.Done()
			exec := t.workflows.Run(ctx, in)
			mu.Lock()
			result.Executions = append(result.Executions, exec)
			mu.Unlock()
		}()
	}

	wg.Wait()

	t.logger.Info(ctx, "notification handled",
		"started", len(result.Executions), "rejected", result.Rejected)

	return result, nil
}

// buildInput is the single place the timestamp-defaulting policy lives:
// the workflow timestamp is stamped at ingest time, and a missing event
// time falls back to it.
func (t *Trigger) buildInput(event models.UploadEvent) workflow.Input {
	timestamp := t.now().UTC().Format(time.RFC3339)
	eventTime := event.EventTime
	if eventTime == "" {
		eventTime = timestamp
	}
	return workflow.Input{
		Bucket:    event.Bucket,
		Key:       event.Key,
		Timestamp: timestamp,
		EventTime: eventTime,
	}
}
