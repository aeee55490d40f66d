// Package workflow drives one ingestion execution through its state
// machine: Validating -> Writing -> Succeeded | Failed.
package workflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/alert"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/metadata"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/models"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/validate"
	"github.com/dmitrijs2005/ingestpipe/internal/logging"
)

// FailureSubject is the subject line of the alert raised when a workflow
// exhausts its write attempts.
const FailureSubject = "File ingestion pipeline failure"

// Input is the workflow start payload, one per upload event.
type Input struct {
	Bucket    string
	Key       string
	Timestamp string
	EventTime string
}

// Orchestrator runs ingestion executions. Executions share no mutable
// state, so a single Orchestrator may serve any number of them
// concurrently.
type Orchestrator struct {
	store       metadata.Store
	alerts      alert.Publisher
	logger      logging.Logger
	baseDelay   time.Duration
	maxAttempts int
}

// NewOrchestrator wires an orchestrator to its collaborators. baseDelay is
// the first backoff interval (doubled on each retry), maxAttempts the total
// number of write attempts including the first one.
func NewOrchestrator(store metadata.Store, alerts alert.Publisher, logger logging.Logger,
	baseDelay time.Duration, maxAttempts int) *Orchestrator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	return &Orchestrator{
		store:       store,
		alerts:      alerts,
		logger:      logger,
		baseDelay:   baseDelay,
		maxAttempts: maxAttempts,
	}
}

// Run executes the state machine for one upload event and returns the
// terminal execution. Transitions within one execution are strictly
// sequential.
//
// Invalid input moves the execution straight to Failed with no retry and no
// alert: a rejected key is an expected condition, not a system fault.
// A write that keeps failing transiently is retried with exponential
// backoff; once attempts are exhausted (or the write fails permanently, or
// ctx is cancelled mid-retry) the failure alert is published exactly once
// and the execution ends Failed.
func (o *Orchestrator) Run(ctx context.Context, in Input) *models.WorkflowExecution {

	exec := &models.WorkflowExecution{ID: uuid.NewString(), State: models.StateValidating}
	log := o.logger.With("execution_id", exec.ID, "key", in.Key)

	log.Info(ctx, "workflow started", "bucket", in.Bucket, "state", string(exec.State))

	upload, err := validate.Key(in.Key, in.Timestamp)
	if err != nil {
		exec.LastError = err.Error()
		exec.State = models.StateFailed
		log.Warn(ctx, "upload rejected", "error", err.Error())
		return exec
	}

	exec.State = models.StateWriting
	log.Debug(ctx, "key validation passed", "state", string(exec.State))

	record := &models.MetadataRecord{
		Filename:        upload.Filename,
		UploadTimestamp: upload.UploadTimestamp,
		Bucket:          in.Bucket,
		EventTime:       in.EventTime,
	}

	backoff := retry.WithMaxRetries(uint64(o.maxAttempts-1), retry.NewExponential(o.baseDelay))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		exec.AttemptCount++

		result, err := o.store.Insert(ctx, record)
		if err == nil {
			if result == metadata.WriteDuplicate {
				log.Info(ctx, "duplicate record, treated as success")
			}
			return nil
		}

		exec.LastError = err.Error()
		log.Warn(ctx, "metadata write failed",
			"attempt", exec.AttemptCount, "max_attempts", o.maxAttempts, "error", err.Error())

		if metadata.IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})

	if err != nil {
		if exec.LastError == "" {
			// Cancelled before the write ever failed on its own.
			exec.LastError = err.Error()
		}
		exec.State = models.StateFailed
		log.Error(ctx, "workflow failed",
			"attempts", exec.AttemptCount, "error", err.Error(), "cause", exec.LastError)

		// The alert must go out even when ctx was cancelled mid-retry.
		o.publishFailure(context.WithoutCancel(ctx), exec, in)
		return exec
	}

	exec.State = models.StateSucceeded
	log.Info(ctx, "workflow succeeded", "attempts", exec.AttemptCount)
	return exec
}

func (o *Orchestrator) publishFailure(ctx context.Context, exec *models.WorkflowExecution, in Input) {

	msg := alert.Message{
		ErrorMessage: fmt.Sprintf("metadata write for %q failed after %d attempt(s): %s",
			in.Key, exec.AttemptCount, exec.LastError),
		Context: map[string]string{
			"bucket":       in.Bucket,
			"key":          in.Key,
			"execution_id": exec.ID,
			"attempts":     strconv.Itoa(exec.AttemptCount),
		},
	}

	// A lost alert is reported but never retried.
	if res := o.alerts.Publish(ctx, FailureSubject, msg); res == alert.PublishFailed {
		o.logger.Error(ctx, "failure alert lost", "execution_id", exec.ID, "key", in.Key)
	}
}
