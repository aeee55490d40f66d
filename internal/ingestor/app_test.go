package ingestor

import (
	"context"
	"strings"
	"testing"

	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/ingress"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/models"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/workflow"
	"github.com/dmitrijs2005/ingestpipe/internal/logging"
)

// stubStarter succeeds every execution except the keys it is told to fail.
type stubStarter struct {
	failKeys map[string]bool
}

func (s *stubStarter) Run(ctx context.Context, in workflow.Input) *models.WorkflowExecution {
	exec := &models.WorkflowExecution{ID: in.Key, State: models.StateSucceeded}
	if s.failKeys[in.Key] {
		exec.State = models.StateFailed
		exec.LastError = "write failed"
	}
	return exec
}

const twoRecordNotification = `{"Records":[
	{"eventTime":"2024-05-01T10:00:00Z","s3":{"bucket":{"name":"uploads"},"object":{"key":"a.txt"}}},
	{"eventTime":"2024-05-01T10:00:01Z","s3":{"bucket":{"name":"uploads"},"object":{"key":"b.txt"}}}
]}`

func newTestApp(starter *stubStarter) *App {
	logger := logging.NewNopLogger()
	return &App{logger: logger, trigger: ingress.NewTrigger(starter, logger)}
}

func TestApp_HandleEvent(t *testing.T) {

	t.Run("all executions succeed", func(t *testing.T) {
		app := newTestApp(&stubStarter{})
		if err := app.HandleEvent(context.Background(), []byte(twoRecordNotification)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("failed execution surfaces as error", func(t *testing.T) {
		app := newTestApp(&stubStarter{failKeys: map[string]bool{"b.txt": true}})
		err := app.HandleEvent(context.Background(), []byte(twoRecordNotification))
		if err == nil {
			t.Fatal("expected an error when an execution ends failed")
		}
		if !strings.Contains(err.Error(), "1 of 2") {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("undecodable payload surfaces as error", func(t *testing.T) {
		app := newTestApp(&stubStarter{})
		if err := app.HandleEvent(context.Background(), []byte("{broken")); err == nil {
			t.Fatal("expected a decode error")
		}
	})
}
