// Package ingestor initializes and runs the pipeline binaries. It wires
// the AWS clients, the metadata store, the alert publisher and the
// workflow components, and handles graceful shutdown.
package ingestor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/ingestpipe/internal/awsx"
	"github.com/dmitrijs2005/ingestpipe/internal/common"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/alert"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/config"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/ingress"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/metadata"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/models"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/workflow"
	"github.com/dmitrijs2005/ingestpipe/internal/logging"
)

// App is the ingestion binary: it consumes upload notifications from the
// queue and drives one workflow execution per valid event. It can also
// handle a single notification payload directly, lambda-style.
type App struct {
	config   *config.Config
	logger   logging.Logger
	trigger  *ingress.Trigger
	consumer *ingress.Consumer
	db       *sql.DB
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	slog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slog)

	awsCfg, err := awsx.LoadAWSConfig(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	store, db, err := newMetadataStore(c, awsCfg, logger)
	if err != nil {
		return nil, err
	}

	publisher := alert.NewSNSPublisher(awsx.NewSNSClient(awsCfg, c), c.AlertTopicARN, logger)
	orchestrator := workflow.NewOrchestrator(store, publisher, logger, c.WriteRetryBaseDelay, c.WriteMaxAttempts)
	trigger := ingress.NewTrigger(orchestrator, logger)
	consumer := ingress.NewConsumer(awsx.NewSQSClient(awsCfg, c), c.QueueURL, trigger, logger)

	return &App{config: c, logger: logger, trigger: trigger, consumer: consumer, db: db}, nil
}

// HandleEvent processes one notification payload without the queue, for
// one-shot invocations. It returns an error when the payload cannot be
// decoded or when any started execution ends Failed, so the caller can
// exit non-zero.
func (app *App) HandleEvent(ctx context.Context, payload []byte) error {

	result, err := app.trigger.Handle(ctx, payload)
	if err != nil {
		return err
	}

	failed := 0
	for _, exec := range result.Executions {
		if exec.State == models.StateFailed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d execution(s) ended failed", failed, len(result.Executions))
	}
	return nil
}

// newMetadataStore selects the keyed-store backend. The Postgres branch
// also returns the handle so the app can close it on shutdown.
func newMetadataStore(c *config.Config, awsCfg aws.Config, logger logging.Logger) (metadata.Store, *sql.DB, error) {
	switch c.MetadataBackend {
	case config.BackendDynamo:
		return metadata.NewDynamoStore(awsx.NewDynamoClient(awsCfg, c), c.MetadataTable, logger), nil, nil
	case config.BackendPostgres:
		db, err := sql.Open("pgx", c.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("db init error: %w", err)
		}
		return metadata.NewPostgresStore(db, logger), db, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", common.ErrUnknownBackend, c.MetadataBackend)
	}
}

func initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting ingestion consumer",
		"backend", app.config.MetadataBackend, "queue_url", app.config.QueueURL)

	initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.consumer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close error", "error", err.Error())
		}
	}
}
