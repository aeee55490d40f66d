package ingestor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dmitrijs2005/ingestpipe/internal/awsx"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/alert"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/compliance"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/config"
	"github.com/dmitrijs2005/ingestpipe/internal/logging"
)

// ScanApp is the compliance binary: it audits buckets and tables for
// encryption at rest, either once or on a fixed schedule. It shares no
// state with the ingestion path.
type ScanApp struct {
	config  *config.Config
	logger  logging.Logger
	scanner *compliance.Scanner
}

func NewScanApp(ctx context.Context, c *config.Config) (*ScanApp, error) {

	slog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slog)

	awsCfg, err := awsx.LoadAWSConfig(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	publisher := alert.NewSNSPublisher(awsx.NewSNSClient(awsCfg, c), c.AlertTopicARN, logger)
	scanner := compliance.NewScanner(
		awsx.NewS3Client(awsCfg, c),
		awsx.NewDynamoClient(awsCfg, c),
		publisher,
		logger,
		c.RequireKMS,
	)

	return &ScanApp{config: c, logger: logger, scanner: scanner}, nil
}

// RunOnce performs a single scan, for on-demand invocation.
func (app *ScanApp) RunOnce(ctx context.Context) error {
	_, err := app.scanner.Scan(ctx)
	return err
}

// Run scans immediately and then on every tick of the configured interval
// until a signal or cancellation stops it. A failed scan does not stop the
// schedule; the scanner already alerts on its own failures.
func (app *ScanApp) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting compliance schedule", "interval", app.config.ScanInterval.String())

	initSignalHandler(cancelFunc)

	ticker := time.NewTicker(app.config.ScanInterval)
	defer ticker.Stop()

	for {
		if err := app.RunOnce(ctx); err != nil {
			app.logger.Error(ctx, "scan failed", "error", err.Error())
		}

		select {
		case <-ctx.Done():
			app.logger.Info(ctx, "compliance schedule stopped")
			return
		case <-ticker.C:
		}
	}
}
