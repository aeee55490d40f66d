package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/ingestpipe/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-q string   SQS queue URL for upload notifications
//	-m string   metadata backend ("dynamodb" or "postgres")
//	-t string   DynamoDB metadata table name
//	-d string   PostgreSQL DSN
//	-n string   SNS alert topic ARN
//	-g string   AWS region
//	-u string   AWS access key id
//	-p string   AWS secret access key
//	-e string   AWS base endpoint (e.g., "http://127.0.0.1:4566")
//	-i int      compliance scan interval, minutes
//	-k          require KMS encryption for bucket compliance
//	-w int      metadata write retry base delay, seconds
//	-x int      metadata write attempts, total
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes
//     using flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and converted to
//     time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:],
		[]string{"-q", "-m", "-t", "-d", "-n", "-g", "-u", "-p", "-e", "-i", "-k", "-w", "-x"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.QueueURL, "q", config.QueueURL, "SQS queue URL for upload notifications")
	fs.StringVar(&config.MetadataBackend, "m", config.MetadataBackend, "metadata backend")
	fs.StringVar(&config.MetadataTable, "t", config.MetadataTable, "metadata table name")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AlertTopicARN, "n", config.AlertTopicARN, "SNS alert topic ARN")
	fs.StringVar(&config.AWSRegion, "g", config.AWSRegion, "AWS region")
	fs.StringVar(&config.AWSAccessKeyID, "u", config.AWSAccessKeyID, "AWS access key id")
	fs.StringVar(&config.AWSSecretAccessKey, "p", config.AWSSecretAccessKey, "AWS secret access key")
	fs.StringVar(&config.AWSBaseEndpoint, "e", config.AWSBaseEndpoint, "AWS base endpoint")

	scanIntervalMinutes := fs.Int("i", int(config.ScanInterval.Minutes()), "scan interval (in minutes)")
	fs.BoolVar(&config.RequireKMS, "k", config.RequireKMS, "require KMS encryption for buckets")
	retryBaseSeconds := fs.Int("w", int(config.WriteRetryBaseDelay.Seconds()), "write retry base delay (in seconds)")
	fs.IntVar(&config.WriteMaxAttempts, "x", config.WriteMaxAttempts, "metadata write attempts, total")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.ScanInterval = time.Duration(*scanIntervalMinutes) * time.Minute
	config.WriteRetryBaseDelay = time.Duration(*retryBaseSeconds) * time.Second
}
