// Package compliance audits the account's storage resources for
// encryption at rest. Classification is fail-closed: a resource whose
// encryption state cannot be confirmed counts as not encrypted.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/alert"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/models"
	"github.com/dmitrijs2005/ingestpipe/internal/logging"
)

const (
	// FindingsSubject is the alert subject for a non-empty scan report.
	FindingsSubject = "Encryption compliance findings"
	// ScanFailureSubject is the alert subject raised when the scan itself
	// cannot enumerate resources.
	ScanFailureSubject = "Encryption compliance scan failed"

	// noEncryptionConfigCode is returned by the object store for buckets
	// with no encryption configuration at all.
	noEncryptionConfigCode = "ServerSideEncryptionConfigurationNotFoundError"
)

// S3API is the subset of the S3 client the scanner uses.
type S3API interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	GetBucketEncryption(ctx context.Context, params *s3.GetBucketEncryptionInput, optFns ...func(*s3.Options)) (*s3.GetBucketEncryptionOutput, error)
}

// DynamoAPI is the subset of the DynamoDB client the scanner uses.
type DynamoAPI interface {
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Scanner enumerates buckets and tables and reports the ones that are not
// encrypted at rest. It shares no state with the ingestion path.
type Scanner struct {
	s3Client  S3API
	ddbClient DynamoAPI
	alerts    alert.Publisher
	logger    logging.Logger

	// requireKMS also flags buckets that encrypt with the provider's
	// default mechanism instead of a managed KMS key.
	requireKMS bool

	now func() time.Time
}

func NewScanner(s3Client S3API, ddbClient DynamoAPI, alerts alert.Publisher,
	logger logging.Logger, requireKMS bool) *Scanner {
	return &Scanner{
		s3Client:   s3Client,
		ddbClient:  ddbClient,
		alerts:     alerts,
		logger:     logger,
		requireKMS: requireKMS,
		now:        time.Now,
	}
}

// Scan audits every visible bucket and table once. Per-resource query
// failures degrade to not-encrypted findings so one resource cannot
// suppress findings for the rest; only a failure to enumerate aborts the
// scan, and that failure itself raises an alert.
//
// A non-empty report triggers exactly one alert listing every offending
// resource. An empty report triggers nothing.
func (s *Scanner) Scan(ctx context.Context) (*models.ScanReport, error) {

	s.logger.Info(ctx, "compliance scan started")

	var (
		wg            sync.WaitGroup
		bucketFinds   []models.ComplianceFinding
		tableFinds    []models.ComplianceFinding
		bucketListErr error
		tableListErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		bucketFinds, bucketListErr = s.scanBuckets(ctx)
	}()
	go func() {
		defer wg.Done()
		tableFinds, tableListErr = s.scanTables(ctx)
	}()
	wg.Wait()

	// Findings from both resource kinds merge into a single accumulator
	// only after both goroutines are done.
	if err := errors.Join(bucketListErr, tableListErr); err != nil {
		s.logger.Error(ctx, "compliance scan aborted", "error", err.Error())
		s.alerts.Publish(ctx, ScanFailureSubject, alert.Message{
			ErrorMessage: fmt.Sprintf("the scheduled compliance scan could not complete: %s", err),
		})
		return nil, fmt.Errorf("compliance scan: %w", err)
	}

	report := &models.ScanReport{
		Findings:  append(bucketFinds, tableFinds...),
		ScannedAt: s.now().UTC(),
	}

	if report.Empty() {
		s.logger.Info(ctx, "compliance scan completed, no findings")
		return report, nil
	}

	s.logger.Warn(ctx, "compliance scan completed with findings", "count", len(report.Findings))
	s.alerts.Publish(ctx, FindingsSubject, findingsMessage(report))

	return report, nil
}

func findingsMessage(report *models.ScanReport) alert.Message {
	detail := make(map[string]string, len(report.Findings))
	for _, f := range report.Findings {
		detail[fmt.Sprintf("%s %s", f.ResourceType, f.ResourceID)] = f.Reason
	}
	return alert.Message{
		ErrorMessage: fmt.Sprintf("%d resource(s) are not encrypted at rest", len(report.Findings)),
		Context:      detail,
	}
}

func (s *Scanner) scanBuckets(ctx context.Context) ([]models.ComplianceFinding, error) {

	out, err := s.s3Client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	var findings []models.ComplianceFinding
	for _, bucket := range out.Buckets {
		name := aws.ToString(bucket.Name)
		if reason, encrypted := s.checkBucket(ctx, name); !encrypted {
			s.logger.Warn(ctx, "bucket not compliant", "bucket", name, "reason", reason)
			findings = append(findings, models.ComplianceFinding{
				ResourceType: models.ResourceBucket,
				ResourceID:   name,
				Reason:       reason,
			})
		}
	}

	return findings, nil
}

func (s *Scanner) checkBucket(ctx context.Context, name string) (reason string, encrypted bool) {

	out, err := s.s3Client.GetBucketEncryption(ctx, &s3.GetBucketEncryptionInput{Bucket: aws.String(name)})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == noEncryptionConfigCode {
			return "has no encryption configuration", false
		}
		// Fail closed: an unreadable state counts as not encrypted.
		return fmt.Sprintf("encryption state could not be determined: %s", err), false
	}

	if out.ServerSideEncryptionConfiguration == nil || len(out.ServerSideEncryptionConfiguration.Rules) == 0 {
		return "has no encryption rules", false
	}

	rule := out.ServerSideEncryptionConfiguration.Rules[0]
	if rule.ApplyServerSideEncryptionByDefault == nil {
		return "has no default encryption mechanism", false
	}

	algorithm := rule.ApplyServerSideEncryptionByDefault.SSEAlgorithm
	switch algorithm {
	case s3types.ServerSideEncryptionAwsKms, s3types.ServerSideEncryptionAwsKmsDsse:
		return "", true
	case s3types.ServerSideEncryptionAes256:
		if s.requireKMS {
			return fmt.Sprintf("is not encrypted with a KMS key (uses default %s encryption)", algorithm), false
		}
		return "", true
	default:
		return fmt.Sprintf("uses unrecognized encryption mechanism %q", algorithm), false
	}
}

func (s *Scanner) scanTables(ctx context.Context) ([]models.ComplianceFinding, error) {

	var findings []models.ComplianceFinding
	var startFrom *string

	for {
		out, err := s.ddbClient.ListTables(ctx, &dynamodb.ListTablesInput{
			ExclusiveStartTableName: startFrom,
		})
		if err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}

		for _, name := range out.TableNames {
			if reason, encrypted := s.checkTable(ctx, name); !encrypted {
				s.logger.Warn(ctx, "table not compliant", "table", name, "reason", reason)
				findings = append(findings, models.ComplianceFinding{
					ResourceType: models.ResourceTable,
					ResourceID:   name,
					Reason:       reason,
				})
			}
		}

		if out.LastEvaluatedTableName == nil {
			return findings, nil
		}
		startFrom = out.LastEvaluatedTableName
	}
}

func (s *Scanner) checkTable(ctx context.Context, name string) (reason string, encrypted bool) {

	out, err := s.ddbClient.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
	if err != nil {
		return fmt.Sprintf("encryption state could not be determined: %s", err), false
	}

	sse := out.Table.SSEDescription
	if sse == nil || sse.Status != ddbtypes.SSEStatusEnabled {
		return "is not encrypted", false
	}

	return "", true
}
