package compliance

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/alert"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/models"
	"github.com/dmitrijs2005/ingestpipe/internal/logging"
)

// -------- test fakes --------

type bucketState struct {
	algorithm s3types.ServerSideEncryption
	noConfig  bool
	err       error
}

type fakeS3 struct {
	buckets map[string]bucketState
	listErr error
}

func (f *fakeS3) ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := &s3.ListBucketsOutput{}
	for name := range f.buckets {
		out.Buckets = append(out.Buckets, s3types.Bucket{Name: aws.String(name)})
	}
	return out, nil
}

func (f *fakeS3) GetBucketEncryption(ctx context.Context, params *s3.GetBucketEncryptionInput, optFns ...func(*s3.Options)) (*s3.GetBucketEncryptionOutput, error) {
	st := f.buckets[aws.ToString(params.Bucket)]
	if st.err != nil {
		return nil, st.err
	}
	if st.noConfig {
		return nil, &smithy.GenericAPIError{Code: noEncryptionConfigCode, Message: "no config"}
	}
	return &s3.GetBucketEncryptionOutput{
		ServerSideEncryptionConfiguration: &s3types.ServerSideEncryptionConfiguration{
			Rules: []s3types.ServerSideEncryptionRule{{
				ApplyServerSideEncryptionByDefault: &s3types.ServerSideEncryptionByDefault{
					SSEAlgorithm: st.algorithm,
				},
			}},
		},
	}, nil
}

type tableState struct {
	sseStatus ddbtypes.SSEStatus
	noSSE     bool
	err       error
}

type fakeDynamo struct {
	tables  map[string]tableState
	listErr error
}

func (f *fakeDynamo) ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := &dynamodb.ListTablesOutput{}
	for name := range f.tables {
		out.TableNames = append(out.TableNames, name)
	}
	return out, nil
}

func (f *fakeDynamo) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	st := f.tables[aws.ToString(params.TableName)]
	if st.err != nil {
		return nil, st.err
	}
	desc := &ddbtypes.TableDescription{TableName: params.TableName}
	if !st.noSSE {
		desc.SSEDescription = &ddbtypes.SSEDescription{Status: st.sseStatus}
	}
	return &dynamodb.DescribeTableOutput{Table: desc}, nil
}

type capturingPublisher struct {
	calls    int
	subjects []string
	messages []alert.Message
}

func (c *capturingPublisher) Publish(ctx context.Context, subject string, msg alert.Message) alert.PublishResult {
	c.calls++
	c.subjects = append(c.subjects, subject)
	c.messages = append(c.messages, msg)
	return alert.PublishOK
}

func newScanner(s3c *fakeS3, ddb *fakeDynamo, pub *capturingPublisher, requireKMS bool) *Scanner {
	return NewScanner(s3c, ddb, pub, logging.NewNopLogger(), requireKMS)
}

func findingIDs(report *models.ScanReport) []string {
	ids := make([]string, 0, len(report.Findings))
	for _, f := range report.Findings {
		ids = append(ids, f.ResourceID)
	}
	return ids
}

// -------- tests --------

func TestScan_MixedResources_OneFindingOneAlert(t *testing.T) {
	s3c := &fakeS3{buckets: map[string]bucketState{
		"bucketA": {algorithm: s3types.ServerSideEncryptionAwsKms},
		"bucketB": {noConfig: true},
	}}
	ddb := &fakeDynamo{tables: map[string]tableState{
		"tableX": {sseStatus: ddbtypes.SSEStatusEnabled},
	}}
	pub := &capturingPublisher{}

	report, err := newScanner(s3c, ddb, pub, false).Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Findings, 1)
	require.Equal(t, "bucketB", report.Findings[0].ResourceID)
	require.Equal(t, models.ResourceBucket, report.Findings[0].ResourceType)
	require.False(t, report.Findings[0].Encrypted)

	require.Equal(t, 1, pub.calls)
	require.Equal(t, FindingsSubject, pub.subjects[0])
	require.Contains(t, pub.messages[0].Context, "Bucket bucketB")
}

func TestScan_AllEncrypted_NoAlert(t *testing.T) {
	s3c := &fakeS3{buckets: map[string]bucketState{
		"bucketA": {algorithm: s3types.ServerSideEncryptionAwsKms},
		"bucketB": {algorithm: s3types.ServerSideEncryptionAes256},
	}}
	ddb := &fakeDynamo{tables: map[string]tableState{
		"tableX": {sseStatus: ddbtypes.SSEStatusEnabled},
	}}
	pub := &capturingPublisher{}

	report, err := newScanner(s3c, ddb, pub, false).Scan(context.Background())
	require.NoError(t, err)
	require.True(t, report.Empty())
	require.Equal(t, 0, pub.calls)
}

func TestScan_RequireKMS_FlagsDefaultEncryption(t *testing.T) {
	s3c := &fakeS3{buckets: map[string]bucketState{
		"bucketA": {algorithm: s3types.ServerSideEncryptionAes256},
	}}
	ddb := &fakeDynamo{}
	pub := &capturingPublisher{}

	report, err := newScanner(s3c, ddb, pub, true).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	require.Contains(t, report.Findings[0].Reason, "KMS")
}

func TestScan_UnencryptedTable(t *testing.T) {
	s3c := &fakeS3{}
	ddb := &fakeDynamo{tables: map[string]tableState{
		"plain":     {noSSE: true},
		"disabled":  {sseStatus: ddbtypes.SSEStatusDisabled},
		"encrypted": {sseStatus: ddbtypes.SSEStatusEnabled},
	}}
	pub := &capturingPublisher{}

	report, err := newScanner(s3c, ddb, pub, false).Scan(context.Background())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"plain", "disabled"}, findingIDs(report))
	for _, f := range report.Findings {
		require.Equal(t, models.ResourceTable, f.ResourceType)
	}
}

// A single resource's query failure must degrade to a finding, not abort
// the rest of the scan.
func TestScan_PerResourceFailureIsLocalized(t *testing.T) {
	s3c := &fakeS3{buckets: map[string]bucketState{
		"flaky": {err: errors.New("throttled")},
		"good":  {algorithm: s3types.ServerSideEncryptionAwsKms},
	}}
	ddb := &fakeDynamo{tables: map[string]tableState{
		"broken": {err: errors.New("describe failed")},
		"fine":   {sseStatus: ddbtypes.SSEStatusEnabled},
	}}
	pub := &capturingPublisher{}

	report, err := newScanner(s3c, ddb, pub, false).Scan(context.Background())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"flaky", "broken"}, findingIDs(report))
	for _, f := range report.Findings {
		require.Contains(t, f.Reason, "could not be determined")
	}
	require.Equal(t, 1, pub.calls)
}

func TestScan_EnumerationFailureRaisesScanFailureAlert(t *testing.T) {
	s3c := &fakeS3{listErr: errors.New("access denied")}
	ddb := &fakeDynamo{tables: map[string]tableState{
		"fine": {sseStatus: ddbtypes.SSEStatusEnabled},
	}}
	pub := &capturingPublisher{}

	report, err := newScanner(s3c, ddb, pub, false).Scan(context.Background())
	require.Error(t, err)
	require.Nil(t, report)
	require.Equal(t, 1, pub.calls)
	require.Equal(t, ScanFailureSubject, pub.subjects[0])
	require.True(t, strings.Contains(pub.messages[0].ErrorMessage, "access denied"))
}

func TestScan_TablePagination(t *testing.T) {
	// A paginating fake: first page returns half the tables plus a cursor.
	ddb := &pagingDynamo{
		pages: [][]string{{"t1", "t2"}, {"t3"}},
		states: map[string]tableState{
			"t1": {sseStatus: ddbtypes.SSEStatusEnabled},
			"t2": {noSSE: true},
			"t3": {noSSE: true},
		},
	}
	pub := &capturingPublisher{}
	scanner := NewScanner(&fakeS3{}, ddb, pub, logging.NewNopLogger(), false)

	report, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"t2", "t3"}, findingIDs(report))
}

type pagingDynamo struct {
	pages  [][]string
	states map[string]tableState
	page   int
}

func (p *pagingDynamo) ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	if p.page >= len(p.pages) {
		return &dynamodb.ListTablesOutput{}, nil
	}
	out := &dynamodb.ListTablesOutput{TableNames: p.pages[p.page]}
	p.page++
	if p.page < len(p.pages) {
		last := out.TableNames[len(out.TableNames)-1]
		out.LastEvaluatedTableName = aws.String(last)
	}
	return out, nil
}

func (p *pagingDynamo) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	st := p.states[aws.ToString(params.TableName)]
	if st.err != nil {
		return nil, st.err
	}
	desc := &ddbtypes.TableDescription{TableName: params.TableName}
	if !st.noSSE {
		desc.SSEDescription = &ddbtypes.SSEDescription{Status: st.sseStatus}
	}
	return &dynamodb.DescribeTableOutput{Table: desc}, nil
}
