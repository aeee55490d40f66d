// Package awsx builds the AWS service clients used by the pipeline. The
// SDK constructors are reached through package-level function variables so
// tests can intercept client creation.
package awsx

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	sc "github.com/dmitrijs2005/ingestpipe/internal/ingestor/config"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newDynamoFromConfig = func(cfg aws.Config, optFns ...func(*dynamodb.Options)) *dynamodb.Client {
		return dynamodb.NewFromConfig(cfg, optFns...)
	}

	newS3FromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newSNSFromConfig = func(cfg aws.Config, optFns ...func(*sns.Options)) *sns.Client {
		return sns.NewFromConfig(cfg, optFns...)
	}

	newSQSFromConfig = func(cfg aws.Config, optFns ...func(*sqs.Options)) *sqs.Client {
		return sqs.NewFromConfig(cfg, optFns...)
	}
)

// LoadAWSConfig resolves the SDK configuration from the pipeline config.
// Static credentials are applied only when provided; otherwise the default
// credential chain is used.
func LoadAWSConfig(ctx context.Context, config *sc.Config) (aws.Config, error) {

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.AWSRegion),
	}

	if config.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				config.AWSAccessKeyID,
				config.AWSSecretAccessKey,
				"",
			)))
	}

	return loadDefaultAWSConfig(ctx, opts...)
}

// NewDynamoClient builds the DynamoDB client, honoring the base-endpoint
// override used for local development.
func NewDynamoClient(cfg aws.Config, config *sc.Config) *dynamodb.Client {
	return newDynamoFromConfig(cfg, func(o *dynamodb.Options) {
		if config.AWSBaseEndpoint != "" {
			o.BaseEndpoint = aws.String(config.AWSBaseEndpoint)
		}
	})
}

func NewS3Client(cfg aws.Config, config *sc.Config) *s3.Client {
	return newS3FromConfig(cfg, func(o *s3.Options) {
		if config.AWSBaseEndpoint != "" {
			o.BaseEndpoint = aws.String(config.AWSBaseEndpoint)
			o.UsePathStyle = true
		}
	})
}

func NewSNSClient(cfg aws.Config, config *sc.Config) *sns.Client {
	return newSNSFromConfig(cfg, func(o *sns.Options) {
		if config.AWSBaseEndpoint != "" {
			o.BaseEndpoint = aws.String(config.AWSBaseEndpoint)
		}
	})
}

func NewSQSClient(cfg aws.Config, config *sc.Config) *sqs.Client {
	return newSQSFromConfig(cfg, func(o *sqs.Options) {
		if config.AWSBaseEndpoint != "" {
			o.BaseEndpoint = aws.String(config.AWSBaseEndpoint)
		}
	})
}
