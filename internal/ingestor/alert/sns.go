package alert

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/dmitrijs2005/ingestpipe/internal/logging"
)

// SNSAPI is the subset of the SNS client the publisher uses.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher sends alerts to one SNS topic.
type SNSPublisher struct {
	client   SNSAPI
	topicARN string
	logger   logging.Logger
}

func NewSNSPublisher(client SNSAPI, topicARN string, logger logging.Logger) *SNSPublisher {
	return &SNSPublisher{client: client, topicARN: topicARN, logger: logger}
}

// Publish emits one notification. A failure is logged and surfaced as
// PublishFailed; the caller must not retry.
func (p *SNSPublisher) Publish(ctx context.Context, subject string, msg Message) PublishResult {

	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(msg.Render()),
	})

	if err != nil {
		p.logger.Error(ctx, "alert publish failed", "subject", subject, "error", err.Error())
		return PublishFailed
	}

	p.logger.Info(ctx, "alert published", "subject", subject, "message_id", aws.ToString(out.MessageId))

	return PublishOK
}
