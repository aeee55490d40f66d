package ingress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/dmitrijs2005/ingestpipe/internal/logging"
)

// SQSAPI is the subset of the SQS client the consumer uses.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Consumer long-polls a queue of storage notifications and hands each
// message body to the trigger.
type Consumer struct {
	client   SQSAPI
	queueURL string
	trigger  *Trigger
	logger   logging.Logger

	waitTimeSeconds int32
	maxMessages     int32
	errorBackoff    time.Duration
}

func NewConsumer(client SQSAPI, queueURL string, trigger *Trigger, logger logging.Logger) *Consumer {
	return &Consumer{
		client:          client,
		queueURL:        queueURL,
		trigger:         trigger,
		logger:          logger,
		waitTimeSeconds: 20,
		maxMessages:     10,
		errorBackoff:    2 * time.Second,
	}
}

// Run polls until ctx is cancelled. A handled message is deleted from the
// queue; an undecodable one is deleted too (and logged) so it cannot poison
// the queue. A receive error is logged and polling continues after a short
// pause, so a persistent failure never turns into a tight loop.
func (c *Consumer) Run(ctx context.Context) error {

	c.logger.Info(ctx, "queue consumer started", "queue_url", c.queueURL)

	for {
		if err := ctx.Err(); err != nil {
			c.logger.Info(ctx, "queue consumer stopped")
			return nil
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			WaitTimeSeconds:     c.waitTimeSeconds,
			MaxNumberOfMessages: c.maxMessages,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info(ctx, "queue consumer stopped")
				return nil
			}
			c.logger.Error(ctx, "receive failed", "error", err.Error())
			select {
			case <-ctx.Done():
			case <-time.After(c.errorBackoff):
			}
			continue
		}

		for _, msg := range out.Messages {
			c.handleMessage(ctx, aws.ToString(msg.Body), aws.ToString(msg.ReceiptHandle))
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, body, receiptHandle string) {

	if _, err := c.trigger.Handle(ctx, []byte(body)); err != nil {
		c.logger.Error(ctx, "malformed notification dropped", "error", err.Error())
	}

	if err := c.deleteMessage(ctx, receiptHandle); err != nil {
		// The message will reappear after its visibility timeout; the
		// store's conditional insert makes the redelivery harmless.
		c.logger.Warn(ctx, "delete failed, message will be redelivered", "error", err.Error())
	}
}

func (c *Consumer) deleteMessage(ctx context.Context, receiptHandle string) error {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}
