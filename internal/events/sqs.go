package events

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// SQSClient is the subset of the SQS SDK client docbox uses, narrowed so
// tests can supply a stub.
type SQSClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher fans every Message out to a single tenant SQS queue as a
// JSON body, matching the original implementation's cloud-queue sink.
type SQSPublisher struct {
	client   SQSClient
	queueURL string
	logger   *zap.Logger
}

// NewSQSPublisher builds a publisher bound to one tenant's queue.
func NewSQSPublisher(client SQSClient, queueURL string, logger *zap.Logger) *SQSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQSPublisher{client: client, queueURL: queueURL, logger: logger}
}

// Publish sends msg as the queue message body. Failures are logged and
// swallowed: publication happens after the database commit, so the
// caller has nothing left to roll back and no error to act on.
func (p *SQSPublisher) Publish(ctx context.Context, msg Message) {
	body, err := json.Marshal(msg)
	if err != nil {
		p.logger.Error("failed to encode event message", zap.Error(err), zap.String("kind", string(msg.Kind)))
		return
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		p.logger.Warn("failed to publish event message", zap.Error(err), zap.String("kind", string(msg.Kind)))
	}
}

// Close is a no-op: the SQS client's underlying HTTP transport is shared
// and owned by the caller.
func (p *SQSPublisher) Close() {}
