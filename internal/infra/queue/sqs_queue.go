// Package queue implements the notification channel on Amazon SQS.
package queue

import (
	"context"
	"errors"
	"fmt"

	"ats_workflow/internal/domain/notification"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
)

// maxBatch is the SQS limit for receive and delete batches.
const maxBatch = 10

// API is the subset of the SQS client the queue uses.
type API interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
}

// ReceiveOptions bounds one consumer invocation.
type ReceiveOptions struct {
	BatchSize         int32
	WaitSeconds       int32
	VisibilitySeconds int32
}

// SQSQueue is both producer and consumer of notification messages.
type SQSQueue struct {
	client   API
	queueURL string
	opts     ReceiveOptions
}

func NewSQSQueue(client API, queueURL string, opts ReceiveOptions) *SQSQueue {
	if opts.BatchSize <= 0 || opts.BatchSize > maxBatch {
		opts.BatchSize = maxBatch
	}
	return &SQSQueue{client: client, queueURL: queueURL, opts: opts}
}

// Enqueue sends msg to the queue. A nil error means SQS stored it durably.
func (q *SQSQueue) Enqueue(ctx context.Context, msg notification.Message) error {
	body, err := msg.Encode()
	if err != nil {
		return err
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(body),
	})
	if err != nil {
		return fmt.Errorf("error sending message to queue: %w", err)
	}
	return nil
}

// ReceiveBatch long-polls for at most one batch of messages.
func (q *SQSQueue) ReceiveBatch(ctx context.Context) ([]notification.Envelope, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: q.opts.BatchSize,
		WaitTimeSeconds:     q.opts.WaitSeconds,
		VisibilityTimeout:   q.opts.VisibilitySeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("error receiving messages from queue: %w", err)
	}

	envs := make([]notification.Envelope, 0, len(out.Messages))
	for _, m := range out.Messages {
		envs = append(envs, notification.Envelope{
			ID:     aws.ToString(m.MessageId),
			Handle: aws.ToString(m.ReceiptHandle),
			Body:   aws.ToString(m.Body),
		})
	}
	return envs, nil
}

// Ack deletes the given messages so they are not redelivered. Entries SQS
// refuses to delete are reported in the returned error; they will come back
// after the visibility timeout, which at-least-once consumers tolerate.
func (q *SQSQueue) Ack(ctx context.Context, envs []notification.Envelope) error {
	var errs []error
	for start := 0; start < len(envs); start += maxBatch {
		end := start + maxBatch
		if end > len(envs) {
			end = len(envs)
		}
		if err := q.deleteChunk(ctx, envs[start:end]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (q *SQSQueue) deleteChunk(ctx context.Context, envs []notification.Envelope) error {
	entries := make([]types.DeleteMessageBatchRequestEntry, 0, len(envs))
	byEntryID := make(map[string]string, len(envs))
	for _, env := range envs {
		entryID := uuid.NewString()
		byEntryID[entryID] = env.ID
		entries = append(entries, types.DeleteMessageBatchRequestEntry{
			Id:            aws.String(entryID),
			ReceiptHandle: aws.String(env.Handle),
		})
	}

	out, err := q.client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
		QueueUrl: aws.String(q.queueURL),
		Entries:  entries,
	})
	if err != nil {
		return fmt.Errorf("error deleting messages from queue: %w", err)
	}
	var errs []error
	for _, f := range out.Failed {
		errs = append(errs, fmt.Errorf("failed to delete message %s: %s %s",
			byEntryID[aws.ToString(f.Id)], aws.ToString(f.Code), aws.ToString(f.Message)))
	}
	return errors.Join(errs...)
}
