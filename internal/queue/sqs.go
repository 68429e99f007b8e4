package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// maxSQSDelay is the largest per-message delay SQS accepts.
const maxSQSDelay = 900 * time.Second

// SQSQueue implements Publisher and Consumer on an AWS SQS queue. SQS gives
// the at-least-once contract for free: messages left unacknowledged past the
// visibility timeout are redelivered.
type SQSQueue struct {
	client   *sqs.Client
	queueURL string
	waitSecs int32
}

// NewSQSQueue wraps the given SQS client and queue URL.
func NewSQSQueue(client *sqs.Client, queueURL string) *SQSQueue {
	return &SQSQueue{client: client, queueURL: queueURL, waitSecs: 10}
}

var (
	_ Publisher = (*SQSQueue)(nil)
	_ Consumer  = (*SQSQueue)(nil)
)

// Publish sends one task message, optionally delayed.
func (q *SQSQueue) Publish(ctx context.Context, task Task, delay time.Duration) error {
	body, err := encodeTask(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if delay > maxSQSDelay {
		delay = maxSQSDelay
	}
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(body),
	}
	if delay > 0 {
		input.DelaySeconds = int32(delay / time.Second)
	}
	if _, err := q.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message to generation queue: %w", err)
	}
	return nil
}

// Receive long-polls for up to ten messages.
func (q *SQSQueue) Receive(ctx context.Context) ([]Message, error) {
	output, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     q.waitSecs,
	})
	if err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(output.Messages))
	for _, m := range output.Messages {
		if m.Body == nil || m.ReceiptHandle == nil {
			continue
		}
		task, err := decodeTask(*m.Body)
		if err != nil {
			// Unparseable payloads would redeliver forever; drop them.
			_ = q.Ack(ctx, *m.ReceiptHandle)
			continue
		}
		msgs = append(msgs, Message{Task: task, Handle: *m.ReceiptHandle})
	}
	return msgs, nil
}

// Ack deletes a message so it is not redelivered.
func (q *SQSQueue) Ack(ctx context.Context, handle string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(handle),
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}
