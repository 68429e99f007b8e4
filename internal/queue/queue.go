// Package queue defines the generation task queue contract. Delivery is
// at-least-once: consumers must tolerate duplicates and redeliveries.
package queue

import (
	"context"
	"encoding/json"
	"time"
)

// Task instructs a worker to attempt video generation for one submission.
// Attempt is the number of generation attempts already made.
type Task struct {
	SubmissionID string `json:"submission_id"`
	Attempt      int    `json:"attempt"`
}

// Message is a received task plus the handle needed to acknowledge it.
type Message struct {
	Task   Task
	Handle string
}

// Publisher enqueues generation tasks. A non-zero delay postpones delivery,
// which is how retry backoff is scheduled without in-memory timers.
type Publisher interface {
	Publish(ctx context.Context, task Task, delay time.Duration) error
}

// Consumer receives and acknowledges task messages. Receive blocks until
// messages arrive, the poll window elapses, or ctx is done. An unacknowledged
// message is redelivered.
type Consumer interface {
	Receive(ctx context.Context) ([]Message, error)
	Ack(ctx context.Context, handle string) error
}

func encodeTask(t Task) (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeTask(body string) (Task, error) {
	var t Task
	err := json.Unmarshal([]byte(body), &t)
	return t, err
}
