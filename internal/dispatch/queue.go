// Package dispatch moves due leads through the AI call pipeline: the
// evaluator finds pending leads past their speed-to-lead threshold and
// enqueues jobs, the worker consumes jobs, and the dispatcher claims each
// lead and places the outbound call.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// Job is the unit of work flowing from evaluator to worker.
type Job struct {
	ID             string    `json:"id"`
	LeadID         string    `json:"leadId"`
	OrganizationID string    `json:"organizationId"`
	EnqueuedAt     time.Time `json:"enqueuedAt"`
}

// Publisher enqueues dispatch jobs.
type Publisher struct {
	queue queueClient
}

// NewPublisher wraps a queue for job publishing.
func NewPublisher(queue queueClient) *Publisher {
	return &Publisher{queue: queue}
}

// Publish enqueues one job, assigning an ID and timestamp when absent.
func (p *Publisher) Publish(ctx context.Context, job Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("dispatch: encode job: %w", err)
	}
	if err := p.queue.Send(ctx, string(body)); err != nil {
		return fmt.Errorf("dispatch: enqueue job: %w", err)
	}
	return nil
}
