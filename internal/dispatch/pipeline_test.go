package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junglehq/jungle/internal/alerts"
	"github.com/junglehq/jungle/internal/leads"
)

// End-to-end over the in-memory queue: evaluator finds the overdue lead,
// worker consumes the job, dispatcher places the call.
func TestPipelineDispatchesOverdueLead(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	overdue := seedLead(t, repo, 10*time.Minute)
	fresh := seedLead(t, repo, 1*time.Minute)

	queue := NewMemoryQueue(16)
	fc := &fakeCaller{}
	d := newTestDispatcher(repo, &fakeCredentials{key: "sk"}, fc, alerts.NewInMemoryStore())

	evaluator := NewEvaluator(repo, NewPublisher(queue), EvaluatorConfig{
		Interval:             time.Hour,
		BatchSize:            10,
		DefaultThresholdMins: 5,
	}, nil)
	evaluator.poll(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	worker := NewWorker(d, queue, WorkerConfig{Workers: 1, ReceiveWaitSecs: 1}, nil)
	worker.Start(ctx)

	require.Eventually(t, func() bool {
		got, err := repo.GetByID(context.Background(), overdue.ID)
		return err == nil && got.Status == leads.StatusAITriggered
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	worker.Wait()

	assert.Equal(t, 1, fc.callCount())

	got, err := repo.GetByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, leads.StatusPending, got.Status, "lead under threshold must not be dispatched")
}

// A lead enqueued twice (overlapping evaluator runs) is called once.
func TestPipelineDuplicateJobsAreHarmless(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	lead := seedLead(t, repo, 10*time.Minute)

	queue := NewMemoryQueue(16)
	publisher := NewPublisher(queue)
	for i := 0; i < 2; i++ {
		require.NoError(t, publisher.Publish(context.Background(), Job{LeadID: lead.ID, OrganizationID: lead.OrganizationID}))
	}

	fc := &fakeCaller{}
	d := newTestDispatcher(repo, &fakeCredentials{key: "sk"}, fc, alerts.NewInMemoryStore())

	ctx, cancel := context.WithCancel(context.Background())
	worker := NewWorker(d, queue, WorkerConfig{Workers: 2, ReceiveWaitSecs: 1, ReceiveBatchSize: 1}, nil)
	worker.Start(ctx)

	require.Eventually(t, func() bool {
		got, err := repo.GetByID(context.Background(), lead.ID)
		return err == nil && got.Status == leads.StatusAITriggered
	}, 3*time.Second, 20*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	cancel()
	worker.Wait()

	assert.Equal(t, 1, fc.callCount())
}

func TestPublisherAssignsJobIdentity(t *testing.T) {
	queue := NewMemoryQueue(1)
	publisher := NewPublisher(queue)
	require.NoError(t, publisher.Publish(context.Background(), Job{LeadID: "lead-1", OrganizationID: "org-1"}))

	msgs, err := queue.Receive(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Body, `"lead-1"`)
	assert.Contains(t, msgs[0].Body, `"id"`)
}
