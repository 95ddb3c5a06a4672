package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/junglehq/jungle/internal/faults"
	"github.com/junglehq/jungle/internal/leads"
	"github.com/junglehq/jungle/pkg/logging"
)

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	deleteTimeoutSeconds = 5
)

// WorkerConfig tunes the queue consumers.
type WorkerConfig struct {
	Workers          int
	ReceiveWaitSecs  int
	ReceiveBatchSize int
}

// Worker consumes dispatch jobs from the queue and invokes the dispatcher.
type Worker struct {
	dispatcher *Dispatcher
	queue      queueClient
	logger     *logging.Logger
	cfg        WorkerConfig
	wg         sync.WaitGroup
}

// NewWorker creates a queue consumer pool.
func NewWorker(dispatcher *Dispatcher, queue queueClient, cfg WorkerConfig, logger *logging.Logger) *Worker {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkerCount
	}
	if cfg.ReceiveWaitSecs <= 0 {
		cfg.ReceiveWaitSecs = defaultWaitSeconds
	}
	if cfg.ReceiveBatchSize <= 0 {
		cfg.ReceiveBatchSize = defaultBatchSize
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		dispatcher: dispatcher,
		queue:      queue,
		logger:     logger.Component("dispatch-worker"),
		cfg:        cfg,
	}
}

// Start launches the consumer goroutines.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.Workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all consumers have exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("dispatch worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("dispatch worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.ReceiveBatchSize, w.cfg.ReceiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive dispatch jobs", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	var job Job
	if err := json.Unmarshal([]byte(msg.Body), &job); err != nil {
		w.logger.Error("failed to decode dispatch job", "error", err, "msg_id", msg.ID)
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	w.logger.Info("processing dispatch job", "job_id", job.ID, "lead_id", job.LeadID)

	err := w.dispatcher.Dispatch(ctx, job.LeadID)
	switch {
	case err == nil, errors.Is(err, leads.ErrAlreadyProcessed), errors.Is(err, leads.ErrLeadNotFound):
		// Done, lost the claim, or the lead vanished: nothing to retry.
	case isTransient(err):
		// Leave the message for redelivery.
		w.logger.Warn("transient dispatch failure, leaving job for retry", "error", err, "lead_id", job.LeadID)
		return
	default:
		// The lead was already marked ai_failed and alerted; retrying the
		// job would not change that.
		w.logger.Error("dispatch job failed", "error", err, "lead_id", job.LeadID)
	}

	w.deleteMessage(ctx, msg.ReceiptHandle)
}

func isTransient(err error) bool {
	var storage *faults.StorageError
	return errors.As(err, &storage)
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}

	deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeoutSeconds*time.Second)
	defer cancel()

	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete dispatch job", "error", err)
	}
}
