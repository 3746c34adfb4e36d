package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Transport delivers one rendered message to one recipient. Implementations
// perform exactly one network call and never retry internally; any failure
// surfaces as a single error and the dispatcher owns the retry policy.
type Transport interface {
	Send(ctx context.Context, chatID int64, msg RenderedMessage) error
}

// DispatcherConfig contains dispatcher tuning.
type DispatcherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int
	BackoffStep  time.Duration
}

// DefaultDispatcherConfig returns the default dispatcher configuration:
// poll every 10s, batches of 50, 5 retries with linear 60s backoff steps.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		PollInterval: 10 * time.Second,
		BatchSize:    50,
		MaxRetries:   5,
		BackoffStep:  time.Minute,
	}
}

// Dispatcher drains the outbox on a fixed interval. Each poll claims a
// bounded batch of due tasks (oldest first), formats and sends each task
// independently, and records the outcome. One task's failure never aborts
// the rest of the batch.
type Dispatcher struct {
	config    DispatcherConfig
	repo      Repository
	transport Transport
	formatter Formatter

	now    func() time.Time
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the given store and transport.
func NewDispatcher(config DispatcherConfig, repo Repository, transport Transport) *Dispatcher {
	return &Dispatcher{
		config:    config,
		repo:      repo,
		transport: transport,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the poll loop.
func (d *Dispatcher) Start(ctx context.Context) {
	slog.Info("starting outbox dispatcher",
		"poll_interval", d.config.PollInterval,
		"batch_size", d.config.BatchSize,
		"max_retries", d.config.MaxRetries,
	)

	d.wg.Add(1)
	go d.run(ctx)
}

// Stop gracefully stops the dispatcher, waiting for an in-flight poll.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	d.wg.Wait()
	slog.Info("outbox dispatcher stopped")
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.processBatch(ctx)
		}
	}
}

func (d *Dispatcher) processBatch(ctx context.Context) {
	tasks, err := d.repo.ClaimDueBatch(ctx, d.config.BatchSize, d.now())
	if err != nil {
		slog.Error("failed to claim due outbox tasks", "error", err)
		return
	}

	if len(tasks) == 0 {
		return
	}

	slog.Debug("processing outbox batch", "count", len(tasks))
	recordBatchClaimed(len(tasks))

	for _, task := range tasks {
		d.processTask(ctx, task)
	}
}

// processTask runs one delivery attempt for a task already claimed as
// SENDING. A crash anywhere in here leaves the row in SENDING with
// next_attempt_at in the past, so a later poll picks it up again.
func (d *Dispatcher) processTask(ctx context.Context, task *OutboxTask) {
	start := d.now()

	chatID, err := d.repo.ResolveChatID(ctx, task.UserID)
	if err != nil {
		// Not a fast-fail: the chat id may appear once the user links
		// Telegram, so this goes through the normal retry schedule.
		d.finalizeFailure(ctx, task, err)
		return
	}

	msg := d.formatter.Format(DecodePayload(task.Type, task.Payload))

	err = d.transport.Send(ctx, chatID, msg)
	if err != nil {
		d.finalizeFailure(ctx, task, err)
		return
	}

	task.Status = StatusSent
	task.LastError = ""
	if err := d.repo.SaveTask(ctx, task); err != nil {
		slog.Error("failed to mark task as sent", "task_id", task.ID, "error", err)
		return
	}

	recordDispatch(string(task.Type), "sent")
	recordSendDuration(d.now().Sub(start))

	slog.Debug("notification delivered",
		"task_id", task.ID,
		"type", task.Type,
		"user_id", task.UserID,
	)
}

// finalizeFailure applies the retry state machine: bump the attempt count,
// then either schedule the next attempt with linear backoff or park the task
// in terminal FAILED once the budget is spent.
func (d *Dispatcher) finalizeFailure(ctx context.Context, task *OutboxTask, cause error) {
	task.RetryCount++
	task.LastError = cause.Error()

	if task.RetryCount > d.config.MaxRetries {
		task.Status = StatusFailed
		recordDispatch(string(task.Type), "failed")
		slog.Warn("notification failed permanently",
			"task_id", task.ID,
			"type", task.Type,
			"retries", task.RetryCount,
			"error", cause,
		)
	} else {
		task.Status = StatusPending
		task.NextAttemptAt = d.now().Add(time.Duration(task.RetryCount) * d.config.BackoffStep)
		recordDispatch(string(task.Type), "retry")
		slog.Warn("notification send failed, scheduled for retry",
			"task_id", task.ID,
			"attempt", task.RetryCount,
			"next_attempt", task.NextAttemptAt,
			"error", cause,
		)
	}

	if err := d.repo.SaveTask(ctx, task); err != nil {
		slog.Error("failed to save outbox task after failure", "task_id", task.ID, "error", err)
	}
}
