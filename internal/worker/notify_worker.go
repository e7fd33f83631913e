package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"stayd/internal/database"
	"stayd/internal/domain"
	"stayd/internal/models"

	"github.com/redis/go-redis/v9"
)

// taskPayload is persisted in NotifyTask.Payload as JSON.
type taskPayload struct {
	BookingID int64           `json:"booking_id"`
	Booking   *models.Booking `json:"booking,omitempty"`
	Status    string          `json:"status,omitempty"`
}

// NotifyWorker consumes notify_queue tasks: receipt workbooks and the
// bookings spreadsheet mirror. Tasks survive restarts in the database; redis
// is a fast path, the in-memory channel a fallback, and DB polling the
// backstop.
type NotifyWorker struct {
	db            *database.DB
	sheets        domain.SheetsWriter
	receipts      domain.ReceiptWriter
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.NotifyTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *log.Logger
}

// NewNotifyWorker builds a worker with sane defaults.
func NewNotifyWorker(db *database.DB, sheets domain.SheetsWriter, receipts domain.ReceiptWriter, redisClient *redis.Client, retry RetryPolicy, logger *log.Logger) *NotifyWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if logger == nil {
		logger = log.Default()
	}

	return &NotifyWorker{
		db:            db,
		sheets:        sheets,
		receipts:      receipts,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.NotifyTask, models.WorkerQueueSize),
		redisQueueKey: "notify:queue",
		deadLetterKey: "notify:deadletter",
		pollInterval:  2 * time.Second,
		batchSize:     20,
		logger:        logger,
	}
}

func (w *NotifyWorker) EnqueueReceipt(ctx context.Context, booking *models.Booking) error {
	return w.enqueue(ctx, models.TaskTypeReceipt, booking.ID, booking, "")
}

func (w *NotifyWorker) EnqueueMirror(ctx context.Context, booking *models.Booking) error {
	return w.enqueue(ctx, models.TaskTypeMirror, booking.ID, booking, "")
}

func (w *NotifyWorker) EnqueueMirrorStatus(ctx context.Context, bookingID int64, status string) error {
	return w.enqueue(ctx, models.TaskTypeMirrorStatus, bookingID, nil, status)
}

// enqueue persists the task to DB and schedules it via redis or in-memory queue.
func (w *NotifyWorker) enqueue(ctx context.Context, taskType string, bookingID int64, booking *models.Booking, status string) error {
	if bookingID == 0 {
		return errors.New("booking id is required")
	}

	payload := taskPayload{
		BookingID: bookingID,
		Booking:   booking,
		Status:    status,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.NotifyTask{
		TaskType:  taskType,
		BookingID: bookingID,
		Payload:   string(payloadBytes),
		Status:    models.TaskStatusPending,
		CreatedAt: time.Now(),
	}

	if err := w.db.CreateNotifyTask(ctx, &task); err != nil {
		return fmt.Errorf("persist notify task: %w", err)
	}

	// Try redis first for durability.
	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Printf("notify_worker: redis push failed, fallback to memory queue: %v", err)
		} else {
			return nil
		}
	}

	// Fallback to in-memory queue if redis missing or failed.
	select {
	case w.queue <- task:
	default:
		w.logger.Printf("notify_worker: in-memory queue full, task %d dropped to polling", task.ID)
	}

	return nil
}

// Start launches main loop; stops when ctx is done.
func (w *NotifyWorker) Start(ctx context.Context) {
	w.logger.Printf("notify_worker: started")
	defer w.logger.Printf("notify_worker: stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		tasks, err := w.db.GetPendingNotifyTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Printf("notify_worker: fetch pending: %v", err)
			time.Sleep(w.pollInterval)
			continue
		}
		if len(tasks) == 0 {
			time.Sleep(w.pollInterval)
			continue
		}

		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *NotifyWorker) tryLocalQueue() (models.NotifyTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.NotifyTask{}, false
	}
}

func (w *NotifyWorker) tryRedis(ctx context.Context) (models.NotifyTask, bool) {
	if w.redis == nil {
		return models.NotifyTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return models.NotifyTask{}, false
		}
		w.logger.Printf("notify_worker: redis BRPOP error: %v", err)
		return models.NotifyTask{}, false
	}
	if len(res) != 2 {
		return models.NotifyTask{}, false
	}
	var task models.NotifyTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Printf("notify_worker: decode redis task: %v", err)
		return models.NotifyTask{}, false
	}
	return task, true
}

// processingLease bounds how long a claimed task stays invisible to the
// polling backstop; a worker that dies mid-task loses the claim after it.
const processingLease = 2 * time.Minute

func (w *NotifyWorker) processTask(ctx context.Context, task *models.NotifyTask) {
	claimed, err := w.db.ClaimNotifyTask(ctx, task.ID, processingLease)
	if err != nil {
		w.logger.Printf("notify_worker: claim %d: %v", task.ID, err)
		return
	}
	if !claimed {
		// Another consumer already took or finished this task.
		return
	}

	payload, err := w.decodePayload(task.Payload)
	if err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.handleTask(ctx, task.TaskType, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.db.UpdateNotifyTaskStatus(ctx, task.ID, models.TaskStatusCompleted, "", nil); err != nil {
		w.logger.Printf("notify_worker: mark completed %d: %v", task.ID, err)
	}
}

func (w *NotifyWorker) handleTask(ctx context.Context, taskType string, payload taskPayload) error {
	switch taskType {
	case models.TaskTypeReceipt:
		if payload.Booking == nil {
			return errors.New("booking payload missing")
		}
		if w.receipts == nil {
			return errors.New("receipt writer not configured")
		}
		_, err := w.receipts.WriteReceipt(ctx, payload.Booking)
		return err
	case models.TaskTypeMirror:
		if payload.Booking == nil {
			return errors.New("booking payload missing")
		}
		if w.sheets == nil {
			return errors.New("sheets writer not configured")
		}
		return w.sheets.UpsertBooking(ctx, payload.Booking)
	case models.TaskTypeMirrorStatus:
		if payload.BookingID == 0 || payload.Status == "" {
			return errors.New("booking id or status missing")
		}
		if w.sheets == nil {
			return errors.New("sheets writer not configured")
		}
		return w.sheets.UpdateBookingStatus(ctx, payload.BookingID, payload.Status)
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
}

func (w *NotifyWorker) retryOrFail(ctx context.Context, task *models.NotifyTask, cause error) {
	attempt := task.RetryCount + 1
	if attempt >= w.retryPolicy.MaxRetries {
		if err := w.db.UpdateNotifyTaskStatus(ctx, task.ID, models.TaskStatusFailed, cause.Error(), nil); err != nil {
			w.logger.Printf("notify_worker: mark failed %d: %v", task.ID, err)
		}
		w.pushDeadLetter(ctx, task)
		return
	}

	nextDelay := w.retryPolicy.NextDelay(attempt)
	nextTime := time.Now().Add(nextDelay)
	if err := w.db.UpdateNotifyTaskStatus(ctx, task.ID, models.TaskStatusRetry, cause.Error(), &nextTime); err != nil {
		w.logger.Printf("notify_worker: mark retry %d: %v", task.ID, err)
	}
}

func (w *NotifyWorker) failTask(ctx context.Context, task *models.NotifyTask, err error) {
	if err := w.db.UpdateNotifyTaskStatus(ctx, task.ID, models.TaskStatusFailed, err.Error(), nil); err != nil {
		w.logger.Printf("notify_worker: mark failed %d: %v", task.ID, err)
	}
	w.pushDeadLetter(ctx, task)
}

func (w *NotifyWorker) decodePayload(raw string) (taskPayload, error) {
	var payload taskPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

func (w *NotifyWorker) pushRedis(ctx context.Context, task models.NotifyTask) error {
	if w.redis == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *NotifyWorker) pushDeadLetter(ctx context.Context, task *models.NotifyTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Printf("notify_worker: encode deadletter %d: %v", task.ID, err)
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Printf("notify_worker: deadletter push %d: %v", task.ID, err)
	}
}
