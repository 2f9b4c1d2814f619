package services

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/huangang/testdesk/internal/config"
	"github.com/huangang/testdesk/pkg/logger"
)

const (
	TaskTypeInvitation = "member:invite"
)

// InvitationTask asks the worker to e-mail a tester about a new membership.
type InvitationTask struct {
	MemberID  uint `json:"member_id"`
	ProjectID uint `json:"project_id"`
	UserID    uint `json:"user_id"`
	InvitedBy uint `json:"invited_by"`
}

// TaskProcessor handles one invitation.
type TaskProcessor func(context.Context, *InvitationTask) error

// TaskQueue defines the interface for background invitation delivery
type TaskQueue interface {
	// Enqueue adds a task to the queue
	Enqueue(task *InvitationTask) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// NewTaskQueue uses Redis when it is enabled and reachable, and falls back
// to in-process delivery otherwise.
func NewTaskQueue(cfg *config.RedisConfig) TaskQueue {
	if !cfg.Enabled {
		logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
		return NewSyncQueue()
	}
	queue, err := NewAsyncQueue(cfg)
	if err != nil {
		logger.Warnf("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
		return NewSyncQueue()
	}
	logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Addr)
	return queue
}

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	opt := redisOpt(cfg)
	client := asynq.NewClient(opt)

	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}
	return &AsyncQueue{client: client}, nil
}

func (q *AsyncQueue) Enqueue(task *InvitationTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	info, err := q.client.Enqueue(asynq.NewTask(TaskTypeInvitation, payload),
		asynq.Queue("default"),
		asynq.MaxRetry(5),
	)
	if err != nil {
		return err
	}

	logger.Debug().Str("task_id", info.ID).Uint("member_id", task.MemberID).Msg("invitation enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue delivers in a goroutine of the current process (no Redis).
type SyncQueue struct {
	processor TaskProcessor
	done      chan struct{}
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

func (q *SyncQueue) SetProcessor(processor TaskProcessor) {
	q.processor = processor
}

func (q *SyncQueue) Enqueue(task *InvitationTask) error {
	if q.processor == nil {
		logger.Warnf("[SyncQueue] no processor set, invitation %d dropped", task.MemberID)
		return nil
	}

	go func() {
		if err := q.processor(context.Background(), task); err != nil {
			logger.Error().Err(err).Uint("member_id", task.MemberID).Msg("invitation delivery failed")
		}
		if q.done != nil {
			q.done <- struct{}{}
		}
	}()
	return nil
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

func (q *SyncQueue) Close() error {
	return nil
}
